package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"wager-escrow-system/models"
	"wager-escrow-system/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AssetSyncClient pulls asset ownership changes from the chain sync service
// into the local asset mirror.
type AssetSyncClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	DB         *gorm.DB
}

func NewAssetSyncClient(db *gorm.DB) *AssetSyncClient {
	baseURL := os.Getenv("SYNC_SERVICE_URL")
	if baseURL == "" {
		log.Fatal("SYNC_SERVICE_URL environment variable is required")
	}
	token := os.Getenv("WAGER_SERVICE_TOKEN")
	if token == "" {
		log.Fatal("WAGER_SERVICE_TOKEN environment variable is required for asset sync")
	}

	return &AssetSyncClient{
		BaseURL:    baseURL,
		Token:      token,
		DB:         db,
		HTTPClient: utils.HTTPClient,
	}
}

func (c *AssetSyncClient) GetChangedAssets(ctx context.Context, since time.Time) ([]models.AssetMirror, error) {
	since = since.UTC()

	u, err := url.Parse(fmt.Sprintf("%s/api/v1/public/assets", c.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}

	q := u.Query()
	q.Set("since", since.Format(time.RFC3339))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("X-Service-Token", c.Token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call sync service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("sync service returned status %d: %s", resp.StatusCode, string(body))
	}

	var response struct {
		Assets []models.AssetMirror `json:"assets"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode sync service response: %w", err)
	}

	return response.Assets, nil
}

// PollAssets keeps the asset mirror close to chain state. Transfers made by
// the engine itself are already reflected locally; the poll backfills
// everything that happened off-engine.
func PollAssets(ctx context.Context, client *AssetSyncClient, pollInterval time.Duration) {
	log.Println("Starting asset polling (DB-backed)...")
	lastSyncTime := time.Now().UTC().Add(-24 * time.Hour)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Asset polling stopped.")
			return
		case <-ticker.C:
			logTime := time.Now().UTC()

			assets, err := client.GetChangedAssets(ctx, lastSyncTime)
			if err != nil {
				log.Printf("❌ Error polling assets: %v", err)
				continue
			}

			count := len(assets)
			if count == 0 {
				continue
			}

			log.Printf("📥 Received %d asset change(s) from sync service.", count)

			for i := range assets {
				assets[i].ID = uuid.NewString()
				assets[i].Collection = models.CanonicalCollection(assets[i].Collection)
				assets[i].LastSyncedAt = logTime
			}

			// Bulk upsert keyed on the asset quadruple; ownership recorded
			// by the engine in the same window wins on the next poll.
			if err := client.DB.Clauses(
				clause.OnConflict{
					Columns: []clause.Column{
						{Name: "collection_creator"},
						{Name: "collection"},
						{Name: "name"},
						{Name: "version"},
					},
					DoUpdates: clause.AssignmentColumns([]string{
						"owner_address",
						"last_synced_at",
						"updated_at",
					}),
				},
			).Create(&assets).Error; err != nil {
				log.Printf("❌ Failed to upsert %d asset(s) into asset_mirror: %v", count, err)
				// Do NOT advance lastSyncTime on failure — retry same window next tick
				continue
			}

			lastSyncTime = logTime
			log.Printf("✅ Upserted %d asset(s) into asset_mirror table.", count)
		}
	}
}
