// services/scheduler.go
package services

import (
	"log"
	"time"

	"wager-escrow-system/models"

	"github.com/go-co-op/gocron/v2"
)

// StartEscrowAuditScheduler recounts custodial holdings every minute and
// flags drift between the asset mirror and the engine's bookkeeping.
func (s *WagerService) StartEscrowAuditScheduler() {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			var accounts []models.EscrowAccount
			err := s.DB.Where("holdings > 0").Find(&accounts).Error
			if err != nil {
				log.Printf("[Audit] DB error: %v", err)
				return
			}

			now := time.Now().UTC()
			for _, acct := range accounts {
				var actual int64
				if err := s.DB.Model(&models.AssetMirror{}).
					Where("owner_address = ?", acct.Address).
					Count(&actual).Error; err != nil {
					log.Printf("[Audit] Count failed for %s: %v", acct.Address, err)
					continue
				}

				if int(actual) != acct.Holdings {
					log.Printf("🚨 [Audit] Escrow drift on %s: expected %d, mirror holds %d", acct.Address, acct.Holdings, actual)
				}

				if err := s.DB.Model(&acct).Update("last_audit_at", &now).Error; err != nil {
					log.Printf("[Audit] Failed to stamp audit time for %s: %v", acct.Address, err)
				}
			}
		}),
	)
}
