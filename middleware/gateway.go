// middleware/gateway_auth.go
package middleware

import (
	"crypto/subtle"
	"log"
	"os"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// bearerToken strips the Bearer prefix when present. The Gateway sends the
// raw token on some internal hops, so both forms are accepted.
func bearerToken(header string) string {
	if token := strings.TrimPrefix(header, "Bearer "); token != header {
		return token
	}
	return header
}

// GatewayAuthMiddleware rejects any request that does not carry the shared
// Gateway token. The engine is never exposed directly; every caller,
// including the public listing endpoints, goes through the Gateway.
func GatewayAuthMiddleware() fiber.Handler {
	expectedToken := os.Getenv("WAGER_SERVICE_TOKEN")
	if expectedToken == "" {
		log.Fatal("❌ WAGER_SERVICE_TOKEN is not set — service cannot authenticate Gateway")
	}

	return func(c *fiber.Ctx) error {
		header := c.Get("Authorization")
		if header == "" {
			log.Printf("🚫 [GATEWAY_AUTH] Missing Authorization header for %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "gateway authentication token missing",
			})
		}

		token := bearerToken(header)
		if subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) != 1 {
			log.Printf("❌ [GATEWAY_AUTH] Rejected token for %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid gateway authentication token",
			})
		}

		return c.Next()
	}
}
