// handlers/ledger_routes.go
package handlers

import (
	"wager-escrow-system/middleware"
	"wager-escrow-system/services"

	"github.com/gofiber/fiber/v2"
)

// SetupLedgerRoutes must run before SetupWagerRoutes: the wager routes open
// a catch-all secured group, and anything registered after it needs identity.
func SetupLedgerRoutes(app *fiber.App, ledgerService *services.LedgerService) {
	app.Get("/assets", ledgerService.GetAssetsByOwner)

	app.Post("/assets", middleware.UserContextMiddleware(), ledgerService.MintAsset)
	app.Post("/accounts/opt-in", middleware.UserContextMiddleware(), ledgerService.OptIn)
}
