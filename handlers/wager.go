// handlers/wager_routes.go
package handlers

import (
	"wager-escrow-system/middleware"
	"wager-escrow-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupWagerRoutes(app *fiber.App, wagerService *services.WagerService, settlementService *services.SettlementService) {
	// 🔓 Public routes — no user context, but still require Gateway auth
	app.Get("/wagers", wagerService.HandleList)
	app.Get("/wagers/:creator_id", wagerService.HandleGet)

	// 🔐 Secured routes — require caller identity from the Gateway
	secured := app.Group("/", middleware.UserContextMiddleware())

	secured.Post("/wagers", wagerService.HandleCreate)
	secured.Delete("/wagers", wagerService.HandleCancel)
	secured.Post("/wagers/:creator_id/join", wagerService.HandleJoin)

	// Resolution is keyed by the caller's own identity — only the creator
	// can ever reach their wager here.
	secured.Post("/wagers/resolve", wagerService.HandleResolve)

	secured.Post("/wagers/:creator_id/claim", settlementService.HandleClaim)
	secured.Get("/receipts", settlementService.HandleListReceipts)
}
