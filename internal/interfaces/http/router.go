package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/jhoicas/mercado-ledger/internal/application/catalog"
	"github.com/jhoicas/mercado-ledger/internal/application/inventory"
	"github.com/jhoicas/mercado-ledger/internal/application/session"
	"github.com/jhoicas/mercado-ledger/pkg/metrics"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Catalog     *catalog.CreateProductUseCase
	Ledger      *inventory.LedgerUseCase
	Transfers   *inventory.TransferUseCase
	Sessions    *session.UseCase
	JWTSecret   string
	ServiceName string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": deps.ServiceName})
	})
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	// Todas las rutas de /api requieren Bearer Token con user_id y vendor_id.
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret))

	products := api.Group("/products")
	productHandler := NewProductHandler(deps.Catalog)
	products.Post("/", productHandler.Create)
	products.Get("/", productHandler.List)
	products.Get("/:id", productHandler.GetByID)

	inv := api.Group("/inventory")
	inventoryHandler := NewInventoryHandler(deps.Ledger, deps.Transfers)
	inv.Post("/transfers", inventoryHandler.Transfer)
	inv.Post("/:id/increment", inventoryHandler.Increment)
	inv.Post("/:id/decrement", inventoryHandler.Decrement)
	inv.Get("/:id/movements", inventoryHandler.Movements)
	inv.Get("/:id/verify", inventoryHandler.Verify)

	sessions := api.Group("/sessions")
	sessionHandler := NewSessionHandler(deps.Sessions)
	sessions.Post("/", sessionHandler.GetOrCreate)
	sessions.Get("/:id", sessionHandler.Get)
	sessions.Get("/:id/report", sessionHandler.Report)
	sessions.Post("/:id/sales", sessionHandler.RecordSale)
	sessions.Post("/:id/void", sessionHandler.Void)
	sessions.Post("/:id/refund", sessionHandler.Refund)
	sessions.Post("/:id/close", sessionHandler.Close)
}
