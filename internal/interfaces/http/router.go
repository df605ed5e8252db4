package http

import (
	nethttp "net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/jhoicas/inventario-conciliacion/internal/application/inventory"
	"github.com/jhoicas/inventario-conciliacion/internal/domain/entity"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	LedgerUC     *inventory.LedgerUseCase
	TransferUC   *inventory.TransferUseCase
	CorrectionUC *inventory.CorrectionUseCase
	Locations    locationLoader
	Metrics      httpObserver
	MetricsPage  nethttp.Handler // nil = sin /metrics
	JWTSecret    string
	JWTIssuer    string
	OpTimeout    time.Duration
	ServiceName  string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	if deps.Metrics != nil {
		app.Use(RequestMetrics(deps.Metrics))
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": deps.ServiceName})
	})
	if deps.MetricsPage != nil {
		app.Get("/metrics", adaptor.HTTPHandler(deps.MetricsPage))
	}

	// Rutas protegidas (requieren Bearer Token)
	api := app.Group("/api",
		AuthMiddleware(deps.JWTSecret, deps.JWTIssuer),
		LoadActor(deps.Locations),
		OperationTimeout(deps.OpTimeout),
	)

	// Ledger
	inv := api.Group("/inventory")
	inventoryHandler := NewInventoryHandler(deps.LedgerUC)
	inv.Get("/available", inventoryHandler.Available)
	inv.Get("/locations/:type/:id/stock", inventoryHandler.LocationStock)
	inv.Post("/deltas", RequireRole(entity.RoleAdmin), inventoryHandler.ApplyDelta)

	// Traslados
	transfers := api.Group("/transfers")
	transferHandler := NewTransferHandler(deps.TransferUC)
	transfers.Post("/", transferHandler.Create)
	transfers.Get("/:id", transferHandler.GetByID)
	transfers.Post("/:id/complete", transferHandler.Complete)
	transfers.Post("/:id/cancel", RequireRole(entity.RoleAdmin, entity.RoleBodeguero), transferHandler.Cancel)

	// Correcciones y conciliación
	correctionHandler := NewCorrectionHandler(deps.CorrectionUC)
	corrections := api.Group("/corrections")
	corrections.Post("/", correctionHandler.Create)
	corrections.Get("/:id", correctionHandler.GetByID)
	corrections.Patch("/:id/status", RequireRole(entity.RoleAdmin), correctionHandler.UpdateStatus)

	api.Get("/transactions/:kind/:id/reconciliation", correctionHandler.Reconciliation)
}
