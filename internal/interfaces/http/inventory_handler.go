package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/inventario-conciliacion/internal/application/dto"
	"github.com/jhoicas/inventario-conciliacion/internal/application/inventory"
	"github.com/jhoicas/inventario-conciliacion/internal/domain/entity"
)

// InventoryHandler maneja las consultas y ajustes del ledger (protegido).
type InventoryHandler struct {
	uc *inventory.LedgerUseCase
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(uc *inventory.LedgerUseCase) *InventoryHandler {
	return &InventoryHandler{uc: uc}
}

// Available godoc
// @Summary      Disponible de un lote en una ubicación
// @Description  Cantidad expresada en la unidad pedida; 0 si no hay fila.
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        location_type  query  string  true   "STORE | SHOP"
// @Param        location_id    query  string  true   "ID de la ubicación"
// @Param        product_id     query  string  true   "ID del producto"
// @Param        batch_id       query  string  false  "ID del lote"
// @Param        unit_id        query  string  true   "ID de la unidad de medida"
// @Success      200  {object}  dto.AvailableQuantityResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/inventory/available [get]
func (h *InventoryHandler) Available(c *fiber.Ctx) error {
	var q dto.AvailableQuery
	if ok, err := bindQuery(c, &q); !ok {
		return err
	}
	out, err := h.uc.AvailableFromQuery(c.UserContext(), entity.LedgerKey{
		Location:  entity.Location{Type: entity.LocationType(q.LocationType), ID: q.LocationID},
		ProductID: q.ProductID,
		BatchID:   q.BatchID,
		UnitID:    q.UnitID,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// LocationStock godoc
// @Summary      Stock de una ubicación
// @Description  Filas del ledger en unidades base, ordenadas por clave.
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        type    path   string  true   "STORE | SHOP"
// @Param        id      path   string  true   "ID de la ubicación"
// @Param        limit   query  int     false  "Límite (1-100)"  default(20)
// @Param        offset  query  int     false  "Offset"  default(0)
// @Success      200  {object}  dto.LocationStockResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/inventory/locations/{type}/{id}/stock [get]
func (h *InventoryHandler) LocationStock(c *fiber.Ctx) error {
	loc := entity.Location{Type: entity.LocationType(c.Params("type")), ID: c.Params("id")}
	page := dto.PageRequest{Limit: dto.DefaultPageLimit}
	if ok, err := bindQuery(c, &page); !ok {
		return err
	}
	out, err := h.uc.LocationStock(c.UserContext(), loc, page)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// ApplyDelta godoc
// @Summary      Ajustar una fila del ledger
// @Description  Delta con signo en unidades base. Idempotency-Key hace seguro el reintento.
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header  string                 false  "ID de operación"
// @Param        body             body    dto.ApplyDeltaRequest  true   "Fila y delta"
// @Success      204
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/inventory/deltas [post]
func (h *InventoryHandler) ApplyDelta(c *fiber.Ctx) error {
	var in dto.ApplyDeltaRequest
	if ok, err := bindBody(c, &in); !ok {
		return err
	}
	if err := h.uc.ApplyDeltaFromRequest(c.UserContext(), GetUserID(c), c.Get("Idempotency-Key"), in); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
