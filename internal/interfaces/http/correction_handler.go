package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/inventario-conciliacion/internal/application/dto"
	"github.com/jhoicas/inventario-conciliacion/internal/application/inventory"
	"github.com/jhoicas/inventario-conciliacion/internal/domain/entity"
)

// CorrectionHandler maneja correcciones de stock y la conciliación de ventas/compras (protegido).
type CorrectionHandler struct {
	uc *inventory.CorrectionUseCase
}

// NewCorrectionHandler construye el handler.
func NewCorrectionHandler(uc *inventory.CorrectionUseCase) *CorrectionHandler {
	return &CorrectionHandler{uc: uc}
}

// Create godoc
// @Summary      Registrar corrección de stock
// @Tags         corrections
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateCorrectionRequest  true  "Motivo, ubicación, enlace opcional e ítems"
// @Success      201   {object}  dto.CorrectionResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/corrections [post]
func (h *CorrectionHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateCorrectionRequest
	if ok, err := bindBody(c, &in); !ok {
		return err
	}
	out, err := h.uc.CreateFromRequest(c.UserContext(), GetCompanyID(c), GetUserID(c), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// GetByID godoc
// @Summary      Obtener corrección por ID
// @Tags         corrections
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la corrección"
// @Success      200  {object}  dto.CorrectionResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/corrections/{id} [get]
func (h *CorrectionHandler) GetByID(c *fiber.Ctx) error {
	out, err := h.uc.Get(c.UserContext(), c.Params("id"), GetActor(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(inventory.ToCorrectionResponse(out))
}

// UpdateStatus godoc
// @Summary      Cambiar estado de una corrección
// @Description  Aprobar aplica los ítems al ledger y recalcula el total neto de la transacción enlazada.
// @Tags         corrections
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                             true  "ID de la corrección"
// @Param        body  body  dto.UpdateCorrectionStatusRequest  true  "Nuevo estado"
// @Success      200   {object}  dto.CorrectionResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/corrections/{id}/status [patch]
func (h *CorrectionHandler) UpdateStatus(c *fiber.Ctx) error {
	var in dto.UpdateCorrectionStatusRequest
	if ok, err := bindBody(c, &in); !ok {
		return err
	}
	out, err := h.uc.UpdateStatus(c.UserContext(), c.Params("id"), entity.CorrectionStatus(in.Status), GetActor(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(inventory.ToCorrectionResponse(out))
}

// Reconciliation godoc
// @Summary      Vista conciliada de una venta o compra
// @Tags         transactions
// @Security     Bearer
// @Produce      json
// @Param        kind  path  string  true  "sale | purchase"
// @Param        id    path  string  true  "ID de la transacción"
// @Success      200   {object}  dto.ReconciliationResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/transactions/{kind}/{id}/reconciliation [get]
func (h *CorrectionHandler) Reconciliation(c *fiber.Ctx) error {
	kind := entity.TransactionKind(strings.ToUpper(c.Params("kind")))
	out, err := h.uc.ReconcileTransaction(c.UserContext(), kind, c.Params("id"), GetActor(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(inventory.ToReconciliationResponse(out))
}
