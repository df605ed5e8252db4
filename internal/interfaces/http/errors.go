package http

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/inventario-conciliacion/internal/application/dto"
	"github.com/jhoicas/inventario-conciliacion/internal/domain"
	"github.com/rs/zerolog/log"
)

// errorMapping traducción de errores de dominio a HTTP, en orden de prioridad.
var errorMapping = []struct {
	err     error
	status  int
	code    string
	message string
}{
	{domain.ErrInsufficientStock, fiber.StatusConflict, "INSUFFICIENT_STOCK", "stock insuficiente"},
	{domain.ErrUnknownUnit, fiber.StatusBadRequest, "UNKNOWN_UNIT", "la unidad de medida no pertenece al producto"},
	{domain.ErrAccessDenied, fiber.StatusForbidden, "ACCESS_DENIED", "sin acceso a la ubicación destino"},
	{domain.ErrInvalidTransition, fiber.StatusConflict, "INVALID_TRANSITION", "transición de estado inválida"},
	{domain.ErrSelfTransfer, fiber.StatusBadRequest, "SELF_TRANSFER", "origen y destino son la misma ubicación"},
	{domain.ErrNotFound, fiber.StatusNotFound, "NOT_FOUND", "recurso no encontrado"},
	{domain.ErrForbidden, fiber.StatusForbidden, "FORBIDDEN", "acceso denegado al recurso"},
	{domain.ErrInvalidInput, fiber.StatusBadRequest, "VALIDATION", "datos inválidos"},
	{domain.ErrDuplicate, fiber.StatusConflict, "DUPLICATE", "recurso duplicado"},
	{domain.ErrConflict, fiber.StatusConflict, "CONFLICT", "conflicto de concurrencia, reintente"},
	{context.DeadlineExceeded, fiber.StatusServiceUnavailable, "TIMEOUT", "la operación excedió el tiempo límite"},
}

// writeError responde con el código HTTP del error de dominio. Lo desconocido es 500: el detalle
// solo va al log, el cliente recibe un mensaje genérico.
func writeError(c *fiber.Ctx, err error) error {
	for _, m := range errorMapping {
		if errors.Is(err, m.err) {
			return c.Status(m.status).JSON(dto.ErrorResponse{Code: m.code, Message: m.message})
		}
	}
	log.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("error interno")
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: "error interno del servidor"})
}
