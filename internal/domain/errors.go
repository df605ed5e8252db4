package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrInvalidInput = errors.New("entrada inválida")
	ErrDuplicate    = errors.New("recurso duplicado")
	ErrUnauthorized = errors.New("no autorizado")
	ErrForbidden    = errors.New("acceso denegado")
	ErrConflict     = errors.New("conflicto con el estado actual")

	// Motor de conciliación de inventario.
	ErrInsufficientStock = errors.New("stock insuficiente")
	ErrUnknownUnit       = errors.New("la unidad de medida no pertenece al producto")
	ErrAccessDenied      = errors.New("sin acceso a la ubicación destino")
	ErrInvalidTransition = errors.New("transición de estado inválida")
	ErrAmbiguousMatch    = errors.New("coincidencia ambigua entre corrección y línea de transacción")
	ErrSelfTransfer      = errors.New("origen y destino del traslado son la misma ubicación")

	// ErrInvalidConversionFactor es una violación de invariante (factor <= 0), no un error de negocio.
	ErrInvalidConversionFactor = errors.New("factor de conversión inválido")
)
