package repository

import (
	"context"

	"github.com/jhoicas/inventario-conciliacion/internal/domain/entity"
)

// InventoryMovementRepository define el puerto de persistencia para el historial de deltas del ledger.
type InventoryMovementRepository interface {
	Create(ctx context.Context, movement *entity.InventoryMovement) error
	ListByReference(ctx context.Context, reference string) ([]*entity.InventoryMovement, error)
}
