package repository

import (
	"context"

	"github.com/jhoicas/inventario-conciliacion/internal/domain/entity"
)

// LedgerRepository define el puerto para leer/actualizar el ledger de cantidades (ubicación+producto+lote+unidad).
// Usado dentro de transacciones para garantizar consistencia.
type LedgerRepository interface {
	// Get devuelve la fila o una fila en cero si no existe.
	Get(ctx context.Context, key entity.LedgerKey) (*entity.StockLedgerEntry, error)
	// GetForUpdate igual que Get pero bloquea la fila hasta el fin de la transacción.
	GetForUpdate(ctx context.Context, key entity.LedgerKey) (*entity.StockLedgerEntry, error)
	Upsert(ctx context.Context, entry *entity.StockLedgerEntry) error
	ListByLocation(ctx context.Context, loc entity.Location) ([]*entity.StockLedgerEntry, error)
	// MarkOperation registra el id de operación; false si ya estaba registrado (reintento).
	MarkOperation(ctx context.Context, operationID string) (bool, error)
}
