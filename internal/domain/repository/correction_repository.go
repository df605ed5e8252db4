package repository

import (
	"context"

	"github.com/jhoicas/inventario-conciliacion/internal/domain/entity"
)

// CorrectionRepository define el puerto de persistencia para correcciones de stock y sus ítems.
type CorrectionRepository interface {
	Create(ctx context.Context, correction *entity.StockCorrection) error
	GetByID(ctx context.Context, id string) (*entity.StockCorrection, error)
	// GetForUpdate bloquea la cabecera mientras se cambia el estado.
	GetForUpdate(ctx context.Context, id string) (*entity.StockCorrection, error)
	ListByTransaction(ctx context.Context, kind entity.TransactionKind, transactionID string) ([]*entity.StockCorrection, error)
	UpdateStatus(ctx context.Context, id string, status entity.CorrectionStatus) error
}
