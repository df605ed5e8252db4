package repository

import (
	"context"

	"github.com/jhoicas/inventario-conciliacion/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// TransactionRepository define el puerto de lectura de ventas/compras con sus líneas.
// El motor solo escribe el total neto; las líneas son históricas.
type TransactionRepository interface {
	GetByID(ctx context.Context, kind entity.TransactionKind, id string) (*entity.Transaction, error)
	// GetForUpdate como GetByID pero bloquea la cabecera hasta el fin de la tx.
	GetForUpdate(ctx context.Context, kind entity.TransactionKind, id string) (*entity.Transaction, error)
	UpdateNetTotal(ctx context.Context, kind entity.TransactionKind, id string, netTotal decimal.Decimal) error
}
