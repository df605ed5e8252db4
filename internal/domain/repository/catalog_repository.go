package repository

import (
	"context"

	"github.com/jhoicas/inventario-conciliacion/internal/domain/entity"
)

// CatalogRepository lectura de datos de referencia (unidades de medida y lotes).
type CatalogRepository interface {
	UnitsByIDs(ctx context.Context, ids []string) ([]*entity.UnitOfMeasure, error)
	BatchesByIDs(ctx context.Context, ids []string) ([]*entity.Batch, error)
}
