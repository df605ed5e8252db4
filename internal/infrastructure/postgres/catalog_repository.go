package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/inventario-conciliacion/internal/domain/entity"
	"github.com/jhoicas/inventario-conciliacion/internal/domain/repository"
)

var _ repository.CatalogRepository = (*CatalogRepo)(nil)

// CatalogRepo datos de referencia (unidades de medida y lotes). Solo lectura; se usa con el pool.
type CatalogRepo struct {
	q Querier
}

// NewCatalogRepository construye el adaptador.
func NewCatalogRepository(q Querier) *CatalogRepo {
	return &CatalogRepo{q: q}
}

// UnitsByIDs obtiene las unidades pedidas; ids desconocidos se omiten.
func (r *CatalogRepo) UnitsByIDs(ctx context.Context, ids []string) ([]*entity.UnitOfMeasure, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.q.Query(ctx, `
		SELECT id, product_id, name, conversion_factor, is_base
		FROM units_of_measure WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("list units: %w", err)
	}
	defer rows.Close()
	var list []*entity.UnitOfMeasure
	for rows.Next() {
		var u entity.UnitOfMeasure
		if err := rows.Scan(&u.ID, &u.ProductID, &u.Name, &u.ConversionFactor, &u.IsBase); err != nil {
			return nil, fmt.Errorf("scan unit: %w", err)
		}
		list = append(list, &u)
	}
	return list, rows.Err()
}

// BatchesByIDs obtiene los lotes pedidos; ids desconocidos se omiten.
func (r *CatalogRepo) BatchesByIDs(ctx context.Context, ids []string) ([]*entity.Batch, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.q.Query(ctx, `
		SELECT id, product_id, batch_number, expires_at, created_at
		FROM batches WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	defer rows.Close()
	var list []*entity.Batch
	for rows.Next() {
		var b entity.Batch
		if err := rows.Scan(&b.ID, &b.ProductID, &b.BatchNumber, &b.ExpiresAt, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan batch: %w", err)
		}
		list = append(list, &b)
	}
	return list, rows.Err()
}
