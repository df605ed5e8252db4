package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jhoicas/inventario-conciliacion/internal/domain/entity"
	"github.com/jhoicas/inventario-conciliacion/internal/domain/repository"
)

var _ repository.InventoryMovementRepository = (*InventoryMovementRepo)(nil)

// InventoryMovementRepo historial de deltas del ledger sobre PostgreSQL (usable con pool o tx).
type InventoryMovementRepo struct {
	q Querier
}

// NewInventoryMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInventoryMovementRepository(q Querier) *InventoryMovementRepo {
	return &InventoryMovementRepo{q: q}
}

// Create persiste un movimiento.
func (r *InventoryMovementRepo) Create(ctx context.Context, m *entity.InventoryMovement) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	query := `
		INSERT INTO inventory_movements (id, operation_id, location_type, location_id, product_id, batch_id, unit_id,
			type, quantity, balance, reference, created_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := r.q.Exec(ctx, query,
		m.ID, m.OperationID, string(m.Key.Location.Type), m.Key.Location.ID, m.Key.ProductID, m.Key.BatchID, m.Key.UnitID,
		m.Type, m.Quantity, m.Balance, m.Reference, m.CreatedAt, nullIfEmpty(m.CreatedBy),
	)
	if err != nil {
		return fmt.Errorf("create inventory movement: %w", err)
	}
	return nil
}

// ListByReference lista los movimientos de una referencia (traslado, corrección u operación) en orden de creación.
func (r *InventoryMovementRepo) ListByReference(ctx context.Context, reference string) ([]*entity.InventoryMovement, error) {
	query := `
		SELECT id, operation_id, location_type, location_id, product_id, batch_id, unit_id,
			type, quantity, balance, reference, created_at, created_by
		FROM inventory_movements WHERE reference = $1
		ORDER BY created_at, id`
	rows, err := r.q.Query(ctx, query, reference)
	if err != nil {
		return nil, fmt.Errorf("list movements by reference: %w", err)
	}
	defer rows.Close()
	var list []*entity.InventoryMovement
	for rows.Next() {
		var m entity.InventoryMovement
		var locType string
		var createdBy *string
		if err := rows.Scan(&m.ID, &m.OperationID, &locType, &m.Key.Location.ID, &m.Key.ProductID, &m.Key.BatchID, &m.Key.UnitID,
			&m.Type, &m.Quantity, &m.Balance, &m.Reference, &m.CreatedAt, &createdBy); err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		m.Key.Location.Type = entity.LocationType(locType)
		m.CreatedBy = derefString(createdBy)
		list = append(list, &m)
	}
	return list, rows.Err()
}
