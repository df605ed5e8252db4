package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/inventario-conciliacion/internal/domain"
	"github.com/jhoicas/inventario-conciliacion/internal/domain/entity"
	"github.com/jhoicas/inventario-conciliacion/internal/domain/repository"
)

var _ repository.TransferRepository = (*TransferRepo)(nil)

// TransferRepo traslados y sus ítems sobre PostgreSQL (usable con pool o tx).
type TransferRepo struct {
	q Querier
}

// NewTransferRepository construye el adaptador. Pasar pool o tx (Querier).
func NewTransferRepository(q Querier) *TransferRepo {
	return &TransferRepo{q: q}
}

const transferColumns = `id, company_id, source_type, source_id, destination_type, destination_id,
	status, created_by, created_at, updated_at`

// Create inserta el traslado y sus ítems. Debe ejecutarse dentro de una tx.
func (r *TransferRepo) Create(ctx context.Context, t *entity.Transfer) error {
	query := `INSERT INTO transfers (` + transferColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.q.Exec(ctx, query,
		t.ID, nullIfEmpty(t.CompanyID), string(t.Source.Type), t.Source.ID, string(t.Destination.Type), t.Destination.ID,
		string(t.Status), nullIfEmpty(t.CreatedBy), t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("create transfer: %w", err)
	}
	itemQuery := `
		INSERT INTO transfer_items (id, transfer_id, line_no, product_id, batch_id, unit_id, quantity)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	for i, it := range t.Items {
		if _, err := r.q.Exec(ctx, itemQuery, it.ID, t.ID, i, it.ProductID, it.BatchID, it.UnitID, it.Quantity); err != nil {
			return fmt.Errorf("create transfer item: %w", err)
		}
	}
	return nil
}

// GetByID obtiene el traslado con sus ítems; nil si no existe.
func (r *TransferRepo) GetByID(ctx context.Context, id string) (*entity.Transfer, error) {
	return r.get(ctx, `SELECT `+transferColumns+` FROM transfers WHERE id = $1`, id)
}

// GetForUpdate igual que GetByID pero bloquea la fila; serializa complete/cancel concurrentes.
func (r *TransferRepo) GetForUpdate(ctx context.Context, id string) (*entity.Transfer, error) {
	return r.get(ctx, `SELECT `+transferColumns+` FROM transfers WHERE id = $1 FOR UPDATE`, id)
}

func (r *TransferRepo) get(ctx context.Context, query, id string) (*entity.Transfer, error) {
	var t entity.Transfer
	var companyID, createdBy *string
	var srcType, dstType, status string
	err := r.q.QueryRow(ctx, query, id).Scan(&t.ID, &companyID, &srcType, &t.Source.ID, &dstType, &t.Destination.ID,
		&status, &createdBy, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get transfer: %w", err)
	}
	t.CompanyID = derefString(companyID)
	t.CreatedBy = derefString(createdBy)
	t.Source.Type = entity.LocationType(srcType)
	t.Destination.Type = entity.LocationType(dstType)
	t.Status = entity.TransferStatus(status)

	rows, err := r.q.Query(ctx, `
		SELECT id, transfer_id, product_id, batch_id, unit_id, quantity
		FROM transfer_items WHERE transfer_id = $1 ORDER BY line_no`, id)
	if err != nil {
		return nil, fmt.Errorf("list transfer items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var it entity.TransferItem
		if err := rows.Scan(&it.ID, &it.TransferID, &it.ProductID, &it.BatchID, &it.UnitID, &it.Quantity); err != nil {
			return nil, fmt.Errorf("scan transfer item: %w", err)
		}
		t.Items = append(t.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &t, nil
}

// UpdateStatus cambia el estado del traslado.
func (r *TransferRepo) UpdateStatus(ctx context.Context, id string, status entity.TransferStatus) error {
	tag, err := r.q.Exec(ctx, `UPDATE transfers SET status = $2, updated_at = now() WHERE id = $1`, id, string(status))
	if err != nil {
		return fmt.Errorf("update transfer status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
