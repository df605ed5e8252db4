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

var _ repository.CorrectionRepository = (*CorrectionRepo)(nil)

// CorrectionRepo correcciones de stock y sus ítems sobre PostgreSQL (usable con pool o tx).
type CorrectionRepo struct {
	q Querier
}

// NewCorrectionRepository construye el adaptador. Pasar pool o tx (Querier).
func NewCorrectionRepository(q Querier) *CorrectionRepo {
	return &CorrectionRepo{q: q}
}

const correctionColumns = `id, company_id, reason, purchase_id, sell_id, location_type, location_id,
	status, note, created_by, created_at, updated_at`

// Create inserta la cabecera y sus ítems. Debe ejecutarse dentro de una tx.
func (r *CorrectionRepo) Create(ctx context.Context, c *entity.StockCorrection) error {
	query := `
		INSERT INTO stock_corrections (` + correctionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.q.Exec(ctx, query,
		c.ID, nullIfEmpty(c.CompanyID), string(c.Reason), nullIfEmpty(c.PurchaseID), nullIfEmpty(c.SellID),
		string(c.Location.Type), c.Location.ID, string(c.Status), c.Note, nullIfEmpty(c.CreatedBy), c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("create stock correction: %w", err)
	}
	itemQuery := `
		INSERT INTO correction_items (id, correction_id, line_no, product_id, batch_id, unit_id, signed_quantity)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	for i, it := range c.Items {
		if _, err := r.q.Exec(ctx, itemQuery, it.ID, c.ID, i, it.ProductID, it.BatchID, it.UnitID, it.SignedQuantity); err != nil {
			return fmt.Errorf("create correction item: %w", err)
		}
	}
	return nil
}

// GetByID obtiene la corrección con sus ítems; nil si no existe.
func (r *CorrectionRepo) GetByID(ctx context.Context, id string) (*entity.StockCorrection, error) {
	return r.get(ctx, `SELECT `+correctionColumns+` FROM stock_corrections WHERE id = $1`, id)
}

// GetForUpdate igual que GetByID pero bloquea la cabecera (SELECT FOR UPDATE).
func (r *CorrectionRepo) GetForUpdate(ctx context.Context, id string) (*entity.StockCorrection, error) {
	return r.get(ctx, `SELECT `+correctionColumns+` FROM stock_corrections WHERE id = $1 FOR UPDATE`, id)
}

func (r *CorrectionRepo) get(ctx context.Context, query, id string) (*entity.StockCorrection, error) {
	c, err := scanCorrection(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get stock correction: %w", err)
	}
	if err := r.loadItems(ctx, []*entity.StockCorrection{c}); err != nil {
		return nil, err
	}
	return c, nil
}

// ListByTransaction lista las correcciones enlazadas a una venta o compra, en orden de creación.
func (r *CorrectionRepo) ListByTransaction(ctx context.Context, kind entity.TransactionKind, transactionID string) ([]*entity.StockCorrection, error) {
	column := "sell_id"
	if kind == entity.TransactionPurchase {
		column = "purchase_id"
	}
	query := `SELECT ` + correctionColumns + ` FROM stock_corrections WHERE ` + column + ` = $1 ORDER BY created_at, id`
	rows, err := r.q.Query(ctx, query, transactionID)
	if err != nil {
		return nil, fmt.Errorf("list corrections by transaction: %w", err)
	}
	var list []*entity.StockCorrection
	for rows.Next() {
		c, err := scanCorrection(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan stock correction: %w", err)
		}
		list = append(list, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.loadItems(ctx, list); err != nil {
		return nil, err
	}
	return list, nil
}

// UpdateStatus cambia el estado de la cabecera.
func (r *CorrectionRepo) UpdateStatus(ctx context.Context, id string, status entity.CorrectionStatus) error {
	tag, err := r.q.Exec(ctx, `UPDATE stock_corrections SET status = $2, updated_at = now() WHERE id = $1`, id, string(status))
	if err != nil {
		return fmt.Errorf("update correction status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// loadItems carga los ítems de todas las correcciones en una sola consulta.
func (r *CorrectionRepo) loadItems(ctx context.Context, list []*entity.StockCorrection) error {
	if len(list) == 0 {
		return nil
	}
	byID := make(map[string]*entity.StockCorrection, len(list))
	ids := make([]string, 0, len(list))
	for _, c := range list {
		byID[c.ID] = c
		ids = append(ids, c.ID)
	}
	query := `
		SELECT id, correction_id, product_id, batch_id, unit_id, signed_quantity
		FROM correction_items WHERE correction_id = ANY($1)
		ORDER BY correction_id, line_no`
	rows, err := r.q.Query(ctx, query, ids)
	if err != nil {
		return fmt.Errorf("list correction items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var it entity.CorrectionItem
		if err := rows.Scan(&it.ID, &it.CorrectionID, &it.ProductID, &it.BatchID, &it.UnitID, &it.SignedQuantity); err != nil {
			return fmt.Errorf("scan correction item: %w", err)
		}
		if c, ok := byID[it.CorrectionID]; ok {
			c.Items = append(c.Items, it)
		}
	}
	return rows.Err()
}

func scanCorrection(row pgx.Row) (*entity.StockCorrection, error) {
	var c entity.StockCorrection
	var companyID, purchaseID, sellID, createdBy *string
	var reason, locType, status string
	err := row.Scan(&c.ID, &companyID, &reason, &purchaseID, &sellID, &locType, &c.Location.ID,
		&status, &c.Note, &createdBy, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.CompanyID = derefString(companyID)
	c.Reason = entity.CorrectionReason(reason)
	c.PurchaseID = derefString(purchaseID)
	c.SellID = derefString(sellID)
	c.Location.Type = entity.LocationType(locType)
	c.Status = entity.CorrectionStatus(status)
	c.CreatedBy = derefString(createdBy)
	return &c, nil
}
