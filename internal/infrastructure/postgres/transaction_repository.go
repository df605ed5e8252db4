package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/inventario-conciliacion/internal/domain"
	"github.com/jhoicas/inventario-conciliacion/internal/domain/entity"
	"github.com/jhoicas/inventario-conciliacion/internal/domain/repository"
	"github.com/shopspring/decimal"
)

var _ repository.TransactionRepository = (*TransactionRepo)(nil)

// TransactionRepo lectura de ventas (sales) y compras (purchases) sobre PostgreSQL.
type TransactionRepo struct {
	q Querier
}

// NewTransactionRepository construye el adaptador. Pasar pool o tx (Querier).
func NewTransactionRepository(q Querier) *TransactionRepo {
	return &TransactionRepo{q: q}
}

type transactionTables struct {
	header, items, fk string
}

func tablesFor(kind entity.TransactionKind) (transactionTables, error) {
	switch kind {
	case entity.TransactionSale:
		return transactionTables{header: "sales", items: "sale_items", fk: "sale_id"}, nil
	case entity.TransactionPurchase:
		return transactionTables{header: "purchases", items: "purchase_items", fk: "purchase_id"}, nil
	}
	return transactionTables{}, fmt.Errorf("tipo de transacción %q: %w", kind, domain.ErrInvalidInput)
}

// GetByID obtiene la venta/compra con sus líneas en orden; nil si no existe.
func (r *TransactionRepo) GetByID(ctx context.Context, kind entity.TransactionKind, id string) (*entity.Transaction, error) {
	return r.get(ctx, kind, id, "")
}

// GetForUpdate bloquea la cabecera (FOR UPDATE): dos aprobaciones sobre la misma venta se serializan
// y la segunda ve las correcciones ya aprobadas por la primera.
func (r *TransactionRepo) GetForUpdate(ctx context.Context, kind entity.TransactionKind, id string) (*entity.Transaction, error) {
	return r.get(ctx, kind, id, " FOR UPDATE")
}

func (r *TransactionRepo) get(ctx context.Context, kind entity.TransactionKind, id, lock string) (*entity.Transaction, error) {
	tbl, err := tablesFor(kind)
	if err != nil {
		return nil, err
	}
	t := entity.Transaction{Kind: kind}
	var companyID *string
	err = r.q.QueryRow(ctx,
		`SELECT id, company_id, grand_total, net_total, date FROM `+tbl.header+` WHERE id = $1`+lock, id,
	).Scan(&t.ID, &companyID, &t.GrandTotal, &t.NetTotal, &t.Date)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get %s: %w", tbl.header, err)
	}
	t.CompanyID = derefString(companyID)

	rows, err := r.q.Query(ctx, `
		SELECT id, product_id, location_type, location_id, batch_id, unit_id, quantity, unit_price, total_price
		FROM `+tbl.items+` WHERE `+tbl.fk+` = $1 ORDER BY line_no`, id)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", tbl.items, err)
	}
	defer rows.Close()
	for rows.Next() {
		var it entity.TransactionItem
		var locType, locID *string
		if err := rows.Scan(&it.ID, &it.ProductID, &locType, &locID, &it.BatchID, &it.UnitID,
			&it.Quantity, &it.UnitPrice, &it.TotalPrice); err != nil {
			return nil, fmt.Errorf("scan %s: %w", tbl.items, err)
		}
		it.Location = entity.Location{Type: entity.LocationType(derefString(locType)), ID: derefString(locID)}
		t.Items = append(t.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &t, nil
}

// UpdateNetTotal persiste el total neto tras correcciones aprobadas; las líneas no se tocan.
func (r *TransactionRepo) UpdateNetTotal(ctx context.Context, kind entity.TransactionKind, id string, netTotal decimal.Decimal) error {
	tbl, err := tablesFor(kind)
	if err != nil {
		return err
	}
	tag, err := r.q.Exec(ctx, `UPDATE `+tbl.header+` SET net_total = $2 WHERE id = $1`, id, netTotal)
	if err != nil {
		return fmt.Errorf("update %s net total: %w", tbl.header, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
