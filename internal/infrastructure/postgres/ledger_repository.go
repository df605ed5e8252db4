package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/inventario-conciliacion/internal/domain/entity"
	"github.com/jhoicas/inventario-conciliacion/internal/domain/repository"
	"github.com/shopspring/decimal"
)

var _ repository.LedgerRepository = (*LedgerRepo)(nil)

// LedgerRepo implementación de LedgerRepository sobre PostgreSQL (usable con pool o tx).
// batch_id vacío ('') representa "sin lote" para que la PK no tenga NULLs.
type LedgerRepo struct {
	q Querier
}

// NewLedgerRepository construye el adaptador del ledger. Pasar pool o tx (Querier).
func NewLedgerRepository(q Querier) *LedgerRepo {
	return &LedgerRepo{q: q}
}

const ledgerColumns = `location_type, location_id, product_id, batch_id, unit_id, quantity, updated_at`

// Get obtiene la fila; si no existe devuelve una fila en cero.
func (r *LedgerRepo) Get(ctx context.Context, key entity.LedgerKey) (*entity.StockLedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + ` FROM ledger_entries
		WHERE location_type = $1 AND location_id = $2 AND product_id = $3 AND batch_id = $4 AND unit_id = $5`
	e, err := scanLedgerEntry(r.q.QueryRow(ctx, query, ledgerKeyArgs(key)...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &entity.StockLedgerEntry{Key: key, Quantity: decimal.Zero}, nil
		}
		return nil, fmt.Errorf("get ledger entry: %w", err)
	}
	return e, nil
}

// GetForUpdate crea la fila en cero si falta y la bloquea (SELECT FOR UPDATE) hasta el fin de la tx.
// Insertar antes de bloquear evita que dos créditos concurrentes sobre una fila nueva se pisen.
func (r *LedgerRepo) GetForUpdate(ctx context.Context, key entity.LedgerKey) (*entity.StockLedgerEntry, error) {
	insert := `
		INSERT INTO ledger_entries (location_type, location_id, product_id, batch_id, unit_id, quantity, updated_at)
		VALUES ($1, $2, $3, $4, $5, 0, now())
		ON CONFLICT (location_type, location_id, product_id, batch_id, unit_id) DO NOTHING`
	if _, err := r.q.Exec(ctx, insert, ledgerKeyArgs(key)...); err != nil {
		return nil, fmt.Errorf("ensure ledger entry: %w", err)
	}
	query := `SELECT ` + ledgerColumns + ` FROM ledger_entries
		WHERE location_type = $1 AND location_id = $2 AND product_id = $3 AND batch_id = $4 AND unit_id = $5
		FOR UPDATE`
	e, err := scanLedgerEntry(r.q.QueryRow(ctx, query, ledgerKeyArgs(key)...))
	if err != nil {
		return nil, fmt.Errorf("get ledger entry for update: %w", err)
	}
	return e, nil
}

// Upsert escribe la cantidad absoluta de la fila. El CHECK (quantity >= 0) de la tabla respalda la invariante.
func (r *LedgerRepo) Upsert(ctx context.Context, entry *entity.StockLedgerEntry) error {
	query := `
		INSERT INTO ledger_entries (location_type, location_id, product_id, batch_id, unit_id, quantity, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (location_type, location_id, product_id, batch_id, unit_id)
		DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = now()`
	args := append(ledgerKeyArgs(entry.Key), entry.Quantity)
	if _, err := r.q.Exec(ctx, query, args...); err != nil {
		if isCheckViolation(err) {
			return fmt.Errorf("upsert ledger entry %s: %w", entry.Key, errNegativeQuantity)
		}
		return fmt.Errorf("upsert ledger entry: %w", err)
	}
	return nil
}

// ListByLocation lista las filas de una ubicación ordenadas por producto, lote y unidad.
func (r *LedgerRepo) ListByLocation(ctx context.Context, loc entity.Location) ([]*entity.StockLedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + ` FROM ledger_entries
		WHERE location_type = $1 AND location_id = $2
		ORDER BY product_id, batch_id, unit_id`
	rows, err := r.q.Query(ctx, query, string(loc.Type), loc.ID)
	if err != nil {
		return nil, fmt.Errorf("list ledger by location: %w", err)
	}
	defer rows.Close()
	var list []*entity.StockLedgerEntry
	for rows.Next() {
		e, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

// MarkOperation inserta el id de operación; si ya existía (reintento) devuelve false.
// Un segundo INSERT concurrente espera al commit del primero y luego cae en el conflicto.
func (r *LedgerRepo) MarkOperation(ctx context.Context, operationID string) (bool, error) {
	tag, err := r.q.Exec(ctx,
		`INSERT INTO ledger_operations (operation_id, created_at) VALUES ($1, now()) ON CONFLICT (operation_id) DO NOTHING`,
		operationID)
	if err != nil {
		return false, fmt.Errorf("mark operation: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func ledgerKeyArgs(k entity.LedgerKey) []any {
	return []any{string(k.Location.Type), k.Location.ID, k.ProductID, k.BatchID, k.UnitID}
}

func scanLedgerEntry(row pgx.Row) (*entity.StockLedgerEntry, error) {
	var e entity.StockLedgerEntry
	var locType string
	err := row.Scan(&locType, &e.Key.Location.ID, &e.Key.ProductID, &e.Key.BatchID, &e.Key.UnitID, &e.Quantity, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	e.Key.Location.Type = entity.LocationType(locType)
	return &e, nil
}
