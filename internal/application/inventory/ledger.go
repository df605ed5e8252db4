package inventory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/inventario-conciliacion/internal/domain"
	"github.com/jhoicas/inventario-conciliacion/internal/domain/entity"
	domaininv "github.com/jhoicas/inventario-conciliacion/internal/domain/inventory"
	"github.com/jhoicas/inventario-conciliacion/internal/domain/repository"
	"github.com/shopspring/decimal"
)

// movementInfo datos de auditoría que acompañan a un lote de deltas.
type movementInfo struct {
	OperationID string
	Type        string
	Reference   string
	UserID      string
}

// applyDeltas aplica varios deltas como una sola unidad: agrupa por fila, bloquea todas las filas
// en orden de clave (SELECT FOR UPDATE), valida que ninguna quede negativa y recién entonces escribe.
// Debe llamarse dentro de TxRunner.Run; un error deja el ledger intacto.
func applyDeltas(ctx context.Context, repos TxRepos, deltas []entity.LedgerDelta, info movementInfo, now time.Time) error {
	merged := make(map[string]*entity.LedgerDelta, len(deltas))
	keys := make([]string, 0, len(deltas))
	for _, d := range deltas {
		k := d.Key.String()
		if m, ok := merged[k]; ok {
			m.Delta = m.Delta.Add(d.Delta)
			continue
		}
		cp := d
		merged[k] = &cp
		keys = append(keys, k)
	}
	sort.Strings(keys)

	// Fase 1: bloquear y validar todas las filas antes de escribir cualquiera.
	entries := make([]*entity.StockLedgerEntry, len(keys))
	for i, k := range keys {
		d := merged[k]
		entry, err := repos.Ledger.GetForUpdate(ctx, d.Key)
		if err != nil {
			return err
		}
		next := entry.Quantity.Add(d.Delta)
		if next.IsNegative() {
			return fmt.Errorf("%s: disponible %s, delta %s: %w", k, entry.Quantity, d.Delta, domain.ErrInsufficientStock)
		}
		entry.Quantity = next
		entry.UpdatedAt = now
		entries[i] = entry
	}

	// Fase 2: escribir filas e historial.
	for i, entry := range entries {
		d := merged[keys[i]]
		if d.Delta.IsZero() {
			continue
		}
		if err := repos.Ledger.Upsert(ctx, entry); err != nil {
			return err
		}
		mov := &entity.InventoryMovement{
			ID:          uuid.New().String(),
			OperationID: info.OperationID,
			Key:         entry.Key,
			Type:        info.Type,
			Quantity:    d.Delta,
			Balance:     entry.Quantity,
			Reference:   info.Reference,
			CreatedAt:   now,
			CreatedBy:   info.UserID,
		}
		if err := repos.Movements.Create(ctx, mov); err != nil {
			return err
		}
	}
	return nil
}

// loadCatalog arma el catálogo de la petición con las unidades y lotes referenciados.
func loadCatalog(ctx context.Context, repo repository.CatalogRepository, unitIDs, batchIDs []string) (*domaininv.Catalog, error) {
	units, err := repo.UnitsByIDs(ctx, uniqueNonEmpty(unitIDs))
	if err != nil {
		return nil, err
	}
	var batches []*entity.Batch
	if ids := uniqueNonEmpty(batchIDs); len(ids) > 0 {
		batches, err = repo.BatchesByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
	}
	return domaininv.NewCatalog(units, batches), nil
}

func uniqueNonEmpty(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// baseDeltas convierte cantidades con signo (en la unidad de cada fila) a deltas en unidades base.
// Cantidad y base deben caber en entity.QuantityScale; si no, el débito y su reverso no cuadrarían.
func baseDeltas(cat *domaininv.Catalog, keys []entity.LedgerKey, quantities []decimal.Decimal) ([]entity.LedgerDelta, error) {
	out := make([]entity.LedgerDelta, 0, len(keys))
	for i, k := range keys {
		if err := checkScale(quantities[i]); err != nil {
			return nil, err
		}
		base, err := cat.ToBase(k.ProductID, k.UnitID, quantities[i])
		if err != nil {
			return nil, err
		}
		if err := checkScale(base); err != nil {
			return nil, fmt.Errorf("%s en unidad base: %w", k, err)
		}
		out = append(out, entity.LedgerDelta{Key: k, Delta: base})
	}
	return out, nil
}

func checkScale(q decimal.Decimal) error {
	if !entity.FitsQuantityScale(q) {
		return fmt.Errorf("cantidad %s con más de %d decimales: %w", q, entity.QuantityScale, domain.ErrInvalidInput)
	}
	return nil
}
