package inventory_test

import (
	"context"
	"sync"
	"testing"

	"github.com/jhoicas/inventario-conciliacion/internal/application/inventory"
	"github.com/jhoicas/inventario-conciliacion/internal/domain/entity"
	"github.com/jhoicas/inventario-conciliacion/internal/infrastructure/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var (
	bodega  = entity.Location{Type: entity.LocationStore, ID: "bodega-1"}
	tienda  = entity.Location{Type: entity.LocationShop, ID: "tienda-1"}
	tienda2 = entity.Location{Type: entity.LocationShop, ID: "tienda-2"}
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// spyMetrics cuenta las llamadas por etiqueta.
type spyMetrics struct {
	mu     sync.Mutex
	counts map[string]int
}

func newSpyMetrics() *spyMetrics { return &spyMetrics{counts: make(map[string]int)} }

func (s *spyMetrics) inc(k string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[k]++
}

func (s *spyMetrics) get(k string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[k]
}

func (s *spyMetrics) LedgerDelta(result string) { s.inc("ledger:" + result) }
func (s *spyMetrics) TransferTransition(to entity.TransferStatus) {
	s.inc("transfer:" + string(to))
}
func (s *spyMetrics) CorrectionTransition(to entity.CorrectionStatus) {
	s.inc("correction:" + string(to))
}
func (s *spyMetrics) AmbiguousMatch() { s.inc("ambiguous") }

type env struct {
	store       *memory.Store
	metrics     *spyMetrics
	ledger      *inventory.LedgerUseCase
	transfers   *inventory.TransferUseCase
	corrections *inventory.CorrectionUseCase

	admin     entity.Actor
	bodeguero entity.Actor
	vendedor  entity.Actor
}

// newEnv producto p1 con unidad base u1 y caja u10 (factor 10), lote b1.
func newEnv(t *testing.T) *env {
	t.Helper()
	store := memory.NewStore(100, nil)
	store.AddUnit(entity.UnitOfMeasure{ID: "u1", ProductID: "p1", Name: "unidad", ConversionFactor: dec("1"), IsBase: true})
	store.AddUnit(entity.UnitOfMeasure{ID: "u10", ProductID: "p1", Name: "caja", ConversionFactor: dec("10")})
	store.AddUnit(entity.UnitOfMeasure{ID: "u-p2", ProductID: "p2", Name: "unidad", ConversionFactor: dec("1"), IsBase: true})
	store.AddBatch(entity.Batch{ID: "b1", ProductID: "p1", BatchNumber: "L-001"})
	store.AddBatch(entity.Batch{ID: "b-p2", ProductID: "p2", BatchNumber: "L-900"})

	m := newSpyMetrics()
	e := &env{
		store:       store,
		metrics:     m,
		ledger:      inventory.NewLedgerUseCase(store, store, m, nil),
		transfers:   inventory.NewTransferUseCase(store, store, m, nil),
		corrections: inventory.NewCorrectionUseCase(store, store, m, nil),
		admin:       actor("admin-1", entity.RoleAdmin, []string{"tienda-1"}, nil),
		bodeguero:   actor("bod-1", entity.RoleBodeguero, nil, []string{"bodega-1"}),
		vendedor:    actor("ven-1", entity.RoleVendedor, []string{"tienda-1", "tienda-2"}, nil),
	}
	return e
}

func actor(userID, role string, shops, stores []string) entity.Actor {
	return entity.Actor{
		UserID:      userID,
		Role:        role,
		Locations:   entity.NewActorLocations(shops, stores),
		Permissions: entity.PermissionsForRole(role),
	}
}

func key(loc entity.Location, unit string) entity.LedgerKey {
	return entity.LedgerKey{Location: loc, ProductID: "p1", BatchID: "b1", UnitID: unit}
}

// seed fija unidades base en la fila.
func (e *env) seed(k entity.LedgerKey, base string) {
	e.store.SetStock(entity.StockLedgerEntry{Key: k, Quantity: dec(base)})
}

// base devuelve el disponible de la fila en unidades base.
func (e *env) base(t *testing.T, k entity.LedgerKey) decimal.Decimal {
	t.Helper()
	var q decimal.Decimal
	err := e.store.Run(context.Background(), func(ctx context.Context, repos inventory.TxRepos) error {
		entry, err := repos.Ledger.Get(ctx, k)
		if err != nil {
			return err
		}
		q = entry.Quantity
		return nil
	})
	require.NoError(t, err)
	return q
}

func requireBase(t *testing.T, e *env, k entity.LedgerKey, want string) {
	t.Helper()
	got := e.base(t, k)
	require.True(t, got.Equal(dec(want)), "%s: esperado %s, obtenido %s", k, want, got)
}
