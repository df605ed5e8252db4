package postgres_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jhoicas/inventario-conciliacion/internal/application/inventory"
	"github.com/jhoicas/inventario-conciliacion/internal/domain"
	"github.com/jhoicas/inventario-conciliacion/internal/domain/entity"
	"github.com/jhoicas/inventario-conciliacion/internal/infrastructure/postgres"
	"github.com/jhoicas/inventario-conciliacion/pkg/config"
	"github.com/jhoicas/inventario-conciliacion/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Requiere Docker. Se activa con INTEGRATION_TESTS=1.
func newTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if os.Getenv("INTEGRATION_TESTS") == "" {
		t.Skip("INTEGRATION_TESTS no definido")
	}
	ctx := context.Background()
	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("inventario_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, postgres.Migrate(dsn, logger.Nop()))

	pool, err := postgres.NewPool(ctx, config.DBConfig{DatabaseURL: dsn, MaxConns: 20})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	seed := []string{
		`INSERT INTO products (id, name, base_unit_id) VALUES ('p1', 'Arroz', 'u1')`,
		`INSERT INTO units_of_measure (id, product_id, name, conversion_factor, is_base) VALUES ('u1', 'p1', 'unidad', 1, true)`,
		`INSERT INTO units_of_measure (id, product_id, name, conversion_factor, is_base) VALUES ('u10', 'p1', 'caja', 10, false)`,
		`INSERT INTO sales (id, grand_total, net_total) VALUES ('s1', 50, 50)`,
		`INSERT INTO sale_items (id, sale_id, line_no, product_id, location_type, location_id, unit_id, quantity, unit_price, total_price)
			VALUES ('l1', 's1', 0, 'p1', 'SHOP', 'tienda-1', 'u1', 5, 10, 50)`,
	}
	for _, q := range seed {
		_, err := pool.Exec(ctx, q)
		require.NoError(t, err)
	}
	return pool
}

func TestIntegration_LedgerTrasladosYCorrecciones(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()

	runner := postgres.NewTxRunner(pool)
	catalog := postgres.NewCatalogRepository(pool)
	ledger := inventory.NewLedgerUseCase(runner, catalog, nil, nil)
	transfers := inventory.NewTransferUseCase(runner, catalog, nil, nil)
	corrections := inventory.NewCorrectionUseCase(runner, catalog, nil, nil)

	bodega := entity.Location{Type: entity.LocationStore, ID: "bodega-1"}
	tienda := entity.Location{Type: entity.LocationShop, ID: "tienda-1"}
	// Filas en cajas (factor 10); el ledger guarda unidades base.
	keyBodega := entity.LedgerKey{Location: bodega, ProductID: "p1", UnitID: "u10"}
	keyTiendaCajas := entity.LedgerKey{Location: tienda, ProductID: "p1", UnitID: "u10"}
	keyTienda := entity.LedgerKey{Location: tienda, ProductID: "p1", UnitID: "u1"}

	admin := entity.Actor{
		UserID:      "admin-1",
		Role:        entity.RoleAdmin,
		Permissions: entity.PermissionsForRole(entity.RoleAdmin),
		Locations:   entity.NewActorLocations([]string{"tienda-1"}, nil),
	}

	// Alta inicial idempotente.
	for i := 0; i < 2; i++ {
		require.NoError(t, ledger.ApplyDelta(ctx, inventory.ApplyDeltaInput{OperationID: "seed-1", UserID: "admin-1", Key: keyBodega, Delta: decimal.NewFromInt(100)}))
	}
	q, err := ledger.AvailableQuantity(ctx, keyBodega)
	require.NoError(t, err)
	assert.True(t, q.Equal(decimal.NewFromInt(10)), "100 unidades base = 10 cajas, got %s", q)

	// Traslado de 2 cajas (20 unidades base).
	tr, err := transfers.Create(ctx, inventory.CreateTransferInput{
		UserID: "admin-1", Source: bodega, Destination: tienda,
		Items: []inventory.TransferItemInput{{ProductID: "p1", UnitID: "u10", Quantity: decimal.NewFromInt(2)}},
	})
	require.NoError(t, err)
	q, _ = ledger.AvailableQuantity(ctx, keyBodega)
	assert.True(t, q.Equal(decimal.NewFromInt(8)), q.String())

	_, err = transfers.Complete(ctx, tr.ID, admin)
	require.NoError(t, err)
	_, err = transfers.Complete(ctx, tr.ID, admin)
	require.NoError(t, err, "completar dos veces es no-op")
	q, _ = ledger.AvailableQuantity(ctx, keyTiendaCajas)
	assert.True(t, q.Equal(decimal.NewFromInt(2)), q.String())

	// Corrección +2 sobre la venta s1 aprobada: ledger de la tienda +2 y total neto 30.
	c, err := corrections.Create(ctx, inventory.CreateCorrectionInput{
		UserID: "admin-1", Reason: entity.ReasonManualAdjustment, SellID: "s1", Location: tienda,
		Items: []inventory.CorrectionItemInput{{ProductID: "p1", UnitID: "u1", SignedQuantity: decimal.NewFromInt(2)}},
	})
	require.NoError(t, err)
	_, err = corrections.UpdateStatus(ctx, c.ID, entity.CorrectionApproved, admin)
	require.NoError(t, err)

	out, err := corrections.ReconcileTransaction(ctx, entity.TransactionSale, "s1", admin)
	require.NoError(t, err)
	assert.True(t, out.Result.NetTotal.Equal(decimal.NewFromInt(30)), out.Result.NetTotal.String())
	assert.True(t, out.Transaction.NetTotal.Equal(decimal.NewFromInt(30)), "total neto persistido")
	q, _ = ledger.AvailableQuantity(ctx, keyTienda)
	assert.True(t, q.Equal(decimal.NewFromInt(2)), q.String())

	// Débitos concurrentes: 80 unidades base, 16 débitos de 10 -> exactamente 8 pasan.
	var wg sync.WaitGroup
	var mu sync.Mutex
	ok, insufficient := 0, 0
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := ledger.ApplyDelta(ctx, inventory.ApplyDeltaInput{Key: keyBodega, Delta: decimal.NewFromInt(-10)})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, domain.ErrInsufficientStock):
				insufficient++
			default:
				t.Errorf("error inesperado: %v", err)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 8, ok)
	assert.Equal(t, 8, insufficient)
	q, _ = ledger.AvailableQuantity(ctx, keyBodega)
	assert.True(t, q.IsZero(), q.String())

	movements, err := postgres.NewInventoryMovementRepository(pool).ListByReference(ctx, tr.ID)
	require.NoError(t, err)
	assert.Len(t, movements, 2, "débito al crear y crédito al completar")
}

func TestIntegration_AprobacionesConcurrentesSobreLaMismaVenta(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()

	runner := postgres.NewTxRunner(pool)
	catalog := postgres.NewCatalogRepository(pool)
	ledger := inventory.NewLedgerUseCase(runner, catalog, nil, nil)
	corrections := inventory.NewCorrectionUseCase(runner, catalog, nil, nil)

	tienda := entity.Location{Type: entity.LocationShop, ID: "tienda-1"}
	keyTienda := entity.LedgerKey{Location: tienda, ProductID: "p1", UnitID: "u1"}
	admin := entity.Actor{
		UserID:      "admin-1",
		Role:        entity.RoleAdmin,
		Permissions: entity.PermissionsForRole(entity.RoleAdmin),
		Locations:   entity.NewActorLocations([]string{"tienda-1"}, nil),
	}
	require.NoError(t, ledger.ApplyDelta(ctx, inventory.ApplyDeltaInput{OperationID: "seed-tienda", Key: keyTienda, Delta: decimal.NewFromInt(5)}))

	// Cada aprobación recalcula el total con todas las correcciones de s1; sin bloquear la
	// cabecera, la segunda pisaría el total de la primera.
	var ids []string
	for _, n := range []int64{2, -1, 3, -2} {
		c, err := corrections.Create(ctx, inventory.CreateCorrectionInput{
			UserID: "admin-1", Reason: entity.ReasonManualAdjustment, SellID: "s1", Location: tienda,
			Items: []inventory.CorrectionItemInput{{ProductID: "p1", UnitID: "u1", SignedQuantity: decimal.NewFromInt(n)}},
		})
		require.NoError(t, err)
		ids = append(ids, c.ID)
	}

	var wg sync.WaitGroup
	start := make(chan struct{})
	errs := make([]error, len(ids))
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			<-start
			_, errs[i] = corrections.UpdateStatus(ctx, id, entity.CorrectionApproved, admin)
		}(i, id)
	}
	close(start)
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	// 50 - (2 - 1 + 3 - 2) * 10
	out, err := corrections.ReconcileTransaction(ctx, entity.TransactionSale, "s1", admin)
	require.NoError(t, err)
	assert.True(t, out.Result.NetTotal.Equal(decimal.NewFromInt(30)), out.Result.NetTotal.String())
	assert.True(t, out.Transaction.NetTotal.Equal(decimal.NewFromInt(30)), "total neto persistido %s", out.Transaction.NetTotal)
	q, err := ledger.AvailableQuantity(ctx, keyTienda)
	require.NoError(t, err)
	assert.True(t, q.Equal(decimal.NewFromInt(7)), q.String())
}
