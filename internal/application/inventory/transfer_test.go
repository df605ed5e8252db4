package inventory_test

import (
	"context"
	"testing"

	"github.com/jhoicas/inventario-conciliacion/internal/application/inventory"
	"github.com/jhoicas/inventario-conciliacion/internal/domain"
	"github.com/jhoicas/inventario-conciliacion/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cajas(n string) inventory.TransferItemInput {
	return inventory.TransferItemInput{ProductID: "p1", BatchID: "b1", UnitID: "u10", Quantity: dec(n)}
}

func unidades(n string) inventory.TransferItemInput {
	return inventory.TransferItemInput{ProductID: "p1", BatchID: "b1", UnitID: "u1", Quantity: dec(n)}
}

func (e *env) nuevoTraslado(t *testing.T, items ...inventory.TransferItemInput) *entity.Transfer {
	t.Helper()
	tr, err := e.transfers.Create(context.Background(), inventory.CreateTransferInput{
		UserID:      "bod-1",
		Source:      bodega,
		Destination: tienda,
		Items:       items,
	})
	require.NoError(t, err)
	return tr
}

// ──── Create ────

func TestTransferCreate_DebitaOrigenEnUnidadesBase(t *testing.T) {
	e := newEnv(t)
	e.seed(key(bodega, "u10"), "100")

	tr := e.nuevoTraslado(t, cajas("2"))
	assert.Equal(t, entity.TransferPending, tr.Status)
	requireBase(t, e, key(bodega, "u10"), "80")
	requireBase(t, e, key(tienda, "u10"), "0")
	assert.Equal(t, 1, e.metrics.get("transfer:PENDING"))

	movs := e.store.Movements()
	require.Len(t, movs, 1)
	assert.Equal(t, tr.ID, movs[0].Reference)
	assert.Equal(t, entity.MovementTypeTransferOut, movs[0].Type)
}

func TestTransferCreate_TodoONada(t *testing.T) {
	e := newEnv(t)
	e.seed(key(bodega, "u10"), "100")
	e.seed(key(bodega, "u1"), "3")

	_, err := e.transfers.Create(context.Background(), inventory.CreateTransferInput{
		Source:      bodega,
		Destination: tienda,
		Items:       []inventory.TransferItemInput{cajas("2"), unidades("4")},
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	requireBase(t, e, key(bodega, "u10"), "100")
	requireBase(t, e, key(bodega, "u1"), "3")
	assert.Empty(t, e.store.Movements())
}

func TestTransferCreate_ItemsSobreLaMismaFilaSeSuman(t *testing.T) {
	e := newEnv(t)
	e.seed(key(bodega, "u1"), "5")

	_, err := e.transfers.Create(context.Background(), inventory.CreateTransferInput{
		Source:      bodega,
		Destination: tienda,
		Items:       []inventory.TransferItemInput{unidades("3"), unidades("3")},
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	requireBase(t, e, key(bodega, "u1"), "5")
}

func TestTransferCreate_MismaUbicacion(t *testing.T) {
	e := newEnv(t)
	_, err := e.transfers.Create(context.Background(), inventory.CreateTransferInput{
		Source:      tienda,
		Destination: entity.Location{Type: entity.LocationShop, ID: "tienda-1"},
		Items:       []inventory.TransferItemInput{unidades("1")},
	})
	assert.ErrorIs(t, err, domain.ErrSelfTransfer)
}

func TestTransferCreate_MismoIDEntreTiposNoEsAutoTraslado(t *testing.T) {
	e := newEnv(t)
	dup := entity.Location{Type: entity.LocationShop, ID: "bodega-1"}
	e.seed(key(bodega, "u1"), "5")

	_, err := e.transfers.Create(context.Background(), inventory.CreateTransferInput{
		Source:      bodega,
		Destination: dup,
		Items:       []inventory.TransferItemInput{unidades("1")},
	})
	require.NoError(t, err)
}

func TestTransferCreate_EntradasInvalidas(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	cases := []struct {
		name string
		in   inventory.CreateTransferInput
		want error
	}{
		{"sin ítems", inventory.CreateTransferInput{Source: bodega, Destination: tienda}, domain.ErrInvalidInput},
		{"cantidad cero", inventory.CreateTransferInput{Source: bodega, Destination: tienda, Items: []inventory.TransferItemInput{unidades("0")}}, domain.ErrInvalidInput},
		{"origen vacío", inventory.CreateTransferInput{Destination: tienda, Items: []inventory.TransferItemInput{unidades("1")}}, domain.ErrInvalidInput},
		{"unidad desconocida", inventory.CreateTransferInput{Source: bodega, Destination: tienda, Items: []inventory.TransferItemInput{{ProductID: "p1", UnitID: "zz", Quantity: dec("1")}}}, domain.ErrUnknownUnit},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.transfers.Create(ctx, tc.in)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestTransferCreate_ReintentoConMismoIDNoDebitaDosVeces(t *testing.T) {
	e := newEnv(t)
	e.seed(key(bodega, "u1"), "10")
	in := inventory.CreateTransferInput{
		ID:          "7f7b5f5e-1c1d-4a52-9d1e-2f0c8a1b3c4d",
		Source:      bodega,
		Destination: tienda,
		Items:       []inventory.TransferItemInput{unidades("4")},
	}

	first, err := e.transfers.Create(context.Background(), in)
	require.NoError(t, err)
	second, err := e.transfers.Create(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	requireBase(t, e, key(bodega, "u1"), "6")
	assert.Len(t, e.store.Movements(), 1)
}

// ──── Complete ────

func TestTransferComplete_AcreditaDestinoUnaSolaVez(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seed(key(bodega, "u10"), "100")
	tr := e.nuevoTraslado(t, cajas("2"))

	done, err := e.transfers.Complete(ctx, tr.ID, e.vendedor)
	require.NoError(t, err)
	assert.Equal(t, entity.TransferCompleted, done.Status)
	requireBase(t, e, key(tienda, "u10"), "20")

	again, err := e.transfers.Complete(ctx, tr.ID, e.vendedor)
	require.NoError(t, err)
	assert.Equal(t, entity.TransferCompleted, again.Status)
	requireBase(t, e, key(tienda, "u10"), "20")
	requireBase(t, e, key(bodega, "u10"), "80")
	assert.Equal(t, 1, e.metrics.get("transfer:COMPLETED"))

	q, err := e.ledger.AvailableQuantity(ctx, key(tienda, "u10"))
	require.NoError(t, err)
	assert.True(t, q.Equal(dec("2")))
}

func TestTransferComplete_SinAccesoAlDestino(t *testing.T) {
	e := newEnv(t)
	e.seed(key(bodega, "u1"), "10")
	tr := e.nuevoTraslado(t, unidades("1"))

	_, err := e.transfers.Complete(context.Background(), tr.ID, e.bodeguero)
	assert.ErrorIs(t, err, domain.ErrAccessDenied)
	requireBase(t, e, key(tienda, "u1"), "0")

	got, err := e.transfers.Get(context.Background(), tr.ID, e.admin)
	require.NoError(t, err)
	assert.Equal(t, entity.TransferPending, got.Status)
}

func TestTransferComplete_AccesoPorIdentidadNoPorTipo(t *testing.T) {
	e := newEnv(t)
	e.seed(key(bodega, "u1"), "10")
	tr, err := e.transfers.Create(context.Background(), inventory.CreateTransferInput{
		Source:      bodega,
		Destination: entity.Location{Type: entity.LocationStore, ID: "tienda-1"},
		Items:       []inventory.TransferItemInput{unidades("1")},
	})
	require.NoError(t, err)

	// el vendedor tiene la tienda "tienda-1", no una bodega con ese id
	_, err = e.transfers.Complete(context.Background(), tr.ID, e.vendedor)
	assert.ErrorIs(t, err, domain.ErrAccessDenied)
}

func TestTransferComplete_Cancelado(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seed(key(bodega, "u1"), "10")
	tr := e.nuevoTraslado(t, unidades("1"))
	_, err := e.transfers.Cancel(ctx, tr.ID, e.bodeguero)
	require.NoError(t, err)

	_, err = e.transfers.Complete(ctx, tr.ID, e.vendedor)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestTransferComplete_Inexistente(t *testing.T) {
	e := newEnv(t)
	_, err := e.transfers.Complete(context.Background(), "no-existe", e.admin)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// ──── Cancel ────

func TestTransferCancel_DevuelveExactamenteAlOrigen(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seed(key(bodega, "u10"), "100")
	e.seed(key(bodega, "u1"), "7")
	tr := e.nuevoTraslado(t, cajas("3"), unidades("7"))
	requireBase(t, e, key(bodega, "u10"), "70")
	requireBase(t, e, key(bodega, "u1"), "0")

	got, err := e.transfers.Cancel(ctx, tr.ID, e.bodeguero)
	require.NoError(t, err)
	assert.Equal(t, entity.TransferCancelled, got.Status)
	requireBase(t, e, key(bodega, "u10"), "100")
	requireBase(t, e, key(bodega, "u1"), "7")
	requireBase(t, e, key(tienda, "u10"), "0")

	// cancelar de nuevo no vuelve a acreditar
	_, err = e.transfers.Cancel(ctx, tr.ID, e.bodeguero)
	require.NoError(t, err)
	requireBase(t, e, key(bodega, "u10"), "100")
	assert.Equal(t, 1, e.metrics.get("transfer:CANCELLED"))
}

func TestTransferCancel_SinPermiso(t *testing.T) {
	e := newEnv(t)
	e.seed(key(bodega, "u1"), "10")
	tr := e.nuevoTraslado(t, unidades("1"))

	_, err := e.transfers.Cancel(context.Background(), tr.ID, e.vendedor)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	requireBase(t, e, key(bodega, "u1"), "9")
}

func TestTransferCancel_Completado(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seed(key(bodega, "u1"), "10")
	tr := e.nuevoTraslado(t, unidades("1"))
	_, err := e.transfers.Complete(ctx, tr.ID, e.admin)
	require.NoError(t, err)

	_, err = e.transfers.Cancel(ctx, tr.ID, e.admin)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	requireBase(t, e, key(bodega, "u1"), "9")
	requireBase(t, e, key(tienda, "u1"), "1")
}

func TestTransferGet_OtraEmpresa(t *testing.T) {
	e := newEnv(t)
	e.seed(key(bodega, "u1"), "10")
	tr, err := e.transfers.Create(context.Background(), inventory.CreateTransferInput{
		CompanyID:   "empresa-a",
		Source:      bodega,
		Destination: tienda,
		Items:       []inventory.TransferItemInput{unidades("1")},
	})
	require.NoError(t, err)

	otro := e.admin
	otro.CompanyID = "empresa-b"
	_, err = e.transfers.Get(context.Background(), tr.ID, otro)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTransferCreate_ReintentoDeOtraEmpresa(t *testing.T) {
	e := newEnv(t)
	e.seed(key(bodega, "u1"), "10")
	in := inventory.CreateTransferInput{
		ID:          "0b7c9a2e-5d41-4f7e-8a3b-6c2d1e0f9a8b",
		CompanyID:   "empresa-b",
		Source:      bodega,
		Destination: tienda,
		Items:       []inventory.TransferItemInput{unidades("1")},
	}
	_, err := e.transfers.Create(context.Background(), in)
	require.NoError(t, err)

	in.CompanyID = "empresa-a"
	got, err := e.transfers.Create(context.Background(), in)
	assert.ErrorIs(t, err, domain.ErrDuplicate)
	assert.Nil(t, got, "no expone el traslado de otra empresa")
	requireBase(t, e, key(bodega, "u1"), "9")
}

func TestTransferCreate_ReintentoConOtroContenido(t *testing.T) {
	e := newEnv(t)
	e.seed(key(bodega, "u1"), "10")
	in := inventory.CreateTransferInput{
		ID:          "3e1f2a4b-9c8d-4e7f-a6b5-c4d3e2f1a0b9",
		Source:      bodega,
		Destination: tienda,
		Items:       []inventory.TransferItemInput{unidades("1")},
	}
	_, err := e.transfers.Create(context.Background(), in)
	require.NoError(t, err)

	cambios := map[string]func(*inventory.CreateTransferInput){
		"otro destino":  func(in *inventory.CreateTransferInput) { in.Destination = tienda2 },
		"otra cantidad": func(in *inventory.CreateTransferInput) { in.Items = []inventory.TransferItemInput{unidades("2")} },
		"otra unidad":   func(in *inventory.CreateTransferInput) { in.Items = []inventory.TransferItemInput{cajas("1")} },
	}
	for name, cambia := range cambios {
		t.Run(name, func(t *testing.T) {
			retry := in
			cambia(&retry)
			_, err := e.transfers.Create(context.Background(), retry)
			assert.ErrorIs(t, err, domain.ErrDuplicate)
		})
	}
	requireBase(t, e, key(bodega, "u1"), "9")
}

func TestTransferCreate_BaseConMasDeSeisDecimales(t *testing.T) {
	e := newEnv(t)
	e.store.AddUnit(entity.UnitOfMeasure{ID: "u-tercio", ProductID: "p1", Name: "tercio", ConversionFactor: dec("0.333333")})
	e.seed(key(bodega, "u-tercio"), "1")

	// 0.5 * 0.333333 = 0.1666665: redondear al persistir crearía stock al cancelar
	_, err := e.transfers.Create(context.Background(), inventory.CreateTransferInput{
		Source:      bodega,
		Destination: tienda,
		Items:       []inventory.TransferItemInput{{ProductID: "p1", BatchID: "b1", UnitID: "u-tercio", Quantity: dec("0.5")}},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	requireBase(t, e, key(bodega, "u-tercio"), "1")

	// 3 * 0.333333 = 0.999999 cabe y el ida y vuelta es exacto
	tr, err := e.transfers.Create(context.Background(), inventory.CreateTransferInput{
		Source:      bodega,
		Destination: tienda,
		Items:       []inventory.TransferItemInput{{ProductID: "p1", BatchID: "b1", UnitID: "u-tercio", Quantity: dec("3")}},
	})
	require.NoError(t, err)
	requireBase(t, e, key(bodega, "u-tercio"), "0.000001")
	_, err = e.transfers.Cancel(context.Background(), tr.ID, e.bodeguero)
	require.NoError(t, err)
	requireBase(t, e, key(bodega, "u-tercio"), "1")
}
