package http_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-conciliacion/internal/application/dto"
	"github.com/jhoicas/inventario-conciliacion/internal/application/inventory"
	"github.com/jhoicas/inventario-conciliacion/internal/domain/entity"
	"github.com/jhoicas/inventario-conciliacion/internal/infrastructure/memory"
	"github.com/jhoicas/inventario-conciliacion/internal/infrastructure/metrics"
	apphttp "github.com/jhoicas/inventario-conciliacion/internal/interfaces/http"
)

const (
	adminID     = "u-admin"
	bodegueroID = "u-bod"
	vendedorID  = "u-ven"
)

type api struct {
	t     *testing.T
	app   *fiber.App
	store *memory.Store
}

// newAPI app completa sobre el store en memoria: p1 con u1 (base) y u10 (caja de 10), lote b1,
// bodega-1 (STORE), tienda-1 (SHOP) y la venta s1 (5 u1 a 10 en tienda-1).
func newAPI(t *testing.T) *api {
	t.Helper()
	store := memory.NewStore(100, nil)
	one, ten := decimal.NewFromInt(1), decimal.NewFromInt(10)
	store.AddUnit(entity.UnitOfMeasure{ID: "u1", ProductID: "p1", Name: "unidad", ConversionFactor: one, IsBase: true})
	store.AddUnit(entity.UnitOfMeasure{ID: "u10", ProductID: "p1", Name: "caja", ConversionFactor: ten})
	store.AddBatch(entity.Batch{ID: "b1", ProductID: "p1", BatchNumber: "L-001"})
	store.SetActorLocations(adminID, []string{"tienda-1"}, []string{"bodega-1"})
	store.SetActorLocations(bodegueroID, nil, []string{"bodega-1"})
	store.SetActorLocations(vendedorID, []string{"tienda-1"}, nil)
	store.AddTransaction(entity.Transaction{
		ID:         "s1",
		Kind:       entity.TransactionSale,
		GrandTotal: decimal.NewFromInt(50),
		Items: []entity.TransactionItem{{
			ID:         "s1-1",
			ProductID:  "p1",
			Location:   entity.Location{Type: entity.LocationShop, ID: "tienda-1"},
			BatchID:    "b1",
			UnitID:     "u1",
			Quantity:   decimal.NewFromInt(5),
			UnitPrice:  ten,
			TotalPrice: decimal.NewFromInt(50),
		}},
	})

	prom := metrics.New("test")
	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		LedgerUC:     inventory.NewLedgerUseCase(store, store, prom, nil),
		TransferUC:   inventory.NewTransferUseCase(store, store, prom, nil),
		CorrectionUC: inventory.NewCorrectionUseCase(store, store, prom, nil),
		Locations:    store,
		Metrics:      prom,
		MetricsPage:  prom.Handler(),
		JWTSecret:    testJWTSecret,
		JWTIssuer:    testIssuer,
		ServiceName:  "test",
	})
	return &api{t: t, app: app, store: store}
}

func (a *api) seed(locType entity.LocationType, locID, unit string, base int64) {
	a.store.SetStock(entity.StockLedgerEntry{
		Key:      entity.LedgerKey{Location: entity.Location{Type: locType, ID: locID}, ProductID: "p1", BatchID: "b1", UnitID: unit},
		Quantity: decimal.NewFromInt(base),
	})
}

// do ejecuta la petición como userID/role (userID vacío = sin token) y decodifica el body en out si no es nil.
func (a *api) do(method, path, userID, role string, body interface{}, out interface{}, headers ...string) *http.Response {
	a.t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("Authorization", tokenFor(a.t, userID, role))
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := a.app.Test(req, -1)
	require.NoError(a.t, err)
	if out != nil {
		defer resp.Body.Close()
		require.NoError(a.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func errorCode(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	var e dto.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&e))
	return e.Code
}

func transferBody(qty string) fiber.Map {
	return fiber.Map{
		"source":      fiber.Map{"type": "STORE", "id": "bodega-1"},
		"destination": fiber.Map{"type": "SHOP", "id": "tienda-1"},
		"items":       []fiber.Map{{"product_id": "p1", "batch_id": "b1", "unit_id": "u10", "quantity": qty}},
	}
}

// ──── Salud y métricas ────

func TestHealth(t *testing.T) {
	a := newAPI(t)
	resp := a.do(http.MethodGet, "/health", "", "", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMetrics_ExponeContadoresHTTP(t *testing.T) {
	a := newAPI(t)
	a.do(http.MethodGet, "/health", "", "", nil, nil)

	resp := a.do(http.MethodGet, "/metrics", "", "", nil, nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	raw, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(raw), `test_http_requests_total{method="GET",route="/health",status="200"} 1`)
}

func TestAPI_SinToken(t *testing.T) {
	a := newAPI(t)
	resp := a.do(http.MethodGet, "/api/transfers/x", "", "", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

// ──── Ledger ────

func TestAvailable_EnUnidadPedida(t *testing.T) {
	a := newAPI(t)
	a.seed(entity.LocationStore, "bodega-1", "u10", 120)

	var out dto.AvailableQuantityResponse
	resp := a.do(http.MethodGet, "/api/inventory/available?location_type=STORE&location_id=bodega-1&product_id=p1&batch_id=b1&unit_id=u10", vendedorID, entity.RoleVendedor, nil, &out)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, out.Quantity.Equal(decimal.NewFromInt(12)), out.Quantity.String())
}

func TestAvailable_QueryIncompleta(t *testing.T) {
	a := newAPI(t)
	resp := a.do(http.MethodGet, "/api/inventory/available?location_type=STORE&location_id=bodega-1&product_id=p1", vendedorID, entity.RoleVendedor, nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION", errorCode(t, resp))
}

func TestAvailable_UnidadDesconocida(t *testing.T) {
	a := newAPI(t)
	resp := a.do(http.MethodGet, "/api/inventory/available?location_type=STORE&location_id=bodega-1&product_id=p1&unit_id=zz", vendedorID, entity.RoleVendedor, nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "UNKNOWN_UNIT", errorCode(t, resp))
}

func TestLocationStock_Paginado(t *testing.T) {
	a := newAPI(t)
	a.seed(entity.LocationStore, "bodega-1", "u1", 3)
	a.seed(entity.LocationStore, "bodega-1", "u10", 40)

	var out dto.LocationStockResponse
	resp := a.do(http.MethodGet, "/api/inventory/locations/STORE/bodega-1/stock?limit=1&offset=1", bodegueroID, entity.RoleBodeguero, nil, &out)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, out.Entries, 1)
	assert.Equal(t, "u10", out.Entries[0].UnitID)
	assert.Equal(t, 2, out.Page.Total)
}

func TestLocationStock_LimiteFueraDeRango(t *testing.T) {
	a := newAPI(t)
	a.seed(entity.LocationStore, "bodega-1", "u1", 3)

	for _, q := range []string{"limit=500", "limit=0", "offset=-1"} {
		t.Run(q, func(t *testing.T) {
			resp := a.do(http.MethodGet, "/api/inventory/locations/STORE/bodega-1/stock?"+q, bodegueroID, entity.RoleBodeguero, nil, nil)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, "VALIDATION", errorCode(t, resp))
		})
	}
}

func TestApplyDelta_SoloAdmin(t *testing.T) {
	a := newAPI(t)
	body := fiber.Map{"location": fiber.Map{"type": "STORE", "id": "bodega-1"}, "product_id": "p1", "batch_id": "b1", "unit_id": "u1", "delta": "5"}
	resp := a.do(http.MethodPost, "/api/inventory/deltas", bodegueroID, entity.RoleBodeguero, body, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestApplyDelta_IdempotencyKey(t *testing.T) {
	a := newAPI(t)
	body := fiber.Map{"location": fiber.Map{"type": "STORE", "id": "bodega-1"}, "product_id": "p1", "batch_id": "b1", "unit_id": "u1", "delta": "5"}
	for i := 0; i < 2; i++ {
		resp := a.do(http.MethodPost, "/api/inventory/deltas", adminID, entity.RoleAdmin, body, nil, "Idempotency-Key", "op-http-1")
		require.Equal(t, http.StatusNoContent, resp.StatusCode)
	}

	var out dto.AvailableQuantityResponse
	a.do(http.MethodGet, "/api/inventory/available?location_type=STORE&location_id=bodega-1&product_id=p1&batch_id=b1&unit_id=u1", adminID, entity.RoleAdmin, nil, &out)
	assert.True(t, out.Quantity.Equal(decimal.NewFromInt(5)), out.Quantity.String())
}

func TestApplyDelta_Insuficiente(t *testing.T) {
	a := newAPI(t)
	body := fiber.Map{"location": fiber.Map{"type": "STORE", "id": "bodega-1"}, "product_id": "p1", "unit_id": "u1", "delta": "-1"}
	resp := a.do(http.MethodPost, "/api/inventory/deltas", adminID, entity.RoleAdmin, body, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "INSUFFICIENT_STOCK", errorCode(t, resp))
}

// ──── Traslados ────

func TestTransfers_CicloCompleto(t *testing.T) {
	a := newAPI(t)
	a.seed(entity.LocationStore, "bodega-1", "u10", 100)

	var created dto.TransferResponse
	resp := a.do(http.MethodPost, "/api/transfers", bodegueroID, entity.RoleBodeguero, transferBody("2"), &created)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "PENDING", created.Status)

	// el bodeguero no tiene la tienda destino
	resp = a.do(http.MethodPost, "/api/transfers/"+created.ID+"/complete", bodegueroID, entity.RoleBodeguero, nil, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "ACCESS_DENIED", errorCode(t, resp))

	var done dto.TransferResponse
	resp = a.do(http.MethodPost, "/api/transfers/"+created.ID+"/complete", vendedorID, entity.RoleVendedor, nil, &done)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "COMPLETED", done.Status)

	resp = a.do(http.MethodPost, "/api/transfers/"+created.ID+"/cancel", adminID, entity.RoleAdmin, nil, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "INVALID_TRANSITION", errorCode(t, resp))

	var out dto.AvailableQuantityResponse
	a.do(http.MethodGet, "/api/inventory/available?location_type=SHOP&location_id=tienda-1&product_id=p1&batch_id=b1&unit_id=u10", vendedorID, entity.RoleVendedor, nil, &out)
	assert.True(t, out.Quantity.Equal(decimal.NewFromInt(2)), out.Quantity.String())
}

func TestTransfers_CancelarRequiereRol(t *testing.T) {
	a := newAPI(t)
	a.seed(entity.LocationStore, "bodega-1", "u10", 100)
	var created dto.TransferResponse
	a.do(http.MethodPost, "/api/transfers", bodegueroID, entity.RoleBodeguero, transferBody("1"), &created)

	resp := a.do(http.MethodPost, "/api/transfers/"+created.ID+"/cancel", vendedorID, entity.RoleVendedor, nil, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	var cancelled dto.TransferResponse
	resp = a.do(http.MethodPost, "/api/transfers/"+created.ID+"/cancel", bodegueroID, entity.RoleBodeguero, nil, &cancelled)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "CANCELLED", cancelled.Status)
}

func TestTransfers_Errores(t *testing.T) {
	a := newAPI(t)
	a.seed(entity.LocationStore, "bodega-1", "u10", 10)

	self := transferBody("1")
	self["destination"] = fiber.Map{"type": "STORE", "id": "bodega-1"}
	noItems := transferBody("1")
	noItems["items"] = []fiber.Map{}
	badID := transferBody("1")
	badID["id"] = "no-es-uuid"

	cases := []struct {
		name   string
		body   fiber.Map
		status int
		code   string
	}{
		{"mismo origen y destino", self, http.StatusBadRequest, "SELF_TRANSFER"},
		{"sin ítems", noItems, http.StatusBadRequest, "VALIDATION"},
		{"id no uuid", badID, http.StatusBadRequest, "VALIDATION"},
		{"stock insuficiente", transferBody("2"), http.StatusConflict, "INSUFFICIENT_STOCK"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := a.do(http.MethodPost, "/api/transfers", bodegueroID, entity.RoleBodeguero, tc.body, nil)
			assert.Equal(t, tc.status, resp.StatusCode)
			assert.Equal(t, tc.code, errorCode(t, resp))
		})
	}
}

func TestTransfers_Inexistente(t *testing.T) {
	a := newAPI(t)
	resp := a.do(http.MethodGet, "/api/transfers/no-existe", adminID, entity.RoleAdmin, nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// ──── Correcciones y conciliación ────

func TestCorrections_AprobarConciliaVenta(t *testing.T) {
	a := newAPI(t)
	body := fiber.Map{
		"reason":   "MANUAL_ADJUSTMENT",
		"sell_id":  "s1",
		"location": fiber.Map{"type": "SHOP", "id": "tienda-1"},
		"items":    []fiber.Map{{"product_id": "p1", "batch_id": "b1", "unit_id": "u1", "signed_quantity": "2"}},
	}
	var created dto.CorrectionResponse
	resp := a.do(http.MethodPost, "/api/corrections", vendedorID, entity.RoleVendedor, body, &created)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "PENDING", created.Status)

	status := fiber.Map{"status": "APPROVED"}
	resp = a.do(http.MethodPatch, "/api/corrections/"+created.ID+"/status", vendedorID, entity.RoleVendedor, status, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	var approved dto.CorrectionResponse
	resp = a.do(http.MethodPatch, "/api/corrections/"+created.ID+"/status", adminID, entity.RoleAdmin, status, &approved)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "APPROVED", approved.Status)

	var rec dto.ReconciliationResponse
	resp = a.do(http.MethodGet, "/api/transactions/sale/s1/reconciliation", vendedorID, entity.RoleVendedor, nil, &rec)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, rec.NetTotal.Equal(decimal.NewFromInt(30)), rec.NetTotal.String())
	assert.True(t, rec.NetDelta.Equal(decimal.NewFromInt(-20)), rec.NetDelta.String())
	require.Len(t, rec.AdjustedItems, 1)
	assert.True(t, rec.AdjustedItems[0].FinalQuantity.Equal(decimal.NewFromInt(7)))
	require.Len(t, rec.AdjustedItems[0].Adjustments, 1)
	assert.Equal(t, 0, rec.AdjustedItems[0].Adjustments[0].Line)

	// una vez aprobada no admite otra transición
	resp = a.do(http.MethodPatch, "/api/corrections/"+created.ID+"/status", adminID, entity.RoleAdmin, fiber.Map{"status": "REJECTED"}, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "INVALID_TRANSITION", errorCode(t, resp))
}

func TestCorrections_Validaciones(t *testing.T) {
	a := newAPI(t)
	loc := fiber.Map{"type": "SHOP", "id": "tienda-1"}
	items := []fiber.Map{{"product_id": "p1", "unit_id": "u1", "signed_quantity": "1"}}
	cases := []struct {
		name   string
		body   fiber.Map
		status int
		code   string
	}{
		{"motivo desconocido", fiber.Map{"reason": "OTRO", "location": loc, "items": items}, http.StatusBadRequest, "VALIDATION"},
		{"venta y compra", fiber.Map{"reason": "DAMAGED", "sell_id": "s1", "purchase_id": "c1", "location": loc, "items": items}, http.StatusBadRequest, "VALIDATION"},
		{"tipo de ubicación", fiber.Map{"reason": "DAMAGED", "location": fiber.Map{"type": "WAREHOUSE", "id": "x"}, "items": items}, http.StatusBadRequest, "VALIDATION"},
		{"venta inexistente", fiber.Map{"reason": "DAMAGED", "sell_id": "s-404", "location": loc, "items": items}, http.StatusNotFound, "NOT_FOUND"},
		{"descuento sin stock", fiber.Map{"reason": "DAMAGED", "location": loc, "items": []fiber.Map{{"product_id": "p1", "unit_id": "u1", "signed_quantity": "-1"}}}, http.StatusConflict, "INSUFFICIENT_STOCK"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := a.do(http.MethodPost, "/api/corrections", vendedorID, entity.RoleVendedor, tc.body, nil)
			assert.Equal(t, tc.status, resp.StatusCode)
			assert.Equal(t, tc.code, errorCode(t, resp))
		})
	}
}

func TestReconciliation_TransaccionInexistente(t *testing.T) {
	a := newAPI(t)
	resp := a.do(http.MethodGet, "/api/transactions/purchase/nada/reconciliation", adminID, entity.RoleAdmin, nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
