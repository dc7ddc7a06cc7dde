package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/jhoicas/mercado-ledger/internal/application/catalog"
	"github.com/jhoicas/mercado-ledger/internal/application/dto"
	"github.com/jhoicas/mercado-ledger/internal/application/inventory"
	"github.com/jhoicas/mercado-ledger/internal/application/session"
	"github.com/jhoicas/mercado-ledger/internal/domain/entity"
	"github.com/jhoicas/mercado-ledger/internal/domain/repository"
	"github.com/jhoicas/mercado-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/mercado-ledger/internal/infrastructure/pdf"
	apphttp "github.com/jhoicas/mercado-ledger/internal/interfaces/http"
	"github.com/jhoicas/mercado-ledger/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fixtures
// ──────────────────────────────────────────────────────────────────────────────

// newTestApp arma la API completa sobre el store en memoria:
// vendor-1 (loc-a principal, loc-b), vendor-2 (loc-x principal) y vendor-3 sin ubicaciones.
func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	require.NoError(t, store.Run(ctx, func(r repository.Repos) error {
		now := time.Now().UTC()
		for _, v := range []string{"vendor-1", "vendor-2", "vendor-3"} {
			if err := r.Vendors.Create(ctx, &entity.Vendor{ID: v, Name: v, Status: entity.VendorStatusActive, CreatedAt: now}); err != nil {
				return err
			}
		}
		for _, l := range []entity.Location{
			{ID: "loc-a", VendorID: "vendor-1", Name: "Principal", IsPrimary: true},
			{ID: "loc-b", VendorID: "vendor-1", Name: "Bodega"},
			{ID: "loc-x", VendorID: "vendor-2", Name: "Ajena", IsPrimary: true},
		} {
			l.CreatedAt = now
			if err := r.Locations.Create(ctx, &l); err != nil {
				return err
			}
		}
		return nil
	}))

	log := logger.Nop()
	app := fiber.New()
	app.Use(apphttp.Observability(log))
	apphttp.Router(app, apphttp.RouterDeps{
		Catalog:     catalog.NewCreateProductUseCase(store, log),
		Ledger:      inventory.NewLedgerUseCase(store, log),
		Transfers:   inventory.NewTransferUseCase(store, log),
		Sessions:    session.NewUseCase(store, pdf.NewSessionReportGenerator(language.Spanish, "$", nil), log),
		JWTSecret:   testJWTSecret,
		ServiceName: "mercado-ledger-test",
	})
	return app
}

func call(t *testing.T, app *fiber.App, method, path, vendorID string, body any) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if vendorID != "" {
		req.Header.Set("Authorization", bearer(t, vendorID))
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, out
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v), string(raw))
	return v
}

func errorCode(t *testing.T, raw []byte) string {
	return decode[dto.ErrorResponse](t, raw).Code
}

func simpleProduct(sku string, stock int64) dto.CreateProductRequest {
	return dto.CreateProductRequest{
		Product:      dto.ProductData{Name: "Producto " + sku, SKU: sku, ProductType: entity.ProductTypeSimple, RegularPrice: decimal.NewFromInt(20), CostPrice: decimal.NewFromInt(15)},
		InitialStock: decimal.NewFromInt(stock),
	}
}

func createProduct(t *testing.T, app *fiber.App, sku string, stock int64) dto.CreateProductResponse {
	t.Helper()
	resp, raw := call(t, app, http.MethodPost, "/api/products", "vendor-1", simpleProduct(sku, stock))
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))
	return decode[dto.CreateProductResponse](t, raw)
}

// ──────────────────────────────────────────────────────────────────────────────
// Salud y métricas
// ──────────────────────────────────────────────────────────────────────────────

func TestHealthAndMetrics(t *testing.T) {
	app := newTestApp(t)

	resp, raw := call(t, app, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "mercado-ledger-test")

	resp, raw = call(t, app, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "ledger_http_requests_total")
}

func TestAPI_RequiresToken(t *testing.T) {
	resp, _ := call(t, newTestApp(t), http.MethodGet, "/api/products", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

// ──────────────────────────────────────────────────────────────────────────────
// Productos
// ──────────────────────────────────────────────────────────────────────────────

func TestProducts_CreateGetAndList(t *testing.T) {
	app := newTestApp(t)
	created := createProduct(t, app, "CAF-500", 12)
	assert.Equal(t, "loc-a", created.LocationID)
	assert.Equal(t, "Principal", created.LocationName)

	resp, raw := call(t, app, http.MethodGet, "/api/products/"+created.ProductID, "vendor-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	p := decode[dto.ProductResponse](t, raw)
	require.Len(t, p.Inventory, 1)
	assert.True(t, decimal.NewFromInt(12).Equal(p.Inventory[0].Quantity))
	require.True(t, p.Margin.Valid)
	assert.True(t, decimal.NewFromInt(25).Equal(p.Margin.Decimal))

	resp, raw = call(t, app, http.MethodGet, "/api/products?limit=5", "vendor-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[struct {
		Items []dto.ProductResponse `json:"items"`
		Page  dto.PageResponse      `json:"page"`
	}](t, raw)
	assert.Len(t, list.Items, 1)
	assert.Equal(t, 5, list.Page.Limit)

	// otro vendedor no lo ve
	resp, _ = call(t, app, http.MethodGet, "/api/products/"+created.ProductID, "vendor-2", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestProducts_ErrorMapping(t *testing.T) {
	app := newTestApp(t)
	createProduct(t, app, "DUP-1", 1)

	cases := []struct {
		name   string
		vendor string
		body   any
		status int
		code   string
	}{
		{"sin ubicación principal", "vendor-3", simpleProduct("X-1", 1), http.StatusUnprocessableEntity, "NO_PRIMARY_LOCATION"},
		{"variable sin variantes", "vendor-1", dto.CreateProductRequest{Product: dto.ProductData{Name: "Var", SKU: "V-1", ProductType: entity.ProductTypeVariable}}, http.StatusBadRequest, "VARIANTS_REQUIRED"},
		{"tipo inválido", "vendor-1", dto.CreateProductRequest{Product: dto.ProductData{Name: "T", SKU: "T-1", ProductType: "bundle"}}, http.StatusBadRequest, "INVALID_PRODUCT_TYPE"},
		{"sku repetido", "vendor-1", simpleProduct("DUP-1", 1), http.StatusConflict, "DUPLICATE"},
		{"cuerpo inválido", "vendor-1", "no-es-un-objeto", http.StatusBadRequest, "INVALID_BODY"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, raw := call(t, app, http.MethodPost, "/api/products", tc.vendor, tc.body)
			assert.Equal(t, tc.status, resp.StatusCode, string(raw))
			assert.Equal(t, tc.code, errorCode(t, raw))
		})
	}

	resp, raw := call(t, app, http.MethodGet, "/api/products/no-existe", "vendor-1", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", errorCode(t, raw))
}

// ──────────────────────────────────────────────────────────────────────────────
// Inventario
// ──────────────────────────────────────────────────────────────────────────────

func TestInventory_MovementsReplayAndVerify(t *testing.T) {
	app := newTestApp(t)
	p := createProduct(t, app, "HAR-1", 10)
	base := "/api/inventory/" + p.InventoryID

	sale := dto.MovementRequest{Quantity: decimal.RequireFromString("2.5"), ReferenceType: entity.ReferenceSale, ReferenceID: "line-1"}
	resp, raw := call(t, app, http.MethodPost, base+"/decrement", "vendor-1", sale)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	first := decode[dto.InventoryResponse](t, raw)
	assert.False(t, first.Replayed)
	assert.NotEmpty(t, first.MovementID)
	assert.True(t, decimal.RequireFromString("7.5").Equal(first.Quantity))

	resp, raw = call(t, app, http.MethodPost, base+"/decrement", "vendor-1", sale)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	again := decode[dto.InventoryResponse](t, raw)
	assert.True(t, again.Replayed)
	assert.True(t, first.Quantity.Equal(again.Quantity))

	resp, raw = call(t, app, http.MethodPost, base+"/increment", "vendor-1",
		dto.MovementRequest{Quantity: decimal.NewFromInt(1), ReferenceType: entity.ReferenceVoid, ReferenceID: "line-1"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	resp, raw = call(t, app, http.MethodPost, base+"/decrement", "vendor-1",
		dto.MovementRequest{Quantity: decimal.NewFromInt(50), ReferenceType: entity.ReferenceAdjustment})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "INSUFFICIENT_STOCK", errorCode(t, raw))

	resp, raw = call(t, app, http.MethodPost, base+"/decrement", "vendor-1",
		dto.MovementRequest{Quantity: decimal.NewFromInt(-1), ReferenceType: entity.ReferenceSale})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_QUANTITY", errorCode(t, raw))

	resp, _ = call(t, app, http.MethodPost, base+"/decrement", "vendor-2",
		dto.MovementRequest{Quantity: decimal.NewFromInt(1), ReferenceType: entity.ReferenceSale})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, raw = call(t, app, http.MethodGet, base+"/movements", "vendor-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	movs := decode[dto.MovementListResponse](t, raw)
	require.Len(t, movs.Items, 3)
	assert.Equal(t, entity.ReferenceVoid, movs.Items[0].ReferenceType)

	resp, raw = call(t, app, http.MethodGet, base+"/verify", "vendor-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	check := decode[dto.LedgerCheckResponse](t, raw)
	assert.True(t, check.Consistent)
	assert.True(t, decimal.RequireFromString("8.5").Equal(check.Quantity))
}

func TestInventory_Transfer(t *testing.T) {
	app := newTestApp(t)
	p := createProduct(t, app, "ARZ-1", 30)

	req := dto.TransferRequest{ProductID: p.ProductID, FromLocationID: "loc-a", ToLocationID: "loc-b", Quantity: decimal.NewFromInt(12)}
	resp, raw := call(t, app, http.MethodPost, "/api/inventory/transfers", "vendor-1", req)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	out := decode[dto.TransferResponse](t, raw)
	assert.True(t, out.Success)
	assert.NotEmpty(t, out.TransferID)
	assert.True(t, decimal.NewFromInt(18).Equal(out.FromQuantity))
	assert.True(t, decimal.NewFromInt(12).Equal(out.ToQuantity))

	req.Quantity = decimal.NewFromInt(100)
	resp, raw = call(t, app, http.MethodPost, "/api/inventory/transfers", "vendor-1", req)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "INSUFFICIENT_STOCK", errorCode(t, raw))

	req.Quantity = decimal.NewFromInt(1)
	req.ToLocationID = "loc-a"
	resp, _ = call(t, app, http.MethodPost, "/api/inventory/transfers", "vendor-1", req)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// ──────────────────────────────────────────────────────────────────────────────
// Sesiones
// ──────────────────────────────────────────────────────────────────────────────

func TestSessions_Lifecycle(t *testing.T) {
	app := newTestApp(t)
	open := dto.GetOrCreateSessionRequest{LocationID: "loc-a", RegisterID: "reg-1", OpeningCash: decimal.NewFromInt(100)}

	resp, raw := call(t, app, http.MethodPost, "/api/sessions", "vendor-1", open)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))
	created := decode[dto.SessionResponse](t, raw)
	assert.True(t, created.WasCreated)
	assert.Equal(t, int64(1), created.SessionNumber)

	resp, raw = call(t, app, http.MethodPost, "/api/sessions", "vendor-1", open)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	joined := decode[dto.SessionResponse](t, raw)
	assert.Equal(t, created.ID, joined.ID)
	assert.False(t, joined.WasCreated)

	base := "/api/sessions/" + created.ID
	resp, raw = call(t, app, http.MethodPost, base+"/sales", "vendor-1", dto.RecordSaleRequest{Amount: decimal.RequireFromString("40.5"), PaymentMethod: entity.PaymentCash})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	resp, _ = call(t, app, http.MethodPost, base+"/void", "vendor-1", dto.SessionAmountRequest{Amount: decimal.NewFromInt(5), PaymentMethod: "cash"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = call(t, app, http.MethodPost, base+"/refund", "vendor-1", dto.SessionAmountRequest{Amount: decimal.NewFromInt(3)})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, raw = call(t, app, http.MethodPost, base+"/void", "vendor-1", dto.SessionAmountRequest{Amount: decimal.Zero})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, string(raw))

	resp, _ = call(t, app, http.MethodGet, base, "vendor-2", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	closing := decimal.NewFromInt(140)
	resp, raw = call(t, app, http.MethodPost, base+"/close", "vendor-1", dto.CloseSessionRequest{ClosingCash: &closing})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	closed := decode[dto.SessionResponse](t, raw)
	assert.Equal(t, entity.SessionStatusClosed, closed.Status)
	require.NotNil(t, closed.ExpectedCash)
	assert.True(t, closed.ExpectedCash.Equal(decimal.RequireFromString("135.5")), closed.ExpectedCash.String())

	resp, raw = call(t, app, http.MethodPost, base+"/sales", "vendor-1", dto.RecordSaleRequest{Amount: decimal.NewFromInt(1), PaymentMethod: entity.PaymentCard})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "SESSION_CLOSED", errorCode(t, raw))

	resp, raw = call(t, app, http.MethodGet, base+"/report", "vendor-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.Equal(t, "%PDF", string(raw[:4]))

	// una caja cerrada abre la siguiente sesión
	resp, raw = call(t, app, http.MethodPost, "/api/sessions", "vendor-1", open)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, int64(2), decode[dto.SessionResponse](t, raw).SessionNumber)
}

func TestSessions_NotFound(t *testing.T) {
	resp, raw := call(t, newTestApp(t), http.MethodGet, "/api/sessions/no-existe", "vendor-1", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", errorCode(t, raw))
}
