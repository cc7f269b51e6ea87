package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fjod/go_pos/pkg/circuitbreaker"
	"github.com/fjod/go_pos/pos-service/internal/cart"
	"github.com/fjod/go_pos/pos-service/internal/dashboard"
	"github.com/fjod/go_pos/pos-service/internal/domain"
	"github.com/fjod/go_pos/pos-service/internal/gateway"
	"github.com/fjod/go_pos/pos-service/internal/sale"
	"github.com/fjod/go_pos/pos-service/internal/service"
	"github.com/fjod/go_pos/pos-service/internal/session"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type TerminalMock struct {
	err      error
	employee *domain.Employee
	products []domain.Product
	cart     *service.CartView
	result   *sale.Result

	login    LoginRequestDTO
	register session.Registration
	form     service.ProductForm
	setID    domain.ProductID
	setQty   int
	delta    int
	refresh  bool
	prompt   string
}

func (m *TerminalMock) Stores(ctx context.Context) ([]domain.Store, error) {
	if m.err != nil {
		return nil, m.err
	}
	return []domain.Store{{ID: "1", Name: "Centro"}}, nil
}

func (m *TerminalMock) Register(ctx context.Context, r session.Registration) (string, error) {
	m.register = r
	if m.err != nil {
		return "", m.err
	}
	return "Empleado registrado", nil
}

func (m *TerminalMock) Login(ctx context.Context, username, password string) (*domain.Employee, error) {
	m.login = LoginRequestDTO{Username: username, Password: password}
	if m.err != nil {
		return nil, m.err
	}
	return m.employee, nil
}

func (m *TerminalMock) CurrentEmployee(ctx context.Context) (*domain.Employee, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.employee, nil
}

func (m *TerminalMock) Logout(ctx context.Context) error { return m.err }

func (m *TerminalMock) Products(ctx context.Context, refresh bool) ([]domain.Product, error) {
	m.refresh = refresh
	if m.err != nil {
		return nil, m.err
	}
	return m.products, nil
}

func (m *TerminalMock) CreateProduct(ctx context.Context, f service.ProductForm) (string, error) {
	m.form = f
	if m.err != nil {
		return "", m.err
	}
	return "Producto creado", nil
}

func (m *TerminalMock) Inventory(ctx context.Context) (*service.InventoryView, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &service.InventoryView{StoreID: "1"}, nil
}

func (m *TerminalMock) SetQuantity(ctx context.Context, id domain.ProductID, q int) (int, error) {
	m.setID, m.setQty = id, q
	if m.err != nil {
		return 0, m.err
	}
	if q < 0 {
		q = 0
	}
	return q, nil
}

func (m *TerminalMock) IncrementQuantity(ctx context.Context, id domain.ProductID) (int, error) {
	m.setID = id
	return 4, m.err
}

func (m *TerminalMock) DecrementQuantity(ctx context.Context, id domain.ProductID) (int, error) {
	m.setID = id
	return 2, m.err
}

func (m *TerminalMock) SaveInventory(ctx context.Context) (*service.InventoryView, error) {
	return m.Inventory(ctx)
}

func (m *TerminalMock) SyncInventory(ctx context.Context) (int, error) { return 3, m.err }

func (m *TerminalMock) Cart(ctx context.Context) (*service.CartView, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.cart, nil
}

func (m *TerminalMock) AddToCart(ctx context.Context, id domain.ProductID) (*service.CartView, error) {
	m.setID = id
	return m.Cart(ctx)
}

func (m *TerminalMock) AdjustCartItem(ctx context.Context, id domain.ProductID, delta int) (*service.CartView, error) {
	m.setID, m.delta = id, delta
	return m.Cart(ctx)
}

func (m *TerminalMock) RemoveCartItem(ctx context.Context, id domain.ProductID) (*service.CartView, error) {
	m.setID = id
	return m.Cart(ctx)
}

func (m *TerminalMock) ClearCart(ctx context.Context) (*service.CartView, error) {
	return m.Cart(ctx)
}

func (m *TerminalMock) Checkout(ctx context.Context) (*sale.Result, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func (m *TerminalMock) DashboardYears() []string { return []string{"2024", "2023"} }

func (m *TerminalMock) DashboardYear(year string) (json.RawMessage, *dashboard.Analysis, error) {
	if year != "2024" {
		return nil, nil, dashboard.ErrYearNotFound
	}
	return json.RawMessage(`{"paradoja":[]}`), &dashboard.Analysis{}, nil
}

func (m *TerminalMock) Recommend(ctx context.Context, prompt string) (string, error) {
	m.prompt = prompt
	if m.err != nil {
		return "", m.err
	}
	return "Reabastecer tenis", nil
}

func newTestMock() *TerminalMock {
	price := decimal.RequireFromString("1299.90")
	return &TerminalMock{
		employee: &domain.Employee{Username: "ana", Name: "Ana", Surname: "Lopez", Role: "vendedor", Store: "1"},
		products: []domain.Product{{ID: "p1", ModelName: "Runner"}},
		cart: &service.CartView{
			StoreID: "1",
			State:   "building",
			Items:   []domain.CartItem{{ProductID: "p1", ModelName: "Runner", Quantity: 2, UnitPrice: &price}},
			Total:   price.Mul(decimal.NewFromInt(2)),
		},
		result: &sale.Result{
			Receipt: domain.Receipt{
				ID:      "r-1",
				StoreID: "1",
				Lines: []domain.ReceiptLine{
					{ProductID: "p1", ModelName: "Runner", Quantity: 2, UnitPrice: &price, Subtotal: price.Mul(decimal.NewFromInt(2))},
				},
				Total:    price.Mul(decimal.NewFromInt(2)),
				Currency: "MXN",
				IssuedAt: time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC),
			},
			Document:    []byte("%PDF-1.3 test"),
			ContentType: "application/pdf",
		},
	}
}

func serve(t *testing.T, m *TerminalMock, method, path string, body any, header ...string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	request := httptest.NewRequest(method, path, reader)
	for i := 0; i+1 < len(header); i += 2 {
		request.Header.Set(header[i], header[i+1])
	}
	recorder := httptest.NewRecorder()
	NewRouter(m, RouterConfig{Timeout: 5 * time.Second}).ServeHTTP(recorder, request)
	return recorder
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestHealth(t *testing.T) {
	request := httptest.NewRequest("GET", "/health", nil)
	recorder := httptest.NewRecorder()
	NewRouter(newTestMock(), RouterConfig{
		Timeout:      time.Second,
		BackendState: func() string { return "closed" },
	}).ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusOK, recorder.Code)
	var resp HealthResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "closed", resp.Backend)
	assert.NotEmpty(t, recorder.Header().Get("X-Request-ID"))
}

func TestRequestIDIsKept(t *testing.T) {
	rec := serve(t, newTestMock(), "GET", "/health", nil, "X-Request-ID", "abc-123")
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}

func TestLogin_Success(t *testing.T) {
	m := newTestMock()
	rec := serve(t, m, "POST", "/api/v1/session", LoginRequestDTO{Username: "ana", Password: "secret"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, LoginRequestDTO{Username: "ana", Password: "secret"}, m.login)

	var emp domain.Employee
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&emp))
	assert.Equal(t, "Ana", emp.Name)
}

func TestLogin_InvalidJSON(t *testing.T) {
	rec := serve(t, newTestMock(), "POST", "/api/v1/session", "invalid json")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request", decodeError(t, rec).Code)
}

func TestLogin_BackendRejects(t *testing.T) {
	m := newTestMock()
	m.err = fmt.Errorf("login: %w", &gateway.StatusError{Method: "PUT", Path: "/user/", StatusCode: 401, Body: "bad password"})
	rec := serve(t, m, "POST", "/api/v1/session", LoginRequestDTO{Username: "ana", Password: "nope"})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthenticated", decodeError(t, rec).Code)
}

func TestCurrent_NoSession(t *testing.T) {
	m := newTestMock()
	m.err = session.ErrNoSession
	rec := serve(t, m, "GET", "/api/v1/session", nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthenticated", decodeError(t, rec).Code)
}

func TestLogout(t *testing.T) {
	rec := serve(t, newTestMock(), "DELETE", "/api/v1/session", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRegister_PasswordAlias(t *testing.T) {
	m := newTestMock()
	body := map[string]string{
		"nombre": "Ana", "apellido": "Lopez", "tiendaId": "1",
		"puesto": "vendedor", "usuario": "ana", "password": "secret",
	}
	rec := serve(t, m, "POST", "/api/v1/employees", body)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "secret", m.register.Password)
	assert.Equal(t, "1", m.register.StoreID)
}

func TestRegister_ValidationFields(t *testing.T) {
	m := newTestMock()
	var v domain.Validator
	v.Required("usuario", "")
	m.err = v.Err()
	rec := serve(t, m, "POST", "/api/v1/employees", map[string]string{})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, "validation_failed", resp.Code)
	assert.Contains(t, resp.Fields, "usuario")
}

func TestStores(t *testing.T) {
	rec := serve(t, newTestMock(), "GET", "/api/v1/stores", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	var stores []domain.Store
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&stores))
	require.Len(t, stores, 1)
	assert.Equal(t, "Centro", stores[0].Name)
}

func TestProducts_Refresh(t *testing.T) {
	m := newTestMock()
	rec := serve(t, m, "GET", "/api/v1/products?refresh=true", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, m.refresh)
}

func TestProducts_EmptyIsList(t *testing.T) {
	m := newTestMock()
	m.products = nil
	rec := serve(t, m, "GET", "/api/v1/products", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestProducts_BreakerOpen(t *testing.T) {
	m := newTestMock()
	m.err = fmt.Errorf("GET /producto: %w", circuitbreaker.ErrOpen)
	rec := serve(t, m, "GET", "/api/v1/products", nil)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "service_unavailable", decodeError(t, rec).Code)
}

func TestCreateProduct(t *testing.T) {
	m := newTestMock()
	body := `{"nombreModelo":"Runner","marca":"Acme","categoria":"Tenis","precioVenta":1299.9}`
	rec := serve(t, m, "POST", "/api/v1/products", body)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Runner", m.form.ModelName)
	assert.Equal(t, "1299.9", m.form.SalePrice)
}

func TestSetQuantity(t *testing.T) {
	m := newTestMock()
	rec := serve(t, m, "PUT", "/api/v1/inventory/p1", map[string]int{"quantity": 7})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.ProductID("p1"), m.setID)
	assert.Equal(t, 7, m.setQty)

	var resp QuantityResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 7, resp.Quantity)
}

func TestSetQuantity_MissingQuantity(t *testing.T) {
	rec := serve(t, newTestMock(), "PUT", "/api/v1/inventory/p1", map[string]int{})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_quantity", decodeError(t, rec).Code)
}

func TestIncrementDecrement(t *testing.T) {
	m := newTestMock()

	rec := serve(t, m, "POST", "/api/v1/inventory/p9/increment", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.ProductID("p9"), m.setID)

	rec = serve(t, m, "POST", "/api/v1/inventory/p9/decrement", nil)
	var resp QuantityResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 2, resp.Quantity)
}

func TestSaveAndSync(t *testing.T) {
	m := newTestMock()

	rec := serve(t, m, "POST", "/api/v1/inventory/save", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(t, m, "POST", "/api/v1/inventory/sync", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	var resp SyncResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 3, resp.Synced)
}

func TestInventory_NoStore(t *testing.T) {
	m := newTestMock()
	m.err = session.ErrNoStore
	rec := serve(t, m, "GET", "/api/v1/inventory", nil)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAddItem_Success(t *testing.T) {
	m := newTestMock()
	rec := serve(t, m, "POST", "/api/v1/cart/items", `{"product_id": 42}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, domain.ProductID("42"), m.setID)

	var view service.CartView
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&view))
	assert.Equal(t, "building", view.State)
	assert.True(t, view.Total.Equal(decimal.RequireFromString("2599.80")))
}

func TestAddItem_MissingProduct(t *testing.T) {
	rec := serve(t, newTestMock(), "POST", "/api/v1/cart/items", `{}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_product_id", decodeError(t, rec).Code)
}

func TestAddItem_OutOfStock(t *testing.T) {
	m := newTestMock()
	m.err = cart.ErrOutOfStock
	rec := serve(t, m, "POST", "/api/v1/cart/items", `{"product_id":"p1"}`)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "out_of_stock", decodeError(t, rec).Code)
}

func TestAddItem_UnknownProduct(t *testing.T) {
	m := newTestMock()
	m.err = service.ErrProductNotFound
	rec := serve(t, m, "POST", "/api/v1/cart/items", `{"product_id":"zz"}`)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateQuantity(t *testing.T) {
	m := newTestMock()
	rec := serve(t, m, "PATCH", "/api/v1/cart/items/p1", AdjustQuantityRequestDTO{Delta: -1})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, -1, m.delta)
	assert.Equal(t, domain.ProductID("p1"), m.setID)
}

func TestUpdateQuantity_InvalidDelta(t *testing.T) {
	m := newTestMock()
	m.err = cart.ErrInvalidDelta
	rec := serve(t, m, "PATCH", "/api/v1/cart/items/p1", AdjustQuantityRequestDTO{Delta: 5})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_delta", decodeError(t, rec).Code)
}

func TestRemoveItemAndClear(t *testing.T) {
	m := newTestMock()

	rec := serve(t, m, "DELETE", "/api/v1/cart/items/p1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.ProductID("p1"), m.setID)

	rec = serve(t, m, "DELETE", "/api/v1/cart", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCheckout_JSON(t *testing.T) {
	rec := serve(t, newTestMock(), "POST", "/api/v1/cart/checkout", nil)

	assert.Equal(t, http.StatusCreated, rec.Code)
	var resp CheckoutResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "r-1", resp.Receipt.ID)
	assert.Equal(t, "recibo_venta_2026_03_01_12_30_00.pdf", resp.FileName)
	assert.NotEmpty(t, resp.Text)
}

func TestCheckout_PDF(t *testing.T) {
	rec := serve(t, newTestMock(), "POST", "/api/v1/cart/checkout", nil, "Accept", "application/pdf")

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "recibo_venta_2026_03_01_12_30_00.pdf")
	assert.Equal(t, "%PDF-1.3 test", rec.Body.String())
}

func TestCheckout_Text(t *testing.T) {
	rec := serve(t, newTestMock(), "POST", "/api/v1/cart/checkout", nil, "Accept", "text/plain")

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	assert.Contains(t, rec.Body.String(), "1. Runner | Cantidad: 2 | $1299.9 c/u | $2599.80\n")
	assert.Contains(t, rec.Body.String(), "Total: $2599.80\n")
}

func TestCheckout_Errors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"empty cart", sale.ErrEmptyCart, http.StatusConflict, "empty_cart"},
		{"persist", fmt.Errorf("%w: %w", sale.ErrPersist, errors.New("disk full")), http.StatusServiceUnavailable, "persist_failed"},
		{"in progress", cart.ErrFinalizing, http.StatusConflict, "sale_in_progress"},
		{"timeout", context.DeadlineExceeded, http.StatusGatewayTimeout, "timeout"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestMock()
			m.err = tt.err
			rec := serve(t, m, "POST", "/api/v1/cart/checkout", nil)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, decodeError(t, rec).Code)
		})
	}
}

func TestBackendStatusMapping(t *testing.T) {
	tests := []struct {
		backend int
		status  int
		code    string
	}{
		{http.StatusForbidden, http.StatusUnauthorized, "unauthenticated"},
		{http.StatusConflict, http.StatusConflict, "backend_rejected"},
		{http.StatusInternalServerError, http.StatusBadGateway, "bad_gateway"},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.backend), func(t *testing.T) {
			m := newTestMock()
			m.err = &gateway.StatusError{Method: "GET", Path: "/user/tiendas", StatusCode: tt.backend}
			rec := serve(t, m, "GET", "/api/v1/stores", nil)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, decodeError(t, rec).Code)
		})
	}
}

func TestDashboard(t *testing.T) {
	m := newTestMock()

	rec := serve(t, m, "GET", "/api/v1/dashboard", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	var years YearsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&years))
	assert.Equal(t, []string{"2024", "2023"}, years.Years)

	rec = serve(t, m, "GET", "/api/v1/dashboard/2024", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	var year YearResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&year))
	assert.Equal(t, "2024", year.Year)
	assert.JSONEq(t, `{"paradoja":[]}`, string(year.Data))

	rec = serve(t, m, "GET", "/api/v1/dashboard/1999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecommend(t *testing.T) {
	m := newTestMock()
	rec := serve(t, m, "POST", "/api/v1/recommendations", RecommendRequestDTO{Prompt: "que reabastecer"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "que reabastecer", m.prompt)
	var resp RecommendResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "Reabastecer tenis", resp.Recommendation)
}
