package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/cartline/cartline/internal/auth"
	"github.com/cartline/cartline/internal/domain/order"
	"github.com/cartline/cartline/internal/domain/user"
	"github.com/cartline/cartline/internal/http/handlers"
	"github.com/cartline/cartline/internal/http/middlewares"
	"github.com/cartline/cartline/internal/invoice"
)

// fakeConverter stands in for wkhtmltopdf; it records where the PDF went
// so tests can assert the temp file is cleaned up.
type fakeConverter struct {
	fail     bool
	lastPath string
}

func (f *fakeConverter) Convert(ctx context.Context, html string, outPath string) error {
	f.lastPath = outPath

	if f.fail {
		return errors.New("wkhtmltopdf exploded")
	}

	return os.WriteFile(outPath, []byte("%PDF-1.4 fake"), 0o600)
}

func newOrdersRouter(t *testing.T, orders *fakeOrdersRepo, users *fakeUsersRepo, conv invoice.Converter, claims *auth.Claims) *httptest.ResponseRecorder {
	t.Helper()

	renderer, err := invoice.NewRenderer()
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}

	h := handlers.NewOrdersHandler(orders, users, renderer, conv, nil)
	mw := middlewares.NewAuthMiddleware(&fakeVerifier{claims: claims})

	r := setupRouter(http.MethodPost, "/create_order", mw.RequireAuth(), h.CreateOrder)

	body := `{
		"products": [
			{"name": "Widget", "price": "9.99", "quantity": "5"},
			{"name": "Gadget", "price": 4.50, "quantity": 2}
		],
		"totalAmount": 1
	}`

	req := httptest.NewRequest(http.MethodPost, "/create_order", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer test-token")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	return w
}

func customerAndClaims() (user.User, *auth.Claims) {
	u := user.User{ID: "cust-1", Username: "carl", Email: "carl@x.com", Role: user.RoleCustomer}

	return u, &auth.Claims{UserID: u.ID, Email: u.Email, Role: u.Role.String()}
}

func TestCreateOrderHandlerStreamsInvoice(t *testing.T) {
	caller, claims := customerAndClaims()

	users := &fakeUsersRepo{
		getByIDFn: func(ctx context.Context, id string) (user.User, error) {
			return caller, nil
		},
	}

	orders := &fakeOrdersRepo{}
	conv := &fakeConverter{}

	w := newOrdersRouter(t, orders, users, conv, claims)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}

	if len(orders.created) != 1 {
		t.Fatalf("persisted %d orders, want 1", len(orders.created))
	}

	o := orders.created[0]

	if o.UserID != caller.ID {
		t.Errorf("order user = %q, want %q", o.UserID, caller.ID)
	}

	// total is recomputed: 9.99*5 + 4.50*2, NOT the submitted totalAmount of 1
	wantTotal := 9.99*5 + 4.50*2

	if o.TotalAmount != wantTotal {
		t.Errorf("total = %v, want %v", o.TotalAmount, wantTotal)
	}

	disposition := w.Header().Get("Content-Disposition")

	if !strings.Contains(disposition, "invoice_"+o.ID+".pdf") {
		t.Errorf("Content-Disposition = %q, want invoice_%s.pdf", disposition, o.ID)
	}

	if !strings.HasPrefix(w.Body.String(), "%PDF") {
		t.Errorf("body does not look like a PDF: %q", w.Body.String()[:min(20, w.Body.Len())])
	}

	// temp file must be gone after the response is sent
	if _, err := os.Stat(conv.lastPath); !os.IsNotExist(err) {
		t.Errorf("temp file %s still exists after response", conv.lastPath)
	}
}

func TestCreateOrderHandlerUnknownUser(t *testing.T) {
	_, claims := customerAndClaims()

	users := &fakeUsersRepo{} // GetByID defaults to ErrNotFound
	orders := &fakeOrdersRepo{}

	w := newOrdersRouter(t, orders, users, &fakeConverter{}, claims)

	if w.Code != http.StatusNotFound {
		t.Fatalf("got status %d, want 404, body=%s", w.Code, w.Body.String())
	}

	if len(orders.created) != 0 {
		t.Errorf("order persisted for unknown user")
	}
}

func TestCreateOrderHandlerPersistFailure(t *testing.T) {
	caller, claims := customerAndClaims()

	users := &fakeUsersRepo{
		getByIDFn: func(ctx context.Context, id string) (user.User, error) {
			return caller, nil
		},
	}

	orders := &fakeOrdersRepo{
		createFn: func(ctx context.Context, o order.Order) (order.Order, error) {
			return order.Order{}, errors.New("orders insert failed")
		},
	}

	w := newOrdersRouter(t, orders, users, &fakeConverter{}, claims)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("got status %d, want 500", w.Code)
	}

	// the underlying error message is echoed to the caller
	if !strings.Contains(w.Body.String(), "orders insert failed") {
		t.Errorf("500 body does not carry the error: %s", w.Body.String())
	}
}

func TestCreateOrderHandlerConvertFailureKeepsOrder(t *testing.T) {
	caller, claims := customerAndClaims()

	users := &fakeUsersRepo{
		getByIDFn: func(ctx context.Context, id string) (user.User, error) {
			return caller, nil
		},
	}

	orders := &fakeOrdersRepo{}
	conv := &fakeConverter{fail: true}

	w := newOrdersRouter(t, orders, users, conv, claims)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("got status %d, want 500, body=%s", w.Code, w.Body.String())
	}

	// no rollback: the order row survives a failed invoice conversion
	if len(orders.created) != 1 {
		t.Errorf("order count = %d, want 1 (no rollback on render failure)", len(orders.created))
	}

	// the temp file must not leak on the failure path either
	if conv.lastPath != "" {
		if _, err := os.Stat(conv.lastPath); !os.IsNotExist(err) {
			t.Errorf("temp file %s still exists after failed conversion", conv.lastPath)
		}
	}
}

// A promotional freebie line item binds and contributes 0 to the total.
func TestCreateOrderHandlerAcceptsZeroPricedItem(t *testing.T) {
	caller, claims := customerAndClaims()

	users := &fakeUsersRepo{
		getByIDFn: func(ctx context.Context, id string) (user.User, error) {
			return caller, nil
		},
	}

	orders := &fakeOrdersRepo{}

	renderer, err := invoice.NewRenderer()
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}

	h := handlers.NewOrdersHandler(orders, users, renderer, &fakeConverter{}, nil)
	mw := middlewares.NewAuthMiddleware(&fakeVerifier{claims: claims})

	r := setupRouter(http.MethodPost, "/create_order", mw.RequireAuth(), h.CreateOrder)

	body := `{"products":[{"name":"Widget","price":9.99,"quantity":1},{"name":"Sticker","price":0,"quantity":3}]}`
	req := httptest.NewRequest(http.MethodPost, "/create_order", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer test-token")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}

	if len(orders.created) != 1 {
		t.Fatalf("persisted %d orders, want 1", len(orders.created))
	}

	if got := orders.created[0].TotalAmount; got != 9.99 {
		t.Errorf("total = %v, want 9.99", got)
	}
}

func TestListOrdersHandlerReturnsOwnOrders(t *testing.T) {
	caller, claims := customerAndClaims()

	var askedFor string

	orders := &fakeOrdersRepo{
		byUserFn: func(ctx context.Context, userID string) ([]order.Order, error) {
			askedFor = userID

			return []order.Order{
				{ID: "o1", UserID: userID, TotalAmount: 10},
				{ID: "o2", UserID: userID, TotalAmount: 20},
			}, nil
		},
	}

	h := handlers.NewOrdersHandler(orders, &fakeUsersRepo{}, nil, nil, nil)
	mw := middlewares.NewAuthMiddleware(&fakeVerifier{claims: claims})

	r := setupRouter(http.MethodGet, "/orders", mw.RequireAuth(), h.ListOrders)

	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	req.Header.Set("Authorization", "Bearer test-token")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}

	if askedFor != caller.ID {
		t.Errorf("listed orders for %q, want %q", askedFor, caller.ID)
	}

	var resp struct {
		Items []order.Order `json:"items"`
		Count int           `json:"count"`
	}

	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if resp.Count != 2 || len(resp.Items) != 2 {
		t.Errorf("count = %d, items = %d, want 2/2", resp.Count, len(resp.Items))
	}
}

func TestListAllOrdersHandlerIsAdminOnly(t *testing.T) {
	orders := &fakeOrdersRepo{
		allFn: func(ctx context.Context) ([]order.Order, error) {
			return []order.Order{
				{ID: "o1", UserID: "u1"},
				{ID: "o2", UserID: "u2"},
				{ID: "o3", UserID: "u1"},
			}, nil
		},
	}

	tests := []struct {
		name       string
		role       string
		wantStatus int
	}{
		{name: "administrator", role: "Administrator", wantStatus: http.StatusOK},
		{name: "customer", role: "Customer", wantStatus: http.StatusForbidden},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			h := handlers.NewOrdersHandler(orders, &fakeUsersRepo{}, nil, nil, nil)
			mw := middlewares.NewAuthMiddleware(&fakeVerifier{claims: &auth.Claims{
				UserID: "u1",
				Role:   tt.role,
			}})

			r := setupRouter(http.MethodGet, "/admin/orders",
				mw.RequireAuth(), mw.RequireRole(user.RoleAdministrator), h.ListAllOrders)

			req := httptest.NewRequest(http.MethodGet, "/admin/orders", nil)
			req.Header.Set("Authorization", "Bearer test-token")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatus, w.Body.String())
			}

			if tt.wantStatus != http.StatusOK {
				return
			}

			var resp struct {
				Count int `json:"count"`
			}

			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}

			if resp.Count != 3 {
				t.Errorf("count = %d, want 3", resp.Count)
			}
		})
	}
}
