package checkout

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/backend"
	"github.com/utafrali/storefront/internal/cart"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/httpclient"
	"github.com/utafrali/storefront/pkg/validator"
)

// --- Fakes ---

type memKV struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemKV() *memKV {
	return &memKV{data: make(map[string][]byte)}
}

func (m *memKV) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.data[key]
	if !ok {
		return nil, apperrors.NotFound("key", key)
	}
	return data, nil
}

func (m *memKV) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

type staticToken struct{}

func (staticToken) Token(context.Context) string    { return "tok-1" }
func (staticToken) InvalidateToken(context.Context) {}

// shopServer is an in-memory backend with a cart and an order log.
type shopServer struct {
	mu     sync.Mutex
	items  []backend.CartItem
	orders []backend.Order
}

func (s *shopServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /cart/", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		_ = json.NewEncoder(w).Encode(backend.Cart{ID: "cart-1", UserID: "user-1", Items: s.items})
	})
	mux.HandleFunc("DELETE /cart/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		s.mu.Lock()
		defer s.mu.Unlock()
		for i := range s.items {
			if s.items[i].ID == id {
				s.items = append(s.items[:i], s.items[i+1:]...)
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"detail": "cart item not found"})
	})
	mux.HandleFunc("POST /orders/", func(w http.ResponseWriter, r *http.Request) {
		var input backend.CreateOrderInput
		_ = json.NewDecoder(r.Body).Decode(&input)

		s.mu.Lock()
		defer s.mu.Unlock()
		var total int64
		items := make([]backend.OrderItem, len(s.items))
		for i, item := range s.items {
			items[i] = backend.OrderItem{
				ID:        "oi-" + item.ID,
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				Price:     item.Product.Price,
				Product:   item.Product,
			}
			total += item.Product.Price * int64(item.Quantity)
		}
		order := backend.Order{
			ID:              "order-1",
			UserID:          "user-1",
			TotalAmount:     total + FlatShippingCents,
			Status:          "pending",
			ShippingAddress: input.ShippingAddress,
			Items:           items,
		}
		s.orders = append(s.orders, order)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(order)
	})
	mux.HandleFunc("GET /orders/", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		_ = json.NewEncoder(w).Encode(s.orders)
	})
	mux.HandleFunc("GET /orders/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		s.mu.Lock()
		defer s.mu.Unlock()
		for _, o := range s.orders {
			if o.ID == id {
				_ = json.NewEncoder(w).Encode(o)
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"detail": "order not found"})
	})
	return mux
}

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func serverItem(id, productID string, qty int, price int64) backend.CartItem {
	return backend.CartItem{
		ID:        id,
		ProductID: productID,
		Quantity:  qty,
		Product:   backend.Product{ID: productID, Name: "Product " + productID, Price: price},
	}
}

// newCheckout builds a checkout service over a remote-resolved cart backed by
// the fake shop server.
func newCheckout(t *testing.T, shop *shopServer) (*Service, *cart.Store) {
	t.Helper()
	srv := httptest.NewServer(shop.handler())
	t.Cleanup(srv.Close)

	logger := newTestLogger()
	api := backend.NewClient(srv.URL, httpclient.New(httpclient.NoRetryConfig()), logger)
	ts := staticToken{}

	cartStore := cart.NewStore("visitor-1", newMemKV(), api, api, ts, nil, logger)
	require.NoError(t, cartStore.Resolve(context.Background(), true))

	return NewService("visitor-1", cartStore, api, ts, nil, logger), cartStore
}

// --- Tests ---

func TestQuote(t *testing.T) {
	shop := &shopServer{items: []backend.CartItem{
		serverItem("item-1", "prod-1", 2, 2500),
		serverItem("item-2", "prod-2", 1, 1500),
	}}
	svc, _ := newCheckout(t, shop)

	q := svc.Quote()

	// $55.00 of goods plus the $15.00 flat shipping rate.
	assert.Equal(t, int64(6500), q.Subtotal)
	assert.Equal(t, int64(1500), q.Shipping)
	assert.Equal(t, int64(8000), q.Total)
}

func TestQuote_EmptyCartStillChargesShipping(t *testing.T) {
	svc, _ := newCheckout(t, &shopServer{})

	q := svc.Quote()

	assert.Zero(t, q.Subtotal)
	assert.Equal(t, FlatShippingCents, q.Total)
}

func TestPlaceOrder(t *testing.T) {
	shop := &shopServer{items: []backend.CartItem{
		serverItem("item-1", "prod-1", 2, 2500),
	}}
	svc, cartStore := newCheckout(t, shop)

	order, err := svc.PlaceOrder(context.Background(), PlaceOrderInput{
		ShippingAddress: "1 Main St, Springfield",
	})

	require.NoError(t, err)
	assert.Equal(t, "order-1", order.ID)
	assert.Equal(t, "1 Main St, Springfield", order.ShippingAddress)
	assert.Equal(t, int64(5000+1500), order.TotalAmount)
	// The cart was cleared after the order was placed.
	assert.Empty(t, cartStore.Items())
}

func TestPlaceOrder_ValidatesAddressBeforeAnyCall(t *testing.T) {
	shop := &shopServer{items: []backend.CartItem{serverItem("item-1", "prod-1", 1, 2500)}}
	svc, _ := newCheckout(t, shop)

	_, err := svc.PlaceOrder(context.Background(), PlaceOrderInput{ShippingAddress: "short"})

	require.Error(t, err)
	var valErr *validator.ValidationError
	assert.ErrorAs(t, err, &valErr)
	assert.Empty(t, shop.orders)
}

func TestPlaceOrder_EmptyCartRejected(t *testing.T) {
	shop := &shopServer{}
	svc, _ := newCheckout(t, shop)

	_, err := svc.PlaceOrder(context.Background(), PlaceOrderInput{
		ShippingAddress: "1 Main St, Springfield",
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.Empty(t, shop.orders)
}

func TestPlaceOrder_RequiresLogin(t *testing.T) {
	shop := &shopServer{}
	svc, cartStore := newCheckout(t, shop)
	require.NoError(t, cartStore.Resolve(context.Background(), false))

	_, err := svc.PlaceOrder(context.Background(), PlaceOrderInput{
		ShippingAddress: "1 Main St, Springfield",
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestListOrders(t *testing.T) {
	shop := &shopServer{items: []backend.CartItem{serverItem("item-1", "prod-1", 1, 2500)}}
	svc, _ := newCheckout(t, shop)

	_, err := svc.PlaceOrder(context.Background(), PlaceOrderInput{
		ShippingAddress: "1 Main St, Springfield",
	})
	require.NoError(t, err)

	orders, err := svc.ListOrders(context.Background())
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "order-1", orders[0].ID)
}

func TestGetOrder(t *testing.T) {
	shop := &shopServer{items: []backend.CartItem{serverItem("item-1", "prod-1", 1, 2500)}}
	svc, _ := newCheckout(t, shop)

	_, err := svc.PlaceOrder(context.Background(), PlaceOrderInput{
		ShippingAddress: "1 Main St, Springfield",
	})
	require.NoError(t, err)

	order, err := svc.GetOrder(context.Background(), "order-1")
	require.NoError(t, err)
	assert.Equal(t, "order-1", order.ID)

	_, err = svc.GetOrder(context.Background(), "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = svc.GetOrder(context.Background(), "order-9")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
