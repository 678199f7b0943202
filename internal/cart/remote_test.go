package cart

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/backend"
	"github.com/utafrali/storefront/pkg/httpclient"
)

// --- Fake Backend ---

// fakeBackend serves the cart endpoints of the shop API from an in-memory
// cart, with per-item failure injection for the delete path.
type fakeBackend struct {
	mu          sync.Mutex
	items       []backend.CartItem
	failDeletes map[string]int // item ID -> HTTP status to return
	deleteCalls []string
}

func (f *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /cart/", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		_ = json.NewEncoder(w).Encode(backend.Cart{ID: "cart-1", UserID: "user-1", Items: f.items})
	})
	mux.HandleFunc("POST /cart/items/", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			ProductID string `json:"product_id"`
			Quantity  int    `json:"quantity"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)

		f.mu.Lock()
		defer f.mu.Unlock()
		for i := range f.items {
			if f.items[i].ProductID == body.ProductID {
				f.items[i].Quantity += body.Quantity
				w.WriteHeader(http.StatusOK)
				return
			}
		}
		f.items = append(f.items, backend.CartItem{
			ID:        "item-" + body.ProductID,
			ProductID: body.ProductID,
			Quantity:  body.Quantity,
			Product:   backend.Product{ID: body.ProductID, Name: "Product " + body.ProductID, Price: 2500},
		})
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("PUT /cart/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Quantity int `json:"quantity"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		id := r.PathValue("id")

		f.mu.Lock()
		defer f.mu.Unlock()
		for i := range f.items {
			if f.items[i].ID == id {
				f.items[i].Quantity = body.Quantity
				w.WriteHeader(http.StatusOK)
				return
			}
		}
		writeDetail(w, http.StatusNotFound, "cart item not found")
	})
	mux.HandleFunc("DELETE /cart/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")

		f.mu.Lock()
		defer f.mu.Unlock()
		f.deleteCalls = append(f.deleteCalls, id)

		if status, ok := f.failDeletes[id]; ok {
			writeDetail(w, status, "delete failed")
			return
		}
		for i := range f.items {
			if f.items[i].ID == id {
				f.items = append(f.items[:i], f.items[i+1:]...)
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
		writeDetail(w, http.StatusNotFound, "cart item not found")
	})
	return mux
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}

type staticToken struct {
	mu          sync.Mutex
	token       string
	invalidated bool
}

func (s *staticToken) Token(context.Context) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *staticToken) InvalidateToken(context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.invalidated = true
}

// --- Test Helpers ---

// newRemoteStore wires a store against the fake backend and resolves it
// authenticated.
func newRemoteStore(t *testing.T, fb *fakeBackend) *Store {
	t.Helper()
	srv := httptest.NewServer(fb.handler())
	t.Cleanup(srv.Close)

	logger := newTestLogger()
	api := backend.NewClient(srv.URL, httpclient.New(httpclient.NoRetryConfig()), logger)
	ts := &staticToken{token: "tok-1"}

	s := NewStore("visitor-1", newMemKV(), testCatalog(), api, ts, nil, logger)
	require.NoError(t, s.Resolve(context.Background(), true))
	return s
}

func serverItem(id, productID string, qty int, price int64) backend.CartItem {
	return backend.CartItem{
		ID:        id,
		ProductID: productID,
		Quantity:  qty,
		Product:   backend.Product{ID: productID, Name: "Product " + productID, Price: price},
	}
}

// --- Tests ---

func TestRemoteStore_ResolveLoadsServerCart(t *testing.T) {
	fb := &fakeBackend{items: []backend.CartItem{
		serverItem("item-1", "prod-1", 2, 2500),
		serverItem("item-2", "prod-2", 1, 1500),
	}}
	s := newRemoteStore(t, fb)

	assert.Equal(t, SourceRemote, s.Source())
	assert.Len(t, s.Items(), 2)
	assert.Equal(t, int64(6500), s.Subtotal())
}

func TestRemoteStore_AddItemRefetchesServerTruth(t *testing.T) {
	fb := &fakeBackend{}
	s := newRemoteStore(t, fb)
	ctx := context.Background()

	require.NoError(t, s.AddItem(ctx, "prod-1", 2))

	// The visible line item is the server's, with its server-assigned ID.
	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "item-prod-1", items[0].ID)
	assert.Equal(t, 2, items[0].Quantity)
}

func TestRemoteStore_AddItemMergesOnServer(t *testing.T) {
	fb := &fakeBackend{}
	s := newRemoteStore(t, fb)
	ctx := context.Background()

	require.NoError(t, s.AddItem(ctx, "prod-1", 2))
	require.NoError(t, s.AddItem(ctx, "prod-1", 1))

	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 3, items[0].Quantity)
}

func TestRemoteStore_UpdateQuantityZeroDeletes(t *testing.T) {
	fb := &fakeBackend{items: []backend.CartItem{serverItem("item-1", "prod-1", 2, 2500)}}
	s := newRemoteStore(t, fb)
	ctx := context.Background()

	require.NoError(t, s.UpdateItemQuantity(ctx, "item-1", 0))

	assert.Empty(t, s.Items())
	assert.Contains(t, fb.deleteCalls, "item-1")
}

func TestRemoteStore_RemoveFailureLeavesStateAndReturnsError(t *testing.T) {
	fb := &fakeBackend{
		items:       []backend.CartItem{serverItem("item-1", "prod-1", 2, 2500)},
		failDeletes: map[string]int{"item-1": http.StatusInternalServerError},
	}
	s := newRemoteStore(t, fb)
	ctx := context.Background()

	err := s.RemoveItem(ctx, "item-1")

	require.Error(t, err)
	// The failed operation applied nothing; the item is still visible.
	assert.Len(t, s.Items(), 1)
}

func TestRemoteStore_RemoveMissingItemIsIdempotent(t *testing.T) {
	fb := &fakeBackend{items: []backend.CartItem{serverItem("item-1", "prod-1", 1, 2500)}}
	s := newRemoteStore(t, fb)
	ctx := context.Background()

	require.NoError(t, s.RemoveItem(ctx, "item-gone"))

	assert.Len(t, s.Items(), 1)
}

func TestRemoteStore_ClearCart(t *testing.T) {
	fb := &fakeBackend{items: []backend.CartItem{
		serverItem("item-1", "prod-1", 1, 2500),
		serverItem("item-2", "prod-2", 1, 1500),
	}}
	s := newRemoteStore(t, fb)
	ctx := context.Background()

	require.NoError(t, s.ClearCart(ctx))

	assert.Empty(t, s.Items())
	assert.Equal(t, []string{"item-1", "item-2"}, fb.deleteCalls)
}

func TestRemoteStore_ClearCartPartialFailure(t *testing.T) {
	fb := &fakeBackend{
		items: []backend.CartItem{
			serverItem("item-1", "prod-1", 1, 2500),
			serverItem("item-2", "prod-2", 1, 1500),
			serverItem("item-3", "prod-3", 1, 3000),
		},
		failDeletes: map[string]int{"item-2": http.StatusInternalServerError},
	}
	s := newRemoteStore(t, fb)
	ctx := context.Background()

	err := s.ClearCart(ctx)

	// All three deletes were attempted despite the middle one failing.
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "partially cleared"))
	assert.Equal(t, []string{"item-1", "item-2", "item-3"}, fb.deleteCalls)

	// The surviving item is visible, matching server truth.
	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "item-2", items[0].ID)
}
