package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/storefront/internal/backend"
	"github.com/utafrali/storefront/pkg/httputil"
)

// ProductHandler proxies the public product catalog. Catalog reads are
// anonymous; no session is involved.
type ProductHandler struct {
	api    *backend.Client
	logger *slog.Logger
}

// NewProductHandler creates a new product HTTP handler.
func NewProductHandler(api *backend.Client, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{
		api:    api,
		logger: logger,
	}
}

// List handles GET /api/v1/products, optionally filtered by ?category=.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	products, err := h.api.ListProducts(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, products)
}

// Get handles GET /api/v1/products/{productID}.
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	product, err := h.api.GetProduct(r.Context(), chi.URLParam(r, "productID"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, product)
}
