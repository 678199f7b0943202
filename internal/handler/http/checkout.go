package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/storefront/internal/checkout"
	"github.com/utafrali/storefront/internal/registry"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/httputil"
)

// CheckoutHandler handles quoting, order placement, and order history.
type CheckoutHandler struct {
	registry *registry.Registry
	logger   *slog.Logger
}

// NewCheckoutHandler creates a new checkout HTTP handler.
func NewCheckoutHandler(reg *registry.Registry, logger *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		registry: reg,
		logger:   logger,
	}
}

// QuoteView is the checkout summary rendered to the client.
type QuoteView struct {
	checkout.Quote
	ItemCount int `json:"item_count"`
}

// Quote handles GET /api/v1/checkout/quote.
func (h *CheckoutHandler) Quote(w http.ResponseWriter, r *http.Request) {
	v, err := h.visitor(w, r)
	if err != nil {
		return
	}

	httputil.WriteData(w, http.StatusOK, QuoteView{
		Quote:     v.Checkout.Quote(),
		ItemCount: v.Cart.ItemCount(),
	})
}

// PlaceOrder handles POST /api/v1/orders.
func (h *CheckoutHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	v, err := h.visitor(w, r)
	if err != nil {
		return
	}

	var input checkout.PlaceOrderInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("invalid request body"), h.logger)
		return
	}

	order, err := v.Checkout.PlaceOrder(r.Context(), input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusCreated, order)
}

// ListOrders handles GET /api/v1/orders.
func (h *CheckoutHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	v, err := h.visitor(w, r)
	if err != nil {
		return
	}

	orders, err := v.Checkout.ListOrders(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, orders)
}

// GetOrder handles GET /api/v1/orders/{orderID}.
func (h *CheckoutHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	v, err := h.visitor(w, r)
	if err != nil {
		return
	}

	order, err := v.Checkout.GetOrder(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, order)
}

func (h *CheckoutHandler) visitor(w http.ResponseWriter, r *http.Request) (*registry.Visitor, error) {
	v, err := h.registry.GetOrCreate(r.Context(), VisitorID(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return nil, err
	}
	return v, nil
}
