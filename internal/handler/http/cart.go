package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/registry"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/validator"
)

// CartHandler handles HTTP requests for the visitor's cart.
type CartHandler struct {
	registry *registry.Registry
	logger   *slog.Logger
}

// NewCartHandler creates a new cart HTTP handler.
func NewCartHandler(reg *registry.Registry, logger *slog.Logger) *CartHandler {
	return &CartHandler{
		registry: reg,
		logger:   logger,
	}
}

// --- Request DTOs ---

// AddItemRequest is the JSON request body for adding a product to the cart.
type AddItemRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,gte=1"`
}

// UpdateQuantityRequest is the JSON request body for setting a line item's
// quantity. Zero removes the item.
type UpdateQuantityRequest struct {
	Quantity int `json:"quantity" validate:"gte=0"`
}

// CartView is the cart as rendered to the storefront client.
type CartView struct {
	Items     []domain.LineItem `json:"items"`
	ItemCount int               `json:"item_count"`
	Subtotal  int64             `json:"subtotal"`
	Source    string            `json:"source"`
}

// --- Handlers ---

// GetCart handles GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	v, err := h.visitor(w, r)
	if err != nil {
		return
	}

	httputil.WriteData(w, http.StatusOK, h.view(v))
}

// AddItem handles POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	v, err := h.visitor(w, r)
	if err != nil {
		return
	}

	var req AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("invalid request body"), h.logger)
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	if err := v.Cart.AddItem(r.Context(), req.ProductID, req.Quantity); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, h.view(v))
}

// UpdateItemQuantity handles PUT /api/v1/cart/items/{itemID}
func (h *CartHandler) UpdateItemQuantity(w http.ResponseWriter, r *http.Request) {
	v, err := h.visitor(w, r)
	if err != nil {
		return
	}

	itemID := chi.URLParam(r, "itemID")

	var req UpdateQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("invalid request body"), h.logger)
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	if err := v.Cart.UpdateItemQuantity(r.Context(), itemID, req.Quantity); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, h.view(v))
}

// RemoveItem handles DELETE /api/v1/cart/items/{itemID}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	v, err := h.visitor(w, r)
	if err != nil {
		return
	}

	if err := v.Cart.RemoveItem(r.Context(), chi.URLParam(r, "itemID")); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, h.view(v))
}

// ClearCart handles DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	v, err := h.visitor(w, r)
	if err != nil {
		return
	}

	if err := v.Cart.ClearCart(r.Context()); err != nil {
		// A partial clear still changed visible state; the client re-fetches
		// the cart to render what survived.
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, h.view(v))
}

// --- Helpers ---

// visitor resolves the per-visitor service graph, writing the error response
// itself on failure.
func (h *CartHandler) visitor(w http.ResponseWriter, r *http.Request) (*registry.Visitor, error) {
	v, err := h.registry.GetOrCreate(r.Context(), VisitorID(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return nil, err
	}
	return v, nil
}

func (h *CartHandler) view(v *registry.Visitor) CartView {
	return CartView{
		Items:     v.Cart.Items(),
		ItemCount: v.Cart.ItemCount(),
		Subtotal:  v.Cart.Subtotal(),
		Source:    v.Cart.Source().String(),
	}
}
