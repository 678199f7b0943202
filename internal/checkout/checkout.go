// Package checkout turns the visitor's cart into an order. Checkout is a
// logged-in-only flow: the backend builds the order from the server-side
// cart, so the storefront only supplies the shipping address.
package checkout

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/storefront/internal/backend"
	"github.com/utafrali/storefront/internal/cart"
	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/validator"
)

// FlatShippingCents is the flat shipping rate applied to every order,
// in cents.
const FlatShippingCents int64 = 1500

// EventPublisher receives order analytics events. Failures are logged,
// never surfaced to the buyer.
type EventPublisher interface {
	OrderPlaced(ctx context.Context, visitorID string, order *backend.Order) error
}

// PlaceOrderInput is the buyer-supplied part of an order.
type PlaceOrderInput struct {
	ShippingAddress string `json:"shipping_address" validate:"required,min=10"`
}

// Quote is the price breakdown shown before placing an order. All amounts
// are in cents.
type Quote struct {
	Subtotal int64 `json:"subtotal"`
	Shipping int64 `json:"shipping"`
	Total    int64 `json:"total"`
}

// Service orchestrates order placement for one visitor.
type Service struct {
	visitorID string
	cart      *cart.Store
	api       *backend.Client
	ts        backend.TokenSource
	events    EventPublisher
	logger    *slog.Logger
}

// NewService creates a checkout service bound to one visitor's cart and
// session.
func NewService(
	visitorID string,
	cartStore *cart.Store,
	api *backend.Client,
	ts backend.TokenSource,
	events EventPublisher,
	logger *slog.Logger,
) *Service {
	return &Service{
		visitorID: visitorID,
		cart:      cartStore,
		api:       api,
		ts:        ts,
		events:    events,
		logger:    logger,
	}
}

// Quote prices the current cart: subtotal from the cart's product snapshots
// plus the flat shipping rate.
func (s *Service) Quote() Quote {
	subtotal := s.cart.Subtotal()
	return Quote{
		Subtotal: subtotal,
		Shipping: FlatShippingCents,
		Total:    subtotal + FlatShippingCents,
	}
}

// Items exposes the cart lines the quote was computed from.
func (s *Service) Items() []domain.LineItem {
	return s.cart.Items()
}

// PlaceOrder validates the input, places the order against the backend, and
// clears the cart. The order is built server-side from the user's remote
// cart; an empty cart is rejected before any network call.
//
// Clearing the cart after a successful order is best-effort: a failed clear
// is logged but the order already exists, so it is still returned.
func (s *Service) PlaceOrder(ctx context.Context, input PlaceOrderInput) (*backend.Order, error) {
	if err := validator.Validate(input); err != nil {
		return nil, err
	}

	if s.cart.Source() != cart.SourceRemote {
		return nil, apperrors.Unauthorized("login required to place an order")
	}
	if s.cart.ItemCount() == 0 {
		return nil, apperrors.InvalidInput("cart is empty")
	}

	order, err := s.api.CreateOrder(ctx, s.ts, backend.CreateOrderInput{
		ShippingAddress: input.ShippingAddress,
	})
	if err != nil {
		return nil, fmt.Errorf("place order: %w", err)
	}

	s.logger.InfoContext(ctx, "order placed",
		slog.String("visitor_id", s.visitorID),
		slog.String("order_id", order.ID),
		slog.Int64("total", order.TotalAmount),
	)

	if err := s.cart.ClearCart(ctx); err != nil {
		s.logger.WarnContext(ctx, "failed to clear cart after order",
			slog.String("visitor_id", s.visitorID),
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
	}

	if s.events != nil {
		if err := s.events.OrderPlaced(ctx, s.visitorID, order); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish order.placed event",
				slog.String("order_id", order.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	return order, nil
}

// ListOrders fetches the authenticated user's order history.
func (s *Service) ListOrders(ctx context.Context) ([]backend.Order, error) {
	return s.api.ListOrders(ctx, s.ts)
}

// GetOrder fetches one order by ID.
func (s *Service) GetOrder(ctx context.Context, id string) (*backend.Order, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("order id is required")
	}
	return s.api.GetOrder(ctx, s.ts, id)
}
