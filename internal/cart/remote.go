package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/utafrali/storefront/internal/backend"
	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// remoteSource backs the cart with the backend cart service. Every mutation
// re-fetches the authoritative server cart afterwards so the visible state
// always matches server truth, at the cost of an extra round trip.
type remoteSource struct {
	api *backend.Client
	ts  backend.TokenSource
}

func newRemoteSource(api *backend.Client, ts backend.TokenSource) *remoteSource {
	return &remoteSource{
		api: api,
		ts:  ts,
	}
}

func (r *remoteSource) Load(ctx context.Context) ([]domain.LineItem, error) {
	cart, err := r.api.GetCart(ctx, r.ts)
	if err != nil {
		return nil, fmt.Errorf("fetch remote cart: %w", err)
	}
	return fromRemoteItems(cart.Items), nil
}

func (r *remoteSource) Add(ctx context.Context, _ []domain.LineItem, productID string, quantity int) ([]domain.LineItem, error) {
	if err := r.api.AddCartItem(ctx, r.ts, productID, quantity); err != nil {
		return nil, err
	}
	return r.Load(ctx)
}

func (r *remoteSource) Update(ctx context.Context, items []domain.LineItem, itemID string, quantity int) ([]domain.LineItem, error) {
	// Quantity zero or below means removal, by policy rather than by clamping.
	if quantity <= 0 {
		return r.Remove(ctx, items, itemID)
	}

	if err := r.api.UpdateCartItem(ctx, r.ts, itemID, quantity); err != nil {
		return nil, err
	}
	return r.Load(ctx)
}

func (r *remoteSource) Remove(ctx context.Context, _ []domain.LineItem, itemID string) ([]domain.LineItem, error) {
	if err := r.api.DeleteCartItem(ctx, r.ts, itemID); err != nil {
		// Removing an item the server no longer has is a no-op, not a failure.
		if !errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
	}
	return r.Load(ctx)
}

// Clear deletes each line item sequentially, best-effort: a failed delete
// does not roll back prior deletes and does not halt the remaining sequence.
// All failures are collected and returned as one aggregate error alongside
// the re-fetched surviving state.
func (r *remoteSource) Clear(ctx context.Context, items []domain.LineItem) ([]domain.LineItem, error) {
	var failures []error
	for _, item := range items {
		if err := r.api.DeleteCartItem(ctx, r.ts, item.ID); err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				continue
			}
			failures = append(failures, fmt.Errorf("delete item %s: %w", item.ID, err))
		}
	}

	remaining, err := r.Load(ctx)
	if err != nil {
		failures = append(failures, err)
		return nil, errors.Join(failures...)
	}

	if len(failures) > 0 {
		return remaining, fmt.Errorf("cart only partially cleared: %w", errors.Join(failures...))
	}
	return remaining, nil
}

// fromRemoteItems converts the backend cart representation into the
// storefront's line item model, capturing the product snapshot.
func fromRemoteItems(items []backend.CartItem) []domain.LineItem {
	out := make([]domain.LineItem, len(items))
	for i, item := range items {
		out[i] = domain.LineItem{
			ID:        item.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Product: domain.ProductSnapshot{
				Name:     item.Product.Name,
				Price:    item.Product.Price,
				ImageURL: item.Product.ImageURL,
				Category: item.Product.Category,
			},
		}
	}
	return out
}
