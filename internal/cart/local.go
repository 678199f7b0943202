package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/utafrali/storefront/internal/backend"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/kvstore"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// Catalog fetches product details for snapshot capture when an anonymous
// visitor adds a product the cart has not seen yet.
type Catalog interface {
	GetProduct(ctx context.Context, id string) (*backend.Product, error)
}

// localSource backs the cart with the visitor's durable snapshot store.
// Line item IDs are client-assigned and stable across persistence round-trips.
type localSource struct {
	visitorID string
	store     kvstore.Store
	catalog   Catalog
}

func newLocalSource(visitorID string, store kvstore.Store, catalog Catalog) *localSource {
	return &localSource{
		visitorID: visitorID,
		store:     store,
		catalog:   catalog,
	}
}

func (l *localSource) Load(ctx context.Context) ([]domain.LineItem, error) {
	data, err := l.store.Get(ctx, kvstore.CartKey(l.visitorID))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return []domain.LineItem{}, nil
		}
		return nil, fmt.Errorf("load local cart: %w", err)
	}

	var items []domain.LineItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("unmarshal local cart: %w", err)
	}
	return items, nil
}

// persist writes the full cart snapshot back to the store. An empty cart
// removes the persisted snapshot entirely instead of storing an empty list.
func (l *localSource) persist(ctx context.Context, items []domain.LineItem) error {
	key := kvstore.CartKey(l.visitorID)

	if len(items) == 0 {
		if err := l.store.Delete(ctx, key); err != nil {
			return fmt.Errorf("delete local cart: %w", err)
		}
		return nil
	}

	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshal local cart: %w", err)
	}
	if err := l.store.Set(ctx, key, data); err != nil {
		return fmt.Errorf("persist local cart: %w", err)
	}
	return nil
}

func (l *localSource) Add(ctx context.Context, items []domain.LineItem, productID string, quantity int) ([]domain.LineItem, error) {
	if i := domain.FindByProduct(items, productID); i >= 0 {
		items[i].Quantity += quantity
		if err := l.persist(ctx, items); err != nil {
			return nil, err
		}
		return items, nil
	}

	product, err := l.catalog.GetProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("fetch product for snapshot: %w", err)
	}

	items = append(items, domain.LineItem{
		ID:        uuid.New().String(),
		ProductID: productID,
		Quantity:  quantity,
		Product: domain.ProductSnapshot{
			Name:     product.Name,
			Price:    product.Price,
			ImageURL: product.ImageURL,
			Category: product.Category,
		},
	})

	if err := l.persist(ctx, items); err != nil {
		return nil, err
	}
	return items, nil
}

func (l *localSource) Update(ctx context.Context, items []domain.LineItem, itemID string, quantity int) ([]domain.LineItem, error) {
	i := domain.FindByID(items, itemID)
	if i < 0 {
		// Unknown item: visible state is already correct.
		return items, nil
	}

	if quantity <= 0 {
		items = append(items[:i], items[i+1:]...)
	} else {
		items[i].Quantity = quantity
	}

	if err := l.persist(ctx, items); err != nil {
		return nil, err
	}
	return items, nil
}

func (l *localSource) Remove(ctx context.Context, items []domain.LineItem, itemID string) ([]domain.LineItem, error) {
	i := domain.FindByID(items, itemID)
	if i < 0 {
		return items, nil
	}

	items = append(items[:i], items[i+1:]...)

	if err := l.persist(ctx, items); err != nil {
		return nil, err
	}
	return items, nil
}

func (l *localSource) Clear(ctx context.Context, _ []domain.LineItem) ([]domain.LineItem, error) {
	if err := l.store.Delete(ctx, kvstore.CartKey(l.visitorID)); err != nil {
		return nil, fmt.Errorf("delete local cart: %w", err)
	}
	return []domain.LineItem{}, nil
}
