package cart

import (
	"context"

	"github.com/utafrali/storefront/internal/domain"
)

// Source identifies which backing store the cart currently reads from and
// writes to. Exactly one source is active at a time; the visible cart never
// merges both.
type Source int

const (
	// SourceLocal backs the cart with the visitor's durable snapshot store.
	SourceLocal Source = iota
	// SourceRemote backs the cart with the backend cart service.
	SourceRemote
)

func (s Source) String() string {
	switch s {
	case SourceLocal:
		return "local"
	case SourceRemote:
		return "remote"
	default:
		return "unknown"
	}
}

// backingSource implements the cart operations against one backing store.
// Every method receives the current visible items and returns the items that
// should become visible on success. Implementations must not mutate the
// passed slice's backing array beyond the copy they were handed.
type backingSource interface {
	Load(ctx context.Context) ([]domain.LineItem, error)
	Add(ctx context.Context, items []domain.LineItem, productID string, quantity int) ([]domain.LineItem, error)
	Update(ctx context.Context, items []domain.LineItem, itemID string, quantity int) ([]domain.LineItem, error)
	Remove(ctx context.Context, items []domain.LineItem, itemID string) ([]domain.LineItem, error)

	// Clear empties the cart. It may return both a non-nil item slice and a
	// non-nil error when the clear was partial: the slice is the surviving
	// authoritative state, the error the aggregate failure report.
	Clear(ctx context.Context, items []domain.LineItem) ([]domain.LineItem, error)
}
