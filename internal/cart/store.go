// Package cart implements the storefront cart: a per-visitor store resolved
// from one of two backing sources (the visitor's durable local snapshot, or
// the backend cart service) depending on whether the session is
// authenticated.
package cart

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/utafrali/storefront/internal/backend"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/kvstore"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// EventPublisher receives cart analytics events. Publish failures are logged
// by the store and never fail the triggering operation.
type EventPublisher interface {
	CartUpdated(ctx context.Context, visitorID string, items []domain.LineItem) error
	CartCleared(ctx context.Context, visitorID string) error
}

// Store is the authoritative in-memory cart for one visitor session.
//
// Mutations are serialized by an operation mutex, and every resolution bumps
// a generation token. A mutation that started under a superseded generation
// (the session identity changed while its network call was in flight)
// discards its result instead of overwriting newer state.
type Store struct {
	visitorID string
	local     backingSource
	remote    backingSource
	events    EventPublisher
	logger    *slog.Logger

	// opMu orders mutations end to end, including their network round trips.
	opMu sync.Mutex

	// mu guards the visible state below. It is never held across a network call.
	mu      sync.Mutex
	source  Source
	backing backingSource
	items   []domain.LineItem

	gen     atomic.Uint64
	loading atomic.Int32
}

// NewStore creates a cart store for the given visitor. Resolve must be called
// before cart operations are accepted.
func NewStore(
	visitorID string,
	store kvstore.Store,
	catalog Catalog,
	api *backend.Client,
	ts backend.TokenSource,
	events EventPublisher,
	logger *slog.Logger,
) *Store {
	return &Store{
		visitorID: visitorID,
		local:     newLocalSource(visitorID, store, catalog),
		remote:    newRemoteSource(api, ts),
		events:    events,
		logger:    logger,
	}
}

// Resolve switches the backing source to match the given identity state and
// replaces the visible items with that source's contents. This is a full
// reset: items from the previous source are discarded from view, never
// merged. It is invoked once at construction and again on every session
// identity change.
func (s *Store) Resolve(ctx context.Context, authenticated bool) error {
	gen := s.gen.Add(1)

	s.mu.Lock()
	if authenticated {
		s.source = SourceRemote
		s.backing = s.remote
	} else {
		s.source = SourceLocal
		s.backing = s.local
	}
	src := s.backing
	s.items = nil
	s.mu.Unlock()

	items, err := src.Load(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to load cart on resolve",
			slog.String("visitor_id", s.visitorID),
			slog.String("source", s.Source().String()),
			slog.String("error", err.Error()),
		)
		return err
	}

	if !s.apply(gen, items) {
		return nil
	}

	s.logger.DebugContext(ctx, "cart resolved",
		slog.String("visitor_id", s.visitorID),
		slog.Int("items", len(items)),
	)
	return nil
}

// Items returns a copy of the visible line items.
func (s *Store) Items() []domain.LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.CloneItems(s.items)
}

// ItemCount returns the total number of units in the visible cart.
func (s *Store) ItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.ItemCount(s.items)
}

// Subtotal returns the visible cart subtotal in cents, from snapshot prices.
func (s *Store) Subtotal() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.Subtotal(s.items)
}

// Source returns the currently active backing source.
func (s *Store) Source() Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.source
}

// Loading reports whether a cart operation is currently in flight.
func (s *Store) Loading() bool {
	return s.loading.Load() > 0
}

// AddItem adds quantity units of a product to the cart. If the product is
// already present its quantity is incremented; no duplicate row is created.
// On failure the visible state is left unchanged and the error is
// recoverable: the cart stays usable.
func (s *Store) AddItem(ctx context.Context, productID string, quantity int) error {
	if productID == "" {
		return apperrors.InvalidInput("product id is required")
	}
	if quantity < 1 {
		return apperrors.InvalidInput("quantity must be at least 1")
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()
	s.loading.Add(1)
	defer s.loading.Add(-1)

	src, gen, items, err := s.snapshot()
	if err != nil {
		return err
	}

	newItems, err := src.Add(ctx, items, productID, quantity)
	if err != nil {
		return err
	}

	if s.apply(gen, newItems) {
		s.publishUpdated(ctx, newItems)
		s.logger.InfoContext(ctx, "item added to cart",
			slog.String("visitor_id", s.visitorID),
			slog.String("product_id", productID),
			slog.Int("quantity", quantity),
		)
	}
	return nil
}

// UpdateItemQuantity sets the quantity of a line item. A quantity of zero or
// below removes the item; that is the defined policy, not an error.
func (s *Store) UpdateItemQuantity(ctx context.Context, itemID string, quantity int) error {
	if itemID == "" {
		return apperrors.InvalidInput("item id is required")
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()
	s.loading.Add(1)
	defer s.loading.Add(-1)

	src, gen, items, err := s.snapshot()
	if err != nil {
		return err
	}

	newItems, err := src.Update(ctx, items, itemID, quantity)
	if err != nil {
		return err
	}

	if s.apply(gen, newItems) {
		s.publishUpdated(ctx, newItems)
		s.logger.InfoContext(ctx, "cart item quantity updated",
			slog.String("visitor_id", s.visitorID),
			slog.String("item_id", itemID),
			slog.Int("quantity", quantity),
		)
	}
	return nil
}

// RemoveItem removes a line item. Removing an unknown item ID is a no-op on
// visible state, not an error.
func (s *Store) RemoveItem(ctx context.Context, itemID string) error {
	if itemID == "" {
		return apperrors.InvalidInput("item id is required")
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()
	s.loading.Add(1)
	defer s.loading.Add(-1)

	src, gen, items, err := s.snapshot()
	if err != nil {
		return err
	}

	newItems, err := src.Remove(ctx, items, itemID)
	if err != nil {
		return err
	}

	if s.apply(gen, newItems) {
		s.publishUpdated(ctx, newItems)
		s.logger.InfoContext(ctx, "item removed from cart",
			slog.String("visitor_id", s.visitorID),
			slog.String("item_id", itemID),
		)
	}
	return nil
}

// ClearCart empties the cart. Remote clears are best-effort: individual item
// deletes that fail are collected into one aggregate error, the rest of the
// sequence still runs, and the visible state is set to the re-fetched server
// truth so a partial clear is reported rather than hidden.
func (s *Store) ClearCart(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	s.loading.Add(1)
	defer s.loading.Add(-1)

	src, gen, items, err := s.snapshot()
	if err != nil {
		return err
	}

	newItems, clearErr := src.Clear(ctx, items)
	if newItems == nil {
		return clearErr
	}

	if s.apply(gen, newItems) {
		if clearErr == nil {
			s.publishCleared(ctx)
			s.logger.InfoContext(ctx, "cart cleared",
				slog.String("visitor_id", s.visitorID),
			)
		} else {
			s.publishUpdated(ctx, newItems)
			s.logger.WarnContext(ctx, "cart partially cleared",
				slog.String("visitor_id", s.visitorID),
				slog.Int("remaining", len(newItems)),
				slog.String("error", clearErr.Error()),
			)
		}
	}
	return clearErr
}

// snapshot captures the current backing source, generation, and a copy of
// the visible items for a mutation about to run.
func (s *Store) snapshot() (backingSource, uint64, []domain.LineItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.backing == nil {
		return nil, 0, nil, apperrors.Internal(errUnresolved)
	}
	return s.backing, s.gen.Load(), domain.CloneItems(s.items), nil
}

var errUnresolved = errors.New("cart store has not been resolved")

// apply installs new visible items unless the generation advanced while the
// operation was in flight, in which case the stale result is discarded.
func (s *Store) apply(gen uint64, items []domain.LineItem) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen.Load() != gen {
		s.logger.Debug("discarding stale cart operation result",
			slog.String("visitor_id", s.visitorID),
		)
		return false
	}
	s.items = items
	return true
}

func (s *Store) publishUpdated(ctx context.Context, items []domain.LineItem) {
	if s.events == nil {
		return
	}
	if err := s.events.CartUpdated(ctx, s.visitorID, items); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish cart.updated event",
			slog.String("visitor_id", s.visitorID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *Store) publishCleared(ctx context.Context) {
	if s.events == nil {
		return
	}
	if err := s.events.CartCleared(ctx, s.visitorID); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish cart.cleared event",
			slog.String("visitor_id", s.visitorID),
			slog.String("error", err.Error()),
		)
	}
}
