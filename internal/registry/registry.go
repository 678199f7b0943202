// Package registry owns the per-visitor object graph: one session, one cart
// store, and one checkout service per visitor ID, created lazily on first
// request and shared across that visitor's requests.
package registry

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/utafrali/storefront/internal/backend"
	"github.com/utafrali/storefront/internal/cart"
	"github.com/utafrali/storefront/internal/checkout"
	"github.com/utafrali/storefront/internal/kvstore"
	"github.com/utafrali/storefront/internal/session"
)

// Publisher combines the event publishers the per-visitor graph needs.
type Publisher interface {
	cart.EventPublisher
	checkout.EventPublisher
}

// Visitor bundles the per-visitor services handed to request handlers.
type Visitor struct {
	Session  *session.Session
	Cart     *cart.Store
	Checkout *checkout.Service
}

// entry guards one visitor's graph. Construction runs under the entry's
// once, never under the registry map lock, so one visitor's backend round
// trips cannot stall other visitors.
type entry struct {
	once     sync.Once
	visitor  *Visitor
	err      error
	lastSeen atomic.Int64
}

func (e *entry) touch() {
	e.lastSeen.Store(time.Now().UnixNano())
}

// Registry creates and caches per-visitor service graphs.
type Registry struct {
	store  kvstore.Store
	api    *backend.Client
	events Publisher
	logger *slog.Logger

	mu       sync.RWMutex
	visitors map[string]*entry
}

// New creates an empty registry over the shared dependencies.
func New(store kvstore.Store, api *backend.Client, events Publisher, logger *slog.Logger) *Registry {
	return &Registry{
		store:    store,
		api:      api,
		events:   events,
		logger:   logger,
		visitors: make(map[string]*entry),
	}
}

// GetOrCreate returns the visitor's service graph, building it on first use.
// Building hydrates the session from any persisted token, wires the cart
// store to re-resolve on every identity change, and resolves the cart once
// against the hydrated identity. Concurrent requests for the same visitor
// share one build; requests for other visitors proceed independently.
func (r *Registry) GetOrCreate(ctx context.Context, visitorID string) (*Visitor, error) {
	r.mu.RLock()
	e, ok := r.visitors[visitorID]
	r.mu.RUnlock()

	if !ok {
		r.mu.Lock()
		e, ok = r.visitors[visitorID]
		if !ok {
			e = &entry{}
			e.touch()
			r.visitors[visitorID] = e
		}
		r.mu.Unlock()
	}

	// The map lock is released here: hydration and the initial cart resolve
	// hit the backend and must not run inside the registry-wide lock.
	e.once.Do(func() {
		e.visitor, e.err = r.build(ctx, visitorID)
	})
	if e.err != nil {
		err := e.err
		// Drop the failed entry so the visitor's next request retries.
		r.mu.Lock()
		if r.visitors[visitorID] == e {
			delete(r.visitors, visitorID)
		}
		r.mu.Unlock()
		return nil, err
	}

	e.touch()
	return e.visitor, nil
}

func (r *Registry) build(ctx context.Context, visitorID string) (*Visitor, error) {
	sess := session.New(visitorID, r.store, r.api, r.logger)
	if err := sess.Hydrate(ctx); err != nil {
		return nil, err
	}

	var events cart.EventPublisher
	var orderEvents checkout.EventPublisher
	if r.events != nil {
		events = r.events
		orderEvents = r.events
	}

	cartStore := cart.NewStore(visitorID, r.store, r.api, r.api, sess, events, r.logger)

	// Any identity change, including a 401-triggered invalidation during a
	// cart call, flips the cart to the matching backing source.
	sess.OnChange(func(ctx context.Context) {
		if err := cartStore.Resolve(ctx, sess.Authenticated()); err != nil {
			r.logger.ErrorContext(ctx, "failed to re-resolve cart after session change",
				slog.String("visitor_id", visitorID),
				slog.String("error", err.Error()),
			)
		}
	})

	if err := cartStore.Resolve(ctx, sess.Authenticated()); err != nil {
		r.logger.WarnContext(ctx, "initial cart resolve failed",
			slog.String("visitor_id", visitorID),
			slog.String("error", err.Error()),
		)
	}

	r.logger.DebugContext(ctx, "visitor registered",
		slog.String("visitor_id", visitorID),
		slog.Bool("authenticated", sess.Authenticated()),
	)

	return &Visitor{
		Session:  sess,
		Cart:     cartStore,
		Checkout: checkout.NewService(visitorID, cartStore, r.api, sess, orderEvents, r.logger),
	}, nil
}

// Evict drops a visitor's cached graph. The next request rebuilds it from
// the persisted token and cart snapshot.
func (r *Registry) Evict(visitorID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.visitors, visitorID)
}

// SweepIdle evicts graphs not touched for at least idleFor and reports how
// many were dropped. Evicted visitors lose only in-memory state; the
// persisted token and cart snapshot rebuild the graph on their next request.
func (r *Registry) SweepIdle(idleFor time.Duration) int {
	cutoff := time.Now().Add(-idleFor).UnixNano()

	r.mu.Lock()
	defer r.mu.Unlock()
	evicted := 0
	for id, e := range r.visitors {
		if e.lastSeen.Load() <= cutoff {
			delete(r.visitors, id)
			evicted++
		}
	}
	return evicted
}

// RunSweeper evicts idle visitor graphs on a fixed interval until the
// context is canceled. Without it the registry grows one graph per visitor
// ID for the life of the process.
func (r *Registry) RunSweeper(ctx context.Context, interval, idleFor time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.SweepIdle(idleFor); n > 0 {
				r.logger.Debug("evicted idle visitor graphs", slog.Int("count", n))
			}
		}
	}
}

// Len reports how many visitor graphs are currently cached.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.visitors)
}
