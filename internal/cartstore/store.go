// Package cartstore holds the live carts. All reads and mutations go through
// the in-memory store; persistence is a best-effort write-through that never
// blocks or fails a mutation.
package cartstore

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/quickplate/storefront/internal/domain"
)

// Writer receives cart snapshots for persistence. The sync layer implements
// it and routes each snapshot to the device or account store by owner key.
type Writer interface {
	WriteCart(ctx context.Context, cart *domain.Cart) error
}

// Subscriber is notified with a private snapshot after every mutation.
type Subscriber func(cart *domain.Cart)

// writeQueue serializes persistence per owner. At most one write is in
// flight and at most one snapshot waits behind it; a newer snapshot replaces
// the waiting one, so a burst of mutations costs at most two writes.
type writeQueue struct {
	inFlight bool
	pending  *domain.Cart
}

// Store is the mutex-guarded in-memory cart store.
type Store struct {
	mu      sync.Mutex
	carts   map[string]*domain.Cart
	subs    map[string]map[int]Subscriber
	queues  map[string]*writeQueue
	nextSub int

	writer       Writer
	writeTimeout time.Duration
	logger       *slog.Logger
}

// New creates a Store that writes through to the given Writer.
func New(writer Writer, writeTimeout time.Duration, logger *slog.Logger) *Store {
	return &Store{
		carts:        make(map[string]*domain.Cart),
		subs:         make(map[string]map[int]Subscriber),
		queues:       make(map[string]*writeQueue),
		writer:       writer,
		writeTimeout: writeTimeout,
		logger:       logger,
	}
}

// Snapshot returns a private copy of the owner's cart, creating an empty
// cart on first access.
func (s *Store) Snapshot(ownerKey string) *domain.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cartLocked(ownerKey).Clone()
}

// AddItem merges the item into the owner's cart. A quantity below 1 changes
// nothing and notifies nobody.
func (s *Store) AddItem(ownerKey string, item domain.CartItem, qty int) *domain.Cart {
	if qty < 1 {
		return s.Snapshot(ownerKey)
	}
	return s.mutate(ownerKey, func(cart *domain.Cart) {
		cart.Add(item, qty)
	})
}

// SetQuantity sets an item's quantity, clamped to a floor of 1. Absent
// products change nothing.
func (s *Store) SetQuantity(ownerKey, productID string, qty int) *domain.Cart {
	return s.mutate(ownerKey, func(cart *domain.Cart) {
		cart.SetQuantity(productID, qty)
	})
}

// RemoveItem removes a product line from the owner's cart.
func (s *Store) RemoveItem(ownerKey, productID string) *domain.Cart {
	return s.mutate(ownerKey, func(cart *domain.Cart) {
		cart.Remove(productID)
	})
}

// Clear empties the owner's cart.
func (s *Store) Clear(ownerKey string) *domain.Cart {
	return s.mutate(ownerKey, func(cart *domain.Cart) {
		cart.Clear()
	})
}

// Replace swaps the owner's whole cart, used by the sync layer on login and
// logout. The replacement is persisted and announced like any mutation.
func (s *Store) Replace(ownerKey string, cart *domain.Cart) *domain.Cart {
	return s.mutate(ownerKey, func(current *domain.Cart) {
		current.Items = cart.Clone().Items
		current.UpdatedAt = time.Now().UTC()
	})
}

// Load installs a cart read back from storage. It neither persists nor
// notifies; hydration is not a mutation.
func (s *Store) Load(cart *domain.Cart) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.carts[cart.OwnerKey] = cart.Clone()
}

// Discard drops the owner's in-memory cart without persisting anything.
func (s *Store) Discard(ownerKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, ownerKey)
}

// Subscribe registers a callback for the owner's cart changes and returns an
// unsubscribe function. Callbacks run synchronously on the mutating
// goroutine with a private snapshot.
func (s *Store) Subscribe(ownerKey string, fn Subscriber) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.subs[ownerKey] == nil {
		s.subs[ownerKey] = make(map[int]Subscriber)
	}
	id := s.nextSub
	s.nextSub++
	s.subs[ownerKey][id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs[ownerKey], id)
	}
}

func (s *Store) cartLocked(ownerKey string) *domain.Cart {
	cart, ok := s.carts[ownerKey]
	if !ok {
		cart = domain.NewCart(ownerKey)
		s.carts[ownerKey] = cart
	}
	return cart
}

// mutate applies fn under the lock, then notifies subscribers and enqueues a
// write-through outside it.
func (s *Store) mutate(ownerKey string, fn func(*domain.Cart)) *domain.Cart {
	s.mu.Lock()
	cart := s.cartLocked(ownerKey)
	fn(cart)
	snapshot := cart.Clone()

	var subs []Subscriber
	for _, fn := range s.subs[ownerKey] {
		subs = append(subs, fn)
	}
	s.enqueueLocked(ownerKey, snapshot)
	s.mu.Unlock()

	for _, fn := range subs {
		fn(snapshot.Clone())
	}
	return snapshot
}

func (s *Store) enqueueLocked(ownerKey string, snapshot *domain.Cart) {
	q, ok := s.queues[ownerKey]
	if !ok {
		q = &writeQueue{}
		s.queues[ownerKey] = q
	}
	if q.inFlight {
		q.pending = snapshot
		return
	}
	q.inFlight = true
	go s.drain(ownerKey, snapshot)
}

// drain performs writes for one owner until the queue empties. Failures are
// logged and dropped; the in-memory cart stays authoritative.
func (s *Store) drain(ownerKey string, snapshot *domain.Cart) {
	for {
		ctx, cancel := context.WithTimeout(context.Background(), s.writeTimeout)
		err := s.writer.WriteCart(ctx, snapshot)
		cancel()
		if err != nil {
			s.logger.Warn("cart write-through failed, keeping local state",
				slog.String("owner_key", ownerKey),
				slog.String("error", err.Error()))
		}

		s.mu.Lock()
		q := s.queues[ownerKey]
		if q.pending == nil {
			q.inFlight = false
			s.mu.Unlock()
			return
		}
		snapshot = q.pending
		q.pending = nil
		s.mu.Unlock()
	}
}
