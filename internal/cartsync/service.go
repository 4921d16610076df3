// Package cartsync keeps the in-memory cart store and the two persistence
// domains in agreement. Anonymous devices persist to the device store,
// authenticated accounts to the account store; login merges the former into
// the latter and logout restores the pre-login device cart.
package cartsync

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/quickplate/storefront/internal/cartstore"
	"github.com/quickplate/storefront/internal/domain"
	"github.com/quickplate/storefront/internal/repository"
	apperrors "github.com/quickplate/storefront/pkg/errors"
)

var persistFailures = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "storefront_cart_persist_failures_total",
		Help: "Total number of failed cart write-through attempts by store",
	},
	[]string{"store"},
)

// session tracks one device's authenticated state. The pre-login cart is
// kept verbatim so logout can restore it.
type session struct {
	accountKey   string
	preLoginCart *domain.Cart
}

// Service routes cart persistence by owner key and implements the login and
// logout merge semantics. It owns the in-memory store.
type Service struct {
	mu       sync.Mutex
	sessions map[string]*session
	hydrated map[string]bool

	store       *cartstore.Store
	deviceRepo  repository.CartRepository
	accountRepo repository.CartRepository
	logger      *slog.Logger
}

// NewService builds the sync service and its backing store.
func NewService(deviceRepo, accountRepo repository.CartRepository, writeTimeout time.Duration, logger *slog.Logger) *Service {
	s := &Service{
		sessions:    make(map[string]*session),
		hydrated:    make(map[string]bool),
		deviceRepo:  deviceRepo,
		accountRepo: accountRepo,
		logger:      logger,
	}
	s.store = cartstore.New(s, writeTimeout, logger)
	return s
}

// Store exposes the in-memory store for subscriptions.
func (s *Service) Store() *cartstore.Store {
	return s.store
}

// WriteCart persists a snapshot to the store matching its owner key. It is
// the cartstore write-through target.
func (s *Service) WriteCart(ctx context.Context, cart *domain.Cart) error {
	if domain.IsAccountKey(cart.OwnerKey) {
		if err := s.accountRepo.Save(ctx, cart); err != nil {
			persistFailures.WithLabelValues("postgres").Inc()
			return err
		}
		return nil
	}
	if err := s.deviceRepo.Save(ctx, cart); err != nil {
		persistFailures.WithLabelValues("redis").Inc()
		return err
	}
	return nil
}

// Owner resolves the active owner key for a device: the account key while a
// session is open, the device key otherwise.
func (s *Service) Owner(deviceID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[deviceID]; ok {
		return sess.accountKey
	}
	return domain.DeviceOwnerKey(deviceID)
}

// Cart returns the device's active cart, hydrating it from storage on first
// access.
func (s *Service) Cart(ctx context.Context, deviceID string) *domain.Cart {
	ownerKey := s.Owner(deviceID)
	s.hydrate(ctx, ownerKey)
	return s.store.Snapshot(ownerKey)
}

// AddItem adds to the device's active cart.
func (s *Service) AddItem(ctx context.Context, deviceID string, item domain.CartItem, qty int) *domain.Cart {
	ownerKey := s.Owner(deviceID)
	s.hydrate(ctx, ownerKey)
	return s.store.AddItem(ownerKey, item, qty)
}

// SetQuantity updates a line's quantity in the device's active cart.
func (s *Service) SetQuantity(ctx context.Context, deviceID, productID string, qty int) (*domain.Cart, error) {
	ownerKey := s.Owner(deviceID)
	s.hydrate(ctx, ownerKey)
	if s.store.Snapshot(ownerKey).FindItemIndex(productID) < 0 {
		return nil, apperrors.NotFound("cart item", productID)
	}
	return s.store.SetQuantity(ownerKey, productID, qty), nil
}

// RemoveItem removes a line from the device's active cart.
func (s *Service) RemoveItem(ctx context.Context, deviceID, productID string) *domain.Cart {
	ownerKey := s.Owner(deviceID)
	s.hydrate(ctx, ownerKey)
	return s.store.RemoveItem(ownerKey, productID)
}

// Clear empties the device's active cart.
func (s *Service) Clear(ctx context.Context, deviceID string) *domain.Cart {
	ownerKey := s.Owner(deviceID)
	s.hydrate(ctx, ownerKey)
	return s.store.Clear(ownerKey)
}

// Login opens an account session for the device. The device cart is merged
// into the stored account cart by summing quantities on matching products
// and taking the union of the rest; the merged cart becomes active and is
// persisted to the account store. Repeating a login for the same account is
// a no-op; logging into a second account requires logging out first.
func (s *Service) Login(ctx context.Context, deviceID, accountID string) (*domain.Cart, error) {
	accountKey := domain.AccountOwnerKey(accountID)

	s.mu.Lock()
	if sess, ok := s.sessions[deviceID]; ok {
		same := sess.accountKey == accountKey
		s.mu.Unlock()
		if same {
			return s.store.Snapshot(accountKey), nil
		}
		return nil, apperrors.Conflict("device is logged in to another account")
	}
	s.mu.Unlock()

	deviceKey := domain.DeviceOwnerKey(deviceID)
	s.hydrate(ctx, deviceKey)
	deviceCart := s.store.Snapshot(deviceKey)

	accountCart, err := s.accountRepo.Get(ctx, accountKey)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.logger.WarnContext(ctx, "account cart load failed, merging into empty cart",
				slog.String("owner_key", accountKey),
				slog.String("error", err.Error()))
		}
		accountCart = domain.NewCart(accountKey)
	}

	merged := accountCart.Clone()
	merged.Merge(deviceCart)

	s.mu.Lock()
	s.sessions[deviceID] = &session{
		accountKey:   accountKey,
		preLoginCart: deviceCart.Clone(),
	}
	s.hydrated[accountKey] = true
	s.mu.Unlock()

	return s.store.Replace(accountKey, merged), nil
}

// Logout closes the device's account session and restores the cart the
// device had before logging in. The account cart stays persisted for the
// next login.
func (s *Service) Logout(ctx context.Context, deviceID string) (*domain.Cart, error) {
	s.mu.Lock()
	sess, ok := s.sessions[deviceID]
	if !ok {
		s.mu.Unlock()
		return nil, apperrors.Unauthorized("device is not logged in")
	}
	delete(s.sessions, deviceID)
	s.mu.Unlock()

	s.store.Discard(sess.accountKey)

	deviceKey := domain.DeviceOwnerKey(deviceID)
	return s.store.Replace(deviceKey, sess.preLoginCart), nil
}

// hydrate loads an owner's cart from its backing store into memory once.
// Load failures degrade to an empty in-memory cart.
func (s *Service) hydrate(ctx context.Context, ownerKey string) {
	s.mu.Lock()
	if s.hydrated[ownerKey] {
		s.mu.Unlock()
		return
	}
	s.hydrated[ownerKey] = true
	s.mu.Unlock()

	repo := s.deviceRepo
	if domain.IsAccountKey(ownerKey) {
		repo = s.accountRepo
	}

	cart, err := repo.Get(ctx, ownerKey)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.logger.WarnContext(ctx, "cart hydration failed, starting empty",
				slog.String("owner_key", ownerKey),
				slog.String("error", err.Error()))
		}
		return
	}
	s.store.Load(cart)
}
