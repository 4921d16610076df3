package repository

import (
	"context"

	"github.com/quickplate/storefront/internal/domain"
)

// CartRepository is the persistence contract shared by the device-local
// store (Redis) and the account store (Postgres). The sync layer picks an
// implementation by owner key and treats both identically.
type CartRepository interface {
	// Get retrieves the cart for an owner key. Returns a not-found error
	// when no cart has ever been saved for the owner.
	Get(ctx context.Context, ownerKey string) (*domain.Cart, error)

	// Save persists the whole cart, replacing any previously stored state
	// for the owner. Last writer wins.
	Save(ctx context.Context, cart *domain.Cart) error

	// Delete removes the owner's cart entirely.
	Delete(ctx context.Context, ownerKey string) error
}
