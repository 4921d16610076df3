// Package redis stores device-local carts in Redis as JSON. Records that
// fail to decode are dropped on load rather than poisoning the whole cart.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/quickplate/storefront/internal/domain"
	apperrors "github.com/quickplate/storefront/pkg/errors"
)

const keyPrefix = "cart:"

// storedCart is the wire shape. Items stay raw until decoded one by one so
// a single malformed record costs only itself.
type storedCart struct {
	OwnerKey  string            `json:"owner_key"`
	Items     []json.RawMessage `json:"items"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// CartRepository implements repository.CartRepository on Redis.
type CartRepository struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCartRepository creates a Redis-backed cart repository. Carts expire
// after the given TTL; a device that never returns does not leak a key.
func NewCartRepository(client *redis.Client, ttl time.Duration, logger *slog.Logger) *CartRepository {
	return &CartRepository{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

// Get loads the cart for an owner key. Item records that fail to decode or
// violate cart invariants are dropped and logged; the remaining items load
// normally.
func (r *CartRepository) Get(ctx context.Context, ownerKey string) (*domain.Cart, error) {
	data, err := r.client.Get(ctx, keyPrefix+ownerKey).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, apperrors.NotFound("cart", ownerKey)
		}
		return nil, fmt.Errorf("redis get cart: %w", err)
	}

	var stored storedCart
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("unmarshal cart: %w", err)
	}

	cart := domain.NewCart(ownerKey)
	cart.UpdatedAt = stored.UpdatedAt
	for i, raw := range stored.Items {
		var item domain.CartItem
		if err := json.Unmarshal(raw, &item); err != nil {
			r.logger.WarnContext(ctx, "dropping malformed cart item",
				slog.String("owner_key", ownerKey),
				slog.Int("index", i),
				slog.String("error", err.Error()))
			continue
		}
		if !item.Valid() {
			r.logger.WarnContext(ctx, "dropping invalid cart item",
				slog.String("owner_key", ownerKey),
				slog.String("product_id", item.ProductID))
			continue
		}
		cart.Items = append(cart.Items, item)
	}

	return cart, nil
}

// Save persists the whole cart under its owner key, refreshing the TTL.
func (r *CartRepository) Save(ctx context.Context, cart *domain.Cart) error {
	stored := storedCart{
		OwnerKey:  cart.OwnerKey,
		Items:     make([]json.RawMessage, 0, len(cart.Items)),
		UpdatedAt: cart.UpdatedAt,
	}
	for _, item := range cart.Items {
		raw, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("marshal cart item %s: %w", item.ProductID, err)
		}
		stored.Items = append(stored.Items, raw)
	}

	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("marshal cart: %w", err)
	}

	if err := r.client.Set(ctx, keyPrefix+cart.OwnerKey, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set cart: %w", err)
	}
	return nil
}

// Delete removes the owner's cart.
func (r *CartRepository) Delete(ctx context.Context, ownerKey string) error {
	if err := r.client.Del(ctx, keyPrefix+ownerKey).Err(); err != nil {
		return fmt.Errorf("redis del cart: %w", err)
	}
	return nil
}
