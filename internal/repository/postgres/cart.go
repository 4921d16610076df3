// Package postgres stores account carts in PostgreSQL. A save replaces the
// whole cart in one transaction, mirroring how the storefront treats the
// in-memory cart as authoritative.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/quickplate/storefront/internal/domain"
	"github.com/quickplate/storefront/pkg/database"
	apperrors "github.com/quickplate/storefront/pkg/errors"
)

// CartRepository implements repository.CartRepository using PostgreSQL.
type CartRepository struct {
	pool   database.DBTX
	logger *slog.Logger
}

// NewCartRepository creates a PostgreSQL-backed cart repository.
func NewCartRepository(pool database.DBTX, logger *slog.Logger) *CartRepository {
	return &CartRepository{pool: pool, logger: logger}
}

// Get retrieves an account cart with its items. Item rows violating cart
// invariants are dropped and logged rather than failing the load.
func (r *CartRepository) Get(ctx context.Context, ownerKey string) (*domain.Cart, error) {
	cart := domain.NewCart(ownerKey)

	cartQuery := `SELECT updated_at FROM carts WHERE owner_key = $1`
	if err := r.pool.QueryRow(ctx, cartQuery, ownerKey).Scan(&cart.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("cart", ownerKey)
		}
		return nil, fmt.Errorf("select cart: %w", err)
	}

	itemQuery := `
		SELECT product_id, name, unit_price, quantity, image_ref
		FROM cart_items
		WHERE owner_key = $1
		ORDER BY position`

	rows, err := r.pool.Query(ctx, itemQuery, ownerKey)
	if err != nil {
		return nil, fmt.Errorf("select cart items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			item  domain.CartItem
			price decimal.Decimal
		)
		if err := rows.Scan(&item.ProductID, &item.Name, &price, &item.Quantity, &item.ImageRef); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		item.UnitPrice = price
		if !item.Valid() {
			r.logger.WarnContext(ctx, "dropping invalid cart item",
				slog.String("owner_key", ownerKey),
				slog.String("product_id", item.ProductID))
			continue
		}
		cart.Items = append(cart.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cart items: %w", err)
	}

	return cart, nil
}

// Save replaces the stored cart for the owner in a single transaction:
// upsert the cart row, delete every existing item, insert the current set.
func (r *CartRepository) Save(ctx context.Context, cart *domain.Cart) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	cartQuery := `
		INSERT INTO carts (owner_key, updated_at)
		VALUES ($1, $2)
		ON CONFLICT (owner_key) DO UPDATE SET updated_at = EXCLUDED.updated_at`

	if _, err := tx.Exec(ctx, cartQuery, cart.OwnerKey, cart.UpdatedAt); err != nil {
		return fmt.Errorf("upsert cart: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE owner_key = $1`, cart.OwnerKey); err != nil {
		return fmt.Errorf("delete cart items: %w", err)
	}

	itemQuery := `
		INSERT INTO cart_items (owner_key, product_id, name, unit_price, quantity, image_ref, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	for i, item := range cart.Items {
		if _, err := tx.Exec(ctx, itemQuery,
			cart.OwnerKey,
			item.ProductID,
			item.Name,
			item.UnitPrice,
			item.Quantity,
			item.ImageRef,
			i,
		); err != nil {
			return fmt.Errorf("insert cart item %s: %w", item.ProductID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Delete removes the cart row; items cascade.
func (r *CartRepository) Delete(ctx context.Context, ownerKey string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM carts WHERE owner_key = $1`, ownerKey); err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}
	return nil
}
