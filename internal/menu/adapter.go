// Package menu normalizes upstream meal-catalog records into cart items.
// Upstream records arrive in the TheMealDB shape with string-typed prices;
// everything past this boundary works with canonical types only.
package menu

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/quickplate/storefront/internal/domain"
	apperrors "github.com/quickplate/storefront/pkg/errors"
)

// MealRecord is the upstream catalog shape. Price is a string because the
// upstream API serves it that way; it is parsed exactly once, here.
type MealRecord struct {
	IDMeal       string `json:"idMeal"`
	StrMeal      string `json:"strMeal"`
	StrMealThumb string `json:"strMealThumb"`
	Price        string `json:"price"`
}

// ToCartItem converts an upstream meal record into a canonical cart item
// with the given quantity. Records with a missing ID or an unparseable or
// negative price are rejected.
func ToCartItem(rec MealRecord, quantity int) (domain.CartItem, error) {
	id := strings.TrimSpace(rec.IDMeal)
	if id == "" {
		return domain.CartItem{}, apperrors.InvalidInput("meal record has no id")
	}
	if quantity < 1 {
		return domain.CartItem{}, apperrors.InvalidInput("quantity must be at least 1")
	}

	price, err := decimal.NewFromString(strings.TrimSpace(rec.Price))
	if err != nil {
		return domain.CartItem{}, apperrors.InvalidInput(fmt.Sprintf("meal %s has unparseable price %q", id, rec.Price))
	}
	if price.IsNegative() {
		return domain.CartItem{}, apperrors.InvalidInput(fmt.Sprintf("meal %s has negative price", id))
	}

	return domain.CartItem{
		ProductID: id,
		Name:      strings.TrimSpace(rec.StrMeal),
		UnitPrice: price,
		Quantity:  quantity,
		ImageRef:  strings.TrimSpace(rec.StrMealThumb),
	}, nil
}
