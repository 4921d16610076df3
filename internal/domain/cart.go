package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Owner key prefixes. A cart belongs either to an anonymous device or to an
// authenticated account; the prefix makes the two domains impossible to mix up
// in storage keys.
const (
	deviceKeyPrefix  = "dev:"
	accountKeyPrefix = "acct:"
)

// DeviceOwnerKey builds the owner key for an anonymous device cart.
func DeviceOwnerKey(deviceID string) string {
	return deviceKeyPrefix + deviceID
}

// AccountOwnerKey builds the owner key for an account-scoped cart.
func AccountOwnerKey(accountID string) string {
	return accountKeyPrefix + accountID
}

// IsAccountKey reports whether the owner key refers to an account cart.
func IsAccountKey(ownerKey string) bool {
	return strings.HasPrefix(ownerKey, accountKeyPrefix)
}

// CartItem is one product line in a cart. At most one item per ProductID
// exists within a cart; quantity is always at least 1.
type CartItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	ImageRef  string          `json:"image_ref,omitempty"`
}

// Valid reports whether the item satisfies the cart invariants. Used when
// loading persisted records: invalid records are dropped, not propagated.
func (i CartItem) Valid() bool {
	return i.ProductID != "" && i.Quantity >= 1 && !i.UnitPrice.IsNegative()
}

// Cart is the mutable collection of items owned by one device or one account.
type Cart struct {
	OwnerKey  string     `json:"owner_key"`
	Items     []CartItem `json:"items"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// NewCart creates an empty cart for the given owner.
func NewCart(ownerKey string) *Cart {
	return &Cart{
		OwnerKey:  ownerKey,
		Items:     []CartItem{},
		UpdatedAt: time.Now().UTC(),
	}
}

// FindItemIndex returns the index of the item with the given product ID, or -1.
func (c *Cart) FindItemIndex(productID string) int {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// Add merges qty units of the item into the cart. If the product is already
// present, its quantity is incremented; otherwise the item is appended.
// A qty below 1 is a no-op.
func (c *Cart) Add(item CartItem, qty int) {
	if qty < 1 {
		return
	}
	if idx := c.FindItemIndex(item.ProductID); idx >= 0 {
		c.Items[idx].Quantity += qty
		// Refresh display fields in case the menu entry changed.
		c.Items[idx].Name = item.Name
		c.Items[idx].UnitPrice = item.UnitPrice
		c.Items[idx].ImageRef = item.ImageRef
	} else {
		item.Quantity = qty
		c.Items = append(c.Items, item)
	}
	c.touch()
}

// SetQuantity sets the quantity for a product, clamped to a floor of 1.
// Deletion is expressed through Remove, never through a zero quantity.
// Returns false if the product is not in the cart.
func (c *Cart) SetQuantity(productID string, qty int) bool {
	idx := c.FindItemIndex(productID)
	if idx < 0 {
		return false
	}
	if qty < 1 {
		qty = 1
	}
	c.Items[idx].Quantity = qty
	c.touch()
	return true
}

// Remove deletes a product line from the cart. Returns false if absent.
func (c *Cart) Remove(productID string) bool {
	idx := c.FindItemIndex(productID)
	if idx < 0 {
		return false
	}
	c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
	c.touch()
	return true
}

// Clear removes all items.
func (c *Cart) Clear() {
	c.Items = []CartItem{}
	c.touch()
}

// IsEmpty reports whether the cart has no items.
func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// ItemCount returns the total number of units across all lines.
func (c *Cart) ItemCount() int {
	var count int
	for _, item := range c.Items {
		count += item.Quantity
	}
	return count
}

// Clone returns a deep copy of the cart. Snapshots handed to subscribers and
// the sync queue must not alias the live item slice.
func (c *Cart) Clone() *Cart {
	items := make([]CartItem, len(c.Items))
	copy(items, c.Items)
	return &Cart{
		OwnerKey:  c.OwnerKey,
		Items:     items,
		UpdatedAt: c.UpdatedAt,
	}
}

// ItemsEqual reports whether two carts hold the same product lines with the
// same quantities and prices, ignoring order.
func (c *Cart) ItemsEqual(other *Cart) bool {
	if len(c.Items) != len(other.Items) {
		return false
	}
	for _, item := range c.Items {
		idx := other.FindItemIndex(item.ProductID)
		if idx < 0 {
			return false
		}
		o := other.Items[idx]
		if o.Quantity != item.Quantity || !o.UnitPrice.Equal(item.UnitPrice) {
			return false
		}
	}
	return true
}

// Merge combines another cart into this one: quantities are summed for
// matching product IDs and the remaining lines are unioned. Merging two carts
// with identical item sets is the identity, which makes the login merge
// idempotent when it is replayed against an already-merged cart.
func (c *Cart) Merge(other *Cart) {
	if other == nil || other.IsEmpty() {
		return
	}
	if c.ItemsEqual(other) {
		return
	}
	for _, item := range other.Items {
		if idx := c.FindItemIndex(item.ProductID); idx >= 0 {
			c.Items[idx].Quantity += item.Quantity
		} else {
			c.Items = append(c.Items, item)
		}
	}
	c.touch()
}

func (c *Cart) touch() {
	c.UpdatedAt = time.Now().UTC()
}
