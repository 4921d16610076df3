// Package event publishes storefront domain events to Kafka. Publishing is
// best effort: a broker outage must never fail a cart mutation or a
// confirmed order.
package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/quickplate/storefront/internal/domain"
	pkgkafka "github.com/quickplate/storefront/pkg/kafka"
)

// Kafka topics for storefront domain events.
const (
	TopicCartUpdated    = "storefront.cart.updated"
	TopicCartCleared    = "storefront.cart.cleared"
	TopicOrderConfirmed = "storefront.order.confirmed"
)

// Aggregate type constants.
const (
	AggregateTypeCart  = "cart"
	AggregateTypeOrder = "order"
)

// Source identifier for events originating from the storefront.
const SourceStorefront = "storefront"

// CartItemData is the item payload within cart and order events.
type CartItemData struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

// CartUpdatedData is the payload for a cart.updated event.
type CartUpdatedData struct {
	OwnerKey  string         `json:"owner_key"`
	Items     []CartItemData `json:"items"`
	ItemCount int            `json:"item_count"`
}

// CartClearedData is the payload for a cart.cleared event.
type CartClearedData struct {
	OwnerKey string `json:"owner_key"`
}

// OrderConfirmedData is the payload for an order.confirmed event, consumed
// by the kitchen and notification sides of the storefront.
type OrderConfirmedData struct {
	CheckoutID     string          `json:"checkout_id"`
	OwnerKey       string          `json:"owner_key"`
	Items          []CartItemData  `json:"items"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	Tax            decimal.Decimal `json:"tax"`
	Total          decimal.Decimal `json:"total"`
	Currency       string          `json:"currency"`
	IntentID       string          `json:"intent_id"`
	DeliveryMethod string          `json:"delivery_method"`
	DeliveryTime   string          `json:"delivery_time"`
}

// Producer publishes storefront events. A nil kafka producer disables
// publishing, which keeps local development broker-free.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates an event producer.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{kafka: kafka, logger: logger}
}

// PublishCartUpdated announces the cart's new contents.
func (p *Producer) PublishCartUpdated(ctx context.Context, cart *domain.Cart) {
	data := CartUpdatedData{
		OwnerKey:  cart.OwnerKey,
		Items:     itemData(cart.Items),
		ItemCount: cart.ItemCount(),
	}
	p.publish(ctx, TopicCartUpdated, cart.OwnerKey, AggregateTypeCart, data)
}

// PublishCartCleared announces that the cart was emptied.
func (p *Producer) PublishCartCleared(ctx context.Context, ownerKey string) {
	p.publish(ctx, TopicCartCleared, ownerKey, AggregateTypeCart, CartClearedData{OwnerKey: ownerKey})
}

// PublishOrderConfirmed announces a paid order.
func (p *Producer) PublishOrderConfirmed(ctx context.Context, data OrderConfirmedData) {
	p.publish(ctx, TopicOrderConfirmed, data.CheckoutID, AggregateTypeOrder, data)
}

// publish sends one event, logging failures instead of returning them.
func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType string, data any) {
	if p.kafka == nil {
		return
	}

	event, err := pkgkafka.NewEvent(topic, aggregateID, aggregateType, SourceStorefront, data)
	if err != nil {
		p.logger.ErrorContext(ctx, "create event failed",
			slog.String("topic", topic),
			slog.String("error", err.Error()))
		return
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		p.logger.ErrorContext(ctx, "publish event failed",
			slog.String("topic", topic),
			slog.String("error", fmt.Sprintf("%v", err)))
	}
}

func itemData(items []domain.CartItem) []CartItemData {
	out := make([]CartItemData, len(items))
	for i, item := range items {
		out[i] = CartItemData{
			ProductID: item.ProductID,
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
		}
	}
	return out
}
