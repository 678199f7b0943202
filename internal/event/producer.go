// Package event publishes storefront analytics events to Kafka. The producer
// satisfies the cart and checkout publisher interfaces; wiring it is
// optional, and a nil publisher disables events entirely.
package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/storefront/internal/backend"
	"github.com/utafrali/storefront/internal/domain"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
)

// Kafka topic constants for storefront events.
const (
	TopicCartUpdated = "storefront.cart.updated"
	TopicCartCleared = "storefront.cart.cleared"
	TopicOrderPlaced = "storefront.order.placed"
)

// Aggregate type constants.
const (
	AggregateTypeCart  = "cart"
	AggregateTypeOrder = "order"
)

// Source identifier for events originating from the storefront.
const SourceStorefront = "storefront"

// CartUpdatedData is the payload for a cart.updated event.
type CartUpdatedData struct {
	VisitorID string         `json:"visitor_id"`
	Items     []CartItemData `json:"items"`
	ItemCount int            `json:"item_count"`
	Subtotal  int64          `json:"subtotal"`
}

// CartItemData is the item payload within cart events.
type CartItemData struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Quantity  int    `json:"quantity"`
}

// CartClearedData is the payload for a cart.cleared event.
type CartClearedData struct {
	VisitorID string `json:"visitor_id"`
}

// OrderPlacedData is the payload for an order.placed event.
type OrderPlacedData struct {
	VisitorID string `json:"visitor_id"`
	OrderID   string `json:"order_id"`
	Total     int64  `json:"total"`
	ItemCount int    `json:"item_count"`
}

// Producer publishes storefront events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer for the storefront.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// CartUpdated publishes a cart.updated event.
func (p *Producer) CartUpdated(ctx context.Context, visitorID string, items []domain.LineItem) error {
	payload := CartUpdatedData{
		VisitorID: visitorID,
		Items:     make([]CartItemData, len(items)),
		ItemCount: domain.ItemCount(items),
		Subtotal:  domain.Subtotal(items),
	}
	for i, item := range items {
		payload.Items[i] = CartItemData{
			ProductID: item.ProductID,
			Name:      item.Product.Name,
			Price:     item.Product.Price,
			Quantity:  item.Quantity,
		}
	}

	event, err := pkgkafka.NewEvent(TopicCartUpdated, visitorID, AggregateTypeCart, SourceStorefront, payload)
	if err != nil {
		return fmt.Errorf("create cart.updated event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicCartUpdated, event); err != nil {
		return fmt.Errorf("publish cart.updated event: %w", err)
	}

	return nil
}

// CartCleared publishes a cart.cleared event.
func (p *Producer) CartCleared(ctx context.Context, visitorID string) error {
	event, err := pkgkafka.NewEvent(TopicCartCleared, visitorID, AggregateTypeCart, SourceStorefront, CartClearedData{
		VisitorID: visitorID,
	})
	if err != nil {
		return fmt.Errorf("create cart.cleared event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicCartCleared, event); err != nil {
		return fmt.Errorf("publish cart.cleared event: %w", err)
	}

	return nil
}

// OrderPlaced publishes an order.placed event.
func (p *Producer) OrderPlaced(ctx context.Context, visitorID string, order *backend.Order) error {
	itemCount := 0
	for _, item := range order.Items {
		itemCount += item.Quantity
	}

	event, err := pkgkafka.NewEvent(TopicOrderPlaced, order.ID, AggregateTypeOrder, SourceStorefront, OrderPlacedData{
		VisitorID: visitorID,
		OrderID:   order.ID,
		Total:     order.TotalAmount,
		ItemCount: itemCount,
	})
	if err != nil {
		return fmt.Errorf("create order.placed event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicOrderPlaced, event); err != nil {
		return fmt.Errorf("publish order.placed event: %w", err)
	}

	p.logger.DebugContext(ctx, "published order.placed event",
		slog.String("order_id", order.ID),
	)

	return nil
}
