package event

import (
	"context"
	"fmt"
	"log/slog"

	pkgkafka "github.com/utafrali/storefront-catalog/pkg/kafka"
	"github.com/utafrali/storefront-catalog/pkg/logger"

	"github.com/utafrali/storefront-catalog/services/catalog/internal/domain"
)

// Kafka topic constants for catalog domain events.
var (
	TopicCartRepriced      = pkgkafka.Topic("catalog", "cart_repriced")
	TopicPincodeUnresolved = pkgkafka.Topic("catalog", "pincode_unresolved")
)

// Aggregate type constants.
const (
	AggregateTypeCart  = "cart"
	AggregateTypeStore = "store"
)

// SourceCatalogService identifies events originating from the catalog service.
const SourceCatalogService = "catalog-service"

// CartRepricedData is the payload for a catalog.cart_repriced event.
type CartRepricedData struct {
	StoreID         string `json:"store_id"`
	Pincode         string `json:"pincode"`
	LocationGroupID string `json:"location_group_id"`
	LineCount       int    `json:"line_count"`
	Subtotal        int64  `json:"subtotal"`
	MRPTotal        int64  `json:"mrp_total"`
	AllAvailable    bool   `json:"all_available"`
}

// PincodeUnresolvedData is the payload for a catalog.pincode_unresolved event.
type PincodeUnresolvedData struct {
	StoreID string `json:"store_id"`
	Pincode string `json:"pincode"`
}

// Producer publishes catalog domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer for the catalog service.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishCartRepriced publishes a catalog.cart_repriced event.
func (p *Producer) PublishCartRepriced(ctx context.Context, result *domain.RepriceResult) error {
	data := CartRepricedData{
		StoreID:         result.StoreID,
		Pincode:         result.Pincode,
		LocationGroupID: result.LocationGroupID,
		LineCount:       len(result.Lines),
		Subtotal:        result.Subtotal,
		MRPTotal:        result.MRPTotal,
		AllAvailable:    result.AllAvailable,
	}
	return p.publish(ctx, TopicCartRepriced, result.StoreID, AggregateTypeCart, data,
		map[string]string{"location_group_id": result.LocationGroupID})
}

// PublishPincodeUnresolved publishes a catalog.pincode_unresolved event.
func (p *Producer) PublishPincodeUnresolved(ctx context.Context, storeID, pincode string) error {
	data := PincodeUnresolvedData{StoreID: storeID, Pincode: pincode}
	return p.publish(ctx, TopicPincodeUnresolved, storeID, AggregateTypeStore, data, nil)
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType string, data any, metadata map[string]string) error {
	event, err := pkgkafka.NewEvent(topic, aggregateID, aggregateType, SourceCatalogService, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	for k, v := range metadata {
		event.WithMetadata(k, v)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		event.WithCorrelationID(id)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published event",
		slog.String("topic", topic),
		slog.String("aggregate_id", aggregateID),
	)
	return nil
}
