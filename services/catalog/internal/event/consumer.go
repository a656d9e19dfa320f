package event

import (
	"context"
	"fmt"
	"log/slog"

	pkgkafka "github.com/utafrali/storefront-catalog/pkg/kafka"
)

// Topics consumed by the catalog service.
var (
	TopicLocationUpdated = pkgkafka.Topic("location", "updated")
	TopicProductCreated  = pkgkafka.Topic("product", "created")
	TopicProductUpdated  = pkgkafka.Topic("product", "updated")
	TopicProductDeleted  = pkgkafka.Topic("product", "deleted")
)

// LocationUpdatedData is the payload of a location.updated event.
type LocationUpdatedData struct {
	StoreID         string `json:"store_id"`
	LocationGroupID string `json:"location_group_id,omitempty"`
}

// ProductEventData is the part of a product event payload the catalog needs.
type ProductEventData struct {
	ID string `json:"id"`
}

// LocationCache drops cached location lookups of a store.
type LocationCache interface {
	Invalidate(ctx context.Context, storeID string) (int, error)
}

// ProductIndexer keeps the secondary catalog index in sync.
type ProductIndexer interface {
	SyncProduct(ctx context.Context, productID string) error
	DeleteProduct(ctx context.Context, productID string) error
}

// Consumer handles Kafka events that invalidate catalog state.
type Consumer struct {
	cache   LocationCache
	indexer ProductIndexer
	logger  *slog.Logger
}

// NewConsumer creates a new event consumer. Either dependency may be nil, in
// which case the matching events are acknowledged and ignored.
func NewConsumer(cache LocationCache, indexer ProductIndexer, logger *slog.Logger) *Consumer {
	return &Consumer{
		cache:   cache,
		indexer: indexer,
		logger:  logger,
	}
}

// Topics returns the topics this consumer has a handler for.
func (c *Consumer) Topics() []string {
	var topics []string
	if c.cache != nil {
		topics = append(topics, TopicLocationUpdated)
	}
	if c.indexer != nil {
		topics = append(topics, TopicProductCreated, TopicProductUpdated, TopicProductDeleted)
	}
	return topics
}

// Handle processes a Kafka event based on its type.
func (c *Consumer) Handle(ctx context.Context, event *pkgkafka.Event) error {
	switch event.EventType {
	case TopicLocationUpdated:
		return c.handleLocationUpdated(ctx, event)
	case TopicProductCreated, TopicProductUpdated:
		return c.handleProductChanged(ctx, event)
	case TopicProductDeleted:
		return c.handleProductDeleted(ctx, event)
	default:
		c.logger.WarnContext(ctx, "unknown event type received",
			slog.String("event_type", event.EventType),
			slog.String("event_id", event.EventID),
		)
		return nil
	}
}

func (c *Consumer) handleLocationUpdated(ctx context.Context, event *pkgkafka.Event) error {
	if c.cache == nil {
		return nil
	}
	var data LocationUpdatedData
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}
	if data.StoreID == "" {
		return fmt.Errorf("location.updated event %s: missing store_id", event.EventID)
	}

	n, err := c.cache.Invalidate(ctx, data.StoreID)
	if err != nil {
		return fmt.Errorf("invalidate location cache: %w", err)
	}

	c.logger.InfoContext(ctx, "location cache invalidated",
		slog.String("store_id", data.StoreID),
		slog.Int("keys", n),
	)
	return nil
}

func (c *Consumer) handleProductChanged(ctx context.Context, event *pkgkafka.Event) error {
	if c.indexer == nil {
		return nil
	}
	id, err := productID(event)
	if err != nil {
		return err
	}
	if err := c.indexer.SyncProduct(ctx, id); err != nil {
		return fmt.Errorf("sync product from %s event: %w", event.EventType, err)
	}
	return nil
}

func (c *Consumer) handleProductDeleted(ctx context.Context, event *pkgkafka.Event) error {
	if c.indexer == nil {
		return nil
	}
	id, err := productID(event)
	if err != nil {
		return err
	}
	if err := c.indexer.DeleteProduct(ctx, id); err != nil {
		return fmt.Errorf("delete product from deleted event: %w", err)
	}
	return nil
}

func productID(event *pkgkafka.Event) (string, error) {
	var data ProductEventData
	if err := event.UnmarshalData(&data); err != nil {
		return "", err
	}
	if data.ID == "" {
		data.ID = event.AggregateID
	}
	if data.ID == "" {
		return "", fmt.Errorf("%s event %s: missing product id", event.EventType, event.EventID)
	}
	return data.ID, nil
}
