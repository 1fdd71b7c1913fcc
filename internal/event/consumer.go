package event

import (
	"context"
	"fmt"
	"log/slog"

	pkgkafka "github.com/findologic/plugin-shopware-5-sub000/pkg/kafka"
)

// Topics of the product events the bridge consumes.
var (
	TopicProductCreated = pkgkafka.Topic("product", "created")
	TopicProductUpdated = pkgkafka.Topic("product", "updated")
	TopicProductDeleted = pkgkafka.Topic("product", "deleted")
)

// Topics lists every topic the consumer subscribes to.
func Topics() []string {
	return []string{TopicProductCreated, TopicProductUpdated, TopicProductDeleted}
}

// ProductEventData is the payload of product events.
type ProductEventData struct {
	ID int `json:"id"`
}

// Indexer keeps the native search index in sync.
type Indexer interface {
	IndexArticle(ctx context.Context, id int) error
	DeleteArticle(ctx context.Context, id int) error
}

// Invalidator drops cached export pages.
type Invalidator interface {
	InvalidateAll(ctx context.Context) error
}

// Consumer handles product change events.
type Consumer struct {
	indexer Indexer
	feeds   Invalidator
	logger  *slog.Logger
}

// NewConsumer creates a new product event consumer. feeds may be nil.
func NewConsumer(indexer Indexer, feeds Invalidator, logger *slog.Logger) *Consumer {
	return &Consumer{
		indexer: indexer,
		feeds:   feeds,
		logger:  logger,
	}
}

// Handle processes a Kafka event based on its type.
func (c *Consumer) Handle(ctx context.Context, event *pkgkafka.Event) error {
	var err error
	switch event.EventType {
	case TopicProductCreated, TopicProductUpdated:
		err = c.handleProductChanged(ctx, event)
	case TopicProductDeleted:
		err = c.handleProductDeleted(ctx, event)
	default:
		c.logger.WarnContext(ctx, "unknown event type received",
			slog.String("event_type", event.EventType),
			slog.String("event_id", event.EventID),
		)
		return nil
	}
	if err != nil {
		return err
	}
	return c.invalidateFeeds(ctx)
}

func decode(event *pkgkafka.Event) (ProductEventData, error) {
	var data ProductEventData
	if err := event.UnmarshalData(&data); err != nil {
		return data, fmt.Errorf("unmarshal %s data: %w", event.EventType, err)
	}
	if data.ID <= 0 {
		return data, fmt.Errorf("%s event %s has no product id", event.EventType, event.EventID)
	}
	return data, nil
}

func (c *Consumer) handleProductChanged(ctx context.Context, event *pkgkafka.Event) error {
	data, err := decode(event)
	if err != nil {
		return err
	}

	if err := c.indexer.IndexArticle(ctx, data.ID); err != nil {
		return fmt.Errorf("index article %d: %w", data.ID, err)
	}

	c.logger.InfoContext(ctx, "re-indexed article from event",
		slog.Int("article_id", data.ID),
		slog.String("event_type", event.EventType),
	)
	return nil
}

func (c *Consumer) handleProductDeleted(ctx context.Context, event *pkgkafka.Event) error {
	data, err := decode(event)
	if err != nil {
		return err
	}

	if err := c.indexer.DeleteArticle(ctx, data.ID); err != nil {
		return fmt.Errorf("delete article %d: %w", data.ID, err)
	}

	c.logger.InfoContext(ctx, "deleted article from event",
		slog.Int("article_id", data.ID),
	)
	return nil
}

func (c *Consumer) invalidateFeeds(ctx context.Context) error {
	if c.feeds == nil {
		return nil
	}
	if err := c.feeds.InvalidateAll(ctx); err != nil {
		return fmt.Errorf("invalidate export cache: %w", err)
	}
	return nil
}
