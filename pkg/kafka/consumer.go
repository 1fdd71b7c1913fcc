package kafka

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// maxHandlerRetries is how often a handler is attempted before the message is
// committed and skipped.
const maxHandlerRetries = 3

const consumerTracer = "github.com/findologic/plugin-shopware-5-sub000/pkg/kafka"

// ErrDuplicate is returned by handlers that recognised an already processed
// event. The message is committed without retries.
var ErrDuplicate = errors.New("duplicate event")

// Handler processes one event.
type Handler func(ctx context.Context, event *Event) error

// Reader is the part of *kafka.Reader the consumer uses.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ConsumerConfig holds Kafka consumer configuration.
type ConsumerConfig struct {
	Brokers  []string
	GroupID  string
	Topics   []string
	MinBytes int
	MaxBytes int
}

// Consumer fetches messages, hands them to a Handler and commits them.
type Consumer struct {
	reader       Reader
	handler      Handler
	logger       *slog.Logger
	retryBackoff time.Duration
	deadLetters  *DeadLetters
	closeOnce    sync.Once
}

// NewConsumer creates a consumer group reader over cfg.Topics.
func NewConsumer(cfg ConsumerConfig, handler Handler, logger *slog.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		GroupTopics: cfg.Topics,
		MinBytes:    cfg.MinBytes,
		MaxBytes:    cfg.MaxBytes,
	})
	return NewConsumerWithReader(r, handler, logger)
}

// NewConsumerWithReader creates a consumer over an existing reader.
func NewConsumerWithReader(r Reader, handler Handler, logger *slog.Logger) *Consumer {
	return &Consumer{
		reader:       r,
		handler:      handler,
		logger:       logger,
		retryBackoff: 100 * time.Millisecond,
	}
}

// WithDeadLetters parks malformed messages and messages that failed every
// retry on dead-letter topics before they are committed.
func (c *Consumer) WithDeadLetters(d *DeadLetters) *Consumer {
	c.deadLetters = d
	return c
}

// Start consumes until ctx is canceled. Messages are committed once handled,
// once found malformed, or once retries are exhausted.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("consumer started")

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("consumer stopping")
				return c.Close()
			}
			c.logger.Error("failed to fetch message", slog.String("error", err.Error()))
			select {
			case <-ctx.Done():
				return c.Close()
			case <-time.After(c.retryBackoff):
			}
			continue
		}

		outcome, reason := c.process(ctx, msg)
		consumerMessages.WithLabelValues(msg.Topic, outcome).Inc()
		if ctx.Err() != nil && outcome == "failed" {
			// Shutdown interrupted handling; leave the message uncommitted.
			return c.Close()
		}
		if reason != nil && c.deadLetters != nil {
			if err := c.deadLetters.Publish(ctx, msg, reason); err != nil {
				c.logger.Error("failed to park message",
					slog.String("topic", msg.Topic),
					slog.Int64("offset", msg.Offset),
					slog.String("error", err.Error()),
				)
			}
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("failed to commit message",
				slog.String("topic", msg.Topic),
				slog.Int64("offset", msg.Offset),
				slog.String("error", err.Error()),
			)
		}
	}
}

// process returns the outcome label and, for malformed or failed messages,
// the reason they were given up on.
func (c *Consumer) process(ctx context.Context, msg kafka.Message) (string, error) {
	start := time.Now()
	defer func() {
		consumerDuration.WithLabelValues(msg.Topic).Observe(time.Since(start).Seconds())
	}()

	ctx = otel.GetTextMapPropagator().Extract(ctx, NewHeaderCarrier(&msg.Headers))
	ctx, span := otel.Tracer(consumerTracer).Start(ctx, "consume "+msg.Topic,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination.name", msg.Topic),
			attribute.Int64("messaging.kafka.offset", msg.Offset),
		),
	)
	defer span.End()

	event, err := UnmarshalEvent(msg.Value)
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to unmarshal event",
			slog.String("topic", msg.Topic),
			slog.Int64("offset", msg.Offset),
			slog.String("error", err.Error()),
		)
		span.SetStatus(codes.Error, "malformed event")
		return "malformed", err
	}

	attrs := []any{
		slog.String("event_type", event.EventType),
		slog.String("aggregate_id", event.AggregateID),
		slog.String("topic", msg.Topic),
		slog.Int("partition", msg.Partition),
		slog.Int64("offset", msg.Offset),
	}

	var lastErr error
	for attempt := 1; attempt <= maxHandlerRetries; attempt++ {
		lastErr = c.handler(ctx, event)
		if lastErr == nil {
			return "processed", nil
		}
		if errors.Is(lastErr, ErrDuplicate) {
			return "duplicate", nil
		}

		c.logger.WarnContext(ctx, "handler failed",
			append(attrs, slog.Int("attempt", attempt), slog.String("error", lastErr.Error()))...)

		if attempt < maxHandlerRetries {
			select {
			case <-ctx.Done():
				return "failed", nil
			case <-time.After(time.Duration(attempt) * c.retryBackoff):
			}
		}
	}

	span.RecordError(lastErr)
	span.SetStatus(codes.Error, lastErr.Error())
	c.logger.ErrorContext(ctx, "handler failed after all retries, skipping message",
		append(attrs, slog.String("error", lastErr.Error()))...)
	return "failed", lastErr
}

// Close closes the reader. It is safe to call multiple times.
func (c *Consumer) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.reader.Close()
		if c.deadLetters != nil {
			if dErr := c.deadLetters.Close(); dErr != nil && err == nil {
				err = dErr
			}
		}
	})
	return err
}
