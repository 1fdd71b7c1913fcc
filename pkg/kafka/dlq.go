package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
)

// DeadLetterPrefix prefixes the topics parked messages are written to.
const DeadLetterPrefix = TopicPrefix + ".dlq"

// DeadLetterTopic returns the dead-letter topic for a source topic, e.g.
// shop.dlq.shop.product.updated.
func DeadLetterTopic(original string) string {
	return DeadLetterPrefix + "." + original
}

// DeadLetters parks messages the consumer gave up on, together with the
// reason, so they can be inspected and replayed.
type DeadLetters struct {
	writer Writer
	group  string
	logger *slog.Logger
}

// NewDeadLetters creates a dead-letter publisher for consumer group.
func NewDeadLetters(brokers []string, group string, logger *slog.Logger) *DeadLetters {
	return NewDeadLettersWithWriter(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.LeastBytes{},
		BatchSize:    1,
		BatchTimeout: 100 * time.Millisecond,
		RequiredAcks: kafka.RequireAll,
	}, group, logger)
}

// NewDeadLettersWithWriter creates a dead-letter publisher over w.
func NewDeadLettersWithWriter(w Writer, group string, logger *slog.Logger) *DeadLetters {
	return &DeadLetters{writer: w, group: group, logger: logger}
}

// Publish copies msg to its dead-letter topic. The original headers are kept
// and the source position and reason are appended as dlq.* headers.
func (d *DeadLetters) Publish(ctx context.Context, msg kafka.Message, reason error) error {
	topic := DeadLetterTopic(msg.Topic)

	headers := make([]kafka.Header, 0, len(msg.Headers)+5)
	headers = append(headers, msg.Headers...)
	headers = append(headers,
		kafka.Header{Key: "dlq.original_topic", Value: []byte(msg.Topic)},
		kafka.Header{Key: "dlq.original_partition", Value: []byte(strconv.Itoa(msg.Partition))},
		kafka.Header{Key: "dlq.original_offset", Value: []byte(strconv.FormatInt(msg.Offset, 10))},
		kafka.Header{Key: "dlq.consumer_group", Value: []byte(d.group)},
	)
	if reason != nil {
		headers = append(headers, kafka.Header{Key: "dlq.error", Value: []byte(reason.Error())})
	}

	err := d.writer.WriteMessages(ctx, kafka.Message{
		Topic:   topic,
		Key:     msg.Key,
		Value:   msg.Value,
		Headers: headers,
	})
	if err != nil {
		producerMessages.WithLabelValues(topic, "failed").Inc()
		return fmt.Errorf("publish to dead-letter topic %s: %w", topic, err)
	}
	producerMessages.WithLabelValues(topic, "published").Inc()

	d.logger.WarnContext(ctx, "message parked on dead-letter topic",
		slog.String("dlq_topic", topic),
		slog.String("original_topic", msg.Topic),
		slog.Int("partition", msg.Partition),
		slog.Int64("offset", msg.Offset),
	)
	return nil
}

// Close flushes the writer.
func (d *DeadLetters) Close() error {
	return d.writer.Close()
}
