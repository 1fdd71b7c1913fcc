package kafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	msgs      chan kafka.Message
	mu        sync.Mutex
	committed []int64
	closed    int
}

func newFakeReader(msgs ...kafka.Message) *fakeReader {
	ch := make(chan kafka.Message, len(msgs))
	for _, m := range msgs {
		ch <- m
	}
	return &fakeReader{msgs: ch}
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	case m := <-r.msgs:
		return m, nil
	}
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.closed++
	return nil
}

func (r *fakeReader) commits() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func eventMessage(t *testing.T, offset int64, eventType, productID string) kafka.Message {
	t.Helper()
	ev, err := NewEvent(eventType, productID, "product", "shop", map[string]string{"id": productID})
	require.NoError(t, err)
	data, err := ev.Marshal()
	require.NoError(t, err)
	return kafka.Message{Topic: Topic("product", "updated"), Offset: offset, Value: data}
}

// runUntil starts the consumer and cancels once n commits happened.
func runUntil(t *testing.T, c *Consumer, r *fakeReader, n int) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	require.Eventually(t, func() bool { return len(r.commits()) >= n }, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}

func TestConsumer_CommitsEveryOutcome(t *testing.T) {
	reader := newFakeReader(
		eventMessage(t, 1, "product.updated", "10"),
		kafka.Message{Topic: "shop.product.updated", Offset: 2, Value: []byte("{not json")},
		eventMessage(t, 3, "product.deleted", "11"),
	)

	var mu sync.Mutex
	var handled []string
	handler := func(ctx context.Context, ev *Event) error {
		mu.Lock()
		defer mu.Unlock()
		handled = append(handled, ev.EventType+":"+ev.AggregateID)
		return nil
	}

	c := NewConsumerWithReader(reader, handler, discardLogger())
	runUntil(t, c, reader, 3)

	assert.Equal(t, []int64{1, 2, 3}, reader.commits())
	assert.Equal(t, []string{"product.updated:10", "product.deleted:11"}, handled)
	assert.Equal(t, 1, reader.closed)
}

func TestConsumer_RetriesThenSkips(t *testing.T) {
	reader := newFakeReader(eventMessage(t, 7, "product.updated", "10"))

	var attempts int
	handler := func(ctx context.Context, ev *Event) error {
		attempts++
		return errors.New("engine unavailable")
	}

	c := NewConsumerWithReader(reader, handler, discardLogger())
	c.retryBackoff = time.Millisecond
	runUntil(t, c, reader, 1)

	assert.Equal(t, maxHandlerRetries, attempts)
	assert.Equal(t, []int64{7}, reader.commits())
}

func TestConsumer_RecoversAfterTransientFailure(t *testing.T) {
	reader := newFakeReader(eventMessage(t, 4, "product.created", "12"))

	var attempts int
	handler := func(ctx context.Context, ev *Event) error {
		attempts++
		if attempts == 1 {
			return errors.New("timeout")
		}
		return nil
	}

	c := NewConsumerWithReader(reader, handler, discardLogger())
	c.retryBackoff = time.Millisecond
	runUntil(t, c, reader, 1)

	assert.Equal(t, 2, attempts)
}

func TestConsumer_DuplicateIsNotRetried(t *testing.T) {
	msg := eventMessage(t, 5, "product.updated", "10")
	dup := msg
	dup.Offset = 6
	reader := newFakeReader(msg, dup)

	var calls int
	inner := func(ctx context.Context, ev *Event) error {
		calls++
		return nil
	}
	handler := IdempotentHandler(NewMemoryIdempotencyStore(time.Minute), inner, discardLogger())

	c := NewConsumerWithReader(reader, handler, discardLogger())
	runUntil(t, c, reader, 2)

	assert.Equal(t, 1, calls)
	assert.Equal(t, []int64{5, 6}, reader.commits())
}

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	err    error
	closed int
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed++
	return nil
}

func (w *fakeWriter) written() []kafka.Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]kafka.Message(nil), w.msgs...)
}

func header(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestConsumer_ParksFailedAndMalformedMessages(t *testing.T) {
	failing := eventMessage(t, 8, "product.updated", "10")
	failing.Key = []byte("10")
	reader := newFakeReader(
		failing,
		kafka.Message{Topic: "shop.product.updated", Offset: 9, Value: []byte("{not json")},
		eventMessage(t, 10, "product.deleted", "11"),
	)
	handler := func(ctx context.Context, ev *Event) error {
		if ev.AggregateID == "10" {
			return errors.New("engine unavailable")
		}
		return nil
	}

	writer := &fakeWriter{}
	c := NewConsumerWithReader(reader, handler, discardLogger()).
		WithDeadLetters(NewDeadLettersWithWriter(writer, "searchbridge", discardLogger()))
	c.retryBackoff = time.Millisecond
	runUntil(t, c, reader, 3)

	parked := writer.written()
	require.Len(t, parked, 2)

	assert.Equal(t, "shop.dlq.shop.product.updated", parked[0].Topic)
	assert.Equal(t, []byte("10"), parked[0].Key)
	assert.Equal(t, failing.Value, parked[0].Value)
	assert.Equal(t, "8", header(parked[0], "dlq.original_offset"))
	assert.Equal(t, "searchbridge", header(parked[0], "dlq.consumer_group"))
	assert.Equal(t, "engine unavailable", header(parked[0], "dlq.error"))

	assert.Equal(t, "9", header(parked[1], "dlq.original_offset"))
	assert.NotEmpty(t, header(parked[1], "dlq.error"))

	assert.Equal(t, []int64{8, 9, 10}, reader.commits())
	assert.Equal(t, 1, writer.closed)
}

func TestConsumer_DeadLetterFailureStillCommits(t *testing.T) {
	reader := newFakeReader(kafka.Message{Topic: "shop.product.updated", Offset: 3, Value: []byte("nope")})
	writer := &fakeWriter{err: errors.New("broker down")}

	c := NewConsumerWithReader(reader, func(context.Context, *Event) error { return nil }, discardLogger()).
		WithDeadLetters(NewDeadLettersWithWriter(writer, "searchbridge", discardLogger()))
	runUntil(t, c, reader, 1)

	assert.Equal(t, []int64{3}, reader.commits())
	assert.Empty(t, writer.written())
}

func TestDeadLetterTopic(t *testing.T) {
	assert.Equal(t, "shop.dlq.shop.product.deleted", DeadLetterTopic(Topic("product", "deleted")))
}
