package event

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgkafka "github.com/findologic/plugin-shopware-5-sub000/pkg/kafka"
)

type fakeIndexer struct {
	indexed []int
	deleted []int
	err     error
}

func (f *fakeIndexer) IndexArticle(_ context.Context, id int) error {
	f.indexed = append(f.indexed, id)
	return f.err
}

func (f *fakeIndexer) DeleteArticle(_ context.Context, id int) error {
	f.deleted = append(f.deleted, id)
	return f.err
}

type fakeInvalidator struct{ calls int }

func (f *fakeInvalidator) InvalidateAll(context.Context) error {
	f.calls++
	return nil
}

func newEvent(t *testing.T, topic string, data any) *pkgkafka.Event {
	t.Helper()
	e, err := pkgkafka.NewEvent(topic, "10", "product", "shop", data)
	require.NoError(t, err)
	return e
}

func setup() (*Consumer, *fakeIndexer, *fakeInvalidator) {
	idx := &fakeIndexer{}
	inv := &fakeInvalidator{}
	return NewConsumer(idx, inv, slog.New(slog.NewTextHandler(io.Discard, nil))), idx, inv
}

func TestTopics(t *testing.T) {
	assert.Equal(t, []string{"shop.product.created", "shop.product.updated", "shop.product.deleted"}, Topics())
}

func TestHandle_CreatedAndUpdatedReindex(t *testing.T) {
	c, idx, inv := setup()
	ctx := context.Background()

	require.NoError(t, c.Handle(ctx, newEvent(t, TopicProductCreated, ProductEventData{ID: 10})))
	require.NoError(t, c.Handle(ctx, newEvent(t, TopicProductUpdated, ProductEventData{ID: 11})))

	assert.Equal(t, []int{10, 11}, idx.indexed)
	assert.Equal(t, 2, inv.calls)
}

func TestHandle_Deleted(t *testing.T) {
	c, idx, inv := setup()

	require.NoError(t, c.Handle(context.Background(), newEvent(t, TopicProductDeleted, ProductEventData{ID: 10})))
	assert.Equal(t, []int{10}, idx.deleted)
	assert.Equal(t, 1, inv.calls)
}

func TestHandle_UnknownTypeIgnored(t *testing.T) {
	c, idx, inv := setup()

	require.NoError(t, c.Handle(context.Background(), newEvent(t, "shop.order.created", map[string]int{"id": 1})))
	assert.Empty(t, idx.indexed)
	assert.Zero(t, inv.calls)
}

func TestHandle_BadPayload(t *testing.T) {
	c, idx, _ := setup()

	err := c.Handle(context.Background(), newEvent(t, TopicProductUpdated, map[string]string{"id": "ten"}))
	assert.Error(t, err)

	err = c.Handle(context.Background(), newEvent(t, TopicProductUpdated, map[string]int{}))
	assert.Error(t, err)
	assert.Empty(t, idx.indexed)
}

func TestHandle_IndexErrorSkipsInvalidation(t *testing.T) {
	c, idx, inv := setup()
	idx.err = errors.New("engine down")

	err := c.Handle(context.Background(), newEvent(t, TopicProductCreated, ProductEventData{ID: 10}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index article 10")
	assert.Zero(t, inv.calls)
}

func TestHandle_NilInvalidator(t *testing.T) {
	idx := &fakeIndexer{}
	c := NewConsumer(idx, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	require.NoError(t, c.Handle(context.Background(), newEvent(t, TopicProductDeleted, ProductEventData{ID: 3})))
	assert.Equal(t, []int{3}, idx.deleted)
}
