package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/findologic/plugin-shopware-5-sub000/internal/domain"
)

func newTestDocument(id, name string, price float64) domain.SearchDocument {
	return domain.SearchDocument{
		ID:               id,
		Name:             name,
		Description:      "A fine " + name,
		ManufacturerID:   7,
		ManufacturerName: "Acme",
		CategoryIDs:      []int{3, 5},
		Price:            price,
		Attributes:       map[string][]string{"color": {"red"}, "width": {"42"}},
		SalesFrequency:   1,
		CreatedAt:        time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func seeded(t *testing.T, docs ...domain.SearchDocument) *Engine {
	t.Helper()
	eng := New()
	require.NoError(t, eng.BulkIndex(context.Background(), docs))
	return eng
}

func search(t *testing.T, eng *Engine, c *domain.Criteria) *domain.SearchResult {
	t.Helper()
	result, err := eng.Search(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, domain.SourceNative, result.Source)
	return result
}

func criteria(conds ...domain.Condition) *domain.Criteria {
	c := &domain.Criteria{}
	for _, cond := range conds {
		c.AddCondition(cond)
	}
	return c
}

func TestEngine_IndexAndDelete(t *testing.T) {
	ctx := context.Background()
	eng := New()
	doc := newTestDocument("1", "Sneaker", 10)

	require.NoError(t, eng.Index(ctx, &doc))
	assert.Equal(t, 1, eng.Len())

	require.NoError(t, eng.Delete(ctx, "1"))
	require.NoError(t, eng.Delete(ctx, "missing"))
	assert.Equal(t, 0, eng.Len())
}

func TestEngine_Reset(t *testing.T) {
	eng := seeded(t, newTestDocument("1", "Sneaker", 10), newTestDocument("2", "Boot", 20))

	require.NoError(t, eng.Reset(context.Background()))
	assert.Equal(t, 0, eng.Len())
	assert.Empty(t, search(t, eng, criteria()).ProductIDs)
}

func TestEngine_SearchTerm(t *testing.T) {
	eng := seeded(t,
		newTestDocument("1", "Blue Sneaker", 10),
		newTestDocument("2", "Red Boot", 20),
	)

	result := search(t, eng, criteria(domain.SearchTermCondition{Term: "sneaker"}))
	assert.Equal(t, []string{"1"}, result.ProductIDs)
	assert.Equal(t, 1, result.Total)

	result = search(t, eng, criteria(domain.SearchTermCondition{Term: "acme"}))
	assert.Equal(t, 2, result.Total)
}

func TestEngine_Conditions(t *testing.T) {
	shoe := newTestDocument("1", "Sneaker", 10)
	boot := newTestDocument("2", "Boot", 80)
	boot.CategoryIDs = []int{3, 9}
	boot.ManufacturerID = 8
	boot.ManufacturerName = "Globex"
	boot.Attributes = map[string][]string{"color": {"black"}, "width": {"44"}}
	boot.Flags = []string{domain.FlagShippingFree}
	eng := seeded(t, shoe, boot)

	tests := []struct {
		name string
		cond domain.Condition
		want []string
	}{
		{"category", domain.CategoryCondition{CategoryIDs: []int{9}}, []string{"2"}},
		{"parent category", domain.CategoryCondition{CategoryIDs: []int{3}}, []string{"1", "2"}},
		{"manufacturer", domain.ManufacturerCondition{ManufacturerIDs: []int{7}}, []string{"1"}},
		{"price", domain.PriceCondition{Min: 50, Max: 100}, []string{"2"}},
		{"open price", domain.PriceCondition{Min: 5}, []string{"1", "2"}},
		{"attribute", domain.ProductAttributeCondition{Field: "color", Operator: domain.OperatorIn, Values: []string{"black"}}, []string{"2"}},
		{"attribute range", domain.ProductAttributeCondition{Field: "width", Operator: domain.OperatorBetween, Min: 41, Max: 43}, []string{"1"}},
		{"vendor attribute", domain.ProductAttributeCondition{Field: "vendor", Values: []string{"Globex"}}, []string{"2"}},
		{"category path is ignored", domain.ProductAttributeCondition{Field: "cat", Values: []string{"Shoes"}}, []string{"1", "2"}},
		{"unknown attribute", domain.ProductAttributeCondition{Field: "size", Values: []string{"M"}}, []string{}},
		{"flag", domain.SimpleCondition{Field: domain.FlagShippingFree}, []string{"2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := criteria(tt.cond)
			c.AddSorting(domain.ProductNameSorting{Order: domain.SortDesc})
			got := search(t, eng, c).ProductIDs
			assert.ElementsMatch(t, tt.want, got)
		})
	}
}

func TestEngine_Sorting(t *testing.T) {
	a := newTestDocument("a", "Alpha", 30)
	b := newTestDocument("b", "bravo", 10)
	c := newTestDocument("c", "Charlie", 20)
	a.SalesFrequency, b.SalesFrequency, c.SalesFrequency = 5, 50, 1
	a.CreatedAt = a.CreatedAt.Add(48 * time.Hour)
	b.CreatedAt = b.CreatedAt.Add(24 * time.Hour)
	eng := seeded(t, a, b, c)

	tests := []struct {
		name    string
		sorting domain.Sorting
		want    []string
	}{
		{"price asc", domain.PriceSorting{Order: domain.SortAsc}, []string{"b", "c", "a"}},
		{"price desc", domain.PriceSorting{Order: domain.SortDesc}, []string{"a", "c", "b"}},
		{"name asc", domain.ProductNameSorting{Order: domain.SortAsc}, []string{"a", "b", "c"}},
		{"newest", domain.ReleaseDateSorting{Order: domain.SortDesc}, []string{"a", "b", "c"}},
		{"popularity", domain.PopularitySorting{Order: domain.SortDesc}, []string{"b", "a", "c"}},
		{"relevance", domain.RelevanceSorting{}, []string{"b", "a", "c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &domain.Criteria{Sortings: []domain.Sorting{tt.sorting}}
			assert.Equal(t, tt.want, search(t, eng, c).ProductIDs)
		})
	}
}

func TestEngine_Pagination(t *testing.T) {
	var docs []domain.SearchDocument
	for _, id := range []string{"1", "2", "3", "4", "5"} {
		docs = append(docs, newTestDocument(id, "Item "+id, 1))
	}
	eng := seeded(t, docs...)

	c := &domain.Criteria{Offset: 2, Limit: 2, Sortings: []domain.Sorting{domain.ProductNameSorting{Order: domain.SortAsc}}}
	result := search(t, eng, c)
	assert.Equal(t, []string{"3", "4"}, result.ProductIDs)
	assert.Equal(t, 5, result.Total)

	c.Offset = 10
	result = search(t, eng, c)
	assert.Empty(t, result.ProductIDs)
	assert.Equal(t, 5, result.Total)
}
