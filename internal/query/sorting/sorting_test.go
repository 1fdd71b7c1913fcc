package sorting

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/findologic/plugin-shopware-5-sub000/internal/domain"
	"github.com/findologic/plugin-shopware-5-sub000/internal/query"
)

func applySortings(buf *bytes.Buffer, sortings ...domain.Sorting) *query.Builder {
	logger := slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	b := query.NewSearchBuilder(domain.ShopContext{Shopkey: "K"}, query.Config{})
	NewRegistry(logger, DefaultHandlers()...).Apply(context.Background(), &domain.Criteria{Sortings: sortings}, b)
	return b
}

func TestRegistry_Orders(t *testing.T) {
	tests := []struct {
		name    string
		sorting domain.Sorting
		want    []string
	}{
		{"price asc", domain.PriceSorting{Order: domain.SortAsc}, []string{"price ASC"}},
		{"price desc", domain.PriceSorting{Order: domain.SortDesc}, []string{"price DESC"}},
		{"popularity", domain.PopularitySorting{Order: domain.SortDesc}, []string{"salesfrequency DESC"}},
		{"name", domain.ProductNameSorting{Order: domain.SortAsc}, []string{"label ASC"}},
		{"release date", domain.ReleaseDateSorting{Order: domain.SortDesc}, []string{"dateadded DESC"}},
		{"relevance", domain.RelevanceSorting{}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			b := applySortings(&buf, tt.sorting)
			assert.Equal(t, tt.want, b.Params().Values("order"))
		})
	}
}

func TestRegistry_OnlyPrimarySortingApplies(t *testing.T) {
	var buf bytes.Buffer
	b := applySortings(&buf,
		domain.RelevanceSorting{},
		domain.PriceSorting{Order: domain.SortAsc},
	)
	assert.False(t, b.Params().Has("order"))
}

type customSorting struct{}

func (customSorting) Name() string                    { return "custom" }
func (customSorting) Direction() domain.SortDirection { return domain.SortAsc }

func TestRegistry_SkipsUnsupported(t *testing.T) {
	var buf bytes.Buffer
	b := applySortings(&buf, customSorting{}, domain.ProductNameSorting{Order: domain.SortDesc})

	assert.Equal(t, []string{"label DESC"}, b.Params().Values("order"))
	assert.Contains(t, buf.String(), "no sorting handler")
}
