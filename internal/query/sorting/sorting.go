// Package sorting translates sortings into the search service's order parameter.
package sorting

import (
	"context"
	"log/slog"

	"github.com/findologic/plugin-shopware-5-sub000/internal/domain"
	"github.com/findologic/plugin-shopware-5-sub000/internal/query"
)

// Handler writes the order for one kind of sorting.
type Handler interface {
	Supports(s domain.Sorting) bool
	Generate(s domain.Sorting, b *query.Builder)
}

// fieldHandler maps a sorting name to "<field> ASC|DESC".
type fieldHandler struct {
	name  string
	field string
}

func (h fieldHandler) Supports(s domain.Sorting) bool { return s.Name() == h.name }

func (h fieldHandler) Generate(s domain.Sorting, b *query.Builder) {
	b.AddOrder(h.field + " " + string(s.Direction()))
}

// relevanceHandler sends no order so the service uses its own ranking.
type relevanceHandler struct{}

func (relevanceHandler) Supports(s domain.Sorting) bool {
	_, ok := s.(domain.RelevanceSorting)
	return ok
}

func (relevanceHandler) Generate(domain.Sorting, *query.Builder) {}

// DefaultHandlers returns the built-in sorting handlers.
func DefaultHandlers() []Handler {
	return []Handler{
		fieldHandler{name: domain.PriceSorting{}.Name(), field: "price"},
		fieldHandler{name: domain.PopularitySorting{}.Name(), field: "salesfrequency"},
		fieldHandler{name: domain.ProductNameSorting{}.Name(), field: "label"},
		fieldHandler{name: domain.ReleaseDateSorting{}.Name(), field: "dateadded"},
		relevanceHandler{},
	}
}

// Registry applies the primary sorting of a criteria.
type Registry struct {
	handlers []Handler
	logger   *slog.Logger
}

func NewRegistry(logger *slog.Logger, handlers ...Handler) *Registry {
	return &Registry{handlers: handlers, logger: logger}
}

// Apply writes the first supported sorting. The service accepts a single
// order, so later sortings are ignored.
func (r *Registry) Apply(ctx context.Context, c *domain.Criteria, b *query.Builder) {
	for _, s := range c.Sortings {
		for _, h := range r.handlers {
			if h.Supports(s) {
				h.Generate(s, b)
				return
			}
		}
		r.logger.DebugContext(ctx, "no sorting handler, skipping", slog.String("sorting", s.Name()))
	}
}
