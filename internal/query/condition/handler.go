package condition

import (
	"context"
	"log/slog"

	"github.com/findologic/plugin-shopware-5-sub000/internal/domain"
	"github.com/findologic/plugin-shopware-5-sub000/internal/query"
)

// Handler translates one kind of condition into query parameters.
type Handler interface {
	Supports(cond domain.Condition) bool
	Generate(ctx context.Context, cond domain.Condition, b *query.Builder, shop domain.ShopContext) error
}

// CategoryRepository resolves category ids to their names.
type CategoryRepository interface {
	// CategoryPath returns the names from below rootID down to id.
	CategoryPath(ctx context.Context, id, rootID int) ([]string, error)
}

// ManufacturerRepository resolves manufacturer ids to their names.
type ManufacturerRepository interface {
	ManufacturerNames(ctx context.Context, ids []int) ([]string, error)
}

// Registry applies conditions using the first handler that supports each.
type Registry struct {
	handlers []Handler
	logger   *slog.Logger
}

// NewRegistry creates a registry scanning handlers in the given order.
func NewRegistry(logger *slog.Logger, handlers ...Handler) *Registry {
	return &Registry{handlers: handlers, logger: logger}
}

// DefaultHandlers returns the built-in handlers. SimpleHandler accepts every
// SimpleCondition, so it comes last.
func DefaultHandlers(categories CategoryRepository, manufacturers ManufacturerRepository) []Handler {
	return []Handler{
		NewCategoryHandler(categories),
		PriceHandler{},
		AttributeHandler{},
		SearchTermHandler{},
		NewManufacturerHandler(manufacturers),
		SimpleHandler{},
	}
}

// Apply writes every condition of c into b. Conditions no handler supports
// are skipped.
func (r *Registry) Apply(ctx context.Context, c *domain.Criteria, b *query.Builder, shop domain.ShopContext) error {
	for _, cond := range c.Conditions {
		h := r.handlerFor(cond)
		if h == nil {
			r.logger.DebugContext(ctx, "no condition handler, skipping",
				slog.String("condition", cond.Name()),
			)
			continue
		}
		if err := h.Generate(ctx, cond, b, shop); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) handlerFor(cond domain.Condition) Handler {
	for _, h := range r.handlers {
		if h.Supports(cond) {
			return h
		}
	}
	return nil
}
