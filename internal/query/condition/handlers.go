package condition

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/findologic/plugin-shopware-5-sub000/internal/domain"
	"github.com/findologic/plugin-shopware-5-sub000/internal/query"
	apperrors "github.com/findologic/plugin-shopware-5-sub000/pkg/errors"
)

// CategorySeparator joins category names into a path.
const CategorySeparator = "_"

// CategoryHandler sends categories as name paths below the shop root.
type CategoryHandler struct {
	categories CategoryRepository
}

func NewCategoryHandler(categories CategoryRepository) *CategoryHandler {
	return &CategoryHandler{categories: categories}
}

func (h *CategoryHandler) Supports(cond domain.Condition) bool {
	_, ok := cond.(domain.CategoryCondition)
	return ok
}

// Generate adds one path per category. Unknown categories and the shop root
// itself produce no path.
func (h *CategoryHandler) Generate(ctx context.Context, cond domain.Condition, b *query.Builder, shop domain.ShopContext) error {
	c := cond.(domain.CategoryCondition)

	var paths []string
	for _, id := range c.CategoryIDs {
		names, err := h.categories.CategoryPath(ctx, id, shop.RootCategoryID)
		if errors.Is(err, apperrors.ErrNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("resolve category %d: %w", id, err)
		}
		if len(names) > 0 {
			paths = append(paths, strings.Join(names, CategorySeparator))
		}
	}
	b.AddCategories(paths...)
	return nil
}

// PriceHandler sends the price range.
type PriceHandler struct{}

func (PriceHandler) Supports(cond domain.Condition) bool {
	_, ok := cond.(domain.PriceCondition)
	return ok
}

func (PriceHandler) Generate(_ context.Context, cond domain.Condition, b *query.Builder, _ domain.ShopContext) error {
	c := cond.(domain.PriceCondition)
	b.AddPrice(c.Min, c.Max)
	return nil
}

// AttributeHandler sends product attribute filters as attrib[field].
type AttributeHandler struct{}

func (AttributeHandler) Supports(cond domain.Condition) bool {
	_, ok := cond.(domain.ProductAttributeCondition)
	return ok
}

func (AttributeHandler) Generate(_ context.Context, cond domain.Condition, b *query.Builder, _ domain.ShopContext) error {
	c := cond.(domain.ProductAttributeCondition)
	if c.IsRange() {
		b.AddRangeAttribute(c.Field, c.Min, c.Max)
		return nil
	}
	b.AddAttribute(c.Field, c.Values...)
	return nil
}

// SearchTermHandler sends the free text query.
type SearchTermHandler struct{}

func (SearchTermHandler) Supports(cond domain.Condition) bool {
	_, ok := cond.(domain.SearchTermCondition)
	return ok
}

func (SearchTermHandler) Generate(_ context.Context, cond domain.Condition, b *query.Builder, _ domain.ShopContext) error {
	b.SetQuery(cond.(domain.SearchTermCondition).Term)
	return nil
}

// ManufacturerHandler sends manufacturer names as attrib[vendor].
type ManufacturerHandler struct {
	manufacturers ManufacturerRepository
}

func NewManufacturerHandler(manufacturers ManufacturerRepository) *ManufacturerHandler {
	return &ManufacturerHandler{manufacturers: manufacturers}
}

func (h *ManufacturerHandler) Supports(cond domain.Condition) bool {
	_, ok := cond.(domain.ManufacturerCondition)
	return ok
}

func (h *ManufacturerHandler) Generate(ctx context.Context, cond domain.Condition, b *query.Builder, _ domain.ShopContext) error {
	c := cond.(domain.ManufacturerCondition)
	if len(c.ManufacturerIDs) == 0 {
		return nil
	}
	names, err := h.manufacturers.ManufacturerNames(ctx, c.ManufacturerIDs)
	if err != nil {
		return fmt.Errorf("resolve manufacturers: %w", err)
	}
	b.AddAttribute("vendor", names...)
	return nil
}

// SimpleHandler sends flag conditions as attrib[field][]=1.
type SimpleHandler struct{}

func (SimpleHandler) Supports(cond domain.Condition) bool {
	_, ok := cond.(domain.SimpleCondition)
	return ok
}

func (SimpleHandler) Generate(_ context.Context, cond domain.Condition, b *query.Builder, _ domain.ShopContext) error {
	b.AddAttribute(cond.(domain.SimpleCondition).Field, "1")
	return nil
}
