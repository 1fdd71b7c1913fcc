package facet

import (
	"github.com/findologic/plugin-shopware-5-sub000/internal/domain"
	"github.com/findologic/plugin-shopware-5-sub000/internal/response"
)

// RangeHandler renders range-slider filters.
type RangeHandler struct{}

func (RangeHandler) Supports(f response.Filter) bool { return f.Type == response.FilterTypeRange }

func (RangeHandler) Generate(f response.Filter, _ *domain.Criteria, active domain.Condition) domain.FacetResult {
	result := &domain.RangeFacetResult{
		FacetBase: base(domain.FacetTypeRange, f, active, TemplateRange),
		Step:      f.Attributes.StepSize,
		Unit:      f.Attributes.Unit,
	}
	result.MinParam, result.MaxParam = RangeParams(f.Name)
	if total := f.Attributes.TotalRange; total != nil {
		result.Min, result.Max = total.Min, total.Max
	}
	result.ActiveMin, result.ActiveMax = result.Min, result.Max

	switch c := active.(type) {
	case domain.PriceCondition:
		result.ActiveMin = c.Min
		if c.Max > 0 {
			result.ActiveMax = c.Max
		}
	case domain.ProductAttributeCondition:
		if c.IsRange() {
			result.ActiveMin, result.ActiveMax = c.Min, c.Max
		}
	}
	return result
}

// RangeParams returns the storefront API parameters that filter field by a
// range: min_price/max_price for the price, attrib[field][min|max] otherwise.
func RangeParams(field string) (minParam, maxParam string) {
	if field == "price" {
		return "min_price", "max_price"
	}
	return "attrib[" + field + "][min]", "attrib[" + field + "][max]"
}
