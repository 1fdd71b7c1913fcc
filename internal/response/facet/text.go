package facet

import (
	"github.com/findologic/plugin-shopware-5-sub000/internal/domain"
	"github.com/findologic/plugin-shopware-5-sub000/internal/response"
)

// TextHandler renders any remaining filter as a value list, or as radio
// buttons when only one value may be selected.
type TextHandler struct{}

func (TextHandler) Supports(response.Filter) bool { return true }

func (TextHandler) Generate(f response.Filter, _ *domain.Criteria, active domain.Condition) domain.FacetResult {
	values := textValues(f.Items, activeValues(active))
	if f.Select == response.SelectSingle {
		return &domain.RadioFacetResult{
			FacetBase: base(domain.FacetTypeRadio, f, active, TemplateRadio),
			Values:    values,
		}
	}
	return &domain.ValueListFacetResult{
		FacetBase: base(domain.FacetTypeValueList, f, active, TemplateValueList),
		Values:    values,
	}
}

// textValues lists the items and then any selected value the service no
// longer returned, so a selection stays visible and can be removed.
func textValues(items []response.Item, selected []string) []domain.ValueListItem {
	values := make([]domain.ValueListItem, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, it := range items {
		seen[it.Name] = true
		values = append(values, domain.ValueListItem{
			ID:     it.Name,
			Label:  label(it),
			Active: contains(selected, it.Name),
		})
	}
	for _, v := range selected {
		if !seen[v] {
			seen[v] = true
			values = append(values, domain.ValueListItem{ID: v, Label: v, Active: true})
		}
	}
	return values
}
