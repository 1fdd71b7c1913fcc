// Package facet builds storefront facets from service filters.
package facet

import (
	"strconv"

	"github.com/findologic/plugin-shopware-5-sub000/internal/domain"
	"github.com/findologic/plugin-shopware-5-sub000/internal/response"
)

// Templates used by the storefront to render facets.
const (
	TemplateTree      = "tree"
	TemplateColor     = "color"
	TemplateImage     = "image"
	TemplateRange     = "range"
	TemplateRadio     = "radio"
	TemplateValueList = "value-list"
)

// CategoryFilterName is the name of the service's category filter.
const CategoryFilterName = "cat"

// DefaultHandlers returns the built-in handlers. TextHandler accepts every
// filter, so it comes last.
func DefaultHandlers() []response.FacetHandler {
	return []response.FacetHandler{
		CategoryHandler{},
		ColorHandler{},
		ImageHandler{},
		RangeHandler{},
		TextHandler{},
	}
}

// activeValues returns the selected values of an attribute condition.
func activeValues(active domain.Condition) []string {
	if c, ok := active.(domain.ProductAttributeCondition); ok && !c.IsRange() {
		return c.Values
	}
	return nil
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}

func base(typ string, f response.Filter, active domain.Condition, template string) domain.FacetBase {
	return domain.FacetBase{
		Type:         typ,
		Name:         f.Name,
		FieldLabel:   f.Display,
		Active:       active != nil,
		TemplateName: template,
	}
}

// label renders "name (n)" for items with a known frequency.
func label(it response.Item) string {
	if it.Frequency > 0 {
		return it.Name + " (" + strconv.Itoa(it.Frequency) + ")"
	}
	return it.Name
}
