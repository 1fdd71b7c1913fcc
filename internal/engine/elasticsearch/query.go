package elasticsearch

import (
	"github.com/findologic/plugin-shopware-5-sub000/internal/domain"
	"github.com/findologic/plugin-shopware-5-sub000/internal/engine"
	"github.com/findologic/plugin-shopware-5-sub000/pkg/pagination"
)

// buildSearchQuery translates criteria into the query DSL.
func buildSearchQuery(c *domain.Criteria) map[string]any {
	var must any = map[string]any{"match_all": map[string]any{}}
	if term := c.SearchTerm(); term != "" {
		must = map[string]any{
			"multi_match": map[string]any{
				"query":         term,
				"fields":        []string{"name^3", "keywords^2", "description", "manufacturer_name"},
				"type":          "best_fields",
				"fuzziness":     "AUTO",
				"prefix_length": 1,
			},
		}
	}

	boolQuery := map[string]any{"must": []any{must}}
	if filters := buildFilters(c); len(filters) > 0 {
		boolQuery["filter"] = filters
	}

	w := pagination.FromOffset(c.Offset, c.Limit, engine.MaxResults)
	return map[string]any{
		"query":            map[string]any{"bool": boolQuery},
		"from":             w.Start,
		"size":             w.Count,
		"track_total_hits": true,
		"_source":          false,
		"sort":             buildSort(c.Sortings),
	}
}

// buildFilters maps conditions to filter clauses. Attribute ranges and
// category name paths have no indexed counterpart and do not filter.
func buildFilters(c *domain.Criteria) []any {
	var filters []any
	for _, cond := range c.Conditions {
		switch v := cond.(type) {
		case domain.CategoryCondition:
			if len(v.CategoryIDs) > 0 {
				filters = append(filters, terms("category_ids", v.CategoryIDs))
			}
		case domain.ManufacturerCondition:
			if len(v.ManufacturerIDs) > 0 {
				filters = append(filters, terms("manufacturer_id", v.ManufacturerIDs))
			}
		case domain.PriceCondition:
			r := map[string]any{"gte": v.Min}
			if v.Max > 0 {
				r["lte"] = v.Max
			}
			filters = append(filters, map[string]any{"range": map[string]any{"price": r}})
		case domain.ProductAttributeCondition:
			if v.IsRange() || v.Field == "cat" || len(v.Values) == 0 {
				continue
			}
			field := "attributes." + v.Field
			if v.Field == "vendor" {
				field = "manufacturer_name.keyword"
			}
			filters = append(filters, terms(field, v.Values))
		case domain.SimpleCondition:
			filters = append(filters, map[string]any{"term": map[string]any{"flags": v.Field}})
		}
	}
	return filters
}

func terms[T any](field string, values []T) map[string]any {
	return map[string]any{"terms": map[string]any{field: values}}
}

// buildSort uses the primary sorting. Ties break by id for stable pages.
func buildSort(sortings []domain.Sorting) []any {
	var primary domain.Sorting = domain.RelevanceSorting{}
	if len(sortings) > 0 {
		primary = sortings[0]
	}
	dir := "asc"
	if primary.Direction() == domain.SortDesc {
		dir = "desc"
	}

	var field string
	switch primary.(type) {
	case domain.PriceSorting:
		field = "price"
	case domain.ProductNameSorting:
		field = "name.keyword"
	case domain.ReleaseDateSorting:
		field = "created_at"
	case domain.PopularitySorting:
		field = "sales_frequency"
	default:
		return []any{
			map[string]any{"_score": "desc"},
			map[string]any{"sales_frequency": "desc"},
			map[string]any{"id": "asc"},
		}
	}
	return []any{
		map[string]any{field: dir},
		map[string]any{"id": "asc"},
	}
}
