package facet

import (
	"github.com/findologic/plugin-shopware-5-sub000/internal/domain"
	"github.com/findologic/plugin-shopware-5-sub000/internal/query/condition"
	"github.com/findologic/plugin-shopware-5-sub000/internal/response"
)

// CategoryHandler renders the category filter as a tree. Item ids are the
// path from the top level item, so they can be sent back as attrib[cat].
type CategoryHandler struct{}

func (CategoryHandler) Supports(f response.Filter) bool { return f.Name == CategoryFilterName }

func (CategoryHandler) Generate(f response.Filter, _ *domain.Criteria, active domain.Condition) domain.FacetResult {
	selected := activeValues(active)
	return &domain.TreeFacetResult{
		FacetBase: base(domain.FacetTypeTree, f, active, TemplateTree),
		Values:    treeItems(f.Items, "", selected),
	}
}

func treeItems(items []response.Item, parent string, selected []string) []domain.TreeItem {
	out := make([]domain.TreeItem, 0, len(items))
	for _, it := range items {
		id := it.Name
		if parent != "" {
			id = parent + condition.CategorySeparator + it.Name
		}
		node := domain.TreeItem{
			ID:     id,
			Label:  label(it),
			Active: contains(selected, id),
		}
		if len(it.Items) > 0 {
			node.Children = treeItems(it.Items, id, selected)
		}
		out = append(out, node)
	}
	return out
}
