package memory

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/findologic/plugin-shopware-5-sub000/internal/domain"
	"github.com/findologic/plugin-shopware-5-sub000/internal/engine"
	"github.com/findologic/plugin-shopware-5-sub000/pkg/pagination"
)

// Engine is an in-memory NativeEngine with substring matching on name,
// description and keywords. Safe for concurrent use.
type Engine struct {
	mu   sync.RWMutex
	docs map[string]domain.SearchDocument
}

var (
	_ engine.NativeEngine = (*Engine)(nil)
	_ engine.Resetter     = (*Engine)(nil)
)

// New creates an empty engine.
func New() *Engine {
	return &Engine{docs: make(map[string]domain.SearchDocument)}
}

func (e *Engine) Index(_ context.Context, doc *domain.SearchDocument) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.docs[doc.ID] = *doc
	return nil
}

func (e *Engine) Delete(_ context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.docs, id)
	return nil
}

func (e *Engine) BulkIndex(_ context.Context, docs []domain.SearchDocument) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := range docs {
		e.docs[docs[i].ID] = docs[i]
	}
	return nil
}

// Reset drops every document.
func (e *Engine) Reset(_ context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.docs = make(map[string]domain.SearchDocument)
	return nil
}

// Len returns the number of indexed documents.
func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.docs)
}

func (e *Engine) Search(_ context.Context, c *domain.Criteria) (*domain.SearchResult, error) {
	e.mu.RLock()
	matched := make([]domain.SearchDocument, 0)
	for _, d := range e.docs {
		if matches(&d, c) {
			matched = append(matched, d)
		}
	}
	e.mu.RUnlock()

	sortDocuments(matched, c.Sortings)

	total := len(matched)
	w := pagination.FromOffset(c.Offset, c.Limit, engine.MaxResults)
	start := min(w.Start, total)
	end := min(start+w.Count, total)

	ids := make([]string, 0, end-start)
	for _, d := range matched[start:end] {
		ids = append(ids, d.ID)
	}
	return &domain.SearchResult{
		ProductIDs: ids,
		Total:      total,
		Facets:     []domain.FacetResult{},
		Source:     domain.SourceNative,
	}, nil
}

// matches reports whether d satisfies every condition of c. Conditions the
// engine cannot evaluate (category name paths) do not filter.
func matches(d *domain.SearchDocument, c *domain.Criteria) bool {
	for _, cond := range c.Conditions {
		if !matchCondition(d, cond) {
			return false
		}
	}
	return true
}

func matchCondition(d *domain.SearchDocument, cond domain.Condition) bool {
	switch c := cond.(type) {
	case domain.SearchTermCondition:
		term := strings.ToLower(strings.TrimSpace(c.Term))
		return term == "" ||
			strings.Contains(strings.ToLower(d.Name), term) ||
			strings.Contains(strings.ToLower(d.Description), term) ||
			strings.Contains(strings.ToLower(d.Keywords), term) ||
			strings.Contains(strings.ToLower(d.ManufacturerName), term)
	case domain.CategoryCondition:
		return len(c.CategoryIDs) == 0 || intersects(d.CategoryIDs, c.CategoryIDs)
	case domain.ManufacturerCondition:
		return len(c.ManufacturerIDs) == 0 || containsInt(c.ManufacturerIDs, d.ManufacturerID)
	case domain.PriceCondition:
		return d.Price >= c.Min && (c.Max <= 0 || d.Price <= c.Max)
	case domain.ProductAttributeCondition:
		return matchAttribute(d, c)
	case domain.SimpleCondition:
		return d.HasFlag(c.Field)
	default:
		return true
	}
}

func matchAttribute(d *domain.SearchDocument, c domain.ProductAttributeCondition) bool {
	if c.Field == "vendor" {
		return len(c.Values) == 0 || containsString(c.Values, d.ManufacturerName)
	}
	values, ok := d.Attributes[c.Field]
	if !ok {
		// Fields the index does not know, such as cat, do not filter.
		return c.Field == "cat"
	}
	if c.IsRange() {
		for _, v := range values {
			f, err := strconv.ParseFloat(v, 64)
			if err == nil && f >= c.Min && f <= c.Max {
				return true
			}
		}
		return false
	}
	for _, v := range values {
		if containsString(c.Values, v) {
			return true
		}
	}
	return len(c.Values) == 0
}

// sortDocuments orders by the primary sorting, then by id for stable pages.
func sortDocuments(docs []domain.SearchDocument, sortings []domain.Sorting) {
	var primary domain.Sorting = domain.RelevanceSorting{}
	if len(sortings) > 0 {
		primary = sortings[0]
	}
	desc := primary.Direction() == domain.SortDesc

	less := func(cmp int, a, b *domain.SearchDocument) bool {
		if cmp == 0 {
			return a.ID < b.ID
		}
		if desc {
			return cmp > 0
		}
		return cmp < 0
	}

	sort.SliceStable(docs, func(i, j int) bool {
		a, b := &docs[i], &docs[j]
		switch primary.(type) {
		case domain.PriceSorting:
			return less(compareFloat(a.Price, b.Price), a, b)
		case domain.ProductNameSorting:
			return less(strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)), a, b)
		case domain.ReleaseDateSorting:
			return less(a.CreatedAt.Compare(b.CreatedAt), a, b)
		default:
			// Popularity, and relevance approximated by popularity.
			return less(a.SalesFrequency-b.SalesFrequency, a, b)
		}
	})
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func intersects(a, b []int) bool {
	for _, x := range a {
		if containsInt(b, x) {
			return true
		}
	}
	return false
}

func containsInt(list []int, v int) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func containsString(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
