// Package response turns the search service's XML answer into a shop result.
package response

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/findologic/plugin-shopware-5-sub000/internal/domain"
	apperrors "github.com/findologic/plugin-shopware-5-sub000/pkg/errors"
)

// FacetHandler builds a facet from a filter.
type FacetHandler interface {
	Supports(f Filter) bool
	// Generate returns nil when the filter yields nothing to render.
	Generate(f Filter, c *domain.Criteria, active domain.Condition) domain.FacetResult
}

// Parser parses service responses.
type Parser struct {
	handlers []FacetHandler
	logger   *slog.Logger
}

// NewParser creates a parser delegating filters to handlers in order.
func NewParser(logger *slog.Logger, handlers ...FacetHandler) *Parser {
	return &Parser{handlers: handlers, logger: logger}
}

// Parse reads body and builds the result for c.
func (p *Parser) Parse(ctx context.Context, body []byte, c *domain.Criteria) (*domain.SearchResult, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(body); err != nil {
		return nil, apperrors.Malformed("search response", err)
	}
	root := doc.Root()
	if root == nil || root.Tag != "searchResult" {
		return nil, apperrors.Malformed("search response", fmt.Errorf("missing searchResult element"))
	}

	result := &domain.SearchResult{
		ProductIDs: productIDs(root),
		Facets:     []domain.FacetResult{},
		Source:     domain.SourceService,
	}
	if count := root.FindElement("results/count"); count != nil {
		n, err := strconv.Atoi(strings.TrimSpace(count.Text()))
		if err != nil {
			return nil, apperrors.Malformed("result count", err)
		}
		result.Total = n
	}

	if q := root.SelectElement("query"); q != nil {
		result.QueryString = childText(q, "queryString")
		result.SmartDidYouMean = smartDidYouMean(q)
	}
	if lp := root.SelectElement("landingPage"); lp != nil {
		if link := lp.SelectAttrValue("link", ""); link != "" {
			result.LandingPage = &domain.LandingPage{Link: link}
		}
	}
	if promo := root.SelectElement("promotion"); promo != nil {
		image, link := promo.SelectAttrValue("image", ""), promo.SelectAttrValue("link", "")
		if image != "" || link != "" {
			result.Promotion = &domain.Promotion{Image: image, Link: link}
		}
	}

	for _, f := range Filters(root) {
		if !c.WantsFacet(f.Name) {
			continue
		}
		facet := p.generate(ctx, f, c)
		if facet != nil {
			result.Facets = append(result.Facets, facet)
		}
	}
	return result, nil
}

func (p *Parser) generate(ctx context.Context, f Filter, c *domain.Criteria) domain.FacetResult {
	for _, h := range p.handlers {
		if h.Supports(f) {
			return h.Generate(f, c, ActiveCondition(c, f.Name))
		}
	}
	p.logger.DebugContext(ctx, "no facet handler, skipping", slog.String("filter", f.Name))
	return nil
}

// ActiveCondition returns the condition of c that filters on field.
func ActiveCondition(c *domain.Criteria, field string) domain.Condition {
	if field == "price" {
		if cond := c.Condition(domain.ConditionPrice); cond != nil {
			return cond
		}
	}
	return c.Condition(domain.ConditionAttributePrefix + field)
}

func productIDs(root *etree.Element) []string {
	ids := []string{}
	products := root.SelectElement("products")
	if products == nil {
		return ids
	}
	for _, p := range products.SelectElements("product") {
		if id := p.SelectAttrValue("id", ""); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

func smartDidYouMean(q *etree.Element) *domain.SmartDidYouMean {
	original := childText(q, "originalQuery")
	if dym := childText(q, "didYouMeanQuery"); dym != "" {
		return &domain.SmartDidYouMean{
			Type:             domain.DidYouMeanSuggested,
			AlternativeQuery: dym,
			OriginalQuery:    original,
			DidYouMeanQuery:  dym,
		}
	}
	qs := q.SelectElement("queryString")
	if qs == nil {
		return nil
	}
	switch typ := qs.SelectAttrValue("type", ""); typ {
	case domain.DidYouMeanCorrected, domain.DidYouMeanImproved:
		return &domain.SmartDidYouMean{
			Type:             typ,
			AlternativeQuery: strings.TrimSpace(qs.Text()),
			OriginalQuery:    original,
		}
	default:
		return nil
	}
}

// Filters reads main filters followed by other filters.
func Filters(root *etree.Element) []Filter {
	filters := root.SelectElement("filters")
	if filters == nil {
		return nil
	}
	var out []Filter
	for _, group := range []string{"main", "other"} {
		g := filters.SelectElement(group)
		if g == nil {
			continue
		}
		for _, el := range g.SelectElements("filter") {
			out = append(out, parseFilter(el))
		}
	}
	return out
}

func parseFilter(el *etree.Element) Filter {
	f := Filter{
		Name:                   childText(el, "name"),
		Display:                childText(el, "display"),
		Select:                 childText(el, "select"),
		Type:                   childText(el, "type"),
		CSSClass:               childText(el, "cssClass"),
		NoAvailableFiltersText: childText(el, "noAvailableFiltersText"),
		Items:                  parseItems(el.SelectElement("items")),
	}
	if attrs := el.SelectElement("attributes"); attrs != nil {
		f.Attributes = FilterAttributes{
			SelectedRange: parseRange(attrs.SelectElement("selectedRange")),
			TotalRange:    parseRange(attrs.SelectElement("totalRange")),
			StepSize:      childFloat(attrs, "stepSize"),
			Unit:          childText(attrs, "unit"),
		}
	}
	return f
}

func parseItems(el *etree.Element) []Item {
	if el == nil {
		return nil
	}
	var items []Item
	for _, it := range el.SelectElements("item") {
		items = append(items, Item{
			Name:      childText(it, "name"),
			Weight:    childFloat(it, "weight"),
			Frequency: int(childFloat(it, "frequency")),
			Image:     childText(it, "image"),
			Color:     childText(it, "color"),
			Items:     parseItems(it.SelectElement("items")),
		})
	}
	return items
}

func parseRange(el *etree.Element) *Range {
	if el == nil {
		return nil
	}
	return &Range{Min: childFloat(el, "min"), Max: childFloat(el, "max")}
}

func childText(el *etree.Element, tag string) string {
	child := el.SelectElement(tag)
	if child == nil {
		return ""
	}
	return strings.TrimSpace(child.Text())
}

// childFloat parses a numeric child. Missing or malformed values read as 0.
func childFloat(el *etree.Element, tag string) float64 {
	v, err := strconv.ParseFloat(childText(el, tag), 64)
	if err != nil {
		return 0
	}
	return v
}
