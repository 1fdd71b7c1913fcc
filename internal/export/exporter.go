package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/findologic/plugin-shopware-5-sub000/internal/domain"
	"github.com/findologic/plugin-shopware-5-sub000/internal/query"
	"github.com/findologic/plugin-shopware-5-sub000/internal/query/condition"
	apperrors "github.com/findologic/plugin-shopware-5-sub000/pkg/errors"
	"github.com/findologic/plugin-shopware-5-sub000/pkg/pagination"
	"github.com/findologic/plugin-shopware-5-sub000/pkg/slug"
)

// Attribute and property keys the search service understands.
const (
	AttributeCategory    = "cat"
	AttributeCategoryURL = "cat_url"
	AttributeVendor      = "vendor"

	PropertyEAN            = "ean"
	PropertySupplierNumber = "suppliernumber"
	PropertyHighlight      = "highlight"
	PropertyShippingFree   = "shippingfree"
)

var exportCache = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "searchbridge_export_cache_total",
		Help: "Export page lookups by cache result.",
	},
	[]string{"result"},
)

// Catalog is the read side of the shop catalog the export needs.
type Catalog interface {
	CountArticles(ctx context.Context, f domain.ArticleFilter) (int, error)
	ListArticles(ctx context.Context, f domain.ArticleFilter, offset, limit int) ([]domain.Article, error)
	CategoryPath(ctx context.Context, id, rootID int) ([]string, error)
	CustomerGroups(ctx context.Context) ([]domain.CustomerGroup, error)
}

// PageCache stores rendered pages.
type PageCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, page []byte) error
}

// Config holds the shop settings of an export.
type Config struct {
	Shopkey              string
	BaseURL              string
	RootCategoryID       int
	DefaultCustomerGroup string
	HideOutOfStock       bool
	MaxCount             int
}

// Request selects a page of the export.
type Request struct {
	Shopkey   string `validate:"required"`
	Start     int    `validate:"min=0"`
	Count     int    `validate:"min=0"`
	ProductID int    `validate:"min=0"`
}

// Exporter renders the catalog feed the search service imports.
type Exporter struct {
	cfg     Config
	catalog Catalog
	cache   PageCache
	logger  *slog.Logger
}

// NewExporter creates an exporter. cache may be nil.
func NewExporter(cfg Config, catalog Catalog, cache PageCache, logger *slog.Logger) *Exporter {
	if cfg.MaxCount <= 0 {
		cfg.MaxCount = 500
	}
	return &Exporter{cfg: cfg, catalog: catalog, cache: cache, logger: logger}
}

func (e *Exporter) authorize(shopkey string) error {
	if shopkey != e.cfg.Shopkey {
		return apperrors.Unauthorized("shopkey does not match this shop")
	}
	return nil
}

// Render returns the XML of an export page, serving it from the cache when
// one is configured.
func (e *Exporter) Render(ctx context.Context, req Request) ([]byte, error) {
	if err := e.authorize(req.Shopkey); err != nil {
		return nil, err
	}
	window := pagination.FromOffset(req.Start, req.Count, e.cfg.MaxCount)
	key := fmt.Sprintf("%d:%d:%d", window.Start, window.Count, req.ProductID)

	if e.cache != nil {
		page, err := e.cache.Get(ctx, key)
		switch {
		case err == nil:
			exportCache.WithLabelValues("hit").Inc()
			return page, nil
		case !errors.Is(err, apperrors.ErrNotFound):
			e.logger.WarnContext(ctx, "feed cache lookup failed", slog.String("error", err.Error()))
		}
		exportCache.WithLabelValues("miss").Inc()
	}

	feed, err := e.Export(ctx, req)
	if err != nil {
		return nil, err
	}
	page, err := Marshal(feed)
	if err != nil {
		return nil, fmt.Errorf("marshal feed: %w", err)
	}

	if e.cache != nil {
		if err := e.cache.Set(ctx, key, page); err != nil {
			e.logger.WarnContext(ctx, "feed cache store failed", slog.String("error", err.Error()))
		}
	}
	return page, nil
}

// Export loads a page of exportable articles and converts them to feed items.
func (e *Exporter) Export(ctx context.Context, req Request) (*Feed, error) {
	if err := e.authorize(req.Shopkey); err != nil {
		return nil, err
	}
	window := pagination.FromOffset(req.Start, req.Count, e.cfg.MaxCount)
	filter := domain.ArticleFilter{
		ProductID:      req.ProductID,
		RootCategoryID: e.cfg.RootCategoryID,
		HideOutOfStock: e.cfg.HideOutOfStock,
	}

	total, err := e.catalog.CountArticles(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("count exportable articles: %w", err)
	}
	articles, err := e.catalog.ListArticles(ctx, filter, window.Start, window.Count)
	if err != nil {
		return nil, fmt.Errorf("list exportable articles: %w", err)
	}
	groups, err := e.catalog.CustomerGroups(ctx)
	if err != nil {
		return nil, fmt.Errorf("load customer groups: %w", err)
	}

	paths := newPathResolver(e.catalog, e.cfg.RootCategoryID)
	feed := &Feed{Start: window.Start, Total: total, Items: make([]Item, 0, len(articles))}
	for i := range articles {
		item, err := e.item(ctx, &articles[i], groups, paths)
		if err != nil {
			return nil, err
		}
		feed.Items = append(feed.Items, item)
	}
	feed.Count = len(feed.Items)

	e.logger.DebugContext(ctx, "export page built",
		slog.Int("start", feed.Start),
		slog.Int("count", feed.Count),
		slog.Int("total", feed.Total),
	)
	return feed, nil
}

func (e *Exporter) item(ctx context.Context, a *domain.Article, groups []domain.CustomerGroup, paths *pathResolver) (Item, error) {
	item := Item{
		ID:             a.ProductID(),
		OrderNumbers:   orderNumbers(a),
		Name:           a.Name,
		Summary:        plainText(a.Summary),
		Description:    plainText(a.Description),
		Images:         a.Images,
		Keywords:       splitKeywords(a.Keywords),
		SalesFrequency: a.SalesFrequency,
		DateAdded:      a.CreatedAt,
	}

	for _, g := range groups {
		net, ok := a.CheapestPrice(g.Key)
		if !ok {
			continue
		}
		value := net
		if g.ShowsTax {
			value = a.GrossPrice(net)
		}
		hash := query.UserGroupHash(e.cfg.Shopkey, g.Key)
		item.UserGroups = append(item.UserGroups, hash)

		price := Price{Value: value}
		if g.Key != e.cfg.DefaultCustomerGroup {
			price.UserGroup = hash
		}
		item.Prices = append(item.Prices, price)
	}

	var cats, catURLs, primary []string
	for _, id := range a.CategoryIDs {
		names, err := paths.resolve(ctx, id)
		if err != nil {
			return Item{}, fmt.Errorf("category path of article %d: %w", a.ID, err)
		}
		if len(names) == 0 {
			continue
		}
		if primary == nil {
			primary = names
		}
		cats = appendUnique(cats, strings.Join(names, condition.CategorySeparator))
		catURLs = appendUnique(catURLs, slug.Path(names...))
	}
	item.URL = strings.TrimRight(e.cfg.BaseURL, "/") + slug.Path(append(append([]string{}, primary...), item.ID, a.Name)...)

	if len(cats) > 0 {
		item.Attributes = append(item.Attributes,
			Attribute{Key: AttributeCategory, Values: cats},
			Attribute{Key: AttributeCategoryURL, Values: catURLs},
		)
	}
	if a.Manufacturer != nil && a.Manufacturer.Name != "" {
		item.Attributes = append(item.Attributes, Attribute{Key: AttributeVendor, Values: []string{a.Manufacturer.Name}})
	}
	item.Attributes = append(item.Attributes, filterAttributes(a)...)
	item.Properties = properties(a)
	return item, nil
}

func orderNumbers(a *domain.Article) []string {
	var out []string
	for _, v := range a.ActiveVariants() {
		for _, n := range []string{v.OrderNumber, v.EAN, v.SupplierNumber} {
			if n != "" {
				out = appendUnique(out, n)
			}
		}
	}
	return out
}

// filterAttributes merges variant options and article properties, keyed in
// name order.
func filterAttributes(a *domain.Article) []Attribute {
	values := make(map[string][]string)
	for _, v := range a.ActiveVariants() {
		for name, option := range v.Options {
			values[name] = appendUnique(values[name], option)
		}
	}
	for name, vs := range a.Properties {
		for _, v := range vs {
			values[name] = appendUnique(values[name], v)
		}
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]Attribute, 0, len(keys))
	for _, k := range keys {
		out = append(out, Attribute{Key: k, Values: values[k]})
	}
	return out
}

func properties(a *domain.Article) []Property {
	var out []Property
	if main, ok := a.MainVariant(); ok {
		if main.EAN != "" {
			out = append(out, Property{Key: PropertyEAN, Value: main.EAN})
		}
		if main.SupplierNumber != "" {
			out = append(out, Property{Key: PropertySupplierNumber, Value: main.SupplierNumber})
		}
	}
	if a.Highlight {
		out = append(out, Property{Key: PropertyHighlight, Value: "1"})
	}
	if a.ShippingFree {
		out = append(out, Property{Key: PropertyShippingFree, Value: "1"})
	}
	return out
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}

// pathResolver memoizes category paths for one export run. Categories
// outside the shop root resolve to an empty path.
type pathResolver struct {
	catalog Catalog
	rootID  int
	paths   map[int][]string
}

func newPathResolver(catalog Catalog, rootID int) *pathResolver {
	return &pathResolver{catalog: catalog, rootID: rootID, paths: make(map[int][]string)}
}

func (r *pathResolver) resolve(ctx context.Context, id int) ([]string, error) {
	if names, ok := r.paths[id]; ok {
		return names, nil
	}
	names, err := r.catalog.CategoryPath(ctx, id, r.rootID)
	if errors.Is(err, apperrors.ErrNotFound) {
		names, err = nil, nil
	}
	if err != nil {
		return nil, err
	}
	r.paths[id] = names
	return names, nil
}

// formatPrice renders a price with two decimals.
func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
