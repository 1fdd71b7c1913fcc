package query

import (
	"strconv"
	"strings"

	"github.com/findologic/plugin-shopware-5-sub000/internal/domain"
)

// Service endpoints.
const (
	EndpointSearch     = "index.php"
	EndpointNavigation = "selector.php"
	EndpointAlive      = "alivetest.php"
)

// OutputAdapter selects the XML response format.
const OutputAdapter = "XML_2.0"

// Config holds the static values sent with every request.
type Config struct {
	Revision string
	ShopType string
}

// Builder accumulates the parameters of one search service request.
type Builder struct {
	endpoint      string
	categoryParam string
	shopkey       string
	params        *Params
}

// NewSearchBuilder creates a builder for a free text search.
func NewSearchBuilder(shop domain.ShopContext, cfg Config) *Builder {
	return newBuilder(EndpointSearch, "attrib", shop, cfg)
}

// NewNavigationBuilder creates a builder for a category listing.
func NewNavigationBuilder(shop domain.ShopContext, cfg Config) *Builder {
	return newBuilder(EndpointNavigation, "selected", shop, cfg)
}

func newBuilder(endpoint, categoryParam string, shop domain.ShopContext, cfg Config) *Builder {
	b := &Builder{
		endpoint:      endpoint,
		categoryParam: categoryParam,
		shopkey:       shop.Shopkey,
		params:        NewParams(),
	}

	b.params.Set(shop.Shopkey, "shopkey")
	b.params.Set(OutputAdapter, "outputAdapter")
	if cfg.Revision != "" {
		b.params.Set(cfg.Revision, "revision")
	}
	if cfg.ShopType != "" {
		b.params.Set(cfg.ShopType, "shopType")
	}
	if shop.ClientIP != "" {
		b.params.Set(shop.ClientIP, "userip")
	}
	if shop.Referer != "" {
		b.params.Set(shop.Referer, "referer")
	}
	return b
}

// Endpoint returns the service script the request goes to.
func (b *Builder) Endpoint() string { return b.endpoint }

// IsSearch reports whether this is a search (not a navigation) request.
func (b *Builder) IsSearch() bool { return b.endpoint == EndpointSearch }

// Params exposes the accumulated parameters.
func (b *Builder) Params() *Params { return b.params }

// SetQuery sets the free text query.
func (b *Builder) SetQuery(term string) *Builder {
	b.params.Set(term, "query")
	return b
}

// AddCategories adds "_"-joined category paths.
func (b *Builder) AddCategories(paths ...string) *Builder {
	if len(paths) > 0 {
		b.params.Add([]string{b.categoryParam, "cat"}, paths...)
	}
	return b
}

// AddPrice restricts the price range. A max of 0 means unbounded and is not sent.
func (b *Builder) AddPrice(min, max float64) *Builder {
	b.params.Set(formatFloat(min), "attrib", "price", "min")
	if max > 0 {
		b.params.Set(formatFloat(max), "attrib", "price", "max")
	}
	return b
}

// AddAttribute adds values to attrib[field][].
func (b *Builder) AddAttribute(field string, values ...string) *Builder {
	if len(values) > 0 {
		b.params.Add([]string{"attrib", field}, values...)
	}
	return b
}

// AddRangeAttribute sets attrib[field][min] and attrib[field][max].
func (b *Builder) AddRangeAttribute(field string, min, max float64) *Builder {
	b.params.Set(formatFloat(min), "attrib", field, "min")
	b.params.Set(formatFloat(max), "attrib", field, "max")
	return b
}

// AddUserGroup sends the hash of the customer group so the service only
// returns products visible to it.
func (b *Builder) AddUserGroup(groupKey string) *Builder {
	if groupKey != "" {
		b.params.Add([]string{"usergrouphash"}, UserGroupHash(b.shopkey, groupKey))
	}
	return b
}

// SetFirstResult sets the result offset.
func (b *Builder) SetFirstResult(n int) *Builder {
	b.params.Set(strconv.Itoa(n), "first")
	return b
}

// SetMaxResults sets the page size.
func (b *Builder) SetMaxResults(n int) *Builder {
	b.params.Set(strconv.Itoa(n), "count")
	return b
}

// AddOrder sets the sort order, e.g. "price ASC".
func (b *Builder) AddOrder(order string) *Builder {
	b.params.Set(order, "order")
	return b
}

// AddFlag sets name=1.
func (b *Builder) AddFlag(name string) *Builder {
	b.params.Set("1", name)
	return b
}

// AddParameter sets an arbitrary scalar parameter.
func (b *Builder) AddParameter(key, value string) *Builder {
	b.params.Set(value, key)
	return b
}

// Conflicts lists parameters that were dropped because they would have
// replaced a value of another kind, e.g. attrib[width][] after
// attrib[width][min].
func (b *Builder) Conflicts() []string { return b.params.Conflicts() }

// Encode renders the query string.
func (b *Builder) Encode() string {
	return b.params.Encode()
}

// URL returns the full request URL below base.
func (b *Builder) URL(base string) string {
	return strings.TrimRight(base, "/") + "/" + b.endpoint + "?" + b.Encode()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
