package export

import (
	"context"
	"encoding/xml"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/findologic/plugin-shopware-5-sub000/internal/domain"
	"github.com/findologic/plugin-shopware-5-sub000/internal/query"
	apperrors "github.com/findologic/plugin-shopware-5-sub000/pkg/errors"
)

const shopkey = "0123456789ABCDEF0123456789ABCDEF"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeCatalog struct {
	articles   []domain.Article
	paths      map[int][]string
	groups     []domain.CustomerGroup
	pathCalls  int
	lastFilter domain.ArticleFilter
	lastOffset int
	lastLimit  int
	listErr    error
}

func (f *fakeCatalog) CountArticles(_ context.Context, filter domain.ArticleFilter) (int, error) {
	f.lastFilter = filter
	return len(f.articles), nil
}

func (f *fakeCatalog) ListArticles(_ context.Context, filter domain.ArticleFilter, offset, limit int) ([]domain.Article, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.lastOffset, f.lastLimit = offset, limit
	if offset >= len(f.articles) {
		return nil, nil
	}
	end := min(offset+limit, len(f.articles))
	return f.articles[offset:end], nil
}

func (f *fakeCatalog) CategoryPath(_ context.Context, id, _ int) ([]string, error) {
	f.pathCalls++
	names, ok := f.paths[id]
	if !ok {
		return nil, apperrors.NotFound("category", "x")
	}
	return names, nil
}

func (f *fakeCatalog) CustomerGroups(context.Context) ([]domain.CustomerGroup, error) {
	return f.groups, nil
}

type fakeCache struct {
	pages map[string][]byte
	sets  int
}

func (c *fakeCache) Get(_ context.Context, key string) ([]byte, error) {
	if p, ok := c.pages[key]; ok {
		return p, nil
	}
	return nil, apperrors.NotFound("feed page", key)
}

func (c *fakeCache) Set(_ context.Context, key string, page []byte) error {
	c.sets++
	c.pages[key] = page
	return nil
}

func sampleCatalog() *fakeCatalog {
	return &fakeCatalog{
		articles: []domain.Article{
			{
				ID:             10,
				Name:           "Trail Shoe",
				Summary:        "Light &amp; fast",
				Description:    "<p>Grippy <b>sole</b></p><p>Mesh upper</p>",
				Keywords:       "running, trail,,outdoor",
				Manufacturer:   &domain.Manufacturer{ID: 4, Name: "Acme"},
				CategoryIDs:    []int{7, 9, 12},
				Images:         []string{"https://cdn.example.com/shoe.jpg", "https://cdn.example.com/shoe-2.jpg"},
				Properties:     map[string][]string{"material": {"mesh"}},
				SalesFrequency: 120,
				TaxRate:        19,
				Highlight:      true,
				CreatedAt:      time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC),
				Active:         true,
				Variants: []domain.Variant{
					{ID: 100, OrderNumber: "SW100", EAN: "4001", SupplierNumber: "A-1", Stock: 5, Active: true, Main: true,
						Options: map[string]string{"size": "42"}, Prices: map[string]float64{"EK": 100, "H": 70}},
					{ID: 101, OrderNumber: "SW101", EAN: "4001", Stock: 0, Active: true,
						Options: map[string]string{"size": "43"}, Prices: map[string]float64{"EK": 90}},
					{ID: 102, OrderNumber: "SW102", Active: false, Prices: map[string]float64{"EK": 10}},
				},
			},
			{ID: 11, Name: "Cap", CategoryIDs: []int{9}, Active: true, ShippingFree: true,
				Variants: []domain.Variant{{ID: 110, OrderNumber: "SW110", Active: true, Main: true, Prices: map[string]float64{"EK": 10}}}},
		},
		paths: map[int][]string{
			7:  {"Shoes", "Trail"},
			9:  {"Sale"},
			12: {},
		},
		groups: []domain.CustomerGroup{
			{Key: "EK", Name: "Shopkunden", ShowsTax: true},
			{Key: "H", Name: "Händler", ShowsTax: false},
		},
	}
}

func newTestExporter(catalog Catalog, cache PageCache) *Exporter {
	return NewExporter(Config{
		Shopkey:              shopkey,
		BaseURL:              "https://shop.example.com/",
		RootCategoryID:       3,
		DefaultCustomerGroup: "EK",
		HideOutOfStock:       true,
		MaxCount:             50,
	}, catalog, cache, testLogger())
}

func attribute(item Item, key string) []string {
	for _, a := range item.Attributes {
		if a.Key == key {
			return a.Values
		}
	}
	return nil
}

func TestExport_ShopkeyMismatch(t *testing.T) {
	e := newTestExporter(sampleCatalog(), nil)

	_, err := e.Export(context.Background(), Request{Shopkey: "FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFF"})
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestExport_BuildsItems(t *testing.T) {
	catalog := sampleCatalog()
	e := newTestExporter(catalog, nil)

	feed, err := e.Export(context.Background(), Request{Shopkey: shopkey, Count: 20})
	require.NoError(t, err)

	assert.Equal(t, domain.ArticleFilter{RootCategoryID: 3, HideOutOfStock: true}, catalog.lastFilter)
	assert.Equal(t, 0, feed.Start)
	assert.Equal(t, 2, feed.Count)
	assert.Equal(t, 2, feed.Total)
	require.Len(t, feed.Items, 2)

	shoe := feed.Items[0]
	assert.Equal(t, "10", shoe.ID)
	assert.Equal(t, []string{"SW100", "4001", "A-1", "SW101"}, shoe.OrderNumbers)
	assert.Equal(t, "Light & fast", shoe.Summary)
	assert.Equal(t, "Grippy sole Mesh upper", shoe.Description)
	assert.Equal(t, []string{"running", "trail", "outdoor"}, shoe.Keywords)
	assert.Equal(t, "https://shop.example.com/shoes/trail/10/trail-shoe/", shoe.URL)

	require.Len(t, shoe.Prices, 2)
	assert.Empty(t, shoe.Prices[0].UserGroup)
	assert.InDelta(t, 107.1, shoe.Prices[0].Value, 0.001)
	assert.Equal(t, query.UserGroupHash(shopkey, "H"), shoe.Prices[1].UserGroup)
	assert.InDelta(t, 70.0, shoe.Prices[1].Value, 0.001)
	assert.Equal(t, []string{query.UserGroupHash(shopkey, "EK"), query.UserGroupHash(shopkey, "H")}, shoe.UserGroups)

	assert.Equal(t, []string{"Shoes_Trail", "Sale"}, attribute(shoe, AttributeCategory))
	assert.Equal(t, []string{"/shoes/trail/", "/sale/"}, attribute(shoe, AttributeCategoryURL))
	assert.Equal(t, []string{"Acme"}, attribute(shoe, AttributeVendor))
	assert.Equal(t, []string{"42", "43"}, attribute(shoe, "size"))
	assert.Equal(t, []string{"mesh"}, attribute(shoe, "material"))

	assert.Equal(t, []Property{
		{Key: PropertyEAN, Value: "4001"},
		{Key: PropertySupplierNumber, Value: "A-1"},
		{Key: PropertyHighlight, Value: "1"},
	}, shoe.Properties)

	hat := feed.Items[1]
	assert.Equal(t, []Property{{Key: PropertyShippingFree, Value: "1"}}, hat.Properties)
	require.Len(t, hat.Prices, 1)
	assert.Len(t, hat.UserGroups, 1)

	// Category 9 is shared by both articles and resolved once.
	assert.Equal(t, 3, catalog.pathCalls)
}

func TestExport_ClampsWindow(t *testing.T) {
	catalog := sampleCatalog()
	e := newTestExporter(catalog, nil)

	feed, err := e.Export(context.Background(), Request{Shopkey: shopkey, Start: 1, Count: 1000, ProductID: 11})
	require.NoError(t, err)
	assert.Equal(t, 1, catalog.lastOffset)
	assert.Equal(t, 50, catalog.lastLimit)
	assert.Equal(t, 11, catalog.lastFilter.ProductID)
	assert.Equal(t, 1, feed.Start)
	assert.Equal(t, 1, feed.Count)
}

func TestExport_CatalogError(t *testing.T) {
	catalog := sampleCatalog()
	catalog.listErr = errors.New("connection reset")
	e := newTestExporter(catalog, nil)

	_, err := e.Export(context.Background(), Request{Shopkey: shopkey})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list exportable articles")
}

func TestRender_UsesCache(t *testing.T) {
	cache := &fakeCache{pages: make(map[string][]byte)}
	e := newTestExporter(sampleCatalog(), cache)
	ctx := context.Background()

	first, err := e.Render(ctx, Request{Shopkey: shopkey, Count: 20})
	require.NoError(t, err)
	assert.Equal(t, 1, cache.sets)
	assert.Contains(t, cache.pages, "0:20:0")

	second, err := e.Render(ctx, Request{Shopkey: shopkey, Count: 20})
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, cache.sets)
}

func TestRender_RejectsBeforeCache(t *testing.T) {
	cache := &fakeCache{pages: map[string][]byte{"0:50:0": []byte("<cached/>")}}
	e := newTestExporter(sampleCatalog(), cache)

	_, err := e.Render(context.Background(), Request{Shopkey: "wrong"})
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestRender_XML(t *testing.T) {
	e := newTestExporter(sampleCatalog(), nil)

	page, err := e.Render(context.Background(), Request{Shopkey: shopkey, Count: 1})
	require.NoError(t, err)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(page))

	root := doc.Root()
	require.NotNil(t, root)
	assert.Equal(t, "findologic", root.Tag)
	assert.Equal(t, "1.0", root.SelectAttrValue("version", ""))

	items := root.SelectElement("items")
	require.NotNil(t, items)
	assert.Equal(t, "0", items.SelectAttrValue("start", ""))
	assert.Equal(t, "1", items.SelectAttrValue("count", ""))
	assert.Equal(t, "2", items.SelectAttrValue("total", ""))

	item := items.SelectElement("item")
	require.NotNil(t, item)
	assert.Equal(t, "10", item.SelectAttrValue("id", ""))
	assert.Equal(t, "Trail Shoe", item.FindElement("names/name").Text())

	prices := item.FindElements("prices/price")
	require.Len(t, prices, 2)
	assert.Equal(t, "107.10", prices[0].Text())
	assert.Nil(t, prices[0].SelectAttr("usergroup"))
	assert.Equal(t, "70.00", prices[1].Text())
	assert.Equal(t, query.UserGroupHash(shopkey, "H"), prices[1].SelectAttrValue("usergroup", ""))

	images := item.FindElements("images/image")
	require.Len(t, images, 2)
	assert.Equal(t, "default", images[0].SelectAttrValue("type", ""))

	assert.Equal(t, "120", item.FindElement("salesFrequencies/salesFrequency").Text())
	assert.Equal(t, "2024-03-01T09:30:00Z", item.FindElement("dateAddeds/dateAdded").Text())

	cat := item.FindElement("allAttributes/attributes/attribute[key='cat']")
	require.NotNil(t, cat)
	var values []string
	for _, v := range cat.FindElements("values/value") {
		values = append(values, v.Text())
	}
	assert.Equal(t, []string{"Shoes_Trail", "Sale"}, values)
}

func TestMarshal_CDATATerminatorInValues(t *testing.T) {
	feed := &Feed{Count: 1, Total: 1, Items: []Item{{
		ID:           "1",
		Name:         "Bracket ]]> Tool",
		OrderNumbers: []string{"SW]]>1"},
		Keywords:     []string{"]]>", "a]]>b]]>c"},
		Images:       []string{"img]]>.jpg"},
		Attributes:   []Attribute{{Key: "size]]>", Values: []string{"]]>XL"}}},
		Properties:   []Property{{Key: "note", Value: plainText("ends ]]&gt;")}},
	}}}

	page, err := Marshal(feed)
	require.NoError(t, err)
	require.NoError(t, etree.NewDocument().ReadFromBytes(page))

	var parsed struct {
		Items []struct {
			Names        []string `xml:"names>name"`
			OrderNumbers []string `xml:"orderNumbers>orderNumber"`
			Keywords     []string `xml:"keywords>keyword"`
			Images       []string `xml:"images>image"`
			Attributes   []struct {
				Key    string   `xml:"key"`
				Values []string `xml:"values>value"`
			} `xml:"allAttributes>attributes>attribute"`
			Properties []struct {
				Value string `xml:"value"`
			} `xml:"allProperties>properties>property"`
		} `xml:"items>item"`
	}
	require.NoError(t, xml.Unmarshal(page, &parsed))
	require.Len(t, parsed.Items, 1)

	it := parsed.Items[0]
	assert.Equal(t, []string{"Bracket ]]> Tool"}, it.Names)
	assert.Equal(t, []string{"SW]]>1"}, it.OrderNumbers)
	assert.Equal(t, []string{"]]>", "a]]>b]]>c"}, it.Keywords)
	assert.Equal(t, []string{"img]]>.jpg"}, it.Images)
	require.Len(t, it.Attributes, 1)
	assert.Equal(t, "size]]>", it.Attributes[0].Key)
	assert.Equal(t, []string{"]]>XL"}, it.Attributes[0].Values)
	require.Len(t, it.Properties, 1)
	assert.Equal(t, "ends ]]>", it.Properties[0].Value)
}

func TestPlainText(t *testing.T) {
	assert.Equal(t, "", plainText(""))
	assert.Equal(t, "a b", plainText("a<br/>b"))
	assert.Equal(t, `Fish & "Chips"`, plainText("<strong>Fish</strong> &amp; &quot;Chips&quot;"))
	assert.Equal(t, "one two", plainText("<ul><li>one</li><li>two</li></ul>"))
}
