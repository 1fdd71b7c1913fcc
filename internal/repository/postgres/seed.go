package postgres

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/findologic/plugin-shopware-5-sub000/internal/domain"
	"github.com/findologic/plugin-shopware-5-sub000/pkg/database"
)

// DemoCatalog is a generated shop catalog for local setups and load tests.
type DemoCatalog struct {
	Categories     []domain.Category
	Manufacturers  []domain.Manufacturer
	CustomerGroups []domain.CustomerGroup
	Articles       []domain.Article
}

type demoDepartment struct {
	name     string
	children []string
	vendor   string
	products []string
	// option varied across the variants of one article
	option string
	values []string
}

var demoDepartments = []demoDepartment{
	{
		name: "Clothing", children: []string{"Shirts", "Trousers"}, vendor: "StyleCo",
		products: []string{"Cotton T-Shirt", "Slim Fit Jeans", "Wool Sweater", "Rain Jacket"},
		option:   "size", values: []string{"S", "M", "L", "XL"},
	},
	{
		name: "Electronics", children: []string{"Audio", "Accessories"}, vendor: "TechBrand",
		products: []string{"Bluetooth Headphones", "USB-C Hub", "Mechanical Keyboard", "Webcam"},
		option:   "color", values: []string{"Black", "Silver", "White"},
	},
	{
		name: "Home & Kitchen", children: []string{"Cookware", "Tableware"}, vendor: "HomeEssentials",
		products: []string{"Cast Iron Skillet", "Coffee Maker", "Knife Set", "Plate Set"},
		option:   "material", values: []string{"Steel", "Ceramic"},
	},
	{
		name: "Sports & Outdoors", children: []string{"Camping", "Fitness"}, vendor: "SportPro",
		products: []string{"Yoga Mat", "Camping Tent", "Hiking Backpack", "Water Bottle"},
		option:   "color", values: []string{"Green", "Blue"},
	},
}

// NewDemoCatalog generates n articles spread over a small category tree
// below rootID. The same seed yields the same catalog.
func NewDemoCatalog(rootID, n int, seed uint64) *DemoCatalog {
	rng := rand.New(rand.NewPCG(seed, seed^0x5eed))
	c := &DemoCatalog{
		CustomerGroups: []domain.CustomerGroup{
			{Key: "EK", Name: "Shop customers", ShowsTax: true},
			{Key: "H", Name: "Resellers", ShowsTax: false},
		},
	}

	rootPath := []int{}
	if rootID != 1 {
		c.Categories = append(c.Categories, domain.Category{ID: 1, Name: "Root"})
		rootPath = []int{1}
	}
	c.Categories = append(c.Categories, domain.Category{ID: rootID, Name: "Shop", ParentID: parentOf(rootPath), PathIDs: rootPath})
	below := append(append([]int{}, rootPath...), rootID)

	nextID := max(rootID, 1) + 1
	leaves := make([][]int, len(demoDepartments))
	for i, dep := range demoDepartments {
		depID := nextID
		nextID++
		c.Categories = append(c.Categories, domain.Category{ID: depID, Name: dep.name, ParentID: rootID, PathIDs: below})
		depPath := append(append([]int{}, below...), depID)
		for _, child := range dep.children {
			c.Categories = append(c.Categories, domain.Category{ID: nextID, Name: child, ParentID: depID, PathIDs: depPath})
			leaves[i] = append(leaves[i], nextID)
			nextID++
		}
		c.Manufacturers = append(c.Manufacturers, domain.Manufacturer{ID: i + 1, Name: dep.vendor})
	}

	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	detailID := 1
	for i := 0; i < n; i++ {
		dep := demoDepartments[i%len(demoDepartments)]
		product := dep.products[(i/len(demoDepartments))%len(dep.products)]
		round := i / (len(demoDepartments) * len(dep.products))
		name := product
		if round > 0 {
			name = fmt.Sprintf("%s %d", product, round+1)
		}
		id := i + 1
		netPrice := float64(5+rng.IntN(195)) + 0.99

		a := domain.Article{
			ID:           id,
			Name:         name,
			Summary:      fmt.Sprintf("%s by %s", name, dep.vendor),
			Description:  fmt.Sprintf("<p>The <strong>%s</strong> from our %s range.</p>", name, strings.ToLower(dep.name)),
			Keywords:     strings.ToLower(product) + "," + strings.ToLower(dep.vendor),
			Manufacturer: &c.Manufacturers[i%len(demoDepartments)],
			CategoryIDs:  []int{leaves[i%len(demoDepartments)][rng.IntN(len(dep.children))]},
			Images:       []string{fmt.Sprintf("media/image/article-%d.jpg", id)},
			Properties: map[string][]string{
				"department": {dep.name},
			},
			SalesFrequency: rng.IntN(500),
			TaxRate:        19,
			Highlight:      rng.IntN(10) == 0,
			ShippingFree:   netPrice > 100,
			CreatedAt:      created.Add(time.Duration(i) * time.Hour),
			Active:         true,
		}
		for j, value := range dep.values[:1+rng.IntN(len(dep.values))] {
			a.Variants = append(a.Variants, domain.Variant{
				ID:             detailID,
				OrderNumber:    fmt.Sprintf("SW%05d.%d", id, j+1),
				EAN:            fmt.Sprintf("40%011d", detailID),
				SupplierNumber: fmt.Sprintf("%s-%d-%d", strings.ToUpper(dep.vendor[:3]), id, j+1),
				Stock:          rng.IntN(25),
				Active:         true,
				Main:           j == 0,
				Options:        map[string]string{dep.option: value},
				Prices: map[string]float64{
					"EK": netPrice + float64(j),
					"H":  round2((netPrice + float64(j)) * 0.8),
				},
			})
			detailID++
		}
		c.Articles = append(c.Articles, a)
	}
	return c
}

func parentOf(path []int) int {
	if len(path) == 0 {
		return 0
	}
	return path[len(path)-1]
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}

const truncateCatalogSQL = `TRUNCATE s_articles_prices, s_articles_details, s_articles_categories,
	s_articles, s_articles_supplier, s_core_customergroups, s_categories`

// SeedCatalog replaces every catalog table with c in one transaction.
func SeedCatalog(ctx context.Context, db database.TxBeginner, c *DemoCatalog) (err error) {
	ctx, end := database.TraceQuery(ctx, "SeedCatalog", truncateCatalogSQL)
	defer func() { end(err) }()

	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin seed: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err = tx.Exec(ctx, truncateCatalogSQL); err != nil {
		return fmt.Errorf("truncate catalog: %w", err)
	}

	var (
		categories, suppliers, groups       [][]any
		articles, links, details, priceRows [][]any
	)
	for _, cat := range c.Categories {
		var parent *int
		if cat.ParentID != 0 {
			parent = &cat.ParentID
		}
		categories = append(categories, []any{cat.ID, parent, cat.Name, int32s(cat.PathIDs), true})
	}
	for _, m := range c.Manufacturers {
		suppliers = append(suppliers, []any{m.ID, m.Name})
	}
	for _, g := range c.CustomerGroups {
		groups = append(groups, []any{g.Key, g.Name, g.ShowsTax})
	}
	for _, a := range c.Articles {
		var supplier *int
		if a.Manufacturer != nil {
			supplier = &a.Manufacturer.ID
		}
		articles = append(articles, []any{
			a.ID, a.Name, a.Summary, a.Description, a.Keywords, supplier, a.TaxRate,
			a.SalesFrequency, a.Highlight, a.ShippingFree, a.Active, a.Properties, a.Images, a.CreatedAt,
		})
		for _, catID := range a.CategoryIDs {
			links = append(links, []any{a.ID, catID})
		}
		for _, v := range a.Variants {
			details = append(details, []any{
				v.ID, a.ID, v.OrderNumber, v.EAN, v.SupplierNumber, v.Stock, v.Active, v.Main, v.Options,
			})
			for group, price := range v.Prices {
				priceRows = append(priceRows, []any{v.ID, group, price})
			}
		}
	}

	copies := []struct {
		table   string
		columns []string
		rows    [][]any
	}{
		{"s_categories", []string{"id", "parent_id", "name", "path", "active"}, categories},
		{"s_articles_supplier", []string{"id", "name"}, suppliers},
		{"s_core_customergroups", []string{"groupkey", "name", "shows_tax"}, groups},
		{"s_articles", []string{
			"id", "name", "summary", "description", "keywords", "supplier_id", "tax_rate",
			"sales_frequency", "highlight", "shipping_free", "active", "properties", "images", "created_at",
		}, articles},
		{"s_articles_categories", []string{"article_id", "category_id"}, links},
		{"s_articles_details", []string{
			"id", "article_id", "ordernumber", "ean", "suppliernumber", "instock", "active", "main", "options",
		}, details},
		{"s_articles_prices", []string{"detail_id", "customergroup", "price"}, priceRows},
	}
	for _, cp := range copies {
		if _, err = tx.CopyFrom(ctx, pgx.Identifier{cp.table}, cp.columns, pgx.CopyFromRows(cp.rows)); err != nil {
			return fmt.Errorf("copy %s: %w", cp.table, err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit seed: %w", err)
	}
	return nil
}

func int32s(ids []int) []int32 {
	out := make([]int32, len(ids))
	for i, id := range ids {
		out[i] = int32(id)
	}
	return out
}
