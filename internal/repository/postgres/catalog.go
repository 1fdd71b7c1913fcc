package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/findologic/plugin-shopware-5-sub000/internal/domain"
	"github.com/findologic/plugin-shopware-5-sub000/pkg/database"
	apperrors "github.com/findologic/plugin-shopware-5-sub000/pkg/errors"
)

// exportableWhere selects active articles with an active variant in a
// category below the root. $1 product id (0 = all), $2 root category id,
// $3 hide out of stock.
const exportableWhere = `
	WHERE a.active
	  AND ($1 = 0 OR a.id = $1)
	  AND EXISTS (
		SELECT 1 FROM s_articles_details d
		WHERE d.article_id = a.id AND d.active AND (NOT $3 OR d.instock > 0))
	  AND EXISTS (
		SELECT 1 FROM s_articles_categories ac
		JOIN s_categories c ON c.id = ac.category_id
		WHERE ac.article_id = a.id AND c.active AND $2 = ANY(c.path))`

const countArticlesSQL = `SELECT COUNT(*) FROM s_articles a` + exportableWhere

const listArticlesSQL = `
	SELECT a.id, a.name, a.summary, a.description, a.keywords,
		a.supplier_id, s.name, a.tax_rate, a.sales_frequency,
		a.highlight, a.shipping_free, a.active, a.properties, a.images, a.created_at,
		ARRAY(SELECT ac.category_id FROM s_articles_categories ac
			WHERE ac.article_id = a.id ORDER BY ac.category_id) AS category_ids
	FROM s_articles a
	LEFT JOIN s_articles_supplier s ON s.id = a.supplier_id` + exportableWhere + `
	ORDER BY a.id
	OFFSET $4 LIMIT $5`

const listVariantsSQL = `
	SELECT d.id, d.article_id, d.ordernumber, d.ean, d.suppliernumber,
		d.instock, d.active, d.main, d.options,
		COALESCE(jsonb_object_agg(p.customergroup, p.price)
			FILTER (WHERE p.customergroup IS NOT NULL), '{}') AS prices
	FROM s_articles_details d
	LEFT JOIN s_articles_prices p ON p.detail_id = d.id
	WHERE d.article_id = ANY($1)
	GROUP BY d.id
	ORDER BY d.article_id, d.id`

const categorySQL = `SELECT id, name, COALESCE(parent_id, 0), path FROM s_categories WHERE id = $1`

const categoriesSQL = `SELECT id, name, COALESCE(parent_id, 0), path FROM s_categories WHERE id = ANY($1) ORDER BY id`

const manufacturerNamesSQL = `SELECT name FROM s_articles_supplier WHERE id = ANY($1) ORDER BY name`

const customerGroupsSQL = `SELECT groupkey, name, shows_tax FROM s_core_customergroups ORDER BY groupkey`

// CatalogRepository reads the shop catalog from PostgreSQL.
type CatalogRepository struct {
	pool database.DBTX
}

// NewCatalogRepository creates a new PostgreSQL-backed catalog repository.
func NewCatalogRepository(pool database.DBTX) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

// CountArticles counts the exportable articles.
func (r *CatalogRepository) CountArticles(ctx context.Context, f domain.ArticleFilter) (n int, err error) {
	ctx, end := database.TraceQuery(ctx, "CountArticles", countArticlesSQL)
	defer func() { end(err) }()

	if err = r.pool.QueryRow(ctx, countArticlesSQL, f.ProductID, f.RootCategoryID, f.HideOutOfStock).Scan(&n); err != nil {
		return 0, fmt.Errorf("count articles: %w", err)
	}
	return n, nil
}

// ListArticles returns a page of exportable articles ordered by id, with
// their variants.
func (r *CatalogRepository) ListArticles(ctx context.Context, f domain.ArticleFilter, offset, limit int) (_ []domain.Article, err error) {
	ctx, end := database.TraceQuery(ctx, "ListArticles", listArticlesSQL)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, listArticlesSQL, f.ProductID, f.RootCategoryID, f.HideOutOfStock, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	defer rows.Close()

	var articles []domain.Article
	index := make(map[int]int)
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		index[a.ID] = len(articles)
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate articles: %w", err)
	}
	if len(articles) == 0 {
		return nil, nil
	}

	ids := make([]int, 0, len(articles))
	for _, a := range articles {
		ids = append(ids, a.ID)
	}
	variants, err := r.listVariants(ctx, ids)
	if err != nil {
		return nil, err
	}
	for articleID, vs := range variants {
		if i, ok := index[articleID]; ok {
			articles[i].Variants = vs
		}
	}
	return articles, nil
}

func scanArticle(rows pgx.Rows) (domain.Article, error) {
	var (
		a              domain.Article
		supplierID     *int
		supplierName   *string
		propertiesJSON []byte
		createdAt      time.Time
	)
	err := rows.Scan(
		&a.ID, &a.Name, &a.Summary, &a.Description, &a.Keywords,
		&supplierID, &supplierName, &a.TaxRate, &a.SalesFrequency,
		&a.Highlight, &a.ShippingFree, &a.Active, &propertiesJSON, &a.Images, &createdAt,
		&a.CategoryIDs,
	)
	if err != nil {
		return a, err
	}
	if supplierID != nil && supplierName != nil {
		a.Manufacturer = &domain.Manufacturer{ID: *supplierID, Name: *supplierName}
	}
	a.Properties = make(map[string][]string)
	if len(propertiesJSON) > 0 {
		if err := json.Unmarshal(propertiesJSON, &a.Properties); err != nil {
			return a, fmt.Errorf("decode properties of article %d: %w", a.ID, err)
		}
	}
	a.CreatedAt = createdAt.UTC()
	return a, nil
}

func (r *CatalogRepository) listVariants(ctx context.Context, articleIDs []int) (map[int][]domain.Variant, error) {
	rows, err := r.pool.Query(ctx, listVariantsSQL, articleIDs)
	if err != nil {
		return nil, fmt.Errorf("list variants: %w", err)
	}
	defer rows.Close()

	out := make(map[int][]domain.Variant)
	for rows.Next() {
		var (
			v           domain.Variant
			articleID   int
			optionsJSON []byte
			pricesJSON  []byte
		)
		if err := rows.Scan(
			&v.ID, &articleID, &v.OrderNumber, &v.EAN, &v.SupplierNumber,
			&v.Stock, &v.Active, &v.Main, &optionsJSON, &pricesJSON,
		); err != nil {
			return nil, fmt.Errorf("scan variant: %w", err)
		}
		if err := json.Unmarshal(optionsJSON, &v.Options); err != nil {
			return nil, fmt.Errorf("decode options of variant %d: %w", v.ID, err)
		}
		if err := json.Unmarshal(pricesJSON, &v.Prices); err != nil {
			return nil, fmt.Errorf("decode prices of variant %d: %w", v.ID, err)
		}
		out[articleID] = append(out[articleID], v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate variants: %w", err)
	}
	return out, nil
}

// Category returns one category.
func (r *CatalogRepository) Category(ctx context.Context, id int) (*domain.Category, error) {
	var c domain.Category
	err := r.pool.QueryRow(ctx, categorySQL, id).Scan(&c.ID, &c.Name, &c.ParentID, &c.PathIDs)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("category", fmt.Sprint(id))
	}
	if err != nil {
		return nil, fmt.Errorf("get category %d: %w", id, err)
	}
	return &c, nil
}

// Categories returns the categories with the given ids. Unknown ids are skipped.
func (r *CatalogRepository) Categories(ctx context.Context, ids []int) ([]domain.Category, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, categoriesSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.ParentID, &c.PathIDs); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return out, nil
}

// CategoryPath returns the category names from below rootID down to id.
// The root itself yields an empty path; a category outside the root's
// subtree is not found.
func (r *CatalogRepository) CategoryPath(ctx context.Context, id, rootID int) ([]string, error) {
	c, err := r.Category(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.ID == rootID {
		return []string{}, nil
	}

	chain := append(append([]int{}, c.PathIDs...), c.ID)
	start := -1
	for i, ancestor := range chain {
		if ancestor == rootID {
			start = i + 1
			break
		}
	}
	if start < 0 {
		return nil, apperrors.NotFound("category below root", fmt.Sprint(id))
	}

	ancestors, err := r.Categories(ctx, chain[start:])
	if err != nil {
		return nil, err
	}
	names := make(map[int]string, len(ancestors))
	for _, a := range ancestors {
		names[a.ID] = a.Name
	}

	path := make([]string, 0, len(chain)-start)
	for _, cid := range chain[start:] {
		name, ok := names[cid]
		if !ok {
			return nil, apperrors.NotFound("category", fmt.Sprint(cid))
		}
		path = append(path, name)
	}
	return path, nil
}

// ManufacturerNames returns the names of the manufacturers, sorted.
func (r *CatalogRepository) ManufacturerNames(ctx context.Context, ids []int) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, manufacturerNamesSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("list manufacturers: %w", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan manufacturers: %w", err)
	}
	return names, nil
}

// CustomerGroups returns every customer group.
func (r *CatalogRepository) CustomerGroups(ctx context.Context) ([]domain.CustomerGroup, error) {
	rows, err := r.pool.Query(ctx, customerGroupsSQL)
	if err != nil {
		return nil, fmt.Errorf("list customer groups: %w", err)
	}
	defer rows.Close()

	var groups []domain.CustomerGroup
	for rows.Next() {
		var g domain.CustomerGroup
		if err := rows.Scan(&g.Key, &g.Name, &g.ShowsTax); err != nil {
			return nil, fmt.Errorf("scan customer group: %w", err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate customer groups: %w", err)
	}
	return groups, nil
}
