package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/findologic/plugin-shopware-5-sub000/internal/domain"
	"github.com/findologic/plugin-shopware-5-sub000/internal/engine"
	apperrors "github.com/findologic/plugin-shopware-5-sub000/pkg/errors"
)

const reindexPageSize = 200

// Catalog reads articles and their categories.
type Catalog interface {
	ListArticles(ctx context.Context, f domain.ArticleFilter, offset, limit int) ([]domain.Article, error)
	Categories(ctx context.Context, ids []int) ([]domain.Category, error)
}

// IndexService keeps the native engine in sync with the catalog.
type IndexService struct {
	catalog       Catalog
	native        engine.NativeEngine
	filter        domain.ArticleFilter
	customerGroup string
	logger        *slog.Logger
}

// NewIndexService creates an index service. Documents are priced for
// customerGroup and limited to articles below rootCategoryID.
func NewIndexService(catalog Catalog, native engine.NativeEngine, rootCategoryID int, customerGroup string, logger *slog.Logger) *IndexService {
	return &IndexService{
		catalog:       catalog,
		native:        native,
		filter:        domain.ArticleFilter{RootCategoryID: rootCategoryID},
		customerGroup: customerGroup,
		logger:        logger,
	}
}

// IndexArticle reloads one article and indexes it. An article that is no
// longer exportable is removed from the index.
func (s *IndexService) IndexArticle(ctx context.Context, id int) error {
	f := s.filter
	f.ProductID = id

	articles, err := s.catalog.ListArticles(ctx, f, 0, 1)
	if err != nil {
		return fmt.Errorf("index article %d: %w", id, err)
	}
	if len(articles) == 0 {
		return s.DeleteArticle(ctx, id)
	}

	docs, err := s.documents(ctx, articles)
	if err != nil {
		return fmt.Errorf("index article %d: %w", id, err)
	}
	if err := s.native.Index(ctx, &docs[0]); err != nil {
		return fmt.Errorf("index article %d: %w", id, err)
	}
	s.logger.InfoContext(ctx, "article indexed", slog.Int("article_id", id))
	return nil
}

// DeleteArticle removes an article from the index.
func (s *IndexService) DeleteArticle(ctx context.Context, id int) error {
	if err := s.native.Delete(ctx, strconv.Itoa(id)); err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return fmt.Errorf("delete article %d: %w", id, err)
	}
	s.logger.InfoContext(ctx, "article removed from index", slog.Int("article_id", id))
	return nil
}

// Rebuild resets the native engine when it supports that, then reindexes.
func (s *IndexService) Rebuild(ctx context.Context) (int, error) {
	if r, ok := s.native.(engine.Resetter); ok {
		if err := r.Reset(ctx); err != nil {
			return 0, fmt.Errorf("reset native engine: %w", err)
		}
	}
	return s.Reindex(ctx)
}

// Reindex pages through the whole catalog and bulk indexes it. It returns
// the number of indexed articles.
func (s *IndexService) Reindex(ctx context.Context) (int, error) {
	total := 0
	for offset := 0; ; offset += reindexPageSize {
		articles, err := s.catalog.ListArticles(ctx, s.filter, offset, reindexPageSize)
		if err != nil {
			return total, fmt.Errorf("reindex: list articles at %d: %w", offset, err)
		}
		if len(articles) == 0 {
			break
		}

		docs, err := s.documents(ctx, articles)
		if err != nil {
			return total, fmt.Errorf("reindex: %w", err)
		}
		if err := s.native.BulkIndex(ctx, docs); err != nil {
			return total, fmt.Errorf("reindex: %w", err)
		}
		total += len(docs)

		if len(articles) < reindexPageSize {
			break
		}
	}
	s.logger.InfoContext(ctx, "reindex completed", slog.Int("count", total))
	return total, nil
}

func (s *IndexService) documents(ctx context.Context, articles []domain.Article) ([]domain.SearchDocument, error) {
	var ids []int
	seen := make(map[int]bool)
	for i := range articles {
		for _, id := range articles[i].CategoryIDs {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}

	categories, err := s.catalog.Categories(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}

	docs := make([]domain.SearchDocument, 0, len(articles))
	for i := range articles {
		docs = append(docs, domain.NewSearchDocument(&articles[i], s.customerGroup, categories))
	}
	return docs, nil
}
