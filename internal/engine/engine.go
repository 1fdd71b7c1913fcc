// Package engine defines the shop's native search, used whenever the search
// service cannot answer.
package engine

import (
	"context"

	"github.com/findologic/plugin-shopware-5-sub000/internal/domain"
)

// MaxResults caps the page size of a native search.
const MaxResults = 100

// NativeEngine indexes articles and answers criteria without the search service.
type NativeEngine interface {
	// Index adds or updates a single document.
	Index(ctx context.Context, doc *domain.SearchDocument) error

	// Delete removes a document by id. Missing documents are not an error.
	Delete(ctx context.Context, id string) error

	// Search returns the ids of matching documents and their total.
	Search(ctx context.Context, c *domain.Criteria) (*domain.SearchResult, error)

	// BulkIndex adds or updates many documents.
	BulkIndex(ctx context.Context, docs []domain.SearchDocument) error
}

// Resetter is implemented by engines that can drop every document, so a
// full rebuild does not keep articles that left the catalog.
type Resetter interface {
	Reset(ctx context.Context) error
}
