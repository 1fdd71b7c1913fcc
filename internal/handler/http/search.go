package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/findologic/plugin-shopware-5-sub000/internal/domain"
	"github.com/findologic/plugin-shopware-5-sub000/pkg/httputil"
	"github.com/findologic/plugin-shopware-5-sub000/pkg/pagination"
)

// Searcher answers storefront criteria.
type Searcher interface {
	Search(ctx context.Context, c *domain.Criteria, shop domain.ShopContext) (*domain.SearchResult, error)
	BuildRequestURL(ctx context.Context, c *domain.Criteria, shop domain.ShopContext) (string, error)
}

// SearchHandler handles HTTP requests for search and navigation endpoints.
type SearchHandler struct {
	service Searcher
	shop    ShopDefaults
	logger  *slog.Logger
}

// NewSearchHandler creates a new search HTTP handler.
func NewSearchHandler(svc Searcher, shop ShopDefaults, logger *slog.Logger) *SearchHandler {
	return &SearchHandler{
		service: svc,
		shop:    shop,
		logger:  logger,
	}
}

// SearchResponse is the JSON body of the search endpoints.
type SearchResponse struct {
	*domain.SearchResult
	Meta pagination.Meta `json:"meta"`
}

// Search handles GET /api/v1/search
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	c, page, err := criteriaFromRequest(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	h.respond(w, r, c, page)
}

// Navigation handles GET /api/v1/navigation/{categoryID}
func (h *SearchHandler) Navigation(w http.ResponseWriter, r *http.Request) {
	categoryID, err := strconv.Atoi(chi.URLParam(r, "categoryID"))
	if err != nil || categoryID <= 0 {
		httputil.WriteBadParameter(w, "categoryID must be a positive integer")
		return
	}

	c, page, err := criteriaFromRequest(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	// A listing is always scoped to its category, never a free text query.
	c.Conditions = withoutCondition(c.Conditions, domain.ConditionSearchTerm)
	c.AddCondition(domain.CategoryCondition{CategoryIDs: []int{categoryID}})
	h.respond(w, r, c, page)
}

// RequestURL handles GET /api/v1/search/request-url
func (h *SearchHandler) RequestURL(w http.ResponseWriter, r *http.Request) {
	c, _, err := criteriaFromRequest(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	u, err := h.service.BuildRequestURL(r.Context(), c, h.shop.shopContext(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]string{"url": u}})
}

func (h *SearchHandler) respond(w http.ResponseWriter, r *http.Request, c *domain.Criteria, page pagination.Params) {
	result, err := h.service.Search(r.Context(), c, h.shop.shopContext(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if result.ProductIDs == nil {
		result.ProductIDs = []string{}
	}
	if result.Facets == nil {
		result.Facets = []domain.FacetResult{}
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: SearchResponse{
		SearchResult: result,
		Meta:         pagination.NewMeta(result.Total, page),
	}})
}

func withoutCondition(conds []domain.Condition, name string) []domain.Condition {
	out := conds[:0]
	for _, c := range conds {
		if c.Name() != name {
			out = append(out, c)
		}
	}
	return out
}
