package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/findologic/plugin-shopware-5-sub000/internal/domain"
	"github.com/findologic/plugin-shopware-5-sub000/internal/engine"
	"github.com/findologic/plugin-shopware-5-sub000/internal/query"
	"github.com/findologic/plugin-shopware-5-sub000/internal/query/condition"
	"github.com/findologic/plugin-shopware-5-sub000/internal/query/sorting"
	"github.com/findologic/plugin-shopware-5-sub000/internal/response"
)

// Fallback reasons recorded in metrics and logs.
const (
	reasonNone               = "none"
	reasonDisabled           = "disabled"
	reasonNavigationDisabled = "navigation_disabled"
	reasonNotAlive           = "not_alive"
	reasonBuild              = "build_error"
	reasonRequest            = "request_error"
	reasonParse              = "parse_error"
)

var searchesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "searchbridge_searches_total",
		Help: "Searches by kind, answering source and fallback reason",
	},
	[]string{"kind", "source", "reason"},
)

// SearchClient sends queries to the search service.
type SearchClient interface {
	Search(ctx context.Context, b *query.Builder) ([]byte, error)
	Alive(ctx context.Context) bool
	RequestURL(b *query.Builder) string
}

// Config switches the search service integration.
type Config struct {
	SearchEnabled     bool
	NavigationEnabled bool
	Query             query.Config
}

// SearchService answers criteria through the search service and degrades to
// the native engine whenever the service cannot answer.
type SearchService struct {
	cfg        Config
	client     SearchClient
	conditions *condition.Registry
	sortings   *sorting.Registry
	parser     *response.Parser
	native     engine.NativeEngine
	logger     *slog.Logger
}

// NewSearchService creates a new search service.
func NewSearchService(
	cfg Config,
	client SearchClient,
	conditions *condition.Registry,
	sortings *sorting.Registry,
	parser *response.Parser,
	native engine.NativeEngine,
	logger *slog.Logger,
) *SearchService {
	return &SearchService{
		cfg:        cfg,
		client:     client,
		conditions: conditions,
		sortings:   sortings,
		parser:     parser,
		native:     native,
		logger:     logger,
	}
}

// Search answers c for the shop. Service failures never reach the caller;
// only a failing native engine returns an error.
func (s *SearchService) Search(ctx context.Context, c *domain.Criteria, shop domain.ShopContext) (*domain.SearchResult, error) {
	kind := "navigation"
	if c.HasSearchTerm() {
		kind = "search"
	}

	switch {
	case !s.cfg.SearchEnabled:
		return s.fallback(ctx, c, kind, reasonDisabled, nil)
	case kind == "navigation" && !s.cfg.NavigationEnabled:
		return s.fallback(ctx, c, kind, reasonNavigationDisabled, nil)
	}

	b, err := s.build(ctx, c, shop)
	if err != nil {
		return s.fallback(ctx, c, kind, reasonBuild, err)
	}
	if !s.client.Alive(ctx) {
		return s.fallback(ctx, c, kind, reasonNotAlive, nil)
	}

	body, err := s.client.Search(ctx, b)
	if err != nil {
		return s.fallback(ctx, c, kind, reasonRequest, err)
	}
	result, err := s.parser.Parse(ctx, body, c)
	if err != nil {
		return s.fallback(ctx, c, kind, reasonParse, err)
	}

	searchesTotal.WithLabelValues(kind, string(domain.SourceService), reasonNone).Inc()
	return result, nil
}

// BuildRequestURL returns the URL Search would send for c.
func (s *SearchService) BuildRequestURL(ctx context.Context, c *domain.Criteria, shop domain.ShopContext) (string, error) {
	b, err := s.build(ctx, c, shop)
	if err != nil {
		return "", err
	}
	return s.client.RequestURL(b), nil
}

func (s *SearchService) build(ctx context.Context, c *domain.Criteria, shop domain.ShopContext) (*query.Builder, error) {
	var b *query.Builder
	if c.HasSearchTerm() {
		b = query.NewSearchBuilder(shop, s.cfg.Query)
	} else {
		b = query.NewNavigationBuilder(shop, s.cfg.Query)
	}

	if err := s.conditions.Apply(ctx, c, b, shop); err != nil {
		return nil, fmt.Errorf("apply conditions: %w", err)
	}
	s.sortings.Apply(ctx, c, b)

	b.SetFirstResult(c.Offset)
	if c.Limit > 0 {
		b.SetMaxResults(c.Limit)
	}
	b.AddUserGroup(shop.CustomerGroupKey)
	if c.ForceOriginalQuery {
		b.AddFlag("forceOriginalQuery")
	}
	if dropped := b.Conflicts(); len(dropped) > 0 {
		s.logger.WarnContext(ctx, "conflicting search parameters dropped", slog.Any("params", dropped))
	}
	return b, nil
}

func (s *SearchService) fallback(ctx context.Context, c *domain.Criteria, kind, reason string, cause error) (*domain.SearchResult, error) {
	attrs := []any{slog.String("kind", kind), slog.String("reason", reason)}
	if cause != nil {
		attrs = append(attrs, slog.String("error", cause.Error()))
		s.logger.WarnContext(ctx, "search service failed, using native engine", attrs...)
	} else {
		s.logger.DebugContext(ctx, "using native engine", attrs...)
	}

	result, err := s.native.Search(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("native search: %w", err)
	}
	searchesTotal.WithLabelValues(kind, string(domain.SourceNative), reason).Inc()
	return result, nil
}
