package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/findologic/plugin-shopware-5-sub000/internal/domain"
	"github.com/findologic/plugin-shopware-5-sub000/internal/engine"
)

// bulkBatchSize caps the documents sent in one _bulk request.
const bulkBatchSize = 500

// Engine is a NativeEngine over one Elasticsearch index.
type Engine struct {
	client *elasticsearch.Client
	index  string
	logger *slog.Logger
}

var (
	_ engine.NativeEngine = (*Engine)(nil)
	_ engine.Resetter     = (*Engine)(nil)
)

type hitsResponse struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			ID string `json:"_id"`
		} `json:"hits"`
	} `json:"hits"`
}

type bulkResponse struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		ID    string     `json:"_id"`
		Error *causeBody `json:"error"`
	} `json:"items"`
}

type causeBody struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

// New connects to esURL and creates the index when it does not exist.
func New(ctx context.Context, esURL, index string, logger *slog.Logger) (*Engine, error) {
	if index == "" {
		index = DefaultIndexName
	}
	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{esURL}})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: create client: %w", err)
	}

	e := &Engine{client: client, index: index, logger: logger}
	if err := e.ensureIndex(ctx); err != nil {
		return nil, fmt.Errorf("elasticsearch: ensure index: %w", err)
	}
	return e, nil
}

// call performs req and decodes a successful body into out when out is not
// nil. Statuses listed in tolerate count as success.
func (e *Engine) call(ctx context.Context, op string, req esapi.Request, out any, tolerate ...int) (int, error) {
	res, err := req.Do(ctx, e.client)
	if err != nil {
		return 0, fmt.Errorf("elasticsearch %s: %w", op, err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		for _, status := range tolerate {
			if res.StatusCode == status {
				return res.StatusCode, nil
			}
		}
		return res.StatusCode, statusError(op, res)
	}
	if out != nil {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			return res.StatusCode, fmt.Errorf("elasticsearch %s: decode response: %w", op, err)
		}
	}
	return res.StatusCode, nil
}

// Ping checks whether the cluster answers.
func (e *Engine) Ping(ctx context.Context) error {
	_, err := e.call(ctx, "ping", esapi.PingRequest{}, nil)
	return err
}

func (e *Engine) ensureIndex(ctx context.Context) error {
	status, err := e.call(ctx, "index exists", esapi.IndicesExistsRequest{Index: []string{e.index}}, nil, http.StatusNotFound)
	if err != nil {
		return err
	}
	if status == http.StatusOK {
		return nil
	}

	create := esapi.IndicesCreateRequest{Index: e.index, Body: strings.NewReader(buildIndexMapping())}
	if _, err := e.call(ctx, "create index", create, nil); err != nil {
		return err
	}
	e.logger.InfoContext(ctx, "elasticsearch index created", slog.String("index", e.index))
	return nil
}

// Index writes one document and refreshes so it is searchable at once.
func (e *Engine) Index(ctx context.Context, doc *domain.SearchDocument) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("elasticsearch index: marshal document %s: %w", doc.ID, err)
	}
	req := esapi.IndexRequest{
		Index:      e.index,
		DocumentID: doc.ID,
		Body:       bytes.NewReader(body),
		Refresh:    "true",
	}
	if _, err := e.call(ctx, "index", req, nil); err != nil {
		return err
	}
	e.logger.DebugContext(ctx, "indexed document", slog.String("id", doc.ID))
	return nil
}

// Delete removes a document. A missing document is not an error.
func (e *Engine) Delete(ctx context.Context, id string) error {
	req := esapi.DeleteRequest{Index: e.index, DocumentID: id, Refresh: "true"}
	_, err := e.call(ctx, "delete", req, nil, http.StatusNotFound)
	return err
}

// Search answers c with product ids only. Facets are left empty because the
// native engine has no filter configuration to build them from.
func (e *Engine) Search(ctx context.Context, c *domain.Criteria) (*domain.SearchResult, error) {
	body, err := json.Marshal(buildSearchQuery(c))
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search: marshal query: %w", err)
	}

	var resp hitsResponse
	req := esapi.SearchRequest{Index: []string{e.index}, Body: bytes.NewReader(body)}
	if _, err := e.call(ctx, "search", req, &resp); err != nil {
		return nil, err
	}

	result := &domain.SearchResult{
		ProductIDs: make([]string, 0, len(resp.Hits.Hits)),
		Total:      resp.Hits.Total.Value,
		Facets:     []domain.FacetResult{},
		Source:     domain.SourceNative,
	}
	for _, hit := range resp.Hits.Hits {
		result.ProductIDs = append(result.ProductIDs, hit.ID)
	}
	return result, nil
}

// BulkIndex writes docs in batches of bulkBatchSize. It stops at the first
// batch the cluster rejects in part or whole.
func (e *Engine) BulkIndex(ctx context.Context, docs []domain.SearchDocument) error {
	for start := 0; start < len(docs); start += bulkBatchSize {
		end := min(start+bulkBatchSize, len(docs))
		if err := e.bulk(ctx, docs[start:end]); err != nil {
			return fmt.Errorf("elasticsearch bulk index (documents %d-%d): %w", start, end-1, err)
		}
	}
	if len(docs) > 0 {
		e.logger.InfoContext(ctx, "bulk indexed documents", slog.Int("count", len(docs)))
	}
	return nil
}

func (e *Engine) bulk(ctx context.Context, docs []domain.SearchDocument) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i := range docs {
		meta := map[string]any{"index": map[string]string{"_id": docs[i].ID}}
		if err := enc.Encode(meta); err != nil {
			return fmt.Errorf("encode action: %w", err)
		}
		if err := enc.Encode(&docs[i]); err != nil {
			return fmt.Errorf("encode document %s: %w", docs[i].ID, err)
		}
	}

	var resp bulkResponse
	req := esapi.BulkRequest{Index: e.index, Body: &buf, Refresh: "true"}
	if _, err := e.call(ctx, "bulk", req, &resp); err != nil {
		return err
	}
	if !resp.Errors {
		return nil
	}

	var failed []string
	for _, item := range resp.Items {
		for _, r := range item {
			if r.Error != nil {
				failed = append(failed, fmt.Sprintf("id=%s: %s: %s", r.ID, r.Error.Type, r.Error.Reason))
			}
		}
	}
	return fmt.Errorf("partial errors: %s", strings.Join(failed, "; "))
}

// Reset drops the index and creates it again with the current mapping.
func (e *Engine) Reset(ctx context.Context) error {
	if _, err := e.call(ctx, "delete index", esapi.IndicesDeleteRequest{Index: []string{e.index}}, nil, http.StatusNotFound); err != nil {
		return err
	}
	return e.ensureIndex(ctx)
}

func statusError(op string, res *esapi.Response) error {
	body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
	var errResp struct {
		Error causeBody `json:"error"`
	}
	if json.Unmarshal(body, &errResp) == nil && errResp.Error.Type != "" {
		return fmt.Errorf("elasticsearch %s: %s: %s", op, errResp.Error.Type, errResp.Error.Reason)
	}
	return fmt.Errorf("elasticsearch %s: unexpected status %s", op, res.Status())
}
