// Package elasticsearch keeps a searchable copy of the catalog in
// Elasticsearch and evaluates predicate trees against it.
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

	"github.com/utafrali/storefront-catalog/services/catalog/internal/domain"
	"github.com/utafrali/storefront-catalog/services/catalog/internal/query"
	"github.com/utafrali/storefront-catalog/services/catalog/internal/repository"
)

// Store is an Elasticsearch-backed CatalogRepository and CatalogIndex.
type Store struct {
	client    *elasticsearch.Client
	indexName string
	logger    *slog.Logger
}

// document is the indexed shape of a catalog entry: the product fields at the
// top level with variants nested beneath.
type document struct {
	domain.Product
	Variants []domain.Variant     `json:"variants"`
	Ratings  domain.ReviewSummary `json:"ratings"`
}

func toDocument(e domain.CatalogEntry) document {
	return document{Product: e.Product, Variants: e.Variants, Ratings: e.Ratings}
}

func (d document) entry() domain.CatalogEntry {
	variants := d.Variants
	if variants == nil {
		variants = []domain.Variant{}
	}
	return domain.CatalogEntry{Product: d.Product, Variants: variants, Ratings: d.Ratings}
}

type esSearchResponse struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			Source document `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

type esBulkResponse struct {
	Errors bool `json:"errors"`
	Items  []struct {
		Index struct {
			ID    string `json:"_id"`
			Error struct {
				Type   string `json:"type"`
				Reason string `json:"reason"`
			} `json:"error"`
		} `json:"index"`
	} `json:"items"`
}

type esErrorResponse struct {
	Error struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
	Status int `json:"status"`
}

// New connects to the cluster at addresses and ensures the catalog index
// exists. If indexName is empty, DefaultIndexName is used.
func New(ctx context.Context, addresses []string, indexName string, logger *slog.Logger) (*Store, error) {
	if indexName == "" {
		indexName = DefaultIndexName
	}

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: addresses})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: create client: %w", err)
	}

	s := &Store{
		client:    client,
		indexName: indexName,
		logger:    logger,
	}
	if err := s.ensureIndex(ctx); err != nil {
		return nil, fmt.Errorf("elasticsearch: ensure index: %w", err)
	}
	return s, nil
}

// Ping checks whether the Elasticsearch cluster is reachable.
func (s *Store) Ping(ctx context.Context) error {
	res, err := s.client.Ping(s.client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch ping: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping: unexpected status %s", res.Status())
	}
	return nil
}

func (s *Store) ensureIndex(ctx context.Context) error {
	res, err := s.client.Indices.Exists([]string{s.indexName}, s.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("check index exists: %w", err)
	}
	_ = res.Body.Close()

	if res.StatusCode == http.StatusOK {
		s.logger.Info("elasticsearch index already exists", slog.String("index", s.indexName))
		return nil
	}

	res, err = s.client.Indices.Create(
		s.indexName,
		s.client.Indices.Create.WithBody(strings.NewReader(buildIndexMapping())),
		s.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return responseError("create index", res.Status(), res.Body)
	}

	s.logger.Info("elasticsearch index created", slog.String("index", s.indexName))
	return nil
}

// Index adds or replaces entries using the bulk API.
func (s *Store) Index(ctx context.Context, entries []domain.CatalogEntry) error {
	if len(entries) == 0 {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, e := range entries {
		action := map[string]any{
			"index": map[string]any{"_index": s.indexName, "_id": e.Product.ID},
		}
		if err := enc.Encode(action); err != nil {
			return fmt.Errorf("elasticsearch bulk index: encode action: %w", err)
		}
		if err := enc.Encode(toDocument(e)); err != nil {
			return fmt.Errorf("elasticsearch bulk index: encode document: %w", err)
		}
	}

	res, err := s.client.Bulk(
		bytes.NewReader(buf.Bytes()),
		s.client.Bulk.WithIndex(s.indexName),
		s.client.Bulk.WithRefresh("wait_for"),
		s.client.Bulk.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch bulk index: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return responseError("elasticsearch bulk index", res.Status(), res.Body)
	}

	var bulkResp esBulkResponse
	if err := json.NewDecoder(res.Body).Decode(&bulkResp); err != nil {
		return fmt.Errorf("elasticsearch bulk index: decode response: %w", err)
	}
	if bulkResp.Errors {
		var msgs []string
		for _, item := range bulkResp.Items {
			if item.Index.Error.Type != "" {
				msgs = append(msgs, fmt.Sprintf("id=%s: %s: %s", item.Index.ID, item.Index.Error.Type, item.Index.Error.Reason))
			}
		}
		return fmt.Errorf("elasticsearch bulk index: partial errors: %s", strings.Join(msgs, "; "))
	}

	s.logger.DebugContext(ctx, "indexed catalog entries", slog.Int("count", len(entries)))
	return nil
}

// Delete removes a product. A missing document is not an error.
func (s *Store) Delete(ctx context.Context, productID string) error {
	res, err := s.client.Delete(s.indexName, productID, s.client.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch delete: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return responseError("elasticsearch delete", res.Status(), res.Body)
	}
	return nil
}

// maxResultWindow is the index.max_result_window default; from+size past it
// is rejected by the cluster.
const maxResultWindow = 10000

// Find implements repository.CatalogRepository. Pages past the result window
// come back empty with the full total.
func (s *Store) Find(ctx context.Context, params repository.FindParams) ([]domain.CatalogEntry, int, error) {
	q, err := query.Elastic(params.Predicate)
	if err != nil {
		return nil, 0, fmt.Errorf("elasticsearch find: %w", err)
	}

	from, size := max(params.Offset, 0), max(params.Limit, 0)
	if from >= maxResultWindow {
		from, size = 0, 0
	} else if size > maxResultWindow-from {
		size = maxResultWindow - from
	}

	body := map[string]any{
		"query":            q,
		"sort":             sortClause(params.Sort),
		"from":             from,
		"size":             size,
		"track_total_hits": true,
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, 0, fmt.Errorf("elasticsearch find: marshal query: %w", err)
	}

	res, err := s.client.Search(
		s.client.Search.WithIndex(s.indexName),
		s.client.Search.WithBody(bytes.NewReader(data)),
		s.client.Search.WithContext(ctx),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("elasticsearch find: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return nil, 0, responseError("elasticsearch find", res.Status(), res.Body)
	}

	var esResp esSearchResponse
	if err := json.NewDecoder(res.Body).Decode(&esResp); err != nil {
		return nil, 0, fmt.Errorf("elasticsearch find: decode response: %w", err)
	}

	entries := make([]domain.CatalogEntry, 0, len(esResp.Hits.Hits))
	for _, hit := range esResp.Hits.Hits {
		entries = append(entries, hit.Source.entry())
	}
	return entries, esResp.Hits.Total.Value, nil
}

func sortClause(sortBy domain.SortBy) []any {
	if sortBy == domain.SortNameAsc {
		return []any{
			map[string]any{"name.sort": "asc"},
			map[string]any{"id": "asc"},
		}
	}
	return []any{
		map[string]any{"created_at": "desc"},
		map[string]any{"id": "asc"},
	}
}

// DeleteIndex drops the whole index. A missing index is not an error.
func (s *Store) DeleteIndex(ctx context.Context) error {
	res, err := s.client.Indices.Delete([]string{s.indexName}, s.client.Indices.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch delete index: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return responseError("elasticsearch delete index", res.Status(), res.Body)
	}
	s.logger.InfoContext(ctx, "elasticsearch index deleted", slog.String("index", s.indexName))
	return nil
}

func responseError(op, status string, body io.Reader) error {
	var errResp esErrorResponse
	if err := json.NewDecoder(body).Decode(&errResp); err == nil && errResp.Error.Type != "" {
		return fmt.Errorf("%s: %s: %s", op, errResp.Error.Type, errResp.Error.Reason)
	}
	return fmt.Errorf("%s: unexpected status %s", op, status)
}
