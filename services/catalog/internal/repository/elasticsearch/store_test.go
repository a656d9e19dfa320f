package elasticsearch

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront-catalog/services/catalog/internal/domain"
	"github.com/utafrali/storefront-catalog/services/catalog/internal/query"
	"github.com/utafrali/storefront-catalog/services/catalog/internal/repository"
)

// fakeCluster records requests and answers with canned responses per
// "METHOD /path" key.
type fakeCluster struct {
	mu        sync.Mutex
	responses map[string]fakeResponse
	bodies    map[string]string
	queries   map[string]string
}

type fakeResponse struct {
	status int
	body   string
}

func newFakeCluster(t *testing.T, responses map[string]fakeResponse) (*fakeCluster, *httptest.Server) {
	t.Helper()
	fc := &fakeCluster{
		responses: responses,
		bodies:    make(map[string]string),
		queries:   make(map[string]string),
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		body, _ := io.ReadAll(r.Body)

		fc.mu.Lock()
		fc.bodies[key] = string(body)
		fc.queries[key] = r.URL.RawQuery
		resp, ok := fc.responses[key]
		fc.mu.Unlock()

		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		if !ok {
			resp = fakeResponse{status: http.StatusNotFound, body: `{"error":{"type":"not_found","reason":"no route"},"status":404}`}
		}
		w.WriteHeader(resp.status)
		_, _ = io.WriteString(w, resp.body)
	}))
	t.Cleanup(srv.Close)
	return fc, srv
}

func (fc *fakeCluster) body(key string) string {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.bodies[key]
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const indexPath = "/" + DefaultIndexName

func existingIndex() map[string]fakeResponse {
	return map[string]fakeResponse{
		"HEAD " + indexPath: {status: http.StatusOK},
	}
}

func TestNew_CreatesMissingIndex(t *testing.T) {
	fc, srv := newFakeCluster(t, map[string]fakeResponse{
		"PUT " + indexPath: {status: http.StatusOK, body: `{"acknowledged":true}`},
	})

	_, err := New(context.Background(), []string{srv.URL}, "", testLogger())
	require.NoError(t, err)

	var mapping map[string]any
	require.NoError(t, json.Unmarshal([]byte(fc.body("PUT "+indexPath)), &mapping))
	props := mapping["mappings"].(map[string]any)["properties"].(map[string]any)
	assert.Equal(t, "nested", props["variants"].(map[string]any)["type"])
	assert.Equal(t, "wildcard", props["name"].(map[string]any)["type"])
}

func TestNew_CreateIndexError(t *testing.T) {
	_, srv := newFakeCluster(t, map[string]fakeResponse{
		"PUT " + indexPath: {status: http.StatusBadRequest, body: `{"error":{"type":"mapper_parsing_exception","reason":"bad mapping"},"status":400}`},
	})

	_, err := New(context.Background(), []string{srv.URL}, "", testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mapper_parsing_exception")
}

func TestFind(t *testing.T) {
	responses := existingIndex()
	responses["POST "+indexPath+"/_search"] = fakeResponse{status: http.StatusOK, body: `{
	  "hits": {
	    "total": {"value": 42},
	    "hits": [{"_source": {
	      "id": "p1", "store_id": "s1", "name": "Cotton Kurta",
	      "is_archived": false, "created_at": "2026-01-02T00:00:00Z",
	      "ratings": {"average_rating": 4.5, "number_of_ratings": 2},
	      "variants": [{"id": "v1", "product_id": "p1", "is_active": true,
	        "prices": [{"location_group_id": "LG1", "price": 500, "mrp": 800}]}]
	    }}]
	  }
	}`}
	fc, srv := newFakeCluster(t, responses)

	store, err := New(context.Background(), []string{srv.URL}, "", testLogger())
	require.NoError(t, err)

	pred := query.And(query.Eq(query.FieldStore, "s1"), query.NotArchived())
	entries, total, err := store.Find(context.Background(), repository.FindParams{
		Predicate: pred,
		Sort:      domain.SortNameAsc,
		Offset:    24,
		Limit:     12,
	})
	require.NoError(t, err)

	assert.Equal(t, 42, total)
	require.Len(t, entries, 1)
	assert.Equal(t, "Cotton Kurta", entries[0].Product.Name)
	assert.Equal(t, time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC), entries[0].Product.CreatedAt)
	assert.Equal(t, 4.5, entries[0].Ratings.AverageRating)
	require.Len(t, entries[0].Variants, 1)
	assert.Equal(t, int64(500), entries[0].Variants[0].Prices[0].Price)

	assert.JSONEq(t, `{
	  "query": {"bool": {"filter": [{"term": {"store_id": "s1"}}, {"term": {"is_archived": false}}]}},
	  "sort": [{"name.sort": "asc"}, {"id": "asc"}],
	  "from": 24,
	  "size": 12,
	  "track_total_hits": true
	}`, fc.body("POST "+indexPath+"/_search"))
}

func TestFind_WindowCappedAtResultLimit(t *testing.T) {
	tests := []struct {
		name       string
		offset     int
		from, size int
	}{
		{"inside", 9000, 9000, 100},
		{"straddles", 9950, 9950, 50},
		{"past", 1 << 40, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			responses := existingIndex()
			responses["POST "+indexPath+"/_search"] = fakeResponse{status: http.StatusOK, body: `{"hits":{"total":{"value":12000},"hits":[]}}`}
			fc, srv := newFakeCluster(t, responses)

			store, err := New(context.Background(), []string{srv.URL}, "", testLogger())
			require.NoError(t, err)

			entries, total, err := store.Find(context.Background(), repository.FindParams{
				Predicate: query.And(),
				Offset:    tt.offset,
				Limit:     100,
			})
			require.NoError(t, err)
			assert.Empty(t, entries)
			assert.Equal(t, 12000, total)

			var body struct {
				From int `json:"from"`
				Size int `json:"size"`
			}
			require.NoError(t, json.Unmarshal([]byte(fc.body("POST "+indexPath+"/_search")), &body))
			assert.Equal(t, tt.from, body.From)
			assert.Equal(t, tt.size, body.Size)
		})
	}
}

func TestFind_NoVariantsDecodesToEmptySlice(t *testing.T) {
	responses := existingIndex()
	responses["POST "+indexPath+"/_search"] = fakeResponse{status: http.StatusOK, body: `{"hits":{"total":{"value":1},"hits":[{"_source":{"id":"p1"}}]}}`}
	_, srv := newFakeCluster(t, responses)

	store, err := New(context.Background(), []string{srv.URL}, "", testLogger())
	require.NoError(t, err)

	entries, _, err := store.Find(context.Background(), repository.FindParams{Predicate: query.And(), Limit: 10})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.NotNil(t, entries[0].Variants)
}

func TestFind_CompileError(t *testing.T) {
	_, srv := newFakeCluster(t, existingIndex())
	store, err := New(context.Background(), []string{srv.URL}, "", testLogger())
	require.NoError(t, err)

	_, _, err = store.Find(context.Background(), repository.FindParams{Predicate: query.Eq(query.FieldColor, "red")})
	assert.ErrorIs(t, err, query.ErrMisplacedLeaf)
}

func TestFind_ClusterError(t *testing.T) {
	responses := existingIndex()
	responses["POST "+indexPath+"/_search"] = fakeResponse{status: http.StatusBadRequest, body: `{"error":{"type":"search_phase_execution_exception","reason":"boom"},"status":400}`}
	_, srv := newFakeCluster(t, responses)

	store, err := New(context.Background(), []string{srv.URL}, "", testLogger())
	require.NoError(t, err)

	_, _, err = store.Find(context.Background(), repository.FindParams{Predicate: query.And(), Limit: 10})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "search_phase_execution_exception")
}

func TestIndex_Bulk(t *testing.T) {
	responses := existingIndex()
	responses["POST "+indexPath+"/_bulk"] = fakeResponse{status: http.StatusOK, body: `{"errors":false,"items":[]}`}
	fc, srv := newFakeCluster(t, responses)

	store, err := New(context.Background(), []string{srv.URL}, "", testLogger())
	require.NoError(t, err)

	err = store.Index(context.Background(), []domain.CatalogEntry{
		{Product: domain.Product{ID: "p1", StoreID: "s1", Name: "Kurta"}},
		{Product: domain.Product{ID: "p2", StoreID: "s1", Name: "Saree"}},
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(fc.body("POST "+indexPath+"/_bulk")), "\n")
	require.Len(t, lines, 4)
	assert.JSONEq(t, `{"index":{"_index":"storefront_catalog","_id":"p1"}}`, lines[0])

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &doc))
	assert.Equal(t, "Kurta", doc["name"])
	assert.Equal(t, "s1", doc["store_id"])
	assert.Contains(t, fc.queries["POST "+indexPath+"/_bulk"], "refresh=wait_for")
}

func TestIndex_EmptyIsNoop(t *testing.T) {
	_, srv := newFakeCluster(t, existingIndex())
	store, err := New(context.Background(), []string{srv.URL}, "", testLogger())
	require.NoError(t, err)

	assert.NoError(t, store.Index(context.Background(), nil))
}

func TestIndex_PartialErrors(t *testing.T) {
	responses := existingIndex()
	responses["POST "+indexPath+"/_bulk"] = fakeResponse{status: http.StatusOK, body: `{"errors":true,"items":[
	  {"index":{"_id":"p1"}},
	  {"index":{"_id":"p2","error":{"type":"mapper_parsing_exception","reason":"bad price"}}}
	]}`}
	_, srv := newFakeCluster(t, responses)

	store, err := New(context.Background(), []string{srv.URL}, "", testLogger())
	require.NoError(t, err)

	err = store.Index(context.Background(), []domain.CatalogEntry{
		{Product: domain.Product{ID: "p1"}},
		{Product: domain.Product{ID: "p2"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "id=p2: mapper_parsing_exception: bad price")
}

func TestDelete_IgnoresMissing(t *testing.T) {
	_, srv := newFakeCluster(t, existingIndex())
	store, err := New(context.Background(), []string{srv.URL}, "", testLogger())
	require.NoError(t, err)

	assert.NoError(t, store.Delete(context.Background(), "unknown"))
}

func TestPing(t *testing.T) {
	responses := existingIndex()
	responses["HEAD /"] = fakeResponse{status: http.StatusOK}
	_, srv := newFakeCluster(t, responses)

	store, err := New(context.Background(), []string{srv.URL}, "", testLogger())
	require.NoError(t, err)

	assert.NoError(t, store.Ping(context.Background()))
}
