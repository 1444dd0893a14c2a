package searchindex

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/meilisearch/meilisearch-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/smallbiznis/pricewise/internal/matching/domain"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Body   string
}

// fakeMeili records requests and answers them from handlers keyed by
// "METHOD /path".
type fakeMeili struct {
	mu       sync.Mutex
	requests []recordedRequest
	handlers map[string]http.HandlerFunc
}

func newFakeMeili(t *testing.T, handlers map[string]http.HandlerFunc) (*fakeMeili, *PeerIndex) {
	t.Helper()
	fake := &fakeMeili{handlers: handlers}
	server := httptest.NewServer(http.HandlerFunc(fake.serve))
	t.Cleanup(server.Close)

	client := meilisearch.New(server.URL, meilisearch.WithAPIKey("secret"), meilisearch.DisableRetries())
	return fake, NewPeerIndex(client, "peers", zap.NewNop())
}

func (f *fakeMeili) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery, Body: string(body)})
	handler := f.handlers[r.Method+" "+r.URL.Path]
	f.mu.Unlock()

	if handler == nil {
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "not found", "code": "not_found", "type": "invalid_request"})
		return
	}
	handler(w, r)
}

func (f *fakeMeili) recorded() []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedRequest(nil), f.requests...)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func enqueued(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusAccepted, map[string]any{"taskUid": 1, "indexUid": "peers", "status": "enqueued", "type": "documentAdditionOrUpdate"})
}

func TestBuildFilter(t *testing.T) {
	store := int64(7)
	assert.Equal(t, "", buildFilter(domain.PeerQuery{Text: "milk"}))
	assert.Equal(t,
		`id != 3 AND store_id = 7 AND breadcrumb = "Dairy > \"Fresh\" Milk"`,
		buildFilter(domain.PeerQuery{ExcludeItemID: 3, StoreID: &store, Breadcrumb: `Dairy > "Fresh" Milk`}),
	)
}

func TestDecodeHitsAppliesThreshold(t *testing.T) {
	raw := []map[string]any{
		{"id": 10, "category_id": 4, "title": "Diced Tomatoes", "_rankingScore": 0.92},
		{"id": 11, "category_id": 4, "title": "Tomato Paste", "_rankingScore": 0.41},
		{"id": 12, "title": "No Category", "_rankingScore": 0.99},
	}

	hits, err := decodeHits(raw)
	require.NoError(t, err)
	require.Len(t, hits, 3)

	got := toCandidates(hits, 0.5)
	require.Len(t, got, 1)
	assert.Equal(t, domain.PeerCandidate{ItemID: 10, CategoryID: 4, Title: "Diced Tomatoes", Score: 0.92}, got[0])
}

func TestSearchPeersSendsFilterAndThreshold(t *testing.T) {
	fake, index := newFakeMeili(t, map[string]http.HandlerFunc{
		"POST /indexes/peers/search": func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{
				"hits": []map[string]any{
					{"id": 10, "category_id": 4, "title": "Whole Milk 1 gal", "_rankingScore": 0.93},
				},
				"query":            "whole milk",
				"processingTimeMs": 1,
			})
		},
	})
	store := int64(7)

	got, err := index.SearchPeers(context.Background(), domain.PeerQuery{
		Text:          "whole milk",
		StoreID:       &store,
		Breadcrumb:    "Dairy",
		ExcludeItemID: 3,
		Threshold:     0.5,
		Limit:         1,
	})
	require.NoError(t, err)
	assert.Equal(t, []domain.PeerCandidate{{ItemID: 10, CategoryID: 4, Title: "Whole Milk 1 gal", Score: 0.93}}, got)

	requests := fake.recorded()
	require.Len(t, requests, 1)
	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(requests[0].Body), &body))
	assert.Equal(t, "whole milk", body["q"])
	assert.Equal(t, `id != 3 AND store_id = 7 AND breadcrumb = "Dairy"`, body["filter"])
	assert.Equal(t, true, body["showRankingScore"])
	assert.InDelta(t, 0.5, body["rankingScoreThreshold"], 1e-9)
	assert.EqualValues(t, 1, body["limit"])
}

func TestSearchPeersBlankTextIssuesNoRequest(t *testing.T) {
	fake, index := newFakeMeili(t, nil)

	got, err := index.SearchPeers(context.Background(), domain.PeerQuery{Text: "  "})
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Empty(t, fake.recorded())
}

func TestSearchPeersInvalidRequestIsNotDegraded(t *testing.T) {
	_, index := newFakeMeili(t, map[string]http.HandlerFunc{
		"POST /indexes/peers/search": func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"message": "Attribute `breadcrumb` is not filterable.",
				"code":    "invalid_search_filter",
				"type":    "invalid_request",
				"link":    "https://docs.meilisearch.com/errors#invalid_search_filter",
			})
		},
	})

	_, err := index.SearchPeers(context.Background(), domain.PeerQuery{Text: "whole milk", Breadcrumb: "Dairy"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrSearchDegraded)
	assert.NotErrorIs(t, err, domain.ErrSearchUnavailable)

	var apiErr *meilisearch.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "invalid_search_filter", apiErr.MeilisearchApiError.Code)
}

func TestSearchPeersServerErrorIsDegraded(t *testing.T) {
	_, index := newFakeMeili(t, map[string]http.HandlerFunc{
		"POST /indexes/peers/search": func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusInternalServerError, map[string]any{"message": "internal", "code": "internal", "type": "internal"})
		},
	})

	_, err := index.SearchPeers(context.Background(), domain.PeerQuery{Text: "whole milk"})
	assert.ErrorIs(t, err, domain.ErrSearchDegraded)
}

func TestSearchPeersUnreachableServerIsDegraded(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()
	index := NewPeerIndex(meilisearch.New(url, meilisearch.DisableRetries()), "peers", zap.NewNop())

	_, err := index.SearchPeers(context.Background(), domain.PeerQuery{Text: "whole milk"})
	assert.ErrorIs(t, err, domain.ErrSearchDegraded)

	assert.ErrorIs(t, index.Probe(context.Background()), domain.ErrSearchDegraded)
}

func TestUpsertSendsPrimaryKey(t *testing.T) {
	fake, index := newFakeMeili(t, map[string]http.HandlerFunc{
		"POST /indexes/peers/documents": enqueued,
	})
	store := int64(7)

	require.NoError(t, index.Upsert(context.Background(), nil))
	assert.Empty(t, fake.recorded())

	err := index.Upsert(context.Background(), []PeerDocument{
		{ID: 10, CategoryID: 4, Title: "Whole Milk", NormalizedTitle: "whole milk", StoreID: &store, Breadcrumb: "Dairy"},
	})
	require.NoError(t, err)

	requests := fake.recorded()
	require.Len(t, requests, 1)
	assert.Equal(t, "primaryKey=id", requests[0].Query)
	var docs []map[string]any
	require.NoError(t, json.Unmarshal([]byte(requests[0].Body), &docs))
	require.Len(t, docs, 1)
	assert.EqualValues(t, 10, docs[0]["id"])
	assert.EqualValues(t, 4, docs[0]["category_id"])
	assert.Equal(t, "whole milk", docs[0]["normalized_title"])
}

func TestDeleteSendsStringIDs(t *testing.T) {
	fake, index := newFakeMeili(t, map[string]http.HandlerFunc{
		"POST /indexes/peers/documents/delete-batch": enqueued,
	})

	require.NoError(t, index.Delete(context.Background(), nil))
	require.NoError(t, index.Delete(context.Background(), []int64{10, 11}))

	requests := fake.recorded()
	require.Len(t, requests, 1)
	var ids []string
	require.NoError(t, json.Unmarshal([]byte(requests[0].Body), &ids))
	assert.Equal(t, []string{"10", "11"}, ids)
}

func TestEnsureIndexConfiguresAttributes(t *testing.T) {
	fake, index := newFakeMeili(t, map[string]http.HandlerFunc{
		// Create failures are logged and the settings still applied.
		"POST /indexes": func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusConflict, map[string]any{"message": "exists", "code": "index_already_exists", "type": "invalid_request"})
		},
		"PUT /indexes/peers/settings/searchable-attributes": enqueued,
		"PUT /indexes/peers/settings/filterable-attributes": enqueued,
	})

	require.NoError(t, index.EnsureIndex(context.Background()))

	requests := fake.recorded()
	require.Len(t, requests, 3)
	assert.JSONEq(t, `{"uid":"peers","primaryKey":"id"}`, requests[0].Body)
	assert.JSONEq(t, `["normalized_title","title"]`, requests[1].Body)
	assert.JSONEq(t, `["store_id","breadcrumb","id"]`, requests[2].Body)
}

func TestHealthCheckRequiresAvailableStatus(t *testing.T) {
	var status atomic.Value
	status.Store("available")
	_, index := newFakeMeili(t, map[string]http.HandlerFunc{
		"GET /health": func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"status": status.Load()})
		},
	})

	require.NoError(t, index.Probe(context.Background()))

	status.Store("starting")
	assert.ErrorIs(t, index.Probe(context.Background()), domain.ErrSearchDegraded)
}
