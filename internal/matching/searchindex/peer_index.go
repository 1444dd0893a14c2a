// Package searchindex serves peer-item search from a Meilisearch index of
// approved items.
package searchindex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/meilisearch/meilisearch-go"
	"go.uber.org/zap"

	"github.com/smallbiznis/pricewise/internal/matching/domain"
)

const primaryKey = "id"

// PeerDocument is the indexed form of an approved item.
type PeerDocument struct {
	ID              int64  `json:"id"`
	CategoryID      int64  `json:"category_id"`
	Title           string `json:"title"`
	NormalizedTitle string `json:"normalized_title"`
	StoreID         *int64 `json:"store_id,omitempty"`
	Breadcrumb      string `json:"breadcrumb"`
}

type hit struct {
	PeerDocument
	RankingScore float64 `json:"_rankingScore"`
}

// PeerIndex searches approved items by normalized title. Scores are
// Meilisearch ranking scores in [0,1].
type PeerIndex struct {
	client meilisearch.ServiceManager
	index  meilisearch.IndexManager
	uid    string
	log    *zap.Logger
}

func NewPeerIndex(client meilisearch.ServiceManager, uid string, log *zap.Logger) *PeerIndex {
	return &PeerIndex{
		client: client,
		index:  client.Index(uid),
		uid:    uid,
		log:    log.Named("matching.peer_index"),
	}
}

// Probe reports ErrSearchDegraded when the server is unreachable or not
// ready.
func (p *PeerIndex) Probe(ctx context.Context) error {
	health, err := p.client.HealthWithContext(ctx)
	if err != nil {
		return classify("health", err)
	}
	if health.Status != "available" {
		return fmt.Errorf("health %q: %w", health.Status, domain.ErrSearchDegraded)
	}
	return nil
}

// EnsureIndex creates the index and configures the attributes searches rely
// on. Creating an existing index is not an error.
func (p *PeerIndex) EnsureIndex(ctx context.Context) error {
	if _, err := p.client.CreateIndexWithContext(ctx, &meilisearch.IndexConfig{Uid: p.uid, PrimaryKey: primaryKey}); err != nil {
		p.log.Debug("matching.peer_index.create_skipped", zap.Error(err))
	}

	searchable := []string{"normalized_title", "title"}
	if _, err := p.index.UpdateSearchableAttributesWithContext(ctx, &searchable); err != nil {
		return classify("update searchable attributes", err)
	}
	filterable := []interface{}{"store_id", "breadcrumb", "id"}
	if _, err := p.index.UpdateFilterableAttributesWithContext(ctx, &filterable); err != nil {
		return classify("update filterable attributes", err)
	}
	return nil
}

// Upsert adds or replaces documents by id.
func (p *PeerIndex) Upsert(ctx context.Context, docs []PeerDocument) error {
	if len(docs) == 0 {
		return nil
	}
	pk := primaryKey
	if _, err := p.index.AddDocumentsWithContext(ctx, docs, &meilisearch.DocumentOptions{PrimaryKey: &pk}); err != nil {
		return classify("add documents", err)
	}
	return nil
}

// Delete removes documents of items that are no longer approved or lost
// their category. Unknown ids are ignored by the server.
func (p *PeerIndex) Delete(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = strconv.FormatInt(id, 10)
	}
	if _, err := p.index.DeleteDocumentsWithContext(ctx, keys, nil); err != nil {
		return classify("delete documents", err)
	}
	return nil
}

func (p *PeerIndex) SearchPeers(ctx context.Context, q domain.PeerQuery) ([]domain.PeerCandidate, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 1
	}
	req := &meilisearch.SearchRequest{
		Limit:                 int64(limit),
		ShowRankingScore:      true,
		RankingScoreThreshold: q.Threshold,
	}
	if filter := buildFilter(q); filter != "" {
		req.Filter = filter
	}

	res, err := p.index.SearchWithContext(ctx, q.Text, req)
	if err != nil {
		return nil, classify("search peers", err)
	}

	hits, err := decodeHits(res.Hits)
	if err != nil {
		return nil, err
	}
	return toCandidates(hits, q.Threshold), nil
}

// classify marks transport failures and server-side errors as degraded so
// the pipeline skips the peer stage. Request errors such as an invalid
// filter are returned as they are.
func classify(op string, err error) error {
	var apiErr *meilisearch.Error
	if errors.As(err, &apiErr) {
		switch apiErr.ErrCode {
		case meilisearch.MeilisearchCommunicationError,
			meilisearch.MeilisearchTimeoutError,
			meilisearch.MeilisearchMaxRetriesExceeded:
			return fmt.Errorf("%s: %w: %w", op, domain.ErrSearchDegraded, err)
		}
		if apiErr.StatusCode >= 500 {
			return fmt.Errorf("%s: %w: %w", op, domain.ErrSearchDegraded, err)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %w", op, domain.ErrSearchDegraded, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func buildFilter(q domain.PeerQuery) string {
	var parts []string
	if q.ExcludeItemID != 0 {
		parts = append(parts, "id != "+strconv.FormatInt(q.ExcludeItemID, 10))
	}
	if q.StoreID != nil {
		parts = append(parts, "store_id = "+strconv.FormatInt(*q.StoreID, 10))
	}
	if q.Breadcrumb != "" {
		parts = append(parts, "breadcrumb = "+quote(q.Breadcrumb))
	}
	return strings.Join(parts, " AND ")
}

func quote(s string) string {
	return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s) + `"`
}

// decodeHits round-trips the response hits through JSON, which works for
// any hit representation the client returns.
func decodeHits(raw any) ([]hit, error) {
	b, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("encode hits: %w", err)
	}
	var hits []hit
	if err := json.Unmarshal(b, &hits); err != nil {
		return nil, fmt.Errorf("decode hits: %w", err)
	}
	return hits, nil
}

func toCandidates(hits []hit, threshold float64) []domain.PeerCandidate {
	out := make([]domain.PeerCandidate, 0, len(hits))
	for _, h := range hits {
		if h.CategoryID == 0 || h.RankingScore < threshold {
			continue
		}
		out = append(out, domain.PeerCandidate{
			ItemID:     h.ID,
			CategoryID: h.CategoryID,
			Title:      h.Title,
			Score:      h.RankingScore,
		})
	}
	return out
}
