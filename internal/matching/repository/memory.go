package repository

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"gorm.io/gorm"

	categorydomain "github.com/smallbiznis/pricewise/internal/category/domain"
	"github.com/smallbiznis/pricewise/internal/matching/domain"
	"github.com/smallbiznis/pricewise/internal/matching/similarity"
)

// MemorySearcher loads candidate rows through gorm and scores them in
// process with the pg_trgm-compatible model. It serves databases without
// pg_trgm, such as SQLite.
type MemorySearcher struct {
	db *gorm.DB
}

func NewMemorySearcher(conn *gorm.DB) *MemorySearcher {
	return &MemorySearcher{db: conn}
}

// Probe always succeeds; the scoring needs no database support.
func (s *MemorySearcher) Probe(context.Context) error { return nil }

func (s *MemorySearcher) SearchPeers(ctx context.Context, q domain.PeerQuery) ([]domain.PeerCandidate, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, nil
	}

	stmt := s.db.WithContext(ctx).
		Table(itemsTable).
		Select("id, category_id, title, normalized_title, store_id, breadcrumb").
		Where("approved = ? AND category_id IS NOT NULL", true)
	if q.ExcludeItemID != 0 {
		stmt = stmt.Where("id <> ?", q.ExcludeItemID)
	}
	if q.StoreID != nil {
		stmt = stmt.Where("store_id = ?", *q.StoreID)
	}
	if q.Breadcrumb != "" {
		stmt = stmt.Where("breadcrumb = ?", q.Breadcrumb)
	}

	var rows []peerRow
	if err := stmt.Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]domain.PeerCandidate, 0, len(rows))
	for _, row := range rows {
		score := similarity.Score(q.Text, row.NormalizedTitle)
		if score < q.Threshold || score == 0 {
			continue
		}
		out = append(out, domain.PeerCandidate{
			ItemID:     row.ID,
			CategoryID: row.CategoryID,
			Title:      row.Title,
			Score:      score,
		})
	}
	slices.SortFunc(out, func(a, b domain.PeerCandidate) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.ItemID, b.ItemID)
	})
	return truncate(out, limitOrDefault(q.Limit)), nil
}

func (s *MemorySearcher) SearchCategories(ctx context.Context, q domain.CategoryQuery) ([]domain.CategoryCandidate, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, nil
	}

	var leaves []categorydomain.Category
	err := s.db.WithContext(ctx).
		Where("depth = ?", categorydomain.MaxDepth).
		Order("lft ASC, id ASC").
		Find(&leaves).Error
	if err != nil {
		return nil, err
	}

	out := make([]domain.CategoryCandidate, 0, len(leaves))
	for _, c := range leaves {
		fields := append([]string{c.Title, c.Path, c.LastSegment()}, c.Synonyms...)
		score := similarity.Best(q.Text, fields...)
		if score < q.Threshold || score == 0 {
			continue
		}
		out = append(out, domain.CategoryCandidate{
			CategoryID: c.ID,
			Title:      c.Title,
			Path:       c.Path,
			Score:      score,
		})
	}
	// Stable sort keeps tree order among equal scores.
	slices.SortStableFunc(out, func(a, b domain.CategoryCandidate) int {
		return cmp.Compare(b.Score, a.Score)
	})
	return truncate(out, limitOrDefault(q.Limit)), nil
}

func truncate[T any](s []T, n int) []T {
	if len(s) > n {
		return s[:n]
	}
	return s
}
