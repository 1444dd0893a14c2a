package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"gorm.io/gorm"

	categorydomain "github.com/smallbiznis/pricewise/internal/category/domain"
	"github.com/smallbiznis/pricewise/internal/matching/domain"
	"github.com/smallbiznis/pricewise/pkg/db"
)

// TrigramSearcher ranks rows with PostgreSQL's pg_trgm similarity().
type TrigramSearcher struct {
	db *gorm.DB
}

func NewTrigramSearcher(conn *gorm.DB) *TrigramSearcher {
	return &TrigramSearcher{db: conn}
}

// Probe reports ErrSearchUnavailable when pg_trgm is not installed.
func (s *TrigramSearcher) Probe(ctx context.Context) error {
	var installed int64
	err := s.db.WithContext(ctx).
		Raw("SELECT count(*) FROM pg_extension WHERE extname = ?", "pg_trgm").
		Scan(&installed).Error
	if err != nil {
		return classify(err)
	}
	if installed == 0 {
		return domain.ErrSearchUnavailable
	}
	return nil
}

func (s *TrigramSearcher) SearchPeers(ctx context.Context, q domain.PeerQuery) ([]domain.PeerCandidate, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, nil
	}

	stmt := s.db.WithContext(ctx).
		Table(itemsTable).
		Select("id AS item_id, category_id, title, similarity(normalized_title, ?) AS score", q.Text).
		Where("approved = ? AND category_id IS NOT NULL", true).
		Where("similarity(normalized_title, ?) >= ?", q.Text, q.Threshold)
	if q.ExcludeItemID != 0 {
		stmt = stmt.Where("id <> ?", q.ExcludeItemID)
	}
	if q.StoreID != nil {
		stmt = stmt.Where("store_id = ?", *q.StoreID)
	}
	if q.Breadcrumb != "" {
		stmt = stmt.Where("breadcrumb = ?", q.Breadcrumb)
	}

	var out []domain.PeerCandidate
	err := stmt.Order("score DESC, id ASC").Limit(limitOrDefault(q.Limit)).Scan(&out).Error
	if err != nil {
		return nil, classify(err)
	}
	return out, nil
}

func (s *TrigramSearcher) SearchCategories(ctx context.Context, q domain.CategoryQuery) ([]domain.CategoryCandidate, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT id AS category_id, title, path, score
FROM (
	SELECT id, title, path, lft, %s AS score
	FROM %s
	WHERE depth = @depth
) ranked
WHERE score >= @threshold
ORDER BY score DESC, lft ASC
LIMIT @limit`, categoryScoreExpr, pq.QuoteIdentifier(categoriesTable))

	var out []domain.CategoryCandidate
	err := s.db.WithContext(ctx).Raw(query,
		sql.Named("q", q.Text),
		sql.Named("depth", categorydomain.MaxDepth),
		sql.Named("threshold", q.Threshold),
		sql.Named("limit", limitOrDefault(q.Limit)),
	).Scan(&out).Error
	if err != nil {
		return nil, classify(err)
	}
	return out, nil
}

// categoryScoreExpr is the max similarity across the matched fields.
var categoryScoreExpr = buildCategoryScoreExpr()

func buildCategoryScoreExpr() string {
	title := pq.QuoteIdentifier("title")
	path := pq.QuoteIdentifier("path")
	synonyms := pq.QuoteIdentifier("synonyms")

	parts := []string{
		fmt.Sprintf("similarity(%s, @q)", title),
		fmt.Sprintf("similarity(%s, @q)", path),
		fmt.Sprintf("similarity(regexp_replace(%s, '^.*/', ''), @q)", path),
		fmt.Sprintf("COALESCE((SELECT max(similarity(syn, @q)) FROM jsonb_array_elements_text(COALESCE(%s, '[]'::jsonb)) AS syn), 0)", synonyms),
	}
	return "GREATEST(" + strings.Join(parts, ", ") + ")"
}

func classify(err error) error {
	if db.IsUndefinedFunction(err) {
		return fmt.Errorf("%w: %w", domain.ErrSearchUnavailable, err)
	}
	return err
}
