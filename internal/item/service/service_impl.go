package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/smallbiznis/pricewise/internal/clock"
	"github.com/smallbiznis/pricewise/internal/item/domain"
	matchingdomain "github.com/smallbiznis/pricewise/internal/matching/domain"
	"github.com/smallbiznis/pricewise/internal/normalize"
	"github.com/smallbiznis/pricewise/internal/observability/logger"
	"github.com/smallbiznis/pricewise/internal/observability/metrics"
	"github.com/smallbiznis/pricewise/internal/priceunit"
	"github.com/smallbiznis/pricewise/internal/unit"
	"github.com/smallbiznis/pricewise/pkg/db/pagination"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Repo    domain.Repository
	Matcher matchingdomain.Service
	Clock   clock.Clock      `optional:"true"`
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	repo    domain.Repository
	matcher matchingdomain.Service
	clock   clock.Clock
	metrics *metrics.Metrics
}

func New(p Params) domain.Service {
	c := p.Clock
	if c == nil {
		c = clock.New()
	}
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("item.service"),
		genID:   p.GenID,
		repo:    p.Repo,
		matcher: p.Matcher,
		clock:   c,
		metrics: p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Item, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, domain.ErrInvalidTitle
	}
	if req.Price.IsNegative() {
		return nil, domain.ErrInvalidPrice
	}

	var code unit.Code
	if raw := strings.TrimSpace(req.Unit); raw != "" {
		normalized, ok := unit.NormalizeUnit(raw)
		if !ok {
			return nil, domain.ErrInvalidUnit
		}
		code = normalized
	}

	now := s.clock.Now()
	item := &domain.Item{
		ID:              s.genID.Generate().Int64(),
		StoreID:         req.StoreID,
		Title:           title,
		NormalizedTitle: normalize.Title(title),
		Breadcrumb:      strings.TrimSpace(req.Breadcrumb),
		Price:           req.Price,
		Size:            req.Size,
		Unit:            code,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.Create(ctx, s.db, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*domain.Item, error) {
	return s.mustFind(ctx, s.db, id)
}

func (s *Service) Approve(ctx context.Context, req domain.ApproveRequest) (*domain.Item, error) {
	item, err := s.mustFind(ctx, s.db, req.ID)
	if err != nil {
		return nil, err
	}

	if req.CategoryID != nil {
		item.CategoryID = req.CategoryID
		item.MatchScore = nil
		item.MatchStrategy = "manual"
	}
	if item.CategoryID == nil {
		return nil, domain.ErrUncategorized
	}
	item.Approved = true
	item.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, s.db, item); err != nil {
		return nil, err
	}

	s.log.Info("item.approve", zap.Int64("item_id", item.ID), zap.Int64("category_id", *item.CategoryID))
	return item, nil
}

// Normalize resolves the category outside the write transaction so the
// similarity search never waits on locks held by the update. The match is
// re-checked inside the transaction; a category deleted or a peer unapproved
// in between fails the item with ErrStaleMatch and leaves it pending.
func (s *Service) Normalize(ctx context.Context, id int64) (*domain.NormalizeResult, error) {
	item, err := s.mustFind(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	log := logger.WithContext(ctx, s.log).With(zap.Int64("item_id", item.ID))
	result := &domain.NormalizeResult{Item: item}

	s.fillUnit(ctx, item, result)
	item.NormalizedTitle = normalize.Title(item.Title)

	if item.CategoryID == nil {
		match, err := s.matcher.Resolve(ctx, matchingdomain.Subject{
			ItemID:     item.ID,
			Title:      item.Title,
			Breadcrumb: item.Breadcrumb,
			StoreID:    item.StoreID,
		})
		if err != nil {
			s.metrics.RecordItemNormalized(ctx, metrics.OutcomeFailed, "resolve")
			return nil, fmt.Errorf("resolve category: %w", err)
		}
		if match != nil {
			categoryID := match.CategoryID
			score := match.Score
			item.CategoryID = &categoryID
			item.MatchScore = &score
			item.MatchStrategy = string(match.Strategy)
			item.Approved = false
			result.Match = match
		}
	}

	var history *domain.PriceHistory
	size := decimal.Zero
	if item.Size != nil {
		size = *item.Size
	}
	if err := priceunit.Check(item.Price, size, item.Unit); err != nil {
		item.PricePerUnit = nil
		item.NormalizedUnit = ""
		result.PriceError = err
		s.metrics.RecordPriceCalculation(ctx, string(unit.FamilyOf(item.Unit)), metrics.OutcomeSkipped)
	} else if calc, ok := priceunit.Calculate(item.Price, size, item.Unit); ok {
		value := calc.Value
		item.PricePerUnit = &value
		item.NormalizedUnit = calc.Label
		history = &domain.PriceHistory{
			ID:             s.genID.Generate().Int64(),
			ItemID:         item.ID,
			Price:          item.Price,
			PricePerUnit:   calc.Value,
			DisplayPrice:   calc.Display,
			NormalizedUnit: calc.Label,
		}
		result.Calculated = true
		s.metrics.RecordPriceCalculation(ctx, string(unit.FamilyOf(item.Unit)), metrics.OutcomeCalculated)
	}

	now := s.clock.Now()
	item.NormalizedAt = &now
	item.UpdatedAt = now

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.ensureMatchCurrent(ctx, tx, result.Match); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, tx, item); err != nil {
			return err
		}
		if history == nil {
			return nil
		}
		history.RecordedAt = now
		return s.repo.CreatePriceHistory(ctx, tx, history)
	})
	if errors.Is(err, domain.ErrStaleMatch) {
		s.metrics.RecordItemNormalized(ctx, metrics.OutcomeFailed, "stale_match")
		log.Warn("item.normalize.stale_match",
			zap.Int64("category_id", result.Match.CategoryID),
			zap.String("strategy", string(result.Match.Strategy)),
		)
		return nil, err
	}
	if err != nil {
		s.metrics.RecordItemNormalized(ctx, metrics.OutcomeFailed, "persist")
		return nil, err
	}
	if history != nil {
		result.HistoryID = history.ID
	}

	outcome, reason := metrics.OutcomeSkipped, ""
	switch {
	case result.Match != nil:
		outcome = metrics.OutcomeMatched
	case item.CategoryID == nil:
		outcome = metrics.OutcomeNoMatch
	}
	var priceErr *priceunit.ValidationError
	if errors.As(result.PriceError, &priceErr) {
		reason = priceErr.Reason
	}
	s.metrics.RecordItemNormalized(ctx, outcome, reason)

	fields := []zap.Field{
		zap.Bool("size_parsed", result.SizeParsed),
		zap.Bool("unit_parsed", result.UnitParsed),
		zap.Bool("price_calculated", result.Calculated),
	}
	if result.Match != nil {
		fields = append(fields,
			zap.String("strategy", string(result.Match.Strategy)),
			zap.Int("match_percent", result.Match.Percent()),
		)
	}
	if result.PriceError != nil {
		fields = append(fields, zap.String("price_skipped", result.PriceError.Error()))
	}
	log.Debug("item.normalize", fields...)
	return result, nil
}

func (s *Service) ensureMatchCurrent(ctx context.Context, tx *gorm.DB, match *matchingdomain.Match) error {
	if match == nil {
		return nil
	}
	exists, err := s.repo.CategoryExists(ctx, tx, match.CategoryID)
	if err != nil {
		return err
	}
	if !exists {
		return domain.ErrStaleMatch
	}
	if match.PeerItemID == nil {
		return nil
	}
	approved, err := s.repo.IsApprovedIn(ctx, tx, *match.PeerItemID, match.CategoryID)
	if err != nil {
		return err
	}
	if !approved {
		return domain.ErrStaleMatch
	}
	return nil
}

// fillUnit parses size and unit from the title, only filling fields that are
// missing, and folds a stored unit spelling into its code.
func (s *Service) fillUnit(ctx context.Context, item *domain.Item, result *domain.NormalizeResult) {
	if item.Unit != "" && !unit.IsValid(item.Unit) {
		if code, ok := unit.NormalizeUnit(string(item.Unit)); ok {
			item.Unit = code
		}
	}
	if item.Size != nil && item.Unit != "" {
		return
	}

	parsed := unit.ParseFromTitle(item.Title)
	outcome := metrics.OutcomeNoMatch
	switch {
	case parsed.Unit == unit.Unknown:
		outcome = metrics.OutcomeFallback
	case parsed.HasUnit():
		outcome = metrics.OutcomeMatched
	}
	s.metrics.RecordUnitParse(ctx, string(parsed.Unit), outcome)

	if item.Size == nil && parsed.HasSize() {
		item.Size = parsed.Size
		result.SizeParsed = true
	}
	if item.Unit == "" && parsed.HasUnit() {
		item.Unit = parsed.Unit
		result.UnitParsed = true
	}
}

func (s *Service) PendingIDs(ctx context.Context, afterID int64, limit int) ([]int64, error) {
	if limit <= 0 {
		limit = pagination.DefaultPageSize
	}
	return s.repo.ListPendingIDs(ctx, s.db, afterID, limit)
}

func (s *Service) ListApproved(ctx context.Context, page pagination.Pagination) ([]*domain.Item, pagination.PageInfo, error) {
	cursor, err := pagination.DecodeCursor(page.PageToken)
	if err != nil {
		return nil, pagination.PageInfo{}, err
	}
	var afterID int64
	if cursor != nil {
		afterID = cursor.ID
	}

	limit := page.Limit()
	items, err := s.repo.ListApproved(ctx, s.db, afterID, limit+1)
	if err != nil {
		return nil, pagination.PageInfo{}, err
	}
	return pagination.BuildCursorPageInfo(items, limit, func(item *domain.Item) pagination.Cursor {
		return pagination.Cursor{ID: item.ID}
	})
}

func (s *Service) PriceHistory(ctx context.Context, id int64) ([]domain.PriceHistory, error) {
	if _, err := s.mustFind(ctx, s.db, id); err != nil {
		return nil, err
	}
	return s.repo.ListPriceHistory(ctx, s.db, id)
}

func (s *Service) MarkIndexed(ctx context.Context, ids []int64) error {
	return s.repo.MarkIndexed(ctx, s.db, ids, s.clock.Now())
}

func (s *Service) DelistedIDs(ctx context.Context, afterID int64, limit int) ([]int64, error) {
	if limit <= 0 {
		limit = pagination.DefaultPageSize
	}
	return s.repo.ListDelistedIDs(ctx, s.db, afterID, limit)
}

func (s *Service) MarkDelisted(ctx context.Context, ids []int64) error {
	return s.repo.ClearIndexed(ctx, s.db, ids)
}

func (s *Service) mustFind(ctx context.Context, db *gorm.DB, id int64) (*domain.Item, error) {
	if id == 0 {
		return nil, domain.ErrInvalidID
	}
	item, err := s.repo.FindByID(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}
	return item, nil
}
