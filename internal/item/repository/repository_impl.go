package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	categorydomain "github.com/smallbiznis/pricewise/internal/category/domain"
	"github.com/smallbiznis/pricewise/internal/item/domain"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, item *domain.Item) error {
	return db.WithContext(ctx).Create(item).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, item *domain.Item) error {
	if item == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).
		Model(&domain.Item{}).
		Where("id = ?", item.ID).
		Updates(map[string]any{
			"store_id":         item.StoreID,
			"title":            item.Title,
			"normalized_title": item.NormalizedTitle,
			"breadcrumb":       item.Breadcrumb,
			"price":            item.Price,
			"size":             item.Size,
			"unit":             item.Unit,
			"category_id":      item.CategoryID,
			"approved":         item.Approved,
			"match_score":      item.MatchScore,
			"match_strategy":   item.MatchStrategy,
			"price_per_unit":   item.PricePerUnit,
			"normalized_unit":  item.NormalizedUnit,
			"normalized_at":    item.NormalizedAt,
			"updated_at":       item.UpdatedAt,
		}).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.Item, error) {
	var items []domain.Item
	err := db.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return &items[0], nil
}

func (r *repo) ListPendingIDs(ctx context.Context, db *gorm.DB, afterID int64, limit int) ([]int64, error) {
	var ids []int64
	err := db.WithContext(ctx).
		Model(&domain.Item{}).
		Where("normalized_at IS NULL AND id > ?", afterID).
		Order("id ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *repo) ListApproved(ctx context.Context, db *gorm.DB, afterID int64, limit int) ([]*domain.Item, error) {
	var items []*domain.Item
	err := db.WithContext(ctx).
		Where("approved = ? AND category_id IS NOT NULL AND id > ?", true, afterID).
		Order("id ASC").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ClearCategories(ctx context.Context, db *gorm.DB, categoryIDs []int64) (int64, error) {
	if len(categoryIDs) == 0 {
		return 0, nil
	}
	res := db.WithContext(ctx).
		Model(&domain.Item{}).
		Where("category_id IN ?", categoryIDs).
		Updates(map[string]any{
			"category_id":    nil,
			"approved":       false,
			"match_score":    nil,
			"match_strategy": "",
		})
	return res.RowsAffected, res.Error
}

func (r *repo) CategoryExists(ctx context.Context, db *gorm.DB, categoryID int64) (bool, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&categorydomain.Category{}).
		Where("id = ?", categoryID).
		Count(&count).Error
	return count > 0, err
}

func (r *repo) IsApprovedIn(ctx context.Context, db *gorm.DB, id, categoryID int64) (bool, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Item{}).
		Where("id = ? AND approved = ? AND category_id = ?", id, true, categoryID).
		Count(&count).Error
	return count > 0, err
}

func (r *repo) MarkIndexed(ctx context.Context, db *gorm.DB, ids []int64, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return db.WithContext(ctx).
		Model(&domain.Item{}).
		Where("id IN ?", ids).
		UpdateColumn("indexed_at", at).Error
}

func (r *repo) ListDelistedIDs(ctx context.Context, db *gorm.DB, afterID int64, limit int) ([]int64, error) {
	var ids []int64
	err := db.WithContext(ctx).
		Model(&domain.Item{}).
		Where("indexed_at IS NOT NULL AND (approved = ? OR category_id IS NULL) AND id > ?", false, afterID).
		Order("id ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *repo) ClearIndexed(ctx context.Context, db *gorm.DB, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	return db.WithContext(ctx).
		Model(&domain.Item{}).
		Where("id IN ?", ids).
		UpdateColumn("indexed_at", nil).Error
}

func (r *repo) CreatePriceHistory(ctx context.Context, db *gorm.DB, record *domain.PriceHistory) error {
	return db.WithContext(ctx).Create(record).Error
}

func (r *repo) ListPriceHistory(ctx context.Context, db *gorm.DB, itemID int64) ([]domain.PriceHistory, error) {
	var records []domain.PriceHistory
	err := db.WithContext(ctx).
		Where("item_id = ?", itemID).
		Order("recorded_at ASC, id ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}
