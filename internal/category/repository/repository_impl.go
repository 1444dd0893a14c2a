package repository

import (
	"context"

	"github.com/smallbiznis/pricewise/internal/category/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, category *domain.Category) error {
	return db.WithContext(ctx).Create(category).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, category *domain.Category) error {
	if category == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).
		Model(&domain.Category{}).
		Where("id = ?", category.ID).
		Updates(map[string]any{
			"parent_id":     category.ParentID,
			"title":         category.Title,
			"slug":          category.Slug,
			"category_kind": category.Kind,
			"sort_order":    category.SortOrder,
			"path":          category.Path,
			"depth":         category.Depth,
			"synonyms":      category.Synonyms,
			"updated_at":    category.UpdatedAt,
		}).Error
}

// UpdateTreeFields writes only the derived columns.
func (r *repo) UpdateTreeFields(ctx context.Context, db *gorm.DB, category *domain.Category) error {
	if category == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).
		Model(&domain.Category{}).
		Where("id = ?", category.ID).
		Updates(map[string]any{
			"category_kind": category.Kind,
			"path":          category.Path,
			"depth":         category.Depth,
			"lft":           category.Lft,
			"rgt":           category.Rgt,
		}).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.Category, error) {
	var categories []domain.Category
	err := db.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&categories).Error
	if err != nil {
		return nil, err
	}
	if len(categories) == 0 {
		return nil, nil
	}
	return &categories[0], nil
}

func (r *repo) FindChildren(ctx context.Context, db *gorm.DB, parentID *int64) ([]domain.Category, error) {
	var categories []domain.Category
	stmt := db.WithContext(ctx).Model(&domain.Category{})
	if parentID == nil {
		stmt = stmt.Where("parent_id IS NULL")
	} else {
		stmt = stmt.Where("parent_id = ?", *parentID)
	}
	if err := stmt.Order("sort_order ASC, title ASC, id ASC").Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *repo) FindChildIDs(ctx context.Context, db *gorm.DB, parentIDs []int64) ([]int64, error) {
	if len(parentIDs) == 0 {
		return nil, nil
	}
	var ids []int64
	err := db.WithContext(ctx).
		Model(&domain.Category{}).
		Where("parent_id IN ?", parentIDs).
		Order("id ASC").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// FindAll returns every category in nested-set order.
func (r *repo) FindAll(ctx context.Context, db *gorm.DB) ([]domain.Category, error) {
	var categories []domain.Category
	if err := db.WithContext(ctx).Order("lft ASC, id ASC").Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *repo) FindByDepth(ctx context.Context, db *gorm.DB, depth int) ([]domain.Category, error) {
	var categories []domain.Category
	err := db.WithContext(ctx).
		Where("depth = ?", depth).
		Order("lft ASC, id ASC").
		Find(&categories).Error
	if err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *repo) SlugExists(ctx context.Context, db *gorm.DB, parentID *int64, slug string, excludeID int64) (bool, error) {
	var count int64
	stmt := db.WithContext(ctx).
		Model(&domain.Category{}).
		Where("slug = ?", slug)
	if parentID == nil {
		stmt = stmt.Where("parent_id IS NULL")
	} else {
		stmt = stmt.Where("parent_id = ?", *parentID)
	}
	if excludeID != 0 {
		stmt = stmt.Where("id <> ?", excludeID)
	}
	if err := stmt.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) DeleteByIDs(ctx context.Context, db *gorm.DB, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := db.WithContext(ctx).Where("id IN ?", ids).Delete(&domain.Category{})
	return res.RowsAffected, res.Error
}
