package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, category *Category) error
	Update(ctx context.Context, db *gorm.DB, category *Category) error
	UpdateTreeFields(ctx context.Context, db *gorm.DB, category *Category) error
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*Category, error)
	FindChildren(ctx context.Context, db *gorm.DB, parentID *int64) ([]Category, error)
	FindChildIDs(ctx context.Context, db *gorm.DB, parentIDs []int64) ([]int64, error)
	FindAll(ctx context.Context, db *gorm.DB) ([]Category, error)
	FindByDepth(ctx context.Context, db *gorm.DB, depth int) ([]Category, error)
	SlugExists(ctx context.Context, db *gorm.DB, parentID *int64, slug string, excludeID int64) (bool, error)
	DeleteByIDs(ctx context.Context, db *gorm.DB, ids []int64) (int64, error)
}

// ReferenceClearer detaches external references to categories before they
// are deleted. Every referencing row gets no category and loses its
// approved flag.
type ReferenceClearer interface {
	ClearCategories(ctx context.Context, db *gorm.DB, categoryIDs []int64) (int64, error)
}
