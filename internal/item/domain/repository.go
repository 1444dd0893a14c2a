package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, item *Item) error
	Update(ctx context.Context, db *gorm.DB, item *Item) error
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*Item, error)
	// ListPendingIDs returns ids of items never normalized, ascending, after
	// afterID.
	ListPendingIDs(ctx context.Context, db *gorm.DB, afterID int64, limit int) ([]int64, error)
	// ListApproved returns approved, categorized items with id > afterID.
	ListApproved(ctx context.Context, db *gorm.DB, afterID int64, limit int) ([]*Item, error)
	// ClearCategories uncategorizes and unapproves every item referencing
	// one of categoryIDs.
	ClearCategories(ctx context.Context, db *gorm.DB, categoryIDs []int64) (int64, error)
	// CategoryExists reports whether the category row is still present.
	CategoryExists(ctx context.Context, db *gorm.DB, categoryID int64) (bool, error)
	// IsApprovedIn reports whether item id is approved under categoryID.
	IsApprovedIn(ctx context.Context, db *gorm.DB, id, categoryID int64) (bool, error)
	MarkIndexed(ctx context.Context, db *gorm.DB, ids []int64, at time.Time) error
	// ListDelistedIDs returns ids of indexed items that are no longer
	// approved or lost their category, ascending, after afterID.
	ListDelistedIDs(ctx context.Context, db *gorm.DB, afterID int64, limit int) ([]int64, error)
	ClearIndexed(ctx context.Context, db *gorm.DB, ids []int64) error
	CreatePriceHistory(ctx context.Context, db *gorm.DB, record *PriceHistory) error
	ListPriceHistory(ctx context.Context, db *gorm.DB, itemID int64) ([]PriceHistory, error)
}
