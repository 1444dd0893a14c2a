package domain

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	matchingdomain "github.com/smallbiznis/pricewise/internal/matching/domain"
	"github.com/smallbiznis/pricewise/pkg/db/pagination"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Item, error)
	Get(ctx context.Context, id int64) (*Item, error)
	// Approve marks a categorized item as trusted for peer matching.
	// CategoryID, when set, replaces the current category first.
	Approve(ctx context.Context, req ApproveRequest) (*Item, error)
	// Normalize fills size and unit from the title when missing, resolves a
	// category when absent and computes the price per unit.
	Normalize(ctx context.Context, id int64) (*NormalizeResult, error)
	PendingIDs(ctx context.Context, afterID int64, limit int) ([]int64, error)
	ListApproved(ctx context.Context, page pagination.Pagination) ([]*Item, pagination.PageInfo, error)
	PriceHistory(ctx context.Context, id int64) ([]PriceHistory, error)
	// MarkIndexed records that ids were pushed to the peer index.
	MarkIndexed(ctx context.Context, ids []int64) error
	// DelistedIDs returns indexed items that must leave the peer index.
	DelistedIDs(ctx context.Context, afterID int64, limit int) ([]int64, error)
	// MarkDelisted records that ids were removed from the peer index.
	MarkDelisted(ctx context.Context, ids []int64) error
}

type CreateRequest struct {
	StoreID    *int64           `json:"store_id,string"`
	Title      string           `json:"title"`
	Breadcrumb string           `json:"breadcrumb"`
	Price      decimal.Decimal  `json:"price"`
	Size       *decimal.Decimal `json:"size"`
	Unit       string           `json:"unit"`
}

type ApproveRequest struct {
	ID         int64  `json:"id,string"`
	CategoryID *int64 `json:"category_id,string"`
}

// NormalizeResult reports what one normalization pass changed.
type NormalizeResult struct {
	Item       *Item
	SizeParsed bool
	UnitParsed bool
	Match      *matchingdomain.Match
	Calculated bool
	HistoryID  int64
	// PriceError is the reason the price per unit was not computed.
	PriceError error
}

var (
	ErrNotFound      = errors.New("item_not_found")
	ErrInvalidID     = errors.New("invalid_id")
	ErrInvalidTitle  = errors.New("invalid_title")
	ErrInvalidPrice  = errors.New("invalid_price")
	ErrInvalidUnit   = errors.New("invalid_unit")
	ErrUncategorized = errors.New("item_uncategorized")
	// ErrStaleMatch means the resolved category or peer changed before the
	// item was saved. The item stays pending.
	ErrStaleMatch    = errors.New("stale_category_match")
)
