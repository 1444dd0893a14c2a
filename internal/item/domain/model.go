package domain

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/smallbiznis/pricewise/internal/unit"
)

// Item is a scraped or submitted store product.
type Item struct {
	ID              int64            `json:"id,string" gorm:"primaryKey;autoIncrement:false"`
	StoreID         *int64           `json:"store_id,omitempty,string" gorm:"index"`
	Title           string           `json:"title" gorm:"type:text;not null"`
	NormalizedTitle string           `json:"normalized_title" gorm:"type:text;not null;default:''"`
	Breadcrumb      string           `json:"breadcrumb" gorm:"type:text;not null;default:''"`
	Price           decimal.Decimal  `json:"price" gorm:"type:numeric(12,2);not null"`
	Size            *decimal.Decimal `json:"size,omitempty" gorm:"type:numeric(12,4)"`
	Unit            unit.Code        `json:"unit,omitempty" gorm:"type:text;not null;default:''"`
	CategoryID      *int64           `json:"category_id,omitempty,string" gorm:"index"`
	Approved        bool             `json:"approved" gorm:"not null;default:false"`
	MatchScore      *float64         `json:"match_score,omitempty"`
	MatchStrategy   string           `json:"match_strategy,omitempty" gorm:"type:text;not null;default:''"`
	PricePerUnit    *decimal.Decimal `json:"price_per_unit,omitempty" gorm:"type:numeric(14,4)"`
	NormalizedUnit  string           `json:"normalized_unit,omitempty" gorm:"type:text;not null;default:''"`
	NormalizedAt    *time.Time       `json:"normalized_at,omitempty" gorm:"index"`
	IndexedAt       *time.Time       `json:"indexed_at,omitempty" gorm:"index"`
	CreatedAt       time.Time        `json:"created_at" gorm:"not null"`
	UpdatedAt       time.Time        `json:"updated_at" gorm:"not null"`
}

func (Item) TableName() string { return "items" }

// PriceHistory is appended each time an item's price-per-unit is computed.
type PriceHistory struct {
	ID             int64           `json:"id,string" gorm:"primaryKey;autoIncrement:false"`
	ItemID         int64           `json:"item_id,string" gorm:"not null;index"`
	Price          decimal.Decimal `json:"price" gorm:"type:numeric(12,2);not null"`
	PricePerUnit   decimal.Decimal `json:"price_per_unit" gorm:"type:numeric(14,4);not null"`
	DisplayPrice   decimal.Decimal `json:"display_price" gorm:"type:numeric(12,2);not null"`
	NormalizedUnit string          `json:"normalized_unit" gorm:"type:text;not null"`
	RecordedAt     time.Time       `json:"recorded_at" gorm:"not null"`
}

func (PriceHistory) TableName() string { return "price_history" }
