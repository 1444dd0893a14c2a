package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Kind is derived from depth and never set directly.
type Kind string

const (
	KindRoot        Kind = "root"
	KindCategory    Kind = "category"
	KindSubcategory Kind = "subcategory"
	KindProduct     Kind = "product"
)

const (
	// MaxDepth is the deepest level a category may sit at. Nodes at this
	// depth are Product kind and cannot have children.
	MaxDepth = 3
	// MaxAncestorHops bounds every parent walk so corrupted data with a
	// cycle cannot loop forever.
	MaxAncestorHops = 10
	// PathSeparator joins slugs in a materialized path.
	PathSeparator = "/"
)

// KindForDepth maps depth 0..3 to Root, Category, Subcategory, Product.
// Anything deeper is also Product.
func KindForDepth(depth int) Kind {
	switch {
	case depth <= 0:
		return KindRoot
	case depth == 1:
		return KindCategory
	case depth == 2:
		return KindSubcategory
	default:
		return KindProduct
	}
}

type Category struct {
	ID        int64                       `json:"id" gorm:"primaryKey;autoIncrement:false"`
	ParentID  *int64                      `json:"parent_id,omitempty" gorm:"column:parent_id;index"`
	Title     string                      `json:"title" gorm:"type:text;not null"`
	Slug      string                      `json:"slug" gorm:"type:text;not null"`
	Kind      Kind                        `json:"kind" gorm:"column:category_kind;type:varchar(16);not null"`
	SortOrder int                         `json:"sort_order" gorm:"not null;default:0"`
	Path      string                      `json:"path" gorm:"type:text;not null;uniqueIndex:ux_categories_path"`
	Depth     int                         `json:"depth" gorm:"not null;default:0"`
	Lft       int                         `json:"lft" gorm:"column:lft;not null;default:0;index:ix_categories_bounds,priority:1"`
	Rgt       int                         `json:"rgt" gorm:"column:rgt;not null;default:0;index:ix_categories_bounds,priority:2"`
	Synonyms  datatypes.JSONSlice[string] `json:"synonyms"`
	CreatedAt time.Time                   `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time                   `json:"updated_at" gorm:"not null"`
}

func (Category) TableName() string { return "categories" }

func (c *Category) IsRoot() bool { return c.ParentID == nil }

// CanHaveChildren is false for Product nodes.
func (c *Category) CanHaveChildren() bool {
	return c.Kind != KindProduct && c.Depth < MaxDepth
}

// ChildPath is the materialized path a child with slug would get.
func (c *Category) ChildPath(slug string) string {
	return c.Path + PathSeparator + slug
}

// LastSegment returns the final slug of the path.
func (c *Category) LastSegment() string {
	for i := len(c.Path) - 1; i >= 0; i-- {
		if c.Path[i] == PathSeparator[0] {
			return c.Path[i+1:]
		}
	}
	return c.Path
}
