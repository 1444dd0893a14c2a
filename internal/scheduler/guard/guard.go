// Package guard holds the preconditions batch jobs check before acting on a
// row that may have changed since it was listed.
package guard

import (
	"errors"
	"strings"

	itemdomain "github.com/smallbiznis/pricewise/internal/item/domain"
)

var (
	ErrItemNotApproved   = errors.New("item_not_approved")
	ErrItemUncategorized = errors.New("item_uncategorized")
	ErrItemBlankTitle    = errors.New("item_blank_title")
	ErrItemNotNormalized = errors.New("item_not_normalized")
)

// EnsureItemCanBeIndexed reports why item must not be pushed to the peer
// index. Only approved, categorized and normalized items are peers.
func EnsureItemCanBeIndexed(item *itemdomain.Item) error {
	if item == nil || !item.Approved {
		return ErrItemNotApproved
	}
	if item.CategoryID == nil {
		return ErrItemUncategorized
	}
	if strings.TrimSpace(item.Title) == "" {
		return ErrItemBlankTitle
	}
	if strings.TrimSpace(item.NormalizedTitle) == "" {
		return ErrItemNotNormalized
	}
	return nil
}
