package domain

import "math"

// StrategyName identifies the stage of the pipeline that produced a match.
type StrategyName string

const (
	// StrategyPeer copies the category of an approved item with the same
	// store and breadcrumb.
	StrategyPeer StrategyName = "peer_item"
	// StrategyPeerRelaxed is the unconstrained peer retry.
	StrategyPeerRelaxed StrategyName = "peer_item_relaxed"
	// StrategyBreadcrumb searches categories with the normalized breadcrumb.
	StrategyBreadcrumb StrategyName = "category_breadcrumb"
	// StrategyTitle searches categories with the normalized title.
	StrategyTitle StrategyName = "category_title"
)

// Subject is the item being categorized.
type Subject struct {
	// ItemID excludes the item itself from peer searches. Zero for items
	// not yet stored.
	ItemID     int64
	Title      string
	Breadcrumb string
	StoreID    *int64
}

// Match is a resolved leaf category and the confidence behind it.
type Match struct {
	CategoryID int64        `json:"category_id,string"`
	Score      float64      `json:"score"`
	Strategy   StrategyName `json:"strategy"`
	PeerItemID *int64       `json:"peer_item_id,omitempty,string"`
}

// Percent is Score as a whole percentage, e.g. 63 for a 63% match.
func (m *Match) Percent() int {
	if m == nil {
		return 0
	}
	return int(math.Round(m.Score * 100))
}

// PeerQuery searches approved items by normalized title. StoreID and
// Breadcrumb, when set, must match exactly.
type PeerQuery struct {
	Text          string
	StoreID       *int64
	Breadcrumb    string
	ExcludeItemID int64
	Threshold     float64
	Limit         int
}

// Constrained reports whether the query narrows peers to a store and
// breadcrumb.
func (q PeerQuery) Constrained() bool {
	return q.StoreID != nil || q.Breadcrumb != ""
}

type PeerCandidate struct {
	ItemID     int64   `json:"item_id,string"`
	CategoryID int64   `json:"category_id,string"`
	Title      string  `json:"title"`
	Score      float64 `json:"score"`
}

// CategoryQuery searches leaf categories. A candidate's score is the best
// similarity across its title, path, last path segment and synonyms.
type CategoryQuery struct {
	Text      string
	Threshold float64
	Limit     int
}

type CategoryCandidate struct {
	CategoryID int64   `json:"category_id,string"`
	Title      string  `json:"title"`
	Path       string  `json:"path"`
	Score      float64 `json:"score"`
}
