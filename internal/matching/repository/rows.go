package repository

// peerRow is the slice of an items row the peer searchers read.
type peerRow struct {
	ID              int64
	CategoryID      int64
	Title           string
	NormalizedTitle string
	StoreID         *int64
	Breadcrumb      string
}

const (
	itemsTable      = "items"
	categoriesTable = "categories"
	defaultLimit    = 1
)

func limitOrDefault(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	return limit
}
