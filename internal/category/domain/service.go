package domain

import "context"

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Category, error)
	Rename(ctx context.Context, id int64, title string) (*Category, error)
	Reparent(ctx context.Context, id int64, parentID *int64) (*Category, error)
	UpdateSortOrder(ctx context.Context, id int64, sortOrder int) (*Category, error)
	SetSynonyms(ctx context.Context, id int64, synonyms []string) (*Category, error)
	Destroy(ctx context.Context, id int64) (*DestroyResult, error)
	RebuildTree(ctx context.Context) (*RebuildResult, error)

	Get(ctx context.Context, id int64) (*Category, error)
	Children(ctx context.Context, parentID *int64) ([]Category, error)
	Leaves(ctx context.Context) ([]Category, error)
	Lineage(ctx context.Context, id int64) (Lineage, error)
	ParentCandidates(ctx context.Context) ([]ParentCandidate, error)
}

type CreateRequest struct {
	Title     string   `json:"title"`
	ParentID  *int64   `json:"parent_id"`
	SortOrder int      `json:"sort_order"`
	Synonyms  []string `json:"synonyms"`
}

type DestroyResult struct {
	CategoriesRemoved int64 `json:"categories_removed"`
	ReferencesCleared int64 `json:"references_cleared"`
}

type RebuildResult struct {
	Nodes   int `json:"nodes"`
	Updated int `json:"updated"`
}
