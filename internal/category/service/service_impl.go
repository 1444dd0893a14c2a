package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/smallbiznis/pricewise/internal/category/domain"
	"github.com/smallbiznis/pricewise/internal/clock"
	"github.com/smallbiznis/pricewise/internal/lock"
)

const (
	treeLockKey         = "pricewise:category_tree"
	treeLockTTL         = 30 * time.Second
	defaultSlugAttempts = 50
	fallbackSlug        = "category"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Repo       domain.Repository
	References domain.ReferenceClearer
	Locker     lock.Locker `optional:"true"`
	Clock      clock.Clock `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	repo         domain.Repository
	references   domain.ReferenceClearer
	locker       lock.Locker
	clock        clock.Clock
	slugAttempts int
}

func New(p Params) domain.Service {
	return newService(p)
}

func newService(p Params) *Service {
	c := p.Clock
	if c == nil {
		c = clock.New()
	}
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("category.service"),
		genID:        p.GenID,
		repo:         p.Repo,
		references:   p.References,
		locker:       p.Locker,
		clock:        c,
		slugAttempts: defaultSlugAttempts,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Category, error) {
	title := cleanTitle(req.Title)
	if title == "" {
		return nil, domain.ErrBlankTitle
	}

	var id int64
	err := s.withTreeLock(ctx, func() error {
		return s.db.Transaction(func(tx *gorm.DB) error {
			var parent *domain.Category
			depth := 0
			if req.ParentID != nil {
				found, err := s.repo.FindByID(ctx, tx, *req.ParentID)
				if err != nil {
					return err
				}
				if found == nil {
					return domain.ErrParentNotFound
				}
				parentDepth, err := s.depthOf(ctx, tx, found)
				if err != nil {
					return err
				}
				parent = found
				depth = parentDepth + 1
			}
			if depth > domain.MaxDepth {
				return domain.ErrDepthExceeded
			}
			if parent != nil && parent.Kind == domain.KindProduct {
				return domain.ErrProductParent
			}

			slugValue, err := s.uniqueSlug(ctx, tx, req.ParentID, title, 0)
			if err != nil {
				return err
			}
			path := slugValue
			if parent != nil {
				path = parent.ChildPath(slugValue)
			}

			now := s.clock.Now()
			category := &domain.Category{
				ID:        s.genID.Generate().Int64(),
				ParentID:  req.ParentID,
				Title:     title,
				Slug:      slugValue,
				Kind:      domain.KindForDepth(depth),
				SortOrder: req.SortOrder,
				Path:      path,
				Depth:     depth,
				Synonyms:  datatypes.JSONSlice[string](domain.NormalizeSynonyms(req.Synonyms)),
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := s.repo.Create(ctx, tx, category); err != nil {
				return err
			}
			if _, err := s.renumber(ctx, tx); err != nil {
				return err
			}
			id = category.ID
			return nil
		})
	})
	if err != nil {
		return nil, s.txError(err)
	}

	s.log.Info("category.create", zap.Int64("category_id", id), zap.String("title", title))
	return s.Get(ctx, id)
}

// Rename changes the title and, when the slug changes with it, rewrites the
// path of the node and every descendant in the same transaction.
func (s *Service) Rename(ctx context.Context, id int64, title string) (*domain.Category, error) {
	title = cleanTitle(title)
	if title == "" {
		return nil, domain.ErrBlankTitle
	}

	var rewritten int
	err := s.withTreeLock(ctx, func() error {
		return s.db.Transaction(func(tx *gorm.DB) error {
			node, err := s.mustFind(ctx, tx, id)
			if err != nil {
				return err
			}

			slugValue, err := s.uniqueSlug(ctx, tx, node.ParentID, title, node.ID)
			if err != nil {
				return err
			}
			path, err := s.pathUnder(ctx, tx, node.ParentID, slugValue)
			if err != nil {
				return err
			}

			pathChanged := path != node.Path
			node.Title = title
			node.Slug = slugValue
			node.Path = path
			node.UpdatedAt = s.clock.Now()
			if err := s.repo.Update(ctx, tx, node); err != nil {
				return err
			}
			if pathChanged {
				if rewritten, err = s.rewriteDescendants(ctx, tx, node, 0); err != nil {
					return err
				}
			}
			_, err = s.renumber(ctx, tx)
			return err
		})
	})
	if err != nil {
		return nil, s.txError(err)
	}

	s.log.Info("category.rename",
		zap.Int64("category_id", id),
		zap.String("title", title),
		zap.Int("descendants_rewritten", rewritten),
	)
	return s.Get(ctx, id)
}

// Reparent moves a node, with its subtree, under parentID. A nil parentID
// makes it a root.
func (s *Service) Reparent(ctx context.Context, id int64, parentID *int64) (*domain.Category, error) {
	if parentID != nil && *parentID == id {
		return nil, domain.ErrSelfParent
	}

	err := s.withTreeLock(ctx, func() error {
		return s.db.Transaction(func(tx *gorm.DB) error {
			node, err := s.mustFind(ctx, tx, id)
			if err != nil {
				return err
			}

			depth := 0
			if parentID != nil {
				parent, err := s.repo.FindByID(ctx, tx, *parentID)
				if err != nil {
					return err
				}
				if parent == nil {
					return domain.ErrParentNotFound
				}
				if parent.Kind == domain.KindProduct {
					return domain.ErrProductParent
				}
				parentDepth, err := s.depthExcluding(ctx, tx, parent, node.ID)
				if err != nil {
					return err
				}
				depth = parentDepth + 1
			}

			height, err := s.subtreeHeight(ctx, tx, node.ID)
			if err != nil {
				return err
			}
			if depth+height > domain.MaxDepth {
				return domain.ErrDepthExceeded
			}

			slugValue, err := s.uniqueSlug(ctx, tx, parentID, node.Slug, node.ID)
			if err != nil {
				return err
			}
			path, err := s.pathUnder(ctx, tx, parentID, slugValue)
			if err != nil {
				return err
			}

			node.ParentID = parentID
			node.Slug = slugValue
			node.Path = path
			node.Depth = depth
			node.Kind = domain.KindForDepth(depth)
			node.UpdatedAt = s.clock.Now()
			if err := s.repo.Update(ctx, tx, node); err != nil {
				return err
			}
			if _, err := s.rewriteDescendants(ctx, tx, node, 0); err != nil {
				return err
			}
			_, err = s.renumber(ctx, tx)
			return err
		})
	})
	if err != nil {
		return nil, s.txError(err)
	}

	s.log.Info("category.reparent", zap.Int64("category_id", id), zap.Any("parent_id", parentID))
	return s.Get(ctx, id)
}

func (s *Service) UpdateSortOrder(ctx context.Context, id int64, sortOrder int) (*domain.Category, error) {
	err := s.withTreeLock(ctx, func() error {
		return s.db.Transaction(func(tx *gorm.DB) error {
			node, err := s.mustFind(ctx, tx, id)
			if err != nil {
				return err
			}
			node.SortOrder = sortOrder
			node.UpdatedAt = s.clock.Now()
			if err := s.repo.Update(ctx, tx, node); err != nil {
				return err
			}
			_, err = s.renumber(ctx, tx)
			return err
		})
	})
	if err != nil {
		return nil, s.txError(err)
	}
	return s.Get(ctx, id)
}

func (s *Service) SetSynonyms(ctx context.Context, id int64, synonyms []string) (*domain.Category, error) {
	node, err := s.mustFind(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	node.Synonyms = datatypes.JSONSlice[string](domain.NormalizeSynonyms(synonyms))
	node.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, s.db, node); err != nil {
		return nil, err
	}
	return node, nil
}

// Destroy removes a node and its descendants. References to any of them are
// cleared first, and both phases share one transaction.
func (s *Service) Destroy(ctx context.Context, id int64) (*domain.DestroyResult, error) {
	result := &domain.DestroyResult{}
	err := s.withTreeLock(ctx, func() error {
		return s.db.Transaction(func(tx *gorm.DB) error {
			node, err := s.mustFind(ctx, tx, id)
			if err != nil {
				return err
			}

			ids, err := s.subtreeIDs(ctx, tx, node.ID)
			if err != nil {
				return err
			}

			cleared, err := s.references.ClearCategories(ctx, tx, ids)
			if err != nil {
				return fmt.Errorf("clear references: %w", err)
			}
			removed, err := s.repo.DeleteByIDs(ctx, tx, ids)
			if err != nil {
				return fmt.Errorf("delete categories: %w", err)
			}
			if _, err := s.renumber(ctx, tx); err != nil {
				return err
			}

			result.ReferencesCleared = cleared
			result.CategoriesRemoved = removed
			return nil
		})
	})
	if err != nil {
		s.log.Warn("category.destroy.aborted", zap.Int64("category_id", id), zap.Error(err))
		return nil, s.txError(err)
	}

	s.log.Info("category.destroy",
		zap.Int64("category_id", id),
		zap.Int64("categories_removed", result.CategoriesRemoved),
		zap.Int64("references_cleared", result.ReferencesCleared),
	)
	return result, nil
}

// RebuildTree recomputes every derived column from parent pointers and
// repairs rows that drifted.
func (s *Service) RebuildTree(ctx context.Context) (*domain.RebuildResult, error) {
	result := &domain.RebuildResult{}
	err := s.withTreeLock(ctx, func() error {
		return s.db.Transaction(func(tx *gorm.DB) error {
			res, err := s.renumber(ctx, tx)
			if err != nil {
				return err
			}
			*result = res
			return nil
		})
	})
	if err != nil {
		return nil, s.txError(err)
	}

	s.log.Info("category.rebuild", zap.Int("nodes", result.Nodes), zap.Int("updated", result.Updated))
	return result, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*domain.Category, error) {
	return s.mustFind(ctx, s.db, id)
}

func (s *Service) Children(ctx context.Context, parentID *int64) ([]domain.Category, error) {
	return s.repo.FindChildren(ctx, s.db, parentID)
}

// Leaves returns the Product-kind categories items can be assigned to.
func (s *Service) Leaves(ctx context.Context) ([]domain.Category, error) {
	return s.repo.FindByDepth(ctx, s.db, domain.MaxDepth)
}

func (s *Service) Lineage(ctx context.Context, id int64) (domain.Lineage, error) {
	node, err := s.mustFind(ctx, s.db, id)
	if err != nil {
		return nil, err
	}

	lineage := domain.Lineage{*node}
	current := node
	for hops := 0; current.ParentID != nil; hops++ {
		if hops >= domain.MaxAncestorHops {
			return nil, domain.ErrCycle
		}
		parent, err := s.repo.FindByID(ctx, s.db, *current.ParentID)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			break
		}
		lineage = append(lineage, *parent)
		current = parent
	}
	slices.Reverse(lineage)
	return lineage, nil
}

func (s *Service) ParentCandidates(ctx context.Context) ([]domain.ParentCandidate, error) {
	all, err := s.repo.FindAll(ctx, s.db)
	if err != nil {
		return nil, err
	}
	return domain.ParentCandidates(all), nil
}

func (s *Service) mustFind(ctx context.Context, db *gorm.DB, id int64) (*domain.Category, error) {
	if id == 0 {
		return nil, domain.ErrInvalidID
	}
	node, err := s.repo.FindByID(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return nil, domain.ErrNotFound
	}
	return node, nil
}

// depthOf counts ancestors by walking parent pointers, at most
// MaxAncestorHops times.
func (s *Service) depthOf(ctx context.Context, tx *gorm.DB, node *domain.Category) (int, error) {
	return s.depthExcluding(ctx, tx, node, 0)
}

// depthExcluding is depthOf that also fails with ErrCycle when the walk
// reaches forbiddenID, the node being moved.
func (s *Service) depthExcluding(ctx context.Context, tx *gorm.DB, node *domain.Category, forbiddenID int64) (int, error) {
	depth := 0
	current := node
	for {
		if forbiddenID != 0 && current.ID == forbiddenID {
			return 0, domain.ErrCycle
		}
		if current.ParentID == nil {
			return depth, nil
		}
		depth++
		if depth > domain.MaxAncestorHops {
			return 0, domain.ErrCycle
		}
		parent, err := s.repo.FindByID(ctx, tx, *current.ParentID)
		if err != nil {
			return 0, err
		}
		if parent == nil {
			return depth - 1, nil
		}
		current = parent
	}
}

// subtreeIDs returns id and all of its descendant ids, level by level.
func (s *Service) subtreeIDs(ctx context.Context, tx *gorm.DB, id int64) ([]int64, error) {
	ids := []int64{id}
	level := []int64{id}
	for hops := 0; len(level) > 0; hops++ {
		if hops > domain.MaxAncestorHops {
			return nil, domain.ErrCycle
		}
		next, err := s.repo.FindChildIDs(ctx, tx, level)
		if err != nil {
			return nil, err
		}
		ids = append(ids, next...)
		level = next
	}
	return ids, nil
}

// subtreeHeight is 0 for a leaf.
func (s *Service) subtreeHeight(ctx context.Context, tx *gorm.DB, id int64) (int, error) {
	height := 0
	level := []int64{id}
	for {
		next, err := s.repo.FindChildIDs(ctx, tx, level)
		if err != nil {
			return 0, err
		}
		if len(next) == 0 {
			return height, nil
		}
		height++
		if height > domain.MaxAncestorHops {
			return 0, domain.ErrCycle
		}
		level = next
	}
}

// rewriteDescendants updates depth, kind and path of every descendant of
// node, depth-first, one write per descendant.
func (s *Service) rewriteDescendants(ctx context.Context, tx *gorm.DB, node *domain.Category, hops int) (int, error) {
	if hops > domain.MaxAncestorHops {
		return 0, domain.ErrCycle
	}
	children, err := s.repo.FindChildren(ctx, tx, &node.ID)
	if err != nil {
		return 0, err
	}

	written := 0
	for i := range children {
		child := &children[i]
		child.Depth = node.Depth + 1
		child.Kind = domain.KindForDepth(child.Depth)
		child.Path = node.ChildPath(child.Slug)
		if err := s.repo.UpdateTreeFields(ctx, tx, child); err != nil {
			return written, err
		}
		written++

		n, err := s.rewriteDescendants(ctx, tx, child, hops+1)
		written += n
		if err != nil {
			return written, err
		}
	}
	return written, nil
}

// renumber runs the tree rebuild and persists rows whose derived columns
// changed.
func (s *Service) renumber(ctx context.Context, tx *gorm.DB) (domain.RebuildResult, error) {
	all, err := s.repo.FindAll(ctx, tx)
	if err != nil {
		return domain.RebuildResult{}, err
	}
	rebuilt, err := domain.Rebuild(all)
	if err != nil {
		return domain.RebuildResult{}, err
	}

	before := make(map[int64]domain.Category, len(all))
	for _, c := range all {
		before[c.ID] = c
	}

	result := domain.RebuildResult{Nodes: len(rebuilt)}
	for i := range rebuilt {
		if !domain.TreeFieldsChanged(before[rebuilt[i].ID], rebuilt[i]) {
			continue
		}
		if err := s.repo.UpdateTreeFields(ctx, tx, &rebuilt[i]); err != nil {
			return domain.RebuildResult{}, err
		}
		result.Updated++
	}
	return result, nil
}

func (s *Service) pathUnder(ctx context.Context, tx *gorm.DB, parentID *int64, slugValue string) (string, error) {
	if parentID == nil {
		return slugValue, nil
	}
	parent, err := s.repo.FindByID(ctx, tx, *parentID)
	if err != nil {
		return "", err
	}
	if parent == nil {
		return "", domain.ErrParentNotFound
	}
	return parent.ChildPath(slugValue), nil
}

// uniqueSlug derives a slug from text and appends -2, -3, ... until no
// sibling under parentID uses it.
func (s *Service) uniqueSlug(ctx context.Context, tx *gorm.DB, parentID *int64, text string, excludeID int64) (string, error) {
	base := slug.Make(text)
	if base == "" {
		base = fallbackSlug
	}

	for attempt := 1; attempt <= s.slugAttempts; attempt++ {
		candidate := base
		if attempt > 1 {
			candidate = fmt.Sprintf("%s-%d", base, attempt)
		}
		exists, err := s.repo.SlugExists(ctx, tx, parentID, candidate, excludeID)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", domain.ErrSlugCollision
}

func (s *Service) withTreeLock(ctx context.Context, fn func() error) error {
	if s.locker == nil {
		return fn()
	}

	token, ok, err := s.locker.TryLock(ctx, treeLockKey, treeLockTTL)
	if err != nil {
		return fmt.Errorf("acquire tree lock: %w", err)
	}
	if !ok {
		return domain.ErrTreeBusy
	}
	defer func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), treeLockKey, token); err != nil {
			s.log.Warn("category.lock.release_failed", zap.Error(err))
		}
	}()
	return fn()
}

// txError passes domain errors through and marks everything else as an
// aborted cascade.
func (s *Service) txError(err error) error {
	switch {
	case domain.IsValidation(err),
		errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrTreeBusy):
		return err
	default:
		return fmt.Errorf("%w: %w", domain.ErrTransactionFailed, err)
	}
}

func cleanTitle(title string) string {
	return strings.Join(strings.Fields(title), " ")
}
