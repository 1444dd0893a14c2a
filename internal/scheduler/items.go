package scheduler

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	itemdomain "github.com/smallbiznis/pricewise/internal/item/domain"
	"github.com/smallbiznis/pricewise/internal/matching/searchindex"
	obscontext "github.com/smallbiznis/pricewise/internal/observability/context"
	obsmetrics "github.com/smallbiznis/pricewise/internal/observability/metrics"
	"github.com/smallbiznis/pricewise/internal/scheduler/guard"
	"github.com/smallbiznis/pricewise/pkg/db/pagination"
)

// NormalizeItemsJob normalizes every pending item, Workers at a time. An
// item that fails is logged and counted, then left pending for the next
// run; it never stops the batch.
func (s *Scheduler) NormalizeItemsJob(ctx context.Context) error {
	ctx, run, owner := s.ensureJobRun(ctx, JobNormalizeItems, s.cfg.BatchSize)
	if owner {
		s.logJobStart(ctx, run)
		defer s.logJobFinish(ctx, run)
	}

	var afterID int64
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		ids, err := s.itemSvc.PendingIDs(ctx, afterID, s.cfg.BatchSize)
		if err != nil {
			s.logSchedulerError(ctx, run, "scheduler.items.fetch.failed", err)
			return err
		}
		if len(ids) == 0 {
			return nil
		}

		s.normalizeBatch(ctx, run, ids)
		s.metrics.AddBatchProcessed(JobNormalizeItems, obsmetrics.ResourceItems, len(ids))
		afterID = ids[len(ids)-1]

		if len(ids) < s.cfg.BatchSize {
			return ctx.Err()
		}
	}
}

func (s *Scheduler) normalizeBatch(ctx context.Context, run *jobRun, ids []int64) {
	var g errgroup.Group
	g.SetLimit(s.cfg.Workers)

	for _, id := range ids {
		g.Go(func() error {
			s.normalizeItem(ctx, run, id)
			return nil
		})
	}
	_ = g.Wait()
}

func (s *Scheduler) normalizeItem(ctx context.Context, run *jobRun, id int64) {
	if ctx.Err() != nil {
		return
	}
	itemCtx := obscontext.WithItemID(ctx, id)

	result, err := s.itemSvc.Normalize(itemCtx, id)
	if err != nil {
		s.logItemFailure(ctx, run, id, err)
		s.metrics.IncItemResult(JobNormalizeItems, obsmetrics.ItemResultFailed, err)
		return
	}
	run.AddProcessed(1)

	if result.PriceError != nil {
		s.logger(itemCtx).Debug("scheduler.item.price_skipped",
			zap.String("reason", result.PriceError.Error()),
		)
	}
	if result.Match != nil {
		s.metrics.IncItemResult(JobNormalizeItems, obsmetrics.ItemResultCategorized, nil)
		return
	}
	s.metrics.IncItemResult(JobNormalizeItems, obsmetrics.ItemResultNormalized, nil)
}

// IndexApprovedJob pushes every approved item into the peer index, one page
// per request, then deletes indexed items that were unapproved or lost their
// category since the last run.
func (s *Scheduler) IndexApprovedJob(ctx context.Context) error {
	if s.indexer == nil {
		return nil
	}
	ctx, run, owner := s.ensureJobRun(ctx, JobIndexApproved, s.cfg.BatchSize)
	if owner {
		s.logJobStart(ctx, run)
		defer s.logJobFinish(ctx, run)
	}

	page := pagination.Pagination{PageSize: s.cfg.BatchSize}
	var jobErr error
	for {
		if err := ctx.Err(); err != nil {
			return errors.Join(jobErr, err)
		}

		items, info, err := s.itemSvc.ListApproved(ctx, page)
		if err != nil {
			s.logSchedulerError(ctx, run, "scheduler.items.fetch.failed", err)
			return errors.Join(jobErr, err)
		}

		docs := make([]searchindex.PeerDocument, 0, len(items))
		for _, item := range items {
			if err := guard.EnsureItemCanBeIndexed(item); err != nil {
				s.metrics.IncItemResult(JobIndexApproved, obsmetrics.ItemResultUnchanged, nil)
				s.logger(obscontext.WithItemID(ctx, item.ID)).Debug("scheduler.item.index_skipped",
					zap.String("reason", err.Error()),
				)
				continue
			}
			docs = append(docs, peerDocument(item))
		}

		if len(docs) > 0 {
			jobErr = errors.Join(jobErr, s.upsertDocuments(ctx, run, docs))
		}

		if !info.HasMore {
			break
		}
		page.PageToken = info.NextPageToken
	}
	return errors.Join(jobErr, s.delistItems(ctx, run))
}

func (s *Scheduler) upsertDocuments(ctx context.Context, run *jobRun, docs []searchindex.PeerDocument) error {
	if err := s.indexer.Upsert(ctx, docs); err != nil {
		s.logSchedulerError(ctx, run, "scheduler.index.upsert.failed", err,
			zap.Int("documents", len(docs)),
		)
		return err
	}
	run.AddProcessed(len(docs))
	s.metrics.AddBatchProcessed(JobIndexApproved, obsmetrics.ResourceIndexedItems, len(docs))

	ids := make([]int64, len(docs))
	for i, doc := range docs {
		ids[i] = doc.ID
	}
	if err := s.itemSvc.MarkIndexed(ctx, ids); err != nil {
		s.logSchedulerError(ctx, run, "scheduler.index.mark_failed", err)
		return err
	}
	return nil
}

// delistItems stops at the first failure; the remaining items are picked up
// by the next run.
func (s *Scheduler) delistItems(ctx context.Context, run *jobRun) error {
	var afterID int64
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		ids, err := s.itemSvc.DelistedIDs(ctx, afterID, s.cfg.BatchSize)
		if err != nil {
			s.logSchedulerError(ctx, run, "scheduler.items.fetch.failed", err)
			return err
		}
		if len(ids) == 0 {
			return nil
		}

		if err := s.indexer.Delete(ctx, ids); err != nil {
			s.logSchedulerError(ctx, run, "scheduler.index.delete.failed", err,
				zap.Int("documents", len(ids)),
			)
			return err
		}
		if err := s.itemSvc.MarkDelisted(ctx, ids); err != nil {
			s.logSchedulerError(ctx, run, "scheduler.index.mark_failed", err)
			return err
		}
		s.metrics.AddBatchProcessed(JobIndexApproved, obsmetrics.ResourceDelistedItems, len(ids))
		afterID = ids[len(ids)-1]

		if len(ids) < s.cfg.BatchSize {
			return nil
		}
	}
}

func peerDocument(item *itemdomain.Item) searchindex.PeerDocument {
	return searchindex.PeerDocument{
		ID:              item.ID,
		CategoryID:      *item.CategoryID,
		Title:           item.Title,
		NormalizedTitle: item.NormalizedTitle,
		StoreID:         item.StoreID,
		Breadcrumb:      item.Breadcrumb,
	}
}
