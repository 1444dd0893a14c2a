package matching

import (
	"context"
	"strings"

	"github.com/meilisearch/meilisearch-go"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/smallbiznis/pricewise/internal/config"
	"github.com/smallbiznis/pricewise/internal/matching/domain"
	"github.com/smallbiznis/pricewise/internal/matching/repository"
	"github.com/smallbiznis/pricewise/internal/matching/searchindex"
	"github.com/smallbiznis/pricewise/internal/matching/service"
	"github.com/smallbiznis/pricewise/pkg/db"
)

var Module = fx.Module("matching.service",
	fx.Provide(provideSearchers),
	fx.Provide(service.New),
)

type searchersOut struct {
	fx.Out

	Peers      domain.PeerSearcher
	Categories domain.CategorySearcher
	Prober     domain.Prober
	PeerIndex  *searchindex.PeerIndex
}

// provideSearchers picks the similarity collaborators for the configured
// backend. Categories always live in the database; pg_trgm is used on
// PostgreSQL and in-process scoring elsewhere.
func provideSearchers(lc fx.Lifecycle, cfg config.Config, conn *gorm.DB, log *zap.Logger) searchersOut {
	var categories interface {
		domain.CategorySearcher
		domain.PeerSearcher
		domain.Prober
	}
	if cfg.Search.Backend != config.SearchBackendMemory && strings.EqualFold(cfg.DBType, db.TypePostgres) {
		categories = repository.NewTrigramSearcher(conn)
	} else {
		categories = repository.NewMemorySearcher(conn)
	}

	out := searchersOut{
		Peers:      categories,
		Categories: categories,
		Prober:     categories,
	}

	if cfg.Search.Backend == config.SearchBackendMeilisearch {
		client := meilisearch.New(cfg.Search.MeiliURL, meilisearch.WithAPIKey(cfg.Search.MeiliKey))
		index := searchindex.NewPeerIndex(client, cfg.Search.MeiliIndex, log)
		out.Peers = index
		out.PeerIndex = index

		// The peer index stays out of the capability check. An outage only
		// skips the peer stage and never disables category matching.
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				if err := index.Probe(ctx); err != nil {
					log.Warn("matching.peer_index.unhealthy", zap.Error(err))
					return nil
				}
				if err := index.EnsureIndex(ctx); err != nil {
					log.Warn("matching.peer_index.ensure_failed", zap.Error(err))
				}
				return nil
			},
		})
	}

	log.Info("matching.searchers",
		zap.String("backend", cfg.Search.Backend),
		zap.String("db_type", cfg.DBType),
	)
	return out
}
