// Package attribution resolves which tenant a batch of firewall logs
// belongs to. The log stream carries no tenant identifier, so resolution
// cascades through an ordered list of strategies and fails closed when none
// of them produces a provable match.
package attribution

import (
	"context"
	"errors"
	"log/slog"

	"github.com/rafaesapata/AWS-EVO-sub012/internal/logging"
	"github.com/rafaesapata/AWS-EVO-sub012/internal/metrics"
	"github.com/rafaesapata/AWS-EVO-sub012/internal/models"
	"github.com/rafaesapata/AWS-EVO-sub012/internal/repository"
)

// Attributor runs the strategy cascade. An optional cache short-circuits
// repeated lookups for the same routing metadata within a bounded TTL.
type Attributor struct {
	strategies []Strategy
	cache      Cache
	logger     *logging.Logger
}

// New creates an attributor over the given strategy cascade. cache may be
// nil to disable caching.
func New(strategies []Strategy, cache Cache, logger *logging.Logger) *Attributor {
	if logger == nil {
		logger = logging.Default()
	}
	return &Attributor{
		strategies: strategies,
		cache:      cache,
		logger:     logger,
	}
}

// Resolve returns the single monitoring config the batch belongs to.
// Strategies run in order; the first hit wins and later strategies are not
// attempted. No hit at all yields UnattributedBatchError; an ambiguous
// owner-account match yields AmbiguousTenantError. Both fail the batch.
func (a *Attributor) Resolve(ctx context.Context, q Query) (*models.MonitoringConfig, error) {
	if a.cache != nil {
		if cfg, ok := a.cache.Get(ctx, q); ok {
			metrics.AttributionCacheHits.Inc()
			return cfg, nil
		}
	}

	for _, strategy := range a.strategies {
		cfg, err := strategy.Resolve(ctx, q)
		if err != nil {
			if errors.Is(err, repository.ErrConfigNotFound) {
				continue
			}
			var ambiguous *AmbiguousTenantError
			if errors.As(err, &ambiguous) {
				a.logger.ErrorContext(ctx, "ambiguous tenant attribution, failing closed",
					slog.String("strategy", strategy.Name),
					logging.AccountID(q.OwnerAccountID),
					slog.Any("config_ids", ambiguous.ConfigIDs),
				)
				metrics.AttributionFailures.WithLabelValues("ambiguous").Inc()
				return nil, err
			}
			return nil, err
		}

		a.logger.DebugContext(ctx, "batch attributed",
			slog.String("strategy", strategy.Name),
			logging.OrgID(cfg.OrganizationID),
			logging.LogGroup(q.LogGroup),
		)
		metrics.AttributionResolved.WithLabelValues(strategy.Name).Inc()

		if a.cache != nil {
			a.cache.Set(ctx, q, cfg)
		}
		return cfg, nil
	}

	metrics.AttributionFailures.WithLabelValues("unattributed").Inc()
	return nil, &UnattributedBatchError{LogGroup: q.LogGroup, OwnerAccountID: q.OwnerAccountID}
}
