// Package pipeline orchestrates the fetch-join-derive refresh cycle and
// holds the resulting snapshot for the serving layer.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/policymetrics/talent-flow-etl/internal/domain"
	"github.com/policymetrics/talent-flow-etl/internal/observability"
)

// SnapshotPublisher pushes a freshly computed snapshot to downstream
// consumers. Implementations must not mutate the snapshot.
type SnapshotPublisher interface {
	PublishSnapshot(ctx context.Context, snap *domain.Snapshot) error
}

// TransitionNotifier is told about consecutive snapshots so it can react to
// per-state segment changes. prev is nil on the first refresh.
type TransitionNotifier interface {
	Notify(ctx context.Context, prev, cur *domain.Snapshot)
}

// Refresher runs the periodic refresh loop: fetch the four ACS tables,
// derive the snapshot, store it, and fan out to the optional publisher and
// notifier. Any fetch failure aborts the whole cycle; the previous snapshot
// keeps serving and the next tick tries again. There is no internal retry.
type Refresher struct {
	fetcher   domain.TableFetcher
	store     *Store
	publisher SnapshotPublisher // nil when publishing is disabled
	notifier  TransitionNotifier
	logger    *slog.Logger
	metrics   *observability.Metrics
	clock     clockwork.Clock
	interval  time.Duration
	year      int
	ready     atomic.Bool
}

// New creates a Refresher. publisher and notifier may be nil.
func New(fetcher domain.TableFetcher, store *Store, publisher SnapshotPublisher, notifier TransitionNotifier,
	logger *slog.Logger, metrics *observability.Metrics, clock clockwork.Clock, interval time.Duration, year int) *Refresher {
	return &Refresher{
		fetcher:   fetcher,
		store:     store,
		publisher: publisher,
		notifier:  notifier,
		logger:    logger,
		metrics:   metrics,
		clock:     clock,
		interval:  interval,
		year:      year,
	}
}

// CheckReadiness returns nil once at least one refresh has succeeded.
func (r *Refresher) CheckReadiness(_ context.Context) error {
	if !r.ready.Load() {
		return errors.New("no snapshot has been fetched yet")
	}
	return nil
}

// Run refreshes immediately, then on every interval tick until the context
// is cancelled.
func (r *Refresher) Run(ctx context.Context) error {
	r.logger.Info("refresher started", "interval", r.interval, "acs_year", r.year)
	r.metrics.RefresherRunning.Set(1)
	defer r.metrics.RefresherRunning.Set(0)

	if err := r.RefreshOnce(ctx); err != nil {
		r.logger.Error("initial refresh failed", "error", err)
	}

	ticker := r.clock.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("refresher stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
			if err := r.RefreshOnce(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				r.logger.Error("refresh failed", "error", err)
			}
		}
	}
}

// RefreshOnce performs one complete fetch-join-derive cycle. The four
// fetches run sequentially; the derivation itself is a pure function of the
// fetched tables.
func (r *Refresher) RefreshOnce(ctx context.Context) error {
	start := r.clock.Now()

	tables, err := r.fetchTables(ctx)
	if err != nil {
		r.metrics.RefreshTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("refresh aborted: %w", err)
	}

	snap := domain.Compute(tables)
	snap.FetchedAt = r.clock.Now().UTC()
	snap.Year = r.year

	prev, _ := r.store.Current()
	r.store.Replace(&snap)
	r.ready.Store(true)

	r.metrics.RefreshTotal.WithLabelValues("success").Inc()
	r.metrics.RefreshDuration.Observe(r.clock.Since(start).Seconds())
	r.metrics.StatesJoined.Set(float64(len(snap.Records)))
	r.metrics.StatesDropped.Set(float64(len(snap.ExcludedFIPS)))
	r.metrics.SnapshotTimestamp.Set(float64(snap.FetchedAt.Unix()))

	r.logger.Info("snapshot refreshed",
		"states", len(snap.Records),
		"excluded", len(snap.ExcludedFIPS),
		"fetched_at", snap.FetchedAt,
	)
	if len(snap.ExcludedFIPS) > 0 {
		r.logger.Warn("states excluded by inner join", "fips", snap.ExcludedFIPS)
	}

	if r.publisher != nil {
		if err := r.publisher.PublishSnapshot(ctx, &snap); err != nil {
			// Publishing is best-effort; the snapshot is already serving.
			r.logger.Error("snapshot publish failed", "error", err)
			r.metrics.PublishErrors.Inc()
		} else {
			r.metrics.RecordsPublished.Add(float64(len(snap.Records)))
		}
	}

	if r.notifier != nil {
		r.notifier.Notify(ctx, prev, &snap)
	}

	return nil
}

// fetchTables pulls all four ACS tables. The first failure aborts: a partial
// set of tables would silently shrink the inner join and shift the medians.
func (r *Refresher) fetchTables(ctx context.Context) (domain.RawTables, error) {
	inflow, err := r.fetcher.FetchMobilityInflow(ctx)
	if err != nil {
		return domain.RawTables{}, err
	}
	outflow, err := r.fetcher.FetchMobilityOutflow(ctx)
	if err != nil {
		return domain.RawTables{}, err
	}
	education, err := r.fetcher.FetchEducationStock(ctx)
	if err != nil {
		return domain.RawTables{}, err
	}
	earnings, err := r.fetcher.FetchEarnings(ctx)
	if err != nil {
		return domain.RawTables{}, err
	}

	return domain.RawTables{
		Inflow:    inflow,
		Outflow:   outflow,
		Education: education,
		Earnings:  earnings,
	}, nil
}
