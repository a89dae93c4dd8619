// Package alerts watches consecutive snapshots for per-state policy segment
// transitions and delivers webhook notifications for them.
package alerts

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/policymetrics/talent-flow-etl/internal/config"
	"github.com/policymetrics/talent-flow-etl/internal/domain"
	"github.com/policymetrics/talent-flow-etl/internal/observability"
)

// Alert describes one state's segment transition between two snapshots.
type Alert struct {
	FIPS      string         `json:"fips"`
	StateName string         `json:"state_name"`
	From      domain.Segment `json:"from"`
	To        domain.Segment `json:"to"`
	Severity  string         `json:"severity"` // critical | info
	FetchedAt time.Time      `json:"fetched_at"`
}

// Engine implements pipeline.TransitionNotifier. It fires at most one alert
// per state-and-destination-segment within the configured cooldown, so a
// state oscillating around a median does not spam the webhooks.
type Engine struct {
	cfg        *config.AlertsConfig
	httpClient *http.Client
	clock      clockwork.Clock
	logger     *slog.Logger
	metrics    *observability.Metrics

	mu        sync.Mutex
	lastFired map[string]time.Time
}

// NewEngine creates an alert engine from the loaded alerts configuration.
func NewEngine(cfg *config.AlertsConfig, clock clockwork.Clock, metrics *observability.Metrics, logger *slog.Logger) *Engine {
	return &Engine{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		clock:      clock,
		logger:     logger,
		metrics:    metrics,
		lastFired:  make(map[string]time.Time),
	}
}

// Notify compares the two snapshots and delivers an alert for every state
// whose segment changed. The first snapshot has nothing to compare against.
// Delivery failures are logged and counted, never propagated.
func (e *Engine) Notify(ctx context.Context, prev, cur *domain.Snapshot) {
	if prev == nil || cur == nil {
		return
	}

	for _, rec := range cur.Records {
		prevRec, ok := prev.Record(rec.FIPS)
		if !ok || prevRec.Segment == rec.Segment {
			continue
		}

		a := Alert{
			FIPS:      rec.FIPS,
			StateName: rec.StateName,
			From:      prevRec.Segment,
			To:        rec.Segment,
			Severity:  severityFor(rec.Segment),
			FetchedAt: cur.FetchedAt,
		}
		if !e.shouldFire(a) {
			continue
		}

		e.metrics.AlertsFired.WithLabelValues(a.Severity).Inc()
		e.logger.Info("segment transition alert",
			"fips", a.FIPS, "state", a.StateName,
			"from", a.From, "to", a.To, "severity", a.Severity,
		)
		e.deliver(ctx, a)
	}
}

// severityFor grades the destination segment: sliding into Brain Drain Risk
// is the signal this service exists for, everything else is informational.
func severityFor(to domain.Segment) string {
	if to == domain.SegmentBrainDrainRisk {
		return "critical"
	}
	return "info"
}

// shouldFire checks and updates the cooldown bookkeeping for one alert.
func (e *Engine) shouldFire(a Alert) bool {
	key := fmt.Sprintf("%s|%s", a.FIPS, a.To)
	now := e.clock.Now()

	e.mu.Lock()
	defer e.mu.Unlock()

	if last, ok := e.lastFired[key]; ok && now.Sub(last) < e.cfg.Cooldown {
		return false
	}
	e.lastFired[key] = now
	return true
}
