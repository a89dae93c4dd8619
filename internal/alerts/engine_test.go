package alerts

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/policymetrics/talent-flow-etl/internal/config"
	"github.com/policymetrics/talent-flow-etl/internal/domain"
	"github.com/policymetrics/talent-flow-etl/internal/observability"
)

type webhookRecorder struct {
	mu     sync.Mutex
	bodies [][]byte
	status int
}

func (w *webhookRecorder) handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.mu.Lock()
		w.bodies = append(w.bodies, body)
		w.mu.Unlock()
		if w.status != 0 {
			rw.WriteHeader(w.status)
		}
	}
}

func (w *webhookRecorder) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.bodies)
}

func (w *webhookRecorder) last() []byte {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.bodies) == 0 {
		return nil
	}
	return w.bodies[len(w.bodies)-1]
}

func snapshotWith(fetchedAt time.Time, segments map[string]domain.Segment) *domain.Snapshot {
	snap := &domain.Snapshot{FetchedAt: fetchedAt}
	for fips, seg := range segments {
		snap.Records = append(snap.Records, domain.StateRecord{
			FIPS: fips, StateName: "State " + fips, Segment: seg,
		})
	}
	return snap
}

func newTestEngine(t *testing.T, whType, whURL string, cooldown time.Duration, clock clockwork.Clock) (*Engine, *observability.Metrics) {
	t.Helper()
	t.Setenv("TEST_WEBHOOK_URL", whURL)

	cfg := &config.AlertsConfig{
		Cooldown: cooldown,
		Webhooks: []config.WebhookConfig{{Type: whType, URLEnv: "TEST_WEBHOOK_URL"}},
	}
	metrics := observability.NewMetricsForTesting()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewEngine(cfg, clock, metrics, logger), metrics
}

func TestNotify_FiresOnSegmentTransition(t *testing.T) {
	rec := &webhookRecorder{}
	srv := httptest.NewServer(rec.handler())
	defer srv.Close()

	clock := clockwork.NewFakeClockAt(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	engine, _ := newTestEngine(t, "slack", srv.URL, time.Hour, clock)

	prev := snapshotWith(clock.Now(), map[string]domain.Segment{"01": domain.SegmentAtRiskRetainer})
	cur := snapshotWith(clock.Now(), map[string]domain.Segment{"01": domain.SegmentBrainDrainRisk})

	engine.Notify(context.Background(), prev, cur)

	require.Equal(t, 1, rec.count())
	var payload map[string]string
	require.NoError(t, json.Unmarshal(rec.last(), &payload))
	assert.Contains(t, payload["text"], "State 01")
	assert.Contains(t, payload["text"], "critical")
	assert.Contains(t, payload["text"], "Brain Drain Risk")
}

func TestNotify_HTTPWebhookDeliversRawAlert(t *testing.T) {
	rec := &webhookRecorder{}
	srv := httptest.NewServer(rec.handler())
	defer srv.Close()

	clock := clockwork.NewFakeClock()
	engine, _ := newTestEngine(t, "http", srv.URL, time.Hour, clock)

	prev := snapshotWith(clock.Now(), map[string]domain.Segment{"08": domain.SegmentRisingGainer})
	cur := snapshotWith(clock.Now(), map[string]domain.Segment{"08": domain.SegmentTalentHub})

	engine.Notify(context.Background(), prev, cur)

	require.Equal(t, 1, rec.count())
	var a Alert
	require.NoError(t, json.Unmarshal(rec.last(), &a))
	assert.Equal(t, "08", a.FIPS)
	assert.Equal(t, domain.SegmentRisingGainer, a.From)
	assert.Equal(t, domain.SegmentTalentHub, a.To)
	assert.Equal(t, "info", a.Severity)
}

func TestNotify_NoAlertWithoutTransition(t *testing.T) {
	rec := &webhookRecorder{}
	srv := httptest.NewServer(rec.handler())
	defer srv.Close()

	clock := clockwork.NewFakeClock()
	engine, _ := newTestEngine(t, "slack", srv.URL, time.Hour, clock)

	t.Run("first snapshot has no previous", func(t *testing.T) {
		cur := snapshotWith(clock.Now(), map[string]domain.Segment{"01": domain.SegmentTalentHub})
		engine.Notify(context.Background(), nil, cur)
		assert.Zero(t, rec.count())
	})

	t.Run("unchanged segment", func(t *testing.T) {
		prev := snapshotWith(clock.Now(), map[string]domain.Segment{"01": domain.SegmentTalentHub})
		cur := snapshotWith(clock.Now(), map[string]domain.Segment{"01": domain.SegmentTalentHub})
		engine.Notify(context.Background(), prev, cur)
		assert.Zero(t, rec.count())
	})

	t.Run("state new in current snapshot", func(t *testing.T) {
		prev := snapshotWith(clock.Now(), map[string]domain.Segment{"01": domain.SegmentTalentHub})
		cur := snapshotWith(clock.Now(), map[string]domain.Segment{
			"01": domain.SegmentTalentHub,
			"02": domain.SegmentBrainDrainRisk,
		})
		engine.Notify(context.Background(), prev, cur)
		assert.Zero(t, rec.count())
	})
}

func TestNotify_CooldownSuppressesRepeats(t *testing.T) {
	rec := &webhookRecorder{}
	srv := httptest.NewServer(rec.handler())
	defer srv.Close()

	clock := clockwork.NewFakeClockAt(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	engine, _ := newTestEngine(t, "slack", srv.URL, 24*time.Hour, clock)

	prev := snapshotWith(clock.Now(), map[string]domain.Segment{"01": domain.SegmentTalentHub})
	cur := snapshotWith(clock.Now(), map[string]domain.Segment{"01": domain.SegmentBrainDrainRisk})

	engine.Notify(context.Background(), prev, cur)
	require.Equal(t, 1, rec.count())

	// Same transition an hour later stays quiet.
	clock.Advance(time.Hour)
	engine.Notify(context.Background(), prev, cur)
	assert.Equal(t, 1, rec.count())

	// Past the cooldown it fires again.
	clock.Advance(24 * time.Hour)
	engine.Notify(context.Background(), prev, cur)
	assert.Equal(t, 2, rec.count())
}

func TestNotify_DeliveryFailureIsCounted(t *testing.T) {
	rec := &webhookRecorder{status: http.StatusBadGateway}
	srv := httptest.NewServer(rec.handler())
	defer srv.Close()

	clock := clockwork.NewFakeClock()
	engine, metrics := newTestEngine(t, "slack", srv.URL, time.Hour, clock)

	prev := snapshotWith(clock.Now(), map[string]domain.Segment{"01": domain.SegmentTalentHub})
	cur := snapshotWith(clock.Now(), map[string]domain.Segment{"01": domain.SegmentBrainDrainRisk})

	// Must not panic or propagate the failure.
	engine.Notify(context.Background(), prev, cur)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.AlertErrors))
}

func TestSeverityFor(t *testing.T) {
	assert.Equal(t, "critical", severityFor(domain.SegmentBrainDrainRisk))
	assert.Equal(t, "info", severityFor(domain.SegmentTalentHub))
	assert.Equal(t, "info", severityFor(domain.SegmentUnclassified))
}
