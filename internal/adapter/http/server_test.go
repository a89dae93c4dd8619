package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/policymetrics/talent-flow-etl/internal/adapter/http"
	"github.com/policymetrics/talent-flow-etl/internal/domain"
)

type fakeReadiness struct{ err error }

func (f *fakeReadiness) CheckReadiness(context.Context) error { return f.err }

type fakeSource struct{ snap *domain.Snapshot }

func (f *fakeSource) Current() (*domain.Snapshot, bool) { return f.snap, f.snap != nil }

func ptr(v float64) *float64 { return &v }

func testSnapshot() *domain.Snapshot {
	return &domain.Snapshot{
		FetchedAt: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		Year:      2022,
		Records: []domain.StateRecord{
			{
				FIPS: "01", StateName: "Alabama", Pop25Plus: 1000,
				NetMigration: -40, MigrationRate: ptr(60), TalentConcentration: ptr(50),
				Segment: domain.SegmentAtRiskRetainer,
			},
			{
				FIPS: "06", StateName: "California", Pop25Plus: 1000,
				NetMigration: 80, MigrationRate: ptr(120), TalentConcentration: ptr(50),
				Segment: domain.SegmentTalentHub,
			},
			{
				FIPS: "48", StateName: "Texas", Pop25Plus: 1000,
				NetMigration: 40, MigrationRate: ptr(70), TalentConcentration: ptr(50),
				Segment: domain.SegmentTalentHub,
			},
		},
		ExcludedFIPS: []string{"72"},
		Thresholds:   &domain.SegmentThresholds{NetMigration: 40, TalentConcentration: 50},
	}
}

func newTestServer(snap *domain.Snapshot, readyErr error) *httpadapter.Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return httpadapter.NewServer(":0", &fakeReadiness{err: readyErr}, &fakeSource{snap: snap}, logger)
}

func doGet(t *testing.T, srv *httpadapter.Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestHealthz(t *testing.T) {
	rec := doGet(t, newTestServer(nil, nil), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyz(t *testing.T) {
	t.Run("not ready", func(t *testing.T) {
		srv := newTestServer(nil, errors.New("no snapshot has been fetched yet"))
		rec := doGet(t, srv, "/readyz")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("ready", func(t *testing.T) {
		rec := doGet(t, newTestServer(testSnapshot(), nil), "/readyz")
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestAPIBeforeFirstSnapshot(t *testing.T) {
	srv := newTestServer(nil, errors.New("not ready"))
	for _, path := range []string{
		"/api/v1/snapshot",
		"/api/v1/states",
		"/api/v1/states/01",
		"/api/v1/segments",
		"/api/v1/rankings",
		"/api/v1/briefing/01",
		"/api/v1/compare?a=01&b=06",
	} {
		rec := doGet(t, srv, path)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, path)
	}
}

func TestHandleSnapshot(t *testing.T) {
	rec := doGet(t, newTestServer(testSnapshot(), nil), "/api/v1/snapshot")
	require.Equal(t, http.StatusOK, rec.Code)

	var meta struct {
		Year         int                       `json:"acs_year"`
		States       int                       `json:"states"`
		ExcludedFIPS []string                  `json:"excluded_fips"`
		Thresholds   *domain.SegmentThresholds `json:"thresholds"`
	}
	decode(t, rec, &meta)
	assert.Equal(t, 2022, meta.Year)
	assert.Equal(t, 3, meta.States)
	assert.Equal(t, []string{"72"}, meta.ExcludedFIPS)
	require.NotNil(t, meta.Thresholds)
	assert.Equal(t, 40.0, meta.Thresholds.NetMigration)
}

func TestHandleStates(t *testing.T) {
	snap := testSnapshot()
	srv := newTestServer(snap, nil)

	t.Run("default FIPS order", func(t *testing.T) {
		rec := doGet(t, srv, "/api/v1/states")
		require.Equal(t, http.StatusOK, rec.Code)

		var records []domain.StateRecord
		decode(t, rec, &records)
		require.Len(t, records, 3)
		assert.Equal(t, "01", records[0].FIPS)
	})

	t.Run("sorted by metric", func(t *testing.T) {
		rec := doGet(t, srv, "/api/v1/states?sort=net_migration")
		require.Equal(t, http.StatusOK, rec.Code)

		var records []domain.StateRecord
		decode(t, rec, &records)
		assert.Equal(t, "06", records[0].FIPS)
		assert.Equal(t, "48", records[1].FIPS)
		assert.Equal(t, "01", records[2].FIPS)

		// The shared snapshot itself must stay in FIPS order.
		assert.Equal(t, "01", snap.Records[0].FIPS)
	})

	t.Run("unknown sort field", func(t *testing.T) {
		rec := doGet(t, srv, "/api/v1/states?sort=bogus")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandleState(t *testing.T) {
	srv := newTestServer(testSnapshot(), nil)

	t.Run("found", func(t *testing.T) {
		rec := doGet(t, srv, "/api/v1/states/06")
		require.Equal(t, http.StatusOK, rec.Code)

		var state domain.StateRecord
		decode(t, rec, &state)
		assert.Equal(t, "California", state.StateName)
	})

	t.Run("unknown FIPS", func(t *testing.T) {
		rec := doGet(t, srv, "/api/v1/states/99")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestHandleSegments(t *testing.T) {
	rec := doGet(t, newTestServer(testSnapshot(), nil), "/api/v1/segments")
	require.Equal(t, http.StatusOK, rec.Code)

	var summaries []domain.SegmentSummary
	decode(t, rec, &summaries)
	require.Len(t, summaries, 2)
	assert.Equal(t, domain.SegmentTalentHub, summaries[0].Segment)
	assert.Equal(t, 2, summaries[0].States)
	assert.Equal(t, domain.SegmentAtRiskRetainer, summaries[1].Segment)
}

func TestHandleRankings(t *testing.T) {
	srv := newTestServer(testSnapshot(), nil)

	t.Run("defaults to net migration", func(t *testing.T) {
		rec := doGet(t, srv, "/api/v1/rankings?limit=2")
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Metric  string               `json:"metric"`
			Gainers []domain.StateRecord `json:"gainers"`
			Losers  []domain.StateRecord `json:"losers"`
		}
		decode(t, rec, &body)
		assert.Equal(t, "net_migration", body.Metric)
		require.Len(t, body.Gainers, 2)
		assert.Equal(t, "06", body.Gainers[0].FIPS)
		require.Len(t, body.Losers, 2)
		assert.Equal(t, "01", body.Losers[0].FIPS)
	})

	t.Run("invalid limit", func(t *testing.T) {
		rec := doGet(t, srv, "/api/v1/rankings?limit=zero")
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = doGet(t, srv, "/api/v1/rankings?limit=-3")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown metric", func(t *testing.T) {
		rec := doGet(t, srv, "/api/v1/rankings?metric=bogus")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandleBriefing(t *testing.T) {
	srv := newTestServer(testSnapshot(), nil)

	t.Run("found", func(t *testing.T) {
		rec := doGet(t, srv, "/api/v1/briefing/01")
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			StateName string             `json:"state_name"`
			Segment   domain.Segment     `json:"segment"`
			Briefing  string             `json:"briefing"`
			Record    domain.StateRecord `json:"record"`
		}
		decode(t, rec, &body)
		assert.Equal(t, "Alabama", body.StateName)
		assert.Equal(t, domain.SegmentAtRiskRetainer, body.Segment)
		assert.Contains(t, body.Briefing, "At-Risk Retainer")
		assert.Equal(t, "01", body.Record.FIPS)
	})

	t.Run("unknown FIPS", func(t *testing.T) {
		rec := doGet(t, srv, "/api/v1/briefing/99")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestHandleCompare(t *testing.T) {
	srv := newTestServer(testSnapshot(), nil)

	t.Run("ok", func(t *testing.T) {
		rec := doGet(t, srv, "/api/v1/compare?a=06&b=01")
		require.Equal(t, http.StatusOK, rec.Code)

		var cmp domain.Comparison
		decode(t, rec, &cmp)
		assert.Equal(t, "06", cmp.A.FIPS)
		assert.Equal(t, "01", cmp.B.FIPS)
		assert.NotEmpty(t, cmp.Metrics)
	})

	t.Run("missing params", func(t *testing.T) {
		rec := doGet(t, srv, "/api/v1/compare?a=06")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("same state twice", func(t *testing.T) {
		rec := doGet(t, srv, "/api/v1/compare?a=06&b=06")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown FIPS", func(t *testing.T) {
		rec := doGet(t, srv, "/api/v1/compare?a=06&b=99")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
