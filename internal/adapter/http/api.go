package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/policymetrics/talent-flow-etl/internal/domain"
)

// snapshot returns the current snapshot or writes a 503 and returns false.
func (s *Server) snapshot(w http.ResponseWriter) (*domain.Snapshot, bool) {
	snap, ok := s.source.Current()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "no snapshot available yet")
		return nil, false
	}
	return snap, true
}

// snapshotMeta is the snapshot header without the per-state records.
type snapshotMeta struct {
	FetchedAt    time.Time                 `json:"fetched_at"`
	Year         int                       `json:"acs_year"`
	States       int                       `json:"states"`
	ExcludedFIPS []string                  `json:"excluded_fips,omitempty"`
	Thresholds   *domain.SegmentThresholds `json:"thresholds,omitempty"`
}

func (s *Server) handleSnapshot(w http.ResponseWriter, _ *http.Request) {
	snap, ok := s.snapshot(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, snapshotMeta{
		FetchedAt:    snap.FetchedAt,
		Year:         snap.Year,
		States:       len(snap.Records),
		ExcludedFIPS: snap.ExcludedFIPS,
		Thresholds:   snap.Thresholds,
	})
}

func (s *Server) handleStates(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshot(w)
	if !ok {
		return
	}

	// Sort a copy; the stored snapshot is shared and immutable.
	records := make([]domain.StateRecord, len(snap.Records))
	copy(records, snap.Records)
	if err := domain.SortRecords(records, r.URL.Query().Get("sort")); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshot(w)
	if !ok {
		return
	}
	rec, found := snap.Record(r.PathValue("fips"))
	if !found {
		writeError(w, http.StatusNotFound, "unknown state FIPS code")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleSegments(w http.ResponseWriter, _ *http.Request) {
	snap, ok := s.snapshot(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, domain.SummarizeSegments(snap))
}

func (s *Server) handleRankings(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshot(w)
	if !ok {
		return
	}

	metric := r.URL.Query().Get("metric")
	if metric == "" {
		metric = "net_migration"
	}
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	top, bottom, err := domain.Rankings(snap.Records, metric, limit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"metric":  metric,
		"gainers": top,
		"losers":  bottom,
	})
}

func (s *Server) handleBriefing(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshot(w)
	if !ok {
		return
	}
	rec, found := snap.Record(r.PathValue("fips"))
	if !found {
		writeError(w, http.StatusNotFound, "unknown state FIPS code")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"fips":       rec.FIPS,
		"state_name": rec.StateName,
		"segment":    rec.Segment,
		"briefing":   domain.Briefing(rec),
		"record":     rec,
	})
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshot(w)
	if !ok {
		return
	}

	a := r.URL.Query().Get("a")
	b := r.URL.Query().Get("b")
	if a == "" || b == "" || a == b {
		writeError(w, http.StatusBadRequest, "query params a and b must be two distinct FIPS codes")
		return
	}
	recA, foundA := snap.Record(a)
	recB, foundB := snap.Record(b)
	if !foundA || !foundB {
		writeError(w, http.StatusNotFound, "unknown state FIPS code")
		return
	}
	writeJSON(w, http.StatusOK, domain.Compare(recA, recB))
}
