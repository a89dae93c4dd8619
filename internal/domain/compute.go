package domain

import (
	"fmt"
	"sort"
)

// Compute joins the four raw tables on state FIPS code and derives the full
// metric set. It is a pure, synchronous, single-pass transform: identical
// inputs always produce identical output, and the caller supplies FetchedAt
// afterwards.
//
// Join semantics are inner: a key missing from any one of the four tables
// excludes that state from Records, so an incomplete state cannot skew the
// snapshot medians. Dropped keys are reported in ExcludedFIPS.
func Compute(tables RawTables) Snapshot {
	included, excluded := joinKeys(tables)

	records := make([]StateRecord, 0, len(included))
	for _, fips := range included {
		records = append(records, deriveRecord(fips, tables))
	}

	snap := Snapshot{
		Records:      records,
		ExcludedFIPS: excluded,
	}
	classify(&snap)
	return snap
}

// joinKeys partitions the union of all table keys into those present in all
// four tables (sorted) and those present in only some (sorted).
func joinKeys(tables RawTables) (included, excluded []string) {
	union := make(map[string]struct{})
	for fips := range tables.Inflow {
		union[fips] = struct{}{}
	}
	for fips := range tables.Outflow {
		union[fips] = struct{}{}
	}
	for fips := range tables.Education {
		union[fips] = struct{}{}
	}
	for fips := range tables.Earnings {
		union[fips] = struct{}{}
	}

	for fips := range union {
		_, in := tables.Inflow[fips]
		_, out := tables.Outflow[fips]
		_, edu := tables.Education[fips]
		_, earn := tables.Earnings[fips]
		if in && out && edu && earn {
			included = append(included, fips)
		} else {
			excluded = append(excluded, fips)
		}
	}
	sort.Strings(included)
	sort.Strings(excluded)
	return included, excluded
}

func deriveRecord(fips string, tables RawTables) StateRecord {
	inflow := tables.Inflow[fips]
	outflow := tables.Outflow[fips]
	edu := tables.Education[fips]
	earn := tables.Earnings[fips]

	inEducated := inflow.Bachelors + inflow.Graduate
	outEducated := outflow.Bachelors + outflow.Graduate
	baPlus := edu.Bachelors + edu.Masters + edu.Professional + edu.Doctorate
	pop := inflow.Pop25Plus

	rec := StateRecord{
		FIPS:      fips,
		StateName: inflow.StateName,

		Pop25Plus:           pop,
		InMigrantsEducated:  inEducated,
		OutMigrantsEducated: outEducated,
		InMigrantsTotal:     inflow.TotalMovers,
		OutMigrantsTotal:    outflow.TotalMovers,

		StockBachelors:    edu.Bachelors,
		StockMasters:      edu.Masters,
		StockProfessional: edu.Professional,
		StockDoctorate:    edu.Doctorate,
		BAPlusStock:       baPlus,

		MedianEarningsAll:       earn.AllWorkers,
		MedianEarningsBachelors: earn.Bachelors,
		MedianEarningsGraduate:  earn.Graduate,

		NetMigration: inEducated - outEducated,
	}

	rec.MigrationRate = ratio(float64(inEducated+outEducated), float64(pop), 1000)
	rec.InMigrationRate = ratio(float64(inEducated), float64(pop), 1000)
	rec.OutMigrationRate = ratio(float64(outEducated), float64(pop), 1000)
	if rec.InMigrationRate != nil && rec.OutMigrationRate != nil {
		rec.NetMigrationRate = ptr(*rec.InMigrationRate - *rec.OutMigrationRate)
	}
	rec.TalentConcentration = ratio(float64(baPlus), float64(pop), 100)
	rec.BrainDrainSignal = ratio(float64(outEducated), float64(baPlus), 100)
	rec.InPctOfStock = ratio(float64(inEducated), float64(baPlus), 100)
	rec.EduShareOfIn = ratio(float64(inEducated), float64(inflow.TotalMovers), 100)
	rec.EduShareOfOut = ratio(float64(outEducated), float64(outflow.TotalMovers), 100)

	if earn.Bachelors != nil && earn.AllWorkers != nil {
		rec.BachelorsEarningsPremium = ptr(*earn.Bachelors - *earn.AllWorkers)
	}
	if earn.Graduate != nil && earn.AllWorkers != nil {
		rec.GraduateEarningsPremium = ptr(*earn.Graduate - *earn.AllWorkers)
	}

	return rec
}

// classify assigns a policy segment to every record by median split over the
// two axes. Records with an undefined talent concentration cannot be placed
// on the grid; neither can a state reporting zero BA+ stock, which is a
// data-quality artifact rather than a real zero. Both stay Unclassified and
// do not contribute to the medians.
func classify(snap *Snapshot) {
	var netVals, concVals []float64
	for i := range snap.Records {
		rec := &snap.Records[i]
		if rec.TalentConcentration == nil || rec.BAPlusStock == 0 {
			rec.Segment = SegmentUnclassified
			continue
		}
		netVals = append(netVals, float64(rec.NetMigration))
		concVals = append(concVals, *rec.TalentConcentration)
	}
	if len(netVals) == 0 {
		return
	}

	snap.Thresholds = &SegmentThresholds{
		NetMigration:        median(netVals),
		TalentConcentration: median(concVals),
	}

	for i := range snap.Records {
		rec := &snap.Records[i]
		if rec.Segment == SegmentUnclassified {
			continue
		}
		// At-median counts as high.
		highNet := float64(rec.NetMigration) >= snap.Thresholds.NetMigration
		highConc := *rec.TalentConcentration >= snap.Thresholds.TalentConcentration
		switch {
		case highNet && highConc:
			rec.Segment = SegmentTalentHub
		case highNet:
			rec.Segment = SegmentRisingGainer
		case highConc:
			rec.Segment = SegmentAtRiskRetainer
		default:
			rec.Segment = SegmentBrainDrainRisk
		}
	}
}

// median is the textbook sample median: the middle element, or the mean of
// the middle two for an even count. gonum's Quantile kinds interpolate the
// empirical CDF differently, which would shift the split point for small
// classifiable sets.
func median(vals []float64) float64 {
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)

	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// ratio returns num/den*scale, or nil when the denominator is zero.
func ratio(num, den, scale float64) *float64 {
	if den == 0 {
		return nil
	}
	return ptr(num / den * scale)
}

func ptr(v float64) *float64 { return &v }

// MetricValue extracts a named metric from a record as an optional float.
// Integer counts are widened; nil means the metric is undefined for the state.
func MetricValue(rec StateRecord, metric string) (*float64, error) {
	switch metric {
	case "net_migration":
		return ptr(float64(rec.NetMigration)), nil
	case "population_25_plus":
		return ptr(float64(rec.Pop25Plus)), nil
	case "in_migrants_educated":
		return ptr(float64(rec.InMigrantsEducated)), nil
	case "out_migrants_educated":
		return ptr(float64(rec.OutMigrantsEducated)), nil
	case "ba_plus_stock":
		return ptr(float64(rec.BAPlusStock)), nil
	case "migration_rate":
		return rec.MigrationRate, nil
	case "in_migration_rate":
		return rec.InMigrationRate, nil
	case "out_migration_rate":
		return rec.OutMigrationRate, nil
	case "net_migration_rate":
		return rec.NetMigrationRate, nil
	case "talent_concentration":
		return rec.TalentConcentration, nil
	case "brain_drain_signal":
		return rec.BrainDrainSignal, nil
	case "in_pct_of_stock":
		return rec.InPctOfStock, nil
	case "edu_share_of_in":
		return rec.EduShareOfIn, nil
	case "edu_share_of_out":
		return rec.EduShareOfOut, nil
	case "median_earnings_bachelors":
		return rec.MedianEarningsBachelors, nil
	case "median_earnings_graduate":
		return rec.MedianEarningsGraduate, nil
	case "bachelors_earnings_premium":
		return rec.BachelorsEarningsPremium, nil
	case "graduate_earnings_premium":
		return rec.GraduateEarningsPremium, nil
	default:
		return nil, fmt.Errorf("unknown metric %q", metric)
	}
}

// SortRecords orders records by the given metric, descending, with undefined
// values last and FIPS as the tiebreak. "fips" and "state_name" sort
// ascending. Returns an error for unknown fields; the input is sorted in
// place, so callers working from a shared snapshot must pass a copy.
func SortRecords(recs []StateRecord, field string) error {
	switch field {
	case "", "fips":
		sort.Slice(recs, func(i, j int) bool { return recs[i].FIPS < recs[j].FIPS })
		return nil
	case "state_name":
		sort.Slice(recs, func(i, j int) bool { return recs[i].StateName < recs[j].StateName })
		return nil
	}

	// Validate the metric name before sorting.
	if _, err := MetricValue(StateRecord{}, field); err != nil {
		return err
	}
	sort.Slice(recs, func(i, j int) bool {
		vi, _ := MetricValue(recs[i], field)
		vj, _ := MetricValue(recs[j], field)
		switch {
		case vi == nil && vj == nil:
			return recs[i].FIPS < recs[j].FIPS
		case vi == nil:
			return false
		case vj == nil:
			return true
		case *vi != *vj:
			return *vi > *vj
		default:
			return recs[i].FIPS < recs[j].FIPS
		}
	})
	return nil
}

// Rankings returns the n highest and n lowest records by a metric. Records
// with the metric undefined are left out entirely rather than ranked as zero.
func Rankings(recs []StateRecord, metric string, n int) (top, bottom []StateRecord, err error) {
	defined := make([]StateRecord, 0, len(recs))
	for _, rec := range recs {
		v, verr := MetricValue(rec, metric)
		if verr != nil {
			return nil, nil, verr
		}
		if v != nil {
			defined = append(defined, rec)
		}
	}
	if err := SortRecords(defined, metric); err != nil {
		return nil, nil, err
	}
	if n > len(defined) {
		n = len(defined)
	}
	top = defined[:n]
	bottom = make([]StateRecord, n)
	for i := 0; i < n; i++ {
		bottom[i] = defined[len(defined)-1-i]
	}
	return top, bottom, nil
}
