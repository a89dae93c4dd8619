package domain

import "time"

// MobilityInflow holds one state's row from ACS table B07009.
// Pop25Plus is the denominator for all per-capita rates.
type MobilityInflow struct {
	StateName   string
	Pop25Plus   int64
	TotalMovers int64 // moved from a different state, all education levels
	Bachelors   int64
	Graduate    int64
}

// MobilityOutflow holds one state's row from ACS table B07409, the
// out-migration proxy (residence one year ago).
type MobilityOutflow struct {
	StateName   string
	TotalMovers int64
	Bachelors   int64
	Graduate    int64
}

// EducationStock holds one state's row from ACS table B15003.
type EducationStock struct {
	StateName    string
	Total25Plus  int64
	Bachelors    int64
	Masters      int64
	Professional int64
	Doctorate    int64
}

// Earnings holds one state's row from ACS table B20004. Median earnings are
// frequently suppressed in sparse cells, so every field is optional.
type Earnings struct {
	StateName  string
	AllWorkers *float64
	Bachelors  *float64
	Graduate   *float64
}

// RawTables bundles the four fetched tables, each keyed by state FIPS code.
type RawTables struct {
	Inflow    map[string]MobilityInflow
	Outflow   map[string]MobilityOutflow
	Education map[string]EducationStock
	Earnings  map[string]Earnings
}

// Segment is the median-split policy classification of a state.
type Segment string

const (
	SegmentTalentHub      Segment = "Talent Hub"
	SegmentRisingGainer   Segment = "Rising Gainer"
	SegmentAtRiskRetainer Segment = "At-Risk Retainer"
	SegmentBrainDrainRisk Segment = "Brain Drain Risk"

	// SegmentUnclassified flags records with an undefined classification
	// axis; they are excluded from the median computation.
	SegmentUnclassified Segment = "Unclassified"
)

// StateRecord is one fully derived row of the snapshot. Metrics whose
// denominator was zero (or whose earnings inputs were suppressed) are nil.
type StateRecord struct {
	FIPS      string `json:"fips"`
	StateName string `json:"state_name"`

	Pop25Plus           int64 `json:"population_25_plus"`
	InMigrantsEducated  int64 `json:"in_migrants_educated"`
	OutMigrantsEducated int64 `json:"out_migrants_educated"`
	InMigrantsTotal     int64 `json:"in_migrants_total"`
	OutMigrantsTotal    int64 `json:"out_migrants_total"`

	StockBachelors    int64 `json:"stock_bachelors"`
	StockMasters      int64 `json:"stock_masters"`
	StockProfessional int64 `json:"stock_professional"`
	StockDoctorate    int64 `json:"stock_doctorate"`
	BAPlusStock       int64 `json:"ba_plus_stock"`

	MedianEarningsAll       *float64 `json:"median_earnings_all,omitempty"`
	MedianEarningsBachelors *float64 `json:"median_earnings_bachelors,omitempty"`
	MedianEarningsGraduate  *float64 `json:"median_earnings_graduate,omitempty"`

	NetMigration        int64    `json:"net_migration"`
	MigrationRate       *float64 `json:"migration_rate,omitempty"`
	InMigrationRate     *float64 `json:"in_migration_rate,omitempty"`
	OutMigrationRate    *float64 `json:"out_migration_rate,omitempty"`
	NetMigrationRate    *float64 `json:"net_migration_rate,omitempty"`
	TalentConcentration *float64 `json:"talent_concentration,omitempty"`
	BrainDrainSignal    *float64 `json:"brain_drain_signal,omitempty"`
	InPctOfStock        *float64 `json:"in_pct_of_stock,omitempty"`
	EduShareOfIn        *float64 `json:"edu_share_of_in,omitempty"`
	EduShareOfOut       *float64 `json:"edu_share_of_out,omitempty"`

	BachelorsEarningsPremium *float64 `json:"bachelors_earnings_premium,omitempty"`
	GraduateEarningsPremium  *float64 `json:"graduate_earnings_premium,omitempty"`

	Segment Segment `json:"segment"`
}

// SegmentThresholds holds the snapshot-wide medians used for classification.
type SegmentThresholds struct {
	NetMigration        float64 `json:"net_migration"`
	TalentConcentration float64 `json:"talent_concentration"`
}

// Snapshot is one complete derivation over a single fetch of the four raw
// tables. It is immutable once built; a refresh produces a new Snapshot.
// FetchedAt is set by the caller so the derivation itself stays a pure
// function of its inputs.
type Snapshot struct {
	FetchedAt time.Time `json:"fetched_at"`
	Year      int       `json:"acs_year"`

	// Records is ordered by FIPS code.
	Records []StateRecord `json:"records"`

	// ExcludedFIPS lists keys present in at least one raw table but not all
	// four. They are dropped by the inner join; kept here so the loss is
	// countable rather than silent.
	ExcludedFIPS []string `json:"excluded_fips,omitempty"`

	// Thresholds is nil when no record had both classification axes defined.
	Thresholds *SegmentThresholds `json:"thresholds,omitempty"`
}

// Record returns the record for a FIPS code, if present.
func (s *Snapshot) Record(fips string) (StateRecord, bool) {
	for _, rec := range s.Records {
		if rec.FIPS == fips {
			return rec, true
		}
	}
	return StateRecord{}, false
}
