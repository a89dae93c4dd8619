package domain

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// Briefing renders the executive policy summary for one state, phrased for
// the state's segment with its headline numbers substituted in.
func Briefing(rec StateRecord) string {
	switch rec.Segment {
	case SegmentTalentHub:
		return fmt.Sprintf(
			"%s is a Talent Hub. The state both attracts educated talent from other states "+
				"(net %+d bachelor's+ movers) and maintains an above-median concentration of degree holders. "+
				"This is a position of strength: policy priority should focus on retaining the advantage "+
				"through housing affordability, quality-of-life investment, and advanced industry development.",
			rec.StateName, rec.NetMigration)
	case SegmentRisingGainer:
		return fmt.Sprintf(
			"%s is a Rising Gainer. Net educated migration (%+d) is above the national median, but the "+
				"base talent concentration remains below it. The trend is promising: policy should deepen "+
				"the talent pipeline — higher education capacity and converting in-migrants into permanent residents.",
			rec.StateName, rec.NetMigration)
	case SegmentAtRiskRetainer:
		return fmt.Sprintf(
			"%s is an At-Risk Retainer. The state holds a strong existing talent pool but net educated "+
				"migration (%+d) is below the national median — talent is leaving faster than it is replaced. "+
				"This is the classic brain-drain warning: competitive wages, remote-work infrastructure, and "+
				"cost-of-living pressure need urgent attention.",
			rec.StateName, rec.NetMigration)
	case SegmentBrainDrainRisk:
		return fmt.Sprintf(
			"%s faces Brain Drain Risk. Both net educated migration (%+d) and talent concentration sit "+
				"below the national medians. Without intervention the disadvantage compounds: immediate "+
				"priorities include targeted attraction incentives, rural broadband, and industry diversification.",
			rec.StateName, rec.NetMigration)
	default:
		return fmt.Sprintf(
			"%s could not be classified this cycle because a classification input was undefined in the "+
				"source data. Its raw counts are published, but it is excluded from the segment medians.",
			rec.StateName)
	}
}

// SegmentSummary aggregates the records of one policy segment.
type SegmentSummary struct {
	Segment                Segment  `json:"segment"`
	States                 int      `json:"states"`
	AvgNetMigration        float64  `json:"avg_net_migration"`
	AvgNetMigrationRate    *float64 `json:"avg_net_migration_rate,omitempty"`
	AvgTalentConcentration *float64 `json:"avg_talent_concentration,omitempty"`
}

// SummarizeSegments returns one summary per segment present in the snapshot,
// in fixed grid order with Unclassified last. Averages over optional metrics
// cover only the records where the metric is defined.
func SummarizeSegments(snap *Snapshot) []SegmentSummary {
	order := []Segment{
		SegmentTalentHub,
		SegmentRisingGainer,
		SegmentAtRiskRetainer,
		SegmentBrainDrainRisk,
		SegmentUnclassified,
	}

	var summaries []SegmentSummary
	for _, seg := range order {
		var nets, rates, concs []float64
		count := 0
		for _, rec := range snap.Records {
			if rec.Segment != seg {
				continue
			}
			count++
			nets = append(nets, float64(rec.NetMigration))
			if rec.NetMigrationRate != nil {
				rates = append(rates, *rec.NetMigrationRate)
			}
			if rec.TalentConcentration != nil {
				concs = append(concs, *rec.TalentConcentration)
			}
		}
		if count == 0 {
			continue
		}
		s := SegmentSummary{
			Segment:         seg,
			States:          count,
			AvgNetMigration: stat.Mean(nets, nil),
		}
		if len(rates) > 0 {
			s.AvgNetMigrationRate = ptr(stat.Mean(rates, nil))
		}
		if len(concs) > 0 {
			s.AvgTalentConcentration = ptr(stat.Mean(concs, nil))
		}
		summaries = append(summaries, s)
	}
	return summaries
}

// MetricComparison is one row of a side-by-side state comparison.
type MetricComparison struct {
	Metric string   `json:"metric"`
	A      *float64 `json:"a,omitempty"`
	B      *float64 `json:"b,omitempty"`

	// Advantage is the FIPS code of the better-positioned state, or empty
	// on a tie or when either value is undefined.
	Advantage string `json:"advantage,omitempty"`
}

// Comparison pairs two full records with per-metric advantage calls.
type Comparison struct {
	A       StateRecord        `json:"a"`
	B       StateRecord        `json:"b"`
	Metrics []MetricComparison `json:"metrics"`
}

// comparisonMetrics lists the compared fields; lowerIsBetter marks outflow
// metrics where the smaller value wins.
var comparisonMetrics = []struct {
	name          string
	lowerIsBetter bool
}{
	{name: "in_migrants_educated"},
	{name: "out_migrants_educated", lowerIsBetter: true},
	{name: "net_migration"},
	{name: "migration_rate"},
	{name: "net_migration_rate"},
	{name: "talent_concentration"},
	{name: "brain_drain_signal", lowerIsBetter: true},
	{name: "ba_plus_stock"},
	{name: "median_earnings_bachelors"},
	{name: "median_earnings_graduate"},
}

// Compare builds a side-by-side comparison of two states.
func Compare(a, b StateRecord) Comparison {
	cmp := Comparison{A: a, B: b}
	for _, m := range comparisonMetrics {
		va, _ := MetricValue(a, m.name)
		vb, _ := MetricValue(b, m.name)
		row := MetricComparison{Metric: m.name, A: va, B: vb}
		if va != nil && vb != nil && *va != *vb {
			higher := a.FIPS
			if *vb > *va {
				higher = b.FIPS
			}
			if m.lowerIsBetter {
				if higher == a.FIPS {
					higher = b.FIPS
				} else {
					higher = a.FIPS
				}
			}
			row.Advantage = higher
		}
		cmp.Metrics = append(cmp.Metrics, row)
	}
	return cmp
}
