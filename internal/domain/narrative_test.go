package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBriefing(t *testing.T) {
	tests := []struct {
		name     string
		rec      StateRecord
		contains []string
	}{
		{
			"talent hub",
			StateRecord{StateName: "Colorado", NetMigration: 12500, Segment: SegmentTalentHub},
			[]string{"Colorado", "Talent Hub", "+12500"},
		},
		{
			"rising gainer",
			StateRecord{StateName: "Idaho", NetMigration: 4000, Segment: SegmentRisingGainer},
			[]string{"Idaho", "Rising Gainer", "+4000"},
		},
		{
			"at-risk retainer",
			StateRecord{StateName: "Illinois", NetMigration: -22000, Segment: SegmentAtRiskRetainer},
			[]string{"Illinois", "At-Risk Retainer", "-22000"},
		},
		{
			"brain drain risk",
			StateRecord{StateName: "West Virginia", NetMigration: -6000, Segment: SegmentBrainDrainRisk},
			[]string{"West Virginia", "Brain Drain Risk", "-6000"},
		},
		{
			"unclassified",
			StateRecord{StateName: "Puerto Rico", Segment: SegmentUnclassified},
			[]string{"Puerto Rico", "could not be classified"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := Briefing(tt.rec)
			for _, want := range tt.contains {
				assert.Contains(t, text, want)
			}
		})
	}
}

func TestSummarizeSegments(t *testing.T) {
	snap := &Snapshot{Records: []StateRecord{
		{FIPS: "01", NetMigration: 100, NetMigrationRate: ptr(2), TalentConcentration: ptr(60), Segment: SegmentTalentHub},
		{FIPS: "02", NetMigration: 200, NetMigrationRate: ptr(4), TalentConcentration: ptr(40), Segment: SegmentTalentHub},
		{FIPS: "04", NetMigration: -50, TalentConcentration: ptr(20), Segment: SegmentBrainDrainRisk},
		{FIPS: "06", NetMigration: 0, Segment: SegmentUnclassified},
	}}

	summaries := SummarizeSegments(snap)
	require.Len(t, summaries, 3, "empty segments are skipped")

	hub := summaries[0]
	assert.Equal(t, SegmentTalentHub, hub.Segment)
	assert.Equal(t, 2, hub.States)
	assert.InDelta(t, 150.0, hub.AvgNetMigration, 1e-9)
	require.NotNil(t, hub.AvgNetMigrationRate)
	assert.InDelta(t, 3.0, *hub.AvgNetMigrationRate, 1e-9)
	require.NotNil(t, hub.AvgTalentConcentration)
	assert.InDelta(t, 50.0, *hub.AvgTalentConcentration, 1e-9)

	risk := summaries[1]
	assert.Equal(t, SegmentBrainDrainRisk, risk.Segment)
	assert.Equal(t, 1, risk.States)
	assert.Nil(t, risk.AvgNetMigrationRate, "no record had the rate defined")

	assert.Equal(t, SegmentUnclassified, summaries[2].Segment)
	assert.Nil(t, summaries[2].AvgTalentConcentration)
}

func TestCompare(t *testing.T) {
	a := StateRecord{
		FIPS:                "08",
		InMigrantsEducated:  500,
		OutMigrantsEducated: 100,
		NetMigration:        400,
		TalentConcentration: ptr(45),
		BrainDrainSignal:    ptr(3),
	}
	b := StateRecord{
		FIPS:                "17",
		InMigrantsEducated:  300,
		OutMigrantsEducated: 600,
		NetMigration:        -300,
		TalentConcentration: ptr(45),
		BrainDrainSignal:    ptr(9),
	}

	cmp := Compare(a, b)
	assert.Equal(t, "08", cmp.A.FIPS)
	assert.Equal(t, "17", cmp.B.FIPS)

	byMetric := map[string]MetricComparison{}
	for _, m := range cmp.Metrics {
		byMetric[m.Metric] = m
	}

	assert.Equal(t, "08", byMetric["in_migrants_educated"].Advantage)
	assert.Equal(t, "08", byMetric["net_migration"].Advantage)

	// Lower outflow wins for outflow metrics.
	assert.Equal(t, "08", byMetric["out_migrants_educated"].Advantage)
	assert.Equal(t, "08", byMetric["brain_drain_signal"].Advantage)

	// Ties and undefined values call no advantage.
	assert.Empty(t, byMetric["talent_concentration"].Advantage)
	assert.Empty(t, byMetric["median_earnings_bachelors"].Advantage)
}
