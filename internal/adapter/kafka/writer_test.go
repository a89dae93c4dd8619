package kafka

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/policymetrics/talent-flow-etl/internal/domain"
)

func ptr(v float64) *float64 { return &v }

func TestSerializeToMessage(t *testing.T) {
	fetchedAt := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("key, headers, payload", func(t *testing.T) {
		rec := domain.StateRecord{
			FIPS:                "08",
			StateName:           "Colorado",
			Pop25Plus:           4000000,
			NetMigration:        12500,
			TalentConcentration: ptr(45.5),
			Segment:             domain.SegmentTalentHub,
		}

		msg, err := serializeToMessage(rec, fetchedAt)
		require.NoError(t, err)

		assert.Equal(t, []byte("08"), msg.Key)

		headers := map[string]string{}
		for _, h := range msg.Headers {
			headers[h.Key] = string(h.Value)
		}
		assert.Equal(t, "Talent Hub", headers["segment"])
		assert.Equal(t, "2024-06-01T12:00:00Z", headers["fetched_at"])

		var roundtrip domain.StateRecord
		require.NoError(t, json.Unmarshal(msg.Value, &roundtrip))
		assert.Equal(t, "Colorado", roundtrip.StateName)
		assert.Equal(t, int64(12500), roundtrip.NetMigration)
		require.NotNil(t, roundtrip.TalentConcentration)
		assert.InDelta(t, 45.5, *roundtrip.TalentConcentration, 1e-9)
	})

	t.Run("suppressed metrics omitted from payload", func(t *testing.T) {
		rec := domain.StateRecord{FIPS: "72", Segment: domain.SegmentUnclassified}

		msg, err := serializeToMessage(rec, fetchedAt)
		require.NoError(t, err)

		var fields map[string]any
		require.NoError(t, json.Unmarshal(msg.Value, &fields))
		assert.NotContains(t, fields, "talent_concentration")
		assert.NotContains(t, fields, "migration_rate")
		assert.Contains(t, fields, "net_migration")
	})
}
