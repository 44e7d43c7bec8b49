package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/couchcryptid/rbn-top-calls/internal/config"
	"github.com/couchcryptid/rbn-top-calls/internal/domain"
	"github.com/couchcryptid/rbn-top-calls/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRanking() domain.Ranking {
	return domain.Ranking{
		From:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		To:     time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC),
		Filter: domain.Filter{Mode: "CW", Prefix: "SP"},
		Entries: []domain.Entry{
			{Callsign: "W1ABC", Count: 3},
			{Callsign: "K2XYZ", Count: 2},
		},
		GeneratedAt: time.Date(2025, 1, 3, 8, 30, 0, 0, time.UTC),
	}
}

func TestSerializeToMessage(t *testing.T) {
	r := testRanking()

	msg, err := serializeToMessage(r, 1)
	require.NoError(t, err)

	assert.Equal(t, []byte("K2XYZ"), msg.Key)
	var body RankedCall
	require.NoError(t, json.Unmarshal(msg.Value, &body))
	assert.Equal(t, RankedCall{
		Rank:        2,
		Callsign:    "K2XYZ",
		Count:       2,
		From:        "2025-01-01",
		To:          "2025-01-02",
		Mode:        "CW",
		Prefix:      "SP",
		Band:        domain.BandAll,
		GeneratedAt: r.GeneratedAt,
	}, body)

	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "range", msg.Headers[0].Key)
	assert.Equal(t, []byte("2025-01-01/2025-01-02"), msg.Headers[0].Value)
	assert.Equal(t, "generated_at", msg.Headers[1].Key)
	assert.Equal(t, []byte("2025-01-03T08:30:00Z"), msg.Headers[1].Value)
}

func TestPublishEmptyRankingIsNoop(t *testing.T) {
	cfg := &config.Config{KafkaBrokers: []string{"127.0.0.1:1"}, KafkaTopic: "rbn-top-calls"}
	w := NewWriter(cfg, observability.DiscardLogger())
	t.Cleanup(func() { _ = w.Close() })

	r := testRanking()
	r.Entries = nil
	assert.NoError(t, w.Publish(context.Background(), r))
}
