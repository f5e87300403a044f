package vectorstore

import (
	"testing"

	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"

	"github.com/opus-domini/sentinel/pkg/types"
)

func TestPayloadToEventRoundTrip(t *testing.T) {
	score := 1.42
	payload := qdrant.NewValueMap(map[string]any{
		"original_id": "e1",
		"title":       "Breaking: outage at X",
		"content":     "Breaking: outage at X",
		"timestamp":   "2026-07-31T12:00:00Z",
		"source":      "t",
		"is_relevant": true,
		"categories":  []any{"outage", "cybersecurity"},
		"final_score": score,
	})

	e := payloadToEvent(payload)
	assert.Equal(t, "e1", e.OriginalID)
	assert.Equal(t, "t", e.Source)
	assert.True(t, e.IsRelevant)
	assert.Equal(t, []string{"outage", "cybersecurity"}, e.Categories)
	if assert.NotNil(t, e.FinalScore) {
		assert.InDelta(t, score, *e.FinalScore, 1e-9)
	}
	assert.Nil(t, e.ImportanceScore)
	assert.False(t, e.IsAnomaly)
	assert.True(t, e.IsRanked())
	assert.False(t, e.IsFiltered())
}

func TestPayloadToEventUnscoredIsFiltered(t *testing.T) {
	payload := qdrant.NewValueMap(map[string]any{
		"original_id": "e2",
		"is_relevant": true,
	})

	e := payloadToEvent(payload)
	assert.True(t, e.IsFiltered())
	assert.False(t, e.IsRanked())
	assert.Nil(t, e.FinalScore)
}

func TestTruncate(t *testing.T) {
	events := []types.StoredEvent{{OriginalID: "a"}, {OriginalID: "b"}, {OriginalID: "c"}}

	assert.Len(t, truncate(events, 2), 2)
	assert.Len(t, truncate(events, 0), 3, "non-positive limit returns everything")
	assert.Len(t, truncate(events, 10), 3)
}
