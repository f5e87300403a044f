package ranker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/opus-domini/sentinel/pkg/config"
)

func testRankerConfig() config.RankerConfig {
	return config.RankerConfig{
		RankingParameters: config.RankingParameters{ImportanceWeight: 0.6, RecencyWeight: 0.4},
		CategoryImportance: map[string]float64{
			"Outage":   5,
			"Security": 3,
			"Other":    1,
		},
		RecencyDecay: config.RecencyDecay{HalfLifeHours: 24, MaxScore: 1.0},
	}
}

func TestImportanceScoreSumsKnownCategories(t *testing.T) {
	cfg := testRankerConfig()
	assert.Equal(t, 8.0, ImportanceScore([]string{"Outage", "Security"}, cfg))
}

func TestImportanceScoreFallsBackToOtherForUnknownCategory(t *testing.T) {
	cfg := testRankerConfig()
	assert.Equal(t, 1.0, ImportanceScore([]string{"Weather"}, cfg))
}

func TestImportanceScoreEmptyCategoriesIsOther(t *testing.T) {
	cfg := testRankerConfig()
	assert.Equal(t, 1.0, ImportanceScore(nil, cfg))
}

func TestRecencyScoreAtNowIsMaxScore(t *testing.T) {
	decay := config.RecencyDecay{HalfLifeHours: 24, MaxScore: 1.0}
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	assert.InDelta(t, 1.0, RecencyScore(now.Format(time.RFC3339), decay, now), 1e-9)
}

func TestRecencyScoreAtHalfLifeIsHalfMaxScore(t *testing.T) {
	decay := config.RecencyDecay{HalfLifeHours: 24, MaxScore: 1.0}
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	past := now.Add(-24 * time.Hour)
	assert.InDelta(t, 0.5, RecencyScore(past.Format(time.RFC3339), decay, now), 1e-9)
}

func TestRecencyScoreMalformedTimestampIsMaxScore(t *testing.T) {
	decay := config.RecencyDecay{HalfLifeHours: 24, MaxScore: 1.0}
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, 1.0, RecencyScore("not-a-timestamp", decay, now))
}

func TestRecencyScoreFutureTimestampClampsToZeroAge(t *testing.T) {
	decay := config.RecencyDecay{HalfLifeHours: 24, MaxScore: 1.0}
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	future := now.Add(1 * time.Hour)
	assert.InDelta(t, 1.0, RecencyScore(future.Format(time.RFC3339), decay, now), 1e-9)
}

func TestFinalScoreWeightsBothComponents(t *testing.T) {
	params := config.RankingParameters{ImportanceWeight: 0.6, RecencyWeight: 0.4}
	assert.InDelta(t, 3.4, FinalScore(5, 1, params), 1e-9)
}
