package inspector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opus-domini/sentinel/pkg/config"
	"github.com/opus-domini/sentinel/pkg/types"
)

type stubClassifier struct {
	response string
	err      error
}

func (s *stubClassifier) Classify(_ context.Context, _ string) (string, error) {
	return s.response, s.err
}

func TestKeywordMatch(t *testing.T) {
	d, err := newKeywordMatch(map[string]any{"keywords": []any{"breach", "outage"}})
	require.NoError(t, err)

	anomalous, err := d.Evaluate(context.Background(), types.StoredEvent{Content: "A major OUTAGE hit the datacenter"})
	require.NoError(t, err)
	assert.True(t, anomalous)

	anomalous, err = d.Evaluate(context.Background(), types.StoredEvent{Content: "routine maintenance window"})
	require.NoError(t, err)
	assert.False(t, anomalous)
}

func TestContentLength(t *testing.T) {
	d, err := newContentLength(map[string]any{"min_length": 10, "max_length": 20})
	require.NoError(t, err)

	anomalous, err := d.Evaluate(context.Background(), types.StoredEvent{Content: "short"})
	require.NoError(t, err)
	assert.True(t, anomalous)

	anomalous, err = d.Evaluate(context.Background(), types.StoredEvent{Content: "this is a reasonable length"})
	require.NoError(t, err)
	assert.True(t, anomalous)

	anomalous, err = d.Evaluate(context.Background(), types.StoredEvent{Content: "just right!"})
	require.NoError(t, err)
	assert.False(t, anomalous)
}

func TestMissingFields(t *testing.T) {
	d, err := newMissingFields(map[string]any{"fields": []any{"title", "source"}})
	require.NoError(t, err)

	anomalous, err := d.Evaluate(context.Background(), types.StoredEvent{Title: "ok", Source: ""})
	require.NoError(t, err)
	assert.True(t, anomalous)

	anomalous, err = d.Evaluate(context.Background(), types.StoredEvent{Title: "ok", Source: "feed"})
	require.NoError(t, err)
	assert.False(t, anomalous)
}

func TestLLMAnomalyDetector(t *testing.T) {
	d, err := newLLMAnomalyDetector(map[string]any{"prompt": "check: {article_content}"}, &stubClassifier{response: "ANOMALY detected"})
	require.NoError(t, err)

	anomalous, err := d.Evaluate(context.Background(), types.StoredEvent{Content: "weird stuff"})
	require.NoError(t, err)
	assert.True(t, anomalous)
}

func TestLLMAnomalyDetectorRequiresClassifier(t *testing.T) {
	_, err := newLLMAnomalyDetector(map[string]any{"prompt": "check: {article_content}"}, nil)
	assert.Error(t, err)
}

func TestBuildDetectorsUnknownKind(t *testing.T) {
	_, err := BuildDetectors([]config.DetectorSpec{{Kind: "unknown"}}, nil)
	assert.Error(t, err)
}

func TestBuildDetectorsShortCircuit(t *testing.T) {
	specs := []config.DetectorSpec{
		{Kind: "keyword_match", Params: map[string]any{"keywords": []any{"breach"}}},
		{Kind: "missing_fields", Params: map[string]any{"fields": []any{"title"}}},
	}
	detectors, err := BuildDetectors(specs, nil)
	require.NoError(t, err)
	require.Len(t, detectors, 2)

	event := types.StoredEvent{Content: "a data breach occurred", Title: ""}
	for _, d := range detectors {
		anomalous, err := d.Evaluate(context.Background(), event)
		require.NoError(t, err)
		if anomalous {
			assert.Equal(t, "keyword_match", d.Kind())
			return
		}
	}
	t.Fatal("expected keyword_match to trip first")
}
