package connector

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/opus-domini/sentinel/pkg/types"
)

func TestSourceURLPrefersConfig(t *testing.T) {
	poll := types.PollSource{Name: "fallback", ConfigJSON: `{"url":"https://example.com/news"}`}
	assert.Equal(t, "https://example.com/news", sourceURL(poll))
}

func TestSourceURLFallsBackToName(t *testing.T) {
	poll := types.PollSource{Name: "https://example.com/news"}
	assert.Equal(t, "https://example.com/news", sourceURL(poll))
}

func TestSourceURLIgnoresMalformedConfig(t *testing.T) {
	poll := types.PollSource{Name: "https://example.com/news", ConfigJSON: "not json"}
	assert.Equal(t, "https://example.com/news", sourceURL(poll))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "hello", truncate("hello", 10))
	assert.Equal(t, "hel", truncate("hello", 3))
	assert.Equal(t, "", truncate("", 3))
}
