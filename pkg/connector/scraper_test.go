package connector

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractCandidatesFiltersShortTitlesAndNonHTTP(t *testing.T) {
	body := `<html><body>
		<a href="https://example.com/1">This is a sufficiently long article title</a>
		<a href="https://example.com/2">short</a>
		<a href="/relative/path">Also a sufficiently long article title here</a>
		<a href="https://example.com/3">Another sufficiently long article title</a>
	</body></html>`

	candidates, err := extractCandidates(strings.NewReader(body))
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	assert.Equal(t, "https://example.com/1", candidates[0].Href)
	assert.Equal(t, "https://example.com/3", candidates[1].Href)
}

func TestExtractCandidatesNoAnchors(t *testing.T) {
	candidates, err := extractCandidates(strings.NewReader(`<html><body><p>nothing here</p></body></html>`))
	require.NoError(t, err)
	assert.Empty(t, candidates)
}
