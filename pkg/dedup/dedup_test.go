package dedup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opus-domini/sentinel/pkg/types"
)

func TestMarkSeenBatchDeduplicates(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	candidates := []types.Candidate{
		{Title: "Breaking: outage at X", Href: "https://x/1"},
		{Title: "Breaking: outage at X", Href: "https://x/2"},
	}

	fresh, err := store.MarkSeenBatch(7, candidates)
	require.NoError(t, err)
	assert.Len(t, fresh, 2)

	fresh, err = store.MarkSeenBatch(7, candidates)
	require.NoError(t, err)
	assert.Empty(t, fresh)
}

func TestMarkSeenBatchPerSource(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	c := []types.Candidate{{Title: "same href, different source", Href: "https://x/1"}}

	fresh, err := store.MarkSeenBatch(1, c)
	require.NoError(t, err)
	assert.Len(t, fresh, 1)

	fresh, err = store.MarkSeenBatch(2, c)
	require.NoError(t, err)
	assert.Len(t, fresh, 1, "dedup key is scoped per source_id")
}

func TestSeen(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	seen, err := store.Seen(1, "https://x/1")
	require.NoError(t, err)
	assert.False(t, seen)

	_, err = store.MarkSeenBatch(1, []types.Candidate{{Href: "https://x/1"}})
	require.NoError(t, err)

	seen, err = store.Seen(1, "https://x/1")
	require.NoError(t, err)
	assert.True(t, seen)
}
