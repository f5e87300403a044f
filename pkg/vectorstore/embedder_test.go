package vectorstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStubEmbedderDimensions(t *testing.T) {
	e := NewStubEmbedder(8)
	assert.Equal(t, 8, e.Dimensions())

	vec, err := e.Embed(context.Background(), "hello world")
	require.NoError(t, err)
	assert.Len(t, vec, 8)
}

func TestStubEmbedderDeterministic(t *testing.T) {
	e := NewStubEmbedder(16)
	v1, err := e.Embed(context.Background(), "same text")
	require.NoError(t, err)
	v2, err := e.Embed(context.Background(), "same text")
	require.NoError(t, err)
	assert.Equal(t, v1, v2)
}

func TestStubEmbedderDistinctText(t *testing.T) {
	e := NewStubEmbedder(16)
	v1, err := e.Embed(context.Background(), "text one")
	require.NoError(t, err)
	v2, err := e.Embed(context.Background(), "text two")
	require.NoError(t, err)
	assert.NotEqual(t, v1, v2)
}
