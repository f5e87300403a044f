package broker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opus-domini/sentinel/pkg/sentinelerr"
)

func TestParseMaxDeliveriesAdvisory(t *testing.T) {
	raw := `{"stream":"raw-events-stream","consumer":"filter","stream_seq":42,"deliveries":5}`

	advisory, err := ParseMaxDeliveriesAdvisory([]byte(raw))
	require.NoError(t, err)

	assert.Equal(t, "raw-events-stream", advisory.Stream)
	assert.Equal(t, "filter", advisory.Consumer)
	assert.Equal(t, uint64(42), advisory.StreamSeq)
	assert.Equal(t, uint64(5), advisory.Deliveries)
}

func TestParseMaxDeliveriesAdvisoryMalformed(t *testing.T) {
	_, err := ParseMaxDeliveriesAdvisory([]byte("not json"))
	require.Error(t, err)

	var schemaErr *sentinelerr.SchemaError
	assert.ErrorAs(t, err, &schemaErr)
}
