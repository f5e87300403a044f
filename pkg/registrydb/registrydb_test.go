package registrydb

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIDString(t *testing.T) {
	assert.Equal(t, "42", idString(42))
	assert.Equal(t, "0", idString(0))
}

func TestBootstrapSchemaMentionsSourcesTable(t *testing.T) {
	assert.Contains(t, bootstrapSchema, "CREATE TABLE IF NOT EXISTS sources")
	assert.Contains(t, bootstrapSchema, "config     JSONB")
}
