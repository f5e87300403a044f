package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsRelevant(t *testing.T) {
	assert.True(t, IsRelevant("RELEVANT"))
	assert.True(t, IsRelevant("relevant"))
	assert.True(t, IsRelevant("POTENTIALLY_RELEVANT"))
	assert.True(t, IsRelevant("This article is potentially_relevant to our interests."))
	assert.False(t, IsRelevant("NOT_RELEVANT"))
	assert.False(t, IsRelevant(""))
}

func TestParseCategories(t *testing.T) {
	assert.Equal(t, []string{"Outage", "Security"}, ParseCategories("Outage, Security"))
	assert.Equal(t, []string{"Outage"}, ParseCategories("  Outage  "))
	assert.Nil(t, ParseCategories(""))
	assert.Nil(t, ParseCategories(" , , "))
	assert.Equal(t, []string{"A", "B", "C"}, ParseCategories("A,B,,C,"))
}

func TestBoolLabel(t *testing.T) {
	assert.Equal(t, "true", boolLabel(true))
	assert.Equal(t, "false", boolLabel(false))
}
