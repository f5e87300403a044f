package vectorstore

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

var uuidShape = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

func TestPhysicalKeyDeterministic(t *testing.T) {
	a := PhysicalKey("article-123")
	b := PhysicalKey("article-123")
	assert.Equal(t, a, b)
}

func TestPhysicalKeyDistinctInputs(t *testing.T) {
	a := PhysicalKey("article-123")
	b := PhysicalKey("article-124")
	assert.NotEqual(t, a, b)
}

func TestPhysicalKeyShape(t *testing.T) {
	key := PhysicalKey("https://example.com/news/1")
	assert.Regexp(t, uuidShape, key)
}

func TestPhysicalKeyEmptyInput(t *testing.T) {
	key := PhysicalKey("")
	assert.Regexp(t, uuidShape, key)
}
