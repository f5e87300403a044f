package retrieval

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLimitParamDefaultsWhenAbsent(t *testing.T) {
	r := httptest.NewRequest("GET", "/news", nil)
	assert.Equal(t, defaultLimit, limitParam(r))
}

func TestLimitParamParsesValid(t *testing.T) {
	r := httptest.NewRequest("GET", "/news?limit=5", nil)
	assert.Equal(t, 5, limitParam(r))
}

func TestLimitParamFallsBackOnInvalid(t *testing.T) {
	r := httptest.NewRequest("GET", "/news?limit=abc", nil)
	assert.Equal(t, defaultLimit, limitParam(r))

	r = httptest.NewRequest("GET", "/news?limit=-3", nil)
	assert.Equal(t, defaultLimit, limitParam(r))
}

func TestWriteJSONWritesStatusAndBody(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, "/news", 200, map[string]string{"a": "b"})
	assert.Equal(t, 200, rec.Code)
	assert.JSONEq(t, `{"a":"b"}`, rec.Body.String())
}
