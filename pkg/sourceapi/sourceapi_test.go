package sourceapi

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/opus-domini/sentinel/pkg/sentinelerr"
)

func TestStatusForNotFound(t *testing.T) {
	assert.Equal(t, 404, statusFor(&sentinelerr.NotFound{Kind: "source", ID: "1"}))
}

func TestStatusForOtherError(t *testing.T) {
	assert.Equal(t, 500, statusFor(&sentinelerr.DbError{Op: "get", Err: assertErr{}}))
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }

func TestWriteJSONSetsContentType(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, "/sources", 200, map[string]string{"k": "v"})
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, 200, rec.Code)
	assert.JSONEq(t, `{"k":"v"}`, rec.Body.String())
}

func TestWriteErrorSetsContentType(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, "/sources", 404, assertErr{})
	assert.Equal(t, 404, rec.Code)
	assert.JSONEq(t, `{"error":"boom"}`, rec.Body.String())
}
