package llm

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opus-domini/sentinel/pkg/config"
	"github.com/opus-domini/sentinel/pkg/sentinelerr"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func fakeResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

func TestNewRejectsUnsupportedProvider(t *testing.T) {
	_, err := New(config.LLM{Provider: "cohere"}, nil)
	require.Error(t, err)
	var cfgErr *sentinelerr.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestNewRequiresOpenAIKey(t *testing.T) {
	_, err := New(config.LLM{Provider: "openai"}, nil)
	require.Error(t, err)
	var cfgErr *sentinelerr.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestNewRequiresAnthropicKey(t *testing.T) {
	_, err := New(config.LLM{Provider: "anthropic"}, nil)
	require.Error(t, err)
	var cfgErr *sentinelerr.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestOpenAIClassifyParsesContent(t *testing.T) {
	client := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		return fakeResponse(200, `{"choices":[{"message":{"content":"RELEVANT"}}]}`), nil
	})}

	classifier, err := New(config.LLM{Provider: "openai", ModelName: "gpt-4o-mini", OpenAIKey: "test-key"}, client)
	require.NoError(t, err)

	answer, err := classifier.Classify(context.Background(), "is this relevant?")
	require.NoError(t, err)
	assert.Equal(t, "RELEVANT", answer)
}

func TestOpenAIClassifyErrorStatus(t *testing.T) {
	client := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		return fakeResponse(500, `{"error":"boom"}`), nil
	})}

	classifier, err := New(config.LLM{Provider: "openai", OpenAIKey: "k"}, client)
	require.NoError(t, err)

	_, err = classifier.Classify(context.Background(), "prompt")
	require.Error(t, err)
	var depErr *sentinelerr.DependencyError
	assert.ErrorAs(t, err, &depErr)
}

func TestAnthropicClassifyParsesContent(t *testing.T) {
	client := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		return fakeResponse(200, `{"content":[{"text":"outage,cybersecurity"}]}`), nil
	})}

	classifier, err := New(config.LLM{Provider: "anthropic", AnthropicKey: "test-key"}, client)
	require.NoError(t, err)

	answer, err := classifier.Classify(context.Background(), "categorize")
	require.NoError(t, err)
	assert.Equal(t, "outage,cybersecurity", answer)
}
