package guardian

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAlerter struct {
	name string
	err  error

	mu    sync.Mutex
	calls int
}

func (f *fakeAlerter) Name() string { return f.name }

func (f *fakeAlerter) SendAlert(_ context.Context, _, _ string, _ map[string]any) error {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.err
}

func TestWorkerDispatchCallsEveryAlerter(t *testing.T) {
	a := &fakeAlerter{name: "logging"}
	b := &fakeAlerter{name: "fake_message", err: errors.New("webhook down")}
	w := New(nil, []Alerter{a, b})

	w.dispatch(context.Background(), "subj", "msg", map[string]any{"k": "v"})

	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 1, b.calls)
}

func TestNewFakeChatAlerterRequiresWebhookURL(t *testing.T) {
	_, err := NewFakeChatAlerter("", nil)
	assert.Error(t, err)
}

func TestNewFakeChatAlerterAcceptsURL(t *testing.T) {
	a, err := NewFakeChatAlerter("https://hooks.example.com/alert", nil)
	require.NoError(t, err)
	assert.Equal(t, "fake_message", a.Name())
}

func TestLogAlerterNeverFails(t *testing.T) {
	a := NewLogAlerter()
	assert.Equal(t, "logging", a.Name())
	err := a.SendAlert(context.Background(), "subj", "msg", map[string]any{"k": "v"})
	assert.NoError(t, err)
}
