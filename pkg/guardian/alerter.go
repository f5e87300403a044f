package guardian

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/opus-domini/sentinel/pkg/log"
	"github.com/opus-domini/sentinel/pkg/sentinelerr"
)

// Alerter dispatches a dead-letter notification somewhere a human can see
// it.
type Alerter interface {
	Name() string
	SendAlert(ctx context.Context, subject, message string, details map[string]any) error
}

// LogAlerter writes the alert as a structured warning through the
// component's logger. It never fails.
type LogAlerter struct{}

// NewLogAlerter builds a LogAlerter.
func NewLogAlerter() *LogAlerter {
	return &LogAlerter{}
}

// Name implements Alerter.
func (a *LogAlerter) Name() string { return "logging" }

// SendAlert implements Alerter.
func (a *LogAlerter) SendAlert(_ context.Context, subject, message string, details map[string]any) error {
	log.WithComponent("guardian").Warn().Str("alert_subject", subject).Interface("details", details).Msg(message)
	return nil
}

// FakeChatAlerter posts the alert as a JSON payload to a configured
// webhook URL, standing in for a real chat-ops integration.
type FakeChatAlerter struct {
	webhookURL string
	http       *http.Client
}

// NewFakeChatAlerter builds a FakeChatAlerter posting to webhookURL.
func NewFakeChatAlerter(webhookURL string, httpClient *http.Client) (*FakeChatAlerter, error) {
	if webhookURL == "" {
		return nil, &sentinelerr.ConfigError{Var: "FAKE_CHAT_WEBHOOK_URL", Reason: "required when ALERTERS includes fake_message"}
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &FakeChatAlerter{webhookURL: webhookURL, http: httpClient}, nil
}

// Name implements Alerter.
func (a *FakeChatAlerter) Name() string { return "fake_message" }

// SendAlert implements Alerter.
func (a *FakeChatAlerter) SendAlert(ctx context.Context, subject, message string, details map[string]any) error {
	body, err := json.Marshal(map[string]any{
		"subject": subject,
		"message": message,
		"details": details,
	})
	if err != nil {
		return &sentinelerr.DependencyError{Dependency: "fake_message", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.webhookURL, bytes.NewReader(body))
	if err != nil {
		return &sentinelerr.DependencyError{Dependency: "fake_message", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.http.Do(req)
	if err != nil {
		return &sentinelerr.DependencyError{Dependency: "fake_message", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return &sentinelerr.DependencyError{Dependency: "fake_message", Err: fmt.Errorf("webhook returned status %d", resp.StatusCode)}
	}
	return nil
}
