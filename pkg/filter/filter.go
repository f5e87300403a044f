// Package filter consumes raw.events, asks the pluggable LLM classifier
// whether an article is relevant and, if so, which categories it belongs
// to, upserts the full event into the vector store, and publishes a
// FilteredEvent for the ranker.
package filter

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/opus-domini/sentinel/pkg/broker"
	"github.com/opus-domini/sentinel/pkg/config"
	"github.com/opus-domini/sentinel/pkg/llm"
	"github.com/opus-domini/sentinel/pkg/log"
	"github.com/opus-domini/sentinel/pkg/metrics"
	"github.com/opus-domini/sentinel/pkg/types"
	"github.com/opus-domini/sentinel/pkg/vectorstore"
)

const (
	rawEventsStream       = "raw-events-stream"
	rawEventsSubject      = "raw.events"
	filteredEventsStream  = "filtered-events-stream"
	filteredEventsSubject = "filtered.events"
)

// Worker is the filter stage.
type Worker struct {
	broker     *broker.Broker
	store      *vectorstore.Store
	classifier llm.Classifier
	cfg        config.FilterConfig
}

// New builds a filter Worker.
func New(b *broker.Broker, store *vectorstore.Store, classifier llm.Classifier, cfg config.FilterConfig) *Worker {
	return &Worker{broker: b, store: store, classifier: classifier, cfg: cfg}
}

// EnsureStreams idempotently creates the streams the filter owns as a
// consumer and producer.
func (w *Worker) EnsureStreams(ctx context.Context) error {
	for _, spec := range []broker.StreamSpec{
		{Name: rawEventsStream, Subject: rawEventsSubject},
		{Name: filteredEventsStream, Subject: filteredEventsSubject},
	} {
		if err := w.broker.EnsureStream(ctx, spec); err != nil {
			return err
		}
	}
	return nil
}

// Run subscribes to raw.events and handles deliveries until ctx is
// canceled.
func (w *Worker) Run(ctx context.Context) error {
	sub, err := broker.NewSubscriber(ctx, w.broker, rawEventsStream, broker.ConsumerSpec{
		Durable:       "filter",
		FilterSubject: rawEventsSubject,
		AckWait:       60 * time.Second,
		MaxDeliver:    3,
		MaxAckPending: 20,
	})
	if err != nil {
		return err
	}
	return sub.Run(ctx, w.handle)
}

func (w *Worker) handle(ctx context.Context, d broker.Delivery) broker.Disposition {
	var raw types.RawEvent
	if err := json.Unmarshal(d.Data, &raw); err != nil {
		log.WithSubject(d.Subject).Warn().Err(err).Msg("undecodable raw.events payload, dropping")
		return broker.AckWarn
	}
	msgLog := log.WithMessageContext(d.Subject, d.StreamSeq, raw.ID)

	relevanceTimer := metrics.NewTimer()
	relevancePrompt := strings.ReplaceAll(w.cfg.RelevancePrompt, "{article_content}", raw.Content)
	relevanceResp, err := w.classifier.Classify(ctx, relevancePrompt)
	relevanceTimer.ObserveDuration(metrics.ClassifyDuration)
	if err != nil {
		msgLog.Warn().Err(err).Msg("relevance classification failed")
		return broker.Nak
	}

	isRelevant := IsRelevant(relevanceResp)
	metrics.EventsClassified.WithLabelValues(boolLabel(isRelevant)).Inc()
	if !isRelevant {
		msgLog.Info().Msg("event deemed irrelevant, dropping")
		return broker.Ack
	}

	categoryPrompt := strings.ReplaceAll(w.cfg.CategoryPrompt, "{article_content}", raw.Content)
	categoryResp, err := w.classifier.Classify(ctx, categoryPrompt)
	if err != nil {
		msgLog.Warn().Err(err).Msg("category classification failed")
		return broker.Nak
	}
	categories := ParseCategories(categoryResp)

	stored := types.StoredEvent{
		OriginalID: raw.ID,
		Title:      raw.Title,
		Content:    raw.Content,
		Timestamp:  raw.Timestamp,
		Source:     raw.Source,
		Categories: categories,
		IsRelevant: true,
	}
	if err := w.store.Upsert(ctx, stored); err != nil {
		msgLog.Warn().Err(err).Msg("vector store upsert failed")
		return broker.Nak
	}

	filtered := types.FilteredEvent{
		ID:         raw.ID,
		Title:      raw.Title,
		Timestamp:  raw.Timestamp,
		Source:     raw.Source,
		Categories: categories,
		IsRelevant: true,
	}
	payload, err := json.Marshal(filtered)
	if err != nil {
		msgLog.Error().Err(err).Msg("marshal filtered event failed")
		return broker.Nak
	}
	if err := w.broker.Publish(ctx, filteredEventsSubject, "FilteredEvent", payload); err != nil {
		msgLog.Warn().Err(err).Msg("publish filtered event failed")
		return broker.Nak
	}

	msgLog.Info().Strs("categories", categories).Msg("raw event filtered")
	return broker.Ack
}

// IsRelevant reports whether an LLM relevance response marks an event
// relevant, per spec.md §4.6: a case-insensitive "RELEVANT" or
// "POTENTIALLY_RELEVANT" verdict, excluding "NOT_RELEVANT".
func IsRelevant(response string) bool {
	upper := strings.ToUpper(response)
	if strings.Contains(upper, "NOT_RELEVANT") || strings.Contains(upper, "NOT RELEVANT") {
		return false
	}
	return strings.Contains(upper, "RELEVANT")
}

// ParseCategories splits an LLM category response on commas, trimming
// whitespace and dropping empty entries.
func ParseCategories(response string) []string {
	var categories []string
	for _, c := range strings.Split(response, ",") {
		c = strings.TrimSpace(c)
		if c != "" {
			categories = append(categories, c)
		}
	}
	return categories
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
