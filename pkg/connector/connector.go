package connector

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/opus-domini/sentinel/pkg/broker"
	"github.com/opus-domini/sentinel/pkg/dedup"
	"github.com/opus-domini/sentinel/pkg/log"
	"github.com/opus-domini/sentinel/pkg/metrics"
	"github.com/opus-domini/sentinel/pkg/types"
)

const (
	pollSourceStream  = "poll-source-stream"
	pollSourceSubject = "poll.source"
	rawEventsStream   = "raw-events-stream"
	rawEventsSubject  = "raw.events"

	// titleMaxLength truncates a RawEvent's title, per spec.md §4.5.
	titleMaxLength = 200
)

// Worker consumes poll.source, scrapes the source, deduplicates candidate
// links against its dedup table, and emits RawEvent messages for the ones
// it has not seen before.
type Worker struct {
	broker  *broker.Broker
	dedup   *dedup.Store
	scraper Scraper
}

// New builds a connector Worker.
func New(b *broker.Broker, d *dedup.Store, scraper Scraper) *Worker {
	return &Worker{broker: b, dedup: d, scraper: scraper}
}

// EnsureStreams idempotently creates the streams the connector owns as a
// consumer and producer.
func (w *Worker) EnsureStreams(ctx context.Context) error {
	for _, spec := range []broker.StreamSpec{
		{Name: pollSourceStream, Subject: pollSourceSubject},
		{Name: rawEventsStream, Subject: rawEventsSubject},
	} {
		if err := w.broker.EnsureStream(ctx, spec); err != nil {
			return err
		}
	}
	return nil
}

// Run subscribes to poll.source and handles deliveries until ctx is
// canceled.
func (w *Worker) Run(ctx context.Context) error {
	sub, err := broker.NewSubscriber(ctx, w.broker, pollSourceStream, broker.ConsumerSpec{
		Durable:       "connector",
		FilterSubject: pollSourceSubject,
		AckWait:       60 * time.Second,
		MaxDeliver:    5,
		MaxAckPending: 10,
	})
	if err != nil {
		return err
	}
	return sub.Run(ctx, w.handle)
}

func (w *Worker) handle(ctx context.Context, d broker.Delivery) broker.Disposition {
	var poll types.PollSource
	if err := json.Unmarshal(d.Data, &poll); err != nil {
		log.WithSubject(d.Subject).Warn().Err(err).Msg("undecodable poll.source payload, dropping")
		return broker.AckWarn
	}
	msgLog := log.WithMessageContext(d.Subject, d.StreamSeq, "")

	url := sourceURL(poll)
	if !strings.HasPrefix(url, "http") {
		msgLog.Warn().Int64("source_id", poll.ID).Str("url", url).Msg("source has non-http(s) url, nothing to scrape")
		return broker.Ack
	}

	timer := metrics.NewTimer()
	candidates, err := w.scraper.Fetch(ctx, url)
	timer.ObserveDurationVec(metrics.ScrapeDuration, poll.Name)
	if err != nil {
		msgLog.Warn().Err(err).Int64("source_id", poll.ID).Msg("scrape failed")
		return broker.Nak
	}
	metrics.ItemsScraped.WithLabelValues(poll.Name).Add(float64(len(candidates)))

	fresh, err := w.dedup.MarkSeenBatch(poll.ID, candidates)
	if err != nil {
		msgLog.Warn().Err(err).Int64("source_id", poll.ID).Msg("dedup batch failed")
		return broker.Nak
	}
	metrics.ItemsDeduplicated.WithLabelValues(poll.Name).Add(float64(len(candidates) - len(fresh)))

	for _, c := range fresh {
		event := types.RawEvent{
			ID:        uuid.NewString(),
			Source:    poll.Name,
			Title:     truncate(c.Title, titleMaxLength),
			Content:   c.Title,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}
		payload, err := json.Marshal(event)
		if err != nil {
			msgLog.Error().Err(err).Str("href", c.Href).Msg("marshal raw event failed")
			return broker.Nak
		}
		if err := w.broker.Publish(ctx, rawEventsSubject, "RawEvent", payload); err != nil {
			msgLog.Warn().Err(err).Str("href", c.Href).Msg("publish raw event failed")
			return broker.Nak
		}
	}

	msgLog.Info().Int64("source_id", poll.ID).Int("scraped", len(candidates)).Int("new", len(fresh)).Msg("poll.source processed")
	return broker.Ack
}

// sourceURL resolves the scrape target: config_json.url, falling back to
// the source name, per spec.md §4.5.
func sourceURL(poll types.PollSource) string {
	var cfg map[string]string
	if poll.ConfigJSON != "" {
		_ = json.Unmarshal([]byte(poll.ConfigJSON), &cfg)
	}
	if u, ok := cfg["url"]; ok && u != "" {
		return u
	}
	return poll.Name
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
