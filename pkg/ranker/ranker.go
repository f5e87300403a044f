// Package ranker consumes filtered.events, scores each event's importance
// and recency, combines them into a final_score, patches the three scores
// into the vector store, and publishes a RankedEvent for the inspector.
package ranker

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"github.com/opus-domini/sentinel/pkg/broker"
	"github.com/opus-domini/sentinel/pkg/config"
	"github.com/opus-domini/sentinel/pkg/log"
	"github.com/opus-domini/sentinel/pkg/metrics"
	"github.com/opus-domini/sentinel/pkg/types"
	"github.com/opus-domini/sentinel/pkg/vectorstore"
)

const (
	filteredEventsStream  = "filtered-events-stream"
	filteredEventsSubject = "filtered.events"
	rankedEventsStream    = "ranked-events-stream"
	rankedEventsSubject   = "ranked.events"
)

// Worker is the ranker stage.
type Worker struct {
	broker *broker.Broker
	store  *vectorstore.Store
	cfg    config.RankerConfig
	now    func() time.Time
}

// New builds a ranker Worker.
func New(b *broker.Broker, store *vectorstore.Store, cfg config.RankerConfig) *Worker {
	return &Worker{broker: b, store: store, cfg: cfg, now: time.Now}
}

// EnsureStreams idempotently creates the streams the ranker owns as a
// consumer and producer.
func (w *Worker) EnsureStreams(ctx context.Context) error {
	for _, spec := range []broker.StreamSpec{
		{Name: filteredEventsStream, Subject: filteredEventsSubject},
		{Name: rankedEventsStream, Subject: rankedEventsSubject},
	} {
		if err := w.broker.EnsureStream(ctx, spec); err != nil {
			return err
		}
	}
	return nil
}

// Run subscribes to filtered.events and handles deliveries until ctx is
// canceled.
func (w *Worker) Run(ctx context.Context) error {
	sub, err := broker.NewSubscriber(ctx, w.broker, filteredEventsStream, broker.ConsumerSpec{
		Durable:       "ranker",
		FilterSubject: filteredEventsSubject,
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
	var filtered types.FilteredEvent
	if err := json.Unmarshal(d.Data, &filtered); err != nil {
		log.WithSubject(d.Subject).Warn().Err(err).Msg("undecodable filtered.events payload, dropping")
		return broker.AckWarn
	}
	msgLog := log.WithMessageContext(d.Subject, d.StreamSeq, filtered.ID)

	importance := ImportanceScore(filtered.Categories, w.cfg)
	recency := RecencyScore(filtered.Timestamp, w.cfg.RecencyDecay, w.now())
	final := FinalScore(importance, recency, w.cfg.RankingParameters)

	err := w.store.Patch(ctx, filtered.ID, map[string]any{
		"importance_score": importance,
		"recency_score":    recency,
		"final_score":      final,
	})
	if err != nil {
		msgLog.Warn().Err(err).Msg("vector store patch failed")
		return broker.Nak
	}
	metrics.EventsRanked.Inc()
	metrics.FinalScoreObserved.Observe(final)

	ranked := types.RankedEvent{
		ID:              filtered.ID,
		Title:           filtered.Title,
		Timestamp:       filtered.Timestamp,
		Source:          filtered.Source,
		Categories:      filtered.Categories,
		IsRelevant:      filtered.IsRelevant,
		ImportanceScore: importance,
		RecencyScore:    recency,
		FinalScore:      final,
	}
	payload, err := json.Marshal(ranked)
	if err != nil {
		msgLog.Error().Err(err).Msg("marshal ranked event failed")
		return broker.Nak
	}
	if err := w.broker.Publish(ctx, rankedEventsSubject, "RankedEvent", payload); err != nil {
		msgLog.Warn().Err(err).Msg("publish ranked event failed")
		return broker.Nak
	}

	msgLog.Info().Float64("final_score", final).Msg("filtered event ranked")
	return broker.Ack
}

// ImportanceScore sums the configured category weight for each of the
// event's categories, falling back to the "Other" weight for any category
// the config doesn't name. An event with no categories at all scores as a
// single "Other".
func ImportanceScore(categories []string, cfg config.RankerConfig) float64 {
	other := cfg.CategoryImportance["Other"]
	if len(categories) == 0 {
		return other
	}
	var total float64
	for _, c := range categories {
		if w, ok := cfg.CategoryImportance[c]; ok {
			total += w
		} else {
			total += other
		}
	}
	return total
}

// RecencyScore applies exponential decay: max_score * 0.5^(age/half_life).
// A timestamp that fails to parse as RFC3339 is treated as "now" (age 0),
// so a malformed timestamp never nulls out the event's recency boost.
func RecencyScore(timestamp string, decay config.RecencyDecay, now time.Time) float64 {
	ts, err := time.Parse(time.RFC3339, timestamp)
	if err != nil {
		return decay.MaxScore
	}
	age := now.Sub(ts).Seconds()
	if age < 0 {
		age = 0
	}
	halfLifeSeconds := decay.HalfLifeHours * 3600
	return decay.MaxScore * math.Pow(0.5, age/halfLifeSeconds)
}

// FinalScore combines importance and recency under the configured weights.
func FinalScore(importance, recency float64, params config.RankingParameters) float64 {
	return params.ImportanceWeight*importance + params.RecencyWeight*recency
}
