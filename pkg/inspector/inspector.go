package inspector

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/opus-domini/sentinel/pkg/broker"
	"github.com/opus-domini/sentinel/pkg/log"
	"github.com/opus-domini/sentinel/pkg/metrics"
	"github.com/opus-domini/sentinel/pkg/sentinelerr"
	"github.com/opus-domini/sentinel/pkg/types"
	"github.com/opus-domini/sentinel/pkg/vectorstore"
)

const (
	rankedEventsStream  = "ranked-events-stream"
	rankedEventsSubject = "ranked.events"
)

// Worker is the inspector stage: it consumes ranked.events, retrieves the
// stored payload, merges in the ranker's final_score, runs the configured
// detectors in order with short-circuit evaluation, and patches
// is_anomaly=true only when one trips.
type Worker struct {
	broker    *broker.Broker
	store     *vectorstore.Store
	detectors []Detector
}

// New builds an inspector Worker.
func New(b *broker.Broker, store *vectorstore.Store, detectors []Detector) *Worker {
	return &Worker{broker: b, store: store, detectors: detectors}
}

// EnsureStreams idempotently creates the stream the inspector consumes.
func (w *Worker) EnsureStreams(ctx context.Context) error {
	return w.broker.EnsureStream(ctx, broker.StreamSpec{Name: rankedEventsStream, Subject: rankedEventsSubject})
}

// Run subscribes to ranked.events and handles deliveries until ctx is
// canceled.
func (w *Worker) Run(ctx context.Context) error {
	sub, err := broker.NewSubscriber(ctx, w.broker, rankedEventsStream, broker.ConsumerSpec{
		Durable:       "inspector",
		FilterSubject: rankedEventsSubject,
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
	var ranked types.RankedEvent
	if err := json.Unmarshal(d.Data, &ranked); err != nil {
		log.WithSubject(d.Subject).Warn().Err(err).Msg("undecodable ranked.events payload, dropping")
		return broker.AckWarn
	}
	msgLog := log.WithMessageContext(d.Subject, d.StreamSeq, ranked.ID)

	event, err := w.store.RetrieveByID(ctx, ranked.ID)
	if err != nil {
		var notFound *sentinelerr.NotFound
		if errors.As(err, &notFound) {
			msgLog.Warn().Msg("ranked event has no stored record, skipping")
			return broker.Ack
		}
		msgLog.Warn().Err(err).Msg("retrieve for inspection failed")
		return broker.Nak
	}
	event.FinalScore = &ranked.FinalScore

	anomalous, kind, err := w.evaluate(ctx, *event)
	if err != nil {
		msgLog.Warn().Err(err).Msg("detector evaluation failed")
		return broker.Nak
	}

	if anomalous {
		metrics.AnomaliesDetected.WithLabelValues(kind).Inc()
		if err := w.store.Patch(ctx, ranked.ID, map[string]any{"is_anomaly": true}); err != nil {
			msgLog.Warn().Err(err).Msg("anomaly patch failed")
			return broker.Nak
		}
		msgLog.Info().Str("detector", kind).Msg("anomaly flagged")
	}

	return broker.Ack
}

// evaluate runs detectors in order, stopping at the first that trips.
func (w *Worker) evaluate(ctx context.Context, event Event) (bool, string, error) {
	for _, d := range w.detectors {
		anomalous, err := d.Evaluate(ctx, event)
		if err != nil {
			return false, "", err
		}
		if anomalous {
			return true, d.Kind(), nil
		}
	}
	return false, "", nil
}
