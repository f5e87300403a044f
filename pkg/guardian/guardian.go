// Package guardian watches the broker's max-deliveries advisory feed,
// fetches the message that exhausted its redelivery budget, dispatches an
// alert to every configured Alerter, and removes the message from its
// stream.
package guardian

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/opus-domini/sentinel/pkg/broker"
	"github.com/opus-domini/sentinel/pkg/log"
	"github.com/opus-domini/sentinel/pkg/metrics"
)

// Worker is the guardian.
type Worker struct {
	broker   *broker.Broker
	alerters []Alerter
}

// New builds a guardian Worker.
func New(b *broker.Broker, alerters []Alerter) *Worker {
	return &Worker{broker: b, alerters: alerters}
}

// EnsureStreams idempotently creates the stream capturing max-deliveries
// advisories.
func (w *Worker) EnsureStreams(ctx context.Context) error {
	return w.broker.EnsureAdvisoryStream(ctx)
}

// Run subscribes to the advisory stream and handles deliveries until ctx
// is canceled. max_deliver is 1: an advisory the guardian cannot process
// is not worth redelivering, since the alert it would produce is itself
// the failure signal.
func (w *Worker) Run(ctx context.Context) error {
	sub, err := broker.NewSubscriber(ctx, w.broker, broker.AdvisoryStreamName, broker.ConsumerSpec{
		Durable:       "guardian",
		FilterSubject: broker.MaxDeliveriesAdvisorySubject,
		AckWait:       30 * time.Second,
		MaxDeliver:    1,
		MaxAckPending: 10,
	})
	if err != nil {
		return err
	}
	return sub.Run(ctx, w.handle)
}

func (w *Worker) handle(ctx context.Context, d broker.Delivery) broker.Disposition {
	guardianLog := log.WithComponent("guardian")

	advisory, err := broker.ParseMaxDeliveriesAdvisory(d.Data)
	if err != nil {
		guardianLog.Warn().Err(err).Msg("malformed max-deliveries advisory, dropping")
		return broker.AckWarn
	}
	metrics.DeadLetteredTotal.WithLabelValues(advisory.Stream).Inc()

	msg, err := w.broker.GetStreamMessage(ctx, advisory.Stream, advisory.StreamSeq)
	if err != nil {
		guardianLog.Warn().Err(err).Str("stream", advisory.Stream).Uint64("stream_seq", advisory.StreamSeq).
			Msg("failed to fetch dead-lettered message")
		return broker.Ack
	}

	messageType := msg.MessageType
	if messageType == "" {
		messageType = "unknown"
	}

	subject := "dead letter: " + msg.Subject
	message := "message exceeded max_deliver and was routed to the dead-letter queue"
	details := map[string]any{
		"stream":       advisory.Stream,
		"consumer":     advisory.Consumer,
		"stream_seq":   advisory.StreamSeq,
		"deliveries":   advisory.Deliveries,
		"subject":      msg.Subject,
		"message-type": messageType,
	}

	w.dispatch(ctx, subject, message, details)

	if err := w.broker.DeleteStreamMessage(ctx, advisory.Stream, advisory.StreamSeq); err != nil {
		guardianLog.Warn().Err(err).Str("stream", advisory.Stream).Uint64("stream_seq", advisory.StreamSeq).
			Msg("failed to delete dead-lettered message")
	}
	return broker.Ack
}

// dispatch sends the alert to every configured alerter concurrently,
// logging (not failing the guardian) on a per-alerter error.
func (w *Worker) dispatch(ctx context.Context, subject, message string, details map[string]any) {
	var g errgroup.Group
	for _, alerter := range w.alerters {
		alerter := alerter
		g.Go(func() error {
			err := alerter.SendAlert(ctx, subject, message, details)
			outcome := "ok"
			if err != nil {
				outcome = "error"
				log.WithComponent("guardian").Warn().Err(err).Str("alerter", alerter.Name()).Msg("alert dispatch failed")
			}
			metrics.AlertsDispatched.WithLabelValues(alerter.Name(), outcome).Inc()
			return nil
		})
	}
	_ = g.Wait()
}
