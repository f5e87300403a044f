package broker

import (
	"context"
	"encoding/json"

	"github.com/opus-domini/sentinel/pkg/sentinelerr"
)

const (
	// MaxDeliveriesAdvisorySubject is the broker-managed subject NATS
	// publishes to whenever a consumer exhausts max_deliver on a message.
	MaxDeliveriesAdvisorySubject = "$JS.EVENT.ADVISORY.CONSUMER.MAX_DELIVERIES.>"

	// AdvisoryStreamName captures the advisory subject into a durable
	// stream so the guardian consumes advisories with the same pull
	// subscriber contract as every pipeline stage, instead of a lossy
	// core subscription.
	AdvisoryStreamName = "dlq-advisory-stream"
)

// MaxDeliveriesAdvisory is the JSON payload NATS publishes to the
// dead-letter advisory subject.
type MaxDeliveriesAdvisory struct {
	Stream     string `json:"stream"`
	Consumer   string `json:"consumer"`
	StreamSeq  uint64 `json:"stream_seq"`
	Deliveries uint64 `json:"deliveries"`
}

// ParseMaxDeliveriesAdvisory decodes an advisory payload, returning a
// SchemaError when the bytes are not a valid advisory.
func ParseMaxDeliveriesAdvisory(data []byte) (MaxDeliveriesAdvisory, error) {
	var advisory MaxDeliveriesAdvisory
	if err := json.Unmarshal(data, &advisory); err != nil {
		return MaxDeliveriesAdvisory{}, &sentinelerr.SchemaError{Subject: MaxDeliveriesAdvisorySubject, Err: err}
	}
	return advisory, nil
}

// EnsureAdvisoryStream idempotently creates the stream that captures
// max-deliveries advisories for the guardian.
func (b *Broker) EnsureAdvisoryStream(ctx context.Context) error {
	return b.EnsureStream(ctx, StreamSpec{Name: AdvisoryStreamName, Subject: MaxDeliveriesAdvisorySubject})
}
