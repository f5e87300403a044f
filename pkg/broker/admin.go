package broker

import (
	"context"
	"fmt"

	"github.com/opus-domini/sentinel/pkg/sentinelerr"
)

// StreamMessage is the raw message a stream stores at a given sequence,
// with the same message-type header every Delivery carries.
type StreamMessage struct {
	Subject     string
	MessageType string
	Data        []byte
}

// GetStreamMessage fetches the message at seq from stream, for the
// guardian to inspect a dead-lettered delivery by the sequence number
// carried on its advisory.
func (b *Broker) GetStreamMessage(ctx context.Context, stream string, seq uint64) (StreamMessage, error) {
	str, err := b.js.Stream(ctx, stream)
	if err != nil {
		return StreamMessage{}, &sentinelerr.BrokerUnavailable{Op: fmt.Sprintf("bind stream %s", stream), Err: err}
	}

	raw, err := str.GetMsg(ctx, seq)
	if err != nil {
		return StreamMessage{}, &sentinelerr.BrokerUnavailable{Op: fmt.Sprintf("get message %s#%d", stream, seq), Err: err}
	}

	return StreamMessage{
		Subject:     raw.Subject,
		MessageType: raw.Header.Get("message-type"),
		Data:        raw.Data,
	}, nil
}

// DeleteStreamMessage removes the message at seq from stream, once the
// guardian has dispatched every configured alert for it.
func (b *Broker) DeleteStreamMessage(ctx context.Context, stream string, seq uint64) error {
	str, err := b.js.Stream(ctx, stream)
	if err != nil {
		return &sentinelerr.BrokerUnavailable{Op: fmt.Sprintf("bind stream %s", stream), Err: err}
	}
	if err := str.DeleteMsg(ctx, seq); err != nil {
		return &sentinelerr.BrokerUnavailable{Op: fmt.Sprintf("delete message %s#%d", stream, seq), Err: err}
	}
	return nil
}
