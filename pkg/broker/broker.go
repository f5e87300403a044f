package broker

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/opus-domini/sentinel/pkg/config"
	"github.com/opus-domini/sentinel/pkg/log"
	"github.com/opus-domini/sentinel/pkg/metrics"
	"github.com/opus-domini/sentinel/pkg/sentinelerr"
)

// Disposition is what a worker decides to do with a delivered message once
// its handler returns.
type Disposition int

const (
	// Ack confirms successful processing; the message will not redeliver.
	Ack Disposition = iota
	// Nak asks the broker to redeliver, honoring max_deliver before the
	// message routes to the dead-letter advisory subject.
	Nak
	// AckWarn acks a message that could never be processed correctly (a
	// schema error) to avoid poisoning the consumer with endless
	// redeliveries, while still logging it as a warning.
	AckWarn
)

func (d Disposition) String() string {
	switch d {
	case Ack:
		return "ack"
	case Nak:
		return "nak"
	case AckWarn:
		return "ack_warn"
	default:
		return "unknown"
	}
}

// StreamSpec describes a durable, work-queue-retention JetStream stream
// bound to a single subject.
type StreamSpec struct {
	Name    string
	Subject string
}

// Broker owns one NATS connection and its JetStream context. A single
// Broker is shared by a service's publisher and subscriber(s).
type Broker struct {
	conn *nats.Conn
	js   jetstream.JetStream
}

// Connect dials NATS with Sentinel's reconnect policy: retry the initial
// connect, then reconnect up to the configured attempt cap, waiting the
// configured interval between attempts.
func Connect(ctx context.Context, cfg config.Broker) (*Broker, error) {
	opts := []nats.Option{
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(cfg.MaxReconnectAttempts),
		nats.ReconnectWait(cfg.ReconnectTimeWait),
		nats.Timeout(cfg.ConnectTimeout),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				brokerLog := log.WithComponent("broker")
				brokerLog.Warn().Err(err).Msg("nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			brokerLog := log.WithComponent("broker")
			brokerLog.Info().Str("url", nc.ConnectedUrl()).Msg("nats reconnected")
		}),
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, &sentinelerr.BrokerUnavailable{Op: "connect", Err: err}
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, &sentinelerr.BrokerUnavailable{Op: "jetstream init", Err: err}
	}

	return &Broker{conn: conn, js: js}, nil
}

// Close drains and closes the underlying NATS connection.
func (b *Broker) Close() {
	if b.conn != nil {
		_ = b.conn.Drain()
	}
}

// EnsureStream idempotently creates or updates a durable, work-queue
// retention stream. Called once at service startup by whichever service
// owns the stream's subject.
func (b *Broker) EnsureStream(ctx context.Context, spec StreamSpec) error {
	_, err := b.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      spec.Name,
		Subjects:  []string{spec.Subject},
		Retention: jetstream.WorkQueuePolicy,
		Storage:   jetstream.FileStorage,
	})
	if err != nil {
		return &sentinelerr.BrokerUnavailable{Op: fmt.Sprintf("ensure stream %s", spec.Name), Err: err}
	}
	return nil
}

// Publish sends payload to subject, adding a message-type header so
// consumers can route by payload schema without parsing the body first.
func (b *Broker) Publish(ctx context.Context, subject, messageType string, payload []byte) error {
	msg := nats.NewMsg(subject)
	msg.Data = payload
	msg.Header.Set("message-type", messageType)

	if _, err := b.js.PublishMsg(ctx, msg); err != nil {
		return &sentinelerr.BrokerUnavailable{Op: fmt.Sprintf("publish %s", subject), Err: err}
	}
	metrics.MessagesPublished.WithLabelValues(subject).Inc()
	return nil
}

// TCPChecker-compatible address for a readiness Checker against the
// broker; exposed so services can build a health.TCPChecker without
// parsing the NATS URL themselves.
func (b *Broker) ConnectedAddr() string {
	if b.conn == nil {
		return ""
	}
	return b.conn.ConnectedAddr()
}

// ConsumerSpec configures a durable pull consumer.
type ConsumerSpec struct {
	Durable       string
	FilterSubject string
	AckWait       time.Duration
	MaxDeliver    int
	MaxAckPending int
}

// Subscriber pulls messages from one durable JetStream consumer and
// dispatches them to a Handler, applying the Handler's returned
// Disposition.
type Subscriber struct {
	broker   *Broker
	stream   string
	consumer jetstream.Consumer
	subject  string
}

// Handler processes one delivered message and returns how the broker
// should dispose of it.
type Handler func(ctx context.Context, delivery Delivery) Disposition

// Delivery wraps one JetStream message with the metadata workers log at
// every ack/nak transition.
type Delivery struct {
	Subject       string
	MessageType   string
	Data          []byte
	StreamSeq     uint64
	DeliveryCount uint64
	msg           jetstream.Msg
}

// NewSubscriber binds to (creating if absent) a durable pull consumer on
// stream, filtered to spec.FilterSubject.
func NewSubscriber(ctx context.Context, b *Broker, stream string, spec ConsumerSpec) (*Subscriber, error) {
	str, err := b.js.Stream(ctx, stream)
	if err != nil {
		return nil, &sentinelerr.BrokerUnavailable{Op: fmt.Sprintf("bind stream %s", stream), Err: err}
	}

	consumer, err := str.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Durable:       spec.Durable,
		FilterSubject: spec.FilterSubject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       spec.AckWait,
		MaxDeliver:    spec.MaxDeliver,
		MaxAckPending: spec.MaxAckPending,
	})
	if err != nil {
		return nil, &sentinelerr.BrokerUnavailable{Op: fmt.Sprintf("create consumer %s", spec.Durable), Err: err}
	}

	return &Subscriber{broker: b, stream: stream, consumer: consumer, subject: spec.FilterSubject}, nil
}

// Run pulls messages in batches and dispatches each to handler until ctx
// is canceled. It never retries independently of the broker: a handler's
// Disposition is the only thing that decides whether a message redelivers.
func (s *Subscriber) Run(ctx context.Context, handler Handler) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		msgs, err := s.consumer.Fetch(10, jetstream.FetchMaxWait(5*time.Second))
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			subjLog := log.WithSubject(s.subject)
			subjLog.Warn().Err(err).Msg("fetch failed, retrying")
			continue
		}

		for msg := range msgs.Messages() {
			s.dispatch(ctx, msg, handler)
		}
		if err := msgs.Error(); err != nil && ctx.Err() == nil {
			subjLog := log.WithSubject(s.subject)
			subjLog.Debug().Err(err).Msg("fetch batch ended with error")
		}
	}
}

func (s *Subscriber) dispatch(ctx context.Context, msg jetstream.Msg, handler Handler) {
	meta, err := msg.Metadata()
	var seq, deliveries uint64
	if err == nil {
		seq = meta.Sequence.Stream
		deliveries = meta.NumDelivered
	}
	if deliveries > 1 {
		metrics.RedeliveriesTotal.WithLabelValues(s.subject).Inc()
	}

	delivery := Delivery{
		Subject:       s.subject,
		MessageType:   msg.Headers().Get("message-type"),
		Data:          msg.Data(),
		StreamSeq:     seq,
		DeliveryCount: deliveries,
		msg:           msg,
	}

	msgLog := log.WithMessageContext(delivery.Subject, delivery.StreamSeq, "")

	disposition := handler(ctx, delivery)
	metrics.MessagesConsumed.WithLabelValues(s.subject, disposition.String()).Inc()

	switch disposition {
	case Ack:
		if err := msg.Ack(); err != nil {
			msgLog.Warn().Err(err).Msg("ack failed")
		}
	case AckWarn:
		msgLog.Warn().Msg("ack with warning: undeliverable payload, dropping")
		if err := msg.Ack(); err != nil {
			msgLog.Warn().Err(err).Msg("ack failed")
		}
	case Nak:
		msgLog.Warn().Uint64("delivery_count", delivery.DeliveryCount).Msg("nak: redelivery requested")
		if err := msg.Nak(); err != nil {
			msgLog.Warn().Err(err).Msg("nak failed")
		}
	}
}
