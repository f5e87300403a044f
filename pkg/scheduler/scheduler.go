package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/opus-domini/sentinel/pkg/broker"
	"github.com/opus-domini/sentinel/pkg/config"
	"github.com/opus-domini/sentinel/pkg/log"
	"github.com/opus-domini/sentinel/pkg/metrics"
	"github.com/opus-domini/sentinel/pkg/registrydb"
	"github.com/opus-domini/sentinel/pkg/sentinelerr"
	"github.com/opus-domini/sentinel/pkg/types"
)

const (
	newSourceStream     = "new-source-stream"
	removedSourceStream = "removed-source-stream"
	pollSourceStream    = "poll-source-stream"
	pollSourceSubject   = "poll.source"
)

// Scheduler maps source_id to a running timer. The map is mutated by the
// lifecycle subscribers' handlers, by Start's bootstrap pass and by timer
// callbacks (fire), all of which hold mu, so no concurrent mutation occurs.
type Scheduler struct {
	registry        *registrydb.Registry
	broker          *broker.Broker
	defaultInterval time.Duration
	logger          *zerolog.Logger

	mu   sync.Mutex
	jobs map[int64]*time.Timer
}

// New builds a Scheduler. Call Start to bootstrap jobs from the registry
// and begin reacting to lifecycle events.
func New(reg *registrydb.Registry, b *broker.Broker, cfg config.Scheduler) *Scheduler {
	interval := cfg.DefaultPollInterval
	if interval <= 0 {
		interval = 300 * time.Second
	}
	return &Scheduler{
		registry:        reg,
		broker:          b,
		defaultInterval: interval,
		logger:          log.WithComponent("scheduler"),
		jobs:            make(map[int64]*time.Timer),
	}
}

// Start reads every active source from the registry and schedules its job,
// then blocks running the lifecycle subscriber's fetch loop until ctx is
// canceled.
func (s *Scheduler) Start(ctx context.Context) error {
	sources, err := s.registry.List(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("bootstrap list failed, starting with no jobs")
	}
	for _, src := range sources {
		if src.IsActive {
			s.scheduleJob(ctx, src.ID)
		}
	}

	sub, err := broker.NewSubscriber(ctx, s.broker, newSourceStream, broker.ConsumerSpec{
		Durable:       "scheduler-new-source",
		FilterSubject: "new.source",
		AckWait:       30 * time.Second,
		MaxDeliver:    5,
		MaxAckPending: 10,
	})
	if err != nil {
		return err
	}

	removedSub, err := broker.NewSubscriber(ctx, s.broker, removedSourceStream, broker.ConsumerSpec{
		Durable:       "scheduler-removed-source",
		FilterSubject: "removed.source",
		AckWait:       30 * time.Second,
		MaxDeliver:    5,
		MaxAckPending: 10,
	})
	if err != nil {
		return err
	}

	errCh := make(chan error, 2)
	go func() { errCh <- sub.Run(ctx, s.handleNewSource(ctx)) }()
	go func() { errCh <- removedSub.Run(ctx, s.handleRemovedSource) }()

	err = <-errCh
	<-errCh
	return err
}

func (s *Scheduler) handleNewSource(ctx context.Context) broker.Handler {
	return func(_ context.Context, d broker.Delivery) broker.Disposition {
		var evt types.NewSource
		if jsonErr := json.Unmarshal(d.Data, &evt); jsonErr != nil {
			log.WithSubject(d.Subject).Warn().Err(jsonErr).Msg("undecodable new.source payload, dropping")
			return broker.AckWarn
		}
		if evt.IsActive {
			s.scheduleJob(ctx, evt.ID)
		} else {
			s.cancelJob(evt.ID)
		}
		return broker.Ack
	}
}

func (s *Scheduler) handleRemovedSource(_ context.Context, d broker.Delivery) broker.Disposition {
	var evt types.RemovedSource
	if err := json.Unmarshal(d.Data, &evt); err != nil {
		log.WithSubject(d.Subject).Warn().Err(err).Msg("undecodable removed.source payload, dropping")
		return broker.AckWarn
	}
	s.cancelJob(evt.ID)
	return broker.Ack
}

// scheduleJob replaces any existing timer for sourceID with a fresh one
// firing after the default poll interval; each fire then re-reads the
// source and reschedules at its current cadence, so config changes to
// poll_interval_seconds take effect on the next tick.
func (s *Scheduler) scheduleJob(ctx context.Context, sourceID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.jobs[sourceID]; ok {
		existing.Stop()
	}
	s.jobs[sourceID] = time.AfterFunc(s.defaultInterval, func() { s.fire(ctx, sourceID) })
	metrics.SourcesActive.Set(float64(len(s.jobs)))
}

func (s *Scheduler) cancelJob(sourceID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.jobs[sourceID]; ok {
		existing.Stop()
		delete(s.jobs, sourceID)
	}
	metrics.SourcesActive.Set(float64(len(s.jobs)))
}

// fire re-reads the source row and, if it is still active, publishes
// poll.source and reschedules itself at the source's current cadence. A
// deleted or deactivated source is a silent no-op: no further poll.source
// is emitted, and the job map entry is dropped.
func (s *Scheduler) fire(ctx context.Context, sourceID int64) {
	src, err := s.registry.Get(ctx, sourceID)
	if err != nil {
		var notFound *sentinelerr.NotFound
		if errors.As(err, &notFound) {
			s.cancelJob(sourceID)
			return
		}
		s.logger.Warn().Err(err).Int64("source_id", sourceID).Msg("tick skipped: source lookup failed")
		s.rescheduleAfter(ctx, sourceID, s.defaultInterval)
		return
	}
	if !src.IsActive {
		s.cancelJob(sourceID)
		return
	}

	interval := s.defaultInterval
	if n, ok := src.PollIntervalSeconds(); ok {
		interval = time.Duration(n) * time.Second
	}

	payload, err := json.Marshal(types.PollSource{
		ID: src.ID, Name: src.Name, Type: src.Type,
		ConfigJSON: configJSON(src), IsActive: src.IsActive,
	})

	// Publish and reschedule under mu: a removed.source handled while this
	// tick is in flight either cancels the job first, so nothing is
	// published, or waits in cancelJob until the publish has returned.
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, stillScheduled := s.jobs[sourceID]; !stillScheduled {
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Int64("source_id", sourceID).Msg("marshal poll.source failed")
	} else if err := s.broker.Publish(ctx, pollSourceSubject, "PollSource", payload); err != nil {
		s.logger.Error().Err(err).Int64("source_id", sourceID).Msg("publish poll.source failed")
	} else {
		metrics.PollsScheduled.WithLabelValues(src.Name).Inc()
	}

	s.jobs[sourceID] = time.AfterFunc(interval, func() { s.fire(ctx, sourceID) })
}

func (s *Scheduler) rescheduleAfter(ctx context.Context, sourceID int64, interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, stillScheduled := s.jobs[sourceID]; !stillScheduled {
		return
	}
	s.jobs[sourceID] = time.AfterFunc(interval, func() { s.fire(ctx, sourceID) })
}

func configJSON(src types.Source) string {
	if len(src.Config) == 0 {
		return "{}"
	}
	data, err := json.Marshal(src.Config)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// EnsureStreams idempotently creates the streams the scheduler owns as a
// producer and consumer. Called once at startup before Start.
func (s *Scheduler) EnsureStreams(ctx context.Context) error {
	for _, spec := range []broker.StreamSpec{
		{Name: newSourceStream, Subject: "new.source"},
		{Name: removedSourceStream, Subject: "removed.source"},
		{Name: pollSourceStream, Subject: pollSourceSubject},
	} {
		if err := s.broker.EnsureStream(ctx, spec); err != nil {
			return err
		}
	}
	return nil
}

// JobCount reports how many sources currently have a scheduled timer; used
// by tests.
func (s *Scheduler) JobCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}
