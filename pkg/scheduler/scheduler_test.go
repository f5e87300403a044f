package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/opus-domini/sentinel/pkg/config"
	"github.com/opus-domini/sentinel/pkg/types"
)

func newTestScheduler() *Scheduler {
	// A long interval keeps fire() from ever actually running during
	// these tests, so registry/broker can stay nil: only the job-map
	// bookkeeping is under test here.
	return New(nil, nil, config.Scheduler{DefaultPollInterval: time.Hour})
}

func TestScheduleJobReplacesExisting(t *testing.T) {
	s := newTestScheduler()

	s.scheduleJob(nil, 7)
	first := s.jobs[7]
	s.scheduleJob(nil, 7)
	second := s.jobs[7]

	assert.Equal(t, 1, s.JobCount())
	assert.NotSame(t, first, second, "rescheduling a source replaces its timer")
}

func TestCancelJobRemoves(t *testing.T) {
	s := newTestScheduler()

	s.scheduleJob(nil, 7)
	assert.Equal(t, 1, s.JobCount())

	s.cancelJob(7)
	assert.Equal(t, 0, s.JobCount())
}

func TestCancelJobUnknownIsNoop(t *testing.T) {
	s := newTestScheduler()
	s.cancelJob(99)
	assert.Equal(t, 0, s.JobCount())
}

func TestRescheduleAfterSkipsCanceledJob(t *testing.T) {
	s := newTestScheduler()

	s.scheduleJob(nil, 7)
	s.cancelJob(7) // simulates removed.source landing mid-tick

	s.rescheduleAfter(nil, 7, time.Hour)

	assert.Equal(t, 0, s.JobCount(), "a job canceled mid-tick must not be resurrected by reschedule")
}

func TestConfigJSON(t *testing.T) {
	src := types.Source{Config: map[string]string{"url": "https://x/"}}
	assert.JSONEq(t, `{"url":"https://x/"}`, configJSON(src))
}

func TestConfigJSONEmpty(t *testing.T) {
	src := types.Source{}
	assert.Equal(t, "{}", configJSON(src))
}
