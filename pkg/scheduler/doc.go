/*
Package scheduler converts source configuration into poll.source traffic:
one time.Timer per source_id, reset to the source's current cadence on
every fire.

	sched := scheduler.New(registry, b, cfg.Scheduler)
	sched.EnsureStreams(ctx)
	sched.Start(ctx) // bootstraps active sources, then reacts to new.source/removed.source

Unlike warren's fixed-interval reconciliation ticker, this scheduler's unit
of work is a single source rather than the whole fleet: each source gets
its own timer, rescheduled independently after every tick instead of all
jobs being swept together.
*/
package scheduler
