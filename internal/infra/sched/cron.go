// File: internal/infra/sched/cron.go
package sched

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Runner schedules jobs on cron expressions.
type Runner struct {
	cron *cron.Cron
	ctx  context.Context
	log  *zerolog.Logger
}

// NewRunner builds a runner whose jobs receive ctx. Panicking jobs are recovered and
// a job still running when its next tick fires is skipped.
func NewRunner(ctx context.Context, logger *zerolog.Logger) *Runner {
	cl := cronLogger{log: logger}
	c := cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)))
	return &Runner{cron: c, ctx: ctx, log: logger}
}

func (r *Runner) Add(name, spec string, job func(ctx context.Context)) error {
	if _, err := r.cron.AddFunc(spec, func() { job(r.ctx) }); err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	r.log.Info().Str("job", name).Str("schedule", spec).Msg("job scheduled")
	return nil
}

func (r *Runner) Start() { r.cron.Start() }

// Stop prevents new runs and waits for running jobs until ctx expires.
func (r *Runner) Stop(ctx context.Context) {
	done := r.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		r.log.Warn().Msg("cron jobs still running at shutdown")
	}
}

type cronLogger struct {
	log *zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
