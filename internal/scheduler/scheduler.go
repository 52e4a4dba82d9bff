// Package scheduler runs the maintenance pass on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Duff-Y11/Symbiosis-Memory/internal/logger"
	"github.com/Duff-Y11/Symbiosis-Memory/internal/model"
)

// cronParser accepts standard 5-field expressions and descriptors like "@every 30m".
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Runner performs one maintenance pass.
type Runner interface {
	GC(ctx context.Context) (*model.GCRun, error)
}

// Scheduler invokes a Runner on a schedule. A tick that arrives while the
// previous pass is still running is skipped.
type Scheduler struct {
	cron    *cron.Cron
	runner  Runner
	spec    string
	timeout time.Duration
}

// New validates spec and prepares a stopped scheduler.
func New(r Runner, spec string) (*Scheduler, error) {
	sched, err := cronParser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("%w: gc schedule %q: %v", model.ErrInvalid, spec, err)
	}

	s := &Scheduler{runner: r, spec: spec, timeout: 5 * time.Minute}
	log := cronLogger{}
	s.cron = cron.New(
		cron.WithParser(cronParser),
		cron.WithLogger(log),
		cron.WithChain(cron.Recover(log), cron.SkipIfStillRunning(log)),
	)
	s.cron.Schedule(sched, cron.FuncJob(s.RunOnce))
	return s, nil
}

// Start begins scheduling in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	logger.Info("gc scheduler started", "schedule", s.spec, "next", s.Next())
}

// Stop stops scheduling and waits for a running pass, or for ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

// Next returns the next scheduled run time, zero until started.
func (s *Scheduler) Next() time.Time {
	for _, e := range s.cron.Entries() {
		return e.Next
	}
	return time.Time{}
}

// RunOnce performs one pass and logs its outcome.
func (s *Scheduler) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	run, err := s.runner.GC(ctx)
	if err != nil {
		logger.Error("scheduled gc failed", "error", err)
		return
	}
	logger.Info("scheduled gc", "run", run.ID, "promoted", run.Promoted,
		"deleted", run.Deleted, "pruned_turns", run.PrunedTurns)
}

type cronLogger struct{}

func (cronLogger) Info(msg string, kv ...any) {
	logger.Debug("cron: "+msg, kv...)
}

func (cronLogger) Error(err error, msg string, kv ...any) {
	logger.Error("cron: "+msg, append(kv, "error", err)...)
}
