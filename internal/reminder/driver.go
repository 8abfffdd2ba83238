package reminder

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Start registers a cron entry that calls Tick every tick interval. Callbacks
// fired by the driver receive ctx. Calling Start twice is a no-op.
func (s *Scheduler) Start(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("reminder: Scheduler is nil")
	}
	s.driverMu.Lock()
	defer s.driverMu.Unlock()
	if s.driver != nil {
		return nil
	}

	logger := cronLogger{logger: s.logger}
	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	spec := "@every " + s.tick.String()
	if _, err := c.AddFunc(spec, func() { s.Tick(ctx) }); err != nil {
		return fmt.Errorf("reminder: register tick %q: %w", spec, err)
	}
	c.Start()
	s.driver = c
	s.logger.Info("reminder driver started", "tick", s.tick.String())
	return nil
}

// Stop halts the cron driver and waits for running callbacks.
func (s *Scheduler) Stop() {
	if s == nil {
		return
	}
	s.driverMu.Lock()
	c := s.driver
	s.driver = nil
	s.driverMu.Unlock()

	if c != nil {
		<-c.Stop().Done()
		s.logger.Info("reminder driver stopped")
	}
	s.inflight.Wait()
}

// cronLogger routes cron's key/value logging onto slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
