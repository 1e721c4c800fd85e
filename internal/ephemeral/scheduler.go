package ephemeral

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/alnah/go-rentnotice/internal/logging"
)

// DefaultPurgeSchedule fires at local midnight.
const DefaultPurgeSchedule = "0 0 * * *"

// Scheduler runs a job on a calendar schedule in a fixed timezone.
type Scheduler struct {
	cron   *cron.Cron
	id     cron.EntryID
	logger logrus.FieldLogger
}

// NewScheduler parses spec (standard five-field cron) in loc and binds job to it.
// Panics inside job are recovered and logged.
func NewScheduler(spec string, loc *time.Location, job func(), logger logrus.FieldLogger) (*Scheduler, error) {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = logging.Discard()
	}

	cl := cronLogger{logger}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	id, err := c.AddFunc(spec, job)
	if err != nil {
		return nil, fmt.Errorf("invalid purge schedule %q: %w", spec, err)
	}
	return &Scheduler{cron: c, id: id, logger: logger}, nil
}

// NewPurgeScheduler schedules m.PurgeAll.
func NewPurgeScheduler(m *Manager, spec string, loc *time.Location, logger logrus.FieldLogger) (*Scheduler, error) {
	return NewScheduler(spec, loc, func() {
		if _, err := m.PurgeAll(); err != nil && logger != nil {
			logger.WithError(err).Warn("scheduled purge incomplete")
		}
	}, logger)
}

// Start runs the scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.WithField("next", s.Next().Format(time.RFC3339)).Info("purge scheduler started")
}

// Next returns the next activation time, or the zero time before Start.
func (s *Scheduler) Next() time.Time {
	return s.cron.Entry(s.id).Next
}

// Stop halts the scheduler and waits for a running job to finish or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cronLogger adapts logrus to cron.Logger.
type cronLogger struct {
	logger logrus.FieldLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.WithFields(fields(keysAndValues)).Debug("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.WithError(err).WithFields(fields(keysAndValues)).Error("cron: " + msg)
}

func fields(kv []interface{}) logrus.Fields {
	f := make(logrus.Fields, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		f[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return f
}
