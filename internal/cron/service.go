package cron

import (
	"context"
	"time"

	pkgerrors "github.com/angelmondragon/tollwatch-backend/pkg/errors"
	"github.com/angelmondragon/tollwatch-backend/pkg/logger"
	"github.com/angelmondragon/tollwatch-backend/pkg/metrics"
)

const defaultInterval = time.Hour

// ServiceParams wire the cron service. Registry and Metrics are optional;
// Interval defaults to one hour.
type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Lock     Lock
	Metrics  *metrics.CronJobMetrics
	Interval time.Duration
}

// Service runs the registered jobs once per interval on whichever replica
// holds the lock.
type Service struct {
	logg    *logger.Logger
	jobs    *Registry
	lock    Lock
	metrics *metrics.CronJobMetrics
	every   time.Duration
}

// Cycle reports what a single RunOnce did.
type Cycle struct {
	Skipped bool
	Ran     []string
	Failed  []string
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Logger == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	case params.Lock == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "lock required")
	}
	s := &Service{
		logg:    params.Logger,
		jobs:    params.Registry,
		lock:    params.Lock,
		metrics: params.Metrics,
		every:   params.Interval,
	}
	if s.jobs == nil {
		s.jobs = &Registry{}
	}
	if s.every <= 0 {
		s.every = defaultInterval
	}
	return s, nil
}

// Run starts with an immediate cycle and repeats every interval until ctx
// is done. Cycle errors are logged and do not stop the loop.
func (s *Service) Run(ctx context.Context) error {
	tick := time.NewTicker(s.every)
	defer tick.Stop()
	for {
		if _, err := s.RunOnce(ctx); err != nil {
			s.logg.Error(ctx, "cron.cycle.failed", err)
		}
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "cron.stopped")
			return ctx.Err()
		case <-tick.C:
		}
	}
}

// RunOnce takes the lock, runs every job in order and releases the lock.
// A failing job does not stop the others. Only lock acquisition errors
// are returned.
func (s *Service) RunOnce(ctx context.Context) (Cycle, error) {
	var cycle Cycle
	held, err := s.lock.Acquire(ctx)
	if err != nil {
		return cycle, err
	}
	if !held {
		cycle.Skipped = true
		s.metrics.IncSkipped()
		s.logg.Info(ctx, "cron.cycle.skipped")
		return cycle, nil
	}
	defer func() {
		if err := s.lock.Release(ctx); err != nil {
			s.logg.Error(ctx, "cron.lock.release_failed", err)
		}
	}()

	for _, job := range s.jobs.Jobs() {
		cycle.Ran = append(cycle.Ran, job.Name())
		if !s.runJob(ctx, job) {
			cycle.Failed = append(cycle.Failed, job.Name())
		}
	}
	return cycle, nil
}

func (s *Service) runJob(ctx context.Context, job Job) bool {
	name := job.Name()
	ctx = s.logg.WithFields(ctx, map[string]any{"job": name, "event": "cron.job"})

	began := time.Now()
	err := job.Run(ctx)
	ended := time.Now()
	s.metrics.ObserveRun(name, ended.Sub(began), ended, err)

	ctx = s.logg.WithField(ctx, "duration_ms", ended.Sub(began).Milliseconds())
	if err != nil {
		s.logg.Error(ctx, "cron.job.failed", err)
		return false
	}
	s.logg.Info(ctx, "cron.job.completed")
	return true
}
