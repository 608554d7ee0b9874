package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lensbook/lensbook-backend/pkg/logger"
	"github.com/lensbook/lensbook-backend/pkg/metrics"
)

const (
	defaultInterval    = 5 * time.Minute
	defaultJobTimeout  = 2 * time.Minute
	defaultLockRefresh = time.Minute
)

var errLockLost = errors.New("cron lock lost")

// ServiceParams configure the cron service.
type ServiceParams struct {
	Logger      *logger.Logger
	Registry    *Registry
	Lock        Lock
	Metrics     *metrics.CronJobMetrics
	Interval    time.Duration
	JobTimeout  time.Duration
	LockRefresh time.Duration
}

// Service runs the registered jobs once per interval. A cycle only starts on
// the replica holding the lock and stops early if the lock is lost.
type Service struct {
	logg        *logger.Logger
	registry    *Registry
	lock        Lock
	metrics     *metrics.CronJobMetrics
	interval    time.Duration
	jobTimeout  time.Duration
	lockRefresh time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Lock == nil {
		return nil, fmt.Errorf("lock required")
	}
	registry := params.Registry
	if registry == nil {
		registry = NewRegistry()
	}
	return &Service{
		logg:        params.Logger,
		registry:    registry,
		lock:        params.Lock,
		metrics:     params.Metrics,
		interval:    orDefault(params.Interval, defaultInterval),
		jobTimeout:  orDefault(params.JobTimeout, defaultJobTimeout),
		lockRefresh: orDefault(params.LockRefresh, defaultLockRefresh),
	}, nil
}

func orDefault(v, fallback time.Duration) time.Duration {
	if v <= 0 {
		return fallback
	}
	return v
}

// Run executes a cycle immediately and then on every tick until ctx ends.
func (s *Service) Run(ctx context.Context) error {
	s.cycle(ctx)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "cron service context canceled")
			return ctx.Err()
		case <-ticker.C:
			s.cycle(ctx)
		}
	}
}

// RunOnce executes a single locked cycle.
func (s *Service) RunOnce(ctx context.Context) error {
	return s.runCycle(ctx)
}

func (s *Service) cycle(ctx context.Context) {
	if err := s.runCycle(ctx); err != nil {
		s.logg.Error(ctx, "scheduled run failed", err)
	}
}

func (s *Service) runCycle(ctx context.Context) error {
	locked, err := s.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("lock acquire: %w", err)
	}
	if !locked {
		s.logg.Debug(ctx, "cron lock held by another replica; skipping cycle")
		return nil
	}

	cycleCtx, cancel := context.WithCancelCause(ctx)
	done := make(chan struct{})
	go s.keepLock(cycleCtx, cancel, done)
	defer func() {
		cancel(nil)
		<-done
		if relErr := s.lock.Release(context.WithoutCancel(ctx)); relErr != nil {
			s.logg.Error(ctx, "failed to release cron lock", relErr)
		}
	}()

	failed := 0
	for _, job := range s.registry.Jobs() {
		if cycleCtx.Err() != nil {
			break
		}
		if !s.runJob(cycleCtx, job) {
			failed++
		}
	}
	if cause := context.Cause(cycleCtx); errors.Is(cause, errLockLost) {
		return cause
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"jobs":   s.registry.Len(),
		"failed": failed,
	})
	s.logg.Info(logCtx, "scheduled run complete")
	return nil
}

// keepLock extends the lock until the cycle ends and cancels the cycle when
// ownership cannot be confirmed.
func (s *Service) keepLock(ctx context.Context, cancel context.CancelCauseFunc, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.lockRefresh)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			held, err := s.lock.Refresh(ctx)
			if err != nil && ctx.Err() == nil {
				s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "cron lock refresh failed")
			}
			if !held && ctx.Err() == nil {
				cancel(errLockLost)
				return
			}
		}
	}
}

func (s *Service) runJob(ctx context.Context, job Job) bool {
	jobCtx := s.logg.WithFields(ctx, map[string]any{
		"job":   job.Name(),
		"event": "cron.job",
	})
	runCtx, cancel := context.WithTimeout(jobCtx, s.jobTimeout)
	defer cancel()

	start := time.Now()
	err := job.Run(runCtx)
	duration := time.Since(start)
	s.metrics.ObserveDuration(job.Name(), duration)

	jobCtx = s.logg.WithField(jobCtx, "duration_ms", duration.Milliseconds())
	if err != nil {
		s.logg.Error(jobCtx, "job failed", err)
		s.metrics.IncFailure(job.Name())
		return false
	}
	s.logg.Debug(jobCtx, "job completed")
	s.metrics.IncSuccess(job.Name())
	return true
}
