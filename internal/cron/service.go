package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/maximegiguere1one/garantiepro-sub004/pkg/logger"
	"github.com/maximegiguere1one/garantiepro-sub004/pkg/metrics"
)

const defaultInterval = 10 * time.Minute

type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Lock     Lock
	Metrics  *metrics.MaintenanceMetrics
	Interval time.Duration
}

// Service runs every registered job once per interval while holding Lock.
type Service struct {
	logg     *logger.Logger
	registry *Registry
	lock     Lock
	metrics  *metrics.MaintenanceMetrics
	interval time.Duration
	now      func() time.Time
}

// JobResult is the outcome of one job in a cycle.
type JobResult struct {
	Job      string
	Rows     int64
	Duration time.Duration
	Err      error
}

// CycleReport summarizes one cycle. Skipped is set when another replica held
// the lock and no job ran.
type CycleReport struct {
	Skipped bool
	Results []JobResult
}

// Err joins the failures of the cycle, nil when every job succeeded.
func (r CycleReport) Err() error {
	var errs []error
	for _, res := range r.Results {
		if res.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", res.Job, res.Err))
		}
	}
	return errors.Join(errs...)
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
	interval := params.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Service{
		logg:     params.Logger,
		registry: registry,
		lock:     params.Lock,
		metrics:  params.Metrics,
		interval: interval,
		now:      time.Now,
	}, nil
}

// Run executes a cycle immediately, then one per interval until ctx ends.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		if _, err := s.RunOnce(ctx); err != nil {
			s.logg.Error(ctx, "maintenance cycle aborted", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunOnce executes a single cycle. A job failure does not stop the jobs after
// it; the returned error only covers lock problems.
func (s *Service) RunOnce(ctx context.Context) (CycleReport, error) {
	locked, err := s.lock.Acquire(ctx)
	if err != nil {
		return CycleReport{}, fmt.Errorf("acquire cron lock: %w", err)
	}
	if !locked {
		s.metrics.CycleSkipped()
		s.logg.Info(ctx, "cron lock held elsewhere, skipping cycle")
		return CycleReport{Skipped: true}, nil
	}
	defer func() {
		if err := s.lock.Release(ctx); err != nil {
			s.logg.Error(ctx, "failed to release cron lock", err)
		}
	}()

	jobs := s.registry.Jobs()
	report := CycleReport{Results: make([]JobResult, 0, len(jobs))}
	for _, job := range jobs {
		if ctx.Err() != nil {
			break
		}
		report.Results = append(report.Results, s.runJob(ctx, job))
	}

	failed := 0
	for _, res := range report.Results {
		if res.Err != nil {
			failed++
		}
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"jobs_run":    len(report.Results),
		"jobs_failed": failed,
	}), "maintenance cycle complete")
	return report, nil
}

func (s *Service) runJob(ctx context.Context, job Job) JobResult {
	jobCtx := s.logg.WithField(ctx, "job", job.Name())
	start := s.now()
	rows, err := job.Run(jobCtx)
	finished := s.now()
	res := JobResult{Job: job.Name(), Rows: rows, Duration: finished.Sub(start), Err: err}
	s.metrics.ObserveRun(res.Job, finished, res.Duration, rows, err)

	jobCtx = s.logg.WithFields(jobCtx, map[string]any{
		"duration_ms": res.Duration.Milliseconds(),
		"rows":        rows,
	})
	if err != nil {
		s.logg.Error(jobCtx, "maintenance job failed", err)
	} else {
		s.logg.Info(jobCtx, "maintenance job complete")
	}
	return res
}
