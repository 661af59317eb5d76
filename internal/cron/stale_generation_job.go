package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/maximegiguere1one/garantiepro-sub004/pkg/logger"
)

const (
	defaultStaleGenerationAfter = 30 * time.Minute
	staleGenerationMessage      = "generation interrupted before completion"
)

type StaleGenerationJobParams struct {
	Logger   *logger.Logger
	Statuses staleStatusRepo
	After    time.Duration
}

type staleStatusRepo interface {
	FailStale(ctx context.Context, cutoff time.Time, message string) (int64, error)
}

// NewStaleGenerationJob fails document statuses left in generating by a
// process that died mid-batch.
func NewStaleGenerationJob(params StaleGenerationJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Statuses == nil {
		return nil, fmt.Errorf("status repository required")
	}
	after := params.After
	if after <= 0 {
		after = defaultStaleGenerationAfter
	}
	return &staleGenerationJob{
		logg:     params.Logger,
		statuses: params.Statuses,
		after:    after,
		now:      time.Now,
	}, nil
}

type staleGenerationJob struct {
	logg     *logger.Logger
	statuses staleStatusRepo
	after    time.Duration
	now      func() time.Time
}

func (j *staleGenerationJob) Name() string { return "stale-document-generation" }

func (j *staleGenerationJob) Run(ctx context.Context) (int64, error) {
	cutoff := j.now().UTC().Add(-j.after)
	failed, err := j.statuses.FailStale(ctx, cutoff, staleGenerationMessage)
	if err != nil {
		return 0, fmt.Errorf("fail stale generations: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":      cutoff,
		"rows_failed": failed,
		"stale_after": j.after.String(),
	})
	if failed > 0 {
		j.logg.Warn(logCtx, "stale document generations marked failed")
		return failed, nil
	}
	j.logg.Debug(logCtx, "no stale document generations")
	return 0, nil
}
