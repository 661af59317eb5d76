package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/maximegiguere1one/garantiepro-sub004/pkg/logger"
	"gorm.io/gorm"
)

const generationErrorRetentionDays = 90

type GenerationErrorRetentionJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Repository generationErrorRepo
	Retention  int
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type generationErrorRepo interface {
	DeleteBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

// NewGenerationErrorRetentionJob prunes old generation error reports.
// Generation statuses are kept.
func NewGenerationErrorRetentionJob(params GenerationErrorRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("generation error repository required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = generationErrorRetentionDays
	}
	return &generationErrorRetentionJob{
		logg:      params.Logger,
		db:        params.DB,
		repo:      params.Repository,
		retention: retention,
		now:       time.Now,
	}, nil
}

type generationErrorRetentionJob struct {
	logg      *logger.Logger
	db        txRunner
	repo      generationErrorRepo
	retention int
	now       func() time.Time
}

func (j *generationErrorRetentionJob) Name() string { return "generation-error-retention" }

func (j *generationErrorRetentionJob) Run(ctx context.Context) (int64, error) {
	cutoff := j.now().UTC().Add(-time.Duration(j.retention) * 24 * time.Hour)
	var deleted int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := j.repo.DeleteBefore(ctx, tx, cutoff)
		if err != nil {
			return err
		}
		deleted = rows
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("generation error retention: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":         cutoff,
		"retention_days": j.retention,
		"rows_deleted":   deleted,
	})
	j.logg.Info(logCtx, "generation error retention cleanup complete")
	return deleted, nil
}
