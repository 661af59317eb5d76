package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/maximegiguere1one/garantiepro-sub004/pkg/logger"
	"gorm.io/gorm"
)

func TestGenerationErrorRetentionJobDeletesOldReports(t *testing.T) {
	now := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)
	repo := &fakeGenerationErrorRepo{}
	job := newGenerationErrorRetentionJob(t, repo)
	job.now = func() time.Time { return now }

	deleted, err := job.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if deleted != 3 {
		t.Fatalf("expected 3 deleted reports, got %d", deleted)
	}
	expectedCutoff := now.Add(-generationErrorRetentionDays * 24 * time.Hour)
	if !repo.lastCutoff.Equal(expectedCutoff) {
		t.Fatalf("expected cutoff %s, got %s", expectedCutoff, repo.lastCutoff)
	}
	if repo.called != 1 {
		t.Fatalf("expected repo called once, got %d", repo.called)
	}
}

func TestGenerationErrorRetentionJobPropagatesError(t *testing.T) {
	repo := &fakeGenerationErrorRepo{err: errors.New("boom")}
	job := newGenerationErrorRetentionJob(t, repo)

	if _, err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func newGenerationErrorRetentionJob(t *testing.T, repo *fakeGenerationErrorRepo) *generationErrorRetentionJob {
	t.Helper()
	jobIface, err := NewGenerationErrorRetentionJob(GenerationErrorRetentionJobParams{
		Logger:     logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		DB:         passthroughTxRunner{},
		Repository: repo,
	})
	if err != nil {
		t.Fatalf("NewGenerationErrorRetentionJob: %v", err)
	}
	job, ok := jobIface.(*generationErrorRetentionJob)
	if !ok {
		t.Fatalf("expected generationErrorRetentionJob, got %T", jobIface)
	}
	return job
}

type fakeGenerationErrorRepo struct {
	lastCutoff time.Time
	called     int
	err        error
}

func (f *fakeGenerationErrorRepo) DeleteBefore(_ context.Context, _ *gorm.DB, cutoff time.Time) (int64, error) {
	f.called++
	f.lastCutoff = cutoff
	if f.err != nil {
		return 0, f.err
	}
	return 3, nil
}

type passthroughTxRunner struct{}

func (passthroughTxRunner) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}
