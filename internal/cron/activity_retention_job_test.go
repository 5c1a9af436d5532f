package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/leadflow-crm/leadflow-backend/pkg/logger"
)

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakeActivityRepo struct {
	lastCutoff  time.Time
	deletedRows int64
	called      int
	err         error
}

func (f *fakeActivityRepo) DeleteOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
	f.called++
	f.lastCutoff = cutoff
	if f.err != nil {
		return 0, f.err
	}
	return f.deletedRows, nil
}

func newActivityRetentionJob(t *testing.T, repo *fakeActivityRepo, retention time.Duration) *activityRetentionJob {
	t.Helper()
	jobIface, err := NewActivityRetentionJob(ActivityRetentionJobParams{
		Logger:     logger.New(logger.Options{ServiceName: "test"}),
		DB:         fakeTxRunner{},
		Repository: repo,
		Retention:  retention,
	})
	if err != nil {
		t.Fatalf("NewActivityRetentionJob: %v", err)
	}
	job, ok := jobIface.(*activityRetentionJob)
	if !ok {
		t.Fatalf("expected activityRetentionJob, got %T", jobIface)
	}
	return job
}

func TestActivityRetentionJobDeletesOldRows(t *testing.T) {
	now := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	repo := &fakeActivityRepo{deletedRows: 17}
	job := newActivityRetentionJob(t, repo, 30*24*time.Hour)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	expectedCutoff := now.Add(-30 * 24 * time.Hour)
	if !repo.lastCutoff.Equal(expectedCutoff) {
		t.Fatalf("expected cutoff %s, got %s", expectedCutoff, repo.lastCutoff)
	}
	if repo.called != 1 {
		t.Fatalf("expected repo called once, got %d", repo.called)
	}
}

func TestActivityRetentionJobDefaultsRetention(t *testing.T) {
	now := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	repo := &fakeActivityRepo{}
	job := newActivityRetentionJob(t, repo, 0)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !repo.lastCutoff.Equal(now.Add(-defaultActivityRetention)) {
		t.Fatalf("expected default retention cutoff, got %s", repo.lastCutoff)
	}
}

func TestActivityRetentionJobPropagatesErrors(t *testing.T) {
	repo := &fakeActivityRepo{err: errors.New("boom")}
	job := newActivityRetentionJob(t, repo, time.Hour)

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
