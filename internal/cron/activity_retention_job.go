package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/leadflow-crm/leadflow-backend/pkg/logger"
)

const defaultActivityRetention = 90 * 24 * time.Hour

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type activityRetentionRepo interface {
	DeleteOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

// ActivityRetentionJobParams configures NewActivityRetentionJob.
type ActivityRetentionJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Repository activityRetentionRepo
	Retention  time.Duration
}

// NewActivityRetentionJob prunes lead activity rows past the retention
// horizon. Assignment audit rows are exempt from the purge, and the leads
// themselves are never touched.
func NewActivityRetentionJob(params ActivityRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("activity repository required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = defaultActivityRetention
	}
	return &activityRetentionJob{
		logg:      params.Logger,
		db:        params.DB,
		repo:      params.Repository,
		retention: retention,
		now:       time.Now,
	}, nil
}

type activityRetentionJob struct {
	logg      *logger.Logger
	db        txRunner
	repo      activityRetentionRepo
	retention time.Duration
	now       func() time.Time
}

func (j *activityRetentionJob) Name() string { return "activity-retention" }

func (j *activityRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	var deleted int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := j.repo.DeleteOlderThan(ctx, tx, cutoff)
		if err != nil {
			return err
		}
		deleted = rows
		return nil
	})
	if err != nil {
		return fmt.Errorf("activity retention: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"rows_deleted": deleted,
	})
	j.logg.Info(logCtx, "activity retention complete")
	return nil
}
