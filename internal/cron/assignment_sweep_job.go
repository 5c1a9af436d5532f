package cron

import (
	"context"
	"fmt"

	"github.com/leadflow-crm/leadflow-backend/internal/assignment"
	"github.com/leadflow-crm/leadflow-backend/pkg/logger"
)

type sweepRunner interface {
	Run(ctx context.Context) (assignment.SweepStats, error)
}

// AssignmentSweepJobParams configures NewAssignmentSweepJob.
type AssignmentSweepJobParams struct {
	Logger  *logger.Logger
	Sweeper sweepRunner
}

// NewAssignmentSweepJob wraps the assignment sweeper as a scheduled job. The
// sweep catches leads the event-driven path missed.
func NewAssignmentSweepJob(params AssignmentSweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Sweeper == nil {
		return nil, fmt.Errorf("sweeper required")
	}
	return &assignmentSweepJob{
		logg:    params.Logger,
		sweeper: params.Sweeper,
	}, nil
}

type assignmentSweepJob struct {
	logg    *logger.Logger
	sweeper sweepRunner
}

func (j *assignmentSweepJob) Name() string { return "assignment-sweep" }

func (j *assignmentSweepJob) Run(ctx context.Context) error {
	stats, err := j.sweeper.Run(ctx)
	if err != nil {
		return fmt.Errorf("assignment sweep: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"scanned":  stats.Scanned,
		"assigned": stats.Assigned,
	})
	j.logg.Info(logCtx, "assignment sweep job complete")
	return nil
}
