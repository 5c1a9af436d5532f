package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/leadflow-crm/leadflow-backend/internal/assignment"
	"github.com/leadflow-crm/leadflow-backend/pkg/logger"
)

type fakeSweeper struct {
	stats  assignment.SweepStats
	err    error
	called int
}

func (f *fakeSweeper) Run(ctx context.Context) (assignment.SweepStats, error) {
	f.called++
	return f.stats, f.err
}

func TestAssignmentSweepJobRunsSweeper(t *testing.T) {
	sweeper := &fakeSweeper{stats: assignment.SweepStats{Scanned: 5, Assigned: 3}}
	job, err := NewAssignmentSweepJob(AssignmentSweepJobParams{
		Logger:  logger.New(logger.Options{ServiceName: "test"}),
		Sweeper: sweeper,
	})
	if err != nil {
		t.Fatalf("NewAssignmentSweepJob: %v", err)
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sweeper.called != 1 {
		t.Fatalf("expected sweeper called once, got %d", sweeper.called)
	}
	if job.Name() != "assignment-sweep" {
		t.Fatalf("unexpected job name %q", job.Name())
	}
}

func TestAssignmentSweepJobPropagatesErrors(t *testing.T) {
	sweeper := &fakeSweeper{err: errors.New("boom")}
	job, err := NewAssignmentSweepJob(AssignmentSweepJobParams{
		Logger:  logger.New(logger.Options{ServiceName: "test"}),
		Sweeper: sweeper,
	})
	if err != nil {
		t.Fatalf("NewAssignmentSweepJob: %v", err)
	}

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
