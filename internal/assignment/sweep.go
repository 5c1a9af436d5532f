package assignment

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/leadflow-crm/leadflow-backend/pkg/db/models"
	pkgerrors "github.com/leadflow-crm/leadflow-backend/pkg/errors"
	"github.com/leadflow-crm/leadflow-backend/pkg/logger"
)

type unassignedLister interface {
	ListUnassigned(ctx context.Context, sourceID *uuid.UUID, limit int) ([]models.Lead, error)
}

type leadAssigner interface {
	Assign(ctx context.Context, lead *models.Lead) (*Result, error)
}

// SweeperParams configures NewSweeper.
type SweeperParams struct {
	Logger    *logger.Logger
	Leads     unassignedLister
	Executor  leadAssigner
	BatchSize int
}

// SweepStats summarizes one sweep pass.
type SweepStats struct {
	Scanned  int `json:"scanned"`
	Assigned int `json:"assigned"`
	Failed   int `json:"failed"`
}

const defaultSweepBatchSize = 200

// Sweeper retries assignment for leads that missed the event-driven path:
// created while no rule window was open, raced during membership edits, or
// published before the worker came up.
type Sweeper struct {
	logg     *logger.Logger
	leads    unassignedLister
	executor leadAssigner
	batch    int
}

// NewSweeper validates dependencies and builds a Sweeper.
func NewSweeper(params SweeperParams) (*Sweeper, error) {
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	if params.Leads == nil {
		return nil, errors.New("leads lister required")
	}
	if params.Executor == nil {
		return nil, errors.New("executor required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultSweepBatchSize
	}
	return &Sweeper{
		logg:     params.Logger,
		leads:    params.Leads,
		executor: params.Executor,
		batch:    batch,
	}, nil
}

// Run walks one batch of unassigned leads across every source.
func (s *Sweeper) Run(ctx context.Context) (SweepStats, error) {
	return s.RunForSource(ctx, nil)
}

// RunForSource walks one batch of unassigned leads oldest-first and attempts
// each sequentially, optionally narrowed to a single source. A lead that fails
// or matches no rule never blocks the rest; per-lead errors are collected and
// returned together after the pass. A lead raced into assignment mid-sweep
// counts as neither assigned nor failed.
func (s *Sweeper) RunForSource(ctx context.Context, sourceID *uuid.UUID) (SweepStats, error) {
	stats := SweepStats{}

	pending, err := s.leads.ListUnassigned(ctx, sourceID, s.batch)
	if err != nil {
		return stats, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list unassigned leads")
	}
	stats.Scanned = len(pending)

	var errs error
	for i := range pending {
		if ctx.Err() != nil {
			errs = multierr.Append(errs, ctx.Err())
			break
		}
		lead := pending[i]
		result, err := s.executor.Assign(ctx, &lead)
		if err != nil {
			if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeStateConflict {
				continue
			}
			stats.Failed++
			errs = multierr.Append(errs, err)
			continue
		}
		if result != nil {
			stats.Assigned++
		}
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"scanned":  stats.Scanned,
		"assigned": stats.Assigned,
		"failed":   stats.Failed,
	})
	s.logg.Info(logCtx, "assignment sweep complete")
	return stats, errs
}
