package assignment

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/leadflow-crm/leadflow-backend/pkg/db/models"
	pkgerrors "github.com/leadflow-crm/leadflow-backend/pkg/errors"
	"github.com/leadflow-crm/leadflow-backend/pkg/logger"
)

type leadLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Lead, error)
}

// AutoAssignerParams configures NewAutoAssigner.
type AutoAssignerParams struct {
	Logger   *logger.Logger
	Leads    leadLoader
	Executor leadAssigner
}

// AutoAssigner runs the engine for a single lead on request. It is the same
// walk the event consumer and the sweep perform, exposed for operators who
// want a lead retried immediately instead of on the next sweep.
type AutoAssigner struct {
	logg     *logger.Logger
	leads    leadLoader
	executor leadAssigner
}

// NewAutoAssigner validates dependencies and builds an AutoAssigner.
func NewAutoAssigner(params AutoAssignerParams) (*AutoAssigner, error) {
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	if params.Leads == nil {
		return nil, errors.New("lead loader required")
	}
	if params.Executor == nil {
		return nil, errors.New("executor required")
	}
	return &AutoAssigner{
		logg:     params.Logger,
		leads:    params.Leads,
		executor: params.Executor,
	}, nil
}

// AssignByID loads the lead and runs the engine against it. A nil result with
// a nil error means no active rule matched and the lead stays unassigned.
func (a *AutoAssigner) AssignByID(ctx context.Context, leadID uuid.UUID) (*Result, error) {
	lead, err := a.leads.FindByID(ctx, leadID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "lead not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load lead")
	}
	return a.executor.Assign(ctx, lead)
}
