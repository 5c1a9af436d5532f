package assignment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/leadflow-crm/leadflow-backend/pkg/db/models"
	pkgerrors "github.com/leadflow-crm/leadflow-backend/pkg/errors"
	"github.com/leadflow-crm/leadflow-backend/pkg/logger"
	"github.com/leadflow-crm/leadflow-backend/pkg/metrics"
)

// ManualAssignDTO is a request to hand one or more leads to a single agent,
// bypassing rule selection entirely.
type ManualAssignDTO struct {
	LeadIDs []uuid.UUID `json:"lead_ids" validate:"required,min=1,dive,required"`
	AgentID uuid.UUID   `json:"agent_id" validate:"required"`
	Remark  string      `json:"remark" validate:"omitempty,max=500"`
}

// ManualAssignResult reports the per-lead outcome of a manual batch.
type ManualAssignResult struct {
	Assigned []uuid.UUID `json:"assigned"`
	Skipped  []uuid.UUID `json:"skipped"`
}

type agentDirectory interface {
	GetActiveAgent(ctx context.Context, agentID uuid.UUID) (*models.User, error)
}

type manualStore interface {
	AssignManual(ctx context.Context, leadID, agentID, actorID uuid.UUID, remark string, now time.Time) error
}

// ManualAssignerParams configures NewManualAssigner.
type ManualAssignerParams struct {
	Logger  *logger.Logger
	Store   manualStore
	Agents  agentDirectory
	Metrics *metrics.AssignmentMetrics
}

// ManualAssigner applies operator-chosen assignments. It validates the target
// agent once per batch and then writes each lead conditionally, so a lead
// grabbed by the engine mid-batch is skipped instead of overwritten.
type ManualAssigner struct {
	logg    *logger.Logger
	store   manualStore
	agents  agentDirectory
	metrics *metrics.AssignmentMetrics
	now     func() time.Time
}

// NewManualAssigner validates dependencies and builds a ManualAssigner.
func NewManualAssigner(params ManualAssignerParams) (*ManualAssigner, error) {
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	if params.Store == nil {
		return nil, errors.New("assignment store required")
	}
	if params.Agents == nil {
		return nil, errors.New("agent directory required")
	}
	return &ManualAssigner{
		logg:    params.Logger,
		store:   params.Store,
		agents:  params.Agents,
		metrics: params.Metrics,
		now:     time.Now,
	}, nil
}

// Assign hands every lead in the batch to the requested agent. Leads that are
// already assigned or missing are reported under Skipped; the batch never
// fails halfway because one lead was raced. An inactive or unknown agent
// rejects the whole batch before any write.
func (m *ManualAssigner) Assign(ctx context.Context, actorID uuid.UUID, dto ManualAssignDTO) (*ManualAssignResult, error) {
	if len(dto.LeadIDs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one lead is required")
	}
	agent, err := m.agents.GetActiveAgent(ctx, dto.AgentID)
	if err != nil {
		return nil, err
	}

	now := m.now().UTC()
	result := &ManualAssignResult{}
	for _, leadID := range dto.LeadIDs {
		err := m.store.AssignManual(ctx, leadID, agent.ID, actorID, dto.Remark, now)
		switch {
		case err == nil:
			result.Assigned = append(result.Assigned, leadID)
			m.metrics.IncAssigned("none", "manual")
		case errors.Is(err, ErrLeadAlreadyAssigned), errors.Is(err, gorm.ErrRecordNotFound):
			result.Skipped = append(result.Skipped, leadID)
		default:
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "manual assignment write")
		}
	}

	logCtx := m.logg.WithFields(ctx, map[string]any{
		"agent_id": agent.ID,
		"assigned": len(result.Assigned),
		"skipped":  len(result.Skipped),
	})
	m.logg.Info(logCtx, "manual assignment batch complete")
	return result, nil
}
