package assignment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/leadflow-crm/leadflow-backend/pkg/db/models"
	pkgerrors "github.com/leadflow-crm/leadflow-backend/pkg/errors"
	"github.com/leadflow-crm/leadflow-backend/pkg/logger"
	"github.com/leadflow-crm/leadflow-backend/pkg/metrics"
)

// engineStore is the persistence surface the executor walks rules through.
// *Repository satisfies it; tests substitute stubs.
type engineStore interface {
	ListActiveRules(ctx context.Context) ([]models.AssignmentRule, error)
	ListMembers(ctx context.Context, ruleID uuid.UUID) ([]models.RuleMember, error)
	ExecuteAttempt(ctx context.Context, rule models.AssignmentRule, members []models.RuleMember, leadID uuid.UUID, now time.Time) (*Result, error)
}

// ExecutorParams configures NewExecutor.
type ExecutorParams struct {
	Logger  *logger.Logger
	Store   engineStore
	Metrics *metrics.AssignmentMetrics
}

// Executor runs the automatic assignment walk for one lead at a time.
type Executor struct {
	logg    *logger.Logger
	store   engineStore
	metrics *metrics.AssignmentMetrics
	now     func() time.Time
}

// NewExecutor validates dependencies and builds an Executor. Metrics may be
// nil; logging and storage may not.
func NewExecutor(params ExecutorParams) (*Executor, error) {
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	if params.Store == nil {
		return nil, errors.New("assignment store required")
	}
	return &Executor{
		logg:    params.Logger,
		store:   params.Store,
		metrics: params.Metrics,
		now:     time.Now,
	}, nil
}

// Assign attempts to hand the lead to an agent. Candidate rules are selected
// against the lead's source and the current wall clock, then tried in order;
// the first rule with an eligible member wins. A (nil, nil) return means every
// candidate was exhausted and the lead stays in the manual queue. A lead that
// already carries an agent fails with a state-conflict error rather than being
// reassigned.
func (e *Executor) Assign(ctx context.Context, lead *models.Lead) (*Result, error) {
	if lead == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "lead is required")
	}
	if lead.AssignedAgentID != nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "lead is already assigned")
	}

	start := e.now()
	ctx = e.logg.WithLeadID(ctx, lead.ID.String())

	rules, err := e.store.ListActiveRules(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list assignment rules")
	}

	candidates := SelectCandidates(rules, lead.SourceID, start)
	if len(candidates) == 0 {
		e.metrics.IncUnmatched()
		e.logg.Info(ctx, "no live assignment rule matches lead")
		return nil, nil
	}

	for _, rule := range candidates {
		result, err := e.tryRule(ctx, rule, lead.ID)
		if err != nil {
			if errors.Is(err, ErrNoEligibleMember) {
				continue
			}
			if errors.Is(err, ErrLeadAlreadyAssigned) {
				e.metrics.IncConflict()
				return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "lead is already assigned")
			}
			return nil, err
		}
		lead.AssignedAgentID = &result.AgentID
		lead.AssignedAt = &result.AssignedAt
		e.metrics.IncAssigned(result.Strategy.String(), "auto")
		e.metrics.ObserveDuration(e.now().Sub(start))
		logCtx := e.logg.WithFields(ctx, map[string]any{
			"rule_id":  result.RuleID,
			"agent_id": result.AgentID,
			"strategy": result.Strategy,
		})
		e.logg.Info(logCtx, "lead assigned")
		return result, nil
	}

	e.metrics.IncUnmatched()
	e.logg.Info(ctx, "all candidate rules exhausted, lead left unassigned")
	return nil, nil
}

func (e *Executor) tryRule(ctx context.Context, rule models.AssignmentRule, leadID uuid.UUID) (*Result, error) {
	members, err := e.store.ListMembers(ctx, rule.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list rule members")
	}
	result, err := e.store.ExecuteAttempt(ctx, rule, members, leadID, e.now().UTC())
	if err != nil {
		return nil, err
	}
	return result, nil
}
