package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/leadflow-crm/leadflow-backend/api/responses"
	"github.com/leadflow-crm/leadflow-backend/api/validators"
	"github.com/leadflow-crm/leadflow-backend/internal/assignment"
	pkgerrors "github.com/leadflow-crm/leadflow-backend/pkg/errors"
	"github.com/leadflow-crm/leadflow-backend/pkg/logger"
)

// ManualAssignService hands leads directly to an agent.
type ManualAssignService interface {
	Assign(ctx context.Context, actorID uuid.UUID, dto assignment.ManualAssignDTO) (*assignment.ManualAssignResult, error)
}

// SweepService retries assignment for leads left unassigned.
type SweepService interface {
	RunForSource(ctx context.Context, sourceID *uuid.UUID) (assignment.SweepStats, error)
}

// LeadAssignService runs the rule engine for one lead on demand.
type LeadAssignService interface {
	AssignByID(ctx context.Context, leadID uuid.UUID) (*assignment.Result, error)
}

// ManualAssign assigns a batch of leads to one agent, bypassing rules.
// Managers and admins only.
func ManualAssign(svc ManualAssignService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "assignment service unavailable"))
			return
		}

		actorID, role, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !role.CanManageRules() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "only managers may assign leads manually"))
			return
		}

		var body assignment.ManualAssignDTO
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Assign(r.Context(), actorID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// TriggerSweep runs an on-demand pass over unassigned leads. The same pass
// runs on a schedule; this endpoint exists for operators who do not want to
// wait for the next tick.
func TriggerSweep(svc SweepService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sweep service unavailable"))
			return
		}

		_, role, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !role.CanManageRules() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "only managers may trigger a sweep"))
			return
		}

		var body triggerSweepRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &body); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		stats, err := svc.RunForSource(r.Context(), body.SourceID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}

type triggerSweepRequest struct {
	SourceID *uuid.UUID `json:"source_id"`
}

// AssignLead pushes a single lead through the rule engine immediately. The
// response carries the winning rule and agent, or assigned=false when no
// active rule matched.
func AssignLead(svc LeadAssignService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "assignment service unavailable"))
			return
		}

		leadID, err := parsePathID(r, "leadID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.AssignByID(r.Context(), leadID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if result == nil {
			responses.WriteSuccess(w, map[string]any{"assigned": false})
			return
		}
		responses.WriteSuccess(w, map[string]any{"assigned": true, "result": result})
	}
}
