package controllers

import (
	"net/http"

	"github.com/leadflow-crm/leadflow-backend/api/responses"
	"github.com/leadflow-crm/leadflow-backend/api/validators"
	"github.com/leadflow-crm/leadflow-backend/internal/agents"
	pkgerrors "github.com/leadflow-crm/leadflow-backend/pkg/errors"
	"github.com/leadflow-crm/leadflow-backend/pkg/logger"
)

// ListAgents returns every agent account, active or not.
func ListAgents(svc agents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "agent service unavailable"))
			return
		}

		rows, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"agents": rows})
	}
}

type setAgentActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

// SetAgentActive toggles whether an agent can receive leads. Deactivated
// agents keep their existing leads.
func SetAgentActive(svc agents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "agent service unavailable"))
			return
		}

		_, role, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		agentID, err := parsePathID(r, "agentID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body setAgentActiveRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if body.Active == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "active is required"))
			return
		}

		agent, err := svc.SetActive(r.Context(), role, agentID, *body.Active)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, agent)
	}
}
