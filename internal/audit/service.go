package audit

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/leadflow-crm/leadflow-backend/pkg/db/models"
	"github.com/leadflow-crm/leadflow-backend/pkg/enums"
	pkgerrors "github.com/leadflow-crm/leadflow-backend/pkg/errors"
)

// ActivityDTO is the API view of one lead activity row.
type ActivityDTO struct {
	ID          uuid.UUID            `json:"id"`
	LeadID      uuid.UUID            `json:"lead_id"`
	ActorUserID *uuid.UUID           `json:"actor_user_id,omitempty"`
	Action      enums.ActivityAction `json:"action"`
	OldStatus   *enums.LeadStatus    `json:"old_status,omitempty"`
	NewStatus   *enums.LeadStatus    `json:"new_status,omitempty"`
	Remark      string               `json:"remark,omitempty"`
	Metadata    json.RawMessage      `json:"metadata,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
}

type activityStore interface {
	Append(ctx context.Context, activity *models.LeadActivity) error
	ListByLead(ctx context.Context, leadID uuid.UUID, limit int) ([]models.LeadActivity, error)
}

// Recorder appends audit events and serves per-lead history.
type Recorder struct {
	store activityStore
}

// NewRecorder builds an audit recorder over the provided store.
func NewRecorder(store activityStore) (*Recorder, error) {
	if store == nil {
		return nil, errors.New("activity store required")
	}
	return &Recorder{store: store}, nil
}

// LeadCreated records the creation of a lead.
func (r *Recorder) LeadCreated(ctx context.Context, leadID uuid.UUID, actorID *uuid.UUID) error {
	return r.store.Append(ctx, &models.LeadActivity{
		ID:          uuid.New(),
		LeadID:      leadID,
		ActorUserID: actorID,
		Action:      enums.ActivityActionCreated,
	})
}

// StatusChanged records a lead status transition with the before/after pair.
func (r *Recorder) StatusChanged(ctx context.Context, leadID uuid.UUID, actorID *uuid.UUID, from, to enums.LeadStatus, remark string) error {
	return r.store.Append(ctx, &models.LeadActivity{
		ID:          uuid.New(),
		LeadID:      leadID,
		ActorUserID: actorID,
		Action:      enums.ActivityActionStatusChanged,
		OldStatus:   &from,
		NewStatus:   &to,
		Remark:      remark,
	})
}

// History returns the lead's activity trail newest-first.
func (r *Recorder) History(ctx context.Context, leadID uuid.UUID, limit int) ([]ActivityDTO, error) {
	rows, err := r.store.ListByLead(ctx, leadID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list lead activity")
	}
	out := make([]ActivityDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, ActivityDTO{
			ID:          row.ID,
			LeadID:      row.LeadID,
			ActorUserID: row.ActorUserID,
			Action:      row.Action,
			OldStatus:   row.OldStatus,
			NewStatus:   row.NewStatus,
			Remark:      row.Remark,
			Metadata:    row.Metadata,
			CreatedAt:   row.CreatedAt,
		})
	}
	return out, nil
}
