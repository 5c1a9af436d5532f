package leads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/leadflow-crm/leadflow-backend/pkg/db/models"
	"github.com/leadflow-crm/leadflow-backend/pkg/enums"
)

// LeadDTO is the API view of a lead.
type LeadDTO struct {
	ID              uuid.UUID        `json:"id"`
	FullName        string           `json:"full_name"`
	Phone           *string          `json:"phone,omitempty"`
	Email           *string          `json:"email,omitempty"`
	SourceID        *uuid.UUID       `json:"source_id,omitempty"`
	Status          enums.LeadStatus `json:"status"`
	EstimatedValue  *decimal.Decimal `json:"estimated_value,omitempty"`
	Notes           *string          `json:"notes,omitempty"`
	AssignedAgentID *uuid.UUID       `json:"assigned_agent_id,omitempty"`
	AssignedAt      *time.Time       `json:"assigned_at,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// CreateLeadDTO is the payload for registering a new lead.
type CreateLeadDTO struct {
	FullName       string           `json:"full_name" validate:"required,max=200"`
	Phone          *string          `json:"phone" validate:"omitempty,max=32"`
	Email          *string          `json:"email" validate:"omitempty,email"`
	SourceID       *uuid.UUID       `json:"source_id"`
	EstimatedValue *decimal.Decimal `json:"estimated_value"`
	Notes          *string          `json:"notes" validate:"omitempty,max=2000"`
}

// UpdateLeadStatusDTO moves a lead through its pipeline.
type UpdateLeadStatusDTO struct {
	Status string `json:"status" validate:"required"`
	Remark string `json:"remark" validate:"omitempty,max=500"`
}

func leadToDTO(lead models.Lead) LeadDTO {
	return LeadDTO{
		ID:              lead.ID,
		FullName:        lead.FullName,
		Phone:           lead.Phone,
		Email:           lead.Email,
		SourceID:        lead.SourceID,
		Status:          lead.Status,
		EstimatedValue:  lead.EstimatedValue,
		Notes:           lead.Notes,
		AssignedAgentID: lead.AssignedAgentID,
		AssignedAt:      lead.AssignedAt,
		CreatedAt:       lead.CreatedAt,
		UpdatedAt:       lead.UpdatedAt,
	}
}
