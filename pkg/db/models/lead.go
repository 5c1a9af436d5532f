package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/leadflow-crm/leadflow-backend/pkg/enums"
)

// Lead is a sales prospect. The assignment engine reads SourceID and writes
// AssignedAgentID/AssignedAt; it never touches the rest of the row.
type Lead struct {
	ID              uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	FullName        string           `gorm:"column:full_name;not null"`
	Phone           *string          `gorm:"column:phone"`
	Email           *string          `gorm:"column:email"`
	SourceID        *uuid.UUID       `gorm:"column:source_id;type:uuid;index"`
	Status          enums.LeadStatus `gorm:"column:status;type:lead_status;not null;default:'new'"`
	EstimatedValue  *decimal.Decimal `gorm:"column:estimated_value;type:numeric(14,2)"`
	Notes           *string          `gorm:"column:notes"`
	AssignedAgentID *uuid.UUID       `gorm:"column:assigned_agent_id;type:uuid;index"`
	AssignedAt      *time.Time       `gorm:"column:assigned_at"`
	CreatedByUserID *uuid.UUID       `gorm:"column:created_by_user_id;type:uuid"`
	CreatedAt       time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
