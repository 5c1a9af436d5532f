package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/leadflow-crm/leadflow-backend/pkg/enums"
)

// RuleMember attaches an agent to an assignment rule with a relative share of
// that rule's traffic. ShareMode declares which of Percentage or Weight is
// read; the other column is ignored even when set.
type RuleMember struct {
	ID             uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	RuleID         uuid.UUID       `gorm:"column:rule_id;type:uuid;not null;index"`
	AgentID        uuid.UUID       `gorm:"column:agent_id;type:uuid;not null"`
	ShareMode      enums.ShareMode `gorm:"column:share_mode;type:share_mode;not null;default:'weight'"`
	Percentage     *int            `gorm:"column:percentage"`
	Weight         int             `gorm:"column:weight;not null;default:1"`
	IsActive       bool            `gorm:"column:is_active;not null;default:true"`
	AssignedCount  int64           `gorm:"column:assigned_count;not null;default:0"`
	LastAssignedAt *time.Time      `gorm:"column:last_assigned_at"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
