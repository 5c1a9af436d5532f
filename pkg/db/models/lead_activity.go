package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/leadflow-crm/leadflow-backend/pkg/enums"
)

// LeadActivity is an append-only audit record of something happening to a
// lead. Assignment decisions land here with the rule and strategy in Metadata.
// Rows are never updated or deleted by the engine.
type LeadActivity struct {
	ID          uuid.UUID            `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	LeadID      uuid.UUID            `gorm:"column:lead_id;type:uuid;not null;index"`
	ActorUserID *uuid.UUID           `gorm:"column:actor_user_id;type:uuid"`
	Action      enums.ActivityAction `gorm:"column:action;type:activity_action;not null"`
	OldStatus   *enums.LeadStatus    `gorm:"column:old_status;type:lead_status"`
	NewStatus   *enums.LeadStatus    `gorm:"column:new_status;type:lead_status"`
	Remark      string               `gorm:"column:remark;not null;default:''"`
	Metadata    json.RawMessage      `gorm:"column:metadata;type:jsonb"`
	CreatedAt   time.Time            `gorm:"column:created_at;autoCreateTime"`
}
