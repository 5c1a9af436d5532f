package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/leadflow-crm/leadflow-backend/pkg/enums"
)

// AssignmentRule configures how leads of a given scope distribute among
// agents. SourceID nil means the rule is global and matches any source.
// The window fields are all-or-nothing: when StartMinute/EndMinute/Weekdays
// are absent the rule is time-unrestricted.
type AssignmentRule struct {
	ID              uuid.UUID                `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name            string                   `gorm:"type:text;not null"`
	SourceID        *uuid.UUID               `gorm:"column:source_id;type:uuid;index"`
	Strategy        enums.AssignmentStrategy `gorm:"column:strategy;type:assignment_strategy;not null"`
	IsActive        bool                     `gorm:"column:is_active;not null;default:true"`
	Priority        int                      `gorm:"column:priority;not null;default:0"`
	StartMinute     *int                     `gorm:"column:start_minute"`
	EndMinute       *int                     `gorm:"column:end_minute"`
	Weekdays        pq.Int64Array            `gorm:"column:weekdays;type:smallint[]"`
	FallbackRuleID  *uuid.UUID               `gorm:"column:fallback_rule_id;type:uuid"`
	FallbackManual  bool                     `gorm:"column:fallback_manual;not null;default:false"`
	Config          json.RawMessage          `gorm:"column:config;type:jsonb"`
	CreatedByUserID *uuid.UUID               `gorm:"column:created_by_user_id;type:uuid"`
	CreatedAt       time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}

// HasWindow reports whether the rule carries a start/end time-of-day window.
func (r AssignmentRule) HasWindow() bool {
	return r.StartMinute != nil && r.EndMinute != nil
}
