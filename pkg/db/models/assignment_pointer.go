package models

import (
	"time"

	"github.com/google/uuid"
)

// AssignmentPointer is the persisted rotation cursor for one rule. It is
// created lazily on the first pick and advanced with a conditional update so
// concurrent picks against the same rule never land on the same slot.
// CurrentIndex is reinterpreted modulo the live candidate count at read time;
// membership edits between picks intentionally reset the fairness window.
type AssignmentPointer struct {
	RuleID           uuid.UUID  `gorm:"column:rule_id;type:uuid;primaryKey"`
	CurrentIndex     int        `gorm:"column:current_index;not null;default:0"`
	LastAgentID      *uuid.UUID `gorm:"column:last_agent_id;type:uuid"`
	TotalAssignments int64      `gorm:"column:total_assignments;not null;default:0"`
	UpdatedAt        time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
