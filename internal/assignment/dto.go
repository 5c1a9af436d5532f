package assignment

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/leadflow-crm/leadflow-backend/pkg/db/models"
	"github.com/leadflow-crm/leadflow-backend/pkg/enums"
)

// RuleDTO is the API view of an assignment rule.
type RuleDTO struct {
	ID             uuid.UUID                `json:"id"`
	Name           string                   `json:"name"`
	SourceID       *uuid.UUID               `json:"source_id,omitempty"`
	Strategy       enums.AssignmentStrategy `json:"strategy"`
	IsActive       bool                     `json:"is_active"`
	Priority       int                      `json:"priority"`
	StartMinute    *int                     `json:"start_minute,omitempty"`
	EndMinute      *int                     `json:"end_minute,omitempty"`
	Weekdays       []int                    `json:"weekdays,omitempty"`
	FallbackRuleID *uuid.UUID               `json:"fallback_rule_id,omitempty"`
	FallbackManual bool                     `json:"fallback_manual"`
	Config         json.RawMessage          `json:"config,omitempty"`
	Members        []MemberDTO              `json:"members,omitempty"`
	CreatedAt      time.Time                `json:"created_at"`
	UpdatedAt      time.Time                `json:"updated_at"`
}

// MemberDTO is the API view of a rule member.
type MemberDTO struct {
	ID             uuid.UUID       `json:"id"`
	RuleID         uuid.UUID       `json:"rule_id"`
	AgentID        uuid.UUID       `json:"agent_id"`
	ShareMode      enums.ShareMode `json:"share_mode"`
	Percentage     *int            `json:"percentage,omitempty"`
	Weight         int             `json:"weight"`
	IsActive       bool            `json:"is_active"`
	AssignedCount  int64           `json:"assigned_count"`
	LastAssignedAt *time.Time      `json:"last_assigned_at,omitempty"`
}

// CreateRuleDTO is the payload for creating an assignment rule.
type CreateRuleDTO struct {
	Name           string          `json:"name" validate:"required,max=120"`
	SourceID       *uuid.UUID      `json:"source_id"`
	Strategy       string          `json:"strategy" validate:"required"`
	Priority       int             `json:"priority"`
	StartMinute    *int            `json:"start_minute"`
	EndMinute      *int            `json:"end_minute"`
	Weekdays       []int           `json:"weekdays" validate:"omitempty,dive,min=0,max=6"`
	FallbackRuleID *uuid.UUID      `json:"fallback_rule_id"`
	FallbackManual bool            `json:"fallback_manual"`
	Config         json.RawMessage `json:"config"`
	IsActive       *bool           `json:"is_active"`
}

// UpdateRuleDTO carries a partial rule update; nil fields are untouched.
type UpdateRuleDTO struct {
	Name              *string         `json:"name" validate:"omitempty,max=120"`
	Strategy          *string         `json:"strategy"`
	Priority          *int            `json:"priority"`
	StartMinute       *int            `json:"start_minute"`
	EndMinute         *int            `json:"end_minute"`
	ClearWindow       bool            `json:"clear_window"`
	Weekdays          *[]int          `json:"weekdays" validate:"omitempty,dive,min=0,max=6"`
	FallbackRuleID    *uuid.UUID      `json:"fallback_rule_id"`
	ClearFallbackRule bool            `json:"clear_fallback_rule"`
	FallbackManual    *bool           `json:"fallback_manual"`
	Config            json.RawMessage `json:"config"`
	IsActive          *bool           `json:"is_active"`
}

// CreateMemberDTO is the payload for attaching an agent to a rule.
type CreateMemberDTO struct {
	AgentID    uuid.UUID `json:"agent_id" validate:"required"`
	ShareMode  string    `json:"share_mode"`
	Percentage *int      `json:"percentage" validate:"omitempty,min=0,max=100"`
	Weight     *int      `json:"weight" validate:"omitempty,min=1"`
	IsActive   *bool     `json:"is_active"`
}

// UpdateMemberDTO carries a partial member update; nil fields are untouched.
type UpdateMemberDTO struct {
	ShareMode  *string `json:"share_mode"`
	Percentage *int    `json:"percentage" validate:"omitempty,min=0,max=100"`
	Weight     *int    `json:"weight" validate:"omitempty,min=1"`
	IsActive   *bool   `json:"is_active"`
}

// RuleStatusDTO exposes the live rotation state of one rule: the persisted
// cursor plus per-member tallies. Read-only diagnostics surface.
type RuleStatusDTO struct {
	RuleID           uuid.UUID   `json:"rule_id"`
	Live             bool        `json:"live"`
	CurrentIndex     int         `json:"current_index"`
	WheelSize        int         `json:"wheel_size"`
	LastAgentID      *uuid.UUID  `json:"last_agent_id,omitempty"`
	TotalAssignments int64       `json:"total_assignments"`
	Members          []MemberDTO `json:"members"`
}

func ruleToDTO(rule models.AssignmentRule, members []models.RuleMember) RuleDTO {
	dto := RuleDTO{
		ID:             rule.ID,
		Name:           rule.Name,
		SourceID:       rule.SourceID,
		Strategy:       rule.Strategy,
		IsActive:       rule.IsActive,
		Priority:       rule.Priority,
		StartMinute:    rule.StartMinute,
		EndMinute:      rule.EndMinute,
		Weekdays:       weekdaysToInts(rule.Weekdays),
		FallbackRuleID: rule.FallbackRuleID,
		FallbackManual: rule.FallbackManual,
		Config:         rule.Config,
		CreatedAt:      rule.CreatedAt,
		UpdatedAt:      rule.UpdatedAt,
	}
	for _, member := range members {
		dto.Members = append(dto.Members, memberToDTO(member))
	}
	return dto
}

func memberToDTO(member models.RuleMember) MemberDTO {
	return MemberDTO{
		ID:             member.ID,
		RuleID:         member.RuleID,
		AgentID:        member.AgentID,
		ShareMode:      member.ShareMode,
		Percentage:     member.Percentage,
		Weight:         member.Weight,
		IsActive:       member.IsActive,
		AssignedCount:  member.AssignedCount,
		LastAssignedAt: member.LastAssignedAt,
	}
}

func weekdaysToInts(days pq.Int64Array) []int {
	if len(days) == 0 {
		return nil
	}
	out := make([]int, 0, len(days))
	for _, day := range days {
		out = append(out, int(day))
	}
	return out
}

func intsToWeekdays(days []int) pq.Int64Array {
	if len(days) == 0 {
		return nil
	}
	out := make(pq.Int64Array, 0, len(days))
	for _, day := range days {
		out = append(out, int64(day))
	}
	return out
}
