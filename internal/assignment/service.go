package assignment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/leadflow-crm/leadflow-backend/pkg/db"
	"github.com/leadflow-crm/leadflow-backend/pkg/db/models"
	"github.com/leadflow-crm/leadflow-backend/pkg/enums"
	pkgerrors "github.com/leadflow-crm/leadflow-backend/pkg/errors"
)

// ruleStore is the persistence surface the rule-management service needs.
type ruleStore interface {
	CreateRule(ctx context.Context, rule *models.AssignmentRule) error
	FindRule(ctx context.Context, id uuid.UUID) (*models.AssignmentRule, error)
	ListRules(ctx context.Context) ([]models.AssignmentRule, error)
	UpdateRule(ctx context.Context, rule *models.AssignmentRule) error
	DeleteRule(ctx context.Context, id uuid.UUID) error
	CreateMember(ctx context.Context, member *models.RuleMember) error
	FindMember(ctx context.Context, id uuid.UUID) (*models.RuleMember, error)
	ListMembers(ctx context.Context, ruleID uuid.UUID) ([]models.RuleMember, error)
	UpdateMember(ctx context.Context, member *models.RuleMember) error
	DeleteMember(ctx context.Context, id uuid.UUID) error
	GetPointer(ctx context.Context, ruleID uuid.UUID) (*models.AssignmentPointer, error)
}

// Service manages assignment rules and their membership. Mutations require a
// role that may manage rules; reads are open to any authenticated caller.
type Service interface {
	CreateRule(ctx context.Context, actorRole enums.UserRole, actorID uuid.UUID, dto CreateRuleDTO) (*RuleDTO, error)
	GetRule(ctx context.Context, id uuid.UUID) (*RuleDTO, error)
	ListRules(ctx context.Context) ([]RuleDTO, error)
	UpdateRule(ctx context.Context, actorRole enums.UserRole, id uuid.UUID, dto UpdateRuleDTO) (*RuleDTO, error)
	DeleteRule(ctx context.Context, actorRole enums.UserRole, id uuid.UUID) error
	AddMember(ctx context.Context, actorRole enums.UserRole, ruleID uuid.UUID, dto CreateMemberDTO) (*MemberDTO, error)
	UpdateMember(ctx context.Context, actorRole enums.UserRole, ruleID, memberID uuid.UUID, dto UpdateMemberDTO) (*MemberDTO, error)
	RemoveMember(ctx context.Context, actorRole enums.UserRole, ruleID, memberID uuid.UUID) error
	RuleStatus(ctx context.Context, id uuid.UUID) (*RuleStatusDTO, error)
}

type service struct {
	store  ruleStore
	agents agentDirectory
	now    func() time.Time
}

// NewService builds the rule-management service.
func NewService(store ruleStore, agents agentDirectory) (Service, error) {
	if store == nil {
		return nil, errors.New("assignment store required")
	}
	if agents == nil {
		return nil, errors.New("agent directory required")
	}
	return &service{store: store, agents: agents, now: time.Now}, nil
}

func (s *service) CreateRule(ctx context.Context, actorRole enums.UserRole, actorID uuid.UUID, dto CreateRuleDTO) (*RuleDTO, error) {
	if !actorRole.CanManageRules() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role to manage rules")
	}
	if dto.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	strategy, err := enums.ParseAssignmentStrategy(dto.Strategy)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid strategy")
	}
	if err := validateWindow(dto.StartMinute, dto.EndMinute); err != nil {
		return nil, err
	}
	if err := validateWeekdays(dto.Weekdays); err != nil {
		return nil, err
	}
	if dto.FallbackRuleID != nil {
		if _, err := s.findFallbackRule(ctx, *dto.FallbackRuleID); err != nil {
			return nil, err
		}
	}

	rule := models.AssignmentRule{
		Name:            dto.Name,
		SourceID:        dto.SourceID,
		Strategy:        strategy,
		IsActive:        true,
		Priority:        dto.Priority,
		StartMinute:     dto.StartMinute,
		EndMinute:       dto.EndMinute,
		Weekdays:        intsToWeekdays(dto.Weekdays),
		FallbackRuleID:  dto.FallbackRuleID,
		FallbackManual:  dto.FallbackManual,
		Config:          dto.Config,
		CreatedByUserID: &actorID,
	}
	if dto.IsActive != nil {
		rule.IsActive = *dto.IsActive
	}
	if err := s.store.CreateRule(ctx, &rule); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create rule")
	}
	out := ruleToDTO(rule, nil)
	return &out, nil
}

func (s *service) GetRule(ctx context.Context, id uuid.UUID) (*RuleDTO, error) {
	rule, err := s.findRule(ctx, id)
	if err != nil {
		return nil, err
	}
	members, err := s.store.ListMembers(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list rule members")
	}
	out := ruleToDTO(*rule, members)
	return &out, nil
}

func (s *service) ListRules(ctx context.Context) ([]RuleDTO, error) {
	rules, err := s.store.ListRules(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list rules")
	}
	out := make([]RuleDTO, 0, len(rules))
	for _, rule := range rules {
		out = append(out, ruleToDTO(rule, nil))
	}
	return out, nil
}

func (s *service) UpdateRule(ctx context.Context, actorRole enums.UserRole, id uuid.UUID, dto UpdateRuleDTO) (*RuleDTO, error) {
	if !actorRole.CanManageRules() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role to manage rules")
	}
	rule, err := s.findRule(ctx, id)
	if err != nil {
		return nil, err
	}

	if dto.Name != nil {
		if *dto.Name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		rule.Name = *dto.Name
	}
	if dto.Strategy != nil {
		strategy, err := enums.ParseAssignmentStrategy(*dto.Strategy)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid strategy")
		}
		rule.Strategy = strategy
	}
	if dto.Priority != nil {
		rule.Priority = *dto.Priority
	}
	if dto.ClearWindow {
		rule.StartMinute = nil
		rule.EndMinute = nil
		rule.Weekdays = nil
	}
	if dto.StartMinute != nil {
		rule.StartMinute = dto.StartMinute
	}
	if dto.EndMinute != nil {
		rule.EndMinute = dto.EndMinute
	}
	if err := validateWindow(rule.StartMinute, rule.EndMinute); err != nil {
		return nil, err
	}
	if dto.Weekdays != nil {
		if err := validateWeekdays(*dto.Weekdays); err != nil {
			return nil, err
		}
		rule.Weekdays = intsToWeekdays(*dto.Weekdays)
	}
	if dto.ClearFallbackRule {
		rule.FallbackRuleID = nil
	}
	if dto.FallbackRuleID != nil {
		if *dto.FallbackRuleID == id {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "rule cannot fall back to itself")
		}
		if _, err := s.findFallbackRule(ctx, *dto.FallbackRuleID); err != nil {
			return nil, err
		}
		rule.FallbackRuleID = dto.FallbackRuleID
	}
	if dto.FallbackManual != nil {
		rule.FallbackManual = *dto.FallbackManual
	}
	if dto.Config != nil {
		rule.Config = dto.Config
	}
	if dto.IsActive != nil {
		rule.IsActive = *dto.IsActive
	}

	if err := s.store.UpdateRule(ctx, rule); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update rule")
	}
	out := ruleToDTO(*rule, nil)
	return &out, nil
}

func (s *service) DeleteRule(ctx context.Context, actorRole enums.UserRole, id uuid.UUID) error {
	if !actorRole.CanManageRules() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role to manage rules")
	}
	if _, err := s.findRule(ctx, id); err != nil {
		return err
	}
	if err := s.store.DeleteRule(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete rule")
	}
	return nil
}

func (s *service) AddMember(ctx context.Context, actorRole enums.UserRole, ruleID uuid.UUID, dto CreateMemberDTO) (*MemberDTO, error) {
	if !actorRole.CanManageRules() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role to manage rules")
	}
	if _, err := s.findRule(ctx, ruleID); err != nil {
		return nil, err
	}
	agent, err := s.agents.GetActiveAgent(ctx, dto.AgentID)
	if err != nil {
		return nil, err
	}

	member := models.RuleMember{
		RuleID:    ruleID,
		AgentID:   agent.ID,
		ShareMode: enums.ShareModeWeight,
		Weight:    1,
		IsActive:  true,
	}
	if dto.ShareMode != "" {
		mode, err := enums.ParseShareMode(dto.ShareMode)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid share mode")
		}
		member.ShareMode = mode
	}
	if err := applyShare(&member, dto.Percentage, dto.Weight); err != nil {
		return nil, err
	}
	if dto.IsActive != nil {
		member.IsActive = *dto.IsActive
	}

	// The (rule_id, agent_id) unique constraint is the duplicate check; a
	// pre-read would leave a window for a concurrent add to slip through.
	if err := s.store.CreateMember(ctx, &member); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "agent already attached to rule")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create rule member")
	}
	out := memberToDTO(member)
	return &out, nil
}

func (s *service) UpdateMember(ctx context.Context, actorRole enums.UserRole, ruleID, memberID uuid.UUID, dto UpdateMemberDTO) (*MemberDTO, error) {
	if !actorRole.CanManageRules() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role to manage rules")
	}
	member, err := s.findMember(ctx, ruleID, memberID)
	if err != nil {
		return nil, err
	}

	if dto.ShareMode != nil {
		mode, err := enums.ParseShareMode(*dto.ShareMode)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid share mode")
		}
		member.ShareMode = mode
	}
	if err := applyShare(member, dto.Percentage, dto.Weight); err != nil {
		return nil, err
	}
	if dto.IsActive != nil {
		member.IsActive = *dto.IsActive
	}

	if err := s.store.UpdateMember(ctx, member); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update rule member")
	}
	out := memberToDTO(*member)
	return &out, nil
}

func (s *service) RemoveMember(ctx context.Context, actorRole enums.UserRole, ruleID, memberID uuid.UUID) error {
	if !actorRole.CanManageRules() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role to manage rules")
	}
	if _, err := s.findMember(ctx, ruleID, memberID); err != nil {
		return err
	}
	if err := s.store.DeleteMember(ctx, memberID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete rule member")
	}
	return nil
}

func (s *service) RuleStatus(ctx context.Context, id uuid.UUID) (*RuleStatusDTO, error) {
	rule, err := s.findRule(ctx, id)
	if err != nil {
		return nil, err
	}
	members, err := s.store.ListMembers(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list rule members")
	}
	pointer, err := s.store.GetPointer(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load rotation pointer")
	}

	status := RuleStatusDTO{
		RuleID:    rule.ID,
		Live:      RuleIsActive(*rule, s.now()),
		WheelSize: len(buildSlots(rule.Strategy, members)),
	}
	for _, member := range members {
		status.Members = append(status.Members, memberToDTO(member))
	}
	if pointer != nil {
		status.CurrentIndex = pointer.CurrentIndex
		status.LastAgentID = pointer.LastAgentID
		status.TotalAssignments = pointer.TotalAssignments
	}
	return &status, nil
}

func (s *service) findRule(ctx context.Context, id uuid.UUID) (*models.AssignmentRule, error) {
	rule, err := s.store.FindRule(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "rule not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load rule")
	}
	return rule, nil
}

// findFallbackRule resolves a fallback reference. A missing target is a
// validation failure on the referencing rule, not a 404.
func (s *service) findFallbackRule(ctx context.Context, id uuid.UUID) (*models.AssignmentRule, error) {
	rule, err := s.store.FindRule(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "fallback rule not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load fallback rule")
	}
	return rule, nil
}

func (s *service) findMember(ctx context.Context, ruleID, memberID uuid.UUID) (*models.RuleMember, error) {
	member, err := s.store.FindMember(ctx, memberID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "rule member not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load rule member")
	}
	if member.RuleID != ruleID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "rule member not found")
	}
	return member, nil
}

// validateWindow enforces the all-or-nothing window contract and minute-of-day
// bounds with start never past end.
func validateWindow(start, end *int) error {
	if (start == nil) != (end == nil) {
		return pkgerrors.New(pkgerrors.CodeValidation, "start_minute and end_minute must be set together")
	}
	if start == nil {
		return nil
	}
	if *start < 0 || *start > 1439 || *end < 0 || *end > 1439 {
		return pkgerrors.New(pkgerrors.CodeValidation, "window minutes must be within 0..1439")
	}
	if *start > *end {
		return pkgerrors.New(pkgerrors.CodeValidation, "start_minute cannot be after end_minute")
	}
	return nil
}

func validateWeekdays(days []int) error {
	for _, day := range days {
		if day < 0 || day > 6 {
			return pkgerrors.New(pkgerrors.CodeValidation, "weekdays must be within 0..6")
		}
	}
	return nil
}

func applyShare(member *models.RuleMember, percentage, weight *int) error {
	if percentage != nil {
		if *percentage < 0 || *percentage > 100 {
			return pkgerrors.New(pkgerrors.CodeValidation, "percentage must be within 0..100")
		}
		member.Percentage = percentage
	}
	if weight != nil {
		if *weight < 1 {
			return pkgerrors.New(pkgerrors.CodeValidation, "weight must be at least 1")
		}
		member.Weight = *weight
	}
	if member.ShareMode == enums.ShareModePercentage && member.Percentage == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "percentage is required for percentage share mode")
	}
	return nil
}
