package assignment

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/leadflow-crm/leadflow-backend/pkg/db/models"
	"github.com/leadflow-crm/leadflow-backend/pkg/enums"
)

var (
	// ErrNoEligibleMember signals a rule whose wheel is empty; the caller
	// moves on to the next candidate rule.
	ErrNoEligibleMember = errors.New("rule has no eligible member")
	// ErrLeadAlreadyAssigned signals the conditional lead write matched
	// zero rows because another writer got there first.
	ErrLeadAlreadyAssigned = errors.New("lead already assigned")
)

// Result describes one committed automatic assignment.
type Result struct {
	LeadID     uuid.UUID                `json:"lead_id"`
	AgentID    uuid.UUID                `json:"agent_id"`
	RuleID     uuid.UUID                `json:"rule_id"`
	MemberID   uuid.UUID                `json:"member_id"`
	Strategy   enums.AssignmentStrategy `json:"strategy"`
	AssignedAt time.Time                `json:"assigned_at"`
}

// Repository owns assignment rules, their members and rotation pointers, plus
// the transactional assignment write that spans leads and activity rows.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an assignment repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateRule inserts a new assignment rule.
func (r *Repository) CreateRule(ctx context.Context, rule *models.AssignmentRule) error {
	return r.db.WithContext(ctx).Create(rule).Error
}

// FindRule loads a rule by ID.
func (r *Repository) FindRule(ctx context.Context, id uuid.UUID) (*models.AssignmentRule, error) {
	var rule models.AssignmentRule
	if err := r.db.WithContext(ctx).First(&rule, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &rule, nil
}

// ListRules returns all rules ordered the way the engine walks them.
func (r *Repository) ListRules(ctx context.Context) ([]models.AssignmentRule, error) {
	var rules []models.AssignmentRule
	if err := r.db.WithContext(ctx).
		Order("priority ASC, id ASC").
		Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

// ListActiveRules returns only rules flagged active. Window evaluation is the
// caller's job; the flag alone is filterable in SQL.
func (r *Repository) ListActiveRules(ctx context.Context) ([]models.AssignmentRule, error) {
	var rules []models.AssignmentRule
	if err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("priority ASC, id ASC").
		Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

// UpdateRule persists the full rule row.
func (r *Repository) UpdateRule(ctx context.Context, rule *models.AssignmentRule) error {
	return r.db.WithContext(ctx).Save(rule).Error
}

// DeleteRule removes a rule together with its members and pointer.
func (r *Repository) DeleteRule(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("rule_id = ?", id).Delete(&models.RuleMember{}).Error; err != nil {
			return err
		}
		if err := tx.Where("rule_id = ?", id).Delete(&models.AssignmentPointer{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.AssignmentRule{}, "id = ?", id).Error
	})
}

// CreateMember attaches an agent to a rule.
func (r *Repository) CreateMember(ctx context.Context, member *models.RuleMember) error {
	return r.db.WithContext(ctx).Create(member).Error
}

// FindMember loads a rule member by ID.
func (r *Repository) FindMember(ctx context.Context, id uuid.UUID) (*models.RuleMember, error) {
	var member models.RuleMember
	if err := r.db.WithContext(ctx).First(&member, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

// ListMembers returns every member of a rule in stable rotation order.
// Rotation slots derive from this ordering, so it must not change between
// reads: insertion order with ID as tiebreaker.
func (r *Repository) ListMembers(ctx context.Context, ruleID uuid.UUID) ([]models.RuleMember, error) {
	var members []models.RuleMember
	if err := r.db.WithContext(ctx).
		Where("rule_id = ?", ruleID).
		Order("created_at ASC, id ASC").
		Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

// UpdateMember persists the full member row.
func (r *Repository) UpdateMember(ctx context.Context, member *models.RuleMember) error {
	return r.db.WithContext(ctx).Save(member).Error
}

// DeleteMember detaches an agent from a rule.
func (r *Repository) DeleteMember(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.RuleMember{}, "id = ?", id).Error
}

// GetPointer returns the rule's rotation pointer, or nil when no assignment
// has happened yet.
func (r *Repository) GetPointer(ctx context.Context, ruleID uuid.UUID) (*models.AssignmentPointer, error) {
	var ptr models.AssignmentPointer
	err := r.db.WithContext(ctx).First(&ptr, "rule_id = ?", ruleID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ptr, nil
}

// ExecuteAttempt runs one transactional assignment attempt of leadID against
// rule. The pointer row is locked for the duration of the transaction so two
// concurrent attempts against the same rule serialize instead of double
// spending a slot. On success the lead write, the activity row, the member
// counters and the pointer advance commit together; any failure rolls all of
// them back. Returns ErrNoEligibleMember when the rule's wheel is empty and
// ErrLeadAlreadyAssigned when another writer claimed the lead first.
func (r *Repository) ExecuteAttempt(ctx context.Context, rule models.AssignmentRule, members []models.RuleMember, leadID uuid.UUID, now time.Time) (*Result, error) {
	var result *Result
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ptr, err := lockPointer(tx, rule.ID)
		if err != nil {
			return err
		}

		member, next, ok := nextSlot(rule.Strategy, members, ptr.CurrentIndex)
		if !ok {
			return ErrNoEligibleMember
		}

		res := tx.Model(&models.Lead{}).
			Where("id = ? AND assigned_agent_id IS NULL", leadID).
			Updates(map[string]any{
				"assigned_agent_id": member.AgentID,
				"assigned_at":       now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrLeadAlreadyAssigned
		}

		meta, err := json.Marshal(map[string]any{
			"rule_id":   rule.ID,
			"rule_name": rule.Name,
			"strategy":  rule.Strategy,
			"agent_id":  member.AgentID,
		})
		if err != nil {
			return err
		}
		activity := models.LeadActivity{
			ID:       uuid.New(),
			LeadID:   leadID,
			Action:   enums.ActivityActionAssignedAuto,
			Remark:   "assigned to agent via rule " + rule.Name,
			Metadata: meta,
		}
		if err := tx.Create(&activity).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.RuleMember{}).
			Where("id = ?", member.ID).
			Updates(map[string]any{
				"assigned_count":   gorm.Expr("assigned_count + 1"),
				"last_assigned_at": now,
			}).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.AssignmentPointer{}).
			Where("rule_id = ?", rule.ID).
			Updates(map[string]any{
				"current_index":     next,
				"last_agent_id":     member.AgentID,
				"total_assignments": gorm.Expr("total_assignments + 1"),
			}).Error; err != nil {
			return err
		}

		result = &Result{
			LeadID:     leadID,
			AgentID:    member.AgentID,
			RuleID:     rule.ID,
			MemberID:   member.ID,
			Strategy:   rule.Strategy,
			AssignedAt: now,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// AssignManual conditionally hands one lead to agentID on behalf of actorID.
// The lead write and its activity row commit together. Rotation pointers and
// member counters are untouched: manual picks sit outside rule fairness.
// Returns ErrLeadAlreadyAssigned when the lead already carries an agent.
func (r *Repository) AssignManual(ctx context.Context, leadID, agentID, actorID uuid.UUID, remark string, now time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Lead{}).
			Where("id = ? AND assigned_agent_id IS NULL", leadID).
			Updates(map[string]any{
				"assigned_agent_id": agentID,
				"assigned_at":       now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var exists int64
			if err := tx.Model(&models.Lead{}).Where("id = ?", leadID).Count(&exists).Error; err != nil {
				return err
			}
			if exists == 0 {
				return gorm.ErrRecordNotFound
			}
			return ErrLeadAlreadyAssigned
		}

		meta, err := json.Marshal(map[string]any{"agent_id": agentID})
		if err != nil {
			return err
		}
		activity := models.LeadActivity{
			ID:          uuid.New(),
			LeadID:      leadID,
			ActorUserID: &actorID,
			Action:      enums.ActivityActionAssignedManual,
			Remark:      remark,
			Metadata:    meta,
		}
		return tx.Create(&activity).Error
	})
}

// lockPointer loads the rule's pointer under a row lock, creating the row on
// first use. The insert tolerates a concurrent creator via ON CONFLICT DO
// NOTHING and re-reads under the lock.
func lockPointer(tx *gorm.DB, ruleID uuid.UUID) (*models.AssignmentPointer, error) {
	var ptr models.AssignmentPointer
	err := pointerLockQuery(tx).First(&ptr, "rule_id = ?", ruleID).Error
	if err == nil {
		return &ptr, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	ptr = models.AssignmentPointer{RuleID: ruleID}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&ptr).Error; err != nil {
		return nil, err
	}
	if err := pointerLockQuery(tx).First(&ptr, "rule_id = ?", ruleID).Error; err != nil {
		return nil, err
	}
	return &ptr, nil
}

// pointerLockQuery applies FOR UPDATE on dialects that support it. SQLite,
// used by the repo tests, serializes writers at the database level instead.
func pointerLockQuery(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}
