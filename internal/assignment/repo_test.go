package assignment

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	pkgdb "github.com/leadflow-crm/leadflow-backend/pkg/db"
	"github.com/leadflow-crm/leadflow-backend/pkg/db/models"
	"github.com/leadflow-crm/leadflow-backend/pkg/enums"
)

func setupAssignmentTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	leads := `
CREATE TABLE IF NOT EXISTS leads (
  id TEXT PRIMARY KEY,
  full_name TEXT NOT NULL,
  phone TEXT,
  email TEXT,
  source_id TEXT,
  status TEXT NOT NULL DEFAULT 'new',
  estimated_value NUMERIC,
  notes TEXT,
  assigned_agent_id TEXT,
  assigned_at DATETIME,
  created_by_user_id TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	rules := `
CREATE TABLE IF NOT EXISTS assignment_rules (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  source_id TEXT,
  strategy TEXT NOT NULL,
  is_active INTEGER NOT NULL DEFAULT 1,
  priority INTEGER NOT NULL DEFAULT 0,
  start_minute INTEGER,
  end_minute INTEGER,
  weekdays TEXT,
  fallback_rule_id TEXT,
  fallback_manual INTEGER NOT NULL DEFAULT 0,
  config TEXT,
  created_by_user_id TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	members := `
CREATE TABLE IF NOT EXISTS rule_members (
  id TEXT PRIMARY KEY,
  rule_id TEXT NOT NULL,
  agent_id TEXT NOT NULL,
  share_mode TEXT NOT NULL DEFAULT 'weight',
  percentage INTEGER,
  weight INTEGER NOT NULL DEFAULT 1 CHECK (weight >= 1),
  is_active INTEGER NOT NULL DEFAULT 1,
  assigned_count INTEGER NOT NULL DEFAULT 0,
  last_assigned_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (rule_id, agent_id)
);`
	pointers := `
CREATE TABLE IF NOT EXISTS assignment_pointers (
  rule_id TEXT PRIMARY KEY,
  current_index INTEGER NOT NULL DEFAULT 0,
  last_agent_id TEXT,
  total_assignments INTEGER NOT NULL DEFAULT 0,
  updated_at DATETIME
);`
	activities := `
CREATE TABLE IF NOT EXISTS lead_activities (
  id TEXT PRIMARY KEY,
  lead_id TEXT NOT NULL,
  actor_user_id TEXT,
  action TEXT NOT NULL,
  old_status TEXT,
  new_status TEXT,
  remark TEXT NOT NULL DEFAULT '',
  metadata TEXT,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(leads).Error)
	require.NoError(t, db.Exec(rules).Error)
	require.NoError(t, db.Exec(members).Error)
	require.NoError(t, db.Exec(pointers).Error)
	require.NoError(t, db.Exec(activities).Error)
	return db
}

func seedRule(t *testing.T, db *gorm.DB, strategy enums.AssignmentStrategy) *models.AssignmentRule {
	t.Helper()
	rule := &models.AssignmentRule{
		ID:       uuid.New(),
		Name:     "test rule",
		Strategy: strategy,
		IsActive: true,
	}
	require.NoError(t, db.Create(rule).Error)
	return rule
}

func seedMember(t *testing.T, db *gorm.DB, ruleID uuid.UUID, weight int, created time.Time) *models.RuleMember {
	t.Helper()
	member := &models.RuleMember{
		ID:        uuid.New(),
		RuleID:    ruleID,
		AgentID:   uuid.New(),
		ShareMode: enums.ShareModeWeight,
		Weight:    weight,
		IsActive:  true,
		CreatedAt: created,
	}
	require.NoError(t, db.Create(member).Error)
	return member
}

func seedLead(t *testing.T, db *gorm.DB, name string) *models.Lead {
	t.Helper()
	lead := &models.Lead{
		ID:       uuid.New(),
		FullName: name,
		Status:   enums.LeadStatusNew,
	}
	require.NoError(t, db.Create(lead).Error)
	return lead
}

func TestExecuteAttemptRoundRobinPersistsState(t *testing.T) {
	db := setupAssignmentTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	rule := seedRule(t, db, enums.AssignmentStrategyRoundRobin)
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	first := seedMember(t, db, rule.ID, 1, base)
	second := seedMember(t, db, rule.ID, 1, base.Add(time.Minute))

	members, err := repo.ListMembers(ctx, rule.ID)
	require.NoError(t, err)
	require.Len(t, members, 2)
	require.Equal(t, first.ID, members[0].ID, "members must list in insertion order")

	now := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	var agents []uuid.UUID
	for i := 0; i < 3; i++ {
		lead := seedLead(t, db, fmt.Sprintf("lead-%d", i))
		result, err := repo.ExecuteAttempt(ctx, *rule, members, lead.ID, now)
		require.NoError(t, err)
		agents = append(agents, result.AgentID)

		var stored models.Lead
		require.NoError(t, db.First(&stored, "id = ?", lead.ID).Error)
		require.NotNil(t, stored.AssignedAgentID)
		assert.Equal(t, result.AgentID, *stored.AssignedAgentID)
		require.NotNil(t, stored.AssignedAt)
	}

	assert.Equal(t, first.AgentID, agents[0])
	assert.Equal(t, second.AgentID, agents[1])
	assert.Equal(t, first.AgentID, agents[2], "rotation must wrap")

	pointer, err := repo.GetPointer(ctx, rule.ID)
	require.NoError(t, err)
	require.NotNil(t, pointer)
	assert.Equal(t, 1, pointer.CurrentIndex, "three picks over a wheel of two end at slot 1")
	assert.Equal(t, int64(3), pointer.TotalAssignments)
	require.NotNil(t, pointer.LastAgentID)
	assert.Equal(t, first.AgentID, *pointer.LastAgentID)

	var firstStored models.RuleMember
	require.NoError(t, db.First(&firstStored, "id = ?", first.ID).Error)
	assert.Equal(t, int64(2), firstStored.AssignedCount)
	require.NotNil(t, firstStored.LastAssignedAt)

	var activityCount int64
	require.NoError(t, db.Model(&models.LeadActivity{}).
		Where("action = ?", enums.ActivityActionAssignedAuto).
		Count(&activityCount).Error)
	assert.Equal(t, int64(3), activityCount)
}

func TestExecuteAttemptAlreadyAssignedRollsBack(t *testing.T) {
	db := setupAssignmentTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	rule := seedRule(t, db, enums.AssignmentStrategyRoundRobin)
	seedMember(t, db, rule.ID, 1, time.Now())
	members, err := repo.ListMembers(ctx, rule.ID)
	require.NoError(t, err)

	lead := seedLead(t, db, "taken")
	now := time.Now().UTC()
	_, err = repo.ExecuteAttempt(ctx, *rule, members, lead.ID, now)
	require.NoError(t, err)

	pointerBefore, err := repo.GetPointer(ctx, rule.ID)
	require.NoError(t, err)

	_, err = repo.ExecuteAttempt(ctx, *rule, members, lead.ID, now)
	assert.ErrorIs(t, err, ErrLeadAlreadyAssigned)

	pointerAfter, err := repo.GetPointer(ctx, rule.ID)
	require.NoError(t, err)
	assert.Equal(t, pointerBefore.CurrentIndex, pointerAfter.CurrentIndex, "failed attempt must not advance the pointer")
	assert.Equal(t, pointerBefore.TotalAssignments, pointerAfter.TotalAssignments)
}

func TestExecuteAttemptNoEligibleMember(t *testing.T) {
	db := setupAssignmentTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	rule := seedRule(t, db, enums.AssignmentStrategyRoundRobin)
	inactive := seedMember(t, db, rule.ID, 1, time.Now())
	require.NoError(t, db.Model(&models.RuleMember{}).
		Where("id = ?", inactive.ID).
		UpdateColumn("is_active", false).Error)

	members, err := repo.ListMembers(ctx, rule.ID)
	require.NoError(t, err)

	lead := seedLead(t, db, "stuck")
	_, err = repo.ExecuteAttempt(ctx, *rule, members, lead.ID, time.Now().UTC())
	assert.ErrorIs(t, err, ErrNoEligibleMember)

	var stored models.Lead
	require.NoError(t, db.First(&stored, "id = ?", lead.ID).Error)
	assert.Nil(t, stored.AssignedAgentID)
}

func TestAssignManualConditionalWrite(t *testing.T) {
	db := setupAssignmentTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	lead := seedLead(t, db, "manual")
	agentID := uuid.New()
	actorID := uuid.New()
	now := time.Now().UTC()

	require.NoError(t, repo.AssignManual(ctx, lead.ID, agentID, actorID, "priority client", now))

	var stored models.Lead
	require.NoError(t, db.First(&stored, "id = ?", lead.ID).Error)
	require.NotNil(t, stored.AssignedAgentID)
	assert.Equal(t, agentID, *stored.AssignedAgentID)

	err := repo.AssignManual(ctx, lead.ID, uuid.New(), actorID, "", now)
	assert.ErrorIs(t, err, ErrLeadAlreadyAssigned)

	err = repo.AssignManual(ctx, uuid.New(), agentID, actorID, "", now)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	var activity models.LeadActivity
	require.NoError(t, db.First(&activity, "lead_id = ?", lead.ID).Error)
	assert.Equal(t, enums.ActivityActionAssignedManual, activity.Action)
	require.NotNil(t, activity.ActorUserID)
	assert.Equal(t, actorID, *activity.ActorUserID)
	assert.Equal(t, "priority client", activity.Remark)
}

func TestDeleteRuleCascades(t *testing.T) {
	db := setupAssignmentTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	rule := seedRule(t, db, enums.AssignmentStrategyRoundRobin)
	seedMember(t, db, rule.ID, 1, time.Now())
	members, err := repo.ListMembers(ctx, rule.ID)
	require.NoError(t, err)
	lead := seedLead(t, db, "cascade")
	_, err = repo.ExecuteAttempt(ctx, *rule, members, lead.ID, time.Now().UTC())
	require.NoError(t, err)

	require.NoError(t, repo.DeleteRule(ctx, rule.ID))

	var ruleCount, memberCount, pointerCount int64
	require.NoError(t, db.Model(&models.AssignmentRule{}).Count(&ruleCount).Error)
	require.NoError(t, db.Model(&models.RuleMember{}).Count(&memberCount).Error)
	require.NoError(t, db.Model(&models.AssignmentPointer{}).Count(&pointerCount).Error)
	assert.Zero(t, ruleCount)
	assert.Zero(t, memberCount)
	assert.Zero(t, pointerCount)
}

func TestCreateMemberDuplicateAgentUniqueViolation(t *testing.T) {
	db := setupAssignmentTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	rule := seedRule(t, db, enums.AssignmentStrategyRoundRobin)
	member := seedMember(t, db, rule.ID, 1, time.Now())

	dup := &models.RuleMember{
		ID:        uuid.New(),
		RuleID:    rule.ID,
		AgentID:   member.AgentID,
		ShareMode: enums.ShareModeWeight,
		Weight:    1,
		IsActive:  true,
	}
	err := repo.CreateMember(ctx, dup)
	require.Error(t, err)
	assert.True(t, pkgdb.IsUniqueViolation(err, ""))
}
