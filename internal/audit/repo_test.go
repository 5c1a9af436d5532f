package audit

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

	"github.com/leadflow-crm/leadflow-backend/pkg/db/models"
	"github.com/leadflow-crm/leadflow-backend/pkg/enums"
)

func setupAuditTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	schema := `
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
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func seedActivity(t *testing.T, db *gorm.DB, action enums.ActivityAction, created time.Time) *models.LeadActivity {
	t.Helper()
	activity := &models.LeadActivity{
		ID:        uuid.New(),
		LeadID:    uuid.New(),
		Action:    action,
		CreatedAt: created,
	}
	require.NoError(t, db.Create(activity).Error)
	return activity
}

func TestDeleteOlderThanKeepsAssignmentHistory(t *testing.T) {
	db := setupAuditTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	cutoff := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	old := cutoff.Add(-48 * time.Hour)
	fresh := cutoff.Add(48 * time.Hour)

	seedActivity(t, db, enums.ActivityActionCreated, old)
	seedActivity(t, db, enums.ActivityActionStatusChanged, old)
	autoRow := seedActivity(t, db, enums.ActivityActionAssignedAuto, old)
	manualRow := seedActivity(t, db, enums.ActivityActionAssignedManual, old)
	keptFresh := seedActivity(t, db, enums.ActivityActionCreated, fresh)

	deleted, err := repo.DeleteOlderThan(ctx, db, cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	var remaining []models.LeadActivity
	require.NoError(t, db.Find(&remaining).Error)
	require.Len(t, remaining, 3)
	ids := map[uuid.UUID]bool{}
	for _, row := range remaining {
		ids[row.ID] = true
	}
	assert.True(t, ids[autoRow.ID], "automatic assignment history must survive retention")
	assert.True(t, ids[manualRow.ID], "manual assignment history must survive retention")
	assert.True(t, ids[keptFresh.ID], "rows inside the horizon must survive")
}
