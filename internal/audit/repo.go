package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/leadflow-crm/leadflow-backend/pkg/db/models"
	"github.com/leadflow-crm/leadflow-backend/pkg/enums"
)

// Repository persists lead activity rows. Rows are append-only; the only
// delete path is the retention job.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an audit repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Append inserts one activity row.
func (r *Repository) Append(ctx context.Context, activity *models.LeadActivity) error {
	return r.db.WithContext(ctx).Create(activity).Error
}

// ListByLead returns the lead's activity newest-first, capped at limit.
func (r *Repository) ListByLead(ctx context.Context, leadID uuid.UUID, limit int) ([]models.LeadActivity, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []models.LeadActivity
	if err := r.db.WithContext(ctx).
		Where("lead_id = ?", leadID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// DeleteOlderThan removes activity rows created before cutoff using the
// provided transaction. Assignment rows are the record of who received which
// lead and never age out; only lifecycle noise is pruned. Returns the number
// of rows removed.
func (r *Repository) DeleteOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
	res := tx.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Where("action NOT IN ?", []enums.ActivityAction{
			enums.ActivityActionAssignedAuto,
			enums.ActivityActionAssignedManual,
		}).
		Delete(&models.LeadActivity{})
	return res.RowsAffected, res.Error
}
