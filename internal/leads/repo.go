package leads

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/leadflow-crm/leadflow-backend/pkg/db/models"
	"github.com/leadflow-crm/leadflow-backend/pkg/enums"
	"github.com/leadflow-crm/leadflow-backend/pkg/pagination"
)

// ListLeadsParams narrows a cursor-paginated lead listing.
type ListLeadsParams struct {
	Status         *enums.LeadStatus
	SourceID       *uuid.UUID
	AgentID        *uuid.UUID
	UnassignedOnly bool
	Limit          int
	Cursor         *pagination.Cursor
}

// Repository exposes lead persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a leads repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new lead.
func (r *Repository) Create(ctx context.Context, lead *models.Lead) error {
	return r.db.WithContext(ctx).Create(lead).Error
}

// FindByID loads a lead by its UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Lead, error) {
	var lead models.Lead
	if err := r.db.WithContext(ctx).First(&lead, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &lead, nil
}

// List returns a page of leads newest-first with an optional next cursor.
func (r *Repository) List(ctx context.Context, params ListLeadsParams) ([]models.Lead, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).Model(&models.Lead{})
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.SourceID != nil {
		query = query.Where("source_id = ?", *params.SourceID)
	}
	if params.AgentID != nil {
		query = query.Where("assigned_agent_id = ?", *params.AgentID)
	}
	if params.UnassignedOnly {
		query = query.Where("assigned_agent_id IS NULL")
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var rows []models.Lead
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, nil, err
	}

	if len(rows) > normalized {
		rows = rows[:normalized]
		last := rows[len(rows)-1]
		next := pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
		return rows, &next, nil
	}
	return rows, nil, nil
}

// ListUnassigned returns up to limit unassigned leads oldest-first, the order
// the sweep retries them in. A non-nil sourceID narrows the scan to one source.
func (r *Repository) ListUnassigned(ctx context.Context, sourceID *uuid.UUID, limit int) ([]models.Lead, error) {
	var rows []models.Lead
	query := r.db.WithContext(ctx).Where("assigned_agent_id IS NULL")
	if sourceID != nil {
		query = query.Where("source_id = ?", *sourceID)
	}
	if err := query.
		Order("created_at ASC, id ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// UpdateStatus flips the lead's pipeline status.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.LeadStatus, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Lead{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     status,
			"updated_at": at,
		}).Error
}
