package sources

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/leadflow-crm/leadflow-backend/pkg/db/models"
)

// Repository exposes lead source persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a sources repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new lead source.
func (r *Repository) Create(ctx context.Context, source *models.LeadSource) error {
	return r.db.WithContext(ctx).Create(source).Error
}

// FindByID loads a source by its UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.LeadSource, error) {
	var source models.LeadSource
	if err := r.db.WithContext(ctx).First(&source, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &source, nil
}

// List returns every source in name order.
func (r *Repository) List(ctx context.Context) ([]models.LeadSource, error) {
	var rows []models.LeadSource
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Update persists the full source row.
func (r *Repository) Update(ctx context.Context, source *models.LeadSource) error {
	return r.db.WithContext(ctx).Save(source).Error
}
