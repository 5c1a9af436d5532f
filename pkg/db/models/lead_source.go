package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/leadflow-crm/leadflow-backend/pkg/enums"
)

// LeadSource identifies where leads originate (a webhook integration, a Meta
// lead form, a call-tracking provider, or manual entry). Assignment rules
// scope to a source by id.
type LeadSource struct {
	ID        uuid.UUID            `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string               `gorm:"type:text;not null;uniqueIndex"`
	Kind      enums.LeadSourceKind `gorm:"column:kind;type:lead_source_kind;not null"`
	IsActive  bool                 `gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
