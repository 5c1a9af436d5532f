package sources

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/leadflow-crm/leadflow-backend/pkg/db/models"
	"github.com/leadflow-crm/leadflow-backend/pkg/enums"
	pkgerrors "github.com/leadflow-crm/leadflow-backend/pkg/errors"
)

// SourceDTO is the API view of a lead source.
type SourceDTO struct {
	ID        uuid.UUID            `json:"id"`
	Name      string               `json:"name"`
	Kind      enums.LeadSourceKind `json:"kind"`
	IsActive  bool                 `json:"is_active"`
	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`
}

// CreateSourceDTO is the payload for registering a lead source.
type CreateSourceDTO struct {
	Name string `json:"name" validate:"required,max=120"`
	Kind string `json:"kind" validate:"required"`
}

// UpdateSourceDTO carries a partial source update; nil fields are untouched.
type UpdateSourceDTO struct {
	Name     *string `json:"name" validate:"omitempty,max=120"`
	IsActive *bool   `json:"is_active"`
}

type sourceStore interface {
	Create(ctx context.Context, source *models.LeadSource) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.LeadSource, error)
	List(ctx context.Context) ([]models.LeadSource, error)
	Update(ctx context.Context, source *models.LeadSource) error
}

// Service manages the lead source directory. Mutations require a managing
// role.
type Service interface {
	Create(ctx context.Context, actorRole enums.UserRole, dto CreateSourceDTO) (*SourceDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*SourceDTO, error)
	List(ctx context.Context) ([]SourceDTO, error)
	Update(ctx context.Context, actorRole enums.UserRole, id uuid.UUID, dto UpdateSourceDTO) (*SourceDTO, error)
}

type service struct {
	store sourceStore
}

// NewService builds the source directory service.
func NewService(store sourceStore) (Service, error) {
	if store == nil {
		return nil, errors.New("source store required")
	}
	return &service{store: store}, nil
}

func (s *service) Create(ctx context.Context, actorRole enums.UserRole, dto CreateSourceDTO) (*SourceDTO, error) {
	if !actorRole.CanManageRules() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role to manage sources")
	}
	if dto.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	kind, err := enums.ParseLeadSourceKind(dto.Kind)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid source kind")
	}

	source := models.LeadSource{
		Name:     dto.Name,
		Kind:     kind,
		IsActive: true,
	}
	if err := s.store.Create(ctx, &source); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create source")
	}
	out := toDTO(source)
	return &out, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*SourceDTO, error) {
	source, err := s.findSource(ctx, id)
	if err != nil {
		return nil, err
	}
	out := toDTO(*source)
	return &out, nil
}

func (s *service) List(ctx context.Context) ([]SourceDTO, error) {
	rows, err := s.store.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list sources")
	}
	out := make([]SourceDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDTO(row))
	}
	return out, nil
}

func (s *service) Update(ctx context.Context, actorRole enums.UserRole, id uuid.UUID, dto UpdateSourceDTO) (*SourceDTO, error) {
	if !actorRole.CanManageRules() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role to manage sources")
	}
	source, err := s.findSource(ctx, id)
	if err != nil {
		return nil, err
	}
	if dto.Name != nil {
		if *dto.Name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		source.Name = *dto.Name
	}
	if dto.IsActive != nil {
		source.IsActive = *dto.IsActive
	}
	if err := s.store.Update(ctx, source); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update source")
	}
	out := toDTO(*source)
	return &out, nil
}

func (s *service) findSource(ctx context.Context, id uuid.UUID) (*models.LeadSource, error) {
	source, err := s.store.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "source not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load source")
	}
	return source, nil
}

func toDTO(source models.LeadSource) SourceDTO {
	return SourceDTO{
		ID:        source.ID,
		Name:      source.Name,
		Kind:      source.Kind,
		IsActive:  source.IsActive,
		CreatedAt: source.CreatedAt,
		UpdatedAt: source.UpdatedAt,
	}
}
