package leads

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/leadflow-crm/leadflow-backend/pkg/db/models"
	"github.com/leadflow-crm/leadflow-backend/pkg/enums"
	pkgerrors "github.com/leadflow-crm/leadflow-backend/pkg/errors"
	"github.com/leadflow-crm/leadflow-backend/pkg/logger"
	"github.com/leadflow-crm/leadflow-backend/pkg/pagination"
)

type leadStore interface {
	Create(ctx context.Context, lead *models.Lead) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Lead, error)
	List(ctx context.Context, params ListLeadsParams) ([]models.Lead, *pagination.Cursor, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.LeadStatus, at time.Time) error
}

type auditRecorder interface {
	LeadCreated(ctx context.Context, leadID uuid.UUID, actorID *uuid.UUID) error
	StatusChanged(ctx context.Context, leadID uuid.UUID, actorID *uuid.UUID, from, to enums.LeadStatus, remark string) error
}

// eventPublisher fans out lead lifecycle events to the assignment worker.
// A nil publisher disables the event path; the sweep still picks the lead up.
type eventPublisher interface {
	PublishLeadCreated(ctx context.Context, leadID uuid.UUID) error
}

// Service exposes lead lifecycle operations.
type Service interface {
	Create(ctx context.Context, actorID *uuid.UUID, dto CreateLeadDTO) (*LeadDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*LeadDTO, error)
	List(ctx context.Context, params ListLeadsParams) ([]LeadDTO, *pagination.Cursor, error)
	UpdateStatus(ctx context.Context, actorID uuid.UUID, actorRole enums.UserRole, id uuid.UUID, dto UpdateLeadStatusDTO) (*LeadDTO, error)
}

// ServiceParams configures NewService.
type ServiceParams struct {
	Logger    *logger.Logger
	Store     leadStore
	Audit     auditRecorder
	Publisher eventPublisher
}

type service struct {
	logg      *logger.Logger
	store     leadStore
	audit     auditRecorder
	publisher eventPublisher
	now       func() time.Time
}

// NewService validates dependencies and builds the lead service. Publisher is
// optional; logger, store and audit are not.
func NewService(params ServiceParams) (Service, error) {
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	if params.Store == nil {
		return nil, errors.New("lead store required")
	}
	if params.Audit == nil {
		return nil, errors.New("audit recorder required")
	}
	return &service{
		logg:      params.Logger,
		store:     params.Store,
		audit:     params.Audit,
		publisher: params.Publisher,
		now:       time.Now,
	}, nil
}

// Create registers a lead, records the creation and announces it for
// assignment. A publish failure is logged but never fails the create: the
// periodic sweep covers missed events.
func (s *service) Create(ctx context.Context, actorID *uuid.UUID, dto CreateLeadDTO) (*LeadDTO, error) {
	if dto.FullName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "full_name is required")
	}

	lead := models.Lead{
		FullName:        dto.FullName,
		Phone:           dto.Phone,
		Email:           dto.Email,
		SourceID:        dto.SourceID,
		Status:          enums.LeadStatusNew,
		EstimatedValue:  dto.EstimatedValue,
		Notes:           dto.Notes,
		CreatedByUserID: actorID,
	}
	if err := s.store.Create(ctx, &lead); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create lead")
	}

	ctx = s.logg.WithLeadID(ctx, lead.ID.String())
	if err := s.audit.LeadCreated(ctx, lead.ID, actorID); err != nil {
		s.logg.Error(ctx, "record lead creation", err)
	}
	if s.publisher != nil {
		if err := s.publisher.PublishLeadCreated(ctx, lead.ID); err != nil {
			s.logg.Error(ctx, "publish lead created event", err)
		}
	}

	out := leadToDTO(lead)
	return &out, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*LeadDTO, error) {
	lead, err := s.findLead(ctx, id)
	if err != nil {
		return nil, err
	}
	out := leadToDTO(*lead)
	return &out, nil
}

func (s *service) List(ctx context.Context, params ListLeadsParams) ([]LeadDTO, *pagination.Cursor, error) {
	rows, next, err := s.store.List(ctx, params)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list leads")
	}
	out := make([]LeadDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, leadToDTO(row))
	}
	return out, next, nil
}

// UpdateStatus transitions the lead's pipeline status and records the change.
// Agents may only move leads assigned to them; managers and admins may move
// any lead.
func (s *service) UpdateStatus(ctx context.Context, actorID uuid.UUID, actorRole enums.UserRole, id uuid.UUID, dto UpdateLeadStatusDTO) (*LeadDTO, error) {
	status, err := enums.ParseLeadStatus(dto.Status)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid lead status")
	}

	lead, err := s.findLead(ctx, id)
	if err != nil {
		return nil, err
	}
	if actorRole == enums.UserRoleAgent {
		if lead.AssignedAgentID == nil || *lead.AssignedAgentID != actorID {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "lead is not assigned to caller")
		}
	}
	if lead.Status == status {
		out := leadToDTO(*lead)
		return &out, nil
	}

	now := s.now().UTC()
	if err := s.store.UpdateStatus(ctx, id, status, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update lead status")
	}
	if err := s.audit.StatusChanged(ctx, id, &actorID, lead.Status, status, dto.Remark); err != nil {
		s.logg.Error(s.logg.WithLeadID(ctx, id.String()), "record status change", err)
	}

	lead.Status = status
	lead.UpdatedAt = now
	out := leadToDTO(*lead)
	return &out, nil
}

func (s *service) findLead(ctx context.Context, id uuid.UUID) (*models.Lead, error) {
	lead, err := s.store.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "lead not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load lead")
	}
	return lead, nil
}
