package agents

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/leadflow-crm/leadflow-backend/internal/users"
	"github.com/leadflow-crm/leadflow-backend/pkg/db/models"
	"github.com/leadflow-crm/leadflow-backend/pkg/enums"
	pkgerrors "github.com/leadflow-crm/leadflow-backend/pkg/errors"
)

type userRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	ListByRole(ctx context.Context, role enums.UserRole) ([]models.User, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}

// Service exposes the agent directory: lookups used by manual assignment and
// management operations on agent accounts.
type Service interface {
	List(ctx context.Context) ([]users.UserDTO, error)
	GetActiveAgent(ctx context.Context, agentID uuid.UUID) (*models.User, error)
	SetActive(ctx context.Context, actorRole enums.UserRole, agentID uuid.UUID, active bool) (*users.UserDTO, error)
}

type service struct {
	repo userRepository
}

// NewService builds an agent directory service.
func NewService(repo userRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("user repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context) ([]users.UserDTO, error) {
	rows, err := s.repo.ListByRole(ctx, enums.UserRoleAgent)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list agents")
	}
	dtos := make([]users.UserDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, *users.FromModel(&rows[i]))
	}
	return dtos, nil
}

// GetActiveAgent loads an agent and verifies it can receive leads.
func (s *service) GetActiveAgent(ctx context.Context, agentID uuid.UUID) (*models.User, error) {
	agent, err := s.repo.FindByID(ctx, agentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "agent not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load agent")
	}
	if agent.Role != enums.UserRoleAgent {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "user is not an agent")
	}
	if !agent.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "agent is inactive")
	}
	return agent, nil
}

func (s *service) SetActive(ctx context.Context, actorRole enums.UserRole, agentID uuid.UUID, active bool) (*users.UserDTO, error) {
	if !actorRole.CanManageRules() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role")
	}

	agent, err := s.repo.FindByID(ctx, agentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "agent not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load agent")
	}
	if agent.Role != enums.UserRoleAgent {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "user is not an agent")
	}

	if err := s.repo.SetActive(ctx, agentID, active); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update agent")
	}
	agent.IsActive = active
	return users.FromModel(agent), nil
}
