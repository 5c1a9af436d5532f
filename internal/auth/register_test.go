package auth

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/leadflow-crm/leadflow-backend/internal/users"
	"github.com/leadflow-crm/leadflow-backend/pkg/config"
	pkgmodels "github.com/leadflow-crm/leadflow-backend/pkg/db/models"
	"github.com/leadflow-crm/leadflow-backend/pkg/enums"
	pkgerrors "github.com/leadflow-crm/leadflow-backend/pkg/errors"
)

type stubTxRunner struct{}

func (s stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubUserRepository struct {
	data      map[string]*pkgmodels.User
	created   *pkgmodels.User
	createErr error
}

func newStubUserRepository() *stubUserRepository {
	return &stubUserRepository{data: map[string]*pkgmodels.User{}}
}

func (s *stubUserRepository) FindByEmail(ctx context.Context, email string) (*pkgmodels.User, error) {
	if user, ok := s.data[email]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserRepository) Create(ctx context.Context, dto users.CreateUserDTO) (*pkgmodels.User, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	user := dto.ToModel()
	user.ID = uuid.New()
	s.data[dto.Email] = user
	s.created = user
	return user, nil
}

func newRegisterTestService(t *testing.T) (RegisterService, *stubUserRepository) {
	t.Helper()
	userRepo := newStubUserRepository()
	svc, err := NewRegisterService(RegisterServiceParams{
		TxRunner: stubTxRunner{},
		UserRepoFactory: func(tx *gorm.DB) registerUserRepository {
			return userRepo
		},
		PasswordConfig: config.PasswordConfig{},
	})
	if err != nil {
		t.Fatalf("new register service: %v", err)
	}
	return svc, userRepo
}

func sampleRegisterRequest(email, role string) RegisterRequest {
	return RegisterRequest{
		FirstName: "Jamie",
		LastName:  "Rivera",
		Email:     email,
		Password:  "Secret123!",
		Role:      role,
	}
}

func TestRegisterManagerCreatesAgent(t *testing.T) {
	svc, userRepo := newRegisterTestService(t)
	req := sampleRegisterRequest("new-agent@example.com", "agent")

	created, err := svc.Register(context.Background(), enums.UserRoleManager, req)
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if userRepo.created == nil {
		t.Fatalf("expected user to be created")
	}
	if userRepo.created.Role != enums.UserRoleAgent {
		t.Fatalf("expected agent role, got %s", userRepo.created.Role)
	}
	if created == nil || created.Email != "new-agent@example.com" {
		t.Fatalf("expected created user in response")
	}
	if userRepo.created.PasswordHash == req.Password {
		t.Fatalf("password must be hashed before persisting")
	}
}

func TestRegisterManagerCannotCreateManager(t *testing.T) {
	svc, userRepo := newRegisterTestService(t)
	req := sampleRegisterRequest("new-manager@example.com", "manager")

	_, err := svc.Register(context.Background(), enums.UserRoleManager, req)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden error, got %v", err)
	}
	if userRepo.created != nil {
		t.Fatalf("expected no user to be created")
	}
}

func TestRegisterAgentCannotCreateAccounts(t *testing.T) {
	svc, _ := newRegisterTestService(t)
	req := sampleRegisterRequest("someone@example.com", "agent")

	_, err := svc.Register(context.Background(), enums.UserRoleAgent, req)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden error, got %v", err)
	}
}

func TestRegisterAdminCreatesManager(t *testing.T) {
	svc, userRepo := newRegisterTestService(t)
	req := sampleRegisterRequest("new-manager@example.com", "manager")

	if _, err := svc.Register(context.Background(), enums.UserRoleAdmin, req); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if userRepo.created == nil || userRepo.created.Role != enums.UserRoleManager {
		t.Fatalf("expected manager account to be created")
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	svc, userRepo := newRegisterTestService(t)
	userRepo.data["taken@example.com"] = &pkgmodels.User{
		ID:    uuid.New(),
		Email: "taken@example.com",
		Role:  enums.UserRoleAgent,
	}

	_, err := svc.Register(context.Background(), enums.UserRoleAdmin, sampleRegisterRequest("taken@example.com", "agent"))
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

func TestRegisterRejectsUnknownRole(t *testing.T) {
	svc, _ := newRegisterTestService(t)

	_, err := svc.Register(context.Background(), enums.UserRoleAdmin, sampleRegisterRequest("x@example.com", "superuser"))
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
