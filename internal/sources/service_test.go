package sources

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/leadflow-crm/leadflow-backend/pkg/db/models"
	"github.com/leadflow-crm/leadflow-backend/pkg/enums"
	pkgerrors "github.com/leadflow-crm/leadflow-backend/pkg/errors"
)

type stubSourceStore struct {
	sources map[uuid.UUID]*models.LeadSource
}

func newStubSourceStore() *stubSourceStore {
	return &stubSourceStore{sources: map[uuid.UUID]*models.LeadSource{}}
}

func (s *stubSourceStore) Create(ctx context.Context, source *models.LeadSource) error {
	if source.ID == uuid.Nil {
		source.ID = uuid.New()
	}
	copied := *source
	s.sources[source.ID] = &copied
	return nil
}

func (s *stubSourceStore) FindByID(ctx context.Context, id uuid.UUID) (*models.LeadSource, error) {
	source, ok := s.sources[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *source
	return &copied, nil
}

func (s *stubSourceStore) List(ctx context.Context) ([]models.LeadSource, error) {
	var out []models.LeadSource
	for _, source := range s.sources {
		out = append(out, *source)
	}
	return out, nil
}

func (s *stubSourceStore) Update(ctx context.Context, source *models.LeadSource) error {
	copied := *source
	s.sources[source.ID] = &copied
	return nil
}

func newSourceTestService(t *testing.T) (Service, *stubSourceStore) {
	t.Helper()

	store := newStubSourceStore()
	svc, err := NewService(store)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, store
}

func TestCreateSourceDefaultsActive(t *testing.T) {
	svc, store := newSourceTestService(t)

	dto, err := svc.Create(context.Background(), enums.UserRoleManager, CreateSourceDTO{
		Name: "facebook spring campaign",
		Kind: "meta",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !dto.IsActive {
		t.Fatalf("expected new source to be active")
	}
	if dto.Kind != enums.LeadSourceKindMeta {
		t.Fatalf("unexpected kind %s", dto.Kind)
	}
	if _, ok := store.sources[dto.ID]; !ok {
		t.Fatalf("expected source persisted")
	}
}

func TestCreateSourceForbiddenForAgents(t *testing.T) {
	svc, _ := newSourceTestService(t)

	_, err := svc.Create(context.Background(), enums.UserRoleAgent, CreateSourceDTO{
		Name: "walk-ins",
		Kind: "manual",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestCreateSourceValidation(t *testing.T) {
	svc, _ := newSourceTestService(t)

	cases := []struct {
		name string
		dto  CreateSourceDTO
	}{
		{"missing name", CreateSourceDTO{Kind: "webhook"}},
		{"bad kind", CreateSourceDTO{Name: "x", Kind: "carrier-pigeon"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), enums.UserRoleAdmin, tc.dto)
			typed := pkgerrors.As(err)
			if typed == nil || typed.Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestGetSourceNotFound(t *testing.T) {
	svc, _ := newSourceTestService(t)

	_, err := svc.Get(context.Background(), uuid.New())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpdateSourcePartialFields(t *testing.T) {
	svc, store := newSourceTestService(t)

	source := &models.LeadSource{ID: uuid.New(), Name: "call center", Kind: enums.LeadSourceKindCall, IsActive: true}
	store.sources[source.ID] = source

	inactive := false
	dto, err := svc.Update(context.Background(), enums.UserRoleManager, source.ID, UpdateSourceDTO{IsActive: &inactive})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if dto.IsActive {
		t.Fatalf("expected source deactivated")
	}
	if dto.Name != "call center" {
		t.Fatalf("expected name untouched, got %q", dto.Name)
	}

	empty := ""
	_, err = svc.Update(context.Background(), enums.UserRoleManager, source.ID, UpdateSourceDTO{Name: &empty})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
