package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/leadflow-crm/leadflow-backend/api/middleware"
	"github.com/leadflow-crm/leadflow-backend/internal/auth"
	"github.com/leadflow-crm/leadflow-backend/internal/users"
	"github.com/leadflow-crm/leadflow-backend/pkg/enums"
	pkgerrors "github.com/leadflow-crm/leadflow-backend/pkg/errors"
)

type stubRegisterService struct {
	user      *users.UserDTO
	err       error
	lastRole  enums.UserRole
	lastEmail string
}

func (s *stubRegisterService) Register(ctx context.Context, actorRole enums.UserRole, req auth.RegisterRequest) (*users.UserDTO, error) {
	s.lastRole = actorRole
	s.lastEmail = req.Email
	return s.user, s.err
}

func registerRequest(body string, role string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		req = req.WithContext(middleware.WithRole(req.Context(), role))
	}
	return req
}

func TestAuthRegisterSuccess(t *testing.T) {
	created := &users.UserDTO{
		ID:        uuid.New(),
		Email:     "new.agent@example.com",
		FirstName: "Ada",
		LastName:  "Nguyen",
		Role:      enums.UserRoleAgent,
		IsActive:  true,
	}
	reg := &stubRegisterService{user: created}
	handler := AuthRegister(reg, nil)

	body := `{"first_name":"Ada","last_name":"Nguyen","email":"new.agent@example.com","password":"Secret123!","role":"agent"}`
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, registerRequest(body, string(enums.UserRoleManager)))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", rec.Code)
	}
	if reg.lastRole != enums.UserRoleManager {
		t.Fatalf("expected actor role manager, got %s", reg.lastRole)
	}
	var envelope struct {
		Data users.UserDTO `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Email != created.Email {
		t.Fatalf("expected created user in payload, got %+v", envelope.Data)
	}
}

func TestAuthRegisterMissingRoleContext(t *testing.T) {
	handler := AuthRegister(&stubRegisterService{}, nil)

	body := `{"first_name":"Ada","last_name":"Nguyen","email":"x@example.com","password":"Secret123!","role":"agent"}`
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, registerRequest(body, ""))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
}

func TestAuthRegisterInvalidPayload(t *testing.T) {
	handler := AuthRegister(&stubRegisterService{}, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, registerRequest(`{"password":"short"}`, string(enums.UserRoleAdmin)))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestAuthRegisterForbidden(t *testing.T) {
	reg := &stubRegisterService{err: pkgerrors.New(pkgerrors.CodeForbidden, "only admins may create elevated accounts")}
	handler := AuthRegister(reg, nil)

	body := `{"first_name":"Ada","last_name":"Nguyen","email":"x@example.com","password":"Secret123!","role":"manager"}`
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, registerRequest(body, string(enums.UserRoleManager)))

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", rec.Code)
	}
}
