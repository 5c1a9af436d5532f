package auth

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/leadflow-crm/leadflow-backend/internal/users"
	"github.com/leadflow-crm/leadflow-backend/pkg/config"
	"github.com/leadflow-crm/leadflow-backend/pkg/enums"
	"github.com/leadflow-crm/leadflow-backend/pkg/logger"
	"github.com/leadflow-crm/leadflow-backend/pkg/security"
)

// EnsureBootstrapAdmin seeds the first admin account from configuration.
// Registration requires an authenticated admin or manager, so a fresh
// deployment needs one account created outside that flow. Seeding is
// idempotent: an existing account with the configured email short-circuits.
func EnsureBootstrapAdmin(ctx context.Context, repo registerUserRepository, cfg config.BootstrapConfig, passwordCfg config.PasswordConfig, logg *logger.Logger) error {
	if repo == nil {
		return errors.New("user repository required")
	}

	email := strings.ToLower(strings.TrimSpace(cfg.AdminEmail))
	if email == "" || cfg.AdminPassword == "" {
		return nil
	}

	_, err := repo.FindByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hash, err := security.HashPassword(cfg.AdminPassword, passwordCfg)
	if err != nil {
		return err
	}

	created, err := repo.Create(ctx, users.CreateUserDTO{
		Email:        email,
		PasswordHash: hash,
		FirstName:    "Admin",
		LastName:     "Admin",
		Role:         enums.UserRoleAdmin,
	})
	if err != nil {
		return err
	}

	if logg != nil {
		ctx = logg.WithFields(ctx, map[string]any{"user_id": created.ID.String()})
		logg.Info(ctx, "bootstrap admin account created")
	}
	return nil
}
