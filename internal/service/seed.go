package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/taskflow/internal/auth"
	"github.com/spec-kit/taskflow/internal/config"
	"github.com/spec-kit/taskflow/internal/domain"
	"github.com/spec-kit/taskflow/internal/repository"
)

// ErrSeedPasswordMissing is returned when no bootstrap password is configured.
var ErrSeedPasswordMissing = errors.New("SEED_ADMIN_PASSWORD must be set")

// EnsureAdmin creates the bootstrap administrator unless an account with the
// configured email already exists. It reports whether a row was inserted.
func EnsureAdmin(ctx context.Context, users repository.UserRepository, hasher *auth.PasswordHasher, cfg config.SeedConfig, logger *zap.Logger) (bool, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.AdminPassword == "" {
		return false, ErrSeedPasswordMissing
	}
	email := normalizeEmail(cfg.AdminEmail)

	existing, err := users.FindByEmail(ctx, email)
	if err == nil {
		logger.Info("admin already present", zap.Int64("user_id", existing.ID), zap.String("role", string(existing.Role)))
		return false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return false, fmt.Errorf("lookup admin: %w", err)
	}

	hash, err := hasher.Hash(ctx, cfg.AdminPassword)
	if err != nil {
		return false, fmt.Errorf("hash admin password: %w", err)
	}

	admin := &domain.User{
		Email:        email,
		Name:         strings.TrimSpace(cfg.AdminName),
		PasswordHash: hash,
		Role:         domain.RoleAdmin,
	}
	if err := users.Create(ctx, admin); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return false, nil
		}
		return false, fmt.Errorf("create admin: %w", err)
	}

	logger.Info("admin created", zap.Int64("user_id", admin.ID))
	return true, nil
}
