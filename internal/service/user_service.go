package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/taskflow/internal/domain"
	"github.com/spec-kit/taskflow/internal/events"
	"github.com/spec-kit/taskflow/internal/repository"
)

var (
	// ErrSelfRoleChange is returned when an admin targets their own account.
	ErrSelfRoleChange = errors.New("cannot change your own role")
	// ErrInvalidRole is returned for a role outside admin/worker.
	ErrInvalidRole = errors.New("invalid role")
	// ErrUserNotFound is returned when the target account does not exist.
	ErrUserNotFound = errors.New("user not found")
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// UserPage is one page of accounts.
type UserPage struct {
	Items  []*domain.User
	Total  int
	Limit  int
	Offset int
}

// UserService serves the account endpoints.
type UserService struct {
	users      repository.UserRepository
	sessions   repository.SessionLedger
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewUserService builds the service.
func NewUserService(users repository.UserRepository, sessions repository.SessionLedger, dispatcher events.Dispatcher, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{users: users, sessions: sessions, dispatcher: dispatcher, logger: logger}
}

// List returns accounts ordered by id. limit is clamped to [1, 100].
func (s *UserService) List(ctx context.Context, limit, offset int) (*UserPage, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	users, total, err := s.users.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return &UserPage{Items: users, Total: total, Limit: limit, Offset: offset}, nil
}

// Get returns a single account.
func (s *UserService) Get(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// UpdateRole changes the role of another account. The target's sessions are
// revoked before the role is written, so a ledger outage leaves both the role
// and the sessions untouched. A second revocation after the write closes
// logins that raced the update; its failure is only logged.
func (s *UserService) UpdateRole(ctx context.Context, id int64, role domain.Role, requesterID int64) (*domain.User, error) {
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	if id == requesterID {
		return nil, ErrSelfRoleChange
	}

	current, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if current.Role == role {
		return current, nil
	}

	revoked, err := s.sessions.RevokeAll(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("revoke sessions before role change: %w", err)
	}

	updated, err := s.users.UpdateRole(ctx, id, role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("update role: %w", err)
	}

	if late, err := s.sessions.RevokeAll(ctx, id); err != nil {
		s.logger.Warn("revoke sessions after role change failed", zap.Int64("user_id", id), zap.Error(err))
	} else {
		revoked += late
	}

	s.logger.Info("role changed",
		zap.Int64("user_id", id),
		zap.String("role", string(role)),
		zap.Int64("changed_by", requesterID),
		zap.Int64("sessions_revoked", revoked))

	if s.dispatcher != nil {
		if err := s.dispatcher.Publish(ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventRoleChanged,
			SubjectID: id,
			Timestamp: time.Now().UTC(),
			Payload: events.RoleChangedPayload{
				OldRole:   string(current.Role),
				NewRole:   string(role),
				ChangedBy: requesterID,
			},
		}); err != nil {
			s.logger.Warn("event handler failed", zap.Error(err))
		}
	}
	return updated, nil
}
