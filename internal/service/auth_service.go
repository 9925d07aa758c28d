package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/taskflow/internal/auth"
	"github.com/spec-kit/taskflow/internal/config"
	"github.com/spec-kit/taskflow/internal/domain"
	"github.com/spec-kit/taskflow/internal/events"
	"github.com/spec-kit/taskflow/internal/observability"
	"github.com/spec-kit/taskflow/internal/repository"
)

var (
	// ErrDuplicateEmail is returned by Register for an email already in use.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrInvalidCredentials covers both an unknown email and a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrSubjectNotFound is returned by Me when the account no longer exists.
	ErrSubjectNotFound = errors.New("user not found")
)

// LoginResult is the outcome of a successful login.
type LoginResult struct {
	AccessToken string
	ExpiresAt   time.Time
	User        *domain.User
}

// AuthService coordinates registration, login, logout and profile lookup.
type AuthService struct {
	users      repository.UserRepository
	sessions   repository.SessionLedger
	tokens     *auth.TokenManager
	hasher     *auth.PasswordHasher
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
	sessionTTL time.Duration
}

// AuthDependencies encapsulates collaborators for the auth service. Tokens and
// Hasher are built from config when nil.
type AuthDependencies struct {
	Users      repository.UserRepository
	Sessions   repository.SessionLedger
	Tokens     *auth.TokenManager
	Hasher     *auth.PasswordHasher
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Metrics    *observability.Metrics
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) *AuthService {
	s := &AuthService{
		users:      deps.Users,
		sessions:   deps.Sessions,
		tokens:     deps.Tokens,
		hasher:     deps.Hasher,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		metrics:    deps.Metrics,
		sessionTTL: cfg.SessionTTL(),
	}
	if s.tokens == nil {
		s.tokens = auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL())
	}
	if s.hasher == nil {
		s.hasher = auth.NewPasswordHasher(cfg.BcryptCost, cfg.HashConcurrency)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.sessionTTL <= 0 {
		s.sessionTTL = s.tokens.TTL()
	}
	return s
}

// Register creates a worker account.
func (s *AuthService) Register(ctx context.Context, email, password, name string) (*domain.User, error) {
	email = normalizeEmail(email)

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, ErrDuplicateEmail
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("lookup email: %w", err)
	}

	hash, err := s.hasher.Hash(ctx, password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: hash,
		Role:         domain.RoleWorker,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("user registered", zap.Int64("user_id", user.ID))
	s.publish(ctx, events.EventUserRegistered, user.ID, events.UserRegisteredPayload{
		Email: user.Email,
		Role:  string(user.Role),
	})
	return user, nil
}

// Login verifies the password, signs a credential bound to a fresh session
// nonce and records the credential's signature segment in the ledger.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		s.logger.Debug("login lookup failed", zap.Error(err))
		s.metrics.RecordLogin("rejected")
		return nil, ErrInvalidCredentials
	}

	if err := s.hasher.Compare(ctx, user.PasswordHash, password); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		s.metrics.RecordLogin("rejected")
		return nil, ErrInvalidCredentials
	}

	nonce := newSessionNonce()
	token, claims, err := s.tokens.Sign(auth.ClaimsInput{
		SubjectID:    user.ID,
		Email:        user.Email,
		DisplayName:  user.Name,
		Role:         user.Role,
		SessionNonce: nonce,
	})
	if err != nil {
		return nil, err
	}

	signature, ok := auth.SignatureSegment(token)
	if !ok {
		return nil, fmt.Errorf("signed credential has no signature segment")
	}
	if err := s.sessions.Save(ctx, user.ID, nonce, signature, s.sessionTTL); err != nil {
		return nil, fmt.Errorf("record session: %w", err)
	}

	s.metrics.RecordLogin("success")
	s.logger.Info("session started", zap.Int64("user_id", user.ID))
	s.publish(ctx, events.EventSessionStarted, user.ID, events.SessionStartedPayload{
		SessionNonce: nonce,
		ExpiresAt:    claims.ExpiresAt.Time,
	})

	return &LoginResult{
		AccessToken: token,
		ExpiresAt:   claims.ExpiresAt.Time,
		User:        user,
	}, nil
}

// Logout revokes every session of the subject, not only the one identified
// by sessionNonce.
func (s *AuthService) Logout(ctx context.Context, subjectID int64, sessionNonce string) error {
	revoked, err := s.sessions.RevokeAll(ctx, subjectID)
	if err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}

	s.metrics.RecordRevoked(revoked)
	s.logger.Info("sessions revoked", zap.Int64("user_id", subjectID), zap.Int64("count", revoked))
	s.publish(ctx, events.EventSessionsRevoked, subjectID, events.SessionsRevokedPayload{
		InitiatingNonce: sessionNonce,
		Revoked:         revoked,
	})
	return nil
}

// Me returns the current account of an authenticated subject.
func (s *AuthService) Me(ctx context.Context, subjectID int64) (*domain.User, error) {
	user, err := s.users.FindByID(ctx, subjectID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSubjectNotFound
		}
		return nil, err
	}
	return user, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokens
}

func (s *AuthService) publish(ctx context.Context, eventType events.EventType, subjectID int64, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	err := s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		SubjectID: subjectID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	})
	if err != nil {
		s.logger.Warn("event handler failed", zap.String("event_type", string(eventType)), zap.Error(err))
	}
}

// newSessionNonce returns 32 hex characters of a random UUID.
func newSessionNonce() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
