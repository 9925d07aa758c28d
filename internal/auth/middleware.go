package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/taskflow/internal/domain"
	"github.com/spec-kit/taskflow/internal/observability"
	"github.com/spec-kit/taskflow/internal/repository"
	apperrors "github.com/spec-kit/taskflow/pkg/util"
)

const identityKey = "auth_identity"

// RejectReason names the check that turned a request away. It is recorded in
// logs and metrics only; clients always see the same 401.
type RejectReason string

const (
	ReasonMalformedHeader  RejectReason = "malformed_header"
	ReasonInvalidToken     RejectReason = "invalid_or_expired"
	ReasonSessionNotFound  RejectReason = "session_not_found"
	ReasonFragmentMismatch RejectReason = "fragment_mismatch"
)

// RejectError is returned by Authenticate when a credential is not accepted.
type RejectError struct {
	Reason RejectReason
}

func (e *RejectError) Error() string {
	return "credential rejected: " + string(e.Reason)
}

// Is makes every RejectError match ErrRejected.
func (e *RejectError) Is(target error) bool {
	return target == ErrRejected
}

var (
	// ErrRejected matches any access guard rejection.
	ErrRejected = errors.New("credential rejected")

	ErrMalformedAuthHeader        = &RejectError{Reason: ReasonMalformedHeader}
	ErrInvalidOrExpiredCredential = &RejectError{Reason: ReasonInvalidToken}
	ErrSessionRevokedOrNotFound   = &RejectError{Reason: ReasonSessionNotFound}
	ErrFragmentMismatch           = &RejectError{Reason: ReasonFragmentMismatch}
)

// Guard decides whether a request carries a live credential.
type Guard struct {
	tokens  *TokenManager
	ledger  repository.SessionLedger
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewGuard constructs the access guard.
func NewGuard(tokens *TokenManager, ledger repository.SessionLedger, logger *zap.Logger, metrics *observability.Metrics) *Guard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{tokens: tokens, ledger: ledger, logger: logger, metrics: metrics}
}

// Authenticate runs header extraction, signature verification, ledger lookup
// and fragment comparison in that order. Rejections are *RejectError values;
// any other error comes from the ledger store and is passed through.
func (g *Guard) Authenticate(ctx context.Context, authorization string) (*domain.Identity, error) {
	token, ok := bearerToken(authorization)
	if !ok {
		return nil, ErrMalformedAuthHeader
	}

	claims, err := g.tokens.Verify(token)
	if err != nil {
		return nil, ErrInvalidOrExpiredCredential
	}

	stored, err := g.ledger.Get(ctx, claims.SubjectID, claims.SessionNonce)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, ErrSessionRevokedOrNotFound
		}
		return nil, err
	}

	signature, ok := SignatureSegment(token)
	if !ok || subtle.ConstantTimeCompare([]byte(stored), []byte(signature)) != 1 {
		return nil, ErrFragmentMismatch
	}

	return claims.Identity(), nil
}

// Protect returns the fiber handler enforcing policy for one route.
func (g *Guard) Protect(policy RoutePolicy) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if policy.Public {
			return c.Next()
		}

		authorization := c.Get(fiber.HeaderAuthorization)
		identity, err := g.Authenticate(c.UserContext(), authorization)
		if err != nil {
			var rejected *RejectError
			if errors.As(err, &rejected) {
				g.metrics.RecordGuardDecision(string(rejected.Reason))
				g.logRejection(c, rejected.Reason, authorization)
				return apperrors.NewSessionRejected()
			}
			g.metrics.RecordGuardDecision("error")
			return err
		}

		if !policy.Permits(identity) {
			g.metrics.RecordGuardDecision("forbidden")
			return apperrors.NewForbidden("insufficient role")
		}

		g.metrics.RecordGuardDecision("allowed")
		c.Locals(identityKey, identity)
		c.SetUserContext(WithIdentity(c.UserContext(), identity))
		return c.Next()
	}
}

func (g *Guard) logRejection(c *fiber.Ctx, reason RejectReason, authorization string) {
	fields := []zap.Field{
		zap.String("reason", string(reason)),
		zap.String("path", c.Path()),
	}
	if token, ok := bearerToken(authorization); ok {
		if claims := g.tokens.Decode(token); claims != nil {
			fields = append(fields, zap.Int64("claimed_subject_id", claims.SubjectID))
		}
	}
	g.logger.Debug("request rejected", fields...)
}

func bearerToken(value string) (string, bool) {
	parts := strings.SplitN(value, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := parts[1]
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", false
	}
	return token, true
}

type identityCtxKey struct{}

// WithIdentity returns a context carrying identity.
func WithIdentity(ctx context.Context, identity *domain.Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey{}, identity)
}

// IdentityFromCtx retrieves the identity attached by the guard.
func IdentityFromCtx(ctx context.Context) (*domain.Identity, bool) {
	identity, ok := ctx.Value(identityCtxKey{}).(*domain.Identity)
	return identity, ok && identity != nil
}

// IdentityFromContext retrieves the identity attached by the guard to a fiber request.
func IdentityFromContext(c *fiber.Ctx) (*domain.Identity, bool) {
	identity, ok := c.Locals(identityKey).(*domain.Identity)
	return identity, ok && identity != nil
}
