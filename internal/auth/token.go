package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/taskflow/internal/domain"
)

// ErrInvalidCredential is returned by Verify for any token that is malformed,
// carries a bad signature or has expired.
var ErrInvalidCredential = errors.New("invalid or expired credential")

const (
	defaultTokenTTL = time.Hour
	tokenSegments   = 3
)

// Claims describes the JWT payload. Field names on the wire are kept
// compatible with existing clients.
type Claims struct {
	SubjectID    int64       `json:"userId"`
	Email        string      `json:"email"`
	DisplayName  string      `json:"name"`
	Role         domain.Role `json:"role"`
	SessionNonce string      `json:"subToken"`
	jwt.RegisteredClaims
}

// Identity converts verified claims into the request-scoped identity.
func (c *Claims) Identity() *domain.Identity {
	id := &domain.Identity{
		SubjectID:    c.SubjectID,
		Email:        c.Email,
		DisplayName:  c.DisplayName,
		Role:         c.Role,
		SessionNonce: c.SessionNonce,
	}
	if c.IssuedAt != nil {
		id.IssuedAt = c.IssuedAt.Time
	}
	if c.ExpiresAt != nil {
		id.ExpiresAt = c.ExpiresAt.Time
	}
	return id
}

// ClaimsInput is the caller-supplied part of a credential; timestamps are
// stamped by Sign.
type ClaimsInput struct {
	SubjectID    int64
	Email        string
	DisplayName  string
	Role         domain.Role
	SessionNonce string
}

// TokenManager handles issuing and validating JWT tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// TokenOption customises a TokenManager.
type TokenOption func(*TokenManager)

// WithClock overrides the time source used for stamping and expiry checks.
func WithClock(now func() time.Time) TokenOption {
	return func(tm *TokenManager) {
		if now != nil {
			tm.now = now
		}
	}
}

// NewTokenManager builds a new manager.
func NewTokenManager(secret string, ttl time.Duration, opts ...TokenOption) *TokenManager {
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	tm := &TokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(tm)
	}
	return tm
}

// TTL returns the credential lifetime.
func (tm *TokenManager) TTL() time.Duration {
	return tm.ttl
}

// Sign stamps issuedAt/expiresAt and returns the signed three-segment token.
func (tm *TokenManager) Sign(in ClaimsInput) (string, *Claims, error) {
	now := tm.now()
	claims := &Claims{
		SubjectID:    in.SubjectID,
		Email:        in.Email,
		DisplayName:  in.DisplayName,
		Role:         in.Role,
		SessionNonce: in.SessionNonce,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tm.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign credential: %w", err)
	}
	return tokenString, claims, nil
}

// Verify checks segment count, signature and expiry and returns the claims.
func (tm *TokenManager) Verify(tokenStr string) (*Claims, error) {
	if strings.Count(tokenStr, ".") != tokenSegments-1 {
		return nil, ErrInvalidCredential
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(tm.now),
	)
	parsed, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return tm.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCredential, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidCredential
	}
	return claims, nil
}

// Decode parses the payload without checking the signature. Only for
// inspection such as logging; never use the result to authorize anything.
func (tm *TokenManager) Decode(tokenStr string) *Claims {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, claims); err != nil {
		return nil
	}
	return claims
}

// SignatureSegment returns the third segment of a compact token.
func SignatureSegment(tokenStr string) (string, bool) {
	parts := strings.Split(tokenStr, ".")
	if len(parts) != tokenSegments || parts[2] == "" {
		return "", false
	}
	return parts[2], true
}
