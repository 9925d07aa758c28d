package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrSessionNotFound is returned by Get when no live entry exists for the key.
	ErrSessionNotFound = errors.New("session not found")
	// ErrLedgerUnavailable wraps every failure of the backing store.
	ErrLedgerUnavailable = errors.New("session ledger unavailable")
	// ErrInvalidSessionTTL is returned by Save for a TTL shorter than one second.
	ErrInvalidSessionTTL = errors.New("session ttl must be at least one second")
)

const scanBatchSize = 100

// SessionLedger records the signature fragment of every live credential.
// Entries expire through the store's native TTL; nothing sweeps them.
type SessionLedger interface {
	Save(ctx context.Context, subjectID int64, nonce, fragment string, ttl time.Duration) error
	Get(ctx context.Context, subjectID int64, nonce string) (string, error)
	Revoke(ctx context.Context, subjectID int64, nonce string) error
	RevokeAll(ctx context.Context, subjectID int64) (int64, error)
}

type sessionLedger struct {
	client redis.UniversalClient
}

// NewSessionLedger returns a Redis-backed ledger.
func NewSessionLedger(client redis.UniversalClient) SessionLedger {
	return &sessionLedger{client: client}
}

// SessionKey is the ledger key for one login. The subject prefix lets
// RevokeAll enumerate a subject's sessions with a pattern scan.
func SessionKey(subjectID int64, nonce string) string {
	return fmt.Sprintf("/users/%d/session/%s", subjectID, nonce)
}

func subjectPattern(subjectID int64) string {
	return fmt.Sprintf("/users/%d/session/*", subjectID)
}

// Save upserts the fragment; a second save for the same key overwrites the
// value and resets the TTL.
func (l *sessionLedger) Save(ctx context.Context, subjectID int64, nonce, fragment string, ttl time.Duration) error {
	if ttl < time.Second {
		return ErrInvalidSessionTTL
	}
	if err := l.client.Set(ctx, SessionKey(subjectID, nonce), fragment, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrLedgerUnavailable, err)
	}
	return nil
}

func (l *sessionLedger) Get(ctx context.Context, subjectID int64, nonce string) (string, error) {
	fragment, err := l.client.Get(ctx, SessionKey(subjectID, nonce)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", fmt.Errorf("%w: %w", ErrSessionNotFound, err)
		}
		return "", fmt.Errorf("%w: %w", ErrLedgerUnavailable, err)
	}
	return fragment, nil
}

func (l *sessionLedger) Revoke(ctx context.Context, subjectID int64, nonce string) error {
	if err := l.client.Del(ctx, SessionKey(subjectID, nonce)).Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrLedgerUnavailable, err)
	}
	return nil
}

// RevokeAll deletes every session of the subject and returns how many were
// removed.
//
// The scan and the delete are separate round trips, so a login that lands
// between them survives. Logout ends the sessions that exist now; it is not a
// barrier against concurrent logins.
func (l *sessionLedger) RevokeAll(ctx context.Context, subjectID int64) (int64, error) {
	var keys []string
	iter := l.client.Scan(ctx, 0, subjectPattern(subjectID), scanBatchSize).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrLedgerUnavailable, err)
	}
	if len(keys) == 0 {
		return 0, nil
	}

	deleted, err := l.client.Del(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrLedgerUnavailable, err)
	}
	return deleted, nil
}
