package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/taskflow/internal/domain"
	"github.com/spec-kit/taskflow/internal/events"
	"github.com/spec-kit/taskflow/internal/repository"
)

func seedUsers(t *testing.T, f *authFixture, n int) []*domain.User {
	t.Helper()
	out := make([]*domain.User, 0, n)
	for i := 0; i < n; i++ {
		u := &domain.User{
			Email:        fmt.Sprintf("user%02d@example.com", i),
			Name:         fmt.Sprintf("User %d", i),
			PasswordHash: "x",
			Role:         domain.RoleWorker,
		}
		require.NoError(t, f.users.Create(context.Background(), u))
		out = append(out, u)
	}
	return out
}

func TestUserServiceListPaginates(t *testing.T) {
	f := newAuthFixture(t)
	seedUsers(t, f, 25)
	svc := NewUserService(f.users, f.ledger, nil, zap.NewNop())

	page, err := svc.List(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 25, page.Total)
	assert.Equal(t, defaultPageSize, page.Limit)
	assert.Len(t, page.Items, 20)
	assert.Equal(t, int64(1), page.Items[0].ID)

	page, err = svc.List(context.Background(), 10, 20)
	require.NoError(t, err)
	assert.Len(t, page.Items, 5)
	assert.Equal(t, int64(21), page.Items[0].ID)

	page, err = svc.List(context.Background(), 1000, -5)
	require.NoError(t, err)
	assert.Equal(t, maxPageSize, page.Limit)
	assert.Equal(t, 0, page.Offset)
	assert.Len(t, page.Items, 25)
}

func TestUpdateRoleRevokesTargetSessions(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	dispatcher := events.NewInMemoryDispatcher()
	recorder := &eventRecorder{}
	dispatcher.Subscribe(events.EventRoleChanged, recorder.handle)
	svc := NewUserService(f.users, f.ledger, dispatcher, zap.NewNop())

	worker, err := f.svc.Register(ctx, "alice@example.com", "secret123", "Alice")
	require.NoError(t, err)
	login, err := f.svc.Login(ctx, "alice@example.com", "secret123")
	require.NoError(t, err)

	updated, err := svc.UpdateRole(ctx, worker.ID, domain.RoleAdmin, 999)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, updated.Role)

	_, err = f.authenticate(login.AccessToken)
	assert.Error(t, err)

	relogin, err := f.svc.Login(ctx, "alice@example.com", "secret123")
	require.NoError(t, err)
	identity, err := f.authenticate(relogin.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, identity.Role)

	require.Len(t, recorder.events, 1)
	payload := recorder.events[0].Payload.(events.RoleChangedPayload)
	assert.Equal(t, "worker", payload.OldRole)
	assert.Equal(t, "admin", payload.NewRole)
	assert.Equal(t, int64(999), payload.ChangedBy)
	assert.WithinDuration(t, time.Now(), recorder.events[0].Timestamp, time.Minute)
}

func TestUpdateRoleGuards(t *testing.T) {
	f := newAuthFixture(t)
	users := seedUsers(t, f, 1)
	svc := NewUserService(f.users, f.ledger, nil, nil)
	ctx := context.Background()

	_, err := svc.UpdateRole(ctx, users[0].ID, domain.RoleAdmin, users[0].ID)
	assert.ErrorIs(t, err, ErrSelfRoleChange)

	_, err = svc.UpdateRole(ctx, users[0].ID, domain.Role("owner"), 999)
	assert.ErrorIs(t, err, ErrInvalidRole)

	_, err = svc.UpdateRole(ctx, 404, domain.RoleAdmin, 999)
	assert.ErrorIs(t, err, ErrUserNotFound)

	same, err := svc.UpdateRole(ctx, users[0].ID, domain.RoleWorker, 999)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleWorker, same.Role)
}

func TestUserServiceGet(t *testing.T) {
	f := newAuthFixture(t)
	users := seedUsers(t, f, 2)
	svc := NewUserService(f.users, f.ledger, nil, nil)

	got, err := svc.Get(context.Background(), users[1].ID)
	require.NoError(t, err)
	assert.Equal(t, users[1].Email, got.Email)

	_, err = svc.Get(context.Background(), 404)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUpdateRoleLeavesRoleUntouchedWhenLedgerDown(t *testing.T) {
	f := newAuthFixture(t)
	users := seedUsers(t, f, 1)
	svc := NewUserService(f.users, f.ledger, nil, zap.NewNop())
	ctx := context.Background()

	f.mr.Close()

	_, err := svc.UpdateRole(ctx, users[0].ID, domain.RoleAdmin, 999)
	require.Error(t, err)
	assert.ErrorIs(t, err, repository.ErrLedgerUnavailable)

	stored, err := f.users.FindByID(ctx, users[0].ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleWorker, stored.Role)
}
