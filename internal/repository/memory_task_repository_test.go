package repository

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/taskflow/internal/domain"
)

func TestMemoryTaskRepositoryContract(t *testing.T) {
	repo := NewMemoryTaskRepository()
	ctx := context.Background()

	worker := int64(2)
	first := &domain.Task{Title: "first", Status: domain.TaskStatusPending, Priority: domain.TaskPriorityLow, CreatedByID: 1, AssigneeID: &worker}
	second := &domain.Task{Title: "second", Status: domain.TaskStatusCompleted, Priority: domain.TaskPriorityHigh, CreatedByID: 1}
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))
	assert.Equal(t, int64(1), first.ID)
	assert.False(t, first.CreatedAt.IsZero())

	all, total, err := repo.ListWithFilter(ctx, TaskFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, all, 2)
	assert.Equal(t, "second", all[0].Title)

	mine, total, err := repo.ListWithFilter(ctx, TaskFilter{AssigneeID: &worker})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, first.ID, mine[0].ID)

	completed := domain.TaskStatusCompleted
	done, _, err := repo.ListWithFilter(ctx, TaskFilter{Status: &completed})
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Equal(t, second.ID, done[0].ID)

	page, total, err := repo.ListWithFilter(ctx, TaskFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, page, 1)
	assert.Equal(t, first.ID, page[0].ID)

	first.Status = domain.TaskStatusInProgress
	require.NoError(t, repo.Update(ctx, first))
	got, err := repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusInProgress, got.Status)

	require.NoError(t, repo.Delete(ctx, first.ID))
	_, err = repo.GetByID(ctx, first.ID)
	assert.ErrorIs(t, err, pgx.ErrNoRows)
	assert.ErrorIs(t, repo.Delete(ctx, first.ID), pgx.ErrNoRows)
	assert.ErrorIs(t, repo.Update(ctx, &domain.Task{ID: 99}), pgx.ErrNoRows)
}
