package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/taskflow/internal/domain"
	"github.com/spec-kit/taskflow/internal/events"
	"github.com/spec-kit/taskflow/internal/repository"
)

type taskFixture struct {
	svc      *TaskService
	tasks    *repository.MemoryTaskRepository
	admin    *domain.Identity
	alice    *domain.Identity
	bob      *domain.Identity
	recorder *eventRecorder
}

func newTaskFixture(t *testing.T) *taskFixture {
	t.Helper()
	ctx := context.Background()

	users := repository.NewMemoryUserRepository()
	identities := make([]*domain.Identity, 0, 3)
	for _, u := range []*domain.User{
		{Email: "admin@example.com", Name: "Admin", Role: domain.RoleAdmin},
		{Email: "alice@example.com", Name: "Alice", Role: domain.RoleWorker},
		{Email: "bob@example.com", Name: "Bob", Role: domain.RoleWorker},
	} {
		require.NoError(t, users.Create(ctx, u))
		identities = append(identities, &domain.Identity{SubjectID: u.ID, Email: u.Email, Role: u.Role})
	}

	recorder := &eventRecorder{}
	dispatcher := events.NewInMemoryDispatcher()
	for _, et := range []events.EventType{events.EventTaskCreated, events.EventTaskUpdated, events.EventTaskAssigned, events.EventTaskDeleted} {
		dispatcher.Subscribe(et, recorder.handle)
	}

	tasks := repository.NewMemoryTaskRepository()
	return &taskFixture{
		svc: NewTaskService(TaskDependencies{
			Tasks:      tasks,
			Users:      users,
			Dispatcher: dispatcher,
			Logger:     zap.NewNop(),
		}),
		tasks:    tasks,
		admin:    identities[0],
		alice:    identities[1],
		bob:      identities[2],
		recorder: recorder,
	}
}

func (f *taskFixture) create(t *testing.T, title string, assignee *domain.Identity) *domain.Task {
	t.Helper()
	input := TaskCreateInput{Title: title}
	if assignee != nil {
		id := assignee.SubjectID
		input.AssigneeID = &id
	}
	task, err := f.svc.Create(context.Background(), f.admin, input)
	require.NoError(t, err)
	return task
}

func TestTaskCreateDefaults(t *testing.T) {
	f := newTaskFixture(t)

	task := f.create(t, "  write report ", f.alice)
	assert.Equal(t, "write report", task.Title)
	assert.Equal(t, domain.TaskStatusPending, task.Status)
	assert.Equal(t, domain.TaskPriorityMedium, task.Priority)
	assert.Equal(t, f.admin.SubjectID, task.CreatedByID)
	require.NotNil(t, task.AssigneeID)
	assert.Equal(t, f.alice.SubjectID, *task.AssigneeID)

	assert.Equal(t, []events.EventType{events.EventTaskCreated}, f.recorder.types())
}

func TestTaskCreateRejects(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.alice, TaskCreateInput{Title: "mine"})
	assert.ErrorIs(t, err, ErrTaskAdminOnly)

	_, err = f.svc.Create(ctx, f.admin, TaskCreateInput{Title: "   "})
	assert.ErrorIs(t, err, ErrInvalidTaskInput)

	_, err = f.svc.Create(ctx, f.admin, TaskCreateInput{Title: "x", Priority: "critical"})
	assert.ErrorIs(t, err, ErrInvalidTaskInput)

	ghost := int64(404)
	_, err = f.svc.Create(ctx, f.admin, TaskCreateInput{Title: "x", AssigneeID: &ghost})
	assert.ErrorIs(t, err, ErrAssigneeNotFound)
}

func TestWorkerSeesOnlyAssignedTasks(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()

	mine := f.create(t, "alice task", f.alice)
	theirs := f.create(t, "bob task", f.bob)
	f.create(t, "unassigned", nil)

	bobID := f.bob.SubjectID
	page, err := f.svc.List(ctx, f.alice, TaskListInput{AssigneeID: &bobID})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, mine.ID, page.Items[0].ID)

	page, err = f.svc.List(ctx, f.admin, TaskListInput{})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, defaultPageSize, page.Limit)

	got, err := f.svc.Get(ctx, f.alice, mine.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice task", got.Title)

	_, err = f.svc.Get(ctx, f.alice, theirs.ID)
	assert.ErrorIs(t, err, ErrTaskViewDenied)

	_, err = f.svc.Get(ctx, f.admin, 999)
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestTaskListFilters(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()

	f.create(t, "one", f.alice)
	second := f.create(t, "two", f.alice)
	done := domain.TaskStatusCompleted
	_, err := f.svc.Update(ctx, f.alice, second.ID, TaskUpdateInput{Status: &done})
	require.NoError(t, err)

	page, err := f.svc.List(ctx, f.alice, TaskListInput{Status: &done})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, second.ID, page.Items[0].ID)

	bogus := domain.TaskStatus("archived")
	_, err = f.svc.List(ctx, f.admin, TaskListInput{Status: &bogus})
	assert.ErrorIs(t, err, ErrInvalidTaskInput)

	page, err = f.svc.List(ctx, f.admin, TaskListInput{Limit: 500, Offset: -1})
	require.NoError(t, err)
	assert.Equal(t, maxPageSize, page.Limit)
	assert.Equal(t, 0, page.Offset)
}

func TestWorkerUpdateAppliesStatusOnly(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()

	task := f.create(t, "original", f.alice)
	title := "renamed"
	status := domain.TaskStatusInProgress
	urgent := domain.TaskPriorityUrgent

	updated, err := f.svc.Update(ctx, f.alice, task.ID, TaskUpdateInput{Title: &title, Status: &status, Priority: &urgent})
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusInProgress, updated.Status)
	assert.Equal(t, "original", updated.Title)
	assert.Equal(t, domain.TaskPriorityMedium, updated.Priority)

	_, err = f.svc.Update(ctx, f.bob, task.ID, TaskUpdateInput{Status: &status})
	assert.ErrorIs(t, err, ErrTaskUpdateDenied)

	bad := domain.TaskStatus("done")
	_, err = f.svc.Update(ctx, f.alice, task.ID, TaskUpdateInput{Status: &bad})
	assert.ErrorIs(t, err, ErrInvalidTaskInput)
}

func TestAdminUpdateAppliesEveryField(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()

	desc := "details"
	task, err := f.svc.Create(ctx, f.admin, TaskCreateInput{Title: "draft", Description: &desc})
	require.NoError(t, err)

	title := "final"
	high := domain.TaskPriorityHigh
	updated, err := f.svc.Update(ctx, f.admin, task.ID, TaskUpdateInput{Title: &title, Priority: &high, ClearDescription: true})
	require.NoError(t, err)
	assert.Equal(t, "final", updated.Title)
	assert.Equal(t, domain.TaskPriorityHigh, updated.Priority)
	assert.Nil(t, updated.Description)

	stored, err := f.tasks.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "final", stored.Title)
}

func TestAssignAndDeleteAreAdminOnly(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()

	task := f.create(t, "handoff", nil)

	_, err := f.svc.Assign(ctx, f.alice, task.ID, f.alice.SubjectID)
	assert.ErrorIs(t, err, ErrTaskAdminOnly)
	assert.ErrorIs(t, f.svc.Delete(ctx, f.alice, task.ID), ErrTaskAdminOnly)

	_, err = f.svc.Assign(ctx, f.admin, task.ID, 404)
	assert.ErrorIs(t, err, ErrAssigneeNotFound)
	_, err = f.svc.Assign(ctx, f.admin, 999, f.bob.SubjectID)
	assert.ErrorIs(t, err, ErrTaskNotFound)

	assigned, err := f.svc.Assign(ctx, f.admin, task.ID, f.bob.SubjectID)
	require.NoError(t, err)
	require.NotNil(t, assigned.AssigneeID)
	assert.Equal(t, f.bob.SubjectID, *assigned.AssigneeID)

	_, err = f.svc.Get(ctx, f.bob, task.ID)
	assert.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, f.admin, task.ID))
	assert.ErrorIs(t, f.svc.Delete(ctx, f.admin, task.ID), ErrTaskNotFound)

	assert.Equal(t, []events.EventType{
		events.EventTaskCreated,
		events.EventTaskAssigned,
		events.EventTaskDeleted,
	}, f.recorder.types())
}
