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

	"github.com/spec-kit/taskflow/internal/domain"
	"github.com/spec-kit/taskflow/internal/events"
	"github.com/spec-kit/taskflow/internal/repository"
)

var (
	// ErrTaskNotFound is returned when the task does not exist.
	ErrTaskNotFound = errors.New("task not found")
	// ErrTaskViewDenied is returned when a worker reads a task assigned to someone else.
	ErrTaskViewDenied = errors.New("task is not assigned to requester")
	// ErrTaskUpdateDenied is returned when a worker updates a task assigned to someone else.
	ErrTaskUpdateDenied = errors.New("task update by non-assignee")
	// ErrTaskAdminOnly is returned when a worker attempts create, delete or assign.
	ErrTaskAdminOnly = errors.New("only admins can manage tasks")
	// ErrAssigneeNotFound is returned when the assignee account does not exist.
	ErrAssigneeNotFound = errors.New("assignee not found")
	// ErrInvalidTaskInput wraps field-level validation failures.
	ErrInvalidTaskInput = errors.New("invalid task input")
)

// TaskCreateInput carries the fields accepted on creation.
type TaskCreateInput struct {
	Title       string
	Description *string
	Priority    domain.TaskPriority
	DueDate     *time.Time
	AssigneeID  *int64
}

// TaskUpdateInput is a partial update. Nil pointers leave the field alone;
// the Clear flags null out the optional columns.
type TaskUpdateInput struct {
	Title            *string
	Description      *string
	ClearDescription bool
	Status           *domain.TaskStatus
	Priority         *domain.TaskPriority
	DueDate          *time.Time
	ClearDueDate     bool
}

// TaskListInput filters a listing. AssigneeID is ignored for workers.
type TaskListInput struct {
	AssigneeID *int64
	Status     *domain.TaskStatus
	Priority   *domain.TaskPriority
	Limit      int
	Offset     int
}

// TaskPage is one page of tasks, newest first.
type TaskPage struct {
	Items  []domain.Task
	Total  int
	Limit  int
	Offset int
}

// TaskDependencies encapsulates collaborators for the task service.
type TaskDependencies struct {
	Tasks      repository.TaskRepository
	Users      repository.UserRepository
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// TaskService applies role scoping to task operations. Admins see and change
// everything; workers only see tasks assigned to them and may only move their
// status.
type TaskService struct {
	tasks      repository.TaskRepository
	users      repository.UserRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewTaskService builds the service.
func NewTaskService(deps TaskDependencies) *TaskService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TaskService{
		tasks:      deps.Tasks,
		users:      deps.Users,
		dispatcher: deps.Dispatcher,
		logger:     logger,
	}
}

// Create stores a new pending task authored by actor.
func (s *TaskService) Create(ctx context.Context, actor *domain.Identity, input TaskCreateInput) (*domain.Task, error) {
	if !isAdmin(actor) {
		return nil, ErrTaskAdminOnly
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidTaskInput)
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.TaskPriorityMedium
	}
	if !priority.Valid() {
		return nil, fmt.Errorf("%w: unknown priority %q", ErrInvalidTaskInput, priority)
	}
	if input.AssigneeID != nil {
		if err := s.ensureAssignee(ctx, *input.AssigneeID); err != nil {
			return nil, err
		}
	}

	task := &domain.Task{
		Title:       title,
		Description: input.Description,
		Status:      domain.TaskStatusPending,
		Priority:    priority,
		DueDate:     input.DueDate,
		CreatedByID: actor.SubjectID,
		AssigneeID:  input.AssigneeID,
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	s.logger.Info("task created", zap.Int64("task_id", task.ID), zap.Int64("created_by", actor.SubjectID))
	s.publish(ctx, events.EventTaskCreated, actor.SubjectID, task)
	return task, nil
}

// Get returns a task visible to actor.
func (s *TaskService) Get(ctx context.Context, actor *domain.Identity, id int64) (*domain.Task, error) {
	task, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !isAdmin(actor) && !task.AssignedTo(actor.SubjectID) {
		return nil, ErrTaskViewDenied
	}
	return task, nil
}

// List returns a page of tasks. Workers are always scoped to their own
// assignments regardless of the requested assignee filter.
func (s *TaskService) List(ctx context.Context, actor *domain.Identity, input TaskListInput) (*TaskPage, error) {
	filter := repository.TaskFilter{
		AssigneeID: input.AssigneeID,
		Status:     input.Status,
		Priority:   input.Priority,
		Limit:      input.Limit,
		Offset:     input.Offset,
	}
	if !isAdmin(actor) {
		self := actor.SubjectID
		filter.AssigneeID = &self
	}
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidTaskInput, *filter.Status)
	}
	if filter.Priority != nil && !filter.Priority.Valid() {
		return nil, fmt.Errorf("%w: unknown priority %q", ErrInvalidTaskInput, *filter.Priority)
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultPageSize
	}
	if filter.Limit > maxPageSize {
		filter.Limit = maxPageSize
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	items, total, err := s.tasks.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return &TaskPage{Items: items, Total: total, Limit: filter.Limit, Offset: filter.Offset}, nil
}

// Update applies a partial update. For workers only the status field is
// applied, and only on tasks assigned to them.
func (s *TaskService) Update(ctx context.Context, actor *domain.Identity, id int64, input TaskUpdateInput) (*domain.Task, error) {
	task, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Status != nil && !input.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidTaskInput, *input.Status)
	}

	if !isAdmin(actor) {
		if !task.AssignedTo(actor.SubjectID) {
			return nil, ErrTaskUpdateDenied
		}
		if input.Status != nil {
			task.Status = *input.Status
		}
	} else {
		if err := applyAdminUpdate(task, input); err != nil {
			return nil, err
		}
	}

	if err := s.tasks.Update(ctx, task); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("update task: %w", err)
	}

	s.publish(ctx, events.EventTaskUpdated, actor.SubjectID, task)
	return task, nil
}

// Delete removes a task. Admin only.
func (s *TaskService) Delete(ctx context.Context, actor *domain.Identity, id int64) error {
	if !isAdmin(actor) {
		return ErrTaskAdminOnly
	}
	if err := s.tasks.Delete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("delete task: %w", err)
	}

	s.logger.Info("task deleted", zap.Int64("task_id", id), zap.Int64("deleted_by", actor.SubjectID))
	s.publish(ctx, events.EventTaskDeleted, actor.SubjectID, &domain.Task{ID: id})
	return nil
}

// Assign hands the task to an existing user. Admin only.
func (s *TaskService) Assign(ctx context.Context, actor *domain.Identity, id, assigneeID int64) (*domain.Task, error) {
	if !isAdmin(actor) {
		return nil, ErrTaskAdminOnly
	}
	task, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.ensureAssignee(ctx, assigneeID); err != nil {
		return nil, err
	}

	task.AssigneeID = &assigneeID
	if err := s.tasks.Update(ctx, task); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("assign task: %w", err)
	}

	s.logger.Info("task assigned",
		zap.Int64("task_id", id),
		zap.Int64("assignee_id", assigneeID),
		zap.Int64("assigned_by", actor.SubjectID))
	s.publish(ctx, events.EventTaskAssigned, actor.SubjectID, task)
	return task, nil
}

func applyAdminUpdate(task *domain.Task, input TaskUpdateInput) error {
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return fmt.Errorf("%w: title is required", ErrInvalidTaskInput)
		}
		task.Title = title
	}
	if input.ClearDescription {
		task.Description = nil
	} else if input.Description != nil {
		task.Description = input.Description
	}
	if input.Status != nil {
		task.Status = *input.Status
	}
	if input.Priority != nil {
		if !input.Priority.Valid() {
			return fmt.Errorf("%w: unknown priority %q", ErrInvalidTaskInput, *input.Priority)
		}
		task.Priority = *input.Priority
	}
	if input.ClearDueDate {
		task.DueDate = nil
	} else if input.DueDate != nil {
		task.DueDate = input.DueDate
	}
	return nil
}

func (s *TaskService) load(ctx context.Context, id int64) (*domain.Task, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("get task: %w", err)
	}
	return task, nil
}

func (s *TaskService) ensureAssignee(ctx context.Context, id int64) error {
	if _, err := s.users.FindByID(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrAssigneeNotFound
		}
		return fmt.Errorf("lookup assignee: %w", err)
	}
	return nil
}

func (s *TaskService) publish(ctx context.Context, eventType events.EventType, actorID int64, task *domain.Task) {
	if s.dispatcher == nil {
		return
	}
	err := s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		SubjectID: actorID,
		Timestamp: time.Now().UTC(),
		Payload: events.TaskPayload{
			TaskID:     task.ID,
			Status:     string(task.Status),
			AssigneeID: task.AssigneeID,
		},
	})
	if err != nil {
		s.logger.Warn("event handler failed", zap.String("event_type", string(eventType)), zap.Error(err))
	}
}

func isAdmin(actor *domain.Identity) bool {
	return actor != nil && actor.Role == domain.RoleAdmin
}
