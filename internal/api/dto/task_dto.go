package dto

import (
	"encoding/json"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spec-kit/taskflow/internal/domain"
	"github.com/spec-kit/taskflow/internal/service"
)

const (
	maxTitleLength       = 255
	maxDescriptionLength = 2000
)

// Optional distinguishes an absent JSON field from an explicit null.
type Optional[T any] struct {
	Set   bool
	Null  bool
	Value T
}

// UnmarshalJSON only runs when the key is present.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.Null = true
		return nil
	}
	return json.Unmarshal(data, &o.Value)
}

// CreateTaskRequest payload for POST /tasks.
type CreateTaskRequest struct {
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	Priority    string     `json:"priority"`
	DueDate     *time.Time `json:"due_date"`
	AssigneeID  *int64     `json:"assignee_id"`
}

// Validate returns per-field problems, or nil.
func (r CreateTaskRequest) Validate() map[string]any {
	problems := map[string]any{}
	if !validTitle(r.Title) {
		problems["title"] = "must be between 1 and 255 characters"
	}
	if r.Description != nil && utf8.RuneCountInString(*r.Description) > maxDescriptionLength {
		problems["description"] = "must be at most 2000 characters"
	}
	if r.Priority != "" && !domain.TaskPriority(r.Priority).Valid() {
		problems["priority"] = "must be one of low, medium, high, urgent"
	}
	if r.AssigneeID != nil && *r.AssigneeID <= 0 {
		problems["assignee_id"] = "must be a positive integer"
	}
	if len(problems) == 0 {
		return nil
	}
	return problems
}

// ToInput maps the payload onto the service input.
func (r CreateTaskRequest) ToInput() service.TaskCreateInput {
	return service.TaskCreateInput{
		Title:       strings.TrimSpace(r.Title),
		Description: r.Description,
		Priority:    domain.TaskPriority(r.Priority),
		DueDate:     r.DueDate,
		AssigneeID:  r.AssigneeID,
	}
}

// UpdateTaskRequest payload for PATCH /tasks/:id. description and due_date
// accept null to clear the value.
type UpdateTaskRequest struct {
	Title       *string             `json:"title"`
	Description Optional[string]    `json:"description"`
	Status      *string             `json:"status"`
	Priority    *string             `json:"priority"`
	DueDate     Optional[time.Time] `json:"due_date"`
}

// Validate returns per-field problems, or nil.
func (r UpdateTaskRequest) Validate() map[string]any {
	problems := map[string]any{}
	if r.Title != nil && !validTitle(*r.Title) {
		problems["title"] = "must be between 1 and 255 characters"
	}
	if r.Description.Set && !r.Description.Null && utf8.RuneCountInString(r.Description.Value) > maxDescriptionLength {
		problems["description"] = "must be at most 2000 characters"
	}
	if r.Status != nil && !domain.TaskStatus(*r.Status).Valid() {
		problems["status"] = "must be one of pending, in_progress, completed, cancelled"
	}
	if r.Priority != nil && !domain.TaskPriority(*r.Priority).Valid() {
		problems["priority"] = "must be one of low, medium, high, urgent"
	}
	if len(problems) == 0 {
		return nil
	}
	return problems
}

// ToInput maps the payload onto the service input.
func (r UpdateTaskRequest) ToInput() service.TaskUpdateInput {
	input := service.TaskUpdateInput{
		Title:            r.Title,
		ClearDescription: r.Description.Set && r.Description.Null,
		ClearDueDate:     r.DueDate.Set && r.DueDate.Null,
	}
	if r.Description.Set && !r.Description.Null {
		desc := r.Description.Value
		input.Description = &desc
	}
	if r.DueDate.Set && !r.DueDate.Null {
		due := r.DueDate.Value
		input.DueDate = &due
	}
	if r.Status != nil {
		status := domain.TaskStatus(*r.Status)
		input.Status = &status
	}
	if r.Priority != nil {
		priority := domain.TaskPriority(*r.Priority)
		input.Priority = &priority
	}
	return input
}

// AssignTaskRequest payload for PATCH /tasks/:id/assign.
type AssignTaskRequest struct {
	AssigneeID int64 `json:"assignee_id"`
}

// Validate returns per-field problems, or nil.
func (r AssignTaskRequest) Validate() map[string]any {
	if r.AssigneeID <= 0 {
		return map[string]any{"assignee_id": "must be a positive integer"}
	}
	return nil
}

// TaskResponse is the public view of a task.
type TaskResponse struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	DueDate     *time.Time `json:"due_date"`
	CreatedByID int64      `json:"created_by_id"`
	AssigneeID  *int64     `json:"assignee_id"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// NewTaskResponse maps a domain task.
func NewTaskResponse(t *domain.Task) TaskResponse {
	return TaskResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
		Priority:    string(t.Priority),
		DueDate:     t.DueDate,
		CreatedByID: t.CreatedByID,
		AssigneeID:  t.AssigneeID,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// TaskListResponse is one page of tasks.
type TaskListResponse struct {
	Items  []TaskResponse `json:"items"`
	Total  int            `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

func validTitle(title string) bool {
	n := utf8.RuneCountInString(strings.TrimSpace(title))
	return n > 0 && n <= maxTitleLength
}
