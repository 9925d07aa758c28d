package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/taskflow/internal/api/dto"
	"github.com/spec-kit/taskflow/internal/auth"
	"github.com/spec-kit/taskflow/internal/domain"
	"github.com/spec-kit/taskflow/internal/service"
	apperrors "github.com/spec-kit/taskflow/pkg/util"
)

// TasksHandler exposes task endpoints. Scoping by role happens in the service.
type TasksHandler struct {
	tasks *service.TaskService
}

// NewTasksHandler constructs handler.
func NewTasksHandler(taskService *service.TaskService) *TasksHandler {
	return &TasksHandler{tasks: taskService}
}

// Create handles POST /tasks.
func (h *TasksHandler) Create(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewSessionRejected()
	}

	var req dto.CreateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if problems := req.Validate(); problems != nil {
		return apperrors.NewValidationError("invalid task", problems)
	}

	task, err := h.tasks.Create(c.UserContext(), identity, req.ToInput())
	if err != nil {
		return mapTaskError(err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewTaskResponse(task)})
}

// List handles GET /tasks?status=&priority=&assignee_id=&limit=&offset=.
func (h *TasksHandler) List(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewSessionRejected()
	}

	input := service.TaskListInput{
		Limit:  c.QueryInt("limit", 0),
		Offset: c.QueryInt("offset", 0),
	}
	if v := c.Query("status"); v != "" {
		status := domain.TaskStatus(v)
		input.Status = &status
	}
	if v := c.Query("priority"); v != "" {
		priority := domain.TaskPriority(v)
		input.Priority = &priority
	}
	if v := c.Query("assignee_id"); v != "" {
		id, err := parseID(v)
		if err != nil {
			return apperrors.NewValidationError("invalid assignee_id", nil)
		}
		input.AssigneeID = &id
	}

	page, err := h.tasks.List(c.UserContext(), identity, input)
	if err != nil {
		return mapTaskError(err)
	}

	items := make([]dto.TaskResponse, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, dto.NewTaskResponse(&page.Items[i]))
	}
	return c.JSON(fiber.Map{"data": dto.TaskListResponse{
		Items:  items,
		Total:  page.Total,
		Limit:  page.Limit,
		Offset: page.Offset,
	}})
}

// Get handles GET /tasks/:id.
func (h *TasksHandler) Get(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewSessionRejected()
	}
	id, err := parseID(c.Params("id"))
	if err != nil {
		return apperrors.NewValidationError("invalid task id", nil)
	}

	task, err := h.tasks.Get(c.UserContext(), identity, id)
	if err != nil {
		return mapTaskError(err)
	}
	return c.JSON(fiber.Map{"data": dto.NewTaskResponse(task)})
}

// Update handles PATCH /tasks/:id.
func (h *TasksHandler) Update(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewSessionRejected()
	}
	id, err := parseID(c.Params("id"))
	if err != nil {
		return apperrors.NewValidationError("invalid task id", nil)
	}

	var req dto.UpdateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if problems := req.Validate(); problems != nil {
		return apperrors.NewValidationError("invalid task", problems)
	}

	task, err := h.tasks.Update(c.UserContext(), identity, id, req.ToInput())
	if err != nil {
		return mapTaskError(err)
	}
	return c.JSON(fiber.Map{"data": dto.NewTaskResponse(task)})
}

// Delete handles DELETE /tasks/:id.
func (h *TasksHandler) Delete(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewSessionRejected()
	}
	id, err := parseID(c.Params("id"))
	if err != nil {
		return apperrors.NewValidationError("invalid task id", nil)
	}

	if err := h.tasks.Delete(c.UserContext(), identity, id); err != nil {
		return mapTaskError(err)
	}
	return c.JSON(fiber.Map{"data": dto.MessageResponse{Message: "task deleted"}})
}

// Assign handles PATCH /tasks/:id/assign.
func (h *TasksHandler) Assign(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewSessionRejected()
	}
	id, err := parseID(c.Params("id"))
	if err != nil {
		return apperrors.NewValidationError("invalid task id", nil)
	}

	var req dto.AssignTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if problems := req.Validate(); problems != nil {
		return apperrors.NewValidationError("invalid assignee", problems)
	}

	task, err := h.tasks.Assign(c.UserContext(), identity, id, req.AssigneeID)
	if err != nil {
		return mapTaskError(err)
	}
	return c.JSON(fiber.Map{"data": dto.NewTaskResponse(task)})
}

func mapTaskError(err error) error {
	switch {
	case errors.Is(err, service.ErrTaskNotFound):
		return apperrors.NewNotFound("task", nil)
	case errors.Is(err, service.ErrAssigneeNotFound):
		return apperrors.NewNotFound("assignee", nil)
	case errors.Is(err, service.ErrTaskViewDenied):
		return apperrors.NewForbidden("You can only view tasks assigned to you")
	case errors.Is(err, service.ErrTaskUpdateDenied):
		return apperrors.NewForbidden("You can only update tasks assigned to you")
	case errors.Is(err, service.ErrTaskAdminOnly):
		return apperrors.NewForbidden("insufficient role")
	case errors.Is(err, service.ErrInvalidTaskInput):
		return apperrors.NewValidationError(err.Error(), nil)
	}
	return err
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, strconv.ErrRange
	}
	return id, nil
}
