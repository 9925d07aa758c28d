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

// UsersHandler exposes the account endpoints.
type UsersHandler struct {
	users *service.UserService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(userService *service.UserService) *UsersHandler {
	return &UsersHandler{users: userService}
}

// List handles GET /users?limit=&offset=.
func (h *UsersHandler) List(c *fiber.Ctx) error {
	page, err := h.users.List(c.UserContext(), c.QueryInt("limit", 0), c.QueryInt("offset", 0))
	if err != nil {
		return err
	}

	items := make([]dto.UserResponse, 0, len(page.Items))
	for _, u := range page.Items {
		items = append(items, dto.NewUserResponse(u))
	}
	return c.JSON(fiber.Map{"data": dto.UserListResponse{
		Items:  items,
		Total:  page.Total,
		Limit:  page.Limit,
		Offset: page.Offset,
	}})
}

// Get handles GET /users/:id. Workers may only read their own account.
func (h *UsersHandler) Get(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewSessionRejected()
	}

	id, err := parseID(c.Params("id"))
	if err != nil {
		return apperrors.NewValidationError("invalid user id", nil)
	}
	if identity.Role != domain.RoleAdmin && identity.SubjectID != id {
		return apperrors.NewForbidden("You can only view your own profile")
	}

	user, err := h.users.Get(c.UserContext(), id)
	if errors.Is(err, service.ErrUserNotFound) {
		return apperrors.NewNotFound("user", nil)
	}
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// UpdateRole handles PATCH /users/:id/role.
func (h *UsersHandler) UpdateRole(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewSessionRejected()
	}

	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return apperrors.NewValidationError("invalid user id", nil)
	}

	var req dto.UpdateRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if problems := req.Validate(); problems != nil {
		return apperrors.NewValidationError("invalid role", problems)
	}

	user, err := h.users.UpdateRole(c.UserContext(), id, domain.Role(req.Role), identity.SubjectID)
	switch {
	case errors.Is(err, service.ErrSelfRoleChange):
		return apperrors.NewForbidden("cannot change your own role")
	case errors.Is(err, service.ErrInvalidRole):
		return apperrors.NewValidationError("invalid role", nil)
	case errors.Is(err, service.ErrUserNotFound):
		return apperrors.NewNotFound("user", nil)
	case err != nil:
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}
