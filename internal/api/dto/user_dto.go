package dto

import (
	"time"

	"github.com/spec-kit/taskflow/internal/domain"
)

// UserResponse is the public view of an account. The password hash never
// leaves the service.
type UserResponse struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewUserResponse maps a domain user.
func NewUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// UserListResponse is one page of accounts.
type UserListResponse struct {
	Items  []UserResponse `json:"items"`
	Total  int            `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

// UpdateRoleRequest payload for PATCH /users/:id/role.
type UpdateRoleRequest struct {
	Role string `json:"role"`
}

// Validate returns per-field problems, or nil.
func (r UpdateRoleRequest) Validate() map[string]any {
	if !domain.Role(r.Role).Valid() {
		return map[string]any{"role": "must be one of admin, worker"}
	}
	return nil
}
