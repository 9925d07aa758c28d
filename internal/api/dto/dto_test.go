package dto

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/taskflow/internal/domain"
)

func TestRegisterRequestValidate(t *testing.T) {
	valid := RegisterRequest{Email: "alice@example.com", Password: "secret123", Name: "Alice"}
	assert.Nil(t, valid.Validate())

	tests := []struct {
		name  string
		req   RegisterRequest
		field string
	}{
		{"bad email", RegisterRequest{Email: "alice", Password: "secret123", Name: "Alice"}, "email"},
		{"display form email", RegisterRequest{Email: "Alice <alice@example.com>", Password: "secret123", Name: "Alice"}, "email"},
		{"short password", RegisterRequest{Email: "alice@example.com", Password: "12345", Name: "Alice"}, "password"},
		{"blank name", RegisterRequest{Email: "alice@example.com", Password: "secret123", Name: "   "}, "name"},
		{"long name", RegisterRequest{Email: "alice@example.com", Password: "secret123", Name: strings.Repeat("a", 101)}, "name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			problems := tt.req.Validate()
			assert.Contains(t, problems, tt.field)
			assert.Len(t, problems, 1)
		})
	}
}

func TestLoginRequestValidate(t *testing.T) {
	assert.Nil(t, LoginRequest{Email: "alice@example.com", Password: "x"}.Validate())

	problems := LoginRequest{}.Validate()
	assert.Contains(t, problems, "email")
	assert.Contains(t, problems, "password")
}

func TestUpdateRoleRequestValidate(t *testing.T) {
	assert.Nil(t, UpdateRoleRequest{Role: "admin"}.Validate())
	assert.Nil(t, UpdateRoleRequest{Role: "worker"}.Validate())
	assert.NotNil(t, UpdateRoleRequest{Role: "owner"}.Validate())
}

func TestNewUserResponseOmitsHash(t *testing.T) {
	resp := NewUserResponse(&domain.User{ID: 3, Email: "a@b.c", Name: "A", PasswordHash: "hash", Role: domain.RoleAdmin})
	assert.Equal(t, int64(3), resp.ID)
	assert.Equal(t, "admin", resp.Role)
}

func TestCreateTaskRequestValidate(t *testing.T) {
	assert.Nil(t, CreateTaskRequest{Title: "Write report"}.Validate())

	long := strings.Repeat("d", 2001)
	zero := int64(0)
	problems := CreateTaskRequest{
		Title:       "  ",
		Description: &long,
		Priority:    "critical",
		AssigneeID:  &zero,
	}.Validate()
	assert.Len(t, problems, 4)
	for _, field := range []string{"title", "description", "priority", "assignee_id"} {
		assert.Contains(t, problems, field)
	}

	assert.Contains(t, CreateTaskRequest{Title: strings.Repeat("t", 256)}.Validate(), "title")
}

func TestUpdateTaskRequestDistinguishesNullFromAbsent(t *testing.T) {
	var req UpdateTaskRequest
	require.NoError(t, json.Unmarshal([]byte(`{"description":null,"status":"completed"}`), &req))
	assert.Nil(t, req.Validate())

	input := req.ToInput()
	assert.True(t, input.ClearDescription)
	assert.Nil(t, input.Description)
	assert.False(t, input.ClearDueDate)
	assert.Nil(t, input.DueDate)
	require.NotNil(t, input.Status)
	assert.Equal(t, domain.TaskStatusCompleted, *input.Status)

	req = UpdateTaskRequest{}
	require.NoError(t, json.Unmarshal([]byte(`{"description":"notes","due_date":"2026-11-01T09:00:00Z"}`), &req))
	input = req.ToInput()
	require.NotNil(t, input.Description)
	assert.Equal(t, "notes", *input.Description)
	require.NotNil(t, input.DueDate)
	assert.Equal(t, 2026, input.DueDate.Year())

	req = UpdateTaskRequest{}
	require.NoError(t, json.Unmarshal([]byte(`{"status":"done","priority":"meh"}`), &req))
	problems := req.Validate()
	assert.Contains(t, problems, "status")
	assert.Contains(t, problems, "priority")
}

func TestAssignTaskRequestValidate(t *testing.T) {
	assert.Nil(t, AssignTaskRequest{AssigneeID: 3}.Validate())
	assert.Contains(t, AssignTaskRequest{}.Validate(), "assignee_id")
}
