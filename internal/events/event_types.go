package events

import "time"

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserRegistered  EventType = "user.registered"
	EventSessionStarted  EventType = "session.started"
	EventSessionsRevoked EventType = "sessions.revoked"
	EventRoleChanged     EventType = "user.role_changed"
	EventTaskCreated     EventType = "task.created"
	EventTaskUpdated     EventType = "task.updated"
	EventTaskAssigned    EventType = "task.assigned"
	EventTaskDeleted     EventType = "task.deleted"
)

// Event is a lifecycle fact published after the state change succeeded.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	SubjectID int64       `json:"subject_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// UserRegisteredPayload payload.
type UserRegisteredPayload struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

// SessionStartedPayload payload. The nonce is safe to record; it is useless
// without the matching signature.
type SessionStartedPayload struct {
	SessionNonce string    `json:"session_nonce"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// SessionsRevokedPayload payload.
type SessionsRevokedPayload struct {
	InitiatingNonce string `json:"initiating_nonce,omitempty"`
	Revoked         int64  `json:"revoked"`
}

// RoleChangedPayload payload.
type RoleChangedPayload struct {
	OldRole   string `json:"old_role"`
	NewRole   string `json:"new_role"`
	ChangedBy int64  `json:"changed_by"`
}

// TaskPayload accompanies every task event. SubjectID on the event is the actor.
type TaskPayload struct {
	TaskID     int64  `json:"task_id"`
	Status     string `json:"status,omitempty"`
	AssigneeID *int64 `json:"assignee_id,omitempty"`
}
