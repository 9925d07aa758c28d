package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/taskflow/internal/events"
)

// AuditService writes one structured log line per lifecycle event.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{
		dispatcher: dispatcher,
		logger:     logger.Named("audit"),
	}
}

// RegisterHandlers subscribes to events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventUserRegistered, a.handleUserRegistered)
	a.dispatcher.Subscribe(events.EventSessionStarted, a.handleSessionStarted)
	a.dispatcher.Subscribe(events.EventSessionsRevoked, a.handleSessionsRevoked)
	a.dispatcher.Subscribe(events.EventRoleChanged, a.handleRoleChanged)
	for _, et := range []events.EventType{
		events.EventTaskCreated,
		events.EventTaskUpdated,
		events.EventTaskAssigned,
		events.EventTaskDeleted,
	} {
		a.dispatcher.Subscribe(et, a.handleTaskEvent)
	}
}

func (a *AuditService) handleUserRegistered(_ context.Context, event events.Event) error {
	fields := a.baseFields(event)
	if p, ok := event.Payload.(events.UserRegisteredPayload); ok {
		fields = append(fields, zap.String("role", p.Role))
	}
	a.logger.Info("UserRegistered", fields...)
	return nil
}

// The nonce is logged, never the credential or its signature.
func (a *AuditService) handleSessionStarted(_ context.Context, event events.Event) error {
	fields := a.baseFields(event)
	if p, ok := event.Payload.(events.SessionStartedPayload); ok {
		fields = append(fields,
			zap.String("session_nonce", p.SessionNonce),
			zap.Time("expires_at", p.ExpiresAt))
	}
	a.logger.Info("SessionStarted", fields...)
	return nil
}

func (a *AuditService) handleSessionsRevoked(_ context.Context, event events.Event) error {
	fields := a.baseFields(event)
	if p, ok := event.Payload.(events.SessionsRevokedPayload); ok {
		fields = append(fields,
			zap.String("initiating_nonce", p.InitiatingNonce),
			zap.Int64("revoked", p.Revoked))
	}
	a.logger.Info("SessionsRevoked", fields...)
	return nil
}

func (a *AuditService) handleRoleChanged(_ context.Context, event events.Event) error {
	fields := a.baseFields(event)
	if p, ok := event.Payload.(events.RoleChangedPayload); ok {
		fields = append(fields,
			zap.String("old_role", p.OldRole),
			zap.String("new_role", p.NewRole),
			zap.Int64("changed_by", p.ChangedBy))
	}
	a.logger.Info("RoleChanged", fields...)
	return nil
}

// The event subject is the acting user, not the assignee.
func (a *AuditService) handleTaskEvent(_ context.Context, event events.Event) error {
	fields := a.baseFields(event)
	if p, ok := event.Payload.(events.TaskPayload); ok {
		fields = append(fields, zap.Int64("task_id", p.TaskID))
		if p.Status != "" {
			fields = append(fields, zap.String("status", p.Status))
		}
		if p.AssigneeID != nil {
			fields = append(fields, zap.Int64("assignee_id", *p.AssigneeID))
		}
	}
	a.logger.Info(taskAuditMessage(event.Type), fields...)
	return nil
}

func taskAuditMessage(et events.EventType) string {
	switch et {
	case events.EventTaskCreated:
		return "TaskCreated"
	case events.EventTaskAssigned:
		return "TaskAssigned"
	case events.EventTaskDeleted:
		return "TaskDeleted"
	default:
		return "TaskUpdated"
	}
}

func (a *AuditService) baseFields(event events.Event) []zap.Field {
	return []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.Int64("user_id", event.SubjectID),
		zap.Time("at", event.Timestamp),
	}
}
