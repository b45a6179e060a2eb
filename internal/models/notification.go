// internal/models/notification.go
package models

// NotificationEvent is produced once per committed transition that changes
// the status, plus once at creation. It is ephemeral: the engine emits it
// and the dispatcher consumes it best-effort.
type NotificationEvent struct {
	ID              string            `json:"id"`
	ApplicationID   string            `json:"applicationId"`
	ApplicationType ApplicationType   `json:"applicationType"`
	RecipientID     string            `json:"recipientUserId"`
	OldStatus       ApplicationStatus `json:"oldStatus,omitempty"`
	NewStatus       ApplicationStatus `json:"newStatus"`
	ActorID         string            `json:"actorUserId"`
	Comment         string            `json:"comment,omitempty"`
}
