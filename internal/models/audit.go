// internal/models/audit.go
package models

import "time"

// AuditRecord is one immutable status-change entry. Records are append-only
// and never mutated or deleted after creation.
type AuditRecord struct {
	ID            string            `json:"id"`
	ApplicationID string            `json:"applicationId"`
	ActorID       string            `json:"actorUserId"`
	Status        ApplicationStatus `json:"status"`
	Comment       string            `json:"comment,omitempty"`
	CreatedAt     time.Time         `json:"createdAt"`

	// Actor identity details joined in for display, nil outside detail views.
	Actor *User `json:"actor,omitempty"`
}
