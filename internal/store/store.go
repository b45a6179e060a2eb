// internal/store/store.go

// Package store holds the persistence contracts for applications and their
// audit trail. Mutations of application status go through the lifecycle
// engine only, inside the transaction boundary provided by TxManager.
package store

import (
	"context"

	"citizen-services/internal/models"
)

// ApplicationStore owns the current application state.
type ApplicationStore interface {
	Insert(ctx context.Context, app models.Application) (models.Application, error)
	GetByID(ctx context.Context, id string) (models.Application, error)
	// SetStatus is called only by the lifecycle engine inside its atomic
	// boundary. Fails with NotFound when the id does not resolve.
	SetStatus(ctx context.Context, id string, status models.ApplicationStatus) (models.Application, error)
}

// AuditStore is the append-only status-change log. No update or delete
// operation exists in the contract.
type AuditStore interface {
	Append(ctx context.Context, rec models.AuditRecord) (models.AuditRecord, error)
	// ListByApplication returns records newest first, ties broken by
	// insertion order.
	ListByApplication(ctx context.Context, applicationID string) ([]models.AuditRecord, error)
}

// TxManager provides the atomic multi-write boundary around a status update
// and its audit append. Both writes commit or neither does.
type TxManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// SubmitterResolver looks up the owning user of an application, used to
// address notifications and scope division queries.
type SubmitterResolver interface {
	GetSubmitter(ctx context.Context, userID string) (models.User, error)
}
