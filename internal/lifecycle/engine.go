// internal/lifecycle/engine.go

// Package lifecycle implements the application lifecycle engine: role-gated
// status transitions with an atomic status-write + audit-append boundary,
// and notification event emission after commit.
package lifecycle

import (
	"context"
	"fmt"
	"time"

	cerrors "citizen-services/internal/common/errors"
	"citizen-services/internal/common/logger"
	"citizen-services/internal/common/metrics"
	"citizen-services/internal/models"
	"citizen-services/internal/store"

	"github.com/google/uuid"
)

// EventEmitter receives notification events for best-effort delivery.
// Emit must not block and must never fail the committed transition.
type EventEmitter interface {
	Emit(event models.NotificationEvent)
}

// Engine orchestrates status transitions over the application and audit
// stores. All mutation of application status in the system goes through it.
type Engine struct {
	apps    store.ApplicationStore
	audit   store.AuditStore
	txm     store.TxManager
	policy  StatusPolicy
	emitter EventEmitter
	logger  logger.Logger
}

func NewEngine(
	apps store.ApplicationStore,
	audit store.AuditStore,
	txm store.TxManager,
	policy StatusPolicy,
	emitter EventEmitter,
	log logger.Logger,
) *Engine {
	return &Engine{
		apps:    apps,
		audit:   audit,
		txm:     txm,
		policy:  policy,
		emitter: emitter,
		logger:  log.WithFields(map[string]interface{}{"component": "lifecycle-engine"}),
	}
}

// Create admits a new application in the SUBMITTED state. The initial state
// is implicit: no audit record is written for it, only transitions away
// from SUBMITTED produce entries.
func (e *Engine) Create(
	ctx context.Context,
	submitterID string,
	appType models.ApplicationType,
	payload map[string]interface{},
) (models.Application, error) {
	if submitterID == "" {
		return models.Application{}, cerrors.NewValidation("submitterId is required")
	}
	if !appType.Valid() {
		return models.Application{}, cerrors.NewValidation(fmt.Sprintf("unknown application type: %s", appType))
	}
	if err := validatePayload(appType, payload); err != nil {
		return models.Application{}, err
	}

	app, err := e.apps.Insert(ctx, models.Application{
		SubmitterID:   submitterID,
		Type:          appType,
		Payload:       payload,
		CurrentStatus: models.StatusSubmitted,
	})
	if err != nil {
		return models.Application{}, err
	}

	e.logger.Info("application created", map[string]interface{}{
		"applicationId":   app.ID,
		"submitterId":     submitterID,
		"applicationType": appType,
	})

	// Submission acknowledgement. Delivery failure never fails the create.
	e.emit(models.NotificationEvent{
		ID:              uuid.New().String(),
		ApplicationID:   app.ID,
		ApplicationType: app.Type,
		RecipientID:     submitterID,
		NewStatus:       models.StatusSubmitted,
		ActorID:         submitterID,
	})

	return app, nil
}

// Transition moves an application to newStatus on behalf of the actor.
// The current-status read, status write and audit append execute in one
// transaction: afterwards the trail and the current status are always
// mutually consistent. A same-status transition still appends an audit
// record but emits no notification.
func (e *Engine) Transition(
	ctx context.Context,
	applicationID string,
	actorID string,
	actorRole models.Role,
	newStatus models.ApplicationStatus,
	comment string,
) (models.Application, error) {
	if applicationID == "" || actorID == "" {
		return models.Application{}, cerrors.NewValidation("applicationId and actorUserId are required")
	}
	if !newStatus.Valid() {
		return models.Application{}, cerrors.NewValidation(fmt.Sprintf("unknown status: %s", newStatus))
	}
	if !e.policy.Allows(actorRole, newStatus) {
		metrics.TransitionsRejected.WithLabelValues(string(cerrors.ErrCodeForbidden)).Inc()
		return models.Application{}, cerrors.NewForbidden(
			fmt.Sprintf("role %s may not set status %s", actorRole, newStatus))
	}

	var (
		oldStatus models.ApplicationStatus
		updated   models.Application
	)

	started := time.Now()
	err := e.txm.RunInTx(ctx, func(ctx context.Context) error {
		current, err := e.apps.GetByID(ctx, applicationID)
		if err != nil {
			return err
		}
		oldStatus = current.CurrentStatus

		updated, err = e.apps.SetStatus(ctx, applicationID, newStatus)
		if err != nil {
			return err
		}

		_, err = e.audit.Append(ctx, models.AuditRecord{
			ApplicationID: applicationID,
			ActorID:       actorID,
			Status:        newStatus,
			Comment:       comment,
		})
		return err
	})
	if err != nil {
		metrics.TransitionsRejected.WithLabelValues(string(cerrors.CodeOf(err))).Inc()
		return models.Application{}, err
	}

	metrics.TransitionsCommitted.WithLabelValues(string(newStatus)).Inc()
	metrics.TransitionDuration.WithLabelValues(string(newStatus)).Observe(time.Since(started).Seconds())
	metrics.AuditRecordsAppended.Inc()

	e.logger.Info("status transition committed", map[string]interface{}{
		"applicationId": applicationID,
		"oldStatus":     oldStatus,
		"newStatus":     newStatus,
		"actorUserId":   actorID,
	})

	if oldStatus != newStatus {
		e.emit(models.NotificationEvent{
			ID:              uuid.New().String(),
			ApplicationID:   updated.ID,
			ApplicationType: updated.Type,
			RecipientID:     updated.SubmitterID,
			OldStatus:       oldStatus,
			NewStatus:       newStatus,
			ActorID:         actorID,
			Comment:         comment,
		})
	}

	return updated, nil
}

// TransitionAll applies the same transition to each application in ids,
// collecting per-id failures without aborting the batch.
func (e *Engine) TransitionAll(
	ctx context.Context,
	ids []string,
	actorID string,
	actorRole models.Role,
	newStatus models.ApplicationStatus,
	comment string,
) ([]models.Application, map[string]error) {
	var updated []models.Application
	failed := make(map[string]error)

	for _, id := range ids {
		app, err := e.Transition(ctx, id, actorID, actorRole, newStatus, comment)
		if err != nil {
			e.logger.Warn("bulk transition entry failed", map[string]interface{}{
				"applicationId": id,
				"error":         err.Error(),
			})
			failed[id] = err
			continue
		}
		updated = append(updated, app)
	}
	return updated, failed
}

// GetAuditTrail returns the application's status-change records newest
// first. Fails with NotFound when the application does not exist.
func (e *Engine) GetAuditTrail(ctx context.Context, applicationID string) ([]models.AuditRecord, error) {
	if _, err := e.apps.GetByID(ctx, applicationID); err != nil {
		return nil, err
	}
	return e.audit.ListByApplication(ctx, applicationID)
}

// ResendNotification re-emits the current-status notification for an
// application, e.g. after a delivery failure reported by the recipient.
func (e *Engine) ResendNotification(ctx context.Context, applicationID string) error {
	app, err := e.apps.GetByID(ctx, applicationID)
	if err != nil {
		return err
	}

	e.emit(models.NotificationEvent{
		ID:              uuid.New().String(),
		ApplicationID:   app.ID,
		ApplicationType: app.Type,
		RecipientID:     app.SubmitterID,
		OldStatus:       app.CurrentStatus,
		NewStatus:       app.CurrentStatus,
		ActorID:         app.SubmitterID,
	})
	return nil
}

func (e *Engine) emit(event models.NotificationEvent) {
	if e.emitter == nil {
		return
	}
	e.emitter.Emit(event)
}
