// internal/store/memory.go
package store

import (
	"context"
	"sync"
	"time"

	cerrors "citizen-services/internal/common/errors"
	"citizen-services/internal/models"

	"github.com/google/uuid"
)

// MemoryStore is an in-process implementation of ApplicationStore, AuditStore
// and TxManager, used in tests and local development. Transactions are
// serialized by a store-level lock with journaled rollback, which gives the
// same all-or-nothing guarantee as the database boundary.
type MemoryStore struct {
	mu    sync.Mutex
	txMu  sync.Mutex
	apps  map[string]models.Application
	audit []models.AuditRecord
	users map[string]models.User
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		apps:  make(map[string]models.Application),
		users: make(map[string]models.User),
	}
}

// PutUser seeds a user for submitter resolution.
func (s *MemoryStore) PutUser(u models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

func (s *MemoryStore) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := make(map[string]models.Application, len(s.apps))
	for k, v := range s.apps {
		snapshot[k] = v
	}
	auditLen := len(s.audit)
	s.mu.Unlock()

	if err := fn(ctx); err != nil {
		s.mu.Lock()
		s.apps = snapshot
		s.audit = s.audit[:auditLen]
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *MemoryStore) Insert(ctx context.Context, app models.Application) (models.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if app.ID == "" {
		app.ID = uuid.New().String()
	}
	if _, exists := s.apps[app.ID]; exists {
		return models.Application{}, cerrors.NewConflict("application already exists: " + app.ID)
	}
	now := time.Now().UTC()
	app.CreatedAt = now
	app.UpdatedAt = now
	s.apps[app.ID] = app
	return app, nil
}

func (s *MemoryStore) GetByID(ctx context.Context, id string) (models.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	app, ok := s.apps[id]
	if !ok {
		return models.Application{}, cerrors.NewNotFound("application", id)
	}
	return app, nil
}

func (s *MemoryStore) SetStatus(ctx context.Context, id string, status models.ApplicationStatus) (models.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	app, ok := s.apps[id]
	if !ok {
		return models.Application{}, cerrors.NewNotFound("application", id)
	}
	app.CurrentStatus = status
	app.UpdatedAt = time.Now().UTC()
	s.apps[id] = app
	return app, nil
}

func (s *MemoryStore) Append(ctx context.Context, rec models.AuditRecord) (models.AuditRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	rec.CreatedAt = time.Now().UTC()
	if actor, ok := s.users[rec.ActorID]; ok {
		a := actor
		rec.Actor = &a
	}
	s.audit = append(s.audit, rec)
	return rec, nil
}

func (s *MemoryStore) ListByApplication(ctx context.Context, applicationID string) ([]models.AuditRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Insertion order equals commit order; reverse for newest-first.
	var out []models.AuditRecord
	for i := len(s.audit) - 1; i >= 0; i-- {
		if s.audit[i].ApplicationID == applicationID {
			out = append(out, s.audit[i])
		}
	}
	return out, nil
}

func (s *MemoryStore) GetSubmitter(ctx context.Context, userID string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return models.User{}, cerrors.NewNotFound("user", userID)
	}
	return u, nil
}
