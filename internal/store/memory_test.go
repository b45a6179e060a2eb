// internal/store/memory_test.go
package store

import (
	"context"
	"testing"

	cerrors "citizen-services/internal/common/errors"
	"citizen-services/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_InsertAndGet(t *testing.T) {
	ms := NewMemoryStore()
	ctx := context.Background()

	app, err := ms.Insert(ctx, models.Application{
		SubmitterID:   "citizen-1",
		Type:          models.TypeNICReissue,
		CurrentStatus: models.StatusSubmitted,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, app.ID)
	assert.False(t, app.CreatedAt.IsZero())

	got, err := ms.GetByID(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, app, got)

	_, err = ms.GetByID(ctx, "missing")
	assert.True(t, cerrors.IsNotFound(err))

	_, err = ms.Insert(ctx, models.Application{ID: app.ID})
	assert.True(t, cerrors.IsConflict(err))
}

func TestMemoryStore_SetStatus(t *testing.T) {
	ms := NewMemoryStore()
	ctx := context.Background()

	app, err := ms.Insert(ctx, models.Application{CurrentStatus: models.StatusSubmitted})
	require.NoError(t, err)

	updated, err := ms.SetStatus(ctx, app.ID, models.StatusApprovedByGN)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApprovedByGN, updated.CurrentStatus)
	assert.True(t, updated.UpdatedAt.After(app.CreatedAt) || updated.UpdatedAt.Equal(app.CreatedAt))

	_, err = ms.SetStatus(ctx, "missing", models.StatusApprovedByGN)
	assert.True(t, cerrors.IsNotFound(err))
}

func TestMemoryStore_RunInTx_Rollback(t *testing.T) {
	ms := NewMemoryStore()
	ctx := context.Background()

	app, err := ms.Insert(ctx, models.Application{CurrentStatus: models.StatusSubmitted})
	require.NoError(t, err)

	err = ms.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := ms.SetStatus(ctx, app.ID, models.StatusApprovedByGN); err != nil {
			return err
		}
		if _, err := ms.Append(ctx, models.AuditRecord{ApplicationID: app.ID, Status: models.StatusApprovedByGN}); err != nil {
			return err
		}
		return assert.AnError
	})
	require.Error(t, err)

	// Both writes undone.
	got, err := ms.GetByID(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSubmitted, got.CurrentStatus)

	trail, err := ms.ListByApplication(ctx, app.ID)
	require.NoError(t, err)
	assert.Empty(t, trail)
}

func TestMemoryStore_RunInTx_Commit(t *testing.T) {
	ms := NewMemoryStore()
	ctx := context.Background()

	app, err := ms.Insert(ctx, models.Application{CurrentStatus: models.StatusSubmitted})
	require.NoError(t, err)

	err = ms.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := ms.SetStatus(ctx, app.ID, models.StatusApprovedByGN); err != nil {
			return err
		}
		_, err := ms.Append(ctx, models.AuditRecord{ApplicationID: app.ID, Status: models.StatusApprovedByGN})
		return err
	})
	require.NoError(t, err)

	got, err := ms.GetByID(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApprovedByGN, got.CurrentStatus)

	trail, err := ms.ListByApplication(ctx, app.ID)
	require.NoError(t, err)
	assert.Len(t, trail, 1)
}

func TestMemoryStore_ListByApplication_Order(t *testing.T) {
	ms := NewMemoryStore()
	ctx := context.Background()

	for _, status := range []models.ApplicationStatus{
		models.StatusApprovedByGN, models.StatusOnHoldByDS, models.StatusSentToDRP,
	} {
		_, err := ms.Append(ctx, models.AuditRecord{ApplicationID: "app-1", Status: status})
		require.NoError(t, err)
	}
	_, err := ms.Append(ctx, models.AuditRecord{ApplicationID: "app-2", Status: models.StatusCompleted})
	require.NoError(t, err)

	trail, err := ms.ListByApplication(ctx, "app-1")
	require.NoError(t, err)
	require.Len(t, trail, 3)
	assert.Equal(t, models.StatusSentToDRP, trail[0].Status)
	assert.Equal(t, models.StatusOnHoldByDS, trail[1].Status)
	assert.Equal(t, models.StatusApprovedByGN, trail[2].Status)
}

func TestMemoryStore_GetSubmitter(t *testing.T) {
	ms := NewMemoryStore()
	ctx := context.Background()

	ms.PutUser(models.User{ID: "u-1", FirstName: "Nimal", Email: "nimal@example.lk", Role: models.RoleCitizen})

	u, err := ms.GetSubmitter(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, "Nimal", u.FirstName)

	_, err = ms.GetSubmitter(ctx, "u-2")
	assert.True(t, cerrors.IsNotFound(err))
}

func TestMemoryStore_Append_ActorJoin(t *testing.T) {
	ms := NewMemoryStore()
	ctx := context.Background()

	ms.PutUser(models.User{ID: "gn-1", FirstName: "Kamala", Role: models.RoleGN})

	rec, err := ms.Append(ctx, models.AuditRecord{ApplicationID: "app-1", ActorID: "gn-1", Status: models.StatusApprovedByGN})
	require.NoError(t, err)
	require.NotNil(t, rec.Actor)
	assert.Equal(t, "Kamala", rec.Actor.FirstName)
}
