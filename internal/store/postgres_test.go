// internal/store/postgres_test.go
package store

import (
	"context"
	"testing"
	"time"

	cerrors "citizen-services/internal/common/errors"
	"citizen-services/internal/common/logger"
	"citizen-services/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresStore(db, logger.NewTestLogger(t)), mock
}

func appColumns() []string {
	return []string{
		"id", "submitter_id", "application_type", "application_data",
		"current_status", "created_at", "updated_at",
	}
}

func TestPostgresStore_Insert(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO applications").
		WithArgs(sqlmock.AnyArg(), "citizen-1", "NIC_REISSUE", sqlmock.AnyArg(), "SUBMITTED", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	app, err := s.Insert(context.Background(), models.Application{
		SubmitterID:   "citizen-1",
		Type:          models.TypeNICReissue,
		Payload:       map[string]interface{}{"nicNumber": "199012345678", "reason": "LOST"},
		CurrentStatus: models.StatusSubmitted,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, app.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Insert_Conflict(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO applications").
		WillReturnError(&pq.Error{Code: "23505"})

	_, err := s.Insert(context.Background(), models.Application{ID: "app-1"})
	assert.True(t, cerrors.IsConflict(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetByID_NotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM applications").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(appColumns()))

	_, err := s.GetByID(context.Background(), "missing")
	assert.True(t, cerrors.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_RunInTx_Commit(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectBegin()
	// Read inside the transaction takes the row lock.
	mock.ExpectQuery("FOR UPDATE").
		WithArgs("app-1").
		WillReturnRows(sqlmock.NewRows(appColumns()).
			AddRow("app-1", "citizen-1", "NIC_REISSUE", []byte(`{}`), "SUBMITTED", now, now))
	mock.ExpectQuery("UPDATE applications").
		WithArgs("app-1", "APPROVED_BY_GN", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(appColumns()).
			AddRow("app-1", "citizen-1", "NIC_REISSUE", []byte(`{}`), "APPROVED_BY_GN", now, now))
	mock.ExpectExec("INSERT INTO application_status_log").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.RunInTx(context.Background(), func(ctx context.Context) error {
		if _, err := s.GetByID(ctx, "app-1"); err != nil {
			return err
		}
		if _, err := s.SetStatus(ctx, "app-1", models.StatusApprovedByGN); err != nil {
			return err
		}
		_, err := s.Append(ctx, models.AuditRecord{
			ApplicationID: "app-1",
			ActorID:       "gn-1",
			Status:        models.StatusApprovedByGN,
		})
		return err
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_RunInTx_RollbackOnError(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE applications").
		WithArgs("app-1", "APPROVED_BY_GN", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(appColumns()).
			AddRow("app-1", "citizen-1", "NIC_REISSUE", []byte(`{}`), "APPROVED_BY_GN", now, now))
	mock.ExpectExec("INSERT INTO application_status_log").
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := s.RunInTx(context.Background(), func(ctx context.Context) error {
		if _, err := s.SetStatus(ctx, "app-1", models.StatusApprovedByGN); err != nil {
			return err
		}
		_, err := s.Append(ctx, models.AuditRecord{ApplicationID: "app-1", Status: models.StatusApprovedByGN})
		return err
	})
	require.Error(t, err)
	assert.Equal(t, cerrors.ErrCodeTransientStorage, cerrors.CodeOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SetStatus_NotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("UPDATE applications").
		WithArgs("missing", "APPROVED_BY_GN", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(appColumns()))

	_, err := s.SetStatus(context.Background(), "missing", models.StatusApprovedByGN)
	assert.True(t, cerrors.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListByApplication(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now()

	columns := []string{
		"id", "application_id", "actor_user_id", "status", "comment", "created_at",
		"u_id", "u_first_name", "u_last_name", "u_email", "u_role",
	}
	mock.ExpectQuery("FROM application_status_log").
		WithArgs("app-1").
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("log-2", "app-1", "ds-1", "ON_HOLD_BY_DS", "awaiting documents", now,
				"ds-1", "Sunil", "Perera", "sunil@ds.gov.lk", "DS").
			AddRow("log-1", "app-1", "gn-1", "APPROVED_BY_GN", "", now.Add(-time.Hour),
				nil, nil, nil, nil, nil))

	records, err := s.ListByApplication(context.Background(), "app-1")
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "awaiting documents", records[0].Comment)
	require.NotNil(t, records[0].Actor)
	assert.Equal(t, "Sunil", records[0].Actor.FirstName)
	assert.Equal(t, models.RoleDS, records[0].Actor.Role)

	// Actor row pruned from users table still yields the record.
	assert.Nil(t, records[1].Actor)
	assert.Equal(t, "gn-1", records[1].ActorID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetSubmitter(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("FROM users").
		WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "first_name", "last_name", "email", "phone", "role", "division_id"}).
			AddRow("u-1", "Nimal", "Silva", "nimal@example.lk", "+94771234567", "CITIZEN", "DIV-7"))

	u, err := s.GetSubmitter(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Equal(t, "Nimal", u.FirstName)
	assert.Equal(t, "+94771234567", u.Phone)
	assert.Equal(t, "DIV-7", u.DivisionID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
