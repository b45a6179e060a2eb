// internal/query/service_test.go
package query

import (
	"context"
	"testing"
	"time"

	cerrors "citizen-services/internal/common/errors"
	"citizen-services/internal/common/logger"
	"citizen-services/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewService(db, logger.NewTestLogger(t)), mock
}

func viewColumns() []string {
	return []string{
		"id", "submitter_id", "application_type", "application_data",
		"current_status", "created_at", "updated_at",
		"u_id", "u_first_name", "u_last_name", "u_email", "u_phone", "u_role", "u_division_id",
	}
}

func attachmentColumns() []string {
	return []string{
		"id", "application_id", "uploaded_by_user_id", "attachment_type",
		"file_name", "file_url", "field_key", "created_at",
	}
}

func viewRow(rows *sqlmock.Rows, id, submitterID, status string, createdAt time.Time) *sqlmock.Rows {
	return rows.AddRow(
		id, submitterID, "NIC_REISSUE", []byte(`{"nicNumber":"199012345678"}`),
		status, createdAt, createdAt,
		submitterID, "Nimal", "Silva", "nimal@example.lk", "+94771234567", "CITIZEN", "DIV-7",
	)
}

func TestService_List(t *testing.T) {
	s, mock := newMockService(t)
	now := time.Now()

	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))
	mock.ExpectQuery("FROM applications a").
		WithArgs(20, 0).
		WillReturnRows(viewRow(viewRow(sqlmock.NewRows(viewColumns()),
			"app-2", "u-1", "APPROVED_BY_GN", now),
			"app-1", "u-2", "SUBMITTED", now.Add(-time.Hour)))
	mock.ExpectQuery("FROM attachments").
		WillReturnRows(sqlmock.NewRows(attachmentColumns()).
			AddRow("att-1", "app-1", "u-2", "NIC_COPY", "nic.pdf", "https://files/nic.pdf", "nicCopy", now))

	result, err := s.List(context.Background(), Filter{}, Page{}, "")
	require.NoError(t, err)

	assert.Equal(t, 42, result.Total)
	assert.Equal(t, 1, result.Page)
	assert.Equal(t, 20, result.PageSize)
	require.Len(t, result.Applications, 2)

	assert.Equal(t, "app-2", result.Applications[0].ID)
	require.NotNil(t, result.Applications[0].Submitter)
	assert.Equal(t, "Nimal", result.Applications[0].Submitter.FirstName)
	assert.Empty(t, result.Applications[0].Attachments)

	require.Len(t, result.Applications[1].Attachments, 1)
	assert.Equal(t, "nic.pdf", result.Applications[1].Attachments[0].FileName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_List_FiltersAndSearch(t *testing.T) {
	s, mock := newMockService(t)

	mock.ExpectQuery("SELECT COUNT").
		WithArgs("SUBMITTED", "DIV-7", "%silva%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery("ILIKE").
		WithArgs("SUBMITTED", "DIV-7", "%silva%", 10, 10).
		WillReturnRows(sqlmock.NewRows(viewColumns()))

	result, err := s.List(context.Background(),
		Filter{Status: models.StatusSubmitted, DivisionID: "DIV-7"},
		Page{Number: 2, Size: 10},
		"silva",
	)
	require.NoError(t, err)
	assert.Zero(t, result.Total)
	assert.Empty(t, result.Applications)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_ListByDivision(t *testing.T) {
	s, mock := newMockService(t)
	now := time.Now()

	mock.ExpectQuery("SELECT COUNT").
		WithArgs("DIV-7").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("u.division_id").
		WithArgs("DIV-7", 20, 0).
		WillReturnRows(viewRow(sqlmock.NewRows(viewColumns()), "app-1", "u-1", "SUBMITTED", now))
	mock.ExpectQuery("FROM attachments").
		WillReturnRows(sqlmock.NewRows(attachmentColumns()))

	result, err := s.ListByDivision(context.Background(), "DIV-7", Filter{}, Page{}, "")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_ListByDivision_RequiresDivision(t *testing.T) {
	s, _ := newMockService(t)

	_, err := s.ListByDivision(context.Background(), "", Filter{}, Page{}, "")
	assert.True(t, cerrors.IsValidation(err))
}

func TestService_GetByID(t *testing.T) {
	s, mock := newMockService(t)
	now := time.Now()

	mock.ExpectQuery("WHERE a.id").
		WithArgs("app-1").
		WillReturnRows(viewRow(sqlmock.NewRows(viewColumns()), "app-1", "u-1", "SENT_TO_DRP", now))
	mock.ExpectQuery("FROM attachments").
		WillReturnRows(sqlmock.NewRows(attachmentColumns()).
			AddRow("att-1", "app-1", "u-1", "POLICE_REPORT", "report.pdf", "https://files/report.pdf", "", now))

	view, err := s.GetByID(context.Background(), "app-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusSentToDRP, view.CurrentStatus)
	require.Len(t, view.Attachments, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_GetByID_NotFound(t *testing.T) {
	s, mock := newMockService(t)

	mock.ExpectQuery("WHERE a.id").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(viewColumns()))

	_, err := s.GetByID(context.Background(), "missing")
	assert.True(t, cerrors.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_GetCurrentApplication(t *testing.T) {
	s, mock := newMockService(t)
	now := time.Now()

	mock.ExpectQuery("current_status NOT IN").
		WithArgs("u-1", "REJECTED_BY_GN", "COMPLETED").
		WillReturnRows(viewRow(sqlmock.NewRows(viewColumns()), "app-3", "u-1", "ON_HOLD_BY_DS", now))
	mock.ExpectQuery("FROM attachments").
		WillReturnRows(sqlmock.NewRows(attachmentColumns()))

	view, err := s.GetCurrentApplication(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Equal(t, "app-3", view.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_GetCurrentApplication_NoneOpen(t *testing.T) {
	s, mock := newMockService(t)

	mock.ExpectQuery("current_status NOT IN").
		WithArgs("u-1", "REJECTED_BY_GN", "COMPLETED").
		WillReturnRows(sqlmock.NewRows(viewColumns()))

	_, err := s.GetCurrentApplication(context.Background(), "u-1")
	assert.True(t, cerrors.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPage_Normalize(t *testing.T) {
	tests := []struct {
		name string
		in   Page
		want Page
	}{
		{"defaults", Page{}, Page{Number: 1, Size: 20}},
		{"negative", Page{Number: -3, Size: -1}, Page{Number: 1, Size: 20}},
		{"clamped", Page{Number: 2, Size: 500}, Page{Number: 2, Size: 100}},
		{"unchanged", Page{Number: 4, Size: 50}, Page{Number: 4, Size: 50}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.Normalize())
		})
	}
}
