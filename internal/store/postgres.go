// internal/store/postgres.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	cerrors "citizen-services/internal/common/errors"
	"citizen-services/internal/common/logger"
	"citizen-services/internal/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// PostgresStore implements ApplicationStore, AuditStore and TxManager on a
// single database so both writes of a transition share one transaction.
type PostgresStore struct {
	db     *sql.DB
	logger logger.Logger
}

func NewPostgresStore(db *sql.DB, log logger.Logger) *PostgresStore {
	return &PostgresStore{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "postgres-store"}),
	}
}

type txKey struct{}

// RunInTx executes fn inside a read-committed transaction. The transaction
// handle travels in the context so store methods called from fn join it.
func (s *PostgresStore) RunInTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return cerrors.NewTransientStorage("begin tx", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if err != nil {
			_ = tx.Rollback()
		}
	}()

	ctx = context.WithValue(ctx, txKey{}, tx)

	if err = fn(ctx); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return cerrors.NewTransientStorage("commit tx", err)
	}
	return nil
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func (s *PostgresStore) executor(ctx context.Context) (queryer, bool) {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx, true
	}
	return s.db, false
}

func (s *PostgresStore) Insert(ctx context.Context, app models.Application) (models.Application, error) {
	if app.ID == "" {
		app.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	app.CreatedAt = now
	app.UpdatedAt = now

	payload, err := json.Marshal(app.Payload)
	if err != nil {
		return models.Application{}, cerrors.NewValidation("application data is not serializable")
	}

	q, _ := s.executor(ctx)
	_, err = q.ExecContext(ctx, `
		INSERT INTO applications (
			id, submitter_id, application_type, application_data,
			current_status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $6)`,
		app.ID, app.SubmitterID, app.Type, payload, app.CurrentStatus, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Application{}, cerrors.NewConflict("application already exists: " + app.ID)
		}
		return models.Application{}, cerrors.NewTransientStorage("insert application", err)
	}

	return app, nil
}

// GetByID reads the current application row. Inside a transition transaction
// the read takes the row lock, serializing concurrent transitions on the
// same application.
func (s *PostgresStore) GetByID(ctx context.Context, id string) (models.Application, error) {
	q, inTx := s.executor(ctx)

	query := `
		SELECT id, submitter_id, application_type, application_data,
		       current_status, created_at, updated_at
		FROM applications
		WHERE id = $1`
	if inTx {
		query += ` FOR UPDATE`
	}

	var (
		app     models.Application
		payload []byte
	)
	err := q.QueryRowContext(ctx, query, id).Scan(
		&app.ID, &app.SubmitterID, &app.Type, &payload,
		&app.CurrentStatus, &app.CreatedAt, &app.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return models.Application{}, cerrors.NewNotFound("application", id)
	}
	if err != nil {
		return models.Application{}, cerrors.NewTransientStorage("get application", err)
	}

	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &app.Payload); err != nil {
			return models.Application{}, cerrors.NewTransientStorage("decode application data", err)
		}
	}
	return app, nil
}

func (s *PostgresStore) SetStatus(ctx context.Context, id string, status models.ApplicationStatus) (models.Application, error) {
	q, _ := s.executor(ctx)

	var (
		app     models.Application
		payload []byte
	)
	err := q.QueryRowContext(ctx, `
		UPDATE applications
		SET current_status = $2, updated_at = $3
		WHERE id = $1
		RETURNING id, submitter_id, application_type, application_data,
		          current_status, created_at, updated_at`,
		id, status, time.Now().UTC(),
	).Scan(
		&app.ID, &app.SubmitterID, &app.Type, &payload,
		&app.CurrentStatus, &app.CreatedAt, &app.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return models.Application{}, cerrors.NewNotFound("application", id)
	}
	if err != nil {
		return models.Application{}, cerrors.NewTransientStorage("set status", err)
	}

	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &app.Payload); err != nil {
			return models.Application{}, cerrors.NewTransientStorage("decode application data", err)
		}
	}
	return app, nil
}

func (s *PostgresStore) Append(ctx context.Context, rec models.AuditRecord) (models.AuditRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	rec.CreatedAt = time.Now().UTC()

	q, _ := s.executor(ctx)
	_, err := q.ExecContext(ctx, `
		INSERT INTO application_status_log (
			id, application_id, actor_user_id, status, comment, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.ID, rec.ApplicationID, rec.ActorID, rec.Status,
		nullString(rec.Comment), rec.CreatedAt,
	)
	if err != nil {
		return models.AuditRecord{}, cerrors.NewTransientStorage("append audit record", err)
	}
	return rec, nil
}

func (s *PostgresStore) ListByApplication(ctx context.Context, applicationID string) ([]models.AuditRecord, error) {
	q, _ := s.executor(ctx)

	rows, err := q.QueryContext(ctx, `
		SELECT l.id, l.application_id, l.actor_user_id, l.status,
		       COALESCE(l.comment, ''), l.created_at,
		       u.id, u.first_name, u.last_name, u.email, u.role
		FROM application_status_log l
		LEFT JOIN users u ON u.id = l.actor_user_id
		WHERE l.application_id = $1
		ORDER BY l.created_at DESC, l.seq DESC`,
		applicationID,
	)
	if err != nil {
		return nil, cerrors.NewTransientStorage("list audit records", err)
	}
	defer rows.Close()

	var records []models.AuditRecord
	for rows.Next() {
		var (
			rec   models.AuditRecord
			actor models.User
			aID   sql.NullString
			aFN   sql.NullString
			aLN   sql.NullString
			aEm   sql.NullString
			aRole sql.NullString
		)
		if err := rows.Scan(
			&rec.ID, &rec.ApplicationID, &rec.ActorID, &rec.Status,
			&rec.Comment, &rec.CreatedAt,
			&aID, &aFN, &aLN, &aEm, &aRole,
		); err != nil {
			return nil, cerrors.NewTransientStorage("scan audit record", err)
		}
		if aID.Valid {
			actor.ID = aID.String
			actor.FirstName = aFN.String
			actor.LastName = aLN.String
			actor.Email = aEm.String
			actor.Role = models.Role(aRole.String)
			rec.Actor = &actor
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, cerrors.NewTransientStorage("iterate audit records", err)
	}
	return records, nil
}

// GetSubmitter resolves the owning user of an application, used by the
// engine to address notifications.
func (s *PostgresStore) GetSubmitter(ctx context.Context, userID string) (models.User, error) {
	q, _ := s.executor(ctx)

	var u models.User
	var phone, division sql.NullString
	err := q.QueryRowContext(ctx, `
		SELECT id, first_name, last_name, email, phone, role, division_id
		FROM users
		WHERE id = $1`,
		userID,
	).Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &phone, &u.Role, &division)
	if err == sql.ErrNoRows {
		return models.User{}, cerrors.NewNotFound("user", userID)
	}
	if err != nil {
		return models.User{}, cerrors.NewTransientStorage("get user", err)
	}
	u.Phone = phone.String
	u.DivisionID = division.String
	return u, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
