// internal/query/service.go

// Package query serves read-only application views: paginated lists with
// filtering and text search, division-scoped officer worklists, and single
// application detail. It never mutates state; all writes go through the
// lifecycle engine.
package query

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	cerrors "citizen-services/internal/common/errors"
	"citizen-services/internal/common/logger"
	"citizen-services/internal/common/metrics"
	"citizen-services/internal/models"

	"github.com/lib/pq"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Filter narrows a list query. Zero-valued fields are not applied.
type Filter struct {
	Status      models.ApplicationStatus
	Type        models.ApplicationType
	SubmitterID string
	DivisionID  string
	DateFrom    time.Time
	DateTo      time.Time
}

// Page carries normalized pagination parameters.
type Page struct {
	Number int
	Size   int
}

// Normalize clamps the page parameters into their allowed ranges.
func (p Page) Normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size < 1 {
		p.Size = defaultPageSize
	}
	if p.Size > maxPageSize {
		p.Size = maxPageSize
	}
	return p
}

// Result is one page of application views plus the unpaginated total.
type Result struct {
	Applications []models.ApplicationView `json:"applications"`
	Total        int                      `json:"total"`
	Page         int                      `json:"page"`
	PageSize     int                      `json:"pageSize"`
}

// Service answers application read queries against Postgres.
type Service struct {
	db     *sql.DB
	logger logger.Logger
}

func NewService(db *sql.DB, log logger.Logger) *Service {
	return &Service{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "query-service"}),
	}
}

// List returns one page of applications matching the filter, newest first.
// search matches case-insensitively against the submitter's first name,
// last name and email.
func (s *Service) List(ctx context.Context, filter Filter, page Page, search string) (Result, error) {
	return s.list(ctx, filter, page, search, "all")
}

// ListByDivision returns the officer worklist: applications whose submitter
// belongs to the given division. divisionID must be non-empty; a blank
// division would silently widen the scope to everything.
func (s *Service) ListByDivision(ctx context.Context, divisionID string, filter Filter, page Page, search string) (Result, error) {
	if divisionID == "" {
		return Result{}, cerrors.NewValidation("divisionId is required")
	}
	filter.DivisionID = divisionID
	return s.list(ctx, filter, page, search, "division")
}

func (s *Service) list(ctx context.Context, filter Filter, page Page, search, scope string) (Result, error) {
	page = page.Normalize()
	started := time.Now()

	where, args := buildWhere(filter, search)

	var total int
	countQuery := `
		SELECT COUNT(*)
		FROM applications a
		JOIN users u ON u.id = a.submitter_id` + where
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return Result{}, cerrors.NewTransientStorage("count applications", err)
	}

	listQuery := fmt.Sprintf(`
		SELECT a.id, a.submitter_id, a.application_type, a.application_data,
		       a.current_status, a.created_at, a.updated_at,
		       u.id, u.first_name, u.last_name, u.email,
		       COALESCE(u.phone, ''), u.role, COALESCE(u.division_id, '')
		FROM applications a
		JOIN users u ON u.id = a.submitter_id%s
		ORDER BY a.created_at DESC, a.id DESC
		LIMIT $%d OFFSET $%d`,
		where, len(args)+1, len(args)+2)
	args = append(args, page.Size, (page.Number-1)*page.Size)

	rows, err := s.db.QueryContext(ctx, listQuery, args...)
	if err != nil {
		return Result{}, cerrors.NewTransientStorage("list applications", err)
	}
	defer rows.Close()

	var (
		views []models.ApplicationView
		ids   []string
	)
	for rows.Next() {
		view, err := scanView(rows)
		if err != nil {
			return Result{}, err
		}
		views = append(views, view)
		ids = append(ids, view.ID)
	}
	if err := rows.Err(); err != nil {
		return Result{}, cerrors.NewTransientStorage("iterate applications", err)
	}

	if err := s.attachFiles(ctx, views, ids); err != nil {
		return Result{}, err
	}

	metrics.QueryDuration.WithLabelValues(scope).Observe(time.Since(started).Seconds())

	return Result{
		Applications: views,
		Total:        total,
		Page:         page.Number,
		PageSize:     page.Size,
	}, nil
}

// GetByID returns the detail view of one application with its submitter
// and attachments.
func (s *Service) GetByID(ctx context.Context, id string) (models.ApplicationView, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT a.id, a.submitter_id, a.application_type, a.application_data,
		       a.current_status, a.created_at, a.updated_at,
		       u.id, u.first_name, u.last_name, u.email,
		       COALESCE(u.phone, ''), u.role, COALESCE(u.division_id, '')
		FROM applications a
		JOIN users u ON u.id = a.submitter_id
		WHERE a.id = $1`,
		id,
	)

	view, err := scanView(row)
	if err == sql.ErrNoRows {
		return models.ApplicationView{}, cerrors.NewNotFound("application", id)
	}
	if err != nil {
		return models.ApplicationView{}, err
	}

	views := []models.ApplicationView{view}
	if err := s.attachFiles(ctx, views, []string{view.ID}); err != nil {
		return models.ApplicationView{}, err
	}
	return views[0], nil
}

// GetCurrentApplication returns the submitter's most recent application that
// is still moving through the pipeline, or NotFound when none is open.
func (s *Service) GetCurrentApplication(ctx context.Context, submitterID string) (models.ApplicationView, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT a.id, a.submitter_id, a.application_type, a.application_data,
		       a.current_status, a.created_at, a.updated_at,
		       u.id, u.first_name, u.last_name, u.email,
		       COALESCE(u.phone, ''), u.role, COALESCE(u.division_id, '')
		FROM applications a
		JOIN users u ON u.id = a.submitter_id
		WHERE a.submitter_id = $1
		  AND a.current_status NOT IN ($2, $3)
		ORDER BY a.created_at DESC, a.id DESC
		LIMIT 1`,
		submitterID, models.StatusRejectedByGN, models.StatusCompleted,
	)

	view, err := scanView(row)
	if err == sql.ErrNoRows {
		return models.ApplicationView{}, cerrors.NewNotFound("current application for user", submitterID)
	}
	if err != nil {
		return models.ApplicationView{}, err
	}

	views := []models.ApplicationView{view}
	if err := s.attachFiles(ctx, views, []string{view.ID}); err != nil {
		return models.ApplicationView{}, err
	}
	return views[0], nil
}

func buildWhere(filter Filter, search string) (string, []interface{}) {
	var (
		conds []string
		args  []interface{}
	)
	add := func(cond string, val interface{}) {
		args = append(args, val)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.Status != "" {
		add("a.current_status = $%d", filter.Status)
	}
	if filter.Type != "" {
		add("a.application_type = $%d", filter.Type)
	}
	if filter.SubmitterID != "" {
		add("a.submitter_id = $%d", filter.SubmitterID)
	}
	if filter.DivisionID != "" {
		add("u.division_id = $%d", filter.DivisionID)
	}
	if !filter.DateFrom.IsZero() {
		add("a.created_at >= $%d", filter.DateFrom)
	}
	if !filter.DateTo.IsZero() {
		add("a.created_at <= $%d", filter.DateTo)
	}
	if search != "" {
		args = append(args, "%"+search+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf(
			"(u.first_name ILIKE $%d OR u.last_name ILIKE $%d OR u.email ILIKE $%d)", n, n, n))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return "\n\t\tWHERE " + strings.Join(conds, " AND "), args
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanView(r rowScanner) (models.ApplicationView, error) {
	var (
		view    models.ApplicationView
		user    models.User
		payload []byte
	)
	err := r.Scan(
		&view.ID, &view.SubmitterID, &view.Type, &payload,
		&view.CurrentStatus, &view.CreatedAt, &view.UpdatedAt,
		&user.ID, &user.FirstName, &user.LastName, &user.Email,
		&user.Phone, &user.Role, &user.DivisionID,
	)
	if err == sql.ErrNoRows {
		return models.ApplicationView{}, err
	}
	if err != nil {
		return models.ApplicationView{}, cerrors.NewTransientStorage("scan application", err)
	}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &view.Payload); err != nil {
			return models.ApplicationView{}, cerrors.NewTransientStorage("decode application data", err)
		}
	}
	view.Submitter = &user
	view.Attachments = []models.Attachment{}
	return view, nil
}

// attachFiles loads attachment metadata for the page of applications in one
// query and distributes it onto the views.
func (s *Service) attachFiles(ctx context.Context, views []models.ApplicationView, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, application_id, uploaded_by_user_id, attachment_type,
		       file_name, file_url, COALESCE(field_key, ''), created_at
		FROM attachments
		WHERE application_id = ANY($1)
		ORDER BY created_at ASC`,
		pq.Array(ids),
	)
	if err != nil {
		return cerrors.NewTransientStorage("list attachments", err)
	}
	defer rows.Close()

	byApp := make(map[string][]models.Attachment)
	for rows.Next() {
		var att models.Attachment
		if err := rows.Scan(
			&att.ID, &att.ApplicationID, &att.UploadedByID, &att.AttachmentType,
			&att.FileName, &att.FileURL, &att.FieldKey, &att.CreatedAt,
		); err != nil {
			return cerrors.NewTransientStorage("scan attachment", err)
		}
		byApp[att.ApplicationID] = append(byApp[att.ApplicationID], att)
	}
	if err := rows.Err(); err != nil {
		return cerrors.NewTransientStorage("iterate attachments", err)
	}

	for i := range views {
		if atts, ok := byApp[views[i].ID]; ok {
			views[i].Attachments = atts
		}
	}
	return nil
}
