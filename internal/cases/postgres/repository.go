// Package postgres provides the PostgreSQL implementation of the case
// workflow repository.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/hrops/casetrack/internal/cases"
	"github.com/hrops/casetrack/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository implements cases.Repository using PostgreSQL. Employees,
// witnesses and approver steps live in jsonb columns; policy references in
// a text array. Mutations are compare-and-set on the version column.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// CreateIncident creates a new incident in the database.
func (r *Repository) CreateIncident(ctx context.Context, incident *domain.Incident) error {
	query := `
		INSERT INTO incidents (
			id, category, description, occurred_at, reported_by, reporter_name,
			business_unit, employees, witnesses, status, handler_id,
			stage_override, manual_stage
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING version, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		incident.ID,
		incident.Category,
		incident.Description,
		incident.OccurredAt,
		incident.ReportedBy,
		incident.ReporterName,
		incident.BusinessUnit,
		incident.Employees,
		incident.Witnesses,
		incident.Status,
		incident.HandlerID,
		incident.StageOverride,
		incident.ManualStage,
	).Scan(&incident.Version, &incident.CreatedAt, &incident.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create incident: %w", err)
	}
	return nil
}

const incidentColumns = `
	id, category, description, occurred_at, reported_by, reporter_name,
	business_unit, employees, witnesses, status, handler_id,
	stage_override, manual_stage, version, created_at, updated_at
`

func scanIncident(row pgx.Row) (*domain.Incident, error) {
	var incident domain.Incident
	err := row.Scan(
		&incident.ID,
		&incident.Category,
		&incident.Description,
		&incident.OccurredAt,
		&incident.ReportedBy,
		&incident.ReporterName,
		&incident.BusinessUnit,
		&incident.Employees,
		&incident.Witnesses,
		&incident.Status,
		&incident.HandlerID,
		&incident.StageOverride,
		&incident.ManualStage,
		&incident.Version,
		&incident.CreatedAt,
		&incident.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &incident, nil
}

// GetIncident retrieves an incident by ID, including its notice ids.
func (r *Repository) GetIncident(ctx context.Context, id string) (*domain.Incident, error) {
	query := `SELECT ` + incidentColumns + ` FROM incidents WHERE id = $1`
	incident, err := scanIncident(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cases.ErrIncidentNotFound
		}
		return nil, fmt.Errorf("get incident: %w", err)
	}

	noticeIDs, err := r.getIncidentNoticeIDs(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get incident notices: %w", err)
	}
	incident.NoticeIDs = noticeIDs

	return incident, nil
}

// UpdateIncident updates an incident, compare-and-set on version.
func (r *Repository) UpdateIncident(ctx context.Context, incident *domain.Incident) error {
	query := `
		UPDATE incidents
		SET category = $2, description = $3, occurred_at = $4,
		    business_unit = $5, employees = $6, witnesses = $7, status = $8,
		    handler_id = $9, stage_override = $10, manual_stage = $11,
		    version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $12
		RETURNING version, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		incident.ID,
		incident.Category,
		incident.Description,
		incident.OccurredAt,
		incident.BusinessUnit,
		incident.Employees,
		incident.Witnesses,
		incident.Status,
		incident.HandlerID,
		incident.StageOverride,
		incident.ManualStage,
		incident.Version,
	).Scan(&incident.Version, &incident.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return r.staleWriteError(ctx, "incidents", incident.ID, cases.ErrIncidentNotFound)
		}
		return fmt.Errorf("update incident: %w", err)
	}
	return nil
}

// ListIncidents retrieves incidents with optional filters, newest first.
func (r *Repository) ListIncidents(ctx context.Context, filters cases.IncidentFilters) ([]*domain.Incident, error) {
	query := `SELECT ` + incidentColumns + ` FROM incidents WHERE 1=1`
	args := []interface{}{}
	argNum := 1

	if filters.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argNum)
		args = append(args, *filters.Status)
		argNum++
	}
	if filters.HandlerID != nil {
		query += fmt.Sprintf(" AND handler_id = $%d", argNum)
		args = append(args, *filters.HandlerID)
		argNum++
	}
	if filters.BusinessUnit != nil {
		query += fmt.Sprintf(" AND business_unit = $%d", argNum)
		args = append(args, *filters.BusinessUnit)
		argNum++
	}
	if filters.From != nil {
		query += fmt.Sprintf(" AND occurred_at >= $%d", argNum)
		args = append(args, *filters.From)
		argNum++
	}
	if filters.To != nil {
		query += fmt.Sprintf(" AND occurred_at <= $%d", argNum)
		args = append(args, *filters.To)
		argNum++
	}

	query += " ORDER BY created_at DESC"

	if filters.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argNum)
		args = append(args, filters.Limit)
		argNum++
	}
	if filters.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argNum)
		args = append(args, filters.Offset)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}
	defer rows.Close()

	incidents := make([]*domain.Incident, 0)
	for rows.Next() {
		incident, err := scanIncident(rows)
		if err != nil {
			return nil, fmt.Errorf("scan incident: %w", err)
		}
		incidents = append(incidents, incident)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, incident := range incidents {
		noticeIDs, err := r.getIncidentNoticeIDs(ctx, incident.ID)
		if err != nil {
			return nil, fmt.Errorf("get incident notices: %w", err)
		}
		incident.NoticeIDs = noticeIDs
	}

	return incidents, nil
}

func (r *Repository) getIncidentNoticeIDs(ctx context.Context, incidentID string) ([]string, error) {
	query := `SELECT id FROM notices WHERE incident_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query, incidentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AppendMessage adds a message to an incident's thread.
func (r *Repository) AppendMessage(ctx context.Context, msg *domain.Message) error {
	query := `
		INSERT INTO incident_messages (id, incident_id, author_id, author_name, body)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`
	err := r.db.QueryRow(ctx, query,
		msg.ID,
		msg.IncidentID,
		msg.AuthorID,
		msg.AuthorName,
		msg.Body,
	).Scan(&msg.CreatedAt)

	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

// ListMessages retrieves an incident's thread in chronological order.
func (r *Repository) ListMessages(ctx context.Context, incidentID string) ([]*domain.Message, error) {
	query := `
		SELECT id, incident_id, author_id, author_name, body, created_at
		FROM incident_messages
		WHERE incident_id = $1
		ORDER BY created_at ASC
	`
	rows, err := r.db.Query(ctx, query, incidentID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	msgs := make([]*domain.Message, 0)
	for rows.Next() {
		var msg domain.Message
		err := rows.Scan(
			&msg.ID,
			&msg.IncidentID,
			&msg.AuthorID,
			&msg.AuthorName,
			&msg.Body,
			&msg.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msgs = append(msgs, &msg)
	}
	return msgs, rows.Err()
}

// CreateNotice creates a new notice in the database.
func (r *Repository) CreateNotice(ctx context.Context, notice *domain.Notice) error {
	query := `
		INSERT INTO notices (
			id, incident_id, employee, status, allegation, policy_refs,
			evidence_link, issued_by, issue_date, response_deadline,
			response, response_at, steps
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING version, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		notice.ID,
		notice.IncidentID,
		notice.Employee,
		notice.Status,
		notice.Allegation,
		notice.PolicyRefs,
		notice.EvidenceLink,
		notice.IssuedBy,
		notice.IssueDate,
		notice.ResponseDeadline,
		notice.Response,
		notice.ResponseAt,
		notice.Steps,
	).Scan(&notice.Version, &notice.CreatedAt, &notice.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create notice: %w", err)
	}
	return nil
}

const noticeColumns = `
	id, incident_id, employee, status, allegation, policy_refs,
	evidence_link, issued_by, issue_date, response_deadline,
	response, response_at, steps, version, created_at, updated_at
`

func scanNotice(row pgx.Row) (*domain.Notice, error) {
	var notice domain.Notice
	err := row.Scan(
		&notice.ID,
		&notice.IncidentID,
		&notice.Employee,
		&notice.Status,
		&notice.Allegation,
		&notice.PolicyRefs,
		&notice.EvidenceLink,
		&notice.IssuedBy,
		&notice.IssueDate,
		&notice.ResponseDeadline,
		&notice.Response,
		&notice.ResponseAt,
		&notice.Steps,
		&notice.Version,
		&notice.CreatedAt,
		&notice.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &notice, nil
}

// GetNotice retrieves a notice by ID.
func (r *Repository) GetNotice(ctx context.Context, id string) (*domain.Notice, error) {
	query := `SELECT ` + noticeColumns + ` FROM notices WHERE id = $1`
	notice, err := scanNotice(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cases.ErrNoticeNotFound
		}
		return nil, fmt.Errorf("get notice: %w", err)
	}
	return notice, nil
}

// UpdateNotice updates a notice, compare-and-set on version.
func (r *Repository) UpdateNotice(ctx context.Context, notice *domain.Notice) error {
	query := `
		UPDATE notices
		SET status = $2, allegation = $3, policy_refs = $4, evidence_link = $5,
		    issue_date = $6, response_deadline = $7, response = $8,
		    response_at = $9, steps = $10,
		    version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $11
		RETURNING version, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		notice.ID,
		notice.Status,
		notice.Allegation,
		notice.PolicyRefs,
		notice.EvidenceLink,
		notice.IssueDate,
		notice.ResponseDeadline,
		notice.Response,
		notice.ResponseAt,
		notice.Steps,
		notice.Version,
	).Scan(&notice.Version, &notice.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return r.staleWriteError(ctx, "notices", notice.ID, cases.ErrNoticeNotFound)
		}
		return fmt.Errorf("update notice: %w", err)
	}
	return nil
}

// ListNotices retrieves all notices, newest first.
func (r *Repository) ListNotices(ctx context.Context) ([]*domain.Notice, error) {
	return r.listNotices(ctx, `SELECT `+noticeColumns+` FROM notices ORDER BY created_at DESC`)
}

// ListNoticesByIncident retrieves an incident's notices, newest first.
func (r *Repository) ListNoticesByIncident(ctx context.Context, incidentID string) ([]*domain.Notice, error) {
	return r.listNotices(ctx,
		`SELECT `+noticeColumns+` FROM notices WHERE incident_id = $1 ORDER BY created_at DESC`,
		incidentID)
}

func (r *Repository) listNotices(ctx context.Context, query string, args ...any) ([]*domain.Notice, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list notices: %w", err)
	}
	defer rows.Close()

	notices := make([]*domain.Notice, 0)
	for rows.Next() {
		notice, err := scanNotice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notice: %w", err)
		}
		notices = append(notices, notice)
	}
	return notices, rows.Err()
}

// GetOpenNotice retrieves the single non-closed notice for the pair.
func (r *Repository) GetOpenNotice(ctx context.Context, incidentID, employeeID string) (*domain.Notice, error) {
	query := `
		SELECT ` + noticeColumns + `
		FROM notices
		WHERE incident_id = $1 AND employee->>'id' = $2 AND status != 'closed'
		ORDER BY created_at DESC
		LIMIT 1
	`
	notice, err := scanNotice(r.db.QueryRow(ctx, query, incidentID, employeeID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cases.ErrNoticeNotFound
		}
		return nil, fmt.Errorf("get open notice: %w", err)
	}
	return notice, nil
}

// CreateResolution creates a new resolution in the database.
func (r *Repository) CreateResolution(ctx context.Context, resolution *domain.Resolution) error {
	query := `
		INSERT INTO resolutions (
			id, incident_id, employee_id, decision, decided_by, decider_name,
			signature_ref, decision_date, status, steps
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING version, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		resolution.ID,
		resolution.IncidentID,
		resolution.EmployeeID,
		resolution.Decision,
		resolution.DecidedBy,
		resolution.DeciderName,
		resolution.SignatureRef,
		resolution.DecisionDate,
		resolution.Status,
		resolution.Steps,
	).Scan(&resolution.Version, &resolution.CreatedAt, &resolution.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create resolution: %w", err)
	}
	return nil
}

const resolutionColumns = `
	id, incident_id, employee_id, decision, decided_by, decider_name,
	signature_ref, decision_date, status, steps, version, created_at, updated_at
`

func scanResolution(row pgx.Row) (*domain.Resolution, error) {
	var resolution domain.Resolution
	err := row.Scan(
		&resolution.ID,
		&resolution.IncidentID,
		&resolution.EmployeeID,
		&resolution.Decision,
		&resolution.DecidedBy,
		&resolution.DeciderName,
		&resolution.SignatureRef,
		&resolution.DecisionDate,
		&resolution.Status,
		&resolution.Steps,
		&resolution.Version,
		&resolution.CreatedAt,
		&resolution.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &resolution, nil
}

// GetResolution retrieves a resolution by ID.
func (r *Repository) GetResolution(ctx context.Context, id string) (*domain.Resolution, error) {
	query := `SELECT ` + resolutionColumns + ` FROM resolutions WHERE id = $1`
	resolution, err := scanResolution(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cases.ErrResolutionNotFound
		}
		return nil, fmt.Errorf("get resolution: %w", err)
	}
	return resolution, nil
}

// UpdateResolution updates a resolution, compare-and-set on version.
func (r *Repository) UpdateResolution(ctx context.Context, resolution *domain.Resolution) error {
	query := `
		UPDATE resolutions
		SET decision = $2, signature_ref = $3, decision_date = $4,
		    status = $5, steps = $6,
		    version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $7
		RETURNING version, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		resolution.ID,
		resolution.Decision,
		resolution.SignatureRef,
		resolution.DecisionDate,
		resolution.Status,
		resolution.Steps,
		resolution.Version,
	).Scan(&resolution.Version, &resolution.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return r.staleWriteError(ctx, "resolutions", resolution.ID, cases.ErrResolutionNotFound)
		}
		return fmt.Errorf("update resolution: %w", err)
	}
	return nil
}

// ListResolutions retrieves all resolutions, newest first.
func (r *Repository) ListResolutions(ctx context.Context) ([]*domain.Resolution, error) {
	return r.listResolutions(ctx, `SELECT `+resolutionColumns+` FROM resolutions ORDER BY created_at DESC`)
}

// ListResolutionsByIncident retrieves an incident's resolutions, newest first.
func (r *Repository) ListResolutionsByIncident(ctx context.Context, incidentID string) ([]*domain.Resolution, error) {
	return r.listResolutions(ctx,
		`SELECT `+resolutionColumns+` FROM resolutions WHERE incident_id = $1 ORDER BY created_at DESC`,
		incidentID)
}

func (r *Repository) listResolutions(ctx context.Context, query string, args ...any) ([]*domain.Resolution, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list resolutions: %w", err)
	}
	defer rows.Close()

	resolutions := make([]*domain.Resolution, 0)
	for rows.Next() {
		resolution, err := scanResolution(rows)
		if err != nil {
			return nil, fmt.Errorf("scan resolution: %w", err)
		}
		resolutions = append(resolutions, resolution)
	}
	return resolutions, rows.Err()
}

// GetActiveResolution retrieves the non-rejected resolution for the pair.
func (r *Repository) GetActiveResolution(ctx context.Context, incidentID, employeeID string) (*domain.Resolution, error) {
	query := `
		SELECT ` + resolutionColumns + `
		FROM resolutions
		WHERE incident_id = $1 AND employee_id = $2 AND status != 'rejected'
		ORDER BY created_at DESC
		LIMIT 1
	`
	resolution, err := scanResolution(r.db.QueryRow(ctx, query, incidentID, employeeID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cases.ErrResolutionNotFound
		}
		return nil, fmt.Errorf("get active resolution: %w", err)
	}
	return resolution, nil
}

// staleWriteError distinguishes a lost update from a missing row after a
// versioned UPDATE matched nothing.
func (r *Repository) staleWriteError(ctx context.Context, table, id string, notFound error) error {
	query := fmt.Sprintf(`SELECT EXISTS(SELECT 1 FROM %s WHERE id = $1)`, table)
	var exists bool
	if err := r.db.QueryRow(ctx, query, id).Scan(&exists); err != nil {
		return fmt.Errorf("check row existence: %w", err)
	}
	if exists {
		return cases.ErrVersionConflict
	}
	return notFound
}
