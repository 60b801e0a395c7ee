package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/citypd/platform/internal/case/domain"
	"github.com/citypd/platform/internal/shared/errors"
	"github.com/citypd/platform/internal/shared/metrics"
	"github.com/citypd/platform/internal/shared/types"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository implements domain.Repository using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const caseColumns = `id, title, description, source, status, severity,
			created_by, assigned_detective, scene_reported_at,
			version, created_at, updated_at`

// Save saves a new case
func (r *PostgresRepository) Save(ctx context.Context, c *domain.Case) error {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("insert_case", time.Since(start)) }()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback(ctx)

	if c.Version == 0 {
		c.Version = 1
	}

	query := `
		INSERT INTO cases.cases (` + caseColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err = tx.Exec(ctx, query,
		c.ID, c.Title, c.Description, c.Source, c.Status, c.Severity,
		c.CreatedBy, c.AssignedDetective, c.SceneReportedAt,
		c.Version, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return errors.Conflict("case already exists")
		}
		return errors.Wrap(err, "failed to save case")
	}

	if err := r.saveChildren(ctx, tx, c); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}
	return nil
}

// FindByID loads a case with its complete file
func (r *PostgresRepository) FindByID(ctx context.Context, id types.ID) (*domain.Case, error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("select_case", time.Since(start)) }()

	return r.load(ctx, r.pool, id, false)
}

// Update locks the case row, applies fn and writes everything back in one
// transaction. The version is bumped on every successful update.
func (r *PostgresRepository) Update(ctx context.Context, id types.ID, fn func(c *domain.Case) error) (*domain.Case, error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("update_case", time.Since(start)) }()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback(ctx)

	c, err := r.load(ctx, tx, id, true)
	if err != nil {
		return nil, err
	}

	if err := fn(c); err != nil {
		return nil, err
	}

	c.Version++
	query := `
		UPDATE cases.cases SET
			title = $2, description = $3, status = $4, severity = $5,
			assigned_detective = $6, version = $7, updated_at = $8
		WHERE id = $1`

	result, err := tx.Exec(ctx, query,
		c.ID, c.Title, c.Description, c.Status, c.Severity,
		c.AssignedDetective, c.Version, c.UpdatedAt,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to update case")
	}
	if result.RowsAffected() == 0 {
		return nil, errors.NotFound("case", id.String())
	}

	if err := r.saveChildren(ctx, tx, c); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "failed to commit transaction")
	}
	return c, nil
}

// List lists cases with filters
func (r *PostgresRepository) List(ctx context.Context, filter domain.ListFilter) ([]domain.Case, int, error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("list_cases", time.Since(start)) }()

	var conditions []string
	var args []interface{}
	argNum := 1

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argNum))
		args = append(args, *filter.Status)
		argNum++
	}

	if filter.Source != nil {
		conditions = append(conditions, fmt.Sprintf("source = $%d", argNum))
		args = append(args, *filter.Source)
		argNum++
	}

	if filter.Severity != nil {
		conditions = append(conditions, fmt.Sprintf("severity = $%d", argNum))
		args = append(args, *filter.Severity)
		argNum++
	}

	if !filter.Detective.IsZero() {
		conditions = append(conditions, fmt.Sprintf("assigned_detective = $%d", argNum))
		args = append(args, filter.Detective)
		argNum++
	}

	if !filter.Participant.IsZero() {
		conditions = append(conditions, fmt.Sprintf(
			"(created_by = $%d OR EXISTS (SELECT 1 FROM cases.complainants cc WHERE cc.case_id = cases.cases.id AND cc.user_id = $%d))",
			argNum, argNum))
		args = append(args, filter.Participant)
		argNum++
	}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(title ILIKE $%d OR description ILIKE $%d)", argNum, argNum))
		args = append(args, "%"+filter.Search+"%")
		argNum++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM cases.cases %s", whereClause)
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, "failed to count cases")
	}

	limit := 50
	if filter.Limit > 0 && filter.Limit <= 100 {
		limit = filter.Limit
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM cases.cases
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, caseColumns, whereClause, argNum, argNum+1)

	args = append(args, limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to list cases")
	}
	defer rows.Close()

	cases := []domain.Case{}
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, 0, err
		}
		cases = append(cases, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.Wrap(err, "failed to list cases")
	}

	return cases, total, nil
}

// GetEvents returns the case journal, newest first
func (r *PostgresRepository) GetEvents(ctx context.Context, caseID types.ID, limit, offset int) ([]domain.CaseEvent, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	query := `
		SELECT id, case_id, type, actor_id, details, data, timestamp
		FROM cases.case_events
		WHERE case_id = $1
		ORDER BY timestamp DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, caseID, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get events")
	}
	defer rows.Close()

	events := []domain.CaseEvent{}
	for rows.Next() {
		var e domain.CaseEvent
		var dataJSON []byte
		if err := rows.Scan(&e.ID, &e.CaseID, &e.Type, &e.Actor, &e.Details, &dataJSON, &e.Timestamp); err != nil {
			return nil, errors.Wrap(err, "failed to scan event")
		}
		if len(dataJSON) > 0 {
			if err := json.Unmarshal(dataJSON, &e.Data); err != nil {
				e.Data = nil
			}
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// CaseIDForInterrogation resolves an interrogation to its case
func (r *PostgresRepository) CaseIDForInterrogation(ctx context.Context, interrogationID types.ID) (types.ID, error) {
	var id types.ID
	err := r.pool.QueryRow(ctx, `SELECT case_id FROM cases.interrogations WHERE id = $1`, interrogationID).Scan(&id)
	if err == pgx.ErrNoRows {
		return "", errors.NotFound("interrogation", interrogationID.String())
	}
	if err != nil {
		return "", errors.Wrap(err, "failed to find interrogation")
	}
	return id, nil
}

// CaseIDForSubmission resolves a main-suspect submission to its case
func (r *PostgresRepository) CaseIDForSubmission(ctx context.Context, submissionID types.ID) (types.ID, error) {
	var id types.ID
	err := r.pool.QueryRow(ctx, `SELECT case_id FROM cases.suspect_submissions WHERE id = $1`, submissionID).Scan(&id)
	if err == pgx.ErrNoRows {
		return "", errors.NotFound("suspect submission", submissionID.String())
	}
	if err != nil {
		return "", errors.Wrap(err, "failed to find suspect submission")
	}
	return id, nil
}

// ListWantedSuspects returns every wanted suspect in a case that is still
// active, together with the case facts used for ranking.
func (r *PostgresRepository) ListWantedSuspects(ctx context.Context) ([]domain.SuspectRecord, error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("list_wanted", time.Since(start)) }()

	query := `
		SELECT s.id, s.case_id, s.full_name, s.national_id, s.photo_url, s.person_id,
			s.status, s.marked_at, s.added_by, s.created_at, s.updated_at,
			c.status, c.severity
		FROM cases.suspects s
		JOIN cases.cases c ON c.id = s.case_id
		WHERE s.status IN ('wanted', 'high_alert')
			AND c.status NOT IN ('closed', 'void')
		ORDER BY s.marked_at`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list wanted suspects")
	}
	defer rows.Close()

	var records []domain.SuspectRecord
	for rows.Next() {
		var rec domain.SuspectRecord
		s := &rec.Suspect
		err := rows.Scan(
			&s.ID, &s.CaseID, &s.FullName, &s.NationalID, &s.PhotoURL, &s.Person,
			&s.Status, &s.MarkedAt, &s.AddedBy, &s.CreatedAt, &s.UpdatedAt,
			&rec.CaseStatus, &rec.CaseSeverity,
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan suspect")
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// --- Loading ---

func (r *PostgresRepository) load(ctx context.Context, q querier, id types.ID, forUpdate bool) (*domain.Case, error) {
	query := `SELECT ` + caseColumns + ` FROM cases.cases WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	c, err := scanCase(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, errors.NotFound("case", id.String())
		}
		return nil, err
	}

	if c.Source == domain.SourceComplaint {
		complaint, err := r.getComplaint(ctx, q, id)
		if err != nil {
			return nil, err
		}
		c.Complaint = complaint
	}

	if c.Complainants, err = r.getComplainants(ctx, q, id); err != nil {
		return nil, err
	}
	if c.Witnesses, err = r.getWitnesses(ctx, q, id); err != nil {
		return nil, err
	}
	if c.Suspects, err = r.getSuspects(ctx, q, id); err != nil {
		return nil, err
	}
	if c.SuspectSubmissions, err = r.getSubmissions(ctx, q, id); err != nil {
		return nil, err
	}
	if c.Interrogations, err = r.getInterrogations(ctx, q, id); err != nil {
		return nil, err
	}
	if c.CourtSessions, err = r.getCourtSessions(ctx, q, id); err != nil {
		return nil, err
	}
	return c, nil
}

func scanCase(row pgx.Row) (*domain.Case, error) {
	c := &domain.Case{}
	err := row.Scan(
		&c.ID, &c.Title, &c.Description, &c.Source, &c.Status, &c.Severity,
		&c.CreatedBy, &c.AssignedDetective, &c.SceneReportedAt,
		&c.Version, &c.CreatedAt, &c.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("case", "")
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to scan case")
	}
	return c, nil
}

func (r *PostgresRepository) getComplaint(ctx context.Context, q querier, caseID types.ID) (*domain.ComplaintSubmission, error) {
	query := `
		SELECT id, case_id, complainant, stage, attempt_count,
			intern_note, officer_note, last_error_message, created_at, updated_at
		FROM cases.complaint_submissions
		WHERE case_id = $1`

	s := &domain.ComplaintSubmission{}
	err := q.QueryRow(ctx, query, caseID).Scan(
		&s.ID, &s.CaseID, &s.Complainant, &s.Stage, &s.AttemptCount,
		&s.InternNote, &s.OfficerNote, &s.LastErrorMessage, &s.CreatedAt, &s.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get complaint submission")
	}
	return s, nil
}

func (r *PostgresRepository) getComplainants(ctx context.Context, q querier, caseID types.ID) ([]domain.Complainant, error) {
	query := `
		SELECT id, case_id, user_id, status, review_note, created_at, updated_at
		FROM cases.complainants
		WHERE case_id = $1
		ORDER BY created_at, id`

	rows, err := q.Query(ctx, query, caseID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get complainants")
	}
	defer rows.Close()

	complainants := []domain.Complainant{}
	for rows.Next() {
		var cc domain.Complainant
		if err := rows.Scan(&cc.ID, &cc.CaseID, &cc.User, &cc.Status, &cc.ReviewNote, &cc.CreatedAt, &cc.UpdatedAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan complainant")
		}
		complainants = append(complainants, cc)
	}
	return complainants, rows.Err()
}

func (r *PostgresRepository) getWitnesses(ctx context.Context, q querier, caseID types.ID) ([]domain.Witness, error) {
	query := `
		SELECT id, case_id, full_name, national_id, phone, statement, created_at
		FROM cases.witnesses
		WHERE case_id = $1
		ORDER BY created_at, id`

	rows, err := q.Query(ctx, query, caseID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get witnesses")
	}
	defer rows.Close()

	var witnesses []domain.Witness
	for rows.Next() {
		var w domain.Witness
		if err := rows.Scan(&w.ID, &w.CaseID, &w.FullName, &w.NationalID, &w.Phone, &w.Statement, &w.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan witness")
		}
		witnesses = append(witnesses, w)
	}
	return witnesses, rows.Err()
}

func (r *PostgresRepository) getSuspects(ctx context.Context, q querier, caseID types.ID) ([]domain.Suspect, error) {
	query := `
		SELECT id, case_id, full_name, national_id, photo_url, person_id,
			status, marked_at, added_by, created_at, updated_at
		FROM cases.suspects
		WHERE case_id = $1
		ORDER BY created_at, id`

	rows, err := q.Query(ctx, query, caseID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get suspects")
	}
	defer rows.Close()

	var suspects []domain.Suspect
	for rows.Next() {
		var s domain.Suspect
		err := rows.Scan(
			&s.ID, &s.CaseID, &s.FullName, &s.NationalID, &s.PhotoURL, &s.Person,
			&s.Status, &s.MarkedAt, &s.AddedBy, &s.CreatedAt, &s.UpdatedAt,
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan suspect")
		}
		suspects = append(suspects, s)
	}
	return suspects, rows.Err()
}

func (r *PostgresRepository) getSubmissions(ctx context.Context, q querier, caseID types.ID) ([]domain.SuspectSubmission, error) {
	query := `
		SELECT id, case_id, detective, sergeant, suspect_ids::text[], status,
			detective_reason, sergeant_message, created_at, reviewed_at
		FROM cases.suspect_submissions
		WHERE case_id = $1
		ORDER BY created_at, id`

	rows, err := q.Query(ctx, query, caseID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get suspect submissions")
	}
	defer rows.Close()

	var submissions []domain.SuspectSubmission
	for rows.Next() {
		var s domain.SuspectSubmission
		var suspectIDs []string
		err := rows.Scan(
			&s.ID, &s.CaseID, &s.Detective, &s.Sergeant, &suspectIDs, &s.Status,
			&s.DetectiveReason, &s.SergeantMessage, &s.CreatedAt, &s.ReviewedAt,
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan suspect submission")
		}
		for _, id := range suspectIDs {
			s.SuspectIDs = append(s.SuspectIDs, types.ID(id))
		}
		submissions = append(submissions, s)
	}
	return submissions, rows.Err()
}

func (r *PostgresRepository) getInterrogations(ctx context.Context, q querier, caseID types.ID) ([]domain.Interrogation, error) {
	query := `
		SELECT id, case_id, suspect_id, detective, sergeant,
			detective_score, sergeant_score, notes, transcription, key_values,
			captain_decision, captain_outcome, captain_score, captain_note, captain_by, captain_at,
			chief_decision, chief_note, chief_by, chief_at,
			created_at, updated_at
		FROM cases.interrogations
		WHERE case_id = $1
		ORDER BY created_at, id`

	rows, err := q.Query(ctx, query, caseID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get interrogations")
	}
	defer rows.Close()

	var interrogations []domain.Interrogation
	for rows.Next() {
		var it domain.Interrogation
		var keyValuesJSON []byte
		err := rows.Scan(
			&it.ID, &it.CaseID, &it.SuspectID, &it.Detective, &it.Sergeant,
			&it.DetectiveScore, &it.SergeantScore, &it.Notes, &it.Transcription, &keyValuesJSON,
			&it.CaptainDecision, &it.CaptainOutcome, &it.CaptainScore, &it.CaptainNote, &it.CaptainBy, &it.CaptainAt,
			&it.ChiefDecision, &it.ChiefNote, &it.ChiefBy, &it.ChiefAt,
			&it.CreatedAt, &it.UpdatedAt,
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan interrogation")
		}
		if len(keyValuesJSON) > 0 {
			if err := json.Unmarshal(keyValuesJSON, &it.KeyValues); err != nil {
				it.KeyValues = nil
			}
		}
		if len(it.KeyValues) == 0 {
			it.KeyValues = nil
		}
		interrogations = append(interrogations, it)
	}
	return interrogations, rows.Err()
}

func (r *PostgresRepository) getCourtSessions(ctx context.Context, q querier, caseID types.ID) ([]domain.CourtSession, error) {
	query := `
		SELECT id, case_id, suspect_id, judge, verdict,
			punishment_title, punishment_description, created_at
		FROM cases.court_sessions
		WHERE case_id = $1
		ORDER BY created_at, id`

	rows, err := q.Query(ctx, query, caseID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get court sessions")
	}
	defer rows.Close()

	var sessions []domain.CourtSession
	for rows.Next() {
		var cs domain.CourtSession
		err := rows.Scan(
			&cs.ID, &cs.CaseID, &cs.SuspectID, &cs.Judge, &cs.Verdict,
			&cs.PunishmentTitle, &cs.PunishmentDescription, &cs.CreatedAt,
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan court session")
		}
		sessions = append(sessions, cs)
	}
	return sessions, rows.Err()
}

// --- Writing ---

// saveChildren upserts every child record and appends the pending journal
// entries. Children are never deleted once recorded.
func (r *PostgresRepository) saveChildren(ctx context.Context, tx pgx.Tx, c *domain.Case) error {
	if c.Complaint != nil {
		if err := r.saveComplaint(ctx, tx, c.Complaint); err != nil {
			return err
		}
	}
	for i := range c.Complainants {
		if err := r.saveComplainant(ctx, tx, &c.Complainants[i]); err != nil {
			return err
		}
	}
	for i := range c.Witnesses {
		if err := r.saveWitness(ctx, tx, &c.Witnesses[i]); err != nil {
			return err
		}
	}
	for i := range c.Suspects {
		if err := r.saveSuspect(ctx, tx, &c.Suspects[i]); err != nil {
			return err
		}
	}
	for i := range c.SuspectSubmissions {
		if err := r.saveSubmission(ctx, tx, &c.SuspectSubmissions[i]); err != nil {
			return err
		}
	}
	for i := range c.Interrogations {
		if err := r.saveInterrogation(ctx, tx, &c.Interrogations[i]); err != nil {
			return err
		}
	}
	for i := range c.CourtSessions {
		if err := r.saveCourtSession(ctx, tx, &c.CourtSessions[i]); err != nil {
			return err
		}
	}
	for _, e := range c.PendingEvents() {
		if err := r.saveEvent(ctx, tx, &e); err != nil {
			return err
		}
	}
	return nil
}

func (r *PostgresRepository) saveComplaint(ctx context.Context, tx pgx.Tx, s *domain.ComplaintSubmission) error {
	query := `
		INSERT INTO cases.complaint_submissions (
			id, case_id, complainant, stage, attempt_count,
			intern_note, officer_note, last_error_message, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			stage = EXCLUDED.stage,
			attempt_count = EXCLUDED.attempt_count,
			intern_note = EXCLUDED.intern_note,
			officer_note = EXCLUDED.officer_note,
			last_error_message = EXCLUDED.last_error_message,
			updated_at = EXCLUDED.updated_at`

	_, err := tx.Exec(ctx, query,
		s.ID, s.CaseID, s.Complainant, s.Stage, s.AttemptCount,
		s.InternNote, s.OfficerNote, s.LastErrorMessage, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "failed to save complaint submission")
	}
	return nil
}

func (r *PostgresRepository) saveComplainant(ctx context.Context, tx pgx.Tx, cc *domain.Complainant) error {
	query := `
		INSERT INTO cases.complainants (
			id, case_id, user_id, status, review_note, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			review_note = EXCLUDED.review_note,
			updated_at = EXCLUDED.updated_at`

	_, err := tx.Exec(ctx, query,
		cc.ID, cc.CaseID, cc.User, cc.Status, cc.ReviewNote, cc.CreatedAt, cc.UpdatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return errors.Conflict("user is already a complainant")
		}
		return errors.Wrap(err, "failed to save complainant")
	}
	return nil
}

func (r *PostgresRepository) saveWitness(ctx context.Context, tx pgx.Tx, w *domain.Witness) error {
	query := `
		INSERT INTO cases.witnesses (
			id, case_id, full_name, national_id, phone, statement, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING`

	_, err := tx.Exec(ctx, query,
		w.ID, w.CaseID, w.FullName, w.NationalID, w.Phone, w.Statement, w.CreatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "failed to save witness")
	}
	return nil
}

func (r *PostgresRepository) saveSuspect(ctx context.Context, tx pgx.Tx, s *domain.Suspect) error {
	query := `
		INSERT INTO cases.suspects (
			id, case_id, full_name, national_id, photo_url, person_id,
			status, marked_at, added_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at
		WHERE cases.suspects.status IS DISTINCT FROM EXCLUDED.status`

	_, err := tx.Exec(ctx, query,
		s.ID, s.CaseID, s.FullName, s.NationalID, s.PhotoURL, s.Person,
		s.Status, s.MarkedAt, s.AddedBy, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "failed to save suspect")
	}
	return nil
}

func (r *PostgresRepository) saveSubmission(ctx context.Context, tx pgx.Tx, s *domain.SuspectSubmission) error {
	query := `
		INSERT INTO cases.suspect_submissions (
			id, case_id, detective, sergeant, suspect_ids, status,
			detective_reason, sergeant_message, created_at, reviewed_at
		) VALUES ($1, $2, $3, $4, $5::uuid[], $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			sergeant = EXCLUDED.sergeant,
			status = EXCLUDED.status,
			sergeant_message = EXCLUDED.sergeant_message,
			reviewed_at = EXCLUDED.reviewed_at`

	_, err := tx.Exec(ctx, query,
		s.ID, s.CaseID, s.Detective, s.Sergeant, idStrings(s.SuspectIDs), s.Status,
		s.DetectiveReason, s.SergeantMessage, s.CreatedAt, s.ReviewedAt,
	)
	if err != nil {
		return errors.Wrap(err, "failed to save suspect submission")
	}
	return nil
}

func (r *PostgresRepository) saveInterrogation(ctx context.Context, tx pgx.Tx, it *domain.Interrogation) error {
	keyValues := it.KeyValues
	if keyValues == nil {
		keyValues = map[string]string{}
	}
	keyValuesJSON, err := json.Marshal(keyValues)
	if err != nil {
		return errors.Wrap(err, "failed to marshal key values")
	}

	query := `
		INSERT INTO cases.interrogations (
			id, case_id, suspect_id, detective, sergeant,
			detective_score, sergeant_score, notes, transcription, key_values,
			captain_decision, captain_outcome, captain_score, captain_note, captain_by, captain_at,
			chief_decision, chief_note, chief_by, chief_at,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
		ON CONFLICT (id) DO UPDATE SET
			detective = EXCLUDED.detective,
			sergeant = EXCLUDED.sergeant,
			detective_score = EXCLUDED.detective_score,
			sergeant_score = EXCLUDED.sergeant_score,
			notes = EXCLUDED.notes,
			transcription = EXCLUDED.transcription,
			key_values = EXCLUDED.key_values,
			captain_decision = EXCLUDED.captain_decision,
			captain_outcome = EXCLUDED.captain_outcome,
			captain_score = EXCLUDED.captain_score,
			captain_note = EXCLUDED.captain_note,
			captain_by = EXCLUDED.captain_by,
			captain_at = EXCLUDED.captain_at,
			chief_decision = EXCLUDED.chief_decision,
			chief_note = EXCLUDED.chief_note,
			chief_by = EXCLUDED.chief_by,
			chief_at = EXCLUDED.chief_at,
			updated_at = EXCLUDED.updated_at`

	_, err = tx.Exec(ctx, query,
		it.ID, it.CaseID, it.SuspectID, it.Detective, it.Sergeant,
		it.DetectiveScore, it.SergeantScore, it.Notes, it.Transcription, keyValuesJSON,
		it.CaptainDecision, it.CaptainOutcome, it.CaptainScore, it.CaptainNote, it.CaptainBy, it.CaptainAt,
		it.ChiefDecision, it.ChiefNote, it.ChiefBy, it.ChiefAt,
		it.CreatedAt, it.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "failed to save interrogation")
	}
	return nil
}

func (r *PostgresRepository) saveCourtSession(ctx context.Context, tx pgx.Tx, cs *domain.CourtSession) error {
	query := `
		INSERT INTO cases.court_sessions (
			id, case_id, suspect_id, judge, verdict,
			punishment_title, punishment_description, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING`

	_, err := tx.Exec(ctx, query,
		cs.ID, cs.CaseID, cs.SuspectID, cs.Judge, cs.Verdict,
		cs.PunishmentTitle, cs.PunishmentDescription, cs.CreatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return errors.InvalidState("verdict already recorded")
		}
		return errors.Wrap(err, "failed to save court session")
	}
	return nil
}

func (r *PostgresRepository) saveEvent(ctx context.Context, tx pgx.Tx, e *domain.CaseEvent) error {
	dataJSON, err := json.Marshal(e.Data)
	if err != nil {
		return errors.Wrap(err, "failed to marshal event data")
	}
	if e.Data == nil {
		dataJSON = []byte("{}")
	}

	query := `
		INSERT INTO cases.case_events (id, case_id, type, actor_id, details, data, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err = tx.Exec(ctx, query,
		e.ID, e.CaseID, e.Type, e.Actor, e.Details, dataJSON, e.Timestamp,
	)
	if err != nil {
		return errors.Wrap(err, "failed to save event")
	}
	return nil
}

func idStrings(ids []types.ID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
