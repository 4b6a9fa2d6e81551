package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/longtq2501/Tutor-Pro-sub001/internal/models"
)

type CreateSessionRecordInput struct {
	StudentID    int64
	TutorID      int64
	Month        string
	Sessions     int
	Hours        float64
	PricePerHour int64
	TotalAmount  int64
	Status       models.LessonStatus
	Paid         bool
	PaidAt       *time.Time
	Completed    bool
	SessionDate  time.Time
	StartTime    *string
	EndTime      *string
	Subject      *string
	Notes        *string
}

type SessionRecordFilter struct {
	TutorID    int64
	StudentID  int64
	Month      string
	UnpaidOnly bool
	Offset     int
	Limit      int
}

const sessionRecordColumns = `
	id, student_id, tutor_id, month, sessions, hours, price_per_hour, total_amount,
	paid, paid_at, completed, status, session_date, start_time, end_time,
	subject, notes, version, created_at, updated_at`

const sessionRecordViewColumns = `
	r.id, r.student_id, r.tutor_id, r.month, r.sessions, r.hours, r.price_per_hour, r.total_amount,
	r.paid, r.paid_at, r.completed, r.status, r.session_date, r.start_time, r.end_time,
	r.subject, r.notes, r.version, r.created_at, r.updated_at,
	s.name,
	EXISTS (SELECT 1 FROM online_sessions o WHERE o.session_record_id = r.id)`

type SessionRecordRepository struct {
	db DBTX
}

func NewSessionRecordRepository(db DBTX) *SessionRecordRepository {
	return &SessionRecordRepository{db: db}
}

func (r *SessionRecordRepository) Create(ctx context.Context, input CreateSessionRecordInput) (*models.SessionRecord, error) {
	query := `
		INSERT INTO session_records (
			student_id, tutor_id, month, sessions, hours, price_per_hour, total_amount,
			paid, paid_at, completed, status, session_date, start_time, end_time, subject, notes, version
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, 0)
		RETURNING` + sessionRecordColumns
	row := r.db.QueryRow(ctx, query,
		input.StudentID,
		input.TutorID,
		input.Month,
		input.Sessions,
		input.Hours,
		input.PricePerHour,
		input.TotalAmount,
		input.Paid,
		input.PaidAt,
		input.Completed,
		input.Status,
		input.SessionDate,
		input.StartTime,
		input.EndTime,
		input.Subject,
		input.Notes,
	)
	return scanSessionRecord(row)
}

// GetByID loads a record scoped to a tutor. tutorID 0 means unrestricted.
func (r *SessionRecordRepository) GetByID(ctx context.Context, id, tutorID int64) (*models.SessionRecord, error) {
	query := `
		SELECT` + sessionRecordColumns + `
		FROM session_records
		WHERE id = $1 AND ($2 = 0 OR tutor_id = $2)
	`
	return scanSessionRecord(r.db.QueryRow(ctx, query, id, tutorID))
}

func (r *SessionRecordRepository) GetView(ctx context.Context, id, tutorID int64) (*models.SessionRecordView, error) {
	query := `
		SELECT` + sessionRecordViewColumns + `
		FROM session_records r
		JOIN students s ON s.id = r.student_id
		WHERE r.id = $1 AND ($2 = 0 OR r.tutor_id = $2)
	`
	return scanSessionRecordView(r.db.QueryRow(ctx, query, id, tutorID))
}

func (r *SessionRecordRepository) List(ctx context.Context, filter SessionRecordFilter) ([]models.SessionRecordView, int, error) {
	args := []any{filter.TutorID}
	whereParts := []string{"($1 = 0 OR r.tutor_id = $1)"}

	if filter.StudentID > 0 {
		args = append(args, filter.StudentID)
		whereParts = append(whereParts, fmt.Sprintf("r.student_id = $%d", len(args)))
	}
	if month := strings.TrimSpace(filter.Month); month != "" {
		args = append(args, month)
		whereParts = append(whereParts, fmt.Sprintf("r.month = $%d", len(args)))
	}
	if filter.UnpaidOnly {
		whereParts = append(whereParts, "r.paid = FALSE")
	}
	where := strings.Join(whereParts, " AND ")

	countQuery := fmt.Sprintf(`
		SELECT COUNT(*)
		FROM session_records r
		WHERE %s
	`, where)
	var total int
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	order := "r.created_at DESC, r.id DESC"
	if filter.UnpaidOnly {
		order = "r.session_date DESC, r.id DESC"
	}

	args = append(args, filter.Offset, filter.Limit)
	query := fmt.Sprintf(`
		SELECT`+sessionRecordViewColumns+`
		FROM session_records r
		JOIN students s ON s.id = r.student_id
		WHERE %s
		ORDER BY %s
		OFFSET $%d LIMIT $%d
	`, where, order, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	views, err := scanSessionRecordViews(rows)
	if err != nil {
		return nil, 0, err
	}
	return views, total, nil
}

func (r *SessionRecordRepository) ListByStudentAndMonth(ctx context.Context, studentID int64, month string) ([]models.SessionRecordView, error) {
	query := `
		SELECT` + sessionRecordViewColumns + `
		FROM session_records r
		JOIN students s ON s.id = r.student_id
		WHERE r.student_id = $1 AND r.month = $2
		ORDER BY r.session_date ASC, r.id ASC
	`
	rows, err := r.db.Query(ctx, query, studentID, month)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSessionRecordViews(rows)
}

func (r *SessionRecordRepository) DistinctMonths(ctx context.Context, tutorID int64) ([]string, error) {
	query := `
		SELECT DISTINCT month
		FROM session_records
		WHERE ($1 = 0 OR tutor_id = $1)
		ORDER BY month DESC
	`
	rows, err := r.db.Query(ctx, query, tutorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	months := make([]string, 0)
	for rows.Next() {
		var month string
		if err := rows.Scan(&month); err != nil {
			return nil, err
		}
		months = append(months, month)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return months, nil
}

// UpdateIfVersion persists every mutable field in a single conditional write:
// the row is updated only when the stored version still equals rec.Version,
// and the version is incremented in the same statement. pgx.ErrNoRows means
// the record changed underneath the caller (or was deleted).
func (r *SessionRecordRepository) UpdateIfVersion(ctx context.Context, rec *models.SessionRecord) (*models.SessionRecord, error) {
	query := `
		UPDATE session_records
		SET month = $3,
		    sessions = $4,
		    hours = $5,
		    price_per_hour = $6,
		    total_amount = $7,
		    paid = $8,
		    paid_at = $9,
		    completed = $10,
		    status = $11,
		    session_date = $12,
		    start_time = $13,
		    end_time = $14,
		    subject = $15,
		    notes = $16,
		    version = version + 1,
		    updated_at = NOW()
		WHERE id = $1 AND version = $2
		RETURNING` + sessionRecordColumns
	row := r.db.QueryRow(ctx, query,
		rec.ID,
		rec.Version,
		rec.Month,
		rec.Sessions,
		rec.Hours,
		rec.PricePerHour,
		rec.TotalAmount,
		rec.Paid,
		rec.PaidAt,
		rec.Completed,
		rec.Status,
		rec.SessionDate,
		rec.StartTime,
		rec.EndTime,
		rec.Subject,
		rec.Notes,
	)
	return scanSessionRecord(row)
}

// Delete removes a record scoped to a tutor and reports pgx.ErrNoRows when
// nothing matched.
func (r *SessionRecordRepository) Delete(ctx context.Context, id, tutorID int64) error {
	query := `
		DELETE FROM session_records
		WHERE id = $1 AND ($2 = 0 OR tutor_id = $2)
	`
	tag, err := r.db.Exec(ctx, query, id, tutorID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

type BillingTotals struct {
	Records      int     `json:"records"`
	Sessions     int     `json:"sessions"`
	Hours        float64 `json:"hours"`
	TotalAmount  int64   `json:"total_amount"`
	PaidAmount   int64   `json:"paid_amount"`
	UnpaidAmount int64   `json:"unpaid_amount"`
}

// Totals aggregates billing figures, optionally restricted to one month.
// tutorID 0 means unrestricted.
func (r *SessionRecordRepository) Totals(ctx context.Context, tutorID int64, month string) (*BillingTotals, error) {
	query := `
		SELECT COUNT(*),
		       COALESCE(SUM(sessions), 0),
		       COALESCE(SUM(hours), 0),
		       COALESCE(SUM(total_amount), 0),
		       COALESCE(SUM(total_amount) FILTER (WHERE paid), 0),
		       COALESCE(SUM(total_amount) FILTER (WHERE NOT paid), 0)
		FROM session_records
		WHERE ($1 = 0 OR tutor_id = $1) AND ($2 = '' OR month = $2)
	`
	var totals BillingTotals
	err := r.db.QueryRow(ctx, query, tutorID, month).Scan(
		&totals.Records,
		&totals.Sessions,
		&totals.Hours,
		&totals.TotalAmount,
		&totals.PaidAmount,
		&totals.UnpaidAmount,
	)
	if err != nil {
		return nil, err
	}
	return &totals, nil
}

func scanSessionRecord(row pgx.Row) (*models.SessionRecord, error) {
	var rec models.SessionRecord
	err := row.Scan(
		&rec.ID,
		&rec.StudentID,
		&rec.TutorID,
		&rec.Month,
		&rec.Sessions,
		&rec.Hours,
		&rec.PricePerHour,
		&rec.TotalAmount,
		&rec.Paid,
		&rec.PaidAt,
		&rec.Completed,
		&rec.Status,
		&rec.SessionDate,
		&rec.StartTime,
		&rec.EndTime,
		&rec.Subject,
		&rec.Notes,
		&rec.Version,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func scanSessionRecordView(row pgx.Row) (*models.SessionRecordView, error) {
	var view models.SessionRecordView
	err := row.Scan(
		&view.ID,
		&view.StudentID,
		&view.TutorID,
		&view.Month,
		&view.Sessions,
		&view.Hours,
		&view.PricePerHour,
		&view.TotalAmount,
		&view.Paid,
		&view.PaidAt,
		&view.Completed,
		&view.Status,
		&view.SessionDate,
		&view.StartTime,
		&view.EndTime,
		&view.Subject,
		&view.Notes,
		&view.Version,
		&view.CreatedAt,
		&view.UpdatedAt,
		&view.StudentName,
		&view.IsOnline,
	)
	if err != nil {
		return nil, err
	}
	return &view, nil
}

func scanSessionRecordViews(rows pgx.Rows) ([]models.SessionRecordView, error) {
	views := make([]models.SessionRecordView, 0)
	for rows.Next() {
		view, err := scanSessionRecordView(rows)
		if err != nil {
			return nil, err
		}
		views = append(views, *view)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return views, nil
}
