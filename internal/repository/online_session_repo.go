package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/longtq2501/Tutor-Pro-sub001/internal/models"
)

type CreateOnlineSessionInput struct {
	RoomID          string
	TutorID         int64
	StudentID       int64
	ScheduledStart  time.Time
	ScheduledEnd    time.Time
	SessionRecordID *int64
}

const onlineSessionColumns = `
	id, room_id, room_status, scheduled_start, scheduled_end, actual_start, actual_end,
	tutor_id, student_id, session_record_id, tutor_joined_at, student_joined_at,
	total_duration_minutes, created_at, updated_at`

type OnlineSessionRepository struct {
	db DBTX
}

func NewOnlineSessionRepository(db DBTX) *OnlineSessionRepository {
	return &OnlineSessionRepository{db: db}
}

func (r *OnlineSessionRepository) Create(ctx context.Context, input CreateOnlineSessionInput) (*models.OnlineSession, error) {
	query := `
		INSERT INTO online_sessions (room_id, room_status, scheduled_start, scheduled_end, tutor_id, student_id, session_record_id)
		VALUES ($1, 'WAITING', $2, $3, $4, $5, $6)
		RETURNING` + onlineSessionColumns
	row := r.db.QueryRow(ctx, query,
		input.RoomID,
		input.ScheduledStart,
		input.ScheduledEnd,
		input.TutorID,
		input.StudentID,
		input.SessionRecordID,
	)
	return scanOnlineSession(row)
}

func (r *OnlineSessionRepository) GetByRoomID(ctx context.Context, roomID string) (*models.OnlineSession, error) {
	query := `
		SELECT` + onlineSessionColumns + `
		FROM online_sessions
		WHERE room_id = $1
	`
	return scanOnlineSession(r.db.QueryRow(ctx, query, roomID))
}

func (r *OnlineSessionRepository) GetBySessionRecordID(ctx context.Context, recordID int64) (*models.OnlineSession, error) {
	query := `
		SELECT` + onlineSessionColumns + `
		FROM online_sessions
		WHERE session_record_id = $1
	`
	return scanOnlineSession(r.db.QueryRow(ctx, query, recordID))
}

func (r *OnlineSessionRepository) ExistsBySessionRecordID(ctx context.Context, recordID int64) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM online_sessions WHERE session_record_id = $1
		)
	`
	var exists bool
	if err := r.db.QueryRow(ctx, query, recordID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// RecordTutorJoin stamps the tutor's first join and activates a waiting room.
// COALESCE keeps an existing timestamp; the guard excludes ended rooms so a
// late join can never resurrect one.
func (r *OnlineSessionRepository) RecordTutorJoin(ctx context.Context, roomID string, at time.Time) (*models.OnlineSession, error) {
	query := `
		UPDATE online_sessions
		SET tutor_joined_at = COALESCE(tutor_joined_at, $2),
		    actual_start = COALESCE(actual_start, $2),
		    room_status = CASE WHEN room_status = 'WAITING' THEN 'ACTIVE' ELSE room_status END,
		    updated_at = NOW()
		WHERE room_id = $1 AND room_status <> 'ENDED'
		RETURNING` + onlineSessionColumns
	return scanOnlineSession(r.db.QueryRow(ctx, query, roomID, at))
}

func (r *OnlineSessionRepository) RecordStudentJoin(ctx context.Context, roomID string, at time.Time) (*models.OnlineSession, error) {
	query := `
		UPDATE online_sessions
		SET student_joined_at = COALESCE(student_joined_at, $2),
		    actual_start = COALESCE(actual_start, $2),
		    room_status = CASE WHEN room_status = 'WAITING' THEN 'ACTIVE' ELSE room_status END,
		    updated_at = NOW()
		WHERE room_id = $1 AND room_status <> 'ENDED'
		RETURNING` + onlineSessionColumns
	return scanOnlineSession(r.db.QueryRow(ctx, query, roomID, at))
}

// End transitions a room to ENDED and writes the billable duration in one
// conditional statement. When two callers race, the status guard lets exactly
// one through; the loser sees pgx.ErrNoRows and should return the stored row.
func (r *OnlineSessionRepository) End(ctx context.Context, roomID string, endedAt time.Time, durationMinutes *int) (*models.OnlineSession, error) {
	query := `
		UPDATE online_sessions
		SET room_status = 'ENDED',
		    actual_end = $2,
		    total_duration_minutes = $3,
		    updated_at = NOW()
		WHERE room_id = $1 AND room_status <> 'ENDED'
		RETURNING` + onlineSessionColumns
	return scanOnlineSession(r.db.QueryRow(ctx, query, roomID, endedAt, durationMinutes))
}

func (r *OnlineSessionRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM online_sessions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *OnlineSessionRepository) GlobalStats(ctx context.Context) (*models.GlobalRoomStats, error) {
	query := `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE room_status = 'ACTIVE'),
		       COUNT(*) FILTER (WHERE room_status = 'WAITING'),
		       COUNT(*) FILTER (WHERE room_status = 'ENDED'),
		       COALESCE(SUM(total_duration_minutes), 0)
		FROM online_sessions
	`
	var stats models.GlobalRoomStats
	err := r.db.QueryRow(ctx, query).Scan(
		&stats.TotalSessions,
		&stats.ActiveSessions,
		&stats.WaitingSessions,
		&stats.EndedSessions,
		&stats.TotalDurationMinutes,
	)
	if err != nil {
		return nil, err
	}
	if stats.TotalSessions > 0 {
		stats.AverageDuration = float64(stats.TotalDurationMinutes) / float64(stats.TotalSessions)
	}
	return &stats, nil
}

func scanOnlineSession(row pgx.Row) (*models.OnlineSession, error) {
	var session models.OnlineSession
	err := row.Scan(
		&session.ID,
		&session.RoomID,
		&session.RoomStatus,
		&session.ScheduledStart,
		&session.ScheduledEnd,
		&session.ActualStart,
		&session.ActualEnd,
		&session.TutorID,
		&session.StudentID,
		&session.SessionRecordID,
		&session.TutorJoinedAt,
		&session.StudentJoinedAt,
		&session.TotalDurationMinutes,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &session, nil
}
