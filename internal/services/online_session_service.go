package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/longtq2501/Tutor-Pro-sub001/internal/models"
	"github.com/longtq2501/Tutor-Pro-sub001/internal/repository"
)

type onlineSessionStore interface {
	Create(ctx context.Context, input repository.CreateOnlineSessionInput) (*models.OnlineSession, error)
	GetByRoomID(ctx context.Context, roomID string) (*models.OnlineSession, error)
	GetBySessionRecordID(ctx context.Context, recordID int64) (*models.OnlineSession, error)
	ExistsBySessionRecordID(ctx context.Context, recordID int64) (bool, error)
	RecordTutorJoin(ctx context.Context, roomID string, at time.Time) (*models.OnlineSession, error)
	RecordStudentJoin(ctx context.Context, roomID string, at time.Time) (*models.OnlineSession, error)
	End(ctx context.Context, roomID string, endedAt time.Time, durationMinutes *int) (*models.OnlineSession, error)
	Delete(ctx context.Context, id int64) error
	GlobalStats(ctx context.Context) (*models.GlobalRoomStats, error)
}

type userReader interface {
	GetByStudentID(ctx context.Context, studentID int64) (*models.User, error)
}

type recordReader interface {
	GetByID(ctx context.Context, id, tutorID int64) (*models.SessionRecord, error)
}

// OnlineSessionService runs the live-room lifecycle: WAITING on creation,
// ACTIVE on the first join, ENDED exactly once. The billable duration is the
// overlap window, measured from the later of the two joins to the actual end.
type OnlineSessionService struct {
	rooms     onlineSessionStore
	records   recordReader
	users     userReader
	presence  *PresenceTracker
	publisher Publisher
	now       func() time.Time
}

func NewOnlineSessionService(
	rooms onlineSessionStore,
	records recordReader,
	users userReader,
	presence *PresenceTracker,
	publisher Publisher,
) *OnlineSessionService {
	return &OnlineSessionService{
		rooms:     rooms,
		records:   records,
		users:     users,
		presence:  presence,
		publisher: publisher,
		now:       time.Now,
	}
}

type CreateRoomInput struct {
	TutorID         int64
	StudentID       int64
	ScheduledStart  time.Time
	ScheduledEnd    time.Time
	SessionRecordID *int64
}

func (s *OnlineSessionService) Create(ctx context.Context, input CreateRoomInput) (*models.OnlineSession, error) {
	if input.ScheduledStart.IsZero() || !input.ScheduledEnd.After(input.ScheduledStart) {
		return nil, ErrInvalidInput
	}
	return s.rooms.Create(ctx, repository.CreateOnlineSessionInput{
		RoomID:          uuid.NewString(),
		TutorID:         input.TutorID,
		StudentID:       input.StudentID,
		ScheduledStart:  input.ScheduledStart,
		ScheduledEnd:    input.ScheduledEnd,
		SessionRecordID: input.SessionRecordID,
	})
}

// Join records a participant's arrival. Timestamps are set once, so rejoining
// after a dropped connection never moves the billing clock.
func (s *OnlineSessionService) Join(ctx context.Context, roomID string, userID int64, role string) (*models.OnlineSession, error) {
	session, err := s.getRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if session.RoomStatus == models.RoomEnded {
		return nil, ErrRoomEnded
	}

	var joined *models.OnlineSession
	switch role {
	case "tutor", "admin":
		if role == "tutor" && session.TutorID != userID {
			return nil, ErrForbidden
		}
		joined, err = s.rooms.RecordTutorJoin(ctx, roomID, s.now())
	case "student":
		if err := s.checkStudentMembership(ctx, session, userID); err != nil {
			return nil, err
		}
		joined, err = s.rooms.RecordStudentJoin(ctx, roomID, s.now())
	default:
		return nil, ErrForbidden
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRoomEnded
		}
		return nil, err
	}

	s.presence.Heartbeat(roomID, userID)
	return joined, nil
}

// End closes the room. The operation is idempotent: the first caller writes
// ENDED plus the duration, later callers get the already-ended row back.
func (s *OnlineSessionService) End(ctx context.Context, roomID string, userID int64, role string) (*models.OnlineSession, error) {
	session, err := s.getRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if err := s.checkParticipant(ctx, session, userID, role); err != nil {
		return nil, err
	}
	if session.RoomStatus == models.RoomEnded {
		return session, nil
	}

	endedAt := s.now()
	ended, err := s.rooms.End(ctx, roomID, endedAt, overlapMinutes(session, endedAt))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return s.getRoom(ctx, roomID)
		}
		return nil, err
	}

	for _, id := range s.recipients(ctx, ended.TutorID, ended.StudentID) {
		s.presence.Forget(roomID, id)
	}
	s.notifyRoomEnded(ctx, ended)
	return ended, nil
}

// Heartbeat refreshes a participant's presence. Ended rooms reject beats so a
// stale client loop cannot keep a closed room looking live.
func (s *OnlineSessionService) Heartbeat(ctx context.Context, roomID string, userID int64, role string) error {
	session, err := s.getRoom(ctx, roomID)
	if err != nil {
		return err
	}
	if session.RoomStatus == models.RoomEnded {
		return ErrRoomEnded
	}
	if err := s.checkParticipant(ctx, session, userID, role); err != nil {
		return err
	}
	s.presence.Heartbeat(roomID, userID)
	return nil
}

func (s *OnlineSessionService) RoomStats(ctx context.Context, roomID string, userID int64, role string) (*models.RoomStats, error) {
	session, err := s.getRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if err := s.checkParticipant(ctx, session, userID, role); err != nil {
		return nil, err
	}

	stats := &models.RoomStats{
		RoomID:          session.RoomID,
		RoomStatus:      session.RoomStatus,
		TutorPresent:    s.presence.IsActive(roomID, session.TutorID),
		ScheduledStart:  session.ScheduledStart,
		ScheduledEnd:    session.ScheduledEnd,
		ActualStart:     session.ActualStart,
		ActualEnd:       session.ActualEnd,
		TutorJoinedAt:   session.TutorJoinedAt,
		StudentJoinedAt: session.StudentJoinedAt,
		DurationMinutes: session.TotalDurationMinutes,
	}
	if studentUser, err := s.users.GetByStudentID(ctx, session.StudentID); err == nil {
		stats.StudentPresent = s.presence.IsActive(roomID, studentUser.ID)
	}
	if stats.TutorPresent {
		stats.ParticipantCount++
	}
	if stats.StudentPresent {
		stats.ParticipantCount++
	}
	return stats, nil
}

func (s *OnlineSessionService) GlobalStats(ctx context.Context, role string) (*models.GlobalRoomStats, error) {
	if role != "admin" {
		return nil, ErrForbidden
	}
	return s.rooms.GlobalStats(ctx)
}

func (s *OnlineSessionService) GetByRecordID(ctx context.Context, actorID int64, role string, recordID int64) (*models.OnlineSession, error) {
	tutorID, err := resolveTutorID(role, actorID)
	if err != nil {
		return nil, err
	}
	if _, err := s.records.GetByID(ctx, recordID, tutorID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	session, err := s.rooms.GetBySessionRecordID(ctx, recordID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return session, nil
}

// ConvertToOnline attaches a live room to a scheduled record. Only SCHEDULED
// records with a full time range and a start still in the future qualify, and
// a record can back at most one room.
func (s *OnlineSessionService) ConvertToOnline(ctx context.Context, actorID int64, role string, recordID int64) (*models.OnlineSession, error) {
	tutorID, err := resolveTutorID(role, actorID)
	if err != nil {
		return nil, err
	}
	rec, err := s.records.GetByID(ctx, recordID, tutorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if rec.Status != models.StatusScheduled {
		return nil, fmt.Errorf("%w: status is %s", ErrNotConvertible, rec.Status)
	}
	if rec.StartTime == nil || rec.EndTime == nil {
		return nil, fmt.Errorf("%w: start and end times are required", ErrNotConvertible)
	}

	scheduledStart, scheduledEnd, err := scheduleWindow(rec.SessionDate, *rec.StartTime, *rec.EndTime)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if !scheduledStart.After(s.now()) {
		return nil, fmt.Errorf("%w: session start is in the past", ErrNotConvertible)
	}

	exists, err := s.rooms.ExistsBySessionRecordID(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrAlreadyOnline
	}

	session, err := s.Create(ctx, CreateRoomInput{
		TutorID:         rec.TutorID,
		StudentID:       rec.StudentID,
		ScheduledStart:  scheduledStart,
		ScheduledEnd:    scheduledEnd,
		SessionRecordID: &rec.ID,
	})
	if err != nil {
		return nil, err
	}

	s.publish(Notification{
		Type:        "session.converted_online",
		SessionID:   rec.ID,
		RoomID:      session.RoomID,
		StudentID:   rec.StudentID,
		SessionDate: rec.SessionDate.Format("2006-01-02"),
		StartTime:   *rec.StartTime,
		OccurredAt:  s.now(),
		Recipients:  s.recipients(ctx, rec.TutorID, rec.StudentID),
	})
	return session, nil
}

// RevertToOffline detaches and removes the room while it is still WAITING.
// Once anyone has joined, the room carries billing state and cannot be
// reverted.
func (s *OnlineSessionService) RevertToOffline(ctx context.Context, actorID int64, role string, recordID int64) error {
	tutorID, err := resolveTutorID(role, actorID)
	if err != nil {
		return err
	}
	rec, err := s.records.GetByID(ctx, recordID, tutorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}

	session, err := s.rooms.GetBySessionRecordID(ctx, rec.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if session.RoomStatus == models.RoomEnded {
		return ErrRoomEnded
	}
	if session.RoomStatus != models.RoomWaiting {
		return fmt.Errorf("%w: room is already active", ErrNotConvertible)
	}

	if err := s.rooms.Delete(ctx, session.ID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}

	s.publish(Notification{
		Type:       "session.reverted_offline",
		SessionID:  rec.ID,
		RoomID:     session.RoomID,
		StudentID:  rec.StudentID,
		OccurredAt: s.now(),
		Recipients: s.recipients(ctx, rec.TutorID, rec.StudentID),
	})
	return nil
}

func (s *OnlineSessionService) getRoom(ctx context.Context, roomID string) (*models.OnlineSession, error) {
	session, err := s.rooms.GetByRoomID(ctx, roomID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return session, nil
}

func (s *OnlineSessionService) checkParticipant(ctx context.Context, session *models.OnlineSession, userID int64, role string) error {
	switch role {
	case "admin":
		return nil
	case "tutor":
		if session.TutorID != userID {
			return ErrForbidden
		}
		return nil
	case "student":
		return s.checkStudentMembership(ctx, session, userID)
	default:
		return ErrForbidden
	}
}

func (s *OnlineSessionService) checkStudentMembership(ctx context.Context, session *models.OnlineSession, userID int64) error {
	studentUser, err := s.users.GetByStudentID(ctx, session.StudentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrForbidden
		}
		return err
	}
	if studentUser.ID != userID {
		return ErrForbidden
	}
	return nil
}

func (s *OnlineSessionService) notifyRoomEnded(ctx context.Context, session *models.OnlineSession) {
	n := Notification{
		Type:            "room.ended",
		RoomID:          session.RoomID,
		StudentID:       session.StudentID,
		DurationMinutes: session.TotalDurationMinutes,
		OccurredAt:      s.now(),
		Recipients:      s.recipients(ctx, session.TutorID, session.StudentID),
	}
	if session.SessionRecordID != nil {
		n.SessionID = *session.SessionRecordID
	}
	s.publish(n)
}

// recipients resolves the pair of user IDs behind a room: the tutor directly,
// the student via their linked account when one exists.
func (s *OnlineSessionService) recipients(ctx context.Context, tutorID, studentID int64) []int64 {
	ids := []int64{tutorID}
	if studentUser, err := s.users.GetByStudentID(ctx, studentID); err == nil {
		ids = append(ids, studentUser.ID)
	}
	return ids
}

func (s *OnlineSessionService) publish(n Notification) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(n); err != nil {
		log.Printf("publish %s for room %s: %v", n.Type, n.RoomID, err)
	}
}

// overlapMinutes is the billable window: the span from the later join to the
// end, floored to whole minutes. Unset when either party never joined.
func overlapMinutes(session *models.OnlineSession, endedAt time.Time) *int {
	if session.TutorJoinedAt == nil || session.StudentJoinedAt == nil {
		return nil
	}
	start := *session.TutorJoinedAt
	if session.StudentJoinedAt.After(start) {
		start = *session.StudentJoinedAt
	}
	minutes := int(endedAt.Sub(start).Minutes())
	if minutes < 0 {
		minutes = 0
	}
	return &minutes
}

// scheduleWindow combines a calendar date with clock times. An end at or
// before the start rolls to the next day.
func scheduleWindow(date time.Time, start, end string) (time.Time, time.Time, error) {
	startClock, err := time.Parse("15:04", start)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	endClock, err := time.Parse("15:04", end)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	startAt := time.Date(date.Year(), date.Month(), date.Day(),
		startClock.Hour(), startClock.Minute(), 0, 0, date.Location())
	endAt := time.Date(date.Year(), date.Month(), date.Day(),
		endClock.Hour(), endClock.Minute(), 0, 0, date.Location())
	if !endAt.After(startAt) {
		endAt = endAt.AddDate(0, 0, 1)
	}
	return startAt, endAt, nil
}
