package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/longtq2501/Tutor-Pro-sub001/internal/models"
	"github.com/longtq2501/Tutor-Pro-sub001/internal/repository"
)

type sessionRecordStore interface {
	Create(ctx context.Context, input repository.CreateSessionRecordInput) (*models.SessionRecord, error)
	GetByID(ctx context.Context, id, tutorID int64) (*models.SessionRecord, error)
	GetView(ctx context.Context, id, tutorID int64) (*models.SessionRecordView, error)
	List(ctx context.Context, filter repository.SessionRecordFilter) ([]models.SessionRecordView, int, error)
	ListByStudentAndMonth(ctx context.Context, studentID int64, month string) ([]models.SessionRecordView, error)
	DistinctMonths(ctx context.Context, tutorID int64) ([]string, error)
	UpdateIfVersion(ctx context.Context, rec *models.SessionRecord) (*models.SessionRecord, error)
	Delete(ctx context.Context, id, tutorID int64) error
}

type studentReader interface {
	GetByID(ctx context.Context, id int64) (*models.Student, error)
}

// SessionRecordService is the mutation engine for session records. Every edit
// is a read-validate-recompute-write unit whose write is the repository's
// conditional version update, so concurrent edits against the same version
// resolve to exactly one winner.
type SessionRecordService struct {
	records   sessionRecordStore
	students  studentReader
	publisher Publisher
	cache     CacheEvictor
	now       func() time.Time
}

func NewSessionRecordService(
	records sessionRecordStore,
	students studentReader,
	publisher Publisher,
	cache CacheEvictor,
) *SessionRecordService {
	return &SessionRecordService{
		records:   records,
		students:  students,
		publisher: publisher,
		cache:     cache,
		now:       time.Now,
	}
}

type CreateSessionInput struct {
	StudentID       int64
	Month           string
	SessionDate     time.Time
	Sessions        int
	HoursPerSession float64
	StartTime       *string
	EndTime         *string
	Subject         *string
	Notes           *string
	Status          models.LessonStatus
}

type UpdateSessionInput struct {
	ExpectedVersion int
	Month           *string
	SessionDate     *time.Time
	Sessions        *int
	HoursPerSession *float64
	StartTime       *string
	EndTime         *string
	Subject         *string
	Notes           *string
	Status          *models.LessonStatus
}

// resolveTutorID maps an authenticated actor onto the tutor scope every
// operation runs under. Admins get the zero sentinel, meaning unrestricted.
func resolveTutorID(role string, actorID int64) (int64, error) {
	switch role {
	case "admin":
		return 0, nil
	case "tutor":
		return actorID, nil
	default:
		return 0, ErrForbidden
	}
}

func (s *SessionRecordService) Create(ctx context.Context, actorID int64, role string, input CreateSessionInput) (*models.SessionRecordView, error) {
	tutorID, err := resolveTutorID(role, actorID)
	if err != nil {
		return nil, err
	}
	if input.StudentID <= 0 || input.Sessions <= 0 || input.SessionDate.IsZero() {
		return nil, ErrInvalidInput
	}
	if input.HoursPerSession <= 0 && (input.StartTime == nil || input.EndTime == nil) {
		return nil, ErrInvalidInput
	}

	student, err := s.students.GetByID(ctx, input.StudentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStudentNotFound
		}
		return nil, err
	}
	if tutorID != 0 && student.TutorID != tutorID {
		return nil, ErrForbidden
	}

	hours := float64(input.Sessions) * input.HoursPerSession
	if input.StartTime != nil && input.EndTime != nil {
		rangeHours, err := hoursFromRange(*input.StartTime, *input.EndTime)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		if rangeHours > 0 {
			hours = rangeHours
		}
	}
	if hours <= 0 {
		return nil, ErrInvalidInput
	}

	status := input.Status
	if status == "" {
		status = models.StatusScheduled
	}
	month := input.Month
	if month == "" {
		month = input.SessionDate.Format("2006-01")
	}

	rec := models.SessionRecord{Status: models.StatusScheduled}
	applyStatusChange(&rec, status, s.now())

	created, err := s.records.Create(ctx, repository.CreateSessionRecordInput{
		StudentID:    student.ID,
		TutorID:      student.TutorID,
		Month:        month,
		Sessions:     input.Sessions,
		Hours:        hours,
		PricePerHour: student.PricePerHour,
		TotalAmount:  truncAmount(hours, student.PricePerHour),
		Status:       rec.Status,
		Paid:         rec.Paid,
		PaidAt:       rec.PaidAt,
		Completed:    rec.Completed,
		SessionDate:  input.SessionDate,
		StartTime:    input.StartTime,
		EndTime:      input.EndTime,
		Subject:      input.Subject,
		Notes:        input.Notes,
	})
	if err != nil {
		return nil, err
	}

	s.afterMutation(created, "session.created")
	return s.records.GetView(ctx, created.ID, tutorID)
}

func (s *SessionRecordService) Update(ctx context.Context, actorID int64, role string, id int64, input UpdateSessionInput) (*models.SessionRecordView, error) {
	tutorID, err := resolveTutorID(role, actorID)
	if err != nil {
		return nil, err
	}

	rec, err := s.loadChecked(ctx, id, tutorID, input.ExpectedVersion)
	if err != nil {
		return nil, err
	}

	if input.Month != nil {
		rec.Month = *input.Month
	}
	if input.SessionDate != nil {
		rec.SessionDate = *input.SessionDate
	}
	if input.Notes != nil {
		rec.Notes = input.Notes
	}
	if input.Subject != nil {
		rec.Subject = input.Subject
	}

	if input.Sessions != nil || input.HoursPerSession != nil {
		if input.Sessions != nil && *input.Sessions <= 0 {
			return nil, ErrInvalidInput
		}
		ratio := rec.Hours / float64(rec.Sessions)
		if input.HoursPerSession != nil {
			ratio = *input.HoursPerSession
		}
		if input.Sessions != nil {
			rec.Sessions = *input.Sessions
		}
		rec.Hours = float64(rec.Sessions) * ratio
		rec.TotalAmount = truncAmount(rec.Hours, rec.PricePerHour)
	}

	if input.StartTime != nil {
		rec.StartTime = input.StartTime
	}
	if input.EndTime != nil {
		rec.EndTime = input.EndTime
	}
	if err := recalcHoursFromTime(rec); err != nil {
		return nil, err
	}

	if input.Status != nil {
		applyStatusChange(rec, *input.Status, s.now())
	}

	updated, err := s.writeChecked(ctx, rec, tutorID)
	if err != nil {
		return nil, err
	}

	s.afterMutation(updated, "session.rescheduled")
	return s.records.GetView(ctx, updated.ID, tutorID)
}

// TogglePayment flips a record between PAID and COMPLETED. Both directions
// are always legal regardless of prior status, so this path intentionally
// never consults the transition table.
func (s *SessionRecordService) TogglePayment(ctx context.Context, actorID int64, role string, id int64, expectedVersion int) (*models.SessionRecordView, error) {
	tutorID, err := resolveTutorID(role, actorID)
	if err != nil {
		return nil, err
	}

	rec, err := s.loadChecked(ctx, id, tutorID, expectedVersion)
	if err != nil {
		return nil, err
	}

	eventType := "session.paid"
	if !rec.Paid {
		applyStatusChange(rec, models.StatusPaid, s.now())
	} else {
		applyStatusChange(rec, models.StatusCompleted, s.now())
		rec.Paid = false
		rec.PaidAt = nil
		eventType = "session.payment_reverted"
	}

	updated, err := s.writeChecked(ctx, rec, tutorID)
	if err != nil {
		return nil, err
	}

	s.afterMutation(updated, eventType)
	return s.records.GetView(ctx, updated.ID, tutorID)
}

// UpdateStatus is the strict status path: the requested edge must be legal
// per the transition table.
func (s *SessionRecordService) UpdateStatus(ctx context.Context, actorID int64, role string, id int64, expectedVersion int, target models.LessonStatus) (*models.SessionRecordView, error) {
	tutorID, err := resolveTutorID(role, actorID)
	if err != nil {
		return nil, err
	}

	rec, err := s.loadChecked(ctx, id, tutorID, expectedVersion)
	if err != nil {
		return nil, err
	}
	if err := ValidateTransition(rec.Status, target); err != nil {
		return nil, err
	}

	applyStatusChange(rec, target, s.now())

	updated, err := s.writeChecked(ctx, rec, tutorID)
	if err != nil {
		return nil, err
	}

	s.afterMutation(updated, "session.status_changed")
	return s.records.GetView(ctx, updated.ID, tutorID)
}

// Duplicate copies a record into a fresh SCHEDULED one. Duplication is not an
// edit of the original, so there is no version check; the date advances one
// week unless an explicit anchor is given.
func (s *SessionRecordService) Duplicate(ctx context.Context, actorID int64, role string, id int64, anchorDate *time.Time) (*models.SessionRecordView, error) {
	tutorID, err := resolveTutorID(role, actorID)
	if err != nil {
		return nil, err
	}

	original, err := s.records.GetByID(ctx, id, tutorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	newDate := original.SessionDate.AddDate(0, 0, 7)
	if anchorDate != nil {
		newDate = *anchorDate
	}

	created, err := s.records.Create(ctx, repository.CreateSessionRecordInput{
		StudentID:    original.StudentID,
		TutorID:      original.TutorID,
		Month:        newDate.Format("2006-01"),
		Sessions:     original.Sessions,
		Hours:        original.Hours,
		PricePerHour: original.PricePerHour,
		TotalAmount:  original.TotalAmount,
		Status:       models.StatusScheduled,
		SessionDate:  newDate,
		StartTime:    original.StartTime,
		EndTime:      original.EndTime,
		Subject:      original.Subject,
		Notes:        original.Notes,
	})
	if err != nil {
		return nil, err
	}

	s.afterMutation(created, "session.created")
	return s.records.GetView(ctx, created.ID, tutorID)
}

func (s *SessionRecordService) Delete(ctx context.Context, actorID int64, role string, id int64) error {
	tutorID, err := resolveTutorID(role, actorID)
	if err != nil {
		return err
	}
	if err := s.records.Delete(ctx, id, tutorID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	s.afterMutation(&models.SessionRecord{ID: id}, "session.deleted")
	return nil
}

func (s *SessionRecordService) Get(ctx context.Context, actorID int64, role string, id int64) (*models.SessionRecordView, error) {
	tutorID, err := resolveTutorID(role, actorID)
	if err != nil {
		return nil, err
	}
	view, err := s.records.GetView(ctx, id, tutorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return view, nil
}

func (s *SessionRecordService) List(ctx context.Context, actorID int64, role string, filter repository.SessionRecordFilter) ([]models.SessionRecordView, int, error) {
	tutorID, err := resolveTutorID(role, actorID)
	if err != nil {
		return nil, 0, err
	}
	filter.TutorID = tutorID
	return s.records.List(ctx, filter)
}

func (s *SessionRecordService) DistinctMonths(ctx context.Context, actorID int64, role string) ([]string, error) {
	tutorID, err := resolveTutorID(role, actorID)
	if err != nil {
		return nil, err
	}
	return s.records.DistinctMonths(ctx, tutorID)
}

func (s *SessionRecordService) ListByStudentAndMonth(ctx context.Context, actorID int64, role string, studentID int64, month string) ([]models.SessionRecordView, error) {
	tutorID, err := resolveTutorID(role, actorID)
	if err != nil {
		return nil, err
	}
	student, err := s.students.GetByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStudentNotFound
		}
		return nil, err
	}
	if tutorID != 0 && student.TutorID != tutorID {
		return nil, ErrForbidden
	}
	return s.records.ListByStudentAndMonth(ctx, studentID, month)
}

// loadChecked loads an ownership-scoped record and enforces the optimistic
// version precheck before any field is touched.
func (s *SessionRecordService) loadChecked(ctx context.Context, id, tutorID int64, expectedVersion int) (*models.SessionRecord, error) {
	rec, err := s.records.GetByID(ctx, id, tutorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if rec.Version != expectedVersion {
		return nil, &ConflictError{Expected: expectedVersion, Actual: rec.Version}
	}
	return rec, nil
}

// writeChecked performs the conditional write. A miss means another writer
// got there between the precheck and the write; the stored version is
// re-read so the conflict error carries the real number.
func (s *SessionRecordService) writeChecked(ctx context.Context, rec *models.SessionRecord, tutorID int64) (*models.SessionRecord, error) {
	updated, err := s.records.UpdateIfVersion(ctx, rec)
	if err == nil {
		return updated, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	current, readErr := s.records.GetByID(ctx, rec.ID, tutorID)
	if readErr != nil {
		if errors.Is(readErr, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, readErr
	}
	return nil, &ConflictError{Expected: rec.Version, Actual: current.Version}
}

// afterMutation fires the side channels. Both are best-effort: a failed
// publish or evict never fails the mutation that triggered it.
func (s *SessionRecordService) afterMutation(rec *models.SessionRecord, eventType string) {
	if s.cache != nil {
		s.cache.Evict(CacheTagDashboardStats, CacheTagMonthlyStats)
	}
	if s.publisher == nil {
		return
	}
	n := Notification{
		Type:        eventType,
		SessionID:   rec.ID,
		StudentID:   rec.StudentID,
		SessionDate: rec.SessionDate.Format("2006-01-02"),
		OccurredAt:  s.now(),
		Recipients:  []int64{rec.TutorID},
	}
	if rec.Subject != nil {
		n.Subject = *rec.Subject
	}
	if rec.StartTime != nil {
		n.StartTime = *rec.StartTime
	}
	if err := s.publisher.Publish(n); err != nil {
		log.Printf("publish %s for session %d: %v", eventType, rec.ID, err)
	}
}

func applyStatusChange(rec *models.SessionRecord, next models.LessonStatus, now time.Time) {
	rec.Status = next
	switch next {
	case models.StatusPaid:
		rec.Paid = true
		rec.Completed = true
		if rec.PaidAt == nil {
			rec.PaidAt = &now
		}
	case models.StatusCompleted, models.StatusPendingPayment:
		rec.Completed = true
	}
}

// recalcHoursFromTime derives hours and amount from the time-of-day range
// when both ends are present. An end before the start spans midnight.
func recalcHoursFromTime(rec *models.SessionRecord) error {
	if rec.StartTime == nil || rec.EndTime == nil {
		return nil
	}
	hours, err := hoursFromRange(*rec.StartTime, *rec.EndTime)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if hours > 0 {
		rec.Hours = hours
		rec.TotalAmount = truncAmount(hours, rec.PricePerHour)
	}
	return nil
}

func hoursFromRange(start, end string) (float64, error) {
	startAt, err := time.Parse("15:04", start)
	if err != nil {
		return 0, err
	}
	endAt, err := time.Parse("15:04", end)
	if err != nil {
		return 0, err
	}
	minutes := endAt.Sub(startAt).Minutes()
	if minutes < 0 {
		minutes += 24 * 60
	}
	return minutes / 60, nil
}

func truncAmount(hours float64, pricePerHour int64) int64 {
	return int64(hours * float64(pricePerHour))
}
