package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/longtq2501/Tutor-Pro-sub001/internal/models"
	"github.com/longtq2501/Tutor-Pro-sub001/internal/repository"
)

// fakeRecordStore keeps records in memory and mirrors the repository's
// conditional write: an update commits only when the stored version still
// matches, under a lock so concurrent callers serialize the same way the
// database serializes the UPDATE.
type fakeRecordStore struct {
	mu      sync.Mutex
	nextID  int64
	records map[int64]models.SessionRecord
}

func newFakeRecordStore() *fakeRecordStore {
	return &fakeRecordStore{nextID: 1, records: make(map[int64]models.SessionRecord)}
}

func (f *fakeRecordStore) Create(_ context.Context, input repository.CreateSessionRecordInput) (*models.SessionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec := models.SessionRecord{
		ID:           f.nextID,
		StudentID:    input.StudentID,
		TutorID:      input.TutorID,
		Month:        input.Month,
		Sessions:     input.Sessions,
		Hours:        input.Hours,
		PricePerHour: input.PricePerHour,
		TotalAmount:  input.TotalAmount,
		Paid:         input.Paid,
		PaidAt:       input.PaidAt,
		Completed:    input.Completed,
		Status:       input.Status,
		SessionDate:  input.SessionDate,
		StartTime:    input.StartTime,
		EndTime:      input.EndTime,
		Subject:      input.Subject,
		Notes:        input.Notes,
	}
	f.nextID++
	f.records[rec.ID] = rec
	copied := rec
	return &copied, nil
}

func (f *fakeRecordStore) GetByID(_ context.Context, id, tutorID int64) (*models.SessionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[id]
	if !ok || (tutorID != 0 && rec.TutorID != tutorID) {
		return nil, pgx.ErrNoRows
	}
	copied := rec
	return &copied, nil
}

func (f *fakeRecordStore) GetView(ctx context.Context, id, tutorID int64) (*models.SessionRecordView, error) {
	rec, err := f.GetByID(ctx, id, tutorID)
	if err != nil {
		return nil, err
	}
	return &models.SessionRecordView{SessionRecord: *rec}, nil
}

func (f *fakeRecordStore) List(_ context.Context, _ repository.SessionRecordFilter) ([]models.SessionRecordView, int, error) {
	return nil, 0, nil
}

func (f *fakeRecordStore) ListByStudentAndMonth(_ context.Context, _ int64, _ string) ([]models.SessionRecordView, error) {
	return nil, nil
}

func (f *fakeRecordStore) DistinctMonths(_ context.Context, _ int64) ([]string, error) {
	return nil, nil
}

func (f *fakeRecordStore) UpdateIfVersion(_ context.Context, rec *models.SessionRecord) (*models.SessionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	current, ok := f.records[rec.ID]
	if !ok || current.Version != rec.Version {
		return nil, pgx.ErrNoRows
	}
	updated := *rec
	updated.Version = current.Version + 1
	f.records[rec.ID] = updated
	copied := updated
	return &copied, nil
}

func (f *fakeRecordStore) Delete(_ context.Context, id, tutorID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[id]
	if !ok || (tutorID != 0 && rec.TutorID != tutorID) {
		return pgx.ErrNoRows
	}
	delete(f.records, id)
	return nil
}

type fakeStudentReader struct {
	students map[int64]models.Student
}

func (f *fakeStudentReader) GetByID(_ context.Context, id int64) (*models.Student, error) {
	student, ok := f.students[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := student
	return &copied, nil
}

func newRecordService(store *fakeRecordStore) *SessionRecordService {
	students := &fakeStudentReader{students: map[int64]models.Student{
		3: {ID: 3, TutorID: 42, Name: "Minh", PricePerHour: 200000},
	}}
	return NewSessionRecordService(store, students, nil, nil)
}

func strPtr(s string) *string { return &s }

func TestCreateTruncatesTotalAmount(t *testing.T) {
	store := newFakeRecordStore()
	svc := newRecordService(store)

	// 1.5h at 33333/h is 49999.5 and must truncate to 49999, not round up.
	svc2 := NewSessionRecordService(store, &fakeStudentReader{students: map[int64]models.Student{
		4: {ID: 4, TutorID: 42, PricePerHour: 33333},
	}}, nil, nil)

	view, err := svc.Create(context.Background(), 42, "tutor", CreateSessionInput{
		StudentID:       3,
		SessionDate:     time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		Sessions:        3,
		HoursPerSession: 1.25,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if view.TotalAmount != 750000 {
		t.Fatalf("expected 750000, got %d", view.TotalAmount)
	}

	view2, err := svc2.Create(context.Background(), 42, "tutor", CreateSessionInput{
		StudentID:       4,
		SessionDate:     time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		Sessions:        1,
		HoursPerSession: 1.5,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if view2.TotalAmount != 49999 {
		t.Fatalf("expected truncation to 49999, got %d", view2.TotalAmount)
	}
}

func TestCreateDerivesMonthAndDefaultStatus(t *testing.T) {
	store := newFakeRecordStore()
	svc := newRecordService(store)

	view, err := svc.Create(context.Background(), 42, "tutor", CreateSessionInput{
		StudentID:       3,
		SessionDate:     time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		Sessions:        2,
		HoursPerSession: 1,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if view.Month != "2026-03" {
		t.Fatalf("expected derived month 2026-03, got %q", view.Month)
	}
	if view.Status != models.StatusScheduled {
		t.Fatalf("expected SCHEDULED default, got %q", view.Status)
	}
	if view.Version != 0 {
		t.Fatalf("expected fresh records at version 0, got %d", view.Version)
	}
}

func TestCreateForbidsForeignStudent(t *testing.T) {
	store := newFakeRecordStore()
	svc := newRecordService(store)

	_, err := svc.Create(context.Background(), 99, "tutor", CreateSessionInput{
		StudentID:       3,
		SessionDate:     time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		Sessions:        1,
		HoursPerSession: 1,
	})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestUpdateRecomputesFromTimeRange(t *testing.T) {
	store := newFakeRecordStore()
	svc := newRecordService(store)

	created, err := svc.Create(context.Background(), 42, "tutor", CreateSessionInput{
		StudentID:       3,
		SessionDate:     time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		Sessions:        1,
		HoursPerSession: 1,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// 23:00 to 01:00 spans midnight, so the range is 2 hours.
	updated, err := svc.Update(context.Background(), 42, "tutor", created.ID, UpdateSessionInput{
		ExpectedVersion: 0,
		StartTime:       strPtr("23:00"),
		EndTime:         strPtr("01:00"),
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Hours != 2 {
		t.Fatalf("expected 2 hours from wrapped range, got %v", updated.Hours)
	}
	if updated.TotalAmount != 400000 {
		t.Fatalf("expected 400000, got %d", updated.TotalAmount)
	}
	if updated.Version != 1 {
		t.Fatalf("expected version 1 after one write, got %d", updated.Version)
	}
}

func TestUpdateScalesAmountWithSessions(t *testing.T) {
	store := newFakeRecordStore()
	svc := newRecordService(store)

	created, err := svc.Create(context.Background(), 42, "tutor", CreateSessionInput{
		StudentID:       3,
		SessionDate:     time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		Sessions:        2,
		HoursPerSession: 1.5,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	sessions := 4
	updated, err := svc.Update(context.Background(), 42, "tutor", created.ID, UpdateSessionInput{
		ExpectedVersion: 0,
		Sessions:        &sessions,
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Hours != 6 {
		t.Fatalf("expected hours to scale to 6, got %v", updated.Hours)
	}
	if updated.TotalAmount != 1200000 {
		t.Fatalf("expected 1200000, got %d", updated.TotalAmount)
	}
}

func TestUpdateStatusRejectsIllegalEdge(t *testing.T) {
	store := newFakeRecordStore()
	svc := newRecordService(store)

	created, err := svc.Create(context.Background(), 42, "tutor", CreateSessionInput{
		StudentID:       3,
		SessionDate:     time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		Sessions:        1,
		HoursPerSession: 1,
		Status:          models.StatusPaid,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	_, err = svc.UpdateStatus(context.Background(), 42, "tutor", created.ID, 0, models.StatusScheduled)
	var transitionErr *InvalidTransitionError
	if !errors.As(err, &transitionErr) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}
}

func TestUpdateStatusDerivesFlags(t *testing.T) {
	store := newFakeRecordStore()
	svc := newRecordService(store)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	created, err := svc.Create(context.Background(), 42, "tutor", CreateSessionInput{
		StudentID:       3,
		SessionDate:     time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		Sessions:        1,
		HoursPerSession: 1,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	completed, err := svc.UpdateStatus(context.Background(), 42, "tutor", created.ID, 0, models.StatusCompleted)
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if !completed.Completed || completed.Paid {
		t.Fatalf("expected completed unpaid, got completed=%v paid=%v", completed.Completed, completed.Paid)
	}

	paid, err := svc.UpdateStatus(context.Background(), 42, "tutor", created.ID, 1, models.StatusPaid)
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if !paid.Paid || !paid.Completed {
		t.Fatalf("expected paid and completed, got paid=%v completed=%v", paid.Paid, paid.Completed)
	}
	if paid.PaidAt == nil || !paid.PaidAt.Equal(now) {
		t.Fatalf("expected paid_at %v, got %v", now, paid.PaidAt)
	}
}

// TogglePayment moves between PAID and COMPLETED in both directions even
// though PAID has no outgoing edges in the transition table.
func TestTogglePaymentBypassesTransitionTable(t *testing.T) {
	store := newFakeRecordStore()
	svc := newRecordService(store)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	created, err := svc.Create(context.Background(), 42, "tutor", CreateSessionInput{
		StudentID:       3,
		SessionDate:     time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		Sessions:        1,
		HoursPerSession: 1,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	paid, err := svc.TogglePayment(context.Background(), 42, "tutor", created.ID, 0)
	if err != nil {
		t.Fatalf("TogglePayment: %v", err)
	}
	if paid.Status != models.StatusPaid || !paid.Paid || paid.PaidAt == nil {
		t.Fatalf("expected PAID record, got %+v", paid.SessionRecord)
	}

	reverted, err := svc.TogglePayment(context.Background(), 42, "tutor", created.ID, 1)
	if err != nil {
		t.Fatalf("TogglePayment revert: %v", err)
	}
	if reverted.Status != models.StatusCompleted || reverted.Paid {
		t.Fatalf("expected COMPLETED unpaid record, got %+v", reverted.SessionRecord)
	}
	if reverted.PaidAt != nil {
		t.Fatalf("expected paid_at to clear on revert, got %v", reverted.PaidAt)
	}
}

func TestConcurrentTogglePaymentHasSingleWinner(t *testing.T) {
	store := newFakeRecordStore()
	svc := newRecordService(store)

	created, err := svc.Create(context.Background(), 42, "tutor", CreateSessionInput{
		StudentID:       3,
		SessionDate:     time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		Sessions:        1,
		HoursPerSession: 1,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	const writers = 8
	var wg sync.WaitGroup
	results := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.TogglePayment(context.Background(), 42, "tutor", created.ID, 0)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	wins, conflicts := 0, 0
	for err := range results {
		switch {
		case err == nil:
			wins++
		default:
			var conflict *ConflictError
			if !errors.As(err, &conflict) {
				t.Fatalf("expected ConflictError, got %v", err)
			}
			conflicts++
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins)
	}
	if conflicts != writers-1 {
		t.Fatalf("expected %d conflicts, got %d", writers-1, conflicts)
	}

	final, err := store.GetByID(context.Background(), created.ID, 42)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if final.Version != 1 {
		t.Fatalf("expected a single version bump, got %d", final.Version)
	}
}

func TestUpdateConflictReportsActualVersion(t *testing.T) {
	store := newFakeRecordStore()
	svc := newRecordService(store)

	created, err := svc.Create(context.Background(), 42, "tutor", CreateSessionInput{
		StudentID:       3,
		SessionDate:     time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		Sessions:        1,
		HoursPerSession: 1,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.TogglePayment(context.Background(), 42, "tutor", created.ID, 0); err != nil {
		t.Fatalf("TogglePayment: %v", err)
	}

	notes := "rescheduled"
	_, err = svc.Update(context.Background(), 42, "tutor", created.ID, UpdateSessionInput{
		ExpectedVersion: 0,
		Notes:           &notes,
	})
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if conflict.Expected != 0 || conflict.Actual != 1 {
		t.Fatalf("unexpected conflict versions: %+v", conflict)
	}
}

func TestDuplicateAdvancesOneWeek(t *testing.T) {
	store := newFakeRecordStore()
	svc := newRecordService(store)

	created, err := svc.Create(context.Background(), 42, "tutor", CreateSessionInput{
		StudentID:       3,
		SessionDate:     time.Date(2026, 3, 28, 0, 0, 0, 0, time.UTC),
		Sessions:        2,
		HoursPerSession: 1.5,
		Status:          models.StatusPaid,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	dup, err := svc.Duplicate(context.Background(), 42, "tutor", created.ID, nil)
	if err != nil {
		t.Fatalf("Duplicate: %v", err)
	}
	wantDate := time.Date(2026, 4, 4, 0, 0, 0, 0, time.UTC)
	if !dup.SessionDate.Equal(wantDate) {
		t.Fatalf("expected %v, got %v", wantDate, dup.SessionDate)
	}
	if dup.Month != "2026-04" {
		t.Fatalf("expected month to follow the new date, got %q", dup.Month)
	}
	if dup.Status != models.StatusScheduled || dup.Paid {
		t.Fatalf("expected a fresh SCHEDULED copy, got status=%q paid=%v", dup.Status, dup.Paid)
	}
	if dup.ID == created.ID {
		t.Fatal("expected a new record")
	}
}

func TestResolveTutorID(t *testing.T) {
	if id, err := resolveTutorID("admin", 7); err != nil || id != 0 {
		t.Fatalf("admin: got %d, %v", id, err)
	}
	if id, err := resolveTutorID("tutor", 7); err != nil || id != 7 {
		t.Fatalf("tutor: got %d, %v", id, err)
	}
	if _, err := resolveTutorID("student", 7); !errors.Is(err, ErrForbidden) {
		t.Fatalf("student: expected ErrForbidden, got %v", err)
	}
}
