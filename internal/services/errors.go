package services

import (
	"errors"
	"fmt"

	"github.com/longtq2501/Tutor-Pro-sub001/internal/models"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidInput    = errors.New("invalid input")
	ErrStudentNotFound = errors.New("student not found")
	ErrRoomEnded       = errors.New("room already ended")
	ErrAlreadyOnline   = errors.New("session already online")
	ErrNotConvertible  = errors.New("session cannot be converted")
)

// ConflictError reports an optimistic-version mismatch. The write was not
// applied; callers are expected to refetch and retry.
type ConflictError struct {
	Expected int
	Actual   int
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("record changed by another user: expected version %d, stored version %d", e.Expected, e.Actual)
}

// InvalidTransitionError reports a status edge rejected by the transition
// table, carrying the allowed-next set for user-facing guidance.
type InvalidTransitionError struct {
	From    models.LessonStatus
	To      models.LessonStatus
	Allowed []models.LessonStatus
}

func (e *InvalidTransitionError) Error() string {
	if len(e.Allowed) == 0 {
		return fmt.Sprintf("cannot change status from %s to %s: %s is terminal", e.From, e.To, e.From)
	}
	return fmt.Sprintf("cannot change status from %s to %s: allowed next states are %v", e.From, e.To, e.Allowed)
}
