package services

import "github.com/longtq2501/Tutor-Pro-sub001/internal/models"

// allowedTransitions is the full lifecycle table for session records. PAID and
// both cancelled states are terminal: once money has changed hands or a party
// has cancelled, the record can only be altered through the payment toggle,
// which deliberately bypasses this table.
var allowedTransitions = map[models.LessonStatus][]models.LessonStatus{
	models.StatusScheduled: {
		models.StatusConfirmed,
		models.StatusCompleted,
		models.StatusPaid,
		models.StatusCancelledByStudent,
		models.StatusCancelledByTutor,
	},
	models.StatusConfirmed: {
		models.StatusCompleted,
		models.StatusPaid,
		models.StatusCancelledByStudent,
		models.StatusCancelledByTutor,
	},
	models.StatusCompleted: {
		models.StatusPaid,
		models.StatusPendingPayment,
	},
	models.StatusPendingPayment: {
		models.StatusPaid,
		models.StatusCompleted,
	},
	models.StatusPaid:               {},
	models.StatusCancelledByStudent: {},
	models.StatusCancelledByTutor:   {},
}

// ValidateTransition reports whether from -> to is a legal edge. A same-state
// transition is always a permitted no-op and never consults the table.
func ValidateTransition(from, to models.LessonStatus) error {
	if from == to {
		return nil
	}
	for _, next := range allowedTransitions[from] {
		if next == to {
			return nil
		}
	}
	return &InvalidTransitionError{From: from, To: to, Allowed: AllowedNext(from)}
}

// AllowedNext returns a copy of the allowed-next set for a state.
func AllowedNext(from models.LessonStatus) []models.LessonStatus {
	next := allowedTransitions[from]
	out := make([]models.LessonStatus, len(next))
	copy(out, next)
	return out
}

// IsTerminal reports whether a state has no outgoing transitions.
func IsTerminal(status models.LessonStatus) bool {
	return len(allowedTransitions[status]) == 0
}
