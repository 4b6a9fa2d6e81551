package models

import "fmt"

// LessonStatus is the lifecycle state of a session record. The status column
// is authoritative; the paid/completed booleans are denormalized from it.
type LessonStatus string

const (
	StatusScheduled          LessonStatus = "SCHEDULED"
	StatusConfirmed          LessonStatus = "CONFIRMED"
	StatusCompleted          LessonStatus = "COMPLETED"
	StatusPendingPayment     LessonStatus = "PENDING_PAYMENT"
	StatusPaid               LessonStatus = "PAID"
	StatusCancelledByStudent LessonStatus = "CANCELLED_BY_STUDENT"
	StatusCancelledByTutor   LessonStatus = "CANCELLED_BY_TUTOR"
)

func AllLessonStatuses() []LessonStatus {
	return []LessonStatus{
		StatusScheduled,
		StatusConfirmed,
		StatusCompleted,
		StatusPendingPayment,
		StatusPaid,
		StatusCancelledByStudent,
		StatusCancelledByTutor,
	}
}

func ParseLessonStatus(s string) (LessonStatus, error) {
	status := LessonStatus(s)
	for _, known := range AllLessonStatuses() {
		if status == known {
			return status, nil
		}
	}
	return "", fmt.Errorf("unknown lesson status %q", s)
}

// RoomStatus is the lifecycle state of an online session room.
type RoomStatus string

const (
	RoomWaiting RoomStatus = "WAITING"
	RoomActive  RoomStatus = "ACTIVE"
	RoomEnded   RoomStatus = "ENDED"
)
