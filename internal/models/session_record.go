package models

import "time"

// SessionRecord is the unit of billing and scheduling. TotalAmount always
// equals trunc(Hours * PricePerHour); Version increments by exactly one on
// every successful write and guards against concurrent edits.
type SessionRecord struct {
	ID           int64        `json:"id"`
	StudentID    int64        `json:"student_id"`
	TutorID      int64        `json:"tutor_id"`
	Month        string       `json:"month"`
	Sessions     int          `json:"sessions"`
	Hours        float64      `json:"hours"`
	PricePerHour int64        `json:"price_per_hour"`
	TotalAmount  int64        `json:"total_amount"`
	Paid         bool         `json:"paid"`
	PaidAt       *time.Time   `json:"paid_at"`
	Completed    bool         `json:"completed"`
	Status       LessonStatus `json:"status"`
	SessionDate  time.Time    `json:"session_date"`
	StartTime    *string      `json:"start_time"`
	EndTime      *string      `json:"end_time"`
	Subject      *string      `json:"subject"`
	Notes        *string      `json:"notes"`
	Version      int          `json:"version"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// SessionRecordView is the read shape returned to callers.
type SessionRecordView struct {
	SessionRecord
	StudentName string `json:"student_name"`
	IsOnline    bool   `json:"is_online"`
}

type PaginationMeta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}
