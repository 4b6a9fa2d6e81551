package models

import "time"

// Student is owned by a tutor; PricePerHour is the student's current rate in
// whole currency units and is the source for new session record amounts.
type Student struct {
	ID           int64     `json:"id"`
	TutorID      int64     `json:"tutor_id"`
	Name         string    `json:"name"`
	PricePerHour int64     `json:"price_per_hour"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
