package models

import "time"

// OnlineSession is the live-meeting counterpart of a SessionRecord. Join
// timestamps are set once and never reset; ActualEnd and TotalDurationMinutes
// are written exactly once when the room transitions to ENDED.
type OnlineSession struct {
	ID                   int64      `json:"id"`
	RoomID               string     `json:"room_id"`
	RoomStatus           RoomStatus `json:"room_status"`
	ScheduledStart       time.Time  `json:"scheduled_start"`
	ScheduledEnd         time.Time  `json:"scheduled_end"`
	ActualStart          *time.Time `json:"actual_start"`
	ActualEnd            *time.Time `json:"actual_end"`
	TutorID              int64      `json:"tutor_id"`
	StudentID            int64      `json:"student_id"`
	SessionRecordID      *int64     `json:"session_record_id,omitempty"`
	TutorJoinedAt        *time.Time `json:"tutor_joined_at"`
	StudentJoinedAt      *time.Time `json:"student_joined_at"`
	TotalDurationMinutes *int       `json:"total_duration_minutes"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// RoomStats is the live view of a room, combining the persisted record with
// ephemeral presence.
type RoomStats struct {
	RoomID           string     `json:"room_id"`
	RoomStatus       RoomStatus `json:"room_status"`
	TutorPresent     bool       `json:"tutor_present"`
	StudentPresent   bool       `json:"student_present"`
	ParticipantCount int        `json:"participant_count"`
	ScheduledStart   time.Time  `json:"scheduled_start"`
	ScheduledEnd     time.Time  `json:"scheduled_end"`
	ActualStart      *time.Time `json:"actual_start"`
	ActualEnd        *time.Time `json:"actual_end"`
	TutorJoinedAt    *time.Time `json:"tutor_joined_at"`
	StudentJoinedAt  *time.Time `json:"student_joined_at"`
	DurationMinutes  *int       `json:"duration_minutes"`
}

type GlobalRoomStats struct {
	TotalSessions        int64   `json:"total_sessions"`
	ActiveSessions       int64   `json:"active_sessions"`
	WaitingSessions      int64   `json:"waiting_sessions"`
	EndedSessions        int64   `json:"ended_sessions"`
	TotalDurationMinutes int64   `json:"total_duration_minutes"`
	AverageDuration      float64 `json:"average_session_duration"`
}
