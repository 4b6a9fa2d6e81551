package services

import "time"

// Cache tags invalidated by every successful session mutation. Dashboard
// aggregates are cached under these tags and must never survive an edit.
const (
	CacheTagDashboardStats = "dashboardStats"
	CacheTagMonthlyStats   = "monthlyStats"
)

// Notification is the outbound domain event shape. Recipients are user ids
// the hub should fan out to; they never leave the process boundary as JSON.
type Notification struct {
	Type            string     `json:"type"`
	SessionID       int64      `json:"session_id,omitempty"`
	RoomID          string     `json:"room_id,omitempty"`
	StudentID       int64      `json:"student_id,omitempty"`
	Subject         string     `json:"subject,omitempty"`
	SessionDate     string     `json:"session_date,omitempty"`
	StartTime       string     `json:"start_time,omitempty"`
	DurationMinutes *int      `json:"duration_minutes,omitempty"`
	OccurredAt      time.Time `json:"occurred_at"`
	Recipients      []int64   `json:"-"`
}

// Publisher delivers a notification best-effort. Implementations must not
// block; the caller swallows and logs any error.
type Publisher interface {
	Publish(n Notification) error
}

// CacheEvictor drops cached aggregates by tag.
type CacheEvictor interface {
	Evict(tags ...string)
}
