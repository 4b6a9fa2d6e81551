package services

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// PresenceTracker keeps the last heartbeat per (room, user) pair in memory.
// Heartbeats arrive from the room polling loop; a participant counts as
// present while their last beat is within the timeout window. A cron sweep
// drops entries past the retention horizon so rooms that ended without a
// clean disconnect do not pin memory.
type PresenceTracker struct {
	beats     sync.Map
	timeout   time.Duration
	retention time.Duration
	sweepSpec string
	cron      *cron.Cron
	now       func() time.Time
}

func NewPresenceTracker(timeout, retention, sweepEvery time.Duration) *PresenceTracker {
	return &PresenceTracker{
		timeout:   timeout,
		retention: retention,
		sweepSpec: fmt.Sprintf("@every %s", sweepEvery),
		now:       time.Now,
	}
}

func presenceKey(roomID string, userID int64) string {
	return fmt.Sprintf("%s:%d", roomID, userID)
}

func (t *PresenceTracker) Heartbeat(roomID string, userID int64) {
	t.beats.Store(presenceKey(roomID, userID), t.now())
}

func (t *PresenceTracker) IsActive(roomID string, userID int64) bool {
	v, ok := t.beats.Load(presenceKey(roomID, userID))
	if !ok {
		return false
	}
	return t.now().Sub(v.(time.Time)) <= t.timeout
}

func (t *PresenceTracker) Forget(roomID string, userID int64) {
	t.beats.Delete(presenceKey(roomID, userID))
}

// Start schedules the periodic sweep. Safe to call once.
func (t *PresenceTracker) Start() error {
	t.cron = cron.New()
	if _, err := t.cron.AddFunc(t.sweepSpec, t.sweep); err != nil {
		return fmt.Errorf("schedule presence sweep: %w", err)
	}
	t.cron.Start()
	return nil
}

func (t *PresenceTracker) Stop() {
	if t.cron != nil {
		t.cron.Stop()
	}
}

func (t *PresenceTracker) sweep() {
	cutoff := t.now().Add(-t.retention)
	removed := 0
	t.beats.Range(func(key, value any) bool {
		if value.(time.Time).Before(cutoff) {
			t.beats.Delete(key)
			removed++
		}
		return true
	})
	if removed > 0 {
		log.Printf("presence sweep removed %d stale entries", removed)
	}
}
