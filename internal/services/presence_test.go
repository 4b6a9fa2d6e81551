package services

import (
	"testing"
	"time"
)

func TestPresenceHeartbeatAndTimeout(t *testing.T) {
	tracker := NewPresenceTracker(60*time.Second, 2*time.Minute, 5*time.Minute)
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	tracker.now = func() time.Time { return base }

	tracker.Heartbeat("room-1", 42)
	if !tracker.IsActive("room-1", 42) {
		t.Fatal("expected active right after heartbeat")
	}
	if tracker.IsActive("room-1", 7) {
		t.Fatal("expected unknown user to be inactive")
	}
	if tracker.IsActive("room-2", 42) {
		t.Fatal("expected presence to be scoped per room")
	}

	tracker.now = func() time.Time { return base.Add(59 * time.Second) }
	if !tracker.IsActive("room-1", 42) {
		t.Fatal("expected active within the timeout window")
	}

	tracker.now = func() time.Time { return base.Add(61 * time.Second) }
	if tracker.IsActive("room-1", 42) {
		t.Fatal("expected inactive past the timeout window")
	}
}

func TestPresenceHeartbeatRefreshesWindow(t *testing.T) {
	tracker := NewPresenceTracker(60*time.Second, 2*time.Minute, 5*time.Minute)
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	tracker.now = func() time.Time { return base }

	tracker.Heartbeat("room-1", 42)
	tracker.now = func() time.Time { return base.Add(50 * time.Second) }
	tracker.Heartbeat("room-1", 42)

	tracker.now = func() time.Time { return base.Add(100 * time.Second) }
	if !tracker.IsActive("room-1", 42) {
		t.Fatal("expected the later heartbeat to extend the window")
	}
}

func TestPresenceForget(t *testing.T) {
	tracker := NewPresenceTracker(60*time.Second, 2*time.Minute, 5*time.Minute)
	tracker.Heartbeat("room-1", 42)
	tracker.Forget("room-1", 42)
	if tracker.IsActive("room-1", 42) {
		t.Fatal("expected inactive after Forget")
	}
}

func TestPresenceSweepDropsStaleEntries(t *testing.T) {
	tracker := NewPresenceTracker(60*time.Second, 2*time.Minute, 5*time.Minute)
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	tracker.now = func() time.Time { return base }

	tracker.Heartbeat("room-1", 42)
	tracker.Heartbeat("room-1", 7)

	tracker.now = func() time.Time { return base.Add(90 * time.Second) }
	tracker.Heartbeat("room-1", 7)

	tracker.now = func() time.Time { return base.Add(3 * time.Minute) }
	tracker.sweep()

	if _, ok := tracker.beats.Load(presenceKey("room-1", 42)); ok {
		t.Fatal("expected stale entry to be swept")
	}
	if _, ok := tracker.beats.Load(presenceKey("room-1", 7)); !ok {
		t.Fatal("expected recent entry to survive the sweep")
	}
}
