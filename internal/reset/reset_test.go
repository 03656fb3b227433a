// file: internal/reset/reset_test.go
// version: 1.1.0
// guid: 2d3e4f5a-6b7c-4d8e-9f0a-0b1c2d3e4f5a

package reset

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeMarker is an in-memory MarkerStore
type fakeMarker struct {
	mu   sync.Mutex
	last time.Time
	fail error
}

func (m *fakeMarker) SaveResetMarker(t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.last = t
	return nil
}

func (m *fakeMarker) LoadResetMarker() (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return time.Time{}, m.fail
	}
	return m.last, nil
}

// TestNotifyDeliversToAllListeners tests the fan-out
func TestNotifyDeliversToAllListeners(t *testing.T) {
	// Arrange
	b := NewBroadcaster(nil)
	var mu sync.Mutex
	calls := 0
	for i := 0; i < 3; i++ {
		defer b.AddListener(func(time.Time) {
			mu.Lock()
			calls++
			mu.Unlock()
		})()
	}

	// Act
	b.Notify()

	// Assert
	mu.Lock()
	defer mu.Unlock()
	if calls != 3 {
		t.Errorf("Expected 3 listener calls, got %d", calls)
	}
}

// TestUnregisterIsIdempotent tests the returned unregister closure
func TestUnregisterIsIdempotent(t *testing.T) {
	// Arrange
	b := NewBroadcaster(nil)
	called := false
	unregister := b.AddListener(func(time.Time) { called = true })

	// Act
	unregister()
	unregister() // second call must be safe
	b.Notify()

	// Assert
	if called {
		t.Error("Unregistered listener was still invoked")
	}
	if b.ListenerCount() != 0 {
		t.Errorf("Expected 0 listeners, got %d", b.ListenerCount())
	}
}

// TestUnregisterOnlyRemovesOwnListener tests token isolation
func TestUnregisterOnlyRemovesOwnListener(t *testing.T) {
	// Arrange
	b := NewBroadcaster(nil)
	aCalled, bCalled := false, false
	unregisterA := b.AddListener(func(time.Time) { aCalled = true })
	unregisterB := b.AddListener(func(time.Time) { bCalled = true })
	defer unregisterB()

	// Act
	unregisterA()
	b.Notify()

	// Assert
	if aCalled {
		t.Error("Removed listener was invoked")
	}
	if !bCalled {
		t.Error("Surviving listener was not invoked")
	}
}

// TestNotifyPersistsMarker tests the durable marker write
func TestNotifyPersistsMarker(t *testing.T) {
	// Arrange
	marker := &fakeMarker{}
	b := NewBroadcaster(marker)
	before := time.Now()

	// Act
	b.Notify()

	// Assert
	persisted, _ := marker.LoadResetMarker()
	if persisted.Before(before) {
		t.Errorf("Expected marker at or after %v, got %v", before, persisted)
	}
}

// TestHasBeenResetSince tests the in-process stamp and marker fallback
func TestHasBeenResetSince(t *testing.T) {
	// Arrange
	marker := &fakeMarker{}
	b := NewBroadcaster(marker)
	epoch := time.Now().Add(-time.Hour)

	// No reset yet
	if b.HasBeenResetSince(epoch) {
		t.Error("Expected no reset before any Notify")
	}

	// Act
	b.Notify()

	// Assert: visible via the in-process stamp
	if !b.HasBeenResetSince(epoch) {
		t.Error("Expected reset to be visible after Notify")
	}
	if b.HasBeenResetSince(time.Now().Add(time.Hour)) {
		t.Error("Reset must not be visible for a future reference time")
	}

	// A fresh broadcaster over the same marker sees the durable record
	fresh := NewBroadcaster(marker)
	if !fresh.HasBeenResetSince(epoch) {
		t.Error("Expected durable marker to survive broadcaster restart")
	}
}

// TestNotifySurvivesMarkerFailure tests that persistence errors don't block
// listener delivery
func TestNotifySurvivesMarkerFailure(t *testing.T) {
	// Arrange
	marker := &fakeMarker{fail: errSave}
	b := NewBroadcaster(marker)
	called := false
	defer b.AddListener(func(time.Time) { called = true })()

	// Act
	b.Notify()

	// Assert
	if !called {
		t.Error("Listener skipped because the marker write failed")
	}
	if !b.HasBeenResetSince(time.Now().Add(-time.Minute)) {
		t.Error("In-process stamp missing after marker failure")
	}
}

var errSave = errors.New("marker store unavailable")
