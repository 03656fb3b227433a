// file: internal/storage/manager_test.go
// version: 1.0.0
// guid: 6d7e8f9a-0b1c-4d2e-9f3a-4b5c6d7e8f9a

package storage

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	ulid "github.com/oklog/ulid/v2"
)

// TestManagerOpenIsIdempotent tests that repeated opens return one handle
func TestManagerOpenIsIdempotent(t *testing.T) {
	// Arrange
	tmpdir := "/tmp/test_pebble_" + ulid.Make().String()
	defer os.RemoveAll(tmpdir)
	manager := NewManager(tmpdir)
	defer manager.Close()

	// Act
	db1, err := manager.Open(context.Background())
	if err != nil {
		t.Fatalf("First open failed: %v", err)
	}
	db2, err := manager.Open(context.Background())

	// Assert
	if err != nil {
		t.Fatalf("Second open failed: %v", err)
	}
	if db1 != db2 {
		t.Error("Expected both opens to return the same handle")
	}
}

// TestManagerConcurrentOpenCollapses tests that racing opens share one handle
func TestManagerConcurrentOpenCollapses(t *testing.T) {
	// Arrange
	tmpdir := "/tmp/test_pebble_" + ulid.Make().String()
	defer os.RemoveAll(tmpdir)
	manager := NewManager(tmpdir)
	defer manager.Close()

	// Act
	const goroutines = 8
	handles := make([]any, goroutines)
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			db, err := manager.Open(context.Background())
			if err != nil {
				t.Errorf("Concurrent open %d failed: %v", idx, err)
				return
			}
			handles[idx] = db
		}(i)
	}
	wg.Wait()

	// Assert
	for i := 1; i < goroutines; i++ {
		if handles[i] != handles[0] {
			t.Fatalf("Goroutine %d received a different handle", i)
		}
	}
}

// TestManagerCloseAndReopen tests that Close releases the handle cleanly
func TestManagerCloseAndReopen(t *testing.T) {
	// Arrange
	tmpdir := "/tmp/test_pebble_" + ulid.Make().String()
	defer os.RemoveAll(tmpdir)
	manager := NewManager(tmpdir)

	db, err := manager.Open(context.Background())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	engine := NewEngine(db)
	if err := engine.Put(StoreBooks, "b1", []byte("persisted")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	// Act
	if err := manager.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if manager.DB() != nil {
		t.Fatal("Expected nil handle after close")
	}
	db, err = manager.Open(context.Background())
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	defer manager.Close()

	// Assert: data survives the close/reopen cycle
	data, ok, err := NewEngine(db).GetByID(StoreBooks, "b1")
	if err != nil || !ok {
		t.Fatalf("Record lost across reopen (ok=%v, err=%v)", ok, err)
	}
	if string(data) != "persisted" {
		t.Errorf("Unexpected record value after reopen: %s", data)
	}
}

// TestManagerCloseWithoutOpen tests that Close is nil-safe
func TestManagerCloseWithoutOpen(t *testing.T) {
	// Arrange
	manager := NewManager("/tmp/never_opened_" + ulid.Make().String())

	// Act-Assert
	if err := manager.Close(); err != nil {
		t.Errorf("Expected Close on unopened manager to succeed, got: %v", err)
	}
}

// TestManagerOpenCanceledContext tests the context guard on open
func TestManagerOpenCanceledContext(t *testing.T) {
	// Arrange
	tmpdir := "/tmp/test_pebble_" + ulid.Make().String()
	defer os.RemoveAll(tmpdir)
	manager := NewManager(tmpdir)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Act
	_, err := manager.Open(ctx)

	// Assert
	if err == nil {
		manager.Close()
		t.Fatal("Expected open with canceled context to fail")
	}
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Expected ErrConnectionFailed, got: %v", err)
	}
}
