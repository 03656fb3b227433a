// file: internal/storage/collections_test.go
// version: 1.1.0
// guid: 9a0b1c2d-3e4f-4a5b-8c6d-7e8f9a0b1c2d

package storage

import (
	"errors"
	"testing"
	"time"

	"github.com/booktrackapp/booktrack/internal/models"
)

// TestSaveCollectionAssignsIDAndTimestamps tests creation stamping
func TestSaveCollectionAssignsIDAndTimestamps(t *testing.T) {
	// Arrange
	engine, _, cleanup := setupTestEngine(t)
	defer cleanup()
	collections := NewCollectionStore(engine)

	// Act
	saved, err := collections.SaveCollection(&models.Collection{Name: "Sci-Fi"})

	// Assert
	if err != nil {
		t.Fatalf("Failed to save collection: %v", err)
	}
	if saved.ID == "" {
		t.Error("Expected non-empty collection ID (ULID)")
	}
	if saved.CreatedAt.IsZero() || saved.UpdatedAt.IsZero() {
		t.Error("Expected created_at and updated_at to be stamped")
	}
	if saved.BookIDs == nil {
		t.Error("Expected nil BookIDs to be normalized to an empty slice")
	}
}

// TestSaveCollectionValidation tests the name requirement
func TestSaveCollectionValidation(t *testing.T) {
	// Arrange
	engine, _, cleanup := setupTestEngine(t)
	defer cleanup()
	collections := NewCollectionStore(engine)

	// Act
	_, err := collections.SaveCollection(&models.Collection{Name: "  "})

	// Assert
	if !errors.Is(err, ErrValidation) {
		t.Errorf("Expected ErrValidation for blank name, got: %v", err)
	}
}

// TestUpdateCollectionPreservesCreatedAt tests update stamping
func TestUpdateCollectionPreservesCreatedAt(t *testing.T) {
	// Arrange
	engine, _, cleanup := setupTestEngine(t)
	defer cleanup()
	collections := NewCollectionStore(engine)

	saved, err := collections.SaveCollection(&models.Collection{Name: "Sci-Fi"})
	if err != nil {
		t.Fatalf("Failed to save collection: %v", err)
	}
	created := saved.CreatedAt
	time.Sleep(5 * time.Millisecond)

	// Act: even a caller-mangled CreatedAt is overwritten by the stored one
	saved.Name = "Science Fiction"
	saved.CreatedAt = time.Time{}
	updated, err := collections.SaveCollection(saved)

	// Assert
	if err != nil {
		t.Fatalf("Failed to update collection: %v", err)
	}
	if !updated.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt changed on update: %v -> %v", created, updated.CreatedAt)
	}
	if !updated.UpdatedAt.After(created) {
		t.Error("Expected UpdatedAt to advance on update")
	}
}

// TestGetCollectionsSortedByCreation tests the listing order
func TestGetCollectionsSortedByCreation(t *testing.T) {
	// Arrange
	engine, _, cleanup := setupTestEngine(t)
	defer cleanup()
	collections := NewCollectionStore(engine)

	first, _ := collections.SaveCollection(&models.Collection{Name: "First"})
	time.Sleep(2 * time.Millisecond)
	second, _ := collections.SaveCollection(&models.Collection{Name: "Second"})

	// Act
	all, err := collections.GetCollections()

	// Assert
	if err != nil {
		t.Fatalf("Failed to list collections: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("Expected 2 collections, got %d", len(all))
	}
	if all[0].ID != first.ID || all[1].ID != second.ID {
		t.Error("Collections not ordered oldest first")
	}
}

// TestDeleteCollectionIsHard tests that collection deletes remove the record
func TestDeleteCollectionIsHard(t *testing.T) {
	// Arrange
	engine, _, cleanup := setupTestEngine(t)
	defer cleanup()
	collections := NewCollectionStore(engine)

	saved, _ := collections.SaveCollection(&models.Collection{Name: "Sci-Fi"})

	// Act
	if err := collections.DeleteCollection(saved.ID); err != nil {
		t.Fatalf("Failed to delete collection: %v", err)
	}

	// Assert: gone from disk, not flagged
	if _, ok, _ := engine.GetByID(StoreCollections, saved.ID); ok {
		t.Error("Hard-deleted collection still on disk")
	}
	got, err := collections.GetCollectionByID(saved.ID)
	if err != nil || got != nil {
		t.Errorf("Expected nil for deleted collection, got (%v, %v)", got, err)
	}

	// Absent id is a no-op success
	if err := collections.DeleteCollection("missing"); err != nil {
		t.Errorf("Delete of absent collection failed: %v", err)
	}
}

// TestCollectionKeepsDanglingBookIDs tests that book deletion does not
// cascade into collections
func TestCollectionKeepsDanglingBookIDs(t *testing.T) {
	// Arrange
	engine, _, cleanup := setupTestEngine(t)
	defer cleanup()
	books := NewBookStore(engine)
	collections := NewCollectionStore(engine)

	book, _ := books.SaveBook(&models.Book{Title: "Dune", Author: "Frank Herbert"})
	coll, _ := collections.SaveCollection(&models.Collection{
		Name:    "Favorites",
		BookIDs: []string{book.ID},
	})

	// Act
	books.DeleteBook(book.ID)

	// Assert: the membership list is unchanged; resolution happens at read
	// time in the caller
	got, err := collections.GetCollectionByID(coll.ID)
	if err != nil {
		t.Fatalf("Failed to reload collection: %v", err)
	}
	if len(got.BookIDs) != 1 || got.BookIDs[0] != book.ID {
		t.Errorf("Expected dangling book id to remain, got %v", got.BookIDs)
	}
}
