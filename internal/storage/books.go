// file: internal/storage/books.go
// version: 1.2.0
// guid: 7e5f0a1b-3c4d-4e6f-8a9b-0c1d2e3f4a5b

package storage

import (
	"encoding/json"
	"strings"
	"time"

	ulid "github.com/oklog/ulid/v2"

	"github.com/booktrackapp/booktrack/internal/metrics"
	"github.com/booktrackapp/booktrack/internal/models"
)

// Sync status tags on stored book records.
const (
	SyncPending = "pending"
	SyncSynced  = "synced"
)

// storedBook is the on-disk record shape: the public book plus engine
// bookkeeping. The bookkeeping never leaves this package.
type storedBook struct {
	models.Book
	LastUpdated time.Time `json:"last_updated"`
	SyncStatus  string    `json:"sync_status"`
	Deleted     bool      `json:"deleted"`
}

// BookStore is the record adapter for the books store. All read paths filter
// soft-deleted rows here, in one place, so no call site can forget it.
type BookStore struct {
	engine *Engine
}

// NewBookStore creates the books adapter on top of the generic engine.
func NewBookStore(engine *Engine) *BookStore {
	return &BookStore{engine: engine}
}

// GetBooks returns every live book with bookkeeping stripped.
func (s *BookStore) GetBooks() ([]models.Book, error) {
	raw, err := s.engine.GetAll(StoreBooks)
	if err != nil {
		return nil, err
	}

	books := []models.Book{}
	for _, data := range raw {
		var rec storedBook
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, wrap(ErrUnknown, "decode book record", err)
		}
		if rec.Deleted {
			continue
		}
		books = append(books, rec.Book)
	}
	return books, nil
}

// GetBookByID returns a live book, or nil when the id is absent or the
// record is soft-deleted. Absence is not an error.
func (s *BookStore) GetBookByID(id string) (*models.Book, error) {
	data, ok, err := s.engine.GetByID(StoreBooks, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	var rec storedBook
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, wrap(ErrUnknown, "decode book record", err)
	}
	if rec.Deleted {
		return nil, nil
	}
	book := rec.Book
	return &book, nil
}

// prepare validates a book and stamps the bookkeeping fields for a write.
func (s *BookStore) prepare(book *models.Book) (*storedBook, error) {
	if book == nil {
		return nil, wrap(ErrValidation, "book is nil", nil)
	}
	if strings.TrimSpace(book.Title) == "" {
		return nil, wrap(ErrValidation, "book title is required", nil)
	}

	b := *book
	if b.ID == "" {
		b.ID = ulid.Make().String()
	}
	return &storedBook{
		Book:        b,
		LastUpdated: time.Now(),
		SyncStatus:  SyncPending,
	}, nil
}

// SaveBook creates or updates one book: assigns an id if absent, stamps
// last_updated, and tags the record pending.
func (s *BookStore) SaveBook(book *models.Book) (*models.Book, error) {
	rec, err := s.prepare(book)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, wrap(ErrUnknown, "encode book record", err)
	}
	if err := s.engine.Put(StoreBooks, rec.ID, data); err != nil {
		return nil, err
	}

	metrics.IncBooksSaved(1)
	saved := rec.Book
	return &saved, nil
}

// SaveBooks writes all books inside one atomic batch: either every book is
// persisted or none are. A validation failure on any element means nothing
// commits.
func (s *BookStore) SaveBooks(books []models.Book) ([]models.Book, error) {
	batch := s.engine.Batch()
	defer batch.Close()

	saved := make([]models.Book, 0, len(books))
	for i := range books {
		rec, err := s.prepare(&books[i])
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(rec)
		if err != nil {
			return nil, wrap(ErrUnknown, "encode book record", err)
		}
		if err := batch.Put(StoreBooks, rec.ID, data); err != nil {
			return nil, wrap(ErrTransactionFailed, "stage book "+rec.ID, err)
		}
		saved = append(saved, rec.Book)
	}

	if err := batch.Commit(); err != nil {
		return nil, err
	}
	metrics.IncBooksSaved(len(saved))
	return saved, nil
}

// DeleteBook soft-deletes: the record stays on disk flagged deleted and
// disappears from every read. Deleting an absent or already-deleted id is a
// no-op success.
func (s *BookStore) DeleteBook(id string) error {
	data, ok, err := s.engine.GetByID(StoreBooks, id)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	var rec storedBook
	if err := json.Unmarshal(data, &rec); err != nil {
		return wrap(ErrUnknown, "decode book record", err)
	}
	if rec.Deleted {
		return nil
	}

	rec.Deleted = true
	rec.LastUpdated = time.Now()
	rec.SyncStatus = SyncPending
	out, err := json.Marshal(&rec)
	if err != nil {
		return wrap(ErrUnknown, "encode book record", err)
	}
	if err := s.engine.Put(StoreBooks, id, out); err != nil {
		return err
	}

	metrics.IncBooksSoftDeleted(1)
	return nil
}

// DeleteBooks soft-deletes a set of ids in one atomic batch. Missing ids are
// skipped, not errors.
func (s *BookStore) DeleteBooks(ids []string) error {
	batch := s.engine.Batch()
	defer batch.Close()

	now := time.Now()
	deleted := 0
	for _, id := range ids {
		data, ok, err := s.engine.GetByID(StoreBooks, id)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		var rec storedBook
		if err := json.Unmarshal(data, &rec); err != nil {
			return wrap(ErrUnknown, "decode book record", err)
		}
		if rec.Deleted {
			continue
		}
		rec.Deleted = true
		rec.LastUpdated = now
		rec.SyncStatus = SyncPending
		out, err := json.Marshal(&rec)
		if err != nil {
			return wrap(ErrUnknown, "encode book record", err)
		}
		if err := batch.Put(StoreBooks, id, out); err != nil {
			return wrap(ErrTransactionFailed, "stage delete "+id, err)
		}
		deleted++
	}

	if err := batch.Commit(); err != nil {
		return err
	}
	metrics.IncBooksSoftDeleted(deleted)
	return nil
}

// CountBooks counts live books only.
func (s *BookStore) CountBooks() (int, error) {
	books, err := s.GetBooks()
	if err != nil {
		return 0, err
	}
	return len(books), nil
}

// ListSoftDeleted returns books awaiting compaction, for maintenance and
// debug tooling.
func (s *BookStore) ListSoftDeleted() ([]models.Book, error) {
	raw, err := s.engine.GetAll(StoreBooks)
	if err != nil {
		return nil, err
	}

	books := []models.Book{}
	for _, data := range raw {
		var rec storedBook
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, wrap(ErrUnknown, "decode book record", err)
		}
		if rec.Deleted {
			books = append(books, rec.Book)
		}
	}
	return books, nil
}

// CompactDeleted physically removes soft-deleted records in one batch and
// returns how many were dropped.
func (s *BookStore) CompactDeleted() (int, error) {
	stale, err := s.ListSoftDeleted()
	if err != nil {
		return 0, err
	}
	if len(stale) == 0 {
		return 0, nil
	}

	batch := s.engine.Batch()
	defer batch.Close()
	for _, book := range stale {
		if err := batch.Delete(StoreBooks, book.ID); err != nil {
			return 0, wrap(ErrTransactionFailed, "stage compact "+book.ID, err)
		}
	}
	if err := batch.Commit(); err != nil {
		return 0, err
	}
	return len(stale), nil
}
