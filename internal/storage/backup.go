// file: internal/storage/backup.go
// version: 1.3.0
// guid: 5b0c1d2e-8f9a-4b3c-9d6e-7f8a9b0c1d2e

package storage

import (
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strconv"
	"time"

	ulid "github.com/oklog/ulid/v2"

	"github.com/booktrackapp/booktrack/internal/metrics"
	"github.com/booktrackapp/booktrack/internal/models"
	"github.com/booktrackapp/booktrack/internal/reset"
)

// autoBackupName tags the safety snapshot taken before a destructive clear.
const autoBackupName = "auto-backup before clear"

// BackupService snapshots the books store into immutable backup records and
// restores the live store from them. Restore and clear are the two bulk
// paths that bypass the per-record adapters.
type BackupService struct {
	engine      *Engine
	books       *BookStore
	collections *CollectionStore
	settings    *SettingsStore
	broadcaster *reset.Broadcaster // optional; bulk operations publish here
}

// NewBackupService wires the maintenance paths. broadcaster may be nil when
// no cache invalidation is needed (tests, one-shot CLI commands).
func NewBackupService(engine *Engine, books *BookStore, collections *CollectionStore, settings *SettingsStore, broadcaster *reset.Broadcaster) *BackupService {
	return &BackupService{
		engine:      engine,
		books:       books,
		collections: collections,
		settings:    settings,
		broadcaster: broadcaster,
	}
}

// CreateBackup serializes every live book into a new backup record and
// returns its metadata (Data stripped). The last-backup stamp on settings is
// best-effort: its failure never fails the backup.
func (s *BackupService) CreateBackup(name string) (*models.BackupRecord, error) {
	books, err := s.books.GetBooks()
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(books)
	if err != nil {
		return nil, wrap(ErrUnknown, "serialize snapshot", err)
	}

	id, err := s.engine.NextID(StoreBackups)
	if err != nil {
		return nil, err
	}

	rec := models.BackupRecord{
		ID:        id,
		Name:      name,
		Timestamp: time.Now(),
		BookCount: len(books),
		Size:      len(payload),
		Data:      payload,
	}
	data, err := json.Marshal(&rec)
	if err != nil {
		return nil, wrap(ErrUnknown, "encode backup record", err)
	}
	if err := s.engine.Put(StoreBackups, strconv.Itoa(id), data); err != nil {
		return nil, err
	}
	metrics.IncBackupsCreated()

	if err := s.settings.UpdateLastBackup(rec.Timestamp); err != nil {
		log.Printf("[WARN] failed to update last backup timestamp: %v", err)
	}

	meta := rec
	meta.Data = nil
	return &meta, nil
}

// GetBackups lists backups newest-first with Data stripped, bounding memory
// no matter how large the snapshots are.
func (s *BackupService) GetBackups() ([]models.BackupRecord, error) {
	raw, err := s.engine.GetAll(StoreBackups)
	if err != nil {
		return nil, err
	}

	backups := []models.BackupRecord{}
	for _, data := range raw {
		var rec models.BackupRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, wrap(ErrUnknown, "decode backup record", err)
		}
		rec.Data = nil
		backups = append(backups, rec)
	}
	sort.Slice(backups, func(i, j int) bool {
		return backups[i].Timestamp.After(backups[j].Timestamp)
	})
	return backups, nil
}

// RestoreBackup replaces the entire books store with the snapshot: clear
// plus reinsert happen in one atomic batch, and the payload is parsed before
// anything is cleared so a corrupt backup leaves the live store intact.
func (s *BackupService) RestoreBackup(id int) (int, error) {
	data, ok, err := s.engine.GetByID(StoreBackups, strconv.Itoa(id))
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, wrap(ErrNotFound, fmt.Sprintf("backup %d", id), nil)
	}

	var rec models.BackupRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return 0, wrap(ErrUnknown, "decode backup record", err)
	}

	var books []models.Book
	if err := json.Unmarshal(rec.Data, &books); err != nil {
		return 0, wrap(ErrValidation, fmt.Sprintf("parse payload of backup %d", id), err)
	}

	batch := s.engine.Batch()
	defer batch.Close()
	if err := batch.Clear(StoreBooks); err != nil {
		return 0, wrap(ErrTransactionFailed, "stage books clear", err)
	}
	now := time.Now()
	for i := range books {
		b := books[i]
		if b.ID == "" {
			b.ID = ulid.Make().String()
		}
		stored := storedBook{Book: b, LastUpdated: now, SyncStatus: SyncPending}
		out, err := json.Marshal(&stored)
		if err != nil {
			return 0, wrap(ErrUnknown, "encode book record", err)
		}
		if err := batch.Put(StoreBooks, b.ID, out); err != nil {
			return 0, wrap(ErrTransactionFailed, "stage restore "+b.ID, err)
		}
	}
	if err := batch.Commit(); err != nil {
		return 0, err
	}

	metrics.IncRestores()
	if s.broadcaster != nil {
		s.broadcaster.Notify()
	}
	return len(books), nil
}

// DeleteBackup removes a backup record. Deleting an absent id is a no-op
// success; backups are otherwise immutable.
func (s *BackupService) DeleteBackup(id int) error {
	return s.engine.Delete(StoreBackups, strconv.Itoa(id))
}

// ClearAllData wipes the books and collections stores. A safety backup is
// attempted first but is deliberately best-effort: explicit intent to
// destroy data takes priority over backup success.
func (s *BackupService) ClearAllData() error {
	if _, err := s.CreateBackup(autoBackupName); err != nil {
		log.Printf("[WARN] automatic backup before clear failed: %v", err)
	}

	batch := s.engine.Batch()
	defer batch.Close()
	if err := batch.Clear(StoreBooks); err != nil {
		return wrap(ErrTransactionFailed, "stage books clear", err)
	}
	if err := batch.Clear(StoreCollections); err != nil {
		return wrap(ErrTransactionFailed, "stage collections clear", err)
	}
	if err := batch.Commit(); err != nil {
		return err
	}

	if s.broadcaster != nil {
		s.broadcaster.Notify()
	}
	return nil
}

// GetStorageStats reports counts and on-disk footprint for admin tooling.
func (s *BackupService) GetStorageStats() (models.StorageStats, error) {
	books, err := s.books.CountBooks()
	if err != nil {
		return models.StorageStats{}, err
	}
	collections, err := s.collections.CountCollections()
	if err != nil {
		return models.StorageStats{}, err
	}
	backups, err := s.engine.Count(StoreBackups)
	if err != nil {
		return models.StorageStats{}, err
	}
	version, err := s.engine.SchemaVersion()
	if err != nil {
		return models.StorageStats{}, wrap(ErrUnknown, "read schema version", err)
	}

	metrics.SetBooksTotal(books)
	return models.StorageStats{
		Books:         books,
		Collections:   collections,
		Backups:       backups,
		SchemaVersion: version,
		DiskUsage:     s.engine.DiskUsage(),
	}, nil
}
