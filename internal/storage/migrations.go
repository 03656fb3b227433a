// file: internal/storage/migrations.go
// version: 1.2.0
// guid: 4a1b8c3d-5e6f-4a7b-9c0d-1e2f3a4b5c6d

package storage

import (
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strconv"
	"time"

	"github.com/cockroachdb/pebble/v2"
)

// targetSchemaVersion is the schema version this build writes. Open applies
// every migration between the on-disk version and this one.
const targetSchemaVersion = 3

const (
	schemaVersionKey   = "meta:schema_version"
	migrationKeyPrefix = "meta:migration:"
)

// migrationFunc stages one schema upgrade. Reads go through db, writes are
// staged on the shared upgrade batch so a failed step commits nothing.
type migrationFunc func(db *pebble.DB, b *pebble.Batch) error

type migration struct {
	Version     int
	Description string
	Up          migrationFunc
}

// MigrationRecord tracks one applied migration.
type MigrationRecord struct {
	Version     int       `json:"version"`
	Description string    `json:"description"`
	AppliedAt   time.Time `json:"applied_at"`
}

// migrations is the ordered list of all schema upgrades. Versions must be
// applied ascending and exactly once: later steps assume the keyspaces
// earlier ones created.
var migrations = []migration{
	{
		Version:     1,
		Description: "Initial keyspace with backup id counter",
		Up:          migration001Up,
	},
	{
		Version:     2,
		Description: "Backfill sync status on stored books",
		Up:          migration002Up,
	},
	{
		Version:     3,
		Description: "Backfill collection timestamps",
		Up:          migration003Up,
	},
}

// runMigrations applies every migration with version in (current, target],
// ascending, staging all writes plus the version bump on one batch. The
// commit is atomic: a failed step leaves the old version fully in place.
func runMigrations(db *pebble.DB, target int) error {
	current, err := currentSchemaVersion(db)
	if err != nil {
		return wrap(ErrMigrationFailed, "read schema version", err)
	}
	if current >= target {
		log.Printf("Database schema is up to date (version %d)", current)
		return nil
	}

	pending := []migration{}
	for _, m := range migrations {
		if m.Version > current && m.Version <= target {
			pending = append(pending, m)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].Version < pending[j].Version })

	log.Printf("Applying %d migrations (version %d -> %d)", len(pending), current, target)

	batch := db.NewBatch()
	defer batch.Close()

	for _, m := range pending {
		log.Printf("Applying migration %d: %s", m.Version, m.Description)
		if err := m.Up(db, batch); err != nil {
			return wrap(ErrMigrationFailed, fmt.Sprintf("migration %d (%s)", m.Version, m.Description), err)
		}
		if err := recordMigration(batch, m); err != nil {
			return wrap(ErrMigrationFailed, fmt.Sprintf("record migration %d", m.Version), err)
		}
	}

	if err := batch.Set([]byte(schemaVersionKey), []byte(strconv.Itoa(target)), nil); err != nil {
		return wrap(ErrMigrationFailed, "stage schema version", err)
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return wrap(ErrMigrationFailed, "commit upgrade batch", err)
	}

	log.Printf("All migrations completed. Current version: %d", target)
	return nil
}

func currentSchemaVersion(db *pebble.DB) (int, error) {
	value, closer, err := db.Get([]byte(schemaVersionKey))
	if err == pebble.ErrNotFound {
		// Fresh database.
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	defer closer.Close()
	return strconv.Atoi(string(value))
}

func recordMigration(b *pebble.Batch, m migration) error {
	rec := MigrationRecord{
		Version:     m.Version,
		Description: m.Description,
		AppliedAt:   time.Now(),
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return b.Set([]byte(migrationKeyPrefix+strconv.Itoa(m.Version)), data, nil)
}

// MigrationHistory returns all applied migration records, oldest first.
func MigrationHistory(db *pebble.DB) ([]MigrationRecord, error) {
	prefix := []byte(migrationKeyPrefix)
	iter, err := db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, wrap(ErrTransactionFailed, "scan migration history", err)
	}
	defer iter.Close()

	records := []MigrationRecord{}
	for iter.First(); iter.Valid(); iter.Next() {
		var rec MigrationRecord
		if err := json.Unmarshal(iter.Value(), &rec); err != nil {
			log.Printf("Warning: failed to parse migration record %s: %v", iter.Key(), err)
			continue
		}
		records = append(records, rec)
	}
	if err := iter.Error(); err != nil {
		return nil, wrap(ErrTransactionFailed, "scan migration history", err)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Version < records[j].Version })
	return records, nil
}

// migration001Up seeds the backup id counter.
func migration001Up(db *pebble.DB, b *pebble.Batch) error {
	_, closer, err := db.Get([]byte("counter:" + StoreBackups))
	if err == pebble.ErrNotFound {
		return b.Set([]byte("counter:"+StoreBackups), []byte("1"), nil)
	}
	if err != nil {
		return err
	}
	closer.Close()
	return nil
}

// migration002Up stamps sync_status on book records written before the field
// existed, so the adapter never sees an untagged record.
func migration002Up(db *pebble.DB, b *pebble.Batch) error {
	prefix := []byte(StoreBooks + ":")
	iter, err := db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		var rec map[string]any
		if err := json.Unmarshal(iter.Value(), &rec); err != nil {
			return fmt.Errorf("decode %s: %w", iter.Key(), err)
		}
		if status, ok := rec["sync_status"].(string); ok && status != "" {
			continue
		}
		rec["sync_status"] = SyncPending
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		key := append([]byte(nil), iter.Key()...)
		if err := b.Set(key, data, nil); err != nil {
			return err
		}
	}
	return iter.Error()
}

// migration003Up backfills created_at/updated_at on collections from before
// timestamp stamping was introduced.
func migration003Up(db *pebble.DB, b *pebble.Batch) error {
	prefix := []byte(StoreCollections + ":")
	iter, err := db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for iter.First(); iter.Valid(); iter.Next() {
		var rec map[string]any
		if err := json.Unmarshal(iter.Value(), &rec); err != nil {
			return fmt.Errorf("decode %s: %w", iter.Key(), err)
		}
		changed := false
		for _, field := range []string{"created_at", "updated_at"} {
			if s, ok := rec[field].(string); !ok || s == "" || s == "0001-01-01T00:00:00Z" {
				rec[field] = now
				changed = true
			}
		}
		if !changed {
			continue
		}
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		key := append([]byte(nil), iter.Key()...)
		if err := b.Set(key, data, nil); err != nil {
			return err
		}
	}
	return iter.Error()
}
