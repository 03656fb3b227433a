// file: internal/storage/engine.go
// version: 1.3.0
// guid: 0b7c4d1e-2f3a-4b5c-9d8e-6f0a1b2c3d4e

package storage

import (
	"strconv"
	"time"

	"github.com/cockroachdb/pebble/v2"

	"github.com/booktrackapp/booktrack/internal/metrics"
)

// Logical store names multiplexed onto the shared keyspace.
//
// Key Schema:
// - book:<id>        -> stored book JSON (public fields + bookkeeping)
// - collection:<id>  -> Collection JSON
// - settings:1       -> UserSettings JSON (singleton)
// - backup:<n>       -> BackupRecord JSON (n from counter:backup)
// - counter:<store>  -> next auto-increment id as a decimal string
// - meta:schema_version, meta:migration:<n>, meta:last_reset
const (
	StoreBooks       = "book"
	StoreCollections = "collection"
	StoreSettings    = "settings"
	StoreBackups     = "backup"
)

const resetMarkerKey = "meta:last_reset"

// Engine provides generic transactional CRUD over logical stores. It is the
// only component that touches the Pebble handle directly; record adapters
// layer entity semantics on top.
type Engine struct {
	db *pebble.DB
}

// NewEngine wraps an open database handle.
func NewEngine(db *pebble.DB) *Engine {
	return &Engine{db: db}
}

func recordKey(store, id string) []byte {
	return []byte(store + ":" + id)
}

// keyUpperBound returns the smallest key greater than every key with the
// given prefix, for use as an exclusive iterator bound.
func keyUpperBound(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}

// GetAll returns the raw value of every record in a store, in key order.
func (e *Engine) GetAll(store string) ([][]byte, error) {
	prefix := []byte(store + ":")
	iter, err := e.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, wrap(ErrTransactionFailed, "scan "+store, err)
	}
	defer iter.Close()

	var records [][]byte
	for iter.First(); iter.Valid(); iter.Next() {
		records = append(records, append([]byte(nil), iter.Value()...))
	}
	if err := iter.Error(); err != nil {
		return nil, wrap(ErrTransactionFailed, "scan "+store, err)
	}
	return records, nil
}

// GetByID returns a record's raw value. Absence is a result (ok=false), not
// an error.
func (e *Engine) GetByID(store, id string) ([]byte, bool, error) {
	value, closer, err := e.db.Get(recordKey(store, id))
	if err == pebble.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, wrap(ErrTransactionFailed, "get "+store+":"+id, err)
	}
	defer closer.Close()
	return append([]byte(nil), value...), true, nil
}

// Put writes or replaces a record by primary key. Create and update share
// this verb; identity is the key.
func (e *Engine) Put(store, id string, record []byte) error {
	if err := e.db.Set(recordKey(store, id), record, pebble.Sync); err != nil {
		metrics.IncTransactionFailure()
		return wrap(ErrTransactionFailed, "put "+store+":"+id, err)
	}
	return nil
}

// Delete hard-removes a record. Only stores without soft-delete semantics
// (collections, backups) use this; deleting an absent key succeeds.
func (e *Engine) Delete(store, id string) error {
	if err := e.db.Delete(recordKey(store, id), pebble.Sync); err != nil {
		metrics.IncTransactionFailure()
		return wrap(ErrTransactionFailed, "delete "+store+":"+id, err)
	}
	return nil
}

// Count returns the number of records in a store, including soft-deleted
// rows. Adapters that filter deleted rows count on top of GetAll instead.
func (e *Engine) Count(store string) (int, error) {
	prefix := []byte(store + ":")
	iter, err := e.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return 0, wrap(ErrTransactionFailed, "count "+store, err)
	}
	defer iter.Close()

	count := 0
	for iter.First(); iter.Valid(); iter.Next() {
		count++
	}
	if err := iter.Error(); err != nil {
		return 0, wrap(ErrTransactionFailed, "count "+store, err)
	}
	return count, nil
}

// Clear removes every record in a store with one atomic range delete.
func (e *Engine) Clear(store string) error {
	prefix := []byte(store + ":")
	if err := e.db.DeleteRange(prefix, keyUpperBound(prefix), pebble.Sync); err != nil {
		metrics.IncTransactionFailure()
		return wrap(ErrTransactionFailed, "clear "+store, err)
	}
	return nil
}

// NextID returns the next auto-increment id for a store and advances the
// counter. Counters are stored as decimal strings under counter:<store>.
func (e *Engine) NextID(store string) (int, error) {
	key := []byte("counter:" + store)

	id := 1
	value, closer, err := e.db.Get(key)
	if err == nil {
		id, err = strconv.Atoi(string(value))
		closer.Close()
		if err != nil {
			return 0, wrap(ErrTransactionFailed, "parse counter "+store, err)
		}
	} else if err != pebble.ErrNotFound {
		return 0, wrap(ErrTransactionFailed, "read counter "+store, err)
	}

	if err := e.db.Set(key, []byte(strconv.Itoa(id+1)), pebble.Sync); err != nil {
		return 0, wrap(ErrTransactionFailed, "advance counter "+store, err)
	}
	return id, nil
}

// SchemaVersion reports the current on-disk schema version.
func (e *Engine) SchemaVersion() (int, error) {
	return currentSchemaVersion(e.db)
}

// DiskUsage reports the approximate on-disk size of the database.
func (e *Engine) DiskUsage() uint64 {
	return e.db.Metrics().DiskSpaceUsage()
}

// SaveResetMarker persists the durable "reset happened at T" marker. Together
// with LoadResetMarker this makes Engine a reset.MarkerStore.
func (e *Engine) SaveResetMarker(t time.Time) error {
	value := []byte(t.UTC().Format(time.RFC3339Nano))
	if err := e.db.Set([]byte(resetMarkerKey), value, pebble.Sync); err != nil {
		return wrap(ErrTransactionFailed, "save reset marker", err)
	}
	return nil
}

// LoadResetMarker returns the persisted reset time, or the zero time when no
// reset has ever happened.
func (e *Engine) LoadResetMarker() (time.Time, error) {
	value, closer, err := e.db.Get([]byte(resetMarkerKey))
	if err == pebble.ErrNotFound {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, wrap(ErrTransactionFailed, "load reset marker", err)
	}
	defer closer.Close()

	t, err := time.Parse(time.RFC3339Nano, string(value))
	if err != nil {
		return time.Time{}, wrap(ErrUnknown, "parse reset marker", err)
	}
	return t, nil
}

// Batch stages operations that commit atomically: either every staged write
// is applied or none are. Partial completion is never observable.
type Batch struct {
	b      *pebble.Batch
	closed bool
}

// Batch starts a new empty batch.
func (e *Engine) Batch() *Batch {
	return &Batch{b: e.db.NewBatch()}
}

// Put stages a write-or-replace.
func (b *Batch) Put(store, id string, record []byte) error {
	return b.b.Set(recordKey(store, id), record, nil)
}

// Delete stages a hard remove.
func (b *Batch) Delete(store, id string) error {
	return b.b.Delete(recordKey(store, id), nil)
}

// Clear stages a range delete of an entire store.
func (b *Batch) Clear(store string) error {
	prefix := []byte(store + ":")
	return b.b.DeleteRange(prefix, keyUpperBound(prefix), nil)
}

// Commit applies every staged operation or none of them.
func (b *Batch) Commit() error {
	if b.closed {
		return wrap(ErrTransactionFailed, "batch already closed", nil)
	}
	b.closed = true
	defer b.b.Close()
	if err := b.b.Commit(pebble.Sync); err != nil {
		metrics.IncTransactionFailure()
		return wrap(ErrTransactionFailed, "commit batch", err)
	}
	return nil
}

// Close discards a batch that was not committed. Safe to defer alongside
// Commit.
func (b *Batch) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	return b.b.Close()
}
