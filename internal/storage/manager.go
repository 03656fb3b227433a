// file: internal/storage/manager.go
// version: 1.1.0
// guid: 9d4e7f2a-0b1c-4d3e-8f5a-2b6c7d8e9f0a

package storage

import (
	"context"
	"log"
	"sync"

	"github.com/cockroachdb/pebble/v2"
)

// Manager owns the single database handle shared by all adapters. The handle
// is opened lazily and never closed during normal operation; Close exists for
// shutdown and tests.
type Manager struct {
	path string

	// mu serializes open attempts. Concurrent Open callers block here and
	// return the handle the first caller produced, so the platform never
	// sees duplicate opens or a read racing an unfinished migration.
	mu sync.Mutex
	db *pebble.DB
}

// NewManager creates a manager for the database at path. Nothing is opened
// until the first Open call.
func NewManager(path string) *Manager {
	return &Manager{path: path}
}

// Open opens the database if needed, applies pending migrations, and returns
// the shared handle. Idempotent: once open it returns immediately.
func (m *Manager) Open(ctx context.Context) (*pebble.DB, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.db != nil {
		return m.db, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, wrap(ErrConnectionFailed, "open "+m.path, err)
	}

	opts := &pebble.Options{
		EventListener: &pebble.EventListener{
			// Operational errors on the shared handle are logged, never
			// allowed to take the engine down.
			BackgroundError: func(err error) {
				log.Printf("[WARN] storage background error: %v", err)
			},
		},
	}

	// Pebble holds a LOCK file in the directory; a second process opening
	// the same path fails here and surfaces as a connection error.
	db, err := pebble.Open(m.path, opts)
	if err != nil {
		return nil, wrap(ErrConnectionFailed, "open "+m.path, err)
	}

	if err := runMigrations(db, targetSchemaVersion); err != nil {
		db.Close()
		return nil, err
	}

	m.db = db
	return db, nil
}

// DB returns the open handle, or nil before the first successful Open.
func (m *Manager) DB() *pebble.DB {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.db
}

// Close closes the handle. Subsequent Open calls reopen the database.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.db == nil {
		return nil
	}
	err := m.db.Close()
	m.db = nil
	if err != nil {
		return wrap(ErrUnknown, "close "+m.path, err)
	}
	return nil
}
