// file: internal/models/book.go
// version: 1.1.0
// guid: 3f8a1b2c-9d4e-4f5a-8b6c-7d0e1f2a3b4c

package models

import (
	"encoding/json"
	"time"
)

// Book is the public record shape for one tracked book. Engine bookkeeping
// (soft-delete flag, sync status, last-updated stamp) is stored alongside
// these fields but never exposed through this type.
type Book struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Author        string   `json:"author"`
	Genre         *string  `json:"genre,omitempty"`
	Description   *string  `json:"description,omitempty"`
	Thumbnail     *string  `json:"thumbnail,omitempty"`
	PageCount     *int     `json:"page_count,omitempty"`
	PublishedDate *string  `json:"published_date,omitempty"`
	Rating        *float64 `json:"rating,omitempty"`
	Notes         *string  `json:"notes,omitempty"`
	// Series linkage. Deleting a collection or series does not cascade to
	// books; the series service owns its own store.
	SeriesID     *string `json:"series_id,omitempty"`
	VolumeNumber *int    `json:"volume_number,omitempty"`
}

// Collection is a named, user-defined grouping of book ids. Collections are
// hard-deleted; they carry no soft-delete flag.
type Collection struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	BookIDs     []string  `json:"book_ids"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// UserSettings is the singleton configuration record. The engine forces the
// fixed id on every save so at most one row ever exists.
type UserSettings struct {
	ID                   string     `json:"id"`
	Theme                string     `json:"theme"`
	BooksPerPage         int        `json:"books_per_page"`
	DefaultView          string     `json:"default_view"`
	NotificationsEnabled bool       `json:"notifications_enabled"`
	LastBackup           *time.Time `json:"last_backup,omitempty"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// DefaultSettings returns the settings presented when no row has been saved
// yet. Defaults are never persisted implicitly.
func DefaultSettings() UserSettings {
	return UserSettings{
		Theme:                "light",
		BooksPerPage:         24,
		DefaultView:          "grid",
		NotificationsEnabled: true,
	}
}

// BackupRecord is an immutable point-in-time snapshot of the books store.
// Listing endpoints strip Data so only a restore loads the full payload.
type BackupRecord struct {
	ID        int             `json:"id"`
	Name      string          `json:"name"`
	Timestamp time.Time       `json:"timestamp"`
	BookCount int             `json:"book_count"`
	Size      int             `json:"size"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// StorageStats summarizes the persisted state for admin/debug tooling.
type StorageStats struct {
	Books         int    `json:"books"`
	Collections   int    `json:"collections"`
	Backups       int    `json:"backups"`
	SchemaVersion int    `json:"schema_version"`
	DiskUsage     uint64 `json:"disk_usage_bytes"`
}
