// file: internal/storage/collections.go
// version: 1.1.0
// guid: 2c9d0e1f-4a5b-4c6d-8e7f-9a0b1c2d3e4f

package storage

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	ulid "github.com/oklog/ulid/v2"

	"github.com/booktrackapp/booktrack/internal/models"
)

// CollectionStore is the record adapter for collections. Collections have no
// soft-delete: DeleteCollection physically removes the record. Book ids held
// by a collection are not validated or cleaned up when books are deleted.
type CollectionStore struct {
	engine *Engine
}

// NewCollectionStore creates the collections adapter.
func NewCollectionStore(engine *Engine) *CollectionStore {
	return &CollectionStore{engine: engine}
}

// GetCollections returns all collections, oldest first.
func (s *CollectionStore) GetCollections() ([]models.Collection, error) {
	raw, err := s.engine.GetAll(StoreCollections)
	if err != nil {
		return nil, err
	}

	collections := []models.Collection{}
	for _, data := range raw {
		var c models.Collection
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, wrap(ErrUnknown, "decode collection record", err)
		}
		collections = append(collections, c)
	}
	sort.Slice(collections, func(i, j int) bool {
		return collections[i].CreatedAt.Before(collections[j].CreatedAt)
	})
	return collections, nil
}

// GetCollectionByID returns a collection, or nil when absent.
func (s *CollectionStore) GetCollectionByID(id string) (*models.Collection, error) {
	data, ok, err := s.engine.GetByID(StoreCollections, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	var c models.Collection
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, wrap(ErrUnknown, "decode collection record", err)
	}
	return &c, nil
}

// SaveCollection creates or updates a collection. CreatedAt is set exactly
// once; UpdatedAt is refreshed on every save.
func (s *CollectionStore) SaveCollection(collection *models.Collection) (*models.Collection, error) {
	if collection == nil {
		return nil, wrap(ErrValidation, "collection is nil", nil)
	}
	if strings.TrimSpace(collection.Name) == "" {
		return nil, wrap(ErrValidation, "collection name is required", nil)
	}

	c := *collection
	now := time.Now()
	if c.ID == "" {
		c.ID = ulid.Make().String()
		c.CreatedAt = now
	} else {
		existing, err := s.GetCollectionByID(c.ID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			c.CreatedAt = existing.CreatedAt
		} else if c.CreatedAt.IsZero() {
			c.CreatedAt = now
		}
	}
	c.UpdatedAt = now
	if c.BookIDs == nil {
		c.BookIDs = []string{}
	}

	data, err := json.Marshal(&c)
	if err != nil {
		return nil, wrap(ErrUnknown, "encode collection record", err)
	}
	if err := s.engine.Put(StoreCollections, c.ID, data); err != nil {
		return nil, err
	}
	return &c, nil
}

// DeleteCollection hard-deletes a collection. Deleting an absent id is a
// no-op success. Book records referenced by the collection are untouched.
func (s *CollectionStore) DeleteCollection(id string) error {
	return s.engine.Delete(StoreCollections, id)
}

// CountCollections returns the number of collections.
func (s *CollectionStore) CountCollections() (int, error) {
	return s.engine.Count(StoreCollections)
}
