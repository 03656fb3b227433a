// file: internal/server/collection_handlers.go
// version: 1.1.0
// guid: 1e2f3a4b-5c6d-4e7f-8a9b-9c0d1e2f3a4b

package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/booktrackapp/booktrack/internal/models"
)

func (s *Server) listCollections(c *gin.Context) {
	collections, err := s.collections.GetCollections()
	if err != nil {
		RespondWithStorageError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": collections, "count": len(collections)})
}

func (s *Server) getCollection(c *gin.Context) {
	id := c.Param("id")
	collection, err := s.collections.GetCollectionByID(id)
	if err != nil {
		RespondWithStorageError(c, err)
		return
	}
	if collection == nil {
		RespondWithNotFound(c, "collection", id)
		return
	}
	c.JSON(http.StatusOK, collection)
}

func (s *Server) saveCollection(c *gin.Context) {
	var collection models.Collection
	if HandleBindError(c, c.ShouldBindJSON(&collection)) {
		return
	}

	saved, err := s.collections.SaveCollection(&collection)
	if err != nil {
		RespondWithStorageError(c, err)
		return
	}
	RespondWithCreated(c, saved)
}

func (s *Server) updateCollection(c *gin.Context) {
	var collection models.Collection
	if HandleBindError(c, c.ShouldBindJSON(&collection)) {
		return
	}
	collection.ID = c.Param("id")

	saved, err := s.collections.SaveCollection(&collection)
	if err != nil {
		RespondWithStorageError(c, err)
		return
	}
	RespondWithOK(c, saved)
}

func (s *Server) deleteCollection(c *gin.Context) {
	if err := s.collections.DeleteCollection(c.Param("id")); err != nil {
		RespondWithStorageError(c, err)
		return
	}
	RespondWithNoContent(c)
}
