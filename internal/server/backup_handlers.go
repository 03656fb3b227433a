// file: internal/server/backup_handlers.go
// version: 1.1.0
// guid: 3a4b5c6d-7e8f-4a9b-8c0d-1e2f3a4b5c6d

package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

func (s *Server) listBackups(c *gin.Context) {
	backups, err := s.backups.GetBackups()
	if err != nil {
		RespondWithStorageError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": backups, "count": len(backups)})
}

func (s *Server) createBackup(c *gin.Context) {
	var req struct {
		Name string `json:"name"`
	}
	// Body is optional; an empty name is allowed
	_ = c.ShouldBindJSON(&req)

	meta, err := s.backups.CreateBackup(req.Name)
	if err != nil {
		RespondWithStorageError(c, err)
		return
	}
	s.hub.SendBackupCreated(meta.ID, meta.BookCount)
	RespondWithCreated(c, meta)
}

func (s *Server) restoreBackup(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		RespondWithBadRequest(c, "backup id must be an integer")
		return
	}

	restored, err := s.backups.RestoreBackup(id)
	if err != nil {
		RespondWithStorageError(c, err)
		return
	}
	s.hub.SendBackupRestored(id, restored)
	c.JSON(http.StatusOK, gin.H{"restored": restored})
}

func (s *Server) deleteBackup(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		RespondWithBadRequest(c, "backup id must be an integer")
		return
	}

	if err := s.backups.DeleteBackup(id); err != nil {
		RespondWithStorageError(c, err)
		return
	}
	RespondWithNoContent(c)
}

func (s *Server) clearAllData(c *gin.Context) {
	var req struct {
		Confirm bool `json:"confirm"`
	}
	if HandleBindError(c, c.ShouldBindJSON(&req)) {
		return
	}
	if !req.Confirm {
		RespondWithBadRequest(c, "clear requires confirm: true")
		return
	}

	if err := s.backups.ClearAllData(); err != nil {
		RespondWithStorageError(c, err)
		return
	}
	RespondWithNoContent(c)
}
