// file: internal/server/settings_handlers.go
// version: 1.0.0
// guid: 2f3a4b5c-6d7e-4f8a-9b0c-0d1e2f3a4b5c

package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/booktrackapp/booktrack/internal/models"
)

func (s *Server) getSettings(c *gin.Context) {
	settings, err := s.settings.GetSettings()
	if err != nil {
		RespondWithStorageError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (s *Server) updateSettings(c *gin.Context) {
	var settings models.UserSettings
	if HandleBindError(c, c.ShouldBindJSON(&settings)) {
		return
	}

	saved, err := s.settings.SaveSettings(settings)
	if err != nil {
		RespondWithStorageError(c, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}
