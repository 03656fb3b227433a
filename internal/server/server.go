// file: internal/server/server.go
// version: 1.4.0
// guid: 9c0d1e2f-3a4b-4c5d-8e6f-7a8b9c0d1e2f

package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/booktrackapp/booktrack/internal/cache"
	"github.com/booktrackapp/booktrack/internal/metrics"
	"github.com/booktrackapp/booktrack/internal/models"
	"github.com/booktrackapp/booktrack/internal/realtime"
	"github.com/booktrackapp/booktrack/internal/reset"
	"github.com/booktrackapp/booktrack/internal/storage"
)

const (
	statsCacheKey = "storage_stats"
	statsCacheTTL = 30 * time.Second
)

// Server represents the HTTP server
type Server struct {
	router     *gin.Engine
	httpServer *http.Server

	books       *storage.BookStore
	collections *storage.CollectionStore
	settings    *storage.SettingsStore
	backups     *storage.BackupService
	broadcaster *reset.Broadcaster

	hub        *realtime.EventHub
	statsCache *cache.Cache[models.StorageStats]

	unregisterReset func()
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// NewServer creates a new server instance over an open storage engine. The
// reset broadcaster invalidates the stats cache and feeds the SSE stream, so
// bulk destructive operations are visible to connected clients immediately.
func NewServer(engine *storage.Engine, broadcaster *reset.Broadcaster) *Server {
	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	// Register metrics (idempotent)
	metrics.Register()

	books := storage.NewBookStore(engine)
	collections := storage.NewCollectionStore(engine)
	settings := storage.NewSettingsStore(engine)

	s := &Server{
		router:      router,
		books:       books,
		collections: collections,
		settings:    settings,
		backups:     storage.NewBackupService(engine, books, collections, settings, broadcaster),
		broadcaster: broadcaster,
		hub:         realtime.NewEventHub(),
		statsCache:  cache.New[models.StorageStats](statsCacheTTL),
	}

	if broadcaster != nil {
		s.unregisterReset = broadcaster.AddListener(func(at time.Time) {
			s.statsCache.InvalidateAll()
			s.hub.SendStoreReset(at)
		})
	}

	s.setupRoutes()
	return s
}

// Router exposes the gin engine for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start(cfg ServerConfig) error {
	s.httpServer = &http.Server{
		Addr:           cfg.Addr,
		Handler:        s.router,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: 1 << 20, // 1MB
	}

	log.Printf("Starting server on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the HTTP server and detaches the reset listener.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.unregisterReset != nil {
		s.unregisterReset()
	}
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) setupRoutes() {
	s.router.GET("/api/health", s.healthCheck)
	s.router.GET("/api/events", s.hub.HandleSSE)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := s.router.Group("/api/v1")
	{
		// Book routes
		api.GET("/books", s.listBooks)
		api.GET("/books/count", s.countBooks)
		api.GET("/books/deleted", s.listSoftDeletedBooks)
		api.GET("/books/:id", s.getBook)
		api.POST("/books", s.saveBook)
		api.PUT("/books/:id", s.updateBook)
		api.DELETE("/books/:id", s.deleteBook)
		api.POST("/books/batch", s.saveBooksBatch)
		api.POST("/books/batch-delete", s.deleteBooksBatch)

		// Collection routes
		api.GET("/collections", s.listCollections)
		api.GET("/collections/:id", s.getCollection)
		api.POST("/collections", s.saveCollection)
		api.PUT("/collections/:id", s.updateCollection)
		api.DELETE("/collections/:id", s.deleteCollection)

		// Settings routes
		api.GET("/settings", s.getSettings)
		api.PUT("/settings", s.updateSettings)

		// Backup routes
		api.GET("/backups", s.listBackups)
		api.POST("/backups", s.createBackup)
		api.POST("/backups/:id/restore", s.restoreBackup)
		api.DELETE("/backups/:id", s.deleteBackup)

		// Maintenance routes
		api.GET("/stats", s.getStats)
		api.POST("/maintenance/clear", s.clearAllData)
		api.POST("/maintenance/compact", s.compactDeleted)
	}
}

// corsMiddleware adds CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Header("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

func (s *Server) healthCheck(c *gin.Context) {
	// Tolerate count errors; health should not fail with the store
	bookCount, dbErr := s.books.CountBooks()
	resp := gin.H{
		"status":    "ok",
		"timestamp": time.Now().Unix(),
		"metrics": gin.H{
			"books":       bookCount,
			"sse_clients": s.hub.GetClientCount(),
		},
	}
	if dbErr != nil {
		resp["partial_error"] = dbErr.Error()
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) getStats(c *gin.Context) {
	if stats, ok := s.statsCache.Get(statsCacheKey); ok {
		c.JSON(http.StatusOK, stats)
		return
	}

	stats, err := s.backups.GetStorageStats()
	if err != nil {
		RespondWithStorageError(c, err)
		return
	}
	s.statsCache.Set(statsCacheKey, stats)
	c.JSON(http.StatusOK, stats)
}
