// file: internal/server/book_handlers.go
// version: 1.2.0
// guid: 0d1e2f3a-4b5c-4d6e-9f7a-8b9c0d1e2f3a

package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/booktrackapp/booktrack/internal/models"
)

func (s *Server) listBooks(c *gin.Context) {
	books, err := s.books.GetBooks()
	if err != nil {
		RespondWithStorageError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": books, "count": len(books)})
}

func (s *Server) countBooks(c *gin.Context) {
	count, err := s.books.CountBooks()
	if err != nil {
		RespondWithStorageError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

func (s *Server) getBook(c *gin.Context) {
	id := c.Param("id")
	book, err := s.books.GetBookByID(id)
	if err != nil {
		RespondWithStorageError(c, err)
		return
	}
	if book == nil {
		RespondWithNotFound(c, "book", id)
		return
	}
	c.JSON(http.StatusOK, book)
}

func (s *Server) saveBook(c *gin.Context) {
	var book models.Book
	if HandleBindError(c, c.ShouldBindJSON(&book)) {
		return
	}

	saved, err := s.books.SaveBook(&book)
	if err != nil {
		RespondWithStorageError(c, err)
		return
	}
	s.statsCache.InvalidateAll()
	s.hub.SendBooksChanged(1)
	RespondWithCreated(c, saved)
}

func (s *Server) updateBook(c *gin.Context) {
	var book models.Book
	if HandleBindError(c, c.ShouldBindJSON(&book)) {
		return
	}
	book.ID = c.Param("id")

	saved, err := s.books.SaveBook(&book)
	if err != nil {
		RespondWithStorageError(c, err)
		return
	}
	s.statsCache.InvalidateAll()
	s.hub.SendBooksChanged(1)
	RespondWithOK(c, saved)
}

func (s *Server) deleteBook(c *gin.Context) {
	if err := s.books.DeleteBook(c.Param("id")); err != nil {
		RespondWithStorageError(c, err)
		return
	}
	s.statsCache.InvalidateAll()
	s.hub.SendBooksChanged(1)
	RespondWithNoContent(c)
}

func (s *Server) saveBooksBatch(c *gin.Context) {
	var books []models.Book
	if HandleBindError(c, c.ShouldBindJSON(&books)) {
		return
	}

	saved, err := s.books.SaveBooks(books)
	if err != nil {
		RespondWithStorageError(c, err)
		return
	}
	s.statsCache.InvalidateAll()
	s.hub.SendBooksChanged(len(saved))
	c.JSON(http.StatusOK, gin.H{"items": saved, "count": len(saved)})
}

func (s *Server) deleteBooksBatch(c *gin.Context) {
	var req struct {
		IDs []string `json:"ids" binding:"required"`
	}
	if HandleBindError(c, c.ShouldBindJSON(&req)) {
		return
	}

	if err := s.books.DeleteBooks(req.IDs); err != nil {
		RespondWithStorageError(c, err)
		return
	}
	s.statsCache.InvalidateAll()
	s.hub.SendBooksChanged(len(req.IDs))
	RespondWithNoContent(c)
}

func (s *Server) listSoftDeletedBooks(c *gin.Context) {
	books, err := s.books.ListSoftDeleted()
	if err != nil {
		RespondWithStorageError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": books, "count": len(books)})
}

func (s *Server) compactDeleted(c *gin.Context) {
	removed, err := s.books.CompactDeleted()
	if err != nil {
		RespondWithStorageError(c, err)
		return
	}
	s.statsCache.InvalidateAll()
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}
