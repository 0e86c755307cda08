package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// recentJournalHandler handles GET /api/v1/journal/recent?limit=N,
// returning the most recent journal entries with a bounded limit.
func (s *Server) recentJournalHandler(c *gin.Context) {
	limit := 50
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	entries, err := s.journal.Recent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// todayJournalHandler handles GET /api/v1/journal/today.
func (s *Server) todayJournalHandler(c *gin.Context) {
	entries, err := s.journal.Today(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// topIncidentsHandler handles GET /api/v1/incidents/top?limit=N.
func (s *Server) topIncidentsHandler(c *gin.Context) {
	limit := 20
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	records, err := s.incidents.Top(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"incidents": records})
}

// getPlaybookHandler handles GET /api/v1/playbooks/:key.
func (s *Server) getPlaybookHandler(c *gin.Context) {
	key := c.Param("key")
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "key is required"})
		return
	}

	pb, ok, err := s.playbooks.Get(c.Request.Context(), key)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "playbook not found"})
		return
	}
	c.JSON(http.StatusOK, pb)
}

// listScheduledTasksHandler handles GET /api/v1/scheduled_tasks, the
// dashboard's view of every active chat-scheduled instruction (the same
// data /scheduled_tasks renders over chat — pkg/chat/commands.go).
func (s *Server) listScheduledTasksHandler(c *gin.Context) {
	tasks, err := s.tasks.ListActive(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}
