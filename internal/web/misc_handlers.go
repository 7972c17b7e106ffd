package web

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const maxClientErrorBody = 16 << 10

type clientErrorReport struct {
	Message   string `json:"message"`
	Stack     string `json:"stack"`
	URL       string `json:"url"`
	UserAgent string `json:"userAgent"`
	Context   string `json:"context"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleClientError records errors reported by clients.
func (s *Server) handleClientError(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxClientErrorBody)
	var report clientErrorReport
	if err := c.ShouldBindJSON(&report); err != nil {
		fail(c, errBadBody(err))
		return
	}
	if strings.TrimSpace(report.Message) == "" {
		report.Message = "(no message)"
	}
	log.Printf("[client-error] rid=%s url=%q context=%q ua=%q: %s",
		c.GetString(ctxRequestID), report.URL, report.Context, report.UserAgent, report.Message)
	if report.Stack != "" {
		log.Printf("[client-error] stack: %s", report.Stack)
	}
	c.Status(http.StatusNoContent)
}
