package web

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"task-manager/internal/apperr"
)

const (
	headerRequestID = "X-Request-ID"
	ctxRequestID    = "requestID"
	ctxUserID       = "userID"
)

var errNoRoute = apperr.NotFound("route not found")

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerRequestID)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Set(ctxRequestID, id)
		c.Header(headerRequestID, id)
		c.Next()
	}
}

func accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Printf("[http] %s %s %d %s rid=%s",
			c.Request.Method, c.Request.URL.Path, c.Writer.Status(),
			time.Since(start).Round(time.Microsecond), c.GetString(ctxRequestID))
	}
}

func recovery() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		log.Printf("[error] panic rid=%s: %v", c.GetString(ctxRequestID), recovered)
		fail(c, apperr.Internal(""))
		render(c)
	})
}

// errorHandler renders the last error attached to the context as the JSON envelope.
func errorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		render(c)
	}
}

func render(c *gin.Context) {
	if len(c.Errors) == 0 || c.Writer.Written() {
		return
	}
	appErr := apperr.From(c.Errors.Last().Err)
	if appErr.Status() >= http.StatusInternalServerError {
		log.Printf("[error] %s %s rid=%s: %v", c.Request.Method, c.Request.URL.Path, c.GetString(ctxRequestID), appErr)
	}
	c.JSON(appErr.Status(), apperr.Format(appErr, c.Request.URL.Path, time.Now()))
}

// fail records err for errorHandler and stops the chain.
func fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := s.auth.Authenticate(c.Request.Context(), authToken(c))
		if err != nil {
			fail(c, err)
			return
		}
		c.Set(ctxUserID, user.ID)
		c.Next()
	}
}

func userID(c *gin.Context) string {
	return c.GetString(ctxUserID)
}
