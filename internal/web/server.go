package web

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"task-manager/internal/service"
)

const shutdownTimeout = 10 * time.Second

// Options tune the HTTP layer.
type Options struct {
	Addr          string
	TokenTTL      time.Duration
	SecureCookies bool
}

// Server is the JSON API server.
type Server struct {
	auth   *service.AuthService
	tasks  *service.TaskService
	opts   Options
	router *gin.Engine
}

// NewServer creates the router and registers every route.
func NewServer(authSvc *service.AuthService, taskSvc *service.TaskService, opts Options) *Server {
	router := gin.New()

	s := &Server{
		auth:   authSvc,
		tasks:  taskSvc,
		opts:   opts,
		router: router,
	}

	router.Use(requestID(), accessLog(), recovery(), errorHandler())
	router.NoRoute(func(c *gin.Context) {
		fail(c, errNoRoute)
	})

	router.GET("/healthz", s.handleHealth)

	api := router.Group("/api")
	{
		api.GET("/healthz", s.handleHealth)
		api.POST("/logs/error", s.handleClientError)

		authGroup := api.Group("/auth")
		authGroup.POST("/register", s.handleRegister)
		authGroup.POST("/login", s.handleLogin)
		authGroup.POST("/logout", s.handleLogout)

		private := api.Group("", s.requireAuth())
		private.GET("/auth/me", s.handleMe)
		private.POST("/auth/telegram/link", s.handleTelegramLink)

		private.GET("/tasks", s.handleListTasks)
		private.POST("/tasks", s.handleCreateTask)
		private.GET("/tasks/:id", s.handleGetTask)
		private.PUT("/tasks/:id", s.handleReplaceTask)
		private.PATCH("/tasks/:id", s.handlePatchTask)
		private.DELETE("/tasks/:id", s.handleDeleteTask)
		private.POST("/tasks/:id/time", s.handleAddTime)
		private.GET("/tasks/:id/sessions", s.handleSessions)
		private.GET("/stats", s.handleStats)
	}

	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[info] http listening on %s", s.opts.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Printf("[info] http shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
