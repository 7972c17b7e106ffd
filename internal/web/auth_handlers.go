package web

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"task-manager/internal/apperr"
	"task-manager/internal/auth"
	"task-manager/internal/model"
	"task-manager/internal/service"
)

type registerRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	User    model.Profile `json:"user"`
	Token   string        `json:"token"`
	Message string        `json:"message"`
}

func authToken(c *gin.Context) string {
	return auth.FromRequest(c.Request)
}

func (s *Server) handleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errBadBody(err))
		return
	}
	sess, err := s.auth.Register(c.Request.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	s.writeSession(c, http.StatusCreated, sess, "registration successful")
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errBadBody(err))
		return
	}
	sess, err := s.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	s.writeSession(c, http.StatusOK, sess, "login successful")
}

func (s *Server) handleLogout(c *gin.Context) {
	http.SetCookie(c.Writer, auth.SessionCookie("", 0, s.opts.SecureCookies))
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

func (s *Server) handleMe(c *gin.Context) {
	user, err := s.auth.CurrentUser(c.Request.Context(), userID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user.Profile()})
}

func (s *Server) handleTelegramLink(c *gin.Context) {
	code, until, err := s.auth.IssueTelegramLinkCode(c.Request.Context(), userID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":      code,
		"expiresAt": until.UTC().Format(time.RFC3339),
	})
}

func (s *Server) writeSession(c *gin.Context, status int, sess *service.Session, message string) {
	http.SetCookie(c.Writer, auth.SessionCookie(sess.Token, s.opts.TokenTTL, s.opts.SecureCookies))
	c.JSON(status, sessionResponse{User: sess.User, Token: sess.Token, Message: message})
}

func errBadBody(err error) error {
	return apperr.Wrap(apperr.CodeValidation, "invalid JSON body", err)
}
