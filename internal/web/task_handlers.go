package web

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"task-manager/internal/apperr"
	"task-manager/internal/model"
	"task-manager/internal/repository"
	"task-manager/internal/service"
)

// frequency accepts the repetition frequency as a JSON string or number.
type frequency string

func (f *frequency) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = frequency(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = frequency(n.String())
	return nil
}

type taskRequest struct {
	Title               *string         `json:"title"`
	Content             *string         `json:"content"`
	Goal                *string         `json:"goal"`
	Completed           *bool           `json:"completed"`
	Status              *model.Status   `json:"status"`
	Priority            *model.Priority `json:"priority"`
	RepetitionFrequency *frequency      `json:"repetitionFrequency"`
	Estimate            *int            `json:"estimate"`
	DueDate             *time.Time      `json:"dueDate"`
}

func (r taskRequest) patch() service.TaskPatch {
	p := service.TaskPatch{
		Title:     r.Title,
		Content:   r.Content,
		Goal:      r.Goal,
		Completed: r.Completed,
		Status:    r.Status,
		Priority:  r.Priority,
		Estimate:  r.Estimate,
		DueDate:   r.DueDate,
	}
	if r.RepetitionFrequency != nil {
		v := string(*r.RepetitionFrequency)
		p.RepetitionFrequency = &v
	}
	return p
}

func (r taskRequest) input() service.TaskInput {
	in := service.TaskInput{Estimate: r.Estimate, DueDate: r.DueDate}
	if r.Title != nil {
		in.Title = *r.Title
	}
	if r.Content != nil {
		in.Content = *r.Content
	}
	if r.Goal != nil {
		in.Goal = *r.Goal
	}
	if r.Status != nil {
		in.Status = *r.Status
	}
	if r.Priority != nil {
		in.Priority = *r.Priority
	}
	if r.RepetitionFrequency != nil {
		in.RepetitionFrequency = string(*r.RepetitionFrequency)
	}
	return in
}

type addTimeRequest struct {
	Seconds int64  `json:"seconds"`
	Mode    string `json:"mode"`
}

func (s *Server) handleListTasks(c *gin.Context) {
	filter, err := parseFilter(c)
	if err != nil {
		fail(c, err)
		return
	}
	tasks, err := s.tasks.List(c.Request.Context(), userID(c), filter)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

func parseFilter(c *gin.Context) (repository.TaskFilter, error) {
	f := repository.TaskFilter{
		Status:   model.Status(strings.TrimSpace(c.Query("status"))),
		Priority: model.Priority(strings.TrimSpace(c.Query("priority"))),
		Query:    c.Query("q"),
	}
	if raw := c.Query("completed"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return f, apperr.Validation("completed must be true or false")
		}
		f.Completed = &v
	}
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return f, apperr.Validation("limit must be a non-negative integer")
		}
		f.Limit = v
	}
	return f, nil
}

func (s *Server) handleCreateTask(c *gin.Context) {
	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errBadBody(err))
		return
	}
	task, err := s.tasks.Create(c.Request.Context(), userID(c), req.input())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

func (s *Server) handleGetTask(c *gin.Context) {
	task, err := s.tasks.Get(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (s *Server) handleReplaceTask(c *gin.Context) {
	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errBadBody(err))
		return
	}
	task, err := s.tasks.Replace(c.Request.Context(), userID(c), c.Param("id"), req.patch())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (s *Server) handlePatchTask(c *gin.Context) {
	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errBadBody(err))
		return
	}
	task, err := s.tasks.Patch(c.Request.Context(), userID(c), c.Param("id"), req.patch())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (s *Server) handleDeleteTask(c *gin.Context) {
	if err := s.tasks.Delete(c.Request.Context(), userID(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handleAddTime(c *gin.Context) {
	var req addTimeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errBadBody(err))
		return
	}
	task, err := s.tasks.AddTime(c.Request.Context(), userID(c), c.Param("id"), req.Seconds, req.Mode)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (s *Server) handleSessions(c *gin.Context) {
	sessions, err := s.tasks.Sessions(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

func (s *Server) handleStats(c *gin.Context) {
	stats, err := s.tasks.Stats(c.Request.Context(), userID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
