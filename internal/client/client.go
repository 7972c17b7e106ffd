// Package client talks to the task API and keeps an optimistic local copy
// of the task list.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"task-manager/internal/model"
)

// APIError is a non-2xx response, decoded from the error envelope when possible.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Timestamp  string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("api: status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("api: %s (%d): %s", e.Code, e.StatusCode, e.Message)
}

// NewTask is the body of a create request.
type NewTask struct {
	Title               string         `json:"title"`
	Content             string         `json:"content,omitempty"`
	Goal                string         `json:"goal,omitempty"`
	Priority            model.Priority `json:"priority,omitempty"`
	RepetitionFrequency string         `json:"repetitionFrequency,omitempty"`
	Estimate            *int           `json:"estimate,omitempty"`
	DueDate             *time.Time     `json:"dueDate,omitempty"`
	Status              model.Status   `json:"status,omitempty"`
}

// TaskPatch is the body of a partial update. Nil fields are not sent.
type TaskPatch struct {
	Title               *string         `json:"title,omitempty"`
	Content             *string         `json:"content,omitempty"`
	Goal                *string         `json:"goal,omitempty"`
	Completed           *bool           `json:"completed,omitempty"`
	Status              *model.Status   `json:"status,omitempty"`
	Priority            *model.Priority `json:"priority,omitempty"`
	RepetitionFrequency *string         `json:"repetitionFrequency,omitempty"`
	Estimate            *int            `json:"estimate,omitempty"`
	DueDate             *time.Time      `json:"dueDate,omitempty"`
}

// Client is a thin JSON client for the task API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// Option customizes a Client.
type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token returns the bearer token in use.
func (c *Client) Token() string { return c.token }

// Login exchanges credentials for a token and keeps it for later calls.
func (c *Client) Login(ctx context.Context, email, password string) (model.Profile, error) {
	var resp struct {
		User  model.Profile `json:"user"`
		Token string        `json:"token"`
	}
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", body, &resp); err != nil {
		return model.Profile{}, err
	}
	c.token = resp.Token
	return resp.User, nil
}

func (c *Client) Me(ctx context.Context) (model.Profile, error) {
	var resp struct {
		User model.Profile `json:"user"`
	}
	err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &resp)
	return resp.User, err
}

func (c *Client) ListTasks(ctx context.Context) ([]model.Task, error) {
	var resp struct {
		Tasks []model.Task `json:"tasks"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/tasks", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Tasks, nil
}

func (c *Client) GetTask(ctx context.Context, id string) (*model.Task, error) {
	var task model.Task
	if err := c.do(ctx, http.MethodGet, "/api/tasks/"+id, nil, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (c *Client) CreateTask(ctx context.Context, in NewTask) (*model.Task, error) {
	var task model.Task
	if err := c.do(ctx, http.MethodPost, "/api/tasks", in, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (c *Client) UpdateTask(ctx context.Context, id string, patch TaskPatch) (*model.Task, error) {
	var task model.Task
	if err := c.do(ctx, http.MethodPatch, "/api/tasks/"+id, patch, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/tasks/"+id, nil, nil)
}

// AddTime commits seconds of tracked work to a task.
func (c *Client) AddTime(ctx context.Context, id string, seconds int64, mode string) (*model.Task, error) {
	var task model.Task
	body := map[string]any{"seconds": seconds, "mode": mode}
	if err := c.do(ctx, http.MethodPost, "/api/tasks/"+id+"/time", body, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// ReportError forwards a client-side failure to the server log.
func (c *Client) ReportError(ctx context.Context, message, where string) error {
	body := map[string]string{"message": message, "context": where, "userAgent": "taskmanager-cli"}
	return c.do(ctx, http.MethodPost, "/api/logs/error", body, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp.StatusCode, data)
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(status int, data []byte) *APIError {
	apiErr := &APIError{StatusCode: status}
	var env struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		Error     string `json:"error"`
		Timestamp string `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &env); err == nil {
		apiErr.Code = env.Code
		apiErr.Message = env.Message
		apiErr.Timestamp = env.Timestamp
		if apiErr.Message == "" {
			apiErr.Message = env.Error
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}
