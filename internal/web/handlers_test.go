package web

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"task-manager/internal/apperr"
	"task-manager/internal/auth"
	"task-manager/internal/model"
	"task-manager/internal/repository"
	"task-manager/internal/service"
)

type testServer struct {
	t      *testing.T
	server *Server
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := repository.NewDB("sqlite", filepath.Join(t.TempDir(), "web.db"), "silent")
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	users := repository.NewUserRepository(db)
	tasks := repository.NewTaskRepository(db)
	authSvc := service.NewAuthService(users, auth.NewHasher(bcrypt.MinCost), auth.NewTokens("web-secret", time.Hour))
	taskSvc := service.NewTaskService(tasks, repository.NewTaskQuery(sqlDB, "sqlite"))

	return &testServer{t: t, server: NewServer(authSvc, taskSvc, Options{TokenTTL: time.Hour})}
}

func (ts *testServer) do(method, path string, body any, token string) *httptest.ResponseRecorder {
	ts.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(ts.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.server.Handler().ServeHTTP(w, req)
	return w
}

func (ts *testServer) register(email string) string {
	ts.t.Helper()
	w := ts.do(http.MethodPost, "/api/auth/register", gin.H{"email": email, "name": "Tester", "password": "secret123"}, "")
	require.Equal(ts.t, http.StatusCreated, w.Code, w.Body.String())
	var resp sessionResponse
	require.NoError(ts.t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Token
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestAuthEndpoints(t *testing.T) {
	ts := newTestServer(t)

	t.Run("register sets cookie and hides password", func(t *testing.T) {
		w := ts.do(http.MethodPost, "/api/auth/register", gin.H{"email": "ann@example.com", "name": "Ann", "password": "secret123"}, "")
		require.Equal(t, http.StatusCreated, w.Code)
		assert.NotContains(t, w.Body.String(), "password")

		resp := decode[sessionResponse](t, w)
		assert.Equal(t, "ann@example.com", resp.User.Email)
		assert.NotEmpty(t, resp.Token)

		cookies := w.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, auth.CookieName, cookies[0].Name)
		assert.True(t, cookies[0].HttpOnly)
		assert.Equal(t, http.SameSiteStrictMode, cookies[0].SameSite)
	})

	t.Run("duplicate register", func(t *testing.T) {
		w := ts.do(http.MethodPost, "/api/auth/register", gin.H{"email": "ann@example.com", "name": "Ann", "password": "secret123"}, "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		env := decode[apperr.Envelope](t, w)
		assert.Equal(t, apperr.CodeValidation, env.Code)
	})

	t.Run("bad credentials", func(t *testing.T) {
		w := ts.do(http.MethodPost, "/api/auth/login", gin.H{"email": "ann@example.com", "password": "nope-nope"}, "")
		require.Equal(t, http.StatusUnauthorized, w.Code)
		env := decode[apperr.Envelope](t, w)
		assert.Equal(t, apperr.CodeAuthentication, env.Code)
		assert.Equal(t, http.StatusUnauthorized, env.StatusCode)
		assert.Equal(t, "/api/auth/login", env.Path)
		_, err := time.Parse(time.RFC3339Nano, env.Timestamp)
		assert.NoError(t, err)
	})

	t.Run("login then me via cookie", func(t *testing.T) {
		w := ts.do(http.MethodPost, "/api/auth/login", gin.H{"email": "ann@example.com", "password": "secret123"}, "")
		require.Equal(t, http.StatusOK, w.Code)
		cookie := w.Result().Cookies()[0]

		req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
		req.AddCookie(cookie)
		me := httptest.NewRecorder()
		ts.server.Handler().ServeHTTP(me, req)
		require.Equal(t, http.StatusOK, me.Code)
		assert.Contains(t, me.Body.String(), "ann@example.com")
	})

	t.Run("me without token", func(t *testing.T) {
		w := ts.do(http.MethodGet, "/api/auth/me", nil, "")
		require.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, apperr.CodeUnauthorized, decode[apperr.Envelope](t, w).Code)
	})

	t.Run("logout expires cookie", func(t *testing.T) {
		w := ts.do(http.MethodPost, "/api/auth/logout", nil, "")
		require.Equal(t, http.StatusOK, w.Code)
		cookies := w.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.True(t, cookies[0].MaxAge < 0)
	})

	t.Run("telegram link code", func(t *testing.T) {
		token := ts.register("tg@example.com")
		w := ts.do(http.MethodPost, "/api/auth/telegram/link", nil, token)
		require.Equal(t, http.StatusOK, w.Code)
		body := decode[map[string]string](t, w)
		assert.Len(t, body["code"], 8)
		assert.NotEmpty(t, body["expiresAt"])
	})
}

func TestTaskEndpoints(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register("tasks@example.com")

	w := ts.do(http.MethodPost, "/api/tasks", gin.H{"title": "Write docs", "repetitionFrequency": "3"}, token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[model.Task](t, w)
	assert.Equal(t, model.RepeatEveryNDays, created.RepeatType)
	require.NotNil(t, created.RepeatInterval)
	assert.Equal(t, 3, *created.RepeatInterval)

	t.Run("numeric frequency accepted", func(t *testing.T) {
		w := ts.do(http.MethodPost, "/api/tasks", gin.H{"title": "Gym", "repetitionFrequency": 7}, token)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		assert.Equal(t, model.RepeatWeekly, decode[model.Task](t, w).RepeatType)
	})

	t.Run("validation errors", func(t *testing.T) {
		w := ts.do(http.MethodPost, "/api/tasks", gin.H{"title": ""}, token)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = ts.do(http.MethodPost, "/api/tasks", gin.H{"title": "x", "repetitionFrequency": "soon"}, token)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = ts.do(http.MethodGet, "/api/tasks?completed=maybe", nil, token)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("list is ordered", func(t *testing.T) {
		done := ts.do(http.MethodPost, "/api/tasks", gin.H{"title": "Done already"}, token)
		doneTask := decode[model.Task](t, done)
		w := ts.do(http.MethodPatch, "/api/tasks/"+doneTask.ID, gin.H{"completed": true}, token)
		require.Equal(t, http.StatusOK, w.Code)

		w = ts.do(http.MethodGet, "/api/tasks", nil, token)
		require.Equal(t, http.StatusOK, w.Code)
		body := decode[struct {
			Tasks []model.Task `json:"tasks"`
		}](t, w)
		require.Len(t, body.Tasks, 3)
		assert.Equal(t, "Gym", body.Tasks[0].Title)
		assert.Equal(t, "Write docs", body.Tasks[1].Title)
		assert.Equal(t, "Done already", body.Tasks[2].Title)

		w = ts.do(http.MethodGet, "/api/tasks?completed=true", nil, token)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Done already")
		assert.NotContains(t, w.Body.String(), "Gym")
	})

	t.Run("patch keeps repeat, put clears it", func(t *testing.T) {
		w := ts.do(http.MethodPatch, "/api/tasks/"+created.ID, gin.H{"goal": "ship v1"}, token)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, model.RepeatEveryNDays, decode[model.Task](t, w).RepeatType)

		w = ts.do(http.MethodPut, "/api/tasks/"+created.ID, gin.H{"title": "Write more docs"}, token)
		require.Equal(t, http.StatusOK, w.Code)
		updated := decode[model.Task](t, w)
		assert.Equal(t, model.RepeatNone, updated.RepeatType)
		assert.Nil(t, updated.RepeatInterval)
		assert.Equal(t, "ship v1", updated.Goal)
	})

	t.Run("time tracking", func(t *testing.T) {
		w := ts.do(http.MethodPost, "/api/tasks/"+created.ID+"/time", gin.H{"seconds": 0}, token)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = ts.do(http.MethodPost, "/api/tasks/"+created.ID+"/time", gin.H{"seconds": 300, "mode": "longBreak"}, token)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, apperr.CodeValidation, decode[apperr.Envelope](t, w).Code)

		w = ts.do(http.MethodPost, "/api/tasks/"+created.ID+"/time", gin.H{"seconds": 1500, "mode": "pomodoro"}, token)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, int64(1500), decode[model.Task](t, w).TotalTimeSpent)

		w = ts.do(http.MethodGet, "/api/tasks/"+created.ID+"/sessions", nil, token)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"seconds":1500`)

		w = ts.do(http.MethodGet, "/api/stats", nil, token)
		require.Equal(t, http.StatusOK, w.Code)
		stats := decode[repository.Stats](t, w)
		assert.Equal(t, 3, stats.Total)
		assert.Equal(t, int64(1500), stats.TotalTimeSpent)
	})

	t.Run("other users see 404", func(t *testing.T) {
		other := ts.register("intruder@example.com")
		for _, method := range []string{http.MethodGet, http.MethodPatch, http.MethodPut, http.MethodDelete} {
			var body any
			if method == http.MethodPatch || method == http.MethodPut {
				body = gin.H{"title": "hijack"}
			}
			w := ts.do(method, "/api/tasks/"+created.ID, body, other)
			assert.Equal(t, http.StatusNotFound, w.Code, method)
			assert.Equal(t, apperr.CodeNotFound, decode[apperr.Envelope](t, w).Code)
		}
		w := ts.do(http.MethodGet, "/api/tasks", nil, other)
		require.Equal(t, http.StatusOK, w.Code)
		assert.NotContains(t, w.Body.String(), created.ID)
	})

	t.Run("delete", func(t *testing.T) {
		w := ts.do(http.MethodDelete, "/api/tasks/"+created.ID, nil, token)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"success":true}`, w.Body.String())

		w = ts.do(http.MethodGet, "/api/tasks/"+created.ID, nil, token)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestMiscEndpoints(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodGet, "/healthz", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(headerRequestID))

	w = ts.do(http.MethodPost, "/api/logs/error", gin.H{"message": "boom", "url": "/tasks"}, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = ts.do(http.MethodGet, "/api/nowhere", nil, "")
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, apperr.CodeNotFound, decode[apperr.Envelope](t, w).Code)
}

func TestRecoveryRendersEnvelope(t *testing.T) {
	ts := newTestServer(t)
	ts.server.router.GET("/panic", func(c *gin.Context) { panic("kaboom") })

	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	req.Header.Set(headerRequestID, "rid-123")
	w := httptest.NewRecorder()
	ts.server.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "rid-123", w.Header().Get(headerRequestID))
	env := decode[apperr.Envelope](t, w)
	assert.Equal(t, apperr.CodeInternal, env.Code)
}
