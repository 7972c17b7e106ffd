package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"task-manager/internal/auth"
	"task-manager/internal/model"
	"task-manager/internal/repository"
)

type testEnv struct {
	users *repository.UserRepository
	tasks *repository.TaskRepository
	auth  *AuthService
	task  *TaskService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := repository.NewDB("sqlite", filepath.Join(t.TempDir(), "service.db"), "silent")
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	users := repository.NewUserRepository(db)
	tasks := repository.NewTaskRepository(db)
	return &testEnv{
		users: users,
		tasks: tasks,
		auth:  NewAuthService(users, auth.NewHasher(bcrypt.MinCost), auth.NewTokens("test-secret", time.Hour)),
		task:  NewTaskService(tasks, repository.NewTaskQuery(sqlDB, "sqlite")),
	}
}

func (e *testEnv) user(t *testing.T, email string) *model.User {
	t.Helper()
	sess, err := e.auth.Register(context.Background(), email, "Tester", "secret123")
	require.NoError(t, err)
	user, err := e.users.FindByID(context.Background(), sess.User.ID)
	require.NoError(t, err)
	return user
}

func strPtr(s string) *string { return &s }
