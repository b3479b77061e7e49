package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/BuzzLyutic/task-tracker/internal/model"
)

// MockTaskRepository - мок репозитория задач
type MockTaskRepository struct {
	mock.Mock
}

func (m *MockTaskRepository) Create(ctx context.Context, t model.Task) (model.Task, error) {
	args := m.Called(ctx, t)
	return args.Get(0).(model.Task), args.Error(1)
}

func (m *MockTaskRepository) Get(ctx context.Context, id int64) (model.Task, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.Task), args.Error(1)
}

func (m *MockTaskRepository) List(ctx context.Context, filter model.TaskFilter, limit int) ([]model.Task, error) {
	args := m.Called(ctx, filter, limit)
	return args.Get(0).([]model.Task), args.Error(1)
}

func (m *MockTaskRepository) Update(ctx context.Context, t model.Task) (model.Task, error) {
	args := m.Called(ctx, t)
	return args.Get(0).(model.Task), args.Error(1)
}

func (m *MockTaskRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockTaskRepository) CreateWithKey(ctx context.Context, t model.Task, key string) (model.Task, error) {
	args := m.Called(ctx, t, key)
	return args.Get(0).(model.Task), args.Error(1)
}

func (m *MockTaskRepository) GetIdempotencyKey(ctx context.Context, userID int64, key string) (int64, error) {
	args := m.Called(ctx, userID, key)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTaskRepository) PurgeIdempotencyKeys(ctx context.Context, olderThan time.Time) (int64, error) {
	args := m.Called(ctx, olderThan)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTaskRepository) GetStats(ctx context.Context, userID int64) (model.TaskStats, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(model.TaskStats), args.Error(1)
}

// MockUserRepository - мок репозитория пользователей
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, u model.User) (model.User, error) {
	args := m.Called(ctx, u)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *MockUserRepository) Get(ctx context.Context, id int64) (model.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (model.User, error) {
	args := m.Called(ctx, username)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *MockUserRepository) FindPrincipal(ctx context.Context, id int64) (model.Principal, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.Principal), args.Error(1)
}

func (m *MockUserRepository) List(ctx context.Context) ([]model.User, error) {
	args := m.Called(ctx)
	return args.Get(0).([]model.User), args.Error(1)
}

func (m *MockUserRepository) Update(ctx context.Context, u model.User) (model.User, error) {
	args := m.Called(ctx, u)
	return args.Get(0).(model.User), args.Error(1)
}

type stubIssuer struct{}

func (stubIssuer) Issue(userID int64) (string, time.Time, error) {
	return "token-for-user", time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC), nil
}
