package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/BuzzLyutic/task-tracker/internal/auth"
	"github.com/BuzzLyutic/task-tracker/internal/model"
)

type mockTasks struct {
	mock.Mock
}

func (m *mockTasks) Create(ctx context.Context, t model.Task) (model.Task, error) {
	args := m.Called(ctx, t)
	return args.Get(0).(model.Task), args.Error(1)
}

func (m *mockTasks) Get(ctx context.Context, id int64) (model.Task, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.Task), args.Error(1)
}

func (m *mockTasks) List(ctx context.Context, filter model.TaskFilter, limit int) ([]model.Task, error) {
	args := m.Called(ctx, filter, limit)
	return args.Get(0).([]model.Task), args.Error(1)
}

func (m *mockTasks) Update(ctx context.Context, t model.Task) (model.Task, error) {
	args := m.Called(ctx, t)
	return args.Get(0).(model.Task), args.Error(1)
}

func (m *mockTasks) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockTasks) CreateWithKey(ctx context.Context, t model.Task, key string) (model.Task, error) {
	args := m.Called(ctx, t, key)
	return args.Get(0).(model.Task), args.Error(1)
}

func (m *mockTasks) GetIdempotencyKey(ctx context.Context, userID int64, key string) (int64, error) {
	args := m.Called(ctx, userID, key)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockTasks) PurgeIdempotencyKeys(ctx context.Context, olderThan time.Time) (int64, error) {
	args := m.Called(ctx, olderThan)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockTasks) GetStats(ctx context.Context, userID int64) (model.TaskStats, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(model.TaskStats), args.Error(1)
}

type mockUsers struct {
	mock.Mock
}

func (m *mockUsers) Create(ctx context.Context, u model.User) (model.User, error) {
	args := m.Called(ctx, u)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *mockUsers) Get(ctx context.Context, id int64) (model.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *mockUsers) GetByUsername(ctx context.Context, username string) (model.User, error) {
	args := m.Called(ctx, username)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *mockUsers) FindPrincipal(ctx context.Context, id int64) (model.Principal, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.Principal), args.Error(1)
}

func (m *mockUsers) List(ctx context.Context) ([]model.User, error) {
	args := m.Called(ctx)
	return args.Get(0).([]model.User), args.Error(1)
}

func (m *mockUsers) Update(ctx context.Context, u model.User) (model.User, error) {
	args := m.Called(ctx, u)
	return args.Get(0).(model.User), args.Error(1)
}

// newRequest собирает запрос так, как его увидел бы хендлер за гейтом и роутером.
func newRequest(method, target, body string, p *model.Principal, id string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	ctx := req.Context()
	if p != nil {
		ctx = auth.WithPrincipal(ctx, *p)
	}
	if id != "" {
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("id", id)
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}
	return req.WithContext(ctx)
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&env))
	return env
}
