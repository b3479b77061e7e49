package repo

import (
	"context"
	"time"

	"github.com/BuzzLyutic/task-tracker/internal/model"
)

// TaskRepository определяет интерфейс для работы с задачами
type TaskRepository interface {
	Create(ctx context.Context, t model.Task) (model.Task, error)
	// CreateWithKey атомарно создает задачу и закрепляет за ней ключ идемпотентности
	// (ключ принадлежит t.CreatedBy). Если ключ уже занят, возвращает прежнюю задачу.
	CreateWithKey(ctx context.Context, t model.Task, key string) (model.Task, error)
	Get(ctx context.Context, id int64) (model.Task, error)
	List(ctx context.Context, filter model.TaskFilter, limit int) ([]model.Task, error)
	Update(ctx context.Context, t model.Task) (model.Task, error)
	Delete(ctx context.Context, id int64) error
	GetIdempotencyKey(ctx context.Context, userID int64, key string) (int64, error)
	PurgeIdempotencyKeys(ctx context.Context, olderThan time.Time) (int64, error)
	GetStats(ctx context.Context, userID int64) (model.TaskStats, error)
}

// UserRepository определяет интерфейс для работы с пользователями
type UserRepository interface {
	Create(ctx context.Context, u model.User) (model.User, error)
	Get(ctx context.Context, id int64) (model.User, error)
	GetByUsername(ctx context.Context, username string) (model.User, error)
	FindPrincipal(ctx context.Context, id int64) (model.Principal, error)
	List(ctx context.Context) ([]model.User, error)
	Update(ctx context.Context, u model.User) (model.User, error)
}
