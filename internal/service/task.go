package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/BuzzLyutic/task-tracker/internal/auth"
	"github.com/BuzzLyutic/task-tracker/internal/model"
	"github.com/BuzzLyutic/task-tracker/internal/repo"
)

const maxListLimit = 500

var ErrForbidden = auth.ErrForbidden

type CreateTaskInput struct {
	Title       string `json:"title" validate:"required,max=255"`
	Description string `json:"description"`
	Status      string `json:"status" validate:"omitempty,oneof=pending in-progress completed"`
	Priority    string `json:"priority" validate:"omitempty,oneof=low medium high"`
	Category    string `json:"category" validate:"max=100"`
	DueDate     string `json:"dueDate"`
	AssignedTo  *int64 `json:"assignedTo"`
}

// UpdateTaskInput - частичное обновление: пустое поле означает "не менять".
type UpdateTaskInput struct {
	Title       string `json:"title" validate:"max=255"`
	Description string `json:"description"`
	Status      string `json:"status" validate:"omitempty,oneof=pending in-progress completed"`
	Priority    string `json:"priority" validate:"omitempty,oneof=low medium high"`
	Category    string `json:"category" validate:"max=100"`
	DueDate     string `json:"dueDate"`
	AssignedTo  *int64 `json:"assignedTo"`
}

type TaskService struct {
	repo   repo.TaskRepository
	logger *zap.Logger
}

func NewTaskService(repo repo.TaskRepository, logger *zap.Logger) *TaskService {
	return &TaskService{repo: repo, logger: logger}
}

// Create создает задачу от имени принципала. createdBy всегда берется из принципала.
func (s *TaskService) Create(ctx context.Context, p model.Principal, in CreateTaskInput, idempKey string) (model.Task, error) {
	in.Title = strings.TrimSpace(in.Title)
	if err := validateStruct(in); err != nil { // Валидация модели на корректность введенных данных
		return model.Task{}, err
	}

	if idempKey != "" { // Повтор с тем же ключом возвращает уже созданную задачу
		existingID, err := s.repo.GetIdempotencyKey(ctx, p.ID, idempKey)
		switch {
		case err == nil:
			existing, err := s.repo.Get(ctx, existingID)
			if err == nil {
				return existing, nil
			}
			if !errors.Is(err, repo.ErrorNotFound) {
				return model.Task{}, err
			}
		case !errors.Is(err, repo.ErrorNotFound):
			// Окончательно ключ проверит CreateWithKey
			s.logger.Warn("idempotency key lookup failed",
				zap.Int64("user_id", p.ID), zap.Error(err))
		}
	}

	t := model.Task{
		Title:       in.Title,
		Description: in.Description,
		Status:      orDefault(in.Status, model.StatusPending),
		Priority:    orDefault(in.Priority, model.PriorityMedium),
		Category:    in.Category,
		CreatedBy:   p.ID,
		AssignedTo:  positive(in.AssignedTo),
	}
	t.DueDate, _ = parseDueDate(in.DueDate)

	var (
		created model.Task
		err     error
	)
	if idempKey != "" {
		created, err = s.repo.CreateWithKey(ctx, t, idempKey)
	} else {
		created, err = s.repo.Create(ctx, t)
	}
	if err != nil {
		return created, s.mapWriteError(err)
	}
	return created, nil
}

// Get отдает задачу только создателю или исполнителю; для остальных ее нет.
func (s *TaskService) Get(ctx context.Context, p model.Principal, id int64) (model.Task, error) {
	t, err := s.repo.Get(ctx, id)
	if err != nil {
		return t, err
	}
	if !t.VisibleTo(p.ID) {
		return model.Task{}, repo.ErrorNotFound
	}
	return t, nil
}

func (s *TaskService) List(ctx context.Context, p model.Principal, filter model.TaskFilter, limit int) ([]model.Task, error) {
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}
	filter.VisibleTo = p.ID
	return s.repo.List(ctx, filter, limit)
}

func (s *TaskService) Update(ctx context.Context, p model.Principal, id int64, in UpdateTaskInput) (model.Task, error) {
	in.Title = strings.TrimSpace(in.Title)
	if err := validateStruct(in); err != nil {
		return model.Task{}, err
	}

	t, err := s.repo.Get(ctx, id)
	if err != nil {
		return t, err
	}
	if !t.VisibleTo(p.ID) {
		return model.Task{}, ErrForbidden
	}

	t.Title = orDefault(in.Title, t.Title)
	t.Description = orDefault(in.Description, t.Description)
	t.Status = orDefault(in.Status, t.Status)
	t.Priority = orDefault(in.Priority, t.Priority)
	t.Category = orDefault(in.Category, t.Category)
	if due, ok := parseDueDate(in.DueDate); ok {
		t.DueDate = due
	}
	if assignee := positive(in.AssignedTo); assignee != nil {
		t.AssignedTo = assignee
	}

	updated, err := s.repo.Update(ctx, t)
	if err != nil {
		return updated, s.mapWriteError(err)
	}
	return updated, nil
}

// Delete разрешен только создателю, исполнителю - нет.
func (s *TaskService) Delete(ctx context.Context, p model.Principal, id int64) error {
	t, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if !t.DeletableBy(p.ID) {
		return ErrForbidden
	}
	return s.repo.Delete(ctx, id)
}

func (s *TaskService) GetStats(ctx context.Context, p model.Principal) (model.TaskStats, error) {
	return s.repo.GetStats(ctx, p.ID)
}

func (s *TaskService) mapWriteError(err error) error {
	if errors.Is(err, repo.ErrorReference) {
		return invalid("AssignedTo must reference an existing user")
	}
	return err
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func positive(id *int64) *int64 {
	if id == nil || *id <= 0 {
		return nil
	}
	v := *id
	return &v
}
