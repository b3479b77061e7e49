package repo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/BuzzLyutic/task-tracker/internal/model"
)

var (
	ErrorNotFound  = errors.New("not found")
	ErrorConflict  = errors.New("conflict")
	ErrorReference = errors.New("referenced row does not exist")
)

// Создатель и исполнитель подтягиваются явными join'ами.
const selectTask = `
	SELECT t.id, t.title, t.description, t.status, t.priority, t.category, t.due_date,
	       t.created_by, t.assigned_to, t.created_at, t.updated_at,
	       c.username, a.username
	FROM tasks t
	JOIN users c ON c.id = t.created_by
	LEFT JOIN users a ON a.id = t.assigned_to
`

type TaskRepo struct { // Репозиторий для работы непосредственно с БД
	pool *pgxpool.Pool
}

func NewTaskRepo(pool *pgxpool.Pool) *TaskRepo { // Конструктор
	return &TaskRepo{
		pool: pool,
	}
}

func (r *TaskRepo) Create(ctx context.Context, t model.Task) (model.Task, error) {
	id, err := insertTask(ctx, r.pool, t)
	if err != nil {
		return t, mapError(err)
	}
	return r.Get(ctx, id)
}

// CreateWithKey создает задачу и закрепляет за ней ключ идемпотентности в одной транзакции.
// Параллельная вставка того же ключа ждет на первичном ключе idempotency_keys,
// после коммита первой откатывает свою задачу и отдает уже созданную.
// Ключ, указывающий на удаленную задачу, переходит к новой.
func (r *TaskRepo) CreateWithKey(ctx context.Context, t model.Task, key string) (model.Task, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return t, err
	}
	defer tx.Rollback(ctx) // после Commit ничего не делает

	id, err := insertTask(ctx, tx, t)
	if err != nil {
		return t, mapError(err)
	}

	var owner int64
	err = tx.QueryRow(ctx, `
		INSERT INTO idempotency_keys (user_id, key, resource_id) VALUES ($1, $2, $3)
		ON CONFLICT (user_id, key) DO NOTHING
		RETURNING resource_id
	`, t.CreatedBy, key, id).Scan(&owner)
	if errors.Is(err, pgx.ErrNoRows) {
		// Ключ занят. Новый снапшот уже видит задачу победителя.
		err = tx.QueryRow(ctx, `
			UPDATE idempotency_keys k
			SET resource_id = $3, created_at = now()
			WHERE k.user_id = $1 AND k.key = $2
			  AND NOT EXISTS (SELECT 1 FROM tasks WHERE tasks.id = k.resource_id)
			RETURNING resource_id
		`, t.CreatedBy, key, id).Scan(&owner)
		if errors.Is(err, pgx.ErrNoRows) {
			return r.replay(ctx, tx, t.CreatedBy, key)
		}
	}
	if err != nil {
		return t, mapError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return t, err
	}
	return r.Get(ctx, id)
}

// replay откатывает свою вставку и возвращает задачу, закрепленную за ключом.
func (r *TaskRepo) replay(ctx context.Context, tx pgx.Tx, userID int64, key string) (model.Task, error) {
	if err := tx.Rollback(ctx); err != nil {
		return model.Task{}, err
	}
	existingID, err := r.GetIdempotencyKey(ctx, userID, key)
	if err != nil {
		return model.Task{}, err
	}
	return r.Get(ctx, existingID)
}

func (r *TaskRepo) Get(ctx context.Context, id int64) (model.Task, error) {
	t, err := scanTask(r.pool.QueryRow(ctx, selectTask+` WHERE t.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return t, ErrorNotFound
	}
	return t, err
}

func (r *TaskRepo) List(ctx context.Context, filter model.TaskFilter, limit int) ([]model.Task, error) {
	query := selectTask + `
		WHERE (t.created_by = $1 OR t.assigned_to = $1)
		  AND ($2::text IS NULL OR t.status = $2)
		  AND ($3::text IS NULL OR t.priority = $3)
		  AND ($4::text IS NULL OR t.category = $4)
		ORDER BY t.created_at DESC, t.id DESC
		LIMIT $5
	`

	rows, err := r.pool.Query(ctx, query, filter.VisibleTo, filter.Status, filter.Priority, filter.Category, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]model.Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// Update перезаписывает все изменяемые поля. Слияние делает сервис;
// версионирования нет, побеждает последняя запись.
func (r *TaskRepo) Update(ctx context.Context, t model.Task) (model.Task, error) {
	cmd, err := r.pool.Exec(ctx, `
		UPDATE tasks
		SET title = $2, description = $3, status = $4, priority = $5, category = $6,
		    due_date = $7, assigned_to = $8, updated_at = now()
		WHERE id = $1
	`, t.ID, t.Title, t.Description, t.Status, t.Priority, t.Category, t.DueDate, t.AssignedTo)
	if err != nil {
		return t, mapError(err)
	}
	if cmd.RowsAffected() == 0 {
		return t, ErrorNotFound
	}
	return r.Get(ctx, t.ID)
}

func (r *TaskRepo) Delete(ctx context.Context, id int64) error {
	cmd, err := r.pool.Exec(ctx, "DELETE FROM tasks WHERE id = $1", id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrorNotFound
	}
	return nil
}

func (r *TaskRepo) GetIdempotencyKey(ctx context.Context, userID int64, key string) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		SELECT resource_id FROM idempotency_keys WHERE user_id = $1 AND key = $2
	`, userID, key).Scan(&id)

	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrorNotFound
	}
	return id, err
}

func (r *TaskRepo) PurgeIdempotencyKeys(ctx context.Context, olderThan time.Time) (int64, error) {
	cmd, err := r.pool.Exec(ctx, "DELETE FROM idempotency_keys WHERE created_at < $1", olderThan)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *TaskRepo) GetStats(ctx context.Context, userID int64) (model.TaskStats, error) {
	stats := model.TaskStats{
		ByStatus: map[string]int{
			model.StatusPending:    0,
			model.StatusInProgress: 0,
			model.StatusCompleted:  0,
		},
	}

	rows, err := r.pool.Query(ctx, `
		SELECT status, COUNT(*)
		FROM tasks
		WHERE created_by = $1 OR assigned_to = $1
		GROUP BY status
	`, userID)
	if err != nil {
		return stats, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return stats, err
		}
		stats.ByStatus[status] = count
		stats.Total += count
	}
	return stats, rows.Err()
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func insertTask(ctx context.Context, q querier, t model.Task) (int64, error) {
	var id int64
	err := q.QueryRow(ctx, `
		INSERT INTO tasks (title, description, status, priority, category, due_date, created_by, assigned_to)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, t.Title, t.Description, t.Status, t.Priority, t.Category, t.DueDate, t.CreatedBy, t.AssignedTo).Scan(&id)
	return id, err
}

func scanTask(row pgx.Row) (model.Task, error) {
	var (
		t            model.Task
		creatorName  string
		assigneeName *string
	)
	err := row.Scan(
		&t.ID, &t.Title, &t.Description, &t.Status, &t.Priority, &t.Category, &t.DueDate,
		&t.CreatedBy, &t.AssignedTo, &t.CreatedAt, &t.UpdatedAt,
		&creatorName, &assigneeName,
	)
	if err != nil {
		return t, err
	}

	t.Creator = &model.UserRef{ID: t.CreatedBy, Username: creatorName}
	if t.AssignedTo != nil && assigneeName != nil {
		t.Assignee = &model.UserRef{ID: *t.AssignedTo, Username: *assigneeName}
	}
	return t, nil
}

func mapError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return ErrorConflict
		case "23503":
			return ErrorReference
		}
	}
	return err
}
