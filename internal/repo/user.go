package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/BuzzLyutic/task-tracker/internal/model"
)

const selectUser = `SELECT id, username, email, password_hash, role, created_at, updated_at FROM users`

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{
		pool: pool,
	}
}

func (r *UserRepo) Create(ctx context.Context, u model.User) (model.User, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (username, email, password_hash, role)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`, u.Username, u.Email, u.PasswordHash, u.Role).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	return u, mapError(err)
}

func (r *UserRepo) Get(ctx context.Context, id int64) (model.User, error) {
	return r.getOne(ctx, selectUser+` WHERE id = $1`, id)
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (model.User, error) {
	return r.getOne(ctx, selectUser+` WHERE username = $1`, username)
}

// FindPrincipal читает только id, username, email и role - без хэша пароля.
func (r *UserRepo) FindPrincipal(ctx context.Context, id int64) (model.Principal, error) {
	var p model.Principal
	err := r.pool.QueryRow(ctx, `
		SELECT id, username, email, role FROM users WHERE id = $1
	`, id).Scan(&p.ID, &p.Username, &p.Email, &p.Role)

	if errors.Is(err, pgx.ErrNoRows) {
		return p, ErrorNotFound
	}
	return p, err
}

func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.pool.Query(ctx, selectUser+` ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]model.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *UserRepo) Update(ctx context.Context, u model.User) (model.User, error) {
	err := r.pool.QueryRow(ctx, `
		UPDATE users
		SET username = $2, email = $3, password_hash = $4, role = $5, updated_at = now()
		WHERE id = $1
		RETURNING id, username, email, password_hash, role, created_at, updated_at
	`, u.ID, u.Username, u.Email, u.PasswordHash, u.Role).Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return u, ErrorNotFound
	}
	return u, mapError(err)
}

func (r *UserRepo) getOne(ctx context.Context, query string, arg any) (model.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return u, ErrorNotFound
	}
	return u, err
}

func scanUser(row pgx.Row) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}
