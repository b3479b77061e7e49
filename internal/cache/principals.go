package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/task-tracker/internal/model"
	"github.com/BuzzLyutic/task-tracker/internal/repo"
)

const keyPrefix = "principal:"

// Users - read-through кэш принципалов поверх UserRepository.
// Запись пользователя сбрасывает его ключ. Сбой redis не ломает запрос:
// идем в базу и пишем в лог.
type Users struct {
	repo.UserRepository
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewUsers(inner repo.UserRepository, client *redis.Client, ttl time.Duration, logger *zap.Logger) *Users {
	return &Users{
		UserRepository: inner,
		client:         client,
		ttl:            ttl,
		logger:         logger,
	}
}

func (c *Users) FindPrincipal(ctx context.Context, id int64) (model.Principal, error) {
	key := principalKey(id)

	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var p model.Principal
		if err := json.Unmarshal(raw, &p); err == nil {
			return p, nil
		}
		c.logger.Warn("corrupt cached principal", zap.Int64("user_id", id))
	case errors.Is(err, redis.Nil):
	default:
		c.logger.Warn("principal cache read failed", zap.Int64("user_id", id), zap.Error(err))
	}

	p, err := c.UserRepository.FindPrincipal(ctx, id)
	if err != nil {
		return p, err
	}

	if data, err := json.Marshal(p); err == nil {
		if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.logger.Warn("principal cache write failed", zap.Int64("user_id", id), zap.Error(err))
		}
	}
	return p, nil
}

func (c *Users) Update(ctx context.Context, u model.User) (model.User, error) {
	updated, err := c.UserRepository.Update(ctx, u)
	c.Invalidate(ctx, u.ID)
	return updated, err
}

func (c *Users) Invalidate(ctx context.Context, id int64) {
	if err := c.client.Del(ctx, principalKey(id)).Err(); err != nil {
		c.logger.Warn("principal cache invalidate failed", zap.Int64("user_id", id), zap.Error(err))
	}
}

func principalKey(id int64) string {
	return fmt.Sprintf("%s%d", keyPrefix, id)
}
