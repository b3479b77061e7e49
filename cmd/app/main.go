package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/task-tracker/internal/auth"
	"github.com/BuzzLyutic/task-tracker/internal/cache"
	"github.com/BuzzLyutic/task-tracker/internal/config"
	"github.com/BuzzLyutic/task-tracker/internal/handler"
	"github.com/BuzzLyutic/task-tracker/internal/repo"
	"github.com/BuzzLyutic/task-tracker/internal/server"
	"github.com/BuzzLyutic/task-tracker/internal/service"
	"github.com/BuzzLyutic/task-tracker/internal/worker"
	"github.com/BuzzLyutic/task-tracker/pkg/logger"
)

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err) // логгера еще нет
	}

	// Подключаем логгер
	lg, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer lg.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// Подключаем БД
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		lg.Fatal("Failed to connect to Database", zap.Error(err)) // дальнейшая работа теряет смысл
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		lg.Fatal("Failed to ping the Database", zap.Error(err))
	}
	if err := repo.Migrate(ctx, pool); err != nil {
		lg.Fatal("Failed to migrate the Database", zap.Error(err))
	}
	lg.Info("Successfully connected to the Database!")

	tokens := auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL)
	taskRepo := repo.NewTaskRepo(pool)

	var users repo.UserRepository = repo.NewUserRepo(pool)
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			// Кэш необязателен: запросы пойдут в базу
			lg.Warn("Redis is unavailable, principal cache degraded", zap.Error(err))
		}
		users = cache.NewUsers(users, rdb, cfg.PrincipalCacheTTL, lg)
		lg.Info("Principal cache enabled", zap.String("addr", cfg.RedisAddr))
	}

	router := server.NewRouter(server.Deps{
		Logger:             lg,
		Tasks:              handler.NewTaskHandler(service.NewTaskService(taskRepo, lg), lg),
		Auth:               handler.NewAuthHandler(service.NewUserService(users, tokens), lg),
		Authenticator:      auth.NewAuthenticator(tokens, users),
		DB:                 pool,
		CORSOrigins:        cfg.CORSOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})

	sweeper := worker.NewSweeper(taskRepo, lg, cfg.IdempotencyTTL, cfg.SweepInterval)
	sweeper.Start(ctx)

	srv := http.Server{ // Создаем сервер
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() { // Запуск сервера и обработка ошибок
		lg.Info("Server started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	<-ctx.Done()
	lg.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Error("Shutdown error", zap.Error(err))
	}
	sweeper.Stop()
	lg.Info("Server stopped successfully!")
}
