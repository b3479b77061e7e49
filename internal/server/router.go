package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/task-tracker/internal/auth"
	"github.com/BuzzLyutic/task-tracker/internal/handler"
	"github.com/BuzzLyutic/task-tracker/internal/middleware"
	"github.com/BuzzLyutic/task-tracker/internal/model"
	"github.com/BuzzLyutic/task-tracker/pkg/logger"
	"github.com/BuzzLyutic/task-tracker/pkg/respond"
)

// Pinger - то, что умеет проверить доступность хранилища (pgxpool.Pool).
type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Logger        *zap.Logger
	Tasks         *handler.TaskHandler
	Auth          *handler.AuthHandler
	Authenticator *auth.Authenticator
	DB            Pinger

	CORSOrigins        []string
	RateLimitPerMinute int
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(logger.HTTP(d.Logger)))
	r.Use(middleware.Recoverer(d.Logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"Location"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", health(d.DB))

	gate := middleware.NewPipeline(logger.Security(d.Logger), d.Authenticator)
	admin := gate.With(auth.RequireRole(model.RoleAdmin))

	r.Route("/api", func(r chi.Router) {
		if d.RateLimitPerMinute > 0 {
			r.Use(httprate.Limit(
				d.RateLimitPerMinute,
				time.Minute,
				httprate.WithKeyFuncs(httprate.KeyByIP),
				httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
					respond.Error(w, r, http.StatusTooManyRequests, "Too many requests, please try again later.")
				}),
			))
		}

		r.Post("/auth/register", d.Auth.Register)
		r.Post("/auth/login", d.Auth.Login)

		r.Group(func(r chi.Router) {
			r.Use(gate.Handler)

			r.Get("/auth/profile", d.Auth.Profile)
			r.Put("/auth/profile", d.Auth.UpdateProfile)

			r.Route("/tasks", func(r chi.Router) {
				r.Post("/", d.Tasks.Create)
				r.Get("/", d.Tasks.List)
				r.Get("/{id}", d.Tasks.Get)
				r.Put("/{id}", d.Tasks.Update)
				r.Delete("/{id}", d.Tasks.Delete)
			})

			r.Get("/stats", d.Tasks.Stats)
		})

		r.With(admin.Handler).Get("/users", d.Auth.ListUsers)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respond.Error(w, r, http.StatusNotFound, "Route not found")
	})

	return r
}

func health(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.Ping(ctx); err != nil {
				respond.JSON(w, r, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		respond.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	}
}
