package middleware

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/BuzzLyutic/task-tracker/internal/auth"
	"github.com/BuzzLyutic/task-tracker/pkg/respond"
)

// Interceptor проверяет запрос и возвращает контекст для следующего шага
// либо ошибку, на которой запрос завершается.
type Interceptor interface {
	Intercept(r *http.Request) (context.Context, error)
}

type InterceptorFunc func(r *http.Request) (context.Context, error)

func (f InterceptorFunc) Intercept(r *http.Request) (context.Context, error) { return f(r) }

// Pipeline - упорядоченная цепочка перехватчиков.
type Pipeline struct {
	interceptors []Interceptor
	logger       *zap.Logger
}

func NewPipeline(logger *zap.Logger, interceptors ...Interceptor) *Pipeline {
	return &Pipeline{
		interceptors: interceptors,
		logger:       logger,
	}
}

// With возвращает новую цепочку: текущие перехватчики, затем extra.
func (p *Pipeline) With(extra ...Interceptor) *Pipeline {
	all := make([]Interceptor, 0, len(p.interceptors)+len(extra))
	all = append(all, p.interceptors...)
	all = append(all, extra...)
	return &Pipeline{interceptors: all, logger: p.logger}
}

// Run прогоняет запрос через цепочку и возвращает итоговый контекст.
func (p *Pipeline) Run(r *http.Request) (context.Context, error) {
	ctx := r.Context()
	for _, ic := range p.interceptors {
		next, err := ic.Intercept(r.WithContext(ctx))
		if err != nil {
			return nil, err
		}
		ctx = next
	}
	return ctx, nil
}

// Handler делает из цепочки обычный net/http middleware.
func (p *Pipeline) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, err := p.Run(r)
		if err != nil {
			p.reject(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (p *Pipeline) reject(w http.ResponseWriter, r *http.Request, err error) {
	fields := []zap.Field{
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("remote", r.RemoteAddr),
		zap.Error(err),
	}

	switch {
	case auth.IsAuthFailure(err):
		p.logger.Warn("request rejected", fields...)
		respond.Error(w, r, http.StatusUnauthorized, auth.Message(err, "Please authenticate"))
	case errors.Is(err, auth.ErrForbidden):
		p.logger.Warn("request forbidden", fields...)
		respond.Error(w, r, http.StatusForbidden, auth.Message(err, "Access denied"))
	default:
		p.logger.Error("gate failure", fields...)
		respond.Error(w, r, http.StatusInternalServerError, "Server error in authentication")
	}
}
