package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/BuzzLyutic/task-tracker/internal/model"
	"github.com/BuzzLyutic/task-tracker/internal/repo"
)

const bearerPrefix = "Bearer "

type PrincipalFinder interface {
	FindPrincipal(ctx context.Context, id int64) (model.Principal, error)
}

// BearerToken достает токен из заголовка Authorization.
func BearerToken(header string) (string, error) {
	if header == "" {
		return "", errNoHeader
	}
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", errBadScheme
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
	if token == "" {
		return "", errEmptyToken
	}
	return token, nil
}

// Authenticator проверяет токен и кладет принципала в контекст запроса.
type Authenticator struct {
	tokens *Tokens
	users  PrincipalFinder
}

func NewAuthenticator(tokens *Tokens, users PrincipalFinder) *Authenticator {
	return &Authenticator{tokens: tokens, users: users}
}

func (a *Authenticator) Intercept(r *http.Request) (context.Context, error) {
	raw, err := BearerToken(r.Header.Get("Authorization"))
	if err != nil {
		return nil, err
	}

	claims, err := a.tokens.Verify(raw)
	if err != nil {
		return nil, err
	}

	principal, err := a.users.FindPrincipal(r.Context(), claims.UserID)
	if errors.Is(err, repo.ErrorNotFound) {
		return nil, errNoPrincipal
	}
	if err != nil {
		return nil, fmt.Errorf("lookup principal %d: %w", claims.UserID, err)
	}

	return WithPrincipal(r.Context(), principal), nil
}

// RoleGuard пропускает только принципалов с нужной ролью. Ставится после Authenticator.
type RoleGuard struct {
	role string
}

func RequireRole(role string) RoleGuard {
	return RoleGuard{role: role}
}

func (g RoleGuard) Intercept(r *http.Request) (context.Context, error) {
	principal, ok := PrincipalFrom(r.Context())
	if !ok {
		return nil, errNoHeader
	}
	if principal.Role != g.role {
		if g.role == model.RoleAdmin {
			return nil, errAdminRequired
		}
		return nil, newError(ErrForbidden, "Access denied")
	}
	return r.Context(), nil
}
