package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/BuzzLyutic/task-tracker/internal/repo"
	"github.com/BuzzLyutic/task-tracker/internal/service"
	"github.com/BuzzLyutic/task-tracker/pkg/logger"
	"github.com/BuzzLyutic/task-tracker/pkg/respond"
)

type AuthHandler struct {
	service  *service.UserService
	logger   *zap.Logger
	audit    *zap.Logger
	security *zap.Logger
}

func NewAuthHandler(srv *service.UserService, l *zap.Logger) *AuthHandler {
	return &AuthHandler{
		service:  srv,
		logger:   l,
		audit:    logger.Audit(l),
		security: logger.Security(l),
	}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	res, err := h.service.Register(r.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrConflict) {
			h.security.Warn("duplicate registration", zap.String("username", req.Username))
		}
		h.handleErrors(w, r, err)
		return
	}

	h.audit.Info("user registered", zap.Int64("user_id", res.User.ID))
	respond.Data(w, r, http.StatusCreated, res)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req service.LoginInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	res, err := h.service.Login(r.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			h.security.Warn("failed login", zap.String("username", req.Username), zap.String("remote", r.RemoteAddr))
		}
		h.handleErrors(w, r, err)
		return
	}

	h.audit.Info("login success", zap.Int64("user_id", res.User.ID), zap.String("role", res.User.Role))
	respond.Data(w, r, http.StatusOK, res)
}

func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	user, err := h.service.Profile(r.Context(), p)
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}
	respond.Data(w, r, http.StatusOK, user)
}

func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var req service.UpdateProfileInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.service.UpdateProfile(r.Context(), p, req)
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}

	h.audit.Info("profile updated", zap.Int64("user_id", p.ID))
	respond.Data(w, r, http.StatusOK, user)
}

// ListUsers - только для администратора, роль проверяет гейт.
func (h *AuthHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.List(r.Context())
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}
	respond.Data(w, r, http.StatusOK, users)
}

func (h *AuthHandler) handleErrors(w http.ResponseWriter, r *http.Request, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		respond.Error(w, r, http.StatusBadRequest, verr.Message)
	case errors.Is(err, service.ErrInvalidCredentials):
		respond.Error(w, r, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, service.ErrConflict):
		respond.Error(w, r, http.StatusConflict, "Username or email already exists")
	case errors.Is(err, repo.ErrorNotFound):
		respond.Error(w, r, http.StatusNotFound, "User not found")
	default:
		h.logger.Error("internal error", zap.String("path", r.URL.Path), zap.Error(err))
		respond.Error(w, r, http.StatusInternalServerError, "Internal server error")
	}
}
