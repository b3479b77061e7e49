package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BuzzLyutic/task-tracker/internal/auth"
	"github.com/BuzzLyutic/task-tracker/internal/model"
	"github.com/BuzzLyutic/task-tracker/internal/repo"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrConflict           = errors.New("username or email already exists")
)

type TokenIssuer interface {
	Issue(userID int64) (string, time.Time, error)
}

type RegisterInput struct {
	Username string `json:"username" validate:"required,min=3,max=50,excludesall=@?"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type LoginInput struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// UpdateProfileInput - пустые поля не меняются.
type UpdateProfileInput struct {
	Username string `json:"username" validate:"omitempty,min=3,max=50,excludesall=@?"`
	Email    string `json:"email" validate:"omitempty,email,max=255"`
	Password string `json:"password" validate:"omitempty,min=6,max=72"`
}

type AuthResult struct {
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expiresAt"`
	User      model.User `json:"user"`
}

type UserService struct {
	repo   repo.UserRepository
	tokens TokenIssuer
}

func NewUserService(repo repo.UserRepository, tokens TokenIssuer) *UserService {
	return &UserService{repo: repo, tokens: tokens}
}

func (s *UserService) Register(ctx context.Context, in RegisterInput) (AuthResult, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validateStruct(in); err != nil {
		return AuthResult{}, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return AuthResult{}, err
	}

	user, err := s.repo.Create(ctx, model.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         model.RoleUser,
	})
	if errors.Is(err, repo.ErrorConflict) {
		return AuthResult{}, ErrConflict
	}
	if err != nil {
		return AuthResult{}, fmt.Errorf("create user: %w", err)
	}

	return s.issue(user)
}

func (s *UserService) Login(ctx context.Context, in LoginInput) (AuthResult, error) {
	in.Username = strings.TrimSpace(in.Username)
	if err := validateStruct(in); err != nil {
		return AuthResult{}, err
	}

	user, err := s.repo.GetByUsername(ctx, in.Username)
	if errors.Is(err, repo.ErrorNotFound) {
		return AuthResult{}, ErrInvalidCredentials
	}
	if err != nil {
		return AuthResult{}, fmt.Errorf("find user: %w", err)
	}

	ok, err := auth.CheckPassword(user.PasswordHash, in.Password)
	if err != nil {
		return AuthResult{}, err
	}
	if !ok {
		return AuthResult{}, ErrInvalidCredentials
	}

	return s.issue(user)
}

func (s *UserService) Profile(ctx context.Context, p model.Principal) (model.User, error) {
	return s.repo.Get(ctx, p.ID)
}

func (s *UserService) UpdateProfile(ctx context.Context, p model.Principal, in UpdateProfileInput) (model.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validateStruct(in); err != nil {
		return model.User{}, err
	}

	user, err := s.repo.Get(ctx, p.ID)
	if err != nil {
		return user, err
	}

	user.Username = orDefault(in.Username, user.Username)
	user.Email = orDefault(in.Email, user.Email)
	if in.Password != "" {
		hash, err := auth.HashPassword(in.Password)
		if err != nil {
			return model.User{}, err
		}
		user.PasswordHash = hash
	}

	updated, err := s.repo.Update(ctx, user)
	if errors.Is(err, repo.ErrorConflict) {
		return model.User{}, ErrConflict
	}
	return updated, err
}

func (s *UserService) List(ctx context.Context) ([]model.User, error) {
	return s.repo.List(ctx)
}

func (s *UserService) issue(user model.User) (AuthResult, error) {
	token, exp, err := s.tokens.Issue(user.ID)
	if err != nil {
		return AuthResult{}, err
	}
	return AuthResult{Token: token, ExpiresAt: exp, User: user}, nil
}
