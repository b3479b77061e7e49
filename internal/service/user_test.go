package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/BuzzLyutic/task-tracker/internal/auth"
	"github.com/BuzzLyutic/task-tracker/internal/model"
	"github.com/BuzzLyutic/task-tracker/internal/repo"
)

func TestUserService_Register(t *testing.T) {
	tests := []struct {
		name      string
		input     RegisterInput
		setupMock func(*MockUserRepository)
		wantErr   error
	}{
		{
			name:  "success",
			input: RegisterInput{Username: "alice", Email: "Alice@Example.com", Password: "secret1"},
			setupMock: func(m *MockUserRepository) {
				m.On("Create", mock.Anything, mock.MatchedBy(func(u model.User) bool {
					ok, _ := auth.CheckPassword(u.PasswordHash, "secret1")
					return u.Username == "alice" &&
						u.Email == "alice@example.com" &&
						u.Role == model.RoleUser &&
						ok
				})).Return(model.User{ID: 1, Username: "alice", Role: model.RoleUser}, nil)
			},
		},
		{
			name:      "short password",
			input:     RegisterInput{Username: "alice", Email: "alice@example.com", Password: "123"},
			setupMock: func(m *MockUserRepository) {},
			wantErr:   ErrValidation,
		},
		{
			name:      "bad email",
			input:     RegisterInput{Username: "alice", Email: "not-an-email", Password: "secret1"},
			setupMock: func(m *MockUserRepository) {},
			wantErr:   ErrValidation,
		},
		{
			name:      "username with @",
			input:     RegisterInput{Username: "al@ce", Email: "alice@example.com", Password: "secret1"},
			setupMock: func(m *MockUserRepository) {},
			wantErr:   ErrValidation,
		},
		{
			name:  "duplicate",
			input: RegisterInput{Username: "alice", Email: "alice@example.com", Password: "secret1"},
			setupMock: func(m *MockUserRepository) {
				m.On("Create", mock.Anything, mock.Anything).Return(model.User{}, repo.ErrorConflict)
			},
			wantErr: ErrConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockUserRepository)
			tt.setupMock(mockRepo)

			res, err := NewUserService(mockRepo, stubIssuer{}).Register(context.Background(), tt.input)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, "token-for-user", res.Token)
				assert.Equal(t, int64(1), res.User.ID)
			}
			mockRepo.AssertExpectations(t)
		})
	}
}

func TestUserService_Login(t *testing.T) {
	hash, err := auth.HashPassword("secret1")
	require.NoError(t, err)
	stored := model.User{ID: 1, Username: "alice", PasswordHash: hash, Role: model.RoleUser}

	tests := []struct {
		name      string
		input     LoginInput
		setupMock func(*MockUserRepository)
		wantErr   error
	}{
		{
			name:  "success",
			input: LoginInput{Username: "alice", Password: "secret1"},
			setupMock: func(m *MockUserRepository) {
				m.On("GetByUsername", mock.Anything, "alice").Return(stored, nil)
			},
		},
		{
			name:  "wrong password",
			input: LoginInput{Username: "alice", Password: "nope"},
			setupMock: func(m *MockUserRepository) {
				m.On("GetByUsername", mock.Anything, "alice").Return(stored, nil)
			},
			wantErr: ErrInvalidCredentials,
		},
		{
			name:  "unknown user",
			input: LoginInput{Username: "mallory", Password: "secret1"},
			setupMock: func(m *MockUserRepository) {
				m.On("GetByUsername", mock.Anything, "mallory").Return(model.User{}, repo.ErrorNotFound)
			},
			wantErr: ErrInvalidCredentials,
		},
		{
			name:      "missing password",
			input:     LoginInput{Username: "alice"},
			setupMock: func(m *MockUserRepository) {},
			wantErr:   ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockUserRepository)
			tt.setupMock(mockRepo)

			res, err := NewUserService(mockRepo, stubIssuer{}).Login(context.Background(), tt.input)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, "token-for-user", res.Token)
				assert.Equal(t, "alice", res.User.Username)
			}
			mockRepo.AssertExpectations(t)
		})
	}
}

func TestUserService_UpdateProfile(t *testing.T) {
	current := model.User{ID: 1, Username: "alice", Email: "alice@example.com", PasswordHash: "old-hash", Role: model.RoleUser}

	t.Run("partial update keeps other fields", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		mockRepo.On("Get", mock.Anything, int64(1)).Return(current, nil)
		mockRepo.On("Update", mock.Anything, mock.MatchedBy(func(u model.User) bool {
			return u.Username == "alice" &&
				u.Email == "new@example.com" &&
				u.PasswordHash == "old-hash" &&
				u.Role == model.RoleUser
		})).Return(current, nil)

		_, err := NewUserService(mockRepo, stubIssuer{}).UpdateProfile(context.Background(), alice, UpdateProfileInput{Email: "new@example.com"})

		require.NoError(t, err)
		mockRepo.AssertExpectations(t)
	})

	t.Run("password is rehashed", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		mockRepo.On("Get", mock.Anything, int64(1)).Return(current, nil)
		mockRepo.On("Update", mock.Anything, mock.MatchedBy(func(u model.User) bool {
			ok, _ := auth.CheckPassword(u.PasswordHash, "brand-new")
			return ok
		})).Return(current, nil)

		_, err := NewUserService(mockRepo, stubIssuer{}).UpdateProfile(context.Background(), alice, UpdateProfileInput{Password: "brand-new"})

		require.NoError(t, err)
		mockRepo.AssertExpectations(t)
	})

	t.Run("duplicate username", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		mockRepo.On("Get", mock.Anything, int64(1)).Return(current, nil)
		mockRepo.On("Update", mock.Anything, mock.Anything).Return(model.User{}, repo.ErrorConflict)

		_, err := NewUserService(mockRepo, stubIssuer{}).UpdateProfile(context.Background(), alice, UpdateProfileInput{Username: "bob"})

		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("invalid email", func(t *testing.T) {
		mockRepo := new(MockUserRepository)

		_, err := NewUserService(mockRepo, stubIssuer{}).UpdateProfile(context.Background(), alice, UpdateProfileInput{Email: "nope"})

		assert.ErrorIs(t, err, ErrValidation)
		mockRepo.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	})
}

func TestValidateStruct_Messages(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  string
	}{
		{name: "required", input: CreateTaskInput{}, want: "Title is required"},
		{name: "oneof", input: CreateTaskInput{Title: "x", Status: "done"}, want: "Status must be one of: pending, in-progress, completed"},
		{name: "min", input: RegisterInput{Username: "al", Email: "a@b.co", Password: "secret1"}, want: "Username must be at least 3 characters"},
		{name: "email", input: RegisterInput{Username: "alice", Email: "x", Password: "secret1"}, want: "Email must be a valid email address"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateStruct(tt.input)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.want, verr.Message)
		})
	}
}
