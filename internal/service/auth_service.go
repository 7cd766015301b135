package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/todoapp/todo-backend/internal/auth"
	"github.com/todoapp/todo-backend/internal/domain"
	"github.com/todoapp/todo-backend/internal/repository"
)

// LoginRequest is the body of POST /login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserResponse is the public view of a user.
type UserResponse struct {
	ID    uint   `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// LoginResponse carries the bearer token and the logged-in user.
type LoginResponse struct {
	AccessToken string       `json:"access_token"`
	User        UserResponse `json:"user"`
}

// AuthService validates credentials and manages bearer tokens.
type AuthService interface {
	// ValidateCredentials returns the matching user, or nil when the email is
	// unknown or the password does not match. A non-nil error is always an
	// infrastructure failure.
	ValidateCredentials(ctx context.Context, email, password string) (*domain.User, error)

	// IssueToken signs a bearer token embedding the user's id and email.
	IssueToken(user *domain.User) (string, error)

	// Login validates credentials and issues a token. Invalid credentials
	// yield ErrAuthenticationFailed.
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)

	// Authenticate verifies a bearer token and returns its principal.
	Authenticate(token string) (auth.Principal, error)
}

type authService struct {
	users  repository.UserRepository
	tokens *auth.TokenManager
}

// NewAuthService creates an AuthService backed by the given credential store.
func NewAuthService(users repository.UserRepository, tokens *auth.TokenManager) AuthService {
	if users == nil || tokens == nil {
		panic("UserRepository and TokenManager cannot be nil for AuthService")
	}
	return &authService{users: users, tokens: tokens}
}

func (s *authService) ValidateCredentials(ctx context.Context, email, password string) (*domain.User, error) {
	logCtx := logrus.WithField("email", email)

	if email == "" || password == "" {
		return nil, nil
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Burn a comparison so unknown emails cost as much as bad passwords.
			checkPassword(password, dummyHash())
			logCtx.Debug("Credential check failed: unknown email")
			return nil, nil
		}
		logCtx.WithError(err).Error("An error occurred during user authentication")
		return nil, fmt.Errorf("validate credentials: %w", err)
	}

	if !checkPassword(password, user.Password) {
		logCtx.Debug("Credential check failed: password mismatch")
		return nil, nil
	}
	return user, nil
}

func (s *authService) IssueToken(user *domain.User) (string, error) {
	return s.tokens.Issue(user.ID, user.Email)
}

func (s *authService) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	logCtx := logrus.WithField("email", req.Email)

	user, err := s.ValidateCredentials(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}
	if user == nil {
		logCtx.Warn("Login attempt failed: invalid credentials")
		return nil, newError(ErrAuthenticationFailed, "Invalid email or password")
	}

	token, err := s.IssueToken(user)
	if err != nil {
		logCtx.WithError(err).Error("Failed to generate JWT token during login")
		return nil, fmt.Errorf("issue token: %w", err)
	}

	logCtx.WithField("user_id", user.ID).Info("User logged in successfully")
	return &LoginResponse{
		AccessToken: token,
		User:        UserResponse{ID: user.ID, Email: user.Email, Name: user.Name},
	}, nil
}

func (s *authService) Authenticate(token string) (auth.Principal, error) {
	p, err := s.tokens.Parse(token)
	if err != nil {
		logrus.WithError(err).Debug("Bearer token rejected")
		return auth.Principal{}, newError(ErrAuthenticationFailed, "Invalid or expired token")
	}
	return p, nil
}

// HashPassword returns the bcrypt hash stored in the credential store.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to generate hash from password: %w", err)
	}
	return string(bytes), nil
}

func checkPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

var dummyHash = sync.OnceValue(func() string {
	h, _ := bcrypt.GenerateFromPassword([]byte("timing-equalizer"), bcrypt.DefaultCost)
	return string(h)
})
