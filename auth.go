package catalog

import (
	"context"
	"fmt"

	"github.com/shelfstream/catalog/model"
)

// AuthService verifies API credentials against the user store.
//
// Authentication is HTTP Basic: the caller presents username and password
// on every request, and the service checks them against the stored
// argon2id hash. Role checks are left to the transport layer via
// model.User.IsAdmin.
type AuthService struct {
	userRepo UserRepository
	logger   Logger
}

// AuthServiceOption configures an AuthService.
type AuthServiceOption func(*AuthService) error

// NewAuthService creates a new AuthService with the provided options.
//
// Required options:
//   - WithAuthUserRepository: user repository
//   - WithAuthLogger: logger instance
func NewAuthService(opts ...AuthServiceOption) (*AuthService, error) {
	s := &AuthService{}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, NewErrorWithCause(ErrCodeConfiguration, "failed to apply auth service option", err)
		}
	}

	if s.userRepo == nil {
		return nil, NewError(ErrCodeConfiguration, "UserRepository is required (use WithAuthUserRepository)")
	}
	if s.logger == nil {
		return nil, NewError(ErrCodeConfiguration, "Logger is required (use WithAuthLogger)")
	}

	return s, nil
}

// WithAuthUserRepository sets the user repository dependency.
func WithAuthUserRepository(userRepo UserRepository) AuthServiceOption {
	return func(s *AuthService) error {
		if userRepo == nil {
			return fmt.Errorf("userRepo cannot be nil")
		}
		s.userRepo = userRepo
		return nil
	}
}

// WithAuthLogger sets the logger instance.
func WithAuthLogger(logger Logger) AuthServiceOption {
	return func(s *AuthService) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		s.logger = logger
		return nil
	}
}

// Authenticate verifies the credentials and returns the matching user.
// Unknown usernames and wrong passwords both return UNAUTHORIZED, without
// distinguishing which check failed.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*model.User, error) {
	if username == "" || password == "" {
		return nil, NewError(ErrCodeUnauthorized, "credentials required")
	}

	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		if IsNoData(err) {
			return nil, NewError(ErrCodeUnauthorized, "invalid credentials")
		}
		return nil, NewErrorWithCause(ErrCodeDatabase, "failed to load user", err)
	}

	if !user.VerifyPassword(password) {
		s.logger.Warnf("Failed login attempt for user %s", username)
		return nil, NewError(ErrCodeUnauthorized, "invalid credentials")
	}

	return &user, nil
}

// RegisterUser creates a new account. Intended for bootstrap and admin
// tooling rather than public signup.
func (s *AuthService) RegisterUser(ctx context.Context, username, password, role string) (*model.User, error) {
	if _, err := s.userRepo.FindByUsername(ctx, username); err == nil {
		return nil, NewError(ErrCodeValidation, fmt.Sprintf("username already taken: %s", username))
	} else if !IsNoData(err) {
		return nil, NewErrorWithCause(ErrCodeDatabase, "failed to check username", err)
	}

	user, err := model.NewUser(username, password, role)
	if err != nil {
		return nil, NewErrorWithCause(ErrCodeValidation, "invalid user", err)
	}

	saved, err := s.userRepo.Save(ctx, user)
	if err != nil {
		return nil, NewErrorWithCause(ErrCodeDatabase, "failed to save user", err)
	}

	s.logger.Infof("User registered: id=%d, username=%s, role=%s", saved.ID, saved.Username, saved.Role)

	return saved, nil
}
