package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/99minutos/user-directory/internal/core/domain"
	"github.com/99minutos/user-directory/internal/core/ports"
)

const tokenType = "bearer"

// Login outcomes reported to metrics.
const (
	loginSucceeded   = "success"
	loginUnknownUser = "unknown_user"
	loginDeactivated = "deactivated"
	loginBadPassword = "incorrect_password"
	loginFailed      = "error"
)

// AuthService implements login, bearer token authentication and the
// activation and role gates.
type AuthService struct {
	users  ports.UserStore
	hasher ports.PasswordHasher
	tokens ports.TokenIssuer
	logger zerolog.Logger
	opts   options
	w      *recordWriter
}

func NewAuthService(users ports.UserStore, hasher ports.PasswordHasher, tokens ports.TokenIssuer, logger zerolog.Logger, opts ...Option) *AuthService {
	o := buildOptions(opts)
	return &AuthService{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		logger: logger,
		opts:   o,
		w:      &recordWriter{store: users, opts: o, logger: logger},
	}
}

// Login checks the credentials of the user whose id is username and issues a
// token on success.
func (s *AuthService) Login(ctx context.Context, username, password string) (*ports.Token, error) {
	if username == "" || password == "" {
		return nil, domain.NewValidationError("username and password are required")
	}

	rec, err := s.users.Get(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			s.opts.metrics.ObserveLogin(loginUnknownUser)
		} else {
			s.opts.metrics.ObserveLogin(loginFailed)
		}
		return nil, fmt.Errorf("login %s: %w", username, err)
	}
	// Activation state is only reported once the password matches.
	if !s.hasher.Verify(password, rec.HashedPassword) {
		s.opts.metrics.ObserveLogin(loginBadPassword)
		s.logger.Warn().Str("user_id", rec.ID).Msg("login with incorrect password")
		return nil, domain.ErrIncorrectPassword
	}
	if !rec.IsActivated {
		s.opts.metrics.ObserveLogin(loginDeactivated)
		return nil, fmt.Errorf("login %s: user is not activated: %w", username, domain.ErrForbidden)
	}

	token, expiresAt, err := s.tokens.Issue(rec.ID)
	if err != nil {
		s.opts.metrics.ObserveLogin(loginFailed)
		return nil, fmt.Errorf("login %s: issue token: %w", username, err)
	}
	s.opts.metrics.ObserveLogin(loginSucceeded)
	s.logger.Info().Str("user_id", rec.ID).Msg("user logged in")
	return &ports.Token{AccessToken: token, TokenType: tokenType, ExpiresAt: expiresAt}, nil
}

// Authenticate resolves a bearer token to the user it was issued for.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, domain.ErrUnauthenticated
	}
	subject, err := s.tokens.Decode(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
	}

	rec, err := s.users.Get(ctx, subject)
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, fmt.Errorf("%w: unknown subject", domain.ErrUnauthenticated)
	}
	if err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}
	return &rec.User, nil
}

func (s *AuthService) RequireActivated(user *domain.User) (*domain.User, error) {
	if user == nil {
		return nil, domain.ErrUnauthenticated
	}
	if !user.IsActivated {
		return nil, fmt.Errorf("user %s is not activated: %w", user.ID, domain.ErrForbidden)
	}
	return user, nil
}

// RequireRole passes an activated user holding any of roles.
func (s *AuthService) RequireRole(user *domain.User, roles ...domain.Role) (*domain.User, error) {
	user, err := s.RequireActivated(user)
	if err != nil {
		return nil, err
	}
	if !user.Roles.Has(roles...) {
		return nil, fmt.Errorf("user %s lacks a required role: %w", user.ID, domain.ErrForbidden)
	}
	return user, nil
}

// ChangePassword sets a new password for userID. Only the owner or an admin
// may do it.
func (s *AuthService) ChangePassword(ctx context.Context, caller *domain.User, userID, newPassword, confirm string) error {
	const op = "change_password"

	if caller == nil {
		return domain.ErrUnauthenticated
	}
	if caller.ID != userID && !caller.Roles.Has(domain.RoleAdmin) {
		return fmt.Errorf("%s %s: %w", op, userID, domain.ErrForbidden)
	}
	if newPassword == "" {
		return domain.NewValidationError("new password is required")
	}
	if newPassword != confirm {
		return domain.NewValidationError("passwords do not match")
	}

	hashed, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("%s: hash password: %w", op, err)
	}

	_, err = s.w.mutate(ctx, op, userID, func(rec *domain.UserDB) error {
		if s.hasher.Verify(newPassword, rec.HashedPassword) {
			return domain.NewValidationError("new password must differ from the current one")
		}
		rec.HashedPassword = hashed
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			return err
		}
		return fmt.Errorf("%s %s: %w", op, userID, err)
	}
	s.logger.Info().Str("user_id", userID).Str("by", caller.ID).Msg("password changed")
	return nil
}

// Bootstrap creates an activated admin with the given id unless a user with
// that id already exists. It reports whether a user was created.
func (s *AuthService) Bootstrap(ctx context.Context, id, password string) (bool, error) {
	if id == "" || password == "" {
		return false, nil
	}

	_, err := s.users.Get(ctx, id)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return false, fmt.Errorf("bootstrap admin %s: %w", id, err)
	}

	user, err := domain.NewUser(domain.UserParams{
		ID:        id,
		FirstName: "admin",
		Gender:    domain.GenderOther,
		Roles:     []domain.Role{domain.RoleAdmin},
	}, s.opts.clock().UnixNano())
	if err != nil {
		return false, fmt.Errorf("bootstrap admin: %w", err)
	}
	hashed, err := s.hasher.Hash(password)
	if err != nil {
		return false, fmt.Errorf("bootstrap admin: hash password: %w", err)
	}

	err = s.users.Put(ctx, &domain.UserDB{User: *user, HashedPassword: hashed})
	if errors.Is(err, domain.ErrConflict) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("bootstrap admin %s: %w", id, err)
	}
	s.logger.Info().Str("user_id", id).Msg("bootstrap admin created")
	return true, nil
}
