package ports

import (
	"context"
	"time"

	"github.com/99minutos/user-directory/internal/core/domain"
)

// Token is an issued bearer token.
type Token struct {
	AccessToken string
	TokenType   string
	ExpiresAt   time.Time
}

// AuthService is the auth gate in front of the directory.
type AuthService interface {
	Login(ctx context.Context, username, password string) (*Token, error)
	Authenticate(ctx context.Context, token string) (*domain.User, error)
	RequireActivated(user *domain.User) (*domain.User, error)
	RequireRole(user *domain.User, roles ...domain.Role) (*domain.User, error)
	ChangePassword(ctx context.Context, caller *domain.User, userID, newPassword, confirm string) error
}
