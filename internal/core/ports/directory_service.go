package ports

import (
	"context"

	"github.com/99minutos/user-directory/internal/core/domain"
)

// CreateUserInput carries everything needed to create a user. ID may be empty,
// in which case one is generated.
type CreateUserInput struct {
	ID          string
	FirstName   string
	LastName    string
	Gender      domain.Gender
	Roles       []domain.Role
	Password    string
	IsActivated *bool
	ManagedBy   string
	InCharge    []string
}

// UpdateUserInput is a full replacement of the mutable fields. An empty
// ManagedBy or InCharge means none. Password and IsActivated keep their prior
// values when omitted.
type UpdateUserInput struct {
	FirstName   string
	LastName    string
	Gender      domain.Gender
	Roles       []domain.Role
	Password    string
	IsActivated *bool
	ManagedBy   string
	InCharge    []string
}

// DirectoryService is the hierarchy consistency engine. It is the only
// component allowed to write user records.
type DirectoryService interface {
	Create(ctx context.Context, in CreateUserInput) (*domain.User, error)
	Get(ctx context.Context, id string) (*domain.User, error)
	List(ctx context.Context, limit int) ([]*domain.User, error)
	Update(ctx context.Context, id string, in UpdateUserInput) (*domain.User, error)
	Patch(ctx context.Context, id string, patch domain.UserPatch) (*domain.User, error)
	Delete(ctx context.Context, id string) (*domain.User, error)
	DeleteAll(ctx context.Context) error
	ListSubordinates(ctx context.Context, managerID string) ([]*domain.User, error)
	AddSubordinate(ctx context.Context, managerID, subordinateID string) ([]*domain.User, error)
	RemoveSubordinate(ctx context.Context, managerID, subordinateID string) ([]*domain.User, error)
}
