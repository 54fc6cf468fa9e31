package ports

import (
	"context"

	"github.com/99minutos/user-directory/internal/core/domain"
)

// UserStore is the record store adapter. Every call touches exactly one key;
// callers must not assume two Puts happen atomically.
type UserStore interface {
	// Get returns domain.ErrUserNotFound when the id is absent.
	Get(ctx context.Context, id string) (*domain.UserDB, error)
	// Put is a compare-and-swap on user.Version: zero means the key must not
	// exist yet, any other value must match the stored version. On success the
	// stored version is bumped and written back into user.Version. A mismatch
	// returns domain.ErrConflict.
	Put(ctx context.Context, user *domain.UserDB) error
	// Delete removes id if its stored version still equals version.
	Delete(ctx context.Context, id string, version int64) error
	// List returns at most limit records (all when limit <= 0). An empty store
	// yields an empty slice, not an error.
	List(ctx context.Context, limit int) ([]*domain.UserDB, error)
	DeleteAll(ctx context.Context) error
	Ping(ctx context.Context) error
}
