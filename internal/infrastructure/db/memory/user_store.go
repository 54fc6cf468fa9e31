package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/99minutos/user-directory/internal/core/domain"
	"github.com/99minutos/user-directory/internal/infrastructure/codec"
)

// UserStore is a process-local store with the same compare-and-swap
// semantics as the networked drivers. Values are kept encoded so reads never
// alias stored state.
type UserStore struct {
	mu    sync.RWMutex
	codec codec.Codec
	data  map[string][]byte
}

func NewUserStore(c codec.Codec) *UserStore {
	return &UserStore{codec: c, data: make(map[string][]byte)}
}

func (s *UserStore) Get(_ context.Context, id string) (*domain.UserDB, error) {
	s.mu.RLock()
	raw, ok := s.data[id]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	u, err := s.codec.Unmarshal(raw)
	if err != nil {
		return nil, &domain.StoreError{Op: "get", Key: id, Err: err}
	}
	return u, nil
}

func (s *UserStore) version(id string) (int64, error) {
	raw, ok := s.data[id]
	if !ok {
		return 0, nil
	}
	u, err := s.codec.Unmarshal(raw)
	if err != nil {
		return 0, err
	}
	return u.Version, nil
}

func (s *UserStore) Put(_ context.Context, u *domain.UserDB) error {
	next := u.Clone()
	next.Version = u.Version + 1
	raw, err := s.codec.Marshal(next)
	if err != nil {
		return &domain.StoreError{Op: "put", Key: u.ID, Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	cur, err := s.version(u.ID)
	if err != nil {
		return &domain.StoreError{Op: "put", Key: u.ID, Err: err}
	}
	if cur != u.Version {
		return domain.ErrConflict
	}
	s.data[u.ID] = raw
	u.Version = next.Version
	return nil
}

func (s *UserStore) Delete(_ context.Context, id string, version int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, err := s.version(id)
	if err != nil {
		return &domain.StoreError{Op: "delete", Key: id, Err: err}
	}
	if cur == 0 {
		return domain.ErrUserNotFound
	}
	if cur != version {
		return domain.ErrConflict
	}
	delete(s.data, id)
	return nil
}

// List returns up to limit records ordered by id; limit <= 0 means all.
func (s *UserStore) List(_ context.Context, limit int) ([]*domain.UserDB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}

	out := make([]*domain.UserDB, 0, len(ids))
	for _, id := range ids {
		u, err := s.codec.Unmarshal(s.data[id])
		if err != nil {
			return nil, &domain.StoreError{Op: "list", Key: id, Err: err}
		}
		out = append(out, u)
	}
	return out, nil
}

func (s *UserStore) DeleteAll(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make(map[string][]byte)
	return nil
}

func (s *UserStore) Ping(context.Context) error { return nil }
