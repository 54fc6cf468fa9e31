package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/99minutos/user-directory/internal/core/domain"
	"github.com/99minutos/user-directory/internal/infrastructure/codec"
)

const (
	DefaultKeyPrefix = "user:"
	scanCount        = 100
)

// UserStore keeps one key per user, <prefix><id>, holding the encoded record.
// Writes are compare-and-swap on the record version using WATCH/MULTI/EXEC.
type UserStore struct {
	client  *redis.Client
	codec   codec.Codec
	prefix  string
	timeout time.Duration
}

func NewUserStore(client *redis.Client, c codec.Codec, prefix string, timeout time.Duration) *UserStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &UserStore{client: client, codec: c, prefix: prefix, timeout: timeout}
}

func (s *UserStore) key(id string) string { return s.prefix + id }

func (s *UserStore) Get(ctx context.Context, id string) (*domain.UserDB, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, &domain.StoreError{Op: "get", Key: id, Err: err}
	}
	u, err := s.codec.Unmarshal(data)
	if err != nil {
		return nil, &domain.StoreError{Op: "get", Key: id, Err: err}
	}
	return u, nil
}

// version reads the stored version of key inside a transaction. Zero means
// the key does not exist.
func (s *UserStore) version(ctx context.Context, tx *redis.Tx, key string) (int64, error) {
	data, err := tx.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	cur, err := s.codec.Unmarshal(data)
	if err != nil {
		return 0, err
	}
	return cur.Version, nil
}

// Put writes u if the stored version still equals u.Version. Version zero
// means the key must not exist yet. On success u.Version is bumped.
func (s *UserStore) Put(ctx context.Context, u *domain.UserDB) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	key := s.key(u.ID)
	next := u.Clone()
	next.Version = u.Version + 1
	data, err := s.codec.Marshal(next)
	if err != nil {
		return &domain.StoreError{Op: "put", Key: u.ID, Err: err}
	}

	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := s.version(ctx, tx, key)
		if err != nil {
			return err
		}
		if cur != u.Version {
			return domain.ErrConflict
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		return err
	}, key)
	if err = s.casError("put", u.ID, err); err != nil {
		return err
	}
	u.Version = next.Version
	return nil
}

func (s *UserStore) Delete(ctx context.Context, id string, version int64) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	key := s.key(id)
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := s.version(ctx, tx, key)
		if err != nil {
			return err
		}
		if cur == 0 {
			return domain.ErrUserNotFound
		}
		if cur != version {
			return domain.ErrConflict
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			return nil
		})
		return err
	}, key)
	return s.casError("delete", id, err)
}

func (s *UserStore) casError(op, id string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, redis.TxFailedErr), errors.Is(err, domain.ErrConflict):
		return domain.ErrConflict
	case errors.Is(err, domain.ErrUserNotFound):
		return domain.ErrUserNotFound
	}
	return &domain.StoreError{Op: op, Key: id, Err: err}
}

// scan walks every user key. fn receives each batch and returns false to stop.
func (s *UserStore) scan(ctx context.Context, fn func(keys []string) bool) error {
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, s.prefix+"*", scanCount).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 && !fn(keys) {
			return nil
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// List returns up to limit records; limit <= 0 means all. Keys removed
// between the scan and the read are skipped.
func (s *UserStore) List(ctx context.Context, limit int) ([]*domain.UserDB, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var keys []string
	seen := make(map[string]struct{})
	err := s.scan(ctx, func(batch []string) bool {
		for _, k := range batch {
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			keys = append(keys, k)
			if limit > 0 && len(keys) == limit {
				return false
			}
		}
		return true
	})
	if err != nil {
		return nil, &domain.StoreError{Op: "list", Err: err}
	}

	out := make([]*domain.UserDB, 0, len(keys))
	for start := 0; start < len(keys); start += scanCount {
		end := min(start+scanCount, len(keys))
		values, err := s.client.MGet(ctx, keys[start:end]...).Result()
		if err != nil {
			return nil, &domain.StoreError{Op: "list", Err: err}
		}
		for i, v := range values {
			raw, ok := v.(string)
			if !ok {
				continue
			}
			u, err := s.codec.Unmarshal([]byte(raw))
			if err != nil {
				return nil, &domain.StoreError{Op: "list", Key: strings.TrimPrefix(keys[start+i], s.prefix), Err: err}
			}
			out = append(out, u)
		}
	}
	return out, nil
}

// DeleteAll removes every user key and then checks that none is left.
func (s *UserStore) DeleteAll(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var delErr error
	err := s.scan(ctx, func(keys []string) bool {
		delErr = s.client.Del(ctx, keys...).Err()
		return delErr == nil
	})
	if err == nil {
		err = delErr
	}
	if err != nil {
		return &domain.StoreError{Op: "delete_all", Err: err}
	}

	left := 0
	err = s.scan(ctx, func(keys []string) bool {
		left += len(keys)
		return false
	})
	if err != nil {
		return &domain.StoreError{Op: "delete_all", Err: err}
	}
	if left > 0 {
		return &domain.StoreError{Op: "delete_all", Err: fmt.Errorf("%d keys still present", left)}
	}
	return nil
}

func (s *UserStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.client.Ping(ctx).Err(); err != nil {
		return &domain.StoreError{Op: "ping", Err: err}
	}
	return nil
}
