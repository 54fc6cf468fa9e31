package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/99minutos/user-directory/internal/core/domain"
	"github.com/99minutos/user-directory/internal/infrastructure/codec"
)

const usersCollection = "users"

// UserStore keeps one document per user keyed by id. Writes are
// compare-and-swap on the version field.
type UserStore struct {
	col     *mongo.Collection
	timeout time.Duration
}

func NewUserStore(db *mongo.Database, timeout time.Duration) *UserStore {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &UserStore{col: db.Collection(usersCollection), timeout: timeout}
}

// EnsureIndexes creates the secondary indexes on the users collection.
func (s *UserStore) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := s.col.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.D{{Key: "managed_by", Value: 1}}})
	if err != nil {
		return &domain.StoreError{Op: "ensure_indexes", Err: err}
	}
	return nil
}

func (s *UserStore) Get(ctx context.Context, id string) (*domain.UserDB, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var rec codec.Record
	err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, &domain.StoreError{Op: "get", Key: id, Err: err}
	}
	u, err := rec.ToUser()
	if err != nil {
		return nil, &domain.StoreError{Op: "get", Key: id, Err: err}
	}
	return u, nil
}

// Put inserts when u.Version is zero and otherwise replaces the document
// only while its stored version still equals u.Version.
func (s *UserStore) Put(ctx context.Context, u *domain.UserDB) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rec := codec.FromUser(u)
	rec.Version = u.Version + 1

	if u.Version == 0 {
		_, err := s.col.InsertOne(ctx, rec)
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrConflict
		}
		if err != nil {
			return &domain.StoreError{Op: "put", Key: u.ID, Err: err}
		}
		u.Version = rec.Version
		return nil
	}

	res, err := s.col.ReplaceOne(ctx, bson.M{"_id": u.ID, "version": u.Version}, rec)
	if err != nil {
		return &domain.StoreError{Op: "put", Key: u.ID, Err: err}
	}
	if res.MatchedCount == 0 {
		return domain.ErrConflict
	}
	u.Version = rec.Version
	return nil
}

func (s *UserStore) Delete(ctx context.Context, id string, version int64) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.col.DeleteOne(ctx, bson.M{"_id": id, "version": version})
	if err != nil {
		return &domain.StoreError{Op: "delete", Key: id, Err: err}
	}
	if res.DeletedCount > 0 {
		return nil
	}

	n, err := s.col.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return &domain.StoreError{Op: "delete", Key: id, Err: err}
	}
	if n == 0 {
		return domain.ErrUserNotFound
	}
	return domain.ErrConflict
}

// List returns up to limit records ordered by id; limit <= 0 means all.
func (s *UserStore) List(ctx context.Context, limit int) ([]*domain.UserDB, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := s.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, &domain.StoreError{Op: "list", Err: err}
	}
	defer cur.Close(ctx)

	var recs []codec.Record
	if err := cur.All(ctx, &recs); err != nil {
		return nil, &domain.StoreError{Op: "list", Err: err}
	}

	out := make([]*domain.UserDB, 0, len(recs))
	for _, rec := range recs {
		u, err := rec.ToUser()
		if err != nil {
			return nil, &domain.StoreError{Op: "list", Key: rec.ID, Err: err}
		}
		out = append(out, u)
	}
	return out, nil
}

func (s *UserStore) DeleteAll(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.col.DeleteMany(ctx, bson.M{}); err != nil {
		return &domain.StoreError{Op: "delete_all", Err: err}
	}
	return nil
}

func (s *UserStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.col.Database().Client().Ping(ctx, nil); err != nil {
		return &domain.StoreError{Op: "ping", Err: err}
	}
	return nil
}
