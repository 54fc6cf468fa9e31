package mongo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/99minutos/user-directory/internal/core/domain"
	"github.com/99minutos/user-directory/internal/infrastructure/codec"
)

const (
	id1 = "6f1c2d3e-0000-4000-8000-000000000011"
	id2 = "6f1c2d3e-0000-4000-8000-000000000012"
	ns  = "directory.users"
)

func testUser(id string, version int64) *domain.UserDB {
	return &domain.UserDB{
		User: domain.User{
			ID:          id,
			FirstName:   "Ada",
			Gender:      domain.GenderFemale,
			Roles:       domain.NewRoles(domain.RoleManager),
			IsActivated: true,
			ActivatedAt: 1,
			UpdatedAt:   1,
			InCharge:    domain.NewIDSet(id2),
		},
		HashedPassword: "digest",
		Version:        version,
	}
}

func doc(t *testing.T, u *domain.UserDB) bson.D {
	t.Helper()
	data, err := bson.Marshal(codec.FromUser(u))
	require.NoError(t, err)
	var d bson.D
	require.NoError(t, bson.Unmarshal(data, &d))
	return d
}

func TestUserStore(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("get decodes the stored record", func(mt *mtest.T) {
		store := NewUserStore(mt.DB, time.Second)
		want := testUser(id1, 4)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, doc(t, want)))

		got, err := store.Get(context.Background(), id1)
		require.NoError(mt, err)
		assert.Equal(mt, want, got)
	})

	mt.Run("get of a missing id", func(mt *mtest.T) {
		store := NewUserStore(mt.DB, time.Second)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		_, err := store.Get(context.Background(), id1)
		assert.ErrorIs(mt, err, domain.ErrUserNotFound)
	})

	mt.Run("create inserts version one", func(mt *mtest.T) {
		store := NewUserStore(mt.DB, time.Second)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		u := testUser(id1, 0)
		require.NoError(mt, store.Put(context.Background(), u))
		assert.Equal(mt, int64(1), u.Version)
	})

	mt.Run("create of an existing id conflicts", func(mt *mtest.T) {
		store := NewUserStore(mt.DB, time.Second)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index: 0, Code: 11000, Message: "duplicate key error",
		}))

		assert.ErrorIs(mt, store.Put(context.Background(), testUser(id1, 0)), domain.ErrConflict)
	})

	mt.Run("replace bumps the version", func(mt *mtest.T) {
		store := NewUserStore(mt.DB, time.Second)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}))

		u := testUser(id1, 3)
		require.NoError(mt, store.Put(context.Background(), u))
		assert.Equal(mt, int64(4), u.Version)
	})

	mt.Run("replace of a stale version conflicts", func(mt *mtest.T) {
		store := NewUserStore(mt.DB, time.Second)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}))

		u := testUser(id1, 3)
		assert.ErrorIs(mt, store.Put(context.Background(), u), domain.ErrConflict)
		assert.Equal(mt, int64(3), u.Version)
	})

	mt.Run("delete", func(mt *mtest.T) {
		store := NewUserStore(mt.DB, time.Second)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))

		require.NoError(mt, store.Delete(context.Background(), id1, 2))
	})

	mt.Run("delete of a stale version conflicts", func(mt *mtest.T) {
		store := NewUserStore(mt.DB, time.Second)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}),
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{{Key: "n", Value: 1}}),
		)

		assert.ErrorIs(mt, store.Delete(context.Background(), id1, 2), domain.ErrConflict)
	})

	mt.Run("delete of a missing id", func(mt *mtest.T) {
		store := NewUserStore(mt.DB, time.Second)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}),
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch),
		)

		assert.ErrorIs(mt, store.Delete(context.Background(), id1, 2), domain.ErrUserNotFound)
	})

	mt.Run("list", func(mt *mtest.T) {
		store := NewUserStore(mt.DB, time.Second)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			doc(t, testUser(id1, 1)),
			doc(t, testUser(id2, 1)),
		))

		users, err := store.List(context.Background(), 0)
		require.NoError(mt, err)
		require.Len(mt, users, 2)
		assert.Equal(mt, id1, users[0].ID)
	})

	mt.Run("list of an empty collection", func(mt *mtest.T) {
		store := NewUserStore(mt.DB, time.Second)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		users, err := store.List(context.Background(), 10)
		require.NoError(mt, err)
		assert.NotNil(mt, users)
		assert.Empty(mt, users)
	})

	mt.Run("server errors become store errors", func(mt *mtest.T) {
		store := NewUserStore(mt.DB, time.Second)
		mt.AddMockResponses(
			mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 2, Message: "bad value"}),
			mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 2, Message: "bad value"}),
		)

		_, err := store.Get(context.Background(), id1)
		assert.ErrorIs(mt, err, domain.ErrStore)
		assert.ErrorIs(mt, store.DeleteAll(context.Background()), domain.ErrStore)
	})
}
