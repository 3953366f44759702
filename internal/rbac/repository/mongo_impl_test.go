package repository

import (
	"context"
	"testing"

	"rolegate/internal/rbac/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

var testCollections = Collections{
	Roles:             "roles",
	Mappings:          "permission_mappings",
	SystemPermissions: "system_permissions",
	Assignments:       "user_roles",
	Counters:          "counters",
}

func TestMongoRepositoryRoles(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("get role by xid", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.DB, testCollections)
		mt.AddMockResponses(mtest.CreateCursorResponse(1, "rolegate.roles", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: int64(4)},
			{Key: "xid", Value: "editors"},
			{Key: "name", Value: "Editors"},
		}))

		role, err := repo.GetRoleByXid(context.Background(), "editors")
		require.NoError(mt, err)
		assert.Equal(mt, int64(4), role.ID)
		assert.Equal(mt, "Editors", role.Name)
	})

	mt.Run("missing role is not found", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.DB, testCollections)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "rolegate.roles", mtest.FirstBatch))

		_, err := repo.GetRoleByXid(context.Background(), "ghost")
		assert.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("duplicate xid maps to ErrDuplicate", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.DB, testCollections)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "duplicate key error",
		}))

		err := repo.InsertRole(context.Background(), &model.Role{ID: 5, Xid: "editors", Name: "Editors"})
		assert.ErrorIs(mt, err, ErrDuplicate)
	})

	mt.Run("delete of unknown id is not found", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.DB, testCollections)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}))

		assert.ErrorIs(mt, repo.DeleteRole(context.Background(), 99), ErrNotFound)
	})
}

func TestMongoRepositoryNextID(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("returns incremented counter", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.DB, testCollections)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: bson.D{
			{Key: "_id", Value: "roles"},
			{Key: "seq", Value: int64(7)},
		}}))

		id, err := repo.NextID(context.Background(), "roles")
		require.NoError(mt, err)
		assert.Equal(mt, int64(7), id)
	})
}

func TestMongoResourceRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("decodes permissions", func(mt *mtest.T) {
		repo := NewMongoResourceRepository[notePayload](mt.DB, "dashboards")
		mt.AddMockResponses(mtest.CreateCursorResponse(1, "rolegate.dashboards", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: int64(1)},
			{Key: "xid", Value: "DB_1"},
			{Key: "name", Value: "Ops"},
			{Key: "permissions", Value: bson.D{
				{Key: model.FieldReadPermission, Value: bson.A{bson.A{"user"}}},
			}},
			{Key: "payload", Value: bson.D{{Key: "text", Value: "hello"}}},
			{Key: "version", Value: int64(3)},
		}))

		res, err := repo.GetByXid(context.Background(), "DB_1")
		require.NoError(mt, err)
		assert.True(mt, res.Permission(model.FieldReadPermission).Equal(model.RequireAnyRole("user")))
		assert.Equal(mt, "hello", res.Payload.Text)
		assert.Equal(mt, int64(3), res.Version)
	})

	mt.Run("stale version is a conflict", func(mt *mtest.T) {
		repo := NewMongoResourceRepository[notePayload](mt.DB, "dashboards")
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}),
			mtest.CreateCursorResponse(1, "rolegate.dashboards", mtest.FirstBatch, bson.D{{Key: "n", Value: int32(1)}}),
		)

		res := &model.Resource[notePayload]{ID: 1, Xid: "DB_1", Name: "Ops"}
		err := repo.Update(context.Background(), res, 2)
		assert.ErrorIs(mt, err, ErrVersionConflict)
		assert.Equal(mt, int64(2), res.Version)
	})
}
