package repository

import (
	"context"
	"errors"
	"time"

	"rolegate/internal/rbac/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoResourceRepository stores one resource type in its own collection.
// Each record is a single document, so a write of all its permission fields
// is atomic.
type MongoResourceRepository[P any] struct {
	Collection *mongo.Collection
}

func NewMongoResourceRepository[P any](db *mongo.Database, collectionName string) *MongoResourceRepository[P] {
	return &MongoResourceRepository[P]{Collection: db.Collection(collectionName)}
}

func (r *MongoResourceRepository[P]) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "xid", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_resource_xid"),
		},
		// role lookup for the deletion cascade
		{
			Keys:    bson.D{{Key: "role_xids", Value: 1}},
			Options: options.Index().SetName("idx_resource_role_xids"),
		},
	}
	_, err := r.Collection.Indexes().CreateMany(ctx, indexes)
	return err
}

func (r *MongoResourceRepository[P]) Insert(ctx context.Context, res *model.Resource[P]) error {
	now := time.Now()
	res.CreatedAt = now
	res.UpdatedAt = now
	res.Version = 1
	res.RoleXids = res.ReferencedRoles()
	if _, err := r.Collection.InsertOne(ctx, res); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

func (r *MongoResourceRepository[P]) Update(ctx context.Context, res *model.Resource[P], expectedVersion int64) error {
	res.UpdatedAt = time.Now()
	res.Version = expectedVersion + 1
	res.RoleXids = res.ReferencedRoles()

	filter := bson.M{"_id": res.ID, "version": expectedVersion}
	result, err := r.Collection.ReplaceOne(ctx, filter, res)
	if err != nil {
		res.Version = expectedVersion
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return err
	}
	if result.MatchedCount == 0 {
		res.Version = expectedVersion
		n, err := r.Collection.CountDocuments(ctx, bson.M{"_id": res.ID})
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return ErrVersionConflict
	}
	return nil
}

func (r *MongoResourceRepository[P]) Delete(ctx context.Context, id int64) error {
	result, err := r.Collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoResourceRepository[P]) GetByID(ctx context.Context, id int64) (*model.Resource[P], error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoResourceRepository[P]) GetByXid(ctx context.Context, xid string) (*model.Resource[P], error) {
	return r.findOne(ctx, bson.M{"xid": xid})
}

func (r *MongoResourceRepository[P]) findOne(ctx context.Context, filter bson.M) (*model.Resource[P], error) {
	var res model.Resource[P]
	if err := r.Collection.FindOne(ctx, filter).Decode(&res); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &res, nil
}

func (r *MongoResourceRepository[P]) List(ctx context.Context) ([]*model.Resource[P], error) {
	return r.find(ctx, bson.M{})
}

func (r *MongoResourceRepository[P]) FindByRole(ctx context.Context, roleXid string) ([]*model.Resource[P], error) {
	return r.find(ctx, bson.M{"role_xids": roleXid})
}

func (r *MongoResourceRepository[P]) CountByRole(ctx context.Context, roleXid string) (int64, error) {
	return r.Collection.CountDocuments(ctx, bson.M{"role_xids": roleXid})
}

func (r *MongoResourceRepository[P]) find(ctx context.Context, filter bson.M) ([]*model.Resource[P], error) {
	cursor, err := r.Collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []*model.Resource[P]
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
