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

func (r *MongoRepository) GetSystemPermission(ctx context.Context, name string) (*model.SystemPermission, error) {
	var sp model.SystemPermission
	if err := r.SystemPermissions.FindOne(ctx, bson.M{"_id": name}).Decode(&sp); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &sp, nil
}

func (r *MongoRepository) ListSystemPermissions(ctx context.Context) ([]*model.SystemPermission, error) {
	cursor, err := r.SystemPermissions.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []*model.SystemPermission
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *MongoRepository) UpsertSystemPermission(ctx context.Context, sp *model.SystemPermission) error {
	if sp.UpdatedAt.IsZero() {
		sp.UpdatedAt = time.Now()
	}
	update := bson.M{
		"$set": bson.M{
			"description": sp.Description,
			"permission":  sp.Permission,
			"updated_at":  sp.UpdatedAt,
			"updated_by":  sp.UpdatedBy,
		},
	}
	_, err := r.SystemPermissions.UpdateOne(ctx, bson.M{"_id": sp.Name}, update, options.Update().SetUpsert(true))
	return err
}
