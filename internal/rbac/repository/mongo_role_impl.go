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

func (r *MongoRepository) InsertRole(ctx context.Context, role *model.Role) error {
	now := time.Now()
	if role.CreatedAt.IsZero() {
		role.CreatedAt = now
	}
	role.UpdatedAt = now
	_, err := r.Roles.InsertOne(ctx, role)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

func (r *MongoRepository) UpdateRole(ctx context.Context, role *model.Role) error {
	role.UpdatedAt = time.Now()
	update := bson.M{
		"$set": bson.M{
			"xid":        role.Xid,
			"name":       role.Name,
			"updated_at": role.UpdatedAt,
			"updated_by": role.UpdatedBy,
		},
	}
	res, err := r.Roles.UpdateOne(ctx, bson.M{"_id": role.ID}, update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoRepository) DeleteRole(ctx context.Context, id int64) error {
	res, err := r.Roles.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoRepository) GetRoleByID(ctx context.Context, id int64) (*model.Role, error) {
	return r.findRole(ctx, bson.M{"_id": id})
}

func (r *MongoRepository) GetRoleByXid(ctx context.Context, xid string) (*model.Role, error) {
	return r.findRole(ctx, bson.M{"xid": xid})
}

func (r *MongoRepository) findRole(ctx context.Context, filter bson.M) (*model.Role, error) {
	var role model.Role
	if err := r.Roles.FindOne(ctx, filter).Decode(&role); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &role, nil
}

func (r *MongoRepository) ListRoles(ctx context.Context) ([]*model.Role, error) {
	cursor, err := r.Roles.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var roles []*model.Role
	if err := cursor.All(ctx, &roles); err != nil {
		return nil, err
	}
	return roles, nil
}
