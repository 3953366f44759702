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

func (r *MongoRepository) GetAssignment(ctx context.Context, userID string) (*model.RoleAssignment, error) {
	var a model.RoleAssignment
	if err := r.Assignments.FindOne(ctx, bson.M{"_id": userID}).Decode(&a); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *MongoRepository) UpsertAssignment(ctx context.Context, a *model.RoleAssignment) error {
	now := time.Now()
	a.UpdatedAt = now
	if a.Roles == nil {
		a.Roles = []string{}
	}
	update := bson.M{
		"$set": bson.M{
			"roles":      a.Roles,
			"updated_at": now,
			"updated_by": a.UpdatedBy,
		},
		"$setOnInsert": bson.M{
			"created_at": now,
		},
	}
	_, err := r.Assignments.UpdateOne(ctx, bson.M{"_id": a.UserID}, update, options.Update().SetUpsert(true))
	return err
}

func (r *MongoRepository) CountAssignmentsByRole(ctx context.Context, roleXid string) (int64, error) {
	return r.Assignments.CountDocuments(ctx, bson.M{"roles": roleXid})
}

func (r *MongoRepository) RemoveRoleFromAssignments(ctx context.Context, roleXid string) (int64, error) {
	res, err := r.Assignments.UpdateMany(ctx,
		bson.M{"roles": roleXid},
		bson.M{
			"$pull": bson.M{"roles": roleXid},
			"$set":  bson.M{"updated_at": time.Now()},
		},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}
