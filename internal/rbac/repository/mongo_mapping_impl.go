package repository

import (
	"context"

	"rolegate/internal/rbac/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// ReplaceMappings swaps the rows of one resource inside a transaction so
// readers never see a half-written set.
func (r *MongoRepository) ReplaceMappings(ctx context.Context, resourceType string, resourceID int64, rows []model.PermissionMapping) error {
	session, err := r.Client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	rows = stampMappings(resourceType, resourceID, rows)
	callback := func(sessCtx mongo.SessionContext) (interface{}, error) {
		filter := bson.M{"resource_type": resourceType, "resource_id": resourceID}
		if _, err := r.Mappings.DeleteMany(sessCtx, filter); err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return nil, nil
		}
		docs := make([]interface{}, len(rows))
		for i := range rows {
			docs[i] = rows[i]
		}
		if _, err := r.Mappings.InsertMany(sessCtx, docs); err != nil {
			return nil, err
		}
		return nil, nil
	}

	_, err = session.WithTransaction(ctx, callback)
	return err
}

func (r *MongoRepository) DeleteResourceMappings(ctx context.Context, resourceType string, resourceID int64) error {
	_, err := r.Mappings.DeleteMany(ctx, bson.M{"resource_type": resourceType, "resource_id": resourceID})
	return err
}

func (r *MongoRepository) DeleteRoleMappings(ctx context.Context, roleXid string) (int64, error) {
	res, err := r.Mappings.DeleteMany(ctx, bson.M{"role_xid": roleXid})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (r *MongoRepository) FindRoleMappings(ctx context.Context, roleXid string) ([]model.PermissionMapping, error) {
	return r.findMappings(ctx, bson.M{"role_xid": roleXid})
}

func (r *MongoRepository) FindResourceMappings(ctx context.Context, resourceType string, resourceID int64) ([]model.PermissionMapping, error) {
	return r.findMappings(ctx, bson.M{"resource_type": resourceType, "resource_id": resourceID})
}

func (r *MongoRepository) findMappings(ctx context.Context, filter bson.M) ([]model.PermissionMapping, error) {
	cursor, err := r.Mappings.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []model.PermissionMapping
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}
