package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collections names the collections used by MongoRepository.
type Collections struct {
	Roles             string
	Mappings          string
	SystemPermissions string
	Assignments       string
	Counters          string
}

type MongoRepository struct {
	Roles             *mongo.Collection
	Mappings          *mongo.Collection
	SystemPermissions *mongo.Collection
	Assignments       *mongo.Collection
	Counters          *mongo.Collection
	Client            *mongo.Client // for transactions
}

func NewMongoRepository(db *mongo.Database, names Collections) *MongoRepository {
	return &MongoRepository{
		Roles:             db.Collection(names.Roles),
		Mappings:          db.Collection(names.Mappings),
		SystemPermissions: db.Collection(names.SystemPermissions),
		Assignments:       db.Collection(names.Assignments),
		Counters:          db.Collection(names.Counters),
		Client:            db.Client(),
	}
}

func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	// 1. Roles: xid unique
	idxRoleXid := mongo.IndexModel{
		Keys:    bson.D{{Key: "xid", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("uniq_role_xid"),
	}
	if _, err := r.Roles.Indexes().CreateOne(ctx, idxRoleXid); err != nil {
		return err
	}

	// 2. Mappings: one row per (resource, permission type, role), plus a
	// role lookup for the cascade
	idxMappingUnique := mongo.IndexModel{
		Keys: bson.D{
			{Key: "resource_type", Value: 1},
			{Key: "resource_id", Value: 1},
			{Key: "permission_type", Value: 1},
			{Key: "role_xid", Value: 1},
		},
		Options: options.Index().SetUnique(true).SetName("uniq_resource_permission_role"),
	}
	idxMappingRole := mongo.IndexModel{
		Keys:    bson.D{{Key: "role_xid", Value: 1}},
		Options: options.Index().SetName("idx_mapping_role"),
	}
	if _, err := r.Mappings.Indexes().CreateMany(ctx, []mongo.IndexModel{idxMappingUnique, idxMappingRole}); err != nil {
		return err
	}

	// 3. Assignments: role lookup for the cascade
	idxAssignmentRole := mongo.IndexModel{
		Keys:    bson.D{{Key: "roles", Value: 1}},
		Options: options.Index().SetName("idx_assignment_roles"),
	}
	_, err := r.Assignments.Indexes().CreateOne(ctx, idxAssignmentRole)
	return err
}

// NextID increments the named counter and returns the new value.
func (r *MongoRepository) NextID(ctx context.Context, sequence string) (int64, error) {
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var doc struct {
		Seq int64 `bson:"seq"`
	}
	err := r.Counters.FindOneAndUpdate(ctx,
		bson.M{"_id": sequence},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		opts,
	).Decode(&doc)
	if err != nil {
		return 0, err
	}
	return doc.Seq, nil
}
