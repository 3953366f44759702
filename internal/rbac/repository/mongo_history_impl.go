package repository

import (
	"context"
	"time"

	"rolegate/internal/rbac/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoHistoryRepository implements HistoryRepository using MongoDB
type MongoHistoryRepository struct {
	Collection *mongo.Collection
}

func NewMongoHistoryRepository(db *mongo.Database, collectionName string) *MongoHistoryRepository {
	return &MongoHistoryRepository{
		Collection: db.Collection(collectionName),
	}
}

// EnsureHistoryIndexes creates indexes for efficient querying
func (r *MongoHistoryRepository) EnsureHistoryIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "entity_type", Value: 1},
				{Key: "entity_xid", Value: 1},
				{Key: "created_at", Value: -1},
			},
			Options: options.Index().SetName("idx_entity_query"),
		},
		{
			Keys: bson.D{
				{Key: "caller_id", Value: 1},
				{Key: "created_at", Value: -1},
			},
			Options: options.Index().SetName("idx_caller_query"),
		},
		{
			Keys:    bson.D{{Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_created_at"),
		},
	}

	_, err := r.Collection.Indexes().CreateMany(ctx, indexes)
	return err
}

// CreateHistory creates a new history record (append-only)
func (r *MongoHistoryRepository) CreateHistory(ctx context.Context, history *model.PermissionHistory) error {
	if history.CreatedAt.IsZero() {
		history.CreatedAt = time.Now()
	}
	_, err := r.Collection.InsertOne(ctx, history)
	return err
}

// FindHistory finds history records with pagination and filtering
func (r *MongoHistoryRepository) FindHistory(ctx context.Context, req model.GetPermissionHistoryReq) ([]*model.PermissionHistory, int64, error) {
	filter := bson.M{}
	if req.EntityType != "" {
		filter["entity_type"] = req.EntityType
	}
	if req.EntityXid != "" {
		filter["entity_xid"] = req.EntityXid
	}
	if req.CallerID != "" {
		filter["caller_id"] = req.CallerID
	}
	if req.Operation != "" {
		filter["operation"] = req.Operation
	}

	if req.StartTime != nil || req.EndTime != nil {
		timeFilter := bson.M{}
		if req.StartTime != nil {
			timeFilter["$gte"] = *req.StartTime
		}
		if req.EndTime != nil {
			timeFilter["$lte"] = *req.EndTime
		}
		filter["created_at"] = timeFilter
	}

	total, err := r.Collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	skip := int64((req.Page - 1) * req.Size)
	findOptions := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(skip).
		SetLimit(int64(req.Size))

	cursor, err := r.Collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var results []*model.PermissionHistory
	if err := cursor.All(ctx, &results); err != nil {
		return nil, 0, err
	}

	return results, total, nil
}
