package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"dumbal/internal/model"
)

// GameRepo persists the durable game archive in MongoDB.
type GameRepo interface {
	Create(ctx context.Context, record *model.GameRecord) error
	GetByID(ctx context.Context, gameID string) (*model.GameRecord, error)
	Update(ctx context.Context, record *model.GameRecord) error
	Delete(ctx context.Context, gameID string) error
	ListRecent(ctx context.Context, limit int64) ([]*model.GameRecord, error)
}

type gameRepo struct {
	collection *mongo.Collection
}

// NewGameRepo creates a Mongo-backed game repository.
func NewGameRepo(client *mongo.Client) GameRepo {
	db := client.Database("dumbal")
	return &gameRepo{
		collection: db.Collection("games"),
	}
}

func (r *gameRepo) Create(ctx context.Context, record *model.GameRecord) error {
	_, err := r.collection.InsertOne(ctx, record)
	return err
}

func (r *gameRepo) GetByID(ctx context.Context, gameID string) (*model.GameRecord, error) {
	var record model.GameRecord
	err := r.collection.FindOne(ctx, bson.M{"_id": gameID}).Decode(&record)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (r *gameRepo) Update(ctx context.Context, record *model.GameRecord) error {
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": record.ID}, record)
	return err
}

func (r *gameRepo) Delete(ctx context.Context, gameID string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": gameID})
	return err
}

func (r *gameRepo) ListRecent(ctx context.Context, limit int64) ([]*model.GameRecord, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(limit)
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []*model.GameRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}
