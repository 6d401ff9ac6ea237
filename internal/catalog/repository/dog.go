package repository

import (
	"context"
	"errors"
	"fmt"

	"shelterwalk/pkg/config"
	"shelterwalk/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound  = errors.New("dog not found")
	ErrInvalidID = errors.New("invalid dog ID format")
)

const CollectionName = "dogs"

type DogRepository interface {
	FindByID(ctx context.Context, id string) (*model.Dog, error)
	FindAll(ctx context.Context) ([]*model.Dog, error)
	SetAvailability(ctx context.Context, id string, available bool, reason string) error
}

type mongoDogRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoDogRepository(cfg *config.Config) DogRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoDogRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoDogRepository) FindByID(ctx context.Context, id string) (*model.Dog, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidID, id)
	}

	var dog model.Dog
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&dog)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find dog: %w", err)
	}
	dog.ID = id

	return &dog, nil
}

func (r *mongoDogRepository) FindAll(ctx context.Context) ([]*model.Dog, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find dogs: %w", err)
	}
	defer cursor.Close(ctx)

	var dogs []*model.Dog
	if err = cursor.All(ctx, &dogs); err != nil {
		return nil, fmt.Errorf("failed to decode dogs: %w", err)
	}

	return dogs, nil
}

func (r *mongoDogRepository) SetAvailability(ctx context.Context, id string, available bool, reason string) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidID, id)
	}

	set := bson.M{"is_available": available}
	if available {
		set["unavailable_reason"] = ""
	} else {
		set["unavailable_reason"] = reason
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update dog availability: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
