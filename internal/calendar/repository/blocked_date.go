package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shelterwalk/pkg/config"
	"shelterwalk/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound      = errors.New("blocked date not found")
	ErrAlreadyExists = errors.New("date is already blocked")
)

const CollectionName = "blocked_dates"

// BlockedDateRepository is the shelter-wide closure calendar. The date string
// itself is the document ID, so blocking a date twice is naturally rejected.
type BlockedDateRepository interface {
	IsBlocked(ctx context.Context, date string) (bool, error)
	FindAll(ctx context.Context) ([]*model.BlockedDate, error)
	Add(ctx context.Context, blocked *model.BlockedDate) error
	Remove(ctx context.Context, date string) error
}

type mongoBlockedDateRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoBlockedDateRepository(cfg *config.Config) BlockedDateRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoBlockedDateRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoBlockedDateRepository) IsBlocked(ctx context.Context, date string) (bool, error) {
	err := r.collection.FindOne(ctx, bson.M{"_id": date}).Err()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check blocked date: %w", err)
	}
	return true, nil
}

func (r *mongoBlockedDateRepository) FindAll(ctx context.Context) ([]*model.BlockedDate, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find blocked dates: %w", err)
	}
	defer cursor.Close(ctx)

	var dates []*model.BlockedDate
	if err = cursor.All(ctx, &dates); err != nil {
		return nil, fmt.Errorf("failed to decode blocked dates: %w", err)
	}

	return dates, nil
}

func (r *mongoBlockedDateRepository) Add(ctx context.Context, blocked *model.BlockedDate) error {
	blocked.CreatedAt = time.Now().UTC()

	_, err := r.collection.InsertOne(ctx, blocked)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("failed to add blocked date: %w", err)
	}
	return nil
}

func (r *mongoBlockedDateRepository) Remove(ctx context.Context, date string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": date})
	if err != nil {
		return fmt.Errorf("failed to remove blocked date: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
