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

var ErrNotFound = errors.New("setting not found")

const CollectionName = "system_settings"

// SettingsRepository stores the tunable scheduling parameters. Values are
// read fresh on every validation; stale values under concurrency would break
// the window and cutoff checks.
type SettingsRepository interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	All(ctx context.Context) ([]*model.Setting, error)
	ResetDefaults(ctx context.Context) error
}

type mongoSettingsRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoSettingsRepository(cfg *config.Config) SettingsRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoSettingsRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoSettingsRepository) Get(ctx context.Context, key string) (string, error) {
	var setting model.Setting
	err := r.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&setting)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to read setting %s: %w", key, err)
	}
	return setting.Value, nil
}

func (r *mongoSettingsRepository) Set(ctx context.Context, key, value string) error {
	update := bson.M{
		"$set": bson.M{
			"value":      value,
			"updated_at": time.Now().UTC(),
		},
	}
	opts := options.Update().SetUpsert(true)

	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": key}, update, opts)
	if err != nil {
		return fmt.Errorf("failed to write setting %s: %w", key, err)
	}
	return nil
}

func (r *mongoSettingsRepository) All(ctx context.Context) ([]*model.Setting, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}
	defer cursor.Close(ctx)

	var settings []*model.Setting
	if err = cursor.All(ctx, &settings); err != nil {
		return nil, fmt.Errorf("failed to decode settings: %w", err)
	}

	return settings, nil
}

// ResetDefaults restores the fixed default table, overwriting any tuned
// values. One ordered bulk write, so a failure never leaves the table half
// reset.
func (r *mongoSettingsRepository) ResetDefaults(ctx context.Context) error {
	if _, err := r.collection.BulkWrite(ctx, defaultResetWrites(time.Now().UTC())); err != nil {
		return fmt.Errorf("failed to reset settings: %w", err)
	}
	return nil
}

func defaultResetWrites(now time.Time) []mongo.WriteModel {
	writes := make([]mongo.WriteModel, 0, len(model.DefaultSettings))
	for key, value := range model.DefaultSettings {
		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": key}).
			SetUpdate(bson.M{"$set": bson.M{"value": value, "updated_at": now}}).
			SetUpsert(true))
	}
	return writes
}
