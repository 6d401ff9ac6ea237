package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shelterwalk/pkg/config"
	"shelterwalk/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound  = errors.New("user not found")
	ErrInvalidID = errors.New("invalid user ID format")
)

const CollectionName = "users"

// UserRepository is the walker directory. Experience level and active-state
// mutations are only reachable through the request workflow and the
// deactivation sweep; nothing else may change them.
type UserRepository interface {
	EnsureIndexes(ctx context.Context) error
	FindByID(ctx context.Context, id string) (*model.User, error)
	TouchActivity(ctx context.Context, id string, at time.Time) error
	SetLevel(ctx context.Context, id string, level model.Level) error
	Deactivate(ctx context.Context, id, reason string, at time.Time) error
	Reactivate(ctx context.Context, id string, at time.Time) error
	FindDormant(ctx context.Context, inactiveSince time.Time) ([]*model.User, error)
}

type mongoUserRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoUserRepository(cfg *config.Config) UserRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoUserRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

// EnsureIndexes backs the dormancy scan and email uniqueness.
func (r *mongoUserRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName("uniq_email").SetUnique(true),
		},
		{
			Keys: bson.D{
				{Key: "last_activity_at", Value: 1},
				{Key: "is_active", Value: 1},
			},
			Options: options.Index().SetName("last_activity_active"),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create user indexes: %w", err)
	}
	return nil
}

func (r *mongoUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidID, id)
	}

	var user model.User
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	user.ID = id

	return &user, nil
}

func (r *mongoUserRepository) TouchActivity(ctx context.Context, id string, at time.Time) error {
	return r.updateByID(ctx, id, bson.M{
		"$set": bson.M{"last_activity_at": at},
	})
}

func (r *mongoUserRepository) SetLevel(ctx context.Context, id string, level model.Level) error {
	return r.updateByID(ctx, id, bson.M{
		"$set": bson.M{"experience_level": level},
	})
}

func (r *mongoUserRepository) Deactivate(ctx context.Context, id, reason string, at time.Time) error {
	return r.updateByID(ctx, id, bson.M{
		"$set": bson.M{
			"is_active":           false,
			"deactivated_at":      at,
			"deactivation_reason": reason,
		},
	})
}

func (r *mongoUserRepository) Reactivate(ctx context.Context, id string, at time.Time) error {
	return r.updateByID(ctx, id, bson.M{
		"$set": bson.M{
			"is_active":        true,
			"last_activity_at": at,
			"reactivated_at":   at,
		},
		"$unset": bson.M{
			"deactivated_at":      "",
			"deactivation_reason": "",
		},
	})
}

// FindDormant returns active non-admin accounts with no activity since the
// cutoff. Admins and super admins are exempt from auto-deactivation.
func (r *mongoUserRepository) FindDormant(ctx context.Context, inactiveSince time.Time) ([]*model.User, error) {
	filter := bson.M{
		"is_active":        true,
		"is_admin":         false,
		"is_super_admin":   false,
		"last_activity_at": bson.M{"$lt": inactiveSince},
	}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find dormant users: %w", err)
	}
	defer cursor.Close(ctx)

	var users []*model.User
	if err = cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("failed to decode dormant users: %w", err)
	}

	return users, nil
}

func (r *mongoUserRepository) updateByID(ctx context.Context, id string, update bson.M) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidID, id)
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, update)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
