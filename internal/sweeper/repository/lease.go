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

// ErrLeaseHeld means another sweeper instance holds the lease.
var ErrLeaseHeld = errors.New("sweep lease already held")

// LeaseRepository gives the deactivation sweep single-flight across
// processes. The lease is an insert-unique document with a TTL so a crashed
// holder cannot block future sweeps forever.
type LeaseRepository interface {
	EnsureIndexes(ctx context.Context) error
	Acquire(ctx context.Context, lease *model.SweepLease) error
	Release(ctx context.Context, leaseID, holder string) error
}

type mongoLeaseRepository struct {
	collection *mongo.Collection
}

func NewLeaseRepository(cfg *config.Config) LeaseRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoLeaseRepository{
		collection: db.Collection("sweep_leases"),
	}
}

func (r *mongoLeaseRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	})
	if err != nil {
		return fmt.Errorf("failed to create lease TTL index: %w", err)
	}
	return nil
}

func (r *mongoLeaseRepository) Acquire(ctx context.Context, lease *model.SweepLease) error {
	lease.CreatedAt = time.Now().UTC()

	_, err := r.collection.InsertOne(ctx, lease)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrLeaseHeld
		}
		return err
	}
	return nil
}

// Release only deletes the lease while the caller still holds it. When a
// sweep outlives the TTL and another instance reacquires, the filter keeps the
// stale holder from deleting the new lease.
func (r *mongoLeaseRepository) Release(ctx context.Context, leaseID, holder string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": leaseID, "holder": holder})
	return err
}
