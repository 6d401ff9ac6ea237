package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shelterwalk/pkg/config"
	mongotx "shelterwalk/pkg/db/mongo"
	"shelterwalk/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound         = errors.New("request not found")
	ErrInvalidID        = errors.New("invalid request ID format")
	ErrDuplicatePending = errors.New("a pending request already exists for this user")
)

const (
	ExperienceCollection   = "experience_requests"
	ReactivationCollection = "reactivation_requests"

	idxUniquePending = "uniq_pending_per_user"
)

// RequestRepository stores experience-upgrade and reactivation requests. Both
// collections carry a partial unique index on user_id filtered to pending
// status, which is what enforces at-most-one-pending per user per type.
type RequestRepository interface {
	EnsureIndexes(ctx context.Context) error
	CreateExperience(ctx context.Context, req *model.ExperienceRequest) error
	FindExperienceByID(ctx context.Context, id string) (*model.ExperienceRequest, error)
	ResolveExperience(ctx context.Context, id string, status model.RequestStatus, resolvedBy, message string, at time.Time) error

	CreateReactivation(ctx context.Context, req *model.ReactivationRequest) error
	FindReactivationByID(ctx context.Context, id string) (*model.ReactivationRequest, error)
	ResolveReactivation(ctx context.Context, id string, status model.RequestStatus, resolvedBy string, at time.Time) error

	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoRequestRepository struct {
	cfg          *config.Config
	experience   *mongo.Collection
	reactivation *mongo.Collection
	txManager    mongotx.TransactionManager
}

func NewMongoRequestRepository(cfg *config.Config) RequestRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoRequestRepository{
		cfg:          cfg,
		experience:   db.Collection(ExperienceCollection),
		reactivation: db.Collection(ReactivationCollection),
		txManager:    mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

func (r *mongoRequestRepository) EnsureIndexes(ctx context.Context) error {
	pendingOnly := bson.M{"status": model.RequestPending}
	idx := mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}},
		Options: options.Index().
			SetName(idxUniquePending).
			SetUnique(true).
			SetPartialFilterExpression(pendingOnly),
	}

	for _, coll := range []*mongo.Collection{r.experience, r.reactivation} {
		if _, err := coll.Indexes().CreateOne(ctx, idx); err != nil {
			return fmt.Errorf("failed to create pending-request index on %s: %w", coll.Name(), err)
		}
	}
	return nil
}

func (r *mongoRequestRepository) CreateExperience(ctx context.Context, req *model.ExperienceRequest) error {
	req.Status = model.RequestPending
	req.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)

	result, err := r.experience.InsertOne(ctx, req)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicatePending
		}
		return fmt.Errorf("failed to create experience request: %w", err)
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		req.ID = oid.Hex()
	}
	return nil
}

func (r *mongoRequestRepository) FindExperienceByID(ctx context.Context, id string) (*model.ExperienceRequest, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidID, id)
	}

	var req model.ExperienceRequest
	err = r.experience.FindOne(ctx, bson.M{"_id": objectID}).Decode(&req)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find experience request: %w", err)
	}
	req.ID = id

	return &req, nil
}

func (r *mongoRequestRepository) ResolveExperience(ctx context.Context, id string, status model.RequestStatus, resolvedBy, message string, at time.Time) error {
	set := bson.M{
		"status":      status,
		"resolved_by": resolvedBy,
		"resolved_at": at,
	}
	if message != "" {
		set["admin_message"] = message
	}
	return r.resolve(ctx, r.experience, id, set)
}

func (r *mongoRequestRepository) CreateReactivation(ctx context.Context, req *model.ReactivationRequest) error {
	req.Status = model.RequestPending
	req.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)

	result, err := r.reactivation.InsertOne(ctx, req)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicatePending
		}
		return fmt.Errorf("failed to create reactivation request: %w", err)
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		req.ID = oid.Hex()
	}
	return nil
}

func (r *mongoRequestRepository) FindReactivationByID(ctx context.Context, id string) (*model.ReactivationRequest, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidID, id)
	}

	var req model.ReactivationRequest
	err = r.reactivation.FindOne(ctx, bson.M{"_id": objectID}).Decode(&req)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find reactivation request: %w", err)
	}
	req.ID = id

	return &req, nil
}

func (r *mongoRequestRepository) ResolveReactivation(ctx context.Context, id string, status model.RequestStatus, resolvedBy string, at time.Time) error {
	return r.resolve(ctx, r.reactivation, id, bson.M{
		"status":      status,
		"resolved_by": resolvedBy,
		"resolved_at": at,
	})
}

// resolve flips a pending request to its terminal status. The status filter
// makes resolution race-safe: a request already resolved by a concurrent
// admin matches nothing.
func (r *mongoRequestRepository) resolve(ctx context.Context, coll *mongo.Collection, id string, set bson.M) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidID, id)
	}

	filter := bson.M{"_id": objectID, "status": model.RequestPending}
	result, err := coll.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to resolve request: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoRequestRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
