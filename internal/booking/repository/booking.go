package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	bookingerrors "shelterwalk/internal/booking/errors"
	"shelterwalk/pkg/config"
	mongotx "shelterwalk/pkg/db/mongo"
	"shelterwalk/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "bookings"

	// Partial unique indexes back the two uniqueness invariants: at most one
	// scheduled booking per slot and per (user, date). The index name is how
	// a commit-time duplicate key is mapped back to the right error.
	idxUniqueSlot     = "uniq_slot_scheduled"
	idxUniqueUserDate = "uniq_user_date_scheduled"
)

type BookingRepository interface {
	EnsureIndexes(ctx context.Context) error
	Create(ctx context.Context, booking *model.Booking) error
	FindByID(ctx context.Context, id string) (*model.Booking, error)
	FindScheduledBySlot(ctx context.Context, dogID, date, scheduledTime, excludeID string) (*model.Booking, error)
	FindScheduledByUserDate(ctx context.Context, userID, date, excludeID string) (*model.Booking, error)
	FindUpcomingByUser(ctx context.Context, userID, fromDate string) ([]*model.Booking, error)
	FindByDate(ctx context.Context, date string) ([]*model.Booking, error)
	MarkCancelled(ctx context.Context, id, reason string, at time.Time) error
	MarkCompleted(ctx context.Context, id string, at time.Time) error
	SetNotes(ctx context.Context, id, notes string) error
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoBookingRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoBookingRepository(cfg *config.Config) BookingRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoBookingRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

// EnsureIndexes creates the partial unique indexes enforcing slot and
// user-day uniqueness for scheduled bookings. Called once at startup.
func (r *mongoBookingRepository) EnsureIndexes(ctx context.Context) error {
	scheduledOnly := bson.M{"status": model.BookingScheduled}

	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "dog_id", Value: 1},
				{Key: "date", Value: 1},
				{Key: "scheduled_time", Value: 1},
			},
			Options: options.Index().
				SetName(idxUniqueSlot).
				SetUnique(true).
				SetPartialFilterExpression(scheduledOnly),
		},
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "date", Value: 1},
			},
			Options: options.Index().
				SetName(idxUniqueUserDate).
				SetUnique(true).
				SetPartialFilterExpression(scheduledOnly),
		},
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "status", Value: 1},
				{Key: "date", Value: 1},
			},
			Options: options.Index().SetName("user_status_date"),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create booking indexes: %w", err)
	}
	return nil
}

// withTimeout bounds the operation unless it already runs inside a
// transaction; a SessionContext cannot be wrapped without breaking
// transaction semantics.
func (r *mongoBookingRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < timeout {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

func (r *mongoBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	booking.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	result, err := r.collection.InsertOne(ctx, booking)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return duplicateKeyToError(err)
		}
		return fmt.Errorf("failed to create booking: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		booking.ID = oid.Hex()
	}
	return nil
}

// duplicateKeyToError maps a unique-index violation to the invariant it
// protects.
func duplicateKeyToError(err error) error {
	msg := err.Error()
	if strings.Contains(msg, idxUniqueUserDate) {
		return bookingerrors.ErrUserDayTaken
	}
	if strings.Contains(msg, idxUniqueSlot) {
		return bookingerrors.ErrSlotTaken
	}
	return bookingerrors.ErrSlotTaken
}

func (r *mongoBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", bookingerrors.ErrInvalidID, id)
	}

	var booking model.Booking
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find booking: %w", err)
	}
	booking.ID = id

	return &booking, nil
}

func (r *mongoBookingRepository) FindScheduledBySlot(ctx context.Context, dogID, date, scheduledTime, excludeID string) (*model.Booking, error) {
	filter := bson.M{
		"dog_id":         dogID,
		"date":           date,
		"scheduled_time": scheduledTime,
		"status":         model.BookingScheduled,
	}
	return r.findScheduled(ctx, filter, excludeID)
}

func (r *mongoBookingRepository) FindScheduledByUserDate(ctx context.Context, userID, date, excludeID string) (*model.Booking, error) {
	filter := bson.M{
		"user_id": userID,
		"date":    date,
		"status":  model.BookingScheduled,
	}
	return r.findScheduled(ctx, filter, excludeID)
}

// findScheduled returns the matching scheduled booking or nil when the slot is
// free. A move excludes the booking's own prior row via excludeID.
func (r *mongoBookingRepository) findScheduled(ctx context.Context, filter bson.M, excludeID string) (*model.Booking, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	if excludeID != "" {
		objectID, err := primitive.ObjectIDFromHex(excludeID)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", bookingerrors.ErrInvalidID, excludeID)
		}
		filter["_id"] = bson.M{"$ne": objectID}
	}

	var booking model.Booking
	err := r.collection.FindOne(ctx, filter).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find scheduled booking: %w", err)
	}

	return &booking, nil
}

func (r *mongoBookingRepository) FindUpcomingByUser(ctx context.Context, userID, fromDate string) ([]*model.Booking, error) {
	filter := bson.M{
		"user_id": userID,
		"status":  model.BookingScheduled,
		"date":    bson.M{"$gte": fromDate},
	}
	return r.findSorted(ctx, filter)
}

func (r *mongoBookingRepository) FindByDate(ctx context.Context, date string) ([]*model.Booking, error) {
	return r.findSorted(ctx, bson.M{"date": date})
}

func (r *mongoBookingRepository) findSorted(ctx context.Context, filter bson.M) ([]*model.Booking, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{
		{Key: "date", Value: 1},
		{Key: "scheduled_time", Value: 1},
	})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find bookings: %w", err)
	}
	defer cursor.Close(ctx)

	var bookings []*model.Booking
	if err = cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}

	return bookings, nil
}

func (r *mongoBookingRepository) MarkCancelled(ctx context.Context, id, reason string, at time.Time) error {
	return r.updateByID(ctx, id, bson.M{
		"$set": bson.M{
			"status":              model.BookingCancelled,
			"cancellation_reason": reason,
			"cancelled_at":        at,
		},
	})
}

func (r *mongoBookingRepository) MarkCompleted(ctx context.Context, id string, at time.Time) error {
	return r.updateByID(ctx, id, bson.M{
		"$set": bson.M{
			"status":       model.BookingCompleted,
			"completed_at": at,
		},
	})
}

func (r *mongoBookingRepository) SetNotes(ctx context.Context, id, notes string) error {
	return r.updateByID(ctx, id, bson.M{
		"$set": bson.M{"notes": notes},
	})
}

func (r *mongoBookingRepository) updateByID(ctx context.Context, id string, update bson.M) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", bookingerrors.ErrInvalidID, id)
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, update)
	if err != nil {
		return fmt.Errorf("failed to update booking: %w", err)
	}
	if result.MatchedCount == 0 {
		return bookingerrors.ErrNotFound
	}
	return nil
}

func (r *mongoBookingRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
