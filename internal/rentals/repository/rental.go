package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	rentalserrors "keiteki/internal/rentals/errors"
	"keiteki/pkg/config"
	mongotx "keiteki/pkg/db/mongo"
	"keiteki/pkg/model"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Rentals"
)

type mongoRentalRepository struct {
	cfg        *config.Config
	db         *mongo.Database
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

type RentalRepository interface {
	Create(ctx context.Context, rental *model.Rental) error
	FindOpenByBike(ctx context.Context, bikeID string) (*model.Rental, error)
	FindOpen(ctx context.Context) ([]*model.Rental, error)
	Close(ctx context.Context, id string, endAt time.Time) error
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
	ExecuteWithRetry(ctx context.Context, fn mongotx.TransactionFunc) error
}

func NewMongoRentalRepository(cfg *config.Config) RentalRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoRentalRepository{
		cfg:        cfg,
		db:         db,
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo, cfg.TxMaxAttempts, cfg.TxRetryBackoff),
	}
}

// withTimeout wraps the context with a timeout if not already in a transaction.
// When inside a transaction (SessionContext), returns the original context unchanged
// with a no-op cancel function, as we cannot wrap SessionContext without breaking
// transaction semantics.
func (r *mongoRentalRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}

	deadline, hasDeadline := ctx.Deadline()
	if !hasDeadline {
		return context.WithTimeout(ctx, timeout)
	}

	remaining := time.Until(deadline)
	if remaining < timeout {
		return context.WithTimeout(ctx, remaining)
	}

	return context.WithTimeout(ctx, timeout)
}

// Create inserts a new open rental. The partial unique index on
// (bike_id, end_at == null) rejects a second open rental for the same
// bike, which surfaces here as ErrBikeInUse.
func (r *mongoRentalRepository) Create(ctx context.Context, rental *model.Rental) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if rental.ID == "" {
		rental.ID = uuid.NewString()
	}
	rental.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)

	_, err := r.collection.InsertOne(ctx, rental)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return rentalserrors.ErrBikeInUse
		}
		return fmt.Errorf("failed to create rental: %w", err)
	}

	return nil
}

func (r *mongoRentalRepository) FindOpenByBike(ctx context.Context, bikeID string) (*model.Rental, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{"bike_id": bikeID, "end_at": nil}

	var rental model.Rental
	err := r.collection.FindOne(ctx, filter).Decode(&rental)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, rentalserrors.ErrNoOpenRental
		}
		return nil, fmt.Errorf("failed to find open rental: %w", err)
	}

	return &rental, nil
}

func (r *mongoRentalRepository) FindOpen(ctx context.Context) ([]*model.Rental, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "start_at", Value: 1}})

	cursor, err := r.collection.Find(ctx, bson.M{"end_at": nil}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find open rentals: %w", err)
	}
	defer cursor.Close(ctx)

	var rentals []*model.Rental
	if err = cursor.All(ctx, &rentals); err != nil {
		return nil, fmt.Errorf("failed to decode rentals: %w", err)
	}

	return rentals, nil
}

// Close stamps end_at on an open rental. Matching on end_at == nil
// makes the close a no-op if a concurrent request already closed it,
// which surfaces as ErrAlreadyClosed.
func (r *mongoRentalRepository) Close(ctx context.Context, id string, endAt time.Time) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{"_id": id, "end_at": nil}
	update := bson.M{
		"$set": bson.M{
			"end_at": endAt.UTC().Truncate(time.Millisecond),
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to close rental: %w", err)
	}

	if result.MatchedCount == 0 {
		return rentalserrors.ErrAlreadyClosed
	}

	return nil
}

func (r *mongoRentalRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}

func (r *mongoRentalRepository) ExecuteWithRetry(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteWithRetry(ctx, fn)
}
