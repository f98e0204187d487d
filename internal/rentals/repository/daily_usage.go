package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"keiteki/pkg/config"
	mongotx "keiteki/pkg/db/mongo"
	"keiteki/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	DailyUsageCollectionName = "DailyUsages"
)

type mongoDailyUsageRepository struct {
	cfg        *config.Config
	db         *mongo.Database
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

type DailyUsageRepository interface {
	Get(ctx context.Context, residentKey, date string) (*model.DailyUsage, error)
	Put(ctx context.Context, usage *model.DailyUsage) error
	FindByResident(ctx context.Context, residentKey string, limit int) ([]*model.DailyUsage, error)
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
	ExecuteWithRetry(ctx context.Context, fn mongotx.TransactionFunc) error
}

func NewMongoDailyUsageRepository(cfg *config.Config) DailyUsageRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoDailyUsageRepository{
		cfg:        cfg,
		db:         db,
		collection: db.Collection(DailyUsageCollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo, cfg.TxMaxAttempts, cfg.TxRetryBackoff),
	}
}

func (r *mongoDailyUsageRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
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

// Get returns nil, nil when no counter exists yet for the pair. A
// missing document is the normal first-write case, not an error.
func (r *mongoDailyUsageRepository) Get(ctx context.Context, residentKey, date string) (*model.DailyUsage, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var usage model.DailyUsage
	err := r.collection.FindOne(ctx, bson.M{"_id": model.DailyUsageID(residentKey, date)}).Decode(&usage)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find daily usage: %w", err)
	}

	return &usage, nil
}

func (r *mongoDailyUsageRepository) Put(ctx context.Context, usage *model.DailyUsage) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	usage.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)

	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": usage.ID}, usage, opts)
	if err != nil {
		return fmt.Errorf("failed to upsert daily usage: %w", err)
	}

	return nil
}

func (r *mongoDailyUsageRepository) FindByResident(ctx context.Context, residentKey string, limit int) ([]*model.DailyUsage, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "date", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, bson.M{"resident_key": residentKey}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find daily usage: %w", err)
	}
	defer cursor.Close(ctx)

	var usages []*model.DailyUsage
	if err = cursor.All(ctx, &usages); err != nil {
		return nil, fmt.Errorf("failed to decode daily usage: %w", err)
	}

	return usages, nil
}

func (r *mongoDailyUsageRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}

func (r *mongoDailyUsageRepository) ExecuteWithRetry(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteWithRetry(ctx, fn)
}
