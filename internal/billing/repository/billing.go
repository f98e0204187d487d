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
	CollectionName = "Billings"
)

type mongoBillingRepository struct {
	cfg        *config.Config
	db         *mongo.Database
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

type BillingRepository interface {
	Get(ctx context.Context, yearMonth, residentKey string) (*model.BillingRecord, error)
	Put(ctx context.Context, record *model.BillingRecord) error
	ListByMonth(ctx context.Context, yearMonth string) ([]*model.BillingRecord, error)
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
	ExecuteWithRetry(ctx context.Context, fn mongotx.TransactionFunc) error
}

func NewMongoBillingRepository(cfg *config.Config) BillingRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoBillingRepository{
		cfg:        cfg,
		db:         db,
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo, cfg.TxMaxAttempts, cfg.TxRetryBackoff),
	}
}

func (r *mongoBillingRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
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

// Get returns nil, nil when no ledger entry exists yet for the pair.
// The ledger creates entries lazily on first charge.
func (r *mongoBillingRepository) Get(ctx context.Context, yearMonth, residentKey string) (*model.BillingRecord, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var record model.BillingRecord
	err := r.collection.FindOne(ctx, bson.M{"_id": model.BillingRecordID(yearMonth, residentKey)}).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find billing record: %w", err)
	}

	return &record, nil
}

func (r *mongoBillingRepository) Put(ctx context.Context, record *model.BillingRecord) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	record.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)

	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": record.ID}, record, opts)
	if err != nil {
		return fmt.Errorf("failed to upsert billing record: %w", err)
	}

	return nil
}

func (r *mongoBillingRepository) ListByMonth(ctx context.Context, yearMonth string) ([]*model.BillingRecord, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "resident_key", Value: 1}})

	cursor, err := r.collection.Find(ctx, bson.M{"year_month": yearMonth}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find billing records: %w", err)
	}
	defer cursor.Close(ctx)

	var records []*model.BillingRecord
	if err = cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode billing records: %w", err)
	}

	return records, nil
}

func (r *mongoBillingRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}

func (r *mongoBillingRepository) ExecuteWithRetry(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteWithRetry(ctx, fn)
}
