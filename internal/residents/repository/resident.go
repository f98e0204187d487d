package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	residentserrors "keiteki/internal/residents/errors"
	"keiteki/pkg/config"
	"keiteki/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Residents"
)

type mongoResidentRepository struct {
	cfg        *config.Config
	db         *mongo.Database
	collection *mongo.Collection
}

type ResidentRepository interface {
	Create(ctx context.Context, resident *model.Resident) error
	FindByID(ctx context.Context, yearMonth, residentKey string) (*model.Resident, error)
	ListByMonth(ctx context.Context, yearMonth string) ([]*model.Resident, error)
}

func NewMongoResidentRepository(cfg *config.Config) ResidentRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoResidentRepository{
		cfg:        cfg,
		db:         db,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoResidentRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
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

// Create inserts a resident for the month. The document ID encodes
// (yearMonth, residentKey), so registering the same unit and name
// twice in one month is a duplicate key.
func (r *mongoResidentRepository) Create(ctx context.Context, resident *model.Resident) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	resident.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)

	_, err := r.collection.InsertOne(ctx, resident)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return residentserrors.ErrAlreadyRegistered
		}
		return fmt.Errorf("failed to create resident: %w", err)
	}

	return nil
}

func (r *mongoResidentRepository) FindByID(ctx context.Context, yearMonth, residentKey string) (*model.Resident, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var resident model.Resident
	err := r.collection.FindOne(ctx, bson.M{"_id": model.ResidentID(yearMonth, residentKey)}).Decode(&resident)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, residentserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find resident: %w", err)
	}

	return &resident, nil
}

func (r *mongoResidentRepository) ListByMonth(ctx context.Context, yearMonth string) ([]*model.Resident, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}})

	cursor, err := r.collection.Find(ctx, bson.M{"year_month": yearMonth}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find residents: %w", err)
	}
	defer cursor.Close(ctx)

	var residents []*model.Resident
	if err = cursor.All(ctx, &residents); err != nil {
		return nil, fmt.Errorf("failed to decode residents: %w", err)
	}

	return residents, nil
}
