package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	bikeserrors "keiteki/internal/bikes/errors"
	"keiteki/pkg/config"
	"keiteki/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Bikes"
)

type mongoBikeRepository struct {
	cfg        *config.Config
	db         *mongo.Database
	collection *mongo.Collection
}

type BikeRepository interface {
	FindByID(ctx context.Context, id string) (*model.Bike, error)
	FindAll(ctx context.Context) ([]*model.Bike, error)
}

func NewMongoBikeRepository(cfg *config.Config) BikeRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoBikeRepository{
		cfg:        cfg,
		db:         db,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoBikeRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
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

func (r *mongoBikeRepository) FindByID(ctx context.Context, id string) (*model.Bike, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var bike model.Bike
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&bike)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bikeserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find bike: %w", err)
	}

	return &bike, nil
}

func (r *mongoBikeRepository) FindAll(ctx context.Context) ([]*model.Bike, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}})

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find bikes: %w", err)
	}
	defer cursor.Close(ctx)

	var bikes []*model.Bike
	if err = cursor.All(ctx, &bikes); err != nil {
		return nil, fmt.Errorf("failed to decode bikes: %w", err)
	}

	return bikes, nil
}
