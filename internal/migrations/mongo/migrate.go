package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"keiteki/internal/migrations/mongo/validators"
	"keiteki/pkg/model"
)

var (
	// One open rental per bike, enforced at the storage layer. The
	// partial filter keeps closed rentals out of the unique index.
	RentalsIndexes = []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "bike_id", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"end_at": bson.M{"$type": "null"}}),
		},
		{Keys: bson.D{
			{Key: "resident_key", Value: 1},
			{Key: "start_at", Value: 1},
		}},
	}

	DailyUsagesIndexes = []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "resident_key", Value: 1},
			{Key: "date", Value: -1},
		}},
	}

	BillingsIndexes = []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "year_month", Value: 1},
			{Key: "resident_key", Value: 1},
		}},
	}

	ResidentsIndexes = []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "year_month", Value: 1},
			{Key: "created_at", Value: 1},
		}},
	}
)

// seedBikes is the building's fleet. Master data, not user data: the
// fleet changes by migration, not through the API.
var seedBikes = []model.Bike{
	{ID: "bike-1", Name: "1号車"},
	{ID: "bike-2", Name: "2号車"},
	{ID: "bike-3", Name: "3号車"},
}

func RunMigration(ctx context.Context, client *mongo.Client, dbName string) error {
	db := client.Database(dbName)
	fmt.Printf("Running Mongo migrations on database: %s\n", dbName)

	collections := map[string]struct {
		Indexes   []mongo.IndexModel
		Validator bson.M
	}{
		"Rentals": {
			Indexes:   RentalsIndexes,
			Validator: validators.RentalValidator,
		},
		"DailyUsages": {
			Indexes:   DailyUsagesIndexes,
			Validator: validators.DailyUsageValidator,
		},
		"Billings": {
			Indexes:   BillingsIndexes,
			Validator: validators.BillingValidator,
		},
		"Residents": {
			Indexes:   ResidentsIndexes,
			Validator: validators.ResidentValidator,
		},
		"Bikes": {
			Validator: validators.BikeValidator,
		},
	}

	for name, def := range collections {
		if err := ensureCollection(ctx, db, name, def.Validator); err != nil {
			return fmt.Errorf("failed to ensure collection %s: %w", name, err)
		}
		if len(def.Indexes) == 0 {
			continue
		}
		if err := ensureIndexes(ctx, db, name, def.Indexes); err != nil {
			return fmt.Errorf("failed to ensure indexes for %s: %w", name, err)
		}
	}

	if err := ensureBikes(ctx, db); err != nil {
		return fmt.Errorf("failed to seed bikes: %w", err)
	}

	fmt.Println("All migrations applied successfully.")
	return nil
}

func ensureCollection(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	existing, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return err
	}

	if len(existing) == 0 {
		fmt.Printf("Creating collection: %s\n", name)
		opts := options.CreateCollection().SetValidator(validator)
		if err := db.CreateCollection(ctx, name, opts); err != nil {
			return fmt.Errorf("failed creating %s: %w", name, err)
		}
	} else {
		fmt.Printf("Collection %s already exists, updating validator if needed\n", name)
		command := bson.D{
			{Key: "collMod", Value: name},
			{Key: "validator", Value: validator},
		}
		if err := db.RunCommand(ctx, command).Err(); err != nil {
			fmt.Printf("Warning: failed updating validator for %s: %v\n", name, err)
		}
	}

	return nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database, name string, models []mongo.IndexModel) error {
	coll := db.Collection(name)
	_, err := coll.Indexes().CreateMany(ctx, models)
	if err != nil {
		return err
	}
	fmt.Printf("Ensured indexes for %s\n", name)
	return nil
}

func ensureBikes(ctx context.Context, db *mongo.Database) error {
	coll := db.Collection("Bikes")
	for _, bike := range seedBikes {
		filter := bson.M{"_id": bike.ID}
		update := bson.M{"$setOnInsert": bike}
		opts := options.Update().SetUpsert(true)
		if _, err := coll.UpdateOne(ctx, filter, update, opts); err != nil {
			return err
		}
	}
	fmt.Printf("Ensured %d bikes\n", len(seedBikes))
	return nil
}
