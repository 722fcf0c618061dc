package database

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"toadvault/internal/logger"
)

func createIndexes(db *mongo.Database, log *logger.Logger, collection string, models ...mongo.IndexModel) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	log.Info("creating indexes", "collection", collection, "count", len(models))
	names, err := db.Collection(collection).Indexes().CreateMany(ctx, models)
	if err != nil {
		log.Error("index creation failed", "collection", collection, "error", err)
		return err
	}
	log.Info("indexes ready", "collection", collection, "names", names)
	return nil
}

func EnsureInventoryIndexes(db *mongo.Database, log *logger.Logger) error {
	if err := createIndexes(db, log, InventoryCollection, mongo.IndexModel{
		Keys:    bson.D{{Key: "scope", Value: 1}, {Key: "barcode", Value: 1}},
		Options: options.Index().SetName("scope_barcode_unique").SetUnique(true),
	}); err != nil {
		return err
	}
	return createIndexes(db, log, ReservationsCollection, mongo.IndexModel{
		Keys:    bson.D{{Key: "checkoutId", Value: 1}},
		Options: options.Index().SetName("checkoutId_unique").SetUnique(true),
	})
}

func EnsureOrderIndexes(db *mongo.Database, log *logger.Logger) error {
	return createIndexes(db, log, OrdersCollection,
		mongo.IndexModel{
			Keys:    bson.D{{Key: "userId", Value: 1}},
			Options: options.Index().SetName("userId_unique").SetUnique(true),
		},
		mongo.IndexModel{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "updatedAt", Value: 1}},
			Options: options.Index().SetName("status_updatedAt"),
		},
	)
}

func EnsurePaymentIndexes(db *mongo.Database, log *logger.Logger) error {
	return createIndexes(db, log, PaymentsCollection,
		mongo.IndexModel{
			Keys:    bson.D{{Key: "checkoutId", Value: 1}},
			Options: options.Index().SetName("checkoutId_unique").SetUnique(true),
		},
		mongo.IndexModel{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("userId_createdAt"),
		},
	)
}

func EnsureProductIndexes(db *mongo.Database, log *logger.Logger) error {
	return createIndexes(db, log, ProductsCollection, mongo.IndexModel{
		Keys: bson.D{{Key: "barcode", Value: 1}},
		Options: options.Index().
			SetName("barcode_unique").
			SetUnique(true).
			SetPartialFilterExpression(bson.M{
				"barcode": bson.M{
					"$exists": true,
				},
			}),
	})
}

func EnsureUserIndexes(db *mongo.Database, log *logger.Logger) error {
	return createIndexes(db, log, UsersCollection,
		mongo.IndexModel{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName("email_unique").SetUnique(true),
		},
		mongo.IndexModel{
			Keys:    bson.D{{Key: "name", Value: 1}},
			Options: options.Index().SetName("name_unique").SetUnique(true),
		},
	)
}

func EnsureSagaLogIndexes(db *mongo.Database, log *logger.Logger) error {
	return createIndexes(db, log, SagaLogsCollection, mongo.IndexModel{
		Keys:    bson.D{{Key: "sagaId", Value: 1}, {Key: "updatedAt", Value: 1}},
		Options: options.Index().SetName("sagaId_updatedAt"),
	})
}
