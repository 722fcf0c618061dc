package inventory

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"toadvault/internal/database"
	"toadvault/internal/models"
)

type MongoStore struct {
	items        *mongo.Collection
	reservations *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		items:        db.Collection(database.InventoryCollection),
		reservations: db.Collection(database.ReservationsCollection),
	}
}

func (s *MongoStore) Insert(ctx context.Context, item *models.InventoryItem) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := s.items.InsertOne(ctx, item)
	if database.IsDuplicateKey(err) {
		return ErrDuplicate
	}
	if err != nil {
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		item.ID = oid
	}
	return nil
}

func (s *MongoStore) Restock(ctx context.Context, scope, barcode string, qty int, at time.Time) (*models.InventoryItem, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	update := bson.M{
		"$inc": bson.M{"stock": qty},
		"$set": bson.M{"updatedAt": at},
	}
	return s.findOneAndUpdate(ctx, bson.M{"scope": scope, "barcode": barcode}, update)
}

func (s *MongoStore) List(ctx context.Context, scope string) ([]models.InventoryItem, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cursor, err := s.items.Find(ctx, bson.M{"scope": scope}, options.Find().SetSort(bson.D{{Key: "barcode", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	items := []models.InventoryItem{}
	if err := cursor.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *MongoStore) Find(ctx context.Context, scope, barcode string) (*models.InventoryItem, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var item models.InventoryItem
	err := s.items.FindOne(ctx, bson.M{"scope": scope, "barcode": barcode}).Decode(&item)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *MongoStore) Update(ctx context.Context, scope, barcode string, patch Patch, at time.Time) (*models.InventoryItem, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	set := bson.M{"updatedAt": at}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.Price != nil {
		set["price"] = *patch.Price
	}
	if patch.Stock != nil {
		set["stock"] = *patch.Stock
	}
	return s.findOneAndUpdate(ctx, bson.M{"scope": scope, "barcode": barcode}, bson.M{"$set": set})
}

func (s *MongoStore) findOneAndUpdate(ctx context.Context, filter, update bson.M) (*models.InventoryItem, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var item models.InventoryItem
	err := s.items.FindOneAndUpdate(ctx, filter, update, opts).Decode(&item)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *MongoStore) Decrement(ctx context.Context, scope, barcode string, qty int) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{
		"scope":   scope,
		"barcode": barcode,
		"stock":   bson.M{"$gte": qty},
	}
	update := bson.M{
		"$inc": bson.M{"stock": -qty},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	}
	res, err := s.items.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrInsufficientStock
	}
	return nil
}

func (s *MongoStore) Increment(ctx context.Context, scope, barcode string, qty int) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	update := bson.M{
		"$inc": bson.M{"stock": qty},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	}
	res, err := s.items.UpdateOne(ctx, bson.M{"scope": scope, "barcode": barcode}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) CreateReservation(ctx context.Context, r *models.StockReservation) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := s.reservations.InsertOne(ctx, r)
	if database.IsDuplicateKey(err) {
		return ErrDuplicate
	}
	if err != nil {
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		r.ID = oid
	}
	return nil
}

func (s *MongoStore) FindReservation(ctx context.Context, checkoutID string) (*models.StockReservation, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var r models.StockReservation
	err := s.reservations.FindOne(ctx, bson.M{"checkoutId": checkoutID}).Decode(&r)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *MongoStore) SetApplied(ctx context.Context, checkoutID, barcode string, applied bool) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	op := "$addToSet"
	if !applied {
		op = "$pull"
	}
	res, err := s.reservations.UpdateOne(ctx, bson.M{"checkoutId": checkoutID}, bson.M{op: bson.M{"applied": barcode}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) DeleteReservation(ctx context.Context, checkoutID string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := s.reservations.DeleteOne(ctx, bson.M{"checkoutId": checkoutID})
	return err
}
