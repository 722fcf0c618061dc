// Package payments reconciles tendered cash against an order and records the
// resulting payment.
package payments

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"toadvault/internal/database"
	"toadvault/internal/models"
)

var (
	ErrNotFound  = errors.New("payment not found")
	ErrDuplicate = errors.New("payment already recorded for checkout")
)

type Repository interface {
	Insert(ctx context.Context, p *models.Payment) error
	FindByCheckout(ctx context.Context, checkoutID string) (*models.Payment, error)
	ListByUser(ctx context.Context, userID string) ([]models.Payment, error)
}

type MongoRepository struct {
	col *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{col: db.Collection(database.PaymentsCollection)}
}

func (r *MongoRepository) Insert(ctx context.Context, p *models.Payment) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := r.col.InsertOne(ctx, p)
	if database.IsDuplicateKey(err) {
		return ErrDuplicate
	}
	if err != nil {
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		p.ID = oid
	}
	return nil
}

func (r *MongoRepository) FindByCheckout(ctx context.Context, checkoutID string) (*models.Payment, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var p models.Payment
	err := r.col.FindOne(ctx, bson.M{"checkoutId": checkoutID}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *MongoRepository) ListByUser(ctx context.Context, userID string) ([]models.Payment, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.col.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	out := []models.Payment{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

type MemoryRepository struct {
	mu       sync.Mutex
	payments map[string]models.Payment
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{payments: make(map[string]models.Payment)}
}

func (r *MemoryRepository) Insert(_ context.Context, p *models.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.payments[p.CheckoutID]; ok {
		return ErrDuplicate
	}
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	r.payments[p.CheckoutID] = *p
	return nil
}

func (r *MemoryRepository) FindByCheckout(_ context.Context, checkoutID string) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.payments[checkoutID]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (r *MemoryRepository) ListByUser(_ context.Context, userID string) ([]models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []models.Payment{}
	for _, p := range r.payments {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
