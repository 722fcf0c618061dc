// Package products is the product catalog.
package products

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
	ErrNotFound  = errors.New("product not found")
	ErrDuplicate = errors.New("product barcode already exists")
)

type Store interface {
	Insert(ctx context.Context, p *models.Product) error
	// List returns one page, newest first, and the total product count.
	List(ctx context.Context, skip, limit int64) ([]models.Product, int64, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
	FindByBarcode(ctx context.Context, barcode string) (*models.Product, error)
	Replace(ctx context.Context, p *models.Product) error
}

type MongoStore struct {
	col *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{col: db.Collection(database.ProductsCollection)}
}

func (s *MongoStore) Insert(ctx context.Context, p *models.Product) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := s.col.InsertOne(ctx, p)
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

func (s *MongoStore) List(ctx context.Context, skip, limit int64) ([]models.Product, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	total, err := s.col.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, err
	}

	findOptions := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		findOptions.SetSkip(skip).SetLimit(limit)
	}

	cursor, err := s.col.Find(ctx, bson.M{}, findOptions)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	out := []models.Product{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (s *MongoStore) findOne(ctx context.Context, filter bson.M) (*models.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var p models.Product
	err := s.col.FindOne(ctx, filter).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *MongoStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *MongoStore) FindByBarcode(ctx context.Context, barcode string) (*models.Product, error) {
	return s.findOne(ctx, bson.M{"barcode": barcode})
}

func (s *MongoStore) Replace(ctx context.Context, p *models.Product) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := s.col.ReplaceOne(ctx, bson.M{"_id": p.ID}, p)
	if database.IsDuplicateKey(err) {
		return ErrDuplicate
	}
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

type MemoryStore struct {
	mu       sync.Mutex
	products map[primitive.ObjectID]models.Product
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{products: make(map[primitive.ObjectID]models.Product)}
}

func (s *MemoryStore) barcodeTaken(barcode string, except primitive.ObjectID) bool {
	for id, p := range s.products {
		if p.Barcode == barcode && id != except {
			return true
		}
	}
	return false
}

func (s *MemoryStore) Insert(_ context.Context, p *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.barcodeTaken(p.Barcode, primitive.NilObjectID) {
		return ErrDuplicate
	}
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	s.products[p.ID] = *p
	return nil
}

func (s *MemoryStore) List(_ context.Context, skip, limit int64) ([]models.Product, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := make([]models.Product, 0, len(s.products))
	for _, p := range s.products {
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	total := int64(len(all))
	if limit <= 0 {
		return all, total, nil
	}
	if skip >= total {
		return []models.Product{}, total, nil
	}
	end := skip + limit
	if end > total {
		end = total
	}
	return all[skip:end], total, nil
}

func (s *MemoryStore) FindByID(_ context.Context, id primitive.ObjectID) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (s *MemoryStore) FindByBarcode(_ context.Context, barcode string) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.products {
		if p.Barcode == barcode {
			return &p, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) Replace(_ context.Context, p *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[p.ID]; !ok {
		return ErrNotFound
	}
	if s.barcodeTaken(p.Barcode, p.ID) {
		return ErrDuplicate
	}
	s.products[p.ID] = *p
	return nil
}
