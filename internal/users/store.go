// Package users registers accounts and signs session tokens.
package users

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"toadvault/internal/database"
	"toadvault/internal/models"
)

var (
	ErrNotFound  = errors.New("user not found")
	ErrDuplicate = errors.New("email already registered")
	ErrNameTaken = errors.New("name already registered")
)

// nameIndex is the unique index on users.name. A duplicate-key error naming
// it means the name, not the email, collided.
const nameIndex = "name_unique"

type Store interface {
	Insert(ctx context.Context, u *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

type MongoStore struct {
	col *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{col: db.Collection(database.UsersCollection)}
}

func (s *MongoStore) Insert(ctx context.Context, u *models.User) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := s.col.InsertOne(ctx, u)
	if database.IsDuplicateKey(err) {
		if strings.Contains(err.Error(), nameIndex) {
			return ErrNameTaken
		}
		return ErrDuplicate
	}
	if err != nil {
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		u.ID = oid
	}
	return nil
}

func (s *MongoStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var u models.User
	err := s.col.FindOne(ctx, bson.M{"email": email}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

type MemoryStore struct {
	mu      sync.Mutex
	byEmail map[string]models.User
	names   map[string]bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byEmail: make(map[string]models.User), names: make(map[string]bool)}
}

func (s *MemoryStore) Insert(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[u.Email]; ok {
		return ErrDuplicate
	}
	if s.names[u.Name] {
		return ErrNameTaken
	}
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	s.byEmail[u.Email] = *u
	s.names[u.Name] = true
	return nil
}

func (s *MemoryStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byEmail[email]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}
