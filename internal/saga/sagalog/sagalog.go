// Package sagalog is the append-only audit trail of checkout sagas. Every
// transition a saga goes through becomes one entry keyed by saga id.
package sagalog

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"toadvault/internal/database"
)

type Status string

const (
	StatusStarted      Status = "STARTED"
	StatusStepDone     Status = "STEP_DONE"
	StatusCompleted    Status = "COMPLETED"
	StatusCompensating Status = "COMPENSATING"
	StatusFailed       Status = "FAILED"
)

type SagaLog struct {
	SagaID      string    `bson:"sagaId" json:"sagaId"`
	Status      Status    `bson:"status" json:"status"`
	CurrentStep string    `bson:"currentStep,omitempty" json:"currentStep,omitempty"`
	// Payload is the JSON input that started the saga, stored on STARTED.
	Payload   string    `bson:"payload,omitempty" json:"payload,omitempty"`
	Errors    []string  `bson:"errors" json:"errors"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

func NewEntry(sagaID string, status Status, currentStep, payload string, errs []string) *SagaLog {
	if errs == nil {
		errs = []string{}
	}
	return &SagaLog{
		SagaID:      sagaID,
		Status:      status,
		CurrentStep: currentStep,
		Payload:     payload,
		Errors:      errs,
		UpdatedAt:   time.Now().UTC(),
	}
}

// Repository appends entries; it never updates one in place.
type Repository interface {
	Save(ctx context.Context, entry *SagaLog) error
	History(ctx context.Context, sagaID string) ([]SagaLog, error)
}

type MongoRepository struct {
	col *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{col: db.Collection(database.SagaLogsCollection)}
}

func (r *MongoRepository) Save(ctx context.Context, entry *SagaLog) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := r.col.InsertOne(ctx, entry)
	return err
}

func (r *MongoRepository) History(ctx context.Context, sagaID string) ([]SagaLog, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "updatedAt", Value: 1}})
	cursor, err := r.col.Find(ctx, bson.M{"sagaId": sagaID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	out := []SagaLog{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// MemoryRepository returns history in append order.
type MemoryRepository struct {
	mu      sync.Mutex
	entries []SagaLog
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) Save(_ context.Context, entry *SagaLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *MemoryRepository) History(_ context.Context, sagaID string) ([]SagaLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []SagaLog{}
	for _, e := range r.entries {
		if e.SagaID == sagaID {
			out = append(out, e)
		}
	}
	return out, nil
}
