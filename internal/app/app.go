package app

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"go.mongodb.org/mongo-driver/mongo"

	"toadvault/internal/broker"
	"toadvault/internal/config"
	"toadvault/internal/database"
	"toadvault/internal/inventory"
	"toadvault/internal/logger"
	"toadvault/internal/orders"
	"toadvault/internal/payments"
	"toadvault/internal/products"
	"toadvault/internal/users"
)

type Service string

const (
	Users     Service = "users"
	Inventory Service = "inventory"
	Products  Service = "product"
	Orders    Service = "order"
	Payments  Service = "payment"
)

var AllServices = []Service{Users, Inventory, Products, Orders, Payments}

// OpenDatabase connects to Mongo when the config selects it. A nil database
// means in-memory storage. The returned close func is never nil.
func OpenDatabase(cfg config.Config, log *logger.Logger) (*mongo.Database, func(), error) {
	if cfg.Store == config.StoreMemory {
		log.Warn("using in-memory storage, data is lost on exit")
		return nil, func() {}, nil
	}

	client, err := database.Connect(cfg.MongoURI)
	if err != nil {
		return nil, func() {}, fmt.Errorf("mongo connect: %w", err)
	}
	db := client.Database(cfg.DBName)
	log.Info("MongoDB connected", "database", db.Name())

	return db, func() {
		if err := database.Disconnect(client); err != nil {
			log.Warn("mongo disconnect failed", "error", err)
		}
	}, nil
}

func OpenTransport(cfg config.Config, log *logger.Logger) (broker.Transport, error) {
	switch cfg.Transport {
	case config.TransportLocal:
		return broker.NewLocal(cfg.BrokerTimeout), nil
	case config.TransportRedis:
		return broker.NewRedis(log, broker.RedisOptions{
			Addr:    cfg.RedisAddr,
			Prefix:  cfg.BrokerPrefix,
			Workers: cfg.BrokerWorkers,
			Timeout: cfg.BrokerTimeout,
		})
	default:
		return nil, fmt.Errorf("unsupported transport %q", cfg.Transport)
	}
}

// Mount registers svc's handlers on r. Storage is Mongo when db is set.
func Mount(r *broker.Router, svc Service, db *mongo.Database, cfg config.Config, log *logger.Logger) error {
	log = log.With("service", string(svc))

	switch svc {
	case Users:
		var store users.Store = users.NewMemoryStore()
		if db != nil {
			warnIndex(log, database.EnsureUserIndexes(db, log))
			store = users.NewMongoStore(db)
		}
		users.RegisterHandlers(r, users.NewService(store, log, users.Options{
			JWTSecret:  cfg.JWTSecret,
			TokenTTL:   cfg.AccessTokenTTL,
			BcryptCost: cfg.BcryptCost,
		}))
	case Inventory:
		var store inventory.Store = inventory.NewMemoryStore()
		if db != nil {
			warnIndex(log, database.EnsureInventoryIndexes(db, log))
			store = inventory.NewMongoStore(db)
		}
		inventory.RegisterHandlers(r, inventory.NewService(store, log))
	case Products:
		var store products.Store = products.NewMemoryStore()
		if db != nil {
			warnIndex(log, database.EnsureProductIndexes(db, log))
			store = products.NewMongoStore(db)
		}
		products.RegisterHandlers(r, products.NewService(store, log))
	case Orders:
		var repo orders.Repository = orders.NewMemoryRepository()
		if db != nil {
			warnIndex(log, database.EnsureOrderIndexes(db, log))
			repo = orders.NewMongoRepository(db)
		}
		orders.RegisterHandlers(r, orders.NewEngine(repo, log))
	case Payments:
		var repo payments.Repository = payments.NewMemoryRepository()
		if db != nil {
			warnIndex(log, database.EnsurePaymentIndexes(db, log))
			repo = payments.NewMongoRepository(db)
		}
		payments.RegisterHandlers(r, payments.NewService(repo, log))
	default:
		return fmt.Errorf("unknown service %q", svc)
	}
	return nil
}

func warnIndex(log *logger.Logger, err error) {
	if err != nil {
		log.Warn("index warning", "error", err)
	}
}

// RunService is the body of a single-service binary: it consumes the
// service's patterns until SIGINT or SIGTERM.
func RunService(svc Service) error {
	config.Load(string(svc))
	cfg := config.AppEnv
	if err := cfg.Validate(requirements(svc)...); err != nil {
		return err
	}
	if cfg.Transport == config.TransportLocal {
		return errors.New("a standalone service needs TRANSPORT=redis")
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return err
	}
	defer log.Sync()
	log = log.With("service", cfg.ServiceName)

	db, closeDB, err := OpenDatabase(cfg, log)
	if err != nil {
		return err
	}
	defer closeDB()

	t, err := OpenTransport(cfg, log)
	if err != nil {
		return err
	}
	defer t.Close()

	if err := Mount(broker.NewRouter(t, nil, log), svc, db, cfg, log); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("service listening", "transport", cfg.Transport, "prefix", cfg.BrokerPrefix)
	return t.Serve(ctx)
}

func requirements(svc Service) []config.Required {
	if svc == Users {
		return []config.Required{config.RequireMongo, config.RequireJWTSecret}
	}
	return []config.Required{config.RequireMongo}
}
