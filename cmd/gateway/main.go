package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"toadvault/internal/app"
	"toadvault/internal/broker"
	"toadvault/internal/checkout"
	"toadvault/internal/config"
	"toadvault/internal/database"
	"toadvault/internal/handlers"
	"toadvault/internal/logger"
	"toadvault/internal/saga"
	"toadvault/internal/saga/sagalog"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	config.Load("gateway")
	cfg := config.AppEnv
	if err := cfg.Validate(config.RequireMongo, config.RequireJWTSecret); err != nil {
		return err
	}

	logg, err := logger.New(cfg.LogMode)
	if err != nil {
		return err
	}
	defer logg.Sync()
	logg = logg.With("service", cfg.ServiceName)

	if cfg.LogMode == "production" || cfg.LogMode == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, closeDB, err := app.OpenDatabase(cfg, logg)
	if err != nil {
		return err
	}
	defer closeDB()

	t, err := app.OpenTransport(cfg, logg)
	if err != nil {
		return err
	}
	defer t.Close()

	// Single-binary mode: every service answers in-process.
	if cfg.Transport == config.TransportLocal {
		router := broker.NewRouter(t, nil, logg)
		for _, svc := range app.AllServices {
			if err := app.Mount(router, svc, db, cfg, logg); err != nil {
				return err
			}
		}
	}

	var journal sagalog.Repository = sagalog.NewMemoryRepository()
	if db != nil {
		if err := database.EnsureSagaLogIndexes(db, logg); err != nil {
			logg.Warn("index warning", "error", err)
		}
		journal = sagalog.NewMongoRepository(db)
	}
	coord := checkout.NewCoordinator(t, saga.NewOrchestrator(logg, journal), logg)
	reconciler := checkout.NewReconciler(t, logg, cfg.SettleTimeout, cfg.ReconcileInterval)

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: handlers.NewRouter(handlers.Deps{
			Transport:   t,
			Checkout:    coord,
			Log:         logg,
			JWTSecret:   cfg.JWTSecret,
			ServiceName: cfg.ServiceName,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return reconciler.Run(ctx) })
	if cfg.Transport == config.TransportLocal {
		g.Go(func() error { return t.Serve(ctx) })
	}
	g.Go(func() error {
		logg.Info("gateway listening", "port", cfg.Port, "transport", cfg.Transport)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
