package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"gorm.io/gorm"

	"scullery/internal/config"
	"scullery/internal/db"
	"scullery/internal/db/mock"
	applog "scullery/internal/log"
	"scullery/internal/sales"
	"scullery/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	if err := applog.SetLevel(cfg.Log.Level); err != nil {
		log.Fatalf("configure log level: %v", err)
	}
	if err := applog.SetFormat(cfg.Log.Format); err != nil {
		log.Fatalf("configure log format: %v", err)
	}

	ctx := context.Background()
	database, err := openDatabase(ctx, cfg)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}

	engineOpts := []sales.Option{}
	if cfg.Engine.StockFloor != nil {
		engineOpts = append(engineOpts, sales.WithFloor(*cfg.Engine.StockFloor))
	}
	engine := sales.NewEngine(database, engineOpts...)

	srv := server.New(server.Config{
		Addr:     cfg.Server.Addr,
		Database: database,
		Engine:   engine,
		Previews: sales.NewRegistry(),
	})

	go func() {
		applog.Info(ctx, "starting http server", "addr", cfg.Server.Addr)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server encountered an error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	<-sigCh

	applog.Info(ctx, "shutting down http server")
	if err := srv.Stop(); err != nil {
		log.Fatalf("graceful shutdown failed: %v", err)
	}
}

func openDatabase(ctx context.Context, cfg config.Config) (*gorm.DB, error) {
	if cfg.Database.URL == "" {
		applog.Info(ctx, "no database url configured, using seeded in-memory database")
		return mock.New(ctx)
	}
	return db.Configure(cfg.Database)
}
