package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"aggregat4/bookmarkcatalog/internal/catalog"
	"aggregat4/bookmarkcatalog/internal/config"
	"aggregat4/bookmarkcatalog/internal/exchange"
	"aggregat4/bookmarkcatalog/internal/logger"
	"aggregat4/bookmarkcatalog/internal/normalize"
	"aggregat4/bookmarkcatalog/internal/repository"
	"aggregat4/bookmarkcatalog/internal/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(".env")
	if err != nil {
		return err
	}
	log := logger.New(logger.Config{
		Format: cfg.LogFormat,
		Level:  logger.ParseLevel(cfg.LogLevel),
	})
	store, err := repository.Open(cfg.DbFilename, cfg, log)
	if err != nil {
		return err
	}
	defer store.Close()

	service := catalog.NewService(store, normalize.New(cfg), log)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return server.RunServer(ctx, server.Controller{
		Catalog:  service,
		Exchange: exchange.New(service, cfg, log),
		Config:   cfg,
		Logger:   log,
	})
}
