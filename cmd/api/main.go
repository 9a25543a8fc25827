package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hpp-sizer/internal/api"
	"hpp-sizer/internal/config"
	"hpp-sizer/internal/data"
)

func main() {
	cfg, err := config.LoadServerConfig()
	if err != nil {
		log.Fatalf("Failed to load server configuration: %v", err)
	}

	var handler slog.Handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()})
	if cfg.IsProduction() {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()})
	}
	logger := slog.New(handler)

	// A missing catalog only disables dataset requests; inline series still work.
	catalog, err := data.LoadCatalog(cfg.CatalogFile)
	if err != nil {
		log.Printf("Catalog not loaded from %s: %v", cfg.CatalogFile, err)
		catalog = nil
	} else {
		log.Printf("Loaded %d datasets from %s", len(catalog.Datasets), cfg.CatalogFile)
	}

	router := api.NewRouter(api.Deps{
		Server:  cfg,
		Catalog: catalog,
		Cache:   data.NewSiteCache(cfg.SiteCacheTTL),
		Logger:  logger,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("Starting API server on %s (env=%s)", srv.Addr, cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("Shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Graceful shutdown failed: %v", err)
	}
}
