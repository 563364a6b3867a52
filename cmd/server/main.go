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

	"Memories/internal/api/routes"
	"Memories/internal/config"
	"Memories/internal/core/posts"
	"Memories/internal/stores"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel()}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	signer, err := stores.NewSigner(cfg)
	if err != nil {
		log.Fatalf("Failed to create blob URL signer: %v", err)
	}
	if cfg.BlobSigningJWK == "" {
		log.Println("BLOB_SIGNING_JWK not set, using a random key (blob URLs will not survive restarts)")
	}

	s, err := stores.Open(ctx, cfg, signer, logger)
	if err != nil {
		log.Fatalf("Failed to open stores: %v", err)
	}
	defer func() {
		if err := s.Close(); err != nil {
			log.Printf("Failed to close stores: %v", err)
		}
	}()

	controller := posts.NewController(s.Records, s.Blobs, posts.ControllerConfig{
		Logger:    logger,
		NotifyTTL: cfg.NotifyTTL,
	})
	defer controller.Close()

	// Initial load; a failure leaves the list empty until the next refresh
	if err := controller.Refresh(ctx); err != nil {
		log.Printf("Warning: initial refresh failed: %v", err)
	} else {
		log.Printf("Loaded %d posts", len(controller.Posts()))
	}

	routerCfg := routes.RouterConfig{
		Controller:        controller,
		Logger:            logger,
		AllowedOrigins:    cfg.CORSAllowedOrigins,
		RateLimitRequests: cfg.RateLimitRequests,
		RateLimitWindow:   cfg.RateLimitWindow,
	}
	if routerCfg.TrustedProxies, err = cfg.TrustedProxyPrefixes(); err != nil {
		log.Fatalf("Invalid trusted proxies: %v", err)
	}
	if s.Reader != nil {
		routerCfg.BlobReader = s.Reader
		routerCfg.BlobVerifier = signer
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           routes.NewRouter(routerCfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		fmt.Printf("Memories server starting on port %s\n", cfg.Port)
		fmt.Printf("Record store: %s, blob store: %s\n", cfg.RecordBackend, cfg.BlobBackend)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Graceful shutdown failed: %v", err)
	}
}

func logLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(os.Getenv("LOG_LEVEL"))); err != nil {
		return slog.LevelInfo
	}
	return level
}
