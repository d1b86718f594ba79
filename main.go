package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/bus2ride/livepolls/cache"
	"github.com/bus2ride/livepolls/cliparse"
	"github.com/bus2ride/livepolls/db"
	"github.com/bus2ride/livepolls/live"
	"github.com/bus2ride/livepolls/middleware"
	"github.com/bus2ride/livepolls/router"
	"github.com/bus2ride/livepolls/traffic"
)

func main() {
	var err error

	// Text logs for people, JSON for log shippers
	var handler slog.Handler = slog.NewJSONHandler(os.Stderr, nil)
	if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		handler = slog.NewTextHandler(os.Stderr, nil)
	}
	slog.SetDefault(slog.New(handler))

	if err := cliparse.LoadEnv(".env"); err != nil {
		slog.Warn("ignoring .env", "error", err)
	}

	// Parse configuration
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}

	// Connect to the database
	dbConn, err := db.Open(cfg.DatabaseType, cfg.DatabaseURL)
	if err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer dbConn.Close()

	// Create schema (tables)
	if err := db.CreateSchema(dbConn); err != nil {
		slog.Error("schema creation failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database schema ready", "type", cfg.DatabaseType)

	if cfg.Seed {
		n, err := db.Seed(dbConn)
		if err != nil {
			slog.Error("seeding failed", "error", err)
			os.Exit(1)
		}
		slog.Info("Seed complete", "polls", n)
	}

	// Analytics cache: Redis when configured, memory otherwise
	var analyticsCache cache.Cache = cache.NewMemory()
	if cfg.RedisURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		rc, err := cache.NewRedis(ctx, cfg.RedisURL)
		cancel()
		if err != nil {
			slog.Warn("redis unavailable, using in-memory analytics cache", "error", err)
		} else {
			defer rc.Close()
			analyticsCache = rc
		}
	}

	if cfg.TrafficAPIKey == "" {
		slog.Info("No traffic API key, serving 511 fallback reports")
	}

	hub := live.NewHub()

	// Create router
	mux := router.NewRouter(dbConn, cfg, router.Services{
		Cache:   analyticsCache,
		Traffic: traffic.NewClient(cfg.TrafficAPIKey),
		Live:    hub,
	})

	// Create server
	server := http.Server{
		Handler:           middleware.CORS(cfg.SiteOrigin, mux),
		Addr:              ":" + strconv.Itoa(cfg.Port),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// signal.Notify requires the channel to be buffered
	ctrlc := make(chan os.Signal, 1)
	signal.Notify(ctrlc, os.Interrupt, syscall.SIGTERM)
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		// Wait for Ctrl-C signal
		<-ctrlc
		// Websockets are hijacked, so Shutdown does not see them
		hub.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Warn("graceful shutdown failed", "error", err)
			server.Close()
		}
	}()

	// Start server
	slog.Info("Listening", "port", cfg.Port)
	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		slog.Error("Server closed", "error", err)
	} else {
		<-drained
		slog.Info("Server closed", "error", err)
	}
}
