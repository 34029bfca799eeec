package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/jlenander/firestat/internal/adapters/http/api"
	"github.com/jlenander/firestat/internal/adapters/http/site"
	"github.com/jlenander/firestat/internal/adapters/http/swagger"
	app "github.com/jlenander/firestat/internal/app"
	"github.com/jlenander/firestat/internal/config"
	"github.com/jlenander/firestat/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	fetch := flag.Bool("fetch", false, "download the source datasets into the data directory")
	process := flag.Bool("process", false, "aggregate the datasets into the response table")
	serve := flag.Bool("serve", false, "serve the HTTP API and map page")
	flag.Parse()

	// A bare invocation serves, so running the binary with no flags
	// brings the map up over the last processed table.
	if !*fetch && !*process && !*serve {
		*serve = true
	}

	// A missing .env is fine; real deployments set variables directly.
	_ = godotenv.Load(".env")

	// Initialize logging
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	svc := app.New(cfg, app.WithLogger(log))
	if err := svc.Start(ctx); err != nil {
		log.Error(ctx, "failed to start service", logger.Error(err))
		os.Exit(1)
	}
	defer svc.Stop()

	if *fetch {
		if err := svc.Fetch(ctx); err != nil {
			log.Error(ctx, "fetch failed", logger.Error(err))
			os.Exit(1)
		}
	}

	if *process {
		if _, err := svc.Process(ctx); err != nil {
			log.Error(ctx, "processing failed", logger.Error(err))
			os.Exit(1)
		}
	}

	if !*serve {
		return
	}

	// Serving without a fresh run falls back to the last run's outputs;
	// an empty data directory serves an empty table.
	if !*process {
		if err := svc.Restore(ctx); err != nil {
			log.Warn(ctx, "no previous results to serve", logger.Error(err))
		}
	}

	// HTTP mux and routes.
	mux := http.NewServeMux()

	// Register business API routes with the service dependency.
	api.NewServer(svc, svc).Register(ctx, mux)

	// Register the map page and the API reference.
	site.Register(ctx, mux)
	swagger.Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	// Start the HTTP server
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	log.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
}
