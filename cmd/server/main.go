package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/grouporder/internal/config"
	"github.com/mmynk/grouporder/internal/middleware"
	"github.com/mmynk/grouporder/internal/service"
	"github.com/mmynk/grouporder/internal/storage"
	"github.com/mmynk/grouporder/pkg/api"
	"github.com/mmynk/grouporder/pkg/logging"
)

func main() {
	// Setup structured logging
	logging.Setup()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	backend, err := openBackend(cfg)
	if err != nil {
		slog.Error("Failed to initialize storage", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	store := storage.NewGroupStore(backend, storage.WithAppendAttempts(cfg.AppendAttempts))
	defer store.Close()
	slog.Info("Storage initialized", "driver", cfg.StoreDriver, "cache", cfg.RedisURL != "")

	staticDir, err := filepath.Abs(cfg.StaticPath)
	if err != nil {
		slog.Error("Failed to resolve static path", "error", err)
		os.Exit(1)
	}
	slog.Info("Serving static files", "path", staticDir)

	handler := newHandler(store, staticDir)

	// Wrap with h2c for HTTP/2 without TLS (required for Connect)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           h2c.NewHandler(handler, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("Connect server starting", "address", server.Addr, "url", cfg.BaseURL)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Shutdown failed", "error", err)
	}
}

// newHandler wires the RPC service, the plain routes and the static SPA.
func newHandler(store *storage.GroupStore, staticDir string) http.Handler {
	mux := http.NewServeMux()

	// Register Connect services
	groupPath, groupHandler := api.NewGroupServiceHandler(
		service.NewGroupService(store),
		connect.WithInterceptors(middleware.MetricsInterceptor(), middleware.LoggingInterceptor()),
	)
	mux.Handle(groupPath, groupHandler)

	mux.Handle(service.ExportPattern, service.NewExportHandler(store))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("ok"))
	})

	// Handle all non-API routes with static file server
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		// Check if this is an API request (Connect RPC)
		if strings.HasPrefix(r.URL.Path, "/grouporder.v1.") || strings.HasPrefix(r.URL.Path, "/api/") {
			http.NotFound(w, r)
			return
		}

		// Serve static files
		urlPath := r.URL.Path
		if urlPath == "/" {
			urlPath = "/index.html"
		}

		filePath := filepath.Join(staticDir, filepath.Clean(urlPath))

		// Unknown paths, /group/{id} included, get the SPA entry point
		if info, err := os.Stat(filePath); err != nil || info.IsDir() {
			http.ServeFile(w, r, filepath.Join(staticDir, "index.html"))
			return
		}

		http.ServeFile(w, r, filePath)
	})

	// Add logging and CORS middleware
	return middleware.Logging(middleware.CORS(mux))
}
