package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skelsey/galmarket/internal/archive"
	"github.com/skelsey/galmarket/internal/cache"
	"github.com/skelsey/galmarket/internal/config"
	"github.com/skelsey/galmarket/internal/database"
	"github.com/skelsey/galmarket/internal/dispatch"
	"github.com/skelsey/galmarket/internal/edsm"
	"github.com/skelsey/galmarket/internal/feed"
	"github.com/skelsey/galmarket/internal/metrics"
	"github.com/skelsey/galmarket/internal/populate"
	"github.com/skelsey/galmarket/internal/scan"
	"github.com/skelsey/galmarket/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/marketd.local.yaml", "path to config file")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting marketd",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"instance_id", cfg.Instance.ID,
		"provider_url", cfg.Provider.BaseURL,
		"feed_url", cfg.Feed.URL,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Freshness cache: redis when configured, in-memory otherwise.
	var store cache.Store
	if cfg.Redis.Addr != "" {
		logger.Info("connecting to redis", "addr", cfg.Redis.Addr)
		store, err = cache.NewRedisStore(ctx, cfg.Redis.Addr,
			cache.WithPrefix(cfg.Redis.Prefix),
			cache.WithPassword(cfg.Redis.Password),
			cache.WithDB(cfg.Redis.DB),
			cache.WithRedisTTL(cfg.Redis.TTL),
		)
		if err != nil {
			logger.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
	} else {
		logger.Info("using in-memory cache")
		store = cache.NewMemoryStore(cache.WithMemoryTTL(cfg.Redis.TTL))
	}
	defer store.Close()

	// Postgres backs the scan store and the snapshot archive; without
	// it both fall back to memory-only operation.
	var pool *pgxpool.Pool
	if cfg.Database.Postgres.Enabled() {
		logger.Info("connecting to database",
			"host", cfg.Database.Postgres.Host,
			"port", cfg.Database.Postgres.Port,
			"database", cfg.Database.Postgres.Name,
		)
		pool, err = database.Connect(ctx, cfg.Database.Postgres)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		logger.Info("database connected")
	}

	var archiver *archive.Writer
	if pool != nil {
		archiver, err = archive.NewWriter(ctx, archive.Config{
			BatchSize:     cfg.Archive.BatchSize,
			FlushInterval: cfg.Archive.FlushInterval,
			BufferSize:    cfg.Archive.BufferSize,
		}, pool, logger.With("component", "archive"))
		if err != nil {
			logger.Error("failed to create archive writer", "error", err)
			os.Exit(1)
		}
		if err := archiver.Start(ctx); err != nil {
			logger.Error("failed to start archive writer", "error", err)
			os.Exit(1)
		}
		defer stopComponent(archiver.Stop, "archive writer", logger)
	}

	provider := edsm.NewClient(cfg.Provider.BaseURL,
		edsm.WithLogger(logger.With("component", "edsm")),
		edsm.WithTimeout(cfg.Provider.Timeout),
		edsm.WithRetries(cfg.Provider.MaxRetries, time.Second),
		edsm.WithUserAgent(cfg.Provider.UserAgent),
		edsm.WithThrottle(cfg.Provider.Preroll, cfg.Provider.Pacing),
	)

	var populatorArchiver populate.Archiver
	if archiver != nil {
		populatorArchiver = archiver
	}
	populator := populate.New(populate.Config{
		Concurrency:     cfg.Populate.Concurrency,
		DisallowedTypes: cfg.Populate.DisallowedTypes,
	}, provider, store, populatorArchiver, logger.With("component", "populate"))

	queue := dispatch.New(dispatch.Config{
		Workers:       cfg.Dispatch.Workers,
		RetainFor:     cfg.Dispatch.RetainFor,
		SweepInterval: cfg.Dispatch.SweepInterval,
	}, populator, logger.With("component", "dispatch"))
	if err := queue.Start(ctx); err != nil {
		logger.Error("failed to start task queue", "error", err)
		os.Exit(1)
	}
	defer stopComponent(queue.Stop, "task queue", logger)

	var scanStore scan.Store
	if pool != nil {
		scanStore, err = scan.NewPGStore(ctx, pool, scan.WithPGRetention(cfg.Scan.Retention))
		if err != nil {
			logger.Error("failed to create scan store", "error", err)
			os.Exit(1)
		}
	} else {
		scanStore = scan.NewMemoryStore(scan.WithRetention(cfg.Scan.Retention))
	}
	defer scanStore.Close()

	orchestrator := scan.NewOrchestrator(scan.Config{
		BatchSize: cfg.Scan.BatchSize,
	}, provider, queue, store, scanStore, logger.With("component", "scan"))

	var feedArchiver feed.Archiver
	if archiver != nil {
		feedArchiver = archiver
	}
	consumer := feed.NewConsumer(feed.Config{
		URL:            cfg.Feed.URL,
		ReconnectDelay: cfg.Feed.ReconnectDelay,
		WriteSnapshots: cfg.Feed.WriteSnapshots,
	}, store, feedArchiver, logger.With("component", "feed"))
	if err := consumer.Start(ctx); err != nil {
		logger.Error("failed to start feed consumer", "error", err)
		os.Exit(1)
	}
	defer stopComponent(consumer.Stop, "feed consumer", logger)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Metrics.Port),
		Handler: createHandler(cfg, pool, store, orchestrator, queue, logger),
	}
	go func() {
		logger.Info("starting http server", "port", cfg.Metrics.Port)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	logger.Info("marketd running",
		"instance_id", cfg.Instance.ID,
		"health_url", fmt.Sprintf("http://localhost:%d/health", cfg.Metrics.Port),
	)

	<-ctx.Done()

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)

	logger.Info("marketd stopped")
}

// stopComponent runs a Stop func with a bounded deadline at shutdown.
func stopComponent(stop func(context.Context) error, name string, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := stop(ctx); err != nil {
		logger.Warn("component stop failed", "component", name, "error", err)
	}
}

// createHandler builds the HTTP surface: health, metrics, and the scan
// endpoints.
func createHandler(cfg *config.Config, pool *pgxpool.Pool, store cache.Store, orchestrator *scan.Orchestrator, queue *dispatch.Queue, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.Handle(cfg.Metrics.Path, metrics.Handler())

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		health := struct {
			Status     string         `json:"status"`
			Components map[string]any `json:"components"`
		}{
			Status:     "healthy",
			Components: make(map[string]any),
		}

		if pool != nil {
			if err := pool.Ping(ctx); err != nil {
				health.Status = "unhealthy"
				health.Components["postgres"] = map[string]string{
					"status": "disconnected",
					"error":  err.Error(),
				}
			} else {
				health.Components["postgres"] = "connected"
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if health.Status != "healthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(health)
	})

	mux.HandleFunc("/scan", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			var req struct {
				Origin        string  `json:"origin"`
				InitialRadius float64 `json:"initialRadius"`
				MaxRadius     float64 `json:"maxRadius"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			if req.Origin == "" {
				http.Error(w, "origin is required", http.StatusBadRequest)
				return
			}

			scanReq, err := orchestrator.StartScan(r.Context(), req.Origin, req.InitialRadius, req.MaxRadius)
			if err != nil {
				logger.Error("scan start failed", "origin", req.Origin, "error", err)
				http.Error(w, err.Error(), http.StatusBadGateway)
				return
			}

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusAccepted)
			json.NewEncoder(w).Encode(scanReq)

		case http.MethodGet:
			id, err := uuid.Parse(r.URL.Query().Get("id"))
			if err != nil {
				http.Error(w, "invalid scan id", http.StatusBadRequest)
				return
			}

			report, err := orchestrator.ScanStatus(r.Context(), id)
			if errors.Is(err, scan.ErrNotFound) {
				http.Error(w, "scan not found", http.StatusNotFound)
				return
			}
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}

			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(report)

		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/task", func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(r.URL.Query().Get("id"))
		if err != nil {
			http.Error(w, "invalid task id", http.StatusBadRequest)
			return
		}

		status, ok := queue.Status(id)
		if !ok {
			http.Error(w, "task not found", http.StatusNotFound)
			return
		}

		resp := map[string]any{"id": id, "status": status.String()}
		if outcomes, done := queue.Result(id); done {
			resp["outcomes"] = outcomes
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	})

	return mux
}
