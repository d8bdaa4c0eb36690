// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	_ "modernc.org/sqlite"

	"github.com/danielhkuo/quickly-weigh/averages"
	"github.com/danielhkuo/quickly-weigh/cellweights"
	"github.com/danielhkuo/quickly-weigh/cliparse"
	"github.com/danielhkuo/quickly-weigh/db"
	"github.com/danielhkuo/quickly-weigh/generation"
	"github.com/danielhkuo/quickly-weigh/lockqueue"
	"github.com/danielhkuo/quickly-weigh/metrics"
	"github.com/danielhkuo/quickly-weigh/middleware"
	"github.com/danielhkuo/quickly-weigh/router"
)

func main() {
	var err error

	// Parse configuration
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}
	slog.SetLogLoggerLevel(cfg.LogLevel)

	// Connect to the database
	driver, err := db.DriverName(cfg.DatabaseType)
	if err != nil {
		slog.Error("unsupported database", "type", cfg.DatabaseType, "error", err)
		os.Exit(1)
	}
	dbConn, err := sql.Open(driver, cfg.DatabaseURL)
	if err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer dbConn.Close()

	// Verify connection
	if err := dbConn.Ping(); err != nil {
		slog.Error("database ping failed", "error", err)
		os.Exit(1)
	}

	// Create schema (tables)
	if err := db.CreateSchema(context.Background(), dbConn, cfg.DatabaseType); err != nil {
		slog.Error("schema creation failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database schema ready", "type", cfg.DatabaseType)

	// Averages
	avgs := averages.Default()
	if cfg.AveragesFile != "" {
		avgs, err = averages.LoadFile(cfg.AveragesFile)
		if err != nil {
			slog.Error("failed to load averages", "file", cfg.AveragesFile, "error", err)
			os.Exit(1)
		}
	}
	slog.Info("Averages loaded", "count", len(avgs.All()))

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New(reg)
	if err != nil {
		slog.Error("metrics registration failed", "error", err)
		os.Exit(1)
	}

	// Weight generation
	store := db.NewStore(dbConn)
	svc, err := generation.NewService(generation.Dependencies{
		Subsets:         store,
		Plans:           store,
		Cells:           store,
		Responses:       store,
		Explainer:       store,
		Generator:       cellweights.New(cellweights.WithLogger(slog.Default())),
		ResponseWeights: store,
		Variables:       store,
	},
		generation.WithLogger(slog.Default()),
		generation.WithLockQueue(lockqueue.New[string](lockqueue.WithWaitObserver(m.ObserveLockWait))),
		generation.WithParallelism(cfg.ExportParallelism),
		generation.WithResponseLevelMaxDepth(cfg.ResponseLevelMaxDepth),
		generation.WithMetrics(m),
	)
	if err != nil {
		slog.Error("failed to create weighting service", "error", err)
		os.Exit(1)
	}

	// Create router
	mux := router.NewRouter(router.Services{
		Store:    store,
		Weights:  svc,
		Averages: avgs,
		Gatherer: reg,
	}, cfg)

	// Create server
	server := http.Server{
		Handler:           middleware.CORS(mux),
		Addr:              ":" + strconv.Itoa(cfg.Port),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// signal.Notify requires the channel to be buffered
	ctrlc := make(chan os.Signal, 1)
	signal.Notify(ctrlc, os.Interrupt, syscall.SIGTERM)
	go func() {
		// Wait for Ctrl-C signal, then let running exports finish
		<-ctrlc
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	// Start server
	slog.Info("Listening", "port", cfg.Port)
	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		slog.Error("Server closed", "error", err)
	} else {
		slog.Info("Server closed", "error", err)
	}
}
