package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/lbodkin223/productionprivateMirrorOS/internal/config"
	"github.com/lbodkin223/productionprivateMirrorOS/internal/econdata"
	"github.com/lbodkin223/productionprivateMirrorOS/internal/history"
	"github.com/lbodkin223/productionprivateMirrorOS/internal/httpapi"
	"github.com/lbodkin223/productionprivateMirrorOS/internal/observability"
	"github.com/lbodkin223/productionprivateMirrorOS/internal/odds"
)

func main() {
	addrFlag := flag.String("addr", "", "listen address (overrides MIRROR_HTTP_ADDR)")
	dbFlag := flag.String("db", "", "path to SQLite database file (overrides MIRROR_DB_PATH)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if *addrFlag != "" {
		cfg.HTTPAddr = *addrFlag
	}
	if *dbFlag != "" {
		cfg.DBPath = *dbFlag
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	shutdownTracing, err := observability.SetupTracing(ctx, "mirror-server", cfg.OTLPEndpoint)
	if err != nil {
		logger.Warn("tracing setup failed", zap.Error(err))
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	caller, err := odds.NewAnthropicCallerFromEnv()
	if err != nil {
		logger.Fatal("anthropic client", zap.Error(err))
	}
	runner := odds.NewLLMPhaseRunner(odds.NewPhaseExecutor(caller))
	predictor := odds.NewPredictor(odds.NewOrchestrator(runner, nil), odds.NewEngine())
	predictor.SetDefaultTrials(cfg.Trials)

	store, err := history.NewStore(cfg.DBPath)
	if err != nil {
		logger.Fatal("open history store", zap.String("path", cfg.DBPath), zap.Error(err))
	}
	defer store.Close()

	econ := econdata.NewClient(cfg.FREDAPIKey, cfg.EconTTL, logger.Named("econdata"))

	handler := httpapi.NewServer(predictor, store, econ, logger.Named("httpapi"), cfg.RequestTimeout)
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: handler}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("mirror-server listening",
		zap.String("addr", cfg.HTTPAddr),
		zap.String("db", cfg.DBPath),
		zap.Bool("fred_configured", cfg.FREDAPIKey != ""),
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server", zap.Error(err))
	}
}
