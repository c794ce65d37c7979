package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/park285/cheese-arena/internal/boardimg"
	"github.com/park285/cheese-arena/internal/config"
	"github.com/park285/cheese-arena/internal/eventbus"
	"github.com/park285/cheese-arena/internal/ledger"
	"github.com/park285/cheese-arena/internal/msgcat"
	"github.com/park285/cheese-arena/internal/obslog"
	"github.com/park285/cheese-arena/internal/pvpchess"
	"github.com/park285/cheese-arena/internal/queryapi"
	"github.com/park285/cheese-arena/internal/rules"
	"github.com/park285/cheese-arena/internal/wsgate"
)

const shutdownTimeout = 15 * time.Second

func serveAction(ctx context.Context, _ *cli.Command) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = obslog.L().Sync() }()

	lg, closeLedger, err := openLedger(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeLedger()

	catalog, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		return fmt.Errorf("load messages: %w", err)
	}

	var sinks []pvpchess.ResultSink
	var archive queryapi.Archive
	if cfg.DatabaseURL != "" {
		repo, err := pvpchess.NewRepository(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("archive init: %w", err)
		}
		defer func() { _ = repo.Close() }()
		sctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err = repo.EnsureSchema(sctx)
		cancel()
		if err != nil {
			return fmt.Errorf("archive schema: %w", err)
		}
		sinks = append(sinks, repo)
		archive = repo
		obslog.L().Info("archive_enabled")
	}
	if cfg.NatsURL != "" {
		pub, err := eventbus.Connect(cfg.NatsURL, cfg.NatsSubject)
		if err != nil {
			return err
		}
		defer pub.Close()
		sinks = append(sinks, pub)
		obslog.L().Info("nats_enabled", zap.String("subject", cfg.NatsSubject))
	}

	engine := rules.New()
	mgr := pvpchess.NewManager(pvpchess.Options{
		Engine:       engine,
		Ledger:       lg,
		Catalog:      catalog,
		Sinks:        sinks,
		NameMaxRunes: cfg.NameMaxRunes,
	})
	gateway := wsgate.NewServer(mgr, wsgate.Options{AllowedOrigins: cfg.AllowedOrigins})

	sweeper := pvpchess.NewSweeper(mgr, cfg.IdleTimeout, cfg.SweepInterval)
	sweeper.Start(ctx)
	defer sweeper.Stop()

	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":    "ok",
			"timestamp": time.Now().UnixMilli(),
			"sessions":  mgr.Stats().LiveSessions,
		})
	})
	r.Handle("/ws", gateway)

	httpSrv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	querySrv := queryapi.NewServer(queryapi.New(queryapi.Options{
		Ledger:   lg,
		Sessions: mgr,
		Renderer: boardimg.New(),
		Archive:  archive,
	}))

	errCh := make(chan error, 2)
	go func() {
		obslog.L().Info("ws_server_start", zap.String("addr", cfg.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("ws server: %w", err)
		}
	}()
	go func() {
		obslog.L().Info("query_server_start", zap.String("addr", cfg.QueryAddr))
		if err := querySrv.ListenAndServe(cfg.QueryAddr); err != nil {
			errCh <- fmt.Errorf("query server: %w", err)
		}
	}()

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var runErr error
	select {
	case <-sigCtx.Done():
		obslog.L().Info("arena_shutdown")
	case runErr = <-errCh:
		obslog.L().Error("arena_server_failed", zap.Error(runErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		obslog.L().Warn("ws_server_shutdown", zap.Error(err))
	}
	if err := gateway.Shutdown(shutdownCtx); err != nil {
		obslog.L().Warn("ws_gateway_shutdown", zap.Error(err))
	}
	if err := querySrv.ShutdownWithContext(shutdownCtx); err != nil {
		obslog.L().Warn("query_server_shutdown", zap.Error(err))
	}
	if err := mgr.Wait(shutdownCtx); err != nil {
		obslog.L().Warn("result_sinks_pending", zap.Error(err))
	}
	return runErr
}

// openLedger builds the configured ledger backend.
func openLedger(ctx context.Context, cfg *config.AppConfig) (*ledger.Ledger, func(), error) {
	switch cfg.LedgerBackend {
	case config.LedgerRedis:
		rdb, err := ledger.DialRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("ledger redis: %w", err)
		}
		obslog.L().Info("ledger_backend", zap.String("backend", "redis"), zap.String("key", cfg.LedgerKey))
		return ledger.New(ledger.NewRedisStore(rdb, cfg.LedgerKey)), func() { _ = rdb.Close() }, nil
	case config.LedgerMemory:
		obslog.L().Info("ledger_backend", zap.String("backend", "memory"))
		return ledger.New(ledger.NewMemoryStore()), func() {}, nil
	default:
		obslog.L().Info("ledger_backend", zap.String("backend", "file"), zap.String("path", cfg.LedgerPath))
		return ledger.New(ledger.NewFileStore(cfg.LedgerPath)), func() {}, nil
	}
}
