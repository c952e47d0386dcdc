package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gammonhub/gammon-server-go/internal/admin"
	"github.com/gammonhub/gammon-server-go/internal/auth"
	"github.com/gammonhub/gammon-server-go/internal/config"
	"github.com/gammonhub/gammon-server-go/internal/ledger"
	"github.com/gammonhub/gammon-server-go/internal/match"
	"github.com/gammonhub/gammon-server-go/internal/server"
	"github.com/gammonhub/gammon-server-go/internal/session"
	"github.com/gammonhub/gammon-server-go/internal/settlement"
	"github.com/gammonhub/gammon-server-go/internal/store"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	configPath = flag.String("config", "config/config.yaml", "path to configuration file")
	version    = "dev" // set via ldflags during build
)

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := initLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting gammon server",
		zap.String("version", version),
		zap.String("config", *configPath),
	)

	// Create context that listens for termination signals
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Initialize database
	db, err := store.NewDB(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	stats := db.Stat()
	logger.Info("database connection pool initialized",
		zap.Int32("total_conns", stats.TotalConns()),
		zap.Int32("idle_conns", stats.IdleConns()),
	)

	// Initialize identity manager and token cleanup
	authMgr := auth.NewManager(auth.NewPostgresStore(db), cfg.Auth.TokenTTL, logger)
	go authMgr.CleanupExpiredTokens(ctx)
	logger.Info("identity manager initialized",
		zap.Duration("token_ttl", cfg.Auth.TokenTTL),
	)

	// Initialize match storage and lifecycle manager
	matches := store.NewPostgres(db)
	matchMgr := match.NewManager(matches, logger)
	logger.Info("match manager initialized")

	// Initialize ledger and admin settings
	books := ledger.NewPostgres(db)
	settings := admin.NewPostgres(db)

	// Initialize settler and recover anything a crash left behind
	settler := settlement.NewSettler(matches, books, settings, logger)
	if err := settler.SettlePending(ctx); err != nil {
		logger.Error("startup settlement recovery failed", zap.Error(err))
	}
	go settler.Run(ctx, cfg.Game.SettlementSweepInterval)
	logger.Info("settler initialized",
		zap.Duration("sweep_interval", cfg.Game.SettlementSweepInterval),
	)

	// Initialize session coordinator
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	coordinator := session.NewCoordinator(matches, settler, rng, cfg.Game.SaveRetries, logger)
	logger.Info("session coordinator initialized",
		zap.Int("save_retries", cfg.Game.SaveRetries),
	)

	srv := server.New(ctx, cfg, authMgr, matchMgr, coordinator, logger)
	httpServer := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: srv.Handler(),
	}

	go func() {
		logger.Info("starting HTTP server", zap.String("address", cfg.Server.Address))
		if serveErr := httpServer.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			logger.Error("HTTP server error", zap.Error(serveErr))
		}
	}()

	logger.Info("gammon server initialized",
		zap.String("version", version),
		zap.String("address", cfg.Server.Address),
	)

	// Wait for termination signal
	sig := <-sigChan
	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	logger.Info("shutting down gracefully...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	logger.Info("gammon server stopped")
}

// initLogger initializes the zap logger based on configuration
func initLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
