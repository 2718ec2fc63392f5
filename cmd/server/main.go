package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/musiliandrew/pesamali-financial-journey/internal/catalog"
	"github.com/musiliandrew/pesamali-financial-journey/internal/config"
	"github.com/musiliandrew/pesamali-financial-journey/internal/match"
	"github.com/musiliandrew/pesamali-financial-journey/internal/repository"
	"github.com/musiliandrew/pesamali-financial-journey/internal/server"
	"github.com/musiliandrew/pesamali-financial-journey/internal/stream"
)

var (
	configPath = flag.String("config", "config/config.yaml", "path to configuration file")
	version    = "dev" // set via ldflags during build
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := initLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting match engine",
		zap.String("version", version),
		zap.String("config", *configPath),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// The database is optional: without one the engine runs memory-only
	// and matches do not survive a restart.
	var (
		store match.SnapshotStore
		cat   *catalog.Catalog
	)
	if cfg.Database.URL != "" {
		db, dbErr := repository.NewDB(ctx, cfg.Database, logger)
		if dbErr != nil {
			logger.Fatal("failed to connect to database", zap.Error(dbErr))
		}
		defer db.Close()

		snapStore, storeErr := repository.NewSnapshotStore(ctx, db)
		if storeErr != nil {
			logger.Fatal("failed to initialize snapshot store", zap.Error(storeErr))
		}
		store = snapStore

		loaded, catErr := repository.LoadCatalog(ctx, db)
		if catErr != nil {
			logger.Warn("failed to load catalog from database, using built-in catalog", zap.Error(catErr))
		} else {
			cat = loaded
			logger.Info("catalog loaded from database")
		}
	} else {
		logger.Info("no database configured, running memory-only")
	}
	if cat == nil {
		cat = catalog.Default()
	}

	hub := stream.NewHub(cfg.Game.SubscriberBacklog, logger)
	manager := match.NewManager(match.Settings{
		BoardLength:       cfg.Game.BoardLength,
		SeatCount:         cfg.Game.SeatCount,
		SubscriberBacklog: cfg.Game.SubscriberBacklog,
	}, cat, hub, store, logger)
	logger.Info("match manager initialized",
		zap.Int("board_length", cfg.Game.BoardLength),
		zap.Int("seat_count", cfg.Game.SeatCount),
	)

	wsServer := server.NewWebSocketServer(manager, logger)
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsServer.Handler)

	httpServer := &http.Server{
		Addr:    cfg.Server.WebSocket.Address,
		Handler: mux,
	}
	go func() {
		logger.Info("websocket server listening", zap.String("address", cfg.Server.WebSocket.Address))
		if serveErr := httpServer.ListenAndServe(); serveErr != nil && serveErr != http.ErrServerClosed {
			logger.Error("websocket server error", zap.Error(serveErr))
		}
	}()

	grpcServer := server.NewGRPCServer(cfg.Server.GRPC, logger)
	go func() {
		if serveErr := grpcServer.Serve(); serveErr != nil {
			logger.Error("grpc server error", zap.Error(serveErr))
		}
	}()

	logger.Info("match engine initialized",
		zap.String("version", version),
		zap.String("grpc_address", cfg.Server.GRPC.Address),
		zap.String("websocket_address", cfg.Server.WebSocket.Address),
	)

	sig := <-sigChan
	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	logger.Info("shutting down gracefully...")
	cancel()

	grpcServer.SetNotServing()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("websocket server shutdown", zap.Error(err))
	}
	wsServer.Shutdown()

	manager.Close()
	grpcServer.GracefulStop()

	logger.Info("match engine stopped")
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
