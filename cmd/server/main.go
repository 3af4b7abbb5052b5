// Package main initializes and starts the trade journal API server,
// setting up configuration, logging, database connections, repositories,
// services, handlers, and optional TLS.
package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	nethttp "net/http"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/atinyakov/tradejournal/internal/config"
	"github.com/atinyakov/tradejournal/internal/db"
	"github.com/atinyakov/tradejournal/internal/logger"
	"github.com/atinyakov/tradejournal/internal/repository"
	"github.com/atinyakov/tradejournal/internal/server/handler/http"
	"github.com/atinyakov/tradejournal/internal/service"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	// Parse command-line, config file and environment configuration.
	options, err := config.Parse()
	if err != nil {
		return err
	}

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New().WithFile(logger.FileConfig{Path: options.LogFile})
	if err := log.Init(options.LogLevel); err != nil {
		return err
	}
	zapLogger := log.Log
	defer func() { _ = zapLogger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize PostgreSQL connection and schema.
	postgresDB, err := db.InitPostgres(options.DatabaseDSN)
	if err != nil {
		zapLogger.Error("cannot init database", zap.Error(err))
		return err
	}

	// Purge expired sessions in the background.
	db.StartExpiredSessionCleaner(ctx, postgresDB, options.CleanupInterval, zapLogger.Named("cleaner"))

	authRepo := repository.NewPostgresAuthRepository(postgresDB)
	tradeRepo := repository.NewPostgresTradeRepository(postgresDB)
	catalogRepo := repository.NewPostgresCatalogRepository(postgresDB)
	telegramRepo := repository.NewPostgresTelegramRepository(postgresDB)

	authService := service.NewAuthService(authRepo, service.WithTokenTTL(options.AccessTTL, options.RefreshTTL))
	tradeService := service.NewTradeService(tradeRepo, catalogRepo)
	catalogService := service.NewCatalogService(catalogRepo)
	telegramService := service.NewTelegramService(telegramRepo, options.TelegramBot)

	router := http.NewRouter(
		&http.AuthHandler{AuthService: authService},
		&http.TradeHandler{TradeService: tradeService},
		&http.CatalogHandler{CatalogService: catalogService},
		&http.TelegramHandler{TelegramService: telegramService},
		authService,
		zapLogger.Named("http"),
	)

	server := &nethttp.Server{
		Addr:              options.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		if options.TLSEnabled() {
			zapLogger.Info("starting HTTPS server", zap.String("addr", options.Address))
			serveErr <- server.ListenAndServeTLS(options.TLSCert, options.TLSKey)
			return
		}
		zapLogger.Info("starting HTTP server", zap.String("addr", options.Address))
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err = <-serveErr:
		if errors.Is(err, nethttp.ErrServerClosed) {
			err = nil
		}
	case <-ctx.Done():
		zapLogger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err = server.Shutdown(shutdownCtx)
	}

	err = multierr.Append(err, postgresDB.Close())
	if err != nil {
		zapLogger.Error("server stopped with error", zap.Error(err))
	}
	return err
}
