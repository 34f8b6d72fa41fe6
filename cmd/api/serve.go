package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"conecta/internal/auth"
	"conecta/internal/config"
	"conecta/internal/db"
	"conecta/internal/db/migrations"
	"conecta/internal/errutil"
	"conecta/internal/metrics"
	"conecta/internal/repository"
	"conecta/internal/routes"
	"conecta/internal/services"
	"conecta/internal/tracing"
)

const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE:  runServe,
	}
	cmd.Flags().String("port", "", "HTTP listen port")
	cmd.Flags().Bool("auto-migrate", false, "apply pending migrations before serving")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, tracing.Options{
		Enabled:  cfg.TracingEnabled,
		Service:  "conecta-api",
		Version:  version,
		Exporter: cfg.TraceExporter,
	})
	if err != nil {
		return err
	}

	if cfg.AutoMigrate {
		if err := db.CreateDatabaseIfNotExists(ctx, cfg.DatabaseURL, logger); err != nil {
			return oops.Code("DB_CREATE_FAILED").Wrap(err)
		}
	}

	database, err := db.New(ctx, cfg.DatabaseURL, db.DefaultOptions(), logger)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	defer database.Close()

	if cfg.AutoMigrate {
		if err := migrations.RunMigrations(ctx, database.DB); err != nil {
			return oops.Code("MIGRATION_FAILED").With("operation", "run migrations").Wrap(err)
		}
	}

	dispatcher := services.NewDispatcher(mailSender(cfg, logger), cfg.MailWorkers, cfg.MailQueueSize, logger)
	m := metrics.New()
	accounts := repository.NewAccountRepository(database.DB)

	tokens, err := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTPreviousSecrets, cfg.JWTExpiresIn)
	if err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}
	authService, err := auth.NewService(
		accounts,
		auth.NewBcryptHasher(cfg.BcryptCost, cfg.HashConcurrency),
		tokens,
		services.NewResetMailer(dispatcher, cfg.AppBaseURL),
		auth.Options{
			StoreTimeout: cfg.StoreTimeout,
			Logger:       logger,
			Recorder:     m,
		},
	)
	if err != nil {
		return err
	}

	deps := routes.Dependencies{
		Auth:     authService,
		Accounts: accounts,
		Metrics:  m,
		Storage:  objectStore(ctx, cfg, logger),
		Logger:   logger,
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           routes.SetupRoutes(database.DB, cfg, deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.Port, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return oops.Code("SERVER_FAILED").Wrap(err)
		}
	case <-ctx.Done():
	}
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		errutil.LogError(logger, "server forced to shutdown", oops.Code("SHUTDOWN_FAILED").Wrap(err))
	}
	if err := dispatcher.Close(shutdownCtx); err != nil {
		errutil.LogError(logger, "email queue not drained", oops.Code("SHUTDOWN_FAILED").Wrap(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		errutil.LogError(logger, "spans not flushed", oops.Code("SHUTDOWN_FAILED").Wrap(err))
	}

	logger.Info("server exiting")
	return nil
}

func mailSender(cfg *config.Config, logger *slog.Logger) services.EmailSender {
	if !cfg.SMTPConfigured() {
		logger.Warn("smtp not configured, password reset emails will only be logged")
		return services.NewLogSender(logger)
	}
	return &services.SMTPSender{
		Host:   cfg.SMTPHost,
		Port:   cfg.SMTPPort,
		User:   cfg.SMTPUser,
		Pass:   cfg.SMTPPassword,
		From:   cfg.SMTPFrom,
		UseTLS: cfg.SMTPUseTLS,
	}
}

// objectStore returns nil when uploads are not configured.
func objectStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) services.ObjectStore {
	if cfg.S3Bucket == "" {
		logger.Warn("s3 bucket not configured, uploads are disabled")
		return nil
	}
	s3Config, err := config.NewS3Config(ctx, cfg)
	if err != nil {
		errutil.LogError(logger, "s3 client setup failed, uploads are disabled", oops.Code("S3_CONFIG_FAILED").Wrap(err))
		return nil
	}
	if !s3Config.Enabled() {
		return nil
	}
	return services.NewS3Store(s3Config.Client, s3Config.Bucket, s3Config.PublicBaseURL)
}
