package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"golang.org/x/sync/errgroup"

	"budgetmanager/internal/cli"
	apphttp "budgetmanager/internal/http"
	"budgetmanager/internal/log"
	"budgetmanager/internal/middleware/ratelimit"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	publisher, closePublisher := cli.InitAMQP(logger, cfg)
	defer closePublisher()

	svc := cli.NewServices(repo, publisher)

	srv := apphttp.NewServer(apphttp.Options{
		Addr:      ":" + cfg.Port,
		Recurring: svc.Recurring,
		Budgets:   svc.Budgets,
		Ready:     repo,
		Logger:    logger,
		RateLimit: ratelimit.Config{
			RequestsPerSecond: cfg.RateLimitRPS,
			Burst:             cfg.RateLimitBurst,
		},
	})

	ctx, stop := cli.SignalContext()
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting budget API", log.FieldOperation, log.OpStartup, "port", cfg.Port, "sqlite_db", cfg.SQLiteDBPath)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down budget API", log.FieldOperation, log.OpShutdown)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
