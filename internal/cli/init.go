// Package cli provides common CLI initialization utilities shared by
// cmd/budget-api and cmd/materialize.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"budgetmanager/internal/amqp"
	"budgetmanager/internal/config"
	"budgetmanager/internal/log"
	"budgetmanager/internal/services"
	"budgetmanager/internal/storage"
)

// SetupLogger builds the process logger at level and sets it as the slog
// default.
func SetupLogger(level string) *log.Logger {
	cfg := log.DefaultConfig()
	cfg.Level = log.ParseLevel(level)
	if os.Getenv("LOG_FORMAT") == "json" {
		cfg.Format = "json"
	}
	logger := log.New(cfg)
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// InitSQLite initializes a SQLite repository with the given path.
// Returns the repository or exits the process on failure.
func InitSQLite(logger *log.Logger, dbPath string) *storage.SQLiteRepository {
	repo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", log.FieldError, err, "path", dbPath)
		os.Exit(1)
	}
	logger.WithComponent(log.ComponentStorage).InfoContext(context.Background(), "SQLite repository ready", "path", dbPath)
	return repo
}

// InitAMQP connects the expense event publisher. It returns a nil publisher
// and a no-op close when AMQP is disabled or unreachable; expenses are then
// stored without events.
func InitAMQP(logger *log.Logger, cfg *config.Config) (services.EventPublisher, func()) {
	noop := func() {}
	amqpLogger := logger.WithComponent(log.ComponentAMQP)

	if cfg.AMQPURL == "" {
		amqpLogger.Info("AMQP disabled, expense events will not be published")
		return nil, noop
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRoutingKey)
	if err != nil {
		amqpLogger.Warn("Failed to initialize AMQP client, continuing without events", log.FieldError, err)
		return nil, noop
	}

	amqpLogger.Info("AMQP client initialized",
		"exchange", cfg.AMQPExchange,
		"routing_key", cfg.AMQPRoutingKey)
	return client, func() {
		if err := client.Close(); err != nil {
			amqpLogger.Warn("Failed to close AMQP client", log.FieldError, err)
		}
	}
}

// Services is the application layer wired over one repository.
type Services struct {
	Expenses  *services.ExpenseService
	Recurring *services.RecurringService
	Budgets   *services.BudgetService
}

// NewServices wires the services over repo. publisher may be nil.
func NewServices(repo *storage.SQLiteRepository, publisher services.EventPublisher) Services {
	expenses := services.NewExpenseService(repo, publisher)
	return Services{
		Expenses:  expenses,
		Recurring: services.NewRecurringService(repo, repo),
		Budgets:   services.NewBudgetService(repo, repo, expenses, services.NewMaterializer(repo, expenses)),
	}
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
