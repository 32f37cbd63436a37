// Command materialize generates one budget-month for a user, or re-runs
// recurring materialization for an existing budget.
//
//	materialize -user 1 -month 2024-02
//	materialize -user 1 -budget 7
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"budgetmanager/internal/cli"
	"budgetmanager/internal/core"
	"budgetmanager/internal/log"
	"budgetmanager/internal/services"
)

func main() {
	userID := flag.Int64("user", 0, "user id owning the budget")
	monthFlag := flag.String("month", "", "month to generate, YYYY-MM (default: current month)")
	budgetID := flag.Int64("budget", 0, "existing budget to re-materialize; adds duplicates if run twice")
	timeout := flag.Duration("timeout", time.Minute, "overall deadline")
	flag.Parse()

	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL")).WithComponent(log.ComponentMaterialize)

	if *userID <= 0 {
		fmt.Fprintln(os.Stderr, "materialize: -user is required")
		flag.Usage()
		os.Exit(2)
	}

	cfg := cli.LoadAndValidateConfig(logger)
	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	publisher, closePublisher := cli.InitAMQP(logger, cfg)
	defer closePublisher()

	svc := cli.NewServices(repo, publisher)

	ctx, stop := cli.SignalContext()
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	if err := run(ctx, logger, svc.Budgets, *userID, *budgetID, *monthFlag); err != nil {
		logger.ErrorContext(ctx, "Materialization failed", log.FieldError, err)
		// Deferred closes are skipped by os.Exit.
		closePublisher()
		repo.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *log.Logger, budgets *services.BudgetService, userID, budgetID int64, monthFlag string) error {
	if budgetID > 0 {
		res, err := budgets.Rematerialize(ctx, userID, budgetID)
		if err != nil {
			return fmt.Errorf("rematerialize budget %d: %w", budgetID, err)
		}
		report(ctx, logger, res)
		return nil
	}

	month := core.MonthOf(core.DateOf(time.Now()))
	if monthFlag != "" {
		var err error
		if month, err = core.ParseMonth(monthFlag); err != nil {
			return err
		}
	}

	gen, err := budgets.GenerateBudget(ctx, userID, month)
	if err != nil {
		return fmt.Errorf("generate budget %s: %w", month, err)
	}
	logger.InfoContext(ctx, "Budget generated",
		append(log.NewFields().WithUser(userID).WithBudget(gen.Budget.ID, month.String()).ToSlice(),
			"name", gen.Budget.Name,
			"default_expenses", gen.DefaultExpenses)...)
	report(ctx, logger, gen.Materialization)
	return gen.MaterializationError
}

func report(ctx context.Context, logger *log.Logger, res services.MaterializeResult) {
	for _, o := range res.Outcomes {
		logger.DebugContext(ctx, "Recurring expense outcome",
			log.FieldRecurringExpenseID, o.RuleID,
			"status", o.Status,
			"date", o.Date.String(),
			"reason", o.Reason)
	}
	logger.InfoContext(ctx, "Recurring expenses materialized",
		log.FieldBudgetID, res.BudgetID,
		log.FieldMonth, res.Month.String(),
		"created", res.Created(),
		"rules", len(res.Outcomes))
}
