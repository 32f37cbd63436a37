package services

import (
	"context"
	"fmt"
	"log/slog"

	"budgetmanager/internal/core"
)

// ExpenseService orchestrates expense writes across storage and AMQP
type ExpenseService struct {
	storage   ExpenseStore
	publisher EventPublisher
}

// NewExpenseService creates an ExpenseService. publisher may be nil, in
// which case no events are emitted.
func NewExpenseService(storage ExpenseStore, publisher EventPublisher) *ExpenseService {
	return &ExpenseService{
		storage:   storage,
		publisher: publisher,
	}
}

// CreateExpense saves an expense and publishes an expense-created event.
// Publishing is best effort: the expense is stored even if it fails.
func (s *ExpenseService) CreateExpense(ctx context.Context, e core.Expense, source string) (int64, error) {
	if s.storage == nil {
		return 0, fmt.Errorf("expense service not properly initialized")
	}
	if err := e.Validate(); err != nil {
		return 0, err
	}

	id, err := s.storage.InsertExpense(ctx, e)
	if err != nil {
		return 0, fmt.Errorf("save expense: %w", err)
	}

	if err := s.publishCreated(ctx, id, e.BudgetID, source); err != nil {
		slog.ErrorContext(ctx, "Failed to publish expense created message",
			"id", id, "error", err)
	}

	return id, nil
}

// ListExpenses returns the expenses of a budget.
func (s *ExpenseService) ListExpenses(ctx context.Context, budgetID int64) ([]core.Expense, error) {
	expenses, err := s.storage.ListExpensesByBudget(ctx, budgetID)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return expenses, nil
}

func (s *ExpenseService) publishCreated(ctx context.Context, id, budgetID int64, source string) error {
	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP publisher not available, skipping expense created message")
		return nil
	}
	return s.publisher.PublishExpenseCreated(ctx, id, budgetID, source)
}
