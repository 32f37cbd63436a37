package storage

import (
	"context"
	"fmt"
	"log/slog"

	"budgetmanager/internal/core"
)

// InsertExpense implements services.ExpenseStore
func (r *SQLiteRepository) InsertExpense(ctx context.Context, e core.Expense) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO expenses (budget_id, subcategory_id, date, label, amount_cents, payment_method, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.BudgetID, e.SubcategoryID, e.Date.String(), e.Label, e.Amount.Cents, e.PaymentMethod, e.Notes,
	)
	if err != nil {
		return 0, fmt.Errorf("create expense: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("create expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved to SQLite",
		"id", id,
		"budget_id", e.BudgetID,
		"label", e.Label,
		"amount_cents", e.Amount.Cents,
		"date", e.Date.String())

	return id, nil
}

// ListExpensesByBudget returns a budget's expenses ordered by date.
func (r *SQLiteRepository) ListExpensesByBudget(ctx context.Context, budgetID int64) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, budget_id, subcategory_id, date, label, amount_cents, payment_method, notes
		FROM expenses WHERE budget_id = ? ORDER BY date, id`, budgetID)
	if err != nil {
		return nil, fmt.Errorf("get expenses by budget: %w", err)
	}
	defer rows.Close()

	var expenses []core.Expense
	for rows.Next() {
		var (
			e    core.Expense
			date string
		)
		if err := rows.Scan(&e.ID, &e.BudgetID, &e.SubcategoryID, &date, &e.Label,
			&e.Amount.Cents, &e.PaymentMethod, &e.Notes); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		if e.Date, err = core.ParseDate(date); err != nil {
			return nil, fmt.Errorf("expense %d: %w", e.ID, err)
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}
