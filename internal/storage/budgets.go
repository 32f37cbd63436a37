package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"budgetmanager/internal/core"
	"budgetmanager/internal/services"
)

const budgetColumns = "id, user_id, month, name, revenue_cents, template_id"

func scanBudget(s ruleScanner) (core.Budget, error) {
	var (
		b          core.Budget
		month      string
		templateID sql.NullInt64
	)
	if err := s.Scan(&b.ID, &b.UserID, &month, &b.Name, &b.Revenue.Cents, &templateID); err != nil {
		return core.Budget{}, err
	}
	m, err := core.ParseMonth(month)
	if err != nil {
		return core.Budget{}, fmt.Errorf("budget %d: %w", b.ID, err)
	}
	b.Month = m
	b.TemplateID = idPtr(templateID)
	return b, nil
}

// FindBudget returns the budget of userID for month.
func (r *SQLiteRepository) FindBudget(ctx context.Context, userID int64, month core.Month) (core.Budget, error) {
	return r.getBudget(ctx, "user_id = ? AND month = ?", userID, month.String())
}

func (r *SQLiteRepository) GetBudget(ctx context.Context, id int64) (core.Budget, error) {
	return r.getBudget(ctx, "id = ?", id)
}

func (r *SQLiteRepository) getBudget(ctx context.Context, where string, args ...any) (core.Budget, error) {
	b, err := scanBudget(r.db.QueryRowContext(ctx, "SELECT "+budgetColumns+" FROM budgets WHERE "+where, args...))
	if err != nil {
		return core.Budget{}, notFound(err)
	}
	if b.Categories, err = r.budgetTree(ctx, b.ID); err != nil {
		return core.Budget{}, err
	}
	return b, nil
}

// ListBudgets returns the user's budgets, newest month first, without their
// category trees.
func (r *SQLiteRepository) ListBudgets(ctx context.Context, userID int64) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+budgetColumns+" FROM budgets WHERE user_id = ? ORDER BY month DESC", userID)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var budgets []core.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		budgets = append(budgets, b)
	}
	return budgets, rows.Err()
}

// LatestRevenue returns the revenue of the user's most recent budget with a
// known revenue, or zero when there is none.
func (r *SQLiteRepository) LatestRevenue(ctx context.Context, userID int64) (core.Money, error) {
	var cents int64
	err := r.db.QueryRowContext(ctx,
		"SELECT revenue_cents FROM budgets WHERE user_id = ? AND revenue_cents > 0 ORDER BY month DESC LIMIT 1", userID).
		Scan(&cents)
	if err == sql.ErrNoRows {
		return core.Money{}, nil
	}
	if err != nil {
		return core.Money{}, fmt.Errorf("latest revenue: %w", err)
	}
	return core.Money{Cents: cents}, nil
}

// CreateBudget stores b and its category tree in one transaction. A second
// budget for the same user and month fails with services.ErrBudgetExists.
func (r *SQLiteRepository) CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"INSERT INTO budgets (user_id, month, name, revenue_cents, template_id) VALUES (?, ?, ?, ?, ?)",
			b.UserID, b.Month.String(), b.Name, b.Revenue.Cents, nullID(b.TemplateID))
		if err != nil {
			return fmt.Errorf("insert budget: %w", err)
		}
		if b.ID, err = res.LastInsertId(); err != nil {
			return err
		}
		return insertBudgetTree(ctx, tx, b.ID, b.Categories)
	})
	if isUniqueViolation(err) {
		return core.Budget{}, services.ErrBudgetExists
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("create budget: %w", err)
	}

	slog.InfoContext(ctx, "Budget saved to SQLite",
		"id", b.ID,
		"user_id", b.UserID,
		"month", b.Month.String(),
		"categories", len(b.Categories))

	return b, nil
}

func insertBudgetTree(ctx context.Context, q querier, budgetID int64, tree core.BudgetTree) error {
	for i := range tree {
		c := &tree[i]
		res, err := q.ExecContext(ctx,
			"INSERT INTO budget_categories (budget_id, name, planned_cents, sort_order) VALUES (?, ?, ?, ?)",
			budgetID, c.Name, c.Planned.Cents, c.SortOrder)
		if err != nil {
			return fmt.Errorf("insert budget category %q: %w", c.Name, err)
		}
		if c.ID, err = res.LastInsertId(); err != nil {
			return err
		}

		for j := range c.Subcategories {
			s := &c.Subcategories[j]
			res, err := q.ExecContext(ctx,
				"INSERT INTO budget_subcategories (category_id, name, planned_cents, sort_order) VALUES (?, ?, ?, ?)",
				c.ID, s.Name, s.Planned.Cents, s.SortOrder)
			if err != nil {
				return fmt.Errorf("insert budget subcategory %q: %w", s.Name, err)
			}
			if s.ID, err = res.LastInsertId(); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *SQLiteRepository) budgetTree(ctx context.Context, budgetID int64) (core.BudgetTree, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.id, c.name, c.planned_cents, c.sort_order,
		       s.id, s.name, s.planned_cents, s.sort_order
		FROM budget_categories c
		LEFT JOIN budget_subcategories s ON s.category_id = c.id
		WHERE c.budget_id = ?
		ORDER BY c.sort_order, c.id, s.sort_order, s.id`, budgetID)
	if err != nil {
		return nil, fmt.Errorf("get budget tree: %w", err)
	}
	defer rows.Close()

	var tree core.BudgetTree
	for rows.Next() {
		var (
			c                  core.BudgetCategory
			subID              sql.NullInt64
			subName            sql.NullString
			subPlanned, subOrd sql.NullInt64
		)
		if err := rows.Scan(&c.ID, &c.Name, &c.Planned.Cents, &c.SortOrder,
			&subID, &subName, &subPlanned, &subOrd); err != nil {
			return nil, fmt.Errorf("scan budget tree: %w", err)
		}
		if n := len(tree); n == 0 || tree[n-1].ID != c.ID {
			tree = append(tree, c)
		}
		if subID.Valid {
			last := &tree[len(tree)-1]
			last.Subcategories = append(last.Subcategories, core.BudgetSubcategory{
				ID:        subID.Int64,
				Name:      subName.String,
				Planned:   core.Money{Cents: subPlanned.Int64},
				SortOrder: int(subOrd.Int64),
			})
		}
	}
	return tree, rows.Err()
}
