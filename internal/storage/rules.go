package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"budgetmanager/internal/core"
)

const ruleColumns = `
	r.id, r.user_id, r.template_subcategory_id, r.label, r.amount_cents,
	r.frequency, r.day_of_month, r.day_of_week, r.month_of_year,
	r.auto_create, r.is_active, r.start_date, r.end_date,
	r.payment_method, r.notes, tc.name, ts.name`

const ruleFrom = `
	FROM recurring_expenses r
	LEFT JOIN template_subcategories ts ON ts.id = r.template_subcategory_id
	LEFT JOIN template_categories tc ON tc.id = ts.category_id`

type ruleScanner interface {
	Scan(dest ...any) error
}

func scanRule(ctx context.Context, s ruleScanner) (core.RecurrenceRule, error) {
	var (
		rule                    core.RecurrenceRule
		templateSubcategoryID   sql.NullInt64
		frequency               string
		dayOfMonth, monthOfYear sql.NullInt64
		dayOfWeek               sql.NullString
		startDate               string
		endDate                 sql.NullString
		categoryName, subName   sql.NullString
	)
	err := s.Scan(
		&rule.ID, &rule.UserID, &templateSubcategoryID, &rule.Label, &rule.Amount.Cents,
		&frequency, &dayOfMonth, &dayOfWeek, &monthOfYear,
		&rule.AutoCreate, &rule.IsActive, &startDate, &endDate,
		&rule.PaymentMethod, &rule.Notes, &categoryName, &subName,
	)
	if err != nil {
		return core.RecurrenceRule{}, err
	}

	rule.TemplateSubcategoryID = idPtr(templateSubcategoryID)
	if categoryName.Valid && subName.Valid {
		rule.Target = &core.SubcategoryRef{CategoryName: categoryName.String, SubcategoryName: subName.String}
	}

	if rule.StartDate, err = core.ParseDate(startDate); err != nil {
		return core.RecurrenceRule{}, fmt.Errorf("recurring expense %d start date: %w", rule.ID, err)
	}
	if endDate.Valid && endDate.String != "" {
		end, err := core.ParseDate(endDate.String)
		if err != nil {
			return core.RecurrenceRule{}, fmt.Errorf("recurring expense %d end date: %w", rule.ID, err)
		}
		rule.EndDate = &end
	}

	fields := core.RecurrenceFields{Frequency: core.Frequency(frequency)}
	if dayOfMonth.Valid {
		d := int(dayOfMonth.Int64)
		fields.DayOfMonth = &d
	}
	if dayOfWeek.Valid {
		fields.DayOfWeek = &dayOfWeek.String
	}
	if monthOfYear.Valid {
		m := int(monthOfYear.Int64)
		fields.MonthOfYear = &m
	}
	// A malformed stored rule loads without a recurrence and never occurs.
	if rule.Recurrence, err = core.NewRecurrence(fields); err != nil {
		slog.WarnContext(ctx, "Recurring expense has invalid recurrence fields",
			"recurring_expense_id", rule.ID,
			"frequency", frequency,
			"error", err)
	}

	return rule, nil
}

func (r *SQLiteRepository) queryRules(ctx context.Context, where, order string, args ...any) ([]core.RecurrenceRule, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT"+ruleColumns+ruleFrom+" WHERE "+where+" ORDER BY "+order, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []core.RecurrenceRule
	for rows.Next() {
		rule, err := scanRule(ctx, rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// ListAutoCreateRules implements services.RuleLister
func (r *SQLiteRepository) ListAutoCreateRules(ctx context.Context, userID int64) ([]core.RecurrenceRule, error) {
	rules, err := r.queryRules(ctx, "r.user_id = ? AND r.is_active = 1 AND r.auto_create = 1", "r.id", userID)
	if err != nil {
		return nil, fmt.Errorf("list auto-create recurring expenses: %w", err)
	}
	return rules, nil
}

func (r *SQLiteRepository) ListRules(ctx context.Context, userID int64) ([]core.RecurrenceRule, error) {
	rules, err := r.queryRules(ctx, "r.user_id = ?", "r.label COLLATE NOCASE, r.id", userID)
	if err != nil {
		return nil, fmt.Errorf("list recurring expenses: %w", err)
	}
	return rules, nil
}

func (r *SQLiteRepository) GetRule(ctx context.Context, id int64) (core.RecurrenceRule, error) {
	row := r.db.QueryRowContext(ctx, "SELECT"+ruleColumns+ruleFrom+" WHERE r.id = ?", id)
	rule, err := scanRule(ctx, row)
	if err != nil {
		return core.RecurrenceRule{}, notFound(err)
	}
	return rule, nil
}

func (r *SQLiteRepository) CreateRule(ctx context.Context, rule core.RecurrenceRule) (int64, error) {
	f := core.FieldsOf(rule.Recurrence)
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO recurring_expenses (
			user_id, template_subcategory_id, label, amount_cents,
			frequency, day_of_month, day_of_week, month_of_year,
			auto_create, is_active, start_date, end_date, payment_method, notes
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rule.UserID, nullID(rule.TemplateSubcategoryID), rule.Label, rule.Amount.Cents,
		string(f.Frequency), nullInt(f.DayOfMonth), nullString(f.DayOfWeek), nullInt(f.MonthOfYear),
		rule.AutoCreate, rule.IsActive, rule.StartDate.String(), nullDate(rule.EndDate),
		rule.PaymentMethod, rule.Notes,
	)
	if err != nil {
		return 0, fmt.Errorf("insert recurring expense: %w", err)
	}
	return res.LastInsertId()
}

func (r *SQLiteRepository) UpdateRule(ctx context.Context, rule core.RecurrenceRule) error {
	f := core.FieldsOf(rule.Recurrence)
	res, err := r.db.ExecContext(ctx, `
		UPDATE recurring_expenses SET
			template_subcategory_id = ?, label = ?, amount_cents = ?,
			frequency = ?, day_of_month = ?, day_of_week = ?, month_of_year = ?,
			auto_create = ?, is_active = ?, start_date = ?, end_date = ?,
			payment_method = ?, notes = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		nullID(rule.TemplateSubcategoryID), rule.Label, rule.Amount.Cents,
		string(f.Frequency), nullInt(f.DayOfMonth), nullString(f.DayOfWeek), nullInt(f.MonthOfYear),
		rule.AutoCreate, rule.IsActive, rule.StartDate.String(), nullDate(rule.EndDate),
		rule.PaymentMethod, rule.Notes, rule.ID,
	)
	if err != nil {
		return fmt.Errorf("update recurring expense: %w", err)
	}
	return requireRow(res)
}

// SetRuleActive writes only is_active, so rules whose stored recurrence no
// longer parses can still be switched on and off.
func (r *SQLiteRepository) SetRuleActive(ctx context.Context, id int64, active bool) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE recurring_expenses SET is_active = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?", active, id)
	if err != nil {
		return fmt.Errorf("set recurring expense active: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) DeleteRule(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM recurring_expenses WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete recurring expense: %w", err)
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}
