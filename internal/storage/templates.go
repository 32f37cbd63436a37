package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"budgetmanager/internal/core"
)

// CreateTemplate stores t with its category tree in one transaction.
func (r *SQLiteRepository) CreateTemplate(ctx context.Context, t core.Template) (core.Template, error) {
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"INSERT INTO budget_templates (user_id, name, is_default, revenue_cents) VALUES (?, ?, ?, ?)",
			t.UserID, t.Name, t.IsDefault, t.Revenue.Cents)
		if err != nil {
			return fmt.Errorf("insert template: %w", err)
		}
		if t.ID, err = res.LastInsertId(); err != nil {
			return err
		}

		for i := range t.Categories {
			c := &t.Categories[i]
			if err := insertTemplateCategory(ctx, tx, t.ID, c); err != nil {
				return err
			}
			for j := range c.Subcategories {
				if err := insertTemplateSubcategory(ctx, tx, c.ID, &c.Subcategories[j]); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return core.Template{}, fmt.Errorf("create template: %w", err)
	}
	return t, nil
}

// UpdateTemplate writes t's name, revenue and tree over the stored template.
// Categories and subcategories with an id are updated in place, those
// without one are inserted, and stored ones missing from t are deleted.
// Recurring rules linked to a deleted subcategory lose their link.
func (r *SQLiteRepository) UpdateTemplate(ctx context.Context, t core.Template) (core.Template, error) {
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"UPDATE budget_templates SET name = ?, revenue_cents = ? WHERE id = ?",
			t.Name, t.Revenue.Cents, t.ID)
		if err != nil {
			return fmt.Errorf("update template: %w", err)
		}
		if err := requireRow(res); err != nil {
			return err
		}

		keptCategories := make([]any, 0, len(t.Categories))
		for i := range t.Categories {
			c := &t.Categories[i]
			if c.ID == 0 {
				err = insertTemplateCategory(ctx, tx, t.ID, c)
			} else {
				err = updateRow(ctx, tx,
					"UPDATE template_categories SET name = ?, planned_cents = ?, sort_order = ? WHERE id = ? AND template_id = ?",
					c.Name, c.Planned.Cents, c.SortOrder, c.ID, t.ID)
			}
			if err != nil {
				return fmt.Errorf("save template category %q: %w", c.Name, err)
			}
			keptCategories = append(keptCategories, c.ID)

			keptSubcategories := make([]any, 0, len(c.Subcategories))
			for j := range c.Subcategories {
				sc := &c.Subcategories[j]
				if sc.ID == 0 {
					err = insertTemplateSubcategory(ctx, tx, c.ID, sc)
				} else {
					err = updateRow(ctx, tx, `
						UPDATE template_subcategories
						SET name = ?, planned_cents = ?, default_spent_cents = ?, sort_order = ?
						WHERE id = ? AND category_id = ?`,
						sc.Name, sc.Planned.Cents, sc.DefaultSpent.Cents, sc.SortOrder, sc.ID, c.ID)
				}
				if err != nil {
					return fmt.Errorf("save template subcategory %q: %w", sc.Name, err)
				}
				keptSubcategories = append(keptSubcategories, sc.ID)
			}
			if err := deleteMissing(ctx, tx, "template_subcategories", "category_id", c.ID, keptSubcategories); err != nil {
				return err
			}
		}
		return deleteMissing(ctx, tx, "template_categories", "template_id", t.ID, keptCategories)
	})
	if err != nil {
		return core.Template{}, fmt.Errorf("update template %d: %w", t.ID, err)
	}
	return r.GetTemplate(ctx, t.ID)
}

// DeleteTemplate removes a template and its tree. Budgets generated from it
// keep their own copy.
func (r *SQLiteRepository) DeleteTemplate(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM budget_templates WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	return requireRow(res)
}

func insertTemplateCategory(ctx context.Context, q querier, templateID int64, c *core.TemplateCategory) error {
	res, err := q.ExecContext(ctx,
		"INSERT INTO template_categories (template_id, name, planned_cents, sort_order) VALUES (?, ?, ?, ?)",
		templateID, c.Name, c.Planned.Cents, c.SortOrder)
	if err != nil {
		return fmt.Errorf("insert template category %q: %w", c.Name, err)
	}
	c.ID, err = res.LastInsertId()
	return err
}

func insertTemplateSubcategory(ctx context.Context, q querier, categoryID int64, s *core.TemplateSubcategory) error {
	res, err := q.ExecContext(ctx, `
		INSERT INTO template_subcategories (category_id, name, planned_cents, default_spent_cents, sort_order)
		VALUES (?, ?, ?, ?, ?)`,
		categoryID, s.Name, s.Planned.Cents, s.DefaultSpent.Cents, s.SortOrder)
	if err != nil {
		return fmt.Errorf("insert template subcategory %q: %w", s.Name, err)
	}
	s.ID, err = res.LastInsertId()
	return err
}

func updateRow(ctx context.Context, q querier, query string, args ...any) error {
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// deleteMissing deletes the rows of table under parentID whose id is not in keep.
func deleteMissing(ctx context.Context, q querier, table, parentColumn string, parentID int64, keep []any) error {
	query := "DELETE FROM " + table + " WHERE " + parentColumn + " = ?"
	args := []any{parentID}
	if len(keep) > 0 {
		query += " AND id NOT IN (?" + strings.Repeat(", ?", len(keep)-1) + ")"
		args = append(args, keep...)
	}
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	return nil
}

func (r *SQLiteRepository) ListTemplates(ctx context.Context, userID int64) ([]core.Template, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, user_id, name, is_default, revenue_cents FROM budget_templates WHERE user_id = ? ORDER BY id", userID)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}

	var templates []core.Template
	for rows.Next() {
		var t core.Template
		if err := rows.Scan(&t.ID, &t.UserID, &t.Name, &t.IsDefault, &t.Revenue.Cents); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan template: %w", err)
		}
		templates = append(templates, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}

	for i := range templates {
		if templates[i].Categories, err = r.templateTree(ctx, templates[i].ID); err != nil {
			return nil, err
		}
	}
	return templates, nil
}

func (r *SQLiteRepository) GetTemplate(ctx context.Context, id int64) (core.Template, error) {
	return r.getTemplate(ctx, "id = ?", id)
}

func (r *SQLiteRepository) GetDefaultTemplate(ctx context.Context, userID int64) (core.Template, error) {
	return r.getTemplate(ctx, "user_id = ? AND is_default = 1", userID)
}

func (r *SQLiteRepository) getTemplate(ctx context.Context, where string, arg any) (core.Template, error) {
	var t core.Template
	err := r.db.QueryRowContext(ctx,
		"SELECT id, user_id, name, is_default, revenue_cents FROM budget_templates WHERE "+where+" ORDER BY id LIMIT 1", arg).
		Scan(&t.ID, &t.UserID, &t.Name, &t.IsDefault, &t.Revenue.Cents)
	if err != nil {
		return core.Template{}, notFound(err)
	}
	if t.Categories, err = r.templateTree(ctx, t.ID); err != nil {
		return core.Template{}, err
	}
	return t, nil
}

// SetDefaultTemplate clears every other default of userID.
func (r *SQLiteRepository) SetDefaultTemplate(ctx context.Context, userID, templateID int64) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE budget_templates SET is_default = (id = ?) WHERE user_id = ?", templateID, userID)
	if err != nil {
		return fmt.Errorf("set default template: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) templateTree(ctx context.Context, templateID int64) ([]core.TemplateCategory, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.id, c.name, c.planned_cents, c.sort_order,
		       s.id, s.name, s.planned_cents, s.default_spent_cents, s.sort_order
		FROM template_categories c
		LEFT JOIN template_subcategories s ON s.category_id = c.id
		WHERE c.template_id = ?
		ORDER BY c.sort_order, c.id, s.sort_order, s.id`, templateID)
	if err != nil {
		return nil, fmt.Errorf("get template tree: %w", err)
	}
	defer rows.Close()

	var categories []core.TemplateCategory
	for rows.Next() {
		var (
			c                            core.TemplateCategory
			subID                        sql.NullInt64
			subName                      sql.NullString
			subPlanned, subSpent, subOrd sql.NullInt64
		)
		if err := rows.Scan(&c.ID, &c.Name, &c.Planned.Cents, &c.SortOrder,
			&subID, &subName, &subPlanned, &subSpent, &subOrd); err != nil {
			return nil, fmt.Errorf("scan template tree: %w", err)
		}
		if n := len(categories); n == 0 || categories[n-1].ID != c.ID {
			categories = append(categories, c)
		}
		if subID.Valid {
			last := &categories[len(categories)-1]
			last.Subcategories = append(last.Subcategories, core.TemplateSubcategory{
				ID:           subID.Int64,
				Name:         subName.String,
				Planned:      core.Money{Cents: subPlanned.Int64},
				DefaultSpent: core.Money{Cents: subSpent.Int64},
				SortOrder:    int(subOrd.Int64),
			})
		}
	}
	return categories, rows.Err()
}
