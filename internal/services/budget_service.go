package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"budgetmanager/internal/core"
)

// BudgetService manages templates and generates budget-months from them.
type BudgetService struct {
	budgets      BudgetStore
	templates    TemplateStore
	expenses     *ExpenseService
	materializer *Materializer
}

func NewBudgetService(budgets BudgetStore, templates TemplateStore, expenses *ExpenseService, materializer *Materializer) *BudgetService {
	return &BudgetService{
		budgets:      budgets,
		templates:    templates,
		expenses:     expenses,
		materializer: materializer,
	}
}

// Generation is the result of generating one budget-month.
type Generation struct {
	Budget               core.Budget
	DefaultExpenses      int
	Materialization      MaterializeResult
	MaterializationError error
}

// CreateTemplate stores a template for userID. The user's first template
// becomes the default.
func (s *BudgetService) CreateTemplate(ctx context.Context, userID int64, t core.Template) (core.Template, error) {
	t.UserID = userID
	if err := t.Validate(); err != nil {
		return core.Template{}, err
	}

	existing, err := s.templates.ListTemplates(ctx, userID)
	if err != nil {
		return core.Template{}, fmt.Errorf("list templates: %w", err)
	}
	if len(existing) == 0 {
		t.IsDefault = true
	}

	created, err := s.templates.CreateTemplate(ctx, t)
	if err != nil {
		return core.Template{}, fmt.Errorf("create template: %w", err)
	}
	if created.IsDefault && len(existing) > 0 {
		if err := s.templates.SetDefaultTemplate(ctx, userID, created.ID); err != nil {
			return core.Template{}, fmt.Errorf("set default template: %w", err)
		}
	}
	return created, nil
}

func (s *BudgetService) ListTemplates(ctx context.Context, userID int64) ([]core.Template, error) {
	return s.templates.ListTemplates(ctx, userID)
}

// GetTemplate returns a template owned by userID.
func (s *BudgetService) GetTemplate(ctx context.Context, userID, id int64) (core.Template, error) {
	t, err := s.templates.GetTemplate(ctx, id)
	if err != nil {
		return core.Template{}, fmt.Errorf("get template %d: %w", id, err)
	}
	if t.UserID != userID {
		return core.Template{}, ErrForbidden
	}
	return t, nil
}

// SetDefaultTemplate makes templateID the user's only default template.
func (s *BudgetService) SetDefaultTemplate(ctx context.Context, userID, templateID int64) (core.Template, error) {
	t, err := s.templates.GetTemplate(ctx, templateID)
	if err != nil {
		return core.Template{}, fmt.Errorf("get template %d: %w", templateID, err)
	}
	if t.UserID != userID {
		return core.Template{}, ErrForbidden
	}
	if err := s.templates.SetDefaultTemplate(ctx, userID, templateID); err != nil {
		return core.Template{}, fmt.Errorf("set default template: %w", err)
	}
	t.IsDefault = true
	return t, nil
}

// UpdateTemplate replaces the name, revenue and category tree of a template
// owned by userID. Entries that carry an id are edited in place, so rules
// linked to a renamed subcategory follow the new name. Entries without an id
// are created and stored entries left out are deleted. The default flag is
// kept; use SetDefaultTemplate to change it.
func (s *BudgetService) UpdateTemplate(ctx context.Context, userID, id int64, t core.Template) (core.Template, error) {
	current, err := s.GetTemplate(ctx, userID, id)
	if err != nil {
		return core.Template{}, err
	}

	t.ID = id
	t.UserID = userID
	t.IsDefault = current.IsDefault
	if err := t.Validate(); err != nil {
		return core.Template{}, err
	}
	if err := checkTemplateIDs(current, t); err != nil {
		return core.Template{}, err
	}

	updated, err := s.templates.UpdateTemplate(ctx, t)
	if err != nil {
		return core.Template{}, fmt.Errorf("update template %d: %w", id, err)
	}

	slog.InfoContext(ctx, "Template updated",
		"template_id", id,
		"user_id", userID,
		"categories", len(updated.Categories))

	return updated, nil
}

// DeleteTemplate removes a template owned by userID. Budgets generated from
// it keep their tree; rules linked to its subcategories lose their link and
// are skipped by materialization from then on.
func (s *BudgetService) DeleteTemplate(ctx context.Context, userID, id int64) error {
	if _, err := s.GetTemplate(ctx, userID, id); err != nil {
		return err
	}
	if err := s.templates.DeleteTemplate(ctx, id); err != nil {
		return fmt.Errorf("delete template %d: %w", id, err)
	}
	slog.InfoContext(ctx, "Template deleted", "template_id", id, "user_id", userID)
	return nil
}

// checkTemplateIDs rejects ids in next that are not a category of current,
// or not a subcategory of that same category, and ids listed twice.
func checkTemplateIDs(current, next core.Template) error {
	known := make(map[int64]map[int64]bool, len(current.Categories))
	for _, c := range current.Categories {
		subs := make(map[int64]bool, len(c.Subcategories))
		for _, sc := range c.Subcategories {
			subs[sc.ID] = true
		}
		known[c.ID] = subs
	}

	seen := map[int64]bool{}
	for _, c := range next.Categories {
		subs, ok := known[c.ID]
		if c.ID != 0 && (!ok || seen[c.ID]) {
			return fmt.Errorf("%w: category %d", ErrUnknownTemplateID, c.ID)
		}
		seen[c.ID] = true
		for _, sc := range c.Subcategories {
			if sc.ID != 0 && (!subs[sc.ID] || seen[sc.ID]) {
				return fmt.Errorf("%w: subcategory %d", ErrUnknownTemplateID, sc.ID)
			}
			seen[sc.ID] = true
		}
	}
	return nil
}

// GenerateBudget creates the budget for (userID, month) from the user's
// default template, books the template's default spent amounts and then
// materializes the user's recurring expenses into it.
//
// A failure while materializing does not undo the budget; it is reported
// in Generation.MaterializationError.
func (s *BudgetService) GenerateBudget(ctx context.Context, userID int64, month core.Month) (Generation, error) {
	if _, err := s.budgets.FindBudget(ctx, userID, month); err == nil {
		return Generation{}, ErrBudgetExists
	} else if !errors.Is(err, core.ErrNotFound) {
		return Generation{}, fmt.Errorf("find budget: %w", err)
	}

	tpl, err := s.templates.GetDefaultTemplate(ctx, userID)
	if errors.Is(err, core.ErrNotFound) {
		return Generation{}, ErrNoDefaultTemplate
	}
	if err != nil {
		return Generation{}, fmt.Errorf("get default template: %w", err)
	}

	revenue := tpl.Revenue
	if revenue.Cents == 0 {
		if revenue, err = s.budgets.LatestRevenue(ctx, userID); err != nil {
			return Generation{}, fmt.Errorf("latest revenue: %w", err)
		}
	}

	templateID := tpl.ID
	budget, err := s.budgets.CreateBudget(ctx, core.Budget{
		UserID:     userID,
		Month:      month,
		Name:       "Budget " + month.Label(),
		Revenue:    revenue,
		TemplateID: &templateID,
		Categories: budgetTreeFrom(tpl),
	})
	if err != nil {
		return Generation{}, fmt.Errorf("create budget: %w", err)
	}

	gen := Generation{Budget: budget}
	gen.DefaultExpenses = s.bookDefaultSpent(ctx, tpl, budget)

	gen.Materialization, gen.MaterializationError = s.materializer.Materialize(ctx, budget)
	if gen.MaterializationError != nil {
		slog.ErrorContext(ctx, "Recurring expense materialization failed",
			"budget_id", budget.ID, "error", gen.MaterializationError)
	}

	slog.InfoContext(ctx, "Budget generated with recurring expenses",
		"budget_id", budget.ID,
		"month", month.String(),
		"default_expenses", gen.DefaultExpenses,
		"recurring_expenses_created", gen.Materialization.Created())

	return gen, nil
}

// GetBudget returns a budget owned by userID.
func (s *BudgetService) GetBudget(ctx context.Context, userID, id int64) (core.Budget, error) {
	b, err := s.budgets.GetBudget(ctx, id)
	if err != nil {
		return core.Budget{}, fmt.Errorf("get budget %d: %w", id, err)
	}
	if b.UserID != userID {
		return core.Budget{}, ErrForbidden
	}
	return b, nil
}

func (s *BudgetService) ListBudgets(ctx context.Context, userID int64) ([]core.Budget, error) {
	return s.budgets.ListBudgets(ctx, userID)
}

// BudgetExpenses returns the expenses of a budget owned by userID.
func (s *BudgetService) BudgetExpenses(ctx context.Context, userID, id int64) ([]core.Expense, error) {
	if _, err := s.GetBudget(ctx, userID, id); err != nil {
		return nil, err
	}
	return s.expenses.ListExpenses(ctx, id)
}

// AddExpense books a manual expense into a budget owned by userID. The
// subcategory must belong to the budget and the date to its month.
func (s *BudgetService) AddExpense(ctx context.Context, userID, budgetID int64, e core.Expense) (core.Expense, error) {
	b, err := s.GetBudget(ctx, userID, budgetID)
	if err != nil {
		return core.Expense{}, err
	}
	if !b.Categories.HasSubcategory(e.SubcategoryID) {
		return core.Expense{}, fmt.Errorf("%w: %d", ErrSubcatNotInBudget, e.SubcategoryID)
	}
	if !e.Date.IsEmpty() && core.MonthOf(e.Date) != b.Month {
		return core.Expense{}, ErrDateOutsideMonth
	}

	e.BudgetID = budgetID
	if e.ID, err = s.expenses.CreateExpense(ctx, e, SourceManual); err != nil {
		return core.Expense{}, err
	}
	return e, nil
}

// Rematerialize runs recurring materialization again for an existing
// budget. Every run inserts new expenses; callers that need exactly-once
// bookings must not call it twice for the same budget.
func (s *BudgetService) Rematerialize(ctx context.Context, userID, budgetID int64) (MaterializeResult, error) {
	b, err := s.GetBudget(ctx, userID, budgetID)
	if err != nil {
		return MaterializeResult{}, err
	}
	return s.materializer.Materialize(ctx, b)
}

// Summary totals a budget's expenses per category.
func (s *BudgetService) Summary(ctx context.Context, userID, id int64) (core.MonthOverview, error) {
	b, err := s.GetBudget(ctx, userID, id)
	if err != nil {
		return core.MonthOverview{}, err
	}
	expenses, err := s.expenses.ListExpenses(ctx, id)
	if err != nil {
		return core.MonthOverview{}, err
	}
	return core.Summarize(b, expenses), nil
}

// bookDefaultSpent creates one expense dated the 1st for every template
// subcategory with a default spent amount. Failures are logged and skipped.
func (s *BudgetService) bookDefaultSpent(ctx context.Context, tpl core.Template, budget core.Budget) int {
	created := 0
	for ci, tc := range tpl.Categories {
		for si, ts := range tc.Subcategories {
			if ts.DefaultSpent.Cents <= 0 {
				continue
			}
			_, err := s.expenses.CreateExpense(ctx, core.Expense{
				BudgetID:      budget.ID,
				SubcategoryID: budget.Categories[ci].Subcategories[si].ID,
				Date:          budget.Month.Start(),
				Label:         ts.Name,
				Amount:        ts.DefaultSpent,
			}, SourceTemplate)
			if err != nil {
				slog.ErrorContext(ctx, "Failed to book default spent amount",
					"budget_id", budget.ID, "subcategory", ts.Name, "error", err)
				continue
			}
			created++
		}
	}
	return created
}

func budgetTreeFrom(tpl core.Template) core.BudgetTree {
	tree := make(core.BudgetTree, len(tpl.Categories))
	for i, tc := range tpl.Categories {
		cat := core.BudgetCategory{
			Name:          tc.Name,
			Planned:       tc.Planned,
			SortOrder:     tc.SortOrder,
			Subcategories: make([]core.BudgetSubcategory, len(tc.Subcategories)),
		}
		for j, ts := range tc.Subcategories {
			cat.Subcategories[j] = core.BudgetSubcategory{
				Name:      ts.Name,
				Planned:   ts.Planned,
				SortOrder: ts.SortOrder,
			}
		}
		tree[i] = cat
	}
	return tree
}
