package services

import (
	"context"
	"errors"

	"budgetmanager/internal/core"
)

// Expense sources carried on expense-created events.
const (
	SourceRecurring = "recurring"
	SourceTemplate  = "template"
	SourceManual    = "manual"
)

var (
	ErrForbidden         = errors.New("forbidden")
	ErrBudgetExists      = errors.New("a budget already exists for this month")
	ErrNoDefaultTemplate = errors.New("no default template found")
	ErrUnknownSubcat     = errors.New("template subcategory not found")
	ErrSubcatNotInBudget = errors.New("subcategory does not belong to this budget")
	ErrDateOutsideMonth  = errors.New("expense date is outside the budget month")
	ErrUnknownTemplateID = errors.New("category or subcategory does not belong to this template")
)

// Ports for outbound adapters. The SQLite repository implements all stores.
type (
	RuleLister interface {
		// ListAutoCreateRules returns the user's rules that are active and
		// have auto-create enabled, with Target resolved.
		ListAutoCreateRules(ctx context.Context, userID int64) ([]core.RecurrenceRule, error)
	}

	RuleStore interface {
		RuleLister
		ListRules(ctx context.Context, userID int64) ([]core.RecurrenceRule, error)
		GetRule(ctx context.Context, id int64) (core.RecurrenceRule, error)
		CreateRule(ctx context.Context, r core.RecurrenceRule) (int64, error)
		UpdateRule(ctx context.Context, r core.RecurrenceRule) error
		SetRuleActive(ctx context.Context, id int64, active bool) error
		DeleteRule(ctx context.Context, id int64) error
	}

	ExpenseCreator interface {
		CreateExpense(ctx context.Context, e core.Expense, source string) (int64, error)
	}

	ExpenseStore interface {
		InsertExpense(ctx context.Context, e core.Expense) (int64, error)
		ListExpensesByBudget(ctx context.Context, budgetID int64) ([]core.Expense, error)
	}

	EventPublisher interface {
		PublishExpenseCreated(ctx context.Context, expenseID, budgetID int64, source string) error
	}

	TemplateStore interface {
		CreateTemplate(ctx context.Context, t core.Template) (core.Template, error)
		ListTemplates(ctx context.Context, userID int64) ([]core.Template, error)
		GetTemplate(ctx context.Context, id int64) (core.Template, error)
		GetDefaultTemplate(ctx context.Context, userID int64) (core.Template, error)
		SetDefaultTemplate(ctx context.Context, userID, templateID int64) error
		// UpdateTemplate merges t's tree by id and returns the stored result.
		UpdateTemplate(ctx context.Context, t core.Template) (core.Template, error)
		DeleteTemplate(ctx context.Context, id int64) error
	}

	BudgetStore interface {
		FindBudget(ctx context.Context, userID int64, month core.Month) (core.Budget, error)
		LatestRevenue(ctx context.Context, userID int64) (core.Money, error)
		// CreateBudget stores b with its category tree and returns it with
		// ids assigned, categories and subcategories in input order.
		CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error)
		GetBudget(ctx context.Context, id int64) (core.Budget, error)
		ListBudgets(ctx context.Context, userID int64) ([]core.Budget, error)
	}
)
