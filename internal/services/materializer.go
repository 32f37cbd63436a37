package services

import (
	"context"
	"fmt"
	"log/slog"

	"budgetmanager/internal/core"
)

// OutcomeStatus is what materialization did with one recurring rule.
type OutcomeStatus string

const (
	OutcomeCreated OutcomeStatus = "created"
	OutcomeSkipped OutcomeStatus = "skipped"
	OutcomeFailed  OutcomeStatus = "failed"
)

// Skip and failure reasons reported in RuleOutcome.Reason.
const (
	ReasonNoOccurrence   = "no occurrence this month"
	ReasonNoTarget       = "no linked template subcategory"
	ReasonUnmatched      = "no matching budget subcategory"
	ReasonInsertFailed   = "expense insert failed"
	recurringNoteSuffix  = " (récurrent)"
	defaultRecurringNote = "Dépense récurrente"
)

// RuleOutcome records the result of materializing one rule.
type RuleOutcome struct {
	RuleID    int64
	Status    OutcomeStatus
	ExpenseID int64     // set when Status is OutcomeCreated
	Date      core.Date // booking date, set when an occurrence was found
	Reason    string
}

// MaterializeResult lists one outcome per rule loaded for the budget.
type MaterializeResult struct {
	BudgetID int64
	Month    core.Month
	Outcomes []RuleOutcome
}

// Created returns the number of expenses created.
func (r MaterializeResult) Created() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == OutcomeCreated {
			n++
		}
	}
	return n
}

// Materializer turns a user's recurring rules into expenses of one budget-month.
type Materializer struct {
	rules    RuleLister
	expenses ExpenseCreator
}

// NewMaterializer creates a new recurring expense materializer
func NewMaterializer(rules RuleLister, expenses ExpenseCreator) *Materializer {
	return &Materializer{
		rules:    rules,
		expenses: expenses,
	}
}

// Materialize creates at most one expense per active auto-create rule of
// budget.UserID whose occurrence falls in budget.Month. Rules that cannot be
// placed are skipped, failed inserts are recorded and the loop continues.
// Only a failure to load the rules is returned as an error.
//
// Materialize is not idempotent: calling it twice for the same budget
// creates the expenses twice.
func (m *Materializer) Materialize(ctx context.Context, budget core.Budget) (MaterializeResult, error) {
	if m.rules == nil || m.expenses == nil {
		return MaterializeResult{}, fmt.Errorf("materializer not properly initialized")
	}

	result := MaterializeResult{BudgetID: budget.ID, Month: budget.Month}

	rules, err := m.rules.ListAutoCreateRules(ctx, budget.UserID)
	if err != nil {
		return result, fmt.Errorf("failed to list recurring expenses: %w", err)
	}

	slog.InfoContext(ctx, "Materializing recurring expenses",
		"budget_id", budget.ID,
		"user_id", budget.UserID,
		"month", budget.Month.String(),
		"total_rules", len(rules))

	result.Outcomes = make([]RuleOutcome, 0, len(rules))
	for _, rule := range rules {
		result.Outcomes = append(result.Outcomes, m.materializeRule(ctx, budget, rule))
	}

	slog.InfoContext(ctx, "Recurring expense materialization complete",
		"budget_id", budget.ID,
		"created", result.Created(),
		"total_checked", len(rules))

	return result, nil
}

func (m *Materializer) materializeRule(ctx context.Context, budget core.Budget, rule core.RecurrenceRule) RuleOutcome {
	outcome := RuleOutcome{RuleID: rule.ID, Status: OutcomeSkipped}

	date, ok := Occurrence(rule, budget.Month)
	if !ok {
		outcome.Reason = ReasonNoOccurrence
		return outcome
	}
	outcome.Date = date

	if rule.Target == nil {
		slog.WarnContext(ctx, "RecurringExpense: no linked subcategory",
			"recurring_expense_id", rule.ID,
			"budget_id", budget.ID)
		outcome.Reason = ReasonNoTarget
		return outcome
	}

	subcategoryID, ok := FindSubcategoryID(budget.Categories, rule.Target.SubcategoryName, rule.Target.CategoryName)
	if !ok {
		slog.WarnContext(ctx, "RecurringExpense: could not find matching subcategory",
			"recurring_expense_id", rule.ID,
			"budget_id", budget.ID,
			"template_subcategory_id", derefID(rule.TemplateSubcategoryID),
			"category", rule.Target.CategoryName,
			"subcategory", rule.Target.SubcategoryName)
		outcome.Reason = ReasonUnmatched
		return outcome
	}

	expense := core.Expense{
		BudgetID:      budget.ID,
		SubcategoryID: subcategoryID,
		Date:          date,
		Label:         rule.Label,
		Amount:        rule.Amount,
		PaymentMethod: rule.PaymentMethod,
		Notes:         recurringNotes(rule.Notes),
	}

	id, err := m.expenses.CreateExpense(ctx, expense, SourceRecurring)
	if err != nil {
		slog.ErrorContext(ctx, "RecurringExpense: failed to create expense",
			"recurring_expense_id", rule.ID,
			"budget_id", budget.ID,
			"error", err)
		outcome.Status = OutcomeFailed
		outcome.Reason = ReasonInsertFailed
		return outcome
	}

	slog.InfoContext(ctx, "RecurringExpense: created expense",
		"recurring_expense_id", rule.ID,
		"budget_id", budget.ID,
		"expense_id", id,
		"date", date.String(),
		"amount_cents", rule.Amount.Cents)

	outcome.Status = OutcomeCreated
	outcome.ExpenseID = id
	return outcome
}

func recurringNotes(notes string) string {
	if notes == "" {
		return defaultRecurringNote
	}
	return notes + recurringNoteSuffix
}

func derefID(id *int64) int64 {
	if id == nil {
		return 0
	}
	return *id
}
