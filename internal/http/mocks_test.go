package http

import (
	"context"

	"github.com/stretchr/testify/mock"

	"budgetmanager/internal/core"
	"budgetmanager/internal/services"
)

type MockRecurringService struct {
	mock.Mock
}

func (m *MockRecurringService) List(ctx context.Context, userID int64) ([]core.RecurrenceRule, error) {
	args := m.Called(ctx, userID)
	rules, _ := args.Get(0).([]core.RecurrenceRule)
	return rules, args.Error(1)
}

func (m *MockRecurringService) Get(ctx context.Context, userID, id int64) (core.RecurrenceRule, error) {
	args := m.Called(ctx, userID, id)
	return args.Get(0).(core.RecurrenceRule), args.Error(1)
}

func (m *MockRecurringService) Create(ctx context.Context, userID int64, rule core.RecurrenceRule) (core.RecurrenceRule, error) {
	args := m.Called(ctx, userID, rule)
	return args.Get(0).(core.RecurrenceRule), args.Error(1)
}

func (m *MockRecurringService) Update(ctx context.Context, userID, id int64, upd services.RuleUpdate) (core.RecurrenceRule, error) {
	args := m.Called(ctx, userID, id, upd)
	return args.Get(0).(core.RecurrenceRule), args.Error(1)
}

func (m *MockRecurringService) Delete(ctx context.Context, userID, id int64) error {
	return m.Called(ctx, userID, id).Error(0)
}

func (m *MockRecurringService) ToggleActive(ctx context.Context, userID, id int64) (core.RecurrenceRule, error) {
	args := m.Called(ctx, userID, id)
	return args.Get(0).(core.RecurrenceRule), args.Error(1)
}

type MockBudgetService struct {
	mock.Mock
}

func (m *MockBudgetService) CreateTemplate(ctx context.Context, userID int64, t core.Template) (core.Template, error) {
	args := m.Called(ctx, userID, t)
	return args.Get(0).(core.Template), args.Error(1)
}

func (m *MockBudgetService) ListTemplates(ctx context.Context, userID int64) ([]core.Template, error) {
	args := m.Called(ctx, userID)
	templates, _ := args.Get(0).([]core.Template)
	return templates, args.Error(1)
}

func (m *MockBudgetService) GetTemplate(ctx context.Context, userID, id int64) (core.Template, error) {
	args := m.Called(ctx, userID, id)
	return args.Get(0).(core.Template), args.Error(1)
}

func (m *MockBudgetService) SetDefaultTemplate(ctx context.Context, userID, templateID int64) (core.Template, error) {
	args := m.Called(ctx, userID, templateID)
	return args.Get(0).(core.Template), args.Error(1)
}

func (m *MockBudgetService) UpdateTemplate(ctx context.Context, userID, id int64, t core.Template) (core.Template, error) {
	args := m.Called(ctx, userID, id, t)
	return args.Get(0).(core.Template), args.Error(1)
}

func (m *MockBudgetService) DeleteTemplate(ctx context.Context, userID, id int64) error {
	return m.Called(ctx, userID, id).Error(0)
}

func (m *MockBudgetService) GenerateBudget(ctx context.Context, userID int64, month core.Month) (services.Generation, error) {
	args := m.Called(ctx, userID, month)
	return args.Get(0).(services.Generation), args.Error(1)
}

func (m *MockBudgetService) GetBudget(ctx context.Context, userID, id int64) (core.Budget, error) {
	args := m.Called(ctx, userID, id)
	return args.Get(0).(core.Budget), args.Error(1)
}

func (m *MockBudgetService) ListBudgets(ctx context.Context, userID int64) ([]core.Budget, error) {
	args := m.Called(ctx, userID)
	budgets, _ := args.Get(0).([]core.Budget)
	return budgets, args.Error(1)
}

func (m *MockBudgetService) BudgetExpenses(ctx context.Context, userID, id int64) ([]core.Expense, error) {
	args := m.Called(ctx, userID, id)
	expenses, _ := args.Get(0).([]core.Expense)
	return expenses, args.Error(1)
}

func (m *MockBudgetService) AddExpense(ctx context.Context, userID, budgetID int64, e core.Expense) (core.Expense, error) {
	args := m.Called(ctx, userID, budgetID, e)
	return args.Get(0).(core.Expense), args.Error(1)
}

func (m *MockBudgetService) Rematerialize(ctx context.Context, userID, budgetID int64) (services.MaterializeResult, error) {
	args := m.Called(ctx, userID, budgetID)
	return args.Get(0).(services.MaterializeResult), args.Error(1)
}

func (m *MockBudgetService) Summary(ctx context.Context, userID, id int64) (core.MonthOverview, error) {
	args := m.Called(ctx, userID, id)
	return args.Get(0).(core.MonthOverview), args.Error(1)
}

type MockPinger struct {
	mock.Mock
}

func (m *MockPinger) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}
