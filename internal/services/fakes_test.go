package services

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/stretchr/testify/mock"

	"budgetmanager/internal/core"
)

// MockRuleLister implements RuleLister.
type MockRuleLister struct {
	mock.Mock
}

func (m *MockRuleLister) ListAutoCreateRules(ctx context.Context, userID int64) ([]core.RecurrenceRule, error) {
	args := m.Called(ctx, userID)
	if res := args.Get(0); res != nil {
		return res.([]core.RecurrenceRule), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockExpenseCreator implements ExpenseCreator.
type MockExpenseCreator struct {
	mock.Mock
}

func (m *MockExpenseCreator) CreateExpense(ctx context.Context, e core.Expense, source string) (int64, error) {
	args := m.Called(ctx, e, source)
	return args.Get(0).(int64), args.Error(1)
}

// MockPublisher implements EventPublisher.
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishExpenseCreated(ctx context.Context, expenseID, budgetID int64, source string) error {
	return m.Called(ctx, expenseID, budgetID, source).Error(0)
}

// memStore is an in-memory implementation of every store port.
type memStore struct {
	mu        sync.Mutex
	nextID    int64
	rules     map[int64]core.RecurrenceRule
	expenses  []core.Expense
	templates map[int64]core.Template
	budgets   map[int64]core.Budget
	insertErr error
}

func newMemStore() *memStore {
	return &memStore{
		rules:     map[int64]core.RecurrenceRule{},
		templates: map[int64]core.Template{},
		budgets:   map[int64]core.Budget{},
	}
}

func (s *memStore) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *memStore) ListAutoCreateRules(_ context.Context, userID int64) ([]core.RecurrenceRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.RecurrenceRule
	for _, r := range s.sortedRules() {
		if r.UserID == userID && r.IsActive && r.AutoCreate {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *memStore) ListRules(_ context.Context, userID int64) ([]core.RecurrenceRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.RecurrenceRule
	for _, r := range s.sortedRules() {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out, nil
}

func (s *memStore) sortedRules() []core.RecurrenceRule {
	out := make([]core.RecurrenceRule, 0, len(s.rules))
	for _, r := range s.rules {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *memStore) GetRule(_ context.Context, id int64) (core.RecurrenceRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rules[id]
	if !ok {
		return core.RecurrenceRule{}, core.ErrNotFound
	}
	return r, nil
}

func (s *memStore) CreateRule(_ context.Context, r core.RecurrenceRule) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.ID = s.id()
	s.rules[r.ID] = r
	return r.ID, nil
}

func (s *memStore) UpdateRule(_ context.Context, r core.RecurrenceRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rules[r.ID]; !ok {
		return core.ErrNotFound
	}
	s.rules[r.ID] = r
	return nil
}

func (s *memStore) SetRuleActive(_ context.Context, id int64, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rules[id]
	if !ok {
		return core.ErrNotFound
	}
	r.IsActive = active
	s.rules[id] = r
	return nil
}

func (s *memStore) DeleteRule(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rules, id)
	return nil
}

func (s *memStore) InsertExpense(_ context.Context, e core.Expense) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return 0, s.insertErr
	}
	e.ID = s.id()
	s.expenses = append(s.expenses, e)
	return e.ID, nil
}

func (s *memStore) ListExpensesByBudget(_ context.Context, budgetID int64) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Expense
	for _, e := range s.expenses {
		if e.BudgetID == budgetID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *memStore) CreateTemplate(_ context.Context, t core.Template) (core.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.ID = s.id()
	for i := range t.Categories {
		t.Categories[i].ID = s.id()
		for j := range t.Categories[i].Subcategories {
			t.Categories[i].Subcategories[j].ID = s.id()
		}
	}
	s.templates[t.ID] = t
	return t, nil
}

func (s *memStore) ListTemplates(_ context.Context, userID int64) ([]core.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Template
	for _, t := range s.templates {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) GetTemplate(_ context.Context, id int64) (core.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.templates[id]
	if !ok {
		return core.Template{}, core.ErrNotFound
	}
	return t, nil
}

func (s *memStore) GetDefaultTemplate(_ context.Context, userID int64) (core.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.templates {
		if t.UserID == userID && t.IsDefault {
			return t, nil
		}
	}
	return core.Template{}, core.ErrNotFound
}

func (s *memStore) SetDefaultTemplate(_ context.Context, userID, templateID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.templates {
		if t.UserID == userID {
			t.IsDefault = id == templateID
			s.templates[id] = t
		}
	}
	return nil
}

func (s *memStore) UpdateTemplate(_ context.Context, t core.Template) (core.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.templates[t.ID]; !ok {
		return core.Template{}, core.ErrNotFound
	}
	for i := range t.Categories {
		if t.Categories[i].ID == 0 {
			t.Categories[i].ID = s.id()
		}
		for j := range t.Categories[i].Subcategories {
			if t.Categories[i].Subcategories[j].ID == 0 {
				t.Categories[i].Subcategories[j].ID = s.id()
			}
		}
	}
	s.templates[t.ID] = t
	return t, nil
}

func (s *memStore) DeleteTemplate(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.templates[id]; !ok {
		return core.ErrNotFound
	}
	delete(s.templates, id)
	return nil
}

func (s *memStore) FindBudget(_ context.Context, userID int64, month core.Month) (core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.budgets {
		if b.UserID == userID && b.Month == month {
			return b, nil
		}
	}
	return core.Budget{}, core.ErrNotFound
}

func (s *memStore) LatestRevenue(_ context.Context, userID int64) (core.Money, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest core.Budget
	for _, b := range s.budgets {
		if b.UserID != userID || b.Revenue.Cents == 0 {
			continue
		}
		if latest.Month.IsZero() || b.Month.Start().After(latest.Month.Start().Time) {
			latest = b
		}
	}
	return latest.Revenue, nil
}

func (s *memStore) CreateBudget(_ context.Context, b core.Budget) (core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b.ID = s.id()
	for i := range b.Categories {
		b.Categories[i].ID = s.id()
		for j := range b.Categories[i].Subcategories {
			b.Categories[i].Subcategories[j].ID = s.id()
		}
	}
	s.budgets[b.ID] = b
	return b, nil
}

func (s *memStore) GetBudget(_ context.Context, id int64) (core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.budgets[id]
	if !ok {
		return core.Budget{}, core.ErrNotFound
	}
	return b, nil
}

func (s *memStore) ListBudgets(_ context.Context, userID int64) ([]core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Budget
	for _, b := range s.budgets {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	return out, nil
}

var errBoom = errors.New("boom")
