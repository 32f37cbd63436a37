package http

import (
	"encoding/json"

	"budgetmanager/internal/core"
	"budgetmanager/internal/services"
)

// optional distinguishes an absent JSON key from an explicit null.
type optional[T any] struct {
	Set   bool
	Value *T
}

func (o *optional[T]) UnmarshalJSON(b []byte) error {
	o.Set = true
	if string(b) == "null" {
		o.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

type recurringExpenseRequest struct {
	TemplateSubcategoryID *int64  `json:"templateSubcategoryId" validate:"omitempty,gt=0"`
	Label                 string  `json:"label" validate:"required,max=255"`
	AmountCents           int64   `json:"amountCents" validate:"gt=0"`
	Frequency             string  `json:"frequency" validate:"required,oneof=monthly weekly yearly"`
	DayOfMonth            *int    `json:"dayOfMonth" validate:"omitempty,min=0,max=31"`
	DayOfWeek             *string `json:"dayOfWeek"`
	MonthOfYear           *int    `json:"monthOfYear" validate:"omitempty,min=0,max=12"`
	AutoCreate            *bool   `json:"autoCreate"`
	IsActive              *bool   `json:"isActive"`
	StartDate             string  `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate               *string `json:"endDate" validate:"omitempty,datetime=2006-01-02"`
	PaymentMethod         string  `json:"paymentMethod" validate:"max=100"`
	Notes                 string  `json:"notes" validate:"max=1000"`
}

// toRule builds the rule. autoCreate and isActive default to true.
func (req recurringExpenseRequest) toRule() (core.RecurrenceRule, error) {
	rec, err := core.NewRecurrence(core.RecurrenceFields{
		Frequency:   core.Frequency(req.Frequency),
		DayOfMonth:  req.DayOfMonth,
		DayOfWeek:   req.DayOfWeek,
		MonthOfYear: req.MonthOfYear,
	})
	if err != nil {
		return core.RecurrenceRule{}, err
	}
	start, err := core.ParseDate(req.StartDate)
	if err != nil {
		return core.RecurrenceRule{}, err
	}
	end, err := parseOptionalDate(req.EndDate)
	if err != nil {
		return core.RecurrenceRule{}, err
	}

	return core.RecurrenceRule{
		TemplateSubcategoryID: req.TemplateSubcategoryID,
		Label:                 req.Label,
		Amount:                core.Money{Cents: req.AmountCents},
		Recurrence:            rec,
		AutoCreate:            boolOr(req.AutoCreate, true),
		IsActive:              boolOr(req.IsActive, true),
		StartDate:             start,
		EndDate:               end,
		PaymentMethod:         req.PaymentMethod,
		Notes:                 req.Notes,
	}, nil
}

// recurringExpenseUpdate is a partial update: absent keys keep their value,
// null clears templateSubcategoryId and endDate.
type recurringExpenseUpdate struct {
	TemplateSubcategoryID optional[int64]  `json:"templateSubcategoryId"`
	Label                 *string          `json:"label" validate:"omitempty,max=255"`
	AmountCents           *int64           `json:"amountCents"`
	Frequency             *string          `json:"frequency" validate:"omitempty,oneof=monthly weekly yearly"`
	DayOfMonth            *int             `json:"dayOfMonth" validate:"omitempty,min=0,max=31"`
	DayOfWeek             *string          `json:"dayOfWeek"`
	MonthOfYear           *int             `json:"monthOfYear" validate:"omitempty,min=0,max=12"`
	AutoCreate            *bool            `json:"autoCreate"`
	IsActive              *bool            `json:"isActive"`
	StartDate             *string          `json:"startDate" validate:"omitempty,datetime=2006-01-02"`
	EndDate               optional[string] `json:"endDate"`
	PaymentMethod         *string          `json:"paymentMethod" validate:"omitempty,max=100"`
	Notes                 *string          `json:"notes" validate:"omitempty,max=1000"`
}

func (req recurringExpenseUpdate) touchesRecurrence() bool {
	return req.Frequency != nil || req.DayOfMonth != nil || req.DayOfWeek != nil || req.MonthOfYear != nil
}

// toUpdate converts the request. current is the stored recurrence, overlaid
// with the request's recurrence fields when any of them is present.
func (req recurringExpenseUpdate) toUpdate(current core.Recurrence) (services.RuleUpdate, error) {
	upd := services.RuleUpdate{
		Label:         req.Label,
		AutoCreate:    req.AutoCreate,
		IsActive:      req.IsActive,
		PaymentMethod: req.PaymentMethod,
		Notes:         req.Notes,
	}
	if req.TemplateSubcategoryID.Set {
		upd.TemplateSubcategoryID = &req.TemplateSubcategoryID.Value
	}
	if req.AmountCents != nil {
		upd.Amount = &core.Money{Cents: *req.AmountCents}
	}

	if req.touchesRecurrence() {
		fields := core.FieldsOf(current)
		if req.Frequency != nil {
			fields.Frequency = core.Frequency(*req.Frequency)
		}
		if req.DayOfMonth != nil {
			fields.DayOfMonth = req.DayOfMonth
		}
		if req.DayOfWeek != nil {
			fields.DayOfWeek = req.DayOfWeek
		}
		if req.MonthOfYear != nil {
			fields.MonthOfYear = req.MonthOfYear
		}
		rec, err := core.NewRecurrence(fields)
		if err != nil {
			return services.RuleUpdate{}, err
		}
		upd.Recurrence = rec
	}

	if req.StartDate != nil {
		start, err := core.ParseDate(*req.StartDate)
		if err != nil {
			return services.RuleUpdate{}, err
		}
		upd.StartDate = &start
	}
	if req.EndDate.Set {
		end, err := parseOptionalDate(req.EndDate.Value)
		if err != nil {
			return services.RuleUpdate{}, err
		}
		upd.EndDate = &end
	}
	return upd, nil
}

type recurringExpenseResponse struct {
	ID                    int64   `json:"id"`
	TemplateSubcategoryID *int64  `json:"templateSubcategoryId"`
	Category              string  `json:"category,omitempty"`
	Subcategory           string  `json:"subcategory,omitempty"`
	Label                 string  `json:"label"`
	AmountCents           int64   `json:"amountCents"`
	Frequency             string  `json:"frequency"`
	DayOfMonth            *int    `json:"dayOfMonth"`
	DayOfWeek             *string `json:"dayOfWeek"`
	MonthOfYear           *int    `json:"monthOfYear"`
	AutoCreate            bool    `json:"autoCreate"`
	IsActive              bool    `json:"isActive"`
	StartDate             string  `json:"startDate"`
	EndDate               *string `json:"endDate"`
	PaymentMethod         string  `json:"paymentMethod"`
	Notes                 string  `json:"notes"`
}

func newRecurringExpenseResponse(r core.RecurrenceRule) recurringExpenseResponse {
	fields := core.FieldsOf(r.Recurrence)
	resp := recurringExpenseResponse{
		ID:                    r.ID,
		TemplateSubcategoryID: r.TemplateSubcategoryID,
		Label:                 r.Label,
		AmountCents:           r.Amount.Cents,
		Frequency:             string(r.Frequency()),
		DayOfMonth:            fields.DayOfMonth,
		DayOfWeek:             fields.DayOfWeek,
		MonthOfYear:           fields.MonthOfYear,
		AutoCreate:            r.AutoCreate,
		IsActive:              r.IsActive,
		StartDate:             r.StartDate.String(),
		PaymentMethod:         r.PaymentMethod,
		Notes:                 r.Notes,
	}
	if r.Target != nil {
		resp.Category = r.Target.CategoryName
		resp.Subcategory = r.Target.SubcategoryName
	}
	if r.EndDate != nil && !r.EndDate.IsEmpty() {
		end := r.EndDate.String()
		resp.EndDate = &end
	}
	return resp
}

type templateSubcategoryRequest struct {
	ID                int64  `json:"id" validate:"omitempty,gt=0"`
	Name              string `json:"name" validate:"required,max=255"`
	PlannedCents      int64  `json:"plannedCents" validate:"min=0"`
	DefaultSpentCents int64  `json:"defaultSpentCents" validate:"min=0"`
}

type templateCategoryRequest struct {
	ID            int64                        `json:"id" validate:"omitempty,gt=0"`
	Name          string                       `json:"name" validate:"required,max=255"`
	PlannedCents  int64                        `json:"plannedCents" validate:"min=0"`
	Subcategories []templateSubcategoryRequest `json:"subcategories" validate:"dive"`
}

// templateRequest lists categories and subcategories in display order. On
// update, entries with an id edit the stored entry and entries without one
// are added; ids are ignored on create.
type templateRequest struct {
	Name         string                    `json:"name" validate:"required,max=255"`
	RevenueCents int64                     `json:"revenueCents" validate:"min=0"`
	IsDefault    bool                      `json:"isDefault"`
	Categories   []templateCategoryRequest `json:"categories" validate:"dive"`
}

func (req templateRequest) toTemplate() core.Template {
	t := core.Template{
		Name:       req.Name,
		IsDefault:  req.IsDefault,
		Revenue:    core.Money{Cents: req.RevenueCents},
		Categories: make([]core.TemplateCategory, len(req.Categories)),
	}
	for i, c := range req.Categories {
		cat := core.TemplateCategory{
			ID:            c.ID,
			Name:          c.Name,
			Planned:       core.Money{Cents: c.PlannedCents},
			SortOrder:     i,
			Subcategories: make([]core.TemplateSubcategory, len(c.Subcategories)),
		}
		for j, s := range c.Subcategories {
			cat.Subcategories[j] = core.TemplateSubcategory{
				ID:           s.ID,
				Name:         s.Name,
				Planned:      core.Money{Cents: s.PlannedCents},
				DefaultSpent: core.Money{Cents: s.DefaultSpentCents},
				SortOrder:    j,
			}
		}
		t.Categories[i] = cat
	}
	return t
}

type templateSubcategoryResponse struct {
	ID                int64  `json:"id"`
	Name              string `json:"name"`
	PlannedCents      int64  `json:"plannedCents"`
	DefaultSpentCents int64  `json:"defaultSpentCents"`
}

type templateCategoryResponse struct {
	ID            int64                         `json:"id"`
	Name          string                        `json:"name"`
	PlannedCents  int64                         `json:"plannedCents"`
	Subcategories []templateSubcategoryResponse `json:"subcategories"`
}

type templateResponse struct {
	ID           int64                      `json:"id"`
	Name         string                     `json:"name"`
	IsDefault    bool                       `json:"isDefault"`
	RevenueCents int64                      `json:"revenueCents"`
	Categories   []templateCategoryResponse `json:"categories"`
}

func newTemplateResponse(t core.Template) templateResponse {
	resp := templateResponse{
		ID:           t.ID,
		Name:         t.Name,
		IsDefault:    t.IsDefault,
		RevenueCents: t.Revenue.Cents,
		Categories:   make([]templateCategoryResponse, len(t.Categories)),
	}
	for i, c := range t.Categories {
		cat := templateCategoryResponse{
			ID:            c.ID,
			Name:          c.Name,
			PlannedCents:  c.Planned.Cents,
			Subcategories: make([]templateSubcategoryResponse, len(c.Subcategories)),
		}
		for j, s := range c.Subcategories {
			cat.Subcategories[j] = templateSubcategoryResponse{
				ID:                s.ID,
				Name:              s.Name,
				PlannedCents:      s.Planned.Cents,
				DefaultSpentCents: s.DefaultSpent.Cents,
			}
		}
		resp.Categories[i] = cat
	}
	return resp
}

type generateBudgetRequest struct {
	Month string `json:"month" validate:"required"`
}

type budgetSubcategoryResponse struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	PlannedCents int64  `json:"plannedCents"`
}

type budgetCategoryResponse struct {
	ID            int64                       `json:"id"`
	Name          string                      `json:"name"`
	PlannedCents  int64                       `json:"plannedCents"`
	Subcategories []budgetSubcategoryResponse `json:"subcategories"`
}

type budgetResponse struct {
	ID           int64                    `json:"id"`
	Month        string                   `json:"month"`
	Name         string                   `json:"name"`
	RevenueCents int64                    `json:"revenueCents"`
	TemplateID   *int64                   `json:"templateId"`
	Categories   []budgetCategoryResponse `json:"categories,omitempty"`
}

func newBudgetResponse(b core.Budget) budgetResponse {
	resp := budgetResponse{
		ID:           b.ID,
		Month:        b.Month.String(),
		Name:         b.Name,
		RevenueCents: b.Revenue.Cents,
		TemplateID:   b.TemplateID,
	}
	for _, c := range b.Categories {
		cat := budgetCategoryResponse{
			ID:            c.ID,
			Name:          c.Name,
			PlannedCents:  c.Planned.Cents,
			Subcategories: make([]budgetSubcategoryResponse, len(c.Subcategories)),
		}
		for j, s := range c.Subcategories {
			cat.Subcategories[j] = budgetSubcategoryResponse{ID: s.ID, Name: s.Name, PlannedCents: s.Planned.Cents}
		}
		resp.Categories = append(resp.Categories, cat)
	}
	return resp
}

type outcomeResponse struct {
	RecurringExpenseID int64  `json:"recurringExpenseId"`
	Status             string `json:"status"`
	ExpenseID          int64  `json:"expenseId,omitempty"`
	Date               string `json:"date,omitempty"`
	Reason             string `json:"reason,omitempty"`
}

type materializationResponse struct {
	BudgetID int64             `json:"budgetId"`
	Month    string            `json:"month"`
	Created  int               `json:"created"`
	Outcomes []outcomeResponse `json:"outcomes"`
}

func newMaterializationResponse(res services.MaterializeResult) materializationResponse {
	resp := materializationResponse{
		BudgetID: res.BudgetID,
		Month:    res.Month.String(),
		Created:  res.Created(),
		Outcomes: make([]outcomeResponse, len(res.Outcomes)),
	}
	for i, o := range res.Outcomes {
		resp.Outcomes[i] = outcomeResponse{
			RecurringExpenseID: o.RuleID,
			Status:             string(o.Status),
			ExpenseID:          o.ExpenseID,
			Date:               o.Date.String(),
			Reason:             o.Reason,
		}
	}
	return resp
}

type generationResponse struct {
	Budget               budgetResponse          `json:"budget"`
	DefaultExpenses      int                     `json:"defaultExpenses"`
	Materialization      materializationResponse `json:"materialization"`
	MaterializationError string                  `json:"materializationError,omitempty"`
}

func newGenerationResponse(gen services.Generation) generationResponse {
	resp := generationResponse{
		Budget:          newBudgetResponse(gen.Budget),
		DefaultExpenses: gen.DefaultExpenses,
		Materialization: newMaterializationResponse(gen.Materialization),
	}
	if gen.MaterializationError != nil {
		resp.MaterializationError = "recurring expenses could not be materialized"
	}
	return resp
}

type expenseRequest struct {
	SubcategoryID int64  `json:"subcategoryId" validate:"required,gt=0"`
	Date          string `json:"date" validate:"required,datetime=2006-01-02"`
	Label         string `json:"label" validate:"required,max=255"`
	AmountCents   int64  `json:"amountCents" validate:"gt=0"`
	PaymentMethod string `json:"paymentMethod" validate:"max=100"`
	Notes         string `json:"notes" validate:"max=1000"`
}

func (req expenseRequest) toExpense() (core.Expense, error) {
	date, err := core.ParseDate(req.Date)
	if err != nil {
		return core.Expense{}, err
	}
	return core.Expense{
		SubcategoryID: req.SubcategoryID,
		Date:          date,
		Label:         req.Label,
		Amount:        core.Money{Cents: req.AmountCents},
		PaymentMethod: req.PaymentMethod,
		Notes:         req.Notes,
	}, nil
}

type expenseResponse struct {
	ID            int64  `json:"id"`
	BudgetID      int64  `json:"budgetId"`
	SubcategoryID int64  `json:"subcategoryId"`
	Date          string `json:"date"`
	Label         string `json:"label"`
	AmountCents   int64  `json:"amountCents"`
	PaymentMethod string `json:"paymentMethod"`
	Notes         string `json:"notes"`
}

func newExpenseResponse(e core.Expense) expenseResponse {
	return expenseResponse{
		ID:            e.ID,
		BudgetID:      e.BudgetID,
		SubcategoryID: e.SubcategoryID,
		Date:          e.Date.String(),
		Label:         e.Label,
		AmountCents:   e.Amount.Cents,
		PaymentMethod: e.PaymentMethod,
		Notes:         e.Notes,
	}
}

type categoryAmountResponse struct {
	Name         string `json:"name"`
	PlannedCents int64  `json:"plannedCents"`
	SpentCents   int64  `json:"spentCents"`
}

type summaryResponse struct {
	Month          string                   `json:"month"`
	RevenueCents   int64                    `json:"revenueCents"`
	PlannedCents   int64                    `json:"plannedCents"`
	SpentCents     int64                    `json:"spentCents"`
	RemainingCents int64                    `json:"remainingCents"`
	ByCategory     []categoryAmountResponse `json:"byCategory"`
}

func newSummaryResponse(o core.MonthOverview) summaryResponse {
	resp := summaryResponse{
		Month:          o.Month.String(),
		RevenueCents:   o.Revenue.Cents,
		PlannedCents:   o.Planned.Cents,
		SpentCents:     o.Spent.Cents,
		RemainingCents: o.Revenue.Cents - o.Spent.Cents,
		ByCategory:     make([]categoryAmountResponse, len(o.ByCategory)),
	}
	for i, c := range o.ByCategory {
		resp.ByCategory[i] = categoryAmountResponse{Name: c.Name, PlannedCents: c.Planned.Cents, SpentCents: c.Spent.Cents}
	}
	return resp
}

func parseOptionalDate(s *string) (*core.Date, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	d, err := core.ParseDate(*s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func boolOr(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}

func mapSlice[T, R any](in []T, f func(T) R) []R {
	out := make([]R, len(in))
	for i, v := range in {
		out[i] = f(v)
	}
	return out
}
