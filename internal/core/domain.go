package core

import (
	"errors"
	"strings"
)

type (
	Money struct {
		Cents int64
	}

	// SubcategoryRef names a template subcategory by category and
	// subcategory name. It is a matching key only: budgets are copies of
	// templates and share no ids with them.
	SubcategoryRef struct {
		CategoryName    string
		SubcategoryName string
	}

	RecurrenceRule struct {
		ID                    int64
		UserID                int64
		TemplateSubcategoryID *int64
		Target                *SubcategoryRef
		Label                 string
		Amount                Money
		Recurrence            Recurrence
		AutoCreate            bool
		IsActive              bool
		StartDate             Date
		EndDate               *Date // inclusive, nil means open-ended
		PaymentMethod         string
		Notes                 string
	}

	Expense struct {
		ID            int64
		BudgetID      int64
		SubcategoryID int64
		Date          Date
		Label         string
		Amount        Money
		PaymentMethod string
		Notes         string
	}

	BudgetSubcategory struct {
		ID        int64
		Name      string
		Planned   Money
		SortOrder int
	}

	BudgetCategory struct {
		ID            int64
		Name          string
		Planned       Money
		SortOrder     int
		Subcategories []BudgetSubcategory
	}

	// BudgetTree is a budget's categories in display order.
	BudgetTree []BudgetCategory

	Budget struct {
		ID         int64
		UserID     int64
		Month      Month
		Name       string
		Revenue    Money // zero means unknown
		TemplateID *int64
		Categories BudgetTree
	}

	TemplateSubcategory struct {
		ID           int64
		Name         string
		Planned      Money
		DefaultSpent Money
		SortOrder    int
	}

	TemplateCategory struct {
		ID            int64
		Name          string
		Planned       Money
		SortOrder     int
		Subcategories []TemplateSubcategory
	}

	Template struct {
		ID         int64
		UserID     int64
		Name       string
		IsDefault  bool
		Revenue    Money
		Categories []TemplateCategory
	}
)

var (
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrEmptyLabel        = errors.New("empty label")
	ErrLabelTooLong      = errors.New("label too long (max 255 characters)")
	ErrMissingStartDate  = errors.New("start date is required")
	ErrEndBeforeStart    = errors.New("end date must be on or after start date")
	ErrMissingRecurrence = errors.New("recurrence is required")
	ErrPaymentMethodLong = errors.New("payment method too long (max 100 characters)")
	ErrEmptyName         = errors.New("empty name")
	ErrMissingSubcat     = errors.New("subcategory is required")

	// ErrNotFound is returned by stores when a record does not exist.
	ErrNotFound = errors.New("not found")
)

const (
	maxLabelLen         = 255
	maxPaymentMethodLen = 100
)

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (r RecurrenceRule) Frequency() Frequency {
	if r.Recurrence == nil {
		return ""
	}
	return r.Recurrence.Frequency()
}

func (r RecurrenceRule) Validate() error {
	if err := validateLabel(r.Label); err != nil {
		return err
	}
	if err := r.Amount.Validate(); err != nil {
		return err
	}
	if r.Recurrence == nil {
		return ErrMissingRecurrence
	}
	if r.StartDate.IsZero() {
		return ErrMissingStartDate
	}
	if r.EndDate != nil && !r.EndDate.IsZero() && r.EndDate.Before(r.StartDate.Time) {
		return ErrEndBeforeStart
	}
	if len(r.PaymentMethod) > maxPaymentMethodLen {
		return ErrPaymentMethodLong
	}
	return nil
}

// InWindow reports whether d lies within [StartDate, EndDate], EndDate
// being unbounded when nil.
func (r RecurrenceRule) InWindow(d Date) bool {
	if d.Before(r.StartDate.Time) {
		return false
	}
	if r.EndDate != nil && !r.EndDate.IsZero() && d.After(r.EndDate.Time) {
		return false
	}
	return true
}

func (e Expense) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if err := validateLabel(e.Label); err != nil {
		return err
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if e.SubcategoryID == 0 {
		return ErrMissingSubcat
	}
	return nil
}

func (t Template) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return ErrEmptyName
	}
	for _, c := range t.Categories {
		if strings.TrimSpace(c.Name) == "" {
			return ErrEmptyName
		}
		for _, s := range c.Subcategories {
			if strings.TrimSpace(s.Name) == "" {
				return ErrEmptyName
			}
		}
	}
	return nil
}

// HasSubcategory reports whether id is a subcategory of the tree.
func (t BudgetTree) HasSubcategory(id int64) bool {
	for _, c := range t {
		for _, s := range c.Subcategories {
			if s.ID == id {
				return true
			}
		}
	}
	return false
}

// FindSubcategory returns the template subcategory with the given id and
// the category containing it.
func (t Template) FindSubcategory(id int64) (TemplateCategory, TemplateSubcategory, bool) {
	for _, c := range t.Categories {
		for _, s := range c.Subcategories {
			if s.ID == id {
				return c, s, true
			}
		}
	}
	return TemplateCategory{}, TemplateSubcategory{}, false
}

func validateLabel(label string) error {
	if len(strings.TrimSpace(label)) == 0 {
		return ErrEmptyLabel
	}
	if len(label) > maxLabelLen {
		return ErrLabelTooLong
	}
	return nil
}
