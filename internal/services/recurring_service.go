package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"budgetmanager/internal/core"
)

// RecurringService manages a user's recurring expense rules. Every call
// takes the acting user and refuses to touch rules owned by someone else.
type RecurringService struct {
	rules     RuleStore
	templates TemplateStore
}

func NewRecurringService(rules RuleStore, templates TemplateStore) *RecurringService {
	return &RecurringService{
		rules:     rules,
		templates: templates,
	}
}

// RuleUpdate carries the fields of a partial update. Nil fields keep the
// stored value. Recurrence, when set, replaces the whole variant.
type RuleUpdate struct {
	TemplateSubcategoryID **int64
	Label                 *string
	Amount                *core.Money
	Recurrence            core.Recurrence
	AutoCreate            *bool
	IsActive              *bool
	StartDate             *core.Date
	EndDate               **core.Date
	PaymentMethod         *string
	Notes                 *string
}

// List returns the user's rules ordered by label.
func (s *RecurringService) List(ctx context.Context, userID int64) ([]core.RecurrenceRule, error) {
	rules, err := s.rules.ListRules(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list recurring expenses: %w", err)
	}
	return rules, nil
}

// Get returns one rule owned by userID.
func (s *RecurringService) Get(ctx context.Context, userID, id int64) (core.RecurrenceRule, error) {
	rule, err := s.rules.GetRule(ctx, id)
	if err != nil {
		return core.RecurrenceRule{}, fmt.Errorf("get recurring expense %d: %w", id, err)
	}
	if rule.UserID != userID {
		return core.RecurrenceRule{}, ErrForbidden
	}
	return rule, nil
}

// Create validates and stores a new rule for userID.
func (s *RecurringService) Create(ctx context.Context, userID int64, rule core.RecurrenceRule) (core.RecurrenceRule, error) {
	rule.UserID = userID
	if err := rule.Validate(); err != nil {
		return core.RecurrenceRule{}, err
	}
	if err := s.resolveTarget(ctx, userID, &rule); err != nil {
		return core.RecurrenceRule{}, err
	}

	id, err := s.rules.CreateRule(ctx, rule)
	if err != nil {
		return core.RecurrenceRule{}, fmt.Errorf("create recurring expense: %w", err)
	}
	rule.ID = id

	slog.InfoContext(ctx, "Recurring expense created",
		"recurring_expense_id", id,
		"user_id", userID,
		"frequency", rule.Frequency(),
		"amount_cents", rule.Amount.Cents)

	return rule, nil
}

// Update merges upd into the stored rule and re-validates the result.
func (s *RecurringService) Update(ctx context.Context, userID, id int64, upd RuleUpdate) (core.RecurrenceRule, error) {
	rule, err := s.Get(ctx, userID, id)
	if err != nil {
		return core.RecurrenceRule{}, err
	}

	if upd.TemplateSubcategoryID != nil {
		rule.TemplateSubcategoryID = *upd.TemplateSubcategoryID
		rule.Target = nil
	}
	if upd.Label != nil {
		rule.Label = *upd.Label
	}
	if upd.Amount != nil {
		rule.Amount = *upd.Amount
	}
	if upd.Recurrence != nil {
		rule.Recurrence = upd.Recurrence
	}
	if upd.AutoCreate != nil {
		rule.AutoCreate = *upd.AutoCreate
	}
	if upd.IsActive != nil {
		rule.IsActive = *upd.IsActive
	}
	if upd.StartDate != nil {
		rule.StartDate = *upd.StartDate
	}
	if upd.EndDate != nil {
		rule.EndDate = *upd.EndDate
	}
	if upd.PaymentMethod != nil {
		rule.PaymentMethod = *upd.PaymentMethod
	}
	if upd.Notes != nil {
		rule.Notes = *upd.Notes
	}

	if err := rule.Validate(); err != nil {
		return core.RecurrenceRule{}, err
	}
	if err := s.resolveTarget(ctx, userID, &rule); err != nil {
		return core.RecurrenceRule{}, err
	}

	if err := s.rules.UpdateRule(ctx, rule); err != nil {
		return core.RecurrenceRule{}, fmt.Errorf("update recurring expense %d: %w", id, err)
	}
	return rule, nil
}

// Delete removes a rule owned by userID.
func (s *RecurringService) Delete(ctx context.Context, userID, id int64) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	if err := s.rules.DeleteRule(ctx, id); err != nil {
		return fmt.Errorf("delete recurring expense %d: %w", id, err)
	}
	slog.InfoContext(ctx, "Recurring expense deleted", "recurring_expense_id", id, "user_id", userID)
	return nil
}

// ToggleActive flips IsActive and returns the updated rule. Only the flag is
// written, so a rule whose stored recurrence is malformed can still be
// toggled.
func (s *RecurringService) ToggleActive(ctx context.Context, userID, id int64) (core.RecurrenceRule, error) {
	rule, err := s.Get(ctx, userID, id)
	if err != nil {
		return core.RecurrenceRule{}, err
	}
	rule.IsActive = !rule.IsActive
	if err := s.rules.SetRuleActive(ctx, id, rule.IsActive); err != nil {
		return core.RecurrenceRule{}, fmt.Errorf("toggle recurring expense %d: %w", id, err)
	}
	return rule, nil
}

// resolveTarget checks that the linked template subcategory belongs to one
// of the user's templates and fills in its names.
func (s *RecurringService) resolveTarget(ctx context.Context, userID int64, rule *core.RecurrenceRule) error {
	if rule.TemplateSubcategoryID == nil {
		rule.Target = nil
		return nil
	}

	templates, err := s.templates.ListTemplates(ctx, userID)
	if err != nil {
		return fmt.Errorf("list templates: %w", err)
	}
	for _, t := range templates {
		if cat, sub, ok := t.FindSubcategory(*rule.TemplateSubcategoryID); ok {
			rule.Target = &core.SubcategoryRef{CategoryName: cat.Name, SubcategoryName: sub.Name}
			return nil
		}
	}
	return fmt.Errorf("%w: %d", ErrUnknownSubcat, *rule.TemplateSubcategoryID)
}

// IsNotFound reports whether err means the record does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, core.ErrNotFound)
}
