package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgetmanager/internal/core"
)

func seedTemplate(t *testing.T, store *memStore, userID int64) core.Template {
	t.Helper()
	tpl, err := store.CreateTemplate(context.Background(), core.Template{
		UserID: userID,
		Name:   "Mensuel",
		Categories: []core.TemplateCategory{
			{Name: "Logement", Subcategories: []core.TemplateSubcategory{{Name: "Loyer"}, {Name: "Charges"}}},
		},
	})
	require.NoError(t, err)
	return tpl
}

func newRule(subcatID *int64) core.RecurrenceRule {
	return core.RecurrenceRule{
		TemplateSubcategoryID: subcatID,
		Label:                 "Loyer",
		Amount:                core.Money{Cents: 85000},
		Recurrence:            core.MonthlyRecurrence{Day: 1},
		AutoCreate:            true,
		IsActive:              true,
		StartDate:             core.NewDate(2024, 1, 1),
	}
}

func TestRecurringService_CreateResolvesTarget(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	tpl := seedTemplate(t, store, 1)
	loyerID := tpl.Categories[0].Subcategories[0].ID

	service := NewRecurringService(store, store)
	created, err := service.Create(ctx, 1, newRule(&loyerID))

	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, int64(1), created.UserID)
	require.NotNil(t, created.Target)
	assert.Equal(t, core.SubcategoryRef{CategoryName: "Logement", SubcategoryName: "Loyer"}, *created.Target)

	stored, err := store.GetRule(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, stored)
}

func TestRecurringService_CreateRejects(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	seedTemplate(t, store, 1)
	foreign := seedTemplate(t, store, 2)
	foreignID := foreign.Categories[0].Subcategories[0].ID
	service := NewRecurringService(store, store)

	t.Run("invalid rule", func(t *testing.T) {
		r := newRule(nil)
		r.Amount = core.Money{}
		_, err := service.Create(ctx, 1, r)
		assert.ErrorIs(t, err, core.ErrInvalidAmount)
	})

	t.Run("subcategory of another user", func(t *testing.T) {
		_, err := service.Create(ctx, 1, newRule(&foreignID))
		assert.ErrorIs(t, err, ErrUnknownSubcat)
	})

	rules, err := store.ListRules(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, rules)
}

func TestRecurringService_Ownership(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	service := NewRecurringService(store, store)

	created, err := service.Create(ctx, 1, newRule(nil))
	require.NoError(t, err)

	_, err = service.Get(ctx, 2, created.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = service.ToggleActive(ctx, 2, created.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	assert.ErrorIs(t, service.Delete(ctx, 2, created.ID), ErrForbidden)

	_, err = service.Get(ctx, 1, 999)
	assert.True(t, IsNotFound(err))
}

func TestRecurringService_Update(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	tpl := seedTemplate(t, store, 1)
	chargesID := tpl.Categories[0].Subcategories[1].ID
	service := NewRecurringService(store, store)

	created, err := service.Create(ctx, 1, newRule(nil))
	require.NoError(t, err)

	label := "Charges"
	subcat := &chargesID
	end := core.NewDate(2024, 12, 31)
	endPtr := &end
	updated, err := service.Update(ctx, 1, created.ID, RuleUpdate{
		TemplateSubcategoryID: &subcat,
		Label:                 &label,
		Recurrence:            core.YearlyRecurrence{Month: time.June},
		EndDate:               &endPtr,
	})

	require.NoError(t, err)
	assert.Equal(t, "Charges", updated.Label)
	assert.Equal(t, core.YearlyRecurrence{Month: time.June}, updated.Recurrence)
	assert.Equal(t, core.Money{Cents: 85000}, updated.Amount)
	require.NotNil(t, updated.EndDate)
	assert.Equal(t, end, *updated.EndDate)
	require.NotNil(t, updated.Target)
	assert.Equal(t, "Charges", updated.Target.SubcategoryName)

	t.Run("invalid merge keeps stored rule", func(t *testing.T) {
		early := core.NewDate(2023, 1, 1)
		earlyPtr := &early
		_, err := service.Update(ctx, 1, created.ID, RuleUpdate{EndDate: &earlyPtr})
		assert.ErrorIs(t, err, core.ErrEndBeforeStart)

		stored, err := store.GetRule(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, end, *stored.EndDate)
	})

	t.Run("clearing the link drops the target", func(t *testing.T) {
		var none *int64
		cleared, err := service.Update(ctx, 1, created.ID, RuleUpdate{TemplateSubcategoryID: &none})
		require.NoError(t, err)
		assert.Nil(t, cleared.TemplateSubcategoryID)
		assert.Nil(t, cleared.Target)
	})
}

func TestRecurringService_ToggleAndDelete(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	service := NewRecurringService(store, store)

	created, err := service.Create(ctx, 1, newRule(nil))
	require.NoError(t, err)

	toggled, err := service.ToggleActive(ctx, 1, created.ID)
	require.NoError(t, err)
	assert.False(t, toggled.IsActive)

	auto, err := store.ListAutoCreateRules(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, auto)

	require.NoError(t, service.Delete(ctx, 1, created.ID))
	_, err = service.Get(ctx, 1, created.ID)
	assert.True(t, IsNotFound(err))
}

func TestRecurringService_ListOrdersByLabel(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	service := NewRecurringService(store, store)

	for _, label := range []string{"Netflix", "Assurance", "Loyer"} {
		r := newRule(nil)
		r.Label = label
		_, err := service.Create(ctx, 1, r)
		require.NoError(t, err)
	}

	rules, err := service.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, rules, 3)
	assert.Equal(t, "Assurance", rules[0].Label)
	assert.Equal(t, "Loyer", rules[1].Label)
	assert.Equal(t, "Netflix", rules[2].Label)
}

func TestRecurringService_ToggleMalformedRule(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	service := NewRecurringService(store, store)

	broken := newRule(nil)
	broken.UserID = 1
	broken.Recurrence = nil
	id, err := store.CreateRule(ctx, broken)
	require.NoError(t, err)

	toggled, err := service.ToggleActive(ctx, 1, id)
	require.NoError(t, err)
	assert.False(t, toggled.IsActive)

	stored, err := store.GetRule(ctx, id)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)
	assert.Nil(t, stored.Recurrence)
}
