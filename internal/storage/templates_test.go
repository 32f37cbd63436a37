package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgetmanager/internal/core"
	"budgetmanager/internal/services"
)

type serviceFixture struct {
	repo      *SQLiteRepository
	budgets   *services.BudgetService
	recurring *services.RecurringService
	template  core.Template
	rule      core.RecurrenceRule
}

// newServiceFixture wires the services over SQLite with one template and a
// monthly rent rule linked to its "Loyer" subcategory.
func newServiceFixture(t *testing.T) serviceFixture {
	t.Helper()
	ctx := context.Background()
	repo := newTestRepo(t)
	expenses := services.NewExpenseService(repo, nil)
	f := serviceFixture{
		repo:      repo,
		budgets:   services.NewBudgetService(repo, repo, expenses, services.NewMaterializer(repo, expenses)),
		recurring: services.NewRecurringService(repo, repo),
	}

	var err error
	f.template, err = f.budgets.CreateTemplate(ctx, 1, sampleTemplate(1))
	require.NoError(t, err)

	loyerID := f.template.Categories[0].Subcategories[0].ID
	f.rule, err = f.recurring.Create(ctx, 1, core.RecurrenceRule{
		TemplateSubcategoryID: &loyerID,
		Label:                 "Loyer",
		Amount:                core.Money{Cents: 85000},
		Recurrence:            core.MonthlyRecurrence{Day: 5},
		AutoCreate:            true,
		IsActive:              true,
		StartDate:             core.NewDate(2024, 1, 1),
	})
	require.NoError(t, err)
	return f
}

func (f serviceFixture) ruleOutcome(t *testing.T, gen services.Generation) services.RuleOutcome {
	t.Helper()
	require.NoError(t, gen.MaterializationError)
	for _, o := range gen.Materialization.Outcomes {
		if o.RuleID == f.rule.ID {
			return o
		}
	}
	t.Fatalf("no outcome for rule %d", f.rule.ID)
	return services.RuleOutcome{}
}

func TestRenamedTemplateSubcategoryMovesRuleTarget(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	edit := f.template
	edit.Categories = []core.TemplateCategory{f.template.Categories[0], f.template.Categories[1]}
	logement := edit.Categories[0]
	logement.Subcategories = []core.TemplateSubcategory{
		{ID: logement.Subcategories[0].ID, Name: "Loyer appartement", Planned: core.Money{Cents: 85000}},
		logement.Subcategories[1],
	}
	edit.Categories[0] = logement

	updated, err := f.budgets.UpdateTemplate(ctx, 1, f.template.ID, edit)
	require.NoError(t, err)
	require.Len(t, updated.Categories, 2)
	assert.Equal(t, f.template.Categories[0].Subcategories[0].ID, updated.Categories[0].Subcategories[0].ID)

	rule, err := f.recurring.Get(ctx, 1, f.rule.ID)
	require.NoError(t, err)
	require.NotNil(t, rule.Target)
	assert.Equal(t, core.SubcategoryRef{CategoryName: "Logement", SubcategoryName: "Loyer appartement"}, *rule.Target)

	gen, err := f.budgets.GenerateBudget(ctx, 1, core.NewMonth(2024, time.April))
	require.NoError(t, err)
	outcome := f.ruleOutcome(t, gen)
	require.Equal(t, services.OutcomeCreated, outcome.Status)

	renamed := gen.Budget.Categories[0].Subcategories[0]
	require.Equal(t, "Loyer appartement", renamed.Name)
	expenses, err := f.repo.ListExpensesByBudget(ctx, gen.Budget.ID)
	require.NoError(t, err)
	var booked core.Expense
	for _, e := range expenses {
		if e.ID == outcome.ExpenseID {
			booked = e
		}
	}
	assert.Equal(t, renamed.ID, booked.SubcategoryID)
	assert.Equal(t, core.NewDate(2024, 4, 5), booked.Date)
}

func TestRemovedTemplateSubcategoryUnlinksRule(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	edit := f.template
	logement := f.template.Categories[0]
	logement.Subcategories = []core.TemplateSubcategory{logement.Subcategories[1]}
	edit.Categories = []core.TemplateCategory{logement, f.template.Categories[1]}

	updated, err := f.budgets.UpdateTemplate(ctx, 1, f.template.ID, edit)
	require.NoError(t, err)
	require.Len(t, updated.Categories, 2)
	require.Len(t, updated.Categories[0].Subcategories, 1)
	assert.Equal(t, "Internet", updated.Categories[0].Subcategories[0].Name)

	rule, err := f.recurring.Get(ctx, 1, f.rule.ID)
	require.NoError(t, err)
	assert.Nil(t, rule.TemplateSubcategoryID)
	assert.Nil(t, rule.Target)

	gen, err := f.budgets.GenerateBudget(ctx, 1, core.NewMonth(2024, time.April))
	require.NoError(t, err)
	outcome := f.ruleOutcome(t, gen)
	assert.Equal(t, services.OutcomeSkipped, outcome.Status)
	assert.Equal(t, services.ReasonNoTarget, outcome.Reason)
}

func TestUpdateTemplateMergesTree(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	created, err := repo.CreateTemplate(ctx, sampleTemplate(1))
	require.NoError(t, err)
	loisirs := created.Categories[1]

	edit := created
	edit.Name = "Maison"
	edit.Revenue = core.Money{Cents: 320000}
	edit.Categories = []core.TemplateCategory{
		{ID: loisirs.ID, Name: "Sorties", SortOrder: 0, Subcategories: []core.TemplateSubcategory{
			{ID: loisirs.Subcategories[0].ID, Name: "Netflix", Planned: core.Money{Cents: 1499}},
			{Name: "Cinéma", Planned: core.Money{Cents: 2000}, SortOrder: 1},
		}},
		{Name: "Santé", SortOrder: 1},
	}

	updated, err := repo.UpdateTemplate(ctx, edit)
	require.NoError(t, err)
	assert.Equal(t, "Maison", updated.Name)
	assert.Equal(t, int64(320000), updated.Revenue.Cents)
	assert.True(t, updated.IsDefault)
	require.Len(t, updated.Categories, 2)
	assert.Equal(t, loisirs.ID, updated.Categories[0].ID)
	assert.Equal(t, "Sorties", updated.Categories[0].Name)
	require.Len(t, updated.Categories[0].Subcategories, 2)
	assert.Equal(t, int64(1499), updated.Categories[0].Subcategories[0].Planned.Cents)
	assert.Equal(t, "Cinéma", updated.Categories[0].Subcategories[1].Name)
	assert.Equal(t, "Santé", updated.Categories[1].Name)

	var orphans int
	require.NoError(t, repo.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM template_subcategories WHERE category_id = ?",
		created.Categories[0].ID).Scan(&orphans))
	assert.Zero(t, orphans)

	edit.ID = 999
	_, err = repo.UpdateTemplate(ctx, edit)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestDeleteTemplateKeepsBudgets(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	gen, err := f.budgets.GenerateBudget(ctx, 1, core.NewMonth(2024, time.March))
	require.NoError(t, err)

	assert.ErrorIs(t, f.budgets.DeleteTemplate(ctx, 2, f.template.ID), services.ErrForbidden)
	require.NoError(t, f.budgets.DeleteTemplate(ctx, 1, f.template.ID))

	_, err = f.repo.GetTemplate(ctx, f.template.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)

	budget, err := f.budgets.GetBudget(ctx, 1, gen.Budget.ID)
	require.NoError(t, err)
	assert.Nil(t, budget.TemplateID)
	assert.Len(t, budget.Categories, 3)

	rule, err := f.recurring.Get(ctx, 1, f.rule.ID)
	require.NoError(t, err)
	assert.Nil(t, rule.TemplateSubcategoryID)

	assert.ErrorIs(t, f.repo.DeleteTemplate(ctx, f.template.ID), core.ErrNotFound)
}
