package core

// CategoryAmount is a category's planned and spent totals.
type CategoryAmount struct {
	Name    string
	Planned Money
	Spent   Money
}

// MonthOverview is a compact summary for one budget-month.
type MonthOverview struct {
	Month      Month
	Revenue    Money
	Planned    Money
	Spent      Money
	ByCategory []CategoryAmount
}

// Summarize totals expenses per category of b. Expenses pointing at a
// subcategory outside the tree count towards Spent only.
func Summarize(b Budget, expenses []Expense) MonthOverview {
	overview := MonthOverview{Month: b.Month, Revenue: b.Revenue}

	owner := make(map[int64]int, 8)
	overview.ByCategory = make([]CategoryAmount, len(b.Categories))
	for i, c := range b.Categories {
		overview.ByCategory[i] = CategoryAmount{Name: c.Name, Planned: c.Planned}
		overview.Planned.Cents += c.Planned.Cents
		for _, s := range c.Subcategories {
			owner[s.ID] = i
		}
	}

	for _, e := range expenses {
		overview.Spent.Cents += e.Amount.Cents
		if i, ok := owner[e.SubcategoryID]; ok {
			overview.ByCategory[i].Spent.Cents += e.Amount.Cents
		}
	}
	return overview
}
