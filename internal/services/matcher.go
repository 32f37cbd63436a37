package services

import "budgetmanager/internal/core"

// FindSubcategoryID resolves a template subcategory name against a budget's
// live category tree. When categoryName is non-empty only categories with
// exactly that name are searched. Names are compared as-is, case included.
// The first match in tree order wins; ok is false when nothing matches.
func FindSubcategoryID(tree core.BudgetTree, subcategoryName, categoryName string) (id int64, ok bool) {
	for _, category := range tree {
		if categoryName != "" && category.Name != categoryName {
			continue
		}
		for _, sub := range category.Subcategories {
			if sub.Name == subcategoryName {
				return sub.ID, true
			}
		}
	}
	return 0, false
}
