package core

import (
	"maps"
	"slices"
)

// CategoryAmount represents an amount aggregated by category.
type CategoryAmount struct {
	Category Category
	Amount   Money
}

// Summary totals a loaded list of expenses.
type Summary struct {
	Count      int
	Total      Money
	ByCategory []CategoryAmount
}

// Total sums the amounts of exactly the given records.
func Total(items []Expense) Money {
	var total Money
	for _, e := range items {
		total = total.Add(e.Amount)
	}
	return total
}

// Summarize computes the total and the per-category breakdown, categories in
// display order and omitted when absent.
func Summarize(items []Expense) Summary {
	sums := make(map[Category]Money, len(Categories))
	for _, e := range items {
		sums[e.Category] = sums[e.Category].Add(e.Amount)
	}
	s := Summary{Count: len(items), Total: Total(items)}
	for _, c := range Categories {
		if m, ok := sums[c]; ok {
			s.ByCategory = append(s.ByCategory, CategoryAmount{Category: c, Amount: m})
			delete(sums, c)
		}
	}
	// Unknown codes the server may send still count toward the breakdown.
	for _, c := range slices.Sorted(maps.Keys(sums)) {
		s.ByCategory = append(s.ByCategory, CategoryAmount{Category: c, Amount: sums[c]})
	}
	return s
}
