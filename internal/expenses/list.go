package expenses

import "expensetracker/internal/core"

// EmptyMessage is shown instead of the table when nothing matches.
const EmptyMessage = "No expenses found"

// Row is one rendered expense.
type Row struct {
	ID            int64
	Description   string
	Category      string
	CategoryLabel string
	Date          string
	Amount        string
}

// CategoryTotal is one line of the per-category breakdown.
type CategoryTotal struct {
	Category string
	Label    string
	Amount   string
}

// List is the view model of the loaded collection.
type List struct {
	Rows      []Row
	Total     string
	Breakdown []CategoryTotal
}

func NewList(items []core.Expense) List {
	rows := make([]Row, 0, len(items))
	for _, e := range items {
		rows = append(rows, Row{
			ID:            e.ID,
			Description:   e.Description,
			Category:      e.Category.String(),
			CategoryLabel: e.Category.Label(),
			Date:          e.Date.String(),
			Amount:        e.Amount.Format(),
		})
	}
	s := core.Summarize(items)
	breakdown := make([]CategoryTotal, 0, len(s.ByCategory))
	for _, c := range s.ByCategory {
		breakdown = append(breakdown, CategoryTotal{
			Category: c.Category.String(),
			Label:    c.Category.Label(),
			Amount:   c.Amount.Format(),
		})
	}
	return List{Rows: rows, Total: s.Total.Format(), Breakdown: breakdown}
}

func (l List) Empty() bool { return len(l.Rows) == 0 }

// EmptyMessage is the placeholder text for an empty list.
func (List) EmptyMessage() string { return EmptyMessage }
