// Package export writes expense data to spreadsheets. Rows are built here;
// the google and memory subpackages decide where they land.
package export

import (
	"context"
	"time"

	"expensetracker/internal/core"
	"expensetracker/internal/events"
)

// Ports for outbound adapters.
type (
	// ExpenseExporter writes one filtered list for owner and returns a
	// reference to the written range.
	ExpenseExporter interface {
		ExportExpenses(ctx context.Context, owner string, r core.DateRange, items []core.Expense) (ref string, err error)
	}

	// ActivityWriter mirrors one activity event as a row.
	ActivityWriter interface {
		AppendActivity(ctx context.Context, ev events.Event) (ref string, err error)
	}
)

// ExpenseHeader is the column header of exported expense rows.
var ExpenseHeader = []any{"ID", "Date", "Description", "Category", "Amount"}

// ActivityHeader describes the columns written by ActivityRow.
var ActivityHeader = []any{"Occurred At", "Event", "User", "Expense ID", "Date", "Description", "Category", "Amount"}

// ExpenseRows lays out an export block: a title row naming owner and range,
// the column header, one row per expense and a closing total row.
func ExpenseRows(owner string, r core.DateRange, items []core.Expense, now time.Time) [][]any {
	rows := make([][]any, 0, len(items)+3)
	rows = append(rows, []any{"Expenses of " + owner, r.String(), "exported " + now.UTC().Format(time.RFC3339)})
	rows = append(rows, ExpenseHeader)
	for _, e := range items {
		rows = append(rows, []any{e.ID, e.Date.String(), e.Description, e.Category.Label(), e.Amount.Format()})
	}
	rows = append(rows, []any{"", "", "", "Total", core.Total(items).Format()})
	return rows
}

// ActivityRow flattens an event. Deletions leave the expense columns empty.
func ActivityRow(ev events.Event) []any {
	row := []any{ev.OccurredAt.UTC().Format(time.RFC3339), string(ev.Type), ev.Username, ev.ExpenseID, "", "", "", ""}
	if e := ev.Expense; e != nil {
		row[4] = e.Date.String()
		row[5] = e.Description
		row[6] = e.Category.Label()
		row[7] = e.Amount.Format()
	}
	return row
}
