package export

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensetracker/internal/core"
	"expensetracker/internal/events"
)

func sample(t *testing.T) []core.Expense {
	t.Helper()
	a, err := core.ParseAmount("150")
	require.NoError(t, err)
	b, err := core.ParseAmount("100")
	require.NoError(t, err)
	return []core.Expense{
		{ID: 1, ExpenseInput: core.ExpenseInput{Description: "Groceries", Amount: a, Category: core.Food, Date: core.NewDate(2025, 9, 1)}},
		{ID: 2, ExpenseInput: core.ExpenseInput{Description: "Utilities", Amount: b, Category: core.Bills, Date: core.NewDate(2025, 9, 2)}},
	}
}

func TestExpenseRows(t *testing.T) {
	r, err := core.NewDateRange("2025-09-01", "2025-09-30")
	require.NoError(t, err)
	now := time.Date(2025, 10, 1, 8, 0, 0, 0, time.UTC)

	rows := ExpenseRows("ada", r, sample(t), now)
	require.Len(t, rows, 5)
	assert.Equal(t, []any{"Expenses of ada", "2025-09-01 to 2025-09-30", "exported 2025-10-01T08:00:00Z"}, rows[0])
	assert.Equal(t, ExpenseHeader, rows[1])
	assert.Equal(t, []any{int64(1), "2025-09-01", "Groceries", "Food", "150.00"}, rows[2])
	assert.Equal(t, []any{"", "", "", "Total", "250.00"}, rows[4])
}

func TestExpenseRowsEmpty(t *testing.T) {
	rows := ExpenseRows("ada", core.DateRange{}, nil, time.Now())
	require.Len(t, rows, 3)
	assert.Equal(t, "all dates", rows[0][1])
	assert.Equal(t, "0.00", rows[2][4])
}

func TestActivityRow(t *testing.T) {
	items := sample(t)
	at := time.Date(2025, 9, 3, 10, 0, 0, 0, time.UTC)

	created := events.Event{Type: events.ExpenseCreated, Username: "ada", Expense: &items[0], ExpenseID: 1, OccurredAt: at}
	assert.Equal(t, []any{"2025-09-03T10:00:00Z", "expense.created", "ada", int64(1), "2025-09-01", "Groceries", "Food", "150.00"}, ActivityRow(created))

	deleted := events.Event{Type: events.ExpenseDeleted, Username: "ada", ExpenseID: 2, OccurredAt: at}
	assert.Equal(t, []any{"2025-09-03T10:00:00Z", "expense.deleted", "ada", int64(2), "", "", "", ""}, ActivityRow(deleted))
}
