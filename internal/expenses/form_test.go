package expenses

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensetracker/internal/core"
)

func TestFormValidate(t *testing.T) {
	tests := []struct {
		name string
		form Form
		want FieldErrors
	}{
		{
			name: "all missing",
			form: Form{},
			want: FieldErrors{
				FieldDescription: "Description is required",
				FieldAmount:      "Amount is required",
				FieldCategory:    "Category is required",
				FieldDate:        "Date is required",
			},
		},
		{
			name: "whitespace only counts as missing",
			form: Form{Description: "  ", Amount: "10", Category: "FOOD", Date: "2025-09-01"},
			want: FieldErrors{FieldDescription: "Description is required"},
		},
		{
			name: "malformed values",
			form: Form{Description: "Lunch", Amount: "abc", Category: "PETS", Date: "2025-13-40"},
			want: FieldErrors{
				FieldAmount:   "Amount must be a number",
				FieldCategory: "Category is invalid",
				FieldDate:     "Date is invalid",
			},
		},
		{
			name: "zero amount",
			form: Form{Description: "Lunch", Amount: "0", Category: "FOOD", Date: "2025-09-01"},
			want: FieldErrors{FieldAmount: "Amount must be greater than zero"},
		},
		{
			name: "negative amount",
			form: Form{Description: "Lunch", Amount: "-3", Category: "FOOD", Date: "2025-09-01"},
			want: FieldErrors{FieldAmount: "Amount must be greater than zero"},
		},
		{
			name: "exponent notation",
			form: Form{Description: "Lunch", Amount: "1e20000000", Category: "FOOD", Date: "2025-09-01"},
			want: FieldErrors{FieldAmount: "Amount must be a number"},
		},
		{
			name: "too many decimals",
			form: Form{Description: "Lunch", Amount: "1.005", Category: "FOOD", Date: "2025-09-01"},
			want: FieldErrors{FieldAmount: "Amount must be a number"},
		},
		{
			name: "long description",
			form: Form{Description: strings.Repeat("x", 201), Amount: "1", Category: "FOOD", Date: "2025-09-01"},
			want: FieldErrors{FieldDescription: "Description must be at most 200 characters"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := tt.form
			_, ok := f.Validate()
			assert.False(t, ok)
			assert.Equal(t, tt.want, f.Errors)
		})
	}
}

func TestFormValidateSuccess(t *testing.T) {
	f := Form{Description: " Groceries ", Amount: "12,50", Category: "food", Date: "2025-09-01"}
	in, ok := f.Validate()
	require.True(t, ok)
	assert.Empty(t, f.Errors)
	assert.Equal(t, "Groceries", in.Description)
	assert.Equal(t, "12.50", in.Amount.Format())
	assert.Equal(t, core.Food, in.Category)
	assert.Equal(t, "2025-09-01", in.Date.String())
	assert.NoError(t, in.Validate())
}

func TestFormSubmit(t *testing.T) {
	t.Run("invalid form never calls save", func(t *testing.T) {
		f := Form{Description: "Lunch"}
		called := false
		err := f.Submit(func(core.ExpenseInput) error { called = true; return nil })
		assert.ErrorIs(t, err, ErrInvalidForm)
		assert.False(t, called)
		assert.Equal(t, "Lunch", f.Description)
	})

	t.Run("success resets to create mode", func(t *testing.T) {
		f := Form{ID: 4, Description: "Lunch", Amount: "9", Category: "FOOD", Date: "2025-09-01"}
		require.True(t, f.Editing())
		require.NoError(t, f.Submit(func(core.ExpenseInput) error { return nil }))
		assert.Equal(t, Form{}, f)
		assert.False(t, f.Editing())
	})

	t.Run("save failure keeps input", func(t *testing.T) {
		f := Form{Description: "Lunch", Amount: "9", Category: "FOOD", Date: "2025-09-01"}
		boom := errors.New("boom")
		err := f.Submit(func(core.ExpenseInput) error { return boom })
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, "Lunch", f.Description)
	})
}

func TestFormFromExpense(t *testing.T) {
	amount, err := core.ParseAmount("7.5")
	require.NoError(t, err)
	f := FormFromExpense(core.Expense{ID: 3, ExpenseInput: core.ExpenseInput{
		Description: "Taxi", Amount: amount, Category: core.Travel, Date: core.NewDate(2025, 9, 2),
	}})
	assert.Equal(t, Form{ID: 3, Description: "Taxi", Amount: "7.50", Category: "TRAVEL", Date: "2025-09-02"}, f)
}

func TestParseFilter(t *testing.T) {
	r, errs := ParseFilter("", "")
	assert.Nil(t, errs)
	assert.True(t, r.IsUnbounded())

	r, errs = ParseFilter("2025-09-01", "")
	assert.Nil(t, errs)
	assert.Equal(t, "from 2025-09-01", r.String())

	_, errs = ParseFilter("nope", "also-nope")
	assert.Equal(t, FieldErrors{FieldStartDate: "Start date is invalid", FieldEndDate: "End date is invalid"}, errs)

	_, errs = ParseFilter("2025-09-30", "2025-09-01")
	assert.Equal(t, FieldErrors{FieldStartDate: "Start date must not be after end date"}, errs)
}

func TestNewList(t *testing.T) {
	l := NewList(nil)
	assert.True(t, l.Empty())
	assert.Equal(t, "0.00", l.Total)

	a, _ := core.ParseAmount("150")
	b, _ := core.ParseAmount("100")
	l = NewList([]core.Expense{
		{ID: 1, ExpenseInput: core.ExpenseInput{Description: "Groceries", Amount: a, Category: core.Food, Date: core.NewDate(2025, 9, 1)}},
		{ID: 2, ExpenseInput: core.ExpenseInput{Description: "Utilities", Amount: b, Category: core.Bills, Date: core.NewDate(2025, 9, 2)}},
	})
	require.Len(t, l.Rows, 2)
	assert.Equal(t, Row{ID: 1, Description: "Groceries", Category: "FOOD", CategoryLabel: "Food", Date: "2025-09-01", Amount: "150.00"}, l.Rows[0])
	assert.Equal(t, "250.00", l.Total)
	assert.Equal(t, []CategoryTotal{
		{Category: "FOOD", Label: "Food", Amount: "150.00"},
		{Category: "BILLS", Label: "Bills", Amount: "100.00"},
	}, l.Breakdown)
}
