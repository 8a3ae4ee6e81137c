package expenses

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"expensetracker/internal/core"
)

// Form input names, also the FieldErrors keys.
const (
	FieldDescription = "description"
	FieldAmount      = "amount"
	FieldCategory    = "category"
	FieldDate        = "date"
	FieldStartDate   = "startDate"
	FieldEndDate     = "endDate"
)

// FieldErrors maps a form field to its message.
type FieldErrors map[string]string

// Form holds the raw text of one expense being created or edited. A non-zero
// ID means edit mode.
type Form struct {
	ID          int64
	Description string `validate:"required,max=200"`
	Amount      string `validate:"required,amount,positive"`
	Category    string `validate:"required,category"`
	Date        string `validate:"required,isodate"`

	Errors FieldErrors
}

var formMessages = map[string]map[string]string{
	"Description": {
		"required": "Description is required",
		"max":      "Description must be at most 200 characters",
	},
	"Amount": {
		"required": "Amount is required",
		"amount":   "Amount must be a number",
		"positive": "Amount must be greater than zero",
	},
	"Category": {
		"required": "Category is required",
		"category": "Category is invalid",
	},
	"Date": {
		"required": "Date is required",
		"isodate":  "Date is invalid",
	},
}

var formKeys = map[string]string{
	"Description": FieldDescription,
	"Amount":      FieldAmount,
	"Category":    FieldCategory,
	"Date":        FieldDate,
}

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("amount", func(fl validator.FieldLevel) bool {
		_, err := core.ParseAmount(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("positive", func(fl validator.FieldLevel) bool {
		m, err := core.ParseAmount(fl.Field().String())
		return err == nil && m.Validate() == nil
	})
	_ = v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		_, err := core.ParseCategory(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
		_, err := core.ParseDate(fl.Field().String())
		return err == nil
	})
	return v
}

var validate = newValidator()

// FormFromExpense fills an edit-mode form from a loaded record.
func FormFromExpense(e core.Expense) Form {
	return Form{
		ID:          e.ID,
		Description: e.Description,
		Amount:      e.Amount.Format(),
		Category:    e.Category.String(),
		Date:        e.Date.String(),
	}
}

// Editing reports whether the form targets an existing record.
func (f Form) Editing() bool { return f.ID != 0 }

// Validate checks every field and reports all problems at once.
func (f *Form) Validate() (core.ExpenseInput, bool) {
	f.Description = strings.TrimSpace(f.Description)
	f.Amount = strings.TrimSpace(f.Amount)
	f.Category = strings.TrimSpace(f.Category)
	f.Date = strings.TrimSpace(f.Date)
	f.Errors = nil

	if err := validate.Struct(f); err != nil {
		f.Errors = fieldErrors(err)
		return core.ExpenseInput{}, false
	}

	amount, _ := core.ParseAmount(f.Amount)
	category, _ := core.ParseCategory(f.Category)
	date, _ := core.ParseDate(f.Date)
	return core.ExpenseInput{
		Description: f.Description,
		Amount:      amount,
		Category:    category,
		Date:        date,
	}, true
}

// Submit validates the form and hands the input to save. save is not called
// when validation fails. The form resets to create mode once the record is
// saved, even when the reload after it failed.
func (f *Form) Submit(save func(core.ExpenseInput) error) error {
	in, ok := f.Validate()
	if !ok {
		return ErrInvalidForm
	}
	err := save(in)
	if Saved(err) {
		f.Reset()
	}
	return err
}

// Reset empties the form.
func (f *Form) Reset() {
	*f = Form{}
}

// ErrInvalidForm is returned by Submit when validation fails.
var ErrInvalidForm = errors.New("expense form has errors")

func fieldErrors(err error) FieldErrors {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return FieldErrors{"": err.Error()}
	}
	out := FieldErrors{}
	for _, fe := range verrs {
		key := formKeys[fe.Field()]
		if _, seen := out[key]; seen {
			continue
		}
		msg := formMessages[fe.Field()][fe.Tag()]
		if msg == "" {
			msg = fe.Error()
		}
		out[key] = msg
	}
	return out
}
