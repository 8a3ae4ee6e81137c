package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// DateLayout is the ISO calendar date format used on the wire and in forms.
const DateLayout = "2006-01-02"

const (
	Food     Category = "FOOD"
	Health   Category = "HEALTH"
	Clothing Category = "CLOTHING"
	Travel   Category = "TRAVEL"
	Bills    Category = "BILLS"
	Others   Category = "OTHERS"
)

// MaxDescriptionLen bounds the description of a single expense.
const MaxDescriptionLen = 200

type (
	Category string

	Date struct {
		time.Time
	}

	// ExpenseInput is the editable part of an expense record, the body of
	// create and update calls.
	ExpenseInput struct {
		Description string   `json:"description"`
		Amount      Money    `json:"amount"`
		Category    Category `json:"category"`
		Date        Date     `json:"date"`
	}

	// Expense is a record as returned by the expense API.
	Expense struct {
		ID int64 `json:"id"`
		ExpenseInput
	}

	// DateRange narrows a fetch. A zero side is unbounded; both sides are inclusive.
	DateRange struct {
		Start Date
		End   Date
	}
)

var (
	ErrEmptyDescription = errors.New("empty description")
	ErrLongDescription  = fmt.Errorf("description too long (max %d characters)", MaxDescriptionLen)
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidCategory  = errors.New("invalid category")
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvertedRange    = errors.New("start date after end date")
)

// Categories lists the accepted categories in display order.
var Categories = []Category{Food, Health, Clothing, Travel, Bills, Others}

var categoryLabels = map[Category]string{
	Food:     "Food",
	Health:   "Health",
	Clothing: "Clothing",
	Travel:   "Travel",
	Bills:    "Bills",
	Others:   "Others",
}

// ParseCategory accepts a category code in any letter case.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToUpper(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", ErrInvalidCategory
	}
	return c, nil
}

func (c Category) Valid() bool {
	_, ok := categoryLabels[c]
	return ok
}

// Label returns the human name of the category, or the raw code for unknown values.
func (c Category) Label() string {
	if l, ok := categoryLabels[c]; ok {
		return l
	}
	return string(c)
}

func (c Category) String() string { return string(c) }

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

// ParseOptionalDate parses s, returning the zero Date for blank input.
func ParseOptionalDate(s string) (Date, error) {
	if strings.TrimSpace(s) == "" {
		return Date{}, nil
	}
	return ParseDate(s)
}

// String formats the date as YYYY-MM-DD, or "" when empty.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.Format(DateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	// Some servers serialize LocalDate with a time part.
	if len(s) > len(DateLayout) {
		s = s[:len(DateLayout)]
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Validate applies the same rules as the expense form to an input built
// in code.
func (e ExpenseInput) Validate() error {
	if len(strings.TrimSpace(e.Description)) == 0 {
		return ErrEmptyDescription
	}
	if utf8.RuneCountInString(e.Description) > MaxDescriptionLen {
		return ErrLongDescription
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if !e.Category.Valid() {
		return ErrInvalidCategory
	}
	if err := e.Date.Validate(); err != nil {
		return ErrInvalidDate
	}
	return nil
}

// NewDateRange parses the optional start/end strings of a filter.
func NewDateRange(start, end string) (DateRange, error) {
	var (
		r   DateRange
		err error
	)
	if r.Start, err = ParseOptionalDate(start); err != nil {
		return DateRange{}, fmt.Errorf("start: %w", err)
	}
	if r.End, err = ParseOptionalDate(end); err != nil {
		return DateRange{}, fmt.Errorf("end: %w", err)
	}
	if !r.Start.IsZero() && !r.End.IsZero() && r.Start.After(r.End.Time) {
		return DateRange{}, ErrInvertedRange
	}
	return r, nil
}

// IsUnbounded reports whether neither side of the range is set.
func (r DateRange) IsUnbounded() bool {
	return r.Start.IsZero() && r.End.IsZero()
}

// Contains reports whether d falls inside the range.
func (r DateRange) Contains(d Date) bool {
	if !r.Start.IsZero() && d.Before(r.Start.Time) {
		return false
	}
	if !r.End.IsZero() && d.After(r.End.Time) {
		return false
	}
	return true
}

func (r DateRange) String() string {
	switch {
	case r.IsUnbounded():
		return "all dates"
	case r.Start.IsZero():
		return "until " + r.End.String()
	case r.End.IsZero():
		return "from " + r.Start.String()
	default:
		return r.Start.String() + " to " + r.End.String()
	}
}
