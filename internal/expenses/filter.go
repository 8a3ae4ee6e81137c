package expenses

import (
	"errors"

	"expensetracker/internal/core"
)

// ParseFilter reads the optional startDate/endDate values of the filter bar.
func ParseFilter(start, end string) (core.DateRange, FieldErrors) {
	errs := FieldErrors{}
	if _, err := core.ParseOptionalDate(start); err != nil {
		errs[FieldStartDate] = "Start date is invalid"
	}
	if _, err := core.ParseOptionalDate(end); err != nil {
		errs[FieldEndDate] = "End date is invalid"
	}
	if len(errs) > 0 {
		return core.DateRange{}, errs
	}

	r, err := core.NewDateRange(start, end)
	switch {
	case errors.Is(err, core.ErrInvertedRange):
		return core.DateRange{}, FieldErrors{FieldStartDate: "Start date must not be after end date"}
	case err != nil:
		return core.DateRange{}, FieldErrors{"": err.Error()}
	}
	return r, nil
}
