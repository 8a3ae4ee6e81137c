// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data.

package http

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"expensetracker/internal/auth"
	"expensetracker/internal/expenses"
)

// maxFormBytes bounds a submitted form body.
const maxFormBytes = 64 << 10

// FilterParams holds the raw startDate/endDate values of the filter bar.
type FilterParams struct {
	Start string
	End   string
}

// Query encodes the filter for a redirect URL.
func (f FilterParams) Query() string {
	q := url.Values{}
	if f.Start != "" {
		q.Set(expenses.FieldStartDate, f.Start)
	}
	if f.End != "" {
		q.Set(expenses.FieldEndDate, f.End)
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

// ParseFilterParams reads the filter from query or form values.
func ParseFilterParams(values url.Values) FilterParams {
	return FilterParams{
		Start: sanitizeInput(values.Get(expenses.FieldStartDate)),
		End:   sanitizeInput(values.Get(expenses.FieldEndDate)),
	}
}

// ParseExpenseForm reads an expense form from submitted values.
func ParseExpenseForm(values url.Values) expenses.Form {
	return expenses.Form{
		Description: sanitizeInput(values.Get(expenses.FieldDescription)),
		Amount:      sanitizeInput(values.Get(expenses.FieldAmount)),
		Category:    sanitizeInput(values.Get(expenses.FieldCategory)),
		Date:        sanitizeInput(values.Get(expenses.FieldDate)),
	}
}

// ParseAuthValues reads login or registration fields. Passwords are not
// sanitized so that every character the user typed reaches the API.
func ParseAuthValues(values url.Values) auth.Values {
	return auth.Values{
		Identifier: sanitizeInput(values.Get(auth.FieldIdentifier)),
		Username:   sanitizeInput(values.Get(auth.FieldUsername)),
		Email:      sanitizeInput(values.Get(auth.FieldEmail)),
		Password:   values.Get(auth.FieldPassword),
	}
}

var errInvalidID = errors.New("invalid expense id")

// ParseExpenseID extracts the {id} route variable.
func ParseExpenseID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidID
	}
	return id, nil
}

// ParseFormOrFail parses the request form and returns an error response on failure.
// Returns nil on success.
func ParseFormOrFail(w http.ResponseWriter, r *http.Request) *HTMXResponseBuilder {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		return BadRequestError("Invalid request format")
	}
	return nil
}

// IsHTMX reports whether r was issued by htmx.
func IsHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}
