package events

import (
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"

	"expensetracker/internal/core"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Type names an expense mutation.
type Type string

const (
	ExpenseCreated Type = "expense.created"
	ExpenseUpdated Type = "expense.updated"
	ExpenseDeleted Type = "expense.deleted"
)

func (t Type) Valid() bool {
	switch t {
	case ExpenseCreated, ExpenseUpdated, ExpenseDeleted:
		return true
	}
	return false
}

// Event records one successful expense mutation made through a frontend.
// Expense is absent for deletions.
type Event struct {
	Type       Type          `json:"type"`
	Username   string        `json:"username"`
	Expense    *core.Expense `json:"expense,omitempty"`
	ExpenseID  int64         `json:"expenseId"`
	OccurredAt time.Time     `json:"occurredAt"`
}

// NewEvent stamps an event with the current time.
func NewEvent(t Type, username string, id int64, e *core.Expense) Event {
	return Event{
		Type:       t,
		Username:   username,
		Expense:    e,
		ExpenseID:  id,
		OccurredAt: time.Now().UTC(),
	}
}

// ToJSON converts the event to JSON bytes
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// EventFromJSON decodes and checks a message body.
func EventFromJSON(data []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, err
	}
	if !e.Type.Valid() {
		return Event{}, fmt.Errorf("unknown event type %q", e.Type)
	}
	if e.ExpenseID == 0 && e.Expense != nil {
		e.ExpenseID = e.Expense.ID
	}
	return e, nil
}
