// Package memory records exports in process. It backs local development
// when no spreadsheet is configured.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"expensetracker/internal/core"
	"expensetracker/internal/events"
	"expensetracker/internal/export"
)

type Store struct {
	mu       sync.Mutex
	exports  [][][]any
	activity [][]any
}

var (
	_ export.ExpenseExporter = (*Store)(nil)
	_ export.ActivityWriter  = (*Store)(nil)
)

func New() *Store {
	return &Store{}
}

// ExportExpenses stores the block and returns a synthetic reference.
func (s *Store) ExportExpenses(_ context.Context, owner string, r core.DateRange, items []core.Expense) (string, error) {
	rows := export.ExpenseRows(owner, r, items, time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exports = append(s.exports, rows)
	return fmt.Sprintf("mem:export:%d", len(s.exports)), nil
}

func (s *Store) AppendActivity(_ context.Context, ev events.Event) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activity = append(s.activity, export.ActivityRow(ev))
	return fmt.Sprintf("mem:activity:%d", len(s.activity)), nil
}

// Exports returns a copy of the written export blocks.
func (s *Store) Exports() [][][]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][][]any(nil), s.exports...)
}

// Activity returns a copy of the written activity rows.
func (s *Store) Activity() [][]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]any(nil), s.activity...)
}
