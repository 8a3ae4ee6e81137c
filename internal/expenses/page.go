// Package expenses holds the expense screen logic shared by the web and
// terminal front ends: the form, the list view model and the page
// orchestration around the API client.
package expenses

import (
	"context"
	"errors"
	"fmt"

	"expensetracker/internal/api"
	"expensetracker/internal/core"
	"expensetracker/internal/events"
	"expensetracker/internal/export"
	"expensetracker/internal/log"
)

// LoginPath is where an unauthorized page sends the user.
const LoginPath = "/login"

// OutsideFilterNotice is shown when a saved record is not in the active range.
const OutsideFilterNotice = "Saved. The expense is outside the current date range."

var (
	// ErrExportDisabled is returned by Export when no exporter is configured.
	ErrExportDisabled = errors.New("export is not configured")
	// ErrReload wraps a failed reload after the mutation itself succeeded.
	ErrReload = errors.New("list reload failed")
)

// Saved reports whether a mutation reached the server, even if the reload
// that follows it failed.
func Saved(err error) bool {
	return err == nil || errors.Is(err, ErrReload)
}

// API is the subset of the REST client the page drives.
type API interface {
	ListExpenses(ctx context.Context, store api.SessionStore, r core.DateRange) ([]core.Expense, error)
	CreateExpense(ctx context.Context, store api.SessionStore, in core.ExpenseInput) (core.Expense, error)
	UpdateExpense(ctx context.Context, store api.SessionStore, id int64, in core.ExpenseInput) (core.Expense, error)
	DeleteExpense(ctx context.Context, store api.SessionStore, id int64) error
}

// Publisher sends activity events.
type Publisher interface {
	Publish(ctx context.Context, ev events.Event) error
}

// Page is the state of one expenses screen. It is not safe for concurrent use.
type Page struct {
	client    API
	store     api.SessionStore
	publisher Publisher
	exporter  export.ExpenseExporter
	logger    *log.Logger

	items   []core.Expense
	filter  core.DateRange
	loaded  bool
	editing *core.Expense

	// Error is the banner text of the last failure.
	Error string
	// Notice is the banner text of the last export or save.
	Notice string
	// Redirect is set when the session was rejected.
	Redirect string
}

type Option func(*Page)

func WithPublisher(p Publisher) Option {
	return func(pg *Page) { pg.publisher = p }
}

func WithExporter(e export.ExpenseExporter) Option {
	return func(pg *Page) { pg.exporter = e }
}

func WithLogger(l *log.Logger) Option {
	return func(pg *Page) {
		if l != nil {
			pg.logger = l
		}
	}
}

func NewPage(client API, store api.SessionStore, opts ...Option) *Page {
	p := &Page{client: client, store: store, logger: log.Discard()}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.WithComponent(log.ComponentExpense)
	return p
}

func (p *Page) Items() []core.Expense  { return p.items }
func (p *Page) Filter() core.DateRange { return p.filter }
func (p *Page) List() List             { return NewList(p.items) }

// Total sums the currently loaded records.
func (p *Page) Total() core.Money { return core.Total(p.items) }

// Unauthorized reports whether the page gave up on the session.
func (p *Page) Unauthorized() bool { return p.Redirect != "" }

// SetFilter sets the range used by later refetches without fetching.
func (p *Page) SetFilter(r core.DateRange) { p.filter = r }

// Fetch loads the records in r and makes r the active filter.
func (p *Page) Fetch(ctx context.Context, r core.DateRange) error {
	p.filter = r
	return p.refetch(ctx)
}

func (p *Page) refetch(ctx context.Context) error {
	items, err := p.client.ListExpenses(ctx, p.store, p.filter)
	if err != nil {
		if !p.loaded {
			p.items = nil
		}
		p.fail(ctx, log.OpList, err)
		return err
	}
	p.items = items
	p.loaded = true
	p.logger.DebugContext(ctx, "Expenses loaded",
		log.FieldRange, p.filter.String(),
		log.FieldCount, len(items))
	return nil
}

// Create adds a record, then reloads the active filter. A failed reload is
// reported wrapped in ErrReload.
func (p *Page) Create(ctx context.Context, in core.ExpenseInput) error {
	created, err := p.client.CreateExpense(ctx, p.store, in)
	if err != nil {
		return p.afterFailedMutation(ctx, log.OpCreate, err)
	}
	p.noteOutsideFilter(created.Date)
	p.publish(ctx, events.ExpenseCreated, created.ID, &created)
	return p.reload(ctx)
}

// Update replaces record id, clears the edit selection, then reloads.
func (p *Page) Update(ctx context.Context, id int64, in core.ExpenseInput) error {
	updated, err := p.client.UpdateExpense(ctx, p.store, id, in)
	if err != nil {
		return p.afterFailedMutation(ctx, log.OpUpdate, err)
	}
	p.editing = nil
	p.noteOutsideFilter(updated.Date)
	p.publish(ctx, events.ExpenseUpdated, id, &updated)
	return p.reload(ctx)
}

// Delete removes record id, then reloads.
func (p *Page) Delete(ctx context.Context, id int64) error {
	if err := p.client.DeleteExpense(ctx, p.store, id); err != nil {
		return p.afterFailedMutation(ctx, log.OpDelete, err)
	}
	if p.editing != nil && p.editing.ID == id {
		p.editing = nil
	}
	p.publish(ctx, events.ExpenseDeleted, id, nil)
	return p.reload(ctx)
}

func (p *Page) reload(ctx context.Context) error {
	if err := p.refetch(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrReload, err)
	}
	return nil
}

// noteOutsideFilter warns that a saved record will not appear in the list.
func (p *Page) noteOutsideFilter(d core.Date) {
	if !d.IsZero() && !p.filter.Contains(d) {
		p.Notice = OutsideFilterNotice
	}
}

// afterFailedMutation records err and, unless the session is gone, reloads
// so the list reflects the server. The mutation error is returned.
func (p *Page) afterFailedMutation(ctx context.Context, op string, err error) error {
	p.fail(ctx, op, err)
	if p.Unauthorized() {
		return err
	}
	msg := p.Error
	_ = p.refetch(ctx)
	if !p.Unauthorized() {
		p.Error = msg
	}
	return err
}

// SelectEdit marks a loaded record for editing. It reports false when id is
// not in the list.
func (p *Page) SelectEdit(id int64) bool {
	for i := range p.items {
		if p.items[i].ID == id {
			e := p.items[i]
			p.editing = &e
			return true
		}
	}
	return false
}

// CancelEdit drops the edit selection.
func (p *Page) CancelEdit() { p.editing = nil }

// Editing returns the record selected for editing.
func (p *Page) Editing() (core.Expense, bool) {
	if p.editing == nil {
		return core.Expense{}, false
	}
	return *p.editing, true
}

// Form returns the form for the current selection, blank in create mode.
func (p *Page) Form() Form {
	if e, ok := p.Editing(); ok {
		return FormFromExpense(e)
	}
	return Form{}
}

// Export reloads the active filter and writes it through the exporter.
func (p *Page) Export(ctx context.Context) (string, error) {
	if p.exporter == nil {
		p.Error = "Export is not configured"
		return "", ErrExportDisabled
	}
	if err := p.refetch(ctx); err != nil {
		return "", err
	}
	ref, err := p.exporter.ExportExpenses(ctx, p.username(ctx), p.filter, p.items)
	if err != nil {
		p.Error = "Export failed"
		p.logger.ErrorContext(ctx, "Export failed",
			log.NewFields().WithOperation(log.OpExport).WithError(err).ToSlice()...)
		return "", err
	}
	p.Notice = "Exported to " + ref
	return ref, nil
}

func (p *Page) fail(ctx context.Context, op string, err error) {
	p.Error = api.Message(err)
	fields := log.NewFields().WithOperation(op).WithError(err)
	if api.IsUnauthorized(err) {
		if cerr := p.store.Clear(ctx); cerr != nil {
			p.logger.WarnContext(ctx, "Failed to clear session", log.FieldError, cerr.Error())
		}
		p.Redirect = LoginPath
		p.logger.InfoContext(ctx, "Session rejected by API", fields.WithErrorType(log.ErrorTypeAuth).ToSlice()...)
		return
	}
	errType := log.ErrorTypeServer
	if api.IsNetwork(err) {
		errType = log.ErrorTypeNetwork
	}
	p.logger.WarnContext(ctx, "Expense request failed", fields.WithErrorType(errType).ToSlice()...)
}

func (p *Page) publish(ctx context.Context, t events.Type, id int64, e *core.Expense) {
	if p.publisher == nil {
		return
	}
	ev := events.NewEvent(t, p.username(ctx), id, e)
	if err := p.publisher.Publish(ctx, ev); err != nil {
		p.logger.WarnContext(ctx, "Failed to publish activity event",
			log.NewFields().
				WithOperation(log.OpPublish).
				WithError(err).
				ToSlice()...)
	}
}

func (p *Page) username(ctx context.Context) string {
	if s, ok := p.store.Load(ctx); ok {
		return s.Username
	}
	return ""
}
