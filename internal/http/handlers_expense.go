package http

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"

	"expensetracker/internal/core"
	"expensetracker/internal/expenses"
	"expensetracker/internal/log"
	"expensetracker/internal/session"
)

// expenseRequest is the per-request state of an expense route.
type expenseRequest struct {
	store    *session.Store
	session  session.Session
	page     *expenses.Page
	filter   FilterParams
	dates    core.DateRange
	errs     expenses.FieldErrors
	rejected bool
}

// beginExpenses resolves the session and filter for an expense route. It
// answers the request itself and returns nil when there is no session.
func (s *Server) beginExpenses(w http.ResponseWriter, r *http.Request) *expenseRequest {
	store, sess, ok := s.currentSession(r.Context(), r)
	if !ok {
		s.unauthorized(w, r, store)
		return nil
	}
	values := r.URL.Query()
	if r.Method != http.MethodGet {
		if resp := ParseFormOrFail(w, r); resp != nil {
			resp.Write(w)
			return nil
		}
		values = r.Form
	}
	er := &expenseRequest{
		store:   store,
		session: sess,
		filter:  ParseFilterParams(values),
		page: expenses.NewPage(s.api, store,
			expenses.WithPublisher(s.publisher),
			expenses.WithExporter(s.exporter),
			expenses.WithLogger(log.FromContext(r.Context()))),
	}
	er.dates, er.errs = expenses.ParseFilter(er.filter.Start, er.filter.End)
	er.page.SetFilter(er.dates)
	return er
}

// load fetches the list for the request filter. It reports false after
// answering an unauthorized request.
func (s *Server) load(w http.ResponseWriter, r *http.Request, er *expenseRequest) bool {
	if len(er.errs) == 0 {
		_ = er.page.Fetch(r.Context(), er.dates)
	}
	return s.checkSession(w, r, er)
}

func (s *Server) checkSession(w http.ResponseWriter, r *http.Request, er *expenseRequest) bool {
	if er.page.Unauthorized() {
		s.unauthorized(w, r, er.store)
		return false
	}
	return true
}

func (s *Server) panel(er *expenseRequest, form expenses.Form) panelView {
	p := s.newPanel(er.page, form, er.filter)
	p.FilterErrors = er.errs
	return p
}

// panelStatus maps the page outcome to a response code.
func panelStatus(page *expenses.Page, form expenses.Form) int {
	switch {
	case len(form.Errors) > 0:
		return http.StatusUnprocessableEntity
	case page.Error != "":
		return http.StatusBadGateway
	default:
		return http.StatusOK
	}
}

func (s *Server) handleExpensesPage(w http.ResponseWriter, r *http.Request) {
	er := s.beginExpenses(w, r)
	if er == nil || !s.load(w, r, er) {
		return
	}
	s.render(w, r, http.StatusOK, "expenses.html", pageView{
		Title:    "Expenses",
		Username: er.session.Username,
		Panel:    s.panel(er, expenses.Form{}),
	})
}

func (s *Server) handleExpenseList(w http.ResponseWriter, r *http.Request) {
	er := s.beginExpenses(w, r)
	if er == nil || !s.load(w, r, er) {
		return
	}
	if len(er.errs) > 0 {
		ErrorResponse(http.StatusUnprocessableEntity, firstError(er.errs)).Write(w)
		return
	}
	s.render(w, r, panelStatus(er.page, expenses.Form{}), "expense_list", er.page.List())
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	er := s.beginExpenses(w, r)
	if er == nil {
		return
	}
	form := ParseExpenseForm(r.PostForm)
	s.mutate(w, r, er, &form, func(ctx context.Context, in core.ExpenseInput) error {
		return er.page.Create(ctx, in)
	})
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, err := ParseExpenseID(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	er := s.beginExpenses(w, r)
	if er == nil {
		return
	}
	form := ParseExpenseForm(r.PostForm)
	form.ID = id
	s.mutate(w, r, er, &form, func(ctx context.Context, in core.ExpenseInput) error {
		return er.page.Update(ctx, id, in)
	})
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, err := ParseExpenseID(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	er := s.beginExpenses(w, r)
	if er == nil {
		return
	}
	err = er.page.Delete(r.Context(), id)
	if !s.checkSession(w, r, er) {
		return
	}
	if expenses.Saved(err) {
		atomic.AddInt64(&s.appMetrics.mutations, 1)
	}
	s.respondPanel(w, r, er, expenses.Form{}, err == nil)
}

// mutate validates form and runs save. Invalid input never reaches save; the
// list is still loaded so the panel can be redrawn.
func (s *Server) mutate(w http.ResponseWriter, r *http.Request, er *expenseRequest, form *expenses.Form, save func(context.Context, core.ExpenseInput) error) {
	err := form.Submit(func(in core.ExpenseInput) error {
		return save(r.Context(), in)
	})
	if errors.Is(err, expenses.ErrInvalidForm) {
		if !s.load(w, r, er) {
			return
		}
		s.respondPanel(w, r, er, *form, false)
		return
	}
	if !s.checkSession(w, r, er) {
		return
	}
	if expenses.Saved(err) {
		atomic.AddInt64(&s.appMetrics.mutations, 1)
	}
	s.respondPanel(w, r, er, *form, err == nil)
}

// respondPanel redraws the panel for htmx. Plain form posts are redirected
// back to the page on success and shown the full page otherwise.
func (s *Server) respondPanel(w http.ResponseWriter, r *http.Request, er *expenseRequest, form expenses.Form, ok bool) {
	if !IsHTMX(r) {
		if ok {
			http.Redirect(w, r, "/expenses"+er.filter.Query(), http.StatusSeeOther)
			return
		}
		s.render(w, r, panelStatus(er.page, form), "expenses.html", pageView{
			Title:    "Expenses",
			Username: er.session.Username,
			Panel:    s.panel(er, form),
		})
		return
	}

	resp := NewHTMXResponse().Status(panelStatus(er.page, form))
	if ok {
		list := er.page.List()
		resp.TriggerExpensesChanged(len(list.Rows), list.Total)
	}
	s.renderResponse(w, r, resp, "expense_panel", s.panel(er, form))
}

func (s *Server) handleEditForm(w http.ResponseWriter, r *http.Request) {
	id, err := ParseExpenseID(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	er := s.beginExpenses(w, r)
	if er == nil || !s.load(w, r, er) {
		return
	}
	if er.page.Error != "" {
		ErrorResponse(http.StatusBadGateway, er.page.Error).Write(w)
		return
	}
	widened := false
	if !er.page.SelectEdit(id) {
		// The record may sit outside the active filter.
		widened = true
		if err := er.page.Fetch(r.Context(), core.DateRange{}); err != nil || !er.page.SelectEdit(id) {
			if !s.checkSession(w, r, er) {
				return
			}
			NotFoundError("Expense not found").Write(w)
			return
		}
	}
	form := er.page.Form()
	if IsHTMX(r) {
		s.render(w, r, http.StatusOK, "expense_form", newFormView(form))
		return
	}

	// Plain navigation gets the whole page with the form in edit mode.
	if widened && len(er.errs) == 0 {
		if !s.load(w, r, er) {
			return
		}
	}
	s.render(w, r, panelStatus(er.page, form), "expenses.html", pageView{
		Title:    "Expenses",
		Username: er.session.Username,
		Panel:    s.panel(er, form),
	})
}

func (s *Server) handleBlankForm(w http.ResponseWriter, r *http.Request) {
	if _, _, ok := s.currentSession(r.Context(), r); !ok {
		s.unauthorized(w, r, nil)
		return
	}
	s.render(w, r, http.StatusOK, "expense_form", newFormView(expenses.Form{}))
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	er := s.beginExpenses(w, r)
	if er == nil {
		return
	}
	if len(er.errs) > 0 {
		if s.load(w, r, er) {
			s.respondPanel(w, r, er, expenses.Form{}, false)
		}
		return
	}
	_, err := er.page.Export(r.Context())
	if !s.checkSession(w, r, er) {
		return
	}
	if err == nil {
		atomic.AddInt64(&s.appMetrics.exports, 1)
	}
	if !IsHTMX(r) && err == nil {
		// Keep the notice visible instead of redirecting it away.
		s.render(w, r, http.StatusOK, "expenses.html", pageView{
			Title:    "Expenses",
			Username: er.session.Username,
			Panel:    s.panel(er, expenses.Form{}),
		})
		return
	}
	s.respondPanel(w, r, er, expenses.Form{}, false)
}

func firstError(errs expenses.FieldErrors) string {
	for _, k := range []string{expenses.FieldStartDate, expenses.FieldEndDate, ""} {
		if msg, ok := errs[k]; ok {
			return msg
		}
	}
	return "Invalid filter"
}
