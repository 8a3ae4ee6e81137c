package http

import (
	"bytes"
	"net/http"

	"expensetracker/internal/auth"
	"expensetracker/internal/core"
	"expensetracker/internal/expenses"
	"expensetracker/internal/log"
)

type categoryOption struct {
	Code     string
	Label    string
	Selected bool
}

type formView struct {
	Form       expenses.Form
	Categories []categoryOption
}

type panelView struct {
	Form          formView
	StartDate     string
	EndDate       string
	FilterErrors  expenses.FieldErrors
	List          expenses.List
	Error         string
	Notice        string
	ExportEnabled bool
}

type pageView struct {
	Title    string
	Username string
	Panel    panelView
}

type authView struct {
	Title       string
	Username    string
	Values      auth.Values
	FieldErrors auth.FieldErrors
	Message     string
	Notice      string
}

func newFormView(f expenses.Form) formView {
	opts := make([]categoryOption, 0, len(core.Categories))
	for _, c := range core.Categories {
		opts = append(opts, categoryOption{
			Code:     c.String(),
			Label:    c.Label(),
			Selected: f.Category == c.String(),
		})
	}
	return formView{Form: f, Categories: opts}
}

func (s *Server) newPanel(page *expenses.Page, form expenses.Form, filter FilterParams) panelView {
	return panelView{
		Form:          newFormView(form),
		StartDate:     filter.Start,
		EndDate:       filter.End,
		List:          page.List(),
		Error:         page.Error,
		Notice:        page.Notice,
		ExportEnabled: s.exporter != nil,
	}
}

// render executes a template into a buffer so a failed render never leaves
// a half-written response.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	s.renderResponse(w, r, NewHTMXResponse().Status(status), name, data)
}

// renderResponse is render with a caller-prepared builder for extra headers.
func (s *Server) renderResponse(w http.ResponseWriter, r *http.Request, resp *HTMXResponseBuilder, name string, data any) {
	if s.templates == nil {
		s.logger.ErrorContext(r.Context(), "Templates not loaded",
			log.FieldPath, r.URL.Path,
			log.FieldErrorType, log.ErrorTypeConfiguration)
		InternalServerError("templates not loaded").Write(w)
		return
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.ErrorContext(r.Context(), "Template execution failed",
			log.NewFields().
				WithComponent(log.ComponentTemplate).
				WithOperation(log.OpRender).
				WithError(err).
				ToSlice()...)
		InternalServerError("Error rendering page").Write(w)
		return
	}
	resp.BodyHTML(buf.Bytes()).Write(w)
}
