package http

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"expensetracker/internal/auth"
	"expensetracker/internal/log"
)

type appMetrics struct {
	uptime       time.Time
	logins       int64
	loginFails   int64
	registers    int64
	mutations    int64
	unauthorized int64
	exports      int64
}

func newAppMetrics() *appMetrics { return &appMetrics{uptime: time.Now()} }

func (m *appMetrics) incUnauthorized() { atomic.AddInt64(&m.unauthorized, 1) }

// handleHealth performs basic liveness check.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.uptime).String(),
	})
}

// handleReady checks the templates and the session backend.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := map[string]any{}

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	backend := map[string]any{"type": s.sessionBackend, "status": "ok"}
	if s.sessionPing != nil {
		if err := s.sessionPing(ctx); err != nil {
			backend["status"] = fmt.Sprintf("failed: %v", err)
			status, httpStatus = "not_ready", http.StatusServiceUnavailable
		}
	}
	checks["session_backend"] = backend
	checks["rate_limiter"] = map[string]any{"active_clients": s.rateLimiter.ActiveClients()}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics writes counters in the Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	traceMetrics := s.traceMiddleware.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	securityMetrics := s.securityDetector.GetMetrics()

	metric := func(name, kind, help string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %v\n\n", name, help, name, kind, name, value)
	}
	metric("http_requests_total", "counter", "Total number of HTTP requests", traceMetrics.TotalRequests)
	metric("http_server_errors_total", "counter", "Responses with a 5xx status", traceMetrics.ErrorResponses)
	metric("logins_total", "counter", "Successful sign-ins", atomic.LoadInt64(&s.appMetrics.logins))
	metric("login_failures_total", "counter", "Failed sign-in attempts", atomic.LoadInt64(&s.appMetrics.loginFails))
	metric("registrations_total", "counter", "Successful registrations", atomic.LoadInt64(&s.appMetrics.registers))
	metric("expense_mutations_total", "counter", "Successful creates, updates and deletes", atomic.LoadInt64(&s.appMetrics.mutations))
	metric("expense_exports_total", "counter", "Successful sheet exports", atomic.LoadInt64(&s.appMetrics.exports))
	metric("sessions_rejected_total", "counter", "Sessions dropped after an authentication failure", atomic.LoadInt64(&s.appMetrics.unauthorized))
	metric("rate_limit_hits_total", "counter", "Total rate limit hits", rateLimitMetrics.TotalHits)
	metric("active_rate_limit_clients", "gauge", "Currently tracked rate limit clients", rateLimitMetrics.ClientCount)
	metric("suspicious_requests_total", "counter", "Total suspicious requests detected", securityMetrics.SuspiciousRequests)
	metric("uptime_seconds", "gauge", "Application uptime in seconds", int64(time.Since(s.appMetrics.uptime).Seconds()))
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if _, _, ok := s.currentSession(r.Context(), r); ok {
		http.Redirect(w, r, auth.LoginSuccessPath, http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if _, _, ok := s.currentSession(r.Context(), r); ok {
		http.Redirect(w, r, auth.LoginSuccessPath, http.StatusSeeOther)
		return
	}
	view := authView{Title: "Log in"}
	if r.URL.Query().Get("registered") == "1" {
		view.Notice = auth.RegisteredMessage
	}
	s.render(w, r, http.StatusOK, "login.html", view)
}

func (s *Server) handleRegisterPage(w http.ResponseWriter, r *http.Request) {
	if _, _, ok := s.currentSession(r.Context(), r); ok {
		http.Redirect(w, r, auth.LoginSuccessPath, http.StatusSeeOther)
		return
	}
	s.render(w, r, http.StatusOK, "register.html", authView{Title: "Register"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(w, r); resp != nil {
		resp.Write(w)
		return
	}
	id := uuid.NewString()
	flow := auth.NewLoginFlow(s.api, s.storeFor(id), s.logger.WithComponent(log.ComponentAuth))
	flow.Submit(r.Context(), ParseAuthValues(r.PostForm))

	if flow.Succeeded() {
		s.rotateSession(w, r, id)
		atomic.AddInt64(&s.appMetrics.logins, 1)
		redirect(w, r, flow.Redirect)
		return
	}
	atomic.AddInt64(&s.appMetrics.loginFails, 1)
	s.renderAuth(w, r, flow, "Log in", "login.html", "login_form")
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(w, r); resp != nil {
		resp.Write(w)
		return
	}
	flow := auth.NewRegisterFlow(s.api, s.logger.WithComponent(log.ComponentAuth))
	flow.Submit(r.Context(), ParseAuthValues(r.PostForm))

	if flow.Succeeded() {
		atomic.AddInt64(&s.appMetrics.registers, 1)
		redirect(w, r, flow.Redirect+"?registered=1")
		return
	}
	s.renderAuth(w, r, flow, "Register", "register.html", "register_form")
}

// renderAuth shows a failed attempt: the form fragment for htmx, the whole
// page otherwise.
func (s *Server) renderAuth(w http.ResponseWriter, r *http.Request, flow *auth.Flow, title, page, fragment string) {
	view := authView{
		Title:       title,
		Values:      flow.Values,
		FieldErrors: flow.FieldErrors,
		Message:     flow.Message,
	}
	status := http.StatusUnprocessableEntity
	if len(flow.FieldErrors) == 0 {
		status = http.StatusOK
	}
	if IsHTMX(r) {
		s.render(w, r, status, fragment, view)
		return
	}
	s.render(w, r, status, page, view)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if id, ok := s.sessionID(r); ok {
		if err := s.storeFor(id).Clear(r.Context()); err != nil {
			s.logger.WarnContext(r.Context(), "Failed to clear session on logout", log.FieldError, err.Error())
		}
	}
	s.expireCookie(w)
	s.logger.InfoContext(r.Context(), "User signed out", log.FieldOperation, log.OpLogout)
	redirect(w, r, "/login")
}
