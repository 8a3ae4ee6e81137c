package http

import (
	"context"
	"errors"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"expensetracker/internal/auth"
	"expensetracker/internal/expenses"
	"expensetracker/internal/export"
	"expensetracker/internal/log"
	"expensetracker/internal/middleware/ratelimit"
	"expensetracker/internal/middleware/security"
	"expensetracker/internal/middleware/trace"
	"expensetracker/internal/session"
	appweb "expensetracker/web"
)

// APIClient is the REST client surface the handlers use.
type APIClient interface {
	auth.Authenticator
	expenses.API
}

// CookieConfig describes the browser session cookie.
type CookieConfig struct {
	Name   string
	Secure bool
	MaxAge time.Duration
}

// Options wires the server's collaborators. Publisher and Exporter are
// optional.
type Options struct {
	Addr      string
	Logger    *log.Logger
	API       APIClient
	Sessions  session.Backend
	Verifier  session.Verifier
	Cookie    CookieConfig
	Publisher expenses.Publisher
	Exporter  export.ExpenseExporter

	// SessionPing checks the session backend for readiness.
	SessionPing    func(context.Context) error
	SessionBackend string

	TrustedProxies []string
	RateLimit      ratelimit.Config
}

type Server struct {
	http.Server

	logger    *log.Logger
	templates *template.Template
	api       APIClient
	sessions  session.Backend
	verifier  session.Verifier
	cookie    CookieConfig
	publisher expenses.Publisher
	exporter  export.ExpenseExporter

	sessionPing    func(context.Context) error
	sessionBackend string

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware
	appMetrics       *appMetrics

	shutdownOnce sync.Once
}

// NewServer configures routes, middleware and templates, returning a
// ready-to-run server.
func NewServer(opts Options) (*Server, error) {
	if opts.API == nil || opts.Sessions == nil {
		return nil, errors.New("http server requires an API client and a session backend")
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}
	if opts.Cookie.Name == "" {
		opts.Cookie.Name = "expense_session"
	}
	if opts.Verifier == nil {
		opts.Verifier = session.TrustVerifier{}
	}

	detector, err := security.NewDetector(opts.TrustedProxies, logger)
	if err != nil {
		return nil, err
	}

	s := &Server{
		Server:           http.Server{Addr: opts.Addr, ReadHeaderTimeout: 10 * time.Second},
		logger:           logger.WithComponent(log.ComponentHTTP),
		api:              opts.API,
		sessions:         opts.Sessions,
		verifier:         opts.Verifier,
		cookie:           opts.Cookie,
		publisher:        opts.Publisher,
		exporter:         opts.Exporter,
		sessionPing:      opts.SessionPing,
		sessionBackend:   opts.SessionBackend,
		rateLimiter:      ratelimit.NewLimiter(opts.RateLimit),
		securityDetector: detector,
		traceMiddleware:  trace.NewMiddleware(logger, detector.ExtractClientIP),
		appMetrics:       newAppMetrics(),
	}

	t, err := parseTemplates()
	if err != nil {
		s.logger.Error("Failed parsing templates", log.FieldError, err.Error(), log.FieldErrorType, log.ErrorTypeConfiguration)
	}
	s.templates = t

	s.Handler = s.routes()
	return s, nil
}

func parseTemplates() (*template.Template, error) {
	return template.ParseFS(appweb.TemplatesFS, "templates/*.html")
}

func (s *Server) routes() http.Handler {
	r := mux.NewRouter()

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		r.PathPrefix("/static/").Handler(security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err.Error())
	}

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)
	r.HandleFunc("/metrics", s.handleMetrics).Methods(http.MethodGet)

	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/login", s.handleLoginPage).Methods(http.MethodGet)
	r.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/register", s.handleRegisterPage).Methods(http.MethodGet)
	r.HandleFunc("/register", s.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/logout", s.handleLogout).Methods(http.MethodPost)

	r.HandleFunc("/expenses", s.handleExpensesPage).Methods(http.MethodGet)
	r.HandleFunc("/expenses", s.handleCreateExpense).Methods(http.MethodPost)
	r.HandleFunc("/expenses/export", s.handleExport).Methods(http.MethodPost)
	r.HandleFunc("/expenses/{id:[0-9]+}", s.handleUpdateExpense).Methods(http.MethodPut, http.MethodPost)
	r.HandleFunc("/expenses/{id:[0-9]+}", s.handleDeleteExpense).Methods(http.MethodDelete)
	r.HandleFunc("/expenses/{id:[0-9]+}/delete", s.handleDeleteExpense).Methods(http.MethodPost)

	r.HandleFunc("/ui/expenses", s.handleExpenseList).Methods(http.MethodGet)
	r.HandleFunc("/ui/expenses/{id:[0-9]+}/edit", s.handleEditForm).Methods(http.MethodGet)
	r.HandleFunc("/ui/expense-form", s.handleBlankForm).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("Page not found").Write(w)
	})

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	limit := s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, ratelimit.Mutating, s.onRateLimited)

	var h http.Handler = r
	h = limit(h)
	h = headers.Middleware(h)
	h = s.securityDetector.Middleware(h)
	h = log.Middleware(s.logger, func(r *http.Request) string { return trace.GetRequestID(r.Context()) })(h)
	h = s.traceMiddleware.Middleware(h)
	return h
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	s.logger.WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.securityDetector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "Too many requests. Please try again later.").Write(w)
}

// Shutdown stops background work and gracefully shuts down the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
