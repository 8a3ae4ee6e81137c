package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensetracker/internal/api"
	"expensetracker/internal/core"
	"expensetracker/internal/events"
	"expensetracker/internal/expenses"
	exportmem "expensetracker/internal/export/memory"
	"expensetracker/internal/middleware/ratelimit"
	"expensetracker/internal/session"
	"expensetracker/internal/session/memory"
)

// fakeAPI is an in-memory expense service. Password "secret" signs in.
type fakeAPI struct {
	mu     sync.Mutex
	items  []core.Expense
	nextID int64

	listErr   error
	createErr error
}

func (f *fakeAPI) Login(ctx context.Context, store api.SessionStore, identifier, password string) (session.Session, error) {
	_ = store.Clear(ctx)
	if password != "secret" {
		return session.Session{}, &api.Error{Status: http.StatusUnauthorized, Message: "Bad credentials"}
	}
	sess := session.Session{ID: 1, Username: identifier, AccessToken: "token-" + identifier}
	return sess, store.Save(ctx, sess)
}

func (f *fakeAPI) Register(_ context.Context, username, _, _ string) (string, error) {
	if username == "taken" {
		return "", &api.Error{Status: http.StatusBadRequest, Message: "Error: Username is already taken!"}
	}
	return "User registered successfully!", nil
}

func (f *fakeAPI) ListExpenses(_ context.Context, _ api.SessionStore, r core.DateRange) ([]core.Expense, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []core.Expense
	for _, e := range f.items {
		if r.Contains(e.Date) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeAPI) CreateExpense(_ context.Context, _ api.SessionStore, in core.ExpenseInput) (core.Expense, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return core.Expense{}, f.createErr
	}
	f.nextID++
	e := core.Expense{ID: f.nextID, ExpenseInput: in}
	f.items = append(f.items, e)
	return e, nil
}

func (f *fakeAPI) UpdateExpense(_ context.Context, _ api.SessionStore, id int64, in core.ExpenseInput) (core.Expense, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.items {
		if f.items[i].ID == id {
			f.items[i].ExpenseInput = in
			return f.items[i], nil
		}
	}
	return core.Expense{}, &api.Error{Status: http.StatusNotFound, Message: "Expense not found"}
}

func (f *fakeAPI) DeleteExpense(_ context.Context, _ api.SessionStore, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.items {
		if f.items[i].ID == id {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return nil
		}
	}
	return &api.Error{Status: http.StatusNotFound, Message: "Expense not found"}
}

func (f *fakeAPI) seed(desc, amount, date string) {
	m, _ := core.ParseAmount(amount)
	d, _ := core.ParseDate(date)
	f.nextID++
	f.items = append(f.items, core.Expense{ID: f.nextID, ExpenseInput: core.ExpenseInput{
		Description: desc, Amount: m, Category: core.Food, Date: d,
	}})
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

type testServer struct {
	*Server
	api      *fakeAPI
	sessions *memory.Backend
}

func newTestServer(t *testing.T, mutate ...func(*Options)) *testServer {
	t.Helper()
	fake := &fakeAPI{}
	backend := memory.New(100, time.Hour)
	opts := Options{
		Addr:      ":0",
		API:       fake,
		Sessions:  backend,
		Cookie:    CookieConfig{Name: "expense_session", MaxAge: time.Hour},
		RateLimit: ratelimit.Config{RequestsPerSecond: 100, Burst: 100},
	}
	for _, m := range mutate {
		m(&opts)
	}
	srv, err := NewServer(opts)
	require.NoError(t, err)
	require.NotNil(t, srv.templates)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return &testServer{Server: srv, api: fake, sessions: backend}
}

func (ts *testServer) do(req *http.Request, cookie *http.Cookie) *httptest.ResponseRecorder {
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rr := httptest.NewRecorder()
	ts.Handler.ServeHTTP(rr, req)
	return rr
}

func formRequest(method, target string, values url.Values) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func htmx(req *http.Request) *http.Request {
	req.Header.Set("HX-Request", "true")
	return req
}

func sessionCookie(t *testing.T, rr *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == "expense_session" {
			return c
		}
	}
	t.Fatalf("no session cookie in response")
	return nil
}

func (ts *testServer) login(t *testing.T, username string) *http.Cookie {
	t.Helper()
	rr := ts.do(formRequest(http.MethodPost, "/login", url.Values{
		"identifier": {username},
		"password":   {"secret"},
	}), nil)
	require.Equal(t, http.StatusSeeOther, rr.Code)
	require.Equal(t, "/expenses", rr.Header().Get("Location"))
	return sessionCookie(t, rr)
}

func TestHealthReadyAndMetrics(t *testing.T) {
	pinged := false
	ts := newTestServer(t, func(o *Options) {
		o.SessionBackend = "memory"
		o.SessionPing = func(context.Context) error { pinged = true; return nil }
	})

	rr := ts.do(httptest.NewRequest(http.MethodGet, "/healthz", nil), nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"status":"ok"`)

	rr = ts.do(httptest.NewRequest(http.MethodGet, "/readyz", nil), nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"status":"ready"`)
	assert.True(t, pinged)

	rr = ts.do(httptest.NewRequest(http.MethodGet, "/metrics", nil), nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "logins_total 0")
	assert.Contains(t, rr.Body.String(), "# TYPE uptime_seconds gauge")
}

func TestReadyFailsWhenBackendDown(t *testing.T) {
	ts := newTestServer(t, func(o *Options) {
		o.SessionPing = func(context.Context) error { return context.DeadlineExceeded }
	})
	rr := ts.do(httptest.NewRequest(http.MethodGet, "/readyz", nil), nil)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), "not_ready")
}

func TestSecurityHeadersAndRequestID(t *testing.T) {
	ts := newTestServer(t)
	rr := ts.do(httptest.NewRequest(http.MethodGet, "/login", nil), nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
	assert.Contains(t, rr.Header().Get("Content-Security-Policy"), "https://unpkg.com")
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
}

func TestAnonymousRequestsGoToLogin(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do(httptest.NewRequest(http.MethodGet, "/", nil), nil)
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/login", rr.Header().Get("Location"))

	rr = ts.do(httptest.NewRequest(http.MethodGet, "/expenses", nil), nil)
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/login", rr.Header().Get("Location"))

	rr = ts.do(htmx(httptest.NewRequest(http.MethodGet, "/ui/expenses", nil)), nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "/login", rr.Header().Get("HX-Redirect"))
}

func TestLoginPageRendersForm(t *testing.T) {
	ts := newTestServer(t)
	rr := ts.do(httptest.NewRequest(http.MethodGet, "/login?registered=1", nil), nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `id="auth-form"`)
	assert.Contains(t, rr.Body.String(), "Registration successful!")
}

func TestLoginSetsCookieAndSession(t *testing.T) {
	ts := newTestServer(t)
	cookie := ts.login(t, "ada")
	assert.True(t, cookie.HttpOnly)

	raw, err := ts.sessions.Get(context.Background(), "session:"+cookie.Value+":user")
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"username":"ada"`)

	// A signed-in user skips the login page.
	rr := ts.do(httptest.NewRequest(http.MethodGet, "/login", nil), cookie)
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/expenses", rr.Header().Get("Location"))
}

func TestLoginReplacesPreexistingCookie(t *testing.T) {
	ts := newTestServer(t)
	planted := &http.Cookie{Name: "expense_session", Value: "11111111-2222-3333-4444-555555555555"}

	rr := ts.do(formRequest(http.MethodPost, "/login", url.Values{
		"identifier": {"ada"},
		"password":   {"secret"},
	}), planted)
	require.Equal(t, http.StatusSeeOther, rr.Code)
	issued := sessionCookie(t, rr)
	assert.NotEqual(t, planted.Value, issued.Value)

	rr = ts.do(httptest.NewRequest(http.MethodGet, "/expenses", nil), planted)
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/login", rr.Header().Get("Location"))

	rr = ts.do(httptest.NewRequest(http.MethodGet, "/expenses", nil), issued)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestLoginFailureIssuesNoCookie(t *testing.T) {
	ts := newTestServer(t)
	rr := ts.do(formRequest(http.MethodPost, "/login", url.Values{
		"identifier": {"ada"},
		"password":   {"wrong"},
	}), nil)
	assert.Empty(t, rr.Result().Cookies())
}

func TestLoginValidationAndFailure(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do(htmx(formRequest(http.MethodPost, "/login", url.Values{"identifier": {""}, "password": {""}})), nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), "Username or Email is required")
	assert.Contains(t, rr.Body.String(), "Password is required")

	rr = ts.do(htmx(formRequest(http.MethodPost, "/login", url.Values{"identifier": {"ada"}, "password": {"wrong"}})), nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Bad credentials")
	assert.Empty(t, rr.Header().Get("HX-Redirect"))
}

func TestLoginOverHTMXRedirectsWithHeader(t *testing.T) {
	ts := newTestServer(t)
	rr := ts.do(htmx(formRequest(http.MethodPost, "/login", url.Values{"identifier": {"ada@example.com"}, "password": {"secret"}})), nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "/expenses", rr.Header().Get("HX-Redirect"))
}

func TestRegister(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do(formRequest(http.MethodPost, "/register", url.Values{
		"username": {"ada"}, "email": {"ada@example.com"}, "password": {"secret1"},
	}), nil)
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/login?registered=1", rr.Header().Get("Location"))

	rr = ts.do(htmx(formRequest(http.MethodPost, "/register", url.Values{
		"username": {"ada"}, "email": {"not-an-email"}, "password": {"123"},
	})), nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), "Email is invalid")
	assert.Contains(t, rr.Body.String(), "Password must be at least 6 characters")

	rr = ts.do(htmx(formRequest(http.MethodPost, "/register", url.Values{
		"username": {"taken"}, "email": {"t@example.com"}, "password": {"secret1"},
	})), nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Username is already taken")
}

func TestExpensesPageListsRecords(t *testing.T) {
	ts := newTestServer(t)
	ts.api.seed("Lunch", "12.50", "2025-09-01")
	ts.api.seed("Dinner", "30", "2025-09-03")
	cookie := ts.login(t, "ada")

	rr := ts.do(httptest.NewRequest(http.MethodGet, "/expenses", nil), cookie)
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "Lunch")
	assert.Contains(t, body, "Dinner")
	assert.Contains(t, body, "42.50")
	assert.Contains(t, body, `id="expense-panel"`)
}

func TestExpenseListFilterAndEmpty(t *testing.T) {
	ts := newTestServer(t)
	ts.api.seed("Lunch", "12.50", "2025-09-01")
	ts.api.seed("Dinner", "30", "2025-09-03")
	cookie := ts.login(t, "ada")

	rr := ts.do(htmx(httptest.NewRequest(http.MethodGet, "/ui/expenses?startDate=2025-09-02", nil)), cookie)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, rr.Body.String(), "Lunch")
	assert.Contains(t, rr.Body.String(), "30.00")

	rr = ts.do(htmx(httptest.NewRequest(http.MethodGet, "/ui/expenses?startDate=2030-01-01", nil)), cookie)
	assert.Contains(t, rr.Body.String(), "No expenses found")
	assert.Contains(t, rr.Body.String(), "0.00")

	rr = ts.do(htmx(httptest.NewRequest(http.MethodGet, "/ui/expenses?startDate=2025-09-05&endDate=2025-09-01", nil)), cookie)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), "Start date must not be after end date")
}

func TestUnauthorizedResponseClearsSession(t *testing.T) {
	ts := newTestServer(t)
	cookie := ts.login(t, "ada")
	ts.api.listErr = &api.Error{Status: http.StatusUnauthorized, Message: "Unauthorized"}

	rr := ts.do(htmx(httptest.NewRequest(http.MethodGet, "/ui/expenses", nil)), cookie)
	assert.Equal(t, "/login", rr.Header().Get("HX-Redirect"))
	expired := sessionCookie(t, rr)
	assert.Equal(t, -1, expired.MaxAge)

	_, err := ts.sessions.Get(context.Background(), "session:"+cookie.Value+":user")
	assert.ErrorIs(t, err, session.ErrNotFound)

	rr = ts.do(httptest.NewRequest(http.MethodGet, "/metrics", nil), nil)
	assert.Contains(t, rr.Body.String(), "sessions_rejected_total 1")
}

func TestCreateExpense(t *testing.T) {
	pub := &recordingPublisher{}
	ts := newTestServer(t, func(o *Options) { o.Publisher = pub })
	cookie := ts.login(t, "ada")

	rr := ts.do(htmx(formRequest(http.MethodPost, "/expenses", url.Values{
		"description": {"Lunch"}, "amount": {"12,50"}, "category": {"FOOD"}, "date": {"2025-09-01"},
	})), cookie)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Lunch")
	assert.Contains(t, rr.Body.String(), "12.50")
	assert.Contains(t, rr.Header().Get("HX-Trigger"), "expenses:changed")

	require.Len(t, ts.api.items, 1)
	assert.Equal(t, "12.5", ts.api.items[0].Amount.String())

	require.Len(t, pub.events, 1)
	assert.Equal(t, events.ExpenseCreated, pub.events[0].Type)
	assert.Equal(t, "ada", pub.events[0].Username)
}

func TestCreateExpenseValidation(t *testing.T) {
	ts := newTestServer(t)
	cookie := ts.login(t, "ada")

	rr := ts.do(htmx(formRequest(http.MethodPost, "/expenses", url.Values{
		"description": {""}, "amount": {"abc"}, "category": {"NOPE"}, "date": {"2025-13-01"},
	})), cookie)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "Description is required")
	assert.Contains(t, body, "Amount must be a number")
	assert.Empty(t, ts.api.items)
	assert.Empty(t, rr.Header().Get("HX-Trigger"))
}

func TestCreateExpenseUpstreamFailure(t *testing.T) {
	ts := newTestServer(t)
	ts.api.seed("Lunch", "12.50", "2025-09-01")
	cookie := ts.login(t, "ada")
	ts.api.createErr = &api.Error{Status: http.StatusInternalServerError, Message: "Something broke"}

	rr := ts.do(htmx(formRequest(http.MethodPost, "/expenses", url.Values{
		"description": {"Dinner"}, "amount": {"30"}, "category": {"FOOD"}, "date": {"2025-09-02"},
	})), cookie)
	assert.Equal(t, http.StatusBadGateway, rr.Code)
	assert.Contains(t, rr.Body.String(), "Something broke")
	// The list is still shown.
	assert.Contains(t, rr.Body.String(), "Lunch")
}

func TestPlainCreateRedirectsKeepingFilter(t *testing.T) {
	ts := newTestServer(t)
	cookie := ts.login(t, "ada")

	rr := ts.do(formRequest(http.MethodPost, "/expenses", url.Values{
		"description": {"Lunch"}, "amount": {"5"}, "category": {"food"}, "date": {"2025-09-01"},
		"startDate": {"2025-09-01"},
	}), cookie)
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/expenses?startDate=2025-09-01", rr.Header().Get("Location"))
}

func TestEditUpdateAndDelete(t *testing.T) {
	ts := newTestServer(t)
	ts.api.seed("Lunch", "12.50", "2025-09-01")
	cookie := ts.login(t, "ada")

	rr := ts.do(htmx(httptest.NewRequest(http.MethodGet, "/ui/expenses/1/edit", nil)), cookie)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `hx-put="/expenses/1"`)
	assert.Contains(t, rr.Body.String(), `value="Lunch"`)

	rr = ts.do(htmx(httptest.NewRequest(http.MethodGet, "/ui/expenses/99/edit", nil)), cookie)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = ts.do(htmx(formRequest(http.MethodPut, "/expenses/1", url.Values{
		"description": {"Brunch"}, "amount": {"15"}, "category": {"FOOD"}, "date": {"2025-09-01"},
	})), cookie)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Brunch")
	assert.Contains(t, rr.Body.String(), `hx-post="/expenses"`)

	rr = ts.do(htmx(httptest.NewRequest(http.MethodDelete, "/expenses/1", nil)), cookie)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "No expenses found")
	assert.Empty(t, ts.api.items)

	rr = ts.do(htmx(httptest.NewRequest(http.MethodGet, "/ui/expense-form", nil)), cookie)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "New expense")
}

func TestPlainEditRendersFullPage(t *testing.T) {
	ts := newTestServer(t)
	ts.api.seed("Lunch", "12.50", "2025-09-01")
	cookie := ts.login(t, "ada")

	rr := ts.do(httptest.NewRequest(http.MethodGet, "/ui/expenses/1/edit?startDate=2025-10-01", nil), cookie)
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "<!doctype html>")
	assert.Contains(t, body, `action="/expenses/1"`)
	assert.Contains(t, body, `value="Lunch"`)
	assert.Contains(t, body, `href="/expenses"`)
	assert.Contains(t, body, "No expenses found", "the list keeps the active filter")
}

func TestSaveOutsideFilterShowsNoticeAndBreakdown(t *testing.T) {
	ts := newTestServer(t)
	ts.api.seed("Lunch", "12.50", "2025-09-01")
	cookie := ts.login(t, "ada")

	rr := ts.do(htmx(formRequest(http.MethodPost, "/expenses", url.Values{
		"description": {"Flight"}, "amount": {"300"}, "category": {"TRAVEL"}, "date": {"2025-11-01"},
		"startDate": {"2025-09-01"}, "endDate": {"2025-09-30"},
	})), cookie)
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, expenses.OutsideFilterNotice)
	assert.NotContains(t, body, "Flight")
	assert.Contains(t, body, `class="breakdown"`)
	assert.Contains(t, body, `<li><span class="cat cat-FOOD">Food</span> <span class="num">12.50</span></li>`)
}

func TestPlainDeleteFallback(t *testing.T) {
	ts := newTestServer(t)
	ts.api.seed("Lunch", "12.50", "2025-09-01")
	cookie := ts.login(t, "ada")

	rr := ts.do(formRequest(http.MethodPost, "/expenses/1/delete", url.Values{}), cookie)
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/expenses", rr.Header().Get("Location"))
	assert.Empty(t, ts.api.items)
}

func TestExport(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		ts := newTestServer(t)
		cookie := ts.login(t, "ada")
		rr := ts.do(htmx(formRequest(http.MethodPost, "/expenses/export", url.Values{})), cookie)
		assert.Equal(t, http.StatusBadGateway, rr.Code)
		assert.Contains(t, rr.Body.String(), "Export is not configured")
	})

	t.Run("enabled", func(t *testing.T) {
		store := exportmem.New()
		ts := newTestServer(t, func(o *Options) { o.Exporter = store })
		ts.api.seed("Lunch", "12.50", "2025-09-01")
		cookie := ts.login(t, "ada")

		rr := ts.do(htmx(formRequest(http.MethodPost, "/expenses/export", url.Values{})), cookie)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "Exported to mem:export:1")
		require.Len(t, store.Exports(), 1)
	})
}

func TestLogoutClearsSession(t *testing.T) {
	ts := newTestServer(t)
	cookie := ts.login(t, "ada")

	rr := ts.do(formRequest(http.MethodPost, "/logout", url.Values{}), cookie)
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/login", rr.Header().Get("Location"))

	rr = ts.do(httptest.NewRequest(http.MethodGet, "/expenses", nil), cookie)
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/login", rr.Header().Get("Location"))
}

func TestMutationsAreRateLimited(t *testing.T) {
	ts := newTestServer(t, func(o *Options) {
		o.RateLimit = ratelimit.Config{RequestsPerSecond: 0.001, Burst: 2}
	})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rr := ts.do(formRequest(http.MethodPost, "/login", url.Values{"identifier": {"ada"}, "password": {"nope"}}), nil)
		codes = append(codes, rr.Code)
		if rr.Code == http.StatusTooManyRequests {
			assert.NotEmpty(t, rr.Header().Get("Retry-After"))
		}
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// Reads are never limited.
	rr := ts.do(httptest.NewRequest(http.MethodGet, "/login", nil), nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestUnknownRoute(t *testing.T) {
	ts := newTestServer(t)
	rr := ts.do(httptest.NewRequest(http.MethodGet, "/nope", nil), nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
