// Package api is the client of the expense REST API. It holds no user state:
// every authenticated call reads its bearer token from the SessionStore it
// is given.
package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"expensetracker/internal/core"
	"expensetracker/internal/log"
	"expensetracker/internal/middleware/trace"
	"expensetracker/internal/session"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	pathSignup   = "/api/auth/signup"
	pathSignin   = "/api/auth/signin"
	pathExpenses = "/api/expenses"

	// maxBodyBytes bounds how much of a response is read.
	maxBodyBytes = 4 << 20
)

// SessionStore is the session slot an authenticated call reads from.
type SessionStore interface {
	Save(ctx context.Context, s session.Session) error
	Load(ctx context.Context) (session.Session, bool)
	Clear(ctx context.Context) error
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *log.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l.WithComponent(log.ComponentAPI)
		}
	}
}

// New creates a client for the API at baseURL. Calls time out after timeout.
func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     log.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type signinRequest struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
	Password string  `json:"password"`
}

type signupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// IsEmail classifies a login identifier: anything containing '@' is an email.
func IsEmail(identifier string) bool {
	return strings.Contains(identifier, "@")
}

// Login signs in with a username or email. Any stored session is cleared
// first; a response carrying an access token is saved to store.
func (c *Client) Login(ctx context.Context, store SessionStore, identifier, password string) (session.Session, error) {
	if err := store.Clear(ctx); err != nil {
		c.logger.WarnContext(ctx, "Failed to clear session before login", log.FieldError, err)
	}

	body := signinRequest{Password: password}
	if IsEmail(identifier) {
		body.Email = &identifier
	} else {
		body.Username = &identifier
	}

	var sess session.Session
	if err := c.do(ctx, nil, http.MethodPost, pathSignin, nil, body, &sess); err != nil {
		return session.Session{}, err
	}
	if sess.AccessToken != "" {
		if err := store.Save(ctx, sess); err != nil {
			return session.Session{}, fmt.Errorf("save session: %w", err)
		}
	}
	return sess, nil
}

// Register creates an account and returns the server's message, if any.
// It never touches a session.
func (c *Client) Register(ctx context.Context, username, email, password string) (string, error) {
	var raw []byte
	body := signupRequest{Username: username, Email: email, Password: password}
	if err := c.do(ctx, nil, http.MethodPost, pathSignup, nil, body, &raw); err != nil {
		return "", err
	}
	// The success body is not guaranteed to be JSON.
	var resp messageResponse
	if json.Unmarshal(raw, &resp) == nil {
		return resp.Message, nil
	}
	return strings.TrimSpace(string(raw)), nil
}

// ListExpenses fetches the records inside r. Unset bounds are not sent.
func (c *Client) ListExpenses(ctx context.Context, store SessionStore, r core.DateRange) ([]core.Expense, error) {
	q := url.Values{}
	if !r.Start.IsZero() {
		q.Set("startDate", r.Start.String())
	}
	if !r.End.IsZero() {
		q.Set("endDate", r.End.String())
	}

	var items []core.Expense
	if err := c.do(ctx, store, http.MethodGet, pathExpenses, q, nil, &items); err != nil {
		return nil, err
	}
	if items == nil {
		items = []core.Expense{}
	}
	return items, nil
}

// CreateExpense checks in locally before sending it.
func (c *Client) CreateExpense(ctx context.Context, store SessionStore, in core.ExpenseInput) (core.Expense, error) {
	if err := in.Validate(); err != nil {
		return core.Expense{}, fmt.Errorf("invalid expense: %w", err)
	}
	var out core.Expense
	if err := c.do(ctx, store, http.MethodPost, pathExpenses, nil, in, &out); err != nil {
		return core.Expense{}, err
	}
	return out, nil
}

func (c *Client) UpdateExpense(ctx context.Context, store SessionStore, id int64, in core.ExpenseInput) (core.Expense, error) {
	if err := in.Validate(); err != nil {
		return core.Expense{}, fmt.Errorf("invalid expense: %w", err)
	}
	var out core.Expense
	if err := c.do(ctx, store, http.MethodPut, expensePath(id), nil, in, &out); err != nil {
		return core.Expense{}, err
	}
	return out, nil
}

func (c *Client) DeleteExpense(ctx context.Context, store SessionStore, id int64) error {
	return c.do(ctx, store, http.MethodDelete, expensePath(id), nil, nil, nil)
}

func expensePath(id int64) string {
	return pathExpenses + "/" + strconv.FormatInt(id, 10)
}

// do performs one call. A nil store sends no Authorization header; so does a
// store without a session, leaving the server to reject the call.
func (c *Client) do(ctx context.Context, store SessionStore, method, path string, query url.Values, in, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if id := trace.GetRequestID(ctx); id != "" {
		req.Header.Set(trace.HeaderRequestID, id)
	}
	if store != nil {
		if sess, ok := store.Load(ctx); ok {
			req.Header.Set("Authorization", sess.Authorization())
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "API request failed",
			log.FieldMethod, method,
			log.FieldPath, path,
			log.FieldErrorType, log.ErrorTypeNetwork,
			log.FieldError, err)
		return &Error{Message: NetworkErrorMessage, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &Error{Message: NetworkErrorMessage, Err: err}
	}

	c.logger.DebugContext(ctx, "API request completed",
		log.FieldMethod, method,
		log.FieldPath, path,
		log.FieldStatusCode, resp.StatusCode,
		log.FieldDuration, time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newStatusError(resp.StatusCode, raw)
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if dst, ok := out.(*[]byte); ok {
		*dst = raw
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &Error{Status: resp.StatusCode, Message: "Unexpected response from server", Err: err}
	}
	return nil
}
