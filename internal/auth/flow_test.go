package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensetracker/internal/api"
	"expensetracker/internal/session"
	"expensetracker/internal/session/memory"
)

type fakeAuth struct {
	loginCalls    int
	registerCalls int
	loginErr      error
	registerErr   error
	lastIdent     string
}

func (f *fakeAuth) Login(ctx context.Context, store api.SessionStore, identifier, password string) (session.Session, error) {
	f.loginCalls++
	f.lastIdent = identifier
	if f.loginErr != nil {
		return session.Session{}, f.loginErr
	}
	s := session.Session{Username: identifier, AccessToken: "tok"}
	return s, store.Save(ctx, s)
}

func (f *fakeAuth) Register(context.Context, string, string, string) (string, error) {
	f.registerCalls++
	return "User registered successfully!", f.registerErr
}

func newStore() *session.Store {
	return session.NewStore(memory.New(10, time.Hour), "t")
}

func TestValidateLogin(t *testing.T) {
	errs := ValidateLogin("", "")
	assert.Equal(t, FieldErrors{
		FieldIdentifier: "Username or Email is required",
		FieldPassword:   "Password is required",
	}, errs)
	assert.Empty(t, ValidateLogin("ada", "x"))
}

func TestValidateRegister(t *testing.T) {
	cases := []struct {
		name                      string
		username, email, password string
		want                      FieldErrors
	}{
		{"all empty", "", "", "", FieldErrors{
			FieldUsername: "Username is required",
			FieldEmail:    "Email is required",
			FieldPassword: "Password is required",
		}},
		{"bad email", "ada", "ada@example", "secret1", FieldErrors{FieldEmail: "Email is invalid"}},
		{"short password", "ada", "ada@example.com", "12345", FieldErrors{FieldPassword: "Password must be at least 6 characters"}},
		{"long password", "ada", "ada@example.com", strings.Repeat("p", 41), FieldErrors{FieldPassword: "Password must be at most 40 characters"}},
		{"long username", strings.Repeat("u", 21), "ada@example.com", "secret1", FieldErrors{FieldUsername: "Username must be at most 20 characters"}},
		{"long email", "ada", strings.Repeat("e", 45) + "@x.com", "secret1", FieldErrors{FieldEmail: "Email must be at most 50 characters"}},
		{"password lower bound", "ada", "ada@example.com", "123456", nil},
		{"password upper bound", "ada", "ada@example.com", strings.Repeat("p", 40), nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ValidateRegister(tc.username, tc.email, tc.password)
			if tc.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(Idle, Validating))
	assert.True(t, CanTransition(Failed, Validating))
	assert.True(t, CanTransition(Submitting, Success))
	assert.False(t, CanTransition(Idle, Submitting))
	assert.False(t, CanTransition(Success, Validating))
	assert.False(t, CanTransition(Validating, Success))
}

func TestLoginValidationFailureSkipsNetwork(t *testing.T) {
	fa := &fakeAuth{}
	f := NewLoginFlow(fa, newStore(), nil)

	state := f.Submit(context.Background(), Values{Identifier: "ada"})
	assert.Equal(t, Failed, state)
	assert.Equal(t, 0, fa.loginCalls)
	assert.Equal(t, "Password is required", f.FieldErrors[FieldPassword])
	assert.Equal(t, "ada", f.Values.Identifier)
}

func TestLoginSuccess(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	fa := &fakeAuth{}
	f := NewLoginFlow(fa, store, nil)

	assert.Equal(t, Success, f.Submit(ctx, Values{Identifier: "ada@example.com", Password: "secret1"}))
	assert.Equal(t, LoginSuccessPath, f.Redirect)
	assert.Equal(t, "ada@example.com", fa.lastIdent)
	assert.Empty(t, f.Values.Password)
	_, ok := store.Load(ctx)
	assert.True(t, ok)

	// A finished flow refuses further submissions.
	assert.Equal(t, Success, f.Submit(ctx, Values{Identifier: "x", Password: "y"}))
	assert.Equal(t, 1, fa.loginCalls)
}

func TestLoginServerFailureThenRetry(t *testing.T) {
	ctx := context.Background()
	fa := &fakeAuth{loginErr: &api.Error{Status: 401, Message: "Invalid username or password"}}
	f := NewLoginFlow(fa, newStore(), nil)

	assert.Equal(t, Failed, f.Submit(ctx, Values{Identifier: "ada", Password: "wrong"}))
	assert.Equal(t, "Invalid username or password", f.Message)
	assert.Equal(t, "ada", f.Values.Identifier)
	assert.Empty(t, f.Values.Password)
	assert.Empty(t, f.Redirect)

	fa.loginErr = nil
	assert.Equal(t, Success, f.Submit(ctx, Values{Identifier: "ada", Password: "right"}))
	assert.Empty(t, f.Message)
	assert.Equal(t, 2, fa.loginCalls)
}

func TestLoginNetworkFailure(t *testing.T) {
	fa := &fakeAuth{loginErr: &api.Error{Message: api.NetworkErrorMessage, Err: errors.New("refused")}}
	f := NewLoginFlow(fa, newStore(), nil)
	f.Submit(context.Background(), Values{Identifier: "ada", Password: "pw"})
	assert.Equal(t, "Network Error", f.Message)
}

func TestRegisterSuccess(t *testing.T) {
	fa := &fakeAuth{}
	f := NewRegisterFlow(fa, nil)

	state := f.Submit(context.Background(), Values{Username: "ada", Email: "ada@example.com", Password: "secret1"})
	assert.Equal(t, Success, state)
	assert.Equal(t, RegisteredMessage, f.Message)
	assert.Equal(t, "User registered successfully!", f.ServerMessage)
	assert.Equal(t, RegisterSuccessPath, f.Redirect)
	assert.Equal(t, 0, fa.loginCalls)
}

func TestRegisterFailure(t *testing.T) {
	fa := &fakeAuth{registerErr: &api.Error{Status: 400, Message: "Error: Email is already in use!"}}
	f := NewRegisterFlow(fa, nil)

	state := f.Submit(context.Background(), Values{Username: "ada", Email: "ada@example.com", Password: "secret1"})
	require.Equal(t, Failed, state)
	assert.Equal(t, "Error: Email is already in use!", f.Message)
	assert.Equal(t, "ada@example.com", f.Values.Email)
	assert.Empty(t, f.Values.Password)
}

func TestRegisterValidationFailureSkipsNetwork(t *testing.T) {
	fa := &fakeAuth{}
	f := NewRegisterFlow(fa, nil)
	f.Submit(context.Background(), Values{Username: "ada", Email: "ada@example.com", Password: "123"})
	assert.Equal(t, 0, fa.registerCalls)
	assert.Equal(t, Failed, f.State())
}
