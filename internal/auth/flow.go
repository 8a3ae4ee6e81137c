// Package auth drives sign-in and sign-up: local validation, the API call
// and the resulting navigation, as an explicit state machine.
package auth

import (
	"context"
	"fmt"

	"expensetracker/internal/api"
	"expensetracker/internal/log"
	"expensetracker/internal/session"
)

// State of a Flow.
type State int

const (
	Idle State = iota
	Validating
	Submitting
	Success
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Validating:
		return "validating"
	case Submitting:
		return "submitting"
	case Success:
		return "success"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var transitions = map[State][]State{
	Idle:       {Validating},
	Validating: {Submitting, Failed},
	Submitting: {Success, Failed},
	Failed:     {Validating},
}

// CanTransition reports whether from → to is a legal move.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Mode selects which form a Flow serves.
type Mode string

const (
	ModeLogin    Mode = "login"
	ModeRegister Mode = "register"
)

// Navigation targets after success.
const (
	LoginSuccessPath    = "/expenses"
	RegisterSuccessPath = "/login"
)

// RegisteredMessage is shown after a successful sign-up.
const RegisteredMessage = "Registration successful!"

// Authenticator is the API surface a Flow needs.
type Authenticator interface {
	Login(ctx context.Context, store api.SessionStore, identifier, password string) (session.Session, error)
	Register(ctx context.Context, username, email, password string) (string, error)
}

// Values are the raw form inputs. Password is blanked after a failed attempt.
type Values struct {
	Identifier string
	Username   string
	Email      string
	Password   string
}

// Flow is one form's lifetime. It is not safe for concurrent use.
type Flow struct {
	mode   Mode
	state  State
	client Authenticator
	store  api.SessionStore
	logger *log.Logger

	Values        Values
	FieldErrors   FieldErrors
	Message       string
	ServerMessage string
	Redirect      string
	Session       session.Session
}

// NewLoginFlow creates a sign-in flow that saves the session to store.
func NewLoginFlow(client Authenticator, store api.SessionStore, logger *log.Logger) *Flow {
	return newFlow(ModeLogin, client, store, logger)
}

// NewRegisterFlow creates a sign-up flow. It never creates a session.
func NewRegisterFlow(client Authenticator, logger *log.Logger) *Flow {
	return newFlow(ModeRegister, client, nil, logger)
}

func newFlow(mode Mode, client Authenticator, store api.SessionStore, logger *log.Logger) *Flow {
	if logger == nil {
		logger = log.Discard()
	}
	return &Flow{
		mode:   mode,
		state:  Idle,
		client: client,
		store:  store,
		logger: logger.WithComponent(log.ComponentAuth),
	}
}

func (f *Flow) Mode() Mode   { return f.mode }
func (f *Flow) State() State { return f.state }

// Succeeded reports whether the flow reached Success.
func (f *Flow) Succeeded() bool { return f.state == Success }

// Submitting reports whether a request is in flight.
func (f *Flow) Submitting() bool { return f.state == Submitting }

func (f *Flow) transition(to State) bool {
	if !CanTransition(f.state, to) {
		f.logger.Error("Illegal auth state transition", "from", f.state.String(), "to", to.String())
		return false
	}
	f.state = to
	return true
}

// Submit runs one attempt with v. It returns the resulting state; calling it
// after Success leaves the flow unchanged.
func (f *Flow) Submit(ctx context.Context, v Values) State {
	if !f.transition(Validating) {
		return f.state
	}
	f.Values = v
	f.Message = ""
	f.ServerMessage = ""
	f.Redirect = ""

	if f.mode == ModeLogin {
		f.FieldErrors = ValidateLogin(v.Identifier, v.Password)
	} else {
		f.FieldErrors = ValidateRegister(v.Username, v.Email, v.Password)
	}
	if len(f.FieldErrors) > 0 {
		f.fail()
		return f.state
	}

	f.transition(Submitting)
	var err error
	if f.mode == ModeLogin {
		err = f.login(ctx)
	} else {
		err = f.register(ctx)
	}
	if err != nil {
		f.Message = api.Message(err)
		f.logger.WarnContext(ctx, "Authentication attempt failed",
			log.NewFields().
				WithOperation(string(f.mode)).
				WithUser(f.username()).
				WithErrorType(errorType(err)).
				WithError(err).
				ToSlice()...)
		f.fail()
		return f.state
	}

	f.transition(Success)
	return f.state
}

func (f *Flow) login(ctx context.Context) error {
	sess, err := f.client.Login(ctx, f.store, f.Values.Identifier, f.Values.Password)
	if err != nil {
		return err
	}
	f.Session = sess
	f.Values.Password = ""
	f.Redirect = LoginSuccessPath
	f.logger.InfoContext(ctx, "User signed in", log.FieldUsername, sess.Username)
	return nil
}

func (f *Flow) register(ctx context.Context) error {
	msg, err := f.client.Register(ctx, f.Values.Username, f.Values.Email, f.Values.Password)
	if err != nil {
		return err
	}
	f.ServerMessage = msg
	f.Message = RegisteredMessage
	f.Values.Password = ""
	f.Redirect = RegisterSuccessPath
	f.logger.InfoContext(ctx, "User registered", log.FieldUsername, f.Values.Username)
	return nil
}

func (f *Flow) fail() {
	f.Values.Password = ""
	f.transition(Failed)
}

func (f *Flow) username() string {
	if f.mode == ModeLogin {
		return f.Values.Identifier
	}
	return f.Values.Username
}

func errorType(err error) string {
	switch {
	case api.IsUnauthorized(err):
		return log.ErrorTypeAuth
	case api.IsNetwork(err):
		return log.ErrorTypeNetwork
	default:
		return log.ErrorTypeServer
	}
}
