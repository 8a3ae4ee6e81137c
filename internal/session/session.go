// Package session keeps the signed-in user record for one browser or CLI
// profile. A Store persists at most one Session under a fixed key of its
// namespace; the raw bytes live in a pluggable Backend.
package session

import (
	"context"
	"errors"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"expensetracker/internal/log"
)

// ErrNotFound is returned by backends for missing or expired keys.
var ErrNotFound = errors.New("session not found")

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	// KeyPrefix starts every store key.
	KeyPrefix = "session"
	// UserKey is the fixed name of the stored user record inside a namespace.
	UserKey = "user"
)

// Session is the signed-in user, shaped like the sign-in response body.
type Session struct {
	ID          int64  `json:"id,omitempty"`
	Username    string `json:"username"`
	Email       string `json:"email,omitempty"`
	AccessToken string `json:"accessToken"`
	TokenType   string `json:"tokenType,omitempty"`
}

// Authorization returns the value of the Authorization header for this session.
func (s Session) Authorization() string {
	return "Bearer " + s.AccessToken
}

// Backend stores raw values by key. Implementations must be safe for
// concurrent use; concurrent writes to one key resolve last-write-wins.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Store is the session slot of one namespace.
type Store struct {
	backend  Backend
	key      string
	verifier Verifier
	logger   *log.Logger
}

type Option func(*Store)

// WithVerifier sets the trust check applied on Load. Default is TrustVerifier.
func WithVerifier(v Verifier) Option {
	return func(s *Store) {
		if v != nil {
			s.verifier = v
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l.WithComponent(log.ComponentSession)
		}
	}
}

// NewStore binds a backend to namespace.
func NewStore(backend Backend, namespace string, opts ...Option) *Store {
	s := &Store{
		backend:  backend,
		key:      Key(namespace),
		verifier: TrustVerifier{},
		logger:   log.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Key builds the backend key of the user record in namespace.
func Key(namespace string) string {
	namespace = strings.TrimSpace(namespace)
	if namespace == "" {
		namespace = "default"
	}
	return KeyPrefix + ":" + namespace + ":" + UserKey
}

// Save replaces the stored session.
func (s *Store) Save(ctx context.Context, sess Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return s.backend.Set(ctx, s.key, raw)
}

// Load returns the stored session. Missing, unreadable and malformed values
// all report false; a session rejected by the verifier is also cleared.
func (s *Store) Load(ctx context.Context) (Session, bool) {
	raw, err := s.backend.Get(ctx, s.key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.WarnContext(ctx, "Session backend read failed", log.FieldError, err)
		}
		return Session{}, false
	}

	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil || sess.AccessToken == "" {
		s.logger.WarnContext(ctx, "Discarding malformed session value", log.FieldError, err)
		return Session{}, false
	}

	if err := s.verifier.Verify(ctx, sess); err != nil {
		s.logger.InfoContext(ctx, "Stored session rejected", log.FieldUsername, sess.Username, log.FieldError, err)
		_ = s.Clear(ctx)
		return Session{}, false
	}
	return sess, true
}

// Clear removes the stored session. Clearing an empty slot is not an error.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.backend.Delete(ctx, s.key); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return nil
}
