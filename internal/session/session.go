// Package session tracks in-flight evaluations. A session pins the
// immutable inputs (question, file payload, declared type) from upload time
// until the workflow finishes, and later holds the finished state for
// retrieval.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lokasewa/evaluator/internal/schema"
)

// Defaults for the registry.
const (
	DefaultMaxSessions = 1000
	DefaultTTL         = 30 * time.Minute
)

var (
	// ErrNotFound reports an unknown or expired session ID.
	ErrNotFound = errors.New("session not found")
	// ErrRegistryFull reports that the session cap is reached even after
	// expiring stale entries.
	ErrRegistryFull = errors.New("too many active sessions")
)

// Session is one evaluation's lifecycle record. Inputs are fixed at
// creation; Result is attached once the workflow finishes.
type Session struct {
	ID        string
	Question  string
	FileData  []byte
	FileType  schema.FileType
	CreatedAt time.Time

	Result *schema.State
}

// Registry is a bounded, expiring in-memory session store.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	max      int
	ttl      time.Duration
	now      func() time.Time
}

// Option configures a Registry.
type Option func(*Registry)

// WithMaxSessions overrides the session cap.
func WithMaxSessions(n int) Option {
	return func(r *Registry) { r.max = n }
}

// WithTTL overrides the session lifetime.
func WithTTL(d time.Duration) Option {
	return func(r *Registry) { r.ttl = d }
}

// withClock injects a clock for tests.
func withClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		sessions: map[string]*Session{},
		max:      DefaultMaxSessions,
		ttl:      DefaultTTL,
		now:      time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Create registers a new session for the given inputs. Expired sessions are
// swept first; a full registry is an error, not an eviction.
func (r *Registry) Create(question string, fileData []byte, fileType schema.FileType) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sweepLocked()
	if len(r.sessions) >= r.max {
		return nil, fmt.Errorf("%w: %d active", ErrRegistryFull, len(r.sessions))
	}

	s := &Session{
		ID:        uuid.NewString(),
		Question:  question,
		FileData:  fileData,
		FileType:  fileType,
		CreatedAt: r.now(),
	}
	r.sessions[s.ID] = s
	return s, nil
}

// Get returns a live session by ID.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok || r.expiredLocked(s) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s, nil
}

// Complete attaches the finished evaluation state to its session.
func (r *Registry) Complete(id string, result *schema.State) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok || r.expiredLocked(s) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.Result = result
	return nil
}

// Delete removes a session.
func (r *Registry) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked()
	return len(r.sessions)
}

func (r *Registry) expiredLocked(s *Session) bool {
	return r.ttl > 0 && r.now().Sub(s.CreatedAt) > r.ttl
}

func (r *Registry) sweepLocked() {
	for id, s := range r.sessions {
		if r.expiredLocked(s) {
			delete(r.sessions, id)
		}
	}
}
