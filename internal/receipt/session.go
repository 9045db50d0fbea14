package receipt

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// ErrRateLimited is returned when a session requests suggestions too often
var ErrRateLimited = errors.New("too many suggestion requests")

// Session is one browser's in-memory workspace: its shell and the last form it posted
type Session struct {
	ID string

	shell   *Shell
	limiter *rate.Limiter

	mu       sync.Mutex
	form     Form
	lastSeen time.Time
}

// Shell returns the session's application shell
func (s *Session) Shell() *Shell {
	return s.shell
}

// TakeForm returns the stored form and clears its one-shot warning
func (s *Session) TakeForm() Form {
	s.mu.Lock()
	defer s.mu.Unlock()
	form := s.form
	s.form.Warning = ""
	return form
}

// SetForm stores the form to render on the next page view. Validation errors are not kept.
func (s *Session) SetForm(form Form) {
	s.mu.Lock()
	defer s.mu.Unlock()
	form.Errors = nil
	s.form = form
}

// AllowSuggestion reports whether the session may issue another suggestion request
func (s *Session) AllowSuggestion() error {
	if !s.limiter.Allow() {
		return ErrRateLimited
	}
	return nil
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince(cutoff time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen.Before(cutoff)
}

// SessionConfig holds session lifetime and suggestion rate limits
type SessionConfig struct {
	TTL             time.Duration // how long an idle session is kept
	CleanupInterval time.Duration // how often idle sessions are dropped, 0 disables the loop
	SuggestRate     rate.Limit    // suggestion requests per second
	SuggestBurst    int
}

// DefaultSessionConfig returns sensible defaults
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		TTL:             2 * time.Hour,
		CleanupInterval: 5 * time.Minute,
		SuggestRate:     rate.Every(10 * time.Second),
		SuggestBurst:    3,
	}
}

// SessionStore keeps sessions in memory. Nothing survives a restart.
type SessionStore struct {
	config     SessionConfig
	newShell   func() *Shell
	timeSource TimeSource

	mu       sync.Mutex
	sessions map[string]*Session

	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

// NewSessionStore creates a store that builds a fresh shell for every new session
func NewSessionStore(config SessionConfig, newShell func() *Shell) *SessionStore {
	st := &SessionStore{
		config:      config,
		newShell:    newShell,
		timeSource:  &defaultTimeSource{},
		sessions:    make(map[string]*Session),
		stopCleanup: make(chan struct{}),
	}
	if config.CleanupInterval > 0 {
		go st.startCleanup()
	}
	return st
}

// Create starts a new session
func (st *SessionStore) Create() *Session {
	sess := &Session{
		ID:       uuid.NewString(),
		shell:    st.newShell(),
		limiter:  rate.NewLimiter(st.config.SuggestRate, st.config.SuggestBurst),
		lastSeen: st.timeSource.Now(),
	}

	st.mu.Lock()
	st.sessions[sess.ID] = sess
	st.mu.Unlock()

	slog.Debug("Session created", "session", sess.ID)
	return sess
}

// Get returns a live session and marks it as used
func (st *SessionStore) Get(id string) (*Session, bool) {
	st.mu.Lock()
	sess, ok := st.sessions[id]
	st.mu.Unlock()
	if !ok {
		return nil, false
	}
	sess.touch(st.timeSource.Now())
	return sess, true
}

// Remove ends a session and cancels its pending transitions
func (st *SessionStore) Remove(id string) {
	st.mu.Lock()
	sess, ok := st.sessions[id]
	delete(st.sessions, id)
	st.mu.Unlock()

	if ok {
		sess.shell.Close()
	}
}

// Len returns the number of live sessions
func (st *SessionStore) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// startCleanup runs periodic cleanup to remove idle sessions
func (st *SessionStore) startCleanup() {
	ticker := time.NewTicker(st.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			st.cleanupStaleSessions()
		case <-st.stopCleanup:
			return
		}
	}
}

// cleanupStaleSessions removes sessions idle for longer than the TTL
func (st *SessionStore) cleanupStaleSessions() {
	cutoff := st.timeSource.Now().Add(-st.config.TTL)

	st.mu.Lock()
	var stale []*Session
	for id, sess := range st.sessions {
		if sess.idleSince(cutoff) {
			stale = append(stale, sess)
			delete(st.sessions, id)
		}
	}
	st.mu.Unlock()

	for _, sess := range stale {
		sess.shell.Close()
	}
	if len(stale) > 0 {
		slog.Info("Expired idle sessions", "count", len(stale))
	}
}

// Close stops the cleanup loop and tears down every session
func (st *SessionStore) Close() {
	st.shutdownOnce.Do(func() {
		close(st.stopCleanup)
	})

	st.mu.Lock()
	sessions := st.sessions
	st.sessions = make(map[string]*Session)
	st.mu.Unlock()

	for _, sess := range sessions {
		sess.shell.Close()
	}
}
