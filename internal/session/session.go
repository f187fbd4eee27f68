// Package session holds wizard sessions in memory. Each session owns one
// builder; nothing here survives the process, matching the contract that
// wizard state is never persisted beyond the session.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/kvexam/papergen/internal/builder"
	"github.com/kvexam/papergen/internal/model"
)

const defaultTTL = 12 * time.Hour

// Session pairs a builder with the lock serializing HTTP access to it.
type Session struct {
	ID string

	mu       sync.Mutex
	b        *builder.Builder
	lastUsed time.Time
}

// With runs fn with exclusive access to the session's builder.
func (s *Session) With(fn func(b *builder.Builder) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUsed = time.Now()
	return fn(s.b)
}

// Generate runs a single generation attempt. The builder is locked only to
// mark the attempt and to apply its outcome; the gateway call itself runs
// without holding the session lock, so reads stay responsive while edits are
// rejected with ErrGenerationInFlight.
func (s *Session) Generate(ctx context.Context, g builder.Generator) error {
	s.mu.Lock()
	if err := s.b.BeginGeneration(); err != nil {
		s.mu.Unlock()
		return err
	}
	spec := s.b.Spec()
	s.mu.Unlock()

	paper, err := g.Generate(ctx, spec)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUsed = time.Now()
	return s.b.FinishGeneration(paper, err)
}

// Spec returns a snapshot of the session's specification.
func (s *Session) Spec() model.Specification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Spec()
}

// Paper returns a snapshot of the generated paper, or nil.
func (s *Session) Paper() *model.Paper {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Paper()
}

// Registry is the in-memory session table.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
}

// NewRegistry creates an empty registry with the default idle TTL.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		ttl:      defaultTTL,
	}
}

// Create starts a new wizard session with the default specification.
func (r *Registry) Create() (*Session, error) {
	id, err := generateID()
	if err != nil {
		return nil, err
	}
	s := &Session{
		ID:       id,
		b:        builder.New(),
		lastUsed: time.Now(),
	}
	r.mu.Lock()
	r.sessions[id] = s
	r.mu.Unlock()
	return s, nil
}

// Get returns the session for id, or nil if unknown.
func (r *Registry) Get(id string) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[id]
}

// Delete discards a session.
func (r *Registry) Delete(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sweep drops sessions idle longer than the TTL and returns how many were
// removed. Callers run it periodically.
func (r *Registry) Sweep() int {
	cutoff := time.Now().Add(-r.ttl)
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, s := range r.sessions {
		s.mu.Lock()
		idle := s.lastUsed.Before(cutoff)
		s.mu.Unlock()
		if idle {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed
}

func generateID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
