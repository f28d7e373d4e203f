package browser

import (
	"sync"

	"github.com/google/uuid"
)

// Pool manages browser sessions shared between worker activities
type Pool struct {
	sessions map[string]*Session
	mu       sync.RWMutex
}

// NewPool creates an empty pool
func NewPool() *Pool {
	return &Pool{sessions: make(map[string]*Session)}
}

// Add stores a session and returns its ID
func (p *Pool) Add(s *Session) string {
	id := uuid.New().String()
	p.mu.Lock()
	p.sessions[id] = s
	p.mu.Unlock()
	return id
}

// Get returns the session with the given ID
func (p *Pool) Get(id string) (*Session, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.sessions[id]
	return s, ok
}

// Remove deletes the session from the pool and returns it
func (p *Pool) Remove(id string) (*Session, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.sessions[id]
	delete(p.sessions, id)
	return s, ok
}

// Len returns the number of live sessions
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.sessions)
}
