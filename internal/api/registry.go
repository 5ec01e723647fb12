package api

import (
	"sync"
	"time"

	"github.com/rampkit/rampkit-go/internal/completion"
	"github.com/rampkit/rampkit-go/internal/session"
	"github.com/rampkit/rampkit-go/internal/targeting"
)

// liveSession bundles one running session with its transport fan-out and
// completion guard.
type liveSession struct {
	sess      *session.Session
	hubs      []*surfaceHub // one per surface, ordinal-indexed
	host      *surfaceHub   // session-level host actions and lifecycle
	guard     *completion.Guard
	stableID  string
	selection *targeting.Selection
	startedAt time.Time
}

// Registry holds the live sessions owned by this server instance. It is an
// explicit collaborator handed to whoever needs it, not a package global.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*liveSession
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*liveSession)}
}

func (r *Registry) Add(id string, ls *liveSession) {
	r.mu.Lock()
	r.sessions[id] = ls
	r.mu.Unlock()
}

func (r *Registry) Get(id string) (*liveSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ls, ok := r.sessions[id]
	return ls, ok
}

func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
