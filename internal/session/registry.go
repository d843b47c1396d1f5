package session

import "sync"

// Registry is the process-wide session map, keyed by guild ID. The
// lifecycle manager is its only writer; lookups are safe concurrently.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// GetOrCreate returns the existing session for the guild, or stores the one
// produced by create. Creating against an occupied key is a no-op that
// returns the existing session with created=false.
func (r *Registry) GetOrCreate(guildID string, create func() *Session) (sess *Session, created bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.sessions[guildID]; ok {
		return existing, false
	}
	sess = create()
	r.sessions[guildID] = sess
	return sess, true
}

// Get returns the session for the guild, or nil.
func (r *Registry) Get(guildID string) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[guildID]
}

// Remove drops the session for the guild. Unknown keys are a no-op.
func (r *Registry) Remove(guildID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, guildID)
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
