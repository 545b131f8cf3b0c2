package chat

import (
	"sort"
	"strings"
	"sync"

	"chatroom/internal/types"
)

// Registry tracks which usernames are online and which connection each one
// belongs to. It is the single source of truth for "who is online" across
// broadcasts, whisper target lookups, and busy checks.
type Registry struct {
	mu     sync.RWMutex
	conns  map[*types.Conn]string
	byName map[string]*types.Conn
}

func NewRegistry() *Registry {
	return &Registry{
		conns:  make(map[*types.Conn]string),
		byName: make(map[string]*types.Conn),
	}
}

// Claim binds a username to a connection. The name is trimmed first;
// a blank result fails with ErrUsernameEmpty and a name already online
// fails with ErrUsernameTaken. Both are recoverable: the connection stays
// open and unclaimed so the client can retry.
func (r *Registry) Claim(conn *types.Conn, username string) error {
	name := strings.TrimSpace(username)
	if name == "" {
		return ErrUsernameEmpty
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byName[name]; taken {
		return ErrUsernameTaken
	}
	if old, ok := r.conns[conn]; ok {
		delete(r.byName, old)
	}
	r.conns[conn] = name
	r.byName[name] = conn
	return nil
}

// Release unbinds a connection's username. It is idempotent; releasing an
// unclaimed connection returns ("", false).
func (r *Registry) Release(conn *types.Conn) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name, ok := r.conns[conn]
	if !ok {
		return "", false
	}
	delete(r.conns, conn)
	delete(r.byName, name)
	return name, true
}

// Resolve returns the connection currently bound to username.
func (r *Registry) Resolve(username string) (*types.Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.byName[username]
	return conn, ok
}

// Username returns the name claimed by conn, if any.
func (r *Registry) Username(conn *types.Conn) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.conns[conn]
	return name, ok
}

// Snapshot returns the online usernames sorted for consistent ordering.
func (r *Registry) Snapshot() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]string, 0, len(r.byName))
	for name := range r.byName {
		users = append(users, name)
	}
	sort.Strings(users)
	return users
}

// Conns returns every claimed connection for fan-out.
func (r *Registry) Conns() []*types.Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]*types.Conn, 0, len(r.conns))
	for conn := range r.conns {
		conns = append(conns, conn)
	}
	return conns
}

// Count returns the number of online users.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byName)
}
