// Package registry provides the in-memory list of users in the chat
package registry

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lanchat/lanchat/internal/model"
)

// Event tells what happened to a user in the registry
type Event int

const (
	UserAdded Event = iota
	UserRemoved
)

// ChangeFunc is called after a user was added or removed
type ChangeFunc func(ev Event, user *model.User)

// Registry holds every known user once, keyed by user code
type Registry struct {
	users map[int]*model.User
	mu    sync.RWMutex

	listenerMu sync.RWMutex
	listeners  []ChangeFunc
}

// NewRegistry creates an empty user registry
func NewRegistry() *Registry {
	return &Registry{
		users: make(map[int]*model.User),
	}
}

// OnChange registers a callback for added and removed users
func (r *Registry) OnChange(fn ChangeFunc) {
	r.listenerMu.Lock()
	r.listeners = append(r.listeners, fn)
	r.listenerMu.Unlock()
}

func (r *Registry) notify(ev Event, user *model.User) {
	r.listenerMu.RLock()
	listeners := append([]ChangeFunc(nil), r.listeners...)
	r.listenerMu.RUnlock()

	for _, fn := range listeners {
		fn(ev, user)
	}
}

// Add stores the user. It returns false if the code is already taken.
func (r *Registry) Add(user *model.User) bool {
	r.mu.Lock()
	if _, exists := r.users[user.Code()]; exists {
		r.mu.Unlock()
		return false
	}
	r.users[user.Code()] = user
	r.mu.Unlock()

	r.notify(UserAdded, user)
	return true
}

// Remove deletes the user with the given code and returns it, or nil
func (r *Registry) Remove(code int) *model.User {
	r.mu.Lock()
	user, ok := r.users[code]
	if ok {
		delete(r.users, code)
	}
	r.mu.Unlock()

	if !ok {
		return nil
	}
	r.notify(UserRemoved, user)
	return user
}

// Get returns the user with the given code, or nil
func (r *Registry) Get(code int) *model.User {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.users[code]
}

// GetByNick returns the user with the nick, ignoring case, or nil
func (r *Registry) GetByNick(nick string) *model.User {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.users {
		if strings.EqualFold(user.Nick(), nick) {
			return user
		}
	}
	return nil
}

// IsNickInUse reports whether a user other than exceptCode has the nick
func (r *Registry) IsNickInUse(nick string, exceptCode int) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for code, user := range r.users {
		if code != exceptCode && strings.EqualFold(user.Nick(), nick) {
			return true
		}
	}
	return false
}

// List returns a snapshot of all users sorted by nick
func (r *Registry) List() []*model.User {
	r.mu.RLock()
	users := make([]*model.User, 0, len(r.users))
	for _, user := range r.users {
		users = append(users, user)
	}
	r.mu.RUnlock()

	sort.Slice(users, func(i, j int) bool {
		a, b := strings.ToLower(users[i].Nick()), strings.ToLower(users[j].Nick())
		if a == b {
			return users[i].Code() < users[j].Code()
		}
		return a < b
	})
	return users
}

// Count returns the number of users
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}

// TimedOut returns the users other than me not heard from since
// now - timeout.
func (r *Registry) TimedOut(now time.Time, timeout time.Duration) []*model.User {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var stale []*model.User
	for _, user := range r.users {
		if user.IsMe() {
			continue
		}
		if now.Sub(user.LastIdle()) > timeout {
			stale = append(stale, user)
		}
	}
	return stale
}

// Clear removes every user except me
func (r *Registry) Clear() {
	r.mu.Lock()
	var removed []*model.User
	for code, user := range r.users {
		if !user.IsMe() {
			removed = append(removed, user)
			delete(r.users, code)
		}
	}
	r.mu.Unlock()

	for _, user := range removed {
		r.notify(UserRemoved, user)
	}
}
