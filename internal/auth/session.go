// Package auth owns the signed-in cloud identity of this device: the
// session other components observe and the token manager that proves it.
package auth

import (
	"slices"
	"sync"

	"github.com/cli2468/Vision-sub000/internal/domain"
)

// Provider is what the sync bridge needs from authentication.
type Provider interface {
	CurrentUser() *domain.User
	// OnUserChanged calls fn with the current user right away and again on
	// every transition; nil means signed out. The returned func unregisters fn.
	OnUserChanged(fn func(*domain.User)) (cancel func())
}

// Session is the device's single auth state.
type Session struct {
	mu        sync.Mutex
	user      *domain.User
	nextID    int
	listeners map[int]func(*domain.User)
}

func NewSession() *Session {
	return &Session{listeners: make(map[int]func(*domain.User))}
}

func (s *Session) CurrentUser() *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyUser(s.user)
}

func (s *Session) OnUserChanged(fn func(*domain.User)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	current := copyUser(s.user)
	s.mu.Unlock()

	fn(current)
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// SignIn makes user current. Signing in as the user already current is a
// no-op; switching users notifies listeners once with the new user.
func (s *Session) SignIn(user domain.User) {
	s.mu.Lock()
	if s.user != nil && s.user.ID == user.ID {
		s.user = copyUser(&user)
		s.mu.Unlock()
		return
	}
	s.user = copyUser(&user)
	fns := s.snapshotLocked()
	s.mu.Unlock()

	for _, fn := range fns {
		fn(copyUser(&user))
	}
}

func (s *Session) SignOut() {
	s.mu.Lock()
	if s.user == nil {
		s.mu.Unlock()
		return
	}
	s.user = nil
	fns := s.snapshotLocked()
	s.mu.Unlock()

	for _, fn := range fns {
		fn(nil)
	}
}

func (s *Session) snapshotLocked() []func(*domain.User) {
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	fns := make([]func(*domain.User), len(ids))
	for i, id := range ids {
		fns[i] = s.listeners[id]
	}
	return fns
}

func copyUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
