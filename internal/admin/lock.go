// Package admin implements the single-admin role lock. One browser session
// at a time may hold the admin role; the holder is identified by its
// session id cookie.
package admin

import (
	"errors"
	"sync"
)

var (
	// ErrNoSession is returned when the caller has no session id.
	ErrNoSession = errors.New("Session not found. Please refresh.")
	// ErrAlreadyClaimed is returned when another session holds the role.
	ErrAlreadyClaimed = errors.New("Admin role already claimed by another user.")
	// ErrNotHolder is returned when a non-holder tries to release the role.
	ErrNotHolder = errors.New("Admin role is not held by this session.")
)

// Lock tracks which session holds the admin role.
type Lock struct {
	mu     sync.Mutex
	holder string
}

// NewLock returns an unclaimed lock.
func NewLock() *Lock {
	return &Lock{}
}

// Claim gives the role to sessionID when it is free or already held by it.
func (l *Lock) Claim(sessionID string) error {
	if sessionID == "" {
		return ErrNoSession
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.holder != "" && l.holder != sessionID {
		return ErrAlreadyClaimed
	}
	l.holder = sessionID
	return nil
}

// Release frees the role if sessionID holds it.
func (l *Lock) Release(sessionID string) error {
	if sessionID == "" {
		return ErrNoSession
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.holder != sessionID {
		return ErrNotHolder
	}
	l.holder = ""
	return nil
}

// Holder returns the session id holding the role, or "".
func (l *Lock) Holder() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.holder
}

// Status reconciles a session's admin flag with the lock. flagged is the
// is_admin value carried by the session cookie. The returned isAdmin is
// false whenever the lock is empty or owned by a different session;
// downgrade reports that the session flag must be cleared.
func (l *Lock) Status(sessionID string, flagged bool) (isAdmin, claimed, downgrade bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	claimed = l.holder != ""
	isAdmin = flagged
	if flagged && (!claimed || l.holder != sessionID) {
		isAdmin = false
		downgrade = true
	}
	return isAdmin, claimed, downgrade
}

// IsAdmin reports whether the session is flagged admin and holds the lock.
func (l *Lock) IsAdmin(sessionID string, flagged bool) bool {
	if !flagged || sessionID == "" {
		return false
	}
	return l.Holder() == sessionID
}
