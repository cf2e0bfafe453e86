// Package syncmode holds the host-led viewing flag. While enabled every
// viewer follows the same ordering, so listings are never shuffled.
package syncmode

import "sync/atomic"

// State is the process-wide sync mode flag.
type State struct {
	enabled atomic.Bool
	changed func(bool)
}

// New returns a disabled state. onChange, when set, is called after every
// transition.
func New(onChange func(bool)) *State {
	return &State{changed: onChange}
}

// Enabled reports whether sync mode is on.
func (s *State) Enabled() bool {
	return s.enabled.Load()
}

// Set switches sync mode and reports whether the value changed.
func (s *State) Set(on bool) bool {
	if s.enabled.Swap(on) == on {
		return false
	}
	if s.changed != nil {
		s.changed(on)
	}
	return true
}

// Shuffle resolves the effective shuffle flag for a listing request.
// explicit is nil when the request did not choose.
func (s *State) Shuffle(configured bool, explicit *bool) bool {
	if explicit != nil {
		return *explicit
	}
	if s.Enabled() {
		return false
	}
	return configured
}
