package service

import (
	"sync"
)

// SessionEventKind identifies an auth or scope transition.
type SessionEventKind int

const (
	SessionSignedIn SessionEventKind = iota
	SessionSignedOut
	SessionScopeChanged
)

// SessionEvent describes one transition of the session context.
type SessionEvent struct {
	Kind       SessionEventKind
	UserID     string
	PropertyID string
}

// SessionContext holds the signed-in user and the active property for one
// console session, and notifies registered listeners of transitions. Scope is
// never read ambiently by the managers; they receive the property id as an
// argument, and listeners react to explicit change events.
type SessionContext struct {
	mu         sync.Mutex
	userID     string
	propertyID string
	listeners  []func(SessionEvent)
}

// NewSessionContext creates an unauthenticated session context.
func NewSessionContext() *SessionContext {
	return &SessionContext{}
}

// OnChange registers a listener for session transitions. Listeners are called
// synchronously, in registration order, outside the context's lock.
func (s *SessionContext) OnChange(fn func(SessionEvent)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// SignIn records a signed-in user with an initial active property.
func (s *SessionContext) SignIn(userID, propertyID string) {
	s.mu.Lock()
	s.userID = userID
	s.propertyID = propertyID
	listeners := append([]func(SessionEvent){}, s.listeners...)
	s.mu.Unlock()

	ev := SessionEvent{Kind: SessionSignedIn, UserID: userID, PropertyID: propertyID}
	for _, fn := range listeners {
		fn(ev)
	}
}

// SwitchProperty changes the active property. No-op when unauthenticated or
// when the property is unchanged.
func (s *SessionContext) SwitchProperty(propertyID string) {
	s.mu.Lock()
	if s.userID == "" || s.propertyID == propertyID {
		s.mu.Unlock()
		return
	}
	s.propertyID = propertyID
	userID := s.userID
	listeners := append([]func(SessionEvent){}, s.listeners...)
	s.mu.Unlock()

	ev := SessionEvent{Kind: SessionScopeChanged, UserID: userID, PropertyID: propertyID}
	for _, fn := range listeners {
		fn(ev)
	}
}

// SignOut clears the session.
func (s *SessionContext) SignOut() {
	s.mu.Lock()
	if s.userID == "" {
		s.mu.Unlock()
		return
	}
	s.userID = ""
	s.propertyID = ""
	listeners := append([]func(SessionEvent){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(SessionEvent{Kind: SessionSignedOut})
	}
}

// Current returns the signed-in user and active property, with ok=false when
// unauthenticated.
func (s *SessionContext) Current() (userID, propertyID string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID, s.propertyID, s.userID != ""
}
