package app

import (
	"strings"
	"sync"
)

// Session holds the caller's current project selection. It replaces a hidden
// module-level variable with an explicit object the transports share, and
// notifies subscribers when the selection changes.
type Session struct {
	mu          sync.RWMutex
	projectID   string
	nextSubID   int
	subscribers map[int]func(string)
}

// NewSession constructs an empty session.
func NewSession() *Session {
	return &Session{
		subscribers: map[int]func(string){},
	}
}

// CurrentProjectID returns the selected project id, empty when unset.
func (s *Session) CurrentProjectID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.projectID
}

// SetCurrentProject selects a project and notifies subscribers. Re-selecting
// the current project is a no-op.
func (s *Session) SetCurrentProject(projectID string) {
	projectID = strings.TrimSpace(projectID)

	s.mu.Lock()
	if s.projectID == projectID {
		s.mu.Unlock()
		return
	}
	s.projectID = projectID
	listeners := make([]func(string), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(projectID)
	}
}

// Subscribe registers a change listener and returns its cancel func.
func (s *Session) Subscribe(fn func(projectID string)) (cancel func()) {
	if fn == nil {
		return func() {}
	}
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}
