package state

import (
	"errors"
	"io"
	"log"
	"sort"
)

const sessionsLogPrefix = "state.Sessions#"

var (
	// ErrSessionNotFound informs about a lookup with an id of a session that does not exist.
	// Stale ids are expected (eg. after a forced teardown), so callers distinguish this
	// condition from other failures.
	ErrSessionNotFound = errors.New("session with provided id does not exist")
)

// SessionsConfig controls behaviour of the sessions registry.
type SessionsConfig struct {
	ErrWriter io.Writer
	OutWriter io.Writer
}

// Sessions is the registry owning the mapping from session id to session record.
// Ids are assigned monotonically increasing starting at 1 and never reused while a
// record referencing them is alive.
type Sessions struct {
	errLog *log.Logger
	outLog *log.Logger
	items  map[int]*Session
	nextID int
}

// NewSessions constructs an empty sessions registry.
func NewSessions(cfg SessionsConfig) *Sessions {
	return &Sessions{
		errLog: log.New(cfg.ErrWriter, sessionsLogPrefix, log.LstdFlags),
		outLog: log.New(cfg.OutWriter, sessionsLogPrefix, log.LstdFlags),
		items:  map[int]*Session{},
		nextID: 1,
	}
}

// Create allocates the next unused id and an empty session record keyed by it.
// Allocation is independent of prior teardowns - it has no side effect on other sessions.
func (s *Sessions) Create() *Session {
	session := &Session{
		id:        s.nextID,
		Lifecycle: LifecycleCreated,
	}
	s.items[session.id] = session
	s.nextID++

	return session
}

// ByID returns the session record for the id or ErrSessionNotFound.
func (s *Sessions) ByID(id int) (*Session, error) {
	session, ok := s.items[id]
	if !ok {
		return nil, ErrSessionNotFound
	}

	return session, nil
}

// All returns live sessions ordered by id.
func (s *Sessions) All() []*Session {
	sessions := make([]*Session, 0, len(s.items))
	for _, session := range s.items {
		sessions = append(sessions, session)
	}

	sort.Slice(sessions, func(i, j int) bool { return sessions[i].id < sessions[j].id })
	return sessions
}

// Destroy releases a single session's player handle (best-effort - release failures are
// logged, not propagated), cancels its scheduled work and removes it from the registry.
// Destroying an unknown id is a no-op.
func (s *Sessions) Destroy(id int) {
	session, ok := s.items[id]
	if !ok {
		return
	}

	err := session.release()
	if err != nil {
		s.errLog.Printf("error while releasing player of session %d: %s\n", id, err)
	}

	delete(s.items, id)
	s.outLog.Printf("destroyed session %d\n", id)
}

// DestroyAll applies the Destroy release discipline to every live session and empties the registry.
func (s *Sessions) DestroyAll() {
	for _, session := range s.All() {
		s.Destroy(session.id)
	}
}
