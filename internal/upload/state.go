// Package upload drives the statement ingestion wizard: upload, bank
// confirmation, extraction, review and final import.
package upload

import (
	"sync"

	"github.com/tanveerk/finhub/internal/bankdetect"
	"github.com/tanveerk/finhub/internal/domain"
)

// Wizard steps. An upload session always sits at exactly one of these.
const (
	StepUpload      = 1
	StepConfirmBank = 2
	StepReview      = 3
	StepCategorize  = 4
	StepDone        = 5
)

// State is the in-flight upload for one session. It lives in memory only:
// nothing is persisted until the final confirm, and a restart simply means
// the user uploads again.
type State struct {
	Step          int
	FileName      string
	StoredName    string
	StatementText string
	Detection     *bankdetect.Result
	Bank          string
	Country       string
	Candidates    []domain.TransactionCandidate
	Skipped       map[int]bool
}

// SessionStore holds upload state keyed by session token. Safe for concurrent
// use. Get and Put copy the state so callers cannot mutate stored values
// behind the lock.
type SessionStore struct {
	mu     sync.RWMutex
	states map[string]*State
}

// NewSessionStore creates an empty session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{states: make(map[string]*State)}
}

// Put saves or replaces the state for a session.
func (s *SessionStore) Put(sessionID string, st *State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *st
	s.states[sessionID] = &cp
}

// Get retrieves the state for a session, or false when no upload is in flight.
func (s *SessionStore) Get(sessionID string) (*State, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.states[sessionID]
	if !ok {
		return nil, false
	}
	cp := *st
	return &cp, true
}

// Delete clears the state for a session.
func (s *SessionStore) Delete(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.states, sessionID)
}
