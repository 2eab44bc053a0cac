// Copyright 2025 The Tarifa Authors
// SPDX-License-Identifier: Apache-2.0

package estimator

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jcodagnone/tarifa/pricing"
)

// ErrStoreClosed is returned by GetOrCreate after Close.
var ErrStoreClosed = errors.New("session store closed")

// Store keeps the sessions of every browser talking to the server.
type Store struct {
	quoter   pricing.Quoter
	recorder Recorder
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
	closed   bool
}

// NewStore creates an empty store. recorder may be nil.
func NewStore(quoter pricing.Quoter, recorder Recorder) *Store {
	return &Store{
		quoter:   quoter,
		recorder: recorder,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Get returns the session with id.
func (st *Store) Get(id string) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	s, ok := st.sessions[id]

	return s, ok
}

// GetOrCreate returns the session with id, or a new session with a fresh id when
// id is unknown. created reports which happened.
func (st *Store) GetOrCreate(id string) (s *Session, created bool, err error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.closed {
		return nil, false, ErrStoreClosed
	}

	if s, ok := st.sessions[id]; ok && id != "" {
		return s, false, nil
	}

	s = NewSession(uuid.NewString(), st.quoter, st.recorder)
	s.now = st.now
	s.lastSeen = st.now()
	st.sessions[s.id] = s

	return s, true, nil
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()

	return len(st.sessions)
}

// Sweep drops sessions idle for longer than maxIdle. Sessions waiting on a pricing
// request are kept. It returns how many sessions were dropped.
func (st *Store) Sweep(maxIdle time.Duration) int {
	st.mu.Lock()
	defer st.mu.Unlock()

	cutoff := st.now().Add(-maxIdle)
	dropped := 0

	for id, s := range st.sessions {
		lastSeen, loading := s.idleSince()
		if loading || !lastSeen.Before(cutoff) {
			continue
		}

		delete(st.sessions, id)

		dropped++
	}

	return dropped
}

// Close abandons every in-flight request, waits for them to settle and refuses
// new sessions.
func (st *Store) Close() {
	st.mu.Lock()
	st.closed = true

	sessions := make([]*Session, 0, len(st.sessions))
	for _, s := range st.sessions {
		sessions = append(sessions, s)
	}
	st.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}

	for _, s := range sessions {
		s.Wait()
	}
}
