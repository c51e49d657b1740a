package session

import (
	"context"
	"fmt"
	"log"
	"sync"
)

// handle keeps the two teardown closures of one live session: cancelSource
// stops the remote stream, terminate aborts the worker.
type handle struct {
	cancelSource context.CancelFunc
	terminate    func()
}

// Registry maps requestId to the live producer/consumer pair of a session.
// It is the only structure in the pipeline mutated by multiple callers, so
// every operation holds the mutex; that serializes a cancel racing against
// the session's own completion.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*handle
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*handle)}
}

// Register adds a session. Exactly one session may exist per requestId;
// a duplicate registration is an error.
func (r *Registry) Register(requestID string, cancelSource context.CancelFunc, terminate func()) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sessions[requestID]; exists {
		return fmt.Errorf("session %q is already registered", requestID)
	}
	r.sessions[requestID] = &handle{cancelSource: cancelSource, terminate: terminate}
	return nil
}

// Remove deletes a session entry. Removing an absent entry is a no-op, so
// natural completion and an external cancel can both run it safely.
func (r *Registry) Remove(requestID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, requestID)
}

// Cancel tears down the session registered under requestId and reports
// whether one was found. Cancelling an absent session is benign: it already
// ended or never existed. Never panics.
func (r *Registry) Cancel(requestID string) bool {
	r.mu.Lock()
	h, ok := r.sessions[requestID]
	if ok {
		delete(r.sessions, requestID)
	}
	r.mu.Unlock()

	if !ok {
		return false
	}
	log.Printf("Registry: cancelling session %s", requestID)
	h.cancelSource()
	h.terminate()
	return true
}

// CancelAll tears down every live session, used on shutdown.
func (r *Registry) CancelAll() {
	r.mu.Lock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	for _, id := range ids {
		r.Cancel(id)
	}
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
