package session

import (
	"testing"
)

func TestRegistryCancelIsIdempotent(t *testing.T) {
	r := NewRegistry()

	cancelled := 0
	terminated := 0
	if err := r.Register("req-1", func() { cancelled++ }, func() { terminated++ }); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if !r.Cancel("req-1") {
		t.Error("First cancel must find the live session")
	}
	if r.Cancel("req-1") {
		t.Error("Second cancel must report no live session")
	}
	if cancelled != 1 || terminated != 1 {
		t.Errorf("Teardown closures must run exactly once, got cancel=%d terminate=%d", cancelled, terminated)
	}
}

func TestRegistryCancelUnknownIsBenign(t *testing.T) {
	r := NewRegistry()
	if r.Cancel("never-existed") {
		t.Error("Cancelling an unknown session must report false")
	}
}

func TestRegistryRejectsDuplicate(t *testing.T) {
	r := NewRegistry()
	noop := func() {}
	if err := r.Register("req-1", noop, noop); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := r.Register("req-1", noop, noop); err == nil {
		t.Error("Duplicate registration must fail")
	}
	if r.Len() != 1 {
		t.Errorf("Expected exactly one session, got %d", r.Len())
	}
}

func TestRegistryRemoveIsIdempotent(t *testing.T) {
	r := NewRegistry()
	r.Register("req-1", func() {}, func() {})
	r.Remove("req-1")
	r.Remove("req-1") // must not panic or error
	if r.Len() != 0 {
		t.Errorf("Expected empty registry, got %d entries", r.Len())
	}
}
