package session

import (
	"testing"
	"time"
)

func newRegistrySession(id string) *Session {
	return New(id, "guild-1", "/tmp/"+id, time.Now(), Options{}, func(_ SegmentJob) {})
}

func TestRegistry_GetOrCreateIsNoOpForExistingKey(t *testing.T) {
	registry := NewRegistry()

	first, created := registry.GetOrCreate("guild-1", func() *Session { return newRegistrySession("s1") })
	if !created || first.ID != "s1" {
		t.Fatalf("expected fresh session, got created=%v id=%s", created, first.ID)
	}

	second, created := registry.GetOrCreate("guild-1", func() *Session { return newRegistrySession("s2") })
	if created {
		t.Fatal("expected creation against occupied key to be a no-op")
	}
	if second != first {
		t.Fatal("expected the existing session to be returned")
	}
	if registry.Len() != 1 {
		t.Fatalf("expected one session, got %d", registry.Len())
	}
}

func TestRegistry_GetUnknownKeyReturnsNil(t *testing.T) {
	registry := NewRegistry()
	if registry.Get("nope") != nil {
		t.Fatal("expected nil for unknown guild")
	}
}

func TestRegistry_RemoveMakesSessionUnretrievable(t *testing.T) {
	registry := NewRegistry()
	registry.GetOrCreate("guild-1", func() *Session { return newRegistrySession("s1") })

	registry.Remove("guild-1")
	if registry.Get("guild-1") != nil {
		t.Fatal("expected session gone after removal")
	}
	// Removing again is harmless.
	registry.Remove("guild-1")
}
