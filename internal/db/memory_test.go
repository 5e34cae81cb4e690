package db

import (
	"context"
	"testing"
)

// TestMemoryStore tests the in-memory backend
func TestMemoryStore(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	blob := []byte(`{"turn":1}`)
	m.Save(ctx, "s1", blob)
	blob[0] = 'X'

	got, ok, _ := m.Load(ctx, "s1")
	if !ok || string(got) != `{"turn":1}` {
		t.Errorf("Expected stored copy, got %s", got)
	}

	m.Save(ctx, "s2", []byte(`{}`))
	if ids, _ := m.List(ctx); len(ids) != 2 {
		t.Errorf("Expected 2 sessions, got %v", ids)
	}

	m.Delete(ctx, "s1")
	if _, ok, _ := m.Load(ctx, "s1"); ok {
		t.Error("Expected s1 deleted")
	}
}
