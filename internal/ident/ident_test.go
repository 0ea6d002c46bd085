package ident

import (
	"sync"
	"testing"
)

func TestUUIDUnique(t *testing.T) {
	var g UUID
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := g.Next()
		if len(id) != 36 {
			t.Fatalf("id %q has length %d, want 36", id, len(id))
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}

func TestSequence(t *testing.T) {
	s := NewSequence("item")
	if got := s.Next(); got != "item-1" {
		t.Errorf("first = %q, want item-1", got)
	}
	if got := s.Next(); got != "item-2" {
		t.Errorf("second = %q, want item-2", got)
	}
}

func TestSequenceConcurrent(t *testing.T) {
	s := NewSequence("x")
	var mu sync.Mutex
	seen := make(map[string]bool)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				id := s.Next()
				mu.Lock()
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if len(seen) != 400 {
		t.Errorf("got %d distinct ids, want 400", len(seen))
	}
}

func TestFunc(t *testing.T) {
	g := Func(func() string { return "fixed" })
	if got := g.Next(); got != "fixed" {
		t.Errorf("Next() = %q, want fixed", got)
	}
}
