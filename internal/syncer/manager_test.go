package syncer

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/dukerupert/feira/internal/ident"
	"github.com/dukerupert/feira/internal/remote"
)

func newTestManager(lists Lists, r Remote) *Manager {
	return NewManager(testConfig(), r, lists, ident.NewSequence("r"), slog.Default())
}

func TestManagerRefCounting(t *testing.T) {
	m := newTestManager(newFakeLists(regularList("Arroz")), &fakeRemote{})
	defer m.Close()

	s1 := m.Open("l1")
	s2 := m.Open("l1")
	if s1 != s2 {
		t.Fatal("viewers of the same list should share a session")
	}

	m.Release("l1")
	if _, ok := m.Session("l1"); !ok {
		t.Fatal("session closed while a viewer remains")
	}

	m.Release("l1")
	if _, ok := m.Session("l1"); ok {
		t.Fatal("session still open after last viewer left")
	}

	// releasing an unknown list is a no-op
	m.Release("l1")
}

func TestManagerNotifyLocalChange(t *testing.T) {
	r := &fakeRemote{}
	m := newTestManager(newFakeLists(regularList("Arroz")), r)

	m.NotifyLocalChange("l1")
	m.Open("l1")
	m.NotifyLocalChange("l1")
	m.Release("l1")

	// only the change seen by the open session is flushed on close
	if _, pushes := r.counts(); pushes != 1 {
		t.Errorf("pushes = %d, want 1", pushes)
	}
	m.Close()
}

func TestManagerStatus(t *testing.T) {
	m := newTestManager(newFakeLists(regularList("Arroz")), &fakeRemote{})
	defer m.Close()

	st := m.Status("nope")
	if st.ListID != "nope" || st.Pull != StateIdle || st.Push != StateIdle {
		t.Errorf("status = %+v, want idle", st)
	}
}

func TestManagerPullWithoutSession(t *testing.T) {
	lists := newFakeLists(regularList("Arroz"))
	r := &fakeRemote{doc: remote.Document{Items: rows("Feijão")}}
	m := newTestManager(lists, r)
	defer m.Close()

	if err := m.Pull(context.Background(), "l1"); err != nil {
		t.Fatalf("Pull: %v", err)
	}
	if _, applied := lists.snapshot(); applied != 1 {
		t.Errorf("applied = %d, want 1", applied)
	}
}

func TestManagerSetEndpoint(t *testing.T) {
	lists := newFakeLists(regularList("Arroz"))
	r := &fakeRemote{doc: remote.Document{Items: rows("Arroz")}}
	m := newTestManager(lists, r)
	defer m.Close()
	m.SetEndpoint("")

	s := m.Open("l1")
	if err := s.Pull(context.Background(), true); err == nil {
		t.Fatal("pull without endpoint should be skipped")
	}

	m.SetEndpoint(testEndpoint)
	if m.Endpoint() != testEndpoint {
		t.Errorf("endpoint = %q", m.Endpoint())
	}
	if err := s.Pull(context.Background(), true); err != nil {
		t.Errorf("Pull after SetEndpoint: %v", err)
	}
	m.Release("l1")
}

func TestManagerForwardsStatus(t *testing.T) {
	var mu sync.Mutex
	var got []Status
	m := newTestManager(newFakeLists(regularList("Arroz")), &fakeRemote{})
	m.SetStatusCallback(func(st Status) {
		mu.Lock()
		got = append(got, st)
		mu.Unlock()
	})
	defer m.Close()

	s := m.Open("l1")
	if err := s.Push(context.Background()); err != nil {
		t.Fatalf("Push: %v", err)
	}
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) >= 2
	})
	mu.Lock()
	defer mu.Unlock()
	if got[0].ListID != "l1" || got[0].Push != StateSyncing || got[1].Push != StateDone {
		t.Errorf("statuses = %+v", got)
	}
}

func TestManagerSetEditing(t *testing.T) {
	m := newTestManager(newFakeLists(regularList("Arroz")), &fakeRemote{})
	defer m.Close()

	// no session yet: nothing to mark
	m.SetEditing("l1", "a")

	s := m.Open("l1")
	m.SetEditing("l1", "a")
	s.mu.Lock()
	editing := s.editing
	s.mu.Unlock()
	if editing != "a" {
		t.Errorf("editing = %q, want a", editing)
	}
	m.Release("l1")
}
