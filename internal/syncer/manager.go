package syncer

import (
	"context"
	"log/slog"
	"sync"

	"github.com/dukerupert/feira/internal/ident"
)

type entry struct {
	session *Session
	refs    int
}

// Manager owns the sessions of every open list. Several viewers of the same
// list share one session; it closes when the last viewer leaves.
type Manager struct {
	cfg    Config
	remote Remote
	lists  Lists
	gen    ident.Generator
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[string]*entry
	onStatus StatusCallback
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewManager creates a manager. Sessions it opens run until Close.
func NewManager(cfg Config, r Remote, lists Lists, gen ident.Generator, logger *slog.Logger) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		cfg:      cfg,
		remote:   r,
		lists:    lists,
		gen:      gen,
		logger:   logger,
		sessions: make(map[string]*entry),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// SetStatusCallback registers fn to receive every status change.
func (m *Manager) SetStatusCallback(fn StatusCallback) {
	m.mu.Lock()
	m.onStatus = fn
	m.mu.Unlock()
}

func (m *Manager) emit(st Status) {
	m.mu.Lock()
	fn := m.onStatus
	m.mu.Unlock()
	if fn != nil {
		fn(st)
	}
}

// Open registers a viewer of listID, starting its session if it is the
// first one.
func (m *Manager) Open(listID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.sessions[listID]; ok {
		e.refs++
		return e.session
	}
	s := NewSession(listID, m.cfg, m.remote, m.lists, m.gen, m.logger, m.emit)
	s.Start(m.ctx)
	m.sessions[listID] = &entry{session: s, refs: 1}
	m.logger.Info("sync session opened", "list_id", listID)
	return s
}

// Release drops a viewer of listID. The session closes, flushing any pending
// push, when no viewers remain.
func (m *Manager) Release(listID string) {
	m.mu.Lock()
	e, ok := m.sessions[listID]
	if !ok {
		m.mu.Unlock()
		return
	}
	e.refs--
	if e.refs > 0 {
		m.mu.Unlock()
		return
	}
	delete(m.sessions, listID)
	m.mu.Unlock()

	e.session.Close()
	m.logger.Info("sync session closed", "list_id", listID)
}

// Session returns the open session of listID, if any.
func (m *Manager) Session(listID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[listID]
	if !ok {
		return nil, false
	}
	return e.session, true
}

// Status returns the sync status of listID; lists without an open session
// are idle.
func (m *Manager) Status(listID string) Status {
	if s, ok := m.Session(listID); ok {
		return s.Status()
	}
	return idleStatus(listID)
}

// NotifyLocalChange forwards a local mutation of listID to its session.
// Lists nobody is viewing are not pushed.
func (m *Manager) NotifyLocalChange(listID string) {
	if s, ok := m.Session(listID); ok {
		s.NotifyLocalChange()
	}
}

// SetEditing forwards an edit-in-progress mark to the session of listID.
func (m *Manager) SetEditing(listID, itemID string) {
	if s, ok := m.Session(listID); ok {
		s.SetEditing(itemID)
	}
}

// Pull forces a pull of listID, bypassing the grace window. A list without
// an open session is pulled through a short-lived one.
func (m *Manager) Pull(ctx context.Context, listID string) error {
	if s, ok := m.Session(listID); ok {
		return s.Pull(ctx, true)
	}
	m.mu.Lock()
	cfg := m.cfg
	m.mu.Unlock()
	s := NewSession(listID, cfg, m.remote, m.lists, m.gen, m.logger, m.emit)
	defer s.Close()
	return s.Pull(ctx, true)
}

// Endpoint returns the configured endpoint.
func (m *Manager) Endpoint() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg.Endpoint
}

// SetEndpoint changes the endpoint for open and future sessions.
func (m *Manager) SetEndpoint(endpoint string) {
	m.mu.Lock()
	m.cfg.Endpoint = endpoint
	sessions := make([]*Session, 0, len(m.sessions))
	for _, e := range m.sessions {
		sessions = append(sessions, e.session)
	}
	m.mu.Unlock()

	for _, s := range sessions {
		s.SetEndpoint(endpoint)
	}
	m.logger.Info("sync endpoint updated", "configured", endpoint != "")
}

// Close stops every session.
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*entry)
	m.mu.Unlock()

	for _, e := range sessions {
		e.session.Close()
	}
	m.cancel()
}
