// Package syncer mirrors lists to a spreadsheet endpoint. Each open list
// view gets a Session that pulls on a timer and pushes after local changes.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dukerupert/feira/internal/ident"
	"github.com/dukerupert/feira/internal/importer"
	"github.com/dukerupert/feira/internal/model"
	"github.com/dukerupert/feira/internal/remote"
)

// ErrSkipped is returned when a pull or push did not run because one of its
// preconditions was not met.
var ErrSkipped = errors.New("sync skipped")

// Remote is the spreadsheet endpoint.
type Remote interface {
	Fetch(ctx context.Context, endpoint string) (remote.Document, error)
	Push(ctx context.Context, endpoint string, payload remote.PushPayload) error
}

// Lists is the part of the list service a session needs.
type Lists interface {
	Get(id string) (model.ShoppingList, error)
	// ApplyRemote replaces the items of list id only if its UpdatedAt still
	// equals base. It reports whether the replacement happened.
	ApplyRemote(id string, base int64, items []model.ShoppingItem) (bool, error)
}

// Session is the sync state of one open list.
type Session struct {
	listID string
	cfg    Config
	remote Remote
	lists  Lists
	gen    ident.Generator
	logger *slog.Logger
	notify StatusCallback
	now    func() time.Time

	mu        sync.Mutex
	endpoint  string
	status    Status
	lastLocal time.Time
	pulling   bool
	editing   string
	closed    bool

	pushTimer *time.Timer
	pushSeq   uint64
	pullReset *time.Timer
	pushReset *time.Timer
	pullEpoch uint64
	pushEpoch uint64

	cancel  context.CancelFunc
	done    chan struct{}
	pushing sync.WaitGroup
}

// NewSession creates a session for listID. It does nothing until Start.
func NewSession(listID string, cfg Config, r Remote, lists Lists, gen ident.Generator, logger *slog.Logger, notify StatusCallback) *Session {
	if notify == nil {
		notify = func(Status) {}
	}
	return &Session{
		listID:   listID,
		cfg:      cfg.withDefaults(),
		remote:   r,
		lists:    lists,
		gen:      gen,
		logger:   logger.With("component", "syncer", "list_id", listID),
		notify:   notify,
		now:      time.Now,
		endpoint: cfg.Endpoint,
		status:   idleStatus(listID),
	}
}

// ListID returns the id of the list this session syncs.
func (s *Session) ListID() string { return s.listID }

// Status returns a snapshot of the session's sync state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// SetEndpoint swaps the endpoint used by later pulls and pushes.
func (s *Session) SetEndpoint(endpoint string) {
	s.mu.Lock()
	s.endpoint = endpoint
	s.mu.Unlock()
}

// SetEditing marks itemID as being edited. An empty id clears the mark.
// Periodic pulls are skipped while an item is being edited.
func (s *Session) SetEditing(itemID string) {
	s.mu.Lock()
	s.editing = itemID
	s.mu.Unlock()
}

// Start runs the periodic pull loop until ctx is done or Close is called.
func (s *Session) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go s.run(ctx)
	s.logger.Debug("sync session started", "interval", s.cfg.PullInterval)
}

func (s *Session) run(ctx context.Context) {
	defer close(s.done)

	first := time.NewTimer(s.cfg.InitialPullDelay)
	defer first.Stop()
	select {
	case <-ctx.Done():
		return
	case <-first.C:
		s.tick(ctx)
	}

	ticker := time.NewTicker(s.cfg.PullInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Session) tick(ctx context.Context) {
	s.mu.Lock()
	editing := s.editing
	s.mu.Unlock()
	if editing != "" {
		s.logger.Debug("pull skipped, item being edited", "item_id", editing)
		return
	}
	if err := s.Pull(ctx, false); err != nil && !errors.Is(err, ErrSkipped) {
		s.logger.Warn("pull failed", "error", err)
	}
}

// endpointFor picks the list's own URL over the configured one.
func (s *Session) endpointFor(list model.ShoppingList) string {
	if list.RemoteURL != "" {
		return list.RemoteURL
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.endpoint
}

// Pull fetches the remote list and, when it diverges, lets it overwrite the
// local items. Unless force is set, a pull within the grace window of a
// local change is skipped. A pull already in flight is never queued.
func (s *Session) Pull(ctx context.Context, force bool) error {
	list, err := s.lists.Get(s.listID)
	if err != nil {
		return fmt.Errorf("get list: %w", err)
	}
	if list.SyncDisabled {
		return fmt.Errorf("%w: sync disabled", ErrSkipped)
	}
	endpoint := s.endpointFor(list)
	if !remote.ValidEndpoint(endpoint) {
		return fmt.Errorf("%w: no valid endpoint", ErrSkipped)
	}

	s.mu.Lock()
	switch {
	case s.closed:
		s.mu.Unlock()
		return fmt.Errorf("%w: session closed", ErrSkipped)
	case s.pulling:
		s.mu.Unlock()
		return fmt.Errorf("%w: pull in flight", ErrSkipped)
	case !force && s.withinGrace():
		s.mu.Unlock()
		return fmt.Errorf("%w: grace window", ErrSkipped)
	}
	s.pulling = true
	started := s.now()
	s.setPull(StateSyncing)
	snap := s.status
	s.mu.Unlock()
	s.notify(snap)

	doc, err := s.remote.Fetch(ctx, endpoint)
	if err != nil {
		if errors.Is(err, remote.ErrMalformedDocument) {
			s.finishPull(StateIdle, nil)
			return fmt.Errorf("%w: %v", ErrSkipped, err)
		}
		s.finishPull(StateError, err)
		return err
	}

	s.mu.Lock()
	stale := !force && s.lastLocal.After(started)
	s.mu.Unlock()
	if stale {
		s.finishPull(StateIdle, nil)
		return fmt.Errorf("%w: local change during fetch", ErrSkipped)
	}

	incoming := importer.NormalizeRemote(doc.Items, s.gen)

	current, err := s.lists.Get(s.listID)
	if err != nil {
		s.finishPull(StateError, err)
		return fmt.Errorf("get list: %w", err)
	}

	if !Diverged(current.Items, incoming) {
		s.finishPull(StateDone, nil)
		return nil
	}

	// An empty sheet must not wipe the fixed list's section scaffold.
	if current.IsFixed() && current.HasSections() && !model.HasSections(incoming) {
		s.logger.Info("remote lacks sections, pushing fixed list instead")
		s.finishPull(StateDone, nil)
		return s.push(ctx)
	}

	applied, err := s.lists.ApplyRemote(s.listID, current.UpdatedAt, incoming)
	if err != nil {
		s.finishPull(StateError, err)
		return fmt.Errorf("apply remote items: %w", err)
	}
	if !applied {
		s.finishPull(StateIdle, nil)
		return fmt.Errorf("%w: list changed while applying", ErrSkipped)
	}
	s.logger.Info("remote list applied", "items", len(incoming))
	s.finishPull(StateDone, nil)
	return nil
}

// withinGrace must be called with s.mu held.
func (s *Session) withinGrace() bool {
	return !s.lastLocal.IsZero() && s.now().Sub(s.lastLocal) < s.cfg.GraceWindow
}

func (s *Session) finishPull(state State, err error) {
	s.mu.Lock()
	s.pulling = false
	s.setPull(state)
	if state == StateDone {
		t := s.now()
		s.status.LastPull = &t
	}
	if err != nil {
		s.status.LastError = err.Error()
	}
	snap := s.status
	s.mu.Unlock()
	s.notify(snap)
}

// setPull must be called with s.mu held.
func (s *Session) setPull(state State) {
	s.status.Pull = state
	s.pullEpoch++
	if s.pullReset != nil {
		s.pullReset.Stop()
		s.pullReset = nil
	}
	if delay := s.resetDelay(state); delay > 0 && !s.closed {
		epoch := s.pullEpoch
		s.pullReset = time.AfterFunc(delay, func() {
			s.mu.Lock()
			if s.pullEpoch != epoch || s.closed {
				s.mu.Unlock()
				return
			}
			s.status.Pull = StateIdle
			snap := s.status
			s.mu.Unlock()
			s.notify(snap)
		})
	}
}

// setPush must be called with s.mu held.
func (s *Session) setPush(state State) {
	s.status.Push = state
	s.pushEpoch++
	if s.pushReset != nil {
		s.pushReset.Stop()
		s.pushReset = nil
	}
	if delay := s.resetDelay(state); delay > 0 && !s.closed {
		epoch := s.pushEpoch
		s.pushReset = time.AfterFunc(delay, func() {
			s.mu.Lock()
			if s.pushEpoch != epoch || s.closed {
				s.mu.Unlock()
				return
			}
			s.status.Push = StateIdle
			snap := s.status
			s.mu.Unlock()
			s.notify(snap)
		})
	}
}

func (s *Session) resetDelay(state State) time.Duration {
	switch state {
	case StateDone:
		return s.cfg.DoneResetDelay
	case StateError:
		return s.cfg.ErrorResetDelay
	}
	return 0
}

// NotifyLocalChange records a local mutation: it restarts the grace window
// and (re)schedules a debounced push, replacing any pending one.
func (s *Session) NotifyLocalChange() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastLocal = s.now()
	if s.closed {
		return
	}
	if s.pushTimer != nil {
		s.pushTimer.Stop()
	}
	s.pushSeq++
	seq := s.pushSeq
	s.pushTimer = time.AfterFunc(s.cfg.PushDebounce, func() { s.firePush(seq) })
}

func (s *Session) firePush(seq uint64) {
	s.mu.Lock()
	if s.closed || seq != s.pushSeq {
		s.mu.Unlock()
		return
	}
	s.pushTimer = nil
	s.pushing.Add(1)
	s.mu.Unlock()
	defer s.pushing.Done()

	if err := s.push(context.Background()); err != nil && !errors.Is(err, ErrSkipped) {
		s.logger.Warn("push failed", "error", err)
	}
}

// Push sends the current list right away.
func (s *Session) Push(ctx context.Context) error {
	return s.push(ctx)
}

func (s *Session) push(ctx context.Context) error {
	list, err := s.lists.Get(s.listID)
	if err != nil {
		return fmt.Errorf("get list: %w", err)
	}
	if list.SyncDisabled {
		return fmt.Errorf("%w: sync disabled", ErrSkipped)
	}
	endpoint := s.endpointFor(list)
	if !remote.ValidEndpoint(endpoint) {
		return fmt.Errorf("%w: no valid endpoint", ErrSkipped)
	}

	s.mu.Lock()
	s.setPush(StateSyncing)
	snap := s.status
	s.mu.Unlock()
	s.notify(snap)

	payload := remote.PushPayload{
		Name:      list.Name,
		Items:     importer.DenormalizeRemote(list.Items),
		UpdatedAt: s.now().UnixMilli(),
		IsFixed:   list.IsFixed(),
	}
	err = s.remote.Push(ctx, endpoint, payload)

	s.mu.Lock()
	if err != nil {
		s.setPush(StateError)
		s.status.LastError = err.Error()
	} else {
		s.setPush(StateDone)
		t := s.now()
		s.status.LastPush = &t
	}
	snap = s.status
	s.mu.Unlock()
	s.notify(snap)

	if err != nil {
		return fmt.Errorf("push list: %w", err)
	}
	s.logger.Debug("list pushed", "items", len(payload.Items))
	return nil
}

// Close stops the pull loop and every timer. A push still waiting for its
// debounce is sent once before Close returns.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	pending := s.pushTimer != nil && s.pushTimer.Stop()
	s.pushTimer = nil
	s.pushSeq++
	if s.pullReset != nil {
		s.pullReset.Stop()
	}
	if s.pushReset != nil {
		s.pushReset.Stop()
	}
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
	s.pushing.Wait()

	if pending {
		if err := s.push(context.Background()); err != nil && !errors.Is(err, ErrSkipped) {
			s.logger.Warn("final push failed", "error", err)
		}
	}
	s.logger.Debug("sync session closed")
}
