// Package shopping owns the in-memory list collection. Every mutation goes
// through Service, which stamps UpdatedAt, writes the whole collection to
// the repository and only then publishes the new state.
package shopping

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dukerupert/feira/internal/grocery"
	"github.com/dukerupert/feira/internal/ident"
	"github.com/dukerupert/feira/internal/model"
)

var (
	ErrListNotFound  = errors.New("list not found")
	ErrItemNotFound  = errors.New("item not found")
	ErrEmptyName     = errors.New("name is required")
	ErrNoItems       = errors.New("no items recognized")
	ErrSectionToggle = errors.New("sections cannot be completed")
	ErrInvalidItem   = errors.New("invalid item")

	errStale         = errors.New("list changed since base")
	errNothingMerged = errors.New("nothing to merge")
)

// Repository persists the list collection.
type Repository interface {
	// Load returns every list. The fixed list is always present.
	Load() ([]model.ShoppingList, error)
	SaveAll(lists []model.ShoppingList) error
}

// Origin tells observers who caused a change.
type Origin string

const (
	OriginLocal  Origin = "local"
	OriginRemote Origin = "remote"
)

// Change describes one committed mutation.
type Change struct {
	ListID  string
	Origin  Origin
	Deleted bool
}

// Service is the single mutation path for lists. Safe for concurrent use.
type Service struct {
	repo   Repository
	gen    ident.Generator
	logger *slog.Logger
	now    func() time.Time

	mu    sync.Mutex
	lists []model.ShoppingList

	obsMu     sync.RWMutex
	observers []func(Change)
}

// NewService loads the collection from repo.
func NewService(repo Repository, gen ident.Generator, logger *slog.Logger) (*Service, error) {
	lists, err := repo.Load()
	if err != nil {
		return nil, fmt.Errorf("load lists: %w", err)
	}
	s := &Service{
		repo:   repo,
		gen:    gen,
		logger: logger.With("component", "shopping"),
		now:    time.Now,
		lists:  lists,
	}
	if s.index(model.FixedListID) < 0 {
		s.lists = append([]model.ShoppingList{model.NewFixedList(s.now(), gen.Next)}, s.lists...)
	}
	return s, nil
}

// Subscribe registers fn to be called after every committed change. fn runs
// on the mutating goroutine, after the service lock is released.
func (s *Service) Subscribe(fn func(Change)) {
	s.obsMu.Lock()
	s.observers = append(s.observers, fn)
	s.obsMu.Unlock()
}

func (s *Service) publish(changes ...Change) {
	s.obsMu.RLock()
	obs := slices.Clone(s.observers)
	s.obsMu.RUnlock()
	for _, c := range changes {
		for _, fn := range obs {
			fn(c)
		}
	}
}

// Lists returns a copy of every list in display order.
func (s *Service) Lists() []model.ShoppingList {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.ShoppingList, len(s.lists))
	for i, l := range s.lists {
		out[i] = l.Clone()
	}
	return out
}

// Get returns a copy of list id.
func (s *Service) Get(id string) (model.ShoppingList, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(id)
	if i < 0 {
		return model.ShoppingList{}, ErrListNotFound
	}
	return s.lists[i].Clone(), nil
}

// index must be called with s.mu held.
func (s *Service) index(id string) int {
	return slices.IndexFunc(s.lists, func(l model.ShoppingList) bool { return l.ID == id })
}

// stamp returns a timestamp strictly after prev so every mutation is
// observable through UpdatedAt.
func (s *Service) stamp(prev int64) int64 {
	ms := s.now().UnixMilli()
	if ms <= prev {
		ms = prev + 1
	}
	return ms
}

// commit persists next and, on success, makes it the current collection.
// Must be called with s.mu held.
func (s *Service) commit(next []model.ShoppingList) error {
	if err := s.repo.SaveAll(next); err != nil {
		return fmt.Errorf("save lists: %w", err)
	}
	s.lists = next
	return nil
}

// cloneAll must be called with s.mu held.
func (s *Service) cloneAll() []model.ShoppingList {
	out := make([]model.ShoppingList, len(s.lists))
	for i, l := range s.lists {
		out[i] = l.Clone()
	}
	return out
}

// update applies fn to a copy of list id and commits the result. Nothing
// changes when fn or the repository fails.
func (s *Service) update(id string, origin Origin, fn func(l *model.ShoppingList) error) (model.ShoppingList, error) {
	s.mu.Lock()
	i := s.index(id)
	if i < 0 {
		s.mu.Unlock()
		return model.ShoppingList{}, ErrListNotFound
	}
	next := s.cloneAll()
	if err := fn(&next[i]); err != nil {
		s.mu.Unlock()
		return model.ShoppingList{}, err
	}
	next[i].UpdatedAt = s.stamp(next[i].UpdatedAt)
	if err := s.commit(next); err != nil {
		s.mu.Unlock()
		return model.ShoppingList{}, err
	}
	out := next[i].Clone()
	s.mu.Unlock()

	s.publish(Change{ListID: id, Origin: origin})
	return out, nil
}

// insert adds l at the top of the collection, right after the fixed list.
func (s *Service) insert(l model.ShoppingList) (model.ShoppingList, error) {
	s.mu.Lock()
	next := s.cloneAll()
	pos := 0
	if len(next) > 0 && next[0].IsFixed() {
		pos = 1
	}
	next = slices.Insert(next, pos, l)
	if err := s.commit(next); err != nil {
		s.mu.Unlock()
		return model.ShoppingList{}, err
	}
	s.mu.Unlock()

	s.logger.Info("list created", "list_id", l.ID, "items", len(l.Items))
	s.publish(Change{ListID: l.ID, Origin: OriginLocal})
	return l.Clone(), nil
}

func (s *Service) newList(name string, items []model.ShoppingItem, syncDisabled bool) model.ShoppingList {
	ms := s.now().UnixMilli()
	if items == nil {
		items = []model.ShoppingItem{}
	}
	return model.ShoppingList{
		ID:           s.gen.Next(),
		Name:         name,
		Items:        items,
		CreatedAt:    ms,
		UpdatedAt:    ms,
		SyncDisabled: syncDisabled,
	}
}

// CreateList adds an empty list.
func (s *Service) CreateList(name string, syncDisabled bool) (model.ShoppingList, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.ShoppingList{}, ErrEmptyName
	}
	return s.insert(s.newList(name, nil, syncDisabled))
}

// CreateFromText parses a pasted block into a new list. An empty name is
// replaced by one suggested from the text.
func (s *Service) CreateFromText(name, text string, syncDisabled bool) (model.ShoppingList, error) {
	items := s.parseBlock(text)
	if len(items) == 0 {
		return model.ShoppingList{}, ErrNoItems
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = grocery.SuggestListName(text)
	}
	return s.insert(s.newList(name, items, syncDisabled))
}

// ListPatch holds the list fields UpdateList may change.
type ListPatch struct {
	Name         *string `json:"name,omitempty"`
	SyncDisabled *bool   `json:"syncDisabled,omitempty"`
	RemoteURL    *string `json:"remoteUrl,omitempty"`
}

// UpdateList renames a list or changes its sync settings.
func (s *Service) UpdateList(id string, p ListPatch) (model.ShoppingList, error) {
	return s.update(id, OriginLocal, func(l *model.ShoppingList) error {
		if p.Name != nil {
			name := strings.TrimSpace(*p.Name)
			if name == "" {
				return ErrEmptyName
			}
			l.Name = name
		}
		if p.SyncDisabled != nil {
			l.SyncDisabled = *p.SyncDisabled
		}
		if p.RemoteURL != nil {
			l.RemoteURL = strings.TrimSpace(*p.RemoteURL)
		}
		return nil
	})
}

// DeleteList removes a list. The fixed list is never removed; its items are
// reset to the default section scaffold instead.
func (s *Service) DeleteList(id string) error {
	if id == model.FixedListID {
		_, err := s.update(id, OriginLocal, func(l *model.ShoppingList) error {
			l.Items = model.DefaultSectionItems(s.gen.Next)
			return nil
		})
		if err == nil {
			s.logger.Info("fixed list reset")
		}
		return err
	}

	s.mu.Lock()
	i := s.index(id)
	if i < 0 {
		s.mu.Unlock()
		return ErrListNotFound
	}
	next := slices.Delete(s.cloneAll(), i, i+1)
	if err := s.commit(next); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	s.logger.Info("list deleted", "list_id", id)
	s.publish(Change{ListID: id, Origin: OriginLocal, Deleted: true})
	return nil
}

// DuplicateList copies list id under a new name. The copy gets fresh ids and
// every item starts unchecked.
func (s *Service) DuplicateList(id, name string) (model.ShoppingList, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.ShoppingList{}, ErrEmptyName
	}
	src, err := s.Get(id)
	if err != nil {
		return model.ShoppingList{}, err
	}
	items := make([]model.ShoppingItem, len(src.Items))
	for i, it := range src.Items {
		it.ID = s.gen.Next()
		it.Completed = false
		items[i] = it
	}
	dup := s.newList(name, items, src.SyncDisabled)
	dup.RemoteURL = src.RemoteURL
	return s.insert(dup)
}

// ApplyRemote replaces the items of list id with ones pulled from the sync
// endpoint, provided the list was not changed since base. The change is
// published with OriginRemote so it is not pushed back.
func (s *Service) ApplyRemote(id string, base int64, items []model.ShoppingItem) (bool, error) {
	_, err := s.update(id, OriginRemote, func(l *model.ShoppingList) error {
		if l.UpdatedAt != base {
			return errStale
		}
		l.Items = model.CloneItems(items)
		return nil
	})
	if errors.Is(err, errStale) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
