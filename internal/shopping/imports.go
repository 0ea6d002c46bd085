package shopping

import (
	"fmt"

	"github.com/dukerupert/feira/internal/importer"
	"github.com/dukerupert/feira/internal/model"
)

// CopySuffix marks a list that arrived through a share link.
const CopySuffix = " (Cópia)"

// ImportResult summarizes an import.
type ImportResult struct {
	Lists       int      `json:"lists"`
	Items       int      `json:"items"`
	MergedItems int      `json:"merged_items"`
	ListIDs     []string `json:"list_ids"`
}

// ImportBackup folds a set of lists into the collection: the fixed list is
// merged without duplicates, other lists are added, renamed on id clashes.
func (s *Service) ImportBackup(lists []model.ShoppingList) (ImportResult, error) {
	s.mu.Lock()
	res := importer.MergeBackup(s.cloneAll(), lists, s.gen)

	var changes []Change
	var out ImportResult
	before := make(map[string]int64, len(s.lists))
	for _, l := range s.lists {
		before[l.ID] = l.UpdatedAt
	}
	ms := s.now().UnixMilli()
	for i := range res.Lists {
		l := &res.Lists[i]
		prev, existed := before[l.ID]
		switch {
		case !existed:
			if l.CreatedAt == 0 {
				l.CreatedAt = ms
			}
			l.UpdatedAt = s.stamp(0)
			out.ListIDs = append(out.ListIDs, l.ID)
			out.Items += len(l.Items)
		case l.IsFixed() && res.MergedItems > 0:
			l.UpdatedAt = s.stamp(prev)
		default:
			continue
		}
		changes = append(changes, Change{ListID: l.ID, Origin: OriginLocal})
	}
	out.Lists = res.Imported
	out.MergedItems = res.MergedItems

	if len(changes) == 0 {
		s.mu.Unlock()
		return out, nil
	}
	if err := s.commit(res.Lists); err != nil {
		s.mu.Unlock()
		return ImportResult{}, err
	}
	s.mu.Unlock()

	s.logger.Info("backup imported", "lists", out.Lists, "merged_items", out.MergedItems)
	s.publish(changes...)
	return out, nil
}

// Import stores a decoded payload. Backups and lists go through
// ImportBackup; bare items become a new list.
func (s *Service) Import(p importer.Payload) (ImportResult, error) {
	switch p.Kind {
	case importer.KindBackup, importer.KindList:
		return s.ImportBackup(p.Lists)
	}
	if len(p.Items) == 0 {
		return ImportResult{}, nil
	}
	l, err := s.insert(s.newList(importer.DefaultListName, p.Items, false))
	if err != nil {
		return ImportResult{}, err
	}
	return ImportResult{Lists: 1, Items: len(l.Items), ListIDs: []string{l.ID}}, nil
}

// MergeInto adds the items of a payload to list id, preferring a same-named
// list when the payload is a full backup. It returns how many were added.
func (s *Service) MergeInto(id string, p importer.Payload) (int, error) {
	added := 0
	_, err := s.update(id, OriginLocal, func(l *model.ShoppingList) error {
		items, n := importer.MergeItems(*l, importer.ItemsFor(p, l.Name), s.gen)
		if n == 0 {
			return errNothingMerged
		}
		l.Items = items
		added = n
		return nil
	})
	if err == errNothingMerged {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return added, nil
}

// ImportDeepLink decodes a "#import=" share fragment and stores it as a new
// list named "<name> (Cópia)".
func (s *Service) ImportDeepLink(fragment string) (model.ShoppingList, error) {
	shared, err := importer.DecodeDeepLink(fragment, s.gen)
	if err != nil {
		return model.ShoppingList{}, fmt.Errorf("decode share link: %w", err)
	}
	l := s.newList(shared.Name+CopySuffix, shared.Items, shared.SyncDisabled)
	return s.insert(l)
}

// ShareLink renders list id as a share fragment.
func (s *Service) ShareLink(id string) (string, error) {
	l, err := s.Get(id)
	if err != nil {
		return "", err
	}
	return importer.EncodeDeepLink(l)
}
