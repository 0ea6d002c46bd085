package shopping

import (
	"fmt"
	"slices"
	"strings"

	"github.com/dukerupert/feira/internal/grocery"
	"github.com/dukerupert/feira/internal/model"
)

// A description starting with the section marker would come back as a
// section after a sync or share round trip.
var errSectionMarker = fmt.Errorf("%w: description starts with %q", ErrInvalidItem, strings.TrimSpace(model.SectionMarker))

func findItem(l *model.ShoppingList, itemID string) int {
	return slices.IndexFunc(l.Items, func(it model.ShoppingItem) bool { return it.ID == itemID })
}

// AddItemText parses one line and adds it to list id. On a list with
// sections the item lands at the end of the section it belongs to.
func (s *Service) AddItemText(id, text string) (model.ShoppingItem, error) {
	if strings.TrimSpace(text) == "" {
		return model.ShoppingItem{}, ErrNoItems
	}
	p := grocery.ParseItemText(text)
	if _, marked := model.SplitSectionMarker(p.Description); marked {
		return model.ShoppingItem{}, errSectionMarker
	}
	if p.Quantity == 0 {
		p.Quantity = 1
	}
	item := p.Item(s.gen.Next())

	_, err := s.update(id, OriginLocal, func(l *model.ShoppingList) error {
		if l.HasSections() {
			if idx, ok := grocery.InsertIndex(l.Items, grocery.Categorize(item.Description)); ok {
				l.Items = slices.Insert(l.Items, idx, item)
				return nil
			}
		}
		l.Items = append(l.Items, item)
		return nil
	})
	if err != nil {
		return model.ShoppingItem{}, err
	}
	return item, nil
}

// parseBlock parses a pasted block. Lines carrying the section marker
// become section headers; a bare marker is dropped.
func (s *Service) parseBlock(text string) []model.ShoppingItem {
	parsed := grocery.ParseShoppingList(text, s.gen)
	items := parsed[:0]
	for _, it := range parsed {
		name, marked := model.SplitSectionMarker(it.Description)
		switch {
		case !marked:
			items = append(items, it)
		case name != "":
			items = append(items, model.NewSection(it.ID, name))
		}
	}
	return items
}

// AddItems parses a pasted block and appends every item to list id.
func (s *Service) AddItems(id, text string) ([]model.ShoppingItem, error) {
	items := s.parseBlock(text)
	if len(items) == 0 {
		return nil, ErrNoItems
	}
	_, err := s.update(id, OriginLocal, func(l *model.ShoppingList) error {
		l.Items = append(l.Items, items...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// AddSection appends a section header to list id.
func (s *Service) AddSection(id, name string) (model.ShoppingItem, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.ShoppingItem{}, ErrEmptyName
	}
	sec := model.NewSection(s.gen.Next(), name)
	_, err := s.update(id, OriginLocal, func(l *model.ShoppingList) error {
		l.Items = append(l.Items, sec)
		return nil
	})
	if err != nil {
		return model.ShoppingItem{}, err
	}
	return sec, nil
}

// ToggleItem flips the completed flag of an item. Sections cannot be toggled.
func (s *Service) ToggleItem(id, itemID string) (model.ShoppingItem, error) {
	var out model.ShoppingItem
	_, err := s.update(id, OriginLocal, func(l *model.ShoppingList) error {
		i := findItem(l, itemID)
		if i < 0 {
			return ErrItemNotFound
		}
		if l.Items[i].IsSection {
			return ErrSectionToggle
		}
		l.Items[i].Completed = !l.Items[i].Completed
		out = l.Items[i]
		return nil
	})
	return out, err
}

// ItemPatch holds the item fields EditItem may change. Nil fields are kept.
type ItemPatch struct {
	Description *string  `json:"description,omitempty"`
	Quantity    *float64 `json:"quantity,omitempty"`
	Unit        *string  `json:"unit,omitempty"`
	Brand       *string  `json:"brand,omitempty"`
	Price       *float64 `json:"price,omitempty"`
	Note        *string  `json:"note,omitempty"`
	Completed   *bool    `json:"completed,omitempty"`
}

// EditItem applies p to an item. Units are normalized when recognized.
func (s *Service) EditItem(id, itemID string, p ItemPatch) (model.ShoppingItem, error) {
	var out model.ShoppingItem
	_, err := s.update(id, OriginLocal, func(l *model.ShoppingList) error {
		i := findItem(l, itemID)
		if i < 0 {
			return ErrItemNotFound
		}
		it := l.Items[i]
		if p.Description != nil {
			desc := strings.TrimSpace(*p.Description)
			if desc == "" {
				return fmt.Errorf("%w: empty description", ErrInvalidItem)
			}
			if _, marked := model.SplitSectionMarker(desc); marked {
				return errSectionMarker
			}
			it.Description = grocery.Capitalize(desc)
		}
		if p.Quantity != nil {
			if *p.Quantity < 0 {
				return fmt.Errorf("%w: negative quantity", ErrInvalidItem)
			}
			it.Quantity = *p.Quantity
		}
		if p.Unit != nil {
			unit := strings.TrimSpace(*p.Unit)
			if code, ok := grocery.NormalizeUnit(unit); ok {
				unit = code
			}
			it.Unit = unit
		}
		if p.Brand != nil {
			it.Brand = strings.TrimSpace(*p.Brand)
		}
		if p.Price != nil {
			if *p.Price < 0 {
				return fmt.Errorf("%w: negative price", ErrInvalidItem)
			}
			it.Price = *p.Price
		}
		if p.Note != nil {
			it.Note = strings.TrimSpace(*p.Note)
		}
		if p.Completed != nil {
			if it.IsSection && *p.Completed {
				return ErrSectionToggle
			}
			it.Completed = *p.Completed
		}
		if it.IsSection {
			it.Price = 0
		} else if it.Unit == "" {
			it.Unit = model.DefaultUnit
		}
		l.Items[i] = it
		out = it
		return nil
	})
	return out, err
}

// DeleteItem removes an item from list id.
func (s *Service) DeleteItem(id, itemID string) error {
	_, err := s.update(id, OriginLocal, func(l *model.ShoppingList) error {
		i := findItem(l, itemID)
		if i < 0 {
			return ErrItemNotFound
		}
		l.Items = slices.Delete(l.Items, i, i+1)
		return nil
	})
	return err
}

// MoveItem moves an item to position index, clamped to the list bounds.
func (s *Service) MoveItem(id, itemID string, index int) error {
	_, err := s.update(id, OriginLocal, func(l *model.ShoppingList) error {
		i := findItem(l, itemID)
		if i < 0 {
			return ErrItemNotFound
		}
		it := l.Items[i]
		l.Items = slices.Delete(l.Items, i, i+1)
		index = max(0, min(index, len(l.Items)))
		l.Items = slices.Insert(l.Items, index, it)
		return nil
	})
	return err
}

// ClearCompleted removes every completed item and returns how many went.
func (s *Service) ClearCompleted(id string) (int, error) {
	removed := 0
	_, err := s.update(id, OriginLocal, func(l *model.ShoppingList) error {
		kept := l.Items[:0]
		for _, it := range l.Items {
			if it.Completed && !it.IsSection {
				removed++
				continue
			}
			kept = append(kept, it)
		}
		l.Items = kept
		return nil
	})
	return removed, err
}

// ResetChecks unchecks every item, as when starting a new month on the
// fixed list.
func (s *Service) ResetChecks(id string) (model.ShoppingList, error) {
	return s.update(id, OriginLocal, func(l *model.ShoppingList) error {
		for i := range l.Items {
			l.Items[i].Completed = false
		}
		return nil
	})
}
