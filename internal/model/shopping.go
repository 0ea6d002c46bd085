package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// FixedListID is the reserved id of the monthly template list. That list can
// be reset but never removed.
const FixedListID = "monthly-fixed-list-001"

// FixedListName is the display name given to a synthesized fixed list.
const FixedListName = "🛒 Lista Mensal Fixa"

// DefaultUnit is the unit assigned when none is recognized.
const DefaultUnit = "un"

// SectionMarker prefixes the description of a section header whenever the
// header leaves the process (remote rows, compact share links).
const SectionMarker = "[SEÇÃO] "

// DefaultSections is the scaffold the fixed list starts with and is reset to.
var DefaultSections = []string{
	"Hortifrúti",
	"Açougue e Peixaria",
	"Frios e Laticínios",
	"Padaria",
	"Mercearia",
	"Bebidas",
	"Limpeza",
	"Higiene",
}

type ShoppingItem struct {
	ID          string  `json:"id"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	Unit        string  `json:"unit"`
	Brand       string  `json:"brand,omitempty"`
	Price       float64 `json:"price,omitempty"`
	Note        string  `json:"note,omitempty"`
	Completed   bool    `json:"completed"`
	IsSection   bool    `json:"isSection,omitempty"`
}

type ShoppingList struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Items        []ShoppingItem `json:"items"`
	CreatedAt    int64          `json:"createdAt"`
	UpdatedAt    int64          `json:"updatedAt"`
	SyncDisabled bool           `json:"syncDisabled,omitempty"`
	RemoteURL    string         `json:"remoteUrl,omitempty"`
}

// IsFixed reports whether l is the monthly template list.
func (l ShoppingList) IsFixed() bool {
	return l.ID == FixedListID
}

// HasSections reports whether any item of l is a section header.
func (l ShoppingList) HasSections() bool {
	return HasSections(l.Items)
}

// Clone returns a copy of l that shares no item storage with it.
func (l ShoppingList) Clone() ShoppingList {
	c := l
	c.Items = CloneItems(l.Items)
	return c
}

// CloneItems copies items into a fresh slice. A nil input yields an empty,
// non-nil slice so lists always serialize "items" as an array.
func CloneItems(items []ShoppingItem) []ShoppingItem {
	out := make([]ShoppingItem, len(items))
	copy(out, items)
	return out
}

func HasSections(items []ShoppingItem) bool {
	for _, it := range items {
		if it.IsSection {
			return true
		}
	}
	return false
}

// NewSection builds a section header item.
func NewSection(id, name string) ShoppingItem {
	return ShoppingItem{
		ID:          id,
		Description: name,
		Quantity:    0,
		Unit:        "",
		IsSection:   true,
	}
}

// DefaultSectionItems returns the fixed list scaffold with ids taken from next.
func DefaultSectionItems(next func() string) []ShoppingItem {
	items := make([]ShoppingItem, 0, len(DefaultSections))
	for _, name := range DefaultSections {
		items = append(items, NewSection(next(), name))
	}
	return items
}

// NewFixedList synthesizes the fixed list with its default scaffold.
func NewFixedList(now time.Time, next func() string) ShoppingList {
	ms := now.UnixMilli()
	return ShoppingList{
		ID:        FixedListID,
		Name:      FixedListName,
		Items:     DefaultSectionItems(next),
		CreatedAt: ms,
		UpdatedAt: ms,
	}
}

// MarkSection prefixes a section description with SectionMarker.
func MarkSection(description string) string {
	return SectionMarker + description
}

// SplitSectionMarker strips a leading SectionMarker from description. The
// marker is matched case-insensitively and the remainder is trimmed.
func SplitSectionMarker(description string) (string, bool) {
	trimmed := strings.TrimSpace(description)
	marker := strings.TrimSpace(SectionMarker)
	if len(trimmed) < len(marker) || !strings.EqualFold(trimmed[:len(marker)], marker) {
		return description, false
	}
	return strings.TrimSpace(trimmed[len(marker):]), true
}

// Summary is the shopping progress of a list. Sections are never counted.
type Summary struct {
	Items     int             `json:"items"`
	Completed int             `json:"completed"`
	Sections  int             `json:"sections"`
	Total     decimal.Decimal `json:"total"`
	Spent     decimal.Decimal `json:"spent"`
}

// Percent returns completion in the range [0, 100].
func (s Summary) Percent() float64 {
	if s.Items == 0 {
		return 0
	}
	return float64(s.Completed) / float64(s.Items) * 100
}

// Summarize computes progress and price totals for items. Total is the sum of
// quantity × price over purchasable items; Spent covers completed ones only.
func Summarize(items []ShoppingItem) Summary {
	s := Summary{Total: decimal.Zero, Spent: decimal.Zero}
	for _, it := range items {
		if it.IsSection {
			s.Sections++
			continue
		}
		s.Items++
		line := decimal.NewFromFloat(it.Quantity).Mul(decimal.NewFromFloat(it.Price))
		s.Total = s.Total.Add(line)
		if it.Completed {
			s.Completed++
			s.Spent = s.Spent.Add(line)
		}
	}
	s.Total = s.Total.Round(2)
	s.Spent = s.Spent.Round(2)
	return s
}
