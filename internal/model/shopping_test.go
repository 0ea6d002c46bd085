package model

import (
	"testing"
	"time"
)

func TestSplitSectionMarker(t *testing.T) {
	tests := []struct {
		in          string
		wantDesc    string
		wantSection bool
	}{
		{"[SEÇÃO] Bebidas", "Bebidas", true},
		{"[seção] Limpeza", "Limpeza", true},
		{"  [SEÇÃO]   Padaria ", "Padaria", true},
		{"Arroz", "Arroz", false},
		{"[SE", "[SE", false},
		{"", "", false},
	}
	for _, tt := range tests {
		desc, ok := SplitSectionMarker(tt.in)
		if desc != tt.wantDesc || ok != tt.wantSection {
			t.Errorf("SplitSectionMarker(%q) = (%q, %v), want (%q, %v)", tt.in, desc, ok, tt.wantDesc, tt.wantSection)
		}
	}
}

func TestMarkSectionRoundTrip(t *testing.T) {
	desc, ok := SplitSectionMarker(MarkSection("Mercearia"))
	if !ok || desc != "Mercearia" {
		t.Errorf("round trip = (%q, %v), want (Mercearia, true)", desc, ok)
	}
}

func TestNewFixedList(t *testing.T) {
	n := 0
	next := func() string { n++; return "s" + string(rune('0'+n)) }
	now := time.UnixMilli(1700000000000)

	l := NewFixedList(now, next)
	if !l.IsFixed() {
		t.Error("expected fixed list")
	}
	if l.Name != FixedListName {
		t.Errorf("name = %q, want %q", l.Name, FixedListName)
	}
	if len(l.Items) != len(DefaultSections) {
		t.Fatalf("items = %d, want %d", len(l.Items), len(DefaultSections))
	}
	for i, it := range l.Items {
		if !it.IsSection {
			t.Errorf("item %d is not a section", i)
		}
		if it.Description != DefaultSections[i] {
			t.Errorf("item %d = %q, want %q", i, it.Description, DefaultSections[i])
		}
		if it.Quantity != 0 {
			t.Errorf("section quantity = %v, want 0", it.Quantity)
		}
	}
	if l.CreatedAt != 1700000000000 || l.UpdatedAt != 1700000000000 {
		t.Errorf("timestamps = %d/%d", l.CreatedAt, l.UpdatedAt)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	l := ShoppingList{ID: "a", Items: []ShoppingItem{{ID: "1", Description: "Arroz"}}}
	c := l.Clone()
	c.Items[0].Description = "Feijão"
	if l.Items[0].Description != "Arroz" {
		t.Error("clone shares item storage with original")
	}

	empty := ShoppingList{ID: "b"}.Clone()
	if empty.Items == nil {
		t.Error("clone of nil items should be an empty slice")
	}
}

func TestSummarize(t *testing.T) {
	items := []ShoppingItem{
		NewSection("s1", "Mercearia"),
		{ID: "1", Description: "Arroz", Quantity: 2, Price: 10.5, Completed: true},
		{ID: "2", Description: "Feijão", Quantity: 1, Price: 7.99},
		{ID: "3", Description: "Sal", Quantity: 1},
		{ID: "s2", Description: "Bebidas", IsSection: true, Price: 100, Quantity: 1},
	}

	s := Summarize(items)
	if s.Items != 3 {
		t.Errorf("items = %d, want 3", s.Items)
	}
	if s.Sections != 2 {
		t.Errorf("sections = %d, want 2", s.Sections)
	}
	if s.Completed != 1 {
		t.Errorf("completed = %d, want 1", s.Completed)
	}
	if s.Total.String() != "28.99" {
		t.Errorf("total = %s, want 28.99", s.Total)
	}
	if s.Spent.String() != "21" {
		t.Errorf("spent = %s, want 21", s.Spent)
	}
	if p := s.Percent(); p < 33.3 || p > 33.4 {
		t.Errorf("percent = %v, want ~33.3", p)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	if s.Items != 0 || s.Percent() != 0 {
		t.Errorf("empty summary = %+v", s)
	}
	if !s.Total.IsZero() {
		t.Errorf("total = %s, want 0", s.Total)
	}
}
