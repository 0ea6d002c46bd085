package importer

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/dukerupert/feira/internal/ident"
	"github.com/dukerupert/feira/internal/model"
)

func TestDecodeShapes(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantKind  Kind
		wantLists int
		wantItems int
	}{
		{
			name:      "full backup",
			raw:       `[{"id":"a","name":"Feira","items":[{"description":"Arroz"}]},{"id":"b","name":"Churrasco","items":[]}]`,
			wantKind:  KindBackup,
			wantLists: 2,
			wantItems: 1,
		},
		{
			name:      "backup of compact lists",
			raw:       `[{"n":"Feira","i":[["Arroz",2,"kg"],["Feijão"]]}]`,
			wantKind:  KindBackup,
			wantLists: 1,
			wantItems: 2,
		},
		{
			name:      "bare item array",
			raw:       `[{"description":"Arroz","quantity":2},{"item":"Feijão"}]`,
			wantKind:  KindItems,
			wantItems: 2,
		},
		{
			name:      "positional item array",
			raw:       `[["Arroz",2,"kg"],["Sal"]]`,
			wantKind:  KindItems,
			wantItems: 2,
		},
		{
			name:      "single list",
			raw:       `{"id":"x","name":"Feira","items":[{"d":"Arroz"},{"n":"Sal"}]}`,
			wantKind:  KindList,
			wantLists: 1,
			wantItems: 2,
		},
		{
			name:      "single compact list",
			raw:       `{"n":"Feira","sd":true,"i":[["Arroz",2,"kg",true]]}`,
			wantKind:  KindList,
			wantLists: 1,
			wantItems: 1,
		},
		{
			name:      "single item",
			raw:       `{"desc":"Café","qtd":"2"}`,
			wantKind:  KindItem,
			wantItems: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Decode([]byte(tt.raw), ident.NewSequence("gen"))
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if p.Kind != tt.wantKind {
				t.Errorf("kind = %q, want %q", p.Kind, tt.wantKind)
			}
			if len(p.Lists) != tt.wantLists {
				t.Errorf("lists = %d, want %d", len(p.Lists), tt.wantLists)
			}
			if got := len(p.AllItems()); got != tt.wantItems {
				t.Errorf("items = %d, want %d", got, tt.wantItems)
			}
		})
	}
}

func TestDecodeUnrecognized(t *testing.T) {
	for _, raw := range []string{`[]`, `{}`, `42`, `"texto"`, `[1,2,3]`, `{"foo":"bar"}`, `null`} {
		_, err := Decode([]byte(raw), ident.NewSequence("gen"))
		if !errors.Is(err, ErrUnrecognizedShape) {
			t.Errorf("Decode(%s) error = %v, want ErrUnrecognizedShape", raw, err)
		}
	}
}

func TestDecodeMalformed(t *testing.T) {
	_, err := Decode([]byte(`{"items": [`), ident.NewSequence("gen"))
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, ErrUnrecognizedShape) {
		t.Error("malformed JSON should not be reported as an unrecognized shape")
	}
}

func TestDecodeAliasesAndCoercion(t *testing.T) {
	raw := `{"name":"Feira","items":[
		{"id":"1","item":"Arroz","q":"1,5","u":"kg","b":"Tio João","valor":"12.90","ok":"OK","obs":"tipo 1"},
		{"description":"","n":"Leite","quantity":"abc","price":-3,"completed":"PENDENTE"},
		{"description":"[SEÇÃO] Bebidas","quantity":4,"price":9},
		{"qtd":2}
	]}`
	p, err := Decode([]byte(raw), ident.NewSequence("gen"))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	want := []model.ShoppingItem{
		{ID: "1", Description: "Arroz", Quantity: 1.5, Unit: "kg", Brand: "Tio João", Price: 12.9, Note: "tipo 1", Completed: true},
		{ID: "gen-1", Description: "Leite", Quantity: 1, Unit: "un"},
		{ID: "gen-2", Description: "Bebidas", IsSection: true},
		{ID: "gen-3", Description: DefaultDescription, Quantity: 2, Unit: "un"},
	}
	if diff := cmp.Diff(want, p.Lists[0].Items); diff != "" {
		t.Errorf("items mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeListMetadata(t *testing.T) {
	raw := `{"id":"l1","name":"Feira","createdAt":1700000000000,"updatedAt":1700000001000,"syncDisabled":true,"items":[]}`
	p, err := Decode([]byte(raw), ident.NewSequence("gen"))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	l := p.Lists[0]
	if l.ID != "l1" || l.Name != "Feira" || !l.SyncDisabled {
		t.Errorf("list = %+v", l)
	}
	if l.CreatedAt != 1700000000000 || l.UpdatedAt != 1700000001000 {
		t.Errorf("timestamps = %d/%d", l.CreatedAt, l.UpdatedAt)
	}
	if l.Items == nil {
		t.Error("items should be an empty slice")
	}
}

func TestItemsFor(t *testing.T) {
	raw := `[{"name":"Feira","items":[{"description":"Arroz"}]},{"name":"Churrasco","items":[{"description":"Carvão"},{"description":"Picanha"}]}]`
	p, err := Decode([]byte(raw), ident.NewSequence("gen"))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if got := ItemsFor(p, "churrasco"); len(got) != 2 {
		t.Errorf("matching list: got %d items, want 2", len(got))
	}
	if got := ItemsFor(p, "Outra"); len(got) != 3 {
		t.Errorf("no match: got %d items, want 3", len(got))
	}
	if got := ItemsFor(p, ""); len(got) != 3 {
		t.Errorf("no target: got %d items, want 3", len(got))
	}
}

func TestNormalizeRemote(t *testing.T) {
	rows := []any{
		map[string]any{"id": "remote-0", "description": "Arroz", "quantity": 2.0, "unit": "kg", "price": 10.0, "completed": true},
		map[string]any{"description": "[SEÇÃO] Limpeza", "quantity": 1.0, "unit": "un"},
		"lixo",
		map[string]any{"n": "Sal", "c": 0.0},
	}
	got := NormalizeRemote(rows, ident.NewSequence("r"))
	want := []model.ShoppingItem{
		{ID: "remote-0", Description: "Arroz", Quantity: 2, Unit: "kg", Price: 10, Completed: true},
		{ID: "r-1", Description: "Limpeza", IsSection: true},
		{ID: "r-2", Description: "Sal", Quantity: 1, Unit: "un"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("items mismatch (-want +got):\n%s", diff)
	}
}

func TestDenormalizeRemote(t *testing.T) {
	items := []model.ShoppingItem{
		model.NewSection("s", "Bebidas"),
		{ID: "1", Description: "Suco"},
	}
	out := DenormalizeRemote(items)
	if out[0].Description != "[SEÇÃO] Bebidas" {
		t.Errorf("section description = %q", out[0].Description)
	}
	if out[1].Description != "Suco" {
		t.Errorf("item description = %q", out[1].Description)
	}
	if items[0].Description != "Bebidas" {
		t.Error("input was modified")
	}
}
