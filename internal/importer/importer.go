// Package importer classifies and normalizes the JSON shapes lists travel
// in: full backups, single lists, bare item arrays, single items and the
// compact positional encoding used by share links.
package importer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dukerupert/feira/internal/grocery"
	"github.com/dukerupert/feira/internal/ident"
	"github.com/dukerupert/feira/internal/model"
)

var (
	// ErrUnrecognizedShape is returned when no decoder accepts the payload.
	ErrUnrecognizedShape = errors.New("no recognizable shape")
	// ErrInvalidDeepLink is returned for fragments that are not valid import links.
	ErrInvalidDeepLink = errors.New("invalid deep link")
)

// DefaultListName names an imported list that carried no name.
const DefaultListName = "Lista Importada"

type Kind string

const (
	KindBackup Kind = "backup"
	KindItems  Kind = "items"
	KindList   Kind = "list"
	KindItem   Kind = "item"
)

// Payload is a decoded import. Backups and single lists fill Lists; item
// arrays and single items fill Items.
type Payload struct {
	Kind  Kind
	Lists []model.ShoppingList
	Items []model.ShoppingItem
}

// AllItems flattens every item the payload carries, in order.
func (p Payload) AllItems() []model.ShoppingItem {
	if len(p.Lists) == 0 {
		return p.Items
	}
	var out []model.ShoppingItem
	for _, l := range p.Lists {
		out = append(out, l.Items...)
	}
	return out
}

// ItemsFor extracts the items to merge into a list named targetName. A full
// backup holding a list with the same name contributes only that list.
func ItemsFor(p Payload, targetName string) []model.ShoppingItem {
	if p.Kind == KindBackup && targetName != "" {
		want := grocery.Fold(targetName)
		for _, l := range p.Lists {
			if grocery.Fold(l.Name) == want {
				return l.Items
			}
		}
	}
	return p.AllItems()
}

type decoder struct {
	kind   Kind
	decode func(v any, gen ident.Generator) (Payload, bool)
}

// Tried in order; the first decoder that accepts the value wins.
var decoders = []decoder{
	{KindBackup, decodeBackup},
	{KindItems, decodeItemArray},
	{KindList, decodeList},
	{KindItem, decodeItem},
}

// Decode classifies raw JSON and normalizes it into lists or items. Missing
// ids are taken from gen. Malformed JSON is reported as a wrapped syntax
// error; well-formed JSON nobody recognizes as ErrUnrecognizedShape.
func Decode(raw []byte, gen ident.Generator) (Payload, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return Payload{}, fmt.Errorf("parse import: %w", err)
	}
	return DecodeValue(v, gen)
}

// DecodeValue runs the shape decoders over an already parsed JSON value.
func DecodeValue(v any, gen ident.Generator) (Payload, error) {
	for _, d := range decoders {
		if p, ok := d.decode(v, gen); ok {
			p.Kind = d.kind
			return p, nil
		}
	}
	return Payload{}, ErrUnrecognizedShape
}

func decodeBackup(v any, gen ident.Generator) (Payload, bool) {
	arr, ok := v.([]any)
	if !ok || len(arr) == 0 {
		return Payload{}, false
	}
	first, ok := arr[0].(map[string]any)
	if !ok {
		return Payload{}, false
	}
	if _, ok := itemsField(first); !ok {
		return Payload{}, false
	}

	var p Payload
	for _, el := range arr {
		m, ok := el.(map[string]any)
		if !ok {
			continue
		}
		if _, ok := itemsField(m); !ok {
			continue
		}
		p.Lists = append(p.Lists, listFrom(m, gen))
	}
	return p, true
}

func decodeItemArray(v any, gen ident.Generator) (Payload, bool) {
	arr, ok := v.([]any)
	if !ok || len(arr) == 0 {
		return Payload{}, false
	}
	switch first := arr[0].(type) {
	case map[string]any:
		if !hasDescription(first) {
			return Payload{}, false
		}
	case []any:
	default:
		return Payload{}, false
	}

	var p Payload
	for _, el := range arr {
		if it, ok := normalizeRow(el, gen); ok {
			p.Items = append(p.Items, it)
		}
	}
	return p, true
}

func decodeList(v any, gen ident.Generator) (Payload, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return Payload{}, false
	}
	if _, ok := itemsField(m); !ok {
		return Payload{}, false
	}
	return Payload{Lists: []model.ShoppingList{listFrom(m, gen)}}, true
}

func decodeItem(v any, gen ident.Generator) (Payload, bool) {
	m, ok := v.(map[string]any)
	if !ok || !hasDescription(m) {
		return Payload{}, false
	}
	return Payload{Items: []model.ShoppingItem{normalizeItem(m, gen)}}, true
}

// listFrom normalizes a list-like object. The id is left empty when the
// source has none so merges can tell new lists apart.
func listFrom(m map[string]any, gen ident.Generator) model.ShoppingList {
	name := stringField(m, listNameKeys)
	if name == "" {
		name = DefaultListName
	}
	l := model.ShoppingList{
		ID:           stringField(m, []string{"id"}),
		Name:         name,
		Items:        []model.ShoppingItem{},
		CreatedAt:    toMillis(m["createdAt"]),
		UpdatedAt:    toMillis(m["updatedAt"]),
		SyncDisabled: boolField(m, []string{"syncDisabled", "sd"}),
		RemoteURL:    stringField(m, []string{"remoteUrl"}),
	}
	rows, _ := itemsField(m)
	for _, row := range rows {
		if it, ok := normalizeRow(row, gen); ok {
			l.Items = append(l.Items, it)
		}
	}
	return l
}
