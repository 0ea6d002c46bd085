package importer

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dukerupert/feira/internal/ident"
	"github.com/dukerupert/feira/internal/model"
)

// DeepLinkPrefix starts the URL fragment of a share link.
const DeepLinkPrefix = "#import="

// SharedListName names a shared list that arrived without a name.
const SharedListName = "Lista Compartilhada"

// CompactList is the share-link encoding of a list. Each row is
// [description, quantity, unit, completed, note, price, brand]; trailing
// elements equal to their default are omitted.
type CompactList struct {
	N  string  `json:"n"`
	SD bool    `json:"sd,omitempty"`
	I  [][]any `json:"i"`
}

// Compact encodes list positionally. Sections travel as a marked description.
func Compact(list model.ShoppingList) CompactList {
	c := CompactList{N: list.Name, SD: list.SyncDisabled, I: make([][]any, 0, len(list.Items))}
	for _, it := range list.Items {
		c.I = append(c.I, compactRow(it))
	}
	return c
}

func compactRow(it model.ShoppingItem) []any {
	if it.IsSection {
		return []any{model.MarkSection(it.Description)}
	}
	row := []any{it.Description, it.Quantity, it.Unit, it.Completed, it.Note, it.Price, it.Brand}
	defaults := []any{nil, 1.0, model.DefaultUnit, false, "", 0.0, ""}
	for len(row) > 1 && row[len(row)-1] == defaults[len(row)-1] {
		row = row[:len(row)-1]
	}
	return row
}

// Expand decodes a compact list, filling missing trailing elements with
// their defaults. The list and its items get fresh ids from gen.
func Expand(c CompactList, gen ident.Generator) model.ShoppingList {
	name := strings.TrimSpace(c.N)
	if name == "" {
		name = SharedListName
	}
	l := model.ShoppingList{
		ID:           gen.Next(),
		Name:         name,
		Items:        make([]model.ShoppingItem, 0, len(c.I)),
		SyncDisabled: c.SD,
	}
	for _, row := range c.I {
		l.Items = append(l.Items, expandRow(row, gen))
	}
	return l
}

func expandRow(row []any, gen ident.Generator) model.ShoppingItem {
	at := func(i int) any {
		if i < len(row) {
			return row[i]
		}
		return nil
	}

	desc := ""
	if v := at(0); v != nil {
		desc = toString(v)
	}
	desc, marked := model.SplitSectionMarker(desc)
	if desc == "" {
		desc = DefaultDescription
	}
	if marked {
		return model.NewSection(gen.Next(), desc)
	}

	unit := model.DefaultUnit
	if v := at(2); v != nil {
		if s := toString(v); s != "" {
			unit = s
		}
	}
	str := func(i int) string {
		if v := at(i); v != nil {
			return toString(v)
		}
		return ""
	}

	return model.ShoppingItem{
		ID:          gen.Next(),
		Description: desc,
		Quantity:    toNumber(at(1), 1),
		Unit:        unit,
		Completed:   at(3) != nil && toBool(at(3)),
		Note:        str(4),
		Price:       toNumber(at(5), 0),
		Brand:       str(6),
	}
}

// EncodeDeepLink renders list as a "#import=" fragment holding base64 of the
// compact JSON encoding.
func EncodeDeepLink(list model.ShoppingList) (string, error) {
	b, err := json.Marshal(Compact(list))
	if err != nil {
		return "", fmt.Errorf("encode deep link: %w", err)
	}
	return DeepLinkPrefix + base64.StdEncoding.EncodeToString(b), nil
}

// DecodeDeepLink reverses EncodeDeepLink. It accepts the fragment with or
// without the leading "#import=" and also full list objects, which older
// links carried instead of the compact form.
func DecodeDeepLink(fragment string, gen ident.Generator) (model.ShoppingList, error) {
	encoded := strings.TrimSpace(fragment)
	encoded = strings.TrimPrefix(encoded, "#")
	encoded = strings.TrimPrefix(encoded, "import=")
	if encoded == "" {
		return model.ShoppingList{}, ErrInvalidDeepLink
	}

	raw, err := decodeBase64(encoded)
	if err != nil {
		return model.ShoppingList{}, fmt.Errorf("%w: %v", ErrInvalidDeepLink, err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v map[string]any
	if err := dec.Decode(&v); err != nil {
		return model.ShoppingList{}, fmt.Errorf("%w: %v", ErrInvalidDeepLink, err)
	}
	if _, ok := itemsField(v); !ok {
		return model.ShoppingList{}, fmt.Errorf("%w: %v", ErrInvalidDeepLink, ErrUnrecognizedShape)
	}

	l := listFrom(v, gen)
	if _, hasName := lookup(v, listNameKeys); !hasName {
		l.Name = SharedListName
	}
	l.ID = gen.Next()
	for i := range l.Items {
		l.Items[i].ID = gen.Next()
	}
	return l, nil
}

func decodeBase64(s string) ([]byte, error) {
	var firstErr error
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding,
		base64.RawStdEncoding,
		base64.URLEncoding,
		base64.RawURLEncoding,
	} {
		b, err := enc.DecodeString(s)
		if err == nil {
			return b, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, firstErr
}
