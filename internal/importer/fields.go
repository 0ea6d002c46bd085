package importer

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/dukerupert/feira/internal/ident"
	"github.com/dukerupert/feira/internal/model"
)

// Alias keys per logical field, probed in order. The first present,
// non-empty value wins.
var (
	descriptionKeys = []string{"description", "item", "n", "desc", "d", "name"}
	quantityKeys    = []string{"quantity", "q", "qtd"}
	unitKeys        = []string{"unit", "u", "unid"}
	brandKeys       = []string{"brand", "b", "marca"}
	priceKeys       = []string{"price", "p", "valor", "preco"}
	completedKeys   = []string{"completed", "c", "ok", "status"}
	noteKeys        = []string{"note", "obs", "observacao"}
	sectionKeys     = []string{"isSection", "section"}

	listNameKeys  = []string{"name", "n"}
	listItemsKeys = []string{"items", "i"}
)

// DefaultDescription names an item whose source carried no description.
const DefaultDescription = "Item"

// lookup returns the first alias of keys present in m with a usable value.
func lookup(m map[string]any, keys []string) (any, bool) {
	for _, k := range keys {
		v, ok := m[k]
		if !ok || v == nil {
			continue
		}
		if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
			continue
		}
		return v, true
	}
	return nil, false
}

func stringField(m map[string]any, keys []string) string {
	v, ok := lookup(m, keys)
	if !ok {
		return ""
	}
	return toString(v)
}

// numberField coerces the first alias present to a non-negative number,
// falling back to def when it is missing or unreadable.
func numberField(m map[string]any, keys []string, def float64) float64 {
	v, ok := lookup(m, keys)
	if !ok {
		return def
	}
	return toNumber(v, def)
}

func boolField(m map[string]any, keys []string) bool {
	v, ok := lookup(m, keys)
	if !ok {
		return false
	}
	return toBool(v)
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	}
	return ""
}

func toNumber(v any, def float64) float64 {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case json.Number:
		n, err := t.Float64()
		if err != nil {
			return def
		}
		f = n
	case string:
		n, err := strconv.ParseFloat(strings.Replace(strings.TrimSpace(t), ",", ".", 1), 64)
		if err != nil {
			return def
		}
		f = n
	default:
		return def
	}
	if f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return def
	}
	return f
}

// toBool accepts JSON booleans, non-zero numbers and the usual spreadsheet
// spellings ("OK", "sim", "x", "true", "1").
func toBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case json.Number:
		f, err := t.Float64()
		return err == nil && f != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "ok", "1", "sim", "s", "x", "yes", "y":
			return true
		}
	}
	return false
}

func toMillis(v any) int64 {
	return int64(toNumber(v, 0))
}

// hasDescription reports whether m looks like an item.
func hasDescription(m map[string]any) bool {
	_, ok := lookup(m, descriptionKeys)
	return ok
}

// itemsField returns the items array of a list-like object.
func itemsField(m map[string]any) ([]any, bool) {
	for _, k := range listItemsKeys {
		if arr, ok := m[k].([]any); ok {
			return arr, true
		}
	}
	return nil, false
}

// normalizeItem maps one loosely keyed object onto a ShoppingItem. A
// description carrying the section marker yields a section.
func normalizeItem(m map[string]any, gen ident.Generator) model.ShoppingItem {
	desc := stringField(m, descriptionKeys)
	desc, marked := model.SplitSectionMarker(desc)
	if desc == "" {
		desc = DefaultDescription
	}

	id := stringField(m, []string{"id"})
	if id == "" {
		id = gen.Next()
	}

	if marked || boolField(m, sectionKeys) {
		return model.NewSection(id, desc)
	}

	unit := stringField(m, unitKeys)
	if unit == "" {
		unit = model.DefaultUnit
	}

	return model.ShoppingItem{
		ID:          id,
		Description: desc,
		Quantity:    numberField(m, quantityKeys, 1),
		Unit:        unit,
		Brand:       stringField(m, brandKeys),
		Price:       numberField(m, priceKeys, 0),
		Note:        stringField(m, noteKeys),
		Completed:   boolField(m, completedKeys),
	}
}

// normalizeRow accepts either an object or a compact positional row.
func normalizeRow(v any, gen ident.Generator) (model.ShoppingItem, bool) {
	switch t := v.(type) {
	case map[string]any:
		return normalizeItem(t, gen), true
	case []any:
		return expandRow(t, gen), true
	}
	return model.ShoppingItem{}, false
}
