package grocery

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/dukerupert/feira/internal/ident"
	"github.com/dukerupert/feira/internal/model"
)

// DefaultListName is suggested when the pasted text has no usable title line.
const DefaultListName = "Minha Lista de Compras"

// maxHeaderLen bounds both section headers and suggested list names.
const maxHeaderLen = 30

var (
	digitRe     = regexp.MustCompile(`\d`)
	titleTrimRe = regexp.MustCompile(`^[-*•]\s*|:$`)
)

// ParseShoppingList turns a pasted multi-line block into items, one pass,
// skipping blank lines and short "Header:" lines. A digit-free line with
// commas is read as several bare item names.
func ParseShoppingList(text string, gen ident.Generator) []model.ShoppingItem {
	var items []model.ShoppingItem
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || isHeader(trimmed) {
			continue
		}

		if strings.Contains(trimmed, ",") && !digitRe.MatchString(trimmed) {
			for _, part := range strings.Split(trimmed, ",") {
				name := strings.TrimSpace(part)
				if name == "" {
					continue
				}
				items = append(items, model.ShoppingItem{
					ID:          gen.Next(),
					Description: Capitalize(name),
					Quantity:    1,
					Unit:        model.DefaultUnit,
				})
			}
			continue
		}

		p := ParseItemText(trimmed)
		if p.Quantity == 0 {
			p.Quantity = 1
		}
		if p.Unit == "" {
			p.Unit = model.DefaultUnit
		}
		items = append(items, p.Item(gen.Next()))
	}
	return items
}

func isHeader(line string) bool {
	return strings.HasSuffix(line, ":") &&
		!digitRe.MatchString(line) &&
		utf8.RuneCountInString(line) < maxHeaderLen
}

// SuggestListName proposes a list name from the first line of text.
func SuggestListName(text string) string {
	first, _, _ := strings.Cut(text, "\n")
	first = strings.TrimSpace(first)
	n := utf8.RuneCountInString(first)
	if n <= 2 || n >= maxHeaderLen {
		return DefaultListName
	}
	name := strings.TrimSpace(titleTrimRe.ReplaceAllString(first, ""))
	if name == "" {
		return DefaultListName
	}
	return name
}
