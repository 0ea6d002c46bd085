package grocery

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dukerupert/feira/internal/model"
)

// Placeholder is the description given to a line that has no text left.
const Placeholder = "Item sem nome"

var (
	// bullets, checkboxes and "( )" markers
	markerRe = regexp.MustCompile(`^([-*+•]\s*\[\s*[ xX]*\s*\]|[-*+•]|\([ xX]*\))\s*`)
	// "1." or "2)" ordinals; the decimal in "1.5kg" is not one
	ordinalRe = regexp.MustCompile(`^(\d+)[.)]\s*`)

	leadingQtyRe  = regexp.MustCompile(`^(\d+(?:[.,]\d+)?)\s*(\p{L}+)?`)
	trailingQtyRe = regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*(\p{L}+)?$`)
	leadingNumRe  = regexp.MustCompile(`^\d+(?:[.,]\d+)?\s*`)
)

var connectors = []string{"de", "do", "da", "com", "para"}

var connectorRes = func() [][2]*regexp.Regexp {
	out := make([][2]*regexp.Regexp, 0, len(connectors))
	for _, c := range connectors {
		out = append(out, [2]*regexp.Regexp{
			regexp.MustCompile(`(?i)^` + c + `\s+`),
			regexp.MustCompile(`(?i)\s+` + c + `$`),
		})
	}
	return out
}()

// Parsed is the structured form of one free-text line.
type Parsed struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	Unit        string  `json:"unit"`
}

// Item turns p into a fresh, uncompleted shopping item.
func (p Parsed) Item(id string) model.ShoppingItem {
	return model.ShoppingItem{
		ID:          id,
		Description: p.Description,
		Quantity:    p.Quantity,
		Unit:        p.Unit,
	}
}

// ParseItemText converts a line such as "2kg Arroz", "Arroz 2kg" or
// "- [ ] Feijão" into a description, quantity and unit.
func ParseItemText(line string) Parsed {
	raw := stripMarkers(strings.TrimSpace(line))

	p := Parsed{Description: raw, Quantity: 1, Unit: model.DefaultUnit}

	if m := leadingQtyRe.FindStringSubmatch(raw); m != nil {
		p.Quantity = parseNumber(m[1])
		if code, ok := unitOf(m[2]); ok {
			p.Unit = code
			p.Description = strings.TrimSpace(raw[len(m[0]):])
		} else {
			p.Description = strings.TrimSpace(leadingNumRe.ReplaceAllString(raw, ""))
		}
	} else if loc := trailingQtyRe.FindStringSubmatchIndex(raw); loc != nil {
		num := raw[loc[2]:loc[3]]
		word := ""
		if loc[4] >= 0 {
			word = raw[loc[4]:loc[5]]
		}
		p.Quantity = parseNumber(num)
		if code, ok := unitOf(word); ok {
			p.Unit = code
			p.Description = strings.TrimSpace(raw[:loc[0]])
		} else if strings.HasSuffix(raw, num) {
			p.Description = strings.TrimSpace(raw[:len(raw)-len(num)])
		}
	}

	desc := stripConnectors(p.Description)
	if desc == "" {
		desc = raw
	}
	if desc == "" {
		desc = Placeholder
	}
	p.Description = Capitalize(desc)
	return p
}

func stripMarkers(s string) string {
	if m := markerRe.FindString(s); m != "" {
		return s[len(m):]
	}
	if loc := ordinalRe.FindStringSubmatchIndex(s); loc != nil {
		rest := s[loc[1]:]
		// "1.5kg" is a quantity, not an ordinal followed by "5kg"
		if s[loc[3]] == '.' && rest != "" && loc[1] == loc[3]+1 && isDigit(rest[0]) {
			return s
		}
		return rest
	}
	return s
}

func stripConnectors(s string) string {
	s = strings.TrimSpace(s)
	for _, re := range connectorRes {
		s = re[0].ReplaceAllString(s, "")
		s = re[1].ReplaceAllString(s, "")
		s = strings.TrimSpace(s)
	}
	return s
}

func unitOf(word string) (string, bool) {
	if word == "" {
		return "", false
	}
	return NormalizeUnit(word)
}

// parseNumber reads a quantity accepting "," as the decimal separator.
func parseNumber(s string) float64 {
	f, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil {
		return 1
	}
	return f
}

// Capitalize uppercases the first rune of s.
func Capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
