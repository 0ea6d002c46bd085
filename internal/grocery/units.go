package grocery

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// unitSynonyms maps folded unit tokens to their canonical code.
var unitSynonyms = map[string]string{
	"kg": "kg", "kilo": "kg", "quilo": "kg", "kilos": "kg", "quilos": "kg",
	"g": "g", "gr": "g", "grama": "g", "gramas": "g",
	"ml": "ml", "mililitro": "ml", "mililitros": "ml",
	"l": "L", "lt": "L", "litro": "L", "litros": "L",
	"un": "un", "unid": "un", "unidade": "un", "unidades": "un",
	"pct": "pct", "pacote": "pct", "pacotes": "pct",
	"cx": "cx", "caixa": "cx", "caixas": "cx",
	"lata": "lata", "latas": "lata",
	"garrafa": "garrafa", "garrafas": "garrafa",
	"vidro": "vidro", "vidros": "vidro",
	"bandeja": "bandeja", "bandejas": "bandeja",
	"saco": "saco", "sacos": "saco",
	"par": "par", "pares": "par",
}

// NormalizeUnit returns the canonical unit code for token. Matching ignores
// case and diacritics. ok is false when the token is not a known unit.
func NormalizeUnit(token string) (code string, ok bool) {
	code, ok = unitSynonyms[Fold(token)]
	return code, ok
}

// Fold lowercases s, trims it and strips combining marks so that "Feijão"
// and "feijao" compare equal.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return strings.ToLower(strings.TrimSpace(s))
	}
	return folded
}
