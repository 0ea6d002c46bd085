package grocery

import (
	"strings"

	"github.com/dukerupert/feira/internal/model"
)

const (
	SectionProduce   = "Hortifrúti"
	SectionButcher   = "Açougue e Peixaria"
	SectionDeli      = "Frios e Laticínios"
	SectionBakery    = "Padaria"
	SectionPantry    = "Mercearia"
	SectionBeverages = "Bebidas"
	SectionCleaning  = "Limpeza"
	SectionHygiene   = "Higiene"
)

// Categorize returns the default section the given item belongs to.
// Matching folds case and accents: exact match first, then substring match.
// Returns "" when nothing matches.
func Categorize(itemName string) string {
	name := Fold(itemName)
	if name == "" {
		return ""
	}

	// Phase 1: exact match
	if sec, ok := exactMatch[name]; ok {
		return sec
	}

	// Phase 2: substring match (ordered longer/more-specific first)
	for _, entry := range substringMatches {
		if strings.Contains(name, entry.keyword) {
			return entry.section
		}
	}

	return ""
}

// Keys are stored folded (lowercase, no accents).
var exactMatch = map[string]string{
	// Hortifrúti
	"banana":    SectionProduce,
	"bananas":   SectionProduce,
	"maca":      SectionProduce,
	"macas":     SectionProduce,
	"laranja":   SectionProduce,
	"laranjas":  SectionProduce,
	"limao":     SectionProduce,
	"limoes":    SectionProduce,
	"tomate":    SectionProduce,
	"tomates":   SectionProduce,
	"batata":    SectionProduce,
	"batatas":   SectionProduce,
	"cebola":    SectionProduce,
	"cebolas":   SectionProduce,
	"alho":      SectionProduce,
	"alface":    SectionProduce,
	"cenoura":   SectionProduce,
	"cenouras":  SectionProduce,
	"abobrinha": SectionProduce,
	"pepino":    SectionProduce,
	"mamao":     SectionProduce,
	"manga":     SectionProduce,
	"uva":       SectionProduce,
	"uvas":      SectionProduce,
	"abacate":   SectionProduce,
	"melancia":  SectionProduce,
	"coentro":   SectionProduce,
	"salsinha":  SectionProduce,
	"cebolinha": SectionProduce,
	"couve":     SectionProduce,
	"brocolis":  SectionProduce,
	"mandioca":  SectionProduce,
	"chuchu":    SectionProduce,
	"pimentao":  SectionProduce,

	// Açougue e Peixaria
	"frango":   SectionButcher,
	"carne":    SectionButcher,
	"picanha":  SectionButcher,
	"alcatra":  SectionButcher,
	"patinho":  SectionButcher,
	"acem":     SectionButcher,
	"costela":  SectionButcher,
	"linguica": SectionButcher,
	"bacon":    SectionButcher,
	"peixe":    SectionButcher,
	"tilapia":  SectionButcher,
	"salmao":   SectionButcher,
	"camarao":  SectionButcher,
	"file":     SectionButcher,
	"bisteca":  SectionButcher,

	// Frios e Laticínios
	"leite":          SectionDeli,
	"queijo":         SectionDeli,
	"presunto":       SectionDeli,
	"manteiga":       SectionDeli,
	"margarina":      SectionDeli,
	"iogurte":        SectionDeli,
	"requeijao":      SectionDeli,
	"ovos":           SectionDeli,
	"ovo":            SectionDeli,
	"mussarela":      SectionDeli,
	"mucarela":       SectionDeli,
	"creme de leite": SectionDeli,
	"mortadela":      SectionDeli,
	"peito de peru":  SectionDeli,

	// Padaria
	"pao":          SectionBakery,
	"paes":         SectionBakery,
	"pao frances":  SectionBakery,
	"pao de forma": SectionBakery,
	"bolo":         SectionBakery,
	"torrada":      SectionBakery,
	"rosca":        SectionBakery,
	"broa":         SectionBakery,

	// Mercearia
	"arroz":             SectionPantry,
	"feijao":            SectionPantry,
	"macarrao":          SectionPantry,
	"farinha":           SectionPantry,
	"acucar":            SectionPantry,
	"sal":               SectionPantry,
	"oleo":              SectionPantry,
	"azeite":            SectionPantry,
	"vinagre":           SectionPantry,
	"cafe":              SectionPantry,
	"molho de tomate":   SectionPantry,
	"extrato de tomate": SectionPantry,
	"biscoito":          SectionPantry,
	"bolacha":           SectionPantry,
	"fuba":              SectionPantry,
	"aveia":             SectionPantry,
	"achocolatado":      SectionPantry,
	"milho":             SectionPantry,
	"ervilha":           SectionPantry,
	"atum":              SectionPantry,
	"sardinha":          SectionPantry,

	// Bebidas
	"agua":         SectionBeverages,
	"refrigerante": SectionBeverages,
	"suco":         SectionBeverages,
	"cerveja":      SectionBeverages,
	"vinho":        SectionBeverages,
	"coca":         SectionBeverages,
	"coca-cola":    SectionBeverages,
	"guarana":      SectionBeverages,
	"cha":          SectionBeverages,

	// Limpeza
	"detergente":     SectionCleaning,
	"sabao em po":    SectionCleaning,
	"amaciante":      SectionCleaning,
	"agua sanitaria": SectionCleaning,
	"desinfetante":   SectionCleaning,
	"esponja":        SectionCleaning,
	"alcool":         SectionCleaning,
	"saco de lixo":   SectionCleaning,
	"papel toalha":   SectionCleaning,
	"vassoura":       SectionCleaning,

	// Higiene
	"sabonete":        SectionHygiene,
	"shampoo":         SectionHygiene,
	"xampu":           SectionHygiene,
	"condicionador":   SectionHygiene,
	"pasta de dente":  SectionHygiene,
	"creme dental":    SectionHygiene,
	"escova de dente": SectionHygiene,
	"papel higienico": SectionHygiene,
	"desodorante":     SectionHygiene,
	"fio dental":      SectionHygiene,
	"absorvente":      SectionHygiene,
	"fralda":          SectionHygiene,
}

type substringEntry struct {
	keyword string
	section string
}

// Ordered so that multi-word and more specific keywords win.
var substringMatches = []substringEntry{
	// multi-word first so "agua sanitaria" is not a drink and
	// "creme de leite" is not a hygiene cream
	{"agua sanitaria", SectionCleaning},
	{"papel higienico", SectionHygiene},
	{"papel toalha", SectionCleaning},
	{"saco de lixo", SectionCleaning},
	{"sabao em po", SectionCleaning},
	{"creme de leite", SectionDeli},
	{"leite condensado", SectionPantry},
	{"creme dental", SectionHygiene},
	{"pasta de dente", SectionHygiene},
	{"escova de dente", SectionHygiene},
	{"peito de peru", SectionDeli},
	{"molho de tomate", SectionPantry},
	{"extrato de tomate", SectionPantry},
	{"pao de queijo", SectionBakery},

	// Açougue e Peixaria
	{"carne moida", SectionButcher},
	{"frango", SectionButcher},
	{"carne", SectionButcher},
	{"linguica", SectionButcher},
	{"costela", SectionButcher},
	{"peixe", SectionButcher},
	{"file de", SectionButcher},
	{"camarao", SectionButcher},

	// Frios e Laticínios
	{"queijo", SectionDeli},
	{"iogurte", SectionDeli},
	{"requeijao", SectionDeli},
	{"presunto", SectionDeli},
	{"manteiga", SectionDeli},
	{"leite", SectionDeli},
	{"ovo", SectionDeli},

	// Padaria
	{"pao", SectionBakery},
	{"bolo", SectionBakery},
	{"torrada", SectionBakery},

	// Bebidas
	{"refrigerante", SectionBeverages},
	{"suco", SectionBeverages},
	{"cerveja", SectionBeverages},
	{"vinho", SectionBeverages},
	{"agua", SectionBeverages},

	// Limpeza
	{"detergente", SectionCleaning},
	{"desinfetante", SectionCleaning},
	{"amaciante", SectionCleaning},
	{"limpa", SectionCleaning},
	{"esponja", SectionCleaning},
	{"sabao", SectionCleaning},

	// Higiene
	{"sabonete", SectionHygiene},
	{"shampoo", SectionHygiene},
	{"condicionador", SectionHygiene},
	{"desodorante", SectionHygiene},
	{"escova", SectionHygiene},

	// Mercearia
	{"arroz", SectionPantry},
	{"feijao", SectionPantry},
	{"macarrao", SectionPantry},
	{"farinha", SectionPantry},
	{"acucar", SectionPantry},
	{"oleo", SectionPantry},
	{"azeite", SectionPantry},
	{"cafe", SectionPantry},
	{"biscoito", SectionPantry},
	{"bolacha", SectionPantry},
	{"tempero", SectionPantry},
	{"molho", SectionPantry},

	// Hortifrúti
	{"tomate", SectionProduce},
	{"batata", SectionProduce},
	{"cebola", SectionProduce},
	{"banana", SectionProduce},
	{"alface", SectionProduce},
	{"fruta", SectionProduce},
	{"verdura", SectionProduce},
	{"legume", SectionProduce},
}

// InsertIndex returns where an item for section should be placed in items:
// just after the last row of that section's block. ok is false when items
// has no header for section.
func InsertIndex(items []model.ShoppingItem, section string) (int, bool) {
	if section == "" {
		return 0, false
	}
	want := Fold(section)
	start := -1
	for i, it := range items {
		if it.IsSection && Fold(it.Description) == want {
			start = i
			break
		}
	}
	if start < 0 {
		return 0, false
	}
	end := start + 1
	for end < len(items) && !items[end].IsSection {
		end++
	}
	return end, true
}
