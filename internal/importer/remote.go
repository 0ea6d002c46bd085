package importer

import (
	"github.com/dukerupert/feira/internal/ident"
	"github.com/dukerupert/feira/internal/model"
)

// NormalizeRemote maps spreadsheet rows onto items. Rows keep the id the
// endpoint sent; rows without one get an id from gen. Rows that are not
// objects are skipped.
func NormalizeRemote(rows []any, gen ident.Generator) []model.ShoppingItem {
	items := make([]model.ShoppingItem, 0, len(rows))
	for _, row := range rows {
		m, ok := row.(map[string]any)
		if !ok {
			continue
		}
		items = append(items, normalizeItem(m, gen))
	}
	return items
}

// DenormalizeRemote prepares items for a push: section descriptions carry
// the section marker, since the spreadsheet has no column for it.
func DenormalizeRemote(items []model.ShoppingItem) []model.ShoppingItem {
	out := model.CloneItems(items)
	for i := range out {
		if out[i].IsSection {
			out[i].Description = model.MarkSection(out[i].Description)
		}
	}
	return out
}
