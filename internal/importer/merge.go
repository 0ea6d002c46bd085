package importer

import (
	"github.com/dukerupert/feira/internal/grocery"
	"github.com/dukerupert/feira/internal/ident"
	"github.com/dukerupert/feira/internal/model"
)

// ImportedSuffix disambiguates an imported list whose id was already taken.
const ImportedSuffix = " (Importada)"

// MergeItems appends incoming to target's items with fresh ids. Into the
// fixed list, an incoming row whose description already exists there (as an
// item or a section, accents and case ignored) is dropped; the first
// occurrence wins. It returns the new item slice and how many rows were added.
func MergeItems(target model.ShoppingList, incoming []model.ShoppingItem, gen ident.Generator) ([]model.ShoppingItem, int) {
	items := model.CloneItems(target.Items)
	dedupe := target.IsFixed()

	seen := make(map[string]bool, len(items))
	if dedupe {
		for _, it := range items {
			seen[grocery.Fold(it.Description)] = true
		}
	}

	added := 0
	for _, it := range incoming {
		if dedupe {
			key := grocery.Fold(it.Description)
			if seen[key] {
				continue
			}
			seen[key] = true
		}
		it.ID = gen.Next()
		items = append(items, it)
		added++
	}
	return items, added
}

// BackupResult is the outcome of MergeBackup.
type BackupResult struct {
	Lists []model.ShoppingList
	// Imported counts lists added to the collection.
	Imported int
	// MergedItems counts rows folded into the existing fixed list.
	MergedItems int
}

// MergeBackup folds incoming lists into existing. The fixed list is merged
// item by item; any other list is added with fresh item ids, and gets a new
// id plus ImportedSuffix when its id is already in use. existing is not
// modified.
func MergeBackup(existing, incoming []model.ShoppingList, gen ident.Generator) BackupResult {
	res := BackupResult{Lists: make([]model.ShoppingList, 0, len(existing)+len(incoming))}
	ids := make(map[string]bool, len(existing))
	fixedIdx := -1
	for i, l := range existing {
		res.Lists = append(res.Lists, l.Clone())
		ids[l.ID] = true
		if l.IsFixed() {
			fixedIdx = i
		}
	}

	for _, in := range incoming {
		if in.IsFixed() && fixedIdx >= 0 {
			items, added := MergeItems(res.Lists[fixedIdx], in.Items, gen)
			res.Lists[fixedIdx].Items = items
			res.MergedItems += added
			continue
		}

		l := in.Clone()
		switch {
		case l.ID == "":
			l.ID = gen.Next()
		case ids[l.ID]:
			l.ID = gen.Next()
			l.Name += ImportedSuffix
		}
		for i := range l.Items {
			l.Items[i].ID = gen.Next()
		}
		ids[l.ID] = true
		if l.IsFixed() {
			fixedIdx = len(res.Lists)
		}
		res.Lists = append(res.Lists, l)
		res.Imported++
	}
	return res
}
