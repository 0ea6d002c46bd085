package syncer

import "github.com/dukerupert/feira/internal/model"

// Diverged reports whether two item sequences differ in order, description,
// quantity, completion or price. Ids, units and notes are not compared: the
// spreadsheet does not keep ids and rewrites free-form columns.
func Diverged(local, remote []model.ShoppingItem) bool {
	if len(local) != len(remote) {
		return true
	}
	for i := range local {
		a, b := local[i], remote[i]
		if a.Description != b.Description ||
			a.Quantity != b.Quantity ||
			a.Completed != b.Completed ||
			a.Price != b.Price {
			return true
		}
	}
	return false
}
