// Package export writes lists out as JSON backups or spreadsheet-shaped CSV
// and reads that CSV back.
package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/jszwec/csvutil"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/feira/internal/ident"
	"github.com/dukerupert/feira/internal/importer"
	"github.com/dukerupert/feira/internal/model"
)

const (
	StatusDone    = "OK"
	StatusPending = "PENDENTE"
)

var spaceRe = regexp.MustCompile(`\s+`)

// BackupFilename names a full backup taken at now.
func BackupFilename(now time.Time) string {
	return "backup_feira_" + now.Format("2006-01-02") + ".json"
}

// ListFilename names the export of a single list.
func ListFilename(name, ext string) string {
	base := strings.ToLower(spaceRe.ReplaceAllString(strings.TrimSpace(name), "_"))
	if base == "" {
		base = "lista"
	}
	return base + ext
}

// WriteJSON writes lists as an indented JSON array, the shape the importer
// recognizes as a full backup.
func WriteJSON(w io.Writer, lists []model.ShoppingList) error {
	if lists == nil {
		lists = []model.ShoppingList{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(lists); err != nil {
		return fmt.Errorf("encode lists: %w", err)
	}
	return nil
}

// Row is one spreadsheet line. Column names match the sheet the sync
// endpoint maintains. Numeric columns are omitempty so blank cells decode
// as zero.
type Row struct {
	Item   string          `csv:"ITEM"`
	Qtd    float64         `csv:"QTD,omitempty"`
	Unid   string          `csv:"UNID"`
	Marca  string          `csv:"MARCA"`
	Preco  decimal.Decimal `csv:"PREÇO UN,omitempty"`
	Total  decimal.Decimal `csv:"TOTAL,omitempty"`
	Status string          `csv:"STATUS"`
	Obs    string          `csv:"OBSERVAÇÕES"`
}

// Rows converts items into spreadsheet rows. Sections keep their marker so
// the sheet and the reader can tell them apart.
func Rows(items []model.ShoppingItem) []Row {
	rows := make([]Row, 0, len(items))
	for _, it := range importer.DenormalizeRemote(items) {
		price := decimal.NewFromFloat(it.Price)
		qty := decimal.NewFromFloat(it.Quantity)
		status := StatusPending
		if it.Completed {
			status = StatusDone
		}
		rows = append(rows, Row{
			Item:   it.Description,
			Qtd:    it.Quantity,
			Unid:   it.Unit,
			Marca:  it.Brand,
			Preco:  price,
			Total:  qty.Mul(price).Round(2),
			Status: status,
			Obs:    it.Note,
		})
	}
	return rows
}

// WriteCSV writes the items of list as CSV with a header row.
func WriteCSV(w io.Writer, list model.ShoppingList) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)
	if err := enc.EncodeHeader(Row{}); err != nil {
		return fmt.Errorf("encode csv header: %w", err)
	}
	for _, r := range Rows(list.Items) {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encode csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a sheet written by WriteCSV (or edited by hand) back into
// items with fresh ids. Rows without an item name are skipped.
func ReadCSV(r io.Reader, gen ident.Generator) ([]model.ShoppingItem, error) {
	dec, err := csvutil.NewDecoder(csv.NewReader(r))
	if err != nil {
		if errors.Is(err, io.EOF) {
			return []model.ShoppingItem{}, nil
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	items := []model.ShoppingItem{}
	for {
		var row Row
		if err := dec.Decode(&row); err == io.EOF {
			break
		} else if err != nil {
			return nil, fmt.Errorf("decode csv row: %w", err)
		}
		desc := strings.TrimSpace(row.Item)
		if desc == "" {
			continue
		}
		if name, ok := model.SplitSectionMarker(desc); ok {
			items = append(items, model.NewSection(gen.Next(), name))
			continue
		}
		unit := strings.TrimSpace(row.Unid)
		if unit == "" {
			unit = model.DefaultUnit
		}
		qty := row.Qtd
		if qty <= 0 {
			qty = 1
		}
		price, _ := row.Preco.Float64()
		items = append(items, model.ShoppingItem{
			ID:          gen.Next(),
			Description: desc,
			Quantity:    qty,
			Unit:        unit,
			Brand:       strings.TrimSpace(row.Marca),
			Price:       price,
			Note:        strings.TrimSpace(row.Obs),
			Completed:   strings.EqualFold(strings.TrimSpace(row.Status), StatusDone),
		})
	}
	return items, nil
}
