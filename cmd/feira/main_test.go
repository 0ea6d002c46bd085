package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dukerupert/feira/internal/model"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("FEIRA_LOG_LEVEL", "error")
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--env", filepath.Join(t.TempDir(), "missing.env")}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestParseCommand(t *testing.T) {
	out, err := run(t, "Churrasco:\n1,5 kg de picanha\nCarvão, sal grosso\n", "parse", "-")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	var got struct {
		Name  string               `json:"name"`
		Items []model.ShoppingItem `json:"items"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode output %q: %v", out, err)
	}
	if got.Name != "Churrasco" {
		t.Errorf("name = %q", got.Name)
	}
	if len(got.Items) != 3 {
		t.Fatalf("items = %d, want 3: %+v", len(got.Items), got.Items)
	}
	if got.Items[0].Description != "Picanha" || got.Items[0].Quantity != 1.5 || got.Items[0].Unit != "kg" {
		t.Errorf("first item = %+v", got.Items[0])
	}
}

func TestParseLine(t *testing.T) {
	out, err := run(t, "Leite 6 litros", "parse", "--line")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	var item model.ShoppingItem
	json.Unmarshal([]byte(out), &item)
	if item.Description != "Leite" || item.Quantity != 6 || item.Unit != "L" {
		t.Errorf("item = %+v", item)
	}
}

func TestImportExport(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "feira.db")
	in := filepath.Join(dir, "itens.json")
	os.WriteFile(in, []byte(`[{"description":"Arroz","quantity":2,"unit":"kg"},{"description":"Feijão"}]`), 0o644)

	out, err := run(t, "", "--db", db, "import", in)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if !strings.Contains(out, "imported 1 lists (2 items)") {
		t.Errorf("import output = %q", out)
	}

	exported := filepath.Join(dir, "backup.json")
	if _, err := run(t, "", "--db", db, "export", "-o", exported); err != nil {
		t.Fatalf("export: %v", err)
	}
	data, err := os.ReadFile(exported)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	var lists []model.ShoppingList
	if err := json.Unmarshal(data, &lists); err != nil {
		t.Fatalf("decode export: %v", err)
	}
	if len(lists) != 2 || lists[0].ID != model.FixedListID {
		t.Fatalf("lists = %+v", lists)
	}

	out, err = run(t, "", "--db", db, "export", "--csv", lists[1].ID)
	if err != nil {
		t.Fatalf("export csv: %v", err)
	}
	if !strings.HasPrefix(out, "ITEM,") || !strings.Contains(out, "Arroz,2,kg") {
		t.Errorf("csv = %q", out)
	}
}

func TestBackupRequiresStorage(t *testing.T) {
	for _, k := range []string{"FEIRA_S3_BUCKET", "FEIRA_S3_ACCESS_KEY", "FEIRA_S3_SECRET_KEY"} {
		t.Setenv(k, "")
	}
	_, err := run(t, "", "--db", filepath.Join(t.TempDir(), "feira.db"), "backup", "run", "--passphrase", "x")
	if err == nil || !strings.Contains(err.Error(), "not configured") {
		t.Errorf("err = %v, want not configured", err)
	}
}
