package handler

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dukerupert/feira/internal/backup"
	"github.com/dukerupert/feira/internal/database"
	"github.com/dukerupert/feira/internal/ident"
	"github.com/dukerupert/feira/internal/model"
	"github.com/dukerupert/feira/internal/remote"
	"github.com/dukerupert/feira/internal/shopping"
	"github.com/dukerupert/feira/internal/store"
	"github.com/dukerupert/feira/internal/syncer"
)

type testEnv struct {
	mux      *http.ServeMux
	svc      *shopping.Service
	settings *store.SettingsStore
	sync     *syncer.Manager
}

func setupHandlers(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	gen := ident.NewSequence("id")
	logger := slog.Default()
	svc, err := shopping.NewService(store.NewListStore(db, gen), gen, logger)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	ss := store.NewSettingsStore(db)
	cfg := syncer.DefaultConfig()
	sm := syncer.NewManager(cfg, remote.NewClient(remote.Config{}), svc, gen, logger)
	t.Cleanup(sm.Close)
	bm := backup.NewManager(backup.Config{}, svc, gen, store.NewBackupStore(db), ss, logger, nil)

	lh := NewListHandler(svc, gen, logger)
	sh := NewSettingsHandler(ss, sm, nil, logger)
	syh := NewSyncHandler(sm, logger)
	bh := NewBackupHandler(bm, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/lists", lh.List)
	mux.HandleFunc("POST /api/lists", lh.Create)
	mux.HandleFunc("POST /api/lists/from-text", lh.CreateFromText)
	mux.HandleFunc("GET /api/lists/{id}", lh.Get)
	mux.HandleFunc("PUT /api/lists/{id}", lh.Update)
	mux.HandleFunc("DELETE /api/lists/{id}", lh.Delete)
	mux.HandleFunc("POST /api/lists/{id}/duplicate", lh.Duplicate)
	mux.HandleFunc("POST /api/lists/{id}/items", lh.AddItem)
	mux.HandleFunc("POST /api/lists/{id}/items/bulk", lh.AddBulk)
	mux.HandleFunc("PUT /api/lists/{id}/items/{item_id}", lh.UpdateItem)
	mux.HandleFunc("DELETE /api/lists/{id}/items/{item_id}", lh.DeleteItem)
	mux.HandleFunc("POST /api/lists/{id}/items/{item_id}/toggle", lh.ToggleItem)
	mux.HandleFunc("POST /api/lists/{id}/items/{item_id}/move", lh.MoveItem)
	mux.HandleFunc("POST /api/lists/{id}/clear-completed", lh.ClearCompleted)
	mux.HandleFunc("POST /api/lists/{id}/merge", lh.Merge)
	mux.HandleFunc("GET /api/lists/{id}/share", lh.Share)
	mux.HandleFunc("GET /api/lists/{id}/export.csv", lh.ExportCSV)
	mux.HandleFunc("POST /api/import", lh.Import)
	mux.HandleFunc("POST /api/import/deeplink", lh.ImportDeepLink)
	mux.HandleFunc("GET /api/export", lh.Export)
	mux.HandleFunc("GET /api/lists/{id}/sync", syh.Status)
	mux.HandleFunc("POST /api/lists/{id}/sync/pull", syh.Pull)
	mux.HandleFunc("GET /api/settings/sync", sh.GetSync)
	mux.HandleFunc("PUT /api/settings/sync", sh.UpdateSync)
	mux.HandleFunc("PUT /api/settings/backup", sh.UpdateBackup)
	mux.HandleFunc("GET /api/backups", bh.List)
	mux.HandleFunc("POST /api/backups", bh.Run)
	mux.HandleFunc("GET /api/backups/status", bh.Status)
	mux.HandleFunc("POST /api/backups/{id}/restore", bh.Restore)

	return &testEnv{mux: mux, svc: svc, settings: ss, sync: sm}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.mux.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
	return v
}

func (e *testEnv) createList(t *testing.T, name string) model.ShoppingList {
	t.Helper()
	l, err := e.svc.CreateList(name, false)
	if err != nil {
		t.Fatalf("create list: %v", err)
	}
	return l
}

func TestCreateAndGetList(t *testing.T) {
	e := setupHandlers(t)

	rec := e.do(t, "POST", "/api/lists", `{"name":"Churrasco"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body)
	}
	created := decode[listView](t, rec)
	if created.Name != "Churrasco" || created.ID == "" {
		t.Fatalf("created = %+v", created)
	}

	rec = e.do(t, "GET", "/api/lists/"+created.ID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	got := decode[listView](t, rec)
	if got.Name != "Churrasco" || len(got.Items) != 0 {
		t.Errorf("got = %+v", got)
	}

	rec = e.do(t, "GET", "/api/lists", "")
	all := decode[[]listView](t, rec)
	if len(all) != 2 || all[0].ID != model.FixedListID || all[1].ID != created.ID {
		t.Errorf("lists order = %v", all)
	}
}

func TestCreateListErrors(t *testing.T) {
	e := setupHandlers(t)
	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"empty name", "POST", "/api/lists", `{"name":"  "}`, http.StatusBadRequest},
		{"invalid json", "POST", "/api/lists", `{`, http.StatusBadRequest},
		{"no items in text", "POST", "/api/lists/from-text", `{"text":"\n\n"}`, http.StatusBadRequest},
		{"unknown list", "GET", "/api/lists/nope", "", http.StatusNotFound},
		{"delete unknown", "DELETE", "/api/lists/nope", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.do(t, tt.method, tt.path, tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body)
			}
			body := decode[map[string]string](t, rec)
			if body["error"] == "" {
				t.Error("missing error message")
			}
		})
	}
}

func TestCreateFromText(t *testing.T) {
	e := setupHandlers(t)

	rec := e.do(t, "POST", "/api/lists/from-text", `{"text":"2kg Arroz\nLeite 6 litros\n- Sabonete"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	l := decode[listView](t, rec)
	if len(l.Items) != 3 {
		t.Fatalf("items = %d, want 3", len(l.Items))
	}
	if l.Items[0].Description != "Arroz" || l.Items[0].Unit != "kg" || l.Items[0].Quantity != 2 {
		t.Errorf("first item = %+v", l.Items[0])
	}
	if l.Name == "" {
		t.Error("expected a suggested name")
	}
	if l.Summary.Items != 3 {
		t.Errorf("summary items = %d", l.Summary.Items)
	}
}

func TestItemLifecycle(t *testing.T) {
	e := setupHandlers(t)
	l := e.createList(t, "Feira")
	base := "/api/lists/" + l.ID + "/items"

	rec := e.do(t, "POST", base, `{"text":"2 kg arroz"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add status = %d: %s", rec.Code, rec.Body)
	}
	arroz := decode[model.ShoppingItem](t, rec)
	if arroz.Description != "Arroz" || arroz.Quantity != 2 || arroz.Unit != "kg" {
		t.Errorf("added = %+v", arroz)
	}

	rec = e.do(t, "POST", base+"/bulk", `{"text":"Feijão\nOvos 12"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("bulk status = %d: %s", rec.Code, rec.Body)
	}
	if items := decode[[]model.ShoppingItem](t, rec); len(items) != 2 {
		t.Fatalf("bulk items = %d, want 2", len(items))
	}

	rec = e.do(t, "POST", base+"/"+arroz.ID+"/toggle", "")
	if rec.Code != http.StatusOK || !decode[model.ShoppingItem](t, rec).Completed {
		t.Errorf("toggle did not complete item")
	}

	rec = e.do(t, "PUT", base+"/"+arroz.ID, `{"quantity":5,"unit":"Quilos","price":6.5}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d: %s", rec.Code, rec.Body)
	}
	if got := decode[model.ShoppingItem](t, rec); got.Quantity != 5 || got.Unit != "kg" || got.Price != 6.5 {
		t.Errorf("updated = %+v", got)
	}

	rec = e.do(t, "PUT", base+"/"+arroz.ID, `{"quantity":-1}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("negative quantity status = %d, want 400", rec.Code)
	}

	rec = e.do(t, "POST", base+"/"+arroz.ID+"/move", `{"index":99}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("move status = %d", rec.Code)
	}
	if items := decode[[]model.ShoppingItem](t, rec); items[len(items)-1].ID != arroz.ID {
		t.Errorf("item not moved to the end: %v", items)
	}

	rec = e.do(t, "POST", "/api/lists/"+l.ID+"/clear-completed", "")
	if got := decode[map[string]int](t, rec); got["deleted"] != 1 {
		t.Errorf("clear-completed = %v, want 1 deleted", got)
	}

	rec = e.do(t, "DELETE", base+"/"+arroz.ID, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("delete cleared item status = %d, want 404", rec.Code)
	}

	got, _ := e.svc.Get(l.ID)
	if len(got.Items) != 2 {
		t.Errorf("items left = %d, want 2", len(got.Items))
	}
}

func TestToggleSectionRejected(t *testing.T) {
	e := setupHandlers(t)
	fixed, _ := e.svc.Get(model.FixedListID)

	rec := e.do(t, "POST", "/api/lists/"+model.FixedListID+"/items/"+fixed.Items[0].ID+"/toggle", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestAddItemWithSectionMarkerRejected(t *testing.T) {
	e := setupHandlers(t)
	l := e.createList(t, "Feira")

	rec := e.do(t, "POST", "/api/lists/"+l.ID+"/items", `{"text":"[SEÇÃO] Bebidas"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400: %s", rec.Code, rec.Body)
	}
	got, _ := e.svc.Get(l.ID)
	if len(got.Items) != 0 {
		t.Errorf("items = %+v, want none", got.Items)
	}
}

func TestDeleteFixedListResets(t *testing.T) {
	e := setupHandlers(t)
	e.svc.AddItemText(model.FixedListID, "Arroz")

	rec := e.do(t, "DELETE", "/api/lists/"+model.FixedListID, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	fixed, err := e.svc.Get(model.FixedListID)
	if err != nil {
		t.Fatalf("fixed list gone: %v", err)
	}
	if len(fixed.Items) != len(model.DefaultSections) {
		t.Errorf("items = %d, want the section scaffold", len(fixed.Items))
	}
}

func TestImport(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		wantStatus  int
		wantLists   int
	}{
		{"item array", "application/json", `[{"description":"Arroz"},{"item":"Feijão","qtd":2}]`, http.StatusOK, 1},
		{"full backup", "application/json", `[{"id":"x1","name":"Festa","items":[{"description":"Refrigerante"}]}]`, http.StatusOK, 1},
		{"foreign shape", "application/json", `{"foo":1}`, http.StatusOK, 0},
		{"malformed", "application/json", `{"items":`, http.StatusBadRequest, 0},
		{"csv sheet", "text/csv", "ITEM,QTD,UNID,MARCA,PREÇO UN,TOTAL,STATUS,OBSERVAÇÕES\nCarvão,2,saco,,,,,\n", http.StatusOK, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := setupHandlers(t)
			req := httptest.NewRequest("POST", "/api/import", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.contentType)
			rec := httptest.NewRecorder()
			e.mux.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantStatus, rec.Body)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			res := decode[shopping.ImportResult](t, rec)
			if res.Lists != tt.wantLists {
				t.Errorf("lists = %d, want %d", res.Lists, tt.wantLists)
			}
			if got := len(e.svc.Lists()); got != 1+tt.wantLists {
				t.Errorf("collection size = %d, want %d", got, 1+tt.wantLists)
			}
		})
	}
}

func TestMerge(t *testing.T) {
	e := setupHandlers(t)
	e.svc.AddItemText(model.FixedListID, "Arroz")

	rec := e.do(t, "POST", "/api/lists/"+model.FixedListID+"/merge", `[{"description":"arroz"},{"description":"Feijão"}]`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	if got := decode[map[string]int](t, rec); got["merged"] != 1 {
		t.Errorf("merged = %v, want 1", got)
	}

	rec = e.do(t, "POST", "/api/lists/"+model.FixedListID+"/merge", `{"unrelated":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("foreign shape status = %d", rec.Code)
	}
	if got := decode[map[string]int](t, rec); got["merged"] != 0 {
		t.Errorf("merged = %v, want 0", got)
	}
}

func TestShareAndDeepLink(t *testing.T) {
	e := setupHandlers(t)
	l := e.createList(t, "Churrasco")
	e.svc.AddItemText(l.ID, "1,5 kg de picanha")

	rec := e.do(t, "GET", "/api/lists/"+l.ID+"/share", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("share status = %d", rec.Code)
	}
	frag := decode[map[string]string](t, rec)["fragment"]
	if !strings.HasPrefix(frag, "#import=") {
		t.Fatalf("fragment = %q", frag)
	}

	body, _ := json.Marshal(map[string]string{"fragment": frag})
	rec = e.do(t, "POST", "/api/import/deeplink", string(body))
	if rec.Code != http.StatusCreated {
		t.Fatalf("deeplink status = %d: %s", rec.Code, rec.Body)
	}
	copied := decode[listView](t, rec)
	if copied.Name != "Churrasco"+shopping.CopySuffix {
		t.Errorf("name = %q", copied.Name)
	}
	if copied.ID == l.ID || len(copied.Items) != 1 || copied.Items[0].Description != "Picanha" {
		t.Errorf("copy = %+v", copied)
	}

	rec = e.do(t, "POST", "/api/import/deeplink", `{"fragment":"#import=!!!"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid fragment status = %d, want 400", rec.Code)
	}
}

func TestExport(t *testing.T) {
	e := setupHandlers(t)
	l := e.createList(t, "Festa Junina")
	e.svc.AddItemText(l.ID, "Milho 10")

	rec := e.do(t, "GET", "/api/lists/"+l.ID+"/export.csv", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("csv status = %d", rec.Code)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "festa_junina.csv") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if !strings.HasPrefix(rec.Body.String(), "ITEM,") || !strings.Contains(rec.Body.String(), "Milho") {
		t.Errorf("csv body = %q", rec.Body)
	}

	rec = e.do(t, "GET", "/api/export", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("export status = %d", rec.Code)
	}
	var lists []model.ShoppingList
	if err := json.Unmarshal(rec.Body.Bytes(), &lists); err != nil {
		t.Fatalf("decode export: %v", err)
	}
	if len(lists) != 2 {
		t.Errorf("exported lists = %d, want 2", len(lists))
	}
}

func TestSyncSettings(t *testing.T) {
	e := setupHandlers(t)

	rec := e.do(t, "PUT", "/api/settings/sync", `{"url":"https://example.com/not-a-web-app"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid url status = %d, want 400", rec.Code)
	}

	const url = "https://script.google.com/macros/s/abc/exec"
	rec = e.do(t, "PUT", "/api/settings/sync", `{"url":"`+url+`"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	if got, _ := e.settings.SheetsURL(); got != url {
		t.Errorf("stored url = %q", got)
	}
	if e.sync.Endpoint() != url {
		t.Errorf("manager endpoint = %q", e.sync.Endpoint())
	}

	rec = e.do(t, "GET", "/api/settings/sync", "")
	got := decode[map[string]any](t, rec)
	if got["url"] != url || got["configured"] != true {
		t.Errorf("get = %v", got)
	}

	rec = e.do(t, "PUT", "/api/settings/sync", `{"url":""}`)
	if rec.Code != http.StatusOK || e.sync.Endpoint() != "" {
		t.Errorf("clearing endpoint failed: %d %q", rec.Code, e.sync.Endpoint())
	}
}

func TestSyncPull(t *testing.T) {
	sheet := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name":"Feira","items":[{"id":"r1","description":"Arroz","quantity":2,"unit":"kg"}]}`))
	}))
	defer sheet.Close()

	e := setupHandlers(t)
	l := e.createList(t, "Feira")

	rec := e.do(t, "POST", "/api/lists/"+l.ID+"/sync/pull", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := decode[map[string]any](t, rec); got["skipped"] == nil {
		t.Errorf("pull without endpoint should be skipped: %v", got)
	}

	e.sync.SetEndpoint(sheet.URL + "/macros/s/abc/exec")
	rec = e.do(t, "POST", "/api/lists/"+l.ID+"/sync/pull", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	got, _ := e.svc.Get(l.ID)
	if len(got.Items) != 1 || got.Items[0].ID != "r1" || got.Items[0].Unit != "kg" {
		t.Errorf("items after pull = %+v", got.Items)
	}

	rec = e.do(t, "GET", "/api/lists/"+l.ID+"/sync", "")
	if st := decode[syncer.Status](t, rec); st.ListID != l.ID {
		t.Errorf("status = %+v", st)
	}

	rec = e.do(t, "POST", "/api/lists/nope/sync/pull", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown list status = %d, want 404", rec.Code)
	}
}

func TestSyncPullRemoteDown(t *testing.T) {
	sheet := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer sheet.Close()

	e := setupHandlers(t)
	l := e.createList(t, "Feira")
	e.sync.SetEndpoint(sheet.URL + "/exec")

	rec := e.do(t, "POST", "/api/lists/"+l.ID+"/sync/pull", "")
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
}

func TestBackupWithoutStorage(t *testing.T) {
	e := setupHandlers(t)
	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"run", "POST", "/api/backups", `{"passphrase":"segredo"}`, http.StatusServiceUnavailable},
		{"restore bad id", "POST", "/api/backups/abc/restore", `{"passphrase":"x"}`, http.StatusBadRequest},
		{"restore without passphrase", "POST", "/api/backups/1/restore", "", http.StatusBadRequest},
		{"restore without storage", "POST", "/api/backups/1/restore", `{"passphrase":"x"}`, http.StatusServiceUnavailable},
		{"list", "GET", "/api/backups", "", http.StatusOK},
		{"status", "GET", "/api/backups/status", "", http.StatusOK},
		{"bad limit", "GET", "/api/backups?limit=0", "", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.do(t, tt.method, tt.path, tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body)
			}
		})
	}
}

func TestUpdateBackupSettings(t *testing.T) {
	e := setupHandlers(t)

	rec := e.do(t, "PUT", "/api/settings/backup", `{"backup_enabled":"true","backup_schedule_hour":"4"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	got := decode[map[string]string](t, rec)
	if got[store.KeyBackupEnabled] != "true" || got[store.KeyBackupScheduleHour] != "4" {
		t.Errorf("settings = %v", got)
	}
	if _, ok := got[store.KeyBackupSalt]; ok {
		t.Error("salt must not be exposed")
	}
}

func TestValidateBackupSettings(t *testing.T) {
	tests := []struct {
		name    string
		in      map[string]string
		wantErr bool
	}{
		{"valid", map[string]string{"backup_enabled": "false", "backup_retention_days": "30"}, false},
		{"bad bool", map[string]string{"backup_enabled": "yes"}, true},
		{"hour too large", map[string]string{"backup_schedule_hour": "24"}, true},
		{"retention zero", map[string]string{"backup_retention_days": "0"}, true},
		{"salt not writable", map[string]string{"backup_passphrase_salt": "abc"}, true},
		{"unknown key", map[string]string{"theme": "dark"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateBackupSettings(tt.in)
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRequestBodyTooLarge(t *testing.T) {
	e := setupHandlers(t)
	big := bytes.Repeat([]byte("a"), maxBodyBytes+1)
	body := `{"text":"` + string(big) + `"}`
	rec := e.do(t, "POST", "/api/lists/from-text", body)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
