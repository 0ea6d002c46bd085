// Package inbox imports backup and list files dropped into a directory.
// Processed files are moved to imported/ or failed/ beside them.
package inbox

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dukerupert/feira/internal/export"
	"github.com/dukerupert/feira/internal/ident"
	"github.com/dukerupert/feira/internal/importer"
	"github.com/dukerupert/feira/internal/shopping"
)

const (
	ImportedDir = "imported"
	FailedDir   = "failed"

	defaultSettle = 300 * time.Millisecond
)

// Importer stores a decoded payload.
type Importer interface {
	Import(p importer.Payload) (shopping.ImportResult, error)
}

// Watcher watches one directory for *.json and *.csv files.
type Watcher struct {
	dir    string
	imp    Importer
	gen    ident.Generator
	logger *slog.Logger
	// settle is how long a file must stay quiet before it is read, so
	// half-written files are not picked up.
	settle time.Duration

	mu      sync.Mutex
	pending map[string]*time.Timer
	wg      sync.WaitGroup

	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewWatcher(dir string, imp Importer, gen ident.Generator, logger *slog.Logger) *Watcher {
	return &Watcher{
		dir:     dir,
		imp:     imp,
		gen:     gen,
		logger:  logger.With("component", "inbox"),
		settle:  defaultSettle,
		pending: make(map[string]*time.Timer),
	}
}

func supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".csv":
		return true
	}
	return false
}

// Start creates the directory layout, imports files already waiting and
// begins watching for new ones.
func (w *Watcher) Start(ctx context.Context) error {
	for _, d := range []string{w.dir, filepath.Join(w.dir, ImportedDir), filepath.Join(w.dir, FailedDir)} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return fmt.Errorf("create inbox dir: %w", err)
		}
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if err := fw.Add(w.dir); err != nil {
		fw.Close()
		return fmt.Errorf("watch inbox %s: %w", w.dir, err)
	}
	w.watcher = fw

	entries, err := os.ReadDir(w.dir)
	if err != nil {
		fw.Close()
		return fmt.Errorf("read inbox: %w", err)
	}
	for _, e := range entries {
		if !e.IsDir() && supported(e.Name()) {
			w.schedule(filepath.Join(w.dir, e.Name()))
		}
	}

	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	go w.run(ctx)

	w.logger.Info("inbox watching", "dir", w.dir)
	return nil
}

// Stop stops watching and waits for imports in progress.
func (w *Watcher) Stop() {
	if w.cancel == nil {
		return
	}
	w.cancel()
	<-w.done

	w.mu.Lock()
	for path, t := range w.pending {
		if t.Stop() {
			w.wg.Done()
		}
		delete(w.pending, path)
	}
	w.mu.Unlock()
	w.wg.Wait()
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.done)
	defer w.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !supported(ev.Name) || filepath.Dir(ev.Name) != filepath.Clean(w.dir) {
				continue
			}
			if ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) {
				w.schedule(ev.Name)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("watch error", "error", err)
		}
	}
}

// schedule (re)arms the settle timer of path.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		if t.Stop() {
			t.Reset(w.settle)
			return
		}
	}
	w.wg.Add(1)
	w.pending[path] = time.AfterFunc(w.settle, func() {
		defer w.wg.Done()
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		w.process(path)
	})
}

func (w *Watcher) process(path string) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return
	}
	if err != nil {
		w.logger.Error("read inbox file", "file", path, "error", err)
		return
	}

	res, err := w.importData(path, data)
	if err != nil {
		w.logger.Warn("inbox import failed", "file", filepath.Base(path), "error", err)
		w.move(path, FailedDir)
		return
	}
	w.logger.Info("inbox file imported", "file", filepath.Base(path), "lists", res.Lists, "items", res.Items, "merged_items", res.MergedItems)
	w.move(path, ImportedDir)
}

func (w *Watcher) importData(path string, data []byte) (shopping.ImportResult, error) {
	var p importer.Payload
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		items, err := export.ReadCSV(bytes.NewReader(data), w.gen)
		if err != nil {
			return shopping.ImportResult{}, err
		}
		p = importer.Payload{Kind: importer.KindItems, Items: items}
	} else {
		var err error
		if p, err = importer.Decode(data, w.gen); err != nil {
			return shopping.ImportResult{}, err
		}
	}
	return w.imp.Import(p)
}

func (w *Watcher) move(path, sub string) {
	name := filepath.Base(path)
	dst := filepath.Join(w.dir, sub, name)
	if _, err := os.Stat(dst); err == nil {
		ext := filepath.Ext(name)
		dst = filepath.Join(w.dir, sub, fmt.Sprintf("%s-%d%s", strings.TrimSuffix(name, ext), time.Now().UnixMilli(), ext))
	}
	if err := os.Rename(path, dst); err != nil {
		w.logger.Error("move inbox file", "file", name, "error", err)
	}
}
