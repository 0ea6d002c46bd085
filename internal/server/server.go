package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/feira/internal/backup"
	"github.com/dukerupert/feira/internal/config"
	"github.com/dukerupert/feira/internal/handler"
	"github.com/dukerupert/feira/internal/ident"
	"github.com/dukerupert/feira/internal/inbox"
	"github.com/dukerupert/feira/internal/middleware"
	"github.com/dukerupert/feira/internal/remote"
	"github.com/dukerupert/feira/internal/shopping"
	"github.com/dukerupert/feira/internal/store"
	"github.com/dukerupert/feira/internal/syncer"
	ws "github.com/dukerupert/feira/internal/websocket"
)

type Server struct {
	db            *sql.DB
	hub           *ws.Hub
	lists         *shopping.Service
	syncManager   *syncer.Manager
	backupManager *backup.Manager
	inbox         *inbox.Watcher
	rateLimiter   *middleware.RateLimiter
	corsOrigins   []string

	listH     *handler.ListHandler
	syncH     *handler.SyncHandler
	settingsH *handler.SettingsHandler
	backupH   *handler.BackupHandler

	logger *slog.Logger
	cancel context.CancelFunc
}

// New wires the list service, its sync sessions and the backup manager on
// top of db. Nothing runs in the background until Start.
func New(db *sql.DB, cfg config.Config, logger *slog.Logger) (*Server, error) {
	gen := ident.UUID{}
	hub := ws.NewHub(logger)

	settingsStore := store.NewSettingsStore(db)
	svc, err := shopping.NewService(store.NewListStore(db, gen), gen, logger)
	if err != nil {
		return nil, fmt.Errorf("load lists: %w", err)
	}

	// An endpoint given in the environment wins over the stored one.
	endpoint := cfg.SheetsURL
	if endpoint == "" {
		if endpoint, err = settingsStore.SheetsURL(); err != nil {
			return nil, fmt.Errorf("load sync endpoint: %w", err)
		}
	}

	syncCfg := syncer.DefaultConfig()
	syncCfg.Endpoint = endpoint
	client := remote.NewClient(remote.Config{Timeout: cfg.SyncTimeout})
	syncMgr := syncer.NewManager(syncCfg, client, svc, gen, logger.With("component", "sync"))
	syncMgr.SetStatusCallback(func(st syncer.Status) {
		hub.BroadcastList(st.ListID, ws.Message{
			Type:   "sync_status",
			Entity: "sync",
			Action: "status",
			ID:     st.ListID,
			Extra: map[string]any{
				"pull":  st.Pull,
				"push":  st.Push,
				"error": st.LastError,
			},
		})
	})

	svc.Subscribe(func(c shopping.Change) {
		action := "updated"
		if c.Deleted {
			action = "deleted"
		}
		hub.Broadcast(ws.NewMessage("list", action, c.ListID, map[string]any{"origin": c.Origin}))
		if c.Origin == shopping.OriginLocal && !c.Deleted {
			syncMgr.NotifyLocalChange(c.ListID)
		}
	})

	backupCfg := backup.Config{
		S3: backup.S3Config{
			Endpoint:  cfg.S3Endpoint,
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		},
		Passphrase: cfg.BackupPassphrase,
	}
	backupMgr := backup.NewManager(backupCfg, svc, gen, store.NewBackupStore(db), settingsStore, logger, func(s backup.Status) {
		hub.Broadcast(ws.Message{
			Type:   "backup_status",
			Entity: "backup",
			Action: string(s.State),
			Extra: map[string]any{
				"in_progress": s.InProgress,
				"error":       s.Error,
			},
		})
	})

	var watcher *inbox.Watcher
	if cfg.InboxDir != "" {
		watcher = inbox.NewWatcher(cfg.InboxDir, svc, gen, logger)
	}

	return &Server{
		db:            db,
		hub:           hub,
		lists:         svc,
		syncManager:   syncMgr,
		backupManager: backupMgr,
		inbox:         watcher,
		rateLimiter:   middleware.NewRateLimiter(),
		corsOrigins:   cfg.CORSOrigins,
		listH:         handler.NewListHandler(svc, gen, logger),
		syncH:         handler.NewSyncHandler(syncMgr, logger),
		settingsH:     handler.NewSettingsHandler(settingsStore, syncMgr, hub, logger),
		backupH:       handler.NewBackupHandler(backupMgr, logger),
		logger:        logger,
	}, nil
}

// Start launches the background loops: the backup schedule, the inbox
// watcher and the rate limiter cleanup.
func (s *Server) Start(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)
	s.backupManager.Start(ctx)
	if s.inbox != nil {
		if err := s.inbox.Start(ctx); err != nil {
			s.backupManager.Stop()
			s.cancel()
			return fmt.Errorf("start inbox: %w", err)
		}
	}
	go s.rateLimiter.Run(ctx, 5*time.Minute)
	return nil
}

// Stop halts the background loops and closes every sync session, flushing
// pending pushes.
func (s *Server) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.inbox != nil {
		s.inbox.Stop()
	}
	s.backupManager.Stop()
	s.syncManager.Close()
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.healthHandler)
	s.registerRoutes(mux)

	h := middleware.CORS(s.corsOrigins)(mux)
	return middleware.RequestLogger(s.logger.With("component", "http"))(h)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"lists":   len(s.lists.Lists()),
		"clients": s.hub.ClientCount(),
	})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	// Lists
	mux.HandleFunc("GET /api/lists", s.listH.List)
	mux.HandleFunc("POST /api/lists", s.listH.Create)
	mux.HandleFunc("POST /api/lists/from-text", s.listH.CreateFromText)
	mux.HandleFunc("GET /api/lists/{id}", s.listH.Get)
	mux.HandleFunc("PUT /api/lists/{id}", s.listH.Update)
	mux.HandleFunc("DELETE /api/lists/{id}", s.listH.Delete)
	mux.HandleFunc("POST /api/lists/{id}/duplicate", s.listH.Duplicate)
	mux.HandleFunc("POST /api/lists/{id}/clear-completed", s.listH.ClearCompleted)
	mux.HandleFunc("POST /api/lists/{id}/reset", s.listH.ResetChecks)

	// Items
	mux.HandleFunc("POST /api/lists/{id}/items", s.listH.AddItem)
	mux.HandleFunc("POST /api/lists/{id}/items/bulk", s.listH.AddBulk)
	mux.HandleFunc("POST /api/lists/{id}/sections", s.listH.AddSection)
	mux.HandleFunc("PUT /api/lists/{id}/items/{item_id}", s.listH.UpdateItem)
	mux.HandleFunc("DELETE /api/lists/{id}/items/{item_id}", s.listH.DeleteItem)
	mux.HandleFunc("POST /api/lists/{id}/items/{item_id}/toggle", s.listH.ToggleItem)
	mux.HandleFunc("POST /api/lists/{id}/items/{item_id}/move", s.listH.MoveItem)

	// Import / export
	mux.HandleFunc("POST /api/import", s.rateLimitedHandler(s.listH.Import))
	mux.HandleFunc("POST /api/import/deeplink", s.rateLimitedHandler(s.listH.ImportDeepLink))
	mux.HandleFunc("POST /api/lists/{id}/merge", s.rateLimitedHandler(s.listH.Merge))
	mux.HandleFunc("GET /api/lists/{id}/share", s.listH.Share)
	mux.HandleFunc("GET /api/export", s.listH.Export)
	mux.HandleFunc("GET /api/lists/{id}/export.csv", s.listH.ExportCSV)

	// Sync
	mux.HandleFunc("GET /api/lists/{id}/sync", s.syncH.Status)
	mux.HandleFunc("POST /api/lists/{id}/sync/pull", s.syncH.Pull)

	// Settings
	mux.HandleFunc("GET /api/settings/sync", s.settingsH.GetSync)
	mux.HandleFunc("PUT /api/settings/sync", s.settingsH.UpdateSync)
	mux.HandleFunc("GET /api/settings/backup", s.settingsH.GetBackup)
	mux.HandleFunc("PUT /api/settings/backup", s.settingsH.UpdateBackup)

	// Backups
	mux.HandleFunc("GET /api/backups", s.backupH.List)
	mux.HandleFunc("POST /api/backups", s.rateLimitedHandler(s.backupH.Run))
	mux.HandleFunc("GET /api/backups/status", s.backupH.Status)
	mux.HandleFunc("POST /api/backups/{id}/restore", s.rateLimitedHandler(s.backupH.Restore))

	// WebSocket
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.syncManager))
}
