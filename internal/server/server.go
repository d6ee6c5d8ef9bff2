package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/pamdev00/price/internal/archive"
	"github.com/pamdev00/price/internal/backup"
	"github.com/pamdev00/price/internal/catalog"
	"github.com/pamdev00/price/internal/config"
	"github.com/pamdev00/price/internal/handler"
	"github.com/pamdev00/price/internal/ids"
	"github.com/pamdev00/price/internal/middleware"
	"github.com/pamdev00/price/internal/notify"
	"github.com/pamdev00/price/internal/store"
	"github.com/pamdev00/price/internal/templates"
	"github.com/pamdev00/price/internal/undo"
	ws "github.com/pamdev00/price/internal/websocket"
)

const (
	sweepInterval   = time.Second
	cleanupInterval = time.Minute
	writeWindow     = time.Minute
)

type Server struct {
	hub         *ws.Hub
	core        *handler.Core
	productH    *handler.ProductHandler
	unitH       *handler.UnitHandler
	undoH       *handler.UndoHandler
	sessionH    *handler.SessionHandler
	templateH   *handler.TemplateHandler
	promptH     *handler.PromptHandler
	storageH    *handler.StorageHandler
	rateLimiter *middleware.RateLimiter
	sweeper     *undo.Sweeper
	cleaner     *undo.Sweeper
	writeLimit  int
	origins     []string
	logger      *slog.Logger
}

// New loads the three collections from gw and wires the components around
// them. Prompts, notices and change events go out through the websocket hub.
func New(cfg config.Config, gw store.Gateway, codec store.Codec, logger *slog.Logger) (*Server, error) {
	hub := ws.NewHub(logger.With("component", "websocket"))
	prompts := notify.NewBroadcaster(hub, time.Now, logger.With("component", "notify"))
	seq := ids.NewSequence(time.Now)

	registry, err := templates.New(templates.Config{
		Gateway:  gw,
		Codec:    codec,
		Notifier: prompts,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}

	cat, err := catalog.New(catalog.Config{
		Gateway:    gw,
		Codec:      codec,
		Templates:  registry,
		Notifier:   prompts,
		IDs:        seq,
		UndoWindow: cfg.UndoWindow,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}

	arc, err := archive.New(archive.Config{
		Gateway:    gw,
		Codec:      codec,
		Confirmer:  prompts,
		Notifier:   prompts,
		IDs:        seq,
		UndoWindow: cfg.UndoWindow,
		Logger:     logger,
		OnOpenHistory: func() {
			hub.Broadcast(ws.NewMessage("history", "open", 0, nil))
		},
	})
	if err != nil {
		return nil, fmt.Errorf("load sessions: %w", err)
	}

	core := handler.NewCore(cat, arc, registry, prompts, hub, logger.With("component", "core"))
	backups := backup.NewManager(backup.Config{
		Dir:     cfg.BackupDir,
		Gateway: gw,
		Codec:   codec,
		Logger:  logger,
	})
	rateLimiter := middleware.NewRateLimiter(time.Now)

	return &Server{
		hub:         hub,
		core:        core,
		productH:    handler.NewProductHandler(core),
		unitH:       handler.NewUnitHandler(core),
		undoH:       handler.NewUndoHandler(core),
		sessionH:    handler.NewSessionHandler(core),
		templateH:   handler.NewTemplateHandler(core),
		promptH:     handler.NewPromptHandler(core),
		storageH:    handler.NewStorageHandler(core, gw, backups, logger.With("component", "storage")),
		rateLimiter: rateLimiter,
		sweeper:     undo.NewSweeper(sweepInterval, core.SweepUndo, logger.With("component", "sweeper")),
		cleaner:     undo.NewSweeper(cleanupInterval, rateLimiter.Cleanup, logger.With("component", "ratelimit")),
		writeLimit:  cfg.WriteLimit,
		origins:     cfg.AllowedOrigins,
		logger:      logger,
	}, nil
}

// Hub returns the websocket hub.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

// Start runs the background loops until ctx is done or Stop is called.
func (s *Server) Start(ctx context.Context) {
	s.sweeper.Start(ctx)
	s.cleaner.Start(ctx)
}

func (s *Server) Stop() {
	s.sweeper.Stop()
	s.cleaner.Stop()
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)

	// Units and sorting
	mux.HandleFunc("GET /api/units", s.unitH.List)
	mux.HandleFunc("PUT /api/unit", s.unitH.SetUnit)
	mux.HandleFunc("PUT /api/sort", s.unitH.SetSort)

	// Products
	mux.HandleFunc("GET /api/products", s.productH.List)
	mux.HandleFunc("POST /api/products", s.productH.Create)
	mux.HandleFunc("DELETE /api/products", s.productH.Clear)
	mux.HandleFunc("PUT /api/products/{id}", s.productH.Update)
	mux.HandleFunc("DELETE /api/products/{id}", s.productH.Delete)

	// Undo
	mux.HandleFunc("GET /api/undo", s.undoH.Pending)
	mux.HandleFunc("POST /api/undo/{id}", s.undoH.Undo)

	// Saved sessions
	mux.HandleFunc("GET /api/sessions", s.sessionH.List)
	mux.HandleFunc("POST /api/sessions", s.sessionH.Save)
	mux.HandleFunc("GET /api/sessions/{index}", s.sessionH.Get)
	mux.HandleFunc("POST /api/sessions/{index}/load", s.sessionH.Load)
	mux.HandleFunc("DELETE /api/sessions/{index}", s.sessionH.Delete)

	// Autocomplete
	mux.HandleFunc("GET /api/templates", s.templateH.List)

	// Confirmations
	mux.HandleFunc("GET /api/prompts", s.promptH.List)
	mux.HandleFunc("POST /api/prompts/{id}/accept", s.promptH.Accept)
	mux.HandleFunc("DELETE /api/prompts/{id}", s.promptH.Dismiss)

	// Storage and backups
	mux.HandleFunc("GET /api/storage", s.storageH.Usage)
	mux.HandleFunc("GET /api/backups", s.storageH.ListBackups)
	mux.HandleFunc("POST /api/backups", s.storageH.CreateBackup)

	// WebSocket
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.origins, s.core.Snapshot, s.logger.With("component", "websocket")))

	limited := middleware.LimitWrites(s.rateLimiter, s.writeLimit, writeWindow)(mux)
	return middleware.RequestLogger(s.logger.With("component", "http"))(limited)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"status": "ok", "clients": s.hub.ClientCount()})
}
