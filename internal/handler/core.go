// Package handler exposes the comparison core over a JSON API.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/pamdev00/price/internal/archive"
	"github.com/pamdev00/price/internal/catalog"
	"github.com/pamdev00/price/internal/notify"
	"github.com/pamdev00/price/internal/templates"
	"github.com/pamdev00/price/internal/undo"
	ws "github.com/pamdev00/price/internal/websocket"
)

// Core owns the catalog, archive and template registry and runs every call
// into them one at a time.
type Core struct {
	mu        sync.Mutex
	catalog   *catalog.Catalog
	archive   *archive.Archive
	templates *templates.Registry
	prompts   *notify.Broadcaster
	sink      notify.Sink
	logger    *slog.Logger
}

// NewCore ties the components together. prompts must be the Confirmer and
// Notifier the components were built with so that accepted prompts run here.
func NewCore(cat *catalog.Catalog, arc *archive.Archive, reg *templates.Registry, prompts *notify.Broadcaster, sink notify.Sink, logger *slog.Logger) *Core {
	return &Core{
		catalog:   cat,
		archive:   arc,
		templates: reg,
		prompts:   prompts,
		sink:      sink,
		logger:    logger,
	}
}

// Do runs fn while holding the core lock.
func (c *Core) Do(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn()
}

func (c *Core) changed(entity string) {
	c.sink.Broadcast(ws.NewMessage(entity, "changed", 0, nil))
}

// SweepUndo drops expired undo records and tells clients their offers are gone.
func (c *Core) SweepUndo() {
	var expired []undo.Handle
	c.Do(func() {
		expired = append(c.catalog.SweepUndo(), c.archive.SweepUndo()...)
	})
	for _, h := range expired {
		c.sink.Broadcast(ws.NewMessage("undo", "expired", 0, nil).WithRef(h.ID))
	}
	if len(expired) > 0 {
		c.logger.Debug("undo offers expired", "count", len(expired))
	}
}

// Snapshot returns the open prompts and undo offers for a newly connected client.
func (c *Core) Snapshot() []ws.Message {
	var msgs []ws.Message
	for _, p := range c.prompts.Pending() {
		msgs = append(msgs, ws.NewMessage("prompt", "confirm", 0, map[string]any{
			"title":   p.Title,
			"message": p.Message,
			"action":  p.Action,
			"danger":  p.Danger,
		}).WithRef(p.ID))
	}
	c.Do(func() {
		for _, h := range append(c.catalog.PendingUndo(), c.archive.PendingUndo()...) {
			msgs = append(msgs, ws.NewMessage("undo", "offer", 0, map[string]any{
				"expires_at": h.ExpiresAt,
			}).WithRef(h.ID))
		}
	})
	return msgs
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(v)
}
