package handler

import (
	"net/http"

	ws "github.com/pamdev00/price/internal/websocket"
)

type UndoHandler struct {
	core *Core
}

func NewUndoHandler(core *Core) *UndoHandler {
	return &UndoHandler{core: core}
}

// Undo reverses a product delete, a clear or a session delete by handle id.
func (h *UndoHandler) Undo(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var ok bool
	h.core.Do(func() {
		ok = h.core.catalog.Undo(id) || h.core.archive.Undo(id)
	})
	if !ok {
		writeError(w, http.StatusGone, "nothing to undo")
		return
	}

	h.core.sink.Broadcast(ws.NewMessage("undo", "applied", 0, nil).WithRef(id))
	writeJSON(w, http.StatusOK, map[string]bool{"undone": true})
}

// Pending lists the undo handles still open.
func (h *UndoHandler) Pending(w http.ResponseWriter, r *http.Request) {
	var resp map[string]any
	h.core.Do(func() {
		resp = map[string]any{
			"products": h.core.catalog.PendingUndo(),
			"sessions": h.core.archive.PendingUndo(),
		}
	})
	writeJSON(w, http.StatusOK, resp)
}
