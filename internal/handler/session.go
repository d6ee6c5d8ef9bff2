package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/pamdev00/price/internal/archive"
	"github.com/pamdev00/price/internal/model"
	"github.com/pamdev00/price/internal/store"
)

type SessionHandler struct {
	core *Core
}

func NewSessionHandler(core *Core) *SessionHandler {
	return &SessionHandler{core: core}
}

func parseIndexParam(r *http.Request) (int, error) {
	return strconv.Atoi(r.PathValue("index"))
}

func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	var summaries []archive.Summary
	h.core.Do(func() {
		summaries = h.core.archive.Summaries()
	})
	writeJSON(w, http.StatusOK, summaries)
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	index, err := parseIndexParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid index")
		return
	}

	var s model.Session
	h.core.Do(func() {
		s, err = h.core.archive.Get(index)
	})
	if err != nil {
		sessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// Save snapshots the current comparison.
func (h *SessionHandler) Save(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	var (
		result archive.SaveResult
		err    error
	)
	h.core.Do(func() {
		result, err = h.core.archive.SaveSession(req.Name, h.core.catalog.GetAll())
	})
	h.core.changed("sessions")
	if err != nil {
		sessionError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

type loadResponse struct {
	Loaded               bool `json:"loaded"`
	ConfirmationRequired bool `json:"confirmation_required"`
}

// Load replaces the current comparison with a saved one, asking first if the
// current one has products.
func (h *SessionHandler) Load(w http.ResponseWriter, r *http.Request) {
	index, err := parseIndexParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid index")
		return
	}

	var resp loadResponse
	h.core.Do(func() {
		err = h.core.archive.LoadSession(index, h.core.catalog.GetAll(), func(products []model.Product) {
			h.core.catalog.ReplaceAll(products)
			h.core.changed("products")
			resp.Loaded = true
		})
	})
	if err != nil {
		sessionError(w, err)
		return
	}
	resp.ConfirmationRequired = !resp.Loaded
	writeJSON(w, http.StatusOK, resp)
}

// Delete asks for confirmation before removing a saved session.
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	index, err := parseIndexParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid index")
		return
	}

	h.core.Do(func() {
		err = h.core.archive.DeleteSession(index, func() { h.core.changed("sessions") })
	})
	if err != nil {
		sessionError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]bool{"confirmation_requested": true})
}

func sessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, archive.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, store.ErrCapacityExceeded):
		writeError(w, http.StatusInsufficientStorage, archive.NoticeStorageExhausted)
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
