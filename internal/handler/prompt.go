package handler

import "net/http"

type PromptHandler struct {
	core *Core
}

func NewPromptHandler(core *Core) *PromptHandler {
	return &PromptHandler{core: core}
}

func (h *PromptHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.core.prompts.Pending())
}

// Accept runs the confirmed action under the core lock.
func (h *PromptHandler) Accept(w http.ResponseWriter, r *http.Request) {
	var ok bool
	h.core.Do(func() {
		ok = h.core.prompts.Accept(r.PathValue("id"))
	})
	if !ok {
		writeError(w, http.StatusNotFound, "prompt not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"accepted": true})
}

func (h *PromptHandler) Dismiss(w http.ResponseWriter, r *http.Request) {
	if !h.core.prompts.Dismiss(r.PathValue("id")) {
		writeError(w, http.StatusNotFound, "prompt not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
