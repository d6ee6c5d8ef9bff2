package handler

import (
	"net/http"
	"strconv"

	"github.com/pamdev00/price/internal/model"
)

const defaultSuggestLimit = 8

type TemplateHandler struct {
	core *Core
}

func NewTemplateHandler(core *Core) *TemplateHandler {
	return &TemplateHandler{core: core}
}

// List answers autocomplete queries: ?q= filters by substring, ranked=true
// orders by usage and recency, limit caps ranked results.
func (h *TemplateHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ranked, _ := strconv.ParseBool(q.Get("ranked"))
	limit := defaultSuggestLimit
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	var result []model.ProductTemplate
	h.core.Do(func() {
		switch {
		case !q.Has("q"):
			result = h.core.templates.All()
		case ranked:
			result = h.core.templates.Suggest(q.Get("q"), limit)
		default:
			result = h.core.templates.Query(q.Get("q"))
		}
	})
	writeJSON(w, http.StatusOK, result)
}
