package handler

import (
	"net/http"

	"github.com/pamdev00/price/internal/catalog"
	"github.com/pamdev00/price/internal/model"
)

type UnitHandler struct {
	core *Core
}

func NewUnitHandler(core *Core) *UnitHandler {
	return &UnitHandler{core: core}
}

type unitsResponse struct {
	Units  []model.Unit     `json:"units"`
	Active model.Unit       `json:"active"`
	Sort   catalog.SortMode `json:"sort"`
}

func (h *UnitHandler) List(w http.ResponseWriter, r *http.Request) {
	resp := unitsResponse{Units: model.Units()}
	h.core.Do(func() {
		resp.Active = h.core.catalog.ActiveUnit()
		resp.Sort = h.core.catalog.SortMode()
	})
	writeJSON(w, http.StatusOK, resp)
}

// SetUnit changes the unit used for products added from now on.
func (h *UnitHandler) SetUnit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Unit string `json:"unit"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	u, ok := model.LookupUnit(req.Unit)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "unknown unit", Field: "unit"})
		return
	}

	var err error
	h.core.Do(func() {
		err = h.core.catalog.SetActiveUnit(u)
	})
	if err != nil {
		productError(w, err)
		return
	}
	h.core.changed("unit")
	writeJSON(w, http.StatusOK, u)
}

func (h *UnitHandler) SetSort(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mode string `json:"mode"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	mode, ok := catalog.ParseSortMode(req.Mode)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "sort mode must be price or recency", Field: "mode"})
		return
	}

	h.core.Do(func() {
		h.core.catalog.SetSortMode(mode)
	})
	h.core.changed("products")
	writeJSON(w, http.StatusOK, map[string]catalog.SortMode{"sort": mode})
}
