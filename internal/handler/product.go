package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/pamdev00/price/internal/catalog"
	"github.com/pamdev00/price/internal/model"
	"github.com/pamdev00/price/internal/notify"
	"github.com/pamdev00/price/internal/pricing"
	"github.com/pamdev00/price/internal/undo"
)

type ProductHandler struct {
	core *Core
}

func NewProductHandler(core *Core) *ProductHandler {
	return &ProductHandler{core: core}
}

// amount accepts a JSON number or a string such as "12,5".
type amount float64

func (a *amount) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		v, _ := pricing.ParseAmount(s)
		*a = amount(v)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("amount: %w", err)
	}
	*a = amount(f)
	return nil
}

type productView struct {
	catalog.Entry
	DisplayPrice    string `json:"displayPrice"`
	DisplayPerUnit  string `json:"displayPerUnit"`
	DisplayPerLarge string `json:"displayPerLarge"`
}

type listResponse struct {
	Unit     model.Unit       `json:"unit"`
	Sort     catalog.SortMode `json:"sort"`
	Count    int              `json:"count"`
	Products []productView    `json:"products"`
}

func viewOf(e catalog.Entry) productView {
	return productView{
		Entry:           e,
		DisplayPrice:    pricing.Format(e.OriginalPrice),
		DisplayPerUnit:  pricing.Format(e.PricePerUnit),
		DisplayPerLarge: pricing.Format(e.PricePerLarge),
	}
}

func productError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, catalog.ErrInvalidPrice):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: catalog.NoticeInvalidPrice, Field: "price"})
	case errors.Is(err, catalog.ErrInvalidQuantity):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: catalog.NoticeInvalidQuantity, Field: "quantity"})
	case errors.Is(err, catalog.ErrInvalidFactor):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: catalog.NoticeInvalidFactor, Field: "factor"})
	case errors.Is(err, catalog.ErrProductNotFound):
		writeError(w, http.StatusNotFound, "product not found")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	var resp listResponse
	h.core.Do(func() {
		entries := h.core.catalog.Ranked()
		resp = listResponse{
			Unit:     h.core.catalog.ActiveUnit(),
			Sort:     h.core.catalog.SortMode(),
			Count:    len(entries),
			Products: make([]productView, len(entries)),
		}
		for i, e := range entries {
			resp.Products[i] = viewOf(e)
		}
	})
	writeJSON(w, http.StatusOK, resp)
}

type createProductRequest struct {
	Name     string `json:"name"`
	Price    amount `json:"price"`
	Quantity amount `json:"quantity"`
}

func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	var (
		p   model.Product
		err error
	)
	h.core.Do(func() {
		p, err = h.core.catalog.AddProduct(req.Name, float64(req.Price), float64(req.Quantity))
	})
	if err != nil {
		productError(w, err)
		return
	}

	h.core.changed("products")
	writeJSON(w, http.StatusCreated, viewOf(catalog.Entry{Product: p}))
}

type updateProductRequest struct {
	Name     *string `json:"name"`
	Price    *amount `json:"price"`
	Quantity *amount `json:"quantity"`
	Unit     *string `json:"unit"`
}

func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req updateProductRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	var edit model.ProductEdit
	edit.Name = req.Name
	if req.Price != nil {
		v := float64(*req.Price)
		edit.OriginalPrice = &v
	}
	if req.Quantity != nil {
		v := float64(*req.Quantity)
		edit.OriginalQuantity = &v
	}
	if req.Unit != nil {
		u, ok := model.LookupUnit(*req.Unit)
		if !ok {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "unknown unit", Field: "unit"})
			return
		}
		edit.Unit, edit.LargeUnit, edit.Factor = &u.Symbol, &u.LargeSymbol, &u.Factor
	}

	var p model.Product
	h.core.Do(func() {
		p, err = h.core.catalog.ApplyEdit(id, edit)
	})
	if err != nil {
		productError(w, err)
		return
	}

	h.core.changed("products")
	writeJSON(w, http.StatusOK, viewOf(catalog.Entry{Product: p}))
}

type deleteResponse struct {
	Deleted bool         `json:"deleted"`
	Undo    *undo.Handle `json:"undo,omitempty"`
}

// Delete removes one product. An unknown id is not an error.
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var resp deleteResponse
	h.core.Do(func() {
		handle, ok := h.core.catalog.DeleteProduct(id, func() { h.core.changed("products") })
		if ok {
			resp = deleteResponse{Deleted: true, Undo: &handle}
		}
	})
	writeJSON(w, http.StatusOK, resp)
}

// Clear asks for confirmation before emptying the list. The answer arrives
// through the prompts API.
func (h *ProductHandler) Clear(w http.ResponseWriter, r *http.Request) {
	var count int
	h.core.Do(func() {
		count = h.core.catalog.Len()
		if count == 0 {
			return
		}
		h.core.prompts.Confirm(notify.Request{
			Title:   "Delete all products?",
			Message: fmt.Sprintf("All %d products will be removed. You can undo this for a few seconds.", count),
			Action:  "Delete all",
			Danger:  true,
			OnAccept: func() {
				h.core.catalog.ClearAll(func() { h.core.changed("products") })
			},
		})
	})

	if count == 0 {
		writeJSON(w, http.StatusOK, map[string]any{"cleared": false})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"confirmation_requested": true, "count": count})
}

func parseIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}
