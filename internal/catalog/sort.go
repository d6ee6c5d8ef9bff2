package catalog

import (
	"sort"

	"github.com/pamdev00/price/internal/model"
)

// SortMode selects the display order of ListSorted.
type SortMode string

const (
	SortByPrice   SortMode = "price"
	SortByRecency SortMode = "recency"
)

// ParseSortMode accepts "price", "recency" and its older name "added".
func ParseSortMode(s string) (SortMode, bool) {
	switch s {
	case "price":
		return SortByPrice, true
	case "recency", "added":
		return SortByRecency, true
	default:
		return "", false
	}
}

// SortMode returns the current display order.
func (c *Catalog) SortMode() SortMode {
	return c.sortMode
}

// SetSortMode changes the order ListSorted returns. The stored list is untouched.
func (c *Catalog) SetSortMode(m SortMode) {
	c.sortMode = m
}

// ListSorted returns a sorted copy of the products: cheapest per unit first,
// or newest first. Equal keys keep insertion order.
func (c *Catalog) ListSorted() []model.Product {
	out := model.CloneProducts(c.products)
	switch c.sortMode {
	case SortByRecency:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].AddedAt > out[j].AddedAt
		})
	default:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].PricePerUnit < out[j].PricePerUnit
		})
	}
	return out
}

// BestDeal returns the product with the lowest per-unit price. On a tie the
// one earliest in the list wins. With fewer than two products there is no best deal.
func (c *Catalog) BestDeal() (model.Product, bool) {
	if len(c.products) < 2 {
		return model.Product{}, false
	}
	best := c.products[0]
	for _, p := range c.products[1:] {
		if p.PricePerUnit < best.PricePerUnit {
			best = p
		}
	}
	return best, true
}

// Entry is a product in display order with its best-deal mark.
type Entry struct {
	model.Product
	BestDeal bool `json:"bestDeal"`
}

// Ranked returns ListSorted with the best deal marked.
func (c *Catalog) Ranked() []Entry {
	best, hasBest := c.BestDeal()
	sorted := c.ListSorted()
	entries := make([]Entry, len(sorted))
	for i, p := range sorted {
		entries[i] = Entry{Product: p, BestDeal: hasBest && p.ID == best.ID}
	}
	return entries
}
