package model

// Session is a named snapshot of a comparison. SavedAt is Unix milliseconds.
type Session struct {
	Name     string    `json:"name"`
	Products []Product `json:"products"`
	SavedAt  int64     `json:"savedAt"`
}

// Cheapest returns the product with the lowest per-unit price, first one wins on ties.
func (s Session) Cheapest() (Product, bool) {
	if len(s.Products) == 0 {
		return Product{}, false
	}
	best := s.Products[0]
	for _, p := range s.Products[1:] {
		if p.PricePerUnit < best.PricePerUnit {
			best = p
		}
	}
	return best, true
}
