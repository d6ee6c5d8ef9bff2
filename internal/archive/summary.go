package archive

import "github.com/pamdev00/price/internal/pricing"

// Summary is the history-list view of one session.
type Summary struct {
	Index    int     `json:"index"`
	Name     string  `json:"name"`
	SavedAt  int64   `json:"savedAt"`
	Count    int     `json:"count"`
	Cheapest *Lowest `json:"cheapest,omitempty"`
}

// Lowest is the cheapest per-unit price in a session.
type Lowest struct {
	Name         string  `json:"name"`
	PricePerUnit float64 `json:"pricePerUnit"`
	Unit         string  `json:"unit"`
	Display      string  `json:"display"`
}

// Summaries describes every session, newest first.
func (a *Archive) Summaries() []Summary {
	out := make([]Summary, len(a.sessions))
	for i, s := range a.sessions {
		out[i] = Summary{
			Index:   i,
			Name:    s.Name,
			SavedAt: s.SavedAt,
			Count:   len(s.Products),
		}
		if p, ok := s.Cheapest(); ok {
			out[i].Cheapest = &Lowest{
				Name:         p.Name,
				PricePerUnit: p.PricePerUnit,
				Unit:         p.Unit,
				Display:      pricing.Format(p.PricePerUnit),
			}
		}
	}
	return out
}
