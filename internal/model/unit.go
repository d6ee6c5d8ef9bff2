package model

// Unit is a measurement unit together with the larger unit prices are
// quoted in. Factor converts a per-unit price into a per-large-unit price.
type Unit struct {
	Symbol      string  `json:"unit"`
	LargeSymbol string  `json:"large"`
	Factor      float64 `json:"factor"`
}

var (
	UnitGram       = Unit{Symbol: "g", LargeSymbol: "kg", Factor: 1000}
	UnitMilliliter = Unit{Symbol: "ml", LargeSymbol: "L", Factor: 1000}
	UnitPiece      = Unit{Symbol: "pcs", LargeSymbol: "100 pcs", Factor: 100}
)

// DefaultUnit is the unit a new comparison starts with.
var DefaultUnit = UnitGram

// Units returns the fixed set of supported units in display order.
func Units() []Unit {
	return []Unit{UnitGram, UnitMilliliter, UnitPiece}
}

// LookupUnit finds a supported unit by its small-unit symbol.
func LookupUnit(symbol string) (Unit, bool) {
	for _, u := range Units() {
		if u.Symbol == symbol {
			return u, true
		}
	}
	return Unit{}, false
}
