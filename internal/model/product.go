package model

// Product is one entered item of the active comparison. IDs and AddedAt are
// Unix milliseconds.
type Product struct {
	ID               int64   `json:"id"`
	Name             string  `json:"name"`
	OriginalPrice    float64 `json:"originalPrice"`
	OriginalQuantity float64 `json:"originalQuantity"`
	Unit             string  `json:"unit"`
	LargeUnit        string  `json:"largeUnit"`
	Factor           float64 `json:"factor"`
	PricePerUnit     float64 `json:"pricePerUnit"`
	PricePerLarge    float64 `json:"pricePerLarge"`
	AddedAt          int64   `json:"addedAt"`
}

// ProductEdit carries the fields of a partial edit. Nil fields are left as they are.
type ProductEdit struct {
	Name             *string  `json:"name,omitempty"`
	OriginalPrice    *float64 `json:"originalPrice,omitempty"`
	OriginalQuantity *float64 `json:"originalQuantity,omitempty"`
	Unit             *string  `json:"unit,omitempty"`
	LargeUnit        *string  `json:"largeUnit,omitempty"`
	Factor           *float64 `json:"factor,omitempty"`
}

// Reprices reports whether applying the edit requires recomputing prices.
func (e ProductEdit) Reprices() bool {
	return e.OriginalPrice != nil || e.OriginalQuantity != nil || e.Factor != nil
}

// CloneProducts returns a copy of products that shares no backing array.
func CloneProducts(products []Product) []Product {
	out := make([]Product, len(products))
	copy(out, products)
	return out
}
