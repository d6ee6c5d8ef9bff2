package model

// ProductTemplate is a remembered (name, unit) pair used for autocomplete.
// LastUsed is Unix milliseconds.
type ProductTemplate struct {
	Name       string  `json:"name"`
	Unit       string  `json:"unit"`
	LargeUnit  string  `json:"largeUnit"`
	Factor     float64 `json:"factor"`
	UsageCount int     `json:"usageCount"`
	LastUsed   int64   `json:"lastUsed"`
}
