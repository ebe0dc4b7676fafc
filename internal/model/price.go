package model

import "time"

// PriceCache is the cached USD price of one asset.
type PriceCache struct {
	Asset     string    `json:"asset"`
	Price     float64   `json:"price"`
	Source    string    `json:"source"`
	Degraded  bool      `json:"degraded"`
	Timestamp time.Time `json:"timestamp"`
}
