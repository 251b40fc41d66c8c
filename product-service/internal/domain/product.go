package domain

import "time"

// Product is a catalog entry together with its stock level.
// InStock is stored redundantly and must equal Stock > 0 after every write.
type Product struct {
	ID          int64
	Title       string
	Description string
	Category    string
	ImageURL    string
	Price       int64 // smallest currency unit
	Stock       int32
	InStock     bool
	CreatedAt   time.Time
}

// Normalize restores the InStock invariant and clamps negative stock to zero.
func (p *Product) Normalize() {
	if p.Stock < 0 {
		p.Stock = 0
	}
	p.InStock = p.Stock > 0
}

// StockInfo contains stock information for a product
type StockInfo struct {
	ProductID int64
	Stock     int32
	InStock   bool
}
