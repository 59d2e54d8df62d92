package domain

// Product is a catalog entry. Line items reference it by ID only.
type Product struct {
	ID    uint16 `json:"id"`
	Name  string `json:"name"`
	Price uint32 `json:"price"`
}

// LineItem captures the product's current price for qty units.
func (p *Product) LineItem(qty uint16) LineItem {
	return LineItem{ProductID: p.ID, Quantity: qty, UnitPrice: p.Price}
}
