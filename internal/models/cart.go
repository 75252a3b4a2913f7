package models

// CartLine is one menu item in a user's cart, keyed by the item id.
type CartLine struct {
	ID       string `json:"id" validate:"required"`
	Name     string `json:"name"`
	Price    int    `json:"price" validate:"gte=0"`
	Image    string `json:"image,omitempty"`
	Quantity int    `json:"quantity" validate:"gte=1"`
}

// TaxPercent is the VAT applied at checkout.
const TaxPercent = 13

// Totals is the money breakdown of a cart, in minor units.
type Totals struct {
	Subtotal int `json:"subtotal"`
	Tax      int `json:"tax"`
	Total    int `json:"total"`
}

// ComputeTotals sums price × quantity and adds 13% tax, truncated.
func ComputeTotals(lines []CartLine) Totals {
	subtotal := 0
	for _, l := range lines {
		subtotal += l.Price * l.Quantity
	}
	tax := subtotal * TaxPercent / 100
	return Totals{Subtotal: subtotal, Tax: tax, Total: subtotal + tax}
}
