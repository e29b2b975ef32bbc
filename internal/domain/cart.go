package domain

import "github.com/shopspring/decimal"

// CartItem is a single line in the shopping cart.
// ProductID is unique within a cart. Price is the decimal string sent by the
// store (e.g. "10.00"); a value that does not parse counts as zero.
type CartItem struct {
	ProductID int    `json:"product_id"`
	Name      string `json:"name"`
	Price     string `json:"price"`
	Quantity  int    `json:"quantity"`
	ImageURL  string `json:"image,omitempty"`
}

// UnitPrice parses Price, returning zero for an unparsable string.
func (i CartItem) UnitPrice() decimal.Decimal {
	d, err := decimal.NewFromString(i.Price)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Subtotal is UnitPrice multiplied by Quantity.
func (i CartItem) Subtotal() decimal.Decimal {
	return i.UnitPrice().Mul(decimal.NewFromInt(int64(i.Quantity)))
}
