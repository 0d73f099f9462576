package models

// CartItem is a line of the shopping cart. Orders keep a copy of it so that
// later product edits never change historical pricing or descriptions.
type CartItem struct {
	ID       string `json:"id" bson:"id"`
	Name     string `json:"name" bson:"name"`
	Category string `json:"category" bson:"category"`
	Quantity int    `json:"quantity" bson:"quantity"`
	Price    int    `json:"price" bson:"price"` // unit price, NT$
	Image    string `json:"image,omitempty" bson:"image,omitempty"`
	Farm     string `json:"farm,omitempty" bson:"farm,omitempty"`
	Location string `json:"location,omitempty" bson:"location,omitempty"`
}

// LineTotal is price times quantity.
func (c CartItem) LineTotal() int {
	return c.Price * c.Quantity
}

// Subtotal sums every line of the cart.
func Subtotal(items []CartItem) int {
	total := 0
	for _, it := range items {
		total += it.LineTotal()
	}
	return total
}
