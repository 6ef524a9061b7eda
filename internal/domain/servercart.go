package domain

import "time"

// ServerCart is the authenticated shopper's cart as returned by the cart API.
// Prices are in cents.
type ServerCart struct {
	ID        string           `json:"id"`
	UserID    string           `json:"user_id"`
	Items     []ServerCartItem `json:"items"`
	Currency  string           `json:"currency"`
	Version   int              `json:"version"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// ServerCartItem is a single line in the authenticated cart.
type ServerCartItem struct {
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id,omitempty"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Quantity  int    `json:"quantity"`
	ImageURL  string `json:"image_url,omitempty"`
}

// TotalAmount returns the cart total in cents.
func (c *ServerCart) TotalAmount() int64 {
	var total int64
	for _, item := range c.Items {
		total += item.Price * int64(item.Quantity)
	}
	return total
}

// ItemCount returns the summed quantity of all items.
func (c *ServerCart) ItemCount() int {
	var count int
	for _, item := range c.Items {
		count += item.Quantity
	}
	return count
}
