package domain

import "github.com/shopspring/decimal"

// ProductSnapshot is the product display data cached on a guest cart item at
// add time. It is owned by the catalog and may go stale; the cart never
// validates or refreshes it on its own.
type ProductSnapshot struct {
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	DiscountPrice decimal.Decimal `json:"discountPrice"`
	Images        []string        `json:"images,omitempty"`
	Stock         int             `json:"stock"`
}

// EffectivePrice returns the discount price when it is positive, else the list price.
func (p *ProductSnapshot) EffectivePrice() decimal.Decimal {
	if p.DiscountPrice.IsPositive() {
		return p.DiscountPrice
	}
	return p.Price
}

// GuestCartItem is a single line of a guest cart.
type GuestCartItem struct {
	ProductID string           `json:"productId"`
	Quantity  int              `json:"quantity"`
	Product   *ProductSnapshot `json:"product"`
}

// GuestCart is the cart of a shopper who has not authenticated.
// TotalItems and TotalPrice are derived from Products by Recalculate.
type GuestCart struct {
	Products   []GuestCartItem `json:"products"`
	TotalItems int             `json:"totalItems"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
}

// NewGuestCart returns an empty cart.
func NewGuestCart() *GuestCart {
	return &GuestCart{
		Products:   []GuestCartItem{},
		TotalPrice: decimal.Zero,
	}
}

// FindItemIndex returns the index of the item with the given product ID, or -1.
func (c *GuestCart) FindItemIndex(productID string) int {
	for i := range c.Products {
		if c.Products[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// Recalculate recomputes TotalItems and TotalPrice from Products. Items
// without a snapshot count toward TotalItems but not toward TotalPrice.
func (c *GuestCart) Recalculate() {
	count := 0
	total := decimal.Zero
	for _, item := range c.Products {
		count += item.Quantity
		if item.Product == nil {
			continue
		}
		total = total.Add(item.Product.EffectivePrice().Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	c.TotalItems = count
	c.TotalPrice = total
}

// MergeItems returns the (productId, quantity) pairs of the cart in insertion order.
func (c *GuestCart) MergeItems() []MergeItem {
	items := make([]MergeItem, 0, len(c.Products))
	for _, item := range c.Products {
		items = append(items, MergeItem{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return items
}

// Clone returns a deep copy of the cart.
func (c *GuestCart) Clone() *GuestCart {
	out := &GuestCart{
		Products:   make([]GuestCartItem, len(c.Products)),
		TotalItems: c.TotalItems,
		TotalPrice: c.TotalPrice,
	}
	for i, item := range c.Products {
		out.Products[i] = item
		if item.Product != nil {
			snap := *item.Product
			snap.Images = append([]string(nil), item.Product.Images...)
			out.Products[i].Product = &snap
		}
	}
	return out
}

// MergeItem is one guest cart line replayed against the authenticated cart.
type MergeItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}
