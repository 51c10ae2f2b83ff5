package domain

import "time"

const MaxInstructionsLength = 500

type CartItem struct {
	ProductID    string    `json:"productId" bson:"productId"`
	Quantity     int       `json:"quantity" bson:"quantity"`
	Instructions string    `json:"specialInstructions,omitempty" bson:"instructions,omitempty"`
	AddedAt      time.Time `json:"addedAt" bson:"addedAt"`
}

// Cart is owned by exactly one user. Items never hold two lines for the
// same product.
type Cart struct {
	UserID      string     `json:"userId" bson:"_id"`
	Items       []CartItem `json:"items" bson:"items"`
	LastUpdated time.Time  `json:"lastUpdated" bson:"lastUpdated"`
}

func NewCart(userID string) *Cart {
	return &Cart{UserID: userID, Items: []CartItem{}}
}

// Find returns the index of the product's line or -1.
func (c *Cart) Find(productID string) int {
	for i, it := range c.Items {
		if it.ProductID == productID {
			return i
		}
	}
	return -1
}

// Add merges into an existing line for the product or appends a new one.
// It returns the resulting line quantity.
func (c *Cart) Add(productID string, quantity int, instructions string, now time.Time) int {
	if i := c.Find(productID); i >= 0 {
		c.Items[i].Quantity += quantity
		if instructions != "" {
			c.Items[i].Instructions = instructions
		}
		return c.Items[i].Quantity
	}
	c.Items = append(c.Items, CartItem{
		ProductID:    productID,
		Quantity:     quantity,
		Instructions: instructions,
		AddedAt:      now,
	})
	return quantity
}

// SetQuantity changes a line; a quantity <= 0 removes it. It reports
// whether the product had a line.
func (c *Cart) SetQuantity(productID string, quantity int) bool {
	i := c.Find(productID)
	if i < 0 {
		return false
	}
	if quantity <= 0 {
		c.Items = append(c.Items[:i], c.Items[i+1:]...)
		return true
	}
	c.Items[i].Quantity = quantity
	return true
}

func (c *Cart) Remove(productID string) {
	kept := c.Items[:0]
	for _, it := range c.Items {
		if it.ProductID != productID {
			kept = append(kept, it)
		}
	}
	c.Items = kept
}

func (c *Cart) Clear() {
	c.Items = []CartItem{}
}

func (c *Cart) ProductIDs() []string {
	ids := make([]string, 0, len(c.Items))
	for _, it := range c.Items {
		ids = append(ids, it.ProductID)
	}
	return ids
}

// Clone returns a deep copy so stores can hand out carts safely.
func (c *Cart) Clone() *Cart {
	out := *c
	out.Items = append([]CartItem(nil), c.Items...)
	return &out
}

// CartLine is a cart item joined with its product for display.
// A line whose product is gone or unavailable stays visible with
// Available=false and does not count toward totals.
type CartLine struct {
	CartItem
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Image     string `json:"image,omitempty"`
	Stock     int    `json:"stock"`
	Available bool   `json:"isAvailable"`
}

type CartView struct {
	UserID      string     `json:"userId"`
	Items       []CartLine `json:"items"`
	Totals      Totals     `json:"totals"`
	LastUpdated time.Time  `json:"lastUpdated,omitempty"`
}

// BuildCartView joins lines with products (keyed by id) and computes totals.
func BuildCartView(c *Cart, products map[string]Product) CartView {
	view := CartView{UserID: c.UserID, Items: make([]CartLine, 0, len(c.Items)), LastUpdated: c.LastUpdated}
	if len(c.Items) == 0 {
		view.Totals = EmptyTotals()
		return view
	}
	lines := make([]Line, 0, len(c.Items))
	for _, it := range c.Items {
		line := CartLine{CartItem: it}
		if p, ok := products[it.ProductID]; ok {
			line.Name = p.Name
			line.Price = p.Price
			line.Image = p.Image
			line.Stock = p.Stock
			line.Available = p.IsAvailable
		}
		view.Items = append(view.Items, line)
		lines = append(lines, Line{UnitPrice: line.Price, Quantity: it.Quantity, Available: line.Available})
	}
	view.Totals = ComputeTotals(lines)
	return view
}
