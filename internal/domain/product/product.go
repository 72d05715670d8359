package product

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("product not found")

type Product struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	Price     float64   `json:"price"`
	Quantity  int       `json:"quantity"`
	CreatedBy string    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
}

// ListItem is the public catalog shape: no ids, no audit fields.
type ListItem struct {
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

func (p Product) ListItem() ListItem {
	return ListItem{
		Name:     p.Name,
		Category: p.Category,
		Price:    p.Price,
		Quantity: p.Quantity,
	}
}

// Clients send price/quantity either as JSON numbers or as numeric strings
// ("9.99", "5"). Decimal and Count accept both and reject anything else at
// bind time, so a bad value is a 400 with field details, not a 500.
//
// Price and Quantity are pointers because "required" on a value type
// treats 0 as missing, and a free item or empty stock is legitimate.
type AddProductRequest struct {
	Name     string   `json:"name" binding:"required,min=1,max=200"`
	Category string   `json:"category" binding:"required,min=1,max=120"`
	Price    *Decimal `json:"price" binding:"required"`
	Quantity *Count   `json:"quantity" binding:"required"`
}
