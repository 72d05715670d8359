package order

import (
	"errors"
	"time"

	"github.com/cartline/cartline/internal/domain/product"
	"github.com/google/uuid"
)

var ErrNotFound = errors.New("order not found")

// LineItem is a snapshot of what the customer bought: the wire format
// carries no product ids, so items are stored verbatim.
type LineItem struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

func (li LineItem) Subtotal() float64 {
	return li.Price * float64(li.Quantity)
}

type Order struct {
	ID          string     `json:"id"`
	UserID      string     `json:"userId"`
	Items       []LineItem `json:"products"`
	TotalAmount float64    `json:"totalAmount"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// Price and Quantity are pointers so that a zero value still binds: the
// check is presence, not non-zero.
type LineItemRequest struct {
	Name     string           `json:"name" binding:"required"`
	Price    *product.Decimal `json:"price" binding:"required"`
	Quantity *product.Count   `json:"quantity" binding:"required"`
}

// TotalAmount is accepted for wire compatibility but never trusted: the
// stored total is recomputed from the line items.
type CreateOrderRequest struct {
	Products    []LineItemRequest `json:"products" binding:"required,min=1,dive"`
	TotalAmount product.Decimal   `json:"totalAmount"`
}

func (r CreateOrderRequest) Items() []LineItem {
	items := make([]LineItem, 0, len(r.Products))

	for _, p := range r.Products {
		items = append(items, LineItem{
			Name:     p.Name,
			Price:    p.Price.Float64(),
			Quantity: p.Quantity.Int(),
		})
	}

	return items
}

// Total is the server-side recomputation of the order total.
func Total(items []LineItem) float64 {
	var sum float64

	for _, it := range items {
		sum += it.Subtotal()
	}

	return sum
}

func New(userID string, items []LineItem) Order {
	return Order{
		ID:          uuid.NewString(),
		UserID:      userID,
		Items:       items,
		TotalAmount: Total(items),
		CreatedAt:   time.Now().UTC(),
	}
}
