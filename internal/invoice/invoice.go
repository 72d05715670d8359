package invoice

import (
	"time"

	"github.com/cartline/cartline/internal/domain/order"
)

// Invoice is everything the rendered document needs: customer identity and
// the order's line-item snapshot. Subtotals are computed at render time
// from price and quantity, never taken from the request.
type Invoice struct {
	OrderID       string
	IssuedAt      time.Time
	CustomerName  string
	CustomerEmail string
	Items         []order.LineItem
	Total         float64
}

func ForOrder(o order.Order, customerName, customerEmail string) Invoice {
	return Invoice{
		OrderID:       o.ID,
		IssuedAt:      time.Now().UTC(),
		CustomerName:  customerName,
		CustomerEmail: customerEmail,
		Items:         o.Items,
		Total:         o.TotalAmount,
	}
}

// Filename is the attachment name the customer downloads.
func (inv Invoice) Filename() string {
	return "invoice_" + inv.OrderID + ".pdf"
}
