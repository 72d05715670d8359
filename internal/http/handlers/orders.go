package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cartline/cartline/internal/config"
	"github.com/cartline/cartline/internal/domain/order"
	"github.com/cartline/cartline/internal/domain/user"
	"github.com/cartline/cartline/internal/http/middlewares"
	"github.com/cartline/cartline/internal/invoice"
	"github.com/cartline/cartline/internal/observability"
	"github.com/gin-gonic/gin"
)

type OrderStore interface {
	Create(ctx context.Context, o order.Order) (order.Order, error)
	ListByUser(ctx context.Context, userID string) ([]order.Order, error)
	ListAll(ctx context.Context) ([]order.Order, error)
}

type OrdersHandler struct {
	orders    OrderStore
	users     UserReader
	renderer  *invoice.Renderer
	converter invoice.Converter
	metrics   *observability.Prom // optional
}

func NewOrdersHandler(orders OrderStore, users UserReader, renderer *invoice.Renderer, converter invoice.Converter, metrics *observability.Prom) *OrdersHandler {
	return &OrdersHandler{
		orders:    orders,
		users:     users,
		renderer:  renderer,
		converter: converter,
		metrics:   metrics,
	}
}

// CreateOrder persists the order, then renders and streams the PDF invoice
// in the same request. The order row stays even if invoicing fails
// afterwards; the client sees a 500 carrying the underlying error and can
// retry the download path out of band. The temp PDF is removed on every
// exit, success or not.
func (h *OrdersHandler) CreateOrder(ctx *gin.Context) {
	var req order.CreateOrderRequest

	if !BindJSON(ctx, &req) {
		return
	}

	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok || userID == "" {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	cctx, cancel := config.WithTimeout(30 * time.Second)
	defer cancel()

	caller, err := h.users.GetByID(cctx, userID)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}

		RespondInternal(ctx, err.Error())
		return
	}

	// total is recomputed from the line items, never read from the request
	o := order.New(caller.ID, req.Items())

	o, err = h.orders.Create(cctx, o)

	if err != nil {
		RespondInternal(ctx, err.Error())
		return
	}

	inv := invoice.ForOrder(o, caller.Username, caller.Email)

	var html string

	err = h.observeStage("render", func() error {
		var rerr error
		html, rerr = h.renderer.Render(inv)
		return rerr
	})

	if err != nil {
		h.countInvoice("error")
		RespondInternal(ctx, err.Error())
		return
	}

	var path string
	var cleanup func()

	err = h.observeStage("convert", func() error {
		var cerr error
		path, cleanup, cerr = invoice.WritePDF(cctx, h.converter, html)
		return cerr
	})

	if err != nil {
		h.countInvoice("error")
		RespondInternal(ctx, err.Error())
		return
	}

	defer cleanup()

	h.countInvoice("ok")

	ctx.FileAttachment(path, inv.Filename())
}

// ListOrders returns the caller's own order history.
func (h *OrdersHandler) ListOrders(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok || userID == "" {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	list, err := h.orders.ListByUser(cctx, userID)

	if err != nil {
		RespondInternal(ctx, "Could not list orders")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"items": list,
		"count": len(list),
	})
}

// ListAllOrders is the administrator's view across every customer.
func (h *OrdersHandler) ListAllOrders(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	list, err := h.orders.ListAll(cctx)

	if err != nil {
		RespondInternal(ctx, "Could not list orders")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"items": list,
		"count": len(list),
	})
}

func (h *OrdersHandler) observeStage(stage string, fn func() error) error {
	if h.metrics == nil {
		return fn()
	}

	return h.metrics.ObserveInvoiceStage(stage, fn)
}

func (h *OrdersHandler) countInvoice(result string) {
	if h.metrics == nil {
		return
	}

	h.metrics.InvoicesTotal.WithLabelValues(result).Inc()
}
