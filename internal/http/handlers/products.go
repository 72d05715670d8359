package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cartline/cartline/internal/catalog"
	"github.com/cartline/cartline/internal/config"
	"github.com/cartline/cartline/internal/domain/product"
	"github.com/cartline/cartline/internal/domain/user"
	"github.com/cartline/cartline/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

type ProductReader interface {
	List(ctx context.Context) ([]product.Product, error)
}

type ProductWriter interface {
	Create(ctx context.Context, req product.AddProductRequest, createdBy string) (product.Product, error)
}

type ProductsHandler struct {
	products ProductReader
	writer   ProductWriter
	users    UserReader
	cache    *catalog.Cache // optional
}

func NewProductsHandler(products ProductReader, writer ProductWriter, users UserReader, cache *catalog.Cache) *ProductsHandler {
	return &ProductsHandler{
		products: products,
		writer:   writer,
		users:    users,
		cache:    cache,
	}
}

// ListProducts is public and unpaginated; the whole catalog is the
// response. A short-TTL cache sits in front of the database.
func (h *ProductsHandler) ListProducts(ctx *gin.Context) {
	rctx := ctx.Request.Context()

	if items, ok := h.cache.Get(rctx); ok {
		ctx.JSON(http.StatusOK, items)
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	all, err := h.products.List(cctx)

	if err != nil {
		RespondInternal(ctx, "Could not list products")
		return
	}

	items := make([]product.ListItem, 0, len(all))

	for _, p := range all {
		items = append(items, p.ListItem())
	}

	h.cache.Set(rctx, items)

	ctx.JSON(http.StatusOK, items)
}

// AddProduct resolves the caller from the token and authorizes against the
// STORED role, not the token claim, so a role change takes effect without
// waiting out token expiry. Check order matters: unknown user is 404,
// wrong role is 403, bad payload is 400.
func (h *ProductsHandler) AddProduct(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok || userID == "" {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	caller, err := h.users.GetByID(cctx, userID)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}

		RespondInternal(ctx, "Could not add product")
		return
	}

	switch caller.Role {
	case user.RoleAdministrator:
		// allowed
	case user.RoleCustomer:
		RespondForbidden(ctx, "Administrator role required")
		return
	default:
		// unknown stored role is never trusted
		RespondForbidden(ctx, "Administrator role required")
		return
	}

	var req product.AddProductRequest

	if !BindJSON(ctx, &req) {
		return
	}

	_, err = h.writer.Create(cctx, req, caller.ID)

	if err != nil {
		RespondInternal(ctx, "Could not add product")
		return
	}

	h.cache.Invalidate(ctx.Request.Context())

	ctx.JSON(http.StatusCreated, gin.H{
		"message": "Product added successfully",
	})
}
