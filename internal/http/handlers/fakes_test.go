package handlers_test

import (
	"context"
	"errors"

	"github.com/cartline/cartline/internal/auth"
	"github.com/cartline/cartline/internal/domain/order"
	"github.com/cartline/cartline/internal/domain/product"
	"github.com/cartline/cartline/internal/domain/user"
	"github.com/gin-gonic/gin"
)

// Make sure gin does not spam the console during tests

func init() {
	gin.SetMode(gin.TestMode)
}

// small helper which returns a gin engine to mount handlers per test

func setupRouter(method, path string, h ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()

	r.Handle(method, path, h...)

	return r
}

// Fake implementations of the handler-side repo interfaces

type fakeUsersRepo struct {
	createFn     func(ctx context.Context, username, email, passwordHash string, role user.Role) (user.User, error)
	getByEmailFn func(ctx context.Context, email string) (user.User, error)
	getByIDFn    func(ctx context.Context, id string) (user.User, error)
}

func (f *fakeUsersRepo) Create(ctx context.Context, username, email, passwordHash string, role user.Role) (user.User, error) {
	if f.createFn != nil {
		return f.createFn(ctx, username, email, passwordHash, role)
	}

	return user.User{}, nil
}

func (f *fakeUsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	if f.getByEmailFn != nil {
		return f.getByEmailFn(ctx, email)
	}

	return user.User{}, user.ErrNotFound
}

func (f *fakeUsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	if f.getByIDFn != nil {
		return f.getByIDFn(ctx, id)
	}

	return user.User{}, user.ErrNotFound
}

type fakeProductsRepo struct {
	listFn   func(ctx context.Context) ([]product.Product, error)
	createFn func(ctx context.Context, req product.AddProductRequest, createdBy string) (product.Product, error)

	created int // number of Create calls, to assert "no side effect"
}

func (f *fakeProductsRepo) List(ctx context.Context) ([]product.Product, error) {
	if f.listFn != nil {
		return f.listFn(ctx)
	}

	return []product.Product{}, nil
}

func (f *fakeProductsRepo) Create(ctx context.Context, req product.AddProductRequest, createdBy string) (product.Product, error) {
	f.created++

	if f.createFn != nil {
		return f.createFn(ctx, req, createdBy)
	}

	return product.Product{}, nil
}

type fakeOrdersRepo struct {
	createFn func(ctx context.Context, o order.Order) (order.Order, error)
	byUserFn func(ctx context.Context, userID string) ([]order.Order, error)
	allFn    func(ctx context.Context) ([]order.Order, error)

	created []order.Order
}

func (f *fakeOrdersRepo) Create(ctx context.Context, o order.Order) (order.Order, error) {
	f.created = append(f.created, o)

	if f.createFn != nil {
		return f.createFn(ctx, o)
	}

	return o, nil
}

func (f *fakeOrdersRepo) ListByUser(ctx context.Context, userID string) ([]order.Order, error) {
	if f.byUserFn != nil {
		return f.byUserFn(ctx, userID)
	}

	return []order.Order{}, nil
}

func (f *fakeOrdersRepo) ListAll(ctx context.Context) ([]order.Order, error) {
	if f.allFn != nil {
		return f.allFn(ctx)
	}

	return []order.Order{}, nil
}

// fakeVerifier satisfies middlewares.TokenVerifier so authed routes can be
// exercised without minting real tokens.
type fakeVerifier struct {
	claims *auth.Claims
	err    error
}

func (f *fakeVerifier) VerifyAccessToken(token string) (*auth.Claims, error) {
	if f.err != nil {
		return nil, f.err
	}

	if f.claims == nil {
		return nil, errors.New("no claims configured")
	}

	return f.claims, nil
}
