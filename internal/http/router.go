package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/cartline/cartline/internal/auth"
	"github.com/cartline/cartline/internal/catalog"
	"github.com/cartline/cartline/internal/config"
	"github.com/cartline/cartline/internal/domain/user"
	"github.com/cartline/cartline/internal/http/handlers"
	"github.com/cartline/cartline/internal/http/middlewares"
	"github.com/cartline/cartline/internal/invoice"
	"github.com/cartline/cartline/internal/observability"
	"github.com/cartline/cartline/internal/repo/postgres"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

func NewRouter(log *slog.Logger, pool *pgxpool.Pool, rdb *redis.Client, cfg config.Config) (*gin.Engine, error) {
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// metrics registry owned by the router so tests can build routers freely
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	prom := observability.NewProm(reg)

	// middleware
	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(cfg.AllowedOrigins))
	r.Use(middlewares.MaxBodyBytes(1 << 20))
	r.Use(otelgin.Middleware("cartline"))
	r.Use(prom.GinHandleMiddleware())

	// health
	ping := func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		if pool != nil {
			if err := pool.Ping(ctx); err != nil {
				return err
			}
		}

		if rdb != nil {
			return catalog.Ping(ctx, rdb)
		}

		return nil
	}

	h := handlers.NewHealthHandler(ping)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	// wire up repositories
	usersRepo := postgres.NewUsersRepo(pool).WithMetrics(prom)
	productsRepo := postgres.NewProductsRepo(pool).WithMetrics(prom)
	ordersRepo := postgres.NewOrdersRepo(pool).WithMetrics(prom)
	refreshRepo := postgres.NewRefreshTokensRepo(pool).WithMetrics(prom)

	jwtManager := auth.NewManager(cfg.JWTSecret, cfg.AccessTTL, cfg.RefreshTTL)
	authMw := middlewares.NewAuthMiddleware(jwtManager)

	cache := catalog.NewCache(rdb, cfg.CatalogCacheTTL)

	renderer, err := invoice.NewRenderer()

	if err != nil {
		return nil, err
	}

	converter := invoice.NewWkhtmltopdfConverter()

	// handlers
	authHandler := handlers.NewAuthHandler(usersRepo, usersRepo, jwtManager, refreshRepo, cfg)
	productsHandler := handlers.NewProductsHandler(productsRepo, productsRepo, usersRepo, cache)
	ordersHandler := handlers.NewOrdersHandler(ordersRepo, usersRepo, renderer, converter, prom)

	publicLimit := middlewares.NewRateLimiter(cfg.RateLimit, cfg.RateLimitWindow)
	authedLimit := middlewares.NewRateLimiter(cfg.RateLimit, cfg.RateLimitWindow)

	// only routes that read a JSON body get the content-type gate; the
	// cookie-driven session routes send none
	requireJSON := middlewares.RequireJSON()

	// public surface
	r.POST("/register", requireJSON, publicLimit.RateLimiterMiddleware(middlewares.KeyByIP), authHandler.Register)
	r.POST("/login", requireJSON, publicLimit.RateLimiterMiddleware(middlewares.KeyByIP), authHandler.Login)
	r.GET("/products", productsHandler.ListProducts)

	// session maintenance (cookie-driven, no bearer token required)
	r.POST("/auth/refresh", authHandler.Refresh)
	r.POST("/auth/logout", authHandler.Logout)

	// authenticated surface
	authed := r.Group("/", authMw.RequireAuth(), authedLimit.RateLimiterMiddleware(middlewares.KeyByUserOrIP))
	authed.POST("/create_order", requireJSON, ordersHandler.CreateOrder)
	authed.POST("/add_product", requireJSON, productsHandler.AddProduct)
	authed.GET("/orders", ordersHandler.ListOrders)

	admin := authed.Group("/admin", authMw.RequireRole(user.RoleAdministrator))
	admin.GET("/orders", ordersHandler.ListAllOrders)

	log.Info("router wired", "routes", len(r.Routes()))

	return r, nil
}
