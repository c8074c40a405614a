package main

import (
	"database/sql"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	jwtware "github.com/gofiber/jwt/v2"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"
	"github.com/redis/go-redis/v9"

	"github.com/sirichaiw/supermarket-backend/internal/address"
	"github.com/sirichaiw/supermarket-backend/internal/cart"
	"github.com/sirichaiw/supermarket-backend/internal/category"
	"github.com/sirichaiw/supermarket-backend/internal/checkout"
	"github.com/sirichaiw/supermarket-backend/internal/config"
	"github.com/sirichaiw/supermarket-backend/internal/order"
	"github.com/sirichaiw/supermarket-backend/internal/payment"
	"github.com/sirichaiw/supermarket-backend/internal/product"
	"github.com/sirichaiw/supermarket-backend/internal/user"
	"github.com/sirichaiw/supermarket-backend/internal/voucher"
	"github.com/sirichaiw/supermarket-backend/migrations"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	db := mustOpenDB(cfg.DatabaseURL, logger)
	defer db.Close()

	if err := migrate(db); err != nil {
		logger.Error("migrations failed", "error", err)
		os.Exit(1)
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()

	app := fiber.New()
	setupCORS(app)
	app.Use(requestLogger(logger))

	// repositories and services
	userService := user.NewService(user.NewPostgresRepository(db))
	productService := product.NewService(product.NewPostgresRepository(db))
	cartService := cart.NewService(cart.NewPostgresRepository(db), productService)
	voucherService := voucher.NewService(voucher.NewPostgresRepository(db))
	orderService := order.NewService(order.NewPostgresRepository(db))
	categoryService := category.NewService(category.NewPostgresRepository(db))
	addressService := address.NewService(address.NewPostgresRepository(db))

	// payment plumbing
	gateways := map[string]payment.Gateway{
		payment.GatewayPayPal:    payment.NewPayPal(cfg.PayPal),
		payment.GatewayStripe:    payment.NewStripe(cfg.Stripe),
		payment.GatewayAirwallex: payment.NewAirwallex(cfg.Airwallex),
		payment.GatewayNETSQR:    payment.NewNETSQR(cfg.NETS),
	}
	pendingStore := payment.NewPostgresPendingStore(db)
	sessionStore := checkout.NewRedisStore(rdb)
	engine := checkout.NewEngine(sessionStore, pendingStore, gateways, orderService, cartService, logger)

	// handlers
	userHandler := user.NewHandler(userService, cfg.JWTSecret)
	productHandler := product.NewHandler(productService)
	cartHandler := cart.NewHandler(cartService)
	orderHandler := order.NewHandler(orderService)
	categoryHandler := category.NewHandler(categoryService)
	addressHandler := address.NewHandler(addressService)
	checkoutHandler := checkout.NewHandler(engine, sessionStore, pendingStore,
		cartService, voucherService, gateways, cfg.PublicBaseURL, logger)

	// public routes before the JWT gate
	userHandler.RegisterPublicRoutes(app)
	categoryHandler.RegisterPublicRoutes(app)
	productHandler.RegisterPublicRoutes(app)
	checkoutHandler.RegisterPublicRoutes(app)

	app.Use(jwtware.New(jwtware.Config{
		SigningKey: []byte(cfg.JWTSecret),
		Filter: func(c *fiber.Ctx) bool {
			// catalog browsing stays open; everything else needs a token
			p := c.Path()
			if c.Method() != fiber.MethodGet {
				return false
			}
			return strings.HasPrefix(p, "/api/v1/products") ||
				strings.HasPrefix(p, "/api/v1/product/") ||
				strings.HasPrefix(p, "/api/v1/categories")
		},
	}))

	userHandler.RegisterProtectedRoutes(app)
	addressHandler.RegisterProtectedRoutes(app)
	cartHandler.RegisterProtectedRoutes(app)
	orderHandler.RegisterProtectedRoutes(app)
	checkoutHandler.RegisterProtectedRoutes(app)

	logger.Info("listening", "addr", cfg.Addr)
	if err := app.Listen(cfg.Addr); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func setupCORS(app *fiber.App) {
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,HEAD,PUT,DELETE,PATCH",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
}

func requestLogger(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		logger.Info("request",
			"method", c.Method(),
			"path", c.Path(),
			"status", c.Response().StatusCode(),
			"duration", time.Since(start).String())
		return err
	}
}

func mustOpenDB(url string, logger *slog.Logger) *sql.DB {
	db, err := sql.Open("pgx", url)
	if err != nil {
		logger.Error("opening database failed", "error", err)
		os.Exit(1)
	}
	if err := db.Ping(); err != nil {
		logger.Error("database unreachable", "error", err)
		os.Exit(1)
	}
	return db
}

func migrate(db *sql.DB) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.Up(db, ".")
}
