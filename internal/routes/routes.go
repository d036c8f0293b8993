package routes

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/paisabet/paisabet/internal/auth"
	"github.com/paisabet/paisabet/internal/bets"
	"github.com/paisabet/paisabet/internal/config"
	"github.com/paisabet/paisabet/internal/events"
	"github.com/paisabet/paisabet/internal/funding"
	"github.com/paisabet/paisabet/internal/identity"
	"github.com/paisabet/paisabet/internal/ledger"
	"github.com/paisabet/paisabet/internal/middleware"
	"github.com/paisabet/paisabet/internal/notification"
	"github.com/paisabet/paisabet/internal/payments"
	"github.com/paisabet/paisabet/internal/wallet"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg       config.Config
	DB        *pgxpool.Pool
	Cache     *redis.Client
	Publisher events.Publisher
	Logger    *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce DB/Redis presence outside of dev, even though main also checks.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))
	app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))

	// Health
	RegisterHealthRoutes(app, d)

	// Ledger backend
	var ledgerBackend ledger.Ledger
	if d.DB != nil {
		pg := ledger.NewPostgres(d.DB, d.Cfg.LedgerLockWait)
		if err := pg.EnsureSchema(context.Background()); err != nil {
			return fmt.Errorf("ledger schema: %w", err)
		}
		ledgerBackend = pg
	} else {
		ledgerBackend = ledger.NewInMemory()
	}

	// Identity store
	var identityRepo identity.Repository
	if d.DB != nil {
		pg := identity.NewPostgresRepository(d.DB)
		if err := pg.EnsureSchema(context.Background()); err != nil {
			return fmt.Errorf("identity schema: %w", err)
		}
		identityRepo = pg
	} else {
		identityRepo = identity.NewMemoryRepository()
	}

	// Payment provider gateway: real client with credentials, static stub
	// without (dev and tests).
	var gateway payments.Gateway
	if d.Cfg.ProviderAppID != "" && d.Cfg.ProviderSecret != "" {
		gateway = payments.NewClient(d.Cfg)
	} else {
		gateway = payments.StaticGateway{}
	}

	publisher := d.Publisher
	if publisher == nil {
		publisher = events.NewLogPublisher(d.Logger)
	}

	// Services and handlers
	notifier := notification.NewLoggerNotifier(d.Logger)
	identitySvc := identity.NewService(identityRepo)
	authSvc := auth.NewService(d.Cfg, identityRepo)
	authHandler := auth.NewHandler(identitySvc, authSvc)
	betsSvc := bets.NewService(ledgerBackend, publisher)
	betsHandler := bets.NewHandler(betsSvc)
	fundingSvc := funding.NewService(ledgerBackend, gateway, notifier, publisher, d.Cfg.Currency)
	fundingHandler := funding.NewHandler(fundingSvc, d.Cfg.WebhookSecret)
	walletSvc := wallet.NewService(ledgerBackend, publisher)
	walletHandler := wallet.NewHandler(walletSvc)

	// API routes
	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	// Public routes
	rateLimiter := middleware.LoginRateLimit(d.Cache, 5)
	RegisterAuthRoutes(api, authHandler, rateLimiter)
	RegisterWebhookRoutes(api, fundingHandler)

	// Protected routes
	jwtmw := middleware.JWTAuth(authSvc)
	protected := api.Group("", jwtmw)
	protected.Get("/me", func(c *fiber.Ctx) error {
		uid, _ := c.Locals("user_id").(string)
		if uid == "" {
			return c.SendStatus(http.StatusUnauthorized)
		}
		user, err := identityRepo.FindByID(c.UserContext(), uid)
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "user not found")
		}
		return c.JSON(fiber.Map{
			"user_id":    user.ID,
			"phone":      user.Phone,
			"role":       user.Role,
			"created_at": user.CreatedAt,
			"last_login": user.LastLogin,
		})
	})
	RegisterSessionRoutes(protected, authHandler)
	RegisterWalletRoutes(protected, walletHandler)
	RegisterBetRoutes(protected, betsHandler)
	RegisterFundingRoutes(protected, fundingHandler)

	return nil
}
