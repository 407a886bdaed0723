package routes

import (
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/dialauth/dialauth/internal/auth"
	"github.com/dialauth/dialauth/internal/config"
	"github.com/dialauth/dialauth/internal/identity"
	"github.com/dialauth/dialauth/internal/middleware"
	"github.com/dialauth/dialauth/internal/notification"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
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

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	RegisterHealthRoutes(app, d)

	var repo identity.Repository
	if d.DB != nil {
		repo = identity.NewPostgresRepository(d.DB)
	} else {
		repo = identity.NewMemoryRepository()
	}

	issuer := auth.NewIssuer(d.Cfg.JWTSecret, d.Cfg.AccessTokenTTL)
	svc := identity.NewService(repo, issuer, buildNotifier(d), d.Logger, d.Cfg.OTPTTL, d.Cfg.ResendCooldown)
	handler := identity.NewHandler(svc, d.Cfg.ExposeOTP)

	guard := middleware.BearerAuth(issuer)
	limiter := middleware.PhoneRateLimit(d.Cache, "auth", 5)
	RegisterAuthRoutes(app, handler, guard, limiter)

	return nil
}

func buildNotifier(d Deps) notification.Notifier {
	if d.Cfg.TwilioAccountSID != "" && d.Cfg.TwilioAuthToken != "" && d.Cfg.TwilioFromNumber != "" {
		return notification.NewTwilioNotifier(d.Cfg.TwilioAccountSID, d.Cfg.TwilioAuthToken, d.Cfg.TwilioFromNumber)
	}
	return notification.NewLoggerNotifier(d.Logger)
}
