package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lafabrik/boutique-backend/api/controllers"
	"github.com/lafabrik/boutique-backend/api/middleware"
	authsvc "github.com/lafabrik/boutique-backend/internal/auth"
	checkoutsvc "github.com/lafabrik/boutique-backend/internal/checkout"
	ordersvc "github.com/lafabrik/boutique-backend/internal/orders"
	pickupsvc "github.com/lafabrik/boutique-backend/internal/pickup"
	"github.com/lafabrik/boutique-backend/internal/webhooks"
	"github.com/lafabrik/boutique-backend/pkg/config"
	"github.com/lafabrik/boutique-backend/pkg/db"
	"github.com/lafabrik/boutique-backend/pkg/logger"
	"github.com/lafabrik/boutique-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	authService authsvc.Service,
	checkoutService checkoutsvc.Service,
	pickupService pickupsvc.Service,
	ordersService ordersvc.Service,
	webhookService webhooks.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	checkoutPolicy := middleware.NewRateLimitPolicy(
		"checkout",
		cfg.RateLimit.CheckoutWindow,
		cfg.RateLimit.CheckoutIPLimit,
	)
	loginPolicy := middleware.NewRateLimitPolicy(
		"login",
		cfg.RateLimit.LoginWindow,
		cfg.RateLimit.LoginIPLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, dbP, redisClient, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/catalogue", controllers.ListProducts())
		r.Post("/cart/quote", controllers.QuoteCart(logg))

		r.With(middleware.RateLimit(checkoutPolicy, redisClient, logg)).
			Post("/checkout", controllers.BeginCheckout(checkoutService, logg))

		r.Post("/webhooks/stripe", controllers.StripeWebhook(webhookService, cfg.Stripe.Secret, logg))
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.With(middleware.RateLimit(loginPolicy, redisClient, logg)).
			Post("/auth/login", controllers.AdminLogin(authService, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.StaffAuth(cfg.JWT, cfg.Staff, logg))

			r.Get("/orders", controllers.AdminListOrders(ordersService, logg))
			r.Get("/orders/{orderID}", controllers.AdminGetOrder(ordersService, logg))
			r.Post("/orders/{orderID}/mark-shipped", controllers.AdminMarkShipped(ordersService, logg))
			r.Post("/orders/{orderID}/resend-email", controllers.AdminResendEmail(ordersService, logg))
			r.Post("/pickup/redeem", controllers.AdminRedeemPickup(pickupService, logg))
		})
	})

	return r
}
