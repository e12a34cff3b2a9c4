package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bazaarly/bazaarly-backend/api/controllers"
	"github.com/bazaarly/bazaarly-backend/api/middleware"
	"github.com/bazaarly/bazaarly-backend/internal/auth"
	"github.com/bazaarly/bazaarly-backend/internal/cart"
	"github.com/bazaarly/bazaarly-backend/internal/catalog"
	"github.com/bazaarly/bazaarly-backend/internal/offers"
	"github.com/bazaarly/bazaarly-backend/internal/orders"
	"github.com/bazaarly/bazaarly-backend/internal/ratings"
	"github.com/bazaarly/bazaarly-backend/internal/users"
	"github.com/bazaarly/bazaarly-backend/pkg/config"
	"github.com/bazaarly/bazaarly-backend/pkg/db"
	"github.com/bazaarly/bazaarly-backend/pkg/enums"
	"github.com/bazaarly/bazaarly-backend/pkg/logger"
	"github.com/bazaarly/bazaarly-backend/pkg/metrics"
	"github.com/bazaarly/bazaarly-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	promRegistry *prometheus.Registry,
	httpMetrics *metrics.HTTPMetrics,
	authService auth.Service,
	usersService users.Service,
	catalogService catalog.Service,
	cartService cart.Service,
	ordersService orders.Service,
	offersService offers.Service,
	ratingsService ratings.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(httpMetrics),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	if promRegistry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(registerPolicy, redisClient, logg)).Post("/register", controllers.AuthRegister(authService, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).Post("/login", controllers.AuthLogin(authService, logg))
		r.Post("/refresh", controllers.AuthRefresh(authService, logg))
		r.Post("/verify-email", controllers.AuthVerifyEmail(authService, logg))
		r.Post("/forgot-password", controllers.AuthForgotPassword(authService, logg))
		r.Post("/reset-password", controllers.AuthResetPassword(authService, logg))
		r.Post("/confirm-account-deletion", controllers.AuthConfirmAccountDeletion(authService, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Post("/logout", controllers.AuthLogout(authService, logg))
			r.Post("/change-password", controllers.AuthChangePassword(authService, logg))
			r.Post("/resend-verification", controllers.AuthResendVerification(authService, logg))
			r.Post("/request-account-deletion", controllers.AuthRequestAccountDeletion(authService, logg))
		})
	})

	// Browsing is open; buying and selling require a session.
	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", controllers.ProductList(catalogService, logg))
		r.Get("/{productId}", controllers.ProductDetail(catalogService, logg))
		r.Get("/{productId}/ratings", controllers.ProductRatings(ratingsService, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.With(middleware.RequireNonCustomer(logg)).Post("/", controllers.ProductCreate(catalogService, logg))
			r.With(middleware.RequireNonCustomer(logg)).Patch("/{productId}", controllers.ProductUpdate(catalogService, logg))
			r.With(middleware.RequireNonCustomer(logg)).Delete("/{productId}", controllers.ProductDelete(catalogService, logg))

			r.With(middleware.RequireRole(logg, enums.UserRoleCustomer)).Post("/{productId}/ratings", controllers.RatingCreate(ratingsService, logg))
			r.With(middleware.RequireRole(logg, enums.UserRoleCustomer)).Patch("/{productId}/ratings", controllers.RatingUpdate(ratingsService, logg))
			r.With(middleware.RequireRole(logg, enums.UserRoleCustomer)).Delete("/{productId}/ratings", controllers.RatingDelete(ratingsService, logg))
		})
	})

	r.Route("/api/v1/offers", func(r chi.Router) {
		r.Get("/", controllers.OfferList(offersService, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Use(middleware.RequireNonCustomer(logg))
			r.Post("/", controllers.OfferCreate(offersService, logg))
			r.Patch("/{offerId}", controllers.OfferUpdate(offersService, logg))
			r.Delete("/{offerId}", controllers.OfferDelete(offersService, logg))
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/users/me", func(r chi.Router) {
			r.Get("/", controllers.UserMe(usersService, logg))
			r.Patch("/", controllers.UserUpdateAccount(usersService, logg))
			r.Put("/avatar", controllers.UserUpdateAvatar(usersService, logg))
			r.Put("/address", controllers.UserUpdateAddress(usersService, logg))
			r.Get("/ratings", controllers.MyRatings(ratingsService, logg))
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(cartService, logg))
			r.Delete("/", controllers.CartClear(cartService, logg))
			r.Post("/items", controllers.CartAddItem(cartService, logg))
			r.Patch("/items/{productId}", controllers.CartChangeQuantity(cartService, logg))
			r.Delete("/items/{productId}", controllers.CartRemoveItem(cartService, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", controllers.OrderCreate(ordersService, logg))
			r.Get("/", controllers.OrderList(ordersService, logg))
			r.Get("/{orderId}", controllers.OrderDetail(ordersService, logg))
			r.Post("/{orderId}/cancel", controllers.OrderCancel(ordersService, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.With(middleware.RequireRole(logg, enums.UserRoleAdmin)).Get("/orders", controllers.AdminOrderList(ordersService, logg))
		r.With(middleware.RequireNonCustomer(logg)).Patch("/orders/{orderId}/status", controllers.AdminOrderStatus(ordersService, logg))
	})

	return r
}
