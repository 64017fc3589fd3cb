package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/forkline/forkline-backend/api/controllers"
	"github.com/forkline/forkline-backend/api/middleware"
	"github.com/forkline/forkline-backend/internal/accounts"
	"github.com/forkline/forkline-backend/internal/cart"
	checkoutsvc "github.com/forkline/forkline-backend/internal/checkout"
	"github.com/forkline/forkline-backend/internal/notifications"
	"github.com/forkline/forkline-backend/internal/orders"
	"github.com/forkline/forkline-backend/internal/products"
	"github.com/forkline/forkline-backend/internal/restaurants"
	"github.com/forkline/forkline-backend/internal/suppliers"
	"github.com/forkline/forkline-backend/pkg/auth/session"
	"github.com/forkline/forkline-backend/pkg/config"
	"github.com/forkline/forkline-backend/pkg/db"
	"github.com/forkline/forkline-backend/pkg/logger"
	"github.com/forkline/forkline-backend/pkg/redis"
)

// Services bundles everything the router mounts.
type Services struct {
	Accounts      accounts.Service
	Suppliers     suppliers.Service
	Restaurants   restaurants.Service
	Products      products.Service
	Carts         cart.Service
	Orders        orders.Service
	Checkout      checkoutsvc.Service
	Notifications notifications.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	sessionChecker session.AccessSessionChecker,
	registry *prometheus.Registry,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).Post("/login", controllers.AuthLogin(svcs.Accounts, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).Post("/register", controllers.AuthRegister(svcs.Accounts, logg))
		r.Post("/refresh", controllers.AuthRefresh(svcs.Accounts, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessionChecker, logg))

		r.Post("/auth/logout", controllers.AuthLogout(svcs.Accounts, logg))
		r.Get("/auth/me", controllers.AuthMe(svcs.Accounts, logg))

		r.Route("/suppliers", func(r chi.Router) {
			r.Post("/", controllers.SupplierCreate(svcs.Suppliers, logg))
			r.Get("/", controllers.SupplierList(svcs.Suppliers, logg))
			r.Get("/{id}", controllers.SupplierGet(svcs.Suppliers, logg))
			r.Patch("/{id}", controllers.SupplierUpdate(svcs.Suppliers, logg))
			r.Delete("/{id}", controllers.SupplierDelete(svcs.Suppliers, logg))
			r.Get("/{id}/members", controllers.SupplierListMembers(svcs.Suppliers, logg))
			r.Post("/{id}/members", controllers.SupplierAddMember(svcs.Suppliers, logg))
			r.Delete("/{id}/members/{accountID}", controllers.SupplierRemoveMember(svcs.Suppliers, logg))
			r.Get("/{id}/orders", controllers.OrderListForSupplier(svcs.Orders, logg))
			r.Get("/{id}/notifications", controllers.NotificationListForSupplier(svcs.Notifications, logg))
		})

		r.Route("/restaurants", func(r chi.Router) {
			r.Post("/", controllers.RestaurantCreate(svcs.Restaurants, logg))
			r.Get("/", controllers.RestaurantList(svcs.Restaurants, logg))
			r.Get("/{id}", controllers.RestaurantGet(svcs.Restaurants, logg))
			r.Patch("/{id}", controllers.RestaurantUpdate(svcs.Restaurants, logg))
			r.Delete("/{id}", controllers.RestaurantDelete(svcs.Restaurants, logg))
			r.Get("/{id}/members", controllers.RestaurantListMembers(svcs.Restaurants, logg))
			r.Post("/{id}/members", controllers.RestaurantAddMember(svcs.Restaurants, logg))
			r.Delete("/{id}/members/{accountID}", controllers.RestaurantRemoveMember(svcs.Restaurants, logg))
			r.Get("/{id}/orders", controllers.OrderListForRestaurant(svcs.Orders, logg))
			r.Get("/{id}/notifications", controllers.NotificationListForRestaurant(svcs.Notifications, logg))
		})

		r.Route("/products", func(r chi.Router) {
			r.Post("/", controllers.ProductCreate(svcs.Products, logg))
			r.Get("/", controllers.ProductSearch(svcs.Products, logg))
			r.Get("/{id}", controllers.ProductGet(svcs.Products, logg))
			r.Patch("/{id}", controllers.ProductUpdate(svcs.Products, logg))
			r.Delete("/{id}", controllers.ProductDelete(svcs.Products, logg))
		})

		r.Route("/carts", func(r chi.Router) {
			r.Post("/", controllers.CartCreate(svcs.Carts, logg))
			r.Get("/{id}", controllers.CartGet(svcs.Carts, logg))
			r.Post("/{id}/items", controllers.CartAddItem(svcs.Carts, logg))
			r.Patch("/{id}/items/{itemID}", controllers.CartUpdateItem(svcs.Carts, logg))
			r.Delete("/{id}/items/{itemID}", controllers.CartRemoveItem(svcs.Carts, logg))
		})

		r.Post("/checkout", controllers.Checkout(svcs.Checkout, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/{id}", controllers.OrderGet(svcs.Orders, logg))
			r.Post("/{id}/confirm", controllers.OrderConfirm(svcs.Orders, logg))
			r.Post("/{id}/deliver", controllers.OrderDeliver(svcs.Orders, logg))
			r.Post("/{id}/cancel", controllers.OrderCancel(svcs.Orders, logg))
			r.Get("/{id}/receipt", controllers.OrderReceipt(svcs.Orders, logg))
			r.Get("/{id}/invoice", controllers.OrderInvoice(svcs.Orders, logg))
		})

		r.Post("/notifications/{id}/read", controllers.NotificationMarkRead(svcs.Notifications, logg))
	})

	return r
}
