package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gildedlane/marketplace-backend/api/controllers"
	"github.com/gildedlane/marketplace-backend/api/middleware"
	"github.com/gildedlane/marketplace-backend/internal/cart"
	"github.com/gildedlane/marketplace-backend/internal/catalog"
	"github.com/gildedlane/marketplace-backend/internal/orders"
	"github.com/gildedlane/marketplace-backend/internal/reviews"
	"github.com/gildedlane/marketplace-backend/internal/wishlist"
	"github.com/gildedlane/marketplace-backend/pkg/auth/session"
	"github.com/gildedlane/marketplace-backend/pkg/config"
	"github.com/gildedlane/marketplace-backend/pkg/db"
	"github.com/gildedlane/marketplace-backend/pkg/enums"
	"github.com/gildedlane/marketplace-backend/pkg/logger"
	"github.com/gildedlane/marketplace-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	sessions session.AccessSessionChecker,
	catalogService catalog.Service,
	cartService cart.Service,
	ordersService orders.Service,
	reviewsService reviews.Service,
	wishlistService wishlist.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	// Public catalog surface. No auth, no idempotency.
	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", controllers.ProductList(catalogService, logg))
		r.Get("/{productID}", controllers.ProductDetail(catalogService, logg))
		r.Get("/{productID}/reviews", controllers.ProductReviews(reviewsService, logg))
	})

	// Cart works for both guests (X-Guest-Session header) and signed-in users.
	r.Route("/api/v1/cart", func(r chi.Router) {
		r.Use(middleware.OptionalAuth(cfg.JWT, sessions, logg))
		r.Get("/", controllers.CartFetch(cartService, logg))
		r.Delete("/", controllers.CartClear(cartService, logg))
		r.Post("/items", controllers.CartAddItem(cartService, logg))
		r.Patch("/items/{itemID}", controllers.CartUpdateItem(cartService, logg))
		r.Delete("/items/{itemID}", controllers.CartRemoveItem(cartService, logg))
		r.Post("/coupon", controllers.CartApplyCoupon(cartService, logg))
		r.Delete("/coupon", controllers.CartRemoveCoupon(cartService, logg))
		r.Post("/validate", controllers.CartValidate(cartService, logg))

		// Merge needs a real user on the token.
		r.With(middleware.Auth(cfg.JWT, sessions, logg)).Post("/merge", controllers.CartMerge(cartService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessions, logg))
		r.Use(middleware.Idempotency(redisClient, logg))
		r.Use(middleware.RateLimit(redisClient, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", controllers.OrderCreate(ordersService, logg))
			r.Get("/", controllers.OrderList(ordersService, logg))
			r.Get("/{orderID}", controllers.OrderDetail(ordersService, logg))
			r.Post("/{orderID}/cancel", controllers.OrderCancel(ordersService, logg))
			r.Post("/{orderID}/return", controllers.OrderReturn(ordersService, logg))
		})

		r.Route("/reviews", func(r chi.Router) {
			r.Post("/", controllers.ReviewCreate(reviewsService, logg))
			r.Patch("/{reviewID}", controllers.ReviewUpdate(reviewsService, logg))
			r.Delete("/{reviewID}", controllers.ReviewDelete(reviewsService, logg))
		})

		r.Route("/wishlist", func(r chi.Router) {
			r.Get("/", controllers.WishlistList(wishlistService, logg))
			r.Post("/{productID}/toggle", controllers.WishlistToggle(wishlistService, logg))
		})

		r.Route("/delivery", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.MemberRoleDeliveryBoy))
			r.Get("/orders", controllers.DeliveryOrderList(ordersService, logg))
			r.Post("/orders/{orderID}/status", controllers.DeliveryOrderStatus(ordersService, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessions, logg))
		r.Use(middleware.RequireRole(logg, enums.MemberRoleAdmin))
		r.Use(middleware.Idempotency(redisClient, logg))
		r.Use(middleware.RateLimit(redisClient, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.OrderList(ordersService, logg))
			r.Get("/{orderID}", controllers.OrderDetail(ordersService, logg))
			r.Post("/{orderID}/status", controllers.AdminOrderStatus(ordersService, logg))
			r.Post("/{orderID}/payment", controllers.AdminOrderPayment(ordersService, logg))
			r.Post("/{orderID}/assign", controllers.AdminOrderAssign(ordersService, logg))
		})

		r.Route("/reviews", func(r chi.Router) {
			r.Post("/{reviewID}/status", controllers.AdminReviewStatus(reviewsService, logg))
		})
		r.Post("/products/{productID}/ratings/recompute", controllers.AdminReviewRecompute(reviewsService, logg))
	})

	return r
}
