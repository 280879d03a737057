package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nqtuan-dev/vietshop-backend/api/controllers"
	"github.com/nqtuan-dev/vietshop-backend/api/middleware"
	"github.com/nqtuan-dev/vietshop-backend/internal/cart"
	checkoutsvc "github.com/nqtuan-dev/vietshop-backend/internal/checkout"
	"github.com/nqtuan-dev/vietshop-backend/internal/orders"
	paymentsvc "github.com/nqtuan-dev/vietshop-backend/internal/payments"
	subordersvc "github.com/nqtuan-dev/vietshop-backend/internal/suborders"
	vouchersvc "github.com/nqtuan-dev/vietshop-backend/internal/vouchers"
	"github.com/nqtuan-dev/vietshop-backend/pkg/config"
	"github.com/nqtuan-dev/vietshop-backend/pkg/db"
	"github.com/nqtuan-dev/vietshop-backend/pkg/logger"
	"github.com/nqtuan-dev/vietshop-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	cartService cart.Service,
	checkoutService checkoutsvc.Service,
	ordersService orders.Service,
	subOrdersService subordersvc.Service,
	paymentsService paymentsvc.Service,
	vouchersService vouchersvc.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Cart accepts either an authenticated user or a guest token.
		r.Route("/cart", func(r chi.Router) {
			r.Use(middleware.OptionalAuth(cfg.JWT, logg))
			r.Get("/", controllers.CartGet(cartService, logg))
			r.Post("/items", controllers.CartAddItem(cartService, logg))
			r.Patch("/items/{variantID}", controllers.CartUpdateItem(cartService, logg))
			r.Delete("/items/{variantID}", controllers.CartRemoveItem(cartService, logg))
			r.Delete("/", controllers.CartClear(cartService, logg))
		})

		r.Route("/vouchers", func(r chi.Router) {
			r.Get("/platform", controllers.PlatformVouchersList(vouchersService, logg))
		})

		// Gateway callbacks are unauthenticated; the handler is idempotent.
		r.Route("/payments/gateway", func(r chi.Router) {
			r.Get("/return", controllers.GatewayReturn(paymentsService, logg))
			r.Post("/notify", controllers.GatewayNotify(paymentsService, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))

			r.Post("/checkout", controllers.Checkout(checkoutService, logg))

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.OrdersList(ordersService, logg))
				r.Get("/{orderID}", controllers.OrderGet(ordersService, logg))
			})
			r.Post("/suborders/{subOrderID}/cancel", controllers.SubOrderCancel(subOrdersService, logg))

			r.Get("/payments/{paymentID}", controllers.PaymentGet(paymentsService, logg))

			r.Route("/shop", func(r chi.Router) {
				r.Use(middleware.RequireShop(logg))
				r.Route("/suborders", func(r chi.Router) {
					r.Get("/", controllers.ShopSubOrdersList(subOrdersService, logg))
					r.Get("/{subOrderID}", controllers.ShopSubOrderGet(subOrdersService, logg))
					r.Post("/{subOrderID}/transition", controllers.SubOrderTransition(subOrdersService, logg))
					r.Post("/{subOrderID}/cancel", controllers.SellerSubOrderCancel(subOrdersService, logg))
					r.Post("/{subOrderID}/resolve-cancel", controllers.SubOrderResolveCancel(subOrdersService, logg))
				})
				r.Route("/vouchers", func(r chi.Router) {
					r.Get("/", controllers.ShopVouchersList(vouchersService, logg))
					r.Post("/", controllers.ShopVoucherCreate(vouchersService, logg))
				})
			})
		})
	})

	return r
}
