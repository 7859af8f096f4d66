package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/makolahq/makola-backend/api/controllers"
	webhookcontrollers "github.com/makolahq/makola-backend/api/controllers/webhooks"
	"github.com/makolahq/makola-backend/api/middleware"
	"github.com/makolahq/makola-backend/internal/cart"
	checkoutsvc "github.com/makolahq/makola-backend/internal/checkout"
	"github.com/makolahq/makola-backend/internal/orders"
	"github.com/makolahq/makola-backend/pkg/config"
	"github.com/makolahq/makola-backend/pkg/db"
	"github.com/makolahq/makola-backend/pkg/logger"
	"github.com/makolahq/makola-backend/pkg/redis"
)

// WebhookVerifier checks gateway callback signatures.
type WebhookVerifier interface {
	VerifySignature(payload []byte, signature string) bool
	SignatureHeader() string
}

// RouterParams collects the wired services the HTTP surface exposes.
type RouterParams struct {
	Config          *config.Config
	Logger          *logger.Logger
	DB              db.Pinger
	Redis           redis.Pinger
	Metrics         prometheus.Gatherer
	CartService     cart.Service
	CheckoutService checkoutsvc.Service
	OrdersService   orders.Service
	WebhookService  webhookcontrollers.PaystackWebhookService
	WebhookVerifier WebhookVerifier
}

func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.DB, p.Redis))
	})

	if p.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.Metrics, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/paystack", webhookcontrollers.PaystackWebhook(p.WebhookService, p.WebhookVerifier, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(p.CartService, logg))
			r.Post("/items", controllers.CartAddItem(p.CartService, logg))
			r.Patch("/items/{productId}", controllers.CartUpdateItem(p.CartService, logg))
			r.Delete("/items/{productId}", controllers.CartRemoveItem(p.CartService, logg))
		})

		r.Post("/checkout", controllers.Checkout(p.CheckoutService, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.OrderList(p.OrdersService, logg))
			r.Get("/{orderId}", controllers.OrderDetail(p.OrdersService, logg))
			r.Post("/{orderId}/cancel", controllers.OrderCancel(p.OrdersService, logg))
		})

		r.Route("/seller", func(r chi.Router) {
			r.Use(middleware.RequireRole("seller", logg))
			r.Patch("/orders/{sellerOrderId}/status", controllers.SellerOrderStatusUpdate(p.OrdersService, logg))
		})
	})

	return r
}
