package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/quickplate/storefront/internal/cartsync"
	"github.com/quickplate/storefront/internal/checkout"
	"github.com/quickplate/storefront/internal/event"
	"github.com/quickplate/storefront/internal/payment/processor"
	"github.com/quickplate/storefront/pkg/health"
	"github.com/quickplate/storefront/pkg/middleware"
)

// NewRouter creates a chi router with all storefront routes registered.
func NewRouter(
	carts *cartsync.Service,
	checkouts *checkout.Manager,
	proc processor.Processor,
	events *event.Producer,
	healthHandler *health.Handler,
	allowedOrigins []string,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CORS(middleware.CORSConfig{AllowedOrigins: allowedOrigins}))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics())
	r.Use(middleware.Tracing())
	r.Use(middleware.RequestLogger(logger))

	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	cartHandler := NewCartHandler(carts, events, logger)
	checkoutHandler := NewCheckoutHandler(checkouts, logger)
	paymentHandler := NewPaymentHandler(proc, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Route("/cart", func(r chi.Router) {
			r.Use(DeviceIDFromHeader)

			r.Get("/", cartHandler.GetCart)
			r.Delete("/", cartHandler.ClearCart)

			r.Post("/items", cartHandler.AddItem)
			r.Put("/items/{productID}", cartHandler.UpdateItemQuantity)
			r.Delete("/items/{productID}", cartHandler.RemoveItem)

			r.Post("/login", cartHandler.Login)
			r.Post("/logout", cartHandler.Logout)
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Use(DeviceIDFromHeader)

			r.Post("/", checkoutHandler.Start)
			r.Get("/{checkoutID}", checkoutHandler.Get)
			r.Post("/{checkoutID}/shipping", checkoutHandler.SubmitShipping)
			r.Post("/{checkoutID}/back", checkoutHandler.Back)
			r.Post("/{checkoutID}/pay", checkoutHandler.Pay)
		})

		r.Post("/payment-intents", paymentHandler.CreateIntent)
	})

	return r
}
