package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mealbridge/service-surplus/internal/http/handlers"
	"github.com/mealbridge/service-surplus/internal/http/middleware/ratelimit"
)

// Deps groups everything the router mounts.
type Deps struct {
	Base      *handlers.Handlers
	Offers    *handlers.OfferHandler
	Claims    *handlers.ClaimsHandler
	RateLimit *ratelimit.Middleware
	Registry  *prometheus.Registry
}

// New constructs a chi-based http.Handler with base middleware and routes.
// The rate limiter guards only the mutating endpoints; reads stay cheap.
func New(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Second))

	r.Get("/ping", d.Base.Ping)
	r.Method(http.MethodHead, "/healthcheck", http.HandlerFunc(d.Base.HealthcheckHead))
	r.NotFound(http.HandlerFunc(d.Base.NotFound))

	if d.Registry != nil {
		r.Method(http.MethodGet, "/metrics",
			promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{}))
	}

	r.Get("/offers/{id}", d.Offers.GetByID)
	r.Get("/offers/{id}/timeline", d.Offers.Timeline)

	r.Group(func(r chi.Router) {
		if d.RateLimit != nil {
			r.Use(d.RateLimit.Handler())
		}
		r.Post("/offers", d.Offers.Create)
		r.Post("/offers/{id}/claim", d.Claims.Claim)
		r.Post("/claims/{id}/cancel", d.Claims.Cancel)
		r.Post("/offers/{id}/pickup/confirm", d.Claims.ConfirmPickup)
	})

	return r
}
