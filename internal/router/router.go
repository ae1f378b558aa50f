package router

import (
	"net/http"

	"github.com/foodly/storefront/internal/config"
	"github.com/foodly/storefront/internal/enum"
	"github.com/foodly/storefront/internal/handler"
	mw "github.com/foodly/storefront/internal/middleware"
	"github.com/foodly/storefront/internal/tracking"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

// Handlers groups every HTTP handler the storefront mounts.
type Handlers struct {
	Catalog    *handler.CatalogHandler
	Promotions *handler.PromotionHandler
	Cart       *handler.CartHandler
	Checkout   *handler.CheckoutHandler
	Orders     *handler.OrderHandler
	Settings   *handler.SettingsHandler
	Address    *handler.AddressHandler
	Shipper    *handler.ShipperHandler
	Admin      *handler.AdminHandler
}

// New creates a Chi router with all application routes wired up.
// Everything except /health and the tracking socket requires a bearer token.
func New(cfg *config.Config, h Handlers, tracker *tracking.Tracker, log zerolog.Logger) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(mw.RequestLogger(log))
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Live order tracking (auth via ?token=)
	r.Get("/ws/orders/{id}", func(w http.ResponseWriter, r *http.Request) {
		tracking.ServeWS(tracker, cfg.JWTSecret, w, r)
	})

	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		h.Catalog.RegisterRoutes(r)
		r.Route("/promotions", h.Promotions.RegisterRoutes)
		r.Route("/cart", h.Cart.RegisterRoutes)
		r.Route("/checkout", h.Checkout.RegisterRoutes)
		r.Route("/orders", h.Orders.RegisterRoutes)
		r.Route("/settings", h.Settings.RegisterRoutes)
		r.Route("/address", h.Address.RegisterRoutes)

		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.RoleShipper, enum.RoleAdmin))
			r.Route("/shipper", h.Shipper.RegisterRoutes)
		})

		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.RoleAdmin))
			r.Route("/admin", h.Admin.RegisterRoutes)
		})
	})

	log.Info().Msg("router initialized")
	return r
}
