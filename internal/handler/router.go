package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/mstrand/vanir/internal/domain"
	"github.com/mstrand/vanir/internal/middleware"
	"github.com/mstrand/vanir/internal/store"
)

// Deps bundles everything the router needs.
type Deps struct {
	Store    store.Store
	Cart     domain.CartService
	Checkout domain.CheckoutService
	Orders   domain.OrderService
	Logger   *slog.Logger
	Metrics  *middleware.Metrics
	Ping     Pinger
}

// NewRouter assembles the full HTTP surface.
func NewRouter(d Deps) http.Handler {
	cart := NewCartHandler(d.Cart)
	checkout := NewCheckoutHandler(d.Checkout)
	orders := NewOrderHandler(d.Orders)
	products := NewProductHandler(d.Store)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.WithRequestLogger(d.Logger))
	r.Use(chimw.Recoverer)
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware)
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}

	r.Get("/healthz", Health(d.Ping))

	r.Route("/cart", func(r chi.Router) {
		r.Get("/", cart.Get)
		r.Post("/items", cart.AddItem)
		r.Patch("/items/{lineID}", cart.SetQuantity)
		r.Delete("/items/{lineID}", cart.RemoveItem)
	})

	r.Post("/checkout", checkout.Checkout)

	r.Route("/orders", func(r chi.Router) {
		r.Get("/", orders.List)
		r.Get("/{orderID}", orders.Get)
		r.Post("/{orderID}/status", orders.UpdateStatus)
	})

	r.Get("/products/{productID}", products.Get)

	return r
}
