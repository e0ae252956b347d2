package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"storefront-bff/internal/auth"
	"storefront-bff/internal/telemetry"
)

func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(telemetry.Middleware)

	r.Get("/health", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	guard := auth.NewMiddleware(lookupSession)

	r.Route("/api", func(r chi.Router) {
		r.Use(h.withVisitor)

		r.Get("/home", h.Home)
		r.Get("/products", h.ListProducts)
		r.Get("/products/{id}", h.GetProduct)
		r.Get("/search", h.Search)
		r.Get("/offer", h.Offer)
		r.Post("/newsletter", h.Newsletter)
		r.Post("/chat", h.Chat)

		r.Get("/session", h.GetSession)
		r.Post("/auth/login", h.Login)
		r.Post("/auth/google", h.LoginWithGoogle)
		r.Post("/auth/logout", h.Logout)

		r.Get("/notifications", h.ListNotifications)
		r.Delete("/notifications/{id}", h.DismissNotification)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.GetCart)
			r.Delete("/", h.ClearCart)
			r.Post("/items", h.AddItem)
			r.Put("/items/{id}", h.UpdateItem)
			r.Delete("/items/{id}", h.RemoveItem)
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Use(guard.RequireUser)
			r.Get("/", h.GetCheckout)
			r.Delete("/", h.AbandonCheckout)
			r.Post("/details", h.SubmitDetails)
			r.Post("/back", h.CheckoutBack)
			r.Post("/payment", h.PlacePayment)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(guard.RequireAdmin)
			r.Get("/products", h.AdminListProducts)
			r.Post("/products", h.AdminCreateProduct)
			r.Put("/products/{id}", h.AdminUpdateProduct)
			r.Delete("/products/{id}", h.AdminDeleteProduct)
		})
	})

	return r
}
