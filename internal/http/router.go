package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/openbid/auction-marketplace/internal/domain"
	"github.com/openbid/auction-marketplace/internal/rateLimit"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter assembles the public API. Route groups follow the roles:
// anonymous browsing, buyer bidding, seller listing management, admin
// moderation.
func NewRouter(h *Handlers, users UserSource, rl *rateLimit.RateLimiter) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(LoggerMiddleware(h.logger))
	r.Use(TracingMiddleware)
	r.Use(AuthMiddleware(users))
	r.Use(RateLimitMiddleware(rl))

	r.Get("/v1/healthz", h.Healthz)
	r.Get("/v1/readyz", h.Readyz)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/users", h.CreateUser)

		r.Get("/items", h.ListItems)
		r.Get("/items/{id}", h.GetItem)
		r.Get("/items/{id}/bids", h.ListItemBids)

		r.Group(func(r chi.Router) {
			r.Use(RequireRole(domain.RoleBuyer))
			r.Use(IdempotencyKeyMiddleware)
			r.Post("/items/{id}/bids", h.PlaceBid)
		})

		r.Route("/seller", func(r chi.Router) {
			r.Use(RequireRole(domain.RoleSeller))
			r.Get("/items", h.MyItems)
			r.Group(func(r chi.Router) {
				r.Use(IdempotencyKeyMiddleware)
				r.Post("/items", h.CreateItem)
			})
			r.Put("/items/{id}", h.EditItem)
			r.Delete("/items/{id}", h.DeleteItem)
			r.Get("/items/{id}/bids", h.SellerBidHistory)
			r.Post("/items/{id}/images", h.UploadImages)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(RequireRole(domain.RoleAdmin))
			r.Get("/stats", h.AdminStats)
			r.Get("/users", h.AdminListUsers)
			r.Post("/users/{id}/ban", h.AdminToggleBan)
			r.Put("/users/{id}/role", h.AdminSetRole)
			r.Get("/items", h.AdminListItems)
			r.Post("/items/{id}/close", h.AdminForceClose)
			r.Delete("/items/{id}", h.AdminDeleteItem)
			r.Get("/bids", h.AdminListBids)
			r.Delete("/bids/{id}", h.AdminDeleteBid)
		})
	})

	return r
}
