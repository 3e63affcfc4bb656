// Package router wires HTTP routes to their handlers and middleware.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/filmila/filmila/internal/handler"
	"github.com/filmila/filmila/internal/middleware"
	"github.com/filmila/filmila/internal/model"
)

// The rate limiter is mounted per route rather than globally: on bearer
// routes it must run after JWTAuth, otherwise user_id is unset and every
// authenticated caller behind one IP shares a single anonymous bucket.

// RegisterRoutes registers routes that carry no authentication at all.
// Currently only the health check used by load balancers; it is not rate
// limited.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the identity endpoints.  Register/login/refresh/
// logout live outside the JWT middleware; /api/user requires a bearer
// token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	e.POST("/api/register", a.Register, limit)
	e.POST("/api/login", a.Login, limit)
	e.POST("/api/refresh", a.Refresh, limit)
	e.POST("/api/logout", a.Logout, limit)

	e.GET("/api/user", a.Me, middleware.JWTAuth(jwtSecret), limit)
}

// RegisterCatalog registers the film catalog.  The public listing sits
// behind the response cache; film detail requires a bearer token; upload
// additionally requires the FILMMAKER role.
func RegisterCatalog(e *echo.Echo, h *handler.CatalogHandler, jwtSecret string, cache, limit echo.MiddlewareFunc) {
	e.GET("/api/films", h.ListFilms, limit, cache)
	e.GET("/api/films/:id/thumbnail", h.Thumbnail, limit)

	auth := middleware.JWTAuth(jwtSecret)
	e.GET("/api/films/:id", h.GetFilm, auth, limit)

	filmmaker := middleware.RequireRole(model.RoleFilmmaker)
	e.POST("/api/upload", h.UploadFilm, auth, limit, filmmaker)
	e.GET("/api/my-films", h.MyFilms, auth, limit, filmmaker)
}

// RegisterCommerce registers the payment step and the gated playback
// endpoints.  Everything here requires a bearer token; entitlement itself
// is checked inside the handlers against the purchases table.
func RegisterCommerce(e *echo.Echo, h *handler.CommerceHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	auth := middleware.JWTAuth(jwtSecret)

	e.POST("/api/create-payment", h.CreatePayment, auth, limit)
	e.POST("/api/confirm-purchase", h.ConfirmPurchase, auth, limit)
	e.GET("/api/my-purchases", h.MyPurchases, auth, limit)

	e.GET("/api/films/:id/watch", h.Watch, auth, limit)
	// Kept for clients built against the original route shape.
	e.GET("/api/watch/:id", h.Watch, auth, limit)
}
