package router // package router registers the HTTP routes of the booking API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-seat-booking/internal/handler"
	"github.com/iliyamo/event-seat-booking/internal/middleware"
	"github.com/iliyamo/event-seat-booking/internal/utils"
)

// RegisterRoutes registers the unauthenticated probe.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers buyer and admin login, token refresh and logout.
// limiter guards the login endpoints against receipt guessing.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	buyer := []echo.MiddlewareFunc{middleware.JWTAuth(jwtSecret), middleware.RequireRole(utils.RoleBuyer)}
	g := e.Group("/v1/auth")
	g.POST("/login", a.Login, limiter)
	g.POST("/refresh", a.Refresh, append(buyer, limiter)...)
	g.POST("/logout", a.Logout, buyer...)

	e.POST("/v1/admin/login", a.AdminLogin, limiter)
}

// RegisterBooking registers the buyer flow. Every route needs a buyer
// token; state changes also pass through limiter.
func RegisterBooking(e *echo.Echo, b *handler.BookingHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	g := e.Group("/v1")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole(utils.RoleBuyer))

	g.GET("/session", b.State)
	g.GET("/seats", b.Seats)
	g.POST("/terms/accept", b.AcceptTerms)
	g.POST("/selection/:seat_id", b.Toggle, limiter)
	g.DELETE("/selection", b.Reconsider)
	g.POST("/confirm", b.Confirm, limiter)
	g.POST("/change-seats", b.ChangeSeats, limiter)
}

// RegisterAdmin registers the operator endpoints behind the ADMIN role.
func RegisterAdmin(e *echo.Echo, a *handler.AdminHandler, jwtSecret string) {
	g := e.Group("/v1/admin")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole(utils.RoleAdmin))

	g.GET("/incidents", a.Incidents)
	g.POST("/incidents/:id/resolve", a.ResolveIncident)
	g.GET("/seats", a.Seats)
}
