package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/dialauth/dialauth/internal/identity"
)

// RegisterAuthRoutes wires the authentication endpoints. guard protects the
// bearer-only routes; limiter throttles the endpoints reachable with nothing
// but a phone number.
func RegisterAuthRoutes(r fiber.Router, h *identity.Handler, guard, limiter fiber.Handler) {
	group := r.Group("/auth")
	group.Post("/register", h.Register)
	group.Post("/login", limiter, h.Login)
	group.Post("/request-reset", limiter, h.RequestReset)
	group.Post("/verify-reset", h.VerifyReset)
	group.Post("/change-password", guard, h.ChangePassword)
	group.Get("/me", guard, h.Me)
}
