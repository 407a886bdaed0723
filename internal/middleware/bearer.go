package middleware

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/dialauth/dialauth/internal/auth"
)

// SubjectKey is the fiber.Ctx locals key under which BearerAuth stores the
// verified subject phone number.
const SubjectKey = "auth_subject"

// BearerAuth validates the bearer token from the Authorization header and
// stashes its subject for downstream handlers. Any failure yields the same
// 401 with a Bearer challenge.
func BearerAuth(verifier *auth.Issuer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return challenge(c)
		}
		subject, err := verifier.Verify(strings.TrimSpace(authz[len("Bearer "):]))
		if err != nil {
			return challenge(c)
		}
		c.Locals(SubjectKey, subject)
		return c.Next()
	}
}

func challenge(c *fiber.Ctx) error {
	c.Set(fiber.HeaderWWWAuthenticate, "Bearer")
	return fiber.NewError(http.StatusUnauthorized, "unauthenticated")
}
