package middleware

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/paisabet/paisabet/internal/auth"
)

// JWTAuth validates bearer access tokens and stores the authenticated user's
// id, phone and role in the request locals.
func JWTAuth(authSvc *auth.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		tokenStr := strings.TrimSpace(authz[len("Bearer "):])

		user, err := authSvc.VerifyAccess(c.UserContext(), tokenStr)
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "invalid token")
		}

		c.Locals("user_id", user.ID)
		c.Locals("phone", user.Phone)
		c.Locals("role", user.Role)
		return c.Next()
	}
}

// RequireRole rejects requests whose authenticated role does not match.
// It must run after JWTAuth.
func RequireRole(role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if got, _ := c.Locals("role").(string); got != role {
			return fiber.NewError(http.StatusForbidden, "insufficient role")
		}
		return c.Next()
	}
}
