package middleware

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/hasib1010/Happylife-sub003/app/models"
	"github.com/hasib1010/Happylife-sub003/internal/pkg/usercontext"
)

// UserContextMiddleware resolves the request identity set by the upstream
// authenticator (gateway or auth service) and stores it in Locals for every
// handler. Identity arrives as trusted headers; this layer translates them
// into a UserContext and nothing downstream ever re-checks credentials.
func UserContextMiddleware(c *fiber.Ctx) error {
	rawID := strings.TrimSpace(c.Get("X-Auth-User-Id"))
	if rawID == "" {
		c.Locals(usercontext.KeyUserContext, usercontext.UserContext{IsLoggedIn: false})
		c.Locals(usercontext.KeyFromProtected, false)
		return c.Next()
	}

	userID, err := strconv.ParseUint(rawID, 10, 64)
	if err != nil || userID == 0 {
		c.Locals(usercontext.KeyUserContext, usercontext.UserContext{IsLoggedIn: false})
		c.Locals(usercontext.KeyFromProtected, false)
		return c.Next()
	}

	role := strings.TrimSpace(c.Get("X-Auth-Role"))
	switch role {
	case models.ROLE_USER, models.ROLE_PROVIDER, models.ROLE_SELLER, models.ROLE_ADMIN:
	default:
		role = models.ROLE_USER
	}

	userCtx := usercontext.UserContext{
		UserID:     uint(userID),
		Role:       role,
		IsLoggedIn: true,
	}
	c.Locals(usercontext.KeyUserContext, userCtx)
	c.Locals(usercontext.KeyFromProtected, true)
	c.Locals(usercontext.KeyUserID, userCtx.UserID)
	c.Locals(usercontext.KeyRole, role)

	return c.Next()
}
