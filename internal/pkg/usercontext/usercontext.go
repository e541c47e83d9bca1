package usercontext

import (
	"github.com/gofiber/fiber/v2"

	"github.com/hasib1010/Happylife-sub003/app/models"
)

// UserContext is the resolved identity for a request. The engine consumes it
// as given and never inspects how the caller authenticated; verifying
// credentials is the identity layer's job.
type UserContext struct {
	UserID     uint   `json:"user_id"`
	Role       string `json:"role"`
	IsLoggedIn bool   `json:"is_logged_in"`
}

// IsAdmin reports whether the request identity carries the admin role.
func (u UserContext) IsAdmin() bool {
	return u.Role == models.ROLE_ADMIN
}

// IsMerchant reports whether the identity can hold a paid subscription.
func (u UserContext) IsMerchant() bool {
	return u.Role == models.ROLE_PROVIDER || u.Role == models.ROLE_SELLER
}

// GetUserContext retrieves the user context from fiber context.
// Returns a default anonymous context if none is set.
func GetUserContext(c *fiber.Ctx) UserContext {
	if ctx := c.Locals(KeyUserContext); ctx != nil {
		if uc, ok := ctx.(UserContext); ok {
			return uc
		}
	}
	return UserContext{IsLoggedIn: false}
}

// IsLoggedIn checks if the current user is logged in
func IsLoggedIn(c *fiber.Ctx) bool {
	return GetUserContext(c).IsLoggedIn
}

// IsAdmin checks if the current user is an admin
func IsAdmin(c *fiber.Ctx) bool {
	return GetUserContext(c).IsAdmin()
}

// GetUserID returns the current user's ID, or 0 if not logged in
func GetUserID(c *fiber.Ctx) uint {
	return GetUserContext(c).UserID
}
