package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/meinhoongagan/urban-services/models"
	"github.com/meinhoongagan/urban-services/utils"
)

// RequireRole lets the request through when the token's role is one of roles.
// Must run after Protected.
func RequireRole(roles ...models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, _ := c.Locals("role").(string)
		for _, r := range roles {
			if role == string(r) {
				return c.Next()
			}
		}
		return forbidden(c)
	}
}

// RequireStaff admits only tokens carrying the staff flag.
func RequireStaff() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if isStaff, _ := c.Locals("isStaff").(bool); isStaff {
			return c.Next()
		}
		return forbidden(c)
	}
}

func forbidden(c *fiber.Ctx) error {
	return c.Status(fiber.StatusForbidden).JSON(utils.ErrorResponse{
		Error: "You don't have permission to perform this action",
	})
}
