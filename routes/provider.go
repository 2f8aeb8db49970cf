package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/meinhoongagan/urban-services/auth"
	"github.com/meinhoongagan/urban-services/controllers"
	"github.com/meinhoongagan/urban-services/middleware"
	"github.com/meinhoongagan/urban-services/models"
)

// SetupProviderRoutes configures service-provider registration and login
func SetupProviderRoutes(app *fiber.App, ac *controllers.AuthController, protected fiber.Handler) {
	provider := app.Group("/provider")
	provider.Post("/register", ac.Register(models.RoleProvider))
	provider.Post("/login", ac.Login(auth.ScopeProvider))

	provider.Get("/me", protected, middleware.RequireRole(models.RoleProvider), ac.GetUserProfile)
}
