package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/meinhoongagan/urban-services/auth"
	"github.com/meinhoongagan/urban-services/controllers"
	"github.com/meinhoongagan/urban-services/models"
)

// SetupAuthRoutes configures the customer authentication routes
func SetupAuthRoutes(app *fiber.App, ac *controllers.AuthController, protected fiber.Handler) {
	group := app.Group("/auth")

	// Public routes
	group.Post("/register", ac.Register(models.RoleCustomer))
	group.Post("/login", ac.Login(auth.ScopeCustomer))
	group.Post("/otp/request", ac.RequestOTP)
	group.Post("/otp/verify", ac.VerifyOTP)
	group.Post("/refresh", ac.RefreshToken)

	// Protected routes
	group.Get("/me", protected, ac.GetUserProfile)
	group.Post("/logout", protected, ac.Logout)
	group.Post("/password", protected, ac.ChangePassword)
}
