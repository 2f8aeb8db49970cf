package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/meinhoongagan/urban-services/auth"
	"github.com/meinhoongagan/urban-services/controllers"
	"github.com/meinhoongagan/urban-services/middleware"
	"github.com/meinhoongagan/urban-services/models"
)

// SetupAdminRoutes configures staff registration, login and account management.
// Unless openRegistration is set, only staff can create staff accounts.
func SetupAdminRoutes(app *fiber.App, ac *controllers.AuthController, protected fiber.Handler, openRegistration bool) {
	admin := app.Group("/admin")
	admin.Post("/login", ac.Login(auth.ScopeAdmin))

	if openRegistration {
		admin.Post("/register", ac.Register(models.RoleAdmin))
	} else {
		admin.Post("/register", protected, middleware.RequireStaff(), ac.Register(models.RoleAdmin))
	}

	admin.Patch("/accounts/:id/active", protected, middleware.RequireStaff(), ac.SetAccountActive)
}
