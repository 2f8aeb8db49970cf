package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const sessionLifetime = 30 * 24 * time.Hour

// BrowserSession makes sure the client carries a session cookie and exposes
// its value as the "sessionID" local. The id keys pending OTP challenges.
func BrowserSession(cookieName string, secure bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sid := c.Cookies(cookieName)
		if _, err := uuid.Parse(sid); err != nil {
			sid = uuid.NewString()
			c.Cookie(&fiber.Cookie{
				Name:     cookieName,
				Value:    sid,
				Path:     "/",
				Expires:  time.Now().Add(sessionLifetime),
				HTTPOnly: true,
				Secure:   secure,
				SameSite: fiber.CookieSameSiteLaxMode,
			})
		}
		c.Locals("sessionID", sid)
		return c.Next()
	}
}

// SessionID returns the browser session id set by BrowserSession.
func SessionID(c *fiber.Ctx) string {
	sid, _ := c.Locals("sessionID").(string)
	return sid
}
