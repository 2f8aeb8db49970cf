package middleware

import (
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"
	jwtware "github.com/gofiber/jwt/v3"
	"github.com/golang-jwt/jwt/v4"
	"github.com/meinhoongagan/urban-services/auth"
	"github.com/meinhoongagan/urban-services/utils"
	"go.uber.org/zap"
)

// Protected validates the bearer access token and sets the userID, role and
// isStaff locals for downstream handlers.
func Protected(secret []byte, log *zap.Logger) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey:    secret,
		SigningMethod: "HS256",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Debug("jwt rejected", zap.Error(err))
			return unauthorized(c)
		},
		SuccessHandler: func(c *fiber.Ctx) error {
			token, ok := c.Locals("user").(*jwt.Token)
			if !ok {
				return unauthorized(c)
			}
			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok || claims["typ"] != auth.TokenTypeAccess {
				return unauthorized(c)
			}

			userID, err := extractUserID(claims)
			if err != nil {
				log.Debug("bad id claim", zap.Error(err))
				return unauthorized(c)
			}
			role, err := extractRole(claims)
			if err != nil {
				log.Debug("bad role claim", zap.Error(err))
				return unauthorized(c)
			}
			isStaff, _ := claims["is_staff"].(bool)

			c.Locals("userID", userID)
			c.Locals("role", role)
			c.Locals("isStaff", isStaff)
			return c.Next()
		},
	})
}

// extractUserID handles multiple potential formats of user ID in token
func extractUserID(claims jwt.MapClaims) (uint, error) {
	idVal := claims["id"]
	if idVal == nil {
		return 0, fmt.Errorf("no ID found in claims")
	}

	switch v := idVal.(type) {
	case float64:
		return uint(v), nil
	case string:
		parsed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("could not parse ID string: %v", err)
		}
		return uint(parsed), nil
	default:
		return 0, fmt.Errorf("unsupported ID type: %T", v)
	}
}

func extractRole(claims jwt.MapClaims) (string, error) {
	role, ok := claims["role"].(string)
	if !ok || role == "" {
		return "", fmt.Errorf("no role found in claims")
	}
	return role, nil
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(utils.ErrorResponse{
		Error:   "Unauthorized",
		Message: "Invalid or expired token",
	})
}
