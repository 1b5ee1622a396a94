package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// Middleware accepts either a bearer access token or an api_key (query
// parameter or X-Api-Key header) and stores user_id in locals.
func Middleware(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token := bearerFromHeader(c.Get("Authorization")); token != "" {
			userID, err := svc.ValidateAccessToken(token)
			if err != nil {
				return fiber.NewError(fiber.StatusUnauthorized, err.Error())
			}
			c.Locals("user_id", userID)
			return c.Next()
		}

		key := c.Query("api_key")
		if key == "" {
			key = c.Get("X-Api-Key")
		}
		if key == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing bearer token or api key")
		}
		userID, err := svc.UserIDByAPIKey(c.Context(), key)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, err.Error())
		}
		c.Locals("user_id", userID)
		return c.Next()
	}
}

// UserID returns the authenticated user stored by Middleware.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals("user_id").(string)
	return id
}

func bearerFromHeader(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
