// middleware/auth.go
package middleware

import (
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// PlatformAuthMiddleware verifies that inbound platform events carry a JWT
// signed with the shared webhook secret. The platform relay attaches the
// token to every webhook delivery and to the gateway upgrade request.
func PlatformAuthMiddleware(c *fiber.Ctx) error {
	claims, err := parseBearer(c, webhookSecret())
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": err.Error()})
	}

	c.Locals("platform", claims["iss"])
	return c.Next()
}

// AdminAuthMiddleware guards the read-only admin inspection endpoints.
func AdminAuthMiddleware(c *fiber.Ctx) error {
	claims, err := parseBearer(c, os.Getenv("JWT_SECRET"))
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": err.Error()})
	}

	isAdmin, ok := claims["is_admin"].(bool)
	if !ok || !isAdmin {
		return c.Status(403).JSON(fiber.Map{"error": "Access denied. Admin privileges required."})
	}

	c.Locals("username", claims["username"])
	c.Locals("isAdmin", true)
	return c.Next()
}

func parseBearer(c *fiber.Ctx, secret string) (jwt.MapClaims, error) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return nil, fiber.NewError(401, "Missing authorization header")
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, fiber.NewError(401, "Invalid authorization header format")
	}

	token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.NewError(401, "Invalid signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, fiber.NewError(401, "Invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fiber.NewError(401, "Invalid token claims")
	}

	exp, ok := claims["exp"].(float64)
	if !ok || time.Unix(int64(exp), 0).Before(time.Now()) {
		return nil, fiber.NewError(401, "Token expired")
	}

	return claims, nil
}

func webhookSecret() string {
	secret := os.Getenv("WEBHOOK_SECRET")
	if secret == "" {
		secret = "kandibot-webhook-change-in-production"
	}
	return secret
}
