// Package middleware provides authentication, logging, metrics and rate
// limiting middleware for the platform API.
package middleware

import (
	"strings"

	"matchday/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

var cfg *config.Config

// InitMiddleware initializes authentication middleware with the given config.
func InitMiddleware(c *config.Config) {
	cfg = c
}

func parseUserID(tokenString string) (string, error) {
	userID, _, err := parseClaims(tokenString)
	return userID, err
}

func parseClaims(tokenString string) (userID, jti string, err error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid signing method")
		}
		return []byte(cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return "", "", fiber.NewError(fiber.StatusUnauthorized, "Invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", fiber.NewError(fiber.StatusUnauthorized, "Invalid token claims")
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", "", fiber.NewError(fiber.StatusUnauthorized, "Invalid token structure - missing subject")
	}
	jti, _ = claims["jti"].(string)
	return sub, jti, nil
}

// AuthRequired is a middleware that enforces authentication for protected routes.
func AuthRequired(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authorization header required",
		})
	}

	// Extract token from "Bearer <token>"
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid authorization header format",
		})
	}

	userID, jti, err := parseClaims(parts[1])
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid or expired token",
		})
	}

	c.Locals("userID", userID)
	c.Locals("jti", jti)
	return c.Next()
}

// OptionalAuth extracts the user ID when a valid bearer token is present but
// never rejects the request. Collection reads are public.
func OptionalAuth(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	parts := strings.Split(authHeader, " ")
	if len(parts) == 2 && parts[0] == "Bearer" {
		if userID, err := parseUserID(parts[1]); err == nil {
			c.Locals("userID", userID)
		}
	}
	return c.Next()
}

// WebSocketOptionalAuth extracts the user ID from a query token when one is
// present but lets anonymous connections through. Subscriptions are public
// reads, so the realtime endpoint does not require authentication.
func WebSocketOptionalAuth(c *fiber.Ctx) error {
	token := c.Query("token")
	if token == "" {
		parts := strings.Split(c.Get("Authorization"), " ")
		if len(parts) == 2 && parts[0] == "Bearer" {
			token = parts[1]
		}
	}
	if token != "" {
		if userID, err := parseUserID(token); err == nil {
			c.Locals("userID", userID)
		}
	}
	return c.Next()
}
