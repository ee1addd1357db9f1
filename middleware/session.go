package middleware

import (
	"log"
	"strings"

	"daily-challenge-bridge/services"
	"daily-challenge-bridge/utils"

	"github.com/gofiber/fiber/v2"
)

const (
	WalletLocalKey  = "wallet_address"
	SessionLocalKey = "session_token"
)

// SessionContextMiddleware resolves a session token from the X-Session-Token
// header or the `token` query param and puts the bound wallet into Locals.
// A token that does not resolve is rejected with 401. Without a token the
// request continues unauthenticated unless required is set.
//
// Usage:
//
//	app.Get("/progress/stream", middleware.SessionContextMiddleware(broker, true), streamHandler)
func SessionContextMiddleware(broker *services.SessionBroker, required bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := strings.TrimSpace(c.Get("X-Session-Token"))
		if token == "" {
			token = strings.TrimSpace(c.Query("token"))
		}

		if token == "" {
			if required {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "Missing session token",
				})
			}
			return c.Next()
		}

		session, err := broker.Lookup(token)
		if err != nil {
			log.Printf("[SessionAuth] ❌ Unknown session %s on %s", utils.TokenFingerprint(token), c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid session",
			})
		}

		c.Locals(WalletLocalKey, session.WalletAddress)
		c.Locals(SessionLocalKey, token)
		return c.Next()
	}
}

// WalletFromContext returns the wallet a session middleware resolved, if any.
func WalletFromContext(c *fiber.Ctx) string {
	wallet, _ := c.Locals(WalletLocalKey).(string)
	return wallet
}
