package handlers

import (
	"errors"
	"strings"

	"daily-challenge-bridge/services"

	"github.com/gofiber/fiber/v2"
)

func SetupAuthRoutes(app *fiber.App, broker *services.SessionBroker, limit fiber.Handler) {
	auth := app.Group("/auth", limit)

	// Step 1 (web client): get the message the wallet must sign.
	auth.Get("/challenge", func(c *fiber.Ctx) error {
		wallet := strings.TrimSpace(c.Query("wallet"))
		if wallet == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "wallet is required"})
		}
		message, err := broker.IssueNonce(wallet)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"message": message})
	})

	// Step 2 (web client): hand back the signature, receive a session token.
	auth.Post("/confirm", func(c *fiber.Ctx) error {
		var req struct {
			Wallet    string `json:"wallet"`
			Signature string `json:"signature"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
		req.Wallet = strings.TrimSpace(req.Wallet)
		req.Signature = strings.TrimSpace(req.Signature)
		if req.Wallet == "" || req.Signature == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "wallet and signature are required"})
		}

		token, err := broker.Confirm(req.Wallet, req.Signature)
		if err != nil {
			if errors.Is(err, services.ErrAuth) {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Signature verification failed"})
			}
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"sessionToken": token})
	})

	// Optional: store the identity-service access token on the session so the
	// game runtime can pick it up from /check-session.
	auth.Post("/access-token", func(c *fiber.Ctx) error {
		var req struct {
			SessionToken string `json:"sessionToken"`
			AccessToken  string `json:"accessToken"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
		if err := broker.AttachExternalToken(req.SessionToken, req.AccessToken); err != nil {
			if errors.Is(err, services.ErrSessionNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Session not found"})
			}
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"success": true})
	})

	// Game runtime: poll with the token to learn which wallet it is bound to.
	app.Get("/check-session", func(c *fiber.Ctx) error {
		session, err := broker.Lookup(strings.TrimSpace(c.Query("token")))
		if err != nil {
			return c.JSON(fiber.Map{"error": "Not linked"})
		}
		return c.JSON(session)
	})
}
