package handlers

import (
	"daily-challenge-bridge/services"

	"github.com/gofiber/fiber/v2"
)

func SetupChallengeRoutes(app *fiber.App, catalog *services.ChallengeCatalog, broker *services.SessionBroker) {
	// 🔓 Public: today's challenge set (rotates lazily on first read of a new day)
	app.Get("/challenges", func(c *fiber.Ctx) error {
		return c.JSON(catalog.Active())
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		sessionCount := broker.SessionCount()
		return c.JSON(fiber.Map{
			"status":             "ok",
			"lastChallengeReset": catalog.LastReset(),
			"sessionCount":       sessionCount,
		})
	})
}
