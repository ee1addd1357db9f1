package handlers

import (
	"errors"
	"log"

	"daily-challenge-bridge/services"

	"github.com/gofiber/fiber/v2"
)

// respondError maps domain errors to a status and a client-safe message.
func respondError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrChallengeNotFound):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Challenge not found"})
	case errors.Is(err, services.ErrNoRewardsAvailable):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "No rewards to claim"})
	case errors.Is(err, services.ErrValidation):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrSessionNotFound):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid session"})
	case errors.Is(err, services.ErrAuth):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Signature verification failed"})
	case errors.Is(err, services.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Not found"})
	case errors.Is(err, services.ErrExternalService):
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Reward service unavailable, please retry"})
	default:
		return err
	}
}

// ErrorHandler is the app-wide fallback: anything that is not a fiber.Error
// becomes a generic 500 without leaking details.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
	}
	log.Printf("💥 [HTTP] Unhandled error on %s %s: %v", c.Method(), c.Path(), err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
}
