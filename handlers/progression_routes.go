package handlers

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"daily-challenge-bridge/middleware"
	"daily-challenge-bridge/services"

	"github.com/gofiber/fiber/v2"
)

const streamInterval = 2 * time.Second

type ProgressionDeps struct {
	Broker   *services.SessionBroker
	Ledger   *services.ProgressLedger
	Gate     *services.RewardGate
	Receipts *services.GormReceiptStore // nil when no database is configured
}

func SetupProgressionRoutes(app *fiber.App, deps ProgressionDeps) {
	// X-Session-Token is optional here; bodies may carry sessionToken or walletAddress instead.
	sessionCtx := middleware.SessionContextMiddleware(deps.Broker, false)

	app.Post("/progress", sessionCtx, func(c *fiber.Ctx) error {
		var req struct {
			SessionToken  string `json:"sessionToken"`
			WalletAddress string `json:"walletAddress"`
			ChallengeID   string `json:"challengeId"`
			Progress      *int64 `json:"progress"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}

		wallet, err := resolveWallet(c, deps.Broker, req.SessionToken, req.WalletAddress)
		if err != nil {
			return respondError(c, err)
		}
		if strings.TrimSpace(req.ChallengeID) == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "challengeId is required"})
		}
		if req.Progress == nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "progress is required"})
		}

		rec, err := deps.Gate.ReportProgress(wallet, strings.TrimSpace(req.ChallengeID), *req.Progress)
		if err != nil {
			return respondError(c, err)
		}

		return c.JSON(fiber.Map{
			"progress": fiber.Map{
				"completed": rec.Completed,
				"claimed":   rec.Claimed,
			},
		})
	})

	app.Get("/progress", sessionCtx, func(c *fiber.Ctx) error {
		wallet, err := resolveWallet(c, deps.Broker, "", c.Query("wallet"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"progress": progressView(deps.Ledger, wallet)})
	})

	app.Post("/claim", sessionCtx, func(c *fiber.Ctx) error {
		var req struct {
			SessionToken  string `json:"sessionToken"`
			WalletAddress string `json:"walletAddress"`
		}
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
			}
		}

		wallet, err := resolveWallet(c, deps.Broker, req.SessionToken, req.WalletAddress)
		if err != nil {
			return respondError(c, err)
		}

		result, err := deps.Gate.Claim(c.UserContext(), wallet)
		if err != nil {
			return respondError(c, err)
		}

		return c.JSON(fiber.Map{
			"success":      true,
			"reward":       result.Reward,
			"challengeIds": result.ChallengeIDs,
		})
	})

	if deps.Receipts != nil {
		app.Get("/claims", sessionCtx, func(c *fiber.Ctx) error {
			wallet, err := resolveWallet(c, deps.Broker, "", c.Query("wallet"))
			if err != nil {
				return respondError(c, err)
			}
			receipts, err := deps.Receipts.ReceiptsForWallet(c.UserContext(), wallet, c.QueryInt("limit", 20))
			if err != nil {
				log.Printf("DB Error fetching receipts: %v", err)
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch receipts"})
			}
			return c.JSON(receipts)
		})
	}

	// 🔐 Game runtime: live progress for the session's wallet.
	app.Get("/progress/stream", middleware.SessionContextMiddleware(deps.Broker, true), func(c *fiber.Ctx) error {
		return streamProgress(c, deps.Broker, deps.Ledger)
	})
}

// resolveWallet picks the acting wallet: a session resolved by middleware
// wins, then a sessionToken in the body, then a plain wallet address.
func resolveWallet(c *fiber.Ctx, broker *services.SessionBroker, sessionToken, walletAddress string) (string, error) {
	if wallet := middleware.WalletFromContext(c); wallet != "" {
		return wallet, nil
	}
	if token := strings.TrimSpace(sessionToken); token != "" {
		session, err := broker.Lookup(token)
		if err != nil {
			return "", err
		}
		return session.WalletAddress, nil
	}
	if wallet := strings.TrimSpace(walletAddress); wallet != "" {
		return wallet, nil
	}
	return "", fmt.Errorf("%w: sessionToken or walletAddress is required", services.ErrValidation)
}

func progressView(ledger *services.ProgressLedger, wallet string) []fiber.Map {
	records := ledger.Snapshot(wallet)
	out := make([]fiber.Map, 0, len(records))
	for _, r := range records {
		out = append(out, fiber.Map{
			"challengeId": r.ChallengeID,
			"completed":   r.Completed,
			"amount":      r.Target,
			"claimed":     r.Claimed,
			"state":       r.State(),
		})
	}
	return out
}

// streamProgress pushes the wallet's progress whenever it changes, and an
// "expired" event once the session no longer exists (day rotated).
func streamProgress(c *fiber.Ctx, broker *services.SessionBroker, ledger *services.ProgressLedger) error {
	wallet := middleware.WalletFromContext(c)
	token, _ := c.Locals(middleware.SessionLocalKey).(string)
	done := c.Context().Done()

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no") // nginx

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		ticker := time.NewTicker(streamInterval)
		defer ticker.Stop()

		var last []byte
		send := func() bool {
			payload, _ := json.Marshal(progressView(ledger, wallet))
			if bytes.Equal(payload, last) {
				return true
			}
			last = payload
			fmt.Fprintf(w, "event: progress\ndata: %s\n\n", payload)
			return w.Flush() == nil
		}

		// Initial keepalive (comment event) + current state
		w.WriteString(":\n\n")
		if !send() {
			return
		}

		for {
			select {
			case <-ticker.C:
				if _, err := broker.Lookup(token); err != nil {
					fmt.Fprint(w, "event: expired\ndata: {}\n\n")
					_ = w.Flush()
					return
				}
				if !send() {
					// Client disconnected
					return
				}
			case <-done:
				return
			}
		}
	})

	return nil
}
