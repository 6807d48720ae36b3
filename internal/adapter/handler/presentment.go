package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/pesatap/pesatap/internal/core/domain"
	"github.com/pesatap/pesatap/internal/core/ledger"
	"github.com/pesatap/pesatap/internal/core/presentment"
	"github.com/pesatap/pesatap/internal/core/settle"
)

// PresentmentHandler exposes the two alternate receive channels: the dial
// code and the proximity tap. Both are simulations; on a successful attempt
// the money movement is an ordinary receive settle tagged with the channel.
type PresentmentHandler struct {
	Engine   *settle.Engine
	Accounts ledger.AccountStore
	NFC      presentment.Attempter
	USSD     presentment.Attempter
}

type DialCodeRequest struct {
	AccountID int64  `json:"account_id"`
	Amount    string `json:"amount"`
}

// GenerateDialCode mints a one-time dial code for the amount. The code
// itself carries no protocol semantics; completing it is a separate tap.
func (h *PresentmentHandler) GenerateDialCode(c *fiber.Ctx) error {
	var req DialCodeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	amount, err := domain.NewMoney(req.Amount)
	if err != nil || !amount.IsPositive() {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid amount"})
	}
	if _, err := h.Accounts.Get(c.Context(), req.AccountID); err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "Account not found"})
		}
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "Could not fetch account"})
	}

	code, err := presentment.GenerateDialCode(req.Amount)
	if err != nil {
		slog.Error("Failed to generate dial code", "error", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "Could not generate code"})
	}

	return c.JSON(code)
}

type TapRequest struct {
	AccountID    int64  `json:"account_id"`
	Amount       string `json:"amount"`
	Counterparty string `json:"counterparty"`
}

// Tap runs a simulated proximity attempt and, on success, settles a receive
// on the proximity channel.
func (h *PresentmentHandler) Tap(c *fiber.Ctx) error {
	return h.present(c, h.NFC, domain.ChannelProximity)
}

// CompleteDialCode runs the simulated dial-code confirmation and, on
// success, settles a receive on the dial-code channel.
func (h *PresentmentHandler) CompleteDialCode(c *fiber.Ctx) error {
	return h.present(c, h.USSD, domain.ChannelDialCode)
}

func (h *PresentmentHandler) present(c *fiber.Ctx, attempter presentment.Attempter, channel domain.Channel) error {
	var req TapRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	amount, err := domain.NewMoney(req.Amount)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid amount"})
	}

	if !attempter.Attempt(req.Amount, req.Counterparty) {
		slog.Warn("Presentment attempt failed", "channel", channel, "account_id", req.AccountID)
		return c.Status(http.StatusBadGateway).JSON(fiber.Map{
			"status":  "failed",
			"message": "Presentment did not complete. Try again.",
		})
	}

	tx, err := h.Engine.Settle(c.Context(), settle.Request{
		AccountID:    req.AccountID,
		Type:         domain.TxReceive,
		Amount:       amount,
		Counterparty: req.Counterparty,
		Channel:      channel,
	})
	if err != nil {
		return settleError(c, err)
	}

	return c.Status(http.StatusCreated).JSON(tx)
}
