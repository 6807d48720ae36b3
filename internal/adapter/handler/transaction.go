package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/pesatap/pesatap/internal/core/domain"
	"github.com/pesatap/pesatap/internal/core/ledger"
	"github.com/pesatap/pesatap/internal/core/settle"
)

type TransactionHandler struct {
	Engine   *settle.Engine
	Accounts ledger.AccountStore
	Ledger   ledger.TransactionLedger
}

// CreateTransactionRequest carries a settle request over the wire. There is
// no fee field on purpose: the engine computes it and callers cannot.
type CreateTransactionRequest struct {
	AccountID    int64  `json:"account_id"`
	Type         string `json:"type"`
	Amount       string `json:"amount"`
	Counterparty string `json:"counterparty"`
	Channel      string `json:"channel"`
	OfflineSync  bool   `json:"offline_sync"`
}

// UpdateBalanceRequest applies a raw signed delta. Dev/admin surface only;
// normal balance movement goes through transactions.
type UpdateBalanceRequest struct {
	AccountID int64  `json:"account_id"`
	Amount    string `json:"amount"`
}

func (h *TransactionHandler) CreateTransaction(c *fiber.Ctx) error {
	var req CreateTransactionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	amount, err := domain.NewMoney(req.Amount)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid amount"})
	}

	tx, err := h.Engine.Settle(c.Context(), settle.Request{
		AccountID:    req.AccountID,
		Type:         domain.TxType(req.Type),
		Amount:       amount,
		Counterparty: req.Counterparty,
		Channel:      domain.Channel(req.Channel),
		OfflineSync:  req.OfflineSync,
	})
	if err != nil {
		return settleError(c, err)
	}

	return c.Status(http.StatusCreated).JSON(tx)
}

func (h *TransactionHandler) GetHistory(c *fiber.Ctx) error {
	accountID, err := strconv.ParseInt(c.Params("userId"), 10, 64)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid account id"})
	}

	if _, err := h.Accounts.Get(c.Context(), accountID); err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "Account not found"})
		}
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "Could not fetch account"})
	}

	txs, err := h.Ledger.ListByAccount(c.Context(), accountID)
	if err != nil {
		slog.Error("Failed to fetch history", "error", err, "account_id", accountID)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "Could not fetch history"})
	}

	return c.JSON(fiber.Map{"transactions": txs})
}

func (h *TransactionHandler) UpdateBalance(c *fiber.Ctx) error {
	var req UpdateBalanceRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	delta, err := domain.NewMoney(req.Amount)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid amount"})
	}

	account, err := h.Accounts.ApplyBalanceDelta(c.Context(), req.AccountID, delta)
	if errors.Is(err, domain.ErrAccountNotFound) {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "Account not found"})
	}
	if err != nil {
		slog.Error("Failed to update balance", "error", err, "account_id", req.AccountID)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "Could not update balance"})
	}

	return c.JSON(fiber.Map{"balance": account.Balance})
}

// settleError maps engine failures onto status codes: not-found 404,
// validation 400, inconsistency and everything unexpected 500. The
// inconsistency case is logged loudly by the engine already; here it only
// must not look like a retryable validation problem.
func settleError(c *fiber.Ctx, err error) error {
	var inconsistency *domain.SettlementInconsistencyError
	switch {
	case errors.Is(err, domain.ErrAccountNotFound):
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "Account not found"})
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidType),
		errors.Is(err, domain.ErrInvalidChannel):
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.As(err, &inconsistency):
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "Settlement inconsistency, contact support"})
	default:
		slog.Error("Settlement failed", "error", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "Could not complete transaction"})
	}
}
