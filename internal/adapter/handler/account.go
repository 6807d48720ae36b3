package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/pesatap/pesatap/internal/core/domain"
	"github.com/pesatap/pesatap/internal/core/ledger"
	"github.com/pesatap/pesatap/internal/core/security"
)

type AccountHandler struct {
	Accounts ledger.AccountStore
}

// RegisterRequest defines what the registration wizard sends us.
type RegisterRequest struct {
	Username        string `json:"username"`
	PhoneNumber     string `json:"phone_number"`
	FullName        string `json:"full_name"`
	Email           string `json:"email"`
	PIN             string `json:"pin"`
	EnableBiometric bool   `json:"enable_biometric"`
}

func (h *AccountHandler) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		slog.Warn("Invalid registration body", "error", err)
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	// Validate before any state is touched.
	if req.Username == "" || req.FullName == "" {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Username and full name are required"})
	}
	if !domain.ValidPhoneNumber(req.PhoneNumber) {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid phone number"})
	}
	if !domain.ValidPIN(req.PIN) {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "PIN must be exactly 4 digits"})
	}

	account, err := h.Accounts.Create(c.Context(), ledger.NewAccount{
		Username:        req.Username,
		PhoneNumber:     req.PhoneNumber,
		FullName:        req.FullName,
		Email:           req.Email,
		PINHash:         security.HashPIN(req.PIN),
		EnableBiometric: req.EnableBiometric,
	})
	if errors.Is(err, domain.ErrDuplicateUsername) || errors.Is(err, domain.ErrDuplicatePhoneNumber) {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if err != nil {
		slog.Error("Failed to create account", "error", err, "username", req.Username)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "Could not create account"})
	}

	slog.Info("✅ Account registered", "id", account.ID, "username", account.Username)

	// The PIN hash is json:"-" so the response never carries it.
	return c.Status(http.StatusCreated).JSON(account)
}

func (h *AccountHandler) GetAccount(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid account id"})
	}

	account, err := h.Accounts.Get(c.Context(), id)
	if errors.Is(err, domain.ErrAccountNotFound) {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "Account not found"})
	}
	if err != nil {
		slog.Error("Failed to fetch account", "error", err, "id", id)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "Could not fetch account"})
	}

	return c.JSON(account)
}
