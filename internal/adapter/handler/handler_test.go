package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pesatap/pesatap/internal/adapter/middleware"
	"github.com/pesatap/pesatap/internal/adapter/storage/memory"
	"github.com/pesatap/pesatap/internal/core/presentment"
	"github.com/pesatap/pesatap/internal/core/settle"
)

// fixedAttempter makes presentment outcomes deterministic in tests.
type fixedAttempter struct{ ok bool }

func (f fixedAttempter) Attempt(amount, counterparty string) bool { return f.ok }

func newTestApp(t *testing.T, nfc presentment.Attempter) *fiber.App {
	t.Helper()
	accounts := memory.NewAccountStore()
	txs := memory.NewTransactionLedger()
	engine := settle.NewEngine(accounts, txs, nil)

	accountHandler := &AccountHandler{Accounts: accounts}
	transactionHandler := &TransactionHandler{Engine: engine, Accounts: accounts, Ledger: txs}
	presentmentHandler := &PresentmentHandler{
		Engine:   engine,
		Accounts: accounts,
		NFC:      nfc,
		USSD:     fixedAttempter{ok: true},
	}

	app := fiber.New()
	api := app.Group("/api")
	api.Post("/auth/register", accountHandler.Register)
	api.Get("/users/:id", accountHandler.GetAccount)
	api.Post("/balance/update", transactionHandler.UpdateBalance)
	api.Post("/transactions", middleware.Idempotency(middleware.NewIdempotencyStore()), transactionHandler.CreateTransaction)
	api.Get("/transactions/user/:userId", transactionHandler.GetHistory)
	api.Post("/ussd/generate", presentmentHandler.GenerateDialCode)
	api.Post("/ussd/complete", presentmentHandler.CompleteDialCode)
	api.Post("/nfc/tap", presentmentHandler.Tap)
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body map[string]interface{}, headers ...map[string]string) (*http.Response, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, h := range headers {
		for k, v := range h {
			req.Header.Set(k, v)
		}
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var parsed map[string]interface{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &parsed), "body: %s", raw)
	}
	return resp, parsed
}

func register(t *testing.T, app *fiber.App, username, phone string) float64 {
	t.Helper()
	resp, body := doJSON(t, app, http.MethodPost, "/api/auth/register", map[string]interface{}{
		"username":     username,
		"phone_number": phone,
		"full_name":    "Test User",
		"pin":          "1234",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return body["id"].(float64)
}

func TestRegister(t *testing.T) {
	app := newTestApp(t, fixedAttempter{ok: true})

	resp, body := doJSON(t, app, http.MethodPost, "/api/auth/register", map[string]interface{}{
		"username":     "asha",
		"phone_number": "+10000000001",
		"full_name":    "Asha Test",
		"email":        "asha@example.com",
		"pin":          "1234",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "asha", body["username"])
	assert.Equal(t, "0.00", body["balance"])
	// The PIN never comes back.
	_, hasPIN := body["pin"]
	assert.False(t, hasPIN)
	_, hasHash := body["pin_hash"]
	assert.False(t, hasHash)
}

func TestRegisterDuplicatePhone(t *testing.T) {
	app := newTestApp(t, fixedAttempter{ok: true})
	register(t, app, "asha", "+10000000001")

	resp, body := doJSON(t, app, http.MethodPost, "/api/auth/register", map[string]interface{}{
		"username":     "benny",
		"phone_number": "+10000000001",
		"full_name":    "Benny Test",
		"pin":          "4321",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["error"], "phone number")

	// The first registration is unaffected.
	resp, body = doJSON(t, app, http.MethodGet, "/api/users/1", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "asha", body["username"])
}

func TestRegisterValidation(t *testing.T) {
	app := newTestApp(t, fixedAttempter{ok: true})

	resp, _ := doJSON(t, app, http.MethodPost, "/api/auth/register", map[string]interface{}{
		"username":     "asha",
		"phone_number": "12",
		"full_name":    "Asha Test",
		"pin":          "1234",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodPost, "/api/auth/register", map[string]interface{}{
		"username":     "asha",
		"phone_number": "+10000000001",
		"full_name":    "Asha Test",
		"pin":          "12ab",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetUserNotFound(t *testing.T) {
	app := newTestApp(t, fixedAttempter{ok: true})
	resp, _ := doJSON(t, app, http.MethodGet, "/api/users/42", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateTransaction(t *testing.T) {
	app := newTestApp(t, fixedAttempter{ok: true})
	id := register(t, app, "asha", "+10000000001")

	resp, body := doJSON(t, app, http.MethodPost, "/api/transactions", map[string]interface{}{
		"account_id":   id,
		"type":         "receive",
		"amount":       "200.00",
		"counterparty": "till 8201",
		"channel":      "dial-code",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "completed", body["status"])
	assert.Equal(t, "1.00", body["fee"])

	resp, body = doJSON(t, app, http.MethodGet, fmt.Sprintf("/api/users/%d", int(id)), nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "199.00", body["balance"])
}

func TestCreateTransactionErrors(t *testing.T) {
	app := newTestApp(t, fixedAttempter{ok: true})
	id := register(t, app, "asha", "+10000000001")

	// Unknown account -> 404.
	resp, _ := doJSON(t, app, http.MethodPost, "/api/transactions", map[string]interface{}{
		"account_id": 999, "type": "receive", "amount": "10.00", "channel": "transfer",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Non-positive amount -> 400.
	resp, _ = doJSON(t, app, http.MethodPost, "/api/transactions", map[string]interface{}{
		"account_id": id, "type": "receive", "amount": "0.00", "channel": "transfer",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Malformed amount -> 400.
	resp, _ = doJSON(t, app, http.MethodPost, "/api/transactions", map[string]interface{}{
		"account_id": id, "type": "receive", "amount": "ten", "channel": "transfer",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Unknown type -> 400.
	resp, _ = doJSON(t, app, http.MethodPost, "/api/transactions", map[string]interface{}{
		"account_id": id, "type": "refund", "amount": "10.00", "channel": "transfer",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateTransactionIdempotency(t *testing.T) {
	app := newTestApp(t, fixedAttempter{ok: true})
	id := register(t, app, "asha", "+10000000001")

	key := map[string]string{"Idempotency-Key": "retry-1"}
	payload := map[string]interface{}{
		"account_id": id, "type": "receive", "amount": "100.00", "channel": "transfer",
	}

	resp, first := doJSON(t, app, http.MethodPost, "/api/transactions", payload, key)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	// The retry replays the cached response instead of settling again.
	resp, second := doJSON(t, app, http.MethodPost, "/api/transactions", payload, key)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "true", resp.Header.Get("X-Idempotency-Hit"))
	assert.Equal(t, first["id"], second["id"])

	resp, body := doJSON(t, app, http.MethodGet, fmt.Sprintf("/api/users/%d", int(id)), nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "99.50", body["balance"])
}

func TestIdempotencyDoesNotCacheFailures(t *testing.T) {
	app := newTestApp(t, fixedAttempter{ok: true})

	key := map[string]string{"Idempotency-Key": "retry-2"}

	// The first attempt fails: the account does not exist yet. A failure
	// must not be replayed once the problem is fixed.
	resp, _ := doJSON(t, app, http.MethodPost, "/api/transactions", map[string]interface{}{
		"account_id": 1, "type": "receive", "amount": "100.00", "channel": "transfer",
	}, key)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	id := register(t, app, "asha", "+10000000001")

	resp, body := doJSON(t, app, http.MethodPost, "/api/transactions", map[string]interface{}{
		"account_id": id, "type": "receive", "amount": "100.00", "channel": "transfer",
	}, key)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Empty(t, resp.Header.Get("X-Idempotency-Hit"))
	assert.Equal(t, "completed", body["status"])
}

func TestHistory(t *testing.T) {
	app := newTestApp(t, fixedAttempter{ok: true})
	id := register(t, app, "asha", "+10000000001")

	for _, amount := range []string{"10.00", "20.00"} {
		resp, _ := doJSON(t, app, http.MethodPost, "/api/transactions", map[string]interface{}{
			"account_id": id, "type": "receive", "amount": amount, "channel": "transfer",
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	resp, body := doJSON(t, app, http.MethodGet, fmt.Sprintf("/api/transactions/user/%d", int(id)), nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	txs := body["transactions"].([]interface{})
	require.Len(t, txs, 2)
	assert.Equal(t, "10.00", txs[0].(map[string]interface{})["amount"])

	resp, _ = doJSON(t, app, http.MethodGet, "/api/transactions/user/999", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestBalanceUpdate(t *testing.T) {
	app := newTestApp(t, fixedAttempter{ok: true})
	id := register(t, app, "asha", "+10000000001")

	resp, body := doJSON(t, app, http.MethodPost, "/api/balance/update", map[string]interface{}{
		"account_id": id, "amount": "25.00",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "25.00", body["balance"])

	resp, _ = doJSON(t, app, http.MethodPost, "/api/balance/update", map[string]interface{}{
		"account_id": 999, "amount": "25.00",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGenerateDialCode(t *testing.T) {
	app := newTestApp(t, fixedAttempter{ok: true})
	id := register(t, app, "asha", "+10000000001")

	resp, body := doJSON(t, app, http.MethodPost, "/api/ussd/generate", map[string]interface{}{
		"account_id": id, "amount": "75.00",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Regexp(t, `^\*123\*[0-9]{6}#$`, body["ussdCode"])
	assert.Equal(t, "75.00", body["amount"])

	resp, _ = doJSON(t, app, http.MethodPost, "/api/ussd/generate", map[string]interface{}{
		"account_id": 999, "amount": "75.00",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTapSettlesReceive(t *testing.T) {
	app := newTestApp(t, fixedAttempter{ok: true})
	id := register(t, app, "asha", "+10000000001")

	resp, body := doJSON(t, app, http.MethodPost, "/api/nfc/tap", map[string]interface{}{
		"account_id": id, "amount": "100.00", "counterparty": "card *4242",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "proximity", body["channel"])
	assert.Equal(t, "0.50", body["fee"])
}

func TestTapFailureDoesNotSettle(t *testing.T) {
	app := newTestApp(t, fixedAttempter{ok: false})
	id := register(t, app, "asha", "+10000000001")

	resp, _ := doJSON(t, app, http.MethodPost, "/api/nfc/tap", map[string]interface{}{
		"account_id": id, "amount": "100.00", "counterparty": "card *4242",
	})
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	resp, body := doJSON(t, app, http.MethodGet, fmt.Sprintf("/api/users/%d", int(id)), nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "0.00", body["balance"])
}
