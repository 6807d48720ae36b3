package middleware

import (
	"log/slog"
	"sync"

	"github.com/gofiber/fiber/v2"
)

type cachedResponse struct {
	status int
	body   []byte
}

// IdempotencyStore is the process-local replay cache. It works the same for
// both storage drivers; a multi-instance deployment would back this with a
// shared table instead.
type IdempotencyStore struct {
	mu   sync.Mutex
	seen map[string]cachedResponse
}

func NewIdempotencyStore() *IdempotencyStore {
	return &IdempotencyStore{seen: make(map[string]cachedResponse)}
}

// Idempotency replays the cached response for a repeated Idempotency-Key,
// so a retried POST /transactions cannot settle twice. Requests without the
// header pass straight through.
func Idempotency(store *IdempotencyStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Get("Idempotency-Key")
		if key == "" {
			return c.Next()
		}

		store.mu.Lock()
		cached, hit := store.seen[key]
		store.mu.Unlock()

		if hit {
			slog.Info("🛑 Idempotency hit, returning cached response", "key", key)
			c.Set("X-Idempotency-Hit", "true")
			c.Set("Content-Type", "application/json")
			return c.Status(cached.status).Send(cached.body)
		}

		if err := c.Next(); err != nil {
			return err
		}

		status := c.Response().StatusCode()

		// Only successes are worth replaying. Caching a 4xx/5xx would pin a
		// client to a transient failure on every retry of the same key.
		if status < 200 || status >= 300 {
			return nil
		}

		body := make([]byte, len(c.Response().Body()))
		copy(body, c.Response().Body())

		store.mu.Lock()
		if _, exists := store.seen[key]; !exists {
			store.seen[key] = cachedResponse{status: status, body: body}
		}
		store.mu.Unlock()

		return nil
	}
}
