package worker

import (
	"log/slog"
	"time"

	"github.com/pesatap/pesatap/internal/core/domain"
	"github.com/pesatap/pesatap/internal/core/notifications"
)

const (
	maxAttempts = 5
	queueDepth  = 64
)

// Dispatcher delivers settlement webhooks in the background. The settle
// path hands it committed transactions through a buffered channel; delivery
// failures retry with a growing backoff and give up after maxAttempts.
type Dispatcher struct {
	url    string
	secret string
	events chan *domain.Transaction
	done   chan struct{}
}

// NewDispatcher builds a dispatcher for the subscriber URL. An empty URL
// disables delivery; events are accepted and dropped.
func NewDispatcher(url, secret string) *Dispatcher {
	return &Dispatcher{
		url:    url,
		secret: secret,
		events: make(chan *domain.Transaction, queueDepth),
		done:   make(chan struct{}),
	}
}

// SettlementCommitted implements settle.Notifier. It never blocks the
// settle path: if the buffer is full the event is dropped with a warning.
func (d *Dispatcher) SettlementCommitted(tx *domain.Transaction) {
	select {
	case d.events <- tx:
	default:
		slog.Warn("⚠️ Webhook buffer full, dropping event", "tx_id", tx.ID)
	}
}

// Start launches the delivery goroutine.
func (d *Dispatcher) Start() {
	go func() {
		slog.Info("👷 Webhook dispatcher started")
		for {
			select {
			case tx := <-d.events:
				d.deliver(tx)
			case <-d.done:
				return
			}
		}
	}()
}

// Stop ends the delivery goroutine. Buffered events are abandoned.
func (d *Dispatcher) Stop() {
	close(d.done)
}

func (d *Dispatcher) deliver(tx *domain.Transaction) {
	if d.url == "" {
		return
	}

	payload := map[string]interface{}{
		"event": "transaction.completed",
		"data": map[string]interface{}{
			"id":           tx.ID,
			"account_id":   tx.AccountID,
			"type":         tx.Type,
			"amount":       tx.Amount,
			"fee":          tx.Fee,
			"channel":      tx.Channel,
			"offline_sync": tx.OfflineSync,
			"timestamp":    tx.CreatedAt,
		},
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := notifications.SendWebhook(d.url, payload, d.secret)
		if err == nil {
			slog.Info("✅ Webhook delivered", "tx_id", tx.ID, "attempt", attempt)
			return
		}

		slog.Error("Webhook delivery failed", "error", err, "tx_id", tx.ID, "attempt", attempt)
		if attempt < maxAttempts {
			time.Sleep(time.Duration(attempt*10) * time.Second)
		}
	}
	slog.Error("❌ Webhook abandoned after max attempts", "tx_id", tx.ID)
}
