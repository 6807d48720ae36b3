// Package client is the connectivity-aware facade the app screens talk to.
// Online, a payment goes straight to the settlement engine; offline, it
// lands in the local queue and is replayed by the reconciler later.
package client

import (
	"context"
	"sync/atomic"

	"github.com/pesatap/pesatap/internal/core/domain"
	"github.com/pesatap/pesatap/internal/core/fee"
	"github.com/pesatap/pesatap/internal/core/offline"
	"github.com/pesatap/pesatap/internal/core/settle"
)

// Result is what a payment request returns: exactly one of the two fields
// is set, depending on whether the request reached the system of record.
type Result struct {
	Committed *domain.Transaction        `json:"committed,omitempty"`
	Queued    *domain.PendingTransaction `json:"queued,omitempty"`
}

// Client routes payment requests based on the connectivity toggle.
type Client struct {
	engine     *settle.Engine
	queue      *offline.Queue
	reconciler *offline.Reconciler
	offline    atomic.Bool
}

// New builds a client with its own offline queue, initially online.
func New(engine *settle.Engine) *Client {
	return &Client{
		engine:     engine,
		queue:      offline.NewQueue(),
		reconciler: offline.NewReconciler(engine),
	}
}

// SetOffline flips the connectivity toggle. The signal is external —
// user-driven in the demo app, network-driven in a real one.
func (c *Client) SetOffline(off bool) {
	c.offline.Store(off)
}

// Offline reports the current toggle state.
func (c *Client) Offline() bool {
	return c.offline.Load()
}

// Pay settles the transaction when online, or queues it when offline. The
// queued path never performs a network round trip and returns immediately.
func (c *Client) Pay(ctx context.Context, accountID int64, txType domain.TxType, amount domain.Money, counterparty string, channel domain.Channel) (*Result, error) {
	if c.offline.Load() {
		entry := c.queue.Enqueue(accountID, txType, amount, counterparty, channel)
		return &Result{Queued: entry}, nil
	}

	tx, err := c.engine.Settle(ctx, settle.Request{
		AccountID:    accountID,
		Type:         txType,
		Amount:       amount,
		Counterparty: counterparty,
		Channel:      channel,
	})
	if err != nil {
		return nil, err
	}
	return &Result{Committed: tx}, nil
}

// Pending lists the not-yet-synced entries in enqueue order.
func (c *Client) Pending() []*domain.PendingTransaction {
	return c.queue.List()
}

// SyncPending drains the offline queue against the engine. Safe to call
// repeatedly; entries that already synced are gone from the queue.
func (c *Client) SyncPending(ctx context.Context) (*offline.Report, error) {
	return c.reconciler.Reconcile(ctx, c.queue)
}

// HasSufficientBalance answers whether the balance covers amount plus its
// fee. Informational only — the engine deliberately does not enforce it.
func HasSufficientBalance(acc *domain.Account, amount domain.Money) bool {
	total := amount.Add(fee.ForAmount(amount))
	return acc.Balance.Cmp(total) >= 0
}
