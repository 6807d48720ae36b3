// Package settle is the only path by which a transaction may affect an
// account balance.
package settle

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pesatap/pesatap/internal/core/domain"
	"github.com/pesatap/pesatap/internal/core/fee"
	"github.com/pesatap/pesatap/internal/core/ledger"
)

// Notifier is told about every committed transaction. Implementations must
// not block the settle path; the webhook worker feeds a buffered channel.
type Notifier interface {
	SettlementCommitted(tx *domain.Transaction)
}

// Request carries everything a settlement needs. No fee: the engine computes
// it, and nothing a caller sends can override that.
type Request struct {
	AccountID    int64
	Type         domain.TxType
	Amount       domain.Money
	Counterparty string
	Channel      domain.Channel
	// OfflineSync marks transactions replayed from an offline queue.
	OfflineSync bool
}

// Engine orchestrates fee computation, ledger append and balance mutation
// as one logical unit per transaction.
type Engine struct {
	accounts ledger.AccountStore
	txs      ledger.TransactionLedger
	notifier Notifier
}

// NewEngine wires the engine to its stores. notifier may be nil.
func NewEngine(accounts ledger.AccountStore, txs ledger.TransactionLedger, notifier Notifier) *Engine {
	return &Engine{accounts: accounts, txs: txs, notifier: notifier}
}

// Settle commits one transaction: validate, compute the fee, append the
// ledger entry, apply the signed balance delta.
//
// Balance sign convention: receive credits amount-fee, send debits
// amount+fee. Sends are deliberately permissive — there is no minimum
// balance check, matching the product behavior; clients that want to warn
// use the sufficient-balance helper on the client facade.
//
// Atomicity: the append happens first. If the balance update then fails, a
// compensating reversal entry is appended and the error is surfaced as a
// SettlementInconsistencyError; it is never swallowed.
func (e *Engine) Settle(ctx context.Context, req Request) (*domain.Transaction, error) {
	// Validation runs up front; nothing below touches state until it passes.
	if _, err := e.accounts.Get(ctx, req.AccountID); err != nil {
		return nil, err
	}
	if !req.Amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}
	if !req.Type.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidType, req.Type)
	}
	if !req.Channel.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidChannel, req.Channel)
	}

	txFee := fee.ForAmount(req.Amount)

	var delta domain.Money
	switch req.Type {
	case domain.TxReceive:
		delta = req.Amount.Sub(txFee)
	case domain.TxSend:
		delta = req.Amount.Add(txFee).Neg()
	}

	tx, err := e.txs.Append(ctx, ledger.AppendEntry{
		AccountID:    req.AccountID,
		Type:         req.Type,
		Amount:       req.Amount,
		Fee:          txFee,
		Counterparty: req.Counterparty,
		Channel:      req.Channel,
		Status:       domain.StatusCompleted,
		OfflineSync:  req.OfflineSync,
	})
	if err != nil {
		return nil, fmt.Errorf("ledger append failed: %w", err)
	}

	if _, err := e.accounts.ApplyBalanceDelta(ctx, req.AccountID, delta); err != nil {
		return nil, e.reverse(ctx, tx, err)
	}

	slog.Info("💸 Settlement committed",
		"tx_id", tx.ID,
		"account_id", tx.AccountID,
		"type", tx.Type,
		"amount", tx.Amount,
		"fee", tx.Fee,
		"channel", tx.Channel,
	)

	if e.notifier != nil {
		e.notifier.SettlementCommitted(tx)
	}
	return tx, nil
}

// reverse appends a compensating entry after a failed balance update. The
// reversal carries no balance effect of its own; it exists so the ledger
// tells the truth about what happened.
func (e *Engine) reverse(ctx context.Context, tx *domain.Transaction, balanceErr error) error {
	_, revErr := e.txs.Append(ctx, ledger.AppendEntry{
		AccountID:    tx.AccountID,
		Type:         tx.Type,
		Amount:       tx.Amount,
		Fee:          tx.Fee,
		Counterparty: "reversal of tx " + fmt.Sprint(tx.ID),
		Channel:      tx.Channel,
		Status:       domain.StatusFailed,
		OfflineSync:  tx.OfflineSync,
	})

	incErr := &domain.SettlementInconsistencyError{
		TransactionID: tx.ID,
		AccountID:     tx.AccountID,
		BalanceErr:    balanceErr,
		ReversalErr:   revErr,
		Reversed:      revErr == nil,
	}

	// This is the one error class that must be loud: the ledger and the
	// balance disagreed mid-settlement.
	slog.Error("🚨 Settlement inconsistency",
		"tx_id", tx.ID,
		"account_id", tx.AccountID,
		"balance_error", balanceErr,
		"reversed", incErr.Reversed,
	)
	return incErr
}
