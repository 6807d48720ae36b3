package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pesatap/pesatap/internal/core/domain"
	"github.com/pesatap/pesatap/internal/core/ledger"
)

// TransactionLedger is the pgx-backed append-only transaction record.
// Serial ids keep commit order; rows are never updated after insert.
type TransactionLedger struct {
	db *pgxpool.Pool
}

func NewTransactionLedger(db *pgxpool.Pool) *TransactionLedger {
	return &TransactionLedger{db: db}
}

const txColumns = `id, account_id, type, amount::text, fee::text, counterparty, channel, status, offline_sync, created_at`

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var tx domain.Transaction
	var amount, fee string
	err := row.Scan(&tx.ID, &tx.AccountID, &tx.Type, &amount, &fee,
		&tx.Counterparty, &tx.Channel, &tx.Status, &tx.OfflineSync, &tx.CreatedAt)
	if err != nil {
		return nil, err
	}
	if tx.Amount, err = domain.NewMoney(amount); err != nil {
		return nil, fmt.Errorf("stored amount is malformed: %w", err)
	}
	if tx.Fee, err = domain.NewMoney(fee); err != nil {
		return nil, fmt.Errorf("stored fee is malformed: %w", err)
	}
	return &tx, nil
}

// Append inserts a committed record and returns it with its serial id and
// commit timestamp.
func (l *TransactionLedger) Append(ctx context.Context, entry ledger.AppendEntry) (*domain.Transaction, error) {
	query := `
		INSERT INTO transactions (account_id, type, amount, fee, counterparty, channel, status, offline_sync)
		VALUES ($1, $2, $3::numeric, $4::numeric, $5, $6, $7, $8)
		RETURNING ` + txColumns

	tx, err := scanTransaction(l.db.QueryRow(ctx, query,
		entry.AccountID, entry.Type, entry.Amount.String(), entry.Fee.String(),
		entry.Counterparty, entry.Channel, entry.Status, entry.OfflineSync))
	if err != nil {
		return nil, fmt.Errorf("failed to append transaction: %w", err)
	}
	return tx, nil
}

// Get fetches a committed transaction by id.
func (l *TransactionLedger) Get(ctx context.Context, id int64) (*domain.Transaction, error) {
	query := `SELECT ` + txColumns + ` FROM transactions WHERE id = $1`
	tx, err := scanTransaction(l.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrTransactionNotFound
	}
	if err != nil {
		return nil, err
	}
	return tx, nil
}

// ListByAccount returns the account's transactions in commit (id) order.
func (l *TransactionLedger) ListByAccount(ctx context.Context, accountID int64) ([]*domain.Transaction, error) {
	query := `SELECT ` + txColumns + ` FROM transactions WHERE account_id = $1 ORDER BY id ASC`
	rows, err := l.db.Query(ctx, query, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, tx)
	}
	return result, rows.Err()
}
