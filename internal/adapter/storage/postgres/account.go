package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pesatap/pesatap/internal/core/domain"
	"github.com/pesatap/pesatap/internal/core/ledger"
)

// AccountStore is the pgx-backed account store. Balances live in a
// NUMERIC(12,2) column and are scanned through the Money string form so no
// float ever touches a balance.
type AccountStore struct {
	db *pgxpool.Pool
}

func NewAccountStore(db *pgxpool.Pool) *AccountStore {
	return &AccountStore{db: db}
}

const accountColumns = `id, username, phone_number, full_name, COALESCE(email, ''), pin_hash, enable_biometric, balance::text, created_at`

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var acc domain.Account
	var balance string
	err := row.Scan(&acc.ID, &acc.Username, &acc.PhoneNumber, &acc.FullName,
		&acc.Email, &acc.PINHash, &acc.EnableBiometric, &balance, &acc.CreatedAt)
	if err != nil {
		return nil, err
	}
	acc.Balance, err = domain.NewMoney(balance)
	if err != nil {
		return nil, fmt.Errorf("stored balance is malformed: %w", err)
	}
	return &acc, nil
}

// Create registers a new account with balance 0.00. Uniqueness is enforced
// by the unique indexes on username and phone_number; constraint violations
// are mapped back onto the domain errors.
func (s *AccountStore) Create(ctx context.Context, in ledger.NewAccount) (*domain.Account, error) {
	query := `
		INSERT INTO accounts (username, phone_number, full_name, email, pin_hash, enable_biometric, balance)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, 0)
		RETURNING ` + accountColumns

	acc, err := scanAccount(s.db.QueryRow(ctx, query,
		in.Username, in.PhoneNumber, in.FullName, in.Email, in.PINHash, in.EnableBiometric))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			switch pgErr.ConstraintName {
			case "accounts_username_key":
				return nil, domain.ErrDuplicateUsername
			case "accounts_phone_number_key":
				return nil, domain.ErrDuplicatePhoneNumber
			}
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	return acc, nil
}

// Get fetches an account by id.
func (s *AccountStore) Get(ctx context.Context, id int64) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	acc, err := scanAccount(s.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return acc, nil
}

// FindByUsername fetches an account by its unique username.
func (s *AccountStore) FindByUsername(ctx context.Context, username string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE username = $1`
	acc, err := scanAccount(s.db.QueryRow(ctx, query, username))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return acc, nil
}

// FindByPhone fetches an account by its unique phone number.
func (s *AccountStore) FindByPhone(ctx context.Context, phone string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE phone_number = $1`
	acc, err := scanAccount(s.db.QueryRow(ctx, query, phone))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return acc, nil
}

// ApplyBalanceDelta adds a signed delta to the balance under a row lock.
// SELECT ... FOR UPDATE serializes concurrent deltas for the same account;
// deltas for different accounts lock different rows and proceed in parallel.
func (s *AccountStore) ApplyBalanceDelta(ctx context.Context, id int64, delta domain.Money) (*domain.Account, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var balance string
	err = tx.QueryRow(ctx, `SELECT balance::text FROM accounts WHERE id = $1 FOR UPDATE`, id).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}

	current, err := domain.NewMoney(balance)
	if err != nil {
		return nil, fmt.Errorf("stored balance is malformed: %w", err)
	}
	next := current.Add(delta)

	query := `UPDATE accounts SET balance = $1::numeric WHERE id = $2 RETURNING ` + accountColumns
	acc, err := scanAccount(tx.QueryRow(ctx, query, next.String(), id))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return acc, nil
}
