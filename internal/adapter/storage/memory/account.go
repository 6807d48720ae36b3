// Package memory holds the in-memory storage adapters. They are the
// development default: safe for concurrent use, lost on restart. Production
// deployments swap in the postgres adapters behind the same contracts.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/pesatap/pesatap/internal/core/domain"
	"github.com/pesatap/pesatap/internal/core/ledger"
)

// lockedAccount pairs a stored account with the mutex that serializes its
// balance read-modify-write. Every field except Balance is immutable after
// creation; Balance is only touched with mu held.
type lockedAccount struct {
	mu  sync.Mutex
	acc domain.Account
}

// AccountStore keeps accounts in a map guarded by a table lock, plus one
// mutex per account for the balance mutation. The table lock only guards
// the map itself, so deltas for different accounts run in parallel while
// same-account deltas serialize on the account mutex.
type AccountStore struct {
	mu       sync.RWMutex
	accounts map[int64]*lockedAccount
	nextID   int64
}

// NewAccountStore creates an empty in-memory account store.
func NewAccountStore() *AccountStore {
	return &AccountStore{
		accounts: make(map[int64]*lockedAccount),
		nextID:   1,
	}
}

// Create registers a new account with balance 0.00. Username and phone
// uniqueness are checked under the table lock so two concurrent
// registrations cannot both win.
func (s *AccountStore) Create(ctx context.Context, in ledger.NewAccount) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, la := range s.accounts {
		if la.acc.Username == in.Username {
			return nil, domain.ErrDuplicateUsername
		}
		if la.acc.PhoneNumber == in.PhoneNumber {
			return nil, domain.ErrDuplicatePhoneNumber
		}
	}

	la := &lockedAccount{acc: domain.Account{
		ID:              s.nextID,
		Username:        in.Username,
		PhoneNumber:     in.PhoneNumber,
		FullName:        in.FullName,
		Email:           in.Email,
		PINHash:         in.PINHash,
		EnableBiometric: in.EnableBiometric,
		Balance:         domain.Zero,
		CreatedAt:       time.Now().UTC(),
	}}
	s.nextID++
	s.accounts[la.acc.ID] = la

	cp := la.acc
	return &cp, nil
}

// Get returns a copy of the account, so callers cannot mutate stored state.
func (s *AccountStore) Get(ctx context.Context, id int64) (*domain.Account, error) {
	s.mu.RLock()
	la, ok := s.accounts[id]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return la.snapshot(), nil
}

// FindByUsername looks an account up by its unique username.
func (s *AccountStore) FindByUsername(ctx context.Context, username string) (*domain.Account, error) {
	return s.find(func(acc *domain.Account) bool { return acc.Username == username })
}

// FindByPhone looks an account up by its unique phone number.
func (s *AccountStore) FindByPhone(ctx context.Context, phone string) (*domain.Account, error) {
	return s.find(func(acc *domain.Account) bool { return acc.PhoneNumber == phone })
}

func (s *AccountStore) find(match func(*domain.Account) bool) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, la := range s.accounts {
		// Lookup keys are immutable, so matching needs no account lock.
		if match(&la.acc) {
			return la.snapshot(), nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

// ApplyBalanceDelta atomically adds a signed delta to the account balance.
// The account mutex is held across the whole read-modify-write, so two
// concurrent deltas for the same account can never lose an update.
func (s *AccountStore) ApplyBalanceDelta(ctx context.Context, id int64, delta domain.Money) (*domain.Account, error) {
	s.mu.RLock()
	la, ok := s.accounts[id]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrAccountNotFound
	}

	la.mu.Lock()
	defer la.mu.Unlock()

	la.acc.Balance = la.acc.Balance.Add(delta)
	cp := la.acc
	return &cp, nil
}

// snapshot copies the account under its lock, since Balance may be written
// by a concurrent delta.
func (la *lockedAccount) snapshot() *domain.Account {
	la.mu.Lock()
	defer la.mu.Unlock()
	cp := la.acc
	return &cp
}
