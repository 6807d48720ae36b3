package offline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pesatap/pesatap/internal/adapter/storage/memory"
	"github.com/pesatap/pesatap/internal/core/domain"
	"github.com/pesatap/pesatap/internal/core/ledger"
	"github.com/pesatap/pesatap/internal/core/settle"
)

func newTestWorld(t *testing.T) (*settle.Engine, *memory.AccountStore, *memory.TransactionLedger, *domain.Account) {
	t.Helper()
	accounts := memory.NewAccountStore()
	txs := memory.NewTransactionLedger()
	engine := settle.NewEngine(accounts, txs, nil)

	acc, err := accounts.Create(context.Background(), ledger.NewAccount{
		Username:    "asha",
		PhoneNumber: "+10000000001",
		FullName:    "Asha Test",
		PINHash:     "deadbeef",
	})
	require.NoError(t, err)
	return engine, accounts, txs, acc
}

func TestReconcileDrainsInOrder(t *testing.T) {
	ctx := context.Background()
	engine, accounts, txs, acc := newTestWorld(t)

	q := NewQueue()
	q.Enqueue(acc.ID, domain.TxReceive, domain.MustMoney("10.00"), "a", domain.ChannelTransfer)
	q.Enqueue(acc.ID, domain.TxReceive, domain.MustMoney("20.00"), "b", domain.ChannelTransfer)

	report, err := NewReconciler(engine).Reconcile(ctx, q)
	require.NoError(t, err)

	assert.Len(t, report.Synced, 2)
	assert.Empty(t, report.Failed)
	assert.Equal(t, 0, q.Len())

	// The ledger committed E1 before E2, with fresh authoritative ids.
	list, err := txs.ListByAccount(ctx, acc.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "10.00", list[0].Amount.String())
	assert.Equal(t, "20.00", list[1].Amount.String())
	assert.Less(t, list[0].ID, list[1].ID)
	assert.True(t, list[0].OfflineSync)
	assert.Equal(t, domain.StatusCompleted, list[0].Status)

	// 10.00 - 0.05 + 20.00 - 0.10
	after, err := accounts.Get(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, "29.85", after.Balance.String())
}

func TestReconcileLeavesFailedEntriesQueued(t *testing.T) {
	ctx := context.Background()
	engine, _, txs, acc := newTestWorld(t)

	q := NewQueue()
	q.Enqueue(acc.ID, domain.TxReceive, domain.MustMoney("10.00"), "a", domain.ChannelTransfer)
	// Account 999 does not exist; this entry must fail without aborting the rest.
	bad := q.Enqueue(999, domain.TxReceive, domain.MustMoney("5.00"), "b", domain.ChannelTransfer)
	q.Enqueue(acc.ID, domain.TxReceive, domain.MustMoney("20.00"), "c", domain.ChannelTransfer)

	report, err := NewReconciler(engine).Reconcile(ctx, q)
	require.NoError(t, err)

	assert.Len(t, report.Synced, 2)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, bad.ProvisionalID, report.Failed[0].ProvisionalID)

	// The failed entry stays queued for retry.
	remaining := q.List()
	require.Len(t, remaining, 1)
	assert.Equal(t, bad.ProvisionalID, remaining[0].ProvisionalID)

	list, err := txs.ListByAccount(ctx, acc.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestReconcileIsIdempotent(t *testing.T) {
	ctx := context.Background()
	engine, accounts, txs, acc := newTestWorld(t)

	q := NewQueue()
	q.Enqueue(acc.ID, domain.TxReceive, domain.MustMoney("100.00"), "a", domain.ChannelTransfer)

	r := NewReconciler(engine)
	_, err := r.Reconcile(ctx, q)
	require.NoError(t, err)

	before, err := accounts.Get(ctx, acc.ID)
	require.NoError(t, err)

	// A second run over the drained queue settles nothing.
	report, err := r.Reconcile(ctx, q)
	require.NoError(t, err)
	assert.Empty(t, report.Synced)
	assert.Empty(t, report.Failed)

	after, err := accounts.Get(ctx, acc.ID)
	require.NoError(t, err)
	assert.True(t, before.Balance.Equal(after.Balance))

	list, err := txs.ListByAccount(ctx, acc.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

// slowAccounts delays every balance delta so a reconcile run can be caught
// in flight.
type slowAccounts struct {
	ledger.AccountStore
	delay time.Duration
}

func (s *slowAccounts) ApplyBalanceDelta(ctx context.Context, id int64, delta domain.Money) (*domain.Account, error) {
	time.Sleep(s.delay)
	return s.AccountStore.ApplyBalanceDelta(ctx, id, delta)
}

func TestReconcileSingleFlight(t *testing.T) {
	ctx := context.Background()
	accounts := memory.NewAccountStore()
	txs := memory.NewTransactionLedger()

	acc, err := accounts.Create(ctx, ledger.NewAccount{
		Username:    "asha",
		PhoneNumber: "+10000000001",
		FullName:    "Asha Test",
		PINHash:     "deadbeef",
	})
	require.NoError(t, err)

	engine := settle.NewEngine(&slowAccounts{AccountStore: accounts, delay: 200 * time.Millisecond}, txs, nil)
	r := NewReconciler(engine)

	q := NewQueue()
	q.Enqueue(acc.ID, domain.TxReceive, domain.MustMoney("10.00"), "a", domain.ChannelTransfer)

	done := make(chan error, 1)
	go func() {
		_, err := r.Reconcile(ctx, q)
		done <- err
	}()

	// Give the first run time to enter its settle call, then race it.
	time.Sleep(50 * time.Millisecond)
	_, err = r.Reconcile(ctx, q)
	assert.ErrorIs(t, err, domain.ErrSyncInFlight)

	require.NoError(t, <-done)
	assert.Equal(t, 0, q.Len())
}

func TestReconcileSingleFlightAcrossReconcilers(t *testing.T) {
	ctx := context.Background()
	accounts := memory.NewAccountStore()
	txs := memory.NewTransactionLedger()

	acc, err := accounts.Create(ctx, ledger.NewAccount{
		Username:    "asha",
		PhoneNumber: "+10000000001",
		FullName:    "Asha Test",
		PINHash:     "deadbeef",
	})
	require.NoError(t, err)

	engine := settle.NewEngine(&slowAccounts{AccountStore: accounts, delay: 200 * time.Millisecond}, txs, nil)

	// The in-flight flag lives on the queue, so even two separate
	// reconcilers draining the same queue cannot both settle its entry.
	q := NewQueue()
	q.Enqueue(acc.ID, domain.TxReceive, domain.MustMoney("100.00"), "a", domain.ChannelTransfer)

	done := make(chan error, 1)
	go func() {
		_, err := NewReconciler(engine).Reconcile(ctx, q)
		done <- err
	}()

	time.Sleep(50 * time.Millisecond)
	_, err = NewReconciler(engine).Reconcile(ctx, q)
	assert.ErrorIs(t, err, domain.ErrSyncInFlight)

	require.NoError(t, <-done)
	assert.Equal(t, 0, q.Len())

	// The entry settled exactly once: one ledger record, one balance delta.
	list, err := txs.ListByAccount(ctx, acc.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	after, err := accounts.Get(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, "99.50", after.Balance.String())
}
