package domain

import (
	"time"

	"github.com/google/uuid"
)

// TxType says which direction money moves relative to the owning account.
type TxType string

const (
	TxSend    TxType = "send"
	TxReceive TxType = "receive"
)

// Valid reports whether t is one of the known transaction types.
func (t TxType) Valid() bool {
	return t == TxSend || t == TxReceive
}

// Channel tags how a transaction was presented. Informational only: the
// ledger treats every channel the same.
type Channel string

const (
	ChannelTransfer  Channel = "transfer"
	ChannelProximity Channel = "proximity"
	ChannelDialCode  Channel = "dial-code"
)

// Valid reports whether c is one of the known channels.
func (c Channel) Valid() bool {
	return c == ChannelTransfer || c == ChannelProximity || c == ChannelDialCode
}

// TxStatus is the lifecycle state of a transaction.
type TxStatus string

const (
	StatusCompleted TxStatus = "completed"
	StatusPending   TxStatus = "pending"
	StatusFailed    TxStatus = "failed"
)

// Account is a registered wallet holder.
// The PIN is stored as a SHA-256 hash and is never serialized or logged.
type Account struct {
	ID              int64     `json:"id"`
	Username        string    `json:"username"`
	PhoneNumber     string    `json:"phone_number"`
	FullName        string    `json:"full_name"`
	Email           string    `json:"email,omitempty"`
	PINHash         string    `json:"-"`
	EnableBiometric bool      `json:"enable_biometric"`
	Balance         Money     `json:"balance"`
	CreatedAt       time.Time `json:"created_at"`
}

// Transaction is an immutable, committed ledger record. IDs are assigned by
// the ledger at commit time and are monotonically increasing.
type Transaction struct {
	ID           int64     `json:"id"`
	AccountID    int64     `json:"account_id"`
	Type         TxType    `json:"type"`
	Amount       Money     `json:"amount"`
	Fee          Money     `json:"fee"`
	Counterparty string    `json:"counterparty"`
	Channel      Channel   `json:"channel"`
	Status       TxStatus  `json:"status"`
	OfflineSync  bool      `json:"offline_sync"`
	CreatedAt    time.Time `json:"created_at"`
}

// ProvisionalID identifies a locally queued transaction that has not reached
// the ledger yet. It is a UUID on purpose: a disjoint id space from the
// ledger's int64 serials, so the two can never be confused or compared.
type ProvisionalID = uuid.UUID

// PendingTransaction is an offline-queued intent. It carries everything a
// later settle call needs; the provisional id is for local bookkeeping only
// and is discarded at reconciliation.
type PendingTransaction struct {
	ProvisionalID ProvisionalID `json:"provisional_id"`
	AccountID     int64         `json:"account_id"`
	Type          TxType        `json:"type"`
	Amount        Money         `json:"amount"`
	Counterparty  string        `json:"counterparty"`
	Channel       Channel       `json:"channel"`
	Status        TxStatus      `json:"status"`
	OfflineSync   bool          `json:"offline_sync"`
	CreatedAt     time.Time     `json:"created_at"`
}
