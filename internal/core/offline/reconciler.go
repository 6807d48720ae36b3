package offline

import (
	"context"
	"log/slog"

	"github.com/pesatap/pesatap/internal/core/domain"
	"github.com/pesatap/pesatap/internal/core/settle"
)

// SyncedEntry pairs a drained queue entry with the authoritative transaction
// the ledger assigned for it.
type SyncedEntry struct {
	ProvisionalID domain.ProvisionalID `json:"provisional_id"`
	Committed     *domain.Transaction  `json:"committed"`
}

// FailedEntry records a per-entry failure. The entry stays queued for a
// later retry; failures are never fatal to the run.
type FailedEntry struct {
	ProvisionalID domain.ProvisionalID `json:"provisional_id"`
	Reason        string               `json:"reason"`
}

// Report summarizes one reconciliation run.
type Report struct {
	Synced []SyncedEntry `json:"synced"`
	Failed []FailedEntry `json:"failed"`
}

// Reconciler drains an offline queue through the settlement engine, one
// entry at a time, in enqueue order. Single-flight per queue: the queue
// itself carries the in-flight flag, so a second run over the same queue is
// rejected with ErrSyncInFlight even when it comes from a different
// Reconciler. Distinct queues may reconcile concurrently.
type Reconciler struct {
	engine *settle.Engine
}

// NewReconciler builds a reconciler bound to the authoritative engine.
func NewReconciler(engine *settle.Engine) *Reconciler {
	return &Reconciler{engine: engine}
}

// Reconcile replays every queued entry through the engine. The provisional
// id is ignored for settlement — the ledger assigns a new authoritative id —
// and the entry is removed from the queue only after its settle succeeded.
// Failed entries stay queued; the run continues with the rest.
//
// Re-running after a partial failure is safe: prior successes were removed
// at the moment they committed, so only the leftovers are attempted again.
func (r *Reconciler) Reconcile(ctx context.Context, queue *Queue) (*Report, error) {
	if !queue.beginSync() {
		return nil, domain.ErrSyncInFlight
	}
	defer queue.endSync()

	report := &Report{}
	for _, entry := range queue.List() {
		tx, err := r.engine.Settle(ctx, settle.Request{
			AccountID:    entry.AccountID,
			Type:         entry.Type,
			Amount:       entry.Amount,
			Counterparty: entry.Counterparty,
			Channel:      entry.Channel,
			OfflineSync:  true,
		})
		if err != nil {
			slog.Warn("Sync: entry left queued for retry",
				"provisional_id", entry.ProvisionalID,
				"error", err,
			)
			report.Failed = append(report.Failed, FailedEntry{
				ProvisionalID: entry.ProvisionalID,
				Reason:        err.Error(),
			})
			continue
		}

		queue.Remove(entry.ProvisionalID)
		report.Synced = append(report.Synced, SyncedEntry{
			ProvisionalID: entry.ProvisionalID,
			Committed:     tx,
		})
	}

	slog.Info("🔄 Sync finished",
		"synced", len(report.Synced),
		"failed", len(report.Failed),
		"remaining", queue.Len(),
	)
	return report, nil
}
