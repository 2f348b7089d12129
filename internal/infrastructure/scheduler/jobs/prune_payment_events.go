package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/langquest/langquest-core/internal/domain/shared"
	"github.com/langquest/langquest-core/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// PRUNE PAYMENT EVENTS JOB
// ══════════════════════════════════════════════════════════════════════════════

// DefaultLedgerRetention is how long processed payment event ids are kept.
// Providers stop redelivering well before this.
const DefaultLedgerRetention = 30 * 24 * time.Hour

// LedgerPruner deletes old processed-event records.
type LedgerPruner interface {
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// PruneLedgerJob trims the payment event ledger.
type PruneLedgerJob struct {
	ledger    LedgerPruner
	retention time.Duration
	clock     shared.Clock
	log       *logger.Logger
}

// NewPruneLedgerJob creates the job. A non-positive retention falls back to
// DefaultLedgerRetention.
func NewPruneLedgerJob(ledger LedgerPruner, retention time.Duration, clock shared.Clock, log *logger.Logger) *PruneLedgerJob {
	if retention <= 0 {
		retention = DefaultLedgerRetention
	}
	if clock == nil {
		clock = shared.SystemClock{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &PruneLedgerJob{ledger: ledger, retention: retention, clock: clock, log: log}
}

// Name returns the job name.
func (j *PruneLedgerJob) Name() string {
	return "prune_payment_events"
}

// Description returns a human-readable description.
func (j *PruneLedgerJob) Description() string {
	return "Deletes processed payment event ids past the retention window"
}

// Run executes the prune.
func (j *PruneLedgerJob) Run(ctx context.Context) error {
	if j.ledger == nil {
		return errors.New("prune_payment_events: no ledger configured")
	}

	cutoff := j.clock.Now().Add(-j.retention)
	deleted, err := j.ledger.PruneBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("prune payment events: %w", err)
	}

	if deleted > 0 {
		j.log.Info("payment events pruned",
			logger.Int64("deleted", deleted),
			logger.Time("cutoff", cutoff),
		)
	}
	return nil
}
