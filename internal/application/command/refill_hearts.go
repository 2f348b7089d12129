package command

import (
	"context"
	"fmt"

	"github.com/langquest/langquest-core/internal/domain/progress"
	"github.com/langquest/langquest-core/internal/domain/shared"
	"github.com/langquest/langquest-core/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// REFILL HEARTS COMMAND
// Trades RefillCost points for a full heart pool.
// ══════════════════════════════════════════════════════════════════════════════

// RefillHeartsCommand contains the data to refill hearts.
type RefillHeartsCommand struct {
	Identity shared.Identity
}

// Validate validates the command.
func (c RefillHeartsCommand) Validate() error {
	return requireIdentity(c.Identity)
}

// RefillHeartsResult contains the refilled progress row.
type RefillHeartsResult struct {
	Progress *progress.UserProgress
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// RefillHeartsHandler handles RefillHeartsCommand.
type RefillHeartsHandler struct {
	progress    progress.Repository
	invalidator shared.ViewInvalidator
	log         *logger.Logger
}

// NewRefillHeartsHandler creates a new RefillHeartsHandler.
func NewRefillHeartsHandler(progressRepo progress.Repository, invalidator shared.ViewInvalidator, log *logger.Logger) *RefillHeartsHandler {
	return &RefillHeartsHandler{
		progress:    progressRepo,
		invalidator: orNoopInvalidator(invalidator),
		log:         orNop(log).Named("refill_hearts"),
	}
}

// Handle executes the command. Full hearts and missing points are returned as
// business-rule errors.
func (h *RefillHeartsHandler) Handle(ctx context.Context, cmd RefillHeartsCommand) (*RefillHeartsResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	userID := cmd.Identity.UserID

	for attempt := 1; attempt <= maxRaceAttempts; attempt++ {
		p, applied, err := h.progress.Refill(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("refill_hearts: %w", err)
		}

		if applied {
			announce(ctx, h.invalidator, h.log, userID, shared.ProgressViews()...)

			h.log.Info("hearts refilled",
				logger.UserID(userID.String()),
				logger.Int("points", p.Points),
			)
			return &RefillHeartsResult{Progress: p}, nil
		}

		if err := progress.CheckRefill(p); err != nil {
			return nil, err
		}

		h.log.Debug("refill lost a race, retrying",
			logger.UserID(userID.String()),
			logger.Int("attempt", attempt),
		)
	}

	return nil, ErrContention
}
