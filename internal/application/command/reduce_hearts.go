package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/langquest/langquest-core/internal/domain/course"
	"github.com/langquest/langquest-core/internal/domain/progress"
	"github.com/langquest/langquest-core/internal/domain/shared"
	"github.com/langquest/langquest-core/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// REDUCE HEARTS COMMAND
// Charges one heart for a wrong answer on a challenge the user has not
// engaged with yet. Replays and empty heart pools are outcomes, not errors.
// ══════════════════════════════════════════════════════════════════════════════

// ReduceHeartsCommand contains the data to consume a heart.
type ReduceHeartsCommand struct {
	Identity    shared.Identity
	ChallengeID int64
}

// Validate validates the command.
func (c ReduceHeartsCommand) Validate() error {
	if err := requireIdentity(c.Identity); err != nil {
		return err
	}
	if c.ChallengeID <= 0 {
		return shared.NewDomainError("progress", "ReduceHearts", shared.ErrInvalidID, "challenge_id must be positive")
	}
	return nil
}

// ReduceHeartsResult contains the outcome of consuming a heart.
type ReduceHeartsResult struct {
	Outcome progress.HeartOutcome

	// Hearts is the remaining count. Set only when a heart was deducted.
	Hearts int
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// ReduceHeartsHandler handles ReduceHeartsCommand.
type ReduceHeartsHandler struct {
	courses     course.Repository
	progress    progress.Repository
	invalidator shared.ViewInvalidator
	log         *logger.Logger
}

// NewReduceHeartsHandler creates a new ReduceHeartsHandler.
func NewReduceHeartsHandler(
	courses course.Repository,
	progressRepo progress.Repository,
	invalidator shared.ViewInvalidator,
	log *logger.Logger,
) *ReduceHeartsHandler {
	return &ReduceHeartsHandler{
		courses:     courses,
		progress:    progressRepo,
		invalidator: orNoopInvalidator(invalidator),
		log:         orNop(log).Named("reduce_hearts"),
	}
}

// Handle executes the command.
func (h *ReduceHeartsHandler) Handle(ctx context.Context, cmd ReduceHeartsCommand) (*ReduceHeartsResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	userID := cmd.Identity.UserID

	challenge, err := h.courses.GetChallenge(ctx, cmd.ChallengeID)
	if err != nil {
		return nil, fmt.Errorf("reduce_hearts: %w", err)
	}

	for attempt := 1; attempt <= maxRaceAttempts; attempt++ {
		hearts, applied, err := h.progress.DecrementHeart(ctx, userID, challenge.ID)
		if err != nil {
			return nil, fmt.Errorf("reduce_hearts: %w", err)
		}

		if applied {
			announce(ctx, h.invalidator, h.log, userID,
				append(shared.ProgressViews(), shared.LessonView(challenge.LessonID))...)

			h.log.Info("heart deducted",
				logger.UserID(userID.String()),
				logger.ChallengeID(challenge.ID),
				logger.Int("hearts", hearts),
			)
			return &ReduceHeartsResult{Outcome: progress.HeartDeducted, Hearts: hearts}, nil
		}

		outcome, err := h.classify(ctx, userID, challenge.ID)
		if err != nil {
			return nil, fmt.Errorf("reduce_hearts: %w", err)
		}
		if outcome != progress.HeartDeducted {
			return &ReduceHeartsResult{Outcome: outcome}, nil
		}

		h.log.Debug("heart decrement lost a race, retrying",
			logger.UserID(userID.String()),
			logger.Int("attempt", attempt),
		)
	}

	return nil, ErrContention
}

// classify explains why the guarded decrement did not apply.
func (h *ReduceHeartsHandler) classify(ctx context.Context, userID shared.UserID, challengeID int64) (progress.HeartOutcome, error) {
	engaged, err := h.progress.HasChallengeProgress(ctx, userID, challengeID)
	if err != nil {
		return "", err
	}

	p, err := h.progress.Get(ctx, userID)
	if err != nil && !errors.Is(err, shared.ErrUserProgressNotFound) {
		return "", err
	}

	return progress.ClassifyHeartLoss(engaged, p)
}
