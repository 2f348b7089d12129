package command

import (
	"context"
	"fmt"

	"github.com/langquest/langquest-core/internal/domain/course"
	"github.com/langquest/langquest-core/internal/domain/progress"
	"github.com/langquest/langquest-core/internal/domain/shared"
	"github.com/langquest/langquest-core/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// COMPLETE CHALLENGE COMMAND
// Records a correct answer. The first correct answer creates the challenge
// progress row; later ones are practice and restore one heart.
// ══════════════════════════════════════════════════════════════════════════════

// CompleteChallengeCommand contains the data to complete a challenge.
type CompleteChallengeCommand struct {
	Identity    shared.Identity
	ChallengeID int64
}

// Validate validates the command.
func (c CompleteChallengeCommand) Validate() error {
	if err := requireIdentity(c.Identity); err != nil {
		return err
	}
	if c.ChallengeID <= 0 {
		return shared.NewDomainError("progress", "CompleteChallenge", shared.ErrInvalidID, "challenge_id must be positive")
	}
	return nil
}

// CompleteChallengeResult contains the outcome and the resulting row.
type CompleteChallengeResult struct {
	Outcome  progress.CompletionOutcome
	Progress *progress.UserProgress
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// CompleteChallengeHandler handles CompleteChallengeCommand.
type CompleteChallengeHandler struct {
	courses     course.Repository
	progress    progress.Repository
	invalidator shared.ViewInvalidator
	log         *logger.Logger
}

// NewCompleteChallengeHandler creates a new CompleteChallengeHandler.
func NewCompleteChallengeHandler(
	courses course.Repository,
	progressRepo progress.Repository,
	invalidator shared.ViewInvalidator,
	log *logger.Logger,
) *CompleteChallengeHandler {
	return &CompleteChallengeHandler{
		courses:     courses,
		progress:    progressRepo,
		invalidator: orNoopInvalidator(invalidator),
		log:         orNop(log).Named("complete_challenge"),
	}
}

// Handle executes the command.
func (h *CompleteChallengeHandler) Handle(ctx context.Context, cmd CompleteChallengeCommand) (*CompleteChallengeResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	userID := cmd.Identity.UserID

	challenge, err := h.courses.GetChallenge(ctx, cmd.ChallengeID)
	if err != nil {
		return nil, fmt.Errorf("complete_challenge: %w", err)
	}

	p, outcome, err := h.progress.CompleteChallenge(ctx, userID, challenge.ID)
	if err != nil {
		return nil, fmt.Errorf("complete_challenge: %w", err)
	}

	if outcome.Mutated() {
		announce(ctx, h.invalidator, h.log, userID,
			append(shared.ProgressViews(), shared.LessonView(challenge.LessonID))...)
	}

	h.log.Info("challenge answered",
		logger.UserID(userID.String()),
		logger.ChallengeID(challenge.ID),
		logger.String("outcome", string(outcome)),
	)

	return &CompleteChallengeResult{Outcome: outcome, Progress: p}, nil
}
