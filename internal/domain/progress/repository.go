package progress

import (
	"context"

	"github.com/langquest/langquest-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Every mutation is a single atomic conditional update or runs in one
// transaction. Implementations live in infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Repository stores UserProgress and ChallengeProgress rows.
type Repository interface {
	// Get returns ErrUserProgressNotFound if the user has no row.
	Get(ctx context.Context, userID shared.UserID) (*UserProgress, error)

	// SelectCourse inserts the row with default hearts and points, or updates
	// the active course together with the display name and avatar.
	SelectCourse(ctx context.Context, identity shared.Identity, courseID int64) (*UserProgress, error)

	// HasChallengeProgress reports whether any row exists for the pair.
	HasChallengeProgress(ctx context.Context, userID shared.UserID, challengeID int64) (bool, error)

	// DecrementHeart takes one heart only if hearts > 0 and no challenge
	// progress row exists for the pair. applied is false when the guard
	// rejected the update; the caller then classifies the outcome.
	DecrementHeart(ctx context.Context, userID shared.UserID, challengeID int64) (hearts int, applied bool, err error)

	// Refill sets hearts to MaxHearts and charges RefillCost only if hearts <
	// MaxHearts and points >= RefillCost. applied is false when rejected.
	Refill(ctx context.Context, userID shared.UserID) (p *UserProgress, applied bool, err error)

	// CompleteChallenge applies DecideCompletion under a row lock and records
	// the challenge progress row.
	CompleteChallenge(ctx context.Context, userID shared.UserID, challengeID int64) (*UserProgress, CompletionOutcome, error)

	// TopByPoints returns users ordered by points descending.
	TopByPoints(ctx context.Context, limit int) ([]*UserProgress, error)
}
