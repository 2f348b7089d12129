// Package progress holds the per-user learning state of LangQuest: the
// hearts/points row, per-challenge progress records and the pure rules that
// govern them.
//
// Hearts are a scarce consumable in the range [0, MaxHearts]. A user is charged
// at most one heart per challenge: once a ChallengeProgress row exists for a
// (user, challenge) pair, every later attempt is practice. Points are earned by
// completing challenges and spent on refills.
package progress

import (
	"time"

	"github.com/langquest/langquest-core/internal/domain/shared"
)

const (
	// MaxHearts is the heart capacity and the value of a fresh row.
	MaxHearts = 5

	// RefillCost is the flat price of a refill in points.
	RefillCost = 50

	// ChallengePoints is awarded for every completed challenge.
	ChallengePoints = 10
)

// ══════════════════════════════════════════════════════════════════════════════
// ENTITIES
// ══════════════════════════════════════════════════════════════════════════════

// UserProgress is the single mutable row per user.
type UserProgress struct {
	UserID         shared.UserID `json:"user_id"`
	UserName       string        `json:"user_name"`
	UserImageSrc   string        `json:"user_image_src"`
	ActiveCourseID *int64        `json:"active_course_id,omitempty"`
	Hearts         int           `json:"hearts"`
	Points         int           `json:"points"`
}

// NewUserProgress builds the row inserted on a user's first course selection.
func NewUserProgress(identity shared.Identity, courseID int64) *UserProgress {
	return &UserProgress{
		UserID:         identity.UserID,
		UserName:       identity.DisplayName(),
		UserImageSrc:   identity.ImageSrc(),
		ActiveCourseID: &courseID,
		Hearts:         MaxHearts,
		Points:         0,
	}
}

// HasActiveCourse reports whether the user picked a course.
func (p *UserProgress) HasActiveCourse() bool {
	return p != nil && p.ActiveCourseID != nil
}

// HeartsFull reports whether a refill would be pointless.
func (p *UserProgress) HeartsFull() bool {
	return p.Hearts >= MaxHearts
}

// ChallengeProgress is the completion record of one (user, challenge) pair.
type ChallengeProgress struct {
	ID          int64         `json:"id"`
	UserID      shared.UserID `json:"user_id"`
	ChallengeID int64         `json:"challenge_id"`
	Completed   bool          `json:"completed"`
	CreatedAt   time.Time     `json:"created_at"`
}

// ══════════════════════════════════════════════════════════════════════════════
// OUTCOMES
// Guarded business outcomes are returned as data, never as errors.
// ══════════════════════════════════════════════════════════════════════════════

// HeartOutcome is the result of consuming a heart.
type HeartOutcome string

const (
	// HeartDeducted means exactly one heart was taken.
	HeartDeducted HeartOutcome = "deducted"

	// HeartPractice means the challenge was already engaged and nothing changed.
	HeartPractice HeartOutcome = "practice"

	// HeartNoHearts means the user is out of hearts and nothing changed.
	HeartNoHearts HeartOutcome = "no_hearts"
)

// CompletionOutcome is the result of submitting a correct answer.
type CompletionOutcome string

const (
	// CompletionFirst means a new progress row was recorded.
	CompletionFirst CompletionOutcome = "completed"

	// CompletionPractice means an already engaged challenge was replayed.
	CompletionPractice CompletionOutcome = "practice"

	// CompletionNoHearts means a fresh challenge was answered with zero hearts.
	CompletionNoHearts CompletionOutcome = "no_hearts"
)

// Mutated reports whether the outcome changed stored state.
func (o CompletionOutcome) Mutated() bool {
	return o == CompletionFirst || o == CompletionPractice
}
