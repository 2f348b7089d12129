package progress

import (
	"math"

	"github.com/langquest/langquest-core/internal/domain/course"
	"github.com/langquest/langquest-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEART RULES
// ══════════════════════════════════════════════════════════════════════════════

// ClassifyHeartLoss decides the outcome of a heart consumption from the state
// observed when the atomic decrement did not apply. An existing challenge
// progress row takes precedence over the heart count.
func ClassifyHeartLoss(engaged bool, p *UserProgress) (HeartOutcome, error) {
	if engaged {
		return HeartPractice, nil
	}
	if p == nil {
		return "", shared.ErrUserProgressNotFound
	}
	if p.Hearts <= 0 {
		return HeartNoHearts, nil
	}
	return HeartDeducted, nil
}

// CheckRefill returns the hard error that rejects a refill, or nil.
func CheckRefill(p *UserProgress) error {
	if p == nil {
		return shared.ErrUserProgressNotFound
	}
	if p.HeartsFull() {
		return shared.ErrHeartsFull
	}
	if p.Points < RefillCost {
		return shared.ErrNotEnoughPoints
	}
	return nil
}

// CompletionDecision is the state change for a correct answer.
type CompletionDecision struct {
	Outcome CompletionOutcome
	// InsertRow is set when no progress row exists yet.
	InsertRow bool
	Hearts    int
	Points    int
}

// DecideCompletion computes the effect of a correct answer. Practice replays
// award points and give back one heart up to capacity. A fresh challenge
// answered with zero hearts changes nothing.
func DecideCompletion(p *UserProgress, engaged bool) CompletionDecision {
	if engaged {
		return CompletionDecision{
			Outcome: CompletionPractice,
			Hearts:  min(p.Hearts+1, MaxHearts),
			Points:  p.Points + ChallengePoints,
		}
	}
	if p.Hearts <= 0 {
		return CompletionDecision{
			Outcome: CompletionNoHearts,
			Hearts:  p.Hearts,
			Points:  p.Points,
		}
	}
	return CompletionDecision{
		Outcome:   CompletionFirst,
		InsertRow: true,
		Hearts:    p.Hearts,
		Points:    p.Points + ChallengePoints,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// DERIVED VIEWS
// ══════════════════════════════════════════════════════════════════════════════

// ChallengeCompleted reports whether a challenge is completed for the user
// owning the rows: at least one row exists and all rows are completed.
func ChallengeCompleted(rows []course.ChallengeProgressRow) bool {
	if len(rows) == 0 {
		return false
	}
	for _, r := range rows {
		if !r.Completed {
			return false
		}
	}
	return true
}

// LessonCompleted reports whether every challenge of the lesson is completed.
// A lesson without challenges is not completed.
func LessonCompleted(l *course.Lesson) bool {
	if l == nil || len(l.Challenges) == 0 {
		return false
	}
	for _, c := range l.Challenges {
		if !ChallengeCompleted(c.Progress) {
			return false
		}
	}
	return true
}

// hasIncompleteChallenge reports whether the lesson contains a challenge that
// is not completed. Lessons without challenges never do.
func hasIncompleteChallenge(l *course.Lesson) bool {
	for _, c := range l.Challenges {
		if !ChallengeCompleted(c.Progress) {
			return true
		}
	}
	return false
}

// ActiveLesson returns the first lesson, in unit order then lesson order,
// containing an incomplete challenge. Units and lessons must already be
// ordered. Returns nil when everything is completed.
func ActiveLesson(units []*course.Unit) *course.Lesson {
	for _, u := range units {
		for _, l := range u.Lessons {
			if hasIncompleteChallenge(l) {
				return l
			}
		}
	}
	return nil
}

// LessonPercentage returns round(100 * completed / total) for the lesson, or
// 0 when the lesson is nil or has no challenges. Halves round up.
func LessonPercentage(l *course.Lesson) int {
	if l == nil || len(l.Challenges) == 0 {
		return 0
	}
	completed := 0
	for _, c := range l.Challenges {
		if ChallengeCompleted(c.Progress) {
			completed++
		}
	}
	return int(math.Floor(float64(completed)*100/float64(len(l.Challenges)) + 0.5))
}
