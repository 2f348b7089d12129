package query

import (
	"context"
	"fmt"

	"github.com/langquest/langquest-core/internal/domain/course"
	"github.com/langquest/langquest-core/internal/domain/progress"
	"github.com/langquest/langquest-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET LESSON QUERY
// A lesson page: ordered challenges with options and per-challenge completion,
// the lesson percentage and the user's hearts and points.
// ══════════════════════════════════════════════════════════════════════════════

// GetLessonQuery requests a lesson. A nil LessonID means the active lesson.
type GetLessonQuery struct {
	Identity shared.Identity
	LessonID *int64
}

// ChallengeDTO is a challenge on the lesson page.
type ChallengeDTO struct {
	ID        int64                     `json:"id"`
	Type      course.ChallengeType      `json:"type"`
	Question  string                    `json:"question"`
	Order     int                       `json:"order"`
	Completed bool                      `json:"completed"`
	Options   []*course.ChallengeOption `json:"options"`
}

// LessonResult is the lesson page.
type LessonResult struct {
	ID         int64          `json:"id"`
	UnitID     int64          `json:"unit_id"`
	Title      string         `json:"title"`
	Challenges []ChallengeDTO `json:"challenges"`
	Percentage int            `json:"percentage"`
	Hearts     int            `json:"hearts"`
	Points     int            `json:"points"`
}

// GetLessonHandler handles GetLessonQuery.
type GetLessonHandler struct {
	courses  course.Repository
	progress progress.Repository
}

// NewGetLessonHandler creates a new GetLessonHandler.
func NewGetLessonHandler(courses course.Repository, progressRepo progress.Repository) *GetLessonHandler {
	return &GetLessonHandler{courses: courses, progress: progressRepo}
}

// Handle returns ErrLessonNotFound when the lesson cannot be resolved, which
// includes the case of a finished course with no active lesson.
func (h *GetLessonHandler) Handle(ctx context.Context, q GetLessonQuery) (*LessonResult, error) {
	if !q.Identity.UserID.IsValid() {
		return nil, shared.ErrUnauthenticated
	}
	snap := NewSnapshot(q.Identity.UserID, h.courses, h.progress)

	p, err := snap.UserProgress(ctx)
	if err != nil {
		return nil, fmt.Errorf("get_lesson: %w", err)
	}
	if p == nil {
		return nil, shared.ErrUserProgressNotFound
	}

	lesson, err := snap.Lesson(ctx, q.LessonID)
	if err != nil {
		return nil, fmt.Errorf("get_lesson: %w", err)
	}
	if lesson == nil {
		return nil, shared.ErrLessonNotFound
	}

	result := &LessonResult{
		ID:         lesson.ID,
		UnitID:     lesson.UnitID,
		Title:      lesson.Title,
		Challenges: make([]ChallengeDTO, 0, len(lesson.Challenges)),
		Percentage: progress.LessonPercentage(lesson),
		Hearts:     p.Hearts,
		Points:     p.Points,
	}
	for _, c := range lesson.Challenges {
		result.Challenges = append(result.Challenges, ChallengeDTO{
			ID:        c.ID,
			Type:      c.Type,
			Question:  c.Question,
			Order:     c.Order,
			Completed: progress.ChallengeCompleted(c.Progress),
			Options:   c.Options,
		})
	}
	return result, nil
}
