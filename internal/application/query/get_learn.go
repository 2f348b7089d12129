package query

import (
	"context"
	"fmt"

	"github.com/langquest/langquest-core/internal/domain/course"
	"github.com/langquest/langquest-core/internal/domain/progress"
	"github.com/langquest/langquest-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// DTOs
// ══════════════════════════════════════════════════════════════════════════════

// LessonSummaryDTO is a lesson on the learning path.
type LessonSummaryDTO struct {
	ID         int64  `json:"id"`
	Title      string `json:"title"`
	Order      int    `json:"order"`
	Completed  bool   `json:"completed"`
	Challenges int    `json:"challenges"`
}

// UnitDTO is a unit on the learning path.
type UnitDTO struct {
	ID          int64              `json:"id"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Order       int                `json:"order"`
	Lessons     []LessonSummaryDTO `json:"lessons"`
}

// ActiveLessonDTO is the course progress pointer.
type ActiveLessonDTO struct {
	ID     int64  `json:"id"`
	Title  string `json:"title"`
	UnitID int64  `json:"unit_id"`
}

func toUnitDTOs(units []*course.Unit) []UnitDTO {
	out := make([]UnitDTO, 0, len(units))
	for _, u := range units {
		dto := UnitDTO{
			ID:          u.ID,
			Title:       u.Title,
			Description: u.Description,
			Order:       u.Order,
			Lessons:     make([]LessonSummaryDTO, 0, len(u.Lessons)),
		}
		for _, l := range u.Lessons {
			dto.Lessons = append(dto.Lessons, LessonSummaryDTO{
				ID:         l.ID,
				Title:      l.Title,
				Order:      l.Order,
				Completed:  progress.LessonCompleted(l),
				Challenges: len(l.Challenges),
			})
		}
		out = append(out, dto)
	}
	return out
}

func toActiveLessonDTO(l *course.Lesson) *ActiveLessonDTO {
	if l == nil {
		return nil
	}
	return &ActiveLessonDTO{ID: l.ID, Title: l.Title, UnitID: l.UnitID}
}

// ══════════════════════════════════════════════════════════════════════════════
// GET USER PROGRESS QUERY
// ══════════════════════════════════════════════════════════════════════════════

// GetUserProgressQuery requests the caller's progress row.
type GetUserProgressQuery struct {
	Identity shared.Identity
}

// GetUserProgressHandler handles GetUserProgressQuery.
type GetUserProgressHandler struct {
	progress progress.Repository
}

// NewGetUserProgressHandler creates a new GetUserProgressHandler.
func NewGetUserProgressHandler(progressRepo progress.Repository) *GetUserProgressHandler {
	return &GetUserProgressHandler{progress: progressRepo}
}

// Handle returns the row, or ErrUserProgressNotFound if the user never
// selected a course.
func (h *GetUserProgressHandler) Handle(ctx context.Context, q GetUserProgressQuery) (*progress.UserProgress, error) {
	if !q.Identity.UserID.IsValid() {
		return nil, shared.ErrUnauthenticated
	}
	return h.progress.Get(ctx, q.Identity.UserID)
}

// ══════════════════════════════════════════════════════════════════════════════
// GET LEARN QUERY
// The learning dashboard: progress row, units with lesson completion, the
// course progress pointer and its percentage, all from one Snapshot.
// ══════════════════════════════════════════════════════════════════════════════

// GetLearnQuery requests the dashboard of the caller.
type GetLearnQuery struct {
	Identity shared.Identity
}

// LearnResult is the learning dashboard.
type LearnResult struct {
	Progress         *progress.UserProgress `json:"progress"`
	Units            []UnitDTO              `json:"units"`
	ActiveLesson     *ActiveLessonDTO       `json:"active_lesson"`
	LessonPercentage int                    `json:"lesson_percentage"`
}

// GetLearnHandler handles GetLearnQuery.
type GetLearnHandler struct {
	courses  course.Repository
	progress progress.Repository
}

// NewGetLearnHandler creates a new GetLearnHandler.
func NewGetLearnHandler(courses course.Repository, progressRepo progress.Repository) *GetLearnHandler {
	return &GetLearnHandler{courses: courses, progress: progressRepo}
}

// Handle builds the dashboard. A user without an active course gets
// ErrUserProgressNotFound so the caller can send them to course selection.
func (h *GetLearnHandler) Handle(ctx context.Context, q GetLearnQuery) (*LearnResult, error) {
	if !q.Identity.UserID.IsValid() {
		return nil, shared.ErrUnauthenticated
	}
	snap := NewSnapshot(q.Identity.UserID, h.courses, h.progress)

	p, err := snap.UserProgress(ctx)
	if err != nil {
		return nil, fmt.Errorf("get_learn: %w", err)
	}
	if !p.HasActiveCourse() {
		return nil, shared.ErrUserProgressNotFound
	}

	units, err := snap.Units(ctx)
	if err != nil {
		return nil, fmt.Errorf("get_learn: %w", err)
	}
	active, err := snap.ActiveLesson(ctx)
	if err != nil {
		return nil, fmt.Errorf("get_learn: %w", err)
	}
	pct, err := snap.LessonPercentage(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("get_learn: %w", err)
	}

	return &LearnResult{
		Progress:         p,
		Units:            toUnitDTOs(units),
		ActiveLesson:     toActiveLessonDTO(active),
		LessonPercentage: pct,
	}, nil
}
