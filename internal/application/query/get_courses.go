package query

import (
	"context"
	"fmt"

	"github.com/langquest/langquest-core/internal/domain/course"
	"github.com/langquest/langquest-core/internal/domain/progress"
	"github.com/langquest/langquest-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LIST COURSES QUERY
// ══════════════════════════════════════════════════════════════════════════════

// ListCoursesQuery requests all courses. Identity is optional and only used
// to mark the active course.
type ListCoursesQuery struct {
	Identity shared.Identity
}

// CoursesResult lists courses with the caller's active course id.
type CoursesResult struct {
	Courses        []*course.Course `json:"courses"`
	ActiveCourseID *int64           `json:"active_course_id,omitempty"`
}

// ListCoursesHandler handles ListCoursesQuery.
type ListCoursesHandler struct {
	courses  course.Repository
	progress progress.Repository
}

// NewListCoursesHandler creates a new ListCoursesHandler.
func NewListCoursesHandler(courses course.Repository, progressRepo progress.Repository) *ListCoursesHandler {
	return &ListCoursesHandler{courses: courses, progress: progressRepo}
}

// Handle executes the query.
func (h *ListCoursesHandler) Handle(ctx context.Context, q ListCoursesQuery) (*CoursesResult, error) {
	courses, err := h.courses.ListCourses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list_courses: %w", err)
	}
	if courses == nil {
		courses = []*course.Course{}
	}

	result := &CoursesResult{Courses: courses}
	if !q.Identity.UserID.IsValid() {
		return result, nil
	}

	p, err := NewSnapshot(q.Identity.UserID, h.courses, h.progress).UserProgress(ctx)
	if err != nil {
		return nil, fmt.Errorf("list_courses: %w", err)
	}
	if p.HasActiveCourse() {
		result.ActiveCourseID = p.ActiveCourseID
	}
	return result, nil
}
