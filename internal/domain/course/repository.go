package course

import (
	"context"

	"github.com/langquest/langquest-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Implementations live in infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Repository reads the content graph.
type Repository interface {
	// ListCourses returns all courses ordered by id.
	ListCourses(ctx context.Context) ([]*Course, error)

	// GetCourse returns ErrCourseNotFound if the course does not exist.
	GetCourse(ctx context.Context, id int64) (*Course, error)

	// GetChallenge returns ErrChallengeNotFound if the challenge does not exist.
	GetChallenge(ctx context.Context, id int64) (*Challenge, error)

	// ListUnitsWithProgress returns the course's units ordered by unit order,
	// lessons by lesson order and challenges by challenge order. Each
	// challenge carries only the given user's progress rows.
	ListUnitsWithProgress(ctx context.Context, courseID int64, userID shared.UserID) ([]*Unit, error)

	// GetLessonWithProgress returns the lesson with ordered challenges, their
	// options and the given user's progress rows.
	// Returns ErrLessonNotFound if the lesson does not exist.
	GetLessonWithProgress(ctx context.Context, lessonID int64, userID shared.UserID) (*Lesson, error)
}

// Importer writes whole course trees.
type Importer interface {
	// ImportCourse inserts the course and all nested content atomically and
	// returns the new course id.
	ImportCourse(ctx context.Context, tree *CourseTree) (int64, error)
}
