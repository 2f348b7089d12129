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
// SELECT COURSE COMMAND
// Sets the user's active course, creating the progress row on first use.
// ══════════════════════════════════════════════════════════════════════════════

// LearnPath is where the caller is sent after selecting a course.
const LearnPath = "/learn"

// SelectCourseCommand contains the data to select a course.
type SelectCourseCommand struct {
	Identity shared.Identity
	CourseID int64
}

// Validate validates the command.
func (c SelectCourseCommand) Validate() error {
	if err := requireIdentity(c.Identity); err != nil {
		return err
	}
	if c.CourseID <= 0 {
		return shared.NewDomainError("progress", "SelectCourse", shared.ErrInvalidID, "course_id must be positive")
	}
	return nil
}

// SelectCourseResult contains the result of selecting a course.
type SelectCourseResult struct {
	Progress *progress.UserProgress
	Redirect string
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// SelectCourseHandler handles SelectCourseCommand.
type SelectCourseHandler struct {
	courses     course.Repository
	progress    progress.Repository
	invalidator shared.ViewInvalidator
	log         *logger.Logger
}

// NewSelectCourseHandler creates a new SelectCourseHandler.
func NewSelectCourseHandler(
	courses course.Repository,
	progressRepo progress.Repository,
	invalidator shared.ViewInvalidator,
	log *logger.Logger,
) *SelectCourseHandler {
	return &SelectCourseHandler{
		courses:     courses,
		progress:    progressRepo,
		invalidator: orNoopInvalidator(invalidator),
		log:         orNop(log).Named("select_course"),
	}
}

// Handle executes the command.
func (h *SelectCourseHandler) Handle(ctx context.Context, cmd SelectCourseCommand) (*SelectCourseResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	if _, err := h.courses.GetCourse(ctx, cmd.CourseID); err != nil {
		return nil, fmt.Errorf("select_course: %w", err)
	}

	p, err := h.progress.SelectCourse(ctx, cmd.Identity, cmd.CourseID)
	if err != nil {
		return nil, fmt.Errorf("select_course: %w", err)
	}

	announce(ctx, h.invalidator, h.log, cmd.Identity.UserID, shared.ViewCourses, shared.ViewLearn)

	h.log.Info("course selected",
		logger.UserID(cmd.Identity.UserID.String()),
		logger.CourseID(cmd.CourseID),
	)

	return &SelectCourseResult{Progress: p, Redirect: LearnPath}, nil
}
