// Package query contains read operations following CQRS pattern.
// Queries never modify state - they only read and return data.
// Each query is a self-contained use case with its own request/response types.
package query

import (
	"context"
	"errors"
	"sync"

	"github.com/langquest/langquest-core/internal/domain/course"
	"github.com/langquest/langquest-core/internal/domain/progress"
	"github.com/langquest/langquest-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SNAPSHOT
// Request-scoped memo of one user's learning state. Every derived view built
// from the same Snapshot observes the same reads, even if a mutation lands in
// the middle of the request.
// ══════════════════════════════════════════════════════════════════════════════

// Snapshot memoizes reads for one (user, request) pair. Safe for concurrent use.
type Snapshot struct {
	userID   shared.UserID
	courses  course.Repository
	progress progress.Repository

	mu      sync.Mutex
	row     *progress.UserProgress
	rowOK   bool
	units   []*course.Unit
	unitsOK bool
	lessons map[int64]*course.Lesson
}

// NewSnapshot creates an empty Snapshot.
func NewSnapshot(userID shared.UserID, courses course.Repository, progressRepo progress.Repository) *Snapshot {
	return &Snapshot{
		userID:   userID,
		courses:  courses,
		progress: progressRepo,
		lessons:  make(map[int64]*course.Lesson),
	}
}

// UserID returns the user the snapshot belongs to.
func (s *Snapshot) UserID() shared.UserID {
	return s.userID
}

// UserProgress returns the user's row, or nil if the user never selected a
// course.
func (s *Snapshot) UserProgress(ctx context.Context) (*progress.UserProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userProgressLocked(ctx)
}

func (s *Snapshot) userProgressLocked(ctx context.Context) (*progress.UserProgress, error) {
	if s.rowOK {
		return s.row, nil
	}

	p, err := s.progress.Get(ctx, s.userID)
	if err != nil && !errors.Is(err, shared.ErrUserProgressNotFound) {
		return nil, err
	}
	s.row, s.rowOK = p, true
	return p, nil
}

// Units returns the active course's units with the user's progress rows,
// ordered by unit then lesson then challenge. Empty without an active course.
func (s *Snapshot) Units(ctx context.Context) ([]*course.Unit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unitsLocked(ctx)
}

func (s *Snapshot) unitsLocked(ctx context.Context) ([]*course.Unit, error) {
	if s.unitsOK {
		return s.units, nil
	}

	p, err := s.userProgressLocked(ctx)
	if err != nil {
		return nil, err
	}

	units := []*course.Unit{}
	if p.HasActiveCourse() {
		units, err = s.courses.ListUnitsWithProgress(ctx, *p.ActiveCourseID, s.userID)
		if err != nil {
			return nil, err
		}
	}

	s.units, s.unitsOK = units, true
	for _, u := range units {
		for _, l := range u.Lessons {
			s.lessons[l.ID] = l
		}
	}
	return units, nil
}

// ActiveLesson returns the course progress pointer, or nil when every lesson
// is completed or there is no active course.
func (s *Snapshot) ActiveLesson(ctx context.Context) (*course.Lesson, error) {
	units, err := s.Units(ctx)
	if err != nil {
		return nil, err
	}
	return progress.ActiveLesson(units), nil
}

// Lesson returns a lesson with ordered challenges, options and the user's
// progress. A nil id resolves to the active lesson. Returns nil when the
// lesson cannot be resolved.
func (s *Snapshot) Lesson(ctx context.Context, lessonID *int64) (*course.Lesson, error) {
	id := lessonID
	if id == nil {
		active, err := s.ActiveLesson(ctx)
		if err != nil || active == nil {
			return nil, err
		}
		id = &active.ID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if l, ok := s.lessons[*id]; ok && l.Challenges != nil && lessonHasOptions(l) {
		return l, nil
	}

	l, err := s.courses.GetLessonWithProgress(ctx, *id, s.userID)
	if errors.Is(err, shared.ErrLessonNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s.lessons[*id] = l
	return l, nil
}

// lessonHasOptions reports whether the lesson was loaded with its options.
// Lessons that came from the unit tree carry challenges only.
func lessonHasOptions(l *course.Lesson) bool {
	for _, c := range l.Challenges {
		if c.Options == nil {
			return false
		}
	}
	return true
}

// LessonPercentage returns the completion percentage of a lesson, the active
// lesson when id is nil. 0 when the lesson cannot be resolved.
func (s *Snapshot) LessonPercentage(ctx context.Context, lessonID *int64) (int, error) {
	if lessonID != nil {
		s.mu.Lock()
		l, ok := s.lessons[*lessonID]
		s.mu.Unlock()
		if ok {
			return progress.LessonPercentage(l), nil
		}
	}

	if lessonID == nil {
		active, err := s.ActiveLesson(ctx)
		if err != nil {
			return 0, err
		}
		return progress.LessonPercentage(active), nil
	}

	l, err := s.Lesson(ctx, lessonID)
	if err != nil {
		return 0, err
	}
	return progress.LessonPercentage(l), nil
}
