package query

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/langquest/langquest-core/internal/domain/course"
	"github.com/langquest/langquest-core/internal/domain/leaderboard"
	"github.com/langquest/langquest-core/internal/domain/progress"
	"github.com/langquest/langquest-core/internal/domain/shared"
	"github.com/langquest/langquest-core/internal/domain/subscription"
)

const alice shared.UserID = "user_alice"

var errDatabaseDown = errors.New("database is down")

// ─────────────────────────────────────────────────────────────────────────────
// Content
// ─────────────────────────────────────────────────────────────────────────────

// fakeCourses serves course 1 with two units:
//
//	unit 1: lesson 100 (challenges 10, 11), lesson 101 (challenge 12)
//	unit 2: lesson 200 (challenge 20)
//
// completed marks challenges the user has a completed row for.
type fakeCourses struct {
	mu          sync.Mutex
	completed   map[int64]bool
	unitsCalls  int
	lessonCalls int
	err         error
}

func newFakeCourses(completed ...int64) *fakeCourses {
	f := &fakeCourses{completed: make(map[int64]bool)}
	for _, id := range completed {
		f.completed[id] = true
	}
	return f
}

func (f *fakeCourses) challenge(id, lessonID int64, order int, withOptions bool) *course.Challenge {
	c := &course.Challenge{
		ID:       id,
		LessonID: lessonID,
		Type:     course.ChallengeSelect,
		Question: "question",
		Order:    order,
	}
	if f.completed[id] {
		c.Progress = []course.ChallengeProgressRow{{ID: id, Completed: true}}
	}
	if withOptions {
		c.Options = []*course.ChallengeOption{
			{ID: id*10 + 1, ChallengeID: id, Text: "el hombre", Correct: true},
			{ID: id*10 + 2, ChallengeID: id, Text: "la mujer"},
		}
	}
	return c
}

func (f *fakeCourses) lesson(id int64, withOptions bool) *course.Lesson {
	switch id {
	case 100:
		return &course.Lesson{ID: 100, UnitID: 1, Title: "Nouns", Order: 1, Challenges: []*course.Challenge{
			f.challenge(10, 100, 1, withOptions),
			f.challenge(11, 100, 2, withOptions),
		}}
	case 101:
		return &course.Lesson{ID: 101, UnitID: 1, Title: "Verbs", Order: 2, Challenges: []*course.Challenge{
			f.challenge(12, 101, 1, withOptions),
		}}
	case 200:
		return &course.Lesson{ID: 200, UnitID: 2, Title: "Phrases", Order: 1, Challenges: []*course.Challenge{
			f.challenge(20, 200, 1, withOptions),
		}}
	}
	return nil
}

func (f *fakeCourses) ListCourses(context.Context) ([]*course.Course, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []*course.Course{
		{ID: 1, Title: "Spanish", ImageSrc: "/es.svg"},
		{ID: 2, Title: "French", ImageSrc: "/fr.svg"},
	}, nil
}

func (f *fakeCourses) GetCourse(_ context.Context, id int64) (*course.Course, error) {
	if id == 1 || id == 2 {
		return &course.Course{ID: id}, nil
	}
	return nil, shared.ErrCourseNotFound
}

func (f *fakeCourses) GetChallenge(context.Context, int64) (*course.Challenge, error) {
	return nil, shared.ErrChallengeNotFound
}

func (f *fakeCourses) ListUnitsWithProgress(_ context.Context, courseID int64, _ shared.UserID) ([]*course.Unit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unitsCalls++
	if f.err != nil {
		return nil, f.err
	}
	if courseID != 1 {
		return []*course.Unit{}, nil
	}
	return []*course.Unit{
		{ID: 1, CourseID: 1, Title: "Unit 1", Description: "Learn the basics", Order: 1,
			Lessons: []*course.Lesson{f.lesson(100, false), f.lesson(101, false)}},
		{ID: 2, CourseID: 1, Title: "Unit 2", Description: "Put it together", Order: 2,
			Lessons: []*course.Lesson{f.lesson(200, false)}},
	}, nil
}

func (f *fakeCourses) GetLessonWithProgress(_ context.Context, lessonID int64, _ shared.UserID) (*course.Lesson, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lessonCalls++
	if f.err != nil {
		return nil, f.err
	}
	if l := f.lesson(lessonID, true); l != nil {
		return l, nil
	}
	return nil, shared.ErrLessonNotFound
}

// ─────────────────────────────────────────────────────────────────────────────
// Progress
// ─────────────────────────────────────────────────────────────────────────────

type fakeProgress struct {
	mu       sync.Mutex
	rows     map[shared.UserID]*progress.UserProgress
	getCalls int
	topCalls int
	err      error
}

func newFakeProgress(rows ...*progress.UserProgress) *fakeProgress {
	f := &fakeProgress{rows: make(map[shared.UserID]*progress.UserProgress)}
	for _, r := range rows {
		f.rows[r.UserID] = r
	}
	return f
}

func row(userID shared.UserID, courseID int64, hearts, points int) *progress.UserProgress {
	p := &progress.UserProgress{UserID: userID, UserName: string(userID), Hearts: hearts, Points: points}
	if courseID > 0 {
		p.ActiveCourseID = &courseID
	}
	return p
}

func (f *fakeProgress) Get(_ context.Context, userID shared.UserID) (*progress.UserProgress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	if f.err != nil {
		return nil, f.err
	}
	if p, ok := f.rows[userID]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, shared.ErrUserProgressNotFound
}

func (f *fakeProgress) SelectCourse(context.Context, shared.Identity, int64) (*progress.UserProgress, error) {
	return nil, errors.New("not used")
}

func (f *fakeProgress) HasChallengeProgress(context.Context, shared.UserID, int64) (bool, error) {
	return false, nil
}

func (f *fakeProgress) DecrementHeart(context.Context, shared.UserID, int64) (int, bool, error) {
	return 0, false, nil
}

func (f *fakeProgress) Refill(context.Context, shared.UserID) (*progress.UserProgress, bool, error) {
	return nil, false, nil
}

func (f *fakeProgress) CompleteChallenge(context.Context, shared.UserID, int64) (*progress.UserProgress, progress.CompletionOutcome, error) {
	return nil, "", nil
}

func (f *fakeProgress) TopByPoints(_ context.Context, limit int) ([]*progress.UserProgress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topCalls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([]*progress.UserProgress, 0, len(f.rows))
	for _, p := range f.rows {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Points != out[j].Points {
			return out[i].Points > out[j].Points
		}
		return out[i].UserID < out[j].UserID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Leaderboard cache
// ─────────────────────────────────────────────────────────────────────────────

type fakeBoardCache struct {
	board  *leaderboard.Board
	ttl    time.Duration
	sets   int
	getErr error
	setErr error
}

func (c *fakeBoardCache) Get(context.Context) (*leaderboard.Board, error) {
	if c.getErr != nil {
		return nil, c.getErr
	}
	return c.board, nil
}

func (c *fakeBoardCache) Set(_ context.Context, board *leaderboard.Board, ttl time.Duration) error {
	c.sets++
	if c.setErr != nil {
		return c.setErr
	}
	c.board, c.ttl = board, ttl
	return nil
}

func (c *fakeBoardCache) Invalidate(context.Context) error {
	c.board = nil
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Subscriptions
// ─────────────────────────────────────────────────────────────────────────────

type fakeSubscriptions struct {
	byUser map[shared.UserID]*subscription.UserSubscription
	err    error
}

func (f *fakeSubscriptions) GetByUserID(_ context.Context, userID shared.UserID) (*subscription.UserSubscription, error) {
	if f.err != nil {
		return nil, f.err
	}
	if s, ok := f.byUser[userID]; ok {
		return s, nil
	}
	return nil, shared.ErrSubscriptionNotFound
}

func (f *fakeSubscriptions) GetBySubscriptionID(context.Context, string) (*subscription.UserSubscription, error) {
	return nil, shared.ErrSubscriptionNotFound
}

func (f *fakeSubscriptions) UpsertByUserID(context.Context, *subscription.UserSubscription) error {
	return nil
}

func (f *fakeSubscriptions) UpdateBilling(context.Context, string, string, time.Time) error {
	return nil
}
