package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func int64p(v int64) *int64 { return &v }

func TestSnapshot_NoProgressRow(t *testing.T) {
	ctx := context.Background()
	courses := newFakeCourses()
	snap := NewSnapshot(alice, courses, newFakeProgress())

	p, err := snap.UserProgress(ctx)
	require.NoError(t, err)
	assert.Nil(t, p)

	units, err := snap.Units(ctx)
	require.NoError(t, err)
	assert.Empty(t, units)
	assert.NotNil(t, units, "empty slice, not nil")

	active, err := snap.ActiveLesson(ctx)
	require.NoError(t, err)
	assert.Nil(t, active)

	pct, err := snap.LessonPercentage(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, pct)

	assert.Zero(t, courses.unitsCalls, "no course means no tree read")
}

func TestSnapshot_ProgressErrorPropagates(t *testing.T) {
	repo := newFakeProgress()
	repo.err = errDatabaseDown

	_, err := NewSnapshot(alice, newFakeCourses(), repo).UserProgress(context.Background())
	assert.ErrorIs(t, err, errDatabaseDown)
}

func TestSnapshot_MemoizesReads(t *testing.T) {
	ctx := context.Background()
	courses := newFakeCourses(10)
	repo := newFakeProgress(row(alice, 1, 5, 10))
	snap := NewSnapshot(alice, courses, repo)

	for i := 0; i < 3; i++ {
		_, err := snap.UserProgress(ctx)
		require.NoError(t, err)
		_, err = snap.Units(ctx)
		require.NoError(t, err)
		_, err = snap.ActiveLesson(ctx)
		require.NoError(t, err)
		_, err = snap.LessonPercentage(ctx, nil)
		require.NoError(t, err)
	}

	assert.Equal(t, 1, repo.getCalls)
	assert.Equal(t, 1, courses.unitsCalls)
	assert.Zero(t, courses.lessonCalls)
}

func TestSnapshot_ActiveLessonAndPercentage(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		completed  []int64
		wantLesson int64
		wantPct    int
	}{
		{"nothing done", nil, 100, 0},
		{"half of first lesson", []int64{10}, 100, 50},
		{"first lesson done", []int64{10, 11}, 101, 0},
		{"skips completed lessons across units", []int64{10, 11, 12}, 200, 0},
		{"order inside lesson does not matter", []int64{11}, 100, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := NewSnapshot(alice, newFakeCourses(tt.completed...), newFakeProgress(row(alice, 1, 5, 0)))

			active, err := snap.ActiveLesson(ctx)
			require.NoError(t, err)
			require.NotNil(t, active)
			assert.Equal(t, tt.wantLesson, active.ID)

			pct, err := snap.LessonPercentage(ctx, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.wantPct, pct)
		})
	}
}

func TestSnapshot_CourseFinished(t *testing.T) {
	ctx := context.Background()
	snap := NewSnapshot(alice, newFakeCourses(10, 11, 12, 20), newFakeProgress(row(alice, 1, 5, 40)))

	active, err := snap.ActiveLesson(ctx)
	require.NoError(t, err)
	assert.Nil(t, active)

	pct, err := snap.LessonPercentage(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, pct)

	lesson, err := snap.Lesson(ctx, nil)
	require.NoError(t, err)
	assert.Nil(t, lesson)
}

func TestSnapshot_ConsistentWithinRequest(t *testing.T) {
	ctx := context.Background()
	courses := newFakeCourses(10)
	snap := NewSnapshot(alice, courses, newFakeProgress(row(alice, 1, 5, 10)))

	before, err := snap.LessonPercentage(ctx, nil)
	require.NoError(t, err)

	// A concurrent completion lands mid-request.
	courses.mu.Lock()
	courses.completed[11] = true
	courses.mu.Unlock()

	active, err := snap.ActiveLesson(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(100), active.ID)

	after, err := snap.LessonPercentage(ctx, int64p(100))
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, 50, after)
}

func TestSnapshot_LessonLoadsOptionsOnce(t *testing.T) {
	ctx := context.Background()
	courses := newFakeCourses()
	snap := NewSnapshot(alice, courses, newFakeProgress(row(alice, 1, 5, 0)))

	_, err := snap.Units(ctx)
	require.NoError(t, err)

	lesson, err := snap.Lesson(ctx, int64p(100))
	require.NoError(t, err)
	require.NotNil(t, lesson)
	require.Len(t, lesson.Challenges, 2)
	assert.NotEmpty(t, lesson.Challenges[0].Options, "tree lessons lack options and must be reloaded")

	_, err = snap.Lesson(ctx, int64p(100))
	require.NoError(t, err)
	assert.Equal(t, 1, courses.lessonCalls)
}

func TestSnapshot_LessonUnknown(t *testing.T) {
	snap := NewSnapshot(alice, newFakeCourses(), newFakeProgress(row(alice, 1, 5, 0)))

	lesson, err := snap.Lesson(context.Background(), int64p(999))
	require.NoError(t, err)
	assert.Nil(t, lesson)

	pct, err := snap.LessonPercentage(context.Background(), int64p(999))
	require.NoError(t, err)
	assert.Zero(t, pct)
}

func TestSnapshot_LessonErrorPropagates(t *testing.T) {
	courses := newFakeCourses()
	courses.err = errDatabaseDown
	snap := NewSnapshot(alice, courses, newFakeProgress(row(alice, 1, 5, 0)))

	_, err := snap.Lesson(context.Background(), int64p(100))
	assert.ErrorIs(t, err, errDatabaseDown)
}
