package command

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/langquest/langquest-core/internal/domain/progress"
	"github.com/langquest/langquest-core/internal/domain/shared"
)

var alice = shared.Identity{UserID: "user_alice", FirstName: "Alice", ImageURL: "https://img/alice.png"}

func courseID(id int64) *int64 { return &id }

// ══════════════════════════════════════════════════════════════════════════════
// SELECT COURSE
// ══════════════════════════════════════════════════════════════════════════════

func TestSelectCourse_CreatesRowWithDefaults(t *testing.T) {
	repo := newFakeProgress()
	inv := &recordingInvalidator{}
	h := NewSelectCourseHandler(newFakeCourses(), repo, inv, nil)

	res, err := h.Handle(context.Background(), SelectCourseCommand{
		Identity: shared.Identity{UserID: "user_new"},
		CourseID: 1,
	})
	require.NoError(t, err)

	assert.Equal(t, LearnPath, res.Redirect)
	assert.Equal(t, progress.MaxHearts, res.Progress.Hearts)
	assert.Equal(t, 0, res.Progress.Points)
	assert.Equal(t, shared.DefaultUserName, res.Progress.UserName)
	assert.Equal(t, shared.DefaultUserImageSrc, res.Progress.UserImageSrc)
	assert.Equal(t, []shared.View{shared.ViewCourses, shared.ViewLearn}, inv.last())
}

func TestSelectCourse_KeepsHeartsAndPoints(t *testing.T) {
	repo := newFakeProgress()
	repo.put(progress.UserProgress{UserID: alice.UserID, ActiveCourseID: courseID(1), Hearts: 2, Points: 70})
	h := NewSelectCourseHandler(newFakeCourses(), repo, nil, nil)

	res, err := h.Handle(context.Background(), SelectCourseCommand{Identity: alice, CourseID: 1})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Progress.Hearts)
	assert.Equal(t, 70, res.Progress.Points)
	assert.Equal(t, "Alice", res.Progress.UserName)
}

func TestSelectCourse_Errors(t *testing.T) {
	h := NewSelectCourseHandler(newFakeCourses(), newFakeProgress(), nil, nil)

	_, err := h.Handle(context.Background(), SelectCourseCommand{CourseID: 1})
	assert.ErrorIs(t, err, shared.ErrUnauthenticated)

	_, err = h.Handle(context.Background(), SelectCourseCommand{Identity: alice, CourseID: 99})
	assert.ErrorIs(t, err, shared.ErrCourseNotFound)

	_, err = h.Handle(context.Background(), SelectCourseCommand{Identity: alice, CourseID: 0})
	assert.True(t, shared.IsValidation(err))
}

// ══════════════════════════════════════════════════════════════════════════════
// REDUCE HEARTS
// ══════════════════════════════════════════════════════════════════════════════

func TestReduceHearts_Deducts(t *testing.T) {
	repo := newFakeProgress()
	repo.put(progress.UserProgress{UserID: alice.UserID, Hearts: 1, Points: 10})
	inv := &recordingInvalidator{}
	h := NewReduceHeartsHandler(newFakeCourses(), repo, inv, nil)

	res, err := h.Handle(context.Background(), ReduceHeartsCommand{Identity: alice, ChallengeID: 10})
	require.NoError(t, err)

	assert.Equal(t, progress.HeartDeducted, res.Outcome)
	assert.Equal(t, 0, res.Hearts)
	assert.ElementsMatch(t, []shared.View{
		shared.ViewLearn, shared.ViewShop, shared.ViewQuests, shared.ViewLeaderboard, shared.LessonView(100),
	}, inv.last())
}

func TestReduceHearts_PracticeTakesPrecedence(t *testing.T) {
	repo := newFakeProgress()
	repo.put(progress.UserProgress{UserID: alice.UserID, Hearts: 0})
	repo.engaged[pair{alice.UserID, 10}] = true
	inv := &recordingInvalidator{}
	h := NewReduceHeartsHandler(newFakeCourses(), repo, inv, nil)

	res, err := h.Handle(context.Background(), ReduceHeartsCommand{Identity: alice, ChallengeID: 10})
	require.NoError(t, err)

	assert.Equal(t, progress.HeartPractice, res.Outcome)
	assert.Empty(t, inv.calls)
}

func TestReduceHearts_NoHearts(t *testing.T) {
	repo := newFakeProgress()
	repo.put(progress.UserProgress{UserID: alice.UserID, Hearts: 0})
	h := NewReduceHeartsHandler(newFakeCourses(), repo, nil, nil)

	res, err := h.Handle(context.Background(), ReduceHeartsCommand{Identity: alice, ChallengeID: 10})
	require.NoError(t, err)
	assert.Equal(t, progress.HeartNoHearts, res.Outcome)
}

func TestReduceHearts_HardErrors(t *testing.T) {
	h := NewReduceHeartsHandler(newFakeCourses(), newFakeProgress(), nil, nil)

	_, err := h.Handle(context.Background(), ReduceHeartsCommand{ChallengeID: 10})
	assert.ErrorIs(t, err, shared.ErrUnauthenticated)

	_, err = h.Handle(context.Background(), ReduceHeartsCommand{Identity: alice, ChallengeID: 404})
	assert.ErrorIs(t, err, shared.ErrChallengeNotFound)

	_, err = h.Handle(context.Background(), ReduceHeartsCommand{Identity: alice, ChallengeID: 10})
	assert.ErrorIs(t, err, shared.ErrUserProgressNotFound)
}

func TestReduceHearts_RetriesLostRace(t *testing.T) {
	repo := newFakeProgress()
	repo.put(progress.UserProgress{UserID: alice.UserID, Hearts: 3})
	repo.decrementMisses = 1
	h := NewReduceHeartsHandler(newFakeCourses(), repo, nil, nil)

	res, err := h.Handle(context.Background(), ReduceHeartsCommand{Identity: alice, ChallengeID: 10})
	require.NoError(t, err)
	assert.Equal(t, progress.HeartDeducted, res.Outcome)
	assert.Equal(t, 2, res.Hearts)
}

func TestReduceHearts_GivesUpAfterRepeatedRaces(t *testing.T) {
	repo := newFakeProgress()
	repo.put(progress.UserProgress{UserID: alice.UserID, Hearts: 3})
	repo.decrementMisses = maxRaceAttempts
	h := NewReduceHeartsHandler(newFakeCourses(), repo, nil, nil)

	_, err := h.Handle(context.Background(), ReduceHeartsCommand{Identity: alice, ChallengeID: 10})
	assert.ErrorIs(t, err, ErrContention)
}

func TestReduceHearts_InvalidationFailureDoesNotFail(t *testing.T) {
	repo := newFakeProgress()
	repo.put(progress.UserProgress{UserID: alice.UserID, Hearts: 2})
	inv := &recordingInvalidator{err: errors.New("redis down")}
	h := NewReduceHeartsHandler(newFakeCourses(), repo, inv, nil)

	res, err := h.Handle(context.Background(), ReduceHeartsCommand{Identity: alice, ChallengeID: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Hearts)
}

// ══════════════════════════════════════════════════════════════════════════════
// REFILL HEARTS
// ══════════════════════════════════════════════════════════════════════════════

func TestRefillHearts(t *testing.T) {
	tests := []struct {
		name    string
		row     *progress.UserProgress
		wantErr error
		hearts  int
		points  int
	}{
		{"refills", &progress.UserProgress{Hearts: 2, Points: 60}, nil, 5, 10},
		{"exact cost", &progress.UserProgress{Hearts: 0, Points: 50}, nil, 5, 0},
		{"hearts full", &progress.UserProgress{Hearts: 5, Points: 500}, shared.ErrHeartsFull, 0, 0},
		{"not enough points", &progress.UserProgress{Hearts: 1, Points: 49}, shared.ErrNotEnoughPoints, 0, 0},
		{"no row", nil, shared.ErrUserProgressNotFound, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeProgress()
			if tt.row != nil {
				tt.row.UserID = alice.UserID
				repo.put(*tt.row)
			}
			inv := &recordingInvalidator{}
			h := NewRefillHeartsHandler(repo, inv, nil)

			res, err := h.Handle(context.Background(), RefillHeartsCommand{Identity: alice})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, inv.calls)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.hearts, res.Progress.Hearts)
			assert.Equal(t, tt.points, res.Progress.Points)
			assert.Equal(t, shared.ProgressViews(), inv.last())
		})
	}
}

func TestRefillHearts_BusinessRuleKind(t *testing.T) {
	repo := newFakeProgress()
	repo.put(progress.UserProgress{UserID: alice.UserID, Hearts: 5, Points: 100})
	h := NewRefillHeartsHandler(repo, nil, nil)

	_, err := h.Handle(context.Background(), RefillHeartsCommand{Identity: alice})
	assert.True(t, shared.IsBusinessRule(err))
}

func TestRefillHearts_RetriesLostRace(t *testing.T) {
	repo := newFakeProgress()
	repo.put(progress.UserProgress{UserID: alice.UserID, Hearts: 1, Points: 80})
	repo.refillMisses = 2
	h := NewRefillHeartsHandler(repo, nil, nil)

	res, err := h.Handle(context.Background(), RefillHeartsCommand{Identity: alice})
	require.NoError(t, err)
	assert.Equal(t, progress.MaxHearts, res.Progress.Hearts)
	assert.Equal(t, 30, res.Progress.Points)
}

// ══════════════════════════════════════════════════════════════════════════════
// COMPLETE CHALLENGE
// ══════════════════════════════════════════════════════════════════════════════

func TestCompleteChallenge_FirstThenPractice(t *testing.T) {
	repo := newFakeProgress()
	repo.put(progress.UserProgress{UserID: alice.UserID, Hearts: 4, Points: 0})
	inv := &recordingInvalidator{}
	h := NewCompleteChallengeHandler(newFakeCourses(), repo, inv, nil)
	ctx := context.Background()

	first, err := h.Handle(ctx, CompleteChallengeCommand{Identity: alice, ChallengeID: 10})
	require.NoError(t, err)
	assert.Equal(t, progress.CompletionFirst, first.Outcome)
	assert.Equal(t, 4, first.Progress.Hearts)
	assert.Equal(t, 10, first.Progress.Points)
	assert.Contains(t, inv.last(), shared.LessonView(100))

	practice, err := h.Handle(ctx, CompleteChallengeCommand{Identity: alice, ChallengeID: 10})
	require.NoError(t, err)
	assert.Equal(t, progress.CompletionPractice, practice.Outcome)
	assert.Equal(t, 5, practice.Progress.Hearts)
	assert.Equal(t, 20, practice.Progress.Points)

	// A practiced challenge never costs a heart afterwards.
	reduce := NewReduceHeartsHandler(newFakeCourses(), repo, nil, nil)
	res, err := reduce.Handle(ctx, ReduceHeartsCommand{Identity: alice, ChallengeID: 10})
	require.NoError(t, err)
	assert.Equal(t, progress.HeartPractice, res.Outcome)
}

func TestCompleteChallenge_NoHeartsChangesNothing(t *testing.T) {
	repo := newFakeProgress()
	repo.put(progress.UserProgress{UserID: alice.UserID, Hearts: 0, Points: 40})
	inv := &recordingInvalidator{}
	h := NewCompleteChallengeHandler(newFakeCourses(), repo, inv, nil)

	res, err := h.Handle(context.Background(), CompleteChallengeCommand{Identity: alice, ChallengeID: 11})
	require.NoError(t, err)

	assert.Equal(t, progress.CompletionNoHearts, res.Outcome)
	assert.Equal(t, 40, res.Progress.Points)
	assert.Empty(t, inv.calls)
}

func TestCompleteChallenge_HardErrors(t *testing.T) {
	h := NewCompleteChallengeHandler(newFakeCourses(), newFakeProgress(), nil, nil)

	_, err := h.Handle(context.Background(), CompleteChallengeCommand{Identity: alice, ChallengeID: 404})
	assert.ErrorIs(t, err, shared.ErrChallengeNotFound)

	_, err = h.Handle(context.Background(), CompleteChallengeCommand{Identity: alice, ChallengeID: 10})
	assert.ErrorIs(t, err, shared.ErrUserProgressNotFound)
}
