package shared

import (
	"context"
	"strconv"
	"time"
)

// ═══════════════════════════════════════════════════════════════════════════
// Views
// ═══════════════════════════════════════════════════════════════════════════

// View names a derived read model whose cached copy must be discarded after a
// mutation that affects it.
type View string

const (
	ViewCourses     View = "courses"
	ViewLearn       View = "learn"
	ViewShop        View = "shop"
	ViewQuests      View = "quests"
	ViewLeaderboard View = "leaderboard"
)

// LessonView names the view of a single lesson.
func LessonView(lessonID int64) View {
	return View("lesson/" + strconv.FormatInt(lessonID, 10))
}

// ProgressViews are the views affected by any change in hearts or points.
func ProgressViews() []View {
	return []View{ViewLearn, ViewShop, ViewQuests, ViewLeaderboard}
}

// ViewInvalidator signals that views are stale for a user.
type ViewInvalidator interface {
	Invalidate(ctx context.Context, userID UserID, views ...View) error
}

// ViewsInvalidated is the notification published for each invalidation.
type ViewsInvalidated struct {
	UserID     UserID    `json:"user_id"`
	Views      []View    `json:"views"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NoopInvalidator discards invalidations.
type NoopInvalidator struct{}

// Invalidate does nothing.
func (NoopInvalidator) Invalidate(context.Context, UserID, ...View) error { return nil }
