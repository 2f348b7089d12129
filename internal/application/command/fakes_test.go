package command

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/langquest/langquest-core/internal/domain/course"
	"github.com/langquest/langquest-core/internal/domain/progress"
	"github.com/langquest/langquest-core/internal/domain/shared"
	"github.com/langquest/langquest-core/internal/domain/subscription"
)

// ─────────────────────────────────────────────────────────────────────────────
// Content
// ─────────────────────────────────────────────────────────────────────────────

type fakeCourses struct {
	courses    map[int64]*course.Course
	challenges map[int64]*course.Challenge
}

func newFakeCourses() *fakeCourses {
	return &fakeCourses{
		courses: map[int64]*course.Course{
			1: {ID: 1, Title: "Spanish", ImageSrc: "/es.svg"},
		},
		challenges: map[int64]*course.Challenge{
			10: {ID: 10, LessonID: 100, Type: course.ChallengeSelect, Question: "Which one is the man?"},
			11: {ID: 11, LessonID: 100, Type: course.ChallengeAssist, Question: "the woman"},
		},
	}
}

func (f *fakeCourses) ListCourses(context.Context) ([]*course.Course, error) {
	var out []*course.Course
	for _, c := range f.courses {
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeCourses) GetCourse(_ context.Context, id int64) (*course.Course, error) {
	if c, ok := f.courses[id]; ok {
		return c, nil
	}
	return nil, shared.ErrCourseNotFound
}

func (f *fakeCourses) GetChallenge(_ context.Context, id int64) (*course.Challenge, error) {
	if c, ok := f.challenges[id]; ok {
		return c, nil
	}
	return nil, shared.ErrChallengeNotFound
}

func (f *fakeCourses) ListUnitsWithProgress(context.Context, int64, shared.UserID) ([]*course.Unit, error) {
	return nil, nil
}

func (f *fakeCourses) GetLessonWithProgress(context.Context, int64, shared.UserID) (*course.Lesson, error) {
	return nil, shared.ErrLessonNotFound
}

// ─────────────────────────────────────────────────────────────────────────────
// Progress
// ─────────────────────────────────────────────────────────────────────────────

type pair struct {
	user      shared.UserID
	challenge int64
}

// fakeProgress mirrors the guarded SQL of the postgres repository.
type fakeProgress struct {
	mu        sync.Mutex
	rows      map[shared.UserID]*progress.UserProgress
	engaged   map[pair]bool
	completed map[pair]bool

	// decrementMisses makes DecrementHeart report a lost race this many times.
	decrementMisses int
	refillMisses    int
}

func newFakeProgress() *fakeProgress {
	return &fakeProgress{
		rows:      make(map[shared.UserID]*progress.UserProgress),
		engaged:   make(map[pair]bool),
		completed: make(map[pair]bool),
	}
}

func (f *fakeProgress) put(p progress.UserProgress) {
	f.rows[p.UserID] = &p
}

func (f *fakeProgress) Get(_ context.Context, userID shared.UserID) (*progress.UserProgress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[userID]
	if !ok {
		return nil, shared.ErrUserProgressNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProgress) SelectCourse(_ context.Context, identity shared.Identity, courseID int64) (*progress.UserProgress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[identity.UserID]
	if !ok {
		p = progress.NewUserProgress(identity, courseID)
		f.rows[identity.UserID] = p
	}
	p.ActiveCourseID = &courseID
	p.UserName = identity.DisplayName()
	p.UserImageSrc = identity.ImageSrc()
	cp := *p
	return &cp, nil
}

func (f *fakeProgress) HasChallengeProgress(_ context.Context, userID shared.UserID, challengeID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.engaged[pair{userID, challengeID}], nil
}

func (f *fakeProgress) DecrementHeart(_ context.Context, userID shared.UserID, challengeID int64) (int, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.decrementMisses > 0 {
		f.decrementMisses--
		return 0, false, nil
	}
	p, ok := f.rows[userID]
	if !ok || p.Hearts <= 0 || f.engaged[pair{userID, challengeID}] {
		return 0, false, nil
	}
	p.Hearts--
	return p.Hearts, true, nil
}

func (f *fakeProgress) Refill(_ context.Context, userID shared.UserID) (*progress.UserProgress, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[userID]
	if !ok {
		return nil, false, shared.ErrUserProgressNotFound
	}
	if f.refillMisses > 0 {
		f.refillMisses--
		cp := *p
		return &cp, false, nil
	}
	if p.Hearts >= progress.MaxHearts || p.Points < progress.RefillCost {
		cp := *p
		return &cp, false, nil
	}
	p.Hearts = progress.MaxHearts
	p.Points -= progress.RefillCost
	cp := *p
	return &cp, true, nil
}

func (f *fakeProgress) CompleteChallenge(_ context.Context, userID shared.UserID, challengeID int64) (*progress.UserProgress, progress.CompletionOutcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[userID]
	if !ok {
		return nil, "", shared.ErrUserProgressNotFound
	}
	key := pair{userID, challengeID}
	d := progress.DecideCompletion(p, f.engaged[key])
	if d.Outcome.Mutated() {
		f.engaged[key] = true
		f.completed[key] = true
		p.Hearts, p.Points = d.Hearts, d.Points
	}
	cp := *p
	return &cp, d.Outcome, nil
}

func (f *fakeProgress) TopByPoints(context.Context, int) ([]*progress.UserProgress, error) {
	return nil, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Invalidation
// ─────────────────────────────────────────────────────────────────────────────

type recordingInvalidator struct {
	calls [][]shared.View
	err   error
}

func (r *recordingInvalidator) Invalidate(_ context.Context, _ shared.UserID, views ...shared.View) error {
	r.calls = append(r.calls, views)
	return r.err
}

func (r *recordingInvalidator) last() []shared.View {
	if len(r.calls) == 0 {
		return nil
	}
	return r.calls[len(r.calls)-1]
}

// ─────────────────────────────────────────────────────────────────────────────
// Subscriptions
// ─────────────────────────────────────────────────────────────────────────────

type fakeProvider struct {
	events   map[string]*subscription.PaymentEvent
	subs     map[string]*subscription.ProviderSubscription
	fetchErr error
	fetches  int
}

func (f *fakeProvider) ParseEvent(payload []byte, signature string) (*subscription.PaymentEvent, error) {
	if signature != "valid" {
		return nil, shared.ErrInvalidEventSignature
	}
	e, ok := f.events[string(payload)]
	if !ok {
		return nil, shared.ErrInvalidEventSignature
	}
	return e, nil
}

func (f *fakeProvider) GetSubscription(_ context.Context, id string) (*subscription.ProviderSubscription, error) {
	f.fetches++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	if s, ok := f.subs[id]; ok {
		return s, nil
	}
	return &subscription.ProviderSubscription{ID: id}, nil
}

type fakeSubscriptions struct {
	byUser    map[shared.UserID]*subscription.UserSubscription
	upsertErr error
}

func newFakeSubscriptions() *fakeSubscriptions {
	return &fakeSubscriptions{byUser: make(map[shared.UserID]*subscription.UserSubscription)}
}

func (f *fakeSubscriptions) GetByUserID(_ context.Context, userID shared.UserID) (*subscription.UserSubscription, error) {
	if s, ok := f.byUser[userID]; ok {
		return s, nil
	}
	return nil, shared.ErrSubscriptionNotFound
}

func (f *fakeSubscriptions) GetBySubscriptionID(_ context.Context, id string) (*subscription.UserSubscription, error) {
	for _, s := range f.byUser {
		if s.StripeSubscriptionID == id {
			return s, nil
		}
	}
	return nil, shared.ErrSubscriptionNotFound
}

func (f *fakeSubscriptions) UpsertByUserID(_ context.Context, sub *subscription.UserSubscription) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	cp := *sub
	f.byUser[sub.UserID] = &cp
	return nil
}

func (f *fakeSubscriptions) UpdateBilling(_ context.Context, id, priceID string, periodEnd time.Time) error {
	for _, s := range f.byUser {
		if s.StripeSubscriptionID == id {
			s.StripePriceID = priceID
			s.StripeCurrentPeriodEnd = periodEnd
			return nil
		}
	}
	return shared.ErrSubscriptionNotFound
}

type fakeLedger struct {
	ids     map[string]subscription.EventType
	markErr error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{ids: make(map[string]subscription.EventType)}
}

func (f *fakeLedger) IsProcessed(_ context.Context, id string) (bool, error) {
	_, ok := f.ids[id]
	return ok, nil
}

func (f *fakeLedger) MarkProcessed(_ context.Context, id string, t subscription.EventType) error {
	if f.markErr != nil {
		return f.markErr
	}
	f.ids[id] = t
	return nil
}

func (f *fakeLedger) PruneBefore(context.Context, time.Time) (int64, error) {
	return 0, nil
}

var errDatabaseDown = errors.New("connection refused")
