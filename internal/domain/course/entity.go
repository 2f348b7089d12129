// Package course contains the read-mostly content graph of LangQuest:
// courses, units, lessons, challenges and their answer options.
package course

import (
	"fmt"
	"time"

	"github.com/langquest/langquest-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CHALLENGE TYPE
// ══════════════════════════════════════════════════════════════════════════════

// ChallengeType is the presentation kind of a challenge.
type ChallengeType string

const (
	// ChallengeSelect asks the user to pick the matching card.
	ChallengeSelect ChallengeType = "SELECT"

	// ChallengeAssist asks the user to pick the translation of a phrase.
	ChallengeAssist ChallengeType = "ASSIST"
)

// IsValid checks if the challenge type is known.
func (t ChallengeType) IsValid() bool {
	switch t {
	case ChallengeSelect, ChallengeAssist:
		return true
	default:
		return false
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// ENTITIES
// ══════════════════════════════════════════════════════════════════════════════

// Course is a language course.
type Course struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	ImageSrc  string    `json:"image_src"`
	CreatedAt time.Time `json:"created_at"`
}

// Unit groups lessons inside a course.
type Unit struct {
	ID          int64     `json:"id"`
	CourseID    int64     `json:"course_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Order       int       `json:"order"`
	Lessons     []*Lesson `json:"lessons"`
}

// Lesson is an ordered list of challenges.
type Lesson struct {
	ID         int64        `json:"id"`
	UnitID     int64        `json:"unit_id"`
	Title      string       `json:"title"`
	Order      int          `json:"order"`
	Challenges []*Challenge `json:"challenges"`
}

// Challenge is a single question inside a lesson.
type Challenge struct {
	ID       int64         `json:"id"`
	LessonID int64         `json:"lesson_id"`
	Type     ChallengeType `json:"type"`
	Question string        `json:"question"`
	Order    int           `json:"order"`

	Options []*ChallengeOption `json:"options,omitempty"`

	// Progress holds the requesting user's progress rows for this challenge
	// and never another user's.
	Progress []ChallengeProgressRow `json:"-"`
}

// ChallengeOption is one answer choice.
type ChallengeOption struct {
	ID          int64  `json:"id"`
	ChallengeID int64  `json:"challenge_id"`
	Text        string `json:"text"`
	Correct     bool   `json:"correct"`
	ImageSrc    string `json:"image_src,omitempty"`
	AudioSrc    string `json:"audio_src,omitempty"`
}

// ChallengeProgressRow is the slice of a challenge_progress row the content
// graph carries along for completion computations.
type ChallengeProgressRow struct {
	ID        int64
	Completed bool
}

// Validate checks the content invariants of a challenge.
func (c *Challenge) Validate() error {
	if !c.Type.IsValid() {
		return shared.WrapError("course", "ValidateChallenge", shared.ErrValidation,
			fmt.Sprintf("challenge %q has unknown type %q", c.Question, c.Type), nil)
	}
	if c.Question == "" {
		return shared.NewDomainError("course", "ValidateChallenge", shared.ErrValidation, "challenge question is empty")
	}
	for _, o := range c.Options {
		if o.Correct {
			return nil
		}
	}
	return shared.NewDomainError("course", "ValidateChallenge", shared.ErrValidation,
		fmt.Sprintf("challenge %q has no correct option", c.Question))
}

// ══════════════════════════════════════════════════════════════════════════════
// COURSE TREE
// ══════════════════════════════════════════════════════════════════════════════

// CourseTree is a full course with all nested content, used for imports.
type CourseTree struct {
	Course Course
	Units  []*Unit
}

// Validate checks ordering uniqueness and every challenge invariant.
func (t *CourseTree) Validate() error {
	if t.Course.Title == "" {
		return shared.NewDomainError("course", "ValidateTree", shared.ErrValidation, "course title is empty")
	}

	unitOrders := make(map[int]bool, len(t.Units))
	for _, u := range t.Units {
		if unitOrders[u.Order] {
			return orderError("unit", u.Title, u.Order)
		}
		unitOrders[u.Order] = true

		lessonOrders := make(map[int]bool, len(u.Lessons))
		for _, l := range u.Lessons {
			if lessonOrders[l.Order] {
				return orderError("lesson", l.Title, l.Order)
			}
			lessonOrders[l.Order] = true

			challengeOrders := make(map[int]bool, len(l.Challenges))
			for _, c := range l.Challenges {
				if challengeOrders[c.Order] {
					return orderError("challenge", c.Question, c.Order)
				}
				challengeOrders[c.Order] = true

				if err := c.Validate(); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func orderError(kind, title string, order int) error {
	return shared.NewDomainError("course", "ValidateTree", shared.ErrValidation,
		fmt.Sprintf("duplicate %s order %d (%s)", kind, order, title))
}
