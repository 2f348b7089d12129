package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/langquest/langquest-core/internal/domain/course"
	"github.com/langquest/langquest-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// COURSE REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// CourseRepository implements course.Repository and course.Importer.
type CourseRepository struct {
	conn *Connection
}

// NewCourseRepository creates a new CourseRepository.
func NewCourseRepository(conn *Connection) *CourseRepository {
	return &CourseRepository{conn: conn}
}

// ─────────────────────────────────────────────────────────────────────────────
// Point lookups
// ─────────────────────────────────────────────────────────────────────────────

// ListCourses returns all courses.
func (r *CourseRepository) ListCourses(ctx context.Context) ([]*course.Course, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT id, title, image_src, created_at
		FROM courses
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query courses: %w", err)
	}
	defer rows.Close()

	var courses []*course.Course
	for rows.Next() {
		var c course.Course
		if err := rows.Scan(&c.ID, &c.Title, &c.ImageSrc, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan course: %w", err)
		}
		courses = append(courses, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return courses, nil
}

// GetCourse returns a course by id.
func (r *CourseRepository) GetCourse(ctx context.Context, id int64) (*course.Course, error) {
	var c course.Course
	err := r.conn.QueryRow(ctx, `
		SELECT id, title, image_src, created_at
		FROM courses
		WHERE id = $1
	`, id).Scan(&c.ID, &c.Title, &c.ImageSrc, &c.CreatedAt)

	if IsNoRows(err) {
		return nil, shared.ErrCourseNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get course: %w", err)
	}
	return &c, nil
}

// GetChallenge returns a challenge by id without options.
func (r *CourseRepository) GetChallenge(ctx context.Context, id int64) (*course.Challenge, error) {
	var c course.Challenge
	var typ string
	err := r.conn.QueryRow(ctx, `
		SELECT id, lesson_id, type, question, "order"
		FROM challenges
		WHERE id = $1
	`, id).Scan(&c.ID, &c.LessonID, &typ, &c.Question, &c.Order)

	if IsNoRows(err) {
		return nil, shared.ErrChallengeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get challenge: %w", err)
	}
	c.Type = course.ChallengeType(typ)
	return &c, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Content trees with user progress
// ─────────────────────────────────────────────────────────────────────────────

// ListUnitsWithProgress loads the whole course tree for one user in a single
// statement, so the result reflects one snapshot.
func (r *CourseRepository) ListUnitsWithProgress(ctx context.Context, courseID int64, userID shared.UserID) ([]*course.Unit, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT u.id, u.course_id, u.title, u.description, u."order",
		       l.id, l.title, l."order",
		       c.id, c.type, c.question, c."order",
		       cp.id, cp.completed
		FROM units u
		LEFT JOIN lessons l ON l.unit_id = u.id
		LEFT JOIN challenges c ON c.lesson_id = l.id
		LEFT JOIN challenge_progress cp ON cp.challenge_id = c.id AND cp.user_id = $2
		WHERE u.course_id = $1
		ORDER BY u."order", l."order", c."order", cp.id
	`, courseID, string(userID))
	if err != nil {
		return nil, fmt.Errorf("failed to query units: %w", err)
	}
	defer rows.Close()

	var (
		units         []*course.Unit
		lastUnit      *course.Unit
		lastLesson    *course.Lesson
		lastChallenge *course.Challenge
	)

	for rows.Next() {
		var u course.Unit
		var (
			lessonID, challengeID, progressID *int64
			lessonTitle, challengeType, quest *string
			lessonOrder, challengeOrder       *int
			completed                         *bool
		)

		if err := rows.Scan(
			&u.ID, &u.CourseID, &u.Title, &u.Description, &u.Order,
			&lessonID, &lessonTitle, &lessonOrder,
			&challengeID, &challengeType, &quest, &challengeOrder,
			&progressID, &completed,
		); err != nil {
			return nil, fmt.Errorf("failed to scan unit row: %w", err)
		}

		if lastUnit == nil || lastUnit.ID != u.ID {
			u.Lessons = []*course.Lesson{}
			lastUnit = &u
			lastLesson, lastChallenge = nil, nil
			units = append(units, lastUnit)
		}
		if lessonID == nil {
			continue
		}

		if lastLesson == nil || lastLesson.ID != *lessonID {
			lastLesson = &course.Lesson{
				ID:         *lessonID,
				UnitID:     lastUnit.ID,
				Title:      *lessonTitle,
				Order:      *lessonOrder,
				Challenges: []*course.Challenge{},
			}
			lastChallenge = nil
			lastUnit.Lessons = append(lastUnit.Lessons, lastLesson)
		}
		if challengeID == nil {
			continue
		}

		if lastChallenge == nil || lastChallenge.ID != *challengeID {
			lastChallenge = &course.Challenge{
				ID:       *challengeID,
				LessonID: lastLesson.ID,
				Type:     course.ChallengeType(*challengeType),
				Question: *quest,
				Order:    *challengeOrder,
			}
			lastLesson.Challenges = append(lastLesson.Challenges, lastChallenge)
		}
		if progressID != nil {
			lastChallenge.Progress = append(lastChallenge.Progress, course.ChallengeProgressRow{
				ID:        *progressID,
				Completed: *completed,
			})
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return units, nil
}

// GetLessonWithProgress loads a lesson with ordered challenges, options and
// the user's progress rows inside one repeatable-read transaction.
func (r *CourseRepository) GetLessonWithProgress(ctx context.Context, lessonID int64, userID shared.UserID) (*course.Lesson, error) {
	var lesson *course.Lesson

	err := r.conn.WithTx(ctx, SnapshotTxOptions(), func(tx pgx.Tx) error {
		var l course.Lesson
		err := tx.QueryRow(ctx, `
			SELECT id, unit_id, title, "order"
			FROM lessons
			WHERE id = $1
		`, lessonID).Scan(&l.ID, &l.UnitID, &l.Title, &l.Order)
		if IsNoRows(err) {
			return shared.ErrLessonNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to get lesson: %w", err)
		}

		challenges, byID, err := r.lessonChallenges(ctx, tx, lessonID, userID)
		if err != nil {
			return err
		}
		if err := r.attachOptions(ctx, tx, lessonID, byID); err != nil {
			return err
		}

		l.Challenges = challenges
		lesson = &l
		return nil
	})
	if err != nil {
		return nil, err
	}
	return lesson, nil
}

func (r *CourseRepository) lessonChallenges(ctx context.Context, q Querier, lessonID int64, userID shared.UserID) ([]*course.Challenge, map[int64]*course.Challenge, error) {
	rows, err := q.Query(ctx, `
		SELECT c.id, c.lesson_id, c.type, c.question, c."order", cp.id, cp.completed
		FROM challenges c
		LEFT JOIN challenge_progress cp ON cp.challenge_id = c.id AND cp.user_id = $2
		WHERE c.lesson_id = $1
		ORDER BY c."order", cp.id
	`, lessonID, string(userID))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query challenges: %w", err)
	}
	defer rows.Close()

	challenges := []*course.Challenge{}
	byID := make(map[int64]*course.Challenge)
	for rows.Next() {
		var c course.Challenge
		var typ string
		var progressID *int64
		var completed *bool
		if err := rows.Scan(&c.ID, &c.LessonID, &typ, &c.Question, &c.Order, &progressID, &completed); err != nil {
			return nil, nil, fmt.Errorf("failed to scan challenge: %w", err)
		}

		existing, ok := byID[c.ID]
		if !ok {
			c.Type = course.ChallengeType(typ)
			c.Options = []*course.ChallengeOption{}
			existing = &c
			byID[c.ID] = existing
			challenges = append(challenges, existing)
		}
		if progressID != nil {
			existing.Progress = append(existing.Progress, course.ChallengeProgressRow{ID: *progressID, Completed: *completed})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return challenges, byID, nil
}

func (r *CourseRepository) attachOptions(ctx context.Context, q Querier, lessonID int64, byID map[int64]*course.Challenge) error {
	rows, err := q.Query(ctx, `
		SELECT o.id, o.challenge_id, o.text, o.correct, COALESCE(o.image_src, ''), COALESCE(o.audio_src, '')
		FROM challenge_options o
		JOIN challenges c ON c.id = o.challenge_id
		WHERE c.lesson_id = $1
		ORDER BY o.id
	`, lessonID)
	if err != nil {
		return fmt.Errorf("failed to query options: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var o course.ChallengeOption
		if err := rows.Scan(&o.ID, &o.ChallengeID, &o.Text, &o.Correct, &o.ImageSrc, &o.AudioSrc); err != nil {
			return fmt.Errorf("failed to scan option: %w", err)
		}
		if c, ok := byID[o.ChallengeID]; ok {
			c.Options = append(c.Options, &o)
		}
	}
	return rows.Err()
}

// ─────────────────────────────────────────────────────────────────────────────
// Import
// ─────────────────────────────────────────────────────────────────────────────

// ImportCourse inserts a whole course tree in one transaction.
func (r *CourseRepository) ImportCourse(ctx context.Context, tree *course.CourseTree) (int64, error) {
	if err := tree.Validate(); err != nil {
		return 0, err
	}

	var courseID int64
	err := r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx,
			`INSERT INTO courses (title, image_src) VALUES ($1, $2) RETURNING id`,
			tree.Course.Title, tree.Course.ImageSrc,
		).Scan(&courseID); err != nil {
			return classify("course", "ImportCourse", err)
		}

		for _, u := range tree.Units {
			var unitID int64
			if err := tx.QueryRow(ctx,
				`INSERT INTO units (title, description, course_id, "order") VALUES ($1, $2, $3, $4) RETURNING id`,
				u.Title, u.Description, courseID, u.Order,
			).Scan(&unitID); err != nil {
				return classify("course", "ImportUnit", err)
			}

			for _, l := range u.Lessons {
				var lessonID int64
				if err := tx.QueryRow(ctx,
					`INSERT INTO lessons (title, unit_id, "order") VALUES ($1, $2, $3) RETURNING id`,
					l.Title, unitID, l.Order,
				).Scan(&lessonID); err != nil {
					return classify("course", "ImportLesson", err)
				}

				for _, c := range l.Challenges {
					var challengeID int64
					if err := tx.QueryRow(ctx,
						`INSERT INTO challenges (lesson_id, type, question, "order") VALUES ($1, $2, $3, $4) RETURNING id`,
						lessonID, string(c.Type), c.Question, c.Order,
					).Scan(&challengeID); err != nil {
						return classify("course", "ImportChallenge", err)
					}

					batch := &pgx.Batch{}
					for _, o := range c.Options {
						batch.Queue(
							`INSERT INTO challenge_options (challenge_id, text, correct, image_src, audio_src)
							 VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''))`,
							challengeID, o.Text, o.Correct, o.ImageSrc, o.AudioSrc,
						)
					}
					if err := tx.SendBatch(ctx, batch).Close(); err != nil {
						return classify("course", "ImportOptions", err)
					}
				}
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return courseID, nil
}
