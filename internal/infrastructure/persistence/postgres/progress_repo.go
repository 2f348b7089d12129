package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/langquest/langquest-core/internal/domain/progress"
	"github.com/langquest/langquest-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// ProgressRepository implements progress.Repository.
// Every guard is part of the SQL statement that mutates the row, so concurrent
// requests cannot both pass a check and then both write.
type ProgressRepository struct {
	conn *Connection
}

// NewProgressRepository creates a new ProgressRepository.
func NewProgressRepository(conn *Connection) *ProgressRepository {
	return &ProgressRepository{conn: conn}
}

const progressColumns = `user_id, user_name, user_image_src, active_course_id, hearts, points`

// Get returns the progress row of a user.
func (r *ProgressRepository) Get(ctx context.Context, userID shared.UserID) (*progress.UserProgress, error) {
	query := `SELECT ` + progressColumns + ` FROM user_progress WHERE user_id = $1`

	p, err := scanProgress(r.conn.QueryRow(ctx, query, string(userID)))
	if IsNoRows(err) {
		return nil, shared.ErrUserProgressNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user progress: %w", err)
	}
	return p, nil
}

// SelectCourse upserts the row in one statement. Existing hearts and points
// are kept; name and avatar are refreshed from the identity.
func (r *ProgressRepository) SelectCourse(ctx context.Context, identity shared.Identity, courseID int64) (*progress.UserProgress, error) {
	fresh := progress.NewUserProgress(identity, courseID)

	query := `
		INSERT INTO user_progress (user_id, user_name, user_image_src, active_course_id, hearts, points)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE SET
			active_course_id = EXCLUDED.active_course_id,
			user_name = EXCLUDED.user_name,
			user_image_src = EXCLUDED.user_image_src,
			updated_at = NOW()
		RETURNING ` + progressColumns

	p, err := scanProgress(r.conn.QueryRow(ctx, query,
		string(fresh.UserID), fresh.UserName, fresh.UserImageSrc, courseID, fresh.Hearts, fresh.Points,
	))
	if err != nil {
		return nil, classify("progress", "SelectCourse", err)
	}
	return p, nil
}

// HasChallengeProgress reports whether a progress row exists for the pair.
func (r *ProgressRepository) HasChallengeProgress(ctx context.Context, userID shared.UserID, challengeID int64) (bool, error) {
	return hasChallengeProgress(ctx, r.conn, userID, challengeID)
}

func hasChallengeProgress(ctx context.Context, q Querier, userID shared.UserID, challengeID int64) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM challenge_progress WHERE user_id = $1 AND challenge_id = $2
		)
	`, string(userID), challengeID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check challenge progress: %w", err)
	}
	return exists, nil
}

// DecrementHeart takes one heart when the guard holds.
func (r *ProgressRepository) DecrementHeart(ctx context.Context, userID shared.UserID, challengeID int64) (int, bool, error) {
	var hearts int
	err := r.conn.QueryRow(ctx, `
		UPDATE user_progress
		SET hearts = GREATEST(hearts - 1, 0), updated_at = NOW()
		WHERE user_id = $1
		  AND hearts > 0
		  AND NOT EXISTS (
			SELECT 1 FROM challenge_progress WHERE user_id = $1 AND challenge_id = $2
		  )
		RETURNING hearts
	`, string(userID), challengeID).Scan(&hearts)

	if IsNoRows(err) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, classify("progress", "DecrementHeart", err)
	}
	return hearts, true, nil
}

// Refill restores hearts and charges points when the guard holds. When it
// does not, the current row is returned so the caller can explain why.
func (r *ProgressRepository) Refill(ctx context.Context, userID shared.UserID) (*progress.UserProgress, bool, error) {
	query := `
		UPDATE user_progress
		SET hearts = $2, points = points - $3, updated_at = NOW()
		WHERE user_id = $1 AND hearts < $2 AND points >= $3
		RETURNING ` + progressColumns

	p, err := scanProgress(r.conn.QueryRow(ctx, query, string(userID), progress.MaxHearts, progress.RefillCost))
	if err == nil {
		return p, true, nil
	}
	if !IsNoRows(err) {
		return nil, false, classify("progress", "Refill", err)
	}

	current, err := r.Get(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	return current, false, nil
}

// CompleteChallenge locks the user's row, decides the outcome and writes the
// challenge progress row in the same transaction.
func (r *ProgressRepository) CompleteChallenge(ctx context.Context, userID shared.UserID, challengeID int64) (*progress.UserProgress, progress.CompletionOutcome, error) {
	var (
		result  *progress.UserProgress
		outcome progress.CompletionOutcome
	)

	err := r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		p, err := scanProgress(tx.QueryRow(ctx,
			`SELECT `+progressColumns+` FROM user_progress WHERE user_id = $1 FOR UPDATE`,
			string(userID),
		))
		if IsNoRows(err) {
			return shared.ErrUserProgressNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to lock user progress: %w", err)
		}

		engaged, err := hasChallengeProgress(ctx, tx, userID, challengeID)
		if err != nil {
			return err
		}

		decision := progress.DecideCompletion(p, engaged)
		outcome = decision.Outcome
		result = p
		if !decision.Outcome.Mutated() {
			return nil
		}

		if decision.InsertRow {
			_, err = tx.Exec(ctx, `
				INSERT INTO challenge_progress (user_id, challenge_id, completed)
				VALUES ($1, $2, TRUE)
			`, string(userID), challengeID)
		} else {
			_, err = tx.Exec(ctx, `
				UPDATE challenge_progress SET completed = TRUE
				WHERE user_id = $1 AND challenge_id = $2
			`, string(userID), challengeID)
		}
		if err != nil {
			return classify("progress", "CompleteChallenge", err)
		}

		if _, err := tx.Exec(ctx, `
			UPDATE user_progress SET hearts = $2, points = $3, updated_at = NOW()
			WHERE user_id = $1
		`, string(userID), decision.Hearts, decision.Points); err != nil {
			return classify("progress", "CompleteChallenge", err)
		}

		p.Hearts = decision.Hearts
		p.Points = decision.Points
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	return result, outcome, nil
}

// TopByPoints returns the highest scoring users. Ties break by user id so the
// order is stable.
func (r *ProgressRepository) TopByPoints(ctx context.Context, limit int) ([]*progress.UserProgress, error) {
	rows, err := r.conn.Query(ctx,
		`SELECT `+progressColumns+` FROM user_progress ORDER BY points DESC, user_id LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query top users: %w", err)
	}
	defer rows.Close()

	var result []*progress.UserProgress
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user progress: %w", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return result, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Scanning
// ─────────────────────────────────────────────────────────────────────────────

func scanProgress(row pgx.Row) (*progress.UserProgress, error) {
	var p progress.UserProgress
	var userID string
	if err := row.Scan(&userID, &p.UserName, &p.UserImageSrc, &p.ActiveCourseID, &p.Hearts, &p.Points); err != nil {
		return nil, err
	}
	p.UserID = shared.UserID(userID)
	return &p, nil
}
