// Package jobs contains the LangQuest background jobs.
package jobs

import (
	"context"
	"fmt"

	"github.com/langquest/langquest-core/internal/domain/leaderboard"
	"github.com/langquest/langquest-core/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// REBUILD LEADERBOARD JOB
// ══════════════════════════════════════════════════════════════════════════════

// LeaderboardRebuilder rebuilds the cached top list.
type LeaderboardRebuilder interface {
	Rebuild(ctx context.Context) (*leaderboard.Board, error)
}

// RebuildLeaderboardJob прогревает кэш лидерборда, чтобы запросы
// пользователей почти никогда не шли в базу.
type RebuildLeaderboardJob struct {
	rebuilder LeaderboardRebuilder
	log       *logger.Logger
}

// NewRebuildLeaderboardJob creates a new rebuild leaderboard job.
func NewRebuildLeaderboardJob(rebuilder LeaderboardRebuilder, log *logger.Logger) *RebuildLeaderboardJob {
	if log == nil {
		log = logger.Nop()
	}
	return &RebuildLeaderboardJob{rebuilder: rebuilder, log: log}
}

// Name returns the job name.
func (j *RebuildLeaderboardJob) Name() string {
	return "rebuild_leaderboard"
}

// Description returns a human-readable description.
func (j *RebuildLeaderboardJob) Description() string {
	return "Rebuilds the points leaderboard and refreshes its cache"
}

// Run executes the rebuild.
func (j *RebuildLeaderboardJob) Run(ctx context.Context) error {
	board, err := j.rebuilder.Rebuild(ctx)
	if err != nil {
		return fmt.Errorf("rebuild leaderboard: %w", err)
	}

	fields := []logger.Field{logger.Int("entries", len(board.Entries))}
	if len(board.Entries) > 0 {
		fields = append(fields, logger.Int("top_points", board.Entries[0].Points))
	}
	j.log.Debug("leaderboard rebuilt", fields...)
	return nil
}
