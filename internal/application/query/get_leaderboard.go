package query

import (
	"context"
	"fmt"
	"time"

	"github.com/langquest/langquest-core/internal/domain/leaderboard"
	"github.com/langquest/langquest-core/internal/domain/progress"
	"github.com/langquest/langquest-core/internal/domain/shared"
	"github.com/langquest/langquest-core/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET LEADERBOARD QUERY
// Получает топ пользователей по очкам. Сначала смотрит в кэш, при промахе
// строит лидерборд из базы и кладёт его в кэш.
// ══════════════════════════════════════════════════════════════════════════════

// DefaultLeaderboardTTL - время жизни закэшированного лидерборда.
const DefaultLeaderboardTTL = 5 * time.Minute

// GetLeaderboardQuery содержит параметры запроса лидерборда.
type GetLeaderboardQuery struct {
	Identity shared.Identity
}

// LeaderboardResult - лидерборд и позиция текущего пользователя.
type LeaderboardResult struct {
	Entries []leaderboard.Entry `json:"entries"`

	// MyRank - ранг пользователя, 0 если он не в топе.
	MyRank  leaderboard.Rank `json:"my_rank"`
	BuiltAt time.Time        `json:"built_at"`
}

// GetLeaderboardHandler обрабатывает запрос лидерборда.
type GetLeaderboardHandler struct {
	progress progress.Repository
	cache    leaderboard.Cache
	ttl      time.Duration
	clock    shared.Clock
	log      *logger.Logger
}

// NewGetLeaderboardHandler создаёт обработчик. cache может быть nil.
func NewGetLeaderboardHandler(
	progressRepo progress.Repository,
	cache leaderboard.Cache,
	ttl time.Duration,
	clock shared.Clock,
	log *logger.Logger,
) *GetLeaderboardHandler {
	if ttl <= 0 {
		ttl = DefaultLeaderboardTTL
	}
	if clock == nil {
		clock = shared.SystemClock{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &GetLeaderboardHandler{
		progress: progressRepo,
		cache:    cache,
		ttl:      ttl,
		clock:    clock,
		log:      log.Named("get_leaderboard"),
	}
}

// Handle выполняет запрос. Неавторизованный пользователь получает пустой
// лидерборд.
func (h *GetLeaderboardHandler) Handle(ctx context.Context, q GetLeaderboardQuery) (*LeaderboardResult, error) {
	if !q.Identity.UserID.IsValid() {
		return &LeaderboardResult{Entries: []leaderboard.Entry{}}, nil
	}

	board, err := h.Board(ctx)
	if err != nil {
		return nil, err
	}

	rank, _ := board.Position(q.Identity.UserID)
	return &LeaderboardResult{
		Entries: board.Entries,
		MyRank:  rank,
		BuiltAt: board.BuiltAt,
	}, nil
}

// Board возвращает лидерборд из кэша или строит его заново.
// Ошибки кэша не фатальны: лидерборд всегда можно построить из базы.
func (h *GetLeaderboardHandler) Board(ctx context.Context) (*leaderboard.Board, error) {
	if h.cache != nil {
		cached, err := h.cache.Get(ctx)
		if err != nil {
			h.log.Warn("leaderboard cache read failed", logger.Err(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	board, err := h.Rebuild(ctx)
	if err != nil {
		return nil, err
	}
	return board, nil
}

// Rebuild строит лидерборд из базы и обновляет кэш.
func (h *GetLeaderboardHandler) Rebuild(ctx context.Context) (*leaderboard.Board, error) {
	rows, err := h.progress.TopByPoints(ctx, leaderboard.TopSize)
	if err != nil {
		return nil, fmt.Errorf("get_leaderboard: %w", err)
	}

	board := leaderboard.Build(rows, h.clock.Now())

	if h.cache != nil {
		if err := h.cache.Set(ctx, board, h.ttl); err != nil {
			h.log.Warn("leaderboard cache write failed", logger.Err(err))
		}
	}
	return board, nil
}
