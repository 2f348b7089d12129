package leaderboard

import (
	"context"
	"time"
)

// Cache хранит готовый лидерборд между запросами.
// Реализация находится в infrastructure/persistence/redis.
type Cache interface {
	// Get возвращает nil без ошибки, если данных нет.
	Get(ctx context.Context) (*Board, error)

	// Set сохраняет лидерборд на ttl.
	Set(ctx context.Context, board *Board, ttl time.Duration) error

	// Invalidate удаляет сохранённый лидерборд.
	Invalidate(ctx context.Context) error
}
