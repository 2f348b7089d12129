// Package leaderboard содержит доменную модель лидерборда LangQuest.
// Лидерборд - это топ пользователей по очкам, которые они заработали,
// проходя задания.
package leaderboard

import (
	"fmt"
	"time"

	"github.com/langquest/langquest-core/internal/domain/progress"
	"github.com/langquest/langquest-core/internal/domain/shared"
)

// TopSize is the number of users shown on the leaderboard.
const TopSize = 10

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// Rank представляет позицию пользователя в лидерборде.
// Rank начинается с 1 (первое место).
type Rank int

// IsValid проверяет, что ранг положительный.
func (r Rank) IsValid() bool {
	return r > 0
}

// String возвращает строковое представление ранга.
func (r Rank) String() string {
	return fmt.Sprintf("#%d", r)
}

// ══════════════════════════════════════════════════════════════════════════════
// ENTITIES
// ══════════════════════════════════════════════════════════════════════════════

// Entry - одна строка лидерборда.
type Entry struct {
	Rank         Rank          `json:"rank"`
	UserID       shared.UserID `json:"user_id"`
	UserName     string        `json:"user_name"`
	UserImageSrc string        `json:"user_image_src"`
	Points       int           `json:"points"`
}

// Board - снимок топа на момент построения.
type Board struct {
	Entries []Entry   `json:"entries"`
	BuiltAt time.Time `json:"built_at"`
}

// Build строит лидерборд из строк прогресса, уже отсортированных по очкам.
// Одинаковые очки получают одинаковый ранг.
func Build(rows []*progress.UserProgress, now time.Time) *Board {
	board := &Board{Entries: make([]Entry, 0, len(rows)), BuiltAt: now}

	rank := Rank(0)
	prevPoints := -1
	for i, p := range rows {
		if p.Points != prevPoints {
			rank = Rank(i + 1)
			prevPoints = p.Points
		}
		board.Entries = append(board.Entries, Entry{
			Rank:         rank,
			UserID:       p.UserID,
			UserName:     p.UserName,
			UserImageSrc: p.UserImageSrc,
			Points:       p.Points,
		})
	}
	return board
}

// Position возвращает ранг пользователя, если он в топе.
func (b *Board) Position(userID shared.UserID) (Rank, bool) {
	if b == nil {
		return 0, false
	}
	for _, e := range b.Entries {
		if e.UserID == userID {
			return e.Rank, true
		}
	}
	return 0, false
}
