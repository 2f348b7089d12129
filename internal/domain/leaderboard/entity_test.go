package leaderboard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/langquest/langquest-core/internal/domain/progress"
)

func TestBuild_SharedRanksForTies(t *testing.T) {
	rows := []*progress.UserProgress{
		{UserID: "a", Points: 300},
		{UserID: "b", Points: 200},
		{UserID: "c", Points: 200},
		{UserID: "d", Points: 50},
	}

	board := Build(rows, time.Unix(0, 0))
	require.Len(t, board.Entries, 4)
	assert.Equal(t, Rank(1), board.Entries[0].Rank)
	assert.Equal(t, Rank(2), board.Entries[1].Rank)
	assert.Equal(t, Rank(2), board.Entries[2].Rank)
	assert.Equal(t, Rank(4), board.Entries[3].Rank)

	r, ok := board.Position("c")
	assert.True(t, ok)
	assert.Equal(t, "#2", r.String())

	_, ok = board.Position("zz")
	assert.False(t, ok)
}
