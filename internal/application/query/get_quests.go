package query

import (
	"context"
	"errors"
	"fmt"

	"github.com/langquest/langquest-core/internal/domain/progress"
	"github.com/langquest/langquest-core/internal/domain/shared"
)

// GetQuestsQuery requests the caller's quest progress.
type GetQuestsQuery struct {
	Identity shared.Identity
}

// QuestsResult lists every XP milestone with progress.
type QuestsResult struct {
	Points int                      `json:"points"`
	Quests []progress.QuestProgress `json:"quests"`
}

// GetQuestsHandler handles GetQuestsQuery.
type GetQuestsHandler struct {
	progress progress.Repository
}

// NewGetQuestsHandler creates a new GetQuestsHandler.
func NewGetQuestsHandler(progressRepo progress.Repository) *GetQuestsHandler {
	return &GetQuestsHandler{progress: progressRepo}
}

// Handle executes the query. Users without a progress row see zero points.
func (h *GetQuestsHandler) Handle(ctx context.Context, q GetQuestsQuery) (*QuestsResult, error) {
	if !q.Identity.UserID.IsValid() {
		return nil, shared.ErrUnauthenticated
	}

	points := 0
	p, err := h.progress.Get(ctx, q.Identity.UserID)
	switch {
	case err == nil:
		points = p.Points
	case !errors.Is(err, shared.ErrUserProgressNotFound):
		return nil, fmt.Errorf("get_quests: %w", err)
	}

	return &QuestsResult{Points: points, Quests: progress.EvaluateQuests(points)}, nil
}
