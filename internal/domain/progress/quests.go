package progress

// Quest is an XP milestone.
type Quest struct {
	Title string `json:"title"`
	Value int    `json:"value"`
}

// QuestProgress is a quest with the user's progress towards it.
type QuestProgress struct {
	Quest
	Percentage int  `json:"percentage"`
	Completed  bool `json:"completed"`
}

// Quests are the fixed XP milestones, in ascending order.
var Quests = []Quest{
	{Title: "Earn 20 XP", Value: 20},
	{Title: "Earn 50 XP", Value: 50},
	{Title: "Earn 100 XP", Value: 100},
	{Title: "Earn 500 XP", Value: 500},
	{Title: "Earn 1000 XP", Value: 1000},
}

// EvaluateQuests reports progress on every quest for the given points.
func EvaluateQuests(points int) []QuestProgress {
	out := make([]QuestProgress, 0, len(Quests))
	for _, q := range Quests {
		pct := points * 100 / q.Value
		if pct > 100 {
			pct = 100
		}
		if pct < 0 {
			pct = 0
		}
		out = append(out, QuestProgress{
			Quest:      q,
			Percentage: pct,
			Completed:  points >= q.Value,
		})
	}
	return out
}
